package notify

import (
	"encoding/json"
	"fmt"
	"net"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/crossex/cross/internal/logger"
)

// FillTrade is one executed trade as seen by one of its two owners
type FillTrade struct {
	OrderID      uint64 `json:"orderId"`
	Side         string `json:"type"`
	Kind         string `json:"orderType"`
	Size         int64  `json:"size"`
	Price        int64  `json:"price"`
	Counterparty string `json:"counterparty"`
	Timestamp    int64  `json:"timestamp"`
}

// FillFrame is the unicast fill-notification datagram
type FillFrame struct {
	Notification string      `json:"notification"`
	Trades       []FillTrade `json:"trades"`
}

// ThresholdFrame is the multicast price-threshold alert datagram
type ThresholdFrame struct {
	Type           string `json:"type"`
	Username       string `json:"username"`
	ThresholdPrice int64  `json:"thresholdPrice"`
	CurrentPrice   int64  `json:"currentPrice"`
	Message        string `json:"message"`
	Timestamp      int64  `json:"timestamp"`
}

// datagram is one queued outbound UDP packet
type datagram struct {
	addr    *net.UDPAddr
	payload []byte
}

// Fanout delivers trade notifications over UDP: per-user unicast fills
// to the address each user registered at login, and group threshold
// alerts to a multicast address. Sends are queued on a buffered channel
// drained by a background goroutine so the matching path never blocks on
// socket I/O; when the queue is full the datagram is dropped and counted.
type Fanout struct {
	conn  *net.UDPConn
	group *net.UDPAddr

	mu    sync.RWMutex
	users map[string]*net.UDPAddr

	queue   chan datagram
	dropped atomic.Uint64

	closeOnce sync.Once
	done      chan struct{}
}

// NewFanout opens the outbound UDP socket and starts the sender. The
// multicast group is where threshold alerts are published; clients join
// it on their side.
func NewFanout(multicastAddr string, multicastPort, queueSize int) (*Fanout, error) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{})
	if err != nil {
		return nil, fmt.Errorf("failed to open notification socket: %w", err)
	}

	group := &net.UDPAddr{
		IP:   net.ParseIP(multicastAddr),
		Port: multicastPort,
	}
	if group.IP == nil || !group.IP.IsMulticast() {
		conn.Close()
		return nil, fmt.Errorf("invalid multicast address: %s", multicastAddr)
	}

	f := &Fanout{
		conn:  conn,
		group: group,
		users: make(map[string]*net.UDPAddr),
		queue: make(chan datagram, queueSize),
		done:  make(chan struct{}),
	}
	go f.sender()
	return f, nil
}

// sender drains the queue until Close
func (f *Fanout) sender() {
	defer close(f.done)
	for d := range f.queue {
		if _, err := f.conn.WriteToUDP(d.payload, d.addr); err != nil {
			logger.Warn("notification send failed", map[string]interface{}{
				"addr":  d.addr.String(),
				"error": err.Error(),
			})
		}
	}
}

// Register binds a user to the UDP address fills should be sent to.
// A re-registration (new login) replaces the previous address.
func (f *Fanout) Register(user string, addr *net.UDPAddr) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[user] = addr
}

// Unregister drops the user's notification address
func (f *Fanout) Unregister(user string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.users, user)
}

// ActiveUsers returns the registered usernames in sorted order
func (f *Fanout) ActiveUsers() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	users := make([]string, 0, len(f.users))
	for user := range f.users {
		users = append(users, user)
	}
	sort.Strings(users)
	return users
}

// Dropped returns the number of datagrams discarded on a full queue
func (f *Fanout) Dropped() uint64 {
	return f.dropped.Load()
}

// PublishFill sends a fill frame to one user. Users without a registered
// address (never logged in, or already logged out) are skipped.
func (f *Fanout) PublishFill(user string, frame *FillFrame) {
	f.mu.RLock()
	addr := f.users[user]
	f.mu.RUnlock()
	if addr == nil {
		return
	}

	payload, err := json.Marshal(frame)
	if err != nil {
		logger.Error("failed to encode fill frame", map[string]interface{}{
			"user":  user,
			"error": err.Error(),
		})
		return
	}
	f.enqueue(datagram{addr: addr, payload: payload})
}

// PublishThreshold broadcasts a threshold alert to the multicast group
func (f *Fanout) PublishThreshold(frame *ThresholdFrame) {
	payload, err := json.Marshal(frame)
	if err != nil {
		logger.Error("failed to encode threshold frame", map[string]interface{}{
			"user":  frame.Username,
			"error": err.Error(),
		})
		return
	}
	f.enqueue(datagram{addr: f.group, payload: payload})
}

func (f *Fanout) enqueue(d datagram) {
	select {
	case f.queue <- d:
	default:
		f.dropped.Add(1)
	}
}

// Close stops accepting new datagrams, drains the queue and closes the
// socket.
func (f *Fanout) Close() error {
	f.closeOnce.Do(func() {
		close(f.queue)
		<-f.done
	})
	return f.conn.Close()
}
