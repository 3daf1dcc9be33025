package server_test

import (
	"bufio"
	"encoding/json"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crossex/cross/internal/accounts"
	"github.com/crossex/cross/internal/market"
	"github.com/crossex/cross/internal/matching"
	"github.com/crossex/cross/internal/notify"
	"github.com/crossex/cross/internal/server"
	"github.com/crossex/cross/internal/service"
	"github.com/crossex/cross/internal/storage/file"
	"github.com/crossex/cross/internal/types"
)

// testServer assembles the full stack on an ephemeral port
func testServer(t *testing.T) (*server.Server, accounts.Service) {
	t.Helper()

	dir := t.TempDir()

	store, err := file.NewTradeStore(filepath.Join(dir, "StoricoOrdini.json"))
	require.NoError(t, err)

	ids, err := matching.NewIDGenerator(store)
	require.NoError(t, err)

	fanout, err := notify.NewFanout("239.255.1.1", 44400, 64)
	require.NoError(t, err)
	t.Cleanup(func() { fanout.Close() })

	accountSvc, err := accounts.NewFileService(filepath.Join(dir, "users.json"))
	require.NoError(t, err)

	exchange := service.NewExchange(
		matching.NewEngine(),
		ids,
		market.NewState(types.DefaultMarketPrice),
		store,
		fanout,
	)

	srv := server.NewServer(server.Config{
		Port:             0,
		SocketTimeout:    5 * time.Second,
		MulticastAddress: "239.255.1.1",
		MulticastPort:    44400,
	}, exchange, accountSvc)

	go srv.Serve()
	t.Cleanup(func() { srv.Close() })

	require.Eventually(t, func() bool { return srv.Addr() != nil },
		2*time.Second, 10*time.Millisecond, "server never bound")

	return srv, accountSvc
}

// client is a line-framed JSON test client
type client struct {
	t       *testing.T
	conn    net.Conn
	scanner *bufio.Scanner
}

func dial(t *testing.T, srv *server.Server) *client {
	t.Helper()
	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &client{t: t, conn: conn, scanner: bufio.NewScanner(conn)}
}

func (c *client) request(op string, values interface{}, reply interface{}) {
	c.t.Helper()

	raw, err := json.Marshal(values)
	require.NoError(c.t, err)

	frame, err := json.Marshal(map[string]json.RawMessage{
		"operation": json.RawMessage(`"` + op + `"`),
		"values":    raw,
	})
	require.NoError(c.t, err)

	_, err = c.conn.Write(append(frame, '\n'))
	require.NoError(c.t, err)

	require.True(c.t, c.scanner.Scan(), "no reply from server")
	require.NoError(c.t, json.Unmarshal(c.scanner.Bytes(), reply))
}

func (c *client) login(user, password string, udpPort int) server.CodeResponse {
	var resp server.CodeResponse
	c.request("login", map[string]interface{}{
		"username": user,
		"password": password,
		"udpPort":  udpPort,
	}, &resp)
	return resp
}

func TestLoginFlow(t *testing.T) {
	srv, accountSvc := testServer(t)
	require.NoError(t, accountSvc.Register("alice", "hunter2"))

	c := dial(t, srv)

	assert.Equal(t, types.CodeUserConflict, c.login("ghost", "hunter2", 41000).Response)
	assert.Equal(t, types.CodeNotAuthorized, c.login("alice", "wrong", 41000).Response)
	assert.Equal(t, types.CodeOK, c.login("alice", "hunter2", 41000).Response)

	// Second session for the same user is refused
	c2 := dial(t, srv)
	assert.Equal(t, types.CodeUserConflict, c2.login("alice", "hunter2", 41001).Response)

	// Logout frees the login
	var out server.CodeResponse
	c.request("logout", map[string]interface{}{}, &out)
	assert.Equal(t, types.CodeOK, out.Response)
	assert.Equal(t, types.CodeOK, c2.login("alice", "hunter2", 41001).Response)
}

func TestOperationsRequireLogin(t *testing.T) {
	srv, _ := testServer(t)
	c := dial(t, srv)

	var order server.OrderResponse
	c.request("insertLimitOrder", map[string]interface{}{
		"type": "bid", "size": 100, "price": 58_000_000,
	}, &order)
	assert.Equal(t, types.InvalidOrderID, order.OrderID)

	var cancel server.CodeResponse
	c.request("cancelOrder", map[string]interface{}{"orderId": 1}, &cancel)
	assert.Equal(t, types.CodeNotAuthorized, cancel.Response)
}

func TestOrderLifecycleAndFillNotification(t *testing.T) {
	srv, accountSvc := testServer(t)
	require.NoError(t, accountSvc.Register("alice", "pw-alice"))
	require.NoError(t, accountSvc.Register("bob", "pw-bob"))

	// UDP sockets the fills arrive on
	aliceUDP, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer aliceUDP.Close()

	alice := dial(t, srv)
	bob := dial(t, srv)
	require.Equal(t, types.CodeOK,
		alice.login("alice", "pw-alice", aliceUDP.LocalAddr().(*net.UDPAddr).Port).Response)
	require.Equal(t, types.CodeOK, bob.login("bob", "pw-bob", 41999).Response)

	var bidResp server.OrderResponse
	alice.request("insertLimitOrder", map[string]interface{}{
		"type": "bid", "size": 1000, "price": 58_000_000,
	}, &bidResp)
	assert.Equal(t, int64(1), bidResp.OrderID)

	var askResp server.OrderResponse
	bob.request("insertLimitOrder", map[string]interface{}{
		"type": "ask", "size": 1000, "price": 58_000_000,
	}, &askResp)
	assert.Equal(t, int64(2), askResp.OrderID)

	// Alice's side of the trade arrives over UDP
	require.NoError(t, aliceUDP.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 64*1024)
	n, _, err := aliceUDP.ReadFromUDP(buf)
	require.NoError(t, err)

	var fill notify.FillFrame
	require.NoError(t, json.Unmarshal(buf[:n], &fill))
	assert.Equal(t, "closedTrades", fill.Notification)
	require.Len(t, fill.Trades, 1)
	assert.Equal(t, uint64(1), fill.Trades[0].OrderID)
	assert.Equal(t, "bob", fill.Trades[0].Counterparty)
	assert.Equal(t, int64(58_000_000), fill.Trades[0].Price)
}

func TestCancelOrder(t *testing.T) {
	srv, accountSvc := testServer(t)
	require.NoError(t, accountSvc.Register("alice", "pw"))

	c := dial(t, srv)
	require.Equal(t, types.CodeOK, c.login("alice", "pw", 41000).Response)

	var order server.OrderResponse
	c.request("insertLimitOrder", map[string]interface{}{
		"type": "bid", "size": 100, "price": 58_000_000,
	}, &order)
	require.Equal(t, int64(1), order.OrderID)

	var cancel server.CodeResponse
	c.request("cancelOrder", map[string]interface{}{"orderId": order.OrderID}, &cancel)
	assert.Equal(t, types.CodeOK, cancel.Response)

	c.request("cancelOrder", map[string]interface{}{"orderId": order.OrderID}, &cancel)
	assert.Equal(t, types.CodeNotAuthorized, cancel.Response)
}

func TestPriceHistoryOverWire(t *testing.T) {
	srv, accountSvc := testServer(t)
	require.NoError(t, accountSvc.Register("alice", "pw"))
	require.NoError(t, accountSvc.Register("bob", "pw"))

	alice := dial(t, srv)
	bob := dial(t, srv)
	require.Equal(t, types.CodeOK, alice.login("alice", "pw", 41000).Response)
	require.Equal(t, types.CodeOK, bob.login("bob", "pw", 41001).Response)

	var order server.OrderResponse
	alice.request("insertLimitOrder", map[string]interface{}{
		"type": "bid", "size": 100, "price": 60_000_000,
	}, &order)
	bob.request("insertLimitOrder", map[string]interface{}{
		"type": "ask", "size": 100, "price": 60_000_000,
	}, &order)

	month := time.Now().UTC().Format("012006")
	var summary server.PriceHistoryResponse
	alice.request("getPriceHistory", map[string]interface{}{"month": month}, &summary)

	assert.Equal(t, month, summary.Month)
	assert.Equal(t, 2, summary.TotalTrades)

	var bad server.CodeResponse
	alice.request("getPriceHistory", map[string]interface{}{"month": "132024"}, &bad)
	assert.Equal(t, types.CodeMalformed, bad.Response)
}

func TestRegisterPriceAlertOverWire(t *testing.T) {
	srv, accountSvc := testServer(t)
	require.NoError(t, accountSvc.Register("alice", "pw"))

	c := dial(t, srv)
	require.Equal(t, types.CodeOK, c.login("alice", "pw", 41000).Response)

	var low server.PriceAlertResponse
	c.request("registerPriceAlert", map[string]interface{}{
		"thresholdPrice": types.DefaultMarketPrice - 1,
	}, &low)
	assert.Equal(t, types.CodeNotAuthorized, low.Response)

	var ok server.PriceAlertResponse
	c.request("registerPriceAlert", map[string]interface{}{
		"thresholdPrice": types.DefaultMarketPrice + 1_000_000,
	}, &ok)
	require.Equal(t, types.CodeOK, ok.Response)
	require.NotNil(t, ok.MulticastInfo)
	assert.Equal(t, "239.255.1.1", ok.MulticastInfo.MulticastAddress)
	assert.Equal(t, 44400, ok.MulticastInfo.MulticastPort)
	assert.Contains(t, ok.MulticastInfo.ActiveUsers, "alice")
}

func TestUpdateCredentials(t *testing.T) {
	srv, accountSvc := testServer(t)
	require.NoError(t, accountSvc.Register("alice", "oldpw"))

	logged := dial(t, srv)
	require.Equal(t, types.CodeOK, logged.login("alice", "oldpw", 41000).Response)

	// Refused while the user is logged in
	other := dial(t, srv)
	var resp server.CodeResponse
	other.request("updateCredentials", map[string]interface{}{
		"username": "alice", "old_password": "oldpw", "new_password": "newpw",
	}, &resp)
	assert.Equal(t, types.CodeUserLoggedIn, resp.Response)

	logged.request("logout", map[string]interface{}{}, &resp)
	require.Equal(t, types.CodeOK, resp.Response)

	other.request("updateCredentials", map[string]interface{}{
		"username": "alice", "old_password": "oldpw", "new_password": "newpw",
	}, &resp)
	assert.Equal(t, types.CodeOK, resp.Response)

	assert.Equal(t, types.CodeOK, other.login("alice", "newpw", 41000).Response)
}

func TestMalformedRequests(t *testing.T) {
	srv, _ := testServer(t)
	c := dial(t, srv)

	_, err := c.conn.Write([]byte("this is not json\n"))
	require.NoError(t, err)
	require.True(t, c.scanner.Scan())

	var resp server.CodeResponse
	require.NoError(t, json.Unmarshal(c.scanner.Bytes(), &resp))
	assert.Equal(t, types.CodeMalformed, resp.Response)

	// Unknown operation on a live connection
	var unknown server.CodeResponse
	c.request("teleportFunds", map[string]interface{}{}, &unknown)
	assert.Equal(t, types.CodeMalformed, unknown.Response)
}
