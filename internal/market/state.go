package market

import (
	"sync"
	"sync/atomic"
)

// Alert is a fired price-threshold notification
type Alert struct {
	User      string
	Threshold int64
}

// State tracks the instrument's last-traded price and the armed
// price-threshold alerts. The last price starts at a configured default
// until the first execution (or log recovery) overwrites it.
type State struct {
	last atomic.Int64

	mu         sync.Mutex
	thresholds map[string][]int64
}

// NewState creates market state with the given starting price
func NewState(startingPrice int64) *State {
	s := &State{
		thresholds: make(map[string][]int64),
	}
	s.last.Store(startingPrice)
	return s
}

// Last returns the last-traded price
func (s *State) Last() int64 {
	return s.last.Load()
}

// SetLast records a new last-traded price
func (s *State) SetLast(price int64) {
	s.last.Store(price)
}

// Arm registers a one-shot threshold alert for the user. A user may hold
// several thresholds at once; duplicates fire independently.
func (s *State) Arm(user string, threshold int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.thresholds[user] = append(s.thresholds[user], threshold)
}

// Fire removes and returns every armed alert whose threshold is reached
// by an execution at price. Each alert fires at most once.
func (s *State) Fire(price int64) []Alert {
	s.mu.Lock()
	defer s.mu.Unlock()

	var fired []Alert
	for user, thresholds := range s.thresholds {
		remaining := thresholds[:0]
		for _, t := range thresholds {
			if price >= t {
				fired = append(fired, Alert{User: user, Threshold: t})
			} else {
				remaining = append(remaining, t)
			}
		}
		if len(remaining) == 0 {
			delete(s.thresholds, user)
		} else {
			s.thresholds[user] = remaining
		}
	}
	return fired
}

// DropUser discards every threshold armed by the user
func (s *State) DropUser(user string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.thresholds, user)
}

// ArmedCount returns the number of armed thresholds across all users
func (s *State) ArmedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, thresholds := range s.thresholds {
		n += len(thresholds)
	}
	return n
}
