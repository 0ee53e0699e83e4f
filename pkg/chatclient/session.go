package chatclient

import (
	"fmt"
	"sync"
	"time"
)

// State of a logical connection as the client observes it.
type State int

const (
	StateConnecting State = iota
	StateJoined
	StateActive
	StateReconnecting
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateJoined:
		return "joined"
	case StateActive:
		return "active"
	case StateReconnecting:
		return "reconnecting"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

const maxReconnectAttempts = 5

// Backoff yields the reconnect delays: 1s, 2s, 4s, 8s, 16s, then gives up.
type Backoff struct {
	attempt int
}

// Next returns the delay before the upcoming attempt, or false once the
// attempt budget is spent.
func (b *Backoff) Next() (time.Duration, bool) {
	if b.attempt >= maxReconnectAttempts {
		return 0, false
	}
	delay := time.Duration(1<<b.attempt) * time.Second
	b.attempt++
	return delay, true
}

func (b *Backoff) Reset() {
	b.attempt = 0
}

// Session drives the connection lifecycle:
// Connecting -> Joined -> (Active <-> Reconnecting) -> Closed.
// The server buffers no gapless backlog across disconnects, so every re-entry
// to Active marks the session as needing a fresh room snapshot and history
// for any open conversations.
type Session struct {
	mu          sync.Mutex
	state       State
	backoff     Backoff
	needsResync bool
}

func NewSession() *Session {
	return &Session{state: StateConnecting}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// OnJoined records that the join was accepted.
func (s *Session) OnJoined() error {
	return s.transition(StateJoined, StateConnecting)
}

// OnActive records that the snapshot is applied and the stream is live.
func (s *Session) OnActive() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateJoined:
		s.state = StateActive
	case StateReconnecting:
		s.state = StateActive
		s.backoff.Reset()
		s.needsResync = true
	default:
		return fmt.Errorf("cannot activate from state %s", s.state)
	}
	return nil
}

// OnDisconnect moves an active session into reconnecting.
func (s *Session) OnDisconnect() error {
	return s.transition(StateReconnecting, StateActive)
}

// NextRetry returns the delay before the next reconnect attempt. Once the
// attempt budget is spent the session is abandoned and closed.
func (s *Session) NextRetry() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateReconnecting {
		return 0, false
	}
	delay, ok := s.backoff.Next()
	if !ok {
		s.state = StateClosed
		return 0, false
	}
	return delay, true
}

// ConsumeResync reports whether the caller must re-request the room/presence
// snapshot and open-conversation history, clearing the flag.
func (s *Session) ConsumeResync() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	needed := s.needsResync
	s.needsResync = false
	return needed
}

// Close ends the session from any state.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateClosed
}

func (s *Session) transition(to State, from State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != from {
		return fmt.Errorf("cannot move to %s from state %s", to, s.state)
	}
	s.state = to
	return nil
}
