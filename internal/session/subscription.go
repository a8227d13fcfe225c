package session

import "sync"

// Subscription is one live push channel of a session. C yields the current
// snapshot first and then every later version. The session closes C on
// teardown or when the subscriber falls behind; Close deregisters it from the
// caller side.
type Subscription struct {
	C <-chan Snapshot

	id      uint64
	ch      chan Snapshot
	session *Session
	err     error // written by the session before ch is closed
	once    sync.Once
}

// Close deregisters the subscription and returns once the session has
// dropped it. It is safe to call more than once and after the session has
// gone away.
func (sub *Subscription) Close() {
	sub.once.Do(func() {
		done := make(chan struct{})
		select {
		case sub.session.inbox <- leaveMsg{id: sub.id, done: done}:
		case <-sub.session.done:
			return
		}
		select {
		case <-done:
		case <-sub.session.done:
		}
	})
}

// Err reports why the session closed C: ErrSlowSubscriber, ErrClosed, or nil
// after Close. Only valid once C has been observed closed.
func (sub *Subscription) Err() error { return sub.err }
