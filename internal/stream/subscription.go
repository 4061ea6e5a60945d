// Package stream subscribes to the message store's push channel and
// exposes it as a cancellable event sequence.
package stream

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"
)

// DefaultRetry is the reconnection delay until the server advertises one
const DefaultRetry = 3 * time.Second

const eventBuffer = 64

// Event is one pushed event. Type is empty for unnamed events.
type Event struct {
	Type string
	ID   string
	Data []byte
}

type State int32

const (
	Connecting State = iota
	Open
	Closed
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// fatalError stops the subscription instead of reconnecting
type fatalError struct {
	err error
}

func (e *fatalError) Error() string { return e.err.Error() }
func (e *fatalError) Unwrap() error { return e.err }

func fatal(err error) error {
	return &fatalError{err: err}
}

// connectFunc runs one connection until it ends. It must call
// s.setState(Open) once the channel is established.
type connectFunc func(ctx context.Context, s *Subscription) error

// Subscription is a handle on a live push channel
type Subscription struct {
	events chan Event
	done   chan struct{}
	cancel context.CancelFunc
	log    *slog.Logger

	state atomic.Int32
	retry atomic.Int64
	err   error

	// only touched by the connection goroutine
	lastEventID string
}

func start(ctx context.Context, log *slog.Logger, connect connectFunc) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	s := &Subscription{
		events: make(chan Event, eventBuffer),
		done:   make(chan struct{}),
		cancel: cancel,
		log:    log,
	}
	s.retry.Store(int64(DefaultRetry))
	go s.loop(ctx, connect)
	return s
}

func (s *Subscription) loop(ctx context.Context, connect connectFunc) {
	defer close(s.done)
	defer close(s.events)
	defer s.setState(Closed)

	for {
		s.setState(Connecting)
		err := connect(ctx, s)
		if ctx.Err() != nil {
			return
		}

		var fe *fatalError
		if errors.As(err, &fe) {
			s.err = fe.err
			s.log.Error("Push channel failed", "error", fe.err)
			return
		}

		delay := time.Duration(s.retry.Load())
		if err != nil {
			s.log.Warn("Push channel dropped", "error", err, "retry", delay)
		} else {
			s.log.Debug("Push channel ended by server", "retry", delay)
		}

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}

func (s *Subscription) setState(state State) {
	if prev := State(s.state.Swap(int32(state))); prev != state {
		s.log.Debug("Push channel state", "from", prev, "to", state)
	}
}

func (s *Subscription) setRetry(d time.Duration) {
	s.retry.Store(int64(d))
}

func (s *Subscription) emit(ctx context.Context, ev Event) bool {
	select {
	case s.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// Events is closed once the subscription is closed.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

func (s *Subscription) State() State {
	return State(s.state.Load())
}

func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Err reports why the subscription closed on its own. It is nil after
// Close or context cancellation, and only meaningful once Done is closed.
func (s *Subscription) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

// Close stops the subscription and waits for the connection to be released.
func (s *Subscription) Close() error {
	s.cancel()
	<-s.done
	return nil
}
