// Package socket owns the single persistent connection to the chat server.
//
// A Session dials the server with the auth token attached, keeps reading
// until the transport drops, reconnects with a fixed delay up to a bounded
// number of attempts, and fans inbound events out to subscribed handlers.
// Connectivity is surfaced as observable status, never as a fatal error:
// consumers emitting into a disconnected session get ErrNotConnected back
// and are expected to treat it as "stays pending".
package socket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c-pro/geche"
)

var ErrNotConnected = errors.New("session is not connected")

const (
	defaultDialTimeout    = 10 * time.Second
	defaultReconnectDelay = time.Second
	defaultAttempts       = 10
	defaultAckTTL         = 30 * time.Second

	// ackEvent is the reserved inbound event routing emit acknowledgments.
	ackEvent = "ack"
)

// Conn is the transport the session speaks over. Satisfied by
// *websocket.Conn and by test doubles.
type Conn interface {
	ReadJSON(v any) error
	WriteJSON(v any) error
	Close() error
}

// Dialer opens a transport with the token attached as a credential.
type Dialer func(ctx context.Context, url, token string) (Conn, error)

// Handler receives the raw payload of one inbound event.
type Handler func(data json.RawMessage)

// AckFunc receives the server's acknowledgment payload for one emit.
type AckFunc func(data json.RawMessage)

// Status is the connectivity state exposed to dependents.
type Status struct {
	Connected bool
	Err       error
}

type Config struct {
	URL               string
	Token             string
	DialTimeout       time.Duration
	ReconnectDelay    time.Duration
	ReconnectAttempts int
	AckTTL            time.Duration
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.DialTimeout <= 0 {
		out.DialTimeout = defaultDialTimeout
	}
	if out.ReconnectDelay <= 0 {
		out.ReconnectDelay = defaultReconnectDelay
	}
	if out.ReconnectAttempts <= 0 {
		out.ReconnectAttempts = defaultAttempts
	}
	if out.AckTTL <= 0 {
		out.AckTTL = defaultAckTTL
	}
	return out
}

// envelope is the wire frame. Acks are correlated by AckID: an emit that
// wants a reply carries one, and the server answers with event "ack" and
// the same id.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
	AckID int64           `json:"ackId,omitempty"`
}

type Session struct {
	cfg    Config
	dial   Dialer
	logger *slog.Logger

	mu         sync.Mutex
	conn       Conn
	status     Status
	handlers   map[string]map[int]Handler
	statusSubs map[int]func(Status)
	nextSub    int

	// Pending acks live in a TTL cache so a reply that never comes does
	// not leak the callback forever.
	acks    geche.Geche[int64, AckFunc]
	nextAck atomic.Int64

	closeOnce sync.Once
	closed    chan struct{}
}

// NewSession creates a session. A nil dialer uses the gorilla websocket
// dialer; a nil logger uses slog.Default. The context bounds the lifetime
// of the internal ack cache.
func NewSession(ctx context.Context, cfg Config, dial Dialer, logger *slog.Logger) *Session {
	cfg = cfg.withDefaults()
	if dial == nil {
		dial = GorillaDialer(cfg.DialTimeout)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		cfg:        cfg,
		dial:       dial,
		logger:     logger,
		handlers:   make(map[string]map[int]Handler),
		statusSubs: make(map[int]func(Status)),
		acks:       geche.NewMapTTLCache[int64, AckFunc](ctx, cfg.AckTTL, cfg.AckTTL),
		closed:     make(chan struct{}),
	}
}

// Run dials and serves the connection until the context is cancelled or
// Close is called. Transient drops reconnect transparently; only after
// ReconnectAttempts consecutive failed dials does Run give up.
func (s *Session) Run(ctx context.Context) error {
	attempts := 0
	for {
		select {
		case <-s.closed:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		conn, err := s.dial(ctx, s.cfg.URL, s.cfg.Token)
		if err != nil {
			attempts++
			s.setStatus(Status{Connected: false, Err: err})
			if attempts >= s.cfg.ReconnectAttempts {
				return fmt.Errorf("giving up after %d connection attempts: %w", attempts, err)
			}
			if err := s.sleep(ctx); err != nil {
				return err
			}
			continue
		}
		attempts = 0

		s.mu.Lock()
		s.conn = conn
		s.mu.Unlock()
		s.setStatus(Status{Connected: true})
		s.logger.Info("session connected", "url", s.cfg.URL)

		readErr := s.serve(ctx, conn)

		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
		_ = conn.Close()

		if ctx.Err() != nil {
			return ctx.Err()
		}
		select {
		case <-s.closed:
			return nil
		default:
		}

		s.setStatus(Status{Connected: false, Err: readErr})
		s.logger.Warn("session disconnected", "error", readErr)

		if err := s.sleep(ctx); err != nil {
			return err
		}
	}
}

func (s *Session) sleep(ctx context.Context) error {
	select {
	case <-time.After(s.cfg.ReconnectDelay):
		return nil
	case <-s.closed:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// serve reads frames until the transport errors. A watcher closes the
// transport when the context or the session is closed, which unblocks
// the pending read.
func (s *Session) serve(ctx context.Context, conn Conn) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-s.closed:
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		var env envelope
		if err := conn.ReadJSON(&env); err != nil {
			return err
		}
		s.dispatch(env)
	}
}

func (s *Session) dispatch(env envelope) {
	if env.Event == ackEvent {
		ack, err := s.acks.Get(env.AckID)
		if err != nil {
			// Expired or unknown; the emit already gave up.
			return
		}
		_ = s.acks.Del(env.AckID)
		ack(env.Data)
		return
	}

	s.mu.Lock()
	hs := make([]Handler, 0, len(s.handlers[env.Event]))
	for _, h := range s.handlers[env.Event] {
		hs = append(hs, h)
	}
	s.mu.Unlock()

	// Handlers run on the read loop goroutine, so inbound mutations are
	// serialized; they are invoked outside the lock so they may emit.
	for _, h := range hs {
		h(env.Data)
	}
}

// On subscribes a handler for an inbound event and returns its release.
// Subscribing to the empty event name (an absent namespace entry) is a
// no-op that returns a no-op release.
func (s *Session) On(event string, h Handler) func() {
	if event == "" {
		return func() {}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSub++
	id := s.nextSub
	if s.handlers[event] == nil {
		s.handlers[event] = make(map[int]Handler)
	}
	s.handlers[event][id] = h

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.handlers[event], id)
	}
}

// OnStatus subscribes to connectivity changes and returns the release.
func (s *Session) OnStatus(f func(Status)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSub++
	id := s.nextSub
	s.statusSubs[id] = f

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.statusSubs, id)
	}
}

// Status returns the current connectivity state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Connected reports whether the transport is currently up.
func (s *Session) Connected() bool {
	return s.Status().Connected
}

func (s *Session) setStatus(st Status) {
	s.mu.Lock()
	s.status = st
	subs := make([]func(Status), 0, len(s.statusSubs))
	for _, f := range s.statusSubs {
		subs = append(subs, f)
	}
	s.mu.Unlock()

	for _, f := range subs {
		f(st)
	}
}

// Emit sends one event. Returns ErrNotConnected while the transport is
// down; the caller decides whether that matters.
func (s *Session) Emit(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", event, err)
	}
	return s.send(envelope{Event: event, Data: data})
}

// EmitWithAck sends one event and registers ack for the server's reply.
// The callback is dropped unanswered after the ack TTL.
func (s *Session) EmitWithAck(event string, payload any, ack AckFunc) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", event, err)
	}

	id := s.nextAck.Add(1)
	s.acks.Set(id, ack)
	if err := s.send(envelope{Event: event, Data: data, AckID: id}); err != nil {
		_ = s.acks.Del(id)
		return err
	}
	return nil
}

func (s *Session) send(env envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return ErrNotConnected
	}
	if err := s.conn.WriteJSON(env); err != nil {
		return fmt.Errorf("failed to write %s: %w", env.Event, err)
	}
	return nil
}

// Close tears the session down. Idempotent.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.mu.Lock()
		conn := s.conn
		s.conn = nil
		s.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		s.setStatus(Status{Connected: false})
	})
	return nil
}
