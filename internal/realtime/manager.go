// MediaNest - Media Dashboard Realtime Sync and Admission Control
// Copyright 2026 MediaNest contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medianest/medianest

package realtime

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/medianest/medianest/internal/config"
	"github.com/medianest/medianest/internal/events"
	"github.com/medianest/medianest/internal/logging"
	"github.com/medianest/medianest/internal/metrics"
)

const maxMessageSize = 512 * 1024 // 512 KB

var (
	errConnDropped  = errors.New("connection dropped")
	errProbeTimeout = errors.New("quality probe timed out")
)

// StateObserver receives every state snapshot published after its
// registration. Registering the same function twice yields two
// independent deliveries.
type StateObserver func(ConnState)

// EventHandler receives the raw payload of a named wire event.
type EventHandler func(payload json.RawMessage)

// Manager owns the one logical connection to the status backend.
//
// Lifecycle: disconnected -> connecting -> connected. A transport drop
// moves the state back to connecting and the manager retries forever with
// exponential backoff (1s doubling to 32s); there is no terminal failure
// state. Failures are reported through state snapshots and never panic.
//
// Construct with NewManager; a zero Manager is not usable.
type Manager struct {
	cfg *config.BackendConfig
	url string
	bus *events.Bus

	// emitPace bounds outbound messages so reconnect churn cannot flood
	// the backend.
	emitPace *rate.Limiter

	mu      sync.Mutex
	session *session
	state   ConnState

	obsMu     sync.Mutex
	observers map[uint64]StateObserver

	subMu sync.Mutex
	subs  map[string]map[uint64]EventHandler

	seq atomic.Uint64

	// probeMu serializes quality probes; state delivery to observers
	// uses separate locking and is never blocked by an in-flight probe.
	probeMu sync.Mutex
	pongCh  chan struct{}
}

// session is one dial-to-teardown connection attempt cycle. A new session
// is created per Connect; Disconnect stops exactly its own session.
type session struct {
	stop chan struct{}
	done chan struct{}

	connMu  sync.RWMutex
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (s *session) setConn(conn *websocket.Conn) {
	s.connMu.Lock()
	s.conn = conn
	s.connMu.Unlock()
}

func (s *session) getConn() *websocket.Conn {
	s.connMu.RLock()
	defer s.connMu.RUnlock()
	return s.conn
}

// closeConn sends a close frame best-effort and tears the socket down.
func (s *session) closeConn() {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.conn == nil {
		return
	}
	_ = s.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	_ = s.conn.Close()
	s.conn = nil
}

// NewManager creates a manager for the configured backend. The URL is
// normalized (http -> ws) at construction; an invalid URL fails here
// rather than at the first dial.
func NewManager(cfg *config.BackendConfig, bus *events.Bus) (*Manager, error) {
	wsURL, err := config.NormalizeSocketURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	return &Manager{
		cfg:       cfg,
		url:       wsURL,
		bus:       bus,
		emitPace:  rate.NewLimiter(rate.Limit(cfg.EmitPerSecond), cfg.EmitBurst),
		state:     initialState(),
		observers: make(map[uint64]StateObserver),
		subs:      make(map[string]map[uint64]EventHandler),
		pongCh:    make(chan struct{}, 1),
	}, nil
}

// Connect starts the connection loop. Idempotent: while a session exists
// (connecting or connected) it returns without creating a duplicate.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.session != nil {
		m.mu.Unlock()
		return nil
	}
	sess := &session{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	m.session = sess
	m.mu.Unlock()

	m.setState(func(s ConnState) ConnState { return s.withConnecting() })
	go m.run(ctx, sess)
	return nil
}

// Disconnect tears down the current session and waits for its loop to
// exit. Safe to call when already disconnected.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	sess := m.session
	m.session = nil
	m.mu.Unlock()

	if sess == nil {
		return
	}
	close(sess.stop)
	sess.closeConn()
	<-sess.done
}

// Reconnect forces disconnect-then-reconnect after a short fixed delay,
// avoiding a hammering loop against a backend that just dropped us.
func (m *Manager) Reconnect(ctx context.Context) {
	logging.Info().Dur("delay", m.cfg.ReconnectDelay).Msg("manual reconnect requested")
	m.Disconnect()
	time.AfterFunc(m.cfg.ReconnectDelay, func() {
		_ = m.Connect(ctx)
	})
}

// Serve implements suture.Service: connect, hold until the context ends,
// then tear down.
func (m *Manager) Serve(ctx context.Context) error {
	if err := m.Connect(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	m.Disconnect()
	return ctx.Err()
}

// String implements fmt.Stringer for supervisor logging.
func (m *Manager) String() string {
	return "realtime-manager"
}

// run is the connection loop for one session: dial, read until drop,
// back off, retry. Retries are unbounded; the attempt count is surfaced
// on the state snapshot for UI display.
func (m *Manager) run(ctx context.Context, sess *session) {
	defer close(sess.done)

	delay := m.cfg.ReconnectInitialDelay
	first := true

	for {
		if m.stopped(ctx, sess) {
			m.detach(sess)
			return
		}

		if !first {
			if !m.waitRetry(ctx, sess, delay) {
				m.detach(sess)
				return
			}
			delay *= 2
			if delay > m.cfg.ReconnectMaxDelay {
				delay = m.cfg.ReconnectMaxDelay
			}
			metrics.ConnectionReconnects.Inc()
			m.setState(func(s ConnState) ConnState { return s.withRetry() })
		}
		first = false

		conn, err := m.dial(ctx)
		if err != nil {
			logging.Warn().Err(err).Str("url", m.url).Msg("backend dial failed")
			m.setState(func(s ConnState) ConnState { return s.withConnecting().withError(err) })
			continue
		}

		sess.setConn(conn)
		m.setState(func(s ConnState) ConnState { return s.withConnected() })
		logging.Info().Str("url", m.url).Msg("backend connected")
		delay = m.cfg.ReconnectInitialDelay

		m.login()

		pingStop := make(chan struct{})
		go m.pingLoop(sess, pingStop)
		m.readLoop(sess, conn)
		close(pingStop)
		sess.closeConn()

		if m.stopped(ctx, sess) {
			m.detach(sess)
			return
		}

		logging.Warn().Msg("backend connection dropped, retrying")
		m.setState(func(s ConnState) ConnState {
			return s.withConnecting().withError(errConnDropped)
		})
	}
}

func (m *Manager) stopped(ctx context.Context, sess *session) bool {
	select {
	case <-ctx.Done():
		return true
	case <-sess.stop:
		return true
	default:
		return false
	}
}

// detach publishes the terminal disconnected snapshot for this session.
func (m *Manager) detach(sess *session) {
	m.mu.Lock()
	if m.session == sess {
		m.session = nil
	}
	m.mu.Unlock()
	m.setState(func(s ConnState) ConnState { return s.withDisconnected() })
	logging.Info().Msg("backend connection closed")
}

// waitRetry sleeps the backoff delay, cancellable by stop or context.
// Returns false when the session should end instead of retrying.
func (m *Manager) waitRetry(ctx context.Context, sess *session, delay time.Duration) bool {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	case <-sess.stop:
		return false
	}
}

func (m *Manager) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout:  m.cfg.HandshakeTimeout,
		EnableCompression: true,
	}

	conn, resp, err := dialer.DialContext(ctx, m.url, nil)
	if resp != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// login emits the backend login handshake when a password is configured.
func (m *Manager) login() {
	if m.cfg.Password == "" {
		return
	}
	m.Emit(events.EventLogin, map[string]string{
		"username": m.cfg.Username,
		"password": m.cfg.Password,
	})
}

// readLoop drains frames until the connection errors or closes.
func (m *Manager) readLoop(sess *session, conn *websocket.Conn) {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(m.cfg.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(m.cfg.PongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.Warn().Err(err).Msg("backend read error")
			}
			return
		}
		// A data frame proves the connection is alive even if the
		// backend never sends pong control frames.
		_ = conn.SetReadDeadline(time.Now().Add(m.cfg.PongWait))
		m.handleFrame(data)
	}
}

// pingLoop keeps the connection alive with control-frame pings.
func (m *Manager) pingLoop(sess *session, stop chan struct{}) {
	ticker := time.NewTicker(m.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-sess.stop:
			return
		case <-ticker.C:
			conn := sess.getConn()
			if conn == nil {
				return
			}
			deadline := time.Now().Add(m.cfg.WriteWait)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				logging.Warn().Err(err).Msg("keepalive ping failed")
				sess.closeConn()
				return
			}
		}
	}
}

// handleFrame decodes one inbound frame and routes it: raw event
// subscribers get the payload verbatim, cache-relevant kinds go onto the
// bus, pongs complete a pending probe. Malformed frames are counted and
// dropped; they never destabilize the connection.
func (m *Manager) handleFrame(data []byte) {
	env, err := events.DecodeEnvelope(data)
	if err != nil {
		metrics.MessagesDropped.WithLabelValues("malformed").Inc()
		logging.Debug().Err(err).Msg("dropping malformed frame")
		return
	}
	metrics.MessagesReceived.WithLabelValues(env.Event).Inc()

	m.dispatchRaw(env)

	msg, err := events.Decode(env)
	if err != nil {
		if errors.Is(err, events.ErrUnknownEvent) {
			metrics.MessagesDropped.WithLabelValues("unknown_event").Inc()
		} else {
			metrics.MessagesDropped.WithLabelValues("malformed").Inc()
		}
		logging.Debug().Err(err).Str("event", env.Event).Msg("dropping frame")
		return
	}

	switch msg.Kind {
	case events.KindPong:
		m.signalPong()
	case events.KindSingleStatus, events.KindBulkList:
		if m.bus != nil {
			if err := m.bus.Publish(msg); err != nil {
				logging.Warn().Err(err).Msg("failed to publish push message")
			}
		}
	case events.KindSubscribeAck:
		if msg.Ack != nil && !msg.Ack.OK {
			logging.Warn().Str("resource", msg.Ack.Resource).Str("id", msg.Ack.ID).
				Str("error", msg.Ack.Error).Msg("subscription refused by backend")
		}
	}
}

// Emit sends a fire-and-forget message. While disconnected it is a no-op;
// callers needing delivery guarantees must check IsConnected first.
func (m *Manager) Emit(event string, payload any) {
	sess := m.currentSession()
	var conn *websocket.Conn
	if sess != nil {
		conn = sess.getConn()
	}
	if conn == nil {
		logging.Debug().Str("event", event).Msg("emit skipped while disconnected")
		return
	}

	if !m.emitPace.Allow() {
		logging.Warn().Str("event", event).Msg("emit dropped by outbound pacing")
		return
	}

	data, err := events.EncodeEnvelope(event, payload)
	if err != nil {
		logging.Error().Err(err).Str("event", event).Msg("failed to encode emit")
		return
	}

	sess.writeMu.Lock()
	defer sess.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(m.cfg.WriteWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		logging.Warn().Err(err).Str("event", event).Msg("emit failed")
	}
}

// OnStateChange registers an observer for every subsequent snapshot and
// returns its teardown. Each registration is independent, including
// duplicate registrations of the same function.
func (m *Manager) OnStateChange(observer StateObserver) func() {
	id := m.seq.Add(1)

	m.obsMu.Lock()
	m.observers[id] = observer
	m.obsMu.Unlock()

	return func() {
		m.obsMu.Lock()
		delete(m.observers, id)
		m.obsMu.Unlock()
	}
}

// On subscribes a handler to a named wire event and returns its teardown.
// Multiple owners may subscribe the same event concurrently; each holds
// its own registration and tears down only its own.
func (m *Manager) On(event string, handler EventHandler) func() {
	id := m.seq.Add(1)

	m.subMu.Lock()
	if m.subs[event] == nil {
		m.subs[event] = make(map[uint64]EventHandler)
	}
	m.subs[event][id] = handler
	m.subMu.Unlock()

	return func() {
		m.subMu.Lock()
		if handlers, ok := m.subs[event]; ok {
			delete(handlers, id)
			if len(handlers) == 0 {
				delete(m.subs, event)
			}
		}
		m.subMu.Unlock()
	}
}

// CheckConnectionQuality performs one envelope-level ping round trip and
// returns the resulting quality bucket. Probes are serialized among
// themselves but never block state delivery to observers. A timed-out
// probe reports poor quality rather than an error.
func (m *Manager) CheckConnectionQuality(ctx context.Context) (Quality, error) {
	if !m.IsConnected() {
		return QualityUnknown, nil
	}

	m.probeMu.Lock()
	defer m.probeMu.Unlock()

	// Drain a stale pong from an abandoned probe.
	select {
	case <-m.pongCh:
	default:
	}

	start := time.Now()
	m.Emit(events.EventPing, nil)

	timer := time.NewTimer(m.cfg.ProbeTimeout)
	defer timer.Stop()

	select {
	case <-m.pongCh:
		rtt := time.Since(start)
		metrics.ConnectionProbeLatency.Observe(rtt.Seconds())
		snap := m.setState(func(s ConnState) ConnState { return s.withProbe(rtt) })
		return snap.Quality, nil
	case <-timer.C:
		m.setState(func(s ConnState) ConnState {
			s.Quality = QualityPoor
			return s.withError(errProbeTimeout)
		})
		return QualityPoor, nil
	case <-ctx.Done():
		return QualityUnknown, ctx.Err()
	}
}

func (m *Manager) signalPong() {
	select {
	case m.pongCh <- struct{}{}:
	default:
	}
}

// State returns the current snapshot.
func (m *Manager) State() ConnState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IsConnected reports whether the connection is established.
func (m *Manager) IsConnected() bool {
	return m.State().Connected
}

// ConnectionQuality returns the last probed quality bucket.
func (m *Manager) ConnectionQuality() Quality {
	return m.State().Quality
}

// Latency returns the last probe round trip; ok is false before the
// first successful probe.
func (m *Manager) Latency() (time.Duration, bool) {
	s := m.State()
	if s.LatencyMs < 0 {
		return 0, false
	}
	return time.Duration(s.LatencyMs) * time.Millisecond, true
}

func (m *Manager) currentSession() *session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// setState applies a transition under the lock, then broadcasts the new
// snapshot to all observers outside it.
func (m *Manager) setState(transition func(ConnState) ConnState) ConnState {
	m.mu.Lock()
	m.state = transition(m.state)
	snap := m.state
	m.mu.Unlock()

	m.broadcast(snap)
	m.updateStateMetric(snap)
	return snap
}

func (m *Manager) broadcast(snap ConnState) {
	m.obsMu.Lock()
	observers := make([]StateObserver, 0, len(m.observers))
	for _, obs := range m.observers {
		observers = append(observers, obs)
	}
	m.obsMu.Unlock()

	for _, obs := range observers {
		obs(snap)
	}
}

func (m *Manager) dispatchRaw(env events.Envelope) {
	m.subMu.Lock()
	handlers := make([]EventHandler, 0, len(m.subs[env.Event]))
	for _, h := range m.subs[env.Event] {
		handlers = append(handlers, h)
	}
	m.subMu.Unlock()

	for _, h := range handlers {
		h(env.Payload)
	}
}

func (m *Manager) updateStateMetric(snap ConnState) {
	switch {
	case snap.Connected:
		metrics.ConnectionState.Set(2)
	case snap.Connecting:
		metrics.ConnectionState.Set(1)
	default:
		metrics.ConnectionState.Set(0)
	}
}
