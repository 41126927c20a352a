package stream

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/birun/console/pkg/eventbus"
	"github.com/birun/console/pkg/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

const DefaultConnectTimeout = 10 * time.Second

var ErrMissingEndpoint = errors.New("stream endpoint resolver is required")

type Config struct {
	// Endpoint resolves a session path to a ws:// or wss:// URL.
	Endpoint       func(path string) string
	Header         http.Header
	Dialer         Dialer
	ConnectTimeout time.Duration
	Publisher      eventbus.EventPublisher
	Observer       Observer
	Tracer         trace.Tracer
	Logger         *slog.Logger
}

// Manager owns the sessions of one console, keyed by SessionKey.
type Manager struct {
	endpoint       func(path string) string
	header         http.Header
	dialer         Dialer
	connectTimeout time.Duration
	publisher      eventbus.EventPublisher
	observer       Observer
	tracer         trace.Tracer
	logger         *slog.Logger

	mu       sync.Mutex
	sessions map[SessionKey]*Session
}

func NewManager(cfg Config) (*Manager, error) {
	if cfg.Endpoint == nil {
		return nil, ErrMissingEndpoint
	}

	m := &Manager{
		endpoint:       cfg.Endpoint,
		header:         cfg.Header,
		dialer:         cfg.Dialer,
		connectTimeout: cfg.ConnectTimeout,
		publisher:      cfg.Publisher,
		observer:       cfg.Observer,
		tracer:         cfg.Tracer,
		logger:         log.OrDefault(cfg.Logger, "stream"),
		sessions:       make(map[SessionKey]*Session),
	}

	if m.connectTimeout <= 0 {
		m.connectTimeout = DefaultConnectTimeout
	}

	if m.dialer == nil {
		m.dialer = WebsocketDialer{HandshakeTimeout: m.connectTimeout}
	}

	if m.publisher == nil {
		m.publisher = eventbus.Discard
	}

	return m, nil
}

// Open starts a session for key and returns it without waiting for the connection. When a session
// under key is already connecting or streaming it is returned unchanged. Ended sessions are replaced
// by a fresh one with an empty buffer. Cancelling ctx closes the session.
func (m *Manager) Open(ctx context.Context, key SessionKey) (*Session, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()

	if existing, ok := m.sessions[key]; ok && existing.State().Active() {
		m.mu.Unlock()
		return existing, nil
	}

	id := uuid.NewString()
	sessionCtx, cancel := context.WithCancel(ctx)

	s := &Session{
		Key:     key,
		ID:      id,
		manager: m,
		logger:  m.logger.With("session", key.String(), "connection_id", id),
		state:   StateConnecting,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	if key.Kind == KindTerminal {
		s.history = NewHistory()
	}

	m.sessions[key] = s
	m.mu.Unlock()

	s.mu.Lock()
	s.unwatch = context.AfterFunc(ctx, func() { s.Stop() })
	s.mu.Unlock()

	s.logger.Debug("Session connecting", "state", StateConnecting)
	s.notify(Update{State: StateConnecting})

	go s.run(sessionCtx, m.endpoint(key.Path()))

	return s, nil
}

// Session returns the current session under key, including ended ones.
func (m *Manager) Session(key SessionKey) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[key]

	return s, ok
}

// Stop closes the session under key. The session and its buffer are kept.
func (m *Manager) Stop(key SessionKey) bool {
	s, ok := m.Session(key)
	if !ok {
		return false
	}

	return s.Stop()
}

// Remove closes the session under key and forgets it.
func (m *Manager) Remove(key SessionKey) {
	m.mu.Lock()
	s, ok := m.sessions[key]
	delete(m.sessions, key)
	m.mu.Unlock()

	if ok {
		s.Stop()
	}
}

func (m *Manager) StopAll() {
	for _, s := range m.Sessions() {
		s.Stop()
	}
}

func (m *Manager) Sessions() []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}

	return sessions
}

func (m *Manager) publish(event eventbus.Event, key SessionKey) {
	if err := m.publisher.Publish(context.Background(), key.String(), event); err != nil {
		m.logger.Debug("Failed to publish stream event", "event_type", event.GetType(), "error", err)
	}
}
