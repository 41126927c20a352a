package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/birun/console/pkg/events"
	"github.com/birun/console/pkg/otelhelper"
	"go.opentelemetry.io/otel/attribute"
)

type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateStreaming  State = "streaming"
	StateFinished   State = "finished"
	StateError      State = "error"
	StateClosed     State = "closed"
)

// Active reports whether the session holds, or is acquiring, a connection.
func (s State) Active() bool {
	return s == StateConnecting || s == StateStreaming
}

var (
	ErrNotStreaming = errors.New("session is not streaming")
	ErrNotTerminal  = errors.New("session is not a terminal")
)

// Update describes one change to a session, delivered to the manager's Observer.
type Update struct {
	State State
	Line  string
	// Appended is set when Line was added to the buffer.
	Appended bool
}

type Observer func(s *Session, u Update)

// Session is one stream and its retained output. Output stays readable after the session ends.
type Session struct {
	Key SessionKey
	ID  string

	manager *Manager
	logger  *slog.Logger

	mu          sync.Mutex
	state       State
	lines       []string
	status      string
	executionID int64
	conn        Conn
	cancel      context.CancelFunc
	unwatch     func() bool
	done        chan struct{}
	doneOnce    sync.Once
	history     *History
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Lines returns a copy of the buffered output in delivery order.
func (s *Session) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.lines...)
}

// Status is the last status reported by the peer: the connection message, or the final status on finish.
func (s *Session) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.status
}

// ExecutionID is the backend execution record of a finished script session.
func (s *Session) ExecutionID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.executionID
}

// Done is closed when the session stops being active.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// markDone must be called with s.mu held.
func (s *Session) markDone() {
	s.doneOnce.Do(func() { close(s.done) })
}

func (s *Session) notify(updates ...Update) {
	if s.manager.observer == nil {
		return
	}

	for _, u := range updates {
		s.manager.observer(s, u)
	}
}

func (s *Session) run(ctx context.Context, url string) {
	timeout := s.manager.connectTimeout

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	dialCtx, span := otelhelper.StartSpan(dialCtx, s.manager.tracer, "stream.dial",
		attribute.String(otelhelper.SessionKey, s.Key.String()),
		attribute.Int64(otelhelper.ScriptIDKey, s.Key.ScriptID),
		attribute.Int64(otelhelper.ServerIDKey, s.Key.ServerID),
	)

	conn, err := s.manager.dialer.Dial(dialCtx, url, s.manager.header)
	timedOut := errors.Is(dialCtx.Err(), context.DeadlineExceeded)

	cancel()

	if err != nil {
		otelhelper.SetError(span, err)
		span.End()

		if timedOut {
			s.fail(fmt.Sprintf("Connection timed out after %s", timeout.Round(time.Millisecond)))
		} else {
			s.fail("Connection failed: " + err.Error())
		}

		return
	}

	span.End()

	s.mu.Lock()
	if s.state != StateConnecting {
		s.mu.Unlock()
		_ = conn.Close()

		return
	}

	s.conn = conn
	s.state = StateStreaming
	s.mu.Unlock()

	s.logger.Debug("Session streaming", "state", StateStreaming)
	s.notify(Update{State: StateStreaming})

	s.read(conn)
}

func (s *Session) read(conn Conn) {
	for {
		f, err := conn.ReadFrame()
		if err != nil {
			s.fail("Connection lost: " + err.Error())
			return
		}

		if !s.handle(f) {
			return
		}
	}
}

// handle applies one inbound frame and reports whether the session is still active.
func (s *Session) handle(f Frame) bool {
	s.mu.Lock()

	if !s.state.Active() {
		s.mu.Unlock()
		return false
	}

	var updates []Update

	switch f.Type {
	case FrameConnected, FrameSSHConnected:
		if f.Message != "" {
			s.status = f.Message
		}
	case FrameOutput, FrameErrorOutput:
		s.lines = append(s.lines, f.Data)
		updates = append(updates, Update{State: s.state, Line: f.Data, Appended: true})
	case FrameFinished:
		s.status = f.Status
		s.executionID = f.ExecutionID
		conn := s.end(StateFinished)
		s.mu.Unlock()

		_ = closeConn(conn)

		s.logger.Debug("Session finished", "state", StateFinished, "status", f.Status)
		s.notify(Update{State: StateFinished})
		s.manager.publish(events.StreamFinished{
			BaseEvent:   events.NewBaseEvent(events.StreamFinishedEvent, 0),
			Session:     s.Key.String(),
			Status:      f.Status,
			ExecutionID: f.ExecutionID,
			ScriptID:    s.Key.ScriptID,
			ServerID:    s.Key.ServerID,
		}, s.Key)

		return false
	case FrameError, FrameSSHFailed:
		s.mu.Unlock()
		s.fail(diagnostic(f))

		return false
	default:
		s.logger.Debug("Ignoring frame", "type", f.Type)
	}

	s.mu.Unlock()

	s.notify(updates...)

	return true
}

func diagnostic(f Frame) string {
	msg := f.Message
	if msg == "" {
		msg = f.Data
	}

	if f.Type == FrameSSHFailed {
		if msg == "" {
			return "[ssh failed]"
		}

		return "[ssh failed] " + msg
	}

	if msg == "" {
		return "[error]"
	}

	return "[error] " + msg
}

// fail moves an active session to error with a diagnostic line. It does nothing once the session has ended.
func (s *Session) fail(line string) {
	s.mu.Lock()

	if !s.state.Active() {
		s.mu.Unlock()
		return
	}

	s.lines = append(s.lines, line)
	conn := s.end(StateError)
	s.mu.Unlock()

	_ = closeConn(conn)

	s.logger.Debug("Session failed", "state", StateError, "reason", line)
	s.notify(Update{State: StateError, Line: line, Appended: true})
	s.manager.publish(events.StreamFailed{
		BaseEvent: events.NewBaseEvent(events.StreamFailedEvent, 0),
		Session:   s.Key.String(),
		Message:   line,
	}, s.Key)
}

// end moves to a final state and detaches the connection. Must be called with s.mu held.
func (s *Session) end(next State) Conn {
	s.state = next

	conn := s.conn
	s.conn = nil

	s.cancel()

	if s.unwatch != nil {
		s.unwatch()
	}

	s.markDone()

	return conn
}

func closeConn(conn Conn) error {
	if conn == nil {
		return nil
	}

	return conn.Close()
}

// Stop closes the session from any state, keeping its buffer. It returns false when already closed.
func (s *Session) Stop() bool {
	s.mu.Lock()

	if s.state == StateClosed {
		s.mu.Unlock()
		return false
	}

	conn := s.end(StateClosed)
	s.mu.Unlock()

	_ = closeConn(conn)

	s.logger.Debug("Session closed", "state", StateClosed)
	s.notify(Update{State: StateClosed})

	return true
}

func (s *Session) send(f Frame) error {
	if s.Key.Kind != KindTerminal {
		return ErrNotTerminal
	}

	s.mu.Lock()
	conn := s.conn
	state := s.state
	s.mu.Unlock()

	if state != StateStreaming || conn == nil {
		return ErrNotStreaming
	}

	return conn.WriteFrame(f)
}

// SendInput sends a line of terminal input and records it in the history when non-empty.
func (s *Session) SendInput(line string) error {
	if s.Key.Kind == KindTerminal {
		s.mu.Lock()
		s.history.Add(line)
		s.mu.Unlock()
	}

	return s.send(InputFrame(line))
}

// CtrlC interrupts the remote command. It does not touch any pending input.
func (s *Session) CtrlC() error {
	return s.send(CtrlCFrame())
}

func (s *Session) Resize(cols, rows int) error {
	return s.send(ResizeFrame(cols, rows))
}

// RunScript runs a one-off script in the terminal without affecting the interactive shell.
func (s *Session) RunScript(scriptType, content string) error {
	return s.send(RunScriptFrame(scriptType, content))
}

// PreviousInput steps the history toward older entries.
func (s *Session) PreviousInput() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.history == nil {
		return "", false
	}

	return s.history.Previous()
}

// NextInput steps the history toward newer entries.
func (s *Session) NextInput() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.history == nil {
		return "", false
	}

	return s.history.Next()
}

func (s *Session) HistoryEntries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.history == nil {
		return nil
	}

	return s.history.Entries()
}
