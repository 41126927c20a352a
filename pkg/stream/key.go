// Package stream manages live full-duplex sessions for script output and interactive terminals.
package stream

import (
	"errors"
	"fmt"
	"strconv"
)

type Kind string

const (
	KindScript   Kind = "script"
	KindTerminal Kind = "terminal"
)

var ErrInvalidKey = errors.New("invalid session key")

// SessionKey identifies a session by resource. Scope separates independent views of the same
// resource, for example two rows of an execution table streaming the same script and server.
type SessionKey struct {
	Kind     Kind
	ScriptID int64
	ServerID int64
	Scope    string
}

func ScriptKey(scriptID, serverID int64) SessionKey {
	return SessionKey{Kind: KindScript, ScriptID: scriptID, ServerID: serverID}
}

func TerminalKey(serverID int64) SessionKey {
	return SessionKey{Kind: KindTerminal, ServerID: serverID}
}

// WithScope returns a copy of k bound to scope.
func (k SessionKey) WithScope(scope string) SessionKey {
	k.Scope = scope
	return k
}

func (k SessionKey) Validate() error {
	switch k.Kind {
	case KindScript:
		if k.ScriptID <= 0 || k.ServerID <= 0 {
			return fmt.Errorf("%w: script sessions need a script and a server", ErrInvalidKey)
		}
	case KindTerminal:
		if k.ServerID <= 0 {
			return fmt.Errorf("%w: terminal sessions need a server", ErrInvalidKey)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidKey, k.Kind)
	}

	return nil
}

// Path is the endpoint path the session connects to.
func (k SessionKey) Path() string {
	if k.Kind == KindTerminal {
		return "/api/ws/terminal/" + strconv.FormatInt(k.ServerID, 10)
	}

	return "/api/ws/execute/" + strconv.FormatInt(k.ScriptID, 10) + "/" + strconv.FormatInt(k.ServerID, 10)
}

func (k SessionKey) String() string {
	s := string(k.Kind) + ":"
	if k.Kind == KindScript {
		s += strconv.FormatInt(k.ScriptID, 10) + ":"
	}

	s += strconv.FormatInt(k.ServerID, 10)

	if k.Scope != "" {
		s += "#" + strconv.Quote(k.Scope)
	}

	return s
}
