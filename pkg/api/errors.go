package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/moogar0880/problems"
)

var (
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrBadRequest   = errors.New("bad request")
	ErrServer       = errors.New("server error")
)

// Generic messages used when the server did not explain a failure.
const (
	MsgSaveFailed    = "Failed to save workflow"
	MsgCreateFailed  = "Failed to create workflow"
	MsgDeleteFailed  = "Failed to delete workflow"
	MsgLoadFailed    = "Failed to load workflow"
	MsgRunFailed     = "Failed to start run"
	MsgPreviewFailed = "Failed to preview schedule"
)

// Error is a non-2xx response. Problem carries the server's explanation when one was sent.
type Error struct {
	Op         string
	StatusCode int
	Problem    *problems.Problem
	RequestID  string
}

func (e *Error) Error() string {
	if msg := e.ServerMessage(); msg != "" {
		return fmt.Sprintf("%s: HTTP %d: %s", e.Op, e.StatusCode, msg)
	}

	return fmt.Sprintf("%s: HTTP %d", e.Op, e.StatusCode)
}

// ServerMessage is the detail sent by the server, empty when the body carried none.
func (e *Error) ServerMessage() string {
	if e.Problem == nil {
		return ""
	}

	return e.Problem.Detail
}

// HTTPStatus is the response status, recorded on the request span.
func (e *Error) HTTPStatus() int {
	return e.StatusCode
}

// RequestIDValue is the request id the failed call was sent with.
func (e *Error) RequestIDValue() string {
	return e.RequestID
}

// Is maps the status code onto the package sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	case ErrBadRequest:
		return e.StatusCode >= 400 && e.StatusCode < 500 && e.StatusCode != http.StatusNotFound
	case ErrServer:
		return e.StatusCode >= 500
	default:
		return false
	}
}

type errorBody struct {
	Detail json.RawMessage `json:"detail"`
	Title  string          `json:"title"`
	Type   string          `json:"type"`
}

type validationItem struct {
	Loc []any  `json:"loc"`
	Msg string `json:"msg"`
}

// decodeProblem reads an error body. It accepts RFC 7807 documents and {"detail": "..."} bodies,
// including lists of field errors.
func decodeProblem(status int, body []byte) *problems.Problem {
	problem := problems.NewStatusProblem(status)

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		if text := strings.TrimSpace(string(body)); text != "" && !strings.HasPrefix(text, "<") && len(text) < 512 {
			problem.Detail = text
		}

		return problem
	}

	if eb.Title != "" {
		problem.Title = eb.Title
	}

	if eb.Type != "" {
		problem.Type = eb.Type
	}

	problem.Detail = detailText(eb.Detail)

	return problem
}

func detailText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}

	var items []validationItem
	if err := json.Unmarshal(raw, &items); err == nil {
		messages := make([]string, 0, len(items))

		for _, item := range items {
			if field := locField(item.Loc); field != "" {
				messages = append(messages, field+": "+item.Msg)
			} else {
				messages = append(messages, item.Msg)
			}
		}

		return strings.Join(messages, "; ")
	}

	return string(raw)
}

func locField(loc []any) string {
	if len(loc) == 0 {
		return ""
	}

	parts := make([]string, 0, len(loc))
	for _, p := range loc {
		if s, ok := p.(string); ok && s == "body" {
			continue
		}

		parts = append(parts, fmt.Sprint(p))
	}

	return strings.Join(parts, ".")
}

// Message returns the server's message for err when present, otherwise fallback.
func Message(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		if msg := apiErr.ServerMessage(); msg != "" {
			return msg
		}
	}

	return fallback
}
