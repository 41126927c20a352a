package otelhelper

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestStartSpan_NilTracerIsNoop(t *testing.T) {
	ctx, span := StartSpan(t.Context(), nil, "test", attribute.Int64(RunIDKey, 3))
	defer span.End()

	assert.NotNil(t, ctx)
	assert.False(t, span.SpanContext().IsValid())

	SetError(span, errors.New("boom"), attribute.String(RequestIDKey, "r-1"))
}

type responseError struct {
	status int
	id     string
}

func (e *responseError) Error() string          { return fmt.Sprintf("HTTP %d", e.status) }
func (e *responseError) HTTPStatus() int        { return e.status }
func (e *responseError) RequestIDValue() string { return e.id }

func recordSpan(t *testing.T, err error) sdktrace.ReadOnlySpan {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	_, span := StartSpan(t.Context(), provider.Tracer("test"), "op")
	SetError(span, err)
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)

	return ended[0]
}

func eventAttrs(span sdktrace.ReadOnlySpan, name string) map[attribute.Key]attribute.Value {
	out := map[attribute.Key]attribute.Value{}

	for _, ev := range span.Events() {
		if ev.Name != name {
			continue
		}

		for _, kv := range ev.Attributes {
			out[kv.Key] = kv.Value
		}
	}

	return out
}

func TestSetError_RecordsResponseStatus(t *testing.T) {
	span := recordSpan(t, fmt.Errorf("GetRun: %w", &responseError{status: 503, id: "req-9"}))

	assert.Equal(t, codes.Error, span.Status().Code)

	attrs := eventAttrs(span, "error_occurred")
	assert.Equal(t, int64(503), attrs[StatusCodeKey].AsInt64())
	assert.Equal(t, "req-9", attrs[RequestIDKey].AsString())
	assert.Equal(t, "server", attrs[ErrorTypeKey].AsString())
}

func TestSetError_ErrorTypes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"client", &responseError{status: 404}, "client"},
		{"timeout", fmt.Errorf("dial: %w", context.DeadlineExceeded), "timeout"},
		{"transport", errors.New("connection refused"), "transport"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			span := recordSpan(t, tt.err)

			assert.Equal(t, codes.Error, span.Status().Code)
			assert.Equal(t, tt.want, eventAttrs(span, "error_occurred")[ErrorTypeKey].AsString())
		})
	}
}

func TestSetError_CancelledIsNotAFailure(t *testing.T) {
	span := recordSpan(t, fmt.Errorf("GetRun: %w", context.Canceled))

	assert.Equal(t, codes.Unset, span.Status().Code)
	assert.Empty(t, eventAttrs(span, "error_occurred"))

	var names []string
	for _, ev := range span.Events() {
		names = append(names, ev.Name)
	}
	assert.Equal(t, []string{"cancelled"}, names)
}
