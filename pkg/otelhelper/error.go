package otelhelper

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	StatusCodeKey = "http.response.status_code"
	ErrorTypeKey  = "error.type"
)

// statusCoder is implemented by API errors that carry the response status.
type statusCoder interface {
	HTTPStatus() int
}

// requestIDer is implemented by API errors that carry the request id sent to the backend.
type requestIDer interface {
	RequestIDValue() string
}

// SetError marks span as failed and records err with its response status and request id when
// err carries them. A cancelled context is recorded without failing the span.
func SetError(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if err == nil {
		return
	}

	var sc statusCoder
	if errors.As(err, &sc) {
		attrs = append(attrs, attribute.Int(StatusCodeKey, sc.HTTPStatus()))
	}

	var rid requestIDer
	if errors.As(err, &rid) && rid.RequestIDValue() != "" {
		attrs = append(attrs, attribute.String(RequestIDKey, rid.RequestIDValue()))
	}

	if errors.Is(err, context.Canceled) {
		span.AddEvent("cancelled", trace.WithAttributes(attrs...))
		return
	}

	attrs = append(attrs, attribute.String(ErrorTypeKey, errorType(err, sc)))

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.AddEvent("error_occurred", trace.WithAttributes(attrs...))
}

func errorType(err error, sc statusCoder) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case sc != nil && sc.HTTPStatus() >= 500:
		return "server"
	case sc != nil:
		return "client"
	default:
		return "transport"
	}
}
