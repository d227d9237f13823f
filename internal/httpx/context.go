package httpx

import (
	"context"
	"net/http"
)

type contextKey string

const (
	requestIDKey contextKey = "requestID"
	sessionIDKey contextKey = "sessionID"
	accessKey    contextKey = "access"
)

// accessRecord collects facts discovered deeper in the handler chain so the
// access log, which wraps everything, can report them.
type accessRecord struct {
	sessionID string
}

func RequestIDFrom(r *http.Request) string {
	return RequestIDFromContext(r.Context())
}

// RequestIDFromContext is used by outbound clients to forward the id.
func RequestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func SessionIDFrom(r *http.Request) string {
	if v, ok := r.Context().Value(sessionIDKey).(string); ok {
		return v
	}
	return ""
}

// ContextWithSessionID attaches the visitor session id and reports it to
// the enclosing access log, if any.
func ContextWithSessionID(ctx context.Context, sessionID string) context.Context {
	if rec, ok := ctx.Value(accessKey).(*accessRecord); ok {
		rec.sessionID = sessionID
	}
	return context.WithValue(ctx, sessionIDKey, sessionID)
}
