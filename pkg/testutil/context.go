package testutil

import (
	"net/http"
	"time"

	"namemint/pkg/domain"
	"namemint/pkg/requestcontext"
)

// WithCaller injects a principal into the request context, simulating what
// the identity middleware does for an authenticated request.
func WithCaller(req *http.Request, caller domain.Principal) *http.Request {
	return req.WithContext(requestcontext.WithCaller(req.Context(), caller))
}

// WithTime pins the request-scoped clock, simulating the request-time
// middleware with a deterministic instant.
func WithTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}

// WithRequestID injects a request ID into the request context.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}
