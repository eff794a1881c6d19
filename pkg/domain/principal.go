package domain

import (
	"strings"

	dErrors "namemint/pkg/domain-errors"
)

// Principal is the platform-supplied caller identity. It is opaque to the
// registry: we never parse it beyond distinguishing the anonymous sentinel.
//
// Usage: construct via ParsePrincipal at trust boundaries; direct casting
// bypasses validation.
type Principal string

// Anonymous is the distinguished non-identity value. It is never persisted
// and never treated as a registered principal.
const Anonymous Principal = "anonymous"

// ParsePrincipal constructs a Principal from external input. An empty value
// resolves to Anonymous rather than erroring so unauthenticated requests flow
// through as guests.
func ParsePrincipal(s string) (Principal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Anonymous, nil
	}
	if len(s) > 255 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "principal too long")
	}
	return Principal(s), nil
}

// IsAnonymous reports whether the principal is the anonymous sentinel.
func (p Principal) IsAnonymous() bool {
	return p == Anonymous || p == ""
}

// String returns the string representation of the principal.
func (p Principal) String() string {
	return string(p)
}
