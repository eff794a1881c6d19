package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"namemint/pkg/domain"
	"namemint/pkg/requestcontext"
)

// Validator validates bearer tokens and extracts the caller principal.
type Validator interface {
	ValidateToken(tokenString string) (domain.Principal, error)
}

// HMACValidator validates HS256 tokens signed with a shared key. The token
// subject is the principal.
type HMACValidator struct {
	key []byte
}

func NewHMACValidator(signingKey string) *HMACValidator {
	return &HMACValidator{key: []byte(signingKey)}
}

func (v *HMACValidator) ValidateToken(tokenString string) (domain.Principal, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.key, nil
	})
	if err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}
	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return domain.ParsePrincipal(sub)
}

// Identity resolves the caller principal from the Authorization header.
// Requests without credentials proceed as the anonymous principal; role
// enforcement happens in the services, not here. A present-but-invalid token
// is rejected so a typo'd credential never silently downgrades to guest.
func Identity(validator Validator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				next.ServeHTTP(w, r.WithContext(requestcontext.WithCaller(ctx, domain.Anonymous)))
				return
			}

			principal, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "invalid bearer token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"invalid or expired token"}`))
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithCaller(ctx, principal)))
		})
	}
}
