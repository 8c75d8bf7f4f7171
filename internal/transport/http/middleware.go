package http

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"zeroforums/internal/domain"
	"zeroforums/internal/netutil"
	"zeroforums/internal/observability/metrics"
	obsmw "zeroforums/internal/observability/middleware"
	"zeroforums/internal/ratelimit"
	"zeroforums/internal/reqsig"
)

const maxBodyBytes = 10 << 20

// SecurityMiddleware chains the per-client sliding window and signed-request
// validation in front of every API handler.
type SecurityMiddleware struct {
	Validator *reqsig.Validator
	Limiter   ratelimit.Limiter
}

func (m *SecurityMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := obsmw.RequestIDFromContext(r.Context())

		clientKey := netutil.ClientKey(clientIP(r), r.UserAgent(), r.Header.Get(reqsig.HeaderFingerprint))
		if err := m.Limiter.Allow(r.Context(), clientKey); err != nil {
			metrics.RateLimitDropsTotal.WithLabelValues().Inc()
			slog.Warn("rate limit exceeded", "request_id", reqID)
			writeError(w, err)
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			writeError(w, domain.NewValidationError("body", "unreadable body"))
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		if err := m.Validator.Validate(r, body); err != nil {
			metrics.RequestSignatureChecksTotal.WithLabelValues("failure").Inc()
			slog.Warn("request validation failed", "error", err, "request_id", reqID)
			writeError(w, err)
			return
		}
		metrics.RequestSignatureChecksTotal.WithLabelValues("success").Inc()

		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// XFF can be a list: client, proxy1, proxy2...
		ip := strings.TrimSpace(strings.Split(xff, ",")[0])
		if normalized, ok := netutil.NormalizeIP(ip); ok {
			return normalized
		}
	}
	if xr := r.Header.Get("X-Real-IP"); xr != "" {
		if normalized, ok := netutil.NormalizeIP(xr); ok {
			return normalized
		}
	}
	if normalized, ok := netutil.NormalizeIP(r.RemoteAddr); ok {
		return normalized
	}
	return r.RemoteAddr
}

// writeError maps the error taxonomy onto HTTP statuses. Messages stay
// generic; details live in the logs.
func writeError(w http.ResponseWriter, err error) {
	var (
		se *domain.SecurityError
		ve *domain.ValidationError
		ae *domain.AuthenticationError
		ce *domain.ConflictError
	)
	switch {
	case errors.As(err, &se):
		switch se.Kind {
		case domain.RateLimitExceeded:
			http.Error(w, se.Error(), http.StatusTooManyRequests)
		default:
			http.Error(w, se.Error(), http.StatusUnauthorized)
		}
	case errors.As(err, &ve):
		http.Error(w, ve.Error(), http.StatusBadRequest)
	case errors.As(err, &ae):
		http.Error(w, ae.Error(), http.StatusUnauthorized)
	case errors.As(err, &ce):
		http.Error(w, ce.Error(), http.StatusConflict)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
