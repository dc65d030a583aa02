package http

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"
)

// withSecurityHeaders adds security headers and request logging to responses,
// rejects cross-site changes and rate-limits edits per client.
func (s *Server) withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := s.clients.clientIP(r)

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP,
			"user_agent", r.Header.Get("User-Agent"))

		if reason := suspiciousReason(r, s.metrics); reason != "" {
			slog.WarnContext(ctx, "Suspicious request",
				"request_id", requestID,
				"method", r.Method,
				"url", r.URL.Path,
				"client_ip", clientIP,
				"reason", reason)
		}

		if crossSiteMutation(r) {
			atomic.AddInt64(&s.metrics.crossSiteBlocked, 1)
			slog.WarnContext(ctx, "Cross-site change rejected",
				"request_id", requestID,
				"url", r.URL.Path,
				"origin", r.Header.Get("Origin"),
				"client_ip", clientIP)
			APIError(http.StatusForbidden, "Cross-site request rejected").Write(w)
			return
		}

		if class, limited := classify(r); limited {
			if ok, wait := s.rateLimiter.allow(clientIP, class, s.metrics); !ok {
				retry := int(math.Ceil(wait.Seconds()))
				slog.WarnContext(ctx, "Rate limit exceeded",
					"client_ip", clientIP, "class", class, "method", r.Method, "url", r.URL.Path, "retry_after", retry)
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				APIError(http.StatusTooManyRequests, "Too many changes, try again shortly").Write(w)
				return
			}
		}

		w.Header().Set("X-Request-ID", requestID)
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", clientIP)
	})
}

func isMutation(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
