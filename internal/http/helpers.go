package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"budget/internal/core"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// requestID returns the id assigned by the request middleware, if any.
func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// sanitizeInput removes potentially dangerous characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	// Remove control characters except tab, newline, carriage return
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

// formatMoney renders a total with two fraction digits.
func formatMoney(d decimal.Decimal) string {
	return core.FormatAmount(d)
}

// writeServiceError maps a service error to a response.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidImport):
		BadRequestError("Invalid JSON").Write(w)
	case errors.Is(err, core.ErrInvalidMonthKey):
		BadRequestError("Invalid month").Write(w)
	case errors.Is(err, core.ErrNotFound):
		NotFoundError("Not found").Write(w)
	default:
		slog.ErrorContext(r.Context(), "Request failed",
			"request_id", requestID(r.Context()),
			"method", r.Method,
			"url", r.URL.Path,
			"error", err)
		InternalServerError("Could not save changes").Write(w)
	}
}
