package http

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"budget/internal/core"
	"budget/internal/services"
)

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	data, err := s.svc.Export(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewHTMXResponse().
		Header("Content-Type", "application/json").
		Header("Content-Disposition", `attachment; filename="budget-`+s.svc.ActiveMonth().String()+`.json"`).
		Body(data).
		Write(w)
}

// handleImport replaces the whole state. The document is the raw body, or the
// "file" field of a multipart upload.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	data, err := readImport(r)
	if err != nil {
		slog.WarnContext(r.Context(), "Import upload unreadable", "request_id", requestID(r.Context()), "error", err)
		BadRequestError("Invalid JSON").Write(w)
		return
	}
	if err := s.svc.Import(r.Context(), data); err != nil {
		if errors.Is(err, core.ErrInvalidImport) {
			slog.InfoContext(r.Context(), "Import rejected", "request_id", requestID(r.Context()), "error", err)
		}
		writeServiceError(w, r, err)
		return
	}

	active := s.svc.ActiveMonth()
	NewHTMXResponse().
		TriggerMonthChanged(active).
		TriggerSuccessNotification("Data imported").
		JSON(map[string]string{"activeMonth": active.String()}).
		Write(w)
}

func readImport(r *http.Request) ([]byte, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		f, _, err := r.FormFile("file")
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return io.ReadAll(f)
	}
	return io.ReadAll(r.Body)
}

// handleResolveDue resolves ?day= against ?month=. A missing or non-numeric
// day yields 404 since there is no due date to show.
func (s *Server) handleResolveDue(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var day *int
	if n, err := strconv.Atoi(strings.TrimSpace(q.Get("day"))); err == nil {
		day = &n
	}
	due, ok := services.ResolveDueDay(q.Get("month"), day)
	if !ok {
		NotFoundError("No due day").Write(w)
		return
	}
	NewHTMXResponse().JSON(due).Write(w)
}
