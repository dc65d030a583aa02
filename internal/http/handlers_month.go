package http

import (
	"net/http"

	"budget/internal/core"
)

// respondMonth answers a mutation with the updated month view.
func (s *Server) respondMonth(w http.ResponseWriter, r *http.Request, key core.MonthKey, message string) {
	view, err := s.svc.Summary(r.Context(), key)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	resp := NewHTMXResponse().TriggerMonthChanged(key)
	if message != "" {
		resp.TriggerSuccessNotification(message)
	}
	resp.JSON(view).Write(w)
}

// respondCreated answers a mutation that created v.
func respondCreated(w http.ResponseWriter, key core.MonthKey, message string, v interface{}) {
	NewHTMXResponse().
		Status(http.StatusCreated).
		TriggerMonthChanged(key).
		TriggerSuccessNotification(message).
		JSON(v).
		Write(w)
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	NewHTMXResponse().JSON(s.svc.State()).Write(w)
}

func (s *Server) handleSetActiveMonth(w http.ResponseWriter, r *http.Request) {
	p := parseBody(w, r)
	if p == nil {
		return
	}
	key, err := core.ParseMonthKey(p.Get("month"))
	if err != nil {
		BadRequestError("Invalid month").Write(w)
		return
	}
	if err := s.svc.SetActiveMonth(r.Context(), key); err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.respondMonth(w, r, key, "")
}

func (s *Server) handleGetMonth(w http.ResponseWriter, r *http.Request) {
	key, ok := monthParam(w, r)
	if !ok {
		return
	}
	view, err := s.svc.View(r.Context(), key)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewHTMXResponse().JSON(view).Write(w)
}

func (s *Server) handleSetNotes(w http.ResponseWriter, r *http.Request) {
	key, ok := monthParam(w, r)
	if !ok {
		return
	}
	p := parseBody(w, r)
	if p == nil {
		return
	}
	if err := s.svc.SetNotes(r.Context(), key, p.GetText("notes")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.respondMonth(w, r, key, "Notes saved")
}

func (s *Server) handleClearMonth(w http.ResponseWriter, r *http.Request) {
	key, ok := monthParam(w, r)
	if !ok {
		return
	}
	if err := s.svc.ClearMonth(r.Context(), key); err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.respondMonth(w, r, key, "Month cleared")
}

// handleCopyMonth copies the month named by "from", the previous month by default.
func (s *Server) handleCopyMonth(w http.ResponseWriter, r *http.Request) {
	key, ok := monthParam(w, r)
	if !ok {
		return
	}
	p := parseBody(w, r)
	if p == nil {
		return
	}
	from := key.Prev()
	if v := p.Get("from"); v != "" {
		k, err := core.ParseMonthKey(v)
		if err != nil {
			BadRequestError("Invalid month").Write(w)
			return
		}
		from = k
	}
	if err := s.svc.CopyMonth(r.Context(), from, key); err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.respondMonth(w, r, key, "Copied from "+from.Label())
}
