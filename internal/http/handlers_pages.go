package http

import (
	"html/template"
	"log/slog"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"

	"budget/internal/core"
	"budget/internal/services"
)

type monthPage struct {
	Month  core.MonthKey
	Active core.MonthKey
	Label  string
	Prev   core.MonthKey
	Next   core.MonthKey
	View   services.MonthView
	Months []core.MonthKey
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"money":  formatMoney,
		"amount": func(a core.Amount) string { return formatMoney(a.Decimal()) },
		"due": func(v services.MonthView, id string) *services.DueDate {
			if d, ok := v.Due[id]; ok {
				return &d
			}
			return nil
		},
		"dueDay": func(d *int) string {
			if d == nil {
				return ""
			}
			return strconv.Itoa(*d)
		},
		"groupTotals": func(v services.MonthView, id string) core.GroupSummary {
			for _, g := range v.Summary.Groups {
				if g.ID == id {
					return g
				}
			}
			return core.GroupSummary{}
		},
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/months/"+s.svc.ActiveMonth().String(), http.StatusFound)
}

func (s *Server) handleMonthPage(w http.ResponseWriter, r *http.Request) {
	key, err := core.ParseMonthKey(chi.URLParam(r, "month"))
	if err != nil {
		ErrorResponse(http.StatusBadRequest, "Invalid month").Write(w)
		return
	}
	s.renderMonth(w, r, "month.html", key)
}

func (s *Server) handlePrintPage(w http.ResponseWriter, r *http.Request) {
	key, err := core.ParseMonthKey(chi.URLParam(r, "month"))
	if err != nil {
		ErrorResponse(http.StatusBadRequest, "Invalid month").Write(w)
		return
	}
	s.renderMonth(w, r, "print.html", key)
}

func (s *Server) renderMonth(w http.ResponseWriter, r *http.Request, name string, key core.MonthKey) {
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "url", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	view, err := s.svc.View(r.Context(), key)
	if err != nil {
		slog.ErrorContext(r.Context(), "Month summary error", "month", key, "error", err)
		ErrorResponse(http.StatusInternalServerError, "Could not load month").Write(w)
		return
	}

	data := monthPage{
		Month:  key,
		Active: s.svc.ActiveMonth(),
		Label:  key.Label(),
		Prev:   key.Prev(),
		Next:   key.Next(),
		View:   view,
		Months: knownMonths(s.svc.State(), key),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution failed", "error", err, "template", name, "month", key)
		http.Error(w, "template error", http.StatusInternalServerError)
	}
}

// knownMonths lists the stored months other than current, newest first.
func knownMonths(st *core.State, current core.MonthKey) []core.MonthKey {
	out := make([]core.MonthKey, 0, len(st.Months))
	for k := range st.Months {
		if k != current && k.Valid() {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] > out[j] })
	return out
}
