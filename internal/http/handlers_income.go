package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"budget/internal/services"
)

func (s *Server) handleAddIncome(w http.ResponseWriter, r *http.Request) {
	key, ok := monthParam(w, r)
	if !ok {
		return
	}
	p := parseBody(w, r)
	if p == nil {
		return
	}
	item, err := s.svc.AddIncome(r.Context(), key, services.IncomeInput{
		Name:   p.Get("name"),
		Amount: p.Get("amount"),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondCreated(w, key, "Income added", item)
}

func (s *Server) handleUpdateIncome(w http.ResponseWriter, r *http.Request) {
	key, ok := monthParam(w, r)
	if !ok {
		return
	}
	p := parseBody(w, r)
	if p == nil {
		return
	}
	item, err := s.svc.UpdateIncome(r.Context(), key, chi.URLParam(r, "id"), services.IncomePatch{
		Name:   p.GetOptional("name"),
		Amount: p.GetOptional("amount"),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewHTMXResponse().TriggerMonthChanged(key).JSON(item).Write(w)
}

func (s *Server) handleDeleteIncome(w http.ResponseWriter, r *http.Request) {
	key, ok := monthParam(w, r)
	if !ok {
		return
	}
	if err := s.svc.DeleteIncome(r.Context(), key, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.respondMonth(w, r, key, "Income deleted")
}

func (s *Server) handleMoveIncome(w http.ResponseWriter, r *http.Request) {
	key, ok := monthParam(w, r)
	if !ok {
		return
	}
	p := parseBody(w, r)
	if p == nil {
		return
	}
	to, err := p.GetInt("index")
	if err != nil {
		UnprocessableEntityError("Invalid index").Write(w)
		return
	}
	if err := s.svc.MoveIncome(r.Context(), key, chi.URLParam(r, "id"), to); err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.respondMonth(w, r, key, "")
}
