package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"budget/internal/core"
	"budget/internal/services"
)

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	key, ok := monthParam(w, r)
	if !ok {
		return
	}
	p := parseBody(w, r)
	if p == nil {
		return
	}
	item, err := s.svc.AddExpense(r.Context(), key, services.ExpenseInput{
		GroupID: p.Get("groupId"),
		Name:    p.Get("name"),
		Amount:  p.Get("amount"),
		DueDay:  core.ParseDueDay(p.Get("dueDay")),
		Paid:    p.GetBool("paid"),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondCreated(w, key, "Expense added", item)
}

// handleUpdateExpense applies the fields present in the body. A blank or
// non-numeric dueDay removes the due day.
func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	key, ok := monthParam(w, r)
	if !ok {
		return
	}
	p := parseBody(w, r)
	if p == nil {
		return
	}

	patch := services.ExpensePatch{
		Name:   p.GetOptional("name"),
		Amount: p.GetOptional("amount"),
	}
	if v, ok := p.Lookup("dueDay"); ok {
		patch.DueDay = core.ParseDueDay(v)
		patch.ClearDueDay = patch.DueDay == nil
	}
	if p.Has("paid") {
		paid := p.GetBool("paid")
		patch.Paid = &paid
	}

	item, err := s.svc.UpdateExpense(r.Context(), key, chi.URLParam(r, "id"), patch)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewHTMXResponse().TriggerMonthChanged(key).JSON(item).Write(w)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	key, ok := monthParam(w, r)
	if !ok {
		return
	}
	if err := s.svc.DeleteExpense(r.Context(), key, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.respondMonth(w, r, key, "Expense deleted")
}

func (s *Server) handleTogglePaid(w http.ResponseWriter, r *http.Request) {
	key, ok := monthParam(w, r)
	if !ok {
		return
	}
	if _, err := s.svc.TogglePaid(r.Context(), key, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.respondMonth(w, r, key, "")
}

// handleMoveExpense moves an expense to "index" within "groupId", which
// defaults to the group the expense is in.
func (s *Server) handleMoveExpense(w http.ResponseWriter, r *http.Request) {
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
	if err := s.svc.MoveExpense(r.Context(), key, chi.URLParam(r, "id"), p.Get("groupId"), to); err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.respondMonth(w, r, key, "")
}
