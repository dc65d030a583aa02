package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleAddGroup(w http.ResponseWriter, r *http.Request) {
	key, ok := monthParam(w, r)
	if !ok {
		return
	}
	p := parseBody(w, r)
	if p == nil {
		return
	}
	g, err := s.svc.AddGroup(r.Context(), key, p.Get("label"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondCreated(w, key, "Group added", g)
}

func (s *Server) handleRenameGroup(w http.ResponseWriter, r *http.Request) {
	key, ok := monthParam(w, r)
	if !ok {
		return
	}
	p := parseBody(w, r)
	if p == nil {
		return
	}
	if err := s.svc.RenameGroup(r.Context(), key, chi.URLParam(r, "id"), p.Get("label")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.respondMonth(w, r, key, "")
}

func (s *Server) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	key, ok := monthParam(w, r)
	if !ok {
		return
	}
	if err := s.svc.DeleteGroup(r.Context(), key, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.respondMonth(w, r, key, "Group deleted")
}

func (s *Server) handleMoveGroup(w http.ResponseWriter, r *http.Request) {
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
	if err := s.svc.MoveGroup(r.Context(), key, chi.URLParam(r, "id"), to); err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.respondMonth(w, r, key, "")
}
