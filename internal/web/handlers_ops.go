package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/prep/internal/ops"
	"github.com/JonMunkholm/prep/internal/session"
)

// MutationResponse reports an accepted state change and the new preview.
type MutationResponse struct {
	Entry   session.Entry `json:"entry"`
	Preview FrameResponse `json:"preview"`
}

// RolesResponse carries the stored roles and warnings about vanished columns.
type RolesResponse struct {
	Roles    *session.Roles `json:"roles"`
	Warnings []string       `json:"warnings,omitempty"`
}

// promoteHeaderRequest selects the row whose cells become column names.
type promoteHeaderRequest struct {
	Row *int `json:"row" validate:"required,min=0"`
}

func (s *Server) handleListOperations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, s.service.Operations())
}

// handleApply runs one column operation. A rejected request leaves the
// session unchanged.
func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.service.Session(id); err != nil {
		respondError(w, r, err)
		return
	}

	var req ops.Request
	if err := s.decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	entry, err := s.service.Apply(r.Context(), id, req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	s.respondMutation(w, r, id, entry)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	entry, err := s.service.Reset(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	s.respondMutation(w, r, id, entry)
}

func (s *Server) handlePromoteHeader(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.service.Session(id); err != nil {
		respondError(w, r, err)
		return
	}

	var req promoteHeaderRequest
	if err := s.decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	entry, err := s.service.PromoteHeader(r.Context(), id, *req.Row)
	if err != nil {
		respondError(w, r, err)
		return
	}
	s.respondMutation(w, r, id, entry)
}

// respondMutation answers with the history entry and a fresh preview.
func (s *Server) respondMutation(w http.ResponseWriter, r *http.Request, id string, entry session.Entry) {
	preview, err := s.service.Preview(id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, MutationResponse{
		Entry:   entry,
		Preview: toFrameResponse(preview, entry.RowsAfter),
	})
}

func (s *Server) handleGetRoles(w http.ResponseWriter, r *http.Request) {
	roles, warnings, err := s.service.Roles(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, RolesResponse{Roles: roles, Warnings: warnings})
}

func (s *Server) handleSetRoles(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.service.Session(id); err != nil {
		respondError(w, r, err)
		return
	}

	var roles session.Roles
	if err := s.decodeJSON(r, &roles); err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.service.SetRoles(r.Context(), id, roles); err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, RolesResponse{Roles: &roles})
}
