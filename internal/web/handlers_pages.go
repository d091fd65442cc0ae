package web

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/prep/internal/session"
	"github.com/JonMunkholm/prep/internal/web/views"
)

// handleLanding renders the upload form and the session list.
func (s *Server) handleLanding(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := views.Landing(s.service.Sessions(), s.cfg.Upload.MaxFileSize).Render(r.Context(), w); err != nil {
		respondError(w, r, err)
	}
}

// handleUploadPage creates a session from the landing form and redirects to it.
func (s *Server) handleUploadPage(w http.ResponseWriter, r *http.Request) {
	up, cleanup, err := s.readUpload(w, r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	defer cleanup()

	sess, _, err := s.service.CreateSession(r.Context(), up)
	if err != nil {
		respondError(w, r, err)
		return
	}

	target := "/sessions/" + sess.ID().String()
	if isHTMX(r) {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// handleSessionPage renders one session. An empty session still renders,
// without a preview.
func (s *Server) handleSessionPage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, err := s.service.Session(id)
	if err != nil {
		respondError(w, r, err)
		return
	}

	page := views.SessionPage{
		Summary:    sess.Summary(),
		History:    sess.History(),
		Operations: s.service.Operations(),
	}
	if page.Preview, err = s.service.Preview(id); err != nil && !errors.Is(err, session.ErrEmpty) {
		respondError(w, r, err)
		return
	}
	if page.Roles, page.Warnings, err = s.service.Roles(id); err != nil && !errors.Is(err, session.ErrEmpty) {
		respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := views.Session(page).Render(r.Context(), w); err != nil {
		respondError(w, r, err)
	}
}
