package web

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/prep/internal/export"
	"github.com/JonMunkholm/prep/internal/ops"
)

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.service.Profile(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, p)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	rep, err := s.service.Report(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, rep)
}

func (s *Server) handleDistribution(w http.ResponseWriter, r *http.Request) {
	column := r.URL.Query().Get("column")
	if column == "" {
		respondError(w, r, &ops.ValidationError{Msg: "column query parameter is required"})
		return
	}
	d, err := s.service.Distribution(chi.URLParam(r, "id"), column)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, d)
}

// handleExport serves the current snapshot as a download. The file is built
// in memory first so a failure can still be reported as an error response.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		respondError(w, r, &ops.ValidationError{Msg: err.Error()})
		return
	}

	var buf bytes.Buffer
	if err := s.service.Export(r.Context(), chi.URLParam(r, "id"), &buf, format); err != nil {
		respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, format.FileName()))
	w.Header().Set("Content-Length", fmt.Sprint(buf.Len()))
	_, _ = buf.WriteTo(w)
}

// PostgresExportResponse reports a finished table export.
type PostgresExportResponse struct {
	Table string `json:"table"`
	Rows  int64  `json:"rows"`
}

func (s *Server) handleExportPostgres(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.service.Session(id); err != nil {
		respondError(w, r, err)
		return
	}

	var opts export.PostgresOptions
	if err := s.decodeJSON(r, &opts); err != nil {
		respondError(w, r, err)
		return
	}

	n, err := s.service.ExportPostgres(r.Context(), id, opts)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, PostgresExportResponse{Table: opts.Table, Rows: n})
}
