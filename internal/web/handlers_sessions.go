package web

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/JonMunkholm/prep/internal/core"
	"github.com/JonMunkholm/prep/internal/dataset"
	"github.com/JonMunkholm/prep/internal/ingest"
	"github.com/JonMunkholm/prep/internal/ops"
	"github.com/JonMunkholm/prep/internal/session"
)

// multipartOverhead leaves room for form fields and boundaries on top of
// the file itself.
const multipartOverhead = 1 << 20

// SessionResponse is the answer to an upload.
type SessionResponse struct {
	Session  session.Summary `json:"session"`
	Warnings []string        `json:"warnings,omitempty"`
	Preview  FrameResponse   `json:"preview"`
}

// FrameResponse is a JSON-friendly table. Null cells are JSON null.
type FrameResponse struct {
	Columns []ColumnResponse `json:"columns"`
	Rows    [][]*string      `json:"rows"`
	Total   int              `json:"total_rows"`
}

// ColumnResponse names a column and its kind.
type ColumnResponse struct {
	Name    string       `json:"name"`
	Kind    dataset.Kind `json:"kind"`
	Missing int          `json:"missing"`
}

func toFrameResponse(f *dataset.Frame, total int) FrameResponse {
	resp := FrameResponse{
		Columns: make([]ColumnResponse, len(f.Columns)),
		Rows:    make([][]*string, f.Rows()),
		Total:   total,
	}
	for i, c := range f.Columns {
		resp.Columns[i] = ColumnResponse{Name: c.Name, Kind: c.Kind, Missing: c.NullCount()}
	}
	for r := range resp.Rows {
		row := make([]*string, len(f.Columns))
		for i, c := range f.Columns {
			if v := c.Values[r]; v.Valid {
				s := v.String()
				row[i] = &s
			}
		}
		resp.Rows[r] = row
	}
	return resp
}

// readUpload extracts the file and ingestion options from a multipart form.
// The returned cleanup removes any temporary files the form spilled to disk.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (core.Upload, func(), error) {
	noop := func() {}
	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return core.Upload{}, noop, &ingest.Error{Reason: fmt.Sprintf("limit is %d bytes", maxSize), Err: ingest.ErrTooLarge}
		}
		return core.Upload{}, noop, &ops.ValidationError{Msg: "invalid multipart form", Err: err}
	}
	cleanup := func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		cleanup()
		return core.Upload{}, noop, core.ErrNoFile
	}

	up := core.Upload{Name: header.Filename, Body: file}
	if d := r.FormValue("delimiter"); d != "" {
		up.Delimiter, err = ingest.ParseDelimiter(d)
		if err != nil {
			file.Close()
			cleanup()
			return core.Upload{}, noop, &ops.ValidationError{Msg: err.Error()}
		}
	}
	up.NoHeader, _ = strconv.ParseBool(r.FormValue("no_header"))

	return up, func() {
		file.Close()
		cleanup()
	}, nil
}

// handleCreateSession ingests an upload into a new session.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	up, cleanup, err := s.readUpload(w, r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	defer cleanup()

	sess, res, err := s.service.CreateSession(r.Context(), up)
	if err != nil {
		respondError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	writeJSON(w, r, SessionResponse{
		Session:  sess.Summary(),
		Warnings: res.Warnings,
		Preview:  toFrameResponse(res.Frame.Head(s.service.PreviewRows()), res.Frame.Rows()),
	})
}

// handleReload replaces the dataset of an existing session.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.service.Session(id); err != nil {
		respondError(w, r, err)
		return
	}

	up, cleanup, err := s.readUpload(w, r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	defer cleanup()

	sess, res, err := s.service.Reload(r.Context(), id, up)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, SessionResponse{
		Session:  sess.Summary(),
		Warnings: res.Warnings,
		Preview:  toFrameResponse(res.Frame.Head(s.service.PreviewRows()), res.Frame.Rows()),
	})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, s.service.Sessions())
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.service.Session(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, sess.Summary())
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteSession(chi.URLParam(r, "id")); err != nil {
		respondError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

// handlePreview returns the first rows of the current snapshot.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, err := s.service.Session(id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	preview, err := s.service.Preview(id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, toFrameResponse(preview, sess.Summary().Rows))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.service.History(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, history)
}

// handleUploadQueueStatus returns the current state of the ingestion limiter.
func (s *Server) handleUploadQueueStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, s.service.UploadLimiterStatus())
}
