package web

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/prep/internal/config"
	"github.com/JonMunkholm/prep/internal/core"
)

const sampleCSV = "city,sales\nTokyo,10\nOsaka,\nTokyo,30\n"

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Server.RequestTimeout = 10 * time.Second
	cfg.Upload.MaxFileSize = 1 << 20
	cfg.Security.EnableCSP = true
	return cfg
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	svc := core.NewService(nil, core.Options{PreviewRows: 2})
	return NewServer(svc, testConfig())
}

func multipartBody(t *testing.T, content string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if content != "" {
		fw, err := mw.CreateFormFile("file", "sales.csv")
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func do(t *testing.T, s *Server, method, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func createSession(t *testing.T, s *Server) string {
	t.Helper()
	body, ct := multipartBody(t, sampleCSV, nil)
	rec := do(t, s, http.MethodPost, "/api/sessions", body, ct)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Session.ID.String()
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func TestCreateSession(t *testing.T) {
	s := newTestServer(t)
	body, ct := multipartBody(t, sampleCSV, map[string]string{"delimiter": "comma"})
	rec := do(t, s, http.MethodPost, "/api/sessions", body, ct)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "sales.csv", resp.Session.Source.Name)
	assert.Equal(t, 3, resp.Preview.Total)
	assert.Len(t, resp.Preview.Rows, 2)
	require.Len(t, resp.Preview.Columns, 2)
	assert.Equal(t, "sales", resp.Preview.Columns[1].Name)
	assert.Equal(t, 1, resp.Preview.Columns[1].Missing)
	assert.Nil(t, resp.Preview.Rows[1][1])
}

func TestCreateSessionErrors(t *testing.T) {
	s := newTestServer(t)

	body, ct := multipartBody(t, "", map[string]string{"delimiter": "comma"})
	rec := do(t, s, http.MethodPost, "/api/sessions", body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "FILE004", decodeError(t, rec).Code)

	body, ct = multipartBody(t, sampleCSV, map[string]string{"delimiter": "ab"})
	rec = do(t, s, http.MethodPost, "/api/sessions", body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VAL002", decodeError(t, rec).Code)

	body, ct = multipartBody(t, "a,b\n1,2,3\n", nil)
	rec = do(t, s, http.MethodPost, "/api/sessions", body, ct)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "FILE002", decodeError(t, rec).Code)
}

func TestApplyAndReset(t *testing.T) {
	s := newTestServer(t)
	id := createSession(t, s)

	rec := do(t, s, http.MethodPost, "/api/sessions/"+id+"/ops",
		bytes.NewBufferString(`{"op":"fill_missing","method":"mean","columns":["sales"]}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp MutationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, -1, resp.Entry.MissingDelta)
	require.NotNil(t, resp.Preview.Rows[1][1])
	assert.Equal(t, "20", *resp.Preview.Rows[1][1])

	rec = do(t, s, http.MethodPost, "/api/sessions/"+id+"/ops",
		bytes.NewBufferString(`{"op":"explode"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VAL001", decodeError(t, rec).Code)

	rec = do(t, s, http.MethodPost, "/api/sessions/"+id+"/ops",
		bytes.NewBufferString(`{"columns":["sales"]}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VAL002", decodeError(t, rec).Code)

	rec = do(t, s, http.MethodPost, "/api/sessions/"+id+"/reset", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Nil(t, resp.Preview.Rows[1][1])

	rec = do(t, s, http.MethodGet, "/api/sessions/"+id+"/history", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var history []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	assert.Len(t, history, 3)
}

func TestPromoteHeaderRequiresRow(t *testing.T) {
	s := newTestServer(t)
	id := createSession(t, s)

	rec := do(t, s, http.MethodPost, "/api/sessions/"+id+"/promote-header", bytes.NewBufferString(`{}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VAL002", decodeError(t, rec).Code)

	rec = do(t, s, http.MethodPost, "/api/sessions/"+id+"/promote-header", bytes.NewBufferString(`{"row":0}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp MutationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Tokyo", resp.Preview.Columns[0].Name)
}

func TestRoles(t *testing.T) {
	s := newTestServer(t)
	id := createSession(t, s)

	rec := do(t, s, http.MethodPut, "/api/sessions/"+id+"/roles",
		bytes.NewBufferString(`{"target":"sales","features":["city"]}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, s, http.MethodPut, "/api/sessions/"+id+"/roles",
		bytes.NewBufferString(`{"target":"sales","features":[]}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/sessions/"+id+"/roles", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp RolesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Roles)
	assert.Equal(t, []string{"city"}, resp.Roles.Features)
}

func TestReportEndpoints(t *testing.T) {
	s := newTestServer(t)
	id := createSession(t, s)

	for _, path := range []string{"/profile", "/report", "/distribution?column=city", "/preview"} {
		rec := do(t, s, http.MethodGet, "/api/sessions/"+id+path, nil, "")
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.True(t, json.Valid(rec.Body.Bytes()), path)
	}

	rec := do(t, s, http.MethodGet, "/api/sessions/"+id+"/distribution", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExport(t *testing.T) {
	s := newTestServer(t)
	id := createSession(t, s)

	rec := do(t, s, http.MethodGet, "/api/sessions/"+id+"/export?format=csv", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="cleaned_data.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "\ufeffcity,sales\nTokyo,10\nOsaka,\nTokyo,30\n", rec.Body.String())

	rec = do(t, s, http.MethodGet, "/api/sessions/"+id+"/export?format=pdf", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/sessions/"+id+"/export/postgres", bytes.NewBufferString(`{"table":"sales"}`), "application/json")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
	assert.Equal(t, "DB001", decodeError(t, rec).Code)
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestServer(t)
	id := createSession(t, s)

	rec := do(t, s, http.MethodGet, "/api/sessions", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), id)

	body, ct := multipartBody(t, "a,b\n1,2,3\n", nil)
	rec = do(t, s, http.MethodPost, "/api/sessions/"+id+"/upload", body, ct)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/sessions/"+id+"/preview", nil, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "SES002", decodeError(t, rec).Code)

	rec = do(t, s, http.MethodDelete, "/api/sessions/"+id, nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/sessions/"+id, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "SES001", decodeError(t, rec).Code)
}

func TestPages(t *testing.T) {
	s := newTestServer(t)

	body, ct := multipartBody(t, sampleCSV, nil)
	rec := do(t, s, http.MethodPost, "/sessions", body, ct)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	location := rec.Header().Get("Location")
	require.True(t, strings.HasPrefix(location, "/sessions/"))

	rec = do(t, s, http.MethodGet, location, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<th>city<br>")
	assert.Contains(t, rec.Body.String(), "fill_missing")

	rec = do(t, s, http.MethodGet, "/", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sales.csv")
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestHTMXErrorFragment(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/sessions/00000000-0000-0000-0000-000000000000", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `role="alert"`)
	assert.Contains(t, rec.Body.String(), "SES001")
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)
	createSession(t, s)

	rec := do(t, s, http.MethodGet, "/healthz", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"sessions":1`)

	rec = do(t, s, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "prep_sessions_active 1")
	assert.Contains(t, rec.Body.String(), "prep_http_requests_total")
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter(2, time.Minute)
	defer rl.stop()

	assert.True(t, rl.allow("1.1.1.1"))
	assert.True(t, rl.allow("1.1.1.1"))
	assert.False(t, rl.allow("1.1.1.1"))
	assert.True(t, rl.allow("2.2.2.2"))

	h := rl.middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	req := httptest.NewRequest(http.MethodGet, "/api/operations", nil)
	req.RemoteAddr = "1.1.1.1:999"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, "RATE001", decodeError(t, rec).Code)
}
