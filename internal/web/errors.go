package web

// errors.go provides unified error response handling for the web layer.
//
// The error flow:
//  1. Handler encounters an error and calls respondError(w, r, err)
//  2. The error is mapped via core.MapError to a user message and code
//  3. The status code is derived from the code
//  4. The technical error is logged with the request and session IDs
//  5. The user message is rendered as an HTMX fragment, JSON, or plain text

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/JonMunkholm/prep/internal/core"
	"github.com/JonMunkholm/prep/internal/logging"
	"github.com/JonMunkholm/prep/internal/ops"
	"github.com/JonMunkholm/prep/internal/web/views"
)

// ErrorResponse represents the JSON structure for API error responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
	Detail  string `json:"detail,omitempty"`
}

// statusByCode maps support codes to HTTP status codes. Unlisted codes
// answer 500.
var statusByCode = map[string]int{
	"SES001":  http.StatusNotFound,
	"SES002":  http.StatusConflict,
	"SES003":  http.StatusServiceUnavailable,
	"ING001":  http.StatusUnprocessableEntity,
	"FILE001": http.StatusRequestEntityTooLarge,
	"FILE002": http.StatusUnprocessableEntity,
	"FILE003": http.StatusUnprocessableEntity,
	"FILE004": http.StatusBadRequest,
	"FILE005": http.StatusUnprocessableEntity,
	"VAL001":  http.StatusBadRequest,
	"VAL002":  http.StatusBadRequest,
	"VAL003":  http.StatusBadRequest,
	"CMP001":  http.StatusUnprocessableEntity,
	"UPL002":  http.StatusServiceUnavailable,
	"UPL004":  http.StatusBadRequest,
	"UPL005":  http.StatusGatewayTimeout,
	"DB001":   http.StatusNotImplemented,
	"DB002":   http.StatusConflict,
	"DB004":   http.StatusBadGateway,
	"DB005":   http.StatusBadGateway,
	"DB006":   http.StatusGatewayTimeout,
	"RATE001": http.StatusTooManyRequests,
}

func statusFor(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// respondError logs the technical error server-side and answers with a
// user-facing message in the format the client expects.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	msg := core.MapError(err)
	status := statusFor(msg.Code)

	logger := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request error", attrs...)
	} else {
		logger.Info("request rejected", attrs...)
	}

	switch {
	case isHTMX(r):
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		_ = views.ErrorAlert(msg.Message, msg.Action, msg.Code).Render(r.Context(), w)
	case wantsJSON(r):
		render.Status(r, status)
		render.JSON(w, r, ErrorResponse{
			Error:   msg.Message,
			Message: msg.Message,
			Action:  msg.Action,
			Code:    msg.Code,
			Detail:  msg.Detail,
		})
	default:
		http.Error(w, core.FormatUserError(err), status)
	}
}

// writeJSON writes v with the status previously set by render.Status, or 200.
func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	render.JSON(w, r, v)
}

// isHTMX checks if the request is an HTMX request.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// wantsJSON checks if the client prefers JSON response. API routes default
// to JSON.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	return strings.HasPrefix(r.URL.Path, "/api/")
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeJSON reads a JSON body into v and validates its struct tags.
// Failures come back as ops.ValidationError so they map to VAL002.
func (s *Server) decodeJSON(r *http.Request, v any) error {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		return &ops.ValidationError{Msg: fmt.Sprintf("invalid JSON body: %v", err), Err: err}
	}
	if err := s.validate.Struct(v); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return &ops.ValidationError{Msg: err.Error(), Err: err}
		}
		msgs := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			msgs = append(msgs, fmt.Sprintf("%s failed %s validation", fe.Namespace(), fe.Tag()))
		}
		return &ops.ValidationError{Msg: strings.Join(msgs, "; ")}
	}
	return nil
}
