package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/JonMunkholm/prep/internal/dataset"
	"github.com/JonMunkholm/prep/internal/ingest"
	"github.com/JonMunkholm/prep/internal/ops"
	"github.com/JonMunkholm/prep/internal/session"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   string
		wantDetail bool
	}{
		{"nil error returns empty", nil, "", false},
		{"session not found", ErrSessionNotFound, "SES001", false},
		{"empty session", fmt.Errorf("preview: %w", session.ErrEmpty), "SES002", false},
		{"session limit", ErrTooManySessions, "SES003", false},
		{"file too large", &ingest.Error{Reason: "limit is 8 bytes", Err: ingest.ErrTooLarge}, "FILE001", false},
		{"ragged record", &ingest.Error{Reason: "line 3", Err: ingest.ErrRaggedRecord}, "FILE002", false},
		{"undecodable", &ingest.Error{Reason: "cannot decode file", Err: ingest.ErrUndecodable}, "FILE003", false},
		{"no file", ErrNoFile, "FILE004", false},
		{"empty file", &ingest.Error{Reason: "empty", Err: ingest.ErrNoData}, "FILE005", false},
		{"generic ingestion failure", &ingest.Error{Reason: "read failed", Err: errors.New("unexpected EOF")}, "ING001", true},
		{"unknown op wins over validation", &ops.ValidationError{Op: "explode", Msg: "unknown", Err: ops.ErrUnknownOp}, "VAL001", false},
		{"validation error", &ops.ValidationError{Op: "scale", Msg: "column \"a\" is not numeric"}, "VAL002", true},
		{"missing column", fmt.Errorf("%w: price", dataset.ErrColumnNotFound), "VAL003", false},
		{"computation error", &ops.ComputationError{Op: "divide", Msg: "divisor contains zero"}, "CMP001", true},
		{"too many uploads", ErrTooManyUploads, "UPL002", false},
		{"cancelled", context.Canceled, "UPL004", false},
		{"deadline", fmt.Errorf("ingest: %w", context.DeadlineExceeded), "UPL005", false},
		{"export disabled", ErrExportDisabled, "DB001", false},
		{"incompatible table", errors.New(`ERROR: column "x" of relation "t" does not exist (SQLSTATE 42703)`), "DB002", false},
		{"connection refused", errors.New("dial tcp: connection refused"), "DB004", false},
		{"connection reset", errors.New("read: connection reset by peer"), "DB005", false},
		{"timeout", errors.New("i/o timeout"), "DB006", false},
		{"rate limit", errors.New("Rate Limit exceeded"), "RATE001", false},
		{"unknown error", errors.New("something odd"), "ERR000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if (got.Detail != "") != tt.wantDetail {
				t.Errorf("MapError() detail = %q, want detail %v", got.Detail, tt.wantDetail)
			}
			if tt.err != nil && got.Message == "" {
				t.Error("MapError() returned an empty message")
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}

	got := FormatUserError(ErrSessionNotFound)
	want := "Session not found (Code: SES001). The session may have expired. Upload the file again"
	if got != want {
		t.Errorf("FormatUserError() = %q, want %q", got, want)
	}

	got = FormatUserError(&ops.ComputationError{Op: "divide", Msg: "divisor contains zero"})
	if !strings.Contains(got, "CMP001") || !strings.Contains(got, "divide: divisor contains zero") {
		t.Errorf("FormatUserError() = %q, want code and detail", got)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{ErrSessionNotFound, true},
		{errors.New("connection refused"), true},
		{errors.New("random internal failure"), false},
	}
	for _, tt := range tests {
		if got := IsUserFacing(tt.err); got != tt.want {
			t.Errorf("IsUserFacing(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
