package core

import (
	"context"
	"time"

	"github.com/JonMunkholm/prep/internal/logging"
	"github.com/JonMunkholm/prep/internal/ops"
	"github.com/JonMunkholm/prep/internal/session"
)

// Apply runs one column operation on a session's current snapshot.
// Validation and computation errors leave the session unchanged.
func (s *Service) Apply(ctx context.Context, id string, req ops.Request) (session.Entry, error) {
	sess, err := s.Session(id)
	if err != nil {
		return session.Entry{}, err
	}
	logger := logging.WithFields(logging.WithSessionID(ctx, id),
		"op", req.Op,
		"columns", req.Columns,
		"scope", req.Scope,
	)

	start := time.Now()
	entry, err := sess.Apply(req)
	elapsed := time.Since(start)
	if err != nil {
		outcome := outcomeFailed
		if ops.IsValidation(err) || ops.IsComputation(err) {
			outcome = outcomeRejected
		}
		s.metrics.observeOperation(req.Op, outcome, elapsed, 0)
		logger.Info("operation rejected", "error", err)
		return session.Entry{}, err
	}

	s.metrics.observeOperation(req.Op, outcomeApplied, elapsed, entry.MissingDelta)
	logger.Info("operation applied",
		"rows_before", entry.RowsBefore,
		"rows_after", entry.RowsAfter,
		"missing_delta", entry.MissingDelta,
		"duration_ms", elapsed.Milliseconds(),
	)
	return entry, nil
}

// Reset restores a session's original snapshot.
func (s *Service) Reset(ctx context.Context, id string) (session.Entry, error) {
	sess, err := s.Session(id)
	if err != nil {
		return session.Entry{}, err
	}
	entry, err := sess.Reset()
	if err != nil {
		return session.Entry{}, err
	}
	logging.FromContext(logging.WithSessionID(ctx, id)).Info("session reset", "rows", entry.RowsAfter)
	return entry, nil
}

// PromoteHeader turns row r of the current snapshot into the column names.
func (s *Service) PromoteHeader(ctx context.Context, id string, row int) (session.Entry, error) {
	sess, err := s.Session(id)
	if err != nil {
		return session.Entry{}, err
	}
	entry, err := sess.PromoteHeader(row)
	if err != nil {
		return session.Entry{}, err
	}
	logging.FromContext(logging.WithSessionID(ctx, id)).Info("header promoted", "row", row, "rows", entry.RowsAfter)
	return entry, nil
}

// SetRoles assigns the target and feature columns of a session.
func (s *Service) SetRoles(ctx context.Context, id string, roles session.Roles) error {
	sess, err := s.Session(id)
	if err != nil {
		return err
	}
	if err := sess.SetRoles(roles.Target, roles.Features); err != nil {
		return err
	}
	logging.FromContext(logging.WithSessionID(ctx, id)).Debug("roles assigned",
		"target", roles.Target,
		"features", len(roles.Features),
	)
	return nil
}
