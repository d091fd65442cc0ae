package core

import (
	"context"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/prep/internal/dataset"
	"github.com/JonMunkholm/prep/internal/export"
	"github.com/JonMunkholm/prep/internal/logging"
	"github.com/JonMunkholm/prep/internal/report"
	"github.com/JonMunkholm/prep/internal/session"
)

// Preview returns the first configured rows of the current snapshot.
func (s *Service) Preview(id string) (*dataset.Frame, error) {
	sess, err := s.Session(id)
	if err != nil {
		return nil, err
	}
	return sess.Preview(s.opts.PreviewRows)
}

// History returns the accepted state changes of a session.
func (s *Service) History(id string) ([]session.Entry, error) {
	sess, err := s.Session(id)
	if err != nil {
		return nil, err
	}
	return sess.History(), nil
}

// Roles returns the role assignment of a session and warnings about columns
// that no longer exist.
func (s *Service) Roles(id string) (*session.Roles, []string, error) {
	sess, err := s.Session(id)
	if err != nil {
		return nil, nil, err
	}
	return sess.Roles()
}

// Profile computes the health check of the current snapshot.
func (s *Service) Profile(id string) (*report.Profile, error) {
	f, err := s.current(id)
	if err != nil {
		return nil, err
	}
	return report.NewProfile(f), nil
}

// Distribution computes the distribution of one column of the current snapshot.
func (s *Service) Distribution(id, column string) (report.Distribution, error) {
	f, err := s.current(id)
	if err != nil {
		return report.Distribution{}, err
	}
	c, err := f.Column(column)
	if err != nil {
		return report.Distribution{}, err
	}
	return report.Distribute(c, report.DefaultBins), nil
}

// Report builds the descriptive analysis of the current snapshot.
func (s *Service) Report(id string) (*report.Report, error) {
	f, err := s.current(id)
	if err != nil {
		return nil, err
	}
	return report.New(f), nil
}

// Export writes the current snapshot in the given format.
func (s *Service) Export(ctx context.Context, id string, w io.Writer, format export.Format) error {
	f, err := s.current(id)
	if err != nil {
		return err
	}
	if err := export.Write(w, f, format); err != nil {
		return fmt.Errorf("export %s: %w", format, err)
	}
	s.metrics.exports.WithLabelValues(string(format)).Inc()
	logging.FromContext(logging.WithSessionID(ctx, id)).Info("dataset exported", "format", format, "rows", f.Rows())
	return nil
}

// ExportPostgres loads the current snapshot into a PostgreSQL table inside
// one transaction.
func (s *Service) ExportPostgres(ctx context.Context, id string, opts export.PostgresOptions) (int64, error) {
	if s.db == nil {
		return 0, ErrExportDisabled
	}
	f, err := s.current(id)
	if err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.ExportTimeout)
	defer cancel()

	var n int64
	err = pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		var err error
		n, err = export.ToPostgres(ctx, tx, f, opts)
		return err
	})
	if err != nil {
		return 0, err
	}

	s.metrics.exports.WithLabelValues("postgres").Inc()
	logging.FromContext(logging.WithSessionID(ctx, id)).Info("dataset exported",
		"format", "postgres",
		"table", opts.Table,
		"rows", n,
	)
	return n, nil
}

func (s *Service) current(id string) (*dataset.Frame, error) {
	sess, err := s.Session(id)
	if err != nil {
		return nil, err
	}
	return sess.Current()
}
