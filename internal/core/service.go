package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/prep/internal/config"
	"github.com/JonMunkholm/prep/internal/ingest"
	"github.com/JonMunkholm/prep/internal/logging"
	"github.com/JonMunkholm/prep/internal/ops"
	"github.com/JonMunkholm/prep/internal/session"
)

// Store errors.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrTooManySessions = errors.New("too many active sessions")
	ErrNoFile          = errors.New("no file provided")
	ErrExportDisabled  = errors.New("database export is not configured")
)

// Beginner starts a transaction. *pgxpool.Pool satisfies it.
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Options tunes the service. Zero values fall back to defaults.
type Options struct {
	MaxFileSize   int64
	Delimiter     rune
	IngestTimeout time.Duration
	MaxConcurrent int
	MaxWait       time.Duration
	MaxSessions   int
	TTL           time.Duration
	PreviewRows   int
	ExportTimeout time.Duration
}

// OptionsFromConfig derives service options from the loaded configuration.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	delim, err := ingest.ParseDelimiter(cfg.Upload.Delimiter)
	if err != nil {
		return Options{}, err
	}
	return Options{
		MaxFileSize:   cfg.Upload.MaxFileSize,
		Delimiter:     delim,
		IngestTimeout: cfg.Upload.Timeout,
		MaxConcurrent: cfg.Upload.MaxConcurrent,
		MaxWait:       cfg.Upload.MaxWaitTime,
		MaxSessions:   cfg.Session.MaxSessions,
		TTL:           cfg.Session.TTL,
		PreviewRows:   cfg.Session.PreviewRows,
		ExportTimeout: cfg.Database.ExportTimeout,
	}, nil
}

func (o *Options) applyDefaults() {
	if o.Delimiter == 0 {
		o.Delimiter = ','
	}
	if o.IngestTimeout <= 0 {
		o.IngestTimeout = 2 * time.Minute
	}
	if o.MaxSessions <= 0 {
		o.MaxSessions = 100
	}
	if o.TTL <= 0 {
		o.TTL = 2 * time.Hour
	}
	if o.PreviewRows <= 0 {
		o.PreviewRows = 50
	}
	if o.ExportTimeout <= 0 {
		o.ExportTimeout = 5 * time.Minute
	}
}

// Service hosts the in-memory dataset sessions and everything done to them.
// Each session serializes its own operations; the store lock only guards the
// session map.
type Service struct {
	opts    Options
	db      Beginner
	limiter *UploadLimiter
	metrics *Metrics
	now     func() time.Time

	mu       sync.RWMutex
	sessions map[string]*session.Session
}

// NewService creates a service. db may be nil, which disables table export.
func NewService(db Beginner, opts Options) *Service {
	opts.applyDefaults()
	return &Service{
		opts:     opts,
		db:       db,
		limiter:  NewUploadLimiter(opts.MaxConcurrent, opts.MaxWait),
		metrics:  NewMetrics(),
		now:      time.Now,
		sessions: make(map[string]*session.Session),
	}
}

// Metrics returns the service's collectors.
func (s *Service) Metrics() *Metrics { return s.metrics }

// PreviewRows is the configured preview length.
func (s *Service) PreviewRows() int { return s.opts.PreviewRows }

// ExportEnabled reports whether a database is configured.
func (s *Service) ExportEnabled() bool { return s.db != nil }

// Operations lists the registered column operations.
func (s *Service) Operations() []ops.Info { return ops.All() }

// UploadLimiterStatus returns the ingestion limiter state.
func (s *Service) UploadLimiterStatus() UploadLimiterStatus { return s.limiter.Status() }

// WaitForUploads blocks until in-flight ingestions finish.
func (s *Service) WaitForUploads(ctx context.Context) error { return s.limiter.WaitForDrain(ctx) }

// Upload describes a file handed to the service.
type Upload struct {
	Name      string
	Body      io.Reader
	Delimiter rune
	NoHeader  bool
}

// CreateSession ingests an upload into a new session. Nothing is stored when
// ingestion fails.
func (s *Service) CreateSession(ctx context.Context, up Upload) (*session.Session, *ingest.Result, error) {
	if err := s.reserve(); err != nil {
		return nil, nil, err
	}

	sess := session.New()
	res, err := s.load(ctx, sess, up)
	if err != nil {
		return nil, nil, err
	}

	s.mu.Lock()
	if len(s.sessions) >= s.opts.MaxSessions {
		s.mu.Unlock()
		return nil, nil, ErrTooManySessions
	}
	s.sessions[sess.ID().String()] = sess
	n := len(s.sessions)
	s.mu.Unlock()
	s.metrics.sessions.Set(float64(n))

	logging.WithFields(logging.WithSessionID(ctx, sess.ID().String()),
		"file", up.Name,
		"encoding", res.Encoding,
		"rows", res.Frame.Rows(),
		"columns", res.Frame.Width(),
	).Info("session created")
	return sess, res, nil
}

// Reload replaces the dataset of an existing session. A failed ingestion
// leaves the session empty.
func (s *Service) Reload(ctx context.Context, id string, up Upload) (*session.Session, *ingest.Result, error) {
	sess, err := s.Session(id)
	if err != nil {
		return nil, nil, err
	}
	res, err := s.load(ctx, sess, up)
	if err != nil {
		sess.Clear()
		return nil, nil, err
	}
	return sess, res, nil
}

// reserve makes room for one more session, sweeping expired ones first.
func (s *Service) reserve() error {
	s.mu.RLock()
	full := len(s.sessions) >= s.opts.MaxSessions
	s.mu.RUnlock()
	if !full {
		return nil
	}
	s.Sweep()

	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.sessions) >= s.opts.MaxSessions {
		return ErrTooManySessions
	}
	return nil
}

func (s *Service) load(ctx context.Context, sess *session.Session, up Upload) (*ingest.Result, error) {
	if up.Body == nil {
		return nil, ErrNoFile
	}
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	ctx, cancel := context.WithTimeout(ctx, s.opts.IngestTimeout)
	defer cancel()

	delim := up.Delimiter
	if delim == 0 {
		delim = s.opts.Delimiter
	}
	res, err := ingest.Read(ctx, up.Body, ingest.Options{
		Delimiter: delim,
		NoHeader:  up.NoHeader,
		MaxBytes:  s.opts.MaxFileSize,
	})
	if err != nil {
		s.metrics.observeIngestion("failed", 0)
		logging.FromContext(ctx).Warn("ingestion failed", "file", up.Name, "error", err)
		return nil, err
	}

	if _, err := sess.Load(res.Frame, session.Source{Name: up.Name, Encoding: res.Encoding, Size: res.Bytes}); err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	s.metrics.observeIngestion(res.Encoding, res.Bytes)
	return res, nil
}

// Session returns a live session by ID.
func (s *Service) Session(id string) (*session.Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrSessionNotFound
	}
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Sessions lists every live session, oldest first.
func (s *Service) Sessions() []session.Summary {
	s.mu.RLock()
	out := make([]session.Summary, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess.Summary())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Created.Before(out[j].Created) })
	return out
}

// DeleteSession discards a session.
func (s *Service) DeleteSession(id string) error {
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	n := len(s.sessions)
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	s.metrics.sessions.Set(float64(n))
	return nil
}

// Sweep removes sessions idle for longer than the TTL and returns how many
// were removed.
func (s *Service) Sweep() int {
	cutoff := s.now().Add(-s.opts.TTL)

	s.mu.Lock()
	removed := 0
	for id, sess := range s.sessions {
		if sess.LastUsed().Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	n := len(s.sessions)
	s.mu.Unlock()

	if removed > 0 {
		s.metrics.expired.Add(float64(removed))
	}
	s.metrics.sessions.Set(float64(n))
	return removed
}
