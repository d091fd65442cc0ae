// Package session holds one loaded dataset and the linear sequence of
// operations applied to it.
//
// A Session keeps two snapshots: the original, captured at load time and
// never written again, and the current one, replaced wholesale by every
// accepted operation. Reset copies the original back over the current
// snapshot. All methods are safe for concurrent use; operations on one
// session are serialized.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/prep/internal/dataset"
	"github.com/JonMunkholm/prep/internal/ops"
)

// ErrEmpty is returned by operations that need a loaded dataset.
var ErrEmpty = errors.New("no dataset loaded")

// State is the lifecycle state of a session.
type State int

const (
	StateEmpty State = iota
	StateLoaded
)

func (s State) String() string {
	if s == StateLoaded {
		return "loaded"
	}
	return "empty"
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Action names recorded in history entries.
const (
	ActionLoad          = "load"
	ActionApply         = "apply"
	ActionReset         = "reset"
	ActionPromoteHeader = "promote_header"
)

// Source describes where the loaded dataset came from.
type Source struct {
	Name     string `json:"name"`
	Encoding string `json:"encoding"`
	Size     int64  `json:"size"`
}

// Entry records one accepted state change.
type Entry struct {
	ID           uuid.UUID    `json:"id"`
	Action       string       `json:"action"`
	Request      *ops.Request `json:"request,omitempty"`
	RowsBefore   int          `json:"rows_before"`
	RowsAfter    int          `json:"rows_after"`
	ColsBefore   int          `json:"columns_before"`
	ColsAfter    int          `json:"columns_after"`
	MissingDelta int          `json:"missing_delta"`
	Warnings     []string     `json:"warnings,omitempty"`
	At           time.Time    `json:"at"`
}

// Summary is a point-in-time view of a session for listings.
type Summary struct {
	ID       uuid.UUID `json:"id"`
	State    State     `json:"state"`
	Source   Source    `json:"source"`
	Rows     int       `json:"rows"`
	Columns  int       `json:"columns"`
	Steps    int       `json:"steps"`
	Created  time.Time `json:"created"`
	LastUsed time.Time `json:"last_used"`
}

// Session owns an original and a current snapshot.
type Session struct {
	id      uuid.UUID
	created time.Time

	mu       sync.Mutex
	state    State
	source   Source
	original *dataset.Frame
	current  *dataset.Frame
	roles    *Roles
	history  []Entry
	lastUsed time.Time
}

// New returns an empty session.
func New() *Session {
	now := time.Now()
	return &Session{id: uuid.New(), created: now, lastUsed: now}
}

// ID returns the session identifier.
func (s *Session) ID() uuid.UUID { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastUsed returns when the session was last read or written.
func (s *Session) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// Load replaces whatever the session held with f. The session keeps its own
// copies; f may be reused by the caller.
func (s *Session) Load(f *dataset.Frame, src Source) (Entry, error) {
	if f == nil {
		return Entry{}, fmt.Errorf("load: nil frame")
	}
	if err := f.Check(); err != nil {
		return Entry{}, fmt.Errorf("load: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = StateLoaded
	s.source = src
	s.original = f.Clone()
	s.current = f.Clone()
	s.roles = nil
	s.history = nil

	return s.record(ActionLoad, nil, 0, 0, 0, nil), nil
}

// Clear returns the session to Empty, discarding both snapshots, roles and
// history. Used when a re-ingestion fails.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = StateEmpty
	s.source = Source{}
	s.original, s.current = nil, nil
	s.roles = nil
	s.history = nil
	s.lastUsed = time.Now()
}

// Apply runs one operation against the current snapshot. On error the
// session is unchanged.
func (s *Session) Apply(req ops.Request) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateLoaded {
		return Entry{}, ErrEmpty
	}
	s.lastUsed = time.Now()

	res, err := ops.Apply(s.current, req)
	if err != nil {
		return Entry{}, err
	}

	rows, cols := s.current.Rows(), s.current.Width()
	s.current = res.Frame
	r := req
	r.Columns = append([]string(nil), req.Columns...)
	return s.record(ActionApply, &r, rows, cols, res.MissingDelta, res.Warnings), nil
}

// Reset discards every applied operation and clears role assignments.
func (s *Session) Reset() (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateLoaded {
		return Entry{}, ErrEmpty
	}

	rows, cols := s.current.Rows(), s.current.Width()
	s.current = s.original.Clone()
	s.roles = nil
	return s.record(ActionReset, nil, rows, cols, 0, nil), nil
}

// Current returns a copy of the current snapshot.
func (s *Session) Current() (*dataset.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateLoaded {
		return nil, ErrEmpty
	}
	s.lastUsed = time.Now()
	return s.current.Clone(), nil
}

// Original returns a copy of the snapshot captured at load time.
func (s *Session) Original() (*dataset.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateLoaded {
		return nil, ErrEmpty
	}
	return s.original.Clone(), nil
}

// Preview returns a copy of the first n rows of the current snapshot.
func (s *Session) Preview(n int) (*dataset.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateLoaded {
		return nil, ErrEmpty
	}
	s.lastUsed = time.Now()
	return s.current.Head(n), nil
}

// History returns the accepted state changes in order.
func (s *Session) History() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, len(s.history))
	copy(out, s.history)
	return out
}

// Summary describes the session.
func (s *Session) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Summary{
		ID:       s.id,
		State:    s.state,
		Source:   s.source,
		Rows:     s.current.Rows(),
		Columns:  s.current.Width(),
		Steps:    len(s.history),
		Created:  s.created,
		LastUsed: s.lastUsed,
	}
}

// record appends a history entry. Callers hold s.mu.
func (s *Session) record(action string, req *ops.Request, rows, cols, delta int, warnings []string) Entry {
	now := time.Now()
	s.lastUsed = now
	e := Entry{
		ID:           uuid.New(),
		Action:       action,
		Request:      req,
		RowsBefore:   rows,
		RowsAfter:    s.current.Rows(),
		ColsBefore:   cols,
		ColsAfter:    s.current.Width(),
		MissingDelta: delta,
		Warnings:     warnings,
		At:           now,
	}
	s.history = append(s.history, e)
	return e
}
