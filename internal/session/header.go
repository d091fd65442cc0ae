package session

import (
	"fmt"

	"github.com/JonMunkholm/prep/internal/dataset"
	"github.com/JonMunkholm/prep/internal/ops"
)

// PromoteHeader turns row r of the current snapshot into column names.
// Rows 0 through r are discarded and the rest keep their order. Text columns
// are re-inferred, since a label row removed from the top may have been the
// only thing keeping a column from being numeric. Role assignments are
// cleared because every column name may have changed.
func (s *Session) PromoteHeader(r int) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateLoaded {
		return Entry{}, ErrEmpty
	}
	if r < 0 || r >= s.current.Rows() {
		return Entry{}, &ops.ValidationError{
			Op:  ActionPromoteHeader,
			Msg: fmt.Sprintf("row %d is out of range (0-%d)", r, s.current.Rows()-1),
		}
	}

	raw := make([]string, s.current.Width())
	for i, v := range s.current.Row(r) {
		raw[i] = v.Stringify()
	}
	names := dataset.DisambiguateNames(raw)

	keep := make([]bool, s.current.Rows())
	for i := r + 1; i < len(keep); i++ {
		keep[i] = true
	}
	body := s.current.SelectRows(keep)
	for i := range body.Columns {
		body.Columns[i].Name = names[i]
		body.Columns[i] = dataset.Reinfer(body.Columns[i])
	}
	if err := body.Check(); err != nil {
		return Entry{}, fmt.Errorf("promote header: %w", err)
	}

	rows, cols := s.current.Rows(), s.current.Width()
	s.current = body
	s.roles = nil
	return s.record(ActionPromoteHeader, nil, rows, cols, 0, nil), nil
}
