package ops

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/prep/internal/dataset"
)

// Scope restricts which rows a column operation touches.
type Scope string

const (
	ScopeAll          Scope = "all"
	ScopeExcludeFirst Scope = "exclude_first"
)

// ParseScope accepts the scope names used in requests. Empty means all rows.
func ParseScope(s string) (Scope, error) {
	switch Scope(strings.ToLower(strings.TrimSpace(s))) {
	case "", ScopeAll:
		return ScopeAll, nil
	case ScopeExcludeFirst:
		return ScopeExcludeFirst, nil
	}
	return "", fmt.Errorf("unknown scope %q", s)
}

// Start returns the first row index in scope for a frame with the given
// row count.
func (s Scope) Start(rows int) int {
	if s == ScopeExcludeFirst && rows > 0 {
		return 1
	}
	return 0
}

// Contains reports whether row r is in scope.
func (s Scope) Contains(r int) bool {
	return s != ScopeExcludeFirst || r > 0
}

// slice returns a copy of the in-scope rows of c.
func (s Scope) slice(c dataset.Column) dataset.Column {
	start := s.Start(c.Len())
	vals := make([]dataset.Value, c.Len()-start)
	copy(vals, c.Values[start:])
	return dataset.Column{Name: c.Name, Kind: c.Kind, Values: vals}
}

// merge rebuilds a full-length column by walking every row position: rows
// before the scope start come from orig, the rest from out in order. The
// merged column takes out's declared kind.
func (s Scope) merge(orig, out dataset.Column) (dataset.Column, error) {
	start := s.Start(orig.Len())
	if out.Len() != orig.Len()-start {
		return dataset.Column{}, fmt.Errorf("column %q: operation returned %d rows for a scope of %d",
			orig.Name, out.Len(), orig.Len()-start)
	}
	vals := make([]dataset.Value, orig.Len())
	for r := range vals {
		if r < start {
			vals[r] = orig.Values[r]
		} else {
			vals[r] = out.Values[r-start]
		}
	}
	return dataset.Column{Name: orig.Name, Kind: out.Kind, Values: vals}, nil
}
