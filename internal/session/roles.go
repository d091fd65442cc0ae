package session

import (
	"fmt"
	"time"

	"github.com/JonMunkholm/prep/internal/dataset"
	"github.com/JonMunkholm/prep/internal/ops"
)

const opRoles = "roles"

// Roles designates one prediction target and the feature columns used to
// predict it.
type Roles struct {
	Target   string   `json:"target" yaml:"target" validate:"required"`
	Features []string `json:"features" yaml:"features" validate:"required,min=1,dive,required"`
}

// SetRoles validates the assignment against the current snapshot and stores it.
func (s *Session) SetRoles(target string, features []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateLoaded {
		return ErrEmpty
	}
	if err := checkRoles(s.current, target, features); err != nil {
		return err
	}

	fs := make([]string, len(features))
	copy(fs, features)
	s.roles = &Roles{Target: target, Features: fs}
	s.lastUsed = time.Now()
	return nil
}

// Roles returns the stored assignment, if any. Column operations do not
// update roles, so names that no longer exist in the current snapshot are
// reported as warnings.
func (s *Session) Roles() (*Roles, []string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateLoaded {
		return nil, nil, ErrEmpty
	}
	if s.roles == nil {
		return nil, nil, nil
	}

	var warnings []string
	if !s.current.Has(s.roles.Target) {
		warnings = append(warnings, fmt.Sprintf("target column %q no longer exists", s.roles.Target))
	}
	for _, f := range s.roles.Features {
		if !s.current.Has(f) {
			warnings = append(warnings, fmt.Sprintf("feature column %q no longer exists", f))
		}
	}

	out := &Roles{Target: s.roles.Target, Features: make([]string, len(s.roles.Features))}
	copy(out.Features, s.roles.Features)
	return out, warnings, nil
}

func checkRoles(f *dataset.Frame, target string, features []string) error {
	if target == "" {
		return &ops.ValidationError{Op: opRoles, Msg: "select a target column"}
	}
	if !f.Has(target) {
		return &ops.ValidationError{Op: opRoles, Msg: fmt.Sprintf("no column named %q", target)}
	}
	if len(features) == 0 {
		return &ops.ValidationError{Op: opRoles, Msg: "select at least one feature column"}
	}
	seen := make(map[string]bool, len(features))
	for _, name := range features {
		switch {
		case name == target:
			return &ops.ValidationError{Op: opRoles, Msg: fmt.Sprintf("%q cannot be both target and feature", name)}
		case seen[name]:
			return &ops.ValidationError{Op: opRoles, Msg: fmt.Sprintf("feature %q selected twice", name)}
		case !f.Has(name):
			return &ops.ValidationError{Op: opRoles, Msg: fmt.Sprintf("no column named %q", name)}
		}
		seen[name] = true
	}
	return nil
}
