// Package recipe reads YAML cleaning recipes and replays them against a
// session.
//
// A recipe looks like:
//
//	delimiter: comma
//	promote_header: 2
//	steps:
//	  - op: coerce
//	    method: numeric
//	    columns: [price]
//	  - op: fill_missing
//	    method: median
//	    columns: [price]
//	roles:
//	  target: price
//	  features: [region]
package recipe

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"

	"github.com/JonMunkholm/prep/internal/core"
	"github.com/JonMunkholm/prep/internal/ingest"
	"github.com/JonMunkholm/prep/internal/ops"
	"github.com/JonMunkholm/prep/internal/session"
)

// Recipe is an ordered list of operations plus the ingestion settings they
// assume.
type Recipe struct {
	Delimiter     string         `yaml:"delimiter"`
	NoHeader      bool           `yaml:"no_header"`
	PromoteHeader *int           `yaml:"promote_header" validate:"omitempty,min=0"`
	Steps         []ops.Request  `yaml:"steps" validate:"dive"`
	Roles         *session.Roles `yaml:"roles" validate:"omitempty"`
}

var validate = validator.New()

// Parse decodes a recipe strictly; unknown keys are errors.
func Parse(data []byte) (*Recipe, error) {
	var r Recipe
	if err := yaml.UnmarshalStrict(data, &r); err != nil {
		return nil, fmt.Errorf("parse recipe: %w", err)
	}
	if err := validate.Struct(&r); err != nil {
		return nil, fmt.Errorf("invalid recipe: %w", err)
	}
	if _, err := ingest.ParseDelimiter(r.Delimiter); err != nil {
		return nil, fmt.Errorf("invalid recipe: %w", err)
	}
	return &r, nil
}

// Load reads and parses a recipe file.
func Load(path string) (*Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read recipe: %w", err)
	}
	return Parse(data)
}

// Upload builds the service upload for body using the recipe's ingestion
// settings.
func (r *Recipe) Upload(name string, body io.Reader) core.Upload {
	delim, _ := ingest.ParseDelimiter(r.Delimiter)
	return core.Upload{Name: name, Body: body, Delimiter: delim, NoHeader: r.NoHeader}
}

// StepError reports which step of a recipe failed.
type StepError struct {
	Step int
	Req  ops.Request
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s): %v", e.Step+1, e.Req, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Run ingests body into a new session of svc and applies every step in
// order. It stops at the first rejected step; the session keeps the steps
// applied so far.
func (r *Recipe) Run(ctx context.Context, svc *core.Service, name string, body io.Reader) (*session.Session, error) {
	sess, _, err := svc.CreateSession(ctx, r.Upload(name, body))
	if err != nil {
		return nil, err
	}
	id := sess.ID().String()

	if r.PromoteHeader != nil {
		if _, err := svc.PromoteHeader(ctx, id, *r.PromoteHeader); err != nil {
			return sess, fmt.Errorf("promote header: %w", err)
		}
	}
	for i, step := range r.Steps {
		if _, err := svc.Apply(ctx, id, step); err != nil {
			return sess, &StepError{Step: i, Req: step, Err: err}
		}
	}
	if r.Roles != nil {
		if err := svc.SetRoles(ctx, id, *r.Roles); err != nil {
			return sess, fmt.Errorf("roles: %w", err)
		}
	}
	return sess, nil
}
