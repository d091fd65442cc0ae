package ops

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/JonMunkholm/prep/internal/dataset"
)

// Info describes an operation to callers building requests.
type Info struct {
	Key         string   `json:"key"`
	Group       string   `json:"group"`
	Label       string   `json:"label"`
	Methods     []string `json:"methods,omitempty"`
	MinColumns  int      `json:"min_columns"`
	MaxColumns  int      `json:"max_columns,omitempty"` // 0 means unbounded
	Kinds       []string `json:"kinds,omitempty"`       // accepted column kinds, empty means any
	Scoped      bool     `json:"scoped"`
	NeedsValue  bool     `json:"needs_value,omitempty"`
	NeedsColumn bool     `json:"needs_new_column,omitempty"`
}

// ColumnFunc transforms the in-scope slice of one column. It must return a
// column of the same length and must not modify col.Values.
type ColumnFunc func(col dataset.Column, req Request) (dataset.Column, []string, error)

// FrameFunc transforms a whole frame. It is responsible for honoring
// req.Scope itself when Info.Scoped is set.
type FrameFunc func(f *dataset.Frame, req Request) (*dataset.Frame, []string, error)

// Definition is a registered operation. Exactly one of Column and Frame is set.
type Definition struct {
	Info   Info
	Kinds  []dataset.Kind
	Column ColumnFunc
	Frame  FrameFunc
	// Check runs extra request validation after the generic checks.
	Check func(f *dataset.Frame, req Request) error
	// Converts marks type conversions, whose new nulls are cells that
	// failed to convert and are reported as such.
	Converts bool
}

var (
	registry   = make(map[string]Definition)
	registryMu sync.RWMutex
)

// Register adds an operation definition to the registry.
// Panics if the key is already registered or the definition is malformed.
func Register(def Definition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[def.Info.Key]; exists {
		panic(fmt.Sprintf("operation already registered: %s", def.Info.Key))
	}
	if (def.Column == nil) == (def.Frame == nil) {
		panic(fmt.Sprintf("operation %s must set exactly one of Column and Frame", def.Info.Key))
	}

	if len(def.Info.Kinds) == 0 && len(def.Kinds) > 0 {
		def.Info.Kinds = make([]string, len(def.Kinds))
		for i, k := range def.Kinds {
			def.Info.Kinds[i] = k.String()
		}
	}

	registry[def.Info.Key] = def
}

// Get returns an operation definition by key.
func Get(key string) (Definition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[key]
	return def, ok
}

// All returns every registered operation, sorted by group then key.
func All() []Info {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]Info, 0, len(registry))
	for _, def := range registry {
		result = append(result, def.Info)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Group != result[j].Group {
			return result[i].Group < result[j].Group
		}
		return result[i].Key < result[j].Key
	})

	return result
}

var validate = newValidator()

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

// Validate checks the request's shape: a known op, a known scope and no
// blank column names. Column existence is checked by Apply.
func Validate(req Request) error {
	if err := validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return &ValidationError{Op: req.Op, Msg: err.Error(), Err: err}
		}
		msgs := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			msgs = append(msgs, describeFieldError(fe))
		}
		return &ValidationError{Op: req.Op, Msg: strings.Join(msgs, "; ")}
	}
	if _, ok := Get(req.Op); !ok {
		return &ValidationError{Op: req.Op, Msg: "no such operation", Err: ErrUnknownOp}
	}
	return nil
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}

// Apply validates req against f and runs the operation. On any error f is
// returned to the caller untouched and no result is produced.
func Apply(f *dataset.Frame, req Request) (Result, error) {
	if err := Validate(req); err != nil {
		return Result{}, err
	}
	if req.Scope == "" {
		req.Scope = ScopeAll
	}
	def, _ := Get(req.Op)

	var warnings []string
	if req.Scope == ScopeExcludeFirst && !def.Info.Scoped {
		warnings = append(warnings, fmt.Sprintf("%s applies to every row; the row scope was ignored", def.Info.Label))
	}

	if err := checkRequest(def, f, req); err != nil {
		return Result{}, err
	}

	var (
		out   *dataset.Frame
		warns []string
		err   error
	)
	if def.Column != nil {
		out, warns, err = applyColumns(def, f, req)
	} else {
		out, warns, err = def.Frame(f, req)
	}
	if err != nil {
		return Result{}, err
	}
	if err := out.Check(); err != nil {
		return Result{}, fmt.Errorf("%s produced an inconsistent frame: %w", req.Op, err)
	}

	delta := totalNulls(out) - totalNulls(f)
	warnings = append(warnings, warns...)
	if def.Converts && delta > 0 {
		warnings = append(warnings, fmt.Sprintf("%d values could not be converted and are now missing", delta))
	}
	return Result{Frame: out, MissingDelta: delta, Warnings: warnings}, nil
}

func checkRequest(def Definition, f *dataset.Frame, req Request) error {
	op := req.Op
	if len(def.Info.Methods) > 0 && !contains(def.Info.Methods, req.Method) {
		if req.Method == "" {
			return invalid(op, "method is required (one of: %s)", strings.Join(def.Info.Methods, ", "))
		}
		return invalid(op, "unknown method %q (one of: %s)", req.Method, strings.Join(def.Info.Methods, ", "))
	}

	n := len(req.Columns)
	if n < def.Info.MinColumns {
		if def.Info.MinColumns == 1 {
			return invalid(op, "select a column")
		}
		return invalid(op, "select at least %d columns", def.Info.MinColumns)
	}
	if def.Info.MaxColumns > 0 && n > def.Info.MaxColumns {
		return invalid(op, "select at most %d columns", def.Info.MaxColumns)
	}

	seen := make(map[string]bool, n)
	for _, name := range req.Columns {
		if seen[name] {
			return invalid(op, "column %q selected twice", name)
		}
		seen[name] = true

		col, err := f.Column(name)
		if err != nil {
			return &ValidationError{Op: op, Msg: fmt.Sprintf("no column named %q", name), Err: err}
		}
		if len(def.Kinds) > 0 && !acceptsKind(def.Kinds, col.Kind) {
			return invalid(op, "column %q is %s; %s needs %s", name, col.Kind, def.Info.Label, strings.Join(def.Info.Kinds, " or "))
		}
	}

	if def.Info.NeedsValue && strings.TrimSpace(req.Value) == "" {
		return invalid(op, "a value is required")
	}
	if def.Info.NeedsColumn && strings.TrimSpace(req.NewColumn) == "" {
		return invalid(op, "a new column name is required")
	}
	if def.Check != nil {
		return def.Check(f, req)
	}
	return nil
}

// applyColumns runs a column function over each selected column's scoped
// slice and merges the results into a new frame.
func applyColumns(def Definition, f *dataset.Frame, req Request) (*dataset.Frame, []string, error) {
	out := &dataset.Frame{Columns: make([]dataset.Column, len(f.Columns))}
	copy(out.Columns, f.Columns)

	var warnings, skipped []string
	changed := 0
	for _, name := range req.Columns {
		i := f.Index(name)
		orig := f.Columns[i]

		col, warns, err := def.Column(req.Scope.slice(orig), req)
		var noop *unchanged
		if errors.As(err, &noop) {
			skipped = append(skipped, noop.msg)
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		merged, err := req.Scope.merge(orig, col)
		if err != nil {
			return nil, nil, err
		}
		out.Columns[i] = merged
		warnings = append(warnings, warns...)
		changed++
	}

	if changed == 0 {
		return nil, nil, invalid(req.Op, "%s", strings.Join(skipped, "; "))
	}
	return out, append(warnings, skipped...), nil
}

func acceptsKind(kinds []dataset.Kind, k dataset.Kind) bool {
	for _, want := range kinds {
		if want == k {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
