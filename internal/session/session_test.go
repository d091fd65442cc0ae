package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/prep/internal/dataset"
	"github.com/JonMunkholm/prep/internal/ops"
)

func loaded(t *testing.T, header []string, rows [][]string) *Session {
	t.Helper()
	f, err := dataset.FromRecords(header, rows)
	require.NoError(t, err)

	s := New()
	_, err = s.Load(f, Source{Name: "test.csv", Encoding: "utf-8"})
	require.NoError(t, err)
	return s
}

func sample(t *testing.T) *Session {
	return loaded(t,
		[]string{"price", "color", "when", "qty"},
		[][]string{
			{"yen", "unit", "date", "pcs"},
			{"1,000", "red", "20230101", "1"},
			{"", "blue", "20230102", "2"},
			{"2,000", "red", "bad", ""},
			{"2,000", "red", "bad", ""},
		},
	)
}

func TestEmptySessionRejectsEverything(t *testing.T) {
	s := New()
	assert.Equal(t, StateEmpty, s.State())

	_, err := s.Apply(ops.Request{Op: "drop_duplicates"})
	assert.ErrorIs(t, err, ErrEmpty)
	_, err = s.Reset()
	assert.ErrorIs(t, err, ErrEmpty)
	_, err = s.Current()
	assert.ErrorIs(t, err, ErrEmpty)
	_, err = s.PromoteHeader(0)
	assert.ErrorIs(t, err, ErrEmpty)
	assert.ErrorIs(t, s.SetRoles("a", []string{"b"}), ErrEmpty)
}

func TestResetIdempotence(t *testing.T) {
	s := sample(t)
	orig, err := s.Original()
	require.NoError(t, err)

	steps := []ops.Request{
		{Op: "coerce", Method: "numeric", Columns: []string{"price"}, Scope: ops.ScopeExcludeFirst},
		{Op: "parse_dates", Method: "compact", Columns: []string{"when"}, Scope: ops.ScopeExcludeFirst},
		{Op: "fill_missing", Method: "mean", Columns: []string{"price"}},
		{Op: "upper", Columns: []string{"color"}},
		{Op: "drop_duplicates"},
		{Op: "one_hot", Columns: []string{"color"}},
		{Op: "drop_columns", Columns: []string{"qty"}},
	}
	for _, req := range steps {
		_, err := s.Apply(req)
		require.NoError(t, err, req.String())
	}
	_, err = s.PromoteHeader(0)
	require.NoError(t, err)

	cur, err := s.Current()
	require.NoError(t, err)
	require.False(t, cur.Equal(orig))

	_, err = s.Reset()
	require.NoError(t, err)
	cur, err = s.Current()
	require.NoError(t, err)
	assert.True(t, cur.Equal(orig))

	_, err = s.Reset()
	require.NoError(t, err)
	again, err := s.Current()
	require.NoError(t, err)
	assert.True(t, again.Equal(orig))
}

func TestSnapshotsAreIndependent(t *testing.T) {
	s := sample(t)

	cur, err := s.Current()
	require.NoError(t, err)
	cur.Columns[0].Values[1] = dataset.Text("tampered")

	fresh, err := s.Current()
	require.NoError(t, err)
	assert.Equal(t, "1,000", fresh.Columns[0].Values[1].String())

	_, err = s.Apply(ops.Request{Op: "lower", Columns: []string{"color"}})
	require.NoError(t, err)
	orig, err := s.Original()
	require.NoError(t, err)
	assert.Equal(t, "unit", orig.Columns[1].Values[0].String())
}

func TestRejectedOperationLeavesSessionUnchanged(t *testing.T) {
	s := loaded(t, []string{"a", "b"}, [][]string{{"10", "0"}, {"2", "5"}})
	before, err := s.Current()
	require.NoError(t, err)
	steps := len(s.History())

	_, err = s.Apply(ops.Request{Op: "arithmetic", Method: "quotient", Columns: []string{"a", "b"}, NewColumn: "r"})
	require.Error(t, err)
	assert.True(t, ops.IsComputation(err))

	_, err = s.Apply(ops.Request{Op: "arithmetic", Method: "sum", Columns: []string{"a"}, NewColumn: "r"})
	require.Error(t, err)
	assert.True(t, ops.IsValidation(err))

	after, err := s.Current()
	require.NoError(t, err)
	assert.True(t, before.Equal(after))
	assert.Len(t, s.History(), steps)
	assert.Equal(t, StateLoaded, s.State())
}

func TestApplyRecordsHistory(t *testing.T) {
	s := sample(t)

	e, err := s.Apply(ops.Request{Op: "coerce", Method: "numeric", Columns: []string{"price"}})
	require.NoError(t, err)
	assert.Equal(t, ActionApply, e.Action)
	assert.Equal(t, 1, e.MissingDelta, "the unit row becomes missing")
	assert.Equal(t, 5, e.RowsBefore)
	assert.Equal(t, 5, e.RowsAfter)
	assert.NotEmpty(t, e.Warnings)

	_, err = s.Reset()
	require.NoError(t, err)

	hist := s.History()
	require.Len(t, hist, 3)
	assert.Equal(t, []string{ActionLoad, ActionApply, ActionReset},
		[]string{hist[0].Action, hist[1].Action, hist[2].Action})
	assert.Equal(t, "price", hist[1].Request.Columns[0])
}

func TestPromoteHeader(t *testing.T) {
	s := loaded(t,
		[]string{"0", "1", "2"},
		[][]string{
			{"report", "", ""},
			{"id", "score", "id"},
			{"1", "9.5", "x"},
			{"2", "7", "y"},
		},
	)

	e, err := s.PromoteHeader(1)
	require.NoError(t, err)
	assert.Equal(t, 4, e.RowsBefore)
	assert.Equal(t, 2, e.RowsAfter)

	cur, err := s.Current()
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "score", "id.1"}, cur.Names())
	assert.Equal(t, [][]string{{"1", "9.5", "x"}, {"2", "7", "y"}}, cur.Records())

	score, err := cur.Column("score")
	require.NoError(t, err)
	assert.Equal(t, dataset.KindNumeric, score.Kind, "text columns are re-inferred")

	_, err = s.PromoteHeader(5)
	assert.True(t, ops.IsValidation(err))
}

func TestPromoteHeaderStringifiesNulls(t *testing.T) {
	s := loaded(t,
		[]string{"0", "1"},
		[][]string{
			{"id", ""},
			{"1", "2"},
		},
	)

	_, err := s.PromoteHeader(0)
	require.NoError(t, err)

	cur, err := s.Current()
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "nan"}, cur.Names())
}

func TestRoles(t *testing.T) {
	s := sample(t)

	roles, _, err := s.Roles()
	require.NoError(t, err)
	assert.Nil(t, roles)

	assert.True(t, ops.IsValidation(s.SetRoles("", []string{"qty"})))
	assert.True(t, ops.IsValidation(s.SetRoles("price", nil)))
	assert.True(t, ops.IsValidation(s.SetRoles("price", []string{"price"})))
	assert.True(t, ops.IsValidation(s.SetRoles("price", []string{"qty", "qty"})))
	assert.True(t, ops.IsValidation(s.SetRoles("price", []string{"nope"})))

	require.NoError(t, s.SetRoles("price", []string{"color", "qty"}))

	_, err = s.Apply(ops.Request{Op: "one_hot", Columns: []string{"color"}})
	require.NoError(t, err)

	roles, warnings, err := s.Roles()
	require.NoError(t, err)
	require.NotNil(t, roles)
	assert.Equal(t, "price", roles.Target)
	assert.Equal(t, []string{`feature column "color" no longer exists`}, warnings)

	_, err = s.Reset()
	require.NoError(t, err)
	roles, _, err = s.Roles()
	require.NoError(t, err)
	assert.Nil(t, roles, "reset clears roles")
}

func TestReloadDiscardsPreviousState(t *testing.T) {
	s := sample(t)
	require.NoError(t, s.SetRoles("price", []string{"qty"}))
	_, err := s.Apply(ops.Request{Op: "drop_duplicates"})
	require.NoError(t, err)

	f, err := dataset.FromRecords([]string{"x"}, [][]string{{"1"}})
	require.NoError(t, err)
	_, err = s.Load(f, Source{Name: "other.csv"})
	require.NoError(t, err)

	roles, _, err := s.Roles()
	require.NoError(t, err)
	assert.Nil(t, roles)
	assert.Len(t, s.History(), 1)
	assert.Equal(t, "other.csv", s.Summary().Source.Name)
	assert.Equal(t, 1, s.Summary().Rows)
}

func TestClearReturnsToEmpty(t *testing.T) {
	s := sample(t)
	s.Clear()

	assert.Equal(t, StateEmpty, s.State())
	assert.Empty(t, s.History())
	_, err := s.Current()
	assert.ErrorIs(t, err, ErrEmpty)
	assert.Equal(t, 0, s.Summary().Rows)
}

func TestConcurrentApplyIsSerialized(t *testing.T) {
	rows := make([][]string, 50)
	for i := range rows {
		rows[i] = []string{"a"}
	}
	s := loaded(t, []string{"s"}, rows)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			op := "upper"
			if i%2 == 0 {
				op = "lower"
			}
			if _, err := s.Apply(ops.Request{Op: op, Columns: []string{"s"}}); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
	assert.Len(t, s.History(), 21)
	cur, err := s.Current()
	require.NoError(t, err)
	assert.Equal(t, 50, cur.Rows())
}
