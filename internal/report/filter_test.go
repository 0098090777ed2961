package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	appErrors "github.com/fieldset/cmms-api/pkg/errors"
)

func compileOne(t *testing.T, entity string, clause FilterClause) (CompiledFilter, error) {
	t.Helper()
	reg := DefaultRegistry()
	e, ok := reg.Entity(entity)
	require.True(t, ok)
	filters, err := CompileFilters(reg, e, []FilterClause{clause})
	if err != nil {
		return CompiledFilter{}, err
	}
	require.Len(t, filters, 1)
	return filters[0], nil
}

func TestCompileFilterEq(t *testing.T) {
	f, err := compileOne(t, "users", FilterClause{Field: "username", Operator: "eq", Value: "jdoe"})
	require.NoError(t, err)
	require.Equal(t, OpEq, f.Op)
	require.Equal(t, "jdoe", f.Value)
	require.False(t, f.Dynamic())
}

func TestCompileFilterIntCoercion(t *testing.T) {
	// JSON numbers decode as float64.
	f, err := compileOne(t, "users", FilterClause{Field: "role_id", Operator: "eq", Value: float64(3)})
	require.NoError(t, err)
	require.Equal(t, int64(3), f.Value)

	_, err = compileOne(t, "users", FilterClause{Field: "role_id", Operator: "eq", Value: 3.5})
	require.Error(t, err)
	require.True(t, appErrors.HasCode(err, appErrors.ErrInvalidFilter))
}

func TestCompileFilterTimeCoercion(t *testing.T) {
	f, err := compileOne(t, "form_submissions", FilterClause{
		Field: "submitted_at", Operator: "gte", Value: "2026-01-15",
	})
	require.NoError(t, err)
	ts, ok := f.Value.(time.Time)
	require.True(t, ok)
	require.Equal(t, 2026, ts.Year())

	_, err = compileOne(t, "form_submissions", FilterClause{
		Field: "submitted_at", Operator: "gte", Value: "not a date",
	})
	require.Error(t, err)
	require.True(t, appErrors.HasCode(err, appErrors.ErrInvalidFilter))
}

func TestCompileFilterInRequiresList(t *testing.T) {
	_, err := compileOne(t, "users", FilterClause{Field: "role_id", Operator: "in", Value: float64(1)})
	require.Error(t, err)
	require.True(t, appErrors.HasCode(err, appErrors.ErrInvalidFilter))

	_, err = compileOne(t, "users", FilterClause{Field: "role_id", Operator: "in", Value: []interface{}{}})
	require.Error(t, err)
	require.True(t, appErrors.HasCode(err, appErrors.ErrInvalidFilter))

	f, err := compileOne(t, "users", FilterClause{
		Field: "role_id", Operator: "in", Value: []interface{}{float64(1), float64(2)},
	})
	require.NoError(t, err)
	require.Equal(t, []interface{}{int64(1), int64(2)}, f.Values)
}

func TestCompileFilterBetweenArity(t *testing.T) {
	_, err := compileOne(t, "users", FilterClause{
		Field: "role_id", Operator: "between", Value: []interface{}{float64(1)},
	})
	require.Error(t, err)
	require.True(t, appErrors.HasCode(err, appErrors.ErrInvalidFilter))

	f, err := compileOne(t, "users", FilterClause{
		Field: "role_id", Operator: "between", Value: []interface{}{float64(1), float64(9)},
	})
	require.NoError(t, err)
	require.Len(t, f.Values, 2)
}

func TestCompileFilterIsPolarity(t *testing.T) {
	f, err := compileOne(t, "users", FilterClause{Field: "deleted_at", Operator: "is", Value: "null"})
	require.NoError(t, err)
	require.True(t, f.WantNull)

	f, err = compileOne(t, "users", FilterClause{Field: "deleted_at", Operator: "is", Value: "not_null"})
	require.NoError(t, err)
	require.False(t, f.WantNull)

	_, err = compileOne(t, "users", FilterClause{Field: "deleted_at", Operator: "is", Value: "maybe"})
	require.Error(t, err)
	require.True(t, appErrors.HasCode(err, appErrors.ErrInvalidFilter))
}

func TestCompileFilterScalarRejectsList(t *testing.T) {
	_, err := compileOne(t, "users", FilterClause{
		Field: "username", Operator: "eq", Value: []interface{}{"a", "b"},
	})
	require.Error(t, err)
	require.True(t, appErrors.HasCode(err, appErrors.ErrInvalidFilter))
}

func TestCompileFilterBoolRejectsOrdering(t *testing.T) {
	_, err := compileOne(t, "roles", FilterClause{Field: "is_super_user", Operator: "gt", Value: true})
	require.Error(t, err)
	require.True(t, appErrors.HasCode(err, appErrors.ErrInvalidFilter))
}

func TestCompileFilterLikeRequiresTextField(t *testing.T) {
	_, err := compileOne(t, "users", FilterClause{Field: "role_id", Operator: "like", Value: "3"})
	require.Error(t, err)
	require.True(t, appErrors.HasCode(err, appErrors.ErrInvalidFilter))

	f, err := compileOne(t, "users", FilterClause{Field: "username", Operator: "like", Value: "ama"})
	require.NoError(t, err)
	require.Equal(t, "ama", f.Value)
}

func TestCompileFilterUnknownOperator(t *testing.T) {
	_, err := compileOne(t, "users", FilterClause{Field: "username", Operator: "matches", Value: "x"})
	require.Error(t, err)
	require.True(t, appErrors.HasCode(err, appErrors.ErrInvalidFilter))
}

func TestCompileFilterUnknownPath(t *testing.T) {
	_, err := compileOne(t, "users", FilterClause{Field: "shoe_size", Operator: "eq", Value: "44"})
	require.Error(t, err)
	require.True(t, appErrors.HasCode(err, appErrors.ErrUnknownField))
}

func TestCompileFilterAnswerColumn(t *testing.T) {
	f, err := compileOne(t, "form_submissions", FilterClause{
		Field: "answers.Machine status", Operator: "eq", Value: "OK",
	})
	require.NoError(t, err)
	require.True(t, f.Dynamic())
}

func TestFilterMatchesLike(t *testing.T) {
	f, err := compileOne(t, "users", FilterClause{Field: "email", Operator: "like", Value: "ACME"})
	require.NoError(t, err)

	require.True(t, f.Matches(Record{Values: map[string]interface{}{"email": "ops@acme.io"}}))
	require.False(t, f.Matches(Record{Values: map[string]interface{}{"email": "ops@example.io"}}))
	require.False(t, f.Matches(Record{Values: map[string]interface{}{"email": nil}}))
}

func TestFilterMatchesBetween(t *testing.T) {
	f, err := compileOne(t, "users", FilterClause{
		Field: "role_id", Operator: "between", Value: []interface{}{float64(2), float64(4)},
	})
	require.NoError(t, err)

	require.True(t, f.Matches(Record{Values: map[string]interface{}{"role_id": int64(3)}}))
	require.True(t, f.Matches(Record{Values: map[string]interface{}{"role_id": int64(2)}}))
	require.False(t, f.Matches(Record{Values: map[string]interface{}{"role_id": int64(5)}}))
	require.False(t, f.Matches(Record{Values: map[string]interface{}{"role_id": nil}}))
}

func TestFilterMatchesNotIn(t *testing.T) {
	f, err := compileOne(t, "users", FilterClause{
		Field: "username", Operator: "notin", Value: []interface{}{"root", "admin"},
	})
	require.NoError(t, err)

	require.True(t, f.Matches(Record{Values: map[string]interface{}{"username": "jdoe"}}))
	require.False(t, f.Matches(Record{Values: map[string]interface{}{"username": "root"}}))
	// Null never satisfies a set exclusion.
	require.False(t, f.Matches(Record{Values: map[string]interface{}{"username": nil}}))
}

func TestFilterMatchesIsNull(t *testing.T) {
	f, err := compileOne(t, "users", FilterClause{Field: "contact_number", Operator: "is", Value: "null"})
	require.NoError(t, err)

	require.True(t, f.Matches(Record{Values: map[string]interface{}{}}))
	require.False(t, f.Matches(Record{Values: map[string]interface{}{"contact_number": "555"}}))
}

func TestFilterMatchesAnswer(t *testing.T) {
	f, err := compileOne(t, "form_submissions", FilterClause{
		Field: "answers.Machine status", Operator: "eq", Value: "OK",
	})
	require.NoError(t, err)

	rec := Record{Answers: []AnswerPair{{Question: "Machine status", Answer: "OK"}}}
	require.True(t, f.Matches(rec))
	require.False(t, f.Matches(Record{}))
}
