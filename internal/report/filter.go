package report

import (
	"fmt"
	"strings"
	"time"

	appErrors "github.com/fieldset/cmms-api/pkg/errors"
)

// Operator is one token of the filter DSL.
type Operator string

const (
	OpEq      Operator = "eq"
	OpNeq     Operator = "neq"
	OpGt      Operator = "gt"
	OpGte     Operator = "gte"
	OpLt      Operator = "lt"
	OpLte     Operator = "lte"
	OpLike    Operator = "like"
	OpIn      Operator = "in"
	OpNotIn   Operator = "notin"
	OpBetween Operator = "between"
	OpIs      Operator = "is"
)

// ParseOperator validates a wire token.
func ParseOperator(s string) (Operator, error) {
	op := Operator(strings.ToLower(strings.TrimSpace(s)))
	switch op {
	case OpEq, OpNeq, OpGt, OpGte, OpLt, OpLte, OpLike, OpIn, OpNotIn, OpBetween, OpIs:
		return op, nil
	}
	return "", fmt.Errorf("unknown operator %q", s)
}

// CompiledFilter is one validated, type-coerced predicate. All
// filters of a query combine with AND.
type CompiledFilter struct {
	Field *ResolvedField
	Op    Operator
	// Value holds the coerced scalar for single-arity operators.
	Value interface{}
	// Values holds the coerced set for in/notin and the two bounds
	// for between.
	Values []interface{}
	// WantNull is the polarity of an "is" check.
	WantNull bool
}

// Dynamic reports whether the filter targets a discovered answer
// column rather than a schema field.
func (f CompiledFilter) Dynamic() bool { return f.Field.Field == nil }

// CompileFilters resolves and validates every clause before any query
// runs. Arity mismatches and uncoercible values fail with the invalid
// filter code; bad paths fail with the unknown field code.
func CompileFilters(reg *Registry, entity *Entity, clauses []FilterClause) ([]CompiledFilter, error) {
	out := make([]CompiledFilter, 0, len(clauses))
	for _, c := range clauses {
		f, err := compileFilter(reg, entity, c)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func compileFilter(reg *Registry, entity *Entity, c FilterClause) (CompiledFilter, error) {
	rf, err := reg.Resolve(entity, c.Field)
	if err != nil {
		return CompiledFilter{}, err
	}
	op, err := ParseOperator(c.Operator)
	if err != nil {
		return CompiledFilter{}, appErrors.Detail(appErrors.ErrInvalidFilter, err)
	}

	kind := KindString
	if rf.Field != nil {
		kind = rf.Field.Kind
	}

	out := CompiledFilter{Field: rf, Op: op}
	switch op {
	case OpIn, OpNotIn:
		list, ok := c.Value.([]interface{})
		if !ok || len(list) == 0 {
			return CompiledFilter{}, invalidFilter(c.Field,
				fmt.Errorf("operator %s requires a non-empty list value", op))
		}
		out.Values, err = coerceList(kind, list)
	case OpBetween:
		list, ok := c.Value.([]interface{})
		if !ok || len(list) != 2 {
			return CompiledFilter{}, invalidFilter(c.Field,
				fmt.Errorf("operator between requires a two-element [low, high] value"))
		}
		out.Values, err = coerceList(kind, list)
	case OpIs:
		s, ok := c.Value.(string)
		if !ok || (s != "null" && s != "not_null") {
			return CompiledFilter{}, invalidFilter(c.Field,
				fmt.Errorf(`operator is requires "null" or "not_null"`))
		}
		out.WantNull = s == "null"
	case OpLike:
		if kind != KindString {
			return CompiledFilter{}, invalidFilter(c.Field,
				fmt.Errorf("operator like requires a text field"))
		}
		s, ok := c.Value.(string)
		if !ok {
			return CompiledFilter{}, invalidFilter(c.Field,
				fmt.Errorf("operator like requires a string value"))
		}
		out.Value = s
	default:
		if _, isList := c.Value.([]interface{}); isList || c.Value == nil {
			return CompiledFilter{}, invalidFilter(c.Field,
				fmt.Errorf("operator %s requires a single scalar value", op))
		}
		out.Value, err = coerceScalar(kind, c.Value)
	}
	if err != nil {
		return CompiledFilter{}, invalidFilter(c.Field, err)
	}

	if (op == OpGt || op == OpGte || op == OpLt || op == OpLte || op == OpBetween) &&
		kind == KindBool {
		return CompiledFilter{}, invalidFilter(c.Field,
			fmt.Errorf("operator %s cannot apply to a boolean field", op))
	}
	return out, nil
}

func invalidFilter(field string, err error) error {
	return appErrors.Detail(appErrors.ErrInvalidFilter,
		fmt.Errorf("filter on %q: %w", field, err))
}

func coerceList(kind FieldKind, in []interface{}) ([]interface{}, error) {
	out := make([]interface{}, len(in))
	for i, v := range in {
		coerced, err := coerceScalar(kind, v)
		if err != nil {
			return nil, err
		}
		out[i] = coerced
	}
	return out, nil
}

// coerceScalar converts a decoded JSON value to the field's logical
// type. JSON numbers arrive as float64.
func coerceScalar(kind FieldKind, v interface{}) (interface{}, error) {
	switch kind {
	case KindInt:
		switch n := v.(type) {
		case float64:
			if n != float64(int64(n)) {
				return nil, fmt.Errorf("expected an integer, got %v", v)
			}
			return int64(n), nil
		case int:
			return int64(n), nil
		case int64:
			return n, nil
		}
		return nil, fmt.Errorf("expected an integer, got %T", v)
	case KindFloat:
		switch n := v.(type) {
		case float64:
			return n, nil
		case int:
			return float64(n), nil
		case int64:
			return float64(n), nil
		}
		return nil, fmt.Errorf("expected a number, got %T", v)
	case KindBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
		return nil, fmt.Errorf("expected a boolean, got %T", v)
	case KindTime:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected a timestamp string, got %T", v)
		}
		return parseTime(s)
	default:
		if s, ok := v.(string); ok {
			return s, nil
		}
		return nil, fmt.Errorf("expected a string, got %T", v)
	}
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}
