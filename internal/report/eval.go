package report

import (
	"strings"
	"time"
)

// Matches evaluates the filter against an already fetched record.
// The storage layer pushes static-field filters into its query;
// in-memory evaluation covers discovered answer columns and test
// doubles.
func (f CompiledFilter) Matches(rec Record) bool {
	v := recordValue(rec, f.Field)
	switch f.Op {
	case OpIs:
		return (v == nil) == f.WantNull
	case OpLike:
		s, ok := v.(string)
		if !ok {
			return false
		}
		needle, _ := f.Value.(string)
		return strings.Contains(strings.ToLower(s), strings.ToLower(needle))
	case OpIn:
		return containsValue(f.Values, v)
	case OpNotIn:
		return v != nil && !containsValue(f.Values, v)
	case OpBetween:
		lo := compareValues(v, f.Values[0])
		hi := compareValues(v, f.Values[1])
		return lo != cmpNone && hi != cmpNone && lo >= 0 && hi <= 0
	case OpEq:
		return compareValues(v, f.Value) == 0
	case OpNeq:
		c := compareValues(v, f.Value)
		return c != cmpNone && c != 0
	case OpGt:
		return compareValues(v, f.Value) == 1
	case OpGte:
		c := compareValues(v, f.Value)
		return c == 0 || c == 1
	case OpLt:
		return compareValues(v, f.Value) == -1
	case OpLte:
		c := compareValues(v, f.Value)
		return c == 0 || c == -1
	}
	return false
}

func containsValue(set []interface{}, v interface{}) bool {
	for _, candidate := range set {
		if compareValues(v, candidate) == 0 {
			return true
		}
	}
	return false
}

// recordValue reads the record value selected by a resolved field.
// Answer columns look up the question text in the record's pairs.
func recordValue(rec Record, rf *ResolvedField) interface{} {
	if rf.Field == nil {
		question := strings.TrimPrefix(rf.Path, AnswersPrefix)
		for _, pair := range rec.Answers {
			if pair.Question == question {
				return pair.Answer
			}
		}
		return nil
	}
	v, ok := rec.Values[rf.Path]
	if !ok {
		return nil
	}
	return v
}

// cmpNone marks incomparable values (nil or mismatched types).
const cmpNone = -2

// compareValues orders two scalars of the same logical type,
// returning -1, 0, 1 or cmpNone.
func compareValues(a, b interface{}) int {
	if a == nil || b == nil {
		if a == nil && b == nil {
			return 0
		}
		return cmpNone
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return cmpNone
		}
		return strings.Compare(av, bv)
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return cmpNone
		}
		switch {
		case av == bv:
			return 0
		case bv:
			return -1
		default:
			return 1
		}
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			return cmpNone
		}
		switch {
		case av.Equal(bv):
			return 0
		case av.Before(bv):
			return -1
		default:
			return 1
		}
	case int64:
		if n, ok := toInt64(b); ok {
			return compareInt64(av, n)
		}
		return cmpNone
	case int:
		if n, ok := toInt64(b); ok {
			return compareInt64(int64(av), n)
		}
		return cmpNone
	case float64:
		if n, ok := toFloat64(b); ok {
			switch {
			case av == n:
				return 0
			case av < n:
				return -1
			default:
				return 1
			}
		}
		return cmpNone
	}
	return cmpNone
}

func compareInt64(a, b int64) int {
	switch {
	case a == b:
		return 0
	case a < b:
		return -1
	default:
		return 1
	}
}

func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case float64:
		if n == float64(int64(n)) {
			return int64(n), true
		}
	}
	return 0, false
}

func toFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}
