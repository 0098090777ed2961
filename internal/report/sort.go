package report

import (
	"fmt"
	"sort"
	"strings"

	appErrors "github.com/fieldset/cmms-api/pkg/errors"
)

// CompiledSort is one validated ordering key.
type CompiledSort struct {
	Field *ResolvedField
	Desc  bool
}

// Dynamic reports whether the key targets a discovered answer column.
func (s CompiledSort) Dynamic() bool { return s.Field.Field == nil }

// CompileSorts resolves the requested ordering, falling back to the
// entity's default sort when none is given.
func CompileSorts(reg *Registry, entity *Entity, clauses []SortClause) ([]CompiledSort, error) {
	if len(clauses) == 0 {
		clauses = entity.DefaultSort
	}
	out := make([]CompiledSort, 0, len(clauses))
	for _, c := range clauses {
		rf, err := reg.Resolve(entity, c.Field)
		if err != nil {
			return nil, err
		}
		desc, err := parseDirection(c.Direction)
		if err != nil {
			return nil, appErrors.Detail(appErrors.ErrInvalidFilter,
				fmt.Errorf("sort on %q: %w", c.Field, err))
		}
		out = append(out, CompiledSort{Field: rf, Desc: desc})
	}
	return out, nil
}

func parseDirection(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "asc", "ascending":
		return false, nil
	case "desc", "descending":
		return true, nil
	}
	return false, fmt.Errorf("unknown sort direction %q", s)
}

// SortRecords orders records by the compiled keys. The sort is
// stable, so ties keep storage order. Nil values order last
// regardless of direction.
func SortRecords(records []Record, keys []CompiledSort) {
	if len(keys) == 0 {
		return
	}
	sort.SliceStable(records, func(i, j int) bool {
		for _, key := range keys {
			a := recordValue(records[i], key.Field)
			b := recordValue(records[j], key.Field)
			if a == nil || b == nil {
				if a == nil && b == nil {
					continue
				}
				return b == nil
			}
			c := compareValues(a, b)
			if c == cmpNone || c == 0 {
				continue
			}
			if key.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}
