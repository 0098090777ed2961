package report

import (
	"strings"

	"github.com/fieldset/cmms-api/pkg/export"
)

// ResolveColumns validates the requested column paths, or returns the
// entity's fixed default set when none are requested. Order is
// preserved; duplicate paths keep their first position.
func ResolveColumns(reg *Registry, entity *Entity, requested []string) ([]*ResolvedField, error) {
	paths := requested
	if len(paths) == 0 {
		paths = entity.DefaultColumns
	}
	seen := make(map[string]bool, len(paths))
	out := make([]*ResolvedField, 0, len(paths))
	for _, p := range paths {
		if seen[p] {
			continue
		}
		seen[p] = true
		rf, err := reg.Resolve(entity, p)
		if err != nil {
			return nil, err
		}
		out = append(out, rf)
	}
	return out, nil
}

// columnFor converts a resolved field into its rendered column.
func columnFor(rf *ResolvedField) export.Column {
	if rf.Field == nil {
		return export.Column{
			Path:  rf.Path,
			Label: strings.TrimPrefix(rf.Path, AnswersPrefix),
			Kind:  export.ColumnAnswer,
		}
	}
	return export.Column{Path: rf.Path, Label: export.Label(rf.Path), Kind: export.ColumnStatic}
}
