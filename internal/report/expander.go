package report

import (
	"strings"

	"github.com/fieldset/cmms-api/pkg/export"
)

// expandAnswerColumns fixes the final column list for an
// answer-bearing entity. With explicit answers.<text> columns the
// request order wins; otherwise every question text discovered in the
// fetched rows is appended after the static columns, in first-seen
// order. Headers must be final before any cell is emitted, hence the
// discovery pass runs over all records up front.
func expandAnswerColumns(entity *Entity, fields []*ResolvedField, records []Record) []export.Column {
	columns := make([]export.Column, 0, len(fields))
	explicit := false
	for _, rf := range fields {
		if rf.Field == nil {
			explicit = true
		}
		columns = append(columns, columnFor(rf))
	}
	if explicit || !entity.HasAnswers {
		return columns
	}

	seen := make(map[string]bool)
	for _, rec := range records {
		for _, pair := range rec.Answers {
			if seen[pair.Question] {
				continue
			}
			seen[pair.Question] = true
			columns = append(columns, export.Column{
				Path:  AnswersPrefix + pair.Question,
				Label: pair.Question,
				Kind:  export.ColumnAnswer,
			})
		}
	}
	return columns
}

// cellValue reads one cell for a finalized column. Missing answers
// yield nil, which renders as an empty cell.
func cellValue(rec Record, col export.Column) interface{} {
	if col.Kind == export.ColumnAnswer {
		question := strings.TrimPrefix(col.Path, AnswersPrefix)
		for _, pair := range rec.Answers {
			if pair.Question == question {
				return pair.Answer
			}
		}
		return nil
	}
	return rec.Values[col.Path]
}
