package report

import "context"

// AnswerPair is one submitted question/answer carried by a record.
// Pairs keep submission order.
type AnswerPair struct {
	Question string
	Answer   string
}

// Record is one fetched row. Values are keyed by the resolved
// dot-path that selected them.
type Record struct {
	Values  map[string]interface{}
	Answers []AnswerPair
}

// Query is the planned fetch for one entity.
type Query struct {
	Entity  *Entity
	Fields  []*ResolvedField
	Filters []CompiledFilter
	Sort    []CompiledSort
	// WithAnswers requests the record's submitted answer pairs.
	WithAnswers bool
}

// DataSource fetches records for a planned query. Implementations
// must honor filters, sort order and soft-delete exclusion.
type DataSource interface {
	Fetch(ctx context.Context, q Query) ([]Record, error)
}
