package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/fieldset/cmms-api/internal/report"
)

// DatasetRepository fetches report rows, translating compiled filters
// and sort keys into one SQL query per entity. Relation hops become
// LEFT JOINs; soft-deleted base rows are always excluded.
type DatasetRepository struct {
	db *sqlx.DB
}

// NewDatasetRepository constructs the repository.
func NewDatasetRepository(db *sqlx.DB) *DatasetRepository {
	return &DatasetRepository{db: db}
}

// Fetch runs the planned query and returns records in storage order.
func (r *DatasetRepository) Fetch(ctx context.Context, q report.Query) ([]report.Record, error) {
	qb := newQueryBuilder(q.Entity)

	selected := make([]string, 0, len(q.Fields)+1)
	idIdx := -1
	if q.WithAnswers {
		idIdx = 0
		selected = append(selected, "")
		qb.addSelect("t0.id")
	}
	for _, rf := range q.Fields {
		if rf.Field == nil {
			continue
		}
		qb.addSelect(qb.columnExpr(rf))
		selected = append(selected, rf.Path)
	}
	if len(qb.selects) == 0 {
		qb.addSelect("t0.id")
		selected = append(selected, "id")
	}

	for _, f := range q.Filters {
		if err := qb.addFilter(f); err != nil {
			return nil, err
		}
	}
	for _, s := range q.Sort {
		qb.addSort(s)
	}

	query, args := qb.build()
	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Entity.Name, err)
	}
	defer rows.Close()

	var records []report.Record
	var ids []int64
	byID := make(map[int64][]int)
	for rows.Next() {
		raw, err := rows.SliceScan()
		if err != nil {
			return nil, fmt.Errorf("scan %s row: %w", q.Entity.Name, err)
		}
		rec := report.Record{Values: make(map[string]interface{}, len(selected))}
		for i, path := range selected {
			if i == idIdx {
				if id, ok := toInt64(raw[i]); ok {
					if _, seen := byID[id]; !seen {
						ids = append(ids, id)
					}
					byID[id] = append(byID[id], len(records))
				}
				continue
			}
			rec.Values[path] = normalizeValue(raw[i])
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s rows: %w", q.Entity.Name, err)
	}

	if q.WithAnswers && len(ids) > 0 {
		if err := r.attachAnswers(ctx, ids, byID, records); err != nil {
			return nil, err
		}
	}
	return records, nil
}

// attachAnswers loads the (question, answer) pairs for the fetched
// submissions in one query, preserving submission insertion order.
func (r *DatasetRepository) attachAnswers(ctx context.Context, ids []int64, byID map[int64][]int, records []report.Record) error {
	const query = `SELECT s.form_submission_id, q.text, a.value
FROM answers_submitted s
JOIN questions q ON q.id = s.question_id
JOIN answers a ON a.id = s.answer_id
WHERE s.form_submission_id = ANY($1)
ORDER BY s.form_submission_id, s.id`
	rows, err := r.db.QueryxContext(ctx, query, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("query submitted answers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var submissionID int64
		var question, answer string
		if err := rows.Scan(&submissionID, &question, &answer); err != nil {
			return fmt.Errorf("scan submitted answer: %w", err)
		}
		for _, idx := range byID[submissionID] {
			records[idx].Answers = append(records[idx].Answers,
				report.AnswerPair{Question: question, Answer: answer})
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate submitted answers: %w", err)
	}
	return nil
}

// DistinctQuestionTexts lists every question text with at least one
// submitted answer, in first-submission order. Used by the column
// catalog for answer-bearing entities.
func (r *DatasetRepository) DistinctQuestionTexts(ctx context.Context) ([]string, error) {
	const query = `SELECT q.text
FROM answers_submitted s
JOIN questions q ON q.id = s.question_id
GROUP BY q.id, q.text
ORDER BY MIN(s.id)`
	var texts []string
	if err := r.db.SelectContext(ctx, &texts, query); err != nil {
		return nil, fmt.Errorf("query question texts: %w", err)
	}
	return texts, nil
}

// queryBuilder assembles one SELECT over the entity's join graph.
type queryBuilder struct {
	entity  *report.Entity
	selects []string
	joins   []string
	aliases map[string]string
	where   []string
	order   []string
	args    []interface{}
}

func newQueryBuilder(entity *report.Entity) *queryBuilder {
	qb := &queryBuilder{
		entity:  entity,
		aliases: map[string]string{"": "t0"},
	}
	if entity.SoftDelete {
		qb.where = append(qb.where, "t0.is_deleted = FALSE")
	}
	return qb
}

func (qb *queryBuilder) addSelect(expr string) {
	qb.selects = append(qb.selects, expr)
}

// columnExpr returns the aliased column for a resolved field, adding
// the LEFT JOINs its relation hops require.
func (qb *queryBuilder) columnExpr(rf *report.ResolvedField) string {
	alias := "t0"
	chain := ""
	for _, hop := range rf.Hops {
		parent := alias
		if chain == "" {
			chain = hop.Name
		} else {
			chain = chain + "." + hop.Name
		}
		existing, ok := qb.aliases[chain]
		if ok {
			alias = existing
			continue
		}
		alias = fmt.Sprintf("t%d", len(qb.aliases))
		qb.aliases[chain] = alias
		qb.joins = append(qb.joins, fmt.Sprintf("LEFT JOIN %s %s ON %s.%s = %s.%s",
			hop.TargetEntity.Table, alias, parent, hop.LocalColumn, alias, hop.ForeignColumn))
	}
	return alias + "." + rf.Field.Column
}

func (qb *queryBuilder) addFilter(f report.CompiledFilter) error {
	col := qb.columnExpr(f.Field)
	switch f.Op {
	case report.OpEq:
		qb.where = append(qb.where, fmt.Sprintf("%s = %s", col, qb.arg(f.Value)))
	case report.OpNeq:
		qb.where = append(qb.where, fmt.Sprintf("%s <> %s", col, qb.arg(f.Value)))
	case report.OpGt:
		qb.where = append(qb.where, fmt.Sprintf("%s > %s", col, qb.arg(f.Value)))
	case report.OpGte:
		qb.where = append(qb.where, fmt.Sprintf("%s >= %s", col, qb.arg(f.Value)))
	case report.OpLt:
		qb.where = append(qb.where, fmt.Sprintf("%s < %s", col, qb.arg(f.Value)))
	case report.OpLte:
		qb.where = append(qb.where, fmt.Sprintf("%s <= %s", col, qb.arg(f.Value)))
	case report.OpLike:
		pattern, _ := f.Value.(string)
		qb.where = append(qb.where,
			fmt.Sprintf(`%s ILIKE %s ESCAPE '\'`, col, qb.arg("%"+escapeLike(pattern)+"%")))
	case report.OpIn, report.OpNotIn:
		placeholders := make([]string, len(f.Values))
		for i, v := range f.Values {
			placeholders[i] = qb.arg(v)
		}
		op := "IN"
		if f.Op == report.OpNotIn {
			op = "NOT IN"
		}
		qb.where = append(qb.where, fmt.Sprintf("%s %s (%s)", col, op, strings.Join(placeholders, ", ")))
	case report.OpBetween:
		qb.where = append(qb.where,
			fmt.Sprintf("%s BETWEEN %s AND %s", col, qb.arg(f.Values[0]), qb.arg(f.Values[1])))
	case report.OpIs:
		if f.WantNull {
			qb.where = append(qb.where, col+" IS NULL")
		} else {
			qb.where = append(qb.where, col+" IS NOT NULL")
		}
	default:
		return fmt.Errorf("operator %s has no SQL translation", f.Op)
	}
	return nil
}

func (qb *queryBuilder) addSort(s report.CompiledSort) {
	dir := "ASC"
	if s.Desc {
		dir = "DESC"
	}
	// NULLS LAST keeps parity with the in-memory comparator.
	qb.order = append(qb.order, fmt.Sprintf("%s %s NULLS LAST", qb.columnExpr(s.Field), dir))
}

func (qb *queryBuilder) arg(v interface{}) string {
	qb.args = append(qb.args, v)
	return fmt.Sprintf("$%d", len(qb.args))
}

func (qb *queryBuilder) build() (string, []interface{}) {
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(qb.selects, ", "))
	b.WriteString(" FROM ")
	b.WriteString(qb.entity.Table)
	b.WriteString(" t0")
	for _, join := range qb.joins {
		b.WriteString(" ")
		b.WriteString(join)
	}
	if len(qb.where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(qb.where, " AND "))
	}
	if len(qb.order) > 0 {
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(qb.order, ", "))
	}
	return b.String(), qb.args
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func normalizeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case time.Time:
		return val
	default:
		return v
	}
}

func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case []byte:
		var out int64
		if _, err := fmt.Sscanf(string(n), "%d", &out); err == nil {
			return out, true
		}
	}
	return 0, false
}
