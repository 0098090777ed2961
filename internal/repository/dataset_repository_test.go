package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/fieldset/cmms-api/internal/report"
)

func newDatasetRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func compiledQuery(t *testing.T, entity string, columns []string, filters []report.FilterClause, sorts []report.SortClause) report.Query {
	t.Helper()
	reg := report.DefaultRegistry()
	e, ok := reg.Entity(entity)
	require.True(t, ok)
	fields, err := report.ResolveColumns(reg, e, columns)
	require.NoError(t, err)
	compiled, err := report.CompileFilters(reg, e, filters)
	require.NoError(t, err)
	sorted, err := report.CompileSorts(reg, e, sorts)
	require.NoError(t, err)
	return report.Query{
		Entity:      e,
		Fields:      fields,
		Filters:     compiled,
		Sort:        sorted,
		WithAnswers: e.HasAnswers,
	}
}

func TestDatasetRepositoryFetchJoinsAndFilters(t *testing.T) {
	db, mock, cleanup := newDatasetRepoMock(t)
	defer cleanup()
	repo := NewDatasetRepository(db)

	q := compiledQuery(t, "users",
		[]string{"id", "username", "role.name"},
		[]report.FilterClause{{Field: "role.name", Operator: "eq", Value: "ADMIN"}},
		[]report.SortClause{{Field: "username", Direction: "asc"}})

	expected := "SELECT t0.id, t0.username, t1.name" +
		" FROM users t0 LEFT JOIN roles t1 ON t0.role_id = t1.id" +
		" WHERE t0.is_deleted = FALSE AND t1.name = $1" +
		" ORDER BY t0.username ASC NULLS LAST"
	rows := sqlmock.NewRows([]string{"id", "username", "name"}).
		AddRow(int64(1), "amara", "ADMIN")
	mock.ExpectQuery(regexp.QuoteMeta(expected)).
		WithArgs("ADMIN").
		WillReturnRows(rows)

	records, err := repo.Fetch(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "amara", records[0].Values["username"])
	require.Equal(t, "ADMIN", records[0].Values["role.name"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDatasetRepositoryJoinReusedAcrossHops(t *testing.T) {
	db, mock, cleanup := newDatasetRepoMock(t)
	defer cleanup()
	repo := NewDatasetRepository(db)

	// Both columns hop through the same relation; the join appears once.
	q := compiledQuery(t, "users", []string{"role.name", "role.is_super_user"}, nil, nil)
	q.Sort = nil

	expected := "SELECT t1.name, t1.is_super_user" +
		" FROM users t0 LEFT JOIN roles t1 ON t0.role_id = t1.id" +
		" WHERE t0.is_deleted = FALSE"
	mock.ExpectQuery(regexp.QuoteMeta(expected)).
		WillReturnRows(sqlmock.NewRows([]string{"name", "is_super_user"}))

	_, err := repo.Fetch(context.Background(), q)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDatasetRepositoryFetchOperators(t *testing.T) {
	db, mock, cleanup := newDatasetRepoMock(t)
	defer cleanup()
	repo := NewDatasetRepository(db)

	q := compiledQuery(t, "users",
		[]string{"id"},
		[]report.FilterClause{
			{Field: "username", Operator: "like", Value: "50%_off"},
			{Field: "role_id", Operator: "in", Value: []interface{}{float64(1), float64(2)}},
			{Field: "id", Operator: "between", Value: []interface{}{float64(10), float64(20)}},
			{Field: "deleted_at", Operator: "is", Value: "null"},
		},
		[]report.SortClause{{Field: "created_at", Direction: "desc"}})

	expected := `SELECT t0.id FROM users t0 WHERE t0.is_deleted = FALSE` +
		` AND t0.username ILIKE $1 ESCAPE '\'` +
		` AND t0.role_id IN ($2, $3)` +
		` AND t0.id BETWEEN $4 AND $5` +
		` AND t0.deleted_at IS NULL` +
		` ORDER BY t0.created_at DESC NULLS LAST`
	mock.ExpectQuery(regexp.QuoteMeta(expected)).
		WithArgs(`%50\%\_off%`, int64(1), int64(2), int64(10), int64(20)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.Fetch(context.Background(), q)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDatasetRepositoryFetchAttachesAnswers(t *testing.T) {
	db, mock, cleanup := newDatasetRepoMock(t)
	defer cleanup()
	repo := NewDatasetRepository(db)

	q := compiledQuery(t, "form_submissions", []string{"form.title"}, nil, nil)
	q.Sort = nil

	expected := "SELECT t0.id, t1.title" +
		" FROM form_submissions t0 LEFT JOIN forms t1 ON t0.form_id = t1.id" +
		" WHERE t0.is_deleted = FALSE"
	rows := sqlmock.NewRows([]string{"id", "title"}).
		AddRow(int64(10), "Daily check").
		AddRow(int64(11), "Daily check")
	mock.ExpectQuery(regexp.QuoteMeta(expected)).WillReturnRows(rows)

	answerRows := sqlmock.NewRows([]string{"form_submission_id", "text", "value"}).
		AddRow(int64(10), "Machine status", "OK").
		AddRow(int64(10), "Oil level", "Low").
		AddRow(int64(11), "Machine status", "Faulty")
	mock.ExpectQuery(regexp.QuoteMeta("FROM answers_submitted s")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(answerRows)

	records, err := repo.Fetch(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "Daily check", records[0].Values["form.title"])
	require.Equal(t, []report.AnswerPair{
		{Question: "Machine status", Answer: "OK"},
		{Question: "Oil level", Answer: "Low"},
	}, records[0].Answers)
	require.Equal(t, []report.AnswerPair{
		{Question: "Machine status", Answer: "Faulty"},
	}, records[1].Answers)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDatasetRepositoryNormalizesBytes(t *testing.T) {
	db, mock, cleanup := newDatasetRepoMock(t)
	defer cleanup()
	repo := NewDatasetRepository(db)

	q := compiledQuery(t, "roles", []string{"name", "created_at"}, nil, nil)
	q.Sort = nil

	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"name", "created_at"}).
		AddRow([]byte("ADMIN"), created)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT t0.name, t0.created_at FROM roles t0")).
		WillReturnRows(rows)

	records, err := repo.Fetch(context.Background(), q)
	require.NoError(t, err)
	require.Equal(t, "ADMIN", records[0].Values["name"])
	require.Equal(t, created, records[0].Values["created_at"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDatasetRepositoryDistinctQuestionTexts(t *testing.T) {
	db, mock, cleanup := newDatasetRepoMock(t)
	defer cleanup()
	repo := NewDatasetRepository(db)

	rows := sqlmock.NewRows([]string{"text"}).
		AddRow("Machine status").
		AddRow("Oil level")
	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY q.id, q.text")).WillReturnRows(rows)

	texts, err := repo.DistinctQuestionTexts(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"Machine status", "Oil level"}, texts)
	require.NoError(t, mock.ExpectationsWereMet())
}
