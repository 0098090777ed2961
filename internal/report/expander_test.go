package report

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fieldset/cmms-api/pkg/export"
)

func TestResolveColumnsDefaults(t *testing.T) {
	reg := DefaultRegistry()
	users, _ := reg.Entity("users")

	fields, err := ResolveColumns(reg, users, nil)
	require.NoError(t, err)
	require.Len(t, fields, len(users.DefaultColumns))
	require.Equal(t, "id", fields[0].Path)
}

func TestResolveColumnsDeduplicates(t *testing.T) {
	reg := DefaultRegistry()
	users, _ := reg.Entity("users")

	fields, err := ResolveColumns(reg, users, []string{"id", "username", "id"})
	require.NoError(t, err)
	require.Len(t, fields, 2)
	require.Equal(t, "id", fields[0].Path)
	require.Equal(t, "username", fields[1].Path)
}

func TestExpandAnswerColumnsDiscovery(t *testing.T) {
	reg := DefaultRegistry()
	submissions, _ := reg.Entity("form_submissions")
	fields, err := ResolveColumns(reg, submissions, []string{"id", "form.title"})
	require.NoError(t, err)

	records := []Record{
		{Answers: []AnswerPair{
			{Question: "Machine status", Answer: "OK"},
			{Question: "Oil level", Answer: "Low"},
		}},
		{Answers: []AnswerPair{
			{Question: "Oil level", Answer: "Full"},
			{Question: "Operator remarks", Answer: "none"},
		}},
	}
	columns := expandAnswerColumns(submissions, fields, records)

	require.Len(t, columns, 5)
	require.Equal(t, "id", columns[0].Path)
	require.Equal(t, "form.title", columns[1].Path)
	// Dynamic columns append after the static set in first-seen order.
	require.Equal(t, "answers.Machine status", columns[2].Path)
	require.Equal(t, "Machine status", columns[2].Label)
	require.Equal(t, export.ColumnAnswer, columns[2].Kind)
	require.Equal(t, "answers.Oil level", columns[3].Path)
	require.Equal(t, "answers.Operator remarks", columns[4].Path)
}

func TestExpandAnswerColumnsExplicitWins(t *testing.T) {
	reg := DefaultRegistry()
	submissions, _ := reg.Entity("form_submissions")
	fields, err := ResolveColumns(reg, submissions, []string{"id", "answers.Oil level"})
	require.NoError(t, err)

	records := []Record{
		{Answers: []AnswerPair{
			{Question: "Machine status", Answer: "OK"},
			{Question: "Oil level", Answer: "Low"},
		}},
	}
	columns := expandAnswerColumns(submissions, fields, records)

	// An explicit answer column suppresses discovery entirely.
	require.Len(t, columns, 2)
	require.Equal(t, "id", columns[0].Path)
	require.Equal(t, "answers.Oil level", columns[1].Path)
}

func TestExpandAnswerColumnsNonAnswerEntity(t *testing.T) {
	reg := DefaultRegistry()
	users, _ := reg.Entity("users")
	fields, err := ResolveColumns(reg, users, []string{"id"})
	require.NoError(t, err)

	columns := expandAnswerColumns(users, fields, []Record{{}})
	require.Len(t, columns, 1)
}

func TestCellValueMissingAnswer(t *testing.T) {
	rec := Record{
		Values:  map[string]interface{}{"id": int64(7)},
		Answers: []AnswerPair{{Question: "Oil level", Answer: "Low"}},
	}

	require.Equal(t, int64(7), cellValue(rec, export.Column{Path: "id", Kind: export.ColumnStatic}))
	require.Equal(t, "Low", cellValue(rec, export.Column{Path: "answers.Oil level", Kind: export.ColumnAnswer}))
	require.Nil(t, cellValue(rec, export.Column{Path: "answers.Coolant", Kind: export.ColumnAnswer}))
}
