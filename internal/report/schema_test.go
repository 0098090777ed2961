package report

import (
	"testing"

	"github.com/stretchr/testify/require"

	appErrors "github.com/fieldset/cmms-api/pkg/errors"
)

func TestResolveDirectField(t *testing.T) {
	reg := DefaultRegistry()
	users, ok := reg.Entity("users")
	require.True(t, ok)

	rf, err := reg.Resolve(users, "username")
	require.NoError(t, err)
	require.Equal(t, "username", rf.Path)
	require.Empty(t, rf.Hops)
	require.Equal(t, KindString, rf.Field.Kind)
	require.Equal(t, "users", rf.Entity.Name)
}

func TestResolveRelationPath(t *testing.T) {
	reg := DefaultRegistry()
	users, _ := reg.Entity("users")

	rf, err := reg.Resolve(users, "role.name")
	require.NoError(t, err)
	require.Len(t, rf.Hops, 1)
	require.Equal(t, "roles", rf.Hops[0].Target)
	require.Equal(t, "roles", rf.Entity.Name)
	require.Equal(t, "name", rf.Field.Name)
}

func TestResolveMultiHopPath(t *testing.T) {
	reg := DefaultRegistry()
	formAnswers, _ := reg.Entity("form_answers")

	rf, err := reg.Resolve(formAnswers, "form_question.question.text")
	require.NoError(t, err)
	require.Len(t, rf.Hops, 2)
	require.Equal(t, "questions", rf.Entity.Name)
	require.Equal(t, "text", rf.Field.Name)
}

func TestResolveUnknownField(t *testing.T) {
	reg := DefaultRegistry()
	users, _ := reg.Entity("users")

	_, err := reg.Resolve(users, "nope")
	require.Error(t, err)
	require.True(t, appErrors.HasCode(err, appErrors.ErrUnknownField))

	_, err = reg.Resolve(users, "role.nope")
	require.Error(t, err)
	require.True(t, appErrors.HasCode(err, appErrors.ErrUnknownField))
}

func TestResolveHiddenField(t *testing.T) {
	reg := DefaultRegistry()
	users, _ := reg.Entity("users")

	_, err := reg.Resolve(users, "password_hash")
	require.Error(t, err)
	require.True(t, appErrors.HasCode(err, appErrors.ErrUnknownField))
}

func TestResolvePathEndingOnRelation(t *testing.T) {
	reg := DefaultRegistry()
	users, _ := reg.Entity("users")

	_, err := reg.Resolve(users, "role")
	require.Error(t, err)
	require.True(t, appErrors.HasCode(err, appErrors.ErrUnknownField))
	require.Contains(t, err.Error(), "ends on relation")
}

func TestResolveAnswerColumn(t *testing.T) {
	reg := DefaultRegistry()
	submissions, _ := reg.Entity("form_submissions")

	rf, err := reg.Resolve(submissions, "answers.Machine status")
	require.NoError(t, err)
	require.Nil(t, rf.Field)
	require.Equal(t, "answers.Machine status", rf.Path)
}

func TestResolveAnswerColumnOnNonAnswerEntity(t *testing.T) {
	reg := DefaultRegistry()
	users, _ := reg.Entity("users")

	_, err := reg.Resolve(users, "answers.Machine status")
	require.Error(t, err)
	require.True(t, appErrors.HasCode(err, appErrors.ErrUnknownField))
}

func TestResolveEmptyAnswerColumn(t *testing.T) {
	reg := DefaultRegistry()
	submissions, _ := reg.Entity("form_submissions")

	_, err := reg.Resolve(submissions, "answers.")
	require.Error(t, err)
	require.True(t, appErrors.HasCode(err, appErrors.ErrUnknownField))
}

func TestRegistryNamesOrder(t *testing.T) {
	reg := DefaultRegistry()
	names := reg.Names()
	require.Len(t, names, 13)
	require.Equal(t, "users", names[0])
	require.Equal(t, "attachments", names[len(names)-1])
}

func TestDefaultRegistryRelationsLinked(t *testing.T) {
	reg := DefaultRegistry()
	for _, name := range reg.Names() {
		entity, _ := reg.Entity(name)
		for _, rel := range entity.Relations {
			require.NotNil(t, rel.TargetEntity, "%s.%s", name, rel.Name)
			require.Equal(t, rel.Target, rel.TargetEntity.Name)
		}
		for _, col := range entity.DefaultColumns {
			_, err := reg.Resolve(entity, col)
			require.NoError(t, err, "%s default column %s", name, col)
		}
		for _, col := range entity.AvailableColumns {
			_, err := reg.Resolve(entity, col)
			require.NoError(t, err, "%s available column %s", name, col)
		}
	}
}
