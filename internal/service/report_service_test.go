package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fieldset/cmms-api/internal/models"
	"github.com/fieldset/cmms-api/internal/report"
	appErrors "github.com/fieldset/cmms-api/pkg/errors"
	"github.com/fieldset/cmms-api/pkg/export"
)

type engineStub struct {
	artifact export.Artifact
	err      error
	calls    int
	lastReq  report.Request
}

func (s *engineStub) Generate(ctx context.Context, req report.Request) (export.Artifact, error) {
	s.calls++
	s.lastReq = req
	return s.artifact, s.err
}

type columnsStub struct {
	texts []string
	err   error
	calls int
}

func (s *columnsStub) DistinctQuestionTexts(ctx context.Context) ([]string, error) {
	s.calls++
	return s.texts, s.err
}

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "user-1", Role: models.RoleAdmin}
}

func newReportServiceForTest(engine *engineStub, columns *columnsStub) *ReportService {
	return NewReportService(engine, report.DefaultRegistry(), columns, export.NewRegistry(),
		nil, ReportServiceConfig{}, nil, zap.NewNop())
}

func TestReportServiceGenerate(t *testing.T) {
	engine := &engineStub{artifact: export.Artifact{
		Filename: "report_users_20260510_093000.csv",
		Content:  []byte("Id\n1\n"),
	}}
	svc := newReportServiceForTest(engine, &columnsStub{})

	req := report.Request{Entities: report.EntitySelector{"users"}, OutputFormat: "csv"}
	artifact, err := svc.Generate(context.Background(), req, adminClaims())
	require.NoError(t, err)
	require.Equal(t, "report_users_20260510_093000.csv", artifact.Filename)
	require.Equal(t, 1, engine.calls)
}

func TestReportServiceGenerateForbiddenRole(t *testing.T) {
	engine := &engineStub{}
	svc := newReportServiceForTest(engine, &columnsStub{})

	req := report.Request{Entities: report.EntitySelector{"users"}}
	_, err := svc.Generate(context.Background(), req, &models.JWTClaims{UserID: "u", Role: models.RoleTechnician})
	require.Error(t, err)
	require.True(t, appErrors.HasCode(err, appErrors.ErrForbidden))
	require.Zero(t, engine.calls)

	_, err = svc.Generate(context.Background(), req, nil)
	require.Error(t, err)
	require.True(t, appErrors.HasCode(err, appErrors.ErrForbidden))
}

func TestReportServiceGeneratePropagatesEngineError(t *testing.T) {
	engine := &engineStub{err: appErrors.Clone(appErrors.ErrUnknownField, "users has no field nope")}
	svc := newReportServiceForTest(engine, &columnsStub{})

	_, err := svc.Generate(context.Background(), report.Request{Entities: report.EntitySelector{"users"}},
		&models.JWTClaims{UserID: "u", Role: models.RoleSupervisor})
	require.Error(t, err)
	require.True(t, appErrors.HasCode(err, appErrors.ErrUnknownField))
}

func TestReportServiceListEntities(t *testing.T) {
	svc := newReportServiceForTest(&engineStub{}, &columnsStub{})

	entities, formats := svc.ListEntities(context.Background())
	require.Len(t, entities, 13)
	require.Equal(t, "users", entities[0].Name)
	require.NotEmpty(t, entities[0].DefaultColumns)

	var submissions *EntityDescriptor
	for i := range entities {
		if entities[i].Name == "form_submissions" {
			submissions = &entities[i]
		}
	}
	require.NotNil(t, submissions)
	require.True(t, submissions.SupportsAnswers)
	require.Equal(t, []string{"csv", "docx", "pdf", "pptx", "xlsx"}, formats)
}

func TestReportServiceEntityColumns(t *testing.T) {
	columns := &columnsStub{texts: []string{"Machine status", "Oil level"}}
	svc := newReportServiceForTest(&engineStub{}, columns)

	got, err := svc.EntityColumns(context.Background(), "form_submissions")
	require.NoError(t, err)
	require.Contains(t, got, "form.title")
	require.Contains(t, got, "answers.Machine status")
	require.Contains(t, got, "answers.Oil level")
	require.Equal(t, 1, columns.calls)

	// Static entities never hit discovery.
	got, err = svc.EntityColumns(context.Background(), "roles")
	require.NoError(t, err)
	require.NotContains(t, got, "answers.Machine status")
	require.Equal(t, 1, columns.calls)
}

func TestReportServiceEntityColumnsUnknownEntity(t *testing.T) {
	svc := newReportServiceForTest(&engineStub{}, &columnsStub{})

	_, err := svc.EntityColumns(context.Background(), "widgets")
	require.Error(t, err)
	require.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}

func TestReportServiceEntityColumnsDiscoveryFailureDegrades(t *testing.T) {
	columns := &columnsStub{err: errors.New("connection refused")}
	svc := newReportServiceForTest(&engineStub{}, columns)

	got, err := svc.EntityColumns(context.Background(), "form_submissions")
	require.NoError(t, err)
	// Static catalog survives a discovery outage.
	require.Contains(t, got, "form.title")
	for _, col := range got {
		require.NotContains(t, col, report.AnswersPrefix)
	}
}

func TestReportServiceConfigDefaults(t *testing.T) {
	svc := newReportServiceForTest(&engineStub{}, &columnsStub{})
	require.Equal(t, 5*time.Minute, svc.cfg.CacheTTL)
}
