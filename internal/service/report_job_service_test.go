package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fieldset/cmms-api/internal/models"
	"github.com/fieldset/cmms-api/internal/report"
	"github.com/fieldset/cmms-api/internal/repository"
	appErrors "github.com/fieldset/cmms-api/pkg/errors"
	"github.com/fieldset/cmms-api/pkg/export"
	"github.com/fieldset/cmms-api/pkg/jobs"
	"github.com/fieldset/cmms-api/pkg/storage"
)

type jobRepoStub struct {
	mu   sync.Mutex
	rows map[string]*models.ReportJob
	seq  int
}

func newJobRepoStub() *jobRepoStub {
	return &jobRepoStub{rows: map[string]*models.ReportJob{}}
}

func (s *jobRepoStub) Create(ctx context.Context, job *models.ReportJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job.ID == "" {
		s.seq++
		job.ID = fmt.Sprintf("job-%d", s.seq)
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	clone := *job
	s.rows[job.ID] = &clone
	return nil
}

func (s *jobRepoStub) GetByID(ctx context.Context, id string) (*models.ReportJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok {
		return nil, errors.New("no rows")
	}
	clone := *row
	return &clone, nil
}

func (s *jobRepoStub) Update(ctx context.Context, id string, params repository.UpdateReportJobParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok {
		return errors.New("no rows")
	}
	if params.Status != nil {
		row.Status = *params.Status
	}
	if params.ResultURL != nil {
		row.ResultURL = params.ResultURL
	}
	if params.Filename != nil {
		row.Filename = params.Filename
	}
	if params.ErrorMessage != nil {
		row.ErrorMessage = params.ErrorMessage
	}
	if params.FinishedAt != nil {
		row.FinishedAt = params.FinishedAt
	}
	return nil
}

func (s *jobRepoStub) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func newJobServiceForTest(t *testing.T, engine *engineStub) (*ReportJobService, *jobRepoStub, *storage.LocalStorage) {
	t.Helper()
	repo := newJobRepoStub()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	svc := NewReportJobService(repo, engine, store, signer, nil, zap.NewNop(), ReportJobConfig{Workers: 1})
	return svc, repo, store
}

func TestReportJobServiceEnqueueForbidden(t *testing.T) {
	svc, repo, _ := newJobServiceForTest(t, &engineStub{})

	_, err := svc.Enqueue(context.Background(), report.Request{Entities: report.EntitySelector{"users"}},
		&models.JWTClaims{UserID: "u", Role: models.RoleTechnician})
	require.Error(t, err)
	require.True(t, appErrors.HasCode(err, appErrors.ErrForbidden))
	require.Empty(t, repo.rows)
}

func TestReportJobServiceEnqueueFromTemplate(t *testing.T) {
	templates, _ := newTemplateServiceForTest()
	owner := supervisorClaims("user-1")
	tpl, err := templates.Create(context.Background(), TemplateInput{
		Name: "saved",
		Configuration: report.Request{
			Entities:     report.EntitySelector{"users"},
			OutputFormat: "csv",
		},
	}, owner)
	require.NoError(t, err)

	svc, _, _ := newJobServiceForTest(t, &engineStub{})
	svc.WithTemplates(templates)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Stop()

	job, err := svc.Enqueue(ctx, report.Request{TemplateID: tpl.ID}, owner)
	require.NoError(t, err)

	// The persisted job carries the resolved request, not the pointer.
	require.Equal(t, report.EntitySelector{"users"}, job.Params.Request.Entities)
	require.Empty(t, job.Params.Request.TemplateID)
	require.NotEmpty(t, job.ID)
}

func TestReportJobServiceEnqueueAndProcess(t *testing.T) {
	engine := &engineStub{artifact: export.Artifact{
		Filename:    "report_users_20260510_093000.csv",
		ContentType: "text/csv",
		Content:     []byte("Id\n1\n"),
	}}
	svc, repo, _ := newJobServiceForTest(t, engine)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Stop()

	job, err := svc.Enqueue(ctx, report.Request{
		Entities:     report.EntitySelector{"users"},
		OutputFormat: "csv",
	}, adminClaims())
	require.NoError(t, err)
	require.Equal(t, models.ReportStatusQueued, job.Status)

	require.Eventually(t, func() bool {
		row, err := repo.GetByID(ctx, job.ID)
		return err == nil && row.Status == models.ReportStatusFinished
	}, 5*time.Second, 10*time.Millisecond)

	row, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	require.NotNil(t, row.ResultURL)
	require.True(t, strings.HasPrefix(*row.ResultURL, "/api/v1/export/"))
	require.NotNil(t, row.Filename)
	require.Equal(t, "report_users_20260510_093000.csv", *row.Filename)
	require.NotNil(t, row.FinishedAt)

	token := strings.TrimPrefix(*row.ResultURL, "/api/v1/export/")
	file, filename, err := svc.ResolveDownload(token)
	require.NoError(t, err)
	defer file.Close()
	require.Equal(t, "report_users_20260510_093000.csv", filename)
	data, err := io.ReadAll(file)
	require.NoError(t, err)
	require.Equal(t, "Id\n1\n", string(data))
}

func TestReportJobServiceProcessFailureIsTerminal(t *testing.T) {
	engine := &engineStub{err: appErrors.Clone(appErrors.ErrUnknownField, "users has no field nope")}
	svc, repo, _ := newJobServiceForTest(t, engine)

	job := &models.ReportJob{
		Params:    models.ReportJobParams{Request: report.Request{Entities: report.EntitySelector{"users"}}},
		Status:    models.ReportStatusQueued,
		CreatedBy: "user-1",
	}
	require.NoError(t, repo.Create(context.Background(), job))

	// A handler error would trigger a retry; failures must be absorbed.
	err := svc.process(context.Background(), jobs.Job{ID: job.ID, Payload: job.ID})
	require.NoError(t, err)
	require.Equal(t, 1, engine.calls)

	row, err := repo.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	require.Equal(t, models.ReportStatusFailed, row.Status)
	require.NotNil(t, row.ErrorMessage)
	require.Contains(t, *row.ErrorMessage, "no field")
	require.NotNil(t, row.FinishedAt)
}

func TestReportJobServiceProcessMissingRow(t *testing.T) {
	svc, _, _ := newJobServiceForTest(t, &engineStub{})

	require.NoError(t, svc.process(context.Background(), jobs.Job{ID: "ghost", Payload: "ghost"}))
}

func TestReportJobServiceGetJobAccess(t *testing.T) {
	svc, repo, _ := newJobServiceForTest(t, &engineStub{})
	job := &models.ReportJob{
		Params:    models.ReportJobParams{Request: report.Request{Entities: report.EntitySelector{"users"}}},
		CreatedBy: "user-1",
	}
	require.NoError(t, repo.Create(context.Background(), job))

	got, err := svc.GetJob(context.Background(), job.ID, &models.JWTClaims{UserID: "user-1", Role: models.RoleSupervisor})
	require.NoError(t, err)
	require.Equal(t, job.ID, got.ID)

	// Admins may inspect any job.
	_, err = svc.GetJob(context.Background(), job.ID, &models.JWTClaims{UserID: "other", Role: models.RoleAdmin})
	require.NoError(t, err)

	_, err = svc.GetJob(context.Background(), job.ID, &models.JWTClaims{UserID: "other", Role: models.RoleSupervisor})
	require.Error(t, err)
	require.True(t, appErrors.HasCode(err, appErrors.ErrForbidden))

	_, err = svc.GetJob(context.Background(), "missing", adminClaims())
	require.Error(t, err)
	require.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}

func TestReportJobServiceResolveDownloadInvalidToken(t *testing.T) {
	svc, _, _ := newJobServiceForTest(t, &engineStub{})

	_, _, err := svc.ResolveDownload("garbage")
	require.Error(t, err)
	require.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized))
}

func TestReportJobServiceResolveDownloadMissingFile(t *testing.T) {
	svc, _, _ := newJobServiceForTest(t, &engineStub{})
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("job-1", "job-1/gone.csv")
	require.NoError(t, err)

	_, _, err = svc.ResolveDownload(token)
	require.Error(t, err)
	require.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}
