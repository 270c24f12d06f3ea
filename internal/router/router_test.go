package router

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sifthub/export-worker/internal/apperr"
	"github.com/sifthub/export-worker/internal/audit"
	"github.com/sifthub/export-worker/internal/cache"
	"github.com/sifthub/export-worker/internal/delivery"
	"github.com/sifthub/export-worker/internal/job"
	"github.com/sifthub/export-worker/internal/notify"
	"github.com/sifthub/export-worker/internal/reportbuilder"
)

type fakeBuilder struct {
	handle reportbuilder.Handle
	err    error
}

func (f fakeBuilder) Build(context.Context, *job.ExportJob) (reportbuilder.Handle, error) {
	return f.handle, f.err
}

type fakeSink struct {
	result delivery.Result
	err    error
}

func (f fakeSink) Deliver(context.Context, reportbuilder.Handle) (delivery.Result, error) {
	return f.result, f.err
}

type fakeRoles struct{}

func (fakeRoles) Resolve(context.Context, int64, int64, int64) (cache.UserRoleAccess, error) {
	return cache.UserRoleAccess{ClientGUID: "c", ProductGUID: "p", UserGUID: "u"}, nil
}

func testJob() *job.ExportJob {
	return &job.ExportJob{
		EventID: "evt-1", Mode: job.ModeDownload, Module: job.ModuleInsights,
		Type: "responseGeneration", SubType: "frequentAskedQuestions",
		UserID: 7, ClientID: 42, ProductID: 3,
	}
}

func newTestRouter(t *testing.T) (*Router, *audit.Fake, *notify.Fake) {
	t.Helper()
	logger := zap.NewNop()
	auditLog := audit.NewFake()
	notifyStore := notify.NewFake()
	notifier := notify.New(notifyStore, fakeRoles{}, logger)
	return New(auditLog, notifier, logger), auditLog, notifyStore
}

func TestRoute_Success_EmitsURLOnDownload(t *testing.T) {
	r, auditLog, notifyStore := newTestRouter(t)
	j := testJob()
	auditLog.Seed(audit.Row{EventID: j.EventID, ClientID: j.ClientID, Status: audit.StatusQueued})

	r.RegisterBuilder(j.Module, j.Type, j.SubType, fakeBuilder{handle: reportbuilder.Handle{Bucket: "b", Key: "k", PresignedURL: "https://u"}})
	r.RegisterSink(j.Mode, fakeSink{result: delivery.Result{Success: true, Bucket: "b", Key: "k", URL: "https://u"}})

	err := r.Route(context.Background(), j)
	require.NoError(t, err)

	row, err := auditLog.Get(context.Background(), j.EventID, j.ClientID)
	require.NoError(t, err)
	assert.Equal(t, audit.StatusSuccess, row.Status)
	assert.Equal(t, "https://u", row.DownloadURL)

	n, ok := notifyStore.Get("pd/p/cl/c/usr/u/notifications/" + j.EventID)
	require.True(t, ok)
	assert.Equal(t, "SUCCESS", n.Status)
	assert.Equal(t, "https://u", n.DownloadURL)
}

func TestRoute_BuilderFailure_MarksFailedNoURL(t *testing.T) {
	r, auditLog, notifyStore := newTestRouter(t)
	j := testJob()
	auditLog.Seed(audit.Row{EventID: j.EventID, ClientID: j.ClientID, Status: audit.StatusQueued})

	buildErr := errors.New("boom")
	r.RegisterBuilder(j.Module, j.Type, j.SubType, fakeBuilder{err: buildErr})
	r.RegisterSink(j.Mode, fakeSink{})

	err := r.Route(context.Background(), j)
	require.Error(t, err)

	row, err := auditLog.Get(context.Background(), j.EventID, j.ClientID)
	require.NoError(t, err)
	assert.Equal(t, audit.StatusFailed, row.Status)
	assert.Empty(t, row.DownloadURL)

	n, ok := notifyStore.Get("pd/p/cl/c/usr/u/notifications/" + j.EventID)
	require.True(t, ok)
	assert.Equal(t, "FAILED", n.Status)
	assert.Empty(t, n.DownloadURL)
}

func TestRoute_UnknownRoute_UnsupportedReport(t *testing.T) {
	r, auditLog, _ := newTestRouter(t)
	j := testJob()
	j.Type = "somethingElse"
	auditLog.Seed(audit.Row{EventID: j.EventID, ClientID: j.ClientID, Status: audit.StatusQueued})

	err := r.Route(context.Background(), j)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrUnsupportedReport))
	assert.False(t, apperr.Retryable(err))
}

func TestRoute_UsageLogsWildcardSubType(t *testing.T) {
	r, auditLog, _ := newTestRouter(t)
	j := &job.ExportJob{
		EventID: "evt-2", Mode: job.ModeDownload, Module: job.ModuleUsageLogs,
		Type: "answer", SubType: "weekly", UserID: 1, ClientID: 9, ProductID: 2,
	}
	auditLog.Seed(audit.Row{EventID: j.EventID, ClientID: j.ClientID, Status: audit.StatusQueued})

	r.RegisterBuilder(j.Module, j.Type, "", fakeBuilder{handle: reportbuilder.Handle{Bucket: "b", Key: "k", PresignedURL: "https://u"}})
	r.RegisterSink(j.Mode, fakeSink{result: delivery.Result{Success: true, URL: "https://u"}})

	err := r.Route(context.Background(), j)
	require.NoError(t, err)
}

func TestRoute_EmailMode_SuccessNotificationHasNoURL(t *testing.T) {
	r, _, notifyStore := newTestRouter(t)
	j := testJob()
	j.Mode = job.ModeEmail

	r.RegisterBuilder(j.Module, j.Type, j.SubType, fakeBuilder{handle: reportbuilder.Handle{Bucket: "b", Key: "k", PresignedURL: "https://u"}})
	r.RegisterSink(j.Mode, fakeSink{result: delivery.Result{Success: true, URL: "https://u"}})

	err := r.Route(context.Background(), j)
	require.NoError(t, err)

	n, ok := notifyStore.Get("pd/p/cl/c/usr/u/notifications/" + j.EventID)
	require.True(t, ok)
	assert.Equal(t, "SUCCESS", n.Status)
	assert.Empty(t, n.DownloadURL)
}
