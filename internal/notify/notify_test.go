package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sifthub/export-worker/internal/audit"
	"github.com/sifthub/export-worker/internal/cache"
	"github.com/sifthub/export-worker/internal/job"
)

type fakeResolver struct {
	access cache.UserRoleAccess
	err    error
}

func (f fakeResolver) Resolve(context.Context, int64, int64, int64) (cache.UserRoleAccess, error) {
	return f.access, f.err
}

func TestNotifyExportCompletePublishesAtResolvedPath(t *testing.T) {
	store := NewFake()
	resolver := fakeResolver{access: cache.UserRoleAccess{ClientGUID: "cg", ProductGUID: "pg", UserGUID: "ug"}}
	n := New(store, resolver, zap.NewNop())

	j := &job.ExportJob{EventID: "evt-1", ClientID: 7, ProductID: 1, UserID: 3}
	n.NotifyExportComplete(context.Background(), j, audit.StatusSuccess, "https://example.com/a.xlsx")

	notification, ok := store.Get("pd/pg/cl/cg/usr/ug/notifications/evt-1")
	require.True(t, ok)
	assert.Equal(t, "EXPORT_COMPLETE", notification.Type)
	assert.Equal(t, "SUCCESS", notification.Status)
	assert.Equal(t, "https://example.com/a.xlsx", notification.DownloadURL)
	assert.Equal(t, "Your export is ready for download", notification.Message)
}

func TestNotifyExportCompleteSwallowsResolverFailure(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	store := NewFake()
	resolver := fakeResolver{err: assertError("client service unreachable")}
	n := New(store, resolver, zap.New(core))

	j := &job.ExportJob{EventID: "evt-2", ClientID: 7, ProductID: 1, UserID: 3}
	n.NotifyExportComplete(context.Background(), j, audit.StatusFailed, "")

	_, ok := store.Get("pd//cl//usr//notifications/evt-2")
	assert.False(t, ok)
	assert.Equal(t, 1, logs.Len())
}

type assertError string

func (e assertError) Error() string { return string(e) }
