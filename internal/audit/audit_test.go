package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeStoreUpdateMissingRow(t *testing.T) {
	store := NewFake()
	modified, err := store.Update(context.Background(), "evt-1", 1, StatusProcessing, TransitionFields{})
	require.NoError(t, err)
	assert.False(t, modified, "update against a reaped/missing row must report false, not error")
}

func TestFakeStoreTerminalTransition(t *testing.T) {
	store := NewFake()
	store.Seed(Row{EventID: "evt-1", ClientID: 42, Status: StatusQueued})

	elapsed := 12 * time.Second
	modified, err := store.Update(context.Background(), "evt-1", 42, StatusSuccess, TransitionFields{
		TotalTime: &elapsed,
		Bucket:    "sifthub-exports",
		URL:       "https://example.com/presigned",
	})
	require.NoError(t, err)
	assert.True(t, modified)

	row, err := store.Get(context.Background(), "evt-1", 42)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, row.Status)
	assert.Equal(t, "https://example.com/presigned", row.DownloadURL)
	require.NotNil(t, row.TotalTime)
	assert.Equal(t, int64(12), *row.TotalTime)
}

func TestStatusTerminal(t *testing.T) {
	assert.True(t, StatusSuccess.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.False(t, StatusProcessing.Terminal())
	assert.False(t, StatusQueued.Terminal())
}
