package delivery

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sifthub/export-worker/internal/reportbuilder"
)

func TestDownloadSinkForwardsHandle(t *testing.T) {
	sink := NewDownloadSink(zap.NewNop())
	result, err := sink.Deliver(context.Background(), reportbuilder.Handle{
		Bucket: "sifthub-exports", Key: "exports/1/a.xlsx", PresignedURL: "https://example.com/a.xlsx",
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "https://example.com/a.xlsx", result.URL)
}

func TestEmailSinkReportsSuccessWithoutSending(t *testing.T) {
	sink := NewEmailSink(zap.NewNop())
	result, err := sink.Deliver(context.Background(), reportbuilder.Handle{
		Bucket: "sifthub-exports", Key: "exports/1/a.xlsx", PresignedURL: "https://example.com/a.xlsx",
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
}
