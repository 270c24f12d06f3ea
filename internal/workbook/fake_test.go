package workbook

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeAdapterPutGetRoundtrip(t *testing.T) {
	fake := NewFake()
	key := fake.ComputeKey("evt-1", 7, "insights", "responseGeneration", "frequentAskedQuestions")

	require.NoError(t, fake.Put(context.Background(), key, bytes.NewReader([]byte("workbook-bytes")), ""))

	data, err := fake.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, "workbook-bytes", string(data))
}

func TestFakeAdapterGetMissingKeyErrors(t *testing.T) {
	fake := NewFake()
	_, err := fake.Get(context.Background(), "missing")
	assert.Error(t, err)
}

func TestFakeAdapterPresignGetReturnsURL(t *testing.T) {
	fake := NewFake()
	url, err := fake.PresignGet(context.Background(), "some-key", 24*time.Hour)
	require.NoError(t, err)
	assert.Contains(t, url, "some-key")
}
