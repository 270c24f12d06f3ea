package queue

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sifthub/export-worker/internal/apperr"
	"github.com/sifthub/export-worker/internal/job"
)

func TestParseEnvelope_DirectPayload(t *testing.T) {
	body := []byte(`{"eventId":"evt-1","mode":"download","module":"insights","type":"responseGeneration","subType":"frequentAskedQuestions","user_id":7,"clientId":42,"productId":3}`)

	j, err := ParseEnvelope(body)
	require.NoError(t, err)
	assert.Equal(t, "evt-1", j.EventID)
	assert.Equal(t, job.ModuleInsights, j.Module)
	assert.Equal(t, int64(42), j.ClientID)
}

func TestParseEnvelope_WrappedPayload(t *testing.T) {
	inner := `{"eventId":"evt-2","mode":"email","module":"usageLogs","type":"answer","subType":"","user_id":1,"clientId":9,"productId":2}`
	body := []byte(`{"Message":` + quote(inner) + `,"MessageAttributes":{"event_type":{"Type":"String","Value":"EXPORT"}}}`)

	j, err := ParseEnvelope(body)
	require.NoError(t, err)
	assert.Equal(t, "evt-2", j.EventID)
	assert.Equal(t, job.ModeEmail, j.Mode)
}

func TestParseEnvelope_MissingRequiredField_IsPoison(t *testing.T) {
	body := []byte(`{"mode":"download","module":"insights","type":"responseGeneration","user_id":7,"clientId":42,"productId":3}`)

	_, err := ParseEnvelope(body)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrInvalidMessage))
	assert.False(t, apperr.Retryable(err))
}

func TestParseEnvelope_MalformedJSON_IsPoison(t *testing.T) {
	_, err := ParseEnvelope([]byte(`not json`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrInvalidMessage))
}

// quote JSON-encodes s as a string literal, used to embed the inner job
// payload under "Message" the way SNS-over-SQS notifications stringify it.
func quote(s string) string {
	out := make([]byte, 0, len(s)+2)
	out = append(out, '"')
	for _, r := range s {
		if r == '"' {
			out = append(out, '\\', '"')
			continue
		}
		out = append(out, byte(r))
	}
	out = append(out, '"')
	return string(out)
}
