package queue

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sifthub/export-worker/internal/apperr"
	"github.com/sifthub/export-worker/internal/job"
)

type fakeSQS struct {
	mu       sync.Mutex
	messages []types.Message
	polled   bool
	deleted  []string
}

func (f *fakeSQS) ReceiveMessage(_ context.Context, _ *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.polled {
		return &sqs.ReceiveMessageOutput{}, nil
	}
	f.polled = true
	return &sqs.ReceiveMessageOutput{Messages: f.messages}, nil
}

func (f *fakeSQS) DeleteMessageBatch(_ context.Context, params *sqs.DeleteMessageBatchInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageBatchOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range params.Entries {
		f.deleted = append(f.deleted, aws.ToString(e.ReceiptHandle))
	}
	return &sqs.DeleteMessageBatchOutput{}, nil
}

type routerFunc func(ctx context.Context, j *job.ExportJob) error

func (f routerFunc) Route(ctx context.Context, j *job.ExportJob) error { return f(ctx, j) }

func validBody(eventID string) string {
	return `{"eventId":"` + eventID + `","mode":"download","module":"insights","type":"responseGeneration","subType":"frequentAskedQuestions","user_id":7,"clientId":42,"productId":3}`
}

func TestConsumer_PollOnce_AcksSuccessfulMessage(t *testing.T) {
	fake := &fakeSQS{messages: []types.Message{
		{MessageId: aws.String("m1"), ReceiptHandle: aws.String("rh1"), Body: aws.String(validBody("evt-1"))},
	}}
	var routed []string
	c := New(nil, routerFunc(func(_ context.Context, j *job.ExportJob) error {
		routed = append(routed, j.EventID)
		return nil
	}), Config{QueueURL: "q"}, zap.NewNop())
	c.client = fake

	err := c.pollOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"evt-1"}, routed)
	assert.Equal(t, []string{"rh1"}, fake.deleted)
}

func TestConsumer_PollOnce_LeavesRetryableFailureUnacked(t *testing.T) {
	fake := &fakeSQS{messages: []types.Message{
		{MessageId: aws.String("m1"), ReceiptHandle: aws.String("rh1"), Body: aws.String(validBody("evt-1"))},
	}}
	c := New(nil, routerFunc(func(_ context.Context, _ *job.ExportJob) error {
		return apperr.ErrTransientUpstream
	}), Config{QueueURL: "q"}, zap.NewNop())
	c.client = fake

	err := c.pollOnce(context.Background())
	require.NoError(t, err)
	assert.Empty(t, fake.deleted)
}

func TestConsumer_PollOnce_PoisonMessageAckedWithoutRouting(t *testing.T) {
	fake := &fakeSQS{messages: []types.Message{
		{MessageId: aws.String("m1"), ReceiptHandle: aws.String("rh1"), Body: aws.String(`{"mode":"download"}`)},
	}}
	routed := false
	c := New(nil, routerFunc(func(_ context.Context, _ *job.ExportJob) error {
		routed = true
		return nil
	}), Config{QueueURL: "q"}, zap.NewNop())
	c.client = fake

	err := c.pollOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, routed)
	assert.Equal(t, []string{"rh1"}, fake.deleted)
}

func TestConsumer_PollOnce_NonRetryableRouterFailureIsAcked(t *testing.T) {
	fake := &fakeSQS{messages: []types.Message{
		{MessageId: aws.String("m1"), ReceiptHandle: aws.String("rh1"), Body: aws.String(validBody("evt-1"))},
	}}
	c := New(nil, routerFunc(func(_ context.Context, _ *job.ExportJob) error {
		return apperr.ErrUnsupportedReport
	}), Config{QueueURL: "q"}, zap.NewNop())
	c.client = fake

	err := c.pollOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"rh1"}, fake.deleted)
}

func TestConsumer_Run_StopsOnContextCancel(t *testing.T) {
	fake := &fakeSQS{}
	c := New(nil, routerFunc(func(context.Context, *job.ExportJob) error { return nil }), Config{QueueURL: "q"}, zap.NewNop())
	c.client = fake

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.Run(ctx)
	require.NoError(t, err)
}

func TestConsumer_PollOnce_ReceiveError(t *testing.T) {
	c := New(nil, routerFunc(func(context.Context, *job.ExportJob) error { return nil }), Config{QueueURL: "q"}, zap.NewNop())
	c.client = erroringSQS{}
	err := c.pollOnce(context.Background())
	require.Error(t, err)
}

type erroringSQS struct{}

func (erroringSQS) ReceiveMessage(context.Context, *sqs.ReceiveMessageInput, ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	return nil, errors.New("network error")
}

func (erroringSQS) DeleteMessageBatch(context.Context, *sqs.DeleteMessageBatchInput, ...func(*sqs.Options)) (*sqs.DeleteMessageBatchOutput, error) {
	return nil, errors.New("network error")
}
