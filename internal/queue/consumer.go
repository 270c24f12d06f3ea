package queue

import (
	"context"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"

	"github.com/sifthub/export-worker/internal/apperr"
	"github.com/sifthub/export-worker/internal/job"
)

// Defaults mirror spec §4.1: batch receive up to N=10 messages, long-poll
// up to W=20s, visibility timeout V=300s.
const (
	DefaultMaxMessages       = 10
	DefaultWaitTimeSeconds   = 20
	DefaultVisibilityTimeout = 300 * time.Second
)

// JobRouter is the subset of router.Router's API the consumer depends on,
// narrowed the same way workbook.getObjectAPI narrows the S3 client — so
// tests can substitute a fake without building a full Router.
type JobRouter interface {
	Route(ctx context.Context, j *job.ExportJob) error
}

// sqsAPI is the subset of *sqs.Client the consumer calls, isolated for
// substitution in tests.
type sqsAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessageBatch(ctx context.Context, params *sqs.DeleteMessageBatchInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageBatchOutput, error)
}

// Config controls the consumer's receive loop.
type Config struct {
	QueueURL          string
	MaxMessages       int32
	WaitTimeSeconds   int32
	VisibilityTimeout time.Duration
}

// ItemFailure is one entry of the broker reply's batchItemFailures list —
// spec §4.1/§6's {itemIdentifier: messageId}.
type ItemFailure struct {
	ItemIdentifier string `json:"itemIdentifier"`
}

// BatchResponse is the reply shape the broker driver expects back from one
// poll cycle: the subset of messages that should be redriven.
type BatchResponse struct {
	BatchItemFailures []ItemFailure `json:"batchItemFailures"`
}

// Consumer implements the Queue Consumer (C1): long-poll, parse, route,
// ack-or-leave-for-redrive, repeat until its context is cancelled.
type Consumer struct {
	client sqsAPI
	router JobRouter
	cfg    Config
	logger *zap.Logger
}

// New builds a Consumer against client, applying Config defaults for any
// zero-valued field.
func New(client *sqs.Client, router JobRouter, cfg Config, logger *zap.Logger) *Consumer {
	if cfg.MaxMessages <= 0 {
		cfg.MaxMessages = DefaultMaxMessages
	}
	if cfg.WaitTimeSeconds <= 0 {
		cfg.WaitTimeSeconds = DefaultWaitTimeSeconds
	}
	if cfg.VisibilityTimeout <= 0 {
		cfg.VisibilityTimeout = DefaultVisibilityTimeout
	}
	return &Consumer{client: client, router: router, cfg: cfg, logger: logger.Named("queue.consumer")}
}

// Run polls in a loop until ctx is cancelled (by SIGINT/SIGTERM via
// signal.NotifyContext in cmd/exportworker). It ceases issuing new receives
// once ctx is done, but always awaits the in-flight batch's jobs before
// returning — mirroring the spec's "await in-flight jobs, then exit"
// shutdown contract.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		if err := c.pollOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("receive failed, backing off", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
		}
	}
}

// pollOnce performs one long-poll receive, fans out a goroutine per
// message (spec §5: "launches N parallel job pipelines; each pipeline runs
// sequentially inside itself"), and deletes every message whose pipeline
// reported success. Messages whose pipeline failed are left alone for the
// broker's own redrive/visibility-timeout handling. The BatchResponse is not
// returned: pollOnce logs its failure count for observability, since this
// process is a long-running consumer rather than a Lambda event-source
// invocation.
func (c *Consumer) pollOnce(ctx context.Context) error {
	out, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:              aws.String(c.cfg.QueueURL),
		MaxNumberOfMessages:   c.cfg.MaxMessages,
		WaitTimeSeconds:       c.cfg.WaitTimeSeconds,
		VisibilityTimeout:     int32(c.cfg.VisibilityTimeout.Seconds()),
		MessageAttributeNames: []string{"All"},
	})
	if err != nil {
		return err
	}
	if len(out.Messages) == 0 {
		return nil
	}

	jobCtx, cancel := context.WithTimeout(ctx, c.cfg.VisibilityTimeout)
	defer cancel()

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		toAck  []types.Message
		failed []ItemFailure
	)
	for _, msg := range out.Messages {
		msg := msg
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.processMessage(jobCtx, msg) {
				mu.Lock()
				toAck = append(toAck, msg)
				mu.Unlock()
				return
			}
			mu.Lock()
			failed = append(failed, ItemFailure{ItemIdentifier: aws.ToString(msg.MessageId)})
			mu.Unlock()
		}()
	}
	wg.Wait()

	resp := BatchResponse{BatchItemFailures: failed}
	if len(resp.BatchItemFailures) > 0 {
		c.logger.Warn("batch completed with failures",
			zap.Int("failed", len(resp.BatchItemFailures)), zap.Int("succeeded", len(toAck)))
	}

	if len(toAck) > 0 {
		c.deleteBatch(ctx, toAck)
	}
	return nil
}

// processMessage parses and routes one message, returning true when the
// message should be acknowledged (deleted) and false when it should be
// left for redrive. A poison message — one that fails to parse or
// validate — is always acknowledged per spec §4.1 step 2/§7, even though
// it never reached the Router.
func (c *Consumer) processMessage(ctx context.Context, msg types.Message) bool {
	j, err := ParseEnvelope([]byte(aws.ToString(msg.Body)))
	if err != nil {
		c.logger.Warn("dropping poison message",
			zap.String("message_id", aws.ToString(msg.MessageId)), zap.Error(err))
		return true
	}

	if err := c.router.Route(ctx, j); err != nil {
		c.logger.Error("job routing failed",
			zap.String("event_id", j.EventID), zap.String("message_id", aws.ToString(msg.MessageId)), zap.Error(err))
		// Non-retryable failures (InvalidMessage, UnsupportedReport) are
		// poison too: acknowledge so the broker never redrives them.
		// Everything else is left unacknowledged per spec §7.
		return !apperr.Retryable(err)
	}
	return true
}

// deleteBatch acknowledges every successfully routed message in one
// DeleteMessageBatch call, logging (not failing the process) on a partial
// or total failure — the delete is best-effort once the job itself is
// already durably recorded as SUCCESS or (non-retryable) FAILED.
func (c *Consumer) deleteBatch(ctx context.Context, msgs []types.Message) {
	entries := make([]types.DeleteMessageBatchRequestEntry, len(msgs))
	for i, m := range msgs {
		entries[i] = types.DeleteMessageBatchRequestEntry{
			Id:            aws.String(idFor(i)),
			ReceiptHandle: m.ReceiptHandle,
		}
	}
	out, err := c.client.DeleteMessageBatch(ctx, &sqs.DeleteMessageBatchInput{
		QueueUrl: aws.String(c.cfg.QueueURL),
		Entries:  entries,
	})
	if err != nil {
		c.logger.Error("delete message batch failed", zap.Error(err))
		return
	}
	for _, failure := range out.Failed {
		c.logger.Error("failed to delete message",
			zap.String("id", aws.ToString(failure.Id)), zap.String("code", aws.ToString(failure.Code)))
	}
}

func idFor(i int) string {
	const digits = "0123456789"
	if i < 10 {
		return string(digits[i])
	}
	return string(digits[i/10]) + string(digits[i%10])
}
