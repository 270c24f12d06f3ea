// Package delivery implements the Delivery Sink component (C7): the final
// step of a job's pipeline, which hands the finished artifact to whichever
// channel the job's mode selected.
package delivery

import (
	"context"

	"go.uber.org/zap"

	"github.com/sifthub/export-worker/internal/reportbuilder"
)

// Result is a sink's outcome. The Job Router uses Success to decide the
// audit transition; Bucket/Key/URL travel through to the Notifier when the
// job's mode is download.
type Result struct {
	Success bool
	Bucket  string
	Key     string
	URL     string
}

// Sink is the contract every delivery channel satisfies. Build (C5) always
// hands a Sink a Streaming Handle — the legacy in-memory-stream input
// mode spec.md §4.7 allows for is never exercised by this worker's
// builders, which all produce handles.
type Sink interface {
	Deliver(ctx context.Context, handle reportbuilder.Handle) (Result, error)
}

// DownloadSink forwards the handle unchanged: the artifact already lives
// in object storage with a minted presigned URL by the time the sink sees
// it.
type DownloadSink struct {
	logger *zap.Logger
}

// NewDownloadSink builds a DownloadSink.
func NewDownloadSink(logger *zap.Logger) *DownloadSink {
	return &DownloadSink{logger: logger.Named("delivery.download")}
}

// Deliver implements Sink.
func (s *DownloadSink) Deliver(_ context.Context, handle reportbuilder.Handle) (Result, error) {
	return Result{Success: true, Bucket: handle.Bucket, Key: handle.Key, URL: handle.PresignedURL}, nil
}

// EmailSink is an intentional stub, preserved from the source per §9: it
// reports success without ever sending an email. The artifact is already
// durably stored by the Report Builder; this sink only logs the
// never-implemented send.
type EmailSink struct {
	logger *zap.Logger
}

// NewEmailSink builds an EmailSink.
func NewEmailSink(logger *zap.Logger) *EmailSink {
	return &EmailSink{logger: logger.Named("delivery.email")}
}

// Deliver implements Sink. It does not send mail.
func (s *EmailSink) Deliver(_ context.Context, handle reportbuilder.Handle) (Result, error) {
	s.logger.Warn("email delivery is not implemented; reporting success without sending",
		zap.String("bucket", handle.Bucket),
		zap.String("key", handle.Key),
	)
	return Result{Success: true, Bucket: handle.Bucket, Key: handle.Key, URL: handle.PresignedURL}, nil
}
