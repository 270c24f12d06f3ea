// Package workbook implements the Workbook Storage Adapter (C6): the
// object-storage operations the Report Builder uses to persist and
// re-read the in-progress spreadsheet, and to mint a time-limited
// download URL once it is complete.
package workbook

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/sifthub/export-worker/internal/apperr"
)

// partSize is the multipart part size: objects above this threshold are
// uploaded in 5 MiB parts, matching the contract in §4.6.
const partSize = 5 * 1024 * 1024

// spreadsheetContentType is the default content-type for workbook objects.
const spreadsheetContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Adapter is the interface the Report Builder depends on. Storage is the
// production implementation; Fake backs tests.
type Adapter interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	ComputeKey(eventID string, clientID int64, module, reportType, subType string) string
}

// getObjectAPI is the subset of *s3.Client this package calls directly,
// isolated for substitution in tests the way RuntimeClient isolates the
// Bedrock SDK surface.
type getObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Storage is the S3-backed Adapter. The uploader is configured with
// LeavePartsOnError disabled, so any part failure triggers an
// abort-multipart-upload for that upload id rather than leaving an orphaned
// upload behind.
type Storage struct {
	client   getObjectAPI
	uploader *manager.Uploader
	presign  *s3.PresignClient
	bucket   string
	logger   *zap.Logger
}

// New builds a Storage against the given bucket using client for both
// direct reads and the presign client, and a manager.Uploader (5 MiB parts,
// abort-on-failure) for writes.
func New(client *s3.Client, bucket string, logger *zap.Logger) *Storage {
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = partSize
		u.LeavePartsOnError = false
	})
	return &Storage{
		client:   client,
		uploader: uploader,
		presign:  s3.NewPresignClient(client),
		bucket:   bucket,
		logger:   logger.Named("workbook.storage"),
	}
}

// Put uploads body under key. The manager.Uploader transparently switches
// to a multipart upload once the stream exceeds partSize; nothing here
// needs to special-case that threshold.
func (s *Storage) Put(ctx context.Context, key string, body io.Reader, contentType string) error {
	if contentType == "" {
		contentType = spreadsheetContentType
	}
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		s.logger.Error("workbook put failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("%w: put %s: %v", apperr.ErrStorageWrite, key, err)
	}
	return nil
}

// Get downloads the full object at key, used for the download-mutate-upload
// append cycle Phase B of the Report Builder runs for every page.
func (s *Storage) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %v", apperr.ErrStorageRead, key, err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", apperr.ErrStorageRead, key, err)
	}
	return data, nil
}

// PresignGet mints a time-limited read URL for key, minted only after the
// workbook's final append per the ordering contract in §5.
func (s *Storage) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("%w: presign %s: %v", apperr.ErrStorageRead, key, err)
	}
	return req.URL, nil
}

// ComputeKey derives the object key for one export job's artifact. The
// trailing UTC timestamp keeps re-runs of the same (eventID, clientID)
// pair from colliding.
func (s *Storage) ComputeKey(eventID string, clientID int64, module, reportType, subType string) string {
	return fmt.Sprintf("exports/%d/%s/%s/%s/%s_%s.xlsx",
		clientID, module, reportType, subType, eventID, time.Now().UTC().Format("20060102T150405Z"))
}
