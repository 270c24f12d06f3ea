// Package notify implements the Notifier (C8): a best-effort notification
// write that runs after a job's terminal audit transition and never fails
// the job it reports on, mirroring
// original_source/sifthub/datastores/product/firebase/firebase_publisher.py's
// publish_export_notification / publish_at_user, whose every exception path
// logs and returns false rather than propagating.
//
// The source addresses a Firestore document path built from GUIDs resolved
// through the role-access cache:
// pd/{productGuid}/cl/{clientGuid}/usr/{userGuid}/notifications/{eventId}.
// No Firestore/Firebase client exists anywhere in the retrieved corpus, so
// that nested document tree is modeled here as a single Mongo collection
// keyed by the compound path string — see DESIGN.md.
package notify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sifthub/export-worker/internal/apperr"
	"github.com/sifthub/export-worker/internal/audit"
	"github.com/sifthub/export-worker/internal/cache"
	"github.com/sifthub/export-worker/internal/job"
)

// typeExportComplete is the notification Type every export job publishes,
// matching the source's fixed "EXPORT_COMPLETE".
const typeExportComplete = "EXPORT_COMPLETE"

// Notification is the document written at the resolved path, the Go
// shape of publish_export_notification's notification_data dict.
type Notification struct {
	EventID     string    `bson:"event_id"`
	Type        string    `bson:"type"`
	Status      string    `bson:"status"`
	DownloadURL string    `bson:"download_url,omitempty"`
	Timestamp   time.Time `bson:"timestamp"`
	Message     string    `bson:"message"`
}

// Store persists a Notification at a compound path, the C8 write contract.
type Store interface {
	Publish(ctx context.Context, path string, n Notification) error
}

// RoleResolver is the subset of cache.Cache's API the Notifier depends on,
// narrowed the way workbook.getObjectAPI narrows the S3 client — so a fake
// can stand in without a live Redis/client-service pair.
type RoleResolver interface {
	Resolve(ctx context.Context, clientID, productID, userID int64) (cache.UserRoleAccess, error)
}

// Notifier resolves a job's GUIDs through a RoleResolver and writes the
// completion notification. Every public method swallows its own failures —
// the way publish_at_user catches every exception and returns false — so
// the Job Router can call it without branching on error.
type Notifier struct {
	store  Store
	roles  RoleResolver
	logger *zap.Logger
}

// New builds a Notifier.
func New(store Store, roles RoleResolver, logger *zap.Logger) *Notifier {
	return &Notifier{store: store, roles: roles, logger: logger.Named("notify")}
}

// NotifyExportComplete publishes the EXPORT_COMPLETE notification for j at
// the terminal status (audit.StatusSuccess or audit.StatusFailed), with
// downloadURL set only on success. Failures are logged and wrapped in
// apperr.ErrNotifierFailure but never returned to a caller that would use
// them to fail the job — the router discards this method's absence of a
// return value by design.
func (n *Notifier) NotifyExportComplete(ctx context.Context, j *job.ExportJob, status audit.Status, downloadURL string) {
	access, err := n.roles.Resolve(ctx, j.ClientID, j.ProductID, j.UserID)
	if err != nil {
		n.logger.Error("user role data not found, dropping notification",
			zap.String("event_id", j.EventID), zap.Int64("client_id", j.ClientID), zap.Error(fmt.Errorf("%w: %v", apperr.ErrNotifierFailure, err)))
		return
	}

	path := fmt.Sprintf("pd/%s/cl/%s/usr/%s/notifications/%s",
		access.ProductGUID, access.ClientGUID, access.UserGUID, j.EventID)

	message := "Export failed"
	if status == audit.StatusSuccess {
		message = "Your export is ready for download"
	}

	notification := Notification{
		EventID:     j.EventID,
		Type:        typeExportComplete,
		Status:      string(status),
		DownloadURL: downloadURL,
		Timestamp:   time.Now().UTC(),
		Message:     message,
	}

	if err := n.store.Publish(ctx, path, notification); err != nil {
		n.logger.Error("failed to publish export notification",
			zap.String("event_id", j.EventID), zap.Error(fmt.Errorf("%w: %v", apperr.ErrNotifierFailure, err)))
		return
	}
	n.logger.Info("published export notification",
		zap.String("event_id", j.EventID), zap.String("path", path), zap.String("status", string(status)))
}
