// Package reportbuilder implements the Report Builder component (C5): one
// concrete builder per (module, type, subType) route, each assembling a
// multi-sheet workbook by paginating the Analytics Clients and writing
// pages into object storage via the Workbook Storage Adapter.
package reportbuilder

import (
	"context"

	"github.com/sifthub/export-worker/internal/job"
)

// Handle is the artifact a Builder hands back once the workbook is
// complete: where it lives and the URL minted for it. It is the
// "Streaming Handle" the Delivery Sink forwards to the Notifier.
type Handle struct {
	Bucket       string
	Key          string
	PresignedURL string
	// Filename is the display name a downloader would save the artifact
	// as (§4.5's filename contract) — distinct from Key, which is the
	// opaque object-storage path minted by workbook.Adapter.ComputeKey.
	Filename string
}

// Builder is the contract every report builder satisfies. Build performs
// the full two-phase assembly (skeleton upload, then page-by-page
// download-mutate-upload) and returns the finished artifact's Handle.
//
// Any unrecoverable error aborts the build: partial objects are left in
// storage (no cleanup), but the caller must mark the job FAILED and emit
// no download URL.
type Builder interface {
	Build(ctx context.Context, j *job.ExportJob) (Handle, error)
}
