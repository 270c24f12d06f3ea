// Package router implements the Job Router (C2): it takes an ExportJob that
// queue.ParseEnvelope has already parsed and validated (Route does not
// re-validate it), dispatches it to the registered Report Builder and
// Delivery Sink for its (module, type, subType) and mode, and drives the
// audit transitions and completion notification around that work.
//
// Grounded on original_source/sifthub/reporting/event/handler/export_event_handler.py's
// process_export_request — the module/delivery factory lookups
// (reporting/factories/module_factory.py, delivery_factory.py) become the
// two registries below, and the PROCESSING -> SUCCESS|FAILED audit calls
// the handler makes around module_processor.process_export /
// delivery_processor.deliver_export are the Update calls this package
// makes around Builder.Build / Sink.Deliver.
package router

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sifthub/export-worker/internal/apperr"
	"github.com/sifthub/export-worker/internal/audit"
	"github.com/sifthub/export-worker/internal/delivery"
	"github.com/sifthub/export-worker/internal/job"
	"github.com/sifthub/export-worker/internal/notify"
	"github.com/sifthub/export-worker/internal/reportbuilder"
)

// wildcardSubType is the registry sentinel for routes the spec registers as
// "(module, type, *)" — every usage-log report ignores subType and routes
// on (module, type) alone.
const wildcardSubType = "*"

// builderKey is the Report Builder registry's lookup key.
type builderKey struct {
	Module  job.Module
	Type    string
	SubType string
}

// Router holds the two dispatch tables from spec §4.2, created empty by New
// and populated once at startup (NewDefault registers every known route),
// plus the collaborators every routed job needs: the Audit
// Store (C3) and the Notifier (C8).
type Router struct {
	builders map[builderKey]reportbuilder.Builder
	sinks    map[job.Mode]delivery.Sink
	auditLog audit.Store
	notifier *notify.Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// New builds an empty Router. Register builders and sinks before routing
// any jobs through it.
func New(auditLog audit.Store, notifier *notify.Notifier, logger *zap.Logger) *Router {
	return &Router{
		builders: make(map[builderKey]reportbuilder.Builder),
		sinks:    make(map[job.Mode]delivery.Sink),
		auditLog: auditLog,
		notifier: notifier,
		logger:   logger.Named("router"),
		now:      time.Now,
	}
}

// RegisterBuilder adds a (module, type, subType) route to the Report
// Builder registry. Pass subType "" to register a module/type-only route
// that matches any subType, mirroring the "(usageLogs, answer, *)" entries
// in spec §4.2 — reports that key purely on module_factory's module lookup
// in the source, never on a sub-type.
func (r *Router) RegisterBuilder(module job.Module, reportType, subType string, b reportbuilder.Builder) {
	if subType == "" {
		subType = wildcardSubType
	}
	r.builders[builderKey{Module: module, Type: reportType, SubType: subType}] = b
}

// RegisterSink adds a mode route to the Delivery Sink registry.
func (r *Router) RegisterSink(mode job.Mode, s delivery.Sink) {
	r.sinks[mode] = s
}

// lookupBuilder tries the exact (module, type, subType) route first, then
// falls back to the module/type wildcard route.
func (r *Router) lookupBuilder(j *job.ExportJob) (reportbuilder.Builder, bool) {
	if b, ok := r.builders[builderKey{Module: j.Module, Type: j.Type, SubType: j.SubType}]; ok {
		return b, true
	}
	b, ok := r.builders[builderKey{Module: j.Module, Type: j.Type, SubType: wildcardSubType}]
	return b, ok
}

// Route runs one job to completion: PROCESSING -> build -> deliver ->
// SUCCESS|FAILED -> notify. It returns a non-nil error only for failures
// the Queue Consumer should classify with apperr.Retryable to decide
// whether the broker message is acknowledged or left for redrive; audit
// and notification side effects have already happened by the time Route
// returns, success or failure.
func (r *Router) Route(ctx context.Context, j *job.ExportJob) error {
	start := r.now()
	logger := r.logger.With(
		zap.String("event_id", j.EventID),
		zap.Int64("client_id", j.ClientID),
		zap.String("module", string(j.Module)),
		zap.String("type", j.Type),
	)

	if _, _, err := r.update(ctx, j, audit.StatusProcessing, audit.TransitionFields{}); err != nil {
		logger.Error("failed to mark job processing", zap.Error(err))
	}

	builder, ok := r.lookupBuilder(j)
	if !ok {
		err := fmt.Errorf("%w: no report builder for module=%s type=%s subType=%s", apperr.ErrUnsupportedReport, j.Module, j.Type, j.SubType)
		r.fail(ctx, j, logger, err)
		return err
	}

	sink, ok := r.sinks[j.Mode]
	if !ok {
		err := fmt.Errorf("%w: no delivery sink for mode=%s", apperr.ErrUnsupportedReport, j.Mode)
		r.fail(ctx, j, logger, err)
		return err
	}

	handle, err := builder.Build(ctx, j)
	if err != nil {
		r.fail(ctx, j, logger, err)
		return err
	}

	result, err := sink.Deliver(ctx, handle)
	if err != nil {
		r.fail(ctx, j, logger, err)
		return err
	}
	if !result.Success {
		err := fmt.Errorf("%w: delivery sink reported failure for mode=%s", apperr.ErrStorageWrite, j.Mode)
		r.fail(ctx, j, logger, err)
		return err
	}

	totalTime := r.now().Sub(start)
	if _, _, err := r.update(ctx, j, audit.StatusSuccess, audit.TransitionFields{
		TotalTime: &totalTime, Bucket: result.Bucket, URL: result.URL,
	}); err != nil {
		logger.Error("failed to mark job success", zap.Error(err))
	}

	// Only the download sink's completion carries a URL; email (and any
	// future non-download mode) gets a status-only notification even on
	// success, per spec §4.2/§4.7.
	downloadURL := ""
	if j.Mode == job.ModeDownload {
		downloadURL = result.URL
	}
	r.notifier.NotifyExportComplete(ctx, j, audit.StatusSuccess, downloadURL)
	logger.Info("export job completed", zap.Duration("total_time", totalTime))
	return nil
}

// fail marks the job FAILED and emits a status-only failure notification,
// the same unconditional cleanup export_event_handler.process_export_request
// performs on every early-return and caught exception.
func (r *Router) fail(ctx context.Context, j *job.ExportJob, logger *zap.Logger, cause error) {
	if _, _, err := r.update(ctx, j, audit.StatusFailed, audit.TransitionFields{}); err != nil {
		logger.Error("failed to mark job failed", zap.Error(err))
	}
	r.notifier.NotifyExportComplete(ctx, j, audit.StatusFailed, "")
	logger.Error("export job failed", zap.Error(cause))
}

// update wraps auditLog.Update, translating a zero-rows-modified result into
// apperr.ErrAuditWriteMiss for logging by the caller without failing the
// job on that condition alone (spec §7).
func (r *Router) update(ctx context.Context, j *job.ExportJob, status audit.Status, fields audit.TransitionFields) (bool, audit.Status, error) {
	modified, err := r.auditLog.Update(ctx, j.EventID, j.ClientID, status, fields)
	if err != nil {
		return false, status, fmt.Errorf("router: update audit row: %w", err)
	}
	if !modified {
		return false, status, fmt.Errorf("%w: event=%s client=%d status=%s", apperr.ErrAuditWriteMiss, j.EventID, j.ClientID, status)
	}
	return true, status, nil
}
