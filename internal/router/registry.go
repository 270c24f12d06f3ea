package router

import (
	"time"

	"go.uber.org/zap"

	"github.com/sifthub/export-worker/internal/analytics"
	"github.com/sifthub/export-worker/internal/audit"
	"github.com/sifthub/export-worker/internal/delivery"
	"github.com/sifthub/export-worker/internal/job"
	"github.com/sifthub/export-worker/internal/notify"
	"github.com/sifthub/export-worker/internal/reportbuilder"
	"github.com/sifthub/export-worker/internal/workbook"
)

// Builders is the fixed set of collaborators every report builder needs,
// gathered so NewDefault can wire the known routes from spec §4.2 in one
// call the way cmd/exportworker/main.go's run() does for every other
// singleton.
type Builders struct {
	Insights  *analytics.InsightsClient
	UsageLogs *analytics.UsageLogsClient
	Storage   workbook.Adapter
	Bucket    string
	PresignTTL time.Duration
}

// NewDefault builds a Router with every route spec §4.2 names already
// registered: the FAQ insights report, the three usage-log reports, and
// the download/email delivery sinks. Routes this worker does not implement
// are simply absent from the registry — Route's lookup then returns
// apperr.ErrUnsupportedReport, matching module_factory.get_module_processor
// logging "no processor found" and returning None for an unknown module.
func NewDefault(b Builders, auditLog audit.Store, notifier *notify.Notifier, logger *zap.Logger) *Router {
	r := New(auditLog, notifier, logger)

	faq := reportbuilder.NewFAQBuilder(b.Insights, b.Storage, b.Bucket, b.PresignTTL, logger)
	r.RegisterBuilder(job.ModuleInsights, "responseGeneration", "frequentAskedQuestions", faq)

	answer := reportbuilder.NewAnswerUsageBuilder(b.UsageLogs, b.Storage, b.Bucket, b.PresignTTL, logger)
	r.RegisterBuilder(job.ModuleUsageLogs, "answer", "", answer)

	autofill := reportbuilder.NewAutofillUsageBuilder(b.UsageLogs, b.Storage, b.Bucket, b.PresignTTL, logger)
	r.RegisterBuilder(job.ModuleUsageLogs, "autofill", "", autofill)

	teammate := reportbuilder.NewTeammateUsageBuilder(b.UsageLogs, b.Storage, b.Bucket, b.PresignTTL, logger)
	r.RegisterBuilder(job.ModuleUsageLogs, "AITeammate", "", teammate)

	r.RegisterSink(job.ModeDownload, delivery.NewDownloadSink(logger))
	r.RegisterSink(job.ModeEmail, delivery.NewEmailSink(logger))

	return r
}
