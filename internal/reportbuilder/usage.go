package reportbuilder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sifthub/export-worker/internal/analytics"
	"github.com/sifthub/export-worker/internal/job"
	"github.com/sifthub/export-worker/internal/workbook"
)

// Sheet tab names shared by every usage-log report.
const (
	sheetLogs    = "Logs"
	sheetSummary = "Summary"
)

// usageDependencies holds the collaborators every usage-log builder shares.
type usageDependencies struct {
	usage      *analytics.UsageLogsClient
	storage    workbook.Adapter
	bucket     string
	pageSize   int
	presignTTL time.Duration
	logger     *zap.Logger
}

// AnswerUsageBuilder assembles the (usageLogs, answer, *) report.
type AnswerUsageBuilder struct{ deps usageDependencies }

// NewAnswerUsageBuilder builds an AnswerUsageBuilder.
func NewAnswerUsageBuilder(usage *analytics.UsageLogsClient, storage workbook.Adapter, bucket string, presignTTL time.Duration, logger *zap.Logger) *AnswerUsageBuilder {
	return &AnswerUsageBuilder{deps: usageDependencies{
		usage: usage, storage: storage, bucket: bucket,
		pageSize: analytics.BatchSize, presignTTL: presignTTL,
		logger: logger.Named("reportbuilder.answerusage"),
	}}
}

// Build implements Builder.
func (b *AnswerUsageBuilder) Build(ctx context.Context, j *job.ExportJob) (Handle, error) {
	stats, err := b.deps.usage.AnswerStats(ctx, j.Filter, j.PageFilter)
	if err != nil {
		return Handle{}, fmt.Errorf("answer usage builder: stats: %w", err)
	}
	summary := metricRows([][2]any{
		{"Total", stats.Total},
		{"Answered", stats.Answered},
		{"No information", stats.NoInformation},
		{"Transactions consumed", stats.TxConsumed},
	})

	return buildUsageReport(ctx, b.deps, j, "Answer", summary, func(ctx context.Context, j *job.ExportJob, pageSize int) func(func(analytics.Page[analytics.LogRow], error) bool) {
		return b.deps.usage.AnswerLogs(ctx, j.Filter, j.PageFilter, pageSize)
	})
}

// AutofillUsageBuilder assembles the (usageLogs, autofill, *) report.
type AutofillUsageBuilder struct{ deps usageDependencies }

// NewAutofillUsageBuilder builds an AutofillUsageBuilder.
func NewAutofillUsageBuilder(usage *analytics.UsageLogsClient, storage workbook.Adapter, bucket string, presignTTL time.Duration, logger *zap.Logger) *AutofillUsageBuilder {
	return &AutofillUsageBuilder{deps: usageDependencies{
		usage: usage, storage: storage, bucket: bucket,
		pageSize: analytics.BatchSize, presignTTL: presignTTL,
		logger: logger.Named("reportbuilder.autofillusage"),
	}}
}

// Build implements Builder.
func (b *AutofillUsageBuilder) Build(ctx context.Context, j *job.ExportJob) (Handle, error) {
	stats, err := b.deps.usage.AutofillStats(ctx, j.Filter, j.PageFilter)
	if err != nil {
		return Handle{}, fmt.Errorf("autofill usage builder: stats: %w", err)
	}
	summary := metricRows([][2]any{
		{"Total runs", stats.TotalRuns},
		{"Total documents", stats.TotalDocuments},
		{"Total questions", stats.TotalQuestions},
		{"Total questions answered", stats.TotalQuestionsAnswered},
		{"Average response time", stats.AverageResponseTime},
	})

	return buildUsageReport(ctx, b.deps, j, "Autofill", summary, func(ctx context.Context, j *job.ExportJob, pageSize int) func(func(analytics.Page[analytics.LogRow], error) bool) {
		return b.deps.usage.AutofillLogs(ctx, j.Filter, j.PageFilter, pageSize)
	})
}

// TeammateUsageBuilder assembles the (usageLogs, AITeammate, *) report.
type TeammateUsageBuilder struct{ deps usageDependencies }

// NewTeammateUsageBuilder builds a TeammateUsageBuilder.
func NewTeammateUsageBuilder(usage *analytics.UsageLogsClient, storage workbook.Adapter, bucket string, presignTTL time.Duration, logger *zap.Logger) *TeammateUsageBuilder {
	return &TeammateUsageBuilder{deps: usageDependencies{
		usage: usage, storage: storage, bucket: bucket,
		pageSize: analytics.BatchSize, presignTTL: presignTTL,
		logger: logger.Named("reportbuilder.teammateusage"),
	}}
}

// Build implements Builder.
func (b *TeammateUsageBuilder) Build(ctx context.Context, j *job.ExportJob) (Handle, error) {
	stats, err := b.deps.usage.TeammateStats(ctx, j.Filter, j.PageFilter)
	if err != nil {
		return Handle{}, fmt.Errorf("teammate usage builder: stats: %w", err)
	}
	summary := metricRows([][2]any{
		{"Thread count", stats.ThreadCount},
		{"Average time", stats.AverageTime},
		{"Transactions consumed", stats.TxConsumed},
	})

	start, end, hasRange := job.ParseDateRange(j.PageFilter)
	if !hasRange {
		start, end = time.Now(), time.Now()
	}
	key := b.deps.storage.ComputeKey(j.EventID, j.ClientID, string(j.Module), j.Type, j.SubType)
	specs := []sheetSpec{
		{Name: sheetLogs, Title: "AI-Teammate Usage Logs", Headers: []string{"Conversations", "Date", "Owner", "No. of Turns", "Response time", "Transactions consumed"}},
		{Name: sheetSummary, Title: "AI-Teammate Usage Summary", Headers: []string{"Metric", "Value"}},
	}
	if err := uploadSkeleton(ctx, b.deps.storage, key, specs); err != nil {
		return Handle{}, fmt.Errorf("teammate usage builder: upload skeleton: %w", err)
	}

	for page, err := range b.deps.usage.TeammateLogs(ctx, j.Filter, j.PageFilter, b.deps.pageSize) {
		if err != nil {
			return Handle{}, fmt.Errorf("teammate usage builder: logs: %w", err)
		}
		rows := make([][]any, 0, len(page.Items))
		for _, row := range page.Items {
			rows = append(rows, teammateRowCells(row))
		}
		if err := appendRows(ctx, b.deps.storage, key, sheetLogs, rows); err != nil {
			return Handle{}, fmt.Errorf("teammate usage builder: append logs: %w", err)
		}
	}
	if err := appendRows(ctx, b.deps.storage, key, sheetSummary, summary); err != nil {
		return Handle{}, fmt.Errorf("teammate usage builder: append summary: %w", err)
	}

	url, err := b.deps.storage.PresignGet(ctx, key, b.deps.presignTTL)
	if err != nil {
		return Handle{}, fmt.Errorf("teammate usage builder: presign: %w", err)
	}
	return Handle{
		Bucket:       b.deps.bucket,
		Key:          key,
		PresignedURL: url,
		Filename:     usageLogsFilename("Aiteammate", start, end, time.Now()),
	}, nil
}

// buildUsageReport runs the shared Answer/Autofill assembly: skeleton
// upload, log-stream append, summary append, presign.
func buildUsageReport(
	ctx context.Context,
	deps usageDependencies,
	j *job.ExportJob,
	typeTitle string,
	summary [][]any,
	streamLogs func(ctx context.Context, j *job.ExportJob, pageSize int) func(func(analytics.Page[analytics.LogRow], error) bool),
) (Handle, error) {
	start, end, hasRange := job.ParseDateRange(j.PageFilter)
	if !hasRange {
		start, end = time.Now(), time.Now()
	}

	key := deps.storage.ComputeKey(j.EventID, j.ClientID, string(j.Module), j.Type, j.SubType)
	specs := []sheetSpec{
		{Name: sheetLogs, Title: typeTitle + " Usage Logs", Headers: []string{"Question", "Instruction", "Answer", "Sources", "Status", "Date", "User", "Initiated from", "Transactions consumed"}},
		{Name: sheetSummary, Title: typeTitle + " Usage Summary", Headers: []string{"Metric", "Value"}},
	}
	if err := uploadSkeleton(ctx, deps.storage, key, specs); err != nil {
		return Handle{}, fmt.Errorf("%s usage builder: upload skeleton: %w", typeTitle, err)
	}

	for page, err := range streamLogs(ctx, j, deps.pageSize) {
		if err != nil {
			return Handle{}, fmt.Errorf("%s usage builder: logs: %w", typeTitle, err)
		}
		rows := make([][]any, 0, len(page.Items))
		for _, row := range page.Items {
			rows = append(rows, logRowCells(row))
		}
		if err := appendRows(ctx, deps.storage, key, sheetLogs, rows); err != nil {
			return Handle{}, fmt.Errorf("%s usage builder: append logs: %w", typeTitle, err)
		}
	}
	if err := appendRows(ctx, deps.storage, key, sheetSummary, summary); err != nil {
		return Handle{}, fmt.Errorf("%s usage builder: append summary: %w", typeTitle, err)
	}

	url, err := deps.storage.PresignGet(ctx, key, deps.presignTTL)
	if err != nil {
		return Handle{}, fmt.Errorf("%s usage builder: presign: %w", typeTitle, err)
	}
	return Handle{
		Bucket:       deps.bucket,
		Key:          key,
		PresignedURL: url,
		Filename:     usageLogsFilename(typeTitle, start, end, time.Now()),
	}, nil
}

func logRowCells(row analytics.LogRow) []any {
	return []any{
		row.Question,
		row.Instruction,
		row.Answer,
		strings.Join(row.Sources, ", "),
		row.Status,
		formatMillis(row.Meta.Created),
		row.Meta.CreatedBy.FullName,
		row.InitiatedFrom,
		row.TransactionsConsumed,
	}
}

func teammateRowCells(row analytics.TeammateLogRow) []any {
	return []any{
		row.Title,
		formatMillis(row.Meta.Created),
		row.Meta.CreatedBy.FullName,
		row.ThreadCount,
		row.AverageTime,
		row.TransactionsConsumed,
	}
}

func formatMillis(ms int64) string {
	if ms == 0 {
		return ""
	}
	return time.UnixMilli(ms).UTC().Format("Jan 2, 2006")
}

func metricRows(pairs [][2]any) [][]any {
	rows := make([][]any, len(pairs))
	for i, p := range pairs {
		rows[i] = []any{p[0], p[1]}
	}
	return rows
}
