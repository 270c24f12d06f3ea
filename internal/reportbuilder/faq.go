package reportbuilder

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/sifthub/export-worker/internal/analytics"
	"github.com/sifthub/export-worker/internal/job"
	"github.com/sifthub/export-worker/internal/workbook"
)

// Sheet tab names for the FAQ report. Kept short of Excel's 31-character
// sheet-name limit; the filter-derived suffix is rendered in each sheet's
// title row instead of the tab name.
const (
	sheetCategories    = "Top Question Categories"
	sheetSubcategories = "Category Breakdown"
	sheetQuestions     = "Top Questions"
)

// FAQBuilder assembles the frequentAskedQuestions report: three sheets fed
// from the category-distribution, subcategory-distribution and
// top-questions streams.
type FAQBuilder struct {
	insights   *analytics.InsightsClient
	storage    workbook.Adapter
	bucket     string
	pageSize   int
	presignTTL time.Duration
	logger     *zap.Logger
}

// NewFAQBuilder builds a FAQBuilder. presignTTL controls the download
// URL's lifetime, matching the config's ExportFileExpiryHours.
func NewFAQBuilder(insights *analytics.InsightsClient, storage workbook.Adapter, bucket string, presignTTL time.Duration, logger *zap.Logger) *FAQBuilder {
	return &FAQBuilder{
		insights:   insights,
		storage:    storage,
		bucket:     bucket,
		pageSize:   analytics.BatchSize,
		presignTTL: presignTTL,
		logger:     logger.Named("reportbuilder.faq"),
	}
}

// Build implements Builder.
func (b *FAQBuilder) Build(ctx context.Context, j *job.ExportJob) (Handle, error) {
	suffix := job.DetermineFAQSuffix(j.Filter)
	dateRange := job.RenderDateRange(j.PageFilter)

	infoCards, err := b.insights.InfoCards(ctx, j.Filter, j.PageFilter)
	if err != nil {
		return Handle{}, fmt.Errorf("faq builder: info cards: %w", err)
	}
	total := denominator(suffix, infoCards)

	key := b.storage.ComputeKey(j.EventID, j.ClientID, string(j.Module), j.Type, j.SubType)
	meta := []string{"Date range - " + dateRange}
	specs := []sheetSpec{
		{
			Name:     sheetCategories,
			Title:    fmt.Sprintf("Top Question Categories - %s", suffix),
			Metadata: meta,
			Headers:  []string{"Category", "Frequency", "Distribution", "Trend", "Link"},
		},
		{
			Name:     sheetSubcategories,
			Title:    fmt.Sprintf("Detailed Category Breakdown - %s", suffix),
			Metadata: meta,
			Headers:  []string{"Subcategory", "Parent Category", "Frequency", "Distribution", "Trend", "Link"},
		},
		{
			Name:     sheetQuestions,
			Title:    fmt.Sprintf("Top Asked Questions - %s", suffix),
			Metadata: meta,
			Headers:  []string{"Question", "Frequency", "Link"},
		},
	}
	if err := uploadSkeleton(ctx, b.storage, key, specs); err != nil {
		return Handle{}, fmt.Errorf("faq builder: upload skeleton: %w", err)
	}

	type category struct{ ID, Name string }
	var categories []category

	for page, err := range b.insights.CategoryDistribution(ctx, j.Filter, j.PageFilter, b.pageSize) {
		if err != nil {
			return Handle{}, fmt.Errorf("faq builder: category distribution: %w", err)
		}
		rows := make([][]any, 0, len(page.Items))
		for _, c := range page.Items {
			rows = append(rows, []any{c.Name, frequency(total, c.Distribution), formatPercent(c.Distribution), renderTrend(c.Trend), c.Link})
			categories = append(categories, category{ID: c.ID, Name: c.Name})
		}
		if err := appendRows(ctx, b.storage, key, sheetCategories, rows); err != nil {
			return Handle{}, fmt.Errorf("faq builder: append categories: %w", err)
		}
	}

	// All category pages complete before any sub-category stream begins,
	// per the ordering contract in §5.
	for _, cat := range categories {
		for page, err := range b.insights.SubcategoryDistribution(ctx, cat.ID, j.Filter, j.PageFilter, b.pageSize) {
			if err != nil {
				return Handle{}, fmt.Errorf("faq builder: subcategory distribution for %s: %w", cat.ID, err)
			}
			rows := make([][]any, 0, len(page.Items))
			for _, s := range page.Items {
				rows = append(rows, []any{"→ " + s.Name, cat.Name, frequency(total, s.Distribution), formatPercent(s.Distribution), renderTrend(s.Trend), s.Link})
			}
			if err := appendRows(ctx, b.storage, key, sheetSubcategories, rows); err != nil {
				return Handle{}, fmt.Errorf("faq builder: append subcategories for %s: %w", cat.ID, err)
			}
		}
	}

	for page, err := range b.insights.TopQuestions(ctx, j.Filter, j.PageFilter, b.pageSize) {
		if err != nil {
			return Handle{}, fmt.Errorf("faq builder: top questions: %w", err)
		}
		rows := make([][]any, 0, len(page.Items))
		for _, q := range page.Items {
			rows = append(rows, []any{q.Question, q.Frequency, q.Link})
		}
		if err := appendRows(ctx, b.storage, key, sheetQuestions, rows); err != nil {
			return Handle{}, fmt.Errorf("faq builder: append questions: %w", err)
		}
	}

	url, err := b.storage.PresignGet(ctx, key, b.presignTTL)
	if err != nil {
		return Handle{}, fmt.Errorf("faq builder: presign: %w", err)
	}
	return Handle{
		Bucket:       b.bucket,
		Key:          key,
		PresignedURL: url,
		Filename:     faqFilename(suffix, time.Now()),
	}, nil
}

// denominator picks the Info-Cards count that matches the FAQ suffix: the
// two "answered"-ish buckets collapse together for the Answered filter, and
// Unanswered is the complement — the preserved quirk noted in §9.
func denominator(suffix job.FAQSuffix, cards analytics.InfoCards) int {
	switch suffix {
	case job.FAQSuffixAnswered:
		return cards.TotalQuestionsAnswered.Count
	case job.FAQSuffixUnanswered:
		return cards.TotalQuestions.Count - cards.TotalQuestionsAnswered.Count
	default:
		return cards.TotalQuestions.Count
	}
}

// frequency implements frequency(total, pct) = floor(total * pct / 100).
func frequency(total int, distributionPct float64) int {
	return int(math.Floor(float64(total) * distributionPct / 100))
}

// renderTrend renders "▲ N%" for an increasing trend, "▼ N%" otherwise,
// using the trend's absolute value rounded to the nearest integer —
// matching the original's f"{abs(trend):.0f}%" cell rendering.
func renderTrend(t analytics.Trend) string {
	arrow := "▼"
	if t.Direction == "INCREASING" {
		arrow = "▲"
	}
	return fmt.Sprintf("%s %s%%", arrow, strconv.FormatFloat(math.Abs(t.Value), 'f', 0, 64))
}

// formatPercent renders a distribution percentage to two decimal places,
// matching the original's f"{distribution:.2f}%" cell rendering.
func formatPercent(pct float64) string {
	return strconv.FormatFloat(pct, 'f', 2, 64) + "%"
}
