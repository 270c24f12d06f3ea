package reportbuilder

import (
	"fmt"
	"strings"
	"time"

	"github.com/sifthub/export-worker/internal/job"
)

// faqFilename renders the FAQ artifact's display filename:
// Frequently_Asked_Questions_Report_{suffix}_{UTCtimestamp}.xlsx, matching
// the pattern ^Frequently_Asked_Questions_Report_(All|Answered|Unanswered)_\d{8}_\d{6}\.xlsx$.
func faqFilename(suffix job.FAQSuffix, now time.Time) string {
	return fmt.Sprintf("Frequently_Asked_Questions_Report_%s_%s.xlsx", suffix, now.UTC().Format("20060102_150405"))
}

// usageLogsFilename renders a usage-log artifact's display filename:
// {Type Title}_Usage_logs_{startUnderscored}_to_{endUnderscored}_{UTCtimestamp}.xlsx.
// typeTitle is one of "Answer", "Autofill", "Aiteammate".
func usageLogsFilename(typeTitle string, start, end, now time.Time) string {
	return fmt.Sprintf("%s_Usage_logs_%s_to_%s_%s.xlsx",
		typeTitle, underscoreDate(start), underscoreDate(end), now.UTC().Format("20060102_150405"))
}

// underscoreDate renders a date as "May_3_2025" — the comma- and
// space-free form used in usage-log filenames.
func underscoreDate(t time.Time) string {
	s := t.UTC().Format("Jan 2, 2006")
	s = strings.ReplaceAll(s, ",", "")
	return strings.ReplaceAll(s, " ", "_")
}
