package reportbuilder

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/sifthub/export-worker/internal/analytics"
	"github.com/sifthub/export-worker/internal/httpclient"
	"github.com/sifthub/export-worker/internal/job"
	"github.com/sifthub/export-worker/internal/workbook"
)

func writeEnvelope(t *testing.T, w http.ResponseWriter, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	out, err := json.Marshal(httpclient.Envelope{Status: 200, Message: "ok", Data: raw})
	require.NoError(t, err)
	_, _ = w.Write(out)
}

func TestFAQBuilderBuildAssemblesThreeSheets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		raw, _ := httpTestBody(r)
		_ = json.Unmarshal(raw, &body)

		switch {
		case strings.HasSuffix(r.URL.Path, "/info-cards"):
			writeEnvelope(t, w, analytics.InfoCards{
				TotalQuestions:         analytics.CategoryCount{Count: 1000},
				TotalQuestionsAnswered: analytics.CategoryCount{Count: 800},
			})
		case strings.HasSuffix(r.URL.Path, "/category-distribution"):
			if body["page"] == float64(1) {
				writeEnvelope(t, w, []analytics.CategoryRow{
					{ID: "c1", Name: "Billing", Distribution: 50, Trend: analytics.Trend{Direction: "INCREASING", Value: 12}, Link: "l1"},
					{ID: "c2", Name: "Support", Distribution: 25, Trend: analytics.Trend{Direction: "DECREASING", Value: 5}, Link: "l2"},
				})
				return
			}
			writeEnvelope(t, w, []analytics.CategoryRow{})
		case strings.Contains(r.URL.Path, "/category/c1/subcategory-distribution"):
			if body["page"] == float64(1) {
				writeEnvelope(t, w, []analytics.SubCategoryRow{
					{Name: "Invoices", Distribution: 30, Trend: analytics.Trend{Direction: "INCREASING", Value: 2}, Link: "sl1"},
				})
				return
			}
			writeEnvelope(t, w, []analytics.SubCategoryRow{})
		case strings.Contains(r.URL.Path, "/category/c2/subcategory-distribution"):
			writeEnvelope(t, w, []analytics.SubCategoryRow{})
		case strings.HasSuffix(r.URL.Path, "/top-questions/list"):
			if body["page"] == float64(1) {
				writeEnvelope(t, w, []analytics.QuestionRow{
					{Question: "How do I reset my password?", Frequency: 42, Link: "ql1"},
				})
				return
			}
			writeEnvelope(t, w, []analytics.QuestionRow{})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	httpC := httpclient.New(httpclient.Config{})
	insights := analytics.NewInsightsClient(httpC, srv.URL, zap.NewNop())
	storage := workbook.NewFake()

	builder := NewFAQBuilder(insights, storage, "sifthub-exports", 24*time.Hour, zap.NewNop())

	j := &job.ExportJob{
		EventID:   "evt-1",
		Mode:      job.ModeDownload,
		Module:    job.ModuleInsights,
		Type:      "responseGeneration",
		SubType:   "frequentAskedQuestions",
		ClientID:  7,
		UserID:    3,
		ProductID: 1,
		Filter: &job.FilterSet{Conditions: map[string]job.Condition{
			"status": {Field: "status", Data: "ANSWERED#@#PARTIAL"},
		}},
		PageFilter: &job.FilterSet{Conditions: map[string]job.Condition{
			"meta.created": {Field: "meta.created", Data: "1746297000000#@#1748888999999"},
		}},
	}

	handle, err := builder.Build(context.Background(), j)
	require.NoError(t, err)
	assert.Equal(t, "sifthub-exports", handle.Bucket)
	assert.Contains(t, handle.PresignedURL, handle.Key)
	assert.Regexp(t, `^Frequently_Asked_Questions_Report_Answered_\d{8}_\d{6}\.xlsx$`, handle.Filename)

	data, err := storage.Get(context.Background(), handle.Key)
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)

	catRows, err := f.GetRows(sheetCategories)
	require.NoError(t, err)
	// title, metadata, blank, header, then 2 data rows.
	require.Len(t, catRows, 6)
	assert.Equal(t, "Billing", catRows[4][0])
	assert.Equal(t, "400", catRows[4][1]) // floor(800 * 50 / 100)
	assert.Equal(t, "▲ 12%", catRows[4][3])

	subRows, err := f.GetRows(sheetSubcategories)
	require.NoError(t, err)
	require.Len(t, subRows, 5)
	assert.Equal(t, "→ Invoices", subRows[4][0])
	assert.Equal(t, "Billing", subRows[4][1])

	qRows, err := f.GetRows(sheetQuestions)
	require.NoError(t, err)
	require.Len(t, qRows, 5)
	assert.Equal(t, "How do I reset my password?", qRows[4][0])
	assert.Equal(t, "42", qRows[4][1])
}

func httpTestBody(r *http.Request) ([]byte, error) {
	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(r.Body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
