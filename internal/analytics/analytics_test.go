package analytics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sifthub/export-worker/internal/httpclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func marshalEnvelope(t *testing.T, data any) []byte {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	out, err := json.Marshal(httpclient.Envelope{Status: 200, Message: "ok", Data: raw})
	require.NoError(t, err)
	return out
}

func TestCategoryDistributionStreamTerminatesOnShortPage(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		var body requestBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body.Page == 1 {
			rows := make([]CategoryRow, body.PageSize)
			for i := range rows {
				rows[i] = CategoryRow{ID: "c", Name: "cat"}
			}
			w.Write(marshalEnvelope(t, rows))
			return
		}
		w.Write(marshalEnvelope(t, []CategoryRow{{ID: "last", Name: "tail"}}))
	}))
	defer srv.Close()

	client := httpclient.New(httpclient.Config{})
	insights := NewInsightsClient(client, srv.URL, zap.NewNop())

	var pages []Page[CategoryRow]
	for page, err := range insights.CategoryDistribution(context.Background(), nil, nil, 5) {
		require.NoError(t, err)
		pages = append(pages, page)
	}

	require.Len(t, pages, 2)
	assert.Len(t, pages[0].Items, 5)
	assert.Len(t, pages[1].Items, 1)
	assert.Equal(t, 2, calls)
}

func TestInfoCardsDecodesDenominators(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(marshalEnvelope(t, InfoCards{
			TotalQuestions:         CategoryCount{Count: 1000},
			TotalQuestionsAnswered: CategoryCount{Count: 800},
		}))
	}))
	defer srv.Close()

	client := httpclient.New(httpclient.Config{})
	insights := NewInsightsClient(client, srv.URL, zap.NewNop())

	cards, err := insights.InfoCards(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1000, cards.TotalQuestions.Count)
	assert.Equal(t, 800, cards.TotalQuestionsAnswered.Count)
}

func TestAnswerStatsDecodesSummary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(marshalEnvelope(t, AnswerSummary{Total: 10, Answered: 7, NoInformation: 3, TxConsumed: 42}))
	}))
	defer srv.Close()

	client := httpclient.New(httpclient.Config{})
	usage := NewUsageLogsClient(client, srv.URL, zap.NewNop())

	summary, err := usage.AnswerStats(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 10, summary.Total)
	assert.Equal(t, 42, summary.TxConsumed)
}

func TestTopQuestionsStreamStopsOnEmptyFirstPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(marshalEnvelope(t, []QuestionRow{}))
	}))
	defer srv.Close()

	client := httpclient.New(httpclient.Config{})
	insights := NewInsightsClient(client, srv.URL, zap.NewNop())

	var count int
	for range insights.TopQuestions(context.Background(), nil, nil, 100) {
		count++
	}
	assert.Equal(t, 0, count)
}

func TestSubcategoryDistributionUsesCategoryIDInPath(t *testing.T) {
	var sawPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawPath = r.URL.Path
		w.Write(marshalEnvelope(t, []SubCategoryRow{{Name: "→ leaf"}}))
	}))
	defer srv.Close()

	client := httpclient.New(httpclient.Config{})
	insights := NewInsightsClient(client, srv.URL, zap.NewNop())

	var rows []SubCategoryRow
	for page, err := range insights.SubcategoryDistribution(context.Background(), "cat-1", nil, nil, 10) {
		require.NoError(t, err)
		rows = append(rows, page.Items...)
	}

	require.Len(t, rows, 1)
	assert.Equal(t, "→ leaf", rows[0].Name)
	assert.Contains(t, sawPath, "/category/cat-1/subcategory-distribution")
}
