package analytics

import (
	"context"
	"fmt"
	"iter"

	"github.com/sifthub/export-worker/internal/httpclient"
	"github.com/sifthub/export-worker/internal/job"
	"go.uber.org/zap"
)

const insightsBasePath = "/api/v1/insights-service/generate-answer/overview"

// Trend is the direction/magnitude pair the FAQ builder renders as an arrow
// glyph plus a percentage ("▲ N%" / "▼ N%").
type Trend struct {
	Direction string  `json:"direction"`
	Value     float64 `json:"value"`
}

// CategoryCount is one half of the Info-Cards denominator pair.
type CategoryCount struct {
	Count int `json:"count"`
}

// InfoCards supplies the denominators the FAQ builder needs to convert a
// category's distribution percentage into a frequency count.
type InfoCards struct {
	TotalQuestions         CategoryCount `json:"totalQuestions"`
	TotalQuestionsAnswered CategoryCount `json:"totalQuestionsAnswered"`
}

// CategoryRow is one row of the category-distribution stream (FAQ sheet 1).
type CategoryRow struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Distribution float64 `json:"distribution"`
	Trend        Trend   `json:"trend"`
	Link         string  `json:"link"`
}

// SubCategoryRow is one row of a single category's subcategory-distribution
// stream (FAQ sheet 2).
type SubCategoryRow struct {
	Name         string  `json:"name"`
	Distribution float64 `json:"distribution"`
	Trend        Trend   `json:"trend"`
	Link         string  `json:"link"`
}

// QuestionRow is one row of the top-questions stream (FAQ sheet 3).
type QuestionRow struct {
	Question  string `json:"question"`
	Frequency int    `json:"frequency"`
	Link      string `json:"link"`
}

// InsightsClient wraps the generate-answer overview endpoints the FAQ
// report builder reads from.
type InsightsClient struct {
	http    *httpclient.Client
	baseURL string
	logger  *zap.Logger
}

// NewInsightsClient builds an InsightsClient against baseURL, the scheme
// and host of the analytics service.
func NewInsightsClient(client *httpclient.Client, baseURL string, logger *zap.Logger) *InsightsClient {
	return &InsightsClient{http: client, baseURL: baseURL, logger: logger.Named("analytics.insights")}
}

// InfoCards performs the single call that supplies the FAQ builder's
// frequency denominators. A non-ok envelope yields the zero value rather
// than an error — the builder treats a missing info-cards response as
// "no denominators available", not a fatal condition.
func (c *InsightsClient) InfoCards(ctx context.Context, filter, pageFilter *job.FilterSet) (InfoCards, error) {
	var cards InfoCards
	ok, err := postAndDecode(ctx, c.http, c.baseURL, insightsBasePath+"/info-cards", requestBody{
		Filter: filter, PageFilter: pageFilter,
	}, &cards)
	if err != nil {
		return InfoCards{}, err
	}
	if !ok {
		return InfoCards{}, nil
	}
	return cards, nil
}

// CategoryDistribution streams the top-level category rows for FAQ sheet 1.
func (c *InsightsClient) CategoryDistribution(ctx context.Context, filter, pageFilter *job.FilterSet, pageSize int) iter.Seq2[Page[CategoryRow], error] {
	return Stream(ctx, c.logger, pageSize, func(ctx context.Context, page, pageSize int) ([]CategoryRow, error) {
		var rows []CategoryRow
		ok, err := postAndDecode(ctx, c.http, c.baseURL, insightsBasePath+"/category-distribution", requestBody{
			Filter: filter, PageFilter: pageFilter, Page: page, PageSize: pageSize,
		}, &rows)
		if err != nil || !ok {
			return nil, err
		}
		return rows, nil
	})
}

// SubcategoryDistribution streams the sub-category rows for one parent
// category id, used while building FAQ sheet 2.
func (c *InsightsClient) SubcategoryDistribution(ctx context.Context, categoryID string, filter, pageFilter *job.FilterSet, pageSize int) iter.Seq2[Page[SubCategoryRow], error] {
	path := fmt.Sprintf("%s/category/%s/subcategory-distribution", insightsBasePath, categoryID)
	return Stream(ctx, c.logger, pageSize, func(ctx context.Context, page, pageSize int) ([]SubCategoryRow, error) {
		var rows []SubCategoryRow
		ok, err := postAndDecode(ctx, c.http, c.baseURL, path, requestBody{
			Filter: filter, PageFilter: pageFilter, Page: page, PageSize: pageSize,
		}, &rows)
		if err != nil || !ok {
			return nil, err
		}
		return rows, nil
	})
}

// TopQuestions streams the top-asked-questions rows for FAQ sheet 3.
func (c *InsightsClient) TopQuestions(ctx context.Context, filter, pageFilter *job.FilterSet, pageSize int) iter.Seq2[Page[QuestionRow], error] {
	return Stream(ctx, c.logger, pageSize, func(ctx context.Context, page, pageSize int) ([]QuestionRow, error) {
		var rows []QuestionRow
		ok, err := postAndDecode(ctx, c.http, c.baseURL, insightsBasePath+"/top-questions/list", requestBody{
			Filter: filter, PageFilter: pageFilter, Page: page, PageSize: pageSize,
		}, &rows)
		if err != nil || !ok {
			return nil, err
		}
		return rows, nil
	})
}
