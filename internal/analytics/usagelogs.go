package analytics

import (
	"context"
	"fmt"
	"iter"

	"github.com/sifthub/export-worker/internal/httpclient"
	"github.com/sifthub/export-worker/internal/job"
	"go.uber.org/zap"
)

const usageLogsBasePath = "/api/v1/analytics-service/usage-logs"

// LogMeta carries the audit-ish fields every usage-log row shares, mirroring
// the "meta.created"/"meta.createdBy.fullName" field-path convention used
// elsewhere for filter conditions.
type LogMeta struct {
	Created   int64 `json:"created"`
	CreatedBy struct {
		FullName string `json:"fullName"`
	} `json:"createdBy"`
}

// LogRow is the shared column layout for the Answer and Autofill Logs
// sheets: Question, Instruction, Answer, Sources, Status, Date, User,
// Initiated from, Transactions consumed.
type LogRow struct {
	Question             string   `json:"question"`
	Instruction           string   `json:"instruction"`
	Answer                string   `json:"answer"`
	Sources               []string `json:"sources"`
	Status                string   `json:"status"`
	Meta                  LogMeta  `json:"meta"`
	InitiatedFrom         string   `json:"initiatedFrom"`
	TransactionsConsumed  int      `json:"transactionsConsumed"`
}

// TeammateLogRow is one row of the AI-Teammate Logs sheet: Conversations,
// Date, Owner, No. of Turns, Response time, Transactions consumed.
type TeammateLogRow struct {
	Title                string  `json:"title"`
	Meta                 LogMeta `json:"meta"`
	ThreadCount          int     `json:"threadCount"`
	AverageTime          float64 `json:"averageTime"`
	TransactionsConsumed int     `json:"transactionsConsumed"`
}

// AnswerSummary is the Answer Summary sheet's metric set.
type AnswerSummary struct {
	Total         int `json:"total"`
	Answered      int `json:"answered"`
	NoInformation int `json:"noInformation"`
	TxConsumed    int `json:"txConsumed"`
}

// AutofillSummary is the Autofill Summary sheet's metric set.
type AutofillSummary struct {
	TotalRuns              int     `json:"totalRuns"`
	TotalDocuments         int     `json:"totalDocuments"`
	TotalQuestions         int     `json:"totalQuestions"`
	TotalQuestionsAnswered int     `json:"totalQuestionsAnswered"`
	AverageResponseTime    float64 `json:"averageResponseTime"`
}

// TeammateSummary is the AI-Teammate Summary sheet's metric set.
type TeammateSummary struct {
	ThreadCount int     `json:"threadCount"`
	AverageTime float64 `json:"averageTime"`
	TxConsumed  int     `json:"txConsumed"`
}

// UsageLogsClient wraps the {answer, autofill, teammate} x {list, stats}
// usage-log endpoints.
type UsageLogsClient struct {
	http    *httpclient.Client
	baseURL string
	logger  *zap.Logger
}

// NewUsageLogsClient builds a UsageLogsClient against baseURL.
func NewUsageLogsClient(client *httpclient.Client, baseURL string, logger *zap.Logger) *UsageLogsClient {
	return &UsageLogsClient{http: client, baseURL: baseURL, logger: logger.Named("analytics.usagelogs")}
}

// AnswerLogs streams the Answer Logs sheet rows.
func (c *UsageLogsClient) AnswerLogs(ctx context.Context, filter, pageFilter *job.FilterSet, pageSize int) iter.Seq2[Page[LogRow], error] {
	return c.logStream(ctx, "answer", filter, pageFilter, pageSize)
}

// AnswerStats fetches the Answer Summary sheet's metrics.
func (c *UsageLogsClient) AnswerStats(ctx context.Context, filter, pageFilter *job.FilterSet) (AnswerSummary, error) {
	var summary AnswerSummary
	ok, err := postAndDecode(ctx, c.http, c.baseURL, usageLogsBasePath+"/answer/stats", requestBody{
		Filter: filter, PageFilter: pageFilter,
	}, &summary)
	if err != nil || !ok {
		return AnswerSummary{}, err
	}
	return summary, nil
}

// AutofillLogs streams the Autofill Logs sheet rows.
func (c *UsageLogsClient) AutofillLogs(ctx context.Context, filter, pageFilter *job.FilterSet, pageSize int) iter.Seq2[Page[LogRow], error] {
	return c.logStream(ctx, "autofill", filter, pageFilter, pageSize)
}

// AutofillStats fetches the Autofill Summary sheet's metrics.
func (c *UsageLogsClient) AutofillStats(ctx context.Context, filter, pageFilter *job.FilterSet) (AutofillSummary, error) {
	var summary AutofillSummary
	ok, err := postAndDecode(ctx, c.http, c.baseURL, usageLogsBasePath+"/autofill/stats", requestBody{
		Filter: filter, PageFilter: pageFilter,
	}, &summary)
	if err != nil || !ok {
		return AutofillSummary{}, err
	}
	return summary, nil
}

// TeammateLogs streams the AI-Teammate Logs sheet rows.
func (c *UsageLogsClient) TeammateLogs(ctx context.Context, filter, pageFilter *job.FilterSet, pageSize int) iter.Seq2[Page[TeammateLogRow], error] {
	path := usageLogsBasePath + "/teammate/list"
	return Stream(ctx, c.logger, pageSize, func(ctx context.Context, page, pageSize int) ([]TeammateLogRow, error) {
		var rows []TeammateLogRow
		ok, err := postAndDecode(ctx, c.http, c.baseURL, path, requestBody{
			Filter: filter, PageFilter: pageFilter, Page: page, PageSize: pageSize,
		}, &rows)
		if err != nil || !ok {
			return nil, err
		}
		return rows, nil
	})
}

// TeammateStats fetches the AI-Teammate Summary sheet's metrics.
func (c *UsageLogsClient) TeammateStats(ctx context.Context, filter, pageFilter *job.FilterSet) (TeammateSummary, error) {
	var summary TeammateSummary
	ok, err := postAndDecode(ctx, c.http, c.baseURL, usageLogsBasePath+"/teammate/stats", requestBody{
		Filter: filter, PageFilter: pageFilter,
	}, &summary)
	if err != nil || !ok {
		return TeammateSummary{}, err
	}
	return summary, nil
}

func (c *UsageLogsClient) logStream(ctx context.Context, kind string, filter, pageFilter *job.FilterSet, pageSize int) iter.Seq2[Page[LogRow], error] {
	path := fmt.Sprintf("%s/%s/list", usageLogsBasePath, kind)
	return Stream(ctx, c.logger, pageSize, func(ctx context.Context, page, pageSize int) ([]LogRow, error) {
		var rows []LogRow
		ok, err := postAndDecode(ctx, c.http, c.baseURL, path, requestBody{
			Filter: filter, PageFilter: pageFilter, Page: page, PageSize: pageSize,
		}, &rows)
		if err != nil || !ok {
			return nil, err
		}
		return rows, nil
	})
}
