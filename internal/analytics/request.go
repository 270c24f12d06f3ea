package analytics

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sifthub/export-worker/internal/httpclient"
	"github.com/sifthub/export-worker/internal/job"
)

// requestBody is the wire shape every analytics endpoint accepts:
// {filter?, pageFilter?, page, pageSize}.
type requestBody struct {
	Filter     *job.FilterSet `json:"filter,omitempty"`
	PageFilter *job.FilterSet `json:"pageFilter,omitempty"`
	Page       int            `json:"page,omitempty"`
	PageSize   int            `json:"pageSize,omitempty"`
}

// postAndDecode POSTs body to path and decodes the response envelope's data
// field into out. A non-ok envelope (non-200 status, or empty/null data) is
// not a Go error: it reports ok=false, which callers treat as "no more
// rows" rather than failing the enclosing job.
func postAndDecode(ctx context.Context, client *httpclient.Client, baseURL, path string, body requestBody, out any) (ok bool, err error) {
	env, err := client.PostJSON(ctx, baseURL, path, body)
	if err != nil {
		return false, fmt.Errorf("analytics: %s: %w", path, err)
	}
	if !env.Ok() {
		return false, nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return false, fmt.Errorf("analytics: decode %s response: %w", path, err)
	}
	return true, nil
}
