package doctor

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// APICheck verifies the marketplace API answers HTTP requests. Any
// response counts as reachable.
type APICheck struct {
	baseURL string
	client  *http.Client
}

// NewAPICheck creates a new API reachability check. A nil client uses a
// client with a short timeout.
func NewAPICheck(baseURL string, client *http.Client) *APICheck {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &APICheck{baseURL: baseURL, client: client}
}

func (c *APICheck) Name() string {
	return "API"
}

func (c *APICheck) Run(ctx context.Context) Result {
	result := Result{Name: c.Name()}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/flats", nil)
	if err != nil {
		result.Items = append(result.Items, CheckItem{Label: c.baseURL, Status: StatusFail, Detail: err.Error()})
		return result
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		result.Items = append(result.Items, CheckItem{Label: c.baseURL, Status: StatusFail, Detail: "unreachable: " + err.Error()})
		return result
	}
	_ = resp.Body.Close()

	status := StatusPass
	if resp.StatusCode >= 500 {
		status = StatusWarn
	}
	result.Items = append(result.Items, CheckItem{
		Label:  c.baseURL,
		Status: status,
		Detail: fmt.Sprintf("HTTP %d in %s", resp.StatusCode, time.Since(start).Round(time.Millisecond)),
	})
	return result
}
