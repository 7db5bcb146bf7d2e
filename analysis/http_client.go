package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Envelope is the wire format of the script analysis endpoint.
type Envelope struct {
	Success  bool    `json:"success"`
	Analysis *Result `json:"analysis,omitempty"`
	Error    string  `json:"error,omitempty"`
	// Code is set on failures the service could classify, e.g. "malformed_script".
	Code string `json:"code,omitempty"`
}

type analyzeRequest struct {
	ScriptText string `json:"scriptText"`
}

// HTTPClient calls a remote script analysis endpoint.
type HTTPClient struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewHTTPClient creates a client for endpoint. A nil httpClient uses a client
// without its own timeout; the Analyzer bounds each call.
func NewHTTPClient(endpoint, apiKey string, httpClient *http.Client) *HTTPClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &HTTPClient{endpoint: endpoint, apiKey: apiKey, client: httpClient}
}

func (c *HTTPClient) AnalyzeScript(ctx context.Context, scriptText string) (*Result, error) {
	body, err := json.Marshal(analyzeRequest{ScriptText: scriptText})
	if err != nil {
		return nil, NewError(KindValidation, "could not encode script", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, NewError(KindAPI, "could not build analysis request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, NewError(KindNetwork, "could not reach the analysis service", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewError(KindNetwork, "analysis response was interrupted", err)
	}

	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return nil, NewError(KindRateLimit, "analysis rate limit reached", nil)
	case http.StatusPaymentRequired:
		return nil, NewError(KindPaymentRequired, "analysis credits exhausted", nil)
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= 300 {
			return nil, NewError(KindAPI, fmt.Sprintf("analysis service returned %d", resp.StatusCode), fmt.Errorf("%s", truncateBody(raw)))
		}
		return nil, NewError(KindInvalidJSON, "analysis response is not valid JSON", err)
	}

	if !env.Success {
		if env.Code == string(KindMalformedScript) {
			return nil, NewError(KindMalformedScript, firstNonEmpty(env.Error, "the script structure could not be parsed"), nil)
		}
		return nil, NewError(KindAPI, firstNonEmpty(env.Error, fmt.Sprintf("analysis service returned %d", resp.StatusCode)), nil)
	}
	if resp.StatusCode >= 300 {
		return nil, NewError(KindAPI, fmt.Sprintf("analysis service returned %d", resp.StatusCode), nil)
	}

	return env.Analysis, nil
}

func truncateBody(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
