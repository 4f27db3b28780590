// Package rule adapts the deterministic rule engine service. The
// service speaks a LanguageTool-style HTTP API: plain text in, a JSON
// list of matches with offsets, messages, categories, and replacement
// candidates out.
package rule

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/webbwr/AsciiDoctorArtisan-sub003/internal/resilience"
)

// Request is one check request to the rule service.
type Request struct {
	// Text is the filtered plain text to check.
	Text string

	// Language is the document language code, e.g. "en-US".
	Language string

	// DisabledRules lists rule IDs the user has switched off.
	DisabledRules []string
}

// Match is one finding in the service response, with offsets in the
// coordinates of the submitted text.
type Match struct {
	Offset       int    `json:"offset"`
	Length       int    `json:"length"`
	Message      string `json:"message"`
	ShortMessage string `json:"shortMessage"`
	Rule         struct {
		ID        string `json:"id"`
		IssueType string `json:"issueType"`
		Category  struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"category"`
	} `json:"rule"`
	Replacements []struct {
		Value string `json:"value"`
	} `json:"replacements"`
}

// Client is the rule service boundary.
type Client interface {
	Check(ctx context.Context, req Request) ([]Match, error)
}

// HTTPClient talks to a rule service over HTTP.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

// NewHTTPClient creates a client for the service at baseURL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Check implements Client. Server-side errors are marked transient so
// the retry policy picks them up; client-side errors are not.
func (c *HTTPClient) Check(ctx context.Context, req Request) ([]Match, error) {
	form := url.Values{}
	form.Set("text", req.Text)
	form.Set("language", req.Language)
	if len(req.DisabledRules) > 0 {
		form.Set("disabledRules", strings.Join(req.DisabledRules, ","))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v2/check", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("building rule request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("rule service call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("rule service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("%w: %w", resilience.ErrTransient, err)
		}
		return nil, err
	}

	var parsed struct {
		Matches []Match `json:"matches"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding rule response: %w", err)
	}
	return parsed.Matches, nil
}
