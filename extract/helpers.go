package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/match"
)

var userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/139.0.0.0 Safari/537.36"

func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: http.DefaultTransport,
		Timeout:   timeout,
	}
}

// MatchesAny reports whether rawURL matches one of the wildcard patterns.
// Patterns see the lowercased host without "www." followed by the path, so
// "tiktok.com/@*/video/*" matches "HTTPS://www.TikTok.com/@user/video/123".
func MatchesAny(rawURL string, patterns []string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	target := strings.TrimPrefix(strings.ToLower(u.Host), "www.") + u.Path
	for _, p := range patterns {
		if match.Match(target, p) {
			return true
		}
	}
	return false
}

// JSONRequest sends body as JSON and decodes a 2xx response into V, or any
// other response into E which is returned as the error.
func JSONRequest[V any, E error](ctx context.Context, client *http.Client, method, url string, body any, headers ...string) (*http.Response, *V, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, nil, fmt.Errorf("marshaling request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	for i := 0; i+1 < len(headers); i += 2 {
		if headers[i+1] != "" {
			req.Header.Set(headers[i], headers[i+1])
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("sending http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp, nil, fmt.Errorf("reading response body: %s: %w", resp.Status, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errorJSON E
		if err := json.Unmarshal(respBody, &errorJSON); err != nil {
			return resp, nil, fmt.Errorf("parsing error body: %s: %w", resp.Status, err)
		}
		return resp, nil, errorJSON
	}

	var valueJSON V
	if err := json.Unmarshal(respBody, &valueJSON); err != nil {
		return resp, nil, fmt.Errorf("parsing response: %s: %w", resp.Status, err)
	}
	return resp, &valueJSON, nil
}
