package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultTimeout = 15 * time.Second

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultTimeout}
}

// doJSON executes one JSON request and returns the marshalled request body,
// the raw response body, and the HTTP status. The caller records all three in
// the action log regardless of the outcome.
func doJSON(ctx context.Context, client *http.Client, method, url string, headers map[string]string, body interface{}) (reqBytes, respBytes []byte, status int, err error) {
	var reqBody io.Reader
	if body != nil {
		reqBytes, err = json.Marshal(body)
		if err != nil {
			return nil, nil, 0, fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(reqBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return reqBytes, nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return reqBytes, nil, 0, fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err = io.ReadAll(resp.Body)
	if err != nil {
		return reqBytes, nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}

	return reqBytes, respBytes, resp.StatusCode, nil
}
