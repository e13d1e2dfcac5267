package lodestar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// maxBodyBytes caps how much of a response body is read into memory.
const maxBodyBytes = 1 << 20

func (c *Client) url(path string) string {
	return c.BaseURL + path
}

// doJSON sends a JSON request and decodes a JSON response.
//
// A nil in sends no body; a nil out discards the response body. Any 2xx
// status is a success. Everything else is returned as an *APIError carrying
// the extracted message and the raw body.
func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	// 1. Encode the request body, if any.
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	// 2. Build the request.
	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	// 3. Send it and read the body up front so the connection can be reused.
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	// 4. Map failures to APIError, decode successes into out.
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return newAPIError(method, path, resp.StatusCode, raw)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
