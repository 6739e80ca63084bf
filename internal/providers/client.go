package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// newHTTPClient builds the client shared by all providers. No client-level
// timeout is set: each attempt runs under the manager's per-attempt
// context, which cancels the request when the timer fires.
func newHTTPClient() *http.Client {
	return &http.Client{}
}

// getJSON performs a GET and decodes the JSON body into v.
func getJSON(ctx context.Context, client *http.Client, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
