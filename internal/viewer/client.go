// Package viewer hands assembled automation documents to the external
// workflow designer.
package viewer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gravity-api/g4-recorder/internal/automation"
	"github.com/gravity-api/g4-recorder/internal/config"
)

// StatusError reports a non-2xx response from the viewer.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("viewer returned status %d: %s", e.Code, e.Body)
}

// Client posts documents to the designer endpoint.
type Client struct {
	url  string
	http *http.Client
}

// New creates a viewer client from configuration.
func New(cfg config.ViewerConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		url:  cfg.URL,
		http: &http.Client{Timeout: timeout},
	}
}

// Show sends the document to the viewer by value. The viewer owns its
// copy; the recorder keeps no shared mutable reference.
func (c *Client) Show(ctx context.Context, doc automation.Automation) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build viewer request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send document to viewer: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Code: resp.StatusCode, Body: string(body)}
	}
	return nil
}
