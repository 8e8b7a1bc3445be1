// Package execution guards order placement and keeps the audit trail of
// fills. The Dispatcher enforces at most one in-flight order per
// (symbol, side); the Placer interface is the boundary to the exchange's
// order-placement API.
package execution

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"algocore/internal/model"
)

// Placer is the order-placement collaborator. PlaceOrder returns the
// exchange-assigned order id or a transport error; it has no retry semantics
// of its own.
type Placer interface {
	PlaceOrder(ctx context.Context, intent model.OrderIntent) (string, error)
}

// HTTPPlacer places orders against a REST endpoint (e.g. the sim exchange's
// POST /orders). The request and response bodies are plain JSON.
type HTTPPlacer struct {
	url    string
	client *http.Client
}

// NewHTTPPlacer creates a placer posting to url.
func NewHTTPPlacer(url string) *HTTPPlacer {
	return &HTTPPlacer{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// PlaceOrder posts the intent and returns the assigned order id.
func (p *HTTPPlacer) PlaceOrder(ctx context.Context, intent model.OrderIntent) (string, error) {
	body, err := json.Marshal(intent)
	if err != nil {
		return "", fmt.Errorf("place order: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("place order: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("place order: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("place order: unexpected status %d", resp.StatusCode)
	}

	var out struct {
		OrderID string `json:"order_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("place order: decode response: %w", err)
	}
	if out.OrderID == "" {
		return "", fmt.Errorf("place order: empty order id in response")
	}
	return out.OrderID, nil
}
