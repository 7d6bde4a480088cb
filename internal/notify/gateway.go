package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// PushGateway submits messages to an external HTTP push provider.
//
// Contract: 2xx means delivered, 404/410 means the device token is
// permanently invalid, anything else is a transient failure.
type PushGateway struct {
	Endpoint string
	APIKey   string
	Client   *http.Client
}

// NewPushGateway creates a gateway client against the given endpoint.
func NewPushGateway(endpoint, apiKey string) *PushGateway {
	return &PushGateway{
		Endpoint: endpoint,
		APIKey:   apiKey,
		Client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type pushRequest struct {
	To    string            `json:"to"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// Send delivers one message to one device token.
func (g *PushGateway) Send(ctx context.Context, deviceToken string, msg Message) error {
	payload, err := json.Marshal(pushRequest{
		To:    deviceToken,
		Title: msg.Title,
		Body:  msg.Body,
		Data:  msg.Data,
	})
	if err != nil {
		return fmt.Errorf("marshal push request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.APIKey)
	}

	resp, err := g.Client.Do(req)
	if err != nil {
		return fmt.Errorf("push request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return ErrTokenInvalid
	default:
		return fmt.Errorf("push gateway returned status %d", resp.StatusCode)
	}
}
