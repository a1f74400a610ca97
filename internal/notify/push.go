package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"storefront/internal/model"
)

// DeviceNotifier shows a notification on the user's device. Delivery is
// best effort; the persisted log is the source of truth either way.
type DeviceNotifier interface {
	Push(ctx context.Context, userID, title, body string, data model.NotificationData) error
	Clear(ctx context.Context, userID string) error
}

// PushClient delivers device notifications through the push relay.
type PushClient struct {
	baseURL string
	client  *http.Client
}

func NewPushClient(baseURL string) *PushClient {
	return &PushClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *PushClient) Push(ctx context.Context, userID, title, body string, data model.NotificationData) error {
	payload, err := json.Marshal(map[string]any{
		"user_id": userID,
		"title":   title,
		"body":    body,
		"data":    data,
	})
	if err != nil {
		return fmt.Errorf("marshal push: %w", err)
	}

	url := fmt.Sprintf("%s/api/push", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status: %d, body: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// Clear removes the user's delivered notifications from the device
// notification center.
func (c *PushClient) Clear(ctx context.Context, userID string) error {
	url := fmt.Sprintf("%s/api/push/%s", c.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status: %d, body: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
