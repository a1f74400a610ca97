package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"storefront/internal/model"
)

var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrSessionRejected = errors.New("payment session rejected")
)

// Client talks to the authoritative storefront backend. Latency is
// unspecified and transient failures are expected; callers decide whether
// an error is worth retrying.
type Client struct {
	baseURL string
	client  *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) GetOrder(ctx context.Context, orderID string) (*model.Order, error) {
	var order model.Order
	if err := c.get(ctx, fmt.Sprintf("%s/api/orders/%s", c.baseURL, orderID), &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) GetPaymentStatus(ctx context.Context, orderID string) (*model.PaymentStatus, error) {
	var status model.PaymentStatus
	if err := c.get(ctx, fmt.Sprintf("%s/api/orders/%s/payment-status", c.baseURL, orderID), &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) GetOrderTracking(ctx context.Context, orderID string) (*model.TrackingSnapshot, error) {
	var snapshot model.TrackingSnapshot
	if err := c.get(ctx, fmt.Sprintf("%s/api/orders/%s/tracking", c.baseURL, orderID), &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// CreatePaymentSession asks the backend for a single-use checkout token
// authorizing one hosted-checkout attempt for the order.
func (c *Client) CreatePaymentSession(ctx context.Context, orderID string) (string, error) {
	url := fmt.Sprintf("%s/api/orders/%s/payment-session", c.baseURL, orderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		var res struct {
			CheckoutToken string `json:"checkout_token"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
			return "", fmt.Errorf("decode response: %w", err)
		}
		if res.CheckoutToken == "" {
			return "", errors.New("empty checkout token")
		}
		return res.CheckoutToken, nil
	case http.StatusNotFound:
		return "", ErrOrderNotFound
	case http.StatusUnprocessableEntity, http.StatusConflict:
		return "", ErrSessionRejected
	default:
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("unexpected status: %d, body: %s", resp.StatusCode, string(body))
	}
}

func (c *Client) get(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	case http.StatusNotFound:
		return ErrOrderNotFound
	default:
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status: %d, body: %s", resp.StatusCode, string(body))
	}
}
