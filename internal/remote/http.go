package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-storefront-orderflow/internal/logging"
	"github.com/imrishuroy/go-storefront-orderflow/internal/orders"
)

// maxBody caps how much of a response is read.
const maxBody = 1 << 20

// HTTPClient talks to the storefront backend's JSON API.
type HTTPClient struct {
	baseURL      string
	client       *http.Client
	timeout      time.Duration
	defaultEmail string
	logger       *zap.Logger
}

func NewHTTPClient(baseURL string, timeout time.Duration, defaultEmail string, logger *zap.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL:      strings.TrimRight(baseURL, "/"),
		client:       &http.Client{Timeout: timeout},
		timeout:      timeout,
		defaultEmail: defaultEmail,
		logger:       logging.OrNop(logger),
	}
}

// Submit posts the order to /orders. The order reference is sent as the idempotency key
// so a resubmission after a lost response does not create a second remote order.
func (c *HTTPClient) Submit(ctx context.Context, o orders.Order) (string, error) {
	body, err := json.Marshal(NewPayload(o, c.defaultEmail))
	if err != nil {
		return "", &SyncError{OrderRef: o.OrderRef, Err: fmt.Errorf("marshal payload: %w", err)}
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return "", &SyncError{OrderRef: o.OrderRef, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Idempotency-Key", o.OrderRef)

	status, respBody, err := c.do(req)
	if err != nil {
		return "", &SyncError{OrderRef: o.OrderRef, Transient: true, Err: err}
	}
	if status < 200 || status > 299 {
		return "", &SyncError{
			OrderRef:   o.OrderRef,
			StatusCode: status,
			Transient:  transientStatus(status),
			Err:        fmt.Errorf("unexpected response: %s", snippet(respBody)),
		}
	}

	id, err := extractID(respBody)
	if err != nil {
		return "", &SyncError{OrderRef: o.OrderRef, StatusCode: status, Err: err}
	}
	c.logger.Info("order submitted", zap.String("order_ref", o.OrderRef), zap.String("remote_id", id))
	return id, nil
}

// FetchStatus reads GET /orders/{id}/status.
func (c *HTTPClient) FetchStatus(ctx context.Context, remoteID string) (orders.Status, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.orderURL(remoteID, "status"), nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	status, respBody, err := c.do(req)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("fetch status %s: unexpected status %d", remoteID, status)
	}

	var out struct {
		Status string `json:"status"`
		Data   *struct {
			Status string `json:"status"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("decode status: %w", err)
	}
	if out.Data != nil && out.Data.Status != "" {
		return orders.Status(out.Data.Status), nil
	}
	if out.Status == "" {
		return "", fmt.Errorf("fetch status %s: response has no status", remoteID)
	}
	return orders.Status(out.Status), nil
}

// CancelOrder posts /orders/{id}/cancel.
func (c *HTTPClient) CancelOrder(ctx context.Context, remoteID string) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.orderURL(remoteID, "cancel"), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	status, respBody, err := c.do(req)
	if err != nil {
		return err
	}
	if status < 200 || status > 299 {
		return fmt.Errorf("cancel order %s: status %d: %s", remoteID, status, snippet(respBody))
	}
	return nil
}

func (c *HTTPClient) do(req *http.Request) (int, []byte, error) {
	req.Header.Set("Accept", "application/json")
	if req.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func (c *HTTPClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *HTTPClient) orderURL(remoteID, action string) string {
	return c.baseURL + "/orders/" + url.PathEscape(remoteID) + "/" + action
}

func transientStatus(code int) bool {
	return code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= 500
}

// extractID accepts {"data":{"id":...}} or {"id":...}; the id may be a string or a number.
func extractID(body []byte) (string, error) {
	var out struct {
		ID   json.RawMessage `json:"id"`
		Data *struct {
			ID json.RawMessage `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	raw := out.ID
	if out.Data != nil && len(out.Data.ID) > 0 {
		raw = out.Data.ID
	}
	id, err := idString(raw)
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", errors.New("response has no order id")
	}
	return id, nil
}

func idString(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("decode id: %w", err)
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("decode id: %w", err)
	}
	return n.String(), nil
}

func snippet(b []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(b))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
