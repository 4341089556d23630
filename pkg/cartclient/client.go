package cartclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/weddingplanner-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/weddingplanner-backend/pkg/errors"
	"github.com/angelmondragon/weddingplanner-backend/pkg/types"
)

const (
	itemsPath                = "/api/v1/cart/items"
	summaryPath              = "/api/v1/cart/summary"
	errorBodyReadLimit int64 = 1 << 20
	defaultTimeout           = 10 * time.Second
)

var errBaseURLRequired = errors.New("cart backend base url is required")

// Client talks to a remote cart REST backend.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient builds a client for cfg.BaseURL. cfg.Timeout bounds every request.
func NewClient(cfg config.BackendConfig, opts ...Option) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errBaseURLRequired
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("invalid cart backend base url: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := &Client{
		baseURL:    base,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

func (c *Client) ListItems(ctx context.Context, token string, weddingID int64) ([]types.CartItem, error) {
	var items []types.CartItem
	if err := c.do(ctx, token, http.MethodGet, itemsPath+weddingQuery(weddingID), nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) CreateItem(ctx context.Context, token string, in types.CartItemUpsert) (types.CartItem, error) {
	var item types.CartItem
	err := c.do(ctx, token, http.MethodPost, itemsPath, in, &item)
	return item, err
}

func (c *Client) UpdateItem(ctx context.Context, token string, id uuid.UUID, patch types.CartItemPatch) (types.CartItem, error) {
	var item types.CartItem
	err := c.do(ctx, token, http.MethodPatch, itemsPath+"/"+id.String(), patch, &item)
	return item, err
}

func (c *Client) DeleteItem(ctx context.Context, token string, id uuid.UUID) error {
	return c.do(ctx, token, http.MethodDelete, itemsPath+"/"+id.String(), nil, nil)
}

func (c *Client) Summary(ctx context.Context, token string, weddingID int64) (types.CartSummary, error) {
	var summary types.CartSummary
	err := c.do(ctx, token, http.MethodGet, summaryPath+weddingQuery(weddingID), nil, &summary)
	return summary, err
}

func weddingQuery(weddingID int64) string {
	if weddingID <= 0 {
		return ""
	}
	return "?wedding_id=" + strconv.FormatInt(weddingID, 10)
}

func (c *Client) do(ctx context.Context, token, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal cart request")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build cart request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cart backend request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	envelope := types.SuccessEnvelope{Data: out}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode cart response")
	}
	return nil
}

// parseError keeps the backend's code and message when the body is the
// standard error envelope, otherwise maps the HTTP status.
func parseError(resp *http.Response) error {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("cart backend returned status %d", resp.StatusCode))
	}

	var envelope types.ErrorEnvelope
	if json.Unmarshal(raw, &envelope) == nil && envelope.Error.Code != "" {
		typed := pkgerrors.New(pkgerrors.Code(envelope.Error.Code), envelope.Error.Message)
		if envelope.Error.Details != nil {
			typed = typed.WithDetails(envelope.Error.Details)
		}
		return typed
	}

	cause := fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	return pkgerrors.Wrap(codeForStatus(resp.StatusCode), cause, "cart backend request failed")
}

func codeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusBadRequest:
		return pkgerrors.CodeValidation
	case http.StatusUnauthorized:
		return pkgerrors.CodeUnauthorized
	case http.StatusForbidden:
		return pkgerrors.CodeForbidden
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusConflict:
		return pkgerrors.CodeConflict
	case http.StatusUnprocessableEntity:
		return pkgerrors.CodeStateConflict
	default:
		return pkgerrors.CodeDependency
	}
}
