package custody

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/custodia-labs/solana-wallet-middleware/internal/metrics"
)

const (
	identifierTypePhone = "PHONE"

	defaultRequestTimeout = 30 * time.Second

	// maxResponseBytes caps provider response reads.
	maxResponseBytes = 1 << 20
)

// HTTPClient implements Client against the provider's REST API.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithTimeout overrides the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *HTTPClient) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithLogger attaches a logger for request diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(c *HTTPClient) {
		c.logger = logger
	}
}

// NewHTTPClient creates a provider client. The API key authenticates every
// request via the X-API-Key header.
func NewHTTPClient(baseURL, apiKey string, opts ...Option) (*HTTPClient, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("provider base URL is required")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("provider API key is required")
	}

	c := &HTTPClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type walletQuery struct {
	Identifier     string `json:"identifier"`
	IdentifierType string `json:"identifierType"`
}

type existsResponse struct {
	Exists bool `json:"exists"`
}

type createResponse struct {
	WalletID  string `json:"walletId"`
	Address   string `json:"address"`
	UserShare string `json:"userShare"`
}

type loadShareRequest struct {
	UserShare string `json:"userShare"`
}

type loadShareResponse struct {
	SigningKey string `json:"signingKey"`
	Address    string `json:"address"`
}

type providerError struct {
	Message string `json:"message"`
}

func (c *HTTPClient) HasWallet(ctx context.Context, identity string) (bool, error) {
	var resp existsResponse
	err := c.post(ctx, "/v1/pregen-wallets/exists", walletQuery{
		Identifier:     identity,
		IdentifierType: identifierTypePhone,
	}, &resp)
	if err != nil {
		return false, fmt.Errorf("provider wallet check failed: %w", err)
	}
	return resp.Exists, nil
}

func (c *HTTPClient) CreateWallet(ctx context.Context, identity string) (*ProvisionedWallet, error) {
	var resp createResponse
	err := c.post(ctx, "/v1/pregen-wallets", walletQuery{
		Identifier:     identity,
		IdentifierType: identifierTypePhone,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("provider wallet creation failed: %w", err)
	}
	if resp.Address == "" || resp.UserShare == "" {
		return nil, fmt.Errorf("provider returned incomplete wallet")
	}

	return &ProvisionedWallet{
		WalletID:  resp.WalletID,
		Address:   resp.Address,
		UserShare: resp.UserShare,
	}, nil
}

func (c *HTTPClient) LoadShare(ctx context.Context, userShare string) (*SigningHandle, error) {
	var resp loadShareResponse
	err := c.post(ctx, "/v1/shares/load", loadShareRequest{UserShare: userShare}, &resp)
	if err != nil {
		return nil, fmt.Errorf("provider share load failed: %w", err)
	}

	key, err := decodeSigningKey(resp.SigningKey)
	if err != nil {
		return nil, err
	}
	return NewSigningHandle(key, resp.Address)
}

// post sends a JSON request to the provider and decodes the JSON response.
// Each request carries a fresh X-Request-Id for provider-side correlation.
func (c *HTTPClient) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ProviderRequests.WithLabelValues(path, "error").Inc()
		return fmt.Errorf("provider request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("failed to read provider response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.ProviderRequests.WithLabelValues(path, "error").Inc()
		var perr providerError
		if json.Unmarshal(raw, &perr) == nil && perr.Message != "" {
			c.logger.Warn("Provider returned error",
				zap.String("path", path),
				zap.Int("status", resp.StatusCode),
				zap.String("message", perr.Message))
			return fmt.Errorf("provider error (%d): %s", resp.StatusCode, perr.Message)
		}
		return fmt.Errorf("provider error (%d)", resp.StatusCode)
	}

	metrics.ProviderRequests.WithLabelValues(path, "ok").Inc()

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode provider response: %w", err)
	}
	return nil
}
