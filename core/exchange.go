package core

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultExchangeTimeout = 30 * time.Second
	maxExchangeBodyBytes   = 1 << 20

	v1ExchangePath = "/api/oauth.access"
	v2ExchangePath = "/api/oauth.v2.access"
)

type ExchangeClientConfig struct {
	Version      AuthVersion
	BaseURL      string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
	HTTPClient   HTTPDoer
}

// HTTPExchangeClient redeems callback codes against the version's token
// endpoint with form-encoded client credentials.
type HTTPExchangeClient struct {
	version      AuthVersion
	baseURL      string
	clientID     string
	clientSecret string
	timeout      time.Duration
	httpClient   HTTPDoer
}

func NewHTTPExchangeClient(cfg ExchangeClientConfig) *HTTPExchangeClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultExchangeTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &HTTPExchangeClient{
		version:      cfg.Version,
		baseURL:      strings.TrimSuffix(strings.TrimSpace(cfg.BaseURL), "/"),
		clientID:     strings.TrimSpace(cfg.ClientID),
		clientSecret: strings.TrimSpace(cfg.ClientSecret),
		timeout:      timeout,
		httpClient:   httpClient,
	}
}

func (c *HTTPExchangeClient) Exchange(ctx context.Context, req ExchangeRequest) (ExchangeResponse, error) {
	if c == nil {
		return ExchangeResponse{}, fmt.Errorf("core: exchange client is not configured")
	}
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return ExchangeResponse{}, fmt.Errorf("core: exchange code is required")
	}

	form := url.Values{}
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	form.Set("code", code)
	if redirectURI := strings.TrimSpace(req.RedirectURI); redirectURI != "" {
		form.Set("redirect_uri", redirectURI)
	}

	endpoint := c.baseURL + c.exchangePath()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return ExchangeResponse{}, fmt.Errorf("core: build token exchange request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return ExchangeResponse{}, fmt.Errorf("core: token exchange request failed: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxExchangeBodyBytes))
	if err != nil {
		return ExchangeResponse{}, fmt.Errorf("core: read token exchange response: %w", err)
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return ExchangeResponse{}, fmt.Errorf("core: token exchange returned status %d", httpResp.StatusCode)
	}

	var payload ExchangeResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return ExchangeResponse{}, fmt.Errorf("core: parse token exchange response: %w", err)
	}
	if !payload.OK {
		return ExchangeResponse{}, fmt.Errorf("core: token exchange rejected: %s", describeExchangeError(payload.Error))
	}
	return payload, nil
}

func (c *HTTPExchangeClient) exchangePath() string {
	if c.version == AuthVersionV1 {
		return v1ExchangePath
	}
	return v2ExchangePath
}

func describeExchangeError(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return "unknown error"
	}
	return code
}
