package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"diamond_tma/internal/domain"
)

const (
	DefaultTimeout = 10 * time.Second

	verifyPath = "/api/v1/auth/telegram"
	logoutPath = "/api/v1/auth/logout"
	mePath     = "/api/v1/me"
)

// VerifyResponse is the body of a successful verification.
type VerifyResponse struct {
	Success      bool                `json:"success"`
	UserID       int64               `json:"user_id"`
	UserData     domain.Identity     `json:"user_data"`
	JWTToken     string              `json:"jwt_token"`
	ExpiresAt    int64               `json:"expires_at"`
	SecurityInfo domain.SecurityInfo `json:"security_info"`
}

type errorResponse struct {
	Success      bool                 `json:"success"`
	Error        string               `json:"error"`
	SecurityInfo *domain.SecurityInfo `json:"security_info"`
}

// APIClient talks to the verification endpoint of a running server.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIClient creates a client for baseURL. A non-positive timeout uses DefaultTimeout.
func NewAPIClient(baseURL string, timeout time.Duration) *APIClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// BaseURL returns the server root the client was built with.
func (c *APIClient) BaseURL() string { return c.baseURL }

// Verify submits raw init data and returns the issued session.
func (c *APIClient) Verify(ctx context.Context, initData string) (*VerifyResponse, error) {
	body, err := json.Marshal(map[string]string{"init_data": initData})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, verifyPath, "", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", domain.ErrNetworkOrTimeout, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, verifyError(resp.StatusCode, data)
	}

	var out VerifyResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", domain.ErrNetworkOrTimeout, err)
	}
	if !out.Success || out.JWTToken == "" {
		return nil, fmt.Errorf("%w: response carries no session", domain.ErrServerMisconfigured)
	}
	return &out, nil
}

// Logout revokes token on the server.
func (c *APIClient) Logout(ctx context.Context, token string) error {
	resp, err := c.do(ctx, http.MethodPost, logoutPath, token, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return tokenError(resp.StatusCode)
}

// Me returns the raw profile document of the token's user.
func (c *APIClient) Me(ctx context.Context, token string) (map[string]any, error) {
	resp, err := c.do(ctx, http.MethodGet, mePath, token, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := tokenError(resp.StatusCode); err != nil {
		return nil, err
	}

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", domain.ErrNetworkOrTimeout, err)
	}
	return out, nil
}

func (c *APIClient) do(ctx context.Context, method, path, token string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrNetworkOrTimeout, err)
	}
	return resp, nil
}

// verifyError maps a failed verification response onto the error taxonomy.
func verifyError(status int, body []byte) error {
	var resp errorResponse
	_ = json.Unmarshal(body, &resp)

	switch {
	case status == http.StatusUnauthorized:
		return domain.ErrSignatureInvalid
	case status == http.StatusBadRequest:
		// the server only reports security info once the signature was checked
		sec := resp.SecurityInfo
		switch {
		case sec == nil || !sec.SignatureValid:
			return domain.ErrMalformedInput
		case !sec.TimestampValid:
			return domain.ErrTimestampExpired
		default:
			return domain.ErrMissingUserFields
		}
	case status == http.StatusTooManyRequests:
		return domain.ErrThrottled
	case status == http.StatusInternalServerError:
		return domain.ErrServerMisconfigured
	default:
		return fmt.Errorf("%w: unexpected status %d", domain.ErrNetworkOrTimeout, status)
	}
}

func tokenError(status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized:
		return domain.ErrTokenInvalid
	case status == http.StatusTooManyRequests:
		return domain.ErrThrottled
	default:
		return fmt.Errorf("%w: unexpected status %d", domain.ErrNetworkOrTimeout, status)
	}
}
