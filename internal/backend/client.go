// File: internal/backend/client.go
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"cafe_client/internal/config"
	"cafe_client/internal/shared"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

var (
	// ErrUnauthorized matches 401 and 403 answers: the token is no longer accepted.
	ErrUnauthorized = errors.New("backend: unauthorized")
	// ErrNotFound matches 404 answers.
	ErrNotFound = errors.New("backend: not found")
)

// Error is a non-2xx answer from the application backend.
type Error struct {
	Path       string
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend %s: %d: %s", e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("backend %s: status %d", e.Path, e.StatusCode)
}

func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

const maxBodyBytes = 1 << 20

// Client calls the application backend on behalf of the signed-in user.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a backend client. httpClient is the base transport; the
// bearer token is attached per call.
func NewClient(cfg *config.Config, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.APIURL, "/"),
		httpClient: httpClient,
		logger:     logger.Named("BackendClient"),
	}
}

// ResolveRole returns the canonical user record for token.
func (c *Client) ResolveRole(ctx context.Context, token string) (*shared.User, error) {
	var user shared.User
	if err := c.do(ctx, token, http.MethodGet, "/users/role", nil, &user); err != nil {
		return nil, err
	}
	if user.Email == "" || !user.Role.Valid() {
		return nil, fmt.Errorf("backend /users/role: incomplete user record (role=%q)", user.Role)
	}
	return &user, nil
}

// SyncIdentity creates or updates the client or manager record for the token's identity.
func (c *Client) SyncIdentity(ctx context.Context, token string, role shared.Role, profile shared.Profile) error {
	path := "/sync-client"
	if role == shared.RoleManager {
		path = "/sync-manager"
	}
	return c.do(ctx, token, http.MethodPost, path, profile, nil)
}

// GetManagerCafe returns the café owned by the signed-in manager, or ErrNotFound.
func (c *Client) GetManagerCafe(ctx context.Context, token string) (*shared.CafeSummary, error) {
	var cafe shared.CafeSummary
	if err := c.do(ctx, token, http.MethodGet, "/managers/me/cafe", nil, &cafe); err != nil {
		return nil, err
	}
	return &cafe, nil
}

func (c *Client) do(ctx context.Context, token, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("backend %s: encode request: %w", path, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("backend %s: build request: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	// oauth2.NewClient picks up the base client from the context and adds the bearer header.
	authCtx := context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	httpClient := oauth2.NewClient(authCtx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}))
	httpClient.Timeout = c.httpClient.Timeout

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("backend %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("backend %s: read response: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{Path: path, StatusCode: resp.StatusCode, Message: errorMessage(raw)}
		c.logger.Debug("Backend call failed",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("message", apiErr.Message),
		)
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("backend %s: decode response: %w", path, err)
	}
	return nil
}

// errorMessage pulls a message out of an {error} or {message} body, falling back
// to the raw text.
func errorMessage(raw []byte) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return strings.TrimSpace(string(raw))
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Error
}
