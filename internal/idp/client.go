// File: internal/idp/client.go
package idp

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

	"cafe_client/internal/config"
	"cafe_client/internal/platform/metrics"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	opToken  = "token"
	opSignup = "signup"

	tokenPath  = "/oauth/token"
	signupPath = "/dbconnections/signup"

	maxBodyBytes = 1 << 20
)

// Client talks to the identity provider's password-grant and signup endpoints.
type Client struct {
	baseURL     string
	audience    string
	connection  string
	credentials []config.CredentialSet
	httpClient  *http.Client
	logger      *zap.Logger
	metrics     *metrics.Metrics
}

// NewClient builds a Client from configuration. httpClient may be nil, in which
// case one with HTTP_TIMEOUT_SECONDS is created.
func NewClient(cfg *config.Config, httpClient *http.Client, logger *zap.Logger, m *metrics.Metrics) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.IDPBaseURL, "/"),
		audience:    cfg.IDPAudience,
		connection:  cfg.IDPConnection,
		credentials: cfg.CredentialSets(),
		httpClient:  httpClient,
		logger:      logger.Named("IdPClient"),
		metrics:     m,
	}
}

type tokenRequest struct {
	GrantType    string `json:"grant_type"`
	Username     string `json:"username"`
	Password     string `json:"password"`
	Audience     string `json:"audience,omitempty"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret,omitempty"`
	Connection   string `json:"connection,omitempty"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token"`
	IDToken      string `json:"id_token"`
	Scope        string `json:"scope"`
	ExpiresIn    int64  `json:"expires_in"`
}

type signupRequest struct {
	ClientID   string `json:"client_id"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Connection string `json:"connection"`
	Name       string `json:"name,omitempty"`
}

// errorBody covers both the OAuth error shape and the signup error shape.
type errorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Code             string `json:"code"`
	Description      string `json:"description"`
	Name             string `json:"name"`
	Message          string `json:"message"`
}

// ExchangeToken runs the password grant with each configured credential set in
// order and returns the first token issued. Only a non-2xx answer moves on to
// the next set; a transport failure or an unreadable success body ends the
// exchange. When every set is rejected the last rejection is returned.
func (c *Client) ExchangeToken(ctx context.Context, username, password string) (*oauth2.Token, error) {
	if len(c.credentials) == 0 {
		return nil, &Error{Op: opToken, Err: fmt.Errorf("no credential sets configured")}
	}

	var lastErr error
	for i, cred := range c.credentials {
		tok, err := c.exchangeWith(ctx, cred, username, password)
		c.metrics.ObserveCredentialAttempt(cred.Name, err)
		if err == nil {
			if i > 0 {
				c.logger.Info("Token issued via fallback credentials", zap.String("credential", cred.Name))
			}
			return tok, nil
		}

		lastErr = err
		var idpErr *Error
		if !errors.As(err, &idpErr) || !idpErr.Is(ErrRejected) {
			return nil, err
		}
		c.logger.Debug("Token request rejected",
			zap.String("credential", cred.Name),
			zap.Int("status", idpErr.StatusCode),
			zap.String("code", idpErr.Code),
		)
	}
	return nil, lastErr
}

func (c *Client) exchangeWith(ctx context.Context, cred config.CredentialSet, username, password string) (*oauth2.Token, error) {
	body := tokenRequest{
		GrantType:    "password",
		Username:     username,
		Password:     password,
		Audience:     c.audience,
		ClientID:     cred.ClientID,
		ClientSecret: cred.ClientSecret,
		Connection:   c.connection,
	}

	status, raw, err := c.post(ctx, tokenPath, body)
	if err != nil {
		return nil, &Error{Op: opToken, Credential: cred.Name, Err: err}
	}
	if status < 200 || status > 299 {
		return nil, newStatusError(opToken, cred.Name, status, raw)
	}

	var tr tokenResponse
	if err := json.Unmarshal(raw, &tr); err != nil || tr.AccessToken == "" {
		return nil, &Error{Op: opToken, Credential: cred.Name, StatusCode: status, Err: ErrMalformedResponse}
	}

	tok := &oauth2.Token{
		AccessToken:  tr.AccessToken,
		TokenType:    tr.TokenType,
		RefreshToken: tr.RefreshToken,
	}
	if tr.ExpiresIn > 0 {
		tok.Expiry = time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}
	extra := map[string]interface{}{"credential": cred.Name}
	if tr.IDToken != "" {
		extra["id_token"] = tr.IDToken
	}
	if tr.Scope != "" {
		extra["scope"] = tr.Scope
	}
	return tok.WithExtra(extra), nil
}

// Signup creates an unverified account using the primary credential set only.
func (c *Client) Signup(ctx context.Context, email, password, displayName string) error {
	if len(c.credentials) == 0 {
		return &Error{Op: opSignup, Err: fmt.Errorf("no credential sets configured")}
	}
	cred := c.credentials[0]

	body := signupRequest{
		ClientID:   cred.ClientID,
		Email:      email,
		Password:   password,
		Connection: c.connection,
		Name:       displayName,
	}

	status, raw, err := c.post(ctx, signupPath, body)
	if err != nil {
		return &Error{Op: opSignup, Credential: cred.Name, Err: err}
	}
	if status < 200 || status > 299 {
		return newStatusError(opSignup, cred.Name, status, raw)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) (int, []byte, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, raw, nil
}

func newStatusError(op, credential string, status int, raw []byte) *Error {
	e := &Error{Op: op, Credential: credential, StatusCode: status}
	var body errorBody
	if err := json.Unmarshal(raw, &body); err != nil {
		e.Description = strings.TrimSpace(string(raw))
		return e
	}
	e.Code = firstNonEmpty(body.Code, body.Error, body.Name)
	e.Description = firstNonEmpty(body.ErrorDescription, body.Description, body.Message)
	return e
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
