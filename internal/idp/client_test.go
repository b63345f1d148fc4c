package idp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"cafe_client/internal/config"
	"cafe_client/internal/platform/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// recorder captures decoded request bodies and answers from a script.
type recorder struct {
	mu       sync.Mutex
	requests []map[string]interface{}
	respond  func(body map[string]interface{}) (int, interface{})
}

func (r *recorder) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	var body map[string]interface{}
	_ = json.NewDecoder(req.Body).Decode(&body)
	body["_path"] = req.URL.Path

	r.mu.Lock()
	r.requests = append(r.requests, body)
	r.mu.Unlock()

	status, resp := r.respond(body)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	switch v := resp.(type) {
	case string:
		_, _ = w.Write([]byte(v))
	case nil:
	default:
		_ = json.NewEncoder(w).Encode(v)
	}
}

func newTestClient(t *testing.T, rec *recorder, m *metrics.Metrics) *Client {
	t.Helper()
	srv := httptest.NewServer(rec)
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		IDPBaseURL:             srv.URL,
		IDPAudience:            "https://cafe-api",
		IDPConnection:          "Username-Password-Authentication",
		IDPNativeClientID:      "native-id",
		IDPBackendClientID:     "backend-id",
		IDPBackendClientSecret: "backend-secret",
		HTTPTimeout:            5 * time.Second,
	}
	return NewClient(cfg, srv.Client(), zap.NewNop(), m)
}

func TestExchangeToken_PrimarySucceeds(t *testing.T) {
	rec := &recorder{respond: func(map[string]interface{}) (int, interface{}) {
		return http.StatusOK, map[string]interface{}{"access_token": "tok-1", "token_type": "Bearer", "expires_in": 3600}
	}}
	c := newTestClient(t, rec, nil)

	tok, err := c.ExchangeToken(context.Background(), "a@b.com", "Secret1!")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok.AccessToken)
	assert.Equal(t, "native", tok.Extra("credential"))
	assert.WithinDuration(t, time.Now().Add(time.Hour), tok.Expiry, time.Minute)

	require.Len(t, rec.requests, 1)
	req := rec.requests[0]
	assert.Equal(t, "/oauth/token", req["_path"])
	assert.Equal(t, "password", req["grant_type"])
	assert.Equal(t, "a@b.com", req["username"])
	assert.Equal(t, "Secret1!", req["password"])
	assert.Equal(t, "https://cafe-api", req["audience"])
	assert.Equal(t, "native-id", req["client_id"])
	assert.Equal(t, "Username-Password-Authentication", req["connection"])
	assert.NotContains(t, req, "client_secret")
}

func TestExchangeToken_FallsBackOnRejection(t *testing.T) {
	rec := &recorder{respond: func(body map[string]interface{}) (int, interface{}) {
		if body["client_id"] == "native-id" {
			return http.StatusForbidden, map[string]string{"error": "unauthorized_client", "error_description": "Grant type 'password' not allowed for the client."}
		}
		return http.StatusOK, map[string]string{"access_token": "tok-2"}
	}}
	m := metrics.New(prometheus.NewRegistry())
	c := newTestClient(t, rec, m)

	tok, err := c.ExchangeToken(context.Background(), "a@b.com", "Secret1!")
	require.NoError(t, err)
	assert.Equal(t, "tok-2", tok.AccessToken)
	assert.Equal(t, "backend", tok.Extra("credential"))

	require.Len(t, rec.requests, 2)
	assert.Equal(t, "backend-id", rec.requests[1]["client_id"])
	assert.Equal(t, "backend-secret", rec.requests[1]["client_secret"])

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CredentialAttempts.WithLabelValues("native", metrics.OutcomeFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CredentialAttempts.WithLabelValues("backend", metrics.OutcomeSuccess)))
}

func TestExchangeToken_BothRejectedReturnsSecondError(t *testing.T) {
	rec := &recorder{respond: func(body map[string]interface{}) (int, interface{}) {
		if body["client_id"] == "native-id" {
			return http.StatusForbidden, map[string]string{"error": "unauthorized_client", "error_description": "native says no"}
		}
		return http.StatusForbidden, map[string]string{"error": "invalid_grant", "error_description": "Wrong email or password."}
	}}
	c := newTestClient(t, rec, nil)

	_, err := c.ExchangeToken(context.Background(), "a@b.com", "wrong")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRejected))

	var idpErr *Error
	require.True(t, errors.As(err, &idpErr))
	assert.Equal(t, "backend", idpErr.Credential)
	assert.Equal(t, "invalid_grant", idpErr.Code)
	assert.Equal(t, "Wrong email or password.", idpErr.UserMessage())
	assert.Len(t, rec.requests, 2)
}

func TestExchangeToken_MalformedSuccessDoesNotFallBack(t *testing.T) {
	rec := &recorder{respond: func(map[string]interface{}) (int, interface{}) {
		return http.StatusOK, "<html>oops</html>"
	}}
	c := newTestClient(t, rec, nil)

	_, err := c.ExchangeToken(context.Background(), "a@b.com", "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedResponse)
	assert.False(t, errors.Is(err, ErrRejected))
	assert.Len(t, rec.requests, 1)
}

func TestExchangeToken_NonJSONErrorStillFallsBack(t *testing.T) {
	rec := &recorder{respond: func(body map[string]interface{}) (int, interface{}) {
		if body["client_id"] == "native-id" {
			return http.StatusBadGateway, "upstream down"
		}
		return http.StatusOK, map[string]string{"access_token": "tok-3"}
	}}
	c := newTestClient(t, rec, nil)

	tok, err := c.ExchangeToken(context.Background(), "a@b.com", "x")
	require.NoError(t, err)
	assert.Equal(t, "tok-3", tok.AccessToken)
}

func TestExchangeToken_TransportErrorStops(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	cfg := &config.Config{IDPBaseURL: url, IDPNativeClientID: "native-id", IDPBackendClientID: "backend-id"}
	m := metrics.New(prometheus.NewRegistry())
	c := NewClient(cfg, &http.Client{Timeout: time.Second}, zap.NewNop(), m)

	_, err := c.ExchangeToken(context.Background(), "a@b.com", "x")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrRejected))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.CredentialAttempts.WithLabelValues("backend", metrics.OutcomeFailure)))
}

func TestExchangeToken_NoCredentials(t *testing.T) {
	c := NewClient(&config.Config{IDPBaseURL: "http://idp"}, nil, zap.NewNop(), nil)
	_, err := c.ExchangeToken(context.Background(), "a@b.com", "x")
	assert.Error(t, err)
}

func TestSignup_SendsPrimaryCredentialOnly(t *testing.T) {
	rec := &recorder{respond: func(map[string]interface{}) (int, interface{}) {
		return http.StatusOK, map[string]string{"_id": "abc", "email": "a@b.com"}
	}}
	c := newTestClient(t, rec, nil)

	err := c.Signup(context.Background(), "a@b.com", "Secret1!", "Ana Pérez")
	require.NoError(t, err)

	require.Len(t, rec.requests, 1)
	req := rec.requests[0]
	assert.Equal(t, "/dbconnections/signup", req["_path"])
	assert.Equal(t, "native-id", req["client_id"])
	assert.Equal(t, "a@b.com", req["email"])
	assert.Equal(t, "Secret1!", req["password"])
	assert.Equal(t, "Username-Password-Authentication", req["connection"])
	assert.Equal(t, "Ana Pérez", req["name"])
	assert.NotContains(t, req, "client_secret")
}

func TestSignup_Errors(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          interface{}
		wantDuplicate bool
	}{
		{name: "invalid_signup", status: http.StatusBadRequest, body: map[string]string{"code": "invalid_signup", "description": "Invalid sign up"}, wantDuplicate: true},
		{name: "user_exists", status: http.StatusBadRequest, body: map[string]string{"code": "user_exists", "description": "The user already exists."}, wantDuplicate: true},
		{name: "weak password", status: http.StatusBadRequest, body: map[string]string{"code": "invalid_password", "description": "PasswordStrengthError"}},
		{name: "server error", status: http.StatusInternalServerError, body: "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{respond: func(map[string]interface{}) (int, interface{}) { return tt.status, tt.body }}
			c := newTestClient(t, rec, nil)

			err := c.Signup(context.Background(), "a@b.com", "Secret1!", "Ana")
			require.Error(t, err)
			assert.Equal(t, tt.wantDuplicate, errors.Is(err, ErrDuplicateAccount))
			assert.True(t, errors.Is(err, ErrRejected))
			assert.Len(t, rec.requests, 1, "signup never falls back")
		})
	}
}

func TestError_UserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"structured", &Error{Code: "invalid_grant", Description: "Wrong email or password."}, "Wrong email or password."},
		{"no code", &Error{StatusCode: 502, Description: "<html>bad gateway</html>"}, ""},
		{"transport", &Error{Err: errors.New("connection refused")}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.UserMessage())
		})
	}
}
