// Package rapi is a client for the Ganeti remote API: an authenticated
// HTTPS transport, the instance endpoints, and a poller for the
// asynchronous jobs every mutating call returns.
package rapi

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"gntrecon/internal/logging"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

// DefaultPort is the port the RAPI daemon listens on by default.
const DefaultPort = 5080

// Credentials authenticate against RAPI via basic auth. The password is
// never logged.
type Credentials struct {
	User     string
	Password string
}

// Config carries the connection parameters for a Client.
type Config struct {
	Address     string
	Port        int
	Credentials Credentials

	// VerifyTLS enables certificate verification. RAPI deployments
	// commonly use the cluster's self-signed certificate, so this is
	// off unless the operator opts in.
	VerifyTLS bool

	// RequestTimeout bounds a single HTTP exchange, not the retry loop.
	RequestTimeout time.Duration
}

// Client is the low-level RAPI transport. Transient network failures
// are retried with exponential backoff; HTTP status errors never are.
// Safe for concurrent use.
type Client struct {
	base  string
	creds Credentials
	http  *retryablehttp.Client
}

// NewClient builds a transport for the given endpoint.
func NewClient(cfg Config) *Client {
	port := cfg.Port
	if port == 0 {
		port = DefaultPort
	}
	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.RetryWaitMin = 1 * time.Second
	rc.RetryWaitMax = 8 * time.Second
	rc.Logger = nil
	rc.CheckRetry = retryOnNetworkError
	rc.HTTPClient = &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: !cfg.VerifyTLS},
		},
	}

	return &Client{
		base:  fmt.Sprintf("https://%s:%d/2", cfg.Address, port),
		creds: cfg.Credentials,
		http:  rc,
	}
}

// retryOnNetworkError retries connection-level failures only. A
// response with any status code is final: RAPI errors such as 400 or
// 404 are not transient and resubmitting a mutation would be unsafe.
func retryOnNetworkError(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	return resp == nil && err != nil, nil
}

// Do performs one RAPI request. path is relative to the /2 API root,
// e.g. "/instances/foo". A non-nil body is serialized as JSON. Expected
// success codes are 200 and 202; anything else surfaces as an error
// from the transport taxonomy.
func (c *Client) Do(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.base+path, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.creds.User != "" {
		req.SetBasicAuth(c.creds.User, c.creds.Password)
	}

	logging.Logger().Debug("rapi request",
		zap.String("method", method),
		zap.String("path", path))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}

	logging.Logger().Debug("rapi response",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode))

	switch resp.StatusCode {
	case http.StatusOK, http.StatusAccepted:
		return json.RawMessage(raw), nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, &AuthError{Status: resp.StatusCode}
	default:
		return nil, &HTTPError{
			Method: method,
			Path:   path,
			Status: resp.StatusCode,
			Body:   string(raw),
		}
	}
}
