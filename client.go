package apns

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/tinywideclouds/go-apns/token"
)

// APNs provider hosts.
const (
	HostProduction  = "https://api.push.apple.com"
	HostDevelopment = "https://api.development.push.apple.com"
)

// Config carries everything needed to construct a Client: the signing
// credentials and, optionally, a transport and host override.
type Config struct {
	// TeamID, KeyID and SigningKey are the .p8 credentials; see token.Config.
	TeamID     string
	KeyID      string
	SigningKey *ecdsa.PrivateKey

	// TokenRefresh overrides the provider's default refresh interval.
	TokenRefresh time.Duration

	// HTTPClient overrides DefaultHTTPClient.
	HTTPClient HTTPClient

	// Host overrides HostProduction.
	Host string
}

// Client delivers notifications over the APNs HTTP/2 provider API.
// It is safe for concurrent use; the token provider it owns is the only
// shared mutable state.
type Client struct {
	host     string
	client   HTTPClient
	provider *token.Provider
}

// New builds a Client targeting the production host. It fails fast on bad
// credentials so misconfiguration surfaces at startup, not on first push.
func New(cfg Config) (*Client, error) {
	provider, err := token.New(token.Config{
		TeamID:          cfg.TeamID,
		KeyID:           cfg.KeyID,
		SigningKey:      cfg.SigningKey,
		RefreshInterval: cfg.TokenRefresh,
	})
	if err != nil {
		return nil, err
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = DefaultHTTPClient()
	}
	host := cfg.Host
	if host == "" {
		host = HostProduction
	}
	return &Client{host: host, client: httpClient, provider: provider}, nil
}

// NewWithProvider builds a Client around a caller-managed token provider,
// for callers sharing one provider across clients.
func NewWithProvider(provider *token.Provider, client HTTPClient) *Client {
	if client == nil {
		client = DefaultHTTPClient()
	}
	return &Client{host: HostProduction, client: client, provider: provider}
}

// Development switches the client to the sandbox host.
func (c *Client) Development() *Client {
	c.host = HostDevelopment
	return c
}

// Production switches the client to the production host.
func (c *Client) Production() *Client {
	c.host = HostProduction
	return c
}

// InvalidateToken drops the cached provider token so the next Push signs a
// fresh one. Call it when a push comes back with an AuthExpired reason.
func (c *Client) InvalidateToken() {
	c.provider.Invalidate()
}

// Push sends one notification and reports the provider's verdict.
//
// A non-nil *Response means the exchange completed: check Sent, then Reason.
// A nil Response with a *TransportError means the exchange itself failed;
// retry policy belongs to the caller. Push never retries.
func (c *Client) Push(ctx context.Context, n *Notification) (*Response, error) {
	if n.Topic == "" {
		return nil, ErrMissingTopic
	}
	if n.DeviceToken == "" {
		return nil, ErrMissingDeviceToken
	}
	if len(n.Payload) == 0 {
		return nil, ErrPayloadEmpty
	}

	bearer, err := c.provider.Bearer()
	if err != nil {
		return nil, err
	}

	apnsID := n.ApnsID
	if apnsID == "" {
		apnsID = uuid.NewString()
	}

	url := fmt.Sprintf("%s/3/device/%s", c.host, n.DeviceToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(n.Payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("content-type", "application/json; charset=utf-8")
	req.Header.Set("authorization", "bearer "+bearer)
	req.Header.Set("apns-topic", n.Topic)
	req.Header.Set("apns-id", apnsID)
	if n.CollapseID != "" {
		req.Header.Set("apns-collapse-id", n.CollapseID)
	}
	if n.Priority != 0 {
		req.Header.Set("apns-priority", strconv.Itoa(int(n.Priority)))
	}
	if !n.Expiration.IsZero() {
		req.Header.Set("apns-expiration", strconv.FormatInt(n.Expiration.Unix(), 10))
	}
	if n.PushType != "" {
		req.Header.Set("apns-push-type", string(n.PushType))
	}

	httpResp, err := c.client.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer func() { _ = httpResp.Body.Close() }()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	if id := httpResp.Header.Get("apns-id"); id != "" {
		apnsID = id
	}
	return parseResponse(httpResp.StatusCode, apnsID, body), nil
}
