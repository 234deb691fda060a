package apns

import (
	"net/http"
	"time"

	"golang.org/x/net/http2"
)

// HTTPClient is the transport collaborator: it executes one HTTP/2 exchange.
// *http.Client satisfies it; tests substitute their own.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// DefaultTimeout bounds a single push exchange on the default client.
const DefaultTimeout = 60 * time.Second

// DefaultHTTPClient returns an HTTP/2-only client suitable for the APNs
// hosts. TLS configuration and connection reuse are the transport's concern,
// not this package's.
func DefaultHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http2.Transport{},
		Timeout:   DefaultTimeout,
	}
}
