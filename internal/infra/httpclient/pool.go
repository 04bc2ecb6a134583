package httpclient

import (
	"net/http"
	"time"
)

// sharedTransport is reused across all pooled clients to maximize
// connection reuse against the model API, agent service, and blob store.
var sharedTransport = &http.Transport{
	MaxIdleConns:        20,
	MaxIdleConnsPerHost: 10,
	IdleConnTimeout:     120 * time.Second,
	DisableKeepAlives:   false,
}

// NewPooledClient creates an http.Client that shares a connection pool
// with other pooled clients.
func NewPooledClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: sharedTransport,
	}
}

// NewStreamingClient creates a pooled client with no overall timeout,
// for endpoints that stream a response body for an unbounded time.
// Callers bound it with a request context instead.
func NewStreamingClient() *http.Client {
	return &http.Client{
		Transport: sharedTransport,
	}
}
