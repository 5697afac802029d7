// Package httpclient builds the pooled http.Client shared by live providers.
package httpclient

import (
	"net"
	"net/http"
	"os"
	"strconv"
	"time"
)

// ClientConfig holds transport settings for provider HTTP clients.
type ClientConfig struct {
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration

	DialTimeout           time.Duration
	KeepAlive             time.Duration
	TLSHandshakeTimeout   time.Duration
	ResponseHeaderTimeout time.Duration

	// Timeout bounds a whole exchange including the body. Zero leaves it to the
	// request context, which keeps long upstream streams alive.
	Timeout time.Duration
}

// DefaultConfig returns the transport defaults. HTTP_TIMEOUT and
// HTTP_RESPONSE_HEADER_TIMEOUT override the two request timeouts.
func DefaultConfig() ClientConfig {
	return ClientConfig{
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		IdleConnTimeout:       90 * time.Second,
		DialTimeout:           30 * time.Second,
		KeepAlive:             30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeoutFromEnv("HTTP_RESPONSE_HEADER_TIMEOUT", 2*time.Minute),
		Timeout:               timeoutFromEnv("HTTP_TIMEOUT", 0),
	}
}

// timeoutFromEnv reads whole seconds or a Go duration string. Anything
// unparsable keeps fallback.
func timeoutFromEnv(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// NewHTTPClient returns a client over a clone of http.DefaultTransport tuned
// by cfg. A nil cfg means DefaultConfig().
func NewHTTPClient(cfg *ClientConfig) *http.Client {
	if cfg == nil {
		def := DefaultConfig()
		cfg = &def
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	dialer := &net.Dialer{Timeout: cfg.DialTimeout, KeepAlive: cfg.KeepAlive}
	transport.DialContext = dialer.DialContext
	transport.MaxIdleConns = cfg.MaxIdleConns
	transport.MaxIdleConnsPerHost = cfg.MaxIdleConnsPerHost
	transport.IdleConnTimeout = cfg.IdleConnTimeout
	transport.TLSHandshakeTimeout = cfg.TLSHandshakeTimeout
	transport.ResponseHeaderTimeout = cfg.ResponseHeaderTimeout

	return &http.Client{Transport: transport, Timeout: cfg.Timeout}
}

// NewDefaultHTTPClient is NewHTTPClient(nil).
func NewDefaultHTTPClient() *http.Client {
	return NewHTTPClient(nil)
}
