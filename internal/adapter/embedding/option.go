package embedding

import (
	"net/http"
	"time"
)

// Option configures an HTTP-backed embedder.
type Option func(*options)

type options struct {
	baseURL string
	client  *http.Client
}

// WithBaseURL overrides the provider endpoint.
func WithBaseURL(url string) Option {
	return func(o *options) {
		if url != "" {
			o.baseURL = url
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.client = &http.Client{Timeout: d}
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		if c != nil {
			o.client = c
		}
	}
}

func applyOptions(baseURL string, timeout time.Duration, opts []Option) options {
	o := options{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}
