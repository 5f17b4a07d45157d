package notification

import "context"

// Notifier delivers a notification to an endpoint.
type Notifier interface {
	Deliver(ctx context.Context, endpoint *Endpoint, n *Notification) error
}

// Endpoint represents a webhook endpoint configuration.
type Endpoint struct {
	// URL is the webhook endpoint URL.
	URL string `json:"url" yaml:"url"`
	// Secret is the shared secret for HMAC signing.
	Secret string `json:"secret,omitempty" yaml:"secret,omitempty"`
	// Headers are additional HTTP headers to include.
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	// Enabled indicates if this endpoint is active.
	Enabled bool `json:"enabled" yaml:"enabled"`
	// Name is an optional friendly name for the endpoint.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
}

// Validate checks the endpoint configuration.
func (e *Endpoint) Validate() error {
	if e == nil || e.URL == "" {
		return ErrInvalidEndpoint
	}
	return nil
}
