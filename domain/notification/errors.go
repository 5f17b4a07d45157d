package notification

import "errors"

// Domain errors for notification operations.
var (
	// ErrNotificationNotFound indicates the notification was not found.
	ErrNotificationNotFound = errors.New("notification not found")

	// ErrInvalidNotification indicates the notification is malformed.
	ErrInvalidNotification = errors.New("invalid notification")

	// ErrEndpointUnavailable indicates the webhook endpoint is not reachable.
	ErrEndpointUnavailable = errors.New("webhook endpoint unavailable")

	// ErrEndpointRejected indicates the endpoint rejected the notification.
	ErrEndpointRejected = errors.New("webhook endpoint rejected notification")

	// ErrInvalidEndpoint indicates the endpoint configuration is invalid.
	ErrInvalidEndpoint = errors.New("invalid endpoint configuration")

	// ErrNoEndpoint indicates no endpoint is configured for the channel.
	ErrNoEndpoint = errors.New("no endpoint configured for channel")
)
