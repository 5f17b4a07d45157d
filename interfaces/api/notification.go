// Package api provides the public API for the legisflow library.
// This file provides notification-related exports.
package api

import (
	domainnotif "github.com/legisflow/legisflow/domain/notification"
	infranotif "github.com/legisflow/legisflow/infrastructure/notification"
)

// Re-export domain notification types.
type (
	// Notification is a recorded notification or alert.
	Notification = domainnotif.Notification
	// NotificationStatus is the delivery state of a notification.
	NotificationStatus = domainnotif.Status
	// Endpoint represents a webhook endpoint configuration.
	Endpoint = domainnotif.Endpoint
)

// Re-export infrastructure notification types.
type (
	// Dispatcher delivers pending notifications to webhook endpoints.
	Dispatcher = infranotif.Dispatcher
	// DispatchReport counts the outcome of one dispatch pass.
	DispatchReport = infranotif.Report
	// BatchNotifier delivers notifications to an endpoint.
	BatchNotifier = infranotif.BatchNotifier
	// SenderConfig configures the HTTP sender.
	SenderConfig = infranotif.SenderConfig
)

// DefaultSenderConfig returns the default sender configuration.
func DefaultSenderConfig() SenderConfig {
	return infranotif.DefaultSenderConfig()
}
