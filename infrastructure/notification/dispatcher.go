package notification

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/legisflow/legisflow/domain/notification"
	"github.com/legisflow/legisflow/domain/routing"
	"github.com/legisflow/legisflow/infrastructure/logging"
	"github.com/legisflow/legisflow/infrastructure/telemetry"
)

// BatchNotifier delivers notifications singly or in batches.
type BatchNotifier interface {
	notification.Notifier
	DeliverBatch(ctx context.Context, endpoint *notification.Endpoint, ns []*notification.Notification) error
}

// DispatcherConfig configures the dispatcher.
type DispatcherConfig struct {
	// Endpoints maps a notification channel to its webhook endpoint.
	Endpoints map[string]*notification.Endpoint

	// Fallback receives channels without their own endpoint. Nil leaves
	// those notifications pending.
	Fallback *notification.Endpoint

	// BatchSize is the number of notifications per request.
	BatchSize int

	Sender SenderConfig
}

// Report summarises one dispatch pass.
type Report struct {
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// Dispatcher drains pending notifications from the store to webhook
// endpoints and records the delivery outcome on each record.
type Dispatcher struct {
	store     notification.Store
	settings  routing.Settings
	notifier  BatchNotifier
	metrics   telemetry.Metrics
	batchSize int

	endpoints map[string]*notification.Endpoint
	fallback  *notification.Endpoint
	mu        sync.RWMutex
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithNotifier replaces the HTTP sender.
func WithNotifier(n BatchNotifier) DispatcherOption {
	return func(d *Dispatcher) {
		d.notifier = n
	}
}

// WithDispatchMetrics sets the metrics recorder.
func WithDispatchMetrics(m telemetry.Metrics) DispatcherOption {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// NewDispatcher creates a dispatcher reading from store. settings supplies
// the default_recipient used for placeholder recipients; it may be nil.
func NewDispatcher(store notification.Store, settings routing.Settings, config DispatcherConfig, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		store:     store,
		settings:  settings,
		batchSize: config.BatchSize,
		metrics:   &telemetry.NoopMetricsProvider{},
	}
	d.SetEndpoints(config.Endpoints, config.Fallback)

	for _, opt := range opts {
		opt(d)
	}
	if d.notifier == nil {
		d.notifier = NewSender(config.Sender)
	}
	return d
}

// SetEndpoints swaps the endpoint table. Disabled endpoints are ignored.
func (d *Dispatcher) SetEndpoints(endpoints map[string]*notification.Endpoint, fallback *notification.Endpoint) {
	table := make(map[string]*notification.Endpoint, len(endpoints))
	for channel, ep := range endpoints {
		if ep != nil && ep.Enabled {
			table[channel] = ep
		}
	}
	if fallback != nil && !fallback.Enabled {
		fallback = nil
	}

	d.mu.Lock()
	d.endpoints = table
	d.fallback = fallback
	d.mu.Unlock()
}

func (d *Dispatcher) endpointFor(channel string) *notification.Endpoint {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if ep, ok := d.endpoints[channel]; ok {
		return ep
	}
	return d.fallback
}

// DispatchPending delivers every pending notification once. Notifications
// whose channel has no endpoint stay pending and are counted as skipped.
func (d *Dispatcher) DispatchPending(ctx context.Context) (*Report, error) {
	pending, err := d.store.List(ctx, notification.ListFilter{
		Status: []notification.Status{notification.StatusPending},
	})
	if err != nil {
		return nil, err
	}

	recipient, err := d.defaultRecipient(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{}
	groups := make(map[string][]*notification.Notification)
	for _, n := range pending {
		if d.endpointFor(n.Channel) == nil {
			report.Skipped++
			continue
		}
		groups[n.Channel] = append(groups[n.Channel], n)
	}

	channels := make([]string, 0, len(groups))
	for ch := range groups {
		channels = append(channels, ch)
	}
	sort.Strings(channels)

	var errs []error
	for _, ch := range channels {
		endpoint := d.endpointFor(ch)
		batcher := NewBatcher(d.batchSize, func(ctx context.Context, batch []*notification.Notification) error {
			return d.deliver(ctx, endpoint, ch, batch, recipient, report)
		})
		for _, n := range groups[ch] {
			if err := batcher.Add(ctx, n); err != nil {
				errs = append(errs, err)
			}
		}
		if err := batcher.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if report.Skipped > 0 {
		logging.Warn().
			Add(logging.Component("dispatcher")).
			Add(logging.Count("skipped", report.Skipped)).
			Msg("notifications without endpoint left pending")
	}
	logging.Info().
		Add(logging.Component("dispatcher")).
		Add(logging.Count("sent", report.Sent)).
		Add(logging.Count("failed", report.Failed)).
		Msg("dispatch pass finished")

	return report, errors.Join(errs...)
}

// deliver posts a batch and records the outcome. A delivery failure marks
// the batch failed without failing the pass; only store errors propagate.
func (d *Dispatcher) deliver(ctx context.Context, endpoint *notification.Endpoint, channel string, batch []*notification.Notification, recipient string, report *Report) error {
	wire := make([]*notification.Notification, len(batch))
	for i, n := range batch {
		w := n.Clone()
		if recipient != "" && notification.IsPlaceholder(w.Recipient) {
			w.Recipient = recipient
		}
		wire[i] = w
	}

	sendErr := d.notifier.DeliverBatch(ctx, endpoint, wire)
	if sendErr != nil {
		logging.Error().
			Add(logging.Component("dispatcher")).
			Add(logging.Str("channel", channel)).
			Add(logging.Str("endpoint", endpoint.Name)).
			Add(logging.Count("batch", len(batch))).
			Add(logging.ErrorField(sendErr)).
			Msg("webhook delivery failed")
	}

	var errs []error
	for _, n := range batch {
		if sendErr != nil {
			n.MarkFailed(sendErr)
			report.Failed++
		} else {
			n.MarkSent()
			report.Sent++
		}
		d.metrics.RecordDelivery(ctx, channel, sendErr == nil)
		if err := d.store.UpdateStatus(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) defaultRecipient(ctx context.Context) (string, error) {
	if d.settings == nil {
		return "", nil
	}
	v, err := d.settings.Get(ctx, routing.SettingDefaultRecipient)
	if errors.Is(err, routing.ErrSettingNotFound) {
		return "", nil
	}
	return v, err
}

// Run dispatches on every tick until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := d.DispatchPending(ctx); err != nil && ctx.Err() == nil {
			logging.Error().
				Add(logging.Component("dispatcher")).
				Add(logging.ErrorField(err)).
				Msg("dispatch pass failed")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
