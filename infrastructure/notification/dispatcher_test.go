package notification

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/legisflow/legisflow/domain/notification"
	"github.com/legisflow/legisflow/domain/routing"
	"github.com/legisflow/legisflow/infrastructure/storage/memory"
)

// recordingNotifier captures deliveries and fails for URLs in failFor.
type recordingNotifier struct {
	mu      sync.Mutex
	batches map[string][][]*notification.Notification
	failFor map[string]bool
}

func newRecordingNotifier(failFor ...string) *recordingNotifier {
	r := &recordingNotifier{
		batches: make(map[string][][]*notification.Notification),
		failFor: make(map[string]bool),
	}
	for _, u := range failFor {
		r.failFor[u] = true
	}
	return r
}

func (r *recordingNotifier) Deliver(ctx context.Context, ep *notification.Endpoint, n *notification.Notification) error {
	return r.DeliverBatch(ctx, ep, []*notification.Notification{n})
}

func (r *recordingNotifier) DeliverBatch(_ context.Context, ep *notification.Endpoint, ns []*notification.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches[ep.URL] = append(r.batches[ep.URL], ns)
	if r.failFor[ep.URL] {
		return notification.ErrEndpointUnavailable
	}
	return nil
}

func seedPending(t *testing.T, store *memory.NotificationStore, channels ...string) {
	t.Helper()
	for i, ch := range channels {
		n := testNotification(string(rune('a'+i)), ch)
		if err := store.Append(context.Background(), n); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}
}

func TestDispatcher_DispatchPending(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := memory.NewNotificationStore()
	seedPending(t, store, "email", "email", "email", "sms", "fax")

	settings := memory.NewSettingsStore(map[string]string{
		routing.SettingDefaultRecipient: "secretariat@chamber.example",
	})
	notifier := newRecordingNotifier("https://sms.example")

	d := NewDispatcher(store, settings, DispatcherConfig{
		Endpoints: map[string]*notification.Endpoint{
			"email": {URL: "https://mail.example", Enabled: true},
			"sms":   {URL: "https://sms.example", Enabled: true},
			"fax":   {URL: "https://fax.example", Enabled: false},
		},
		BatchSize: 2,
	}, WithNotifier(notifier))

	report, err := d.DispatchPending(ctx)
	if err != nil {
		t.Fatalf("DispatchPending() error = %v", err)
	}
	if report.Sent != 3 || report.Failed != 1 || report.Skipped != 1 {
		t.Errorf("report = %+v, want sent 3 failed 1 skipped 1", report)
	}

	mail := notifier.batches["https://mail.example"]
	if len(mail) != 2 || len(mail[0]) != 2 || len(mail[1]) != 1 {
		t.Errorf("mail batches = %d, want sizes 2 and 1", len(mail))
	}
	if got := mail[0][0].Recipient; got != "secretariat@chamber.example" {
		t.Errorf("placeholder recipient delivered as %q", got)
	}

	stored, _ := store.List(ctx, notification.ListFilter{})
	want := map[string]notification.Status{
		"a": notification.StatusSent,
		"b": notification.StatusSent,
		"c": notification.StatusSent,
		"d": notification.StatusFailed,
		"e": notification.StatusPending,
	}
	for _, n := range stored {
		if n.Status != want[n.ID] {
			t.Errorf("%s status = %s, want %s", n.ID, n.Status, want[n.ID])
		}
		if n.Recipient != notification.PlaceholderRecipient(1) {
			t.Errorf("%s stored recipient rewritten to %q", n.ID, n.Recipient)
		}
	}

	report, err = d.DispatchPending(ctx)
	if err != nil {
		t.Fatalf("second DispatchPending() error = %v", err)
	}
	if report.Sent != 0 || report.Failed != 0 || report.Skipped != 1 {
		t.Errorf("second pass report = %+v", report)
	}
}

func TestDispatcher_Fallback(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := memory.NewNotificationStore()
	seedPending(t, store, "system", "alert")
	notifier := newRecordingNotifier()

	d := NewDispatcher(store, nil, DispatcherConfig{
		Fallback: &notification.Endpoint{URL: "https://hub.example", Enabled: true},
	}, WithNotifier(notifier))

	report, err := d.DispatchPending(ctx)
	if err != nil {
		t.Fatalf("DispatchPending() error = %v", err)
	}
	if report.Sent != 2 {
		t.Errorf("Sent = %d, want 2", report.Sent)
	}
	if len(notifier.batches["https://hub.example"]) != 2 {
		t.Errorf("fallback should receive one batch per channel")
	}
	if got := notifier.batches["https://hub.example"][0][0].Recipient; got != notification.PlaceholderRecipient(1) {
		t.Errorf("recipient = %q, want placeholder kept without default", got)
	}
}

func TestDispatcher_SetEndpoints(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := memory.NewNotificationStore()
	seedPending(t, store, "email")
	notifier := newRecordingNotifier()
	d := NewDispatcher(store, nil, DispatcherConfig{}, WithNotifier(notifier))

	report, _ := d.DispatchPending(ctx)
	if report.Skipped != 1 {
		t.Fatalf("Skipped = %d, want 1", report.Skipped)
	}

	d.SetEndpoints(map[string]*notification.Endpoint{
		"email": {URL: "https://mail.example", Enabled: true},
	}, nil)
	report, _ = d.DispatchPending(ctx)
	if report.Sent != 1 {
		t.Errorf("Sent = %d after endpoint reload, want 1", report.Sent)
	}
}

// brokenStore fails status updates.
type brokenStore struct {
	*memory.NotificationStore
}

var errDiskFull = errors.New("disk full")

func (brokenStore) UpdateStatus(context.Context, *notification.Notification) error {
	return errDiskFull
}

func TestDispatcher_PropagatesStoreErrors(t *testing.T) {
	t.Parallel()

	inner := memory.NewNotificationStore()
	seedPending(t, inner, "email")
	d := NewDispatcher(brokenStore{inner}, nil, DispatcherConfig{
		Endpoints: map[string]*notification.Endpoint{"email": {URL: "https://mail.example", Enabled: true}},
	}, WithNotifier(newRecordingNotifier()))

	if _, err := d.DispatchPending(context.Background()); !errors.Is(err, errDiskFull) {
		t.Errorf("DispatchPending() error = %v, want errDiskFull", err)
	}
}
