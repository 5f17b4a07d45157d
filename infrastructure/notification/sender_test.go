package notification

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/legisflow/legisflow/domain/notification"
)

func TestSender_Deliver(t *testing.T) {
	var receivedBody []byte
	var receivedHeaders http.Header

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedHeaders = r.Header
		receivedBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := NewSender(SenderConfig{
		Timeout:    5 * time.Second,
		MaxRetries: 1,
		UserAgent:  "test-agent/1.0",
	})

	endpoint := &notification.Endpoint{
		URL:     server.URL,
		Enabled: true,
		Headers: map[string]string{"X-Chamber": "municipal"},
	}

	if err := sender.Deliver(context.Background(), endpoint, testNotification("n-1", "email")); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}

	if receivedHeaders.Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %s, want application/json", receivedHeaders.Get("Content-Type"))
	}
	if receivedHeaders.Get("User-Agent") != "test-agent/1.0" {
		t.Errorf("User-Agent = %s, want test-agent/1.0", receivedHeaders.Get("User-Agent"))
	}
	if receivedHeaders.Get("X-Chamber") != "municipal" {
		t.Errorf("custom header = %q", receivedHeaders.Get("X-Chamber"))
	}
	if receivedHeaders.Get(HeaderSignature) != "" {
		t.Error("unsigned endpoint should not send a signature")
	}

	var got []*notification.Notification
	if err := json.Unmarshal(receivedBody, &got); err != nil {
		t.Fatalf("failed to unmarshal body: %v", err)
	}
	if len(got) != 1 || got[0].ID != "n-1" {
		t.Errorf("body = %s", receivedBody)
	}
}

func TestSender_SignsBody(t *testing.T) {
	var body []byte
	var headers http.Header

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	sender := NewSender(DefaultSenderConfig())
	endpoint := &notification.Endpoint{URL: server.URL, Secret: "s3cret", Enabled: true}

	if err := sender.Deliver(context.Background(), endpoint, testNotification("n-1", "email")); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if !NewSigner().Verify(body, "s3cret", headers.Get(HeaderSignature)) {
		t.Error("signature header does not verify against the body")
	}
	if headers.Get(HeaderTimestamp) == "" || headers.Get(HeaderTimestampSignature) == "" {
		t.Error("timestamp headers missing")
	}
}

func TestSender_InvalidEndpoint(t *testing.T) {
	sender := NewSender(DefaultSenderConfig())

	for _, ep := range []*notification.Endpoint{nil, {URL: ""}} {
		if err := sender.Deliver(context.Background(), ep, testNotification("n-1", "email")); !errors.Is(err, notification.ErrInvalidEndpoint) {
			t.Errorf("Deliver(%v) error = %v, want ErrInvalidEndpoint", ep, err)
		}
	}
}

func TestSender_RetriesServerErrors(t *testing.T) {
	var attempts int32
	var bodies []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(b))
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := NewSender(SenderConfig{MaxRetries: 3, RetryDelay: 10 * time.Millisecond})
	endpoint := &notification.Endpoint{URL: server.URL, Enabled: true}

	if err := sender.Deliver(context.Background(), endpoint, testNotification("n-1", "email")); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if atomic.LoadInt32(&attempts) != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	for i, b := range bodies {
		if b == "" || b != bodies[0] {
			t.Errorf("attempt %d sent body %q, want the full body each time", i+1, b)
		}
	}
}

func TestSender_DoesNotRetryClientErrors(t *testing.T) {
	var attempts int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	sender := NewSender(SenderConfig{MaxRetries: 3, RetryDelay: 10 * time.Millisecond})
	endpoint := &notification.Endpoint{URL: server.URL, Enabled: true}

	err := sender.Deliver(context.Background(), endpoint, testNotification("n-1", "email"))
	if !errors.Is(err, notification.ErrEndpointRejected) {
		t.Fatalf("Deliver() error = %v, want ErrEndpointRejected", err)
	}
	if atomic.LoadInt32(&attempts) != 1 {
		t.Errorf("should not retry on 4xx, got %d attempts", attempts)
	}
}

func TestSender_BreakerState(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := NewSender(DefaultSenderConfig())

	if state := sender.BreakerState("http://unknown"); state != "unknown" {
		t.Errorf("BreakerState() for unknown = %s, want unknown", state)
	}

	endpoint := &notification.Endpoint{URL: server.URL, Enabled: true}
	_ = sender.Deliver(context.Background(), endpoint, testNotification("n-1", "email"))

	if state := sender.BreakerState(server.URL); state == "unknown" {
		t.Error("BreakerState() should not be unknown after request")
	}
}

func TestSender_ConfigDefaults(t *testing.T) {
	config := DefaultSenderConfig()
	if config.Timeout != 30*time.Second || config.MaxRetries != 3 || config.RetryDelay != time.Second {
		t.Errorf("DefaultSenderConfig() = %+v", config)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "legisflow-webhook/1.0" {
			t.Errorf("default User-Agent not applied")
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := NewSender(SenderConfig{})
	endpoint := &notification.Endpoint{URL: server.URL, Enabled: true}
	if err := sender.Deliver(context.Background(), endpoint, testNotification("n-1", "email")); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
}

func TestSender_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := NewSender(SenderConfig{Timeout: 5 * time.Second, MaxRetries: 1})
	endpoint := &notification.Endpoint{URL: server.URL, Enabled: true}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := sender.Deliver(ctx, endpoint, testNotification("n-1", "email")); err == nil {
		t.Error("Deliver() should return error on context cancellation")
	}
}
