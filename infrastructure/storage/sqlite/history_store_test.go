package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/legisflow/legisflow/domain/history"
	"github.com/legisflow/legisflow/domain/notification"
	"github.com/legisflow/legisflow/domain/routing"
	"github.com/legisflow/legisflow/infrastructure/storage/sqlite"
)

func TestHistoryStore_AppendListDiscard(t *testing.T) {
	store, err := sqlite.NewHistoryStoreFromDB(openTestDB(t))
	if err != nil {
		t.Fatalf("NewHistoryStoreFromDB failed: %v", err)
	}
	ctx := context.Background()
	now := time.Now()

	s1 := newStage("s1", "p1", now)
	s2 := newStage("s2", "p1", now)
	created := history.NewEntry(history.ActionCreated, "created", "", now, nil, s1)
	completed := history.NewEntry(history.ActionStepCompleted, "done", "clerk", now, s1, s1)
	next := history.NewEntry(history.ActionNewStep, "next", "", now, nil, s2)

	if err := store.Append(ctx, created, completed, next); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	all, err := store.List(ctx, history.ListFilter{ProposalID: "p1"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 3 || all[0].ID != created.ID || all[2].ID != next.ID {
		t.Fatalf("expected entries in append order")
	}
	if all[1].Before == nil || all[1].Before.ID != "s1" {
		t.Errorf("expected before snapshot to round-trip")
	}

	byAction, _ := store.List(ctx, history.ListFilter{Actions: []history.Action{history.ActionNewStep}})
	if len(byAction) != 1 {
		t.Errorf("expected 1 NEW_STEP entry, got %d", len(byAction))
	}

	if err := store.Append(ctx, created); !errors.Is(err, history.ErrInvalidEntry) {
		t.Errorf("expected duplicate append to fail, got %v", err)
	}
	remaining, _ := store.List(ctx, history.ListFilter{})
	if len(remaining) != 3 {
		t.Errorf("failed append must not persist anything, got %d entries", len(remaining))
	}

	if err := store.Discard(ctx, completed.ID, next.ID); err != nil {
		t.Fatalf("Discard failed: %v", err)
	}
	remaining, _ = store.List(ctx, history.ListFilter{})
	if len(remaining) != 1 {
		t.Errorf("expected 1 entry after discard, got %d", len(remaining))
	}
}

func TestNotificationStore_Lifecycle(t *testing.T) {
	store, err := sqlite.NewNotificationStoreFromDB(openTestDB(t))
	if err != nil {
		t.Fatalf("NewNotificationStoreFromDB failed: %v", err)
	}
	ctx := context.Background()

	step := &routing.Step{ID: "step-1", Name: "Committee review"}
	rule := &routing.Rule{ID: "rule-1"}
	n1 := notification.FromPayload(notification.KindNotification, "s1", "p1", rule, step,
		routing.Payload{Channel: "email", Recipient: "clerk@example.org"}, 1, time.Now())
	n2 := notification.FromPayload(notification.KindAlert, "s1", "p1", rule, step,
		routing.Payload{}, 1, time.Now())

	if err := store.Append(ctx, n1, n2); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	pending, err := store.List(ctx, notification.ListFilter{Status: []notification.Status{notification.StatusPending}})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(pending) != 2 || pending[0].ID != n1.ID {
		t.Fatalf("expected 2 pending notifications in append order")
	}
	if pending[1].Recipient != "destinatario-1" || pending[1].Channel != "alert" {
		t.Errorf("unexpected alert defaults: %s/%s", pending[1].Channel, pending[1].Recipient)
	}

	n1.MarkSent()
	if err := store.UpdateStatus(ctx, n1); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	loaded, _ := store.Get(ctx, n1.ID)
	if loaded.Status != notification.StatusSent || loaded.Attempts != 1 {
		t.Errorf("expected sent after 1 attempt, got %s/%d", loaded.Status, loaded.Attempts)
	}
	if loaded.Parameters.RuleID != "rule-1" || loaded.Parameters.Payload.Channel != "email" {
		t.Errorf("parameters did not round-trip: %+v", loaded.Parameters)
	}

	if err := store.Discard(ctx, n2.ID); err != nil {
		t.Fatalf("Discard failed: %v", err)
	}
	if _, err := store.Get(ctx, n2.ID); !errors.Is(err, notification.ErrNotificationNotFound) {
		t.Errorf("expected ErrNotificationNotFound, got %v", err)
	}
}
