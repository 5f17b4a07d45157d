package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/legisflow/legisflow/domain/history"
	"github.com/legisflow/legisflow/domain/stage"
	"github.com/legisflow/legisflow/infrastructure/storage/memory"
)

func TestHistoryStore_AppendAndList(t *testing.T) {
	t.Parallel()

	store := memory.NewHistoryStore()
	ctx := context.Background()
	now := time.Now()

	s1 := newStage("s1", "p1", now)
	s2 := newStage("s2", "p1", now)
	other := newStage("s3", "p2", now)

	entries := []*history.Entry{
		history.NewEntry(history.ActionCreated, "created", "", now, nil, s1),
		history.NewEntry(history.ActionStepCompleted, "done", "u1", now, s1, s1),
		history.NewEntry(history.ActionNewStep, "next", "", now, nil, s2),
		history.NewEntry(history.ActionCreated, "created", "", now, nil, other),
	}
	if err := store.Append(ctx, entries...); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	tests := []struct {
		name   string
		filter history.ListFilter
		want   []history.Action
	}{
		{"by proposal keeps append order", history.ListFilter{ProposalID: "p1"},
			[]history.Action{history.ActionCreated, history.ActionStepCompleted, history.ActionNewStep}},
		{"by stage", history.ListFilter{StageID: "s2"}, []history.Action{history.ActionNewStep}},
		{"by action", history.ListFilter{Actions: []history.Action{history.ActionCreated}},
			[]history.Action{history.ActionCreated, history.ActionCreated}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := store.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("List() returned %d entries, want %d", len(got), len(tt.want))
			}
			for i, e := range got {
				if e.Action != tt.want[i] {
					t.Errorf("List()[%d].Action = %s, want %s", i, e.Action, tt.want[i])
				}
			}
		})
	}
}

func TestHistoryStore_AppendIsAllOrNothing(t *testing.T) {
	t.Parallel()

	store := memory.NewHistoryStore()
	now := time.Now()
	valid := history.NewEntry(history.ActionCreated, "created", "", now, nil, newStage("s1", "p1", now))

	err := store.Append(context.Background(), valid, &history.Entry{})
	if !errors.Is(err, history.ErrInvalidEntry) {
		t.Fatalf("Append() error = %v, want ErrInvalidEntry", err)
	}
	if store.Len() != 0 {
		t.Errorf("Len() = %d, want 0", store.Len())
	}
}

func TestHistoryStore_SnapshotsAreCopies(t *testing.T) {
	t.Parallel()

	store := memory.NewHistoryStore()
	ctx := context.Background()
	now := time.Now()
	s := newStage("s1", "p1", now)
	_ = store.Append(ctx, history.NewEntry(history.ActionCreated, "created", "", now, nil, s))

	got, _ := store.List(ctx, history.ListFilter{})
	got[0].After.Status = stage.StatusCancelled

	again, _ := store.List(ctx, history.ListFilter{})
	if again[0].After.Status != stage.StatusInProgress {
		t.Error("List() returned shared snapshot")
	}
}

func TestHistoryStore_Discard(t *testing.T) {
	t.Parallel()

	store := memory.NewHistoryStore()
	ctx := context.Background()
	now := time.Now()
	a := history.NewEntry(history.ActionCreated, "a", "", now, nil, newStage("s1", "p1", now))
	b := history.NewEntry(history.ActionNewStep, "b", "", now, nil, newStage("s2", "p1", now))
	_ = store.Append(ctx, a, b)

	if err := store.Discard(ctx, a.ID); err != nil {
		t.Fatalf("Discard() error = %v", err)
	}
	got, _ := store.List(ctx, history.ListFilter{})
	if len(got) != 1 || got[0].ID != b.ID {
		t.Errorf("List() after Discard = %v, want only %s", got, b.ID)
	}
}
