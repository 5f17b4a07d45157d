package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/legisflow/legisflow/domain/routing"
	"github.com/legisflow/legisflow/infrastructure/storage/memory"
)

func newRule(id string, order int, active bool) *routing.Rule {
	return &routing.Rule{ID: id, Name: "rule " + id, Order: order, Active: active}
}

func TestRoutingStore_ListRules(t *testing.T) {
	t.Parallel()

	store := memory.NewRoutingStore()
	ctx := context.Background()
	_ = store.SaveRule(ctx, newRule("late", 5, true))
	_ = store.SaveRule(ctx, newRule("first", 1, true))
	_ = store.SaveRule(ctx, newRule("second", 1, true))
	_ = store.SaveRule(ctx, newRule("off", 0, false))

	tests := []struct {
		name   string
		filter routing.ListFilter
		want   []string
	}{
		{"all", routing.ListFilter{}, []string{"off", "first", "second", "late"}},
		{"active only", routing.ListFilter{ActiveOnly: true}, []string{"first", "second", "late"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := store.ListRules(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListRules() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ListRules() returned %d, want %d", len(got), len(tt.want))
			}
			for i, r := range got {
				if r.ID != tt.want[i] {
					t.Errorf("ListRules()[%d] = %s, want %s", i, r.ID, tt.want[i])
				}
			}
		})
	}
}

func TestRoutingStore_Steps(t *testing.T) {
	t.Parallel()

	store := memory.NewRoutingStore()
	ctx := context.Background()
	_ = store.SaveRule(ctx, newRule("r1", 1, true))

	t.Run("requires owning rule", func(t *testing.T) {
		t.Parallel()

		err := store.SaveStep(ctx, &routing.Step{ID: "orphan", RuleID: "nope", Name: "x", Order: 1})
		if !errors.Is(err, routing.ErrRuleNotFound) {
			t.Errorf("SaveStep() error = %v, want ErrRuleNotFound", err)
		}
	})

	t.Run("lists by order", func(t *testing.T) {
		t.Parallel()

		s := memory.NewRoutingStore()
		_ = s.SaveRule(ctx, newRule("r1", 1, true))
		_ = s.SaveStep(ctx, &routing.Step{ID: "b", RuleID: "r1", Name: "B", Order: 2})
		_ = s.SaveStep(ctx, &routing.Step{ID: "a", RuleID: "r1", Name: "A", Order: 1})

		got, err := s.ListSteps(ctx, "r1")
		if err != nil {
			t.Fatalf("ListSteps() error = %v", err)
		}
		if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
			t.Errorf("ListSteps() order wrong")
		}
		if _, err := s.ListSteps(ctx, "missing"); !errors.Is(err, routing.ErrRuleNotFound) {
			t.Errorf("ListSteps(missing) error = %v", err)
		}
	})
}

func TestRoutingStore_DeleteRuleRemovesSteps(t *testing.T) {
	t.Parallel()

	store := memory.NewRoutingStore()
	ctx := context.Background()
	_ = store.SaveRule(ctx, newRule("r1", 1, true))
	_ = store.SaveRule(ctx, newRule("r2", 2, true))
	_ = store.SaveStep(ctx, &routing.Step{ID: "s1", RuleID: "r1", Name: "A", Order: 1})
	_ = store.SaveStep(ctx, &routing.Step{ID: "s2", RuleID: "r2", Name: "B", Order: 1})

	if err := store.DeleteRule(ctx, "r1"); err != nil {
		t.Fatalf("DeleteRule() error = %v", err)
	}
	if _, err := store.GetStep(ctx, "s1"); !errors.Is(err, routing.ErrStepNotFound) {
		t.Errorf("GetStep(s1) error = %v, want ErrStepNotFound", err)
	}
	if _, err := store.GetStep(ctx, "s2"); err != nil {
		t.Errorf("GetStep(s2) error = %v", err)
	}
}

func TestRoutingStore_UpdateRuleKeepsSteps(t *testing.T) {
	t.Parallel()

	store := memory.NewRoutingStore()
	ctx := context.Background()
	r := newRule("r1", 1, true)
	_ = store.SaveRule(ctx, r)
	_ = store.SaveStep(ctx, &routing.Step{ID: "s1", RuleID: "r1", Name: "A", Order: 1})

	r.Active = false
	r.Conditions = map[string]routing.Condition{routing.KeyUnitID: routing.Equals("board")}
	if err := store.UpdateRule(ctx, r); err != nil {
		t.Fatalf("UpdateRule() error = %v", err)
	}

	got, _ := store.GetRule(ctx, "r1")
	if got.Active {
		t.Error("UpdateRule() did not persist Active")
	}
	steps, _ := store.ListSteps(ctx, "r1")
	if len(steps) != 1 {
		t.Errorf("steps = %d, want 1", len(steps))
	}
	if err := store.SaveRule(ctx, r); !errors.Is(err, routing.ErrRuleExists) {
		t.Errorf("SaveRule(dup) error = %v, want ErrRuleExists", err)
	}
}
