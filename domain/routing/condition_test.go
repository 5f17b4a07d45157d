package routing

import (
	"errors"
	"testing"
)

func TestCondition_Matches(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		cond  Condition
		value string
		want  bool
	}{
		{"any matches anything", Any(), "whatever", true},
		{"any matches empty", Any(), "", true},
		{"equals is case-insensitive", Equals("EM_ANDAMENTO"), "em_andamento", true},
		{"equals mismatch", Equals("COMPLETED"), "IN_PROGRESS", false},
		{"not equals mismatch matches", NotEquals("COMPLETED"), "in_progress", true},
		{"not equals is case-insensitive", NotEquals("completed"), "COMPLETED", false},
		{"one of hit", OneOf("ccj", "board"), "BOARD", true},
		{"one of miss", OneOf("ccj", "board"), "plenary", false},
		{"empty one of matches", OneOf(), "plenary", true},
		{"unknown operator never matches", Condition{Op: "regex", Value: ".*"}, "x", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.cond.Matches(tt.value); got != tt.want {
				t.Errorf("Matches(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestCondition_Validate(t *testing.T) {
	t.Parallel()

	for _, c := range []Condition{Any(), Equals("a"), NotEquals("a"), OneOf("a")} {
		if err := c.Validate(); err != nil {
			t.Errorf("Validate(%s) error = %v", c.Op, err)
		}
	}
	if err := (Condition{Op: "gt"}).Validate(); !errors.Is(err, ErrInvalidCondition) {
		t.Errorf("Validate(gt) error = %v, want ErrInvalidCondition", err)
	}
}

func TestMatchAll(t *testing.T) {
	t.Parallel()

	ctx := MatchContext{
		KeyProposalID:  "p-1",
		KeyStageTypeID: "received",
		KeyUnitID:      "board",
		KeyStatus:      "IN_PROGRESS",
		KeyAutomatic:   "false",
	}

	tests := []struct {
		name       string
		conditions map[string]Condition
		want       bool
	}{
		{"wildcard", nil, true},
		{"all keys match", map[string]Condition{
			KeyStageTypeID: Equals("RECEIVED"),
			KeyStatus:      Equals("in_progress"),
		}, true},
		{"one key fails", map[string]Condition{
			KeyStageTypeID: Equals("received"),
			KeyUnitID:      Equals("ccj"),
		}, false},
		{"snake case alias", map[string]Condition{
			"stage_type_id": OneOf("received", "review"),
		}, true},
		{"absent context value compares as empty", map[string]Condition{
			KeyOutcome: Equals("APPROVED"),
		}, false},
		{"absent context value with not equals", map[string]Condition{
			KeyOutcome: NotEquals("APPROVED"),
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := MatchAll(tt.conditions, ctx); got != tt.want {
				t.Errorf("MatchAll() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSortSteps_IsStable(t *testing.T) {
	t.Parallel()

	steps := []*Step{
		{ID: "c", Order: 3},
		{ID: "a1", Order: 1},
		{ID: "b", Order: 2},
		{ID: "a2", Order: 1},
	}
	SortSteps(steps)

	want := []string{"a1", "a2", "b", "c"}
	for i, s := range steps {
		if s.ID != want[i] {
			t.Fatalf("steps[%d] = %s, want %s", i, s.ID, want[i])
		}
	}
}

func TestStep_Clone(t *testing.T) {
	t.Parallel()

	s := &Step{
		ID:            "s",
		Notifications: []Payload{{Channel: "email", Extra: map[string]string{"k": "v"}}},
	}
	c := s.Clone()
	c.Notifications[0].Extra["k"] = "changed"

	if s.Notifications[0].Extra["k"] != "v" {
		t.Error("clone shares payload extra map")
	}
}

func TestRule_Validate(t *testing.T) {
	t.Parallel()

	r := NewRule("committee routing", map[string]Condition{KeyStatus: {Op: "nope"}})
	if err := r.Validate(); !errors.Is(err, ErrInvalidCondition) {
		t.Errorf("Validate() error = %v, want ErrInvalidCondition", err)
	}

	r.Conditions = nil
	if err := r.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
	if !r.IsWildcard() {
		t.Error("rule without conditions should be a wildcard")
	}
}
