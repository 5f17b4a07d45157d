package telemetry

import "testing"

func TestSpanOptions(t *testing.T) {
	t.Parallel()

	cfg := &SpanConfig{}
	for _, opt := range []SpanOption{
		WithAttributes(String("proposal.id", "p-1"), Int("stage.count", 2)),
		WithAttributes(Bool("lenient", true)),
		WithSpanKind(SpanKindInternal),
	} {
		opt.ApplySpan(cfg)
	}

	if len(cfg.Attributes) != 3 {
		t.Fatalf("Attributes = %d, want 3", len(cfg.Attributes))
	}
	if cfg.Attributes[0].Key != "proposal.id" || cfg.Attributes[0].Value != "p-1" {
		t.Errorf("Attributes[0] = %+v", cfg.Attributes[0])
	}
	if cfg.Kind != SpanKindInternal {
		t.Errorf("Kind = %v, want internal", cfg.Kind)
	}
}

func TestAttributeConstructors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		attr Attribute
		want any
	}{
		{String("k", "v"), "v"},
		{Int("k", 3), 3},
		{Int64("k", 4), int64(4)},
		{Float64("k", 1.5), 1.5},
		{Bool("k", true), true},
	}
	for _, tt := range tests {
		if tt.attr.Key != "k" || tt.attr.Value != tt.want {
			t.Errorf("attribute = %+v, want value %v", tt.attr, tt.want)
		}
	}
}

func TestStageSpanNaming(t *testing.T) {
	t.Parallel()

	tests := []struct {
		operation string
		want      string
	}{
		{OpCreate, "legisflow.create"},
		{OpAdvance, "legisflow.advance"},
		{OpFinalize, "legisflow.finalize"},
		{OpReopen, "legisflow.reopen"},
		{OpCancel, "legisflow.cancel"},
		{OpImport, "legisflow.import"},
	}
	for _, tt := range tests {
		if got := SpanName(tt.operation); got != tt.want {
			t.Errorf("SpanName(%q) = %q, want %q", tt.operation, got, tt.want)
		}
	}
}

func TestStageAttributes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		attr Attribute
		key  string
	}{
		{"proposal", ProposalID("p-1"), AttrProposalID},
		{"stage", StageID("p-1"), AttrStageID},
		{"stage type", StageTypeID("p-1"), AttrStageTypeID},
		{"unit", UnitID("p-1"), AttrUnitID},
	}
	for _, tt := range tests {
		if tt.attr.Key != tt.key || tt.attr.Value != "p-1" {
			t.Errorf("%s attribute = %+v, want key %s", tt.name, tt.attr, tt.key)
		}
	}

	transition := Transition("IN_PROGRESS", "COMPLETED")
	if len(transition) != 2 || transition[0].Key != AttrFromStatus || transition[1].Value != "COMPLETED" {
		t.Errorf("Transition() = %+v", transition)
	}
}
