// Package api provides the public API for the legisflow library.
// This file provides engine-related exports.
package api

import (
	"github.com/legisflow/legisflow/application"
	"github.com/legisflow/legisflow/domain/history"
	"github.com/legisflow/legisflow/domain/routing"
	"github.com/legisflow/legisflow/domain/stage"
)

// Re-export engine types.
type (
	// Engine is the stage transition engine.
	Engine = application.Engine
	// EngineOption configures an Engine.
	EngineOption = application.Option
	// CreateOptions configures CreateInitialStage.
	CreateOptions = application.CreateOptions
	// AdvanceOptions configures Advance.
	AdvanceOptions = application.AdvanceOptions
	// AdvanceResult describes everything an advance produced.
	AdvanceResult = application.AdvanceResult
	// FinalizeOptions configures Finalize.
	FinalizeOptions = application.FinalizeOptions
	// ReopenOptions configures Reopen.
	ReopenOptions = application.ReopenOptions
	// CancelOptions configures Cancel.
	CancelOptions = application.CancelOptions
	// Snapshot holds the engine's mutable collections.
	Snapshot = application.Snapshot

	// Stage is a stage instance.
	Stage = stage.Instance
	// StageStatus is the lifecycle state of a stage.
	StageStatus = stage.Status
	// Outcome is the decision recorded when a stage is finalized.
	Outcome = stage.Outcome
	// HistoryEntry is one audit log entry.
	HistoryEntry = history.Entry
	// Rule is a routing rule.
	Rule = routing.Rule
	// Step is one ordered entry of a rule.
	Step = routing.Step
	// Condition is a predicate over one context key.
	Condition = routing.Condition
)

// Stage statuses.
const (
	StatusInProgress = stage.StatusInProgress
	StatusCompleted  = stage.StatusCompleted
	StatusCancelled  = stage.StatusCancelled
)

// NewEngine creates an engine with functional options.
func NewEngine(opts ...EngineOption) (*Engine, error) {
	return application.NewEngineWithOptions(opts...)
}

// Engine options.
var (
	WithCatalog            = application.WithCatalog
	WithStageStore         = application.WithStageStore
	WithHistoryStore       = application.WithHistoryStore
	WithNotificationStore  = application.WithNotificationStore
	WithRoutingStore       = application.WithRoutingStore
	WithSettings           = application.WithSettings
	WithClock              = application.WithClock
	WithLocation           = application.WithLocation
	WithLenientTransitions = application.WithLenientTransitions
	WithFallbackUnit       = application.WithFallbackUnit
	WithLocker             = application.WithLocker
	WithMetrics            = application.WithMetrics
	WithTracer             = application.WithTracer
)
