package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/legisflow/legisflow/domain/history"
	"github.com/legisflow/legisflow/domain/notification"
	"github.com/legisflow/legisflow/domain/stage"
	tracing "github.com/legisflow/legisflow/domain/telemetry"
	"github.com/legisflow/legisflow/infrastructure/logging"
)

// SnapshotVersion is the format version written by Export.
const SnapshotVersion = 1

// ErrUnsupportedSnapshot indicates a snapshot of an unknown format version.
var ErrUnsupportedSnapshot = errors.New("unsupported snapshot version")

// Snapshot holds the engine's mutable collections.
type Snapshot struct {
	Version       int                          `json:"version"`
	Stages        []*stage.Instance            `json:"stages"`
	History       []*history.Entry             `json:"history"`
	Notifications []*notification.Notification `json:"notifications"`
}

// ImportResult counts the records an import wrote.
type ImportResult struct {
	Stages        int `json:"stages"`
	History       int `json:"history"`
	Notifications int `json:"notifications"`
}

// Export returns every stage, history entry and notification. Stages are
// ordered by entry time; history and notifications keep append order.
func (e *Engine) Export(ctx context.Context) (*Snapshot, error) {
	stages, err := e.stages.List(ctx, stage.ListFilter{})
	if err != nil {
		return nil, fmt.Errorf("export stages: %w", err)
	}
	entries, err := e.history.List(ctx, history.ListFilter{})
	if err != nil {
		return nil, fmt.Errorf("export history: %w", err)
	}
	notifications, err := e.notifications.List(ctx, notification.ListFilter{})
	if err != nil {
		return nil, fmt.Errorf("export notifications: %w", err)
	}

	return &Snapshot{
		Version:       SnapshotVersion,
		Stages:        stages,
		History:       entries,
		Notifications: notifications,
	}, nil
}

// Import merges a snapshot into the stores. Stages with a known ID are
// replaced; history entries and notifications with a known ID are skipped.
// Either every record lands or none does.
func (e *Engine) Import(ctx context.Context, snap *Snapshot) (*ImportResult, error) {
	if snap == nil {
		return nil, fmt.Errorf("%w: nil snapshot", ErrUnsupportedSnapshot)
	}
	if snap.Version != SnapshotVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedSnapshot, snap.Version)
	}
	ctx, span := e.startSpan(ctx, tracing.OpImport, tracing.Int(tracing.AttrSnapshotStages, len(snap.Stages)))
	defer span.End()

	var result *ImportResult
	err := e.withWriter(func() error {
		r, err := e.importSnapshot(ctx, snap)
		result = r
		return err
	})
	if err != nil {
		return nil, e.fail(ctx, tracing.OpImport, err)
	}

	logging.Info().
		Add(logging.Operation(tracing.OpImport)).
		Add(logging.Count("stages", result.Stages)).
		Add(logging.Count("history", result.History)).
		Add(logging.Count("notifications", result.Notifications)).
		Msg("snapshot imported")
	return result, nil
}

func (e *Engine) importSnapshot(ctx context.Context, snap *Snapshot) (*ImportResult, error) {
	current, err := e.stages.List(ctx, stage.ListFilter{})
	if err != nil {
		return nil, err
	}
	merged := make(map[string]*stage.Instance, len(current)+len(snap.Stages))
	for _, s := range current {
		merged[s.ID] = s
	}

	result := &ImportResult{}
	var steps []uowStep

	for _, s := range snap.Stages {
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("stage %s: %w", s.ID, err)
		}
		if prev, ok := merged[s.ID]; ok {
			steps = append(steps, e.updateStep(s, prev))
		} else {
			steps = append(steps, e.saveStep(s))
		}
		merged[s.ID] = s
		result.Stages++
	}

	if !e.lenient {
		if err := checkOneOpenPerProposal(merged); err != nil {
			return nil, err
		}
	}

	knownEntries, err := e.history.List(ctx, history.ListFilter{})
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(knownEntries))
	for _, h := range knownEntries {
		seen[h.ID] = true
	}
	var newEntries []*history.Entry
	for _, h := range snap.History {
		if seen[h.ID] {
			continue
		}
		if err := h.Validate(); err != nil {
			return nil, fmt.Errorf("history %s: %w", h.ID, err)
		}
		seen[h.ID] = true
		newEntries = append(newEntries, h)
	}
	if len(newEntries) > 0 {
		steps = append(steps, e.appendHistoryStep(newEntries...))
		result.History = len(newEntries)
	}

	knownNotifications, err := e.notifications.List(ctx, notification.ListFilter{})
	if err != nil {
		return nil, err
	}
	seen = make(map[string]bool, len(knownNotifications))
	for _, n := range knownNotifications {
		seen[n.ID] = true
	}
	var newNotifications []*notification.Notification
	for _, n := range snap.Notifications {
		if seen[n.ID] {
			continue
		}
		seen[n.ID] = true
		newNotifications = append(newNotifications, n)
	}
	if len(newNotifications) > 0 {
		steps = append(steps, e.appendNotificationsStep(newNotifications...))
		result.Notifications = len(newNotifications)
	}

	uow := &unitOfWork{}
	if err := uow.commit(ctx, steps...); err != nil {
		return nil, err
	}
	return result, nil
}

func checkOneOpenPerProposal(instances map[string]*stage.Instance) error {
	open := make(map[string]string)
	for _, s := range instances {
		if !s.IsInProgress() {
			continue
		}
		if other, ok := open[s.ProposalID]; ok {
			return fmt.Errorf("%w: proposal %s has stages %s and %s in progress",
				stage.ErrStageInProgress, s.ProposalID, other, s.ID)
		}
		open[s.ProposalID] = s.ID
	}
	return nil
}

// WriteSnapshot encodes a snapshot as indented JSON.
func WriteSnapshot(w io.Writer, snap *Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

// ReadSnapshot decodes a snapshot written by WriteSnapshot.
func ReadSnapshot(r io.Reader) (*Snapshot, error) {
	var snap Snapshot
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}
