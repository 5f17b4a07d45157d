package application

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/legisflow/legisflow/domain/catalog"
	"github.com/legisflow/legisflow/domain/history"
	"github.com/legisflow/legisflow/domain/notification"
	"github.com/legisflow/legisflow/domain/routing"
	"github.com/legisflow/legisflow/domain/stage"
)

// DefaultAlertLeadDays is used by ListDueWithin when neither the caller nor
// the alert_lead_days setting supplies a horizon.
const DefaultAlertLeadDays = 2

// GetStage returns a stage instance by ID.
func (e *Engine) GetStage(ctx context.Context, stageID string) (*stage.Instance, error) {
	return e.stages.Get(ctx, stageID)
}

// CurrentStage returns the proposal's current stage, or nil when the proposal
// has none.
func (e *Engine) CurrentStage(ctx context.Context, proposalID string) (*stage.Instance, error) {
	instances, err := e.stages.List(ctx, stage.ListFilter{ProposalID: proposalID})
	if err != nil {
		return nil, err
	}
	return stage.Current(instances), nil
}

// StageHistory returns every instance of a proposal ordered by entry time.
func (e *Engine) StageHistory(ctx context.Context, proposalID string) ([]*stage.Instance, error) {
	return e.stages.List(ctx, stage.ListFilter{ProposalID: proposalID})
}

// Entries returns the proposal's history entries in append order.
func (e *Engine) Entries(ctx context.Context, proposalID string) ([]*history.Entry, error) {
	return e.history.List(ctx, history.ListFilter{ProposalID: proposalID})
}

// Notifications returns notifications matching the filter in append order.
func (e *Engine) Notifications(ctx context.Context, filter notification.ListFilter) ([]*notification.Notification, error) {
	return e.notifications.List(ctx, filter)
}

// ListOverdue returns in-progress instances whose deadline has passed. The
// returned DaysOverdue values are computed against the current time; stored
// instances are not modified.
func (e *Engine) ListOverdue(ctx context.Context) ([]*stage.Instance, error) {
	now := e.now()
	instances, err := e.stages.List(ctx, stage.ListFilter{
		Status:         []stage.Status{stage.StatusInProgress},
		DeadlineBefore: now,
	})
	if err != nil {
		return nil, err
	}

	calc := e.calculator()
	for _, s := range instances {
		s.DaysOverdue = calc.DaysOverdue(s.Deadline)
	}
	return instances, nil
}

// ListDueWithin returns in-progress instances whose deadline falls between
// now and days business days from now. A non-positive days reads the
// alert_lead_days setting.
func (e *Engine) ListDueWithin(ctx context.Context, days int) ([]*stage.Instance, error) {
	if days <= 0 {
		lead, err := e.alertLeadDays(ctx)
		if err != nil {
			return nil, err
		}
		days = lead
	}

	now := e.now()
	horizon := e.calculator().AddBusinessDays(days)

	instances, err := e.stages.List(ctx, stage.ListFilter{
		Status:         []stage.Status{stage.StatusInProgress},
		DeadlineBefore: horizon.Add(time.Nanosecond),
	})
	if err != nil {
		return nil, err
	}

	due := instances[:0]
	for _, s := range instances {
		if !s.Deadline.Before(now) {
			due = append(due, s)
		}
	}
	return due, nil
}

func (e *Engine) alertLeadDays(ctx context.Context) (int, error) {
	raw, err := e.settings.Get(ctx, routing.SettingAlertLeadDays)
	if errors.Is(err, routing.ErrSettingNotFound) {
		return DefaultAlertLeadDays, nil
	}
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %s=%q", routing.ErrInvalidSetting, routing.SettingAlertLeadDays, raw)
	}
	return n, nil
}

// ListCatalog returns the entries of one catalog registry ordered for display.
func (e *Engine) ListCatalog(ctx context.Context, kind catalog.Kind, activeOnly bool) ([]catalog.Entry, error) {
	filter := catalog.ListFilter{ActiveOnly: activeOnly}

	switch kind {
	case catalog.KindProposalTypes:
		items, err := e.catalog.ListProposalTypes(ctx, filter)
		return entries(items), err
	case catalog.KindUnits:
		items, err := e.catalog.ListUnits(ctx, filter)
		return entries(items), err
	case catalog.KindStageTypes:
		items, err := e.catalog.ListStageTypes(ctx, filter)
		return entries(items), err
	}
	return nil, fmt.Errorf("%w: %s", catalog.ErrUnknownKind, kind)
}

func entries[T catalog.Entry](items []T) []catalog.Entry {
	out := make([]catalog.Entry, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}
