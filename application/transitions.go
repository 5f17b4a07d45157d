package application

import (
	"context"
	"fmt"
	"time"

	"github.com/felixgeelhaar/statekit"

	"github.com/legisflow/legisflow/domain/history"
	"github.com/legisflow/legisflow/domain/notification"
	"github.com/legisflow/legisflow/domain/routing"
	"github.com/legisflow/legisflow/domain/stage"
	tracing "github.com/legisflow/legisflow/domain/telemetry"
	"github.com/legisflow/legisflow/infrastructure/logging"
	"github.com/legisflow/legisflow/infrastructure/statemachine"
)

// CreateOptions configures CreateInitialStage.
type CreateOptions struct {
	ActorID       string
	Notes         string
	ResponsibleID string

	// DeadlineDays overrides the stage type's regimental deadline when positive.
	DeadlineDays int
}

// AdvanceOptions configures Advance.
type AdvanceOptions struct {
	ActorID string
	Comment string

	// RuleID selects a rule explicitly instead of matching conditions.
	RuleID string

	// StepID pins the instance's position within the rule.
	StepID string

	// FallbackUnitID is used when neither the step nor its stage type names a unit.
	FallbackUnitID string
}

// FinalizeOptions configures Finalize.
type FinalizeOptions struct {
	Outcome stage.Outcome
	Notes   string
	ActorID string
}

// ReopenOptions configures Reopen.
type ReopenOptions struct {
	Notes   string
	ActorID string
}

// CancelOptions configures Cancel.
type CancelOptions struct {
	Notes   string
	ActorID string
}

// AdvanceResult describes everything an advance produced. NewStage is nil
// when the workflow ended.
type AdvanceResult struct {
	Completed     *stage.Instance              `json:"completed"`
	NewStage      *stage.Instance              `json:"new_stage"`
	Rule          *routing.Rule                `json:"rule,omitempty"`
	Step          *routing.Step                `json:"step,omitempty"`
	History       []*history.Entry             `json:"history"`
	Notifications []*notification.Notification `json:"notifications"`
}

// CreateInitialStage opens the first stage of a proposal.
func (e *Engine) CreateInitialStage(ctx context.Context, proposalID, stageTypeID, unitID string, opts CreateOptions) (*stage.Instance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ctx, span := e.startSpan(ctx, tracing.OpCreate,
		tracing.ProposalID(proposalID),
		tracing.StageTypeID(stageTypeID))
	defer span.End()
	start := time.Now()

	var created *stage.Instance
	err := e.withProposal(ctx, proposalID, func(ctx context.Context) error {
		if err := e.ensureNoOpenStage(ctx, proposalID, ""); err != nil {
			return err
		}

		resolvedUnit, err := e.resolveUnit(ctx, unitID, stageTypeID, "")
		if err != nil {
			return err
		}
		due, err := e.resolveDeadline(ctx, stageTypeID, opts.DeadlineDays)
		if err != nil {
			return err
		}

		now := e.now()
		inst := stage.New(proposalID, stageTypeID, resolvedUnit, now)
		inst.Notes = opts.Notes
		inst.ResponsibleID = opts.ResponsibleID
		inst.SetDeadline(due)
		if err := inst.Validate(); err != nil {
			return err
		}

		entry := history.NewEntry(history.ActionCreated, "Stage created", opts.ActorID, now, nil, inst)

		uow := &unitOfWork{}
		if err := uow.commit(ctx,
			e.saveStep(inst),
			e.appendHistoryStep(entry),
		); err != nil {
			return err
		}
		created = inst
		return nil
	})
	if err != nil {
		return nil, e.fail(ctx, tracing.OpCreate, err, logging.ProposalID(proposalID))
	}

	e.metrics.RecordTransition(ctx, string(history.ActionCreated), "", string(created.Status), time.Since(start))
	e.metrics.AddOpenStages(ctx, 1)
	logging.Info().
		Add(logging.ProposalID(proposalID)).
		Add(logging.StageID(created.ID)).
		Add(logging.UnitID(created.UnitID)).
		Add(logging.Action(string(history.ActionCreated))).
		Msg("stage created")

	return created, nil
}

// Advance closes the stage and, when the routing rule has a next step, opens
// a new stage for it. All writes land together or not at all.
func (e *Engine) Advance(ctx context.Context, stageID string, opts AdvanceOptions) (*AdvanceResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ctx, span := e.startSpan(ctx, tracing.OpAdvance, tracing.StageID(stageID))
	defer span.End()
	start := time.Now()

	current, err := e.stages.Get(ctx, stageID)
	if err != nil {
		return nil, e.fail(ctx, tracing.OpAdvance, err, logging.StageID(stageID))
	}

	var result *AdvanceResult
	err = e.withProposal(ctx, current.ProposalID, func(ctx context.Context) error {
		r, err := e.advance(ctx, stageID, opts)
		result = r
		return err
	})
	if err != nil {
		return nil, e.fail(ctx, tracing.OpAdvance, err,
			logging.StageID(stageID), logging.ProposalID(current.ProposalID))
	}

	e.metrics.RecordTransition(ctx, string(history.ActionStepCompleted),
		string(stage.StatusInProgress), string(stage.StatusCompleted), time.Since(start))

	event := logging.Info().
		Add(logging.ProposalID(result.Completed.ProposalID)).
		Add(logging.StageID(result.Completed.ID)).
		Add(logging.Action(string(history.ActionStepCompleted)))
	if result.Rule != nil {
		event.Add(logging.RuleID(result.Rule.ID))
	}

	span.SetAttributes(
		tracing.ProposalID(result.Completed.ProposalID),
		tracing.Int("notifications", len(result.Notifications)),
	)
	if result.NewStage == nil {
		e.metrics.AddOpenStages(ctx, -1)
		span.AddEvent("workflow.ended")
		event.Msg("workflow ended without a next step")
		return result, nil
	}

	for _, kind := range []notification.Kind{notification.KindNotification, notification.KindAlert} {
		n := 0
		for _, notif := range result.Notifications {
			if notif.Kind == kind {
				n++
			}
		}
		if n > 0 {
			e.metrics.RecordNotifications(ctx, string(kind), n)
		}
	}

	event.
		Add(logging.StepID(result.Step.ID)).
		Add(logging.UnitID(result.NewStage.UnitID)).
		Add(logging.Str("new_stage_id", result.NewStage.ID)).
		Add(logging.Count("notifications", len(result.Notifications))).
		Msg("stage advanced")

	return result, nil
}

func (e *Engine) advance(ctx context.Context, stageID string, opts AdvanceOptions) (*AdvanceResult, error) {
	current, err := e.stages.Get(ctx, stageID)
	if err != nil {
		return nil, err
	}
	if err := e.checkTransition(current.Status, statemachine.EventAdvance); err != nil {
		return nil, err
	}

	res, err := e.resolve(ctx, current, opts.RuleID, opts.StepID)
	if err != nil {
		return nil, err
	}
	dest := res.destination()

	// Everything the new stage needs is resolved before any write.
	var next *stage.Instance
	if dest != nil {
		stageTypeID := dest.StageTypeID
		if stageTypeID == "" {
			stageTypeID = current.StageTypeID
		}
		unitID, err := e.resolveUnit(ctx, dest.UnitID, stageTypeID, opts.FallbackUnitID)
		if err != nil {
			return nil, err
		}
		due, err := e.resolveDeadline(ctx, stageTypeID, dest.DeadlineDays)
		if err != nil {
			return nil, err
		}
		if err := e.ensureNoOpenStage(ctx, current.ProposalID, current.ID); err != nil {
			return nil, err
		}

		next = stage.New(current.ProposalID, stageTypeID, unitID, time.Time{})
		next.Notes = dest.Description
		if next.Notes == "" {
			next.Notes = opts.Comment
		}
		next.Automatic = true
		next.SetDeadline(due)
	}

	now := e.now()
	calc := e.calculator()

	closed := current.Clone()
	closed.Status = stage.StatusCompleted
	closed.ExitedAt = &now
	closed.DaysOverdue = calc.DaysOverdue(closed.Deadline)

	description := "Step completed"
	if opts.Comment != "" {
		description = opts.Comment
	}
	entries := []*history.Entry{
		history.NewEntry(history.ActionStepCompleted, description, opts.ActorID, now, current, closed),
	}

	result := &AdvanceResult{
		Completed:     closed,
		Rule:          res.rule,
		Notifications: []*notification.Notification{},
	}

	steps := []uowStep{e.updateStep(closed, current)}

	if next != nil {
		next.EnteredAt = now
		entries = append(entries, history.NewEntry(history.ActionNewStep,
			fmt.Sprintf("Entered step %q", dest.Name), opts.ActorID, now, nil, next))
		result.NewStage = next
		result.Step = dest
		result.Notifications = buildNotifications(next, res.rule, dest, now)

		steps = append(steps, e.saveStep(next))
	}
	steps = append(steps, e.appendHistoryStep(entries...))
	if len(result.Notifications) > 0 {
		steps = append(steps, e.appendNotificationsStep(result.Notifications...))
	}

	uow := &unitOfWork{}
	if err := uow.commit(ctx, steps...); err != nil {
		return nil, err
	}

	result.History = entries
	return result, nil
}

// buildNotifications generates notifications then alerts for a step, in
// declaration order.
func buildNotifications(inst *stage.Instance, rule *routing.Rule, step *routing.Step, at time.Time) []*notification.Notification {
	out := make([]*notification.Notification, 0, len(step.Notifications)+len(step.Alerts))
	for i, p := range step.Notifications {
		out = append(out, notification.FromPayload(notification.KindNotification,
			inst.ID, inst.ProposalID, rule, step, p, i+1, at))
	}
	for i, p := range step.Alerts {
		out = append(out, notification.FromPayload(notification.KindAlert,
			inst.ID, inst.ProposalID, rule, step, p, i+1, at))
	}
	return out
}

// Finalize closes a stage with an optional outcome. It never consults the
// routing rules.
func (e *Engine) Finalize(ctx context.Context, stageID string, opts FinalizeOptions) (*stage.Instance, error) {
	if opts.Outcome != "" && !opts.Outcome.IsValid() {
		return nil, e.fail(ctx, tracing.OpFinalize, stage.ErrInvalidOutcome, logging.StageID(stageID))
	}

	inst, from, err := e.mutate(ctx, tracing.OpFinalize, stageID, statemachine.EventFinalize,
		func(ctx context.Context, s *stage.Instance, now time.Time) (*history.Entry, error) {
			s.Status = stage.StatusCompleted
			if opts.Outcome != "" {
				s.Outcome = opts.Outcome
			}
			if opts.Notes != "" {
				s.Notes = opts.Notes
			}
			s.ExitedAt = &now
			s.DaysOverdue = e.calculator().DaysOverdue(s.Deadline)

			description := "Stage finalized"
			if s.Outcome != "" {
				description = fmt.Sprintf("Stage finalized with outcome %s", s.Outcome)
			}
			return history.NewEntry(history.ActionFinalized, description, opts.ActorID, now, nil, s), nil
		})
	if err != nil {
		return nil, err
	}

	if from == stage.StatusInProgress {
		e.metrics.AddOpenStages(ctx, -1)
	}
	return inst, nil
}

// Reopen returns a completed stage to IN_PROGRESS with a deadline recomputed
// from its stage type.
func (e *Engine) Reopen(ctx context.Context, stageID string, opts ReopenOptions) (*stage.Instance, error) {
	inst, from, err := e.mutate(ctx, tracing.OpReopen, stageID, statemachine.EventReopen,
		func(ctx context.Context, s *stage.Instance, now time.Time) (*history.Entry, error) {
			if err := e.ensureNoOpenStage(ctx, s.ProposalID, s.ID); err != nil {
				return nil, err
			}
			due, err := e.resolveDeadline(ctx, s.StageTypeID, 0)
			if err != nil {
				return nil, err
			}

			s.Status = stage.StatusInProgress
			s.ExitedAt = nil
			s.Outcome = ""
			if opts.Notes != "" {
				s.Notes = opts.Notes
			}
			s.SetDeadline(due)

			return history.NewEntry(history.ActionReopened, "Stage reopened", opts.ActorID, now, nil, s), nil
		})
	if err != nil {
		return nil, err
	}

	if from != stage.StatusInProgress {
		e.metrics.AddOpenStages(ctx, 1)
	}
	return inst, nil
}

// Cancel closes a stage administratively. Cancelled stages cannot be reopened.
func (e *Engine) Cancel(ctx context.Context, stageID string, opts CancelOptions) (*stage.Instance, error) {
	inst, from, err := e.mutate(ctx, tracing.OpCancel, stageID, statemachine.EventCancel,
		func(ctx context.Context, s *stage.Instance, now time.Time) (*history.Entry, error) {
			s.Status = stage.StatusCancelled
			s.ExitedAt = &now
			if opts.Notes != "" {
				s.Notes = opts.Notes
			}
			s.DaysOverdue = e.calculator().DaysOverdue(s.Deadline)

			return history.NewEntry(history.ActionCancelled, "Stage cancelled", opts.ActorID, now, nil, s), nil
		})
	if err != nil {
		return nil, err
	}

	if from == stage.StatusInProgress {
		e.metrics.AddOpenStages(ctx, -1)
	}
	return inst, nil
}

// mutateFunc changes a stage in place and returns its history entry.
type mutateFunc func(ctx context.Context, s *stage.Instance, now time.Time) (*history.Entry, error)

// mutate runs a single-stage transition: lock, check, change, then commit the
// stage update and its history entry together.
func (e *Engine) mutate(ctx context.Context, operation, stageID string, event statekit.EventType, change mutateFunc) (*stage.Instance, stage.Status, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	ctx, span := e.startSpan(ctx, operation, tracing.StageID(stageID))
	defer span.End()
	start := time.Now()

	current, err := e.stages.Get(ctx, stageID)
	if err != nil {
		return nil, "", e.fail(ctx, operation, err, logging.StageID(stageID))
	}

	var updated *stage.Instance
	var from stage.Status
	err = e.withProposal(ctx, current.ProposalID, func(ctx context.Context) error {
		before, err := e.stages.Get(ctx, stageID)
		if err != nil {
			return err
		}
		if err := e.checkTransition(before.Status, event); err != nil {
			return err
		}

		after := before.Clone()
		entry, err := change(ctx, after, e.now())
		if err != nil {
			return err
		}
		entry.Before = before.Clone()

		uow := &unitOfWork{}
		if err := uow.commit(ctx,
			e.updateStep(after, before),
			e.appendHistoryStep(entry),
		); err != nil {
			return err
		}

		updated = after
		from = before.Status
		return nil
	})
	if err != nil {
		return nil, "", e.fail(ctx, operation, err,
			logging.StageID(stageID), logging.ProposalID(current.ProposalID))
	}

	e.metrics.RecordTransition(ctx, operation, string(from), string(updated.Status), time.Since(start))
	span.SetAttributes(tracing.Transition(string(from), string(updated.Status))...)
	logging.Info().
		Add(logging.ProposalID(updated.ProposalID)).
		Add(logging.StageID(updated.ID)).
		Add(logging.Operation(operation)).
		Add(logging.Status(string(updated.Status))).
		Msg("stage transition applied")

	return updated, from, nil
}

func (e *Engine) saveStep(inst *stage.Instance) uowStep {
	return uowStep{
		apply: func(ctx context.Context) error { return e.stages.Save(ctx, inst) },
		undo:  func(ctx context.Context) error { return e.stages.Delete(ctx, inst.ID) },
	}
}

func (e *Engine) updateStep(after, before *stage.Instance) uowStep {
	return uowStep{
		apply: func(ctx context.Context) error { return e.stages.Update(ctx, after) },
		undo:  func(ctx context.Context) error { return e.stages.Update(ctx, before) },
	}
}

func (e *Engine) appendHistoryStep(entries ...*history.Entry) uowStep {
	ids := make([]string, len(entries))
	for i, entry := range entries {
		ids[i] = entry.ID
	}
	return uowStep{
		apply: func(ctx context.Context) error { return e.history.Append(ctx, entries...) },
		undo:  func(ctx context.Context) error { return e.history.Discard(ctx, ids...) },
	}
}

func (e *Engine) appendNotificationsStep(ns ...*notification.Notification) uowStep {
	ids := make([]string, len(ns))
	for i, n := range ns {
		ids[i] = n.ID
	}
	return uowStep{
		apply: func(ctx context.Context) error { return e.notifications.Append(ctx, ns...) },
		undo:  func(ctx context.Context) error { return e.notifications.Discard(ctx, ids...) },
	}
}
