package application

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// unitOfWork applies writes in order and records a compensating action for
// each one. When a later write fails the applied ones are undone in reverse.
type unitOfWork struct {
	undo []func(ctx context.Context) error
}

// do applies a write and registers its compensation.
func (u *unitOfWork) do(ctx context.Context, apply, undo func(ctx context.Context) error) error {
	if err := apply(ctx); err != nil {
		return err
	}
	u.undo = append(u.undo, undo)
	return nil
}

// rollback runs the compensations in reverse order. It uses a context that
// outlives the caller's cancellation.
func (u *unitOfWork) rollback(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	var errs []error
	for i := len(u.undo) - 1; i >= 0; i-- {
		if err := u.undo[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	u.undo = nil
	return errors.Join(errs...)
}

// commit runs every step; on failure it rolls back and returns the original
// error joined with any compensation failure.
func (u *unitOfWork) commit(ctx context.Context, steps ...uowStep) error {
	for _, step := range steps {
		if err := u.do(ctx, step.apply, step.undo); err != nil {
			if rbErr := u.rollback(ctx); rbErr != nil {
				return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
			}
			return err
		}
	}
	return nil
}

type uowStep struct {
	apply func(ctx context.Context) error
	undo  func(ctx context.Context) error
}
