package application

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestUnitOfWork_RollsBackInReverse(t *testing.T) {
	t.Parallel()

	var log []string
	step := func(name string, fail error) uowStep {
		return uowStep{
			apply: func(context.Context) error {
				if fail != nil {
					return fail
				}
				log = append(log, "apply "+name)
				return nil
			},
			undo: func(context.Context) error {
				log = append(log, "undo "+name)
				return nil
			},
		}
	}

	boom := errors.New("boom")
	uow := &unitOfWork{}
	err := uow.commit(context.Background(), step("a", nil), step("b", nil), step("c", boom), step("d", nil))
	if !errors.Is(err, boom) {
		t.Fatalf("commit() error = %v, want boom", err)
	}

	want := []string{"apply a", "apply b", "undo b", "undo a"}
	if !reflect.DeepEqual(log, want) {
		t.Errorf("log = %v, want %v", log, want)
	}
}

func TestUnitOfWork_ReportsCompensationFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	stuck := errors.New("stuck")
	uow := &unitOfWork{}
	err := uow.commit(context.Background(),
		uowStep{
			apply: func(context.Context) error { return nil },
			undo:  func(context.Context) error { return stuck },
		},
		uowStep{
			apply: func(context.Context) error { return boom },
			undo:  func(context.Context) error { return nil },
		},
	)
	if !errors.Is(err, boom) || !errors.Is(err, stuck) {
		t.Errorf("commit() error = %v, want both boom and stuck", err)
	}
}

func TestUnitOfWork_RollbackOutlivesCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	undone := false
	uow := &unitOfWork{}
	err := uow.commit(ctx,
		uowStep{
			apply: func(context.Context) error { return nil },
			undo: func(ctx context.Context) error {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				undone = true
				return nil
			},
		},
		uowStep{
			apply: func(context.Context) error {
				cancel()
				return context.Canceled
			},
		},
	)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("commit() error = %v", err)
	}
	if !undone {
		t.Error("compensation should run despite the cancelled context")
	}
}
