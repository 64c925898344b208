package services

import (
	"context"

	"taskboard-service/logging"
	"taskboard-service/repositories"
)

// step is one command of a unit of work. undo, when set, reverses a completed do.
type step struct {
	name string
	do   func(ctx context.Context) error
	undo func(ctx context.Context) error
}

// unitOfWork runs its steps inside one storage transaction. When a step fails
// the completed steps are compensated in reverse order before the error is
// returned. Compensation covers writes the transaction cannot roll back: the
// Cassandra inbox and Mongo deployments without transactions.
type unitOfWork struct {
	name  string
	tx    repositories.Transactor
	steps []step
}

func newUnitOfWork(name string, tx repositories.Transactor) *unitOfWork {
	return &unitOfWork{name: name, tx: tx}
}

func (u *unitOfWork) Step(name string, do, undo func(ctx context.Context) error) *unitOfWork {
	u.steps = append(u.steps, step{name: name, do: do, undo: undo})
	return u
}

func (u *unitOfWork) Run(ctx context.Context) error {
	return u.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		for i, st := range u.steps {
			if err := st.do(ctx); err != nil {
				logging.Logger.Warnf("Event ID: UOW_STEP_FAILED, Description: %s failed at step %s: %v", u.name, st.name, err)
				u.compensate(ctx, i)
				return err
			}
		}
		return nil
	})
}

func (u *unitOfWork) compensate(ctx context.Context, failed int) {
	for i := failed - 1; i >= 0; i-- {
		st := u.steps[i]
		if st.undo == nil {
			continue
		}
		if err := st.undo(ctx); err != nil {
			logging.Logger.Errorf("Event ID: UOW_COMPENSATION_FAILED, Description: %s could not undo step %s: %v", u.name, st.name, err)
		}
	}
}
