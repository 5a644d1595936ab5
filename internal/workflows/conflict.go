package workflows

import (
	"context"
	"fmt"

	fderrors "github.com/chazuruo/flowdeck/internal/errors"
)

// Outcome describes how a user-facing operation ended when it did not fail.
type Outcome int

const (
	// OutcomeCompleted means the operation ran to the end.
	OutcomeCompleted Outcome = iota
	// OutcomeCanceled means the user dismissed a name prompt.
	OutcomeCanceled
	// OutcomeDeclined means the user refused to overwrite an existing document.
	OutcomeDeclined
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeCanceled:
		return "canceled"
	case OutcomeDeclined:
		return "declined"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// storeOp performs one store write or move, replacing the target if overwrite is set.
type storeOp func(ctx context.Context, overwrite bool) error

// confirmFunc asks whether an existing target may be replaced.
type confirmFunc func(ctx context.Context) (bool, error)

// resolveConflict runs op and, when the target already exists and overwriting
// was not approved up front, asks confirm before retrying with overwrite.
// overwrote reports whether the retry replaced an existing document.
func resolveConflict(ctx context.Context, op storeOp, approved bool, confirm confirmFunc) (outcome Outcome, overwrote bool, err error) {
	err = op(ctx, approved)
	if err == nil {
		return OutcomeCompleted, false, nil
	}
	if fderrors.StatusOf(err) != fderrors.StatusConflict {
		return OutcomeCompleted, false, err
	}

	if !approved {
		ok, err := confirm(ctx)
		if err != nil {
			if fderrors.IsCanceled(err) {
				return OutcomeDeclined, false, nil
			}
			return OutcomeCompleted, false, err
		}
		if !ok {
			return OutcomeDeclined, false, nil
		}
	}

	if err := op(ctx, true); err != nil {
		return OutcomeCompleted, false, err
	}
	return OutcomeCompleted, true, nil
}
