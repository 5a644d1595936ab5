package workflows

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	fderrors "github.com/chazuruo/flowdeck/internal/errors"
)

func TestResolveConflict(t *testing.T) {
	ioErr := fderrors.IOFailure("write", "a.json", errors.New("disk full"))

	tests := []struct {
		name          string
		approved      bool
		results       []error // returned by successive op calls
		confirm       bool
		confirmErr    error
		wantOutcome   Outcome
		wantOverwrote bool
		wantErr       bool
		wantCalls     []bool // overwrite flag of each op call
		wantAsked     bool
	}{
		{
			name:        "no conflict",
			results:     []error{nil},
			wantOutcome: OutcomeCompleted,
			wantCalls:   []bool{false},
		},
		{
			name:          "conflict confirmed",
			results:       []error{fderrors.Conflict("write", "a.json"), nil},
			confirm:       true,
			wantOutcome:   OutcomeCompleted,
			wantOverwrote: true,
			wantCalls:     []bool{false, true},
			wantAsked:     true,
		},
		{
			name:        "conflict declined",
			results:     []error{fderrors.Conflict("write", "a.json")},
			confirm:     false,
			wantOutcome: OutcomeDeclined,
			wantCalls:   []bool{false},
			wantAsked:   true,
		},
		{
			name:        "confirmation dismissed",
			results:     []error{fderrors.Conflict("write", "a.json")},
			confirmErr:  fderrors.ErrCanceled,
			wantOutcome: OutcomeDeclined,
			wantCalls:   []bool{false},
			wantAsked:   true,
		},
		{
			name:        "approved up front",
			approved:    true,
			results:     []error{nil},
			wantOutcome: OutcomeCompleted,
			wantCalls:   []bool{true},
		},
		{
			name:      "store failure is not a decision",
			results:   []error{ioErr},
			wantErr:   true,
			wantCalls: []bool{false},
		},
		{
			name:      "retry fails",
			results:   []error{fderrors.Conflict("write", "a.json"), ioErr},
			confirm:   true,
			wantErr:   true,
			wantCalls: []bool{false, true},
			wantAsked: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls []bool
			op := func(_ context.Context, overwrite bool) error {
				err := tt.results[len(calls)]
				calls = append(calls, overwrite)
				return err
			}
			asked := false
			confirm := func(context.Context) (bool, error) {
				asked = true
				return tt.confirm, tt.confirmErr
			}

			outcome, overwrote, err := resolveConflict(context.Background(), op, tt.approved, confirm)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.wantOutcome, outcome)
				assert.Equal(t, tt.wantOverwrote, overwrote)
			}
			assert.Equal(t, tt.wantCalls, calls)
			assert.Equal(t, tt.wantAsked, asked)
		})
	}
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "completed", OutcomeCompleted.String())
	assert.Equal(t, "canceled", OutcomeCanceled.String())
	assert.Equal(t, "declined", OutcomeDeclined.String())
	assert.Equal(t, "outcome(9)", Outcome(9).String())
}
