// Package prompt implements the questions flowdeck asks while saving,
// renaming and closing workflows.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	fderrors "github.com/chazuruo/flowdeck/internal/errors"
	"github.com/chazuruo/flowdeck/internal/workflows"
)

var (
	_ workflows.Prompter = (*Form)(nil)
	_ workflows.Prompter = Static{}
)

// Form asks through huh forms on the terminal.
type Form struct {
	// Accessible renders plain prompts for screen readers.
	Accessible bool
}

// PromptName asks for a workflow name, prefilled with defaultValue.
func (f *Form) PromptName(ctx context.Context, title, defaultValue string) (string, error) {
	value := defaultValue
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(title).
				Value(&value).
				Validate(validateName),
		),
	).WithAccessible(f.Accessible).RunWithContext(ctx)
	if err != nil {
		return "", formError(err)
	}
	return strings.TrimSpace(value), nil
}

// Confirm asks a yes/no question.
func (f *Form) Confirm(ctx context.Context, title, message string) (bool, error) {
	var ok bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(message).
				Affirmative("Yes").
				Negative("No").
				Value(&ok),
		),
	).WithAccessible(f.Accessible).RunWithContext(ctx)
	if err != nil {
		return false, formError(err)
	}
	return ok, nil
}

func validateName(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("name is required")
	}
	return nil
}

// formError maps a dismissed form to ErrCanceled.
func formError(err error) error {
	if errors.Is(err, huh.ErrUserAborted) || errors.Is(err, context.Canceled) {
		return fderrors.ErrCanceled
	}
	return fmt.Errorf("form error: %w", err)
}

// Static answers every prompt with fixed values, for --no-tui runs.
type Static struct {
	// Name answers PromptName. Empty cancels the prompt.
	Name string

	// Overwrite answers every confirmation.
	Overwrite bool
}

func (s Static) PromptName(_ context.Context, _, _ string) (string, error) {
	if strings.TrimSpace(s.Name) == "" {
		return "", fderrors.ErrCanceled
	}
	return s.Name, nil
}

func (s Static) Confirm(context.Context, string, string) (bool, error) {
	return s.Overwrite, nil
}
