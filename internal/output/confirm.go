package output

import (
	"errors"
	"os"

	"github.com/manifoldco/promptui"
	"golang.org/x/term"
)

// IsInteractive reports whether stdin is attached to a terminal. Prompts
// read from stdin, so a piped or redirected stdin means no prompting.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Confirm asks the user to approve an action that cannot be undone.
// Ctrl+C, EOF, and an explicit "n" all count as refusal; there is no
// default answer.
func Confirm(label string) (bool, error) {
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}

	_, err := prompt.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrAbort) ||
			errors.Is(err, promptui.ErrInterrupt) ||
			errors.Is(err, promptui.ErrEOF) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
