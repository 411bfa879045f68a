package cli

import (
	"os"

	"golang.org/x/term"
)

// isInteractive is a test seam; prompts are only printed on a terminal.
var isInteractive = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}
