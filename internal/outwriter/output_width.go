package outwriter

import (
	"os"

	"github.com/huangsam/repopulse/internal/contract"
	"golang.org/x/term"
)

// nameColumnWidth returns how many characters a developer or repository name may use
// in a table, based on the terminal width or the --width override.
func nameColumnWidth(cfg *contract.Config) int {
	termWidth := cfg.Width
	if termWidth <= 0 {
		detected, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil || detected <= 0 {
			termWidth = 80 // CI and pipes
		} else {
			termWidth = detected
		}
	}

	// Rank, numeric and label columns with borders and padding
	available := termWidth - 95
	return max(15, min(available, 40))
}
