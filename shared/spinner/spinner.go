// Package spinner shows progress while long targets run on an interactive terminal.
package spinner

import (
	"os"
	"time"

	"github.com/briandowns/spinner"
	"golang.org/x/term"
)

var loader *spinner.Spinner

// Enabled reports whether stderr is a terminal; piped and CI output stays clean.
func Enabled() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}

// StartSpinner starts the loading spinner with the given message.
func StartSpinner(message string) {
	if !Enabled() {
		return
	}
	if loader != nil {
		loader.Stop()
	}
	loader = spinner.New(spinner.CharSets[11], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	loader.Color("yellow") //nolint:errcheck
	loader.Suffix = " " + message
	loader.Start()
}

// UpdateSpinner changes the message of a running spinner.
func UpdateSpinner(message string) {
	if loader != nil {
		loader.Lock()
		loader.Suffix = " " + message
		loader.Unlock()
	}
}

// StopSpinner stops the loading spinner.
func StopSpinner() {
	if loader != nil {
		loader.Stop()
		loader = nil
	}
}
