// Package cli provides shared helpers for the capres command line.
package cli

// Exit codes.
//
// These follow Unix conventions:
//   - 0: Success
//   - 1: Errors (unresolvable requests, unreadable scenarios, failed checks)
//   - 2: Warnings only (deprecated capability imports)
const (
	// ExitOK indicates every request resolved without findings.
	ExitOK = 0

	// ExitError indicates an error-level finding or a fatal failure.
	ExitError = 1

	// ExitWarning indicates the run completed with warnings but no errors.
	ExitWarning = 2
)

// ExitCode maps finding counts to an exit code.
func ExitCode(errors, warnings int) int {
	switch {
	case errors > 0:
		return ExitError
	case warnings > 0:
		return ExitWarning
	default:
		return ExitOK
	}
}
