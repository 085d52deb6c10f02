// Package exitcodes defines the exit codes used by op-verbench.
package exitcodes

// Exit code constants used by op-verbench:
//
// * Success (0): the session or report completed
// * Failure (1): unclassified errors, such as bad command line usage
// * RuntimeErr (2): invalid configuration, unreadable plans, unwritable
// stores or tables, a shell that cannot start, or a panic
//
// Verifier outcomes never change the exit code; they are recorded as data.
const (
	Success    = 0
	Failure    = 1
	RuntimeErr = 2
)
