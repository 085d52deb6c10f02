package types

import "strconv"

// Outcome is the exit code reported by the verifier for a single input.
type Outcome int

const (
	OutcomeVerified  Outcome = 0
	OutcomeFalsified Outcome = 1
	OutcomeError     Outcome = 2
	OutcomeTimeout   Outcome = 3
)

// Outcomes lists the codes that report tables compare, in display order.
var Outcomes = []Outcome{OutcomeVerified, OutcomeFalsified, OutcomeError, OutcomeTimeout}

// String returns a lowercase label suitable for logs and metric labels.
// Codes outside the known range keep their numeric form.
func (o Outcome) String() string {
	switch o {
	case OutcomeVerified:
		return "verified"
	case OutcomeFalsified:
		return "falsified"
	case OutcomeError:
		return "error"
	case OutcomeTimeout:
		return "timeout"
	default:
		return "exit_" + strconv.Itoa(int(o))
	}
}

// Known reports whether the code is one of the four verifier outcomes.
func (o Outcome) Known() bool {
	return o >= OutcomeVerified && o <= OutcomeTimeout
}
