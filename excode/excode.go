// Package excode defines the exit-code namespace shared between the
// delivery engine and its protocol helpers.
//
// A helper's exit code is not just success/failure: nonzero codes carry a
// packed "permanent" flag bit that tells the engine whether to bounce the
// message or retry it. This is a stable ABI between relaysend and every
// protocol helper it execs — implementers of new helpers must use these
// same code assignments and flag position.
package excode

// PermanentFlag, when set in a nonzero exit code, means the delivery
// attempt failed permanently and the message should be bounced rather than
// retried.
const PermanentFlag = 1 << 5

// Reserved codes.
const (
	// ExecFailed reports that a program could not be executed. relaysend
	// itself never produces it: a helper that fails to start is a direct
	// tempfail in childproc.Deliver. Helpers that exec a further program
	// of their own can exit with it to report that failure.
	// It does not carry PermanentFlag: a missing program is an operator
	// error worth retrying after a fix, not a reason to bounce mail.
	ExecFailed = 79
)

// names maps well-known codes to short, operator-facing descriptions. Codes
// outside this table still work (see String); this is purely for log
// readability.
var names = map[int]string{
	0:                        "success",
	ExecFailed:               "could not execute protocol helper",
	1:                        "generic failure",
	2 | PermanentFlag:        "remote rejected message permanently",
	3:                        "temporary local failure",
	4 | PermanentFlag:        "protocol helper misconfigured",
	11:                       "connection failed",
	12:                       "connection timed out",
	75:                       "temporary failure, service unavailable",
}

// Permanent reports whether code carries the permanent flag.
func Permanent(code int) bool {
	return code&PermanentFlag != 0
}

// String returns an operator-facing description of code, falling back to a
// generic rendering for codes without a table entry.
func String(code int) string {
	if s, ok := names[code]; ok {
		return s
	}
	if Permanent(code) {
		return "permanent failure (unrecognized code)"
	}
	return "temporary failure (unrecognized code)"
}
