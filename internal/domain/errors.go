package domain

import "github.com/cockroachdb/errors"

var (
	// ErrInvalidInput rejects a request before any state change. The caller
	// must fix the input and resubmit.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvariant marks programming-error-class failures: aggregate counts
	// that do not sum, malformed identities. Fatal to the call, never retried.
	ErrInvariant = errors.New("invariant violation")

	// ErrConflict marks a unique-constraint race on an identity: two
	// concurrent ingestions computed the same first-seen identity and one
	// insert lost. The loser retries the same pair as an update.
	ErrConflict = errors.New("identity conflict")
)
