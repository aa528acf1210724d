package trade

import "errors"

// Proposal-level error kinds. Cap failures are reported as *cap.Violation
// and carry their own reason codes.
var (
	// ErrInvalidProposal covers structural failures: same team on both
	// sides, both asset lists empty, or unknown team/player/pick ids.
	ErrInvalidProposal = errors.New("invalid proposal")

	// ErrAssetNotOwned means an asset no longer belongs to the claimed
	// team. Checked at submission and again at resolution.
	ErrAssetNotOwned = errors.New("asset not owned")

	// ErrStaleProposal means resolution was attempted after underlying
	// state changed incompatibly; the acceptance downgrades to a
	// rejection instead of executing.
	ErrStaleProposal = errors.New("stale proposal")

	// ErrUnknownProposal means the referenced proposal id does not exist.
	ErrUnknownProposal = errors.New("unknown proposal")

	// ErrAlreadyResolved means the proposal has reached a terminal state.
	ErrAlreadyResolved = errors.New("proposal already resolved")

	// ErrUnknownDecision means a Decision carried a kind outside the
	// accept/reject/counter enum. The proposal is left untouched.
	ErrUnknownDecision = errors.New("unknown decision kind")
)
