package tally

import "errors"

// Every validation failure of the engine maps to exactly one of these
// conditions; they abort the enclosing operation with no partial state.
var (
	// ErrInvalidInput is returned for bad creation arguments.
	ErrInvalidInput = errors.New("invalid prediction input")
	// ErrInvalidPrediction is returned when an id references no known
	// prediction.
	ErrInvalidPrediction = errors.New("unknown prediction")
	// ErrBallotClosed is returned when voting on a closed prediction.
	ErrBallotClosed = errors.New("prediction is closed for voting")
	// ErrAlreadyVoted is returned when the address already voted on the
	// prediction.
	ErrAlreadyVoted = errors.New("address already voted")
	// ErrAlreadyClosed is returned when closing a prediction twice.
	ErrAlreadyClosed = errors.New("prediction already closed")
	// ErrInvalidProof is returned when the encrypted choice cannot be
	// verified against its proof.
	ErrInvalidProof = errors.New("invalid encrypted choice proof")
)
