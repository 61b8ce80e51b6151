// Package tally implements the confidential tally engine: the prediction
// lifecycle state machine and the oblivious homomorphic update of the
// per-option counters. Counters stay encrypted while a prediction is
// open and become revealable only through the explicit, irreversible
// close transition.
package tally

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.vocdoni.io/dvote/log"

	"github.com/vocdoni/prediction-tally/fhe"
	"github.com/vocdoni/prediction-tally/storage"
	"github.com/vocdoni/prediction-tally/types"
)

// Engine owns the prediction registry and the vote ledger, and drives
// the encrypted-value collaborator. It acts as a single principal of the
// collaborator's access-control gate: every counter handle it derives is
// immediately re-granted to itself, since grants never propagate to
// derived handles.
type Engine struct {
	stg     *storage.Storage
	coproc  fhe.Coprocessor
	self    common.Address
	writeMu sync.Mutex
}

// New creates an Engine using the given storage and collaborator. The
// self address is the principal under which the engine operates on
// ciphertext handles.
func New(stg *storage.Storage, coproc fhe.Coprocessor, self common.Address) *Engine {
	return &Engine{stg: stg, coproc: coproc, self: self}
}

// CreatePrediction validates the arguments, allocates the next
// sequential id and initializes one encrypted-zero counter per option,
// granting the engine operate-rights on each. All side effects happen in
// this one atomic step.
func (e *Engine) CreatePrediction(creator common.Address, name string, options []string) (uint64, error) {
	if name == "" {
		return 0, fmt.Errorf("%w: empty name", ErrInvalidInput)
	}
	if len(options) < types.MinOptions || len(options) > types.MaxOptions {
		return 0, fmt.Errorf("%w: got %d options, want between %d and %d",
			ErrInvalidInput, len(options), types.MinOptions, types.MaxOptions)
	}
	for i, opt := range options {
		if opt == "" {
			return 0, fmt.Errorf("%w: empty option label at index %d", ErrInvalidInput, i)
		}
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	counts := make([]types.HexBytes, len(options))
	for i := range options {
		h, err := e.coproc.Zero(e.self)
		if err != nil {
			return 0, fmt.Errorf("could not initialize counter %d: %w", i, err)
		}
		if err := e.coproc.GrantOperate(e.self, h, e.self); err != nil {
			return 0, fmt.Errorf("could not grant counter %d: %w", i, err)
		}
		counts[i] = h
	}

	now := time.Now()
	p := &types.Prediction{
		Name:            name,
		Options:         options,
		EncryptedCounts: counts,
		Open:            true,
		Creator:         creator,
		CreatedAt:       now,
	}
	ev := &types.Event{
		Type:      types.EventPredictionCreated,
		Actor:     creator,
		Name:      name,
		Options:   options,
		Timestamp: now,
	}
	id, err := e.stg.CreatePrediction(p, ev)
	if err != nil {
		return 0, fmt.Errorf("could not store prediction: %w", err)
	}
	log.Infow("prediction created", "id", id, "creator", creator.Hex(), "name", name, "options", len(options))
	return id, nil
}

// SubmitChoice admits one confidential vote. The encrypted option index
// is decoded against its proof and every counter is updated through the
// oblivious one-hot increment: each slot i is touched exactly once per
// vote, whether or not it matches the choice, so the matching slot is
// indistinguishable from the rest. The vote ledger entry is recorded
// only after all slots are updated; any failure reverts the whole
// submission and discards the derived handles.
func (e *Engine) SubmitChoice(voter common.Address, predictionID uint64, input, proof []byte) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	p, err := e.stg.Prediction(predictionID)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: id %d", ErrInvalidPrediction, predictionID)
	} else if err != nil {
		return err
	}
	if !p.Open {
		return fmt.Errorf("%w: id %d", ErrBallotClosed, predictionID)
	}
	voted, err := e.stg.HasVoted(predictionID, voter)
	if err != nil {
		return err
	}
	if voted {
		return fmt.Errorf("%w: %s on prediction %d", ErrAlreadyVoted, voter.Hex(), predictionID)
	}

	choice, err := e.coproc.DecodeExternal(e.self, input, proof)
	if err != nil {
		if errors.Is(err, fhe.ErrInvalidProof) {
			return fmt.Errorf("%w: %v", ErrInvalidProof, err)
		}
		return err
	}
	if err := e.coproc.GrantOperate(e.self, choice, e.self); err != nil {
		return err
	}
	one, err := e.derive(func() (fhe.Handle, error) { return e.coproc.One(e.self) })
	if err != nil {
		return err
	}
	zero, err := e.derive(func() (fhe.Handle, error) { return e.coproc.Zero(e.self) })
	if err != nil {
		return err
	}

	counts := make([]types.HexBytes, len(p.EncryptedCounts))
	for i := range p.Options {
		matches, err := e.derive(func() (fhe.Handle, error) {
			return e.coproc.Equals(e.self, choice, uint64(i))
		})
		if err != nil {
			return fmt.Errorf("could not compare slot %d: %w", i, err)
		}
		increment, err := e.derive(func() (fhe.Handle, error) {
			return e.coproc.Select(e.self, matches, one, zero)
		})
		if err != nil {
			return fmt.Errorf("could not select increment for slot %d: %w", i, err)
		}
		counts[i], err = e.derive(func() (fhe.Handle, error) {
			return e.coproc.Add(e.self, p.EncryptedCounts[i], increment)
		})
		if err != nil {
			return fmt.Errorf("could not update counter %d: %w", i, err)
		}
	}

	ev := &types.Event{
		Type:         types.EventVoteSubmitted,
		PredictionID: predictionID,
		Actor:        voter,
		ChoiceRef:    types.HexBytes(choice),
		Timestamp:    time.Now(),
	}
	if err := e.stg.CommitVote(predictionID, voter, counts, ev); err != nil {
		switch {
		case errors.Is(err, storage.ErrVoteExists):
			return fmt.Errorf("%w: %s on prediction %d", ErrAlreadyVoted, voter.Hex(), predictionID)
		case errors.Is(err, storage.ErrClosed):
			return fmt.Errorf("%w: id %d", ErrBallotClosed, predictionID)
		case errors.Is(err, storage.ErrNotFound):
			return fmt.Errorf("%w: id %d", ErrInvalidPrediction, predictionID)
		}
		return err
	}
	log.Infow("vote submitted", "prediction", predictionID, "voter", voter.Hex(), "choiceRef", ev.ChoiceRef.String())
	return nil
}

// Close flips the prediction to its terminal closed state and flags
// every counter publicly decryptable. The transition is permissionless
// and one-way: there is no operation that reopens a prediction or
// revokes the flag. The closed state is committed before any counter is
// flagged: a failure can leave a closed prediction with counters still
// hidden, but never an open one with counters revealed.
func (e *Engine) Close(closer common.Address, predictionID uint64) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	p, err := e.stg.Prediction(predictionID)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: id %d", ErrInvalidPrediction, predictionID)
	} else if err != nil {
		return err
	}
	if !p.Open {
		return fmt.Errorf("%w: id %d", ErrAlreadyClosed, predictionID)
	}
	ev := &types.Event{
		Type:         types.EventPredictionClosed,
		PredictionID: predictionID,
		Actor:        closer,
		Timestamp:    time.Now(),
	}
	if err := e.stg.ClosePrediction(predictionID, ev); err != nil {
		switch {
		case errors.Is(err, storage.ErrClosed):
			return fmt.Errorf("%w: id %d", ErrAlreadyClosed, predictionID)
		case errors.Is(err, storage.ErrNotFound):
			return fmt.Errorf("%w: id %d", ErrInvalidPrediction, predictionID)
		}
		return err
	}
	for i, h := range p.EncryptedCounts {
		if err := e.coproc.FlagPubliclyDecryptable(e.self, fhe.Handle(h)); err != nil {
			return fmt.Errorf("could not flag counter %d: %w", i, err)
		}
	}
	log.Infow("prediction closed", "prediction", predictionID, "closer", closer.Hex())
	return nil
}

// Prediction returns the full record of a prediction.
func (e *Engine) Prediction(predictionID uint64) (*types.Prediction, error) {
	p, err := e.stg.Prediction(predictionID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: id %d", ErrInvalidPrediction, predictionID)
	}
	return p, err
}

// EncryptedCounts returns the current counter handles of a prediction.
func (e *Engine) EncryptedCounts(predictionID uint64) ([]types.HexBytes, error) {
	p, err := e.Prediction(predictionID)
	if err != nil {
		return nil, err
	}
	return p.EncryptedCounts, nil
}

// HasAddressVoted reports whether the address holds a vote ledger entry
// for the prediction.
func (e *Engine) HasAddressVoted(predictionID uint64, voter common.Address) (bool, error) {
	if _, err := e.Prediction(predictionID); err != nil {
		return false, err
	}
	return e.stg.HasVoted(predictionID, voter)
}

// PredictionCount returns the number of predictions created so far.
func (e *Engine) PredictionCount() (uint64, error) {
	return e.stg.PredictionCount()
}

// Events returns the audit log for external indexers.
func (e *Engine) Events() ([]*types.Event, error) {
	return e.stg.ListEvents()
}

// derive runs one collaborator operation and immediately grants the
// engine operate-rights on the resulting handle, since derived handles
// never inherit the grants of their sources.
func (e *Engine) derive(op func() (fhe.Handle, error)) (fhe.Handle, error) {
	h, err := op()
	if err != nil {
		return nil, err
	}
	if err := e.coproc.GrantOperate(e.self, h, e.self); err != nil {
		return nil, err
	}
	return h, nil
}
