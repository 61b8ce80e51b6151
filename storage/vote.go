package storage

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"

	"github.com/vocdoni/prediction-tally/types"
)

// voteKey builds the vote ledger key for a (prediction, address) pair.
func voteKey(id uint64, voter common.Address) []byte {
	return append(uint64Key(id), voter.Bytes()...)
}

// HasVoted reports whether the address already holds a vote ledger entry
// for the prediction. It does not check that the prediction exists.
func (s *Storage) HasVoted(id uint64, voter common.Address) (bool, error) {
	rTx := prefixeddb.NewPrefixedReader(s.db, votePrefix)
	_, err := rTx.Get(voteKey(id, voter))
	if errors.Is(err, db.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CommitVote atomically records a vote: it re-checks the admission
// conditions inside the transaction, replaces the prediction's counter
// handles with the freshly derived ones, marks the voter in the ledger
// and appends the vote event. The first committer of a racing pair wins;
// the later one fails with ErrVoteExists and none of its writes survive.
func (s *Storage) CommitVote(id uint64, voter common.Address, counts []types.HexBytes, ev *types.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	wTx := s.db.WriteTx()
	defer wTx.Discard()

	p, err := s.predictionTx(wTx, id)
	if err != nil {
		return err
	}
	if !p.Open {
		return ErrClosed
	}
	votes := prefixeddb.NewPrefixedWriteTx(wTx, votePrefix)
	if _, err := votes.Get(voteKey(id, voter)); err == nil {
		return ErrVoteExists
	} else if !errors.Is(err, db.ErrKeyNotFound) {
		return err
	}
	if err := votes.Set(voteKey(id, voter), []byte{1}); err != nil {
		return err
	}
	p.EncryptedCounts = counts
	if err := s.setPrediction(wTx, p); err != nil {
		return err
	}
	if err := s.appendEvent(wTx, ev); err != nil {
		return err
	}
	return wTx.Commit()
}
