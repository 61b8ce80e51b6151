// Package storage persists the tally engine state in a prefixed
// key-value store. The following prefixes are used:
//   - 'm/' for metadata (sequence counters)
//   - 'p/' for prediction records
//   - 'v/' for the vote ledger (presence-only membership entries)
//   - 'e/' for the append-only event log
//
// All mutating operations commit through a single write transaction, so
// a failure leaves no partial state behind. The vote ledger and the
// event log are never updated in place: entries are only ever appended.
package storage

import (
	"encoding/binary"
	"errors"
	"sync"

	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/log"
)

var (
	metadataPrefix   = []byte("m/")
	predictionPrefix = []byte("p/")
	votePrefix       = []byte("v/")
	eventPrefix      = []byte("e/")
)

var (
	// keys under the metadata prefix
	nextPredictionIDKey = []byte("nextPredictionID")
	nextEventSeqKey     = []byte("nextEventSeq")
)

var (
	// ErrNotFound is returned when an artifact does not exist.
	ErrNotFound = errors.New("artifact not found")
	// ErrVoteExists is returned when the vote ledger already holds an
	// entry for the (prediction, address) pair.
	ErrVoteExists = errors.New("vote already recorded for this address")
	// ErrClosed is returned when mutating a prediction that is no longer
	// open.
	ErrClosed = errors.New("prediction is closed")
)

// Storage owns all persistent state of the tally engine: the prediction
// records, the vote ledger and the event log.
type Storage struct {
	db db.Database
	mu sync.Mutex
}

// New creates a new Storage instance on top of the given database.
func New(database db.Database) *Storage {
	return &Storage{db: database}
}

// Close closes the underlying database.
func (s *Storage) Close() {
	if err := s.db.Close(); err != nil {
		log.Warnw("failed to close database", "error", err)
	}
}

// nextSeq reads, returns and bumps a sequence counter within the given
// write transaction.
func nextSeq(wTx db.WriteTx, key []byte) (uint64, error) {
	var seq uint64
	data, err := wTx.Get(append(metadataPrefix, key...))
	switch {
	case err == nil:
		seq = binary.BigEndian.Uint64(data)
	case errors.Is(err, db.ErrKeyNotFound):
		seq = 0
	default:
		return 0, err
	}
	next := make([]byte, 8)
	binary.BigEndian.PutUint64(next, seq+1)
	if err := wTx.Set(append(metadataPrefix, key...), next); err != nil {
		return 0, err
	}
	return seq, nil
}

func uint64Key(v uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, v)
	return key
}

func decodeUint64(data []byte) uint64 {
	return binary.BigEndian.Uint64(data)
}
