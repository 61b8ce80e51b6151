package storage

import (
	"fmt"

	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"

	"github.com/vocdoni/prediction-tally/types"
)

// appendEvent assigns the next sequence number to the event and stores
// it within the given transaction. The log is append-only: the engine
// never reads it back, it exists for external indexers.
func (s *Storage) appendEvent(wTx db.WriteTx, ev *types.Event) error {
	seq, err := nextSeq(wTx, nextEventSeqKey)
	if err != nil {
		return err
	}
	ev.Seq = seq
	data, err := encodeArtifact(ev)
	if err != nil {
		return err
	}
	return prefixeddb.NewPrefixedWriteTx(wTx, eventPrefix).Set(uint64Key(seq), data)
}

// ListEvents returns the audit log in emission order.
func (s *Storage) ListEvents() ([]*types.Event, error) {
	rTx := prefixeddb.NewPrefixedReader(s.db, eventPrefix)
	var events []*types.Event
	var decodeErr error
	if err := rTx.Iterate(nil, func(key, value []byte) bool {
		ev := &types.Event{}
		if decodeErr = decodeArtifact(value, ev); decodeErr != nil {
			decodeErr = fmt.Errorf("could not decode event %x: %w", key, decodeErr)
			return false
		}
		events = append(events, ev)
		return true
	}); err != nil {
		return nil, err
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	return events, nil
}
