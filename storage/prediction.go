package storage

import (
	"errors"
	"fmt"

	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"

	"github.com/vocdoni/prediction-tally/types"
)

// Prediction retrieves a prediction record by id. It returns ErrNotFound
// if the id was never allocated.
func (s *Storage) Prediction(id uint64) (*types.Prediction, error) {
	rTx := prefixeddb.NewPrefixedReader(s.db, predictionPrefix)
	data, err := rTx.Get(uint64Key(id))
	if errors.Is(err, db.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p := &types.Prediction{}
	if err := decodeArtifact(data, p); err != nil {
		return nil, fmt.Errorf("could not decode prediction %d: %w", id, err)
	}
	return p, nil
}

// PredictionCount returns the number of predictions created so far.
func (s *Storage) PredictionCount() (uint64, error) {
	rTx := prefixeddb.NewPrefixedReader(s.db, metadataPrefix)
	data, err := rTx.Get(nextPredictionIDKey)
	if errors.Is(err, db.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return decodeUint64(data), nil
}

// CreatePrediction allocates the next sequential id, stores the record
// and appends its creation event, all in one transaction. The assigned
// id is written back into p and the event before returning it.
func (s *Storage) CreatePrediction(p *types.Prediction, ev *types.Event) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wTx := s.db.WriteTx()
	defer wTx.Discard()

	id, err := nextSeq(wTx, nextPredictionIDKey)
	if err != nil {
		return 0, err
	}
	p.ID = id
	ev.PredictionID = id
	if err := s.setPrediction(wTx, p); err != nil {
		return 0, err
	}
	if err := s.appendEvent(wTx, ev); err != nil {
		return 0, err
	}
	return id, wTx.Commit()
}

// ClosePrediction flips the record to closed and appends the closed
// event, in one transaction. It fails with ErrNotFound for an unknown id
// and with ErrClosed if the prediction is not open.
func (s *Storage) ClosePrediction(id uint64, ev *types.Event) error {
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
	p.Open = false
	if err := s.setPrediction(wTx, p); err != nil {
		return err
	}
	if err := s.appendEvent(wTx, ev); err != nil {
		return err
	}
	return wTx.Commit()
}

// predictionTx reads a prediction record within a write transaction.
func (s *Storage) predictionTx(wTx db.WriteTx, id uint64) (*types.Prediction, error) {
	data, err := prefixeddb.NewPrefixedWriteTx(wTx, predictionPrefix).Get(uint64Key(id))
	if errors.Is(err, db.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p := &types.Prediction{}
	if err := decodeArtifact(data, p); err != nil {
		return nil, fmt.Errorf("could not decode prediction %d: %w", id, err)
	}
	return p, nil
}

func (s *Storage) setPrediction(wTx db.WriteTx, p *types.Prediction) error {
	data, err := encodeArtifact(p)
	if err != nil {
		return err
	}
	return prefixeddb.NewPrefixedWriteTx(wTx, predictionPrefix).Set(uint64Key(p.ID), data)
}
