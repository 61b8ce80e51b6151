package types

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Event types emitted by the tally engine. The event log is append-only
// and write-only for the engine itself; it exists for external indexers.
const (
	EventPredictionCreated = "prediction_created"
	EventVoteSubmitted     = "vote_submitted"
	EventPredictionClosed  = "prediction_closed"
)

// Event is one entry of the audit log. Options is only set for creation
// events, ChoiceRef only for vote events. ChoiceRef is the opaque handle
// of the submitted encrypted choice, never a cleartext index.
type Event struct {
	Seq          uint64         `json:"seq"                    cbor:"0,keyasint"`
	Type         string         `json:"type"                   cbor:"1,keyasint"`
	PredictionID uint64         `json:"predictionId"           cbor:"2,keyasint"`
	Actor        common.Address `json:"actor"                  cbor:"3,keyasint"`
	Name         string         `json:"name,omitempty"         cbor:"4,keyasint,omitempty"`
	Options      []string       `json:"options,omitempty"      cbor:"5,keyasint,omitempty"`
	ChoiceRef    HexBytes       `json:"choiceRef,omitempty"    cbor:"6,keyasint,omitempty"`
	Timestamp    time.Time      `json:"timestamp"              cbor:"7,keyasint"`
}
