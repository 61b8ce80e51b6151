package api

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/vocdoni/prediction-tally/types"
)

// NewPrediction is the request to create a prediction. The signature is
// over CreatePredictionMessage and identifies the creator.
type NewPrediction struct {
	Name      string         `json:"name"`
	Options   []string       `json:"options"`
	Signature types.HexBytes `json:"signature"`
}

// NewPredictionResponse is the response to a prediction creation request.
type NewPredictionResponse struct {
	ID uint64 `json:"id"`
}

// PredictionList is the response to a prediction listing request.
type PredictionList struct {
	Predictions []*types.Prediction `json:"predictions"`
	Count       uint64              `json:"count"`
}

// Vote is the struct to represent a vote in the system. Ballot is the
// serialized encrypted option index, Proof its encryption proof, and the
// signature over VoteMessage identifies the voter.
type Vote struct {
	PredictionID uint64         `json:"predictionId"`
	Ballot       types.HexBytes `json:"ballot"`
	Proof        types.HexBytes `json:"proof"`
	Signature    types.HexBytes `json:"signature"`
}

// VoteResponse is the response to a vote submission. The receipt only
// acknowledges admission, it carries no information about the choice.
type VoteResponse struct {
	Receipt uuid.UUID `json:"receipt"`
}

// ClosePrediction is the request to close a prediction. The signature is
// over ClosePredictionMessage and identifies the closer.
type ClosePrediction struct {
	Signature types.HexBytes `json:"signature"`
}

// CountsResponse carries the current encrypted counter handles.
type CountsResponse struct {
	EncryptedCounts []types.HexBytes `json:"encryptedCounts"`
}

// VotedResponse reports whether an address voted on a prediction.
type VotedResponse struct {
	Voted bool `json:"voted"`
}

// ResultsResponse is the revealed tally of a closed prediction, aligned
// positionally with the option labels.
type ResultsResponse struct {
	Options []string        `json:"options"`
	Tally   []*types.BigInt `json:"tally"`
}

// EventList is the response to an audit log request.
type EventList struct {
	Events []*types.Event `json:"events"`
}

// CreatePredictionMessage builds the message a creator must sign to
// create a prediction.
func CreatePredictionMessage(name string, options []string) []byte {
	return []byte(fmt.Sprintf("create-prediction:%s:%s", name, strings.Join(options, ",")))
}

// VoteMessage builds the message a voter must sign to submit a ballot,
// binding the signature to the prediction and the ciphertext.
func VoteMessage(predictionID uint64, ballot types.HexBytes) []byte {
	return []byte(fmt.Sprintf("vote:%d:%s", predictionID, ballot.String()))
}

// ClosePredictionMessage builds the message to sign to close a prediction.
func ClosePredictionMessage(predictionID uint64) []byte {
	return []byte(fmt.Sprintf("close-prediction:%d", predictionID))
}
