package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.vocdoni.io/dvote/log"

	"github.com/vocdoni/prediction-tally/crypto/ethereum"
)

// newVote submits a confidential vote
// POST /votes
func (a *API) newVote(w http.ResponseWriter, r *http.Request) {
	v := &Vote{}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}

	// Extract the voter address from the signature, which binds the
	// ballot ciphertext to the prediction
	voter, err := ethereum.AddrFromSignature(VoteMessage(v.PredictionID, v.Ballot), v.Signature)
	if err != nil {
		ErrInvalidSignature.Withf("could not extract address from signature: %v", err).Write(w)
		return
	}

	if err := a.engine.SubmitChoice(voter, v.PredictionID, v.Ballot, v.Proof); err != nil {
		engineError(err).Write(w)
		return
	}
	receipt := uuid.New()
	log.Infow("vote submitted", "prediction", v.PredictionID, "voter", voter.Hex(), "receipt", receipt.String())
	httpWriteJSON(w, &VoteResponse{Receipt: receipt})
}
