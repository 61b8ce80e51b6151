package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"go.vocdoni.io/dvote/log"

	"github.com/vocdoni/prediction-tally/crypto/ethereum"
)

// predictionID extracts and parses the prediction id URL parameter. On
// failure it writes the error response and returns false.
func predictionID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	param := chi.URLParam(r, PredictionURLParam)
	id, err := strconv.ParseUint(param, 10, 64)
	if err != nil {
		ErrMalformedPredictionID.Withf("could not parse %q: %v", param, err).Write(w)
		return 0, false
	}
	return id, true
}

// newPrediction creates a new prediction
// POST /predictions
func (a *API) newPrediction(w http.ResponseWriter, r *http.Request) {
	p := &NewPrediction{}
	if err := json.NewDecoder(r.Body).Decode(p); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}

	// Extract the creator address from the signature
	creator, err := ethereum.AddrFromSignature(CreatePredictionMessage(p.Name, p.Options), p.Signature)
	if err != nil {
		ErrInvalidSignature.Withf("could not extract address from signature: %v", err).Write(w)
		return
	}

	id, err := a.engine.CreatePrediction(creator, p.Name, p.Options)
	if err != nil {
		engineError(err).Write(w)
		return
	}
	log.Infow("new prediction", "id", id, "creator", creator.Hex())
	httpWriteJSON(w, &NewPredictionResponse{ID: id})
}

// predictionList returns all the predictions
// GET /predictions
func (a *API) predictionList(w http.ResponseWriter, r *http.Request) {
	count, err := a.engine.PredictionCount()
	if err != nil {
		engineError(err).Write(w)
		return
	}
	list := &PredictionList{Count: count}
	for id := uint64(0); id < count; id++ {
		p, err := a.engine.Prediction(id)
		if err != nil {
			engineError(err).Write(w)
			return
		}
		list.Predictions = append(list.Predictions, p)
	}
	httpWriteJSON(w, list)
}

// prediction returns a single prediction
// GET /predictions/{predictionId}
func (a *API) prediction(w http.ResponseWriter, r *http.Request) {
	id, ok := predictionID(w, r)
	if !ok {
		return
	}
	p, err := a.engine.Prediction(id)
	if err != nil {
		engineError(err).Write(w)
		return
	}
	httpWriteJSON(w, p)
}

// predictionCounts returns the current encrypted counter handles
// GET /predictions/{predictionId}/counts
func (a *API) predictionCounts(w http.ResponseWriter, r *http.Request) {
	id, ok := predictionID(w, r)
	if !ok {
		return
	}
	counts, err := a.engine.EncryptedCounts(id)
	if err != nil {
		engineError(err).Write(w)
		return
	}
	httpWriteJSON(w, &CountsResponse{EncryptedCounts: counts})
}

// predictionVoted reports whether an address voted on a prediction
// GET /predictions/{predictionId}/voted/{address}
func (a *API) predictionVoted(w http.ResponseWriter, r *http.Request) {
	id, ok := predictionID(w, r)
	if !ok {
		return
	}
	param := chi.URLParam(r, AddressURLParam)
	if !common.IsHexAddress(param) {
		ErrMalformedAddress.With(param).Write(w)
		return
	}
	voted, err := a.engine.HasAddressVoted(id, common.HexToAddress(param))
	if err != nil {
		engineError(err).Write(w)
		return
	}
	httpWriteJSON(w, &VotedResponse{Voted: voted})
}

// closePrediction irreversibly closes a prediction
// POST /predictions/{predictionId}/close
func (a *API) closePrediction(w http.ResponseWriter, r *http.Request) {
	id, ok := predictionID(w, r)
	if !ok {
		return
	}
	req := &ClosePrediction{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	closer, err := ethereum.AddrFromSignature(ClosePredictionMessage(id), req.Signature)
	if err != nil {
		ErrInvalidSignature.Withf("could not extract address from signature: %v", err).Write(w)
		return
	}
	if err := a.engine.Close(closer, id); err != nil {
		engineError(err).Write(w)
		return
	}
	log.Infow("prediction closed", "id", id, "closer", closer.Hex())
	httpWriteOK(w)
}

// predictionResults returns the revealed tally of a closed prediction
// GET /predictions/{predictionId}/results
func (a *API) predictionResults(w http.ResponseWriter, r *http.Request) {
	id, ok := predictionID(w, r)
	if !ok {
		return
	}
	p, err := a.engine.Prediction(id)
	if err != nil {
		engineError(err).Write(w)
		return
	}
	if p.Open {
		ErrResultsNotAvailable.Withf("prediction %d", id).Write(w)
		return
	}
	tally, err := a.decryptor.PublicDecrypt(p.EncryptedCounts)
	if err != nil {
		ErrGenericInternalServerError.Withf("could not decrypt tally: %v", err).Write(w)
		return
	}
	httpWriteJSON(w, &ResultsResponse{Options: p.Options, Tally: tally})
}

// events returns the audit log
// GET /events
func (a *API) events(w http.ResponseWriter, r *http.Request) {
	events, err := a.engine.Events()
	if err != nil {
		engineError(err).Write(w)
		return
	}
	httpWriteJSON(w, &EventList{Events: events})
}
