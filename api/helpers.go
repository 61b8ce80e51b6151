package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.vocdoni.io/dvote/log"

	"github.com/vocdoni/prediction-tally/tally"
)

// httpWriteJSON helper function allows to write a JSON response.
func httpWriteJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	jdata, err := json.Marshal(data)
	if err != nil {
		ErrMarshalingServerJSONFailed.WithErr(err).Write(w)
		return
	}
	n, err := w.Write(jdata)
	if err != nil {
		log.Warnw("failed to write http response", "error", err)
	}
	if _, err := w.Write([]byte("\n")); err != nil {
		log.Warnw("failed to write on response", "error", err)
	}
	log.Debugw("api response", "bytes", n, "data", strings.ReplaceAll(string(jdata), "\"", ""))
}

// httpWriteOK helper function allows to write an OK response.
func httpWriteOK(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("\n")); err != nil {
		log.Warnw("failed to write on response", "error", err)
	}
}

// engineError maps the tally engine error taxonomy to API errors,
// preserving the engine's message as detail.
func engineError(err error) Error {
	switch {
	case errors.Is(err, tally.ErrInvalidInput):
		return ErrInvalidPredictionData.WithErr(err)
	case errors.Is(err, tally.ErrInvalidPrediction):
		return ErrPredictionNotFound.WithErr(err)
	case errors.Is(err, tally.ErrBallotClosed):
		return ErrPredictionClosed.WithErr(err)
	case errors.Is(err, tally.ErrAlreadyVoted):
		return ErrAddressAlreadyVoted.WithErr(err)
	case errors.Is(err, tally.ErrAlreadyClosed):
		return ErrPredictionNotOpen.WithErr(err)
	case errors.Is(err, tally.ErrInvalidProof):
		return ErrInvalidBallotProof.WithErr(err)
	}
	return ErrGenericInternalServerError.WithErr(err)
}
