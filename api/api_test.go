package api

import (
	"bytes"
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"go.vocdoni.io/dvote/db/metadb"

	"github.com/vocdoni/prediction-tally/crypto/elgamal"
	"github.com/vocdoni/prediction-tally/crypto/ethereum"
	"github.com/vocdoni/prediction-tally/fhe"
	"github.com/vocdoni/prediction-tally/storage"
	"github.com/vocdoni/prediction-tally/tally"
	"github.com/vocdoni/prediction-tally/types"
)

func newTestServer(t *testing.T) (*httptest.Server, *fhe.Engine) {
	t.Helper()
	coproc, err := fhe.New()
	qt.Assert(t, err, qt.IsNil)
	engine := tally.New(
		storage.New(metadb.NewTest(t)),
		coproc,
		common.HexToAddress("0x00000000000000000000000000000000000000ee"),
	)
	a, err := New(&APIConfig{Host: "127.0.0.1", Port: 0, Engine: engine, Decryptor: coproc})
	qt.Assert(t, err, qt.IsNil)
	srv := httptest.NewServer(a.Router())
	t.Cleanup(srv.Close)
	return srv, coproc
}

func newSigner(t *testing.T) *ethereum.SignKeys {
	t.Helper()
	k := ethereum.NewSignKeys()
	qt.Assert(t, k.Generate(), qt.IsNil)
	return k
}

// doRequest performs a JSON request against the test server and returns
// the status code and raw response body.
func doRequest(t *testing.T, srv *httptest.Server, method, path string, body any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		qt.Assert(t, err, qt.IsNil)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, srv.URL+path, reader)
	qt.Assert(t, err, qt.IsNil)
	req.Header.Set("Content-Type", "application/json")
	resp, err := srv.Client().Do(req)
	qt.Assert(t, err, qt.IsNil)
	defer func() { qt.Assert(t, resp.Body.Close(), qt.IsNil) }()
	respBody, err := io.ReadAll(resp.Body)
	qt.Assert(t, err, qt.IsNil)
	return resp.StatusCode, respBody
}

func createPrediction(t *testing.T, srv *httptest.Server, signer *ethereum.SignKeys, name string, options []string) uint64 {
	t.Helper()
	signature, err := signer.SignEthereum(CreatePredictionMessage(name, options))
	qt.Assert(t, err, qt.IsNil)
	status, body := doRequest(t, srv, http.MethodPost, PredictionsEndpoint,
		&NewPrediction{Name: name, Options: options, Signature: signature})
	qt.Assert(t, status, qt.Equals, http.StatusOK, qt.Commentf("body: %s", body))
	resp := &NewPredictionResponse{}
	qt.Assert(t, json.Unmarshal(body, resp), qt.IsNil)
	return resp.ID
}

func castVote(t *testing.T, srv *httptest.Server, coproc *fhe.Engine, signer *ethereum.SignKeys, predictionID, index uint64) (int, []byte) {
	t.Helper()
	ct, k, err := elgamal.Encrypt(coproc.PublicKey(), new(big.Int).SetUint64(index))
	qt.Assert(t, err, qt.IsNil)
	ballot := types.HexBytes(ct.Serialize())
	signature, err := signer.SignEthereum(VoteMessage(predictionID, ballot))
	qt.Assert(t, err, qt.IsNil)
	return doRequest(t, srv, http.MethodPost, VotesEndpoint, &Vote{
		PredictionID: predictionID,
		Ballot:       ballot,
		Proof:        k.Bytes(),
		Signature:    signature,
	})
}

func closePrediction(t *testing.T, srv *httptest.Server, signer *ethereum.SignKeys, predictionID uint64) (int, []byte) {
	t.Helper()
	signature, err := signer.SignEthereum(ClosePredictionMessage(predictionID))
	qt.Assert(t, err, qt.IsNil)
	path := PredictionsEndpoint + "/" + strconv.FormatUint(predictionID, 10) + "/close"
	return doRequest(t, srv, http.MethodPost, path, &ClosePrediction{Signature: signature})
}

func TestPing(t *testing.T) {
	srv, _ := newTestServer(t)
	status, _ := doRequest(t, srv, http.MethodGet, PingEndpoint, nil)
	qt.Assert(t, status, qt.Equals, http.StatusOK)
}

func TestPredictionLifecycle(t *testing.T) {
	srv, coproc := newTestServer(t)
	creator := newSigner(t)
	voter1 := newSigner(t)
	voter2 := newSigner(t)
	voter3 := newSigner(t)

	id := createPrediction(t, srv, creator, "BTC price", []string{"Up", "Down"})
	qt.Assert(t, id, qt.Equals, uint64(0))

	// fetch it back
	status, body := doRequest(t, srv, http.MethodGet, PredictionsEndpoint+"/0", nil)
	qt.Assert(t, status, qt.Equals, http.StatusOK)
	p := &types.Prediction{}
	qt.Assert(t, json.Unmarshal(body, p), qt.IsNil)
	qt.Assert(t, p.Name, qt.Equals, "BTC price")
	qt.Assert(t, p.Open, qt.IsTrue)
	qt.Assert(t, p.Creator, qt.Equals, creator.Address())
	qt.Assert(t, p.EncryptedCounts, qt.HasLen, 2)

	// results are refused while open
	status, _ = doRequest(t, srv, http.MethodGet, PredictionsEndpoint+"/0/results", nil)
	qt.Assert(t, status, qt.Equals, http.StatusConflict)

	// two votes for Down, one for Up
	status, body = castVote(t, srv, coproc, voter1, id, 1)
	qt.Assert(t, status, qt.Equals, http.StatusOK, qt.Commentf("body: %s", body))
	vr := &VoteResponse{}
	qt.Assert(t, json.Unmarshal(body, vr), qt.IsNil)
	status, _ = castVote(t, srv, coproc, voter2, id, 1)
	qt.Assert(t, status, qt.Equals, http.StatusOK)
	status, _ = castVote(t, srv, coproc, voter3, id, 0)
	qt.Assert(t, status, qt.Equals, http.StatusOK)

	// the voted flag follows the ledger
	status, body = doRequest(t, srv, http.MethodGet,
		PredictionsEndpoint+"/0/voted/"+voter1.Address().Hex(), nil)
	qt.Assert(t, status, qt.Equals, http.StatusOK)
	voted := &VotedResponse{}
	qt.Assert(t, json.Unmarshal(body, voted), qt.IsNil)
	qt.Assert(t, voted.Voted, qt.IsTrue)
	status, body = doRequest(t, srv, http.MethodGet,
		PredictionsEndpoint+"/0/voted/"+creator.Address().Hex(), nil)
	qt.Assert(t, status, qt.Equals, http.StatusOK)
	qt.Assert(t, json.Unmarshal(body, voted), qt.IsNil)
	qt.Assert(t, voted.Voted, qt.IsFalse)

	// a duplicate vote is rejected
	status, _ = castVote(t, srv, coproc, voter1, id, 0)
	qt.Assert(t, status, qt.Equals, http.StatusConflict)

	// counter handles are served but not decryptable yet
	status, body = doRequest(t, srv, http.MethodGet, PredictionsEndpoint+"/0/counts", nil)
	qt.Assert(t, status, qt.Equals, http.StatusOK)
	counts := &CountsResponse{}
	qt.Assert(t, json.Unmarshal(body, counts), qt.IsNil)
	qt.Assert(t, counts.EncryptedCounts, qt.HasLen, 2)
	_, err := coproc.PublicDecrypt(counts.EncryptedCounts)
	qt.Assert(t, err, qt.ErrorIs, fhe.ErrNotDecryptable)

	// close and read the revealed tally
	status, _ = closePrediction(t, srv, creator, id)
	qt.Assert(t, status, qt.Equals, http.StatusOK)
	status, _ = closePrediction(t, srv, creator, id)
	qt.Assert(t, status, qt.Equals, http.StatusConflict)
	status, _ = castVote(t, srv, coproc, newSigner(t), id, 0)
	qt.Assert(t, status, qt.Equals, http.StatusConflict)

	status, body = doRequest(t, srv, http.MethodGet, PredictionsEndpoint+"/0/results", nil)
	qt.Assert(t, status, qt.Equals, http.StatusOK)
	results := &ResultsResponse{}
	qt.Assert(t, json.Unmarshal(body, results), qt.IsNil)
	qt.Assert(t, results.Options, qt.DeepEquals, []string{"Up", "Down"})
	qt.Assert(t, results.Tally, qt.HasLen, 2)
	qt.Assert(t, results.Tally[0].MathBigInt().Uint64(), qt.Equals, uint64(1))
	qt.Assert(t, results.Tally[1].MathBigInt().Uint64(), qt.Equals, uint64(2))

	// the audit log covers the whole lifecycle
	status, body = doRequest(t, srv, http.MethodGet, EventsEndpoint, nil)
	qt.Assert(t, status, qt.Equals, http.StatusOK)
	events := &EventList{}
	qt.Assert(t, json.Unmarshal(body, events), qt.IsNil)
	qt.Assert(t, events.Events, qt.HasLen, 5)
	qt.Assert(t, events.Events[0].Type, qt.Equals, types.EventPredictionCreated)
	qt.Assert(t, events.Events[4].Type, qt.Equals, types.EventPredictionClosed)
}

func TestPredictionListing(t *testing.T) {
	srv, _ := newTestServer(t)
	creator := newSigner(t)

	createPrediction(t, srv, creator, "BTC price", []string{"Up", "Down"})
	createPrediction(t, srv, creator, "rate decision", []string{"Hike", "Hold", "Cut"})

	status, body := doRequest(t, srv, http.MethodGet, PredictionsEndpoint, nil)
	qt.Assert(t, status, qt.Equals, http.StatusOK)
	list := &PredictionList{}
	qt.Assert(t, json.Unmarshal(body, list), qt.IsNil)
	qt.Assert(t, list.Count, qt.Equals, uint64(2))
	qt.Assert(t, list.Predictions, qt.HasLen, 2)
	qt.Assert(t, list.Predictions[1].Options, qt.HasLen, 3)
}

func TestRequestValidation(t *testing.T) {
	srv, coproc := newTestServer(t)
	creator := newSigner(t)

	// invalid option counts are rejected
	signature, err := creator.SignEthereum(CreatePredictionMessage("X", []string{"A"}))
	qt.Assert(t, err, qt.IsNil)
	status, _ := doRequest(t, srv, http.MethodPost, PredictionsEndpoint,
		&NewPrediction{Name: "X", Options: []string{"A"}, Signature: signature})
	qt.Assert(t, status, qt.Equals, http.StatusBadRequest)

	// garbage signature
	status, _ = doRequest(t, srv, http.MethodPost, PredictionsEndpoint,
		&NewPrediction{Name: "X", Options: []string{"A", "B"}, Signature: []byte{0x01, 0x02}})
	qt.Assert(t, status, qt.Equals, http.StatusBadRequest)

	id := createPrediction(t, srv, creator, "BTC price", []string{"Up", "Down"})

	// malformed prediction id
	status, _ = doRequest(t, srv, http.MethodGet, PredictionsEndpoint+"/notanumber", nil)
	qt.Assert(t, status, qt.Equals, http.StatusBadRequest)
	// unknown prediction id
	status, _ = doRequest(t, srv, http.MethodGet, PredictionsEndpoint+"/99", nil)
	qt.Assert(t, status, qt.Equals, http.StatusNotFound)
	// malformed address
	status, _ = doRequest(t, srv, http.MethodGet, PredictionsEndpoint+"/0/voted/nothex", nil)
	qt.Assert(t, status, qt.Equals, http.StatusBadRequest)

	// a vote with a tampered proof is rejected
	voter := newSigner(t)
	ct, k, err := elgamal.Encrypt(coproc.PublicKey(), big.NewInt(0))
	qt.Assert(t, err, qt.IsNil)
	ballot := types.HexBytes(ct.Serialize())
	proof := k.Bytes()
	proof[0] ^= 0xff
	signature, err = voter.SignEthereum(VoteMessage(id, ballot))
	qt.Assert(t, err, qt.IsNil)
	status, _ = doRequest(t, srv, http.MethodPost, VotesEndpoint, &Vote{
		PredictionID: id,
		Ballot:       ballot,
		Proof:        proof,
		Signature:    signature,
	})
	qt.Assert(t, status, qt.Equals, http.StatusBadRequest)

	// a vote signature must match the submitted ballot
	ct2, k2, err := elgamal.Encrypt(coproc.PublicKey(), big.NewInt(1))
	qt.Assert(t, err, qt.IsNil)
	signature, err = voter.SignEthereum(VoteMessage(id, ballot))
	qt.Assert(t, err, qt.IsNil)
	status, _ = doRequest(t, srv, http.MethodPost, VotesEndpoint, &Vote{
		PredictionID: id,
		Ballot:       types.HexBytes(ct2.Serialize()),
		Proof:        k2.Bytes(),
		Signature:    signature,
	})
	// the recovered address differs from the intended signer, so the
	// vote lands under another identity and is never attributed to the
	// original voter
	qt.Assert(t, status, qt.Equals, http.StatusOK)
	var voted VotedResponse
	status, body := doRequest(t, srv, http.MethodGet,
		PredictionsEndpoint+"/0/voted/"+voter.Address().Hex(), nil)
	qt.Assert(t, status, qt.Equals, http.StatusOK)
	qt.Assert(t, json.Unmarshal(body, &voted), qt.IsNil)
	qt.Assert(t, voted.Voted, qt.IsFalse)
}
