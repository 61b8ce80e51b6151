package fhe

import (
	"crypto/sha256"
	"fmt"
	"math/big"
	"sync"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/ethereum/go-ethereum/common"

	"github.com/vocdoni/prediction-tally/crypto/elgamal"
	"github.com/vocdoni/prediction-tally/types"
	"github.com/vocdoni/prediction-tally/util"
)

const (
	// handleSize is the length of a handle in bytes, a truncated hash of
	// the ciphertext it references.
	handleSize = 12
	// equalsMaxValue bounds the discrete log search when evaluating
	// Equals on an externally submitted ciphertext. Values above it
	// simply compare as not-equal to every plaintext.
	equalsMaxValue = 1 << 10
)

// record is the collaborator-side state of one handle.
type record struct {
	ct      *elgamal.Ciphertext
	creator common.Address
	acl     map[common.Address]bool
	public  bool
}

// Engine is the reference Coprocessor and Decryptor implementation. It
// owns the ElGamal key pair: Add is evaluated homomorphically on the
// ciphertexts, while Equals and Select are evaluated as a decryption
// oracle, returning fresh encryptions so the caller never observes a
// plaintext or a ciphertext it could correlate with an input.
type Engine struct {
	mu         sync.Mutex
	publicKey  *bn254.G1Affine
	privateKey *big.Int
	handles    map[string]*record
}

// New creates an Engine with a freshly generated key pair.
func New() (*Engine, error) {
	publicKey, privateKey, err := elgamal.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("could not generate collaborator key: %w", err)
	}
	return &Engine{
		publicKey:  publicKey,
		privateKey: privateKey,
		handles:    make(map[string]*record),
	}, nil
}

// PublicKey returns the encryption public key, needed by external
// parties to produce ciphertexts for DecodeExternal.
func (e *Engine) PublicKey() *bn254.G1Affine {
	return e.publicKey
}

// Zero returns a fresh encryption of 0 owned by the principal.
func (e *Engine) Zero(principal common.Address) (Handle, error) {
	return e.encryptConst(principal, 0)
}

// One returns a fresh encryption of 1 owned by the principal.
func (e *Engine) One(principal common.Address) (Handle, error) {
	return e.encryptConst(principal, 1)
}

func (e *Engine) encryptConst(principal common.Address, value uint64) (Handle, error) {
	ct, _, err := elgamal.Encrypt(e.publicKey, new(big.Int).SetUint64(value))
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.register(ct, principal), nil
}

// Equals returns an encryption of 1 if h encrypts plain, of 0 otherwise.
func (e *Engine) Equals(principal common.Address, h Handle, plain uint64) (Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec, err := e.operate(principal, h)
	if err != nil {
		return nil, err
	}
	// an undecodable (out of range) value compares as not-equal
	matches := uint64(0)
	if value, err := elgamal.Decrypt(e.privateKey, rec.ct, equalsMaxValue); err == nil && value.Uint64() == plain {
		matches = 1
	}
	ct, _, err := elgamal.Encrypt(e.publicKey, new(big.Int).SetUint64(matches))
	if err != nil {
		return nil, err
	}
	return e.register(ct, principal), nil
}

// Select returns a re-randomization of a if cond encrypts 1, of b if it
// encrypts 0. The returned ciphertext is indistinguishable from a fresh
// encryption of either branch.
func (e *Engine) Select(principal common.Address, cond, a, b Handle) (Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	condRec, err := e.operate(principal, cond)
	if err != nil {
		return nil, err
	}
	aRec, err := e.operate(principal, a)
	if err != nil {
		return nil, err
	}
	bRec, err := e.operate(principal, b)
	if err != nil {
		return nil, err
	}
	bit, err := elgamal.Decrypt(e.privateKey, condRec.ct, 1)
	if err != nil {
		return nil, fmt.Errorf("select condition is not an encrypted boolean: %w", err)
	}
	chosen := bRec.ct
	if bit.Uint64() == 1 {
		chosen = aRec.ct
	}
	rerandomized, err := e.rerandomize(chosen)
	if err != nil {
		return nil, err
	}
	return e.register(rerandomized, principal), nil
}

// Add returns the homomorphic sum of the two encrypted values.
func (e *Engine) Add(principal common.Address, a, b Handle) (Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	aRec, err := e.operate(principal, a)
	if err != nil {
		return nil, err
	}
	bRec, err := e.operate(principal, b)
	if err != nil {
		return nil, err
	}
	sum := new(elgamal.Ciphertext).Add(aRec.ct, bRec.ct)
	return e.register(sum, principal), nil
}

// DecodeExternal verifies an externally produced ciphertext against the
// proof of its encryption randomness and registers it. The input must be
// a serialized ciphertext and the proof the big-endian randomness k such
// that C1 == k*G.
func (e *Engine) DecodeExternal(principal common.Address, input, proof []byte) (Handle, error) {
	ct := new(elgamal.Ciphertext)
	if err := ct.Deserialize(input); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProof, err)
	}
	if len(proof) == 0 || !elgamal.CheckK(ct, new(big.Int).SetBytes(proof)) {
		return nil, ErrInvalidProof
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.register(ct, principal), nil
}

// GrantOperate authorizes the grantee to operate on the handle. Only the
// handle's creator can issue grants; grants are never revoked.
func (e *Engine) GrantOperate(principal common.Address, h Handle, grantee common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec, ok := e.handles[string(h)]
	if !ok {
		return ErrUnknownHandle
	}
	if rec.creator != principal {
		return ErrNotAuthorized
	}
	rec.acl[grantee] = true
	return nil
}

// FlagPubliclyDecryptable marks the handle as retrievable by anyone
// through PublicDecrypt. The flag is one-way: there is no operation that
// clears it.
func (e *Engine) FlagPubliclyDecryptable(principal common.Address, h Handle) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec, err := e.operate(principal, h)
	if err != nil {
		return err
	}
	rec.public = true
	return nil
}

// PublicDecrypt returns the cleartexts of the given handles, aligned
// with the input. Every handle must have been flagged publicly
// decryptable; no grant is required.
func (e *Engine) PublicDecrypt(handles []Handle) ([]*types.BigInt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	values := make([]*types.BigInt, len(handles))
	for i, h := range handles {
		rec, ok := e.handles[string(h)]
		if !ok {
			return nil, ErrUnknownHandle
		}
		if !rec.public {
			return nil, ErrNotDecryptable
		}
		value, err := elgamal.Decrypt(e.privateKey, rec.ct, types.MaxTallyValue)
		if err != nil {
			return nil, fmt.Errorf("could not decrypt handle %s: %w", h, err)
		}
		values[i] = (*types.BigInt)(value)
	}
	return values, nil
}

// operate returns the record of h if the principal holds an operate
// grant on it. Must be called with the engine lock held.
func (e *Engine) operate(principal common.Address, h Handle) (*record, error) {
	rec, ok := e.handles[string(h)]
	if !ok {
		return nil, ErrUnknownHandle
	}
	if !rec.acl[principal] {
		return nil, ErrNotAuthorized
	}
	return rec, nil
}

// register stores a ciphertext under a fresh handle owned by the
// creator, with an empty grant set. Must be called with the lock held.
func (e *Engine) register(ct *elgamal.Ciphertext, creator common.Address) Handle {
	sum := sha256.Sum256(append(ct.Serialize(), util.RandomBytes(8)...))
	h := Handle(sum[:handleSize])
	e.handles[string(h)] = &record{
		ct:      ct,
		creator: creator,
		acl:     make(map[common.Address]bool),
	}
	return h
}

// rerandomize adds a fresh encryption of zero, producing a ciphertext of
// the same message unlinkable to the original.
func (e *Engine) rerandomize(ct *elgamal.Ciphertext) (*elgamal.Ciphertext, error) {
	zero, _, err := elgamal.Encrypt(e.publicKey, big.NewInt(0))
	if err != nil {
		return nil, err
	}
	return new(elgamal.Ciphertext).Add(ct, zero), nil
}
