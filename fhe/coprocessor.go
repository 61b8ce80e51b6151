// Package fhe models the encrypted-value collaborator: opaque ciphertext
// handles operated through a small set of homomorphic primitives, with an
// explicit per-handle access-control list. Handles are capability-bearing
// values: every operation names the calling principal and is checked
// against the grants of its input handles, and a derived handle never
// inherits the grants of its sources.
package fhe

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vocdoni/prediction-tally/types"
)

// Handle is an opaque reference to an encrypted value held by the
// collaborator. The raw ciphertext is never exposed through it.
type Handle = types.HexBytes

var (
	// ErrUnknownHandle is returned when a handle does not reference any
	// encrypted value.
	ErrUnknownHandle = errors.New("unknown ciphertext handle")
	// ErrNotAuthorized is returned when the calling principal holds no
	// operate grant on an input handle.
	ErrNotAuthorized = errors.New("principal not authorized to operate on handle")
	// ErrInvalidProof is returned by DecodeExternal when the encrypted
	// input cannot be verified against its proof.
	ErrInvalidProof = errors.New("invalid encrypted input proof")
	// ErrNotDecryptable is returned when a handle has not been flagged
	// publicly decryptable.
	ErrNotDecryptable = errors.New("handle is not publicly decryptable")
)

// Coprocessor is the set of primitives the tally engine uses. Every
// operation that consumes a handle checks the principal's operate grant
// on it; every operation that produces a handle returns it with an empty
// grant set, owned by the principal, who must issue fresh grants before
// the handle can be operated on again.
type Coprocessor interface {
	// Zero returns a fresh encryption of 0.
	Zero(principal common.Address) (Handle, error)
	// One returns a fresh encryption of 1.
	One(principal common.Address) (Handle, error)
	// Equals compares the encrypted value with a plaintext integer and
	// returns an encrypted boolean (0 or 1).
	Equals(principal common.Address, h Handle, plain uint64) (Handle, error)
	// Select returns a re-randomization of a if cond is an encryption of
	// 1, of b otherwise. The caller cannot tell which branch was taken.
	Select(principal common.Address, cond, a, b Handle) (Handle, error)
	// Add returns the homomorphic sum of the two encrypted values.
	Add(principal common.Address, a, b Handle) (Handle, error)
	// DecodeExternal verifies an externally produced ciphertext against
	// its proof and registers it, returning its handle. A proof failure
	// is reported as ErrInvalidProof.
	DecodeExternal(principal common.Address, input, proof []byte) (Handle, error)
	// GrantOperate authorizes the grantee to operate on the handle. Only
	// the handle's creator can issue grants.
	GrantOperate(principal common.Address, h Handle, grantee common.Address) error
	// FlagPubliclyDecryptable irreversibly authorizes anyone to retrieve
	// the handle's cleartext through the decryption oracle.
	FlagPubliclyDecryptable(principal common.Address, h Handle) error
}

// Decryptor is the decryption/relayer surface, invoked outside the tally
// engine's operations by any party. Only publicly flagged handles can be
// decrypted.
type Decryptor interface {
	// PublicDecrypt returns the cleartexts of the given handles,
	// positionally aligned with the input.
	PublicDecrypt(handles []Handle) ([]*types.BigInt, error)
}
