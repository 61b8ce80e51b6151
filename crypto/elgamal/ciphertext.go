package elgamal

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/vocdoni/arbo"

	"github.com/vocdoni/prediction-tally/types"
)

// sizes in bytes needed to serialize a Ciphertext
const (
	sizeCoord = 32
	sizePoint = 2 * sizeCoord
	// SizeCiphertext is the length of a serialized Ciphertext.
	SizeCiphertext = 2 * sizePoint
)

// Ciphertext is an ElGamal encrypted message with homomorphic addition.
// The zero value is a valid encryption of zero with zero randomness and
// can be used as the neutral element of Add.
type Ciphertext struct {
	C1 bn254.G1Affine
	C2 bn254.G1Affine
}

// Add adds two Ciphertexts point-wise and stores the result in z, which
// is also returned. The result decrypts to the sum of the two messages.
func (z *Ciphertext) Add(x, y *Ciphertext) *Ciphertext {
	z.C1.Add(&x.C1, &y.C1)
	z.C2.Add(&x.C2, &y.C2)
	return z
}

// Serialize returns a slice of SizeCiphertext bytes, representing
// C1.X, C1.Y, C2.X, C2.Y as little-endian fixed-width coordinates.
func (z *Ciphertext) Serialize() []byte {
	buf := make([]byte, 0, SizeCiphertext)
	for _, coord := range z.coords() {
		buf = append(buf, arbo.BigIntToBytes(sizeCoord, coord)...)
	}
	return buf
}

// Deserialize reconstructs a Ciphertext from the output of Serialize.
func (z *Ciphertext) Deserialize(data []byte) error {
	if len(data) != SizeCiphertext {
		return fmt.Errorf("invalid input length: got %d bytes, expected %d bytes", len(data), SizeCiphertext)
	}
	readCoord := func(i int) *big.Int {
		return arbo.BytesToBigInt(data[i*sizeCoord : (i+1)*sizeCoord])
	}
	z.C1.X.SetBigInt(readCoord(0))
	z.C1.Y.SetBigInt(readCoord(1))
	z.C2.X.SetBigInt(readCoord(2))
	z.C2.Y.SetBigInt(readCoord(3))
	if !z.C1.IsOnCurve() || !z.C2.IsOnCurve() {
		return fmt.Errorf("deserialized point is not on the curve")
	}
	return nil
}

type ciphertextJSON struct {
	C1 [2]*types.BigInt `json:"c1"`
	C2 [2]*types.BigInt `json:"c2"`
}

// MarshalJSON encodes the ciphertext as the four affine coordinates.
func (z *Ciphertext) MarshalJSON() ([]byte, error) {
	coords := z.coords()
	return json.Marshal(ciphertextJSON{
		C1: [2]*types.BigInt{(*types.BigInt)(coords[0]), (*types.BigInt)(coords[1])},
		C2: [2]*types.BigInt{(*types.BigInt)(coords[2]), (*types.BigInt)(coords[3])},
	})
}

func (z *Ciphertext) UnmarshalJSON(data []byte) error {
	aux := ciphertextJSON{}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	for _, c := range append(aux.C1[:], aux.C2[:]...) {
		if c == nil {
			return fmt.Errorf("missing ciphertext coordinate")
		}
	}
	z.C1.X.SetBigInt(aux.C1[0].MathBigInt())
	z.C1.Y.SetBigInt(aux.C1[1].MathBigInt())
	z.C2.X.SetBigInt(aux.C2[0].MathBigInt())
	z.C2.Y.SetBigInt(aux.C2[1].MathBigInt())
	return nil
}

// String returns a short hex representation of the ciphertext.
func (z *Ciphertext) String() string {
	return fmt.Sprintf("%x", z.Serialize())
}

func (z *Ciphertext) coords() [4]*big.Int {
	return [4]*big.Int{
		z.C1.X.BigInt(new(big.Int)),
		z.C1.Y.BigInt(new(big.Int)),
		z.C2.X.BigInt(new(big.Int)),
		z.C2.Y.BigInt(new(big.Int)),
	}
}
