package elgamal

import (
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	qt "github.com/frankban/quicktest"
)

func TestGenerateKey(t *testing.T) {
	publicKey, privateKey, err := GenerateKey()
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, publicKey, qt.Not(qt.IsNil))
	qt.Assert(t, privateKey, qt.Not(qt.IsNil))

	// publicKey must equal privateKey * G
	var testPoint bn254.G1Affine
	testPoint.ScalarMultiplicationBase(privateKey)
	qt.Assert(t, testPoint.Equal(publicKey), qt.IsTrue)
}

func TestEncryptDecrypt(t *testing.T) {
	publicKey, privateKey, err := GenerateKey()
	qt.Assert(t, err, qt.IsNil)

	maxMessage := uint64(1000)
	for _, m := range []uint64{0, 1, 42, 999} {
		msg := new(big.Int).SetUint64(m)
		z, k, err := Encrypt(publicKey, msg)
		qt.Assert(t, err, qt.IsNil)
		qt.Assert(t, k, qt.Not(qt.IsNil))

		recovered, err := Decrypt(privateKey, z, maxMessage)
		qt.Assert(t, err, qt.IsNil)
		qt.Assert(t, recovered.String(), qt.Equals, msg.String())
	}
}

func TestHomomorphicAdd(t *testing.T) {
	publicKey, privateKey, err := GenerateKey()
	qt.Assert(t, err, qt.IsNil)

	a, _, err := Encrypt(publicKey, big.NewInt(17))
	qt.Assert(t, err, qt.IsNil)
	b, _, err := Encrypt(publicKey, big.NewInt(25))
	qt.Assert(t, err, qt.IsNil)

	sum := new(Ciphertext).Add(a, b)
	recovered, err := Decrypt(privateKey, sum, 100)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, recovered.Uint64(), qt.Equals, uint64(42))

	// adding the zero-value ciphertext is a no-op
	sum2 := new(Ciphertext).Add(sum, new(Ciphertext))
	recovered, err = Decrypt(privateKey, sum2, 100)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, recovered.Uint64(), qt.Equals, uint64(42))
}

func TestCheckK(t *testing.T) {
	publicKey, _, err := GenerateKey()
	qt.Assert(t, err, qt.IsNil)

	z, k, err := Encrypt(publicKey, big.NewInt(3))
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, CheckK(z, k), qt.IsTrue)

	wrongK := new(big.Int).Add(k, big.NewInt(1))
	qt.Assert(t, CheckK(z, wrongK), qt.IsFalse)
}

func TestSerializeDeserialize(t *testing.T) {
	publicKey, privateKey, err := GenerateKey()
	qt.Assert(t, err, qt.IsNil)

	z, _, err := Encrypt(publicKey, big.NewInt(7))
	qt.Assert(t, err, qt.IsNil)

	data := z.Serialize()
	qt.Assert(t, len(data), qt.Equals, SizeCiphertext)

	restored := new(Ciphertext)
	qt.Assert(t, restored.Deserialize(data), qt.IsNil)
	qt.Assert(t, restored.C1.Equal(&z.C1), qt.IsTrue)
	qt.Assert(t, restored.C2.Equal(&z.C2), qt.IsTrue)

	recovered, err := Decrypt(privateKey, restored, 100)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, recovered.Uint64(), qt.Equals, uint64(7))

	// corrupted input must not deserialize
	qt.Assert(t, restored.Deserialize(data[:SizeCiphertext-1]), qt.Not(qt.IsNil))
	data[0] ^= 0xff
	qt.Assert(t, restored.Deserialize(data), qt.Not(qt.IsNil))
}

func TestDecryptOutOfRange(t *testing.T) {
	publicKey, privateKey, err := GenerateKey()
	qt.Assert(t, err, qt.IsNil)

	z, _, err := Encrypt(publicKey, big.NewInt(5000))
	qt.Assert(t, err, qt.IsNil)
	_, err = Decrypt(privateKey, z, 100)
	qt.Assert(t, err, qt.Not(qt.IsNil))
}
