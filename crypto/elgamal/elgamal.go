// Package elgamal implements additively homomorphic ElGamal encryption
// over the BN254 G1 group. Messages are encoded in the exponent, so two
// ciphertexts can be added point-wise and decryption recovers the sum by
// solving a (small) discrete logarithm with baby-step giant-step.
package elgamal

import (
	"crypto/rand"
	"fmt"
	"math"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// generator is the G1 base point in affine coordinates.
var generator bn254.G1Affine

func init() {
	_, _, generator, _ = bn254.Generators()
}

// RandK generates a random scalar in the group order, used as encryption
// randomness.
func RandK() (*big.Int, error) {
	k, err := rand.Int(rand.Reader, fr.Modulus())
	if err != nil {
		return nil, fmt.Errorf("failed to generate random k: %w", err)
	}
	return k, nil
}

// GenerateKey generates a new public/private ElGamal encryption key pair.
func GenerateKey() (publicKey *bn254.G1Affine, privateKey *big.Int, err error) {
	d, err := rand.Int(rand.Reader, fr.Modulus())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate private key scalar: %w", err)
	}
	if d.Sign() == 0 {
		d = big.NewInt(1) // avoid zero private keys
	}
	publicKey = new(bn254.G1Affine).ScalarMultiplicationBase(d)
	return publicKey, d, nil
}

// Encrypt encrypts a message under the given public key with fresh
// randomness. It returns the ciphertext and the randomness used, so the
// caller can build a proof of correct encryption from it.
func Encrypt(publicKey *bn254.G1Affine, msg *big.Int) (*Ciphertext, *big.Int, error) {
	k, err := RandK()
	if err != nil {
		return nil, nil, err
	}
	c, err := EncryptWithK(publicKey, msg, k)
	if err != nil {
		return nil, nil, err
	}
	return c, k, nil
}

// EncryptWithK encrypts a message under the given public key using the
// provided randomness k. The message is reduced into the scalar field.
func EncryptWithK(publicKey *bn254.G1Affine, msg, k *big.Int) (*Ciphertext, error) {
	if publicKey == nil {
		return nil, fmt.Errorf("nil public key")
	}
	m := new(big.Int).Mod(msg, fr.Modulus())
	z := new(Ciphertext)
	// C1 = k * G
	z.C1.ScalarMultiplicationBase(k)
	// s = k * pubKey (shared secret)
	var s bn254.G1Affine
	s.ScalarMultiplication(publicKey, k)
	// M = m * G, C2 = M + s
	z.C2.ScalarMultiplicationBase(m)
	z.C2.Add(&z.C2, &s)
	return z, nil
}

// Decrypt recovers the message scalar from the ciphertext using the
// private key. It computes M = C2 - d*C1 and then solves M = m*G for m
// in [0, maxMessage] with baby-step giant-step. It returns an error if
// the message is out of that range.
func Decrypt(privateKey *big.Int, z *Ciphertext, maxMessage uint64) (*big.Int, error) {
	var dC1 bn254.G1Affine
	dC1.ScalarMultiplication(&z.C1, privateKey)
	dC1.Neg(&dC1)

	var m bn254.G1Affine
	m.Add(&z.C2, &dC1) // M = C2 - d*C1

	msg, err := BabyStepGiantStep(&m, maxMessage)
	if err != nil {
		return nil, fmt.Errorf("failed to find discrete log: %w", err)
	}
	return msg, nil
}

// BabyStepGiantStep solves M = x*G for x in [0, maxMessage].
func BabyStepGiantStep(m *bn254.G1Affine, maxMessage uint64) (*big.Int, error) {
	mSqrt := uint64(math.Sqrt(float64(maxMessage))) + 1

	// precompute baby steps 0*G, 1*G, ..., (mSqrt-1)*G
	babySteps := make(map[string]uint64, mSqrt)
	var babyStep bn254.G1Affine // zero value is the point at infinity
	for j := uint64(0); j < mSqrt; j++ {
		babySteps[babyStep.String()] = j
		babyStep.Add(&babyStep, &generator)
	}

	// c = -(mSqrt * G)
	var c bn254.G1Affine
	c.ScalarMultiplicationBase(new(big.Int).SetUint64(mSqrt))
	c.Neg(&c)

	giantStep := *m
	for i := uint64(0); i <= mSqrt; i++ {
		if j, found := babySteps[giantStep.String()]; found {
			return new(big.Int).SetUint64(i*mSqrt + j), nil
		}
		giantStep.Add(&giantStep, &c)
	}
	return nil, fmt.Errorf("message out of range for baby-step giant-step search")
}

// CheckK verifies that the randomness k was used to produce the
// ciphertext, i.e. that C1 == k*G. It does not require the private key
// nor reveal the message, which makes it usable as a proof that the
// submitter knows the encryption randomness of the ciphertext.
func CheckK(z *Ciphertext, k *big.Int) bool {
	var kg bn254.G1Affine
	kg.ScalarMultiplicationBase(k)
	return kg.Equal(&z.C1)
}
