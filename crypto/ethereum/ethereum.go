// Package ethereum provides the signing keys and signature helpers used
// to identify callers by their Ethereum address.
package ethereum

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/vocdoni/prediction-tally/util"
)

// SignatureLength is the size in bytes of an ECDSA signature with the
// recovery id appended.
const SignatureLength = 65

// SignKeys holds an ECDSA key pair identifying one caller.
type SignKeys struct {
	Private *ecdsa.PrivateKey
}

// NewSignKeys creates an empty SignKeys. Call Generate or AddHexKey to
// populate it.
func NewSignKeys() *SignKeys {
	return &SignKeys{}
}

// Generate creates a fresh random key pair.
func (k *SignKeys) Generate() error {
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		return fmt.Errorf("could not generate key: %w", err)
	}
	k.Private = key
	return nil
}

// AddHexKey imports a private key from its hex representation.
func (k *SignKeys) AddHexKey(privHex string) error {
	key, err := ethcrypto.HexToECDSA(util.TrimHex(privHex))
	if err != nil {
		return fmt.Errorf("could not import key: %w", err)
	}
	k.Private = key
	return nil
}

// HexString returns the compressed public key and the private key as hex
// strings.
func (k *SignKeys) HexString() (string, string) {
	pub := fmt.Sprintf("%x", ethcrypto.CompressPubkey(&k.Private.PublicKey))
	priv := fmt.Sprintf("%x", ethcrypto.FromECDSA(k.Private))
	return pub, priv
}

// Address returns the Ethereum address derived from the public key.
func (k *SignKeys) Address() common.Address {
	return ethcrypto.PubkeyToAddress(k.Private.PublicKey)
}

// SignEthereum signs a message using the Ethereum personal-message
// prefix, so signatures are interchangeable with common wallets.
func (k *SignKeys) SignEthereum(message []byte) ([]byte, error) {
	if k.Private == nil {
		return nil, fmt.Errorf("no private key available")
	}
	return ethcrypto.Sign(HashEthereumMessage(message), k.Private)
}

// HashEthereumMessage hashes a message with the Ethereum personal-message
// prefix.
func HashEthereumMessage(message []byte) []byte {
	prefix := fmt.Sprintf("\x19Ethereum Signed Message:\n%d", len(message))
	return ethcrypto.Keccak256(append([]byte(prefix), message...))
}

// AddrFromSignature recovers the address that signed the message with
// SignEthereum. It accepts recovery ids in both the 0/1 and 27/28
// conventions.
func AddrFromSignature(message, signature []byte) (common.Address, error) {
	if len(signature) != SignatureLength {
		return common.Address{}, fmt.Errorf("invalid signature length %d", len(signature))
	}
	sig := make([]byte, SignatureLength)
	copy(sig, signature)
	if sig[64] >= 27 {
		sig[64] -= 27
	}
	pub, err := ethcrypto.SigToPub(HashEthereumMessage(message), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("could not recover public key: %w", err)
	}
	return ethcrypto.PubkeyToAddress(*pub), nil
}
