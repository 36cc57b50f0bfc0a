package signer

import (
	"crypto/ecdsa"
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignerProvider is the interface for the signer provider.
//
// It represents the connected wallet: the account that signs role-management
// transactions. Implementations may hold a raw private key, delegate to a
// hardware wallet, or forward to an external signing service.
type SignerProvider interface {
	Sign(payload []byte) ([]byte, error)
	GetAddress() string
}

// DefaultProvider is the default signer provider backed by a raw private key.
type DefaultProvider struct {
	priv *ecdsa.PrivateKey
}

// NewDefaultProvider creates a new default signer provider.
//
// privHex is the private key in hex format.
// Returns the signer provider or an error if the private key is invalid.
func NewDefaultProvider(privHex string) (SignerProvider, error) {
	priv, err := crypto.HexToECDSA(strings.TrimPrefix(privHex, "0x"))
	if err != nil {
		return nil, err
	}
	return &DefaultProvider{priv: priv}, nil
}

// NewRandomProvider creates a signer provider with a freshly generated
// secp256k1 key. Intended for tests and local development.
func NewRandomProvider() (SignerProvider, error) {
	priv, err := ecdsa.GenerateKey(btcec.S256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate private key: %w", err)
	}
	return &DefaultProvider{priv: priv}, nil
}

// Sign signs the payload.
//
// hashPayload is the hash of the payload to sign.
// Returns the signature or an error if the signature is invalid.
func (s *DefaultProvider) Sign(hashPayload []byte) ([]byte, error) {
	signature, err := crypto.Sign(hashPayload, s.priv)
	if err != nil {
		return nil, fmt.Errorf("failed to sign payload: %w", err)
	}

	if len(signature) != 65 {
		return nil, fmt.Errorf("invalid signature length: expected 65 bytes, got %d", len(signature))
	}

	return signature, nil
}

// GetAddress returns the address of the signer.
func (s *DefaultProvider) GetAddress() string {
	return strings.ToLower(crypto.PubkeyToAddress(s.priv.PublicKey).Hex())
}

// CompressedPublicKey returns the compressed public key of the signer as a
// 0x-prefixed hex string.
func (s *DefaultProvider) CompressedPublicKey() string {
	return "0x" + fmt.Sprintf("%x", crypto.CompressPubkey(&s.priv.PublicKey))
}
