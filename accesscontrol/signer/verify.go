package signer

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	secpecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/ethereum/go-ethereum/crypto"
)

// Account proofs let a caller demonstrate control of the connected wallet
// before a role-management session is opened for it. The proof is a plain
// ECDSA signature over a hash of a caller-chosen challenge message.

// ProofHash hashes a challenge message for account-proof signing.
func ProofHash(msg []byte) []byte {
	h := sha256.Sum256(msg)
	return h[:]
}

// SignAccountProof signs a challenge message with the given signer.
//
// Returns the 65-byte [R || S || V] signature produced by the signer.
func SignAccountProof(s SignerProvider, msg []byte) ([]byte, error) {
	if s == nil {
		return nil, errors.New("signer is required")
	}
	return s.Sign(ProofHash(msg))
}

// VerifyAccountProof verifies that signature over msg was produced by the
// holder of pubHex, and that pubHex corresponds to addr.
//
// pubHex is the compressed public key in hex format (with or without 0x).
// signature must be at least 64 bytes ([R || S], recovery byte ignored).
func VerifyAccountProof(addr string, pubHex string, msg, signature []byte) error {
	pubBytes, err := hex.DecodeString(strings.TrimPrefix(pubHex, "0x"))
	if err != nil {
		return fmt.Errorf("failed to decode public key: %w", err)
	}
	pubKey, err := secp256k1.ParsePubKey(pubBytes)
	if err != nil {
		return fmt.Errorf("failed to parse public key: %w", err)
	}

	derived := strings.ToLower(crypto.PubkeyToAddress(*pubKey.ToECDSA()).Hex())
	if derived != strings.ToLower(addr) {
		return fmt.Errorf("public key does not match address %s", addr)
	}

	if len(signature) < 64 {
		return fmt.Errorf("invalid signature length: expected at least 64 bytes, got %d", len(signature))
	}

	var r, s secp256k1.ModNScalar
	if overflow := r.SetByteSlice(signature[:32]); overflow {
		return errors.New("invalid signature: R overflows curve order")
	}
	if overflow := s.SetByteSlice(signature[32:64]); overflow {
		return errors.New("invalid signature: S overflows curve order")
	}

	sig := secpecdsa.NewSignature(&r, &s)
	if !sig.Verify(ProofHash(msg), pubKey) {
		return errors.New("invalid signature")
	}

	return nil
}
