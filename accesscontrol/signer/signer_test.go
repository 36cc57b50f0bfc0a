package signer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testPrivHex = "0x8f49e4492f97ca6334e15117fc6c4c06f4652cac7fb27ed4ecc5ef9ea6ad5820"
	testAddress = "0x36e4418dafb9d1e5fff7408f5a57981e240c8f8e"
)

func TestNewDefaultProvider(t *testing.T) {
	t.Run("valid key", func(t *testing.T) {
		p, err := NewDefaultProvider(testPrivHex)
		require.NoError(t, err)
		assert.Equal(t, testAddress, p.GetAddress())
	})

	t.Run("key without 0x prefix", func(t *testing.T) {
		p, err := NewDefaultProvider(testPrivHex[2:])
		require.NoError(t, err)
		assert.Equal(t, testAddress, p.GetAddress())
	})

	t.Run("invalid key", func(t *testing.T) {
		_, err := NewDefaultProvider("not-a-key")
		assert.Error(t, err)
	})

	t.Run("empty key", func(t *testing.T) {
		_, err := NewDefaultProvider("")
		assert.Error(t, err)
	})
}

func TestNewRandomProvider(t *testing.T) {
	a, err := NewRandomProvider()
	require.NoError(t, err)
	b, err := NewRandomProvider()
	require.NoError(t, err)

	assert.NotEmpty(t, a.GetAddress())
	assert.NotEqual(t, a.GetAddress(), b.GetAddress())
}

func TestSign(t *testing.T) {
	p, err := NewDefaultProvider(testPrivHex)
	require.NoError(t, err)

	sig, err := p.Sign(ProofHash([]byte("challenge")))
	require.NoError(t, err)
	assert.Len(t, sig, 65)
}

func TestAccountProofRoundTrip(t *testing.T) {
	p, err := NewDefaultProvider(testPrivHex)
	require.NoError(t, err)
	pubHex := p.(*DefaultProvider).CompressedPublicKey()

	msg := []byte("prove control of the connected wallet")
	sig, err := SignAccountProof(p, msg)
	require.NoError(t, err)

	assert.NoError(t, VerifyAccountProof(testAddress, pubHex, msg, sig))
}

func TestVerifyAccountProofRejections(t *testing.T) {
	p, err := NewDefaultProvider(testPrivHex)
	require.NoError(t, err)
	pubHex := p.(*DefaultProvider).CompressedPublicKey()

	msg := []byte("prove control of the connected wallet")
	sig, err := SignAccountProof(p, msg)
	require.NoError(t, err)

	t.Run("tampered message", func(t *testing.T) {
		err := VerifyAccountProof(testAddress, pubHex, []byte("a different message"), sig)
		assert.ErrorContains(t, err, "invalid signature")
	})

	t.Run("tampered signature", func(t *testing.T) {
		tampered := make([]byte, len(sig))
		copy(tampered, sig)
		tampered[10] ^= 0xff
		err := VerifyAccountProof(testAddress, pubHex, msg, tampered)
		assert.ErrorContains(t, err, "invalid signature")
	})

	t.Run("wrong address", func(t *testing.T) {
		err := VerifyAccountProof("0xac4885a9d09229dd2ea233cd385a3171e0907906", pubHex, msg, sig)
		assert.ErrorContains(t, err, "does not match address")
	})

	t.Run("signature from another key", func(t *testing.T) {
		other, err := NewRandomProvider()
		require.NoError(t, err)
		otherSig, err := SignAccountProof(other, msg)
		require.NoError(t, err)

		err = VerifyAccountProof(testAddress, pubHex, msg, otherSig)
		assert.ErrorContains(t, err, "invalid signature")
	})

	t.Run("truncated signature", func(t *testing.T) {
		err := VerifyAccountProof(testAddress, pubHex, msg, sig[:40])
		assert.ErrorContains(t, err, "invalid signature length")
	})

	t.Run("malformed public key", func(t *testing.T) {
		err := VerifyAccountProof(testAddress, "0xzz", msg, sig)
		assert.ErrorContains(t, err, "failed to decode public key")
	})

	t.Run("nil signer", func(t *testing.T) {
		_, err := SignAccountProof(nil, msg)
		assert.ErrorContains(t, err, "signer is required")
	})
}
