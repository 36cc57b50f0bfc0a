package contract

import (
	"encoding/hex"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"
)

// DefaultAdminRoleID is the role identifier of DEFAULT_ADMIN_ROLE
// (bytes32 zero in every OpenZeppelin AccessControl deployment).
const DefaultAdminRoleID = "0x0000000000000000000000000000000000000000000000000000000000000000"

// Transaction represents a signed raw transaction ready for submission.
//
// The SDK never submits transactions implicitly. The TxHex must be handed to
// SubmitTx (or any other broadcaster) explicitly.
type Transaction struct {
	// TxHex is the RLP-encoded signed transaction in hex format.
	TxHex string `json:"txHex"`
	// TxHash is the hash of the signed transaction.
	TxHash string `json:"txHash"`
}

// PendingAdminTransfer describes an in-progress two-step default-admin
// handover, as reported by AccessControlDefaultAdminRules contracts.
type PendingAdminTransfer struct {
	NewAdmin string
	// Schedule is the unix timestamp after which the transfer can be accepted.
	Schedule *big.Int
}

// ComputeRoleID derives the bytes32 role identifier from a role name, the
// same way Solidity's keccak256("NAME") role constants are produced.
//
// The conventional DEFAULT_ADMIN_ROLE is not hashed; pass DefaultAdminRoleID
// directly for it.
func ComputeRoleID(name string) string {
	return "0x" + hex.EncodeToString(crypto.Keccak256([]byte(name)))
}
