package accesscontrol

import (
	"context"
	"fmt"
	"time"

	"github.com/pilacorp/go-rolemanager-sdk/accesscontrol/capability"
	"github.com/pilacorp/go-rolemanager-sdk/accesscontrol/contract"
	"github.com/pilacorp/go-rolemanager-sdk/accesscontrol/session"
)

// RoleDefinition names a role the manager should track on a contract.
//
// AccessControl roles are opaque bytes32 identifiers on-chain; the
// human-readable name and description exist only off-chain, so callers
// supply them at construction time.
type RoleDefinition struct {
	// ID is the bytes32 role identifier in hex format.
	ID string `json:"id"`
	// Name is the display name, conventionally the Solidity constant name
	// the identifier was hashed from (e.g. "MINTER_ROLE").
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	// SingleHolder marks roles transferred through a dedicated two-step
	// flow instead of grant/revoke.
	SingleHolder bool `json:"singleHolder,omitempty"`
}

// ContractRecord is a registered contract as persisted by the store,
// including the capability snapshot taken at registration time.
type ContractRecord struct {
	Address      string                  `json:"address"`
	ChainID      int64                   `json:"chainId"`
	Name         string                  `json:"name"`
	Metadata     map[string]interface{}  `json:"metadata,omitempty"`
	Capabilities capability.Capabilities `json:"capabilities"`
	AddedAt      time.Time               `json:"addedAt"`
}

// Store persists registered contracts. The SDK ships an in-memory
// implementation at the module root; durable storage is the caller's
// collaborator to supply.
type Store interface {
	Put(ctx context.Context, rec ContractRecord) error
	Get(ctx context.Context, address string) (ContractRecord, error)
	List(ctx context.Context) ([]ContractRecord, error)
	Delete(ctx context.Context, address string) error
}

// OperationResult identifies a completed on-chain mutation. Flows pass it to
// their OnSuccess callbacks without interpreting it.
type OperationResult struct {
	TxHash      string `json:"txHash"`
	BlockNumber uint64 `json:"blockNumber"`
}

// RoleSnapshot is the read-only page data a role-management dialog renders
// from: the role list with memberships, ownership state, and the connected
// wallet. Dialogs must treat it as immutable input; state changes come back
// only through a fresh snapshot.
type RoleSnapshot struct {
	ContractAddress  string
	ConnectedAccount string
	Owner            string
	PendingOwner     string
	// DefaultAdmin and PendingAdmin are populated only on contracts with
	// two-step admin rules; the accept-admin dialog renders from them.
	DefaultAdmin string
	PendingAdmin *contract.PendingAdminTransfer
	Roles        []session.RoleInfo
}

// UnsupportedContractError is returned when capability detection succeeded
// but found no interface the role manager can work with. It carries the
// detected snapshot so callers can show what WAS found. It is deliberately
// distinct from detection failing outright.
type UnsupportedContractError struct {
	Address      string
	Capabilities capability.Capabilities
}

func (e *UnsupportedContractError) Error() string {
	return fmt.Sprintf("contract %s is not supported: %s", e.Address, e.Capabilities.Summary())
}
