// Package accesscontrol is the core of the role-manager SDK: a facade that
// binds one deployed AccessControl/Ownable-style contract, detects its
// capabilities, reads role state, and constructs the mutations that the
// session state machines drive.
package accesscontrol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/exp/maps"

	"github.com/pilacorp/go-rolemanager-sdk/accesscontrol/capability"
	"github.com/pilacorp/go-rolemanager-sdk/accesscontrol/config"
	"github.com/pilacorp/go-rolemanager-sdk/accesscontrol/contract"
	"github.com/pilacorp/go-rolemanager-sdk/accesscontrol/schema"
	"github.com/pilacorp/go-rolemanager-sdk/accesscontrol/session"
	"github.com/pilacorp/go-rolemanager-sdk/accesscontrol/signer"
)

// ErrWalletNotConnected is returned by mutations invoked without a signer.
var ErrWalletNotConnected = errors.New("no wallet connected, please connect a wallet and try again")

// CapabilityDetector fetches the capability snapshot of the bound contract.
// *capability.Detector implements it.
type CapabilityDetector interface {
	Detect(ctx context.Context) (capability.Capabilities, error)
}

// contractReader is the read surface RoleSnapshot needs from the chain
// adapter. *contract.Contract implements it.
type contractReader interface {
	Address() string
	Owner(ctx context.Context) (string, error)
	PendingOwner(ctx context.Context) (string, error)
	DefaultAdmin(ctx context.Context) (string, error)
	PendingDefaultAdmin(ctx context.Context) (*contract.PendingAdminTransfer, error)
	GetRoleAdmin(ctx context.Context, roleID string) (string, error)
	HasRole(ctx context.Context, roleID, account string) (bool, error)
	RoleMembers(ctx context.Context, roleID string) ([]string, error)
}

// RoleManager coordinates role management for one contract.
//
// It is constructed explicitly and passed by reference to every consumer;
// there is no ambient shared state between managers.
type RoleManager struct {
	cfg        *config.Config
	contract   *contract.Contract
	reader     contractReader
	detector   CapabilityDetector
	validator  *schema.Validator
	signer     signer.SignerProvider
	store      Store
	knownRoles []RoleDefinition
}

// Option configures a RoleManager.
type Option func(*RoleManager)

// WithSigner attaches the connected wallet.
func WithSigner(s signer.SignerProvider) Option {
	return func(m *RoleManager) { m.signer = s }
}

// WithStore attaches the contract store used by AddContract.
func WithStore(s Store) Option {
	return func(m *RoleManager) { m.store = s }
}

// WithValidator overrides the default registration metadata validator.
func WithValidator(v *schema.Validator) Option {
	return func(m *RoleManager) { m.validator = v }
}

// WithDetector overrides the default capability detector.
func WithDetector(d CapabilityDetector) Option {
	return func(m *RoleManager) { m.detector = d }
}

// WithKnownRoles declares the roles to track beyond DEFAULT_ADMIN_ROLE.
func WithKnownRoles(roles ...RoleDefinition) Option {
	return func(m *RoleManager) { m.knownRoles = roles }
}

// New creates a RoleManager for the contract named in cfg.
func New(cfg config.Config, opts ...Option) (*RoleManager, error) {
	resolved := config.New(cfg)

	c, err := contract.NewContract(resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to create contract client: %w", err)
	}

	m := &RoleManager{
		cfg:       resolved,
		contract:  c,
		reader:    c,
		detector:  capability.NewDetector(c),
		validator: schema.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// Contract exposes the underlying contract client.
func (m *RoleManager) Contract() *contract.Contract { return m.contract }

// ConnectedAddress returns the connected wallet address, or "" when no
// wallet is attached.
func (m *RoleManager) ConnectedAddress() string {
	if m.signer == nil {
		return ""
	}
	return strings.ToLower(m.signer.GetAddress())
}

// IsWalletConnected reports whether a signer is attached.
func (m *RoleManager) IsWalletConnected() bool { return m.signer != nil }

// Detect fetches the capability snapshot of the bound contract.
func (m *RoleManager) Detect(ctx context.Context) (capability.Capabilities, error) {
	return m.detector.Detect(ctx)
}

// -- Contract registration --

// AddContract validates the registration metadata, detects the contract's
// capabilities, and persists a record iff the contract is supported.
//
// Unsupported contracts return *UnsupportedContractError carrying the
// detected snapshot; nothing is written to the store in that case. A
// detection failure is returned as a plain error, never conflated with
// "detected but unsupported".
func (m *RoleManager) AddContract(ctx context.Context, metadata []byte) (*ContractRecord, error) {
	if m.store == nil {
		return nil, errors.New("no contract store configured")
	}

	if err := m.validator.Validate(metadata); err != nil {
		return nil, fmt.Errorf("invalid registration metadata: %w", err)
	}

	var meta map[string]interface{}
	if err := json.Unmarshal(metadata, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse registration metadata: %w", err)
	}
	name, _ := meta["name"].(string)

	caps, err := m.detector.Detect(ctx)
	if err != nil {
		return nil, err
	}
	if !caps.Supported() {
		return nil, &UnsupportedContractError{
			Address:      m.contract.Address(),
			Capabilities: caps,
		}
	}

	rec := ContractRecord{
		Address:      m.contract.Address(),
		ChainID:      m.cfg.ChainID,
		Name:         name,
		Metadata:     meta,
		Capabilities: caps,
		AddedAt:      time.Now().UTC(),
	}
	if err := m.store.Put(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to persist contract record: %w", err)
	}

	return &rec, nil
}

// -- Page data --

// RoleSnapshot reads the current role and ownership state for rendering.
//
// caps steers how membership is resolved: enumerable contracts list every
// holder, non-enumerable ones can only probe the connected wallet's own
// membership.
func (m *RoleManager) RoleSnapshot(ctx context.Context, caps capability.Capabilities) (*RoleSnapshot, error) {
	snap := &RoleSnapshot{
		ContractAddress:  m.reader.Address(),
		ConnectedAccount: m.ConnectedAddress(),
	}

	if caps.HasOwnable {
		owner, err := m.reader.Owner(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read owner: %w", err)
		}
		snap.Owner = owner
	}
	if caps.HasTwoStepOwnable {
		pending, err := m.reader.PendingOwner(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read pending owner: %w", err)
		}
		snap.PendingOwner = pending
	}

	if !caps.HasAccessControl {
		return snap, nil
	}

	// The accept-admin dialog needs the in-progress handover, so two-step
	// admin contracts get their admin state read up front.
	if caps.HasTwoStepAdmin {
		admin, err := m.reader.DefaultAdmin(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read default admin: %w", err)
		}
		snap.DefaultAdmin = admin

		pending, err := m.reader.PendingDefaultAdmin(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read pending default admin: %w", err)
		}
		snap.PendingAdmin = pending
	}

	defs := append([]RoleDefinition{{
		ID:           contract.DefaultAdminRoleID,
		Name:         "DEFAULT_ADMIN_ROLE",
		Description:  "Administers every other role on this contract.",
		SingleHolder: caps.HasTwoStepAdmin,
	}}, m.knownRoles...)

	for _, def := range defs {
		members, err := m.roleMembers(ctx, def.ID, caps)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve members of %s: %w", def.Name, err)
		}
		adminRole, err := m.reader.GetRoleAdmin(ctx, def.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to read admin role of %s: %w", def.Name, err)
		}
		snap.Roles = append(snap.Roles, session.RoleInfo{
			ID:           def.ID,
			Name:         def.Name,
			Description:  def.Description,
			AdminRoleID:  adminRole,
			Members:      members,
			SingleHolder: def.SingleHolder,
		})
	}

	return snap, nil
}

func (m *RoleManager) roleMembers(ctx context.Context, roleID string, caps capability.Capabilities) ([]string, error) {
	set := make(map[string]struct{})

	if caps.HasEnumerableRoles {
		members, err := m.reader.RoleMembers(ctx, roleID)
		if err != nil {
			return nil, err
		}
		for _, member := range members {
			set[strings.ToLower(member)] = struct{}{}
		}
	} else if connected := m.ConnectedAddress(); connected != "" {
		// Non-enumerable contracts can only answer point queries.
		has, err := m.reader.HasRole(ctx, roleID, connected)
		if err != nil {
			return nil, err
		}
		if has {
			set[connected] = struct{}{}
		}
	}

	members := maps.Keys(set)
	sort.Strings(members)
	return members, nil
}

// NewRoleSession opens a manage-roles dialog session for the given target
// account over a previously fetched snapshot.
func (m *RoleManager) NewRoleSession(snap *RoleSnapshot, account string) *session.RoleSession {
	return session.NewRoleSession(snap.Roles, account, snap.ConnectedAccount)
}

// -- Mutations --

// GrantRoleArgs are the inputs of a grant-role mutation.
type GrantRoleArgs struct {
	RoleID  string
	Account string
}

// RevokeRoleArgs are the inputs of a revoke-role mutation.
type RevokeRoleArgs struct {
	RoleID  string
	Account string
}

// TransferOwnershipArgs are the inputs of a transfer-ownership mutation.
type TransferOwnershipArgs struct {
	NewOwner string
}

// BeginAdminTransferArgs are the inputs of a begin-default-admin-transfer
// mutation.
type BeginAdminTransferArgs struct {
	NewAdmin string
}

// GrantRoleMutation returns the mutation behind the grant branch of the
// manage-roles dialog. Args: GrantRoleArgs.
func (m *RoleManager) GrantRoleMutation() session.Mutation {
	return session.MutationFunc(func(ctx context.Context, args any, report session.Progress) (any, error) {
		a, ok := args.(GrantRoleArgs)
		if !ok {
			return nil, fmt.Errorf("grant role: unexpected args type %T", args)
		}
		return m.executeTx(ctx, report, func(nonce uint64) (*contract.Transaction, error) {
			return m.contract.GrantRoleTx(ctx, m.signer, a.RoleID, a.Account, nonce)
		})
	})
}

// RevokeRoleMutation returns the mutation behind the revoke branch of the
// manage-roles dialog. Args: RevokeRoleArgs.
func (m *RoleManager) RevokeRoleMutation() session.Mutation {
	return session.MutationFunc(func(ctx context.Context, args any, report session.Progress) (any, error) {
		a, ok := args.(RevokeRoleArgs)
		if !ok {
			return nil, fmt.Errorf("revoke role: unexpected args type %T", args)
		}
		return m.executeTx(ctx, report, func(nonce uint64) (*contract.Transaction, error) {
			return m.contract.RevokeRoleTx(ctx, m.signer, a.RoleID, a.Account, nonce)
		})
	})
}

// TransferOwnershipMutation returns the mutation behind the
// transfer-ownership dialog. Args: TransferOwnershipArgs.
func (m *RoleManager) TransferOwnershipMutation() session.Mutation {
	return session.MutationFunc(func(ctx context.Context, args any, report session.Progress) (any, error) {
		a, ok := args.(TransferOwnershipArgs)
		if !ok {
			return nil, fmt.Errorf("transfer ownership: unexpected args type %T", args)
		}
		return m.executeTx(ctx, report, func(nonce uint64) (*contract.Transaction, error) {
			return m.contract.TransferOwnershipTx(ctx, m.signer, a.NewOwner, nonce)
		})
	})
}

// AcceptOwnershipMutation returns the mutation behind the accept-ownership
// dialog. It takes no args.
func (m *RoleManager) AcceptOwnershipMutation() session.Mutation {
	return session.MutationFunc(func(ctx context.Context, args any, report session.Progress) (any, error) {
		return m.executeTx(ctx, report, func(nonce uint64) (*contract.Transaction, error) {
			return m.contract.AcceptOwnershipTx(ctx, m.signer, nonce)
		})
	})
}

// BeginAdminTransferMutation returns the mutation proposing a two-step
// default-admin handover. Args: BeginAdminTransferArgs.
func (m *RoleManager) BeginAdminTransferMutation() session.Mutation {
	return session.MutationFunc(func(ctx context.Context, args any, report session.Progress) (any, error) {
		a, ok := args.(BeginAdminTransferArgs)
		if !ok {
			return nil, fmt.Errorf("begin admin transfer: unexpected args type %T", args)
		}
		return m.executeTx(ctx, report, func(nonce uint64) (*contract.Transaction, error) {
			return m.contract.BeginDefaultAdminTransferTx(ctx, m.signer, a.NewAdmin, nonce)
		})
	})
}

// AcceptAdminTransferMutation returns the mutation behind the accept-admin
// dialog. It takes no args.
func (m *RoleManager) AcceptAdminTransferMutation() session.Mutation {
	return session.MutationFunc(func(ctx context.Context, args any, report session.Progress) (any, error) {
		return m.executeTx(ctx, report, func(nonce uint64) (*contract.Transaction, error) {
			return m.contract.AcceptDefaultAdminTransferTx(ctx, m.signer, nonce)
		})
	})
}

// executeTx runs the shared build -> sign -> submit -> wait pipeline behind
// every mutation, reporting progress along the way.
func (m *RoleManager) executeTx(ctx context.Context, report session.Progress, build func(nonce uint64) (*contract.Transaction, error)) (any, error) {
	if m.signer == nil {
		return nil, ErrWalletNotConnected
	}

	report(session.TxStatusSigning, "")
	nonce, err := m.contract.GetNonce(ctx, m.signer.GetAddress())
	if err != nil {
		return nil, err
	}

	tx, err := build(nonce)
	if err != nil {
		return nil, err
	}

	hash, err := m.contract.SubmitTx(ctx, tx)
	if err != nil {
		return nil, err
	}
	report(session.TxStatusSubmitted, hash)

	receipt, err := m.contract.WaitMined(ctx, tx)
	if err != nil {
		return nil, err
	}
	report(session.TxStatusMined, hash)

	return &OperationResult{
		TxHash:      hash,
		BlockNumber: receipt.BlockNumber.Uint64(),
	}, nil
}
