// Package contract provides functionality for interacting with
// OpenZeppelin-style AccessControl and Ownable smart contracts.
//
// This package handles:
//   - Building signed raw transactions for role and ownership mutations
//   - Querying access-control state (role membership, owner, pending owner)
//   - ERC-165 interface probing used by capability detection
//
// The SDK does not submit transactions implicitly. Builders return raw
// transactions; submission happens only through an explicit SubmitTx call.
package contract

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/big"
	"net/http"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/ethereum/go-ethereum/rpc"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/pilacorp/go-rolemanager-sdk/accesscontrol/config"
	"github.com/pilacorp/go-rolemanager-sdk/accesscontrol/signer"
)

//go:embed access_control_abi.json
var acABIJSON []byte

var (
	parsedABI    abi.ABI
	parseABIOnce sync.Once
	errParseABI  error
)

// loadABI loads and parses the combined AccessControl/Ownable ABI exactly once.
//
// The ABI is embedded at compile time and parsed lazily on first use.
// Returns the parsed ABI or an error if parsing fails.
func loadABI() (abi.ABI, error) {
	parseABIOnce.Do(func() {
		type hardhatArtifact struct {
			ABI json.RawMessage `json:"abi"`
		}
		var artifact hardhatArtifact
		if err := json.Unmarshal(acABIJSON, &artifact); err != nil {
			errParseABI = fmt.Errorf("failed to unmarshal artifact JSON: %w", err)
			return
		}
		parsedABI, errParseABI = abi.JSON(strings.NewReader(string(artifact.ABI)))
	})

	return parsedABI, errParseABI
}

// Contract is a client for one deployed access-control contract.
//
// The RPC client is optional. If not available, read operations and
// submission will fail but transaction building still works with manual
// nonce values.
type Contract struct {
	contract  *bind.BoundContract
	rpcClient *ethclient.Client
	cfg       *config.Config
}

// NewContract creates a new Contract client.
//
// The config must contain a valid contract address and chain ID. The RPC URL
// is optional but required for read operations and transaction submission.
// If RPC connection fails, the client is still created but those operations
// will fail.
func NewContract(cfg *config.Config) (*Contract, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !common.IsHexAddress(cfg.ContractAddress) {
		return nil, fmt.Errorf("invalid contract address: %s", cfg.ContractAddress)
	}

	var client *ethclient.Client
	httpClient := &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	rpcClient, err := rpc.DialOptions(context.Background(), cfg.RPCURL, rpc.WithHTTPClient(httpClient))
	if err != nil {
		// ignore error when connect RPC fail.
		log.Println("failed to init RPC client, some features may not work:", err.Error())
	} else {
		client = ethclient.NewClient(rpcClient)
	}

	contractABI, err := loadABI()
	if err != nil {
		return nil, err
	}

	contract := bind.NewBoundContract(common.HexToAddress(cfg.ContractAddress), contractABI, client, client, client)

	return &Contract{
		contract:  contract,
		rpcClient: client,
		cfg:       cfg,
	}, nil
}

// Address returns the bound contract address.
func (e *Contract) Address() string {
	return strings.ToLower(common.HexToAddress(e.cfg.ContractAddress).Hex())
}

// HasLogAccess reports whether an RPC endpoint capable of serving event logs
// is attached.
func (e *Contract) HasLogAccess() bool {
	return e.rpcClient != nil
}

// -- Transaction builders --

// GrantRoleTx creates a signed raw transaction calling grantRole.
//
// roleID is the bytes32 role identifier in hex format.
// account is the address the role is granted to.
// The transaction is signed by txSigner and NOT submitted.
func (e *Contract) GrantRoleTx(ctx context.Context, txSigner signer.SignerProvider, roleID, account string, nonce uint64) (*Transaction, error) {
	role, err := hexToBytes32(roleID)
	if err != nil {
		return nil, fmt.Errorf("invalid role ID: %w", err)
	}
	target, err := parseAddress(account)
	if err != nil {
		return nil, err
	}

	return e.transact(ctx, txSigner, nonce, "grantRole", role, target)
}

// RevokeRoleTx creates a signed raw transaction calling revokeRole.
func (e *Contract) RevokeRoleTx(ctx context.Context, txSigner signer.SignerProvider, roleID, account string, nonce uint64) (*Transaction, error) {
	role, err := hexToBytes32(roleID)
	if err != nil {
		return nil, fmt.Errorf("invalid role ID: %w", err)
	}
	target, err := parseAddress(account)
	if err != nil {
		return nil, err
	}

	return e.transact(ctx, txSigner, nonce, "revokeRole", role, target)
}

// RenounceRoleTx creates a signed raw transaction calling renounceRole for
// the signer's own account.
func (e *Contract) RenounceRoleTx(ctx context.Context, txSigner signer.SignerProvider, roleID string, nonce uint64) (*Transaction, error) {
	role, err := hexToBytes32(roleID)
	if err != nil {
		return nil, fmt.Errorf("invalid role ID: %w", err)
	}

	return e.transact(ctx, txSigner, nonce, "renounceRole", role, common.HexToAddress(txSigner.GetAddress()))
}

// TransferOwnershipTx creates a signed raw transaction calling
// transferOwnership. On two-step Ownable contracts this only proposes the
// handover; the recipient must accept it separately.
func (e *Contract) TransferOwnershipTx(ctx context.Context, txSigner signer.SignerProvider, newOwner string, nonce uint64) (*Transaction, error) {
	target, err := parseAddress(newOwner)
	if err != nil {
		return nil, err
	}

	return e.transact(ctx, txSigner, nonce, "transferOwnership", target)
}

// AcceptOwnershipTx creates a signed raw transaction calling acceptOwnership.
// The signer must be the pending owner.
func (e *Contract) AcceptOwnershipTx(ctx context.Context, txSigner signer.SignerProvider, nonce uint64) (*Transaction, error) {
	return e.transact(ctx, txSigner, nonce, "acceptOwnership")
}

// BeginDefaultAdminTransferTx creates a signed raw transaction calling
// beginDefaultAdminTransfer on AccessControlDefaultAdminRules contracts.
func (e *Contract) BeginDefaultAdminTransferTx(ctx context.Context, txSigner signer.SignerProvider, newAdmin string, nonce uint64) (*Transaction, error) {
	target, err := parseAddress(newAdmin)
	if err != nil {
		return nil, err
	}

	return e.transact(ctx, txSigner, nonce, "beginDefaultAdminTransfer", target)
}

// AcceptDefaultAdminTransferTx creates a signed raw transaction calling
// acceptDefaultAdminTransfer. The signer must be the pending default admin.
func (e *Contract) AcceptDefaultAdminTransferTx(ctx context.Context, txSigner signer.SignerProvider, nonce uint64) (*Transaction, error) {
	return e.transact(ctx, txSigner, nonce, "acceptDefaultAdminTransfer")
}

// transact builds and signs a contract call with the shared transact opts.
func (e *Contract) transact(ctx context.Context, txSigner signer.SignerProvider, nonce uint64, method string, args ...interface{}) (*Transaction, error) {
	if txSigner == nil {
		return nil, errors.New("tx signer is required")
	}

	auth, err := e.getTransactOpts(ctx, txSigner, int64(nonce))
	if err != nil {
		return nil, err
	}

	tx, err := e.contract.Transact(auth, method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to generate %s Tx: %w", method, err)
	}

	return serializeTx(tx)
}

// -- Submission --

// SubmitTx broadcasts a previously built raw transaction.
//
// Requires a valid RPC client. Returns the transaction hash on acceptance.
func (e *Contract) SubmitTx(ctx context.Context, t *Transaction) (string, error) {
	tx, err := e.decodeTx(t)
	if err != nil {
		return "", err
	}
	if e.rpcClient == nil {
		return "", errors.New("RPC client is not initialized, please check RPC URL and try again")
	}

	if err := e.rpcClient.SendTransaction(ctx, tx); err != nil {
		return "", fmt.Errorf("failed to send transaction: %w", err)
	}

	return tx.Hash().Hex(), nil
}

// WaitMined blocks until the given transaction is included in a block.
//
// Returns an error if the transaction reverted on-chain.
func (e *Contract) WaitMined(ctx context.Context, t *Transaction) (*types.Receipt, error) {
	tx, err := e.decodeTx(t)
	if err != nil {
		return nil, err
	}
	if e.rpcClient == nil {
		return nil, errors.New("RPC client is not initialized, please check RPC URL and try again")
	}

	receipt, err := bind.WaitMined(ctx, e.rpcClient, tx)
	if err != nil {
		return nil, fmt.Errorf("failed waiting for transaction %s: %w", t.TxHash, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("transaction %s reverted", t.TxHash)
	}

	return receipt, nil
}

func (e *Contract) decodeTx(t *Transaction) (*types.Transaction, error) {
	if t == nil || t.TxHex == "" {
		return nil, errors.New("transaction is required")
	}
	raw, err := hex.DecodeString(strings.TrimPrefix(t.TxHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to decode transaction hex: %w", err)
	}
	tx := new(types.Transaction)
	if err := rlp.DecodeBytes(raw, tx); err != nil {
		return nil, fmt.Errorf("failed to decode transaction RLP: %w", err)
	}
	return tx, nil
}

// -- Read operations --

// HasRole reports whether account holds the given role.
//
// Requires a valid RPC client.
func (e *Contract) HasRole(ctx context.Context, roleID, account string) (bool, error) {
	role, err := hexToBytes32(roleID)
	if err != nil {
		return false, fmt.Errorf("invalid role ID: %w", err)
	}
	target, err := parseAddress(account)
	if err != nil {
		return false, err
	}

	out, err := e.call(ctx, "hasRole", role, target)
	if err != nil {
		return false, err
	}

	has, ok := out[0].(bool)
	if !ok {
		return false, fmt.Errorf("unexpected output type: %T", out[0])
	}
	return has, nil
}

// GetRoleAdmin returns the admin role identifier that controls the given role.
func (e *Contract) GetRoleAdmin(ctx context.Context, roleID string) (string, error) {
	role, err := hexToBytes32(roleID)
	if err != nil {
		return "", fmt.Errorf("invalid role ID: %w", err)
	}

	out, err := e.call(ctx, "getRoleAdmin", role)
	if err != nil {
		return "", err
	}

	admin, ok := out[0].([32]byte)
	if !ok {
		return "", fmt.Errorf("unexpected output type: %T", out[0])
	}
	return "0x" + hex.EncodeToString(admin[:]), nil
}

// GetRoleMemberCount returns the number of accounts holding the given role.
// Only available on AccessControlEnumerable contracts.
func (e *Contract) GetRoleMemberCount(ctx context.Context, roleID string) (uint64, error) {
	role, err := hexToBytes32(roleID)
	if err != nil {
		return 0, fmt.Errorf("invalid role ID: %w", err)
	}

	out, err := e.call(ctx, "getRoleMemberCount", role)
	if err != nil {
		return 0, err
	}

	count, ok := out[0].(*big.Int)
	if !ok {
		return 0, fmt.Errorf("unexpected output type: %T", out[0])
	}
	return count.Uint64(), nil
}

// GetRoleMember returns the role holder at the given index.
// Only available on AccessControlEnumerable contracts.
func (e *Contract) GetRoleMember(ctx context.Context, roleID string, index uint64) (string, error) {
	role, err := hexToBytes32(roleID)
	if err != nil {
		return "", fmt.Errorf("invalid role ID: %w", err)
	}

	out, err := e.call(ctx, "getRoleMember", role, new(big.Int).SetUint64(index))
	if err != nil {
		return "", err
	}

	member, ok := out[0].(common.Address)
	if !ok {
		return "", fmt.Errorf("unexpected output type: %T", out[0])
	}
	return strings.ToLower(member.Hex()), nil
}

// RoleMembers enumerates every holder of the given role.
// Only available on AccessControlEnumerable contracts.
func (e *Contract) RoleMembers(ctx context.Context, roleID string) ([]string, error) {
	count, err := e.GetRoleMemberCount(ctx, roleID)
	if err != nil {
		return nil, err
	}

	members := make([]string, 0, count)
	for i := uint64(0); i < count; i++ {
		member, err := e.GetRoleMember(ctx, roleID, i)
		if err != nil {
			return nil, err
		}
		members = append(members, member)
	}
	return members, nil
}

// Owner returns the current owner of an Ownable contract.
func (e *Contract) Owner(ctx context.Context) (string, error) {
	return e.addressCall(ctx, "owner")
}

// PendingOwner returns the proposed owner of a two-step Ownable contract.
// The zero address means no transfer is in progress.
func (e *Contract) PendingOwner(ctx context.Context) (string, error) {
	return e.addressCall(ctx, "pendingOwner")
}

// DefaultAdmin returns the current default admin of an
// AccessControlDefaultAdminRules contract.
func (e *Contract) DefaultAdmin(ctx context.Context) (string, error) {
	return e.addressCall(ctx, "defaultAdmin")
}

// PendingDefaultAdmin returns the in-progress default-admin transfer, if any.
// A zero NewAdmin address means no transfer is in progress.
func (e *Contract) PendingDefaultAdmin(ctx context.Context) (*PendingAdminTransfer, error) {
	out, err := e.call(ctx, "pendingDefaultAdmin")
	if err != nil {
		return nil, err
	}
	if len(out) < 2 {
		return nil, errors.New("contract returned incomplete data")
	}

	newAdmin, ok := out[0].(common.Address)
	if !ok {
		return nil, fmt.Errorf("unexpected output type: %T", out[0])
	}
	schedule, ok := out[1].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected output type: %T", out[1])
	}

	return &PendingAdminTransfer{
		NewAdmin: strings.ToLower(newAdmin.Hex()),
		Schedule: schedule,
	}, nil
}

// SupportsInterface performs an ERC-165 probe for the given interface ID.
func (e *Contract) SupportsInterface(ctx context.Context, interfaceID [4]byte) (bool, error) {
	out, err := e.call(ctx, "supportsInterface", interfaceID)
	if err != nil {
		return false, err
	}

	supported, ok := out[0].(bool)
	if !ok {
		return false, fmt.Errorf("unexpected output type: %T", out[0])
	}
	return supported, nil
}

// IsContract reports whether code is deployed at the bound address.
//
// Requires a valid RPC client.
func (e *Contract) IsContract(ctx context.Context) (bool, error) {
	if e.rpcClient == nil {
		return false, errors.New("RPC client is not initialized, please check RPC URL and try again")
	}

	code, err := e.rpcClient.CodeAt(ctx, common.HexToAddress(e.cfg.ContractAddress), nil)
	if err != nil {
		return false, fmt.Errorf("failed to fetch contract code: %w", err)
	}
	return len(code) > 0, nil
}

// GetNonce retrieves the current transaction nonce for an address.
//
// Requires a valid RPC client.
func (e *Contract) GetNonce(ctx context.Context, address string) (uint64, error) {
	addr, err := parseAddress(address)
	if err != nil {
		return 0, err
	}
	if e.rpcClient == nil {
		return 0, errors.New("RPC client is not initialized, please check RPC URL and try again")
	}

	nonce, err := e.rpcClient.PendingNonceAt(ctx, addr)
	if err != nil {
		return 0, fmt.Errorf("failed to get nonce: %w", err)
	}

	return nonce, nil
}

// -- Event history --

// RoleEvent is a parsed RoleGranted or RoleRevoked log entry.
type RoleEvent struct {
	Granted     bool
	RoleID      string
	Account     string
	Sender      string
	BlockNumber uint64
	TxHash      string
}

// RoleEventHistory fetches past RoleGranted/RoleRevoked events for the bound
// contract in [fromBlock, toBlock]. A nil toBlock means the latest block.
//
// Requires a valid RPC client.
func (e *Contract) RoleEventHistory(ctx context.Context, fromBlock, toBlock *big.Int) ([]RoleEvent, error) {
	if e.rpcClient == nil {
		return nil, errors.New("RPC client is not initialized, please check RPC URL and try again")
	}

	contractABI, err := loadABI()
	if err != nil {
		return nil, err
	}
	grantedID := contractABI.Events["RoleGranted"].ID
	revokedID := contractABI.Events["RoleRevoked"].ID

	logs, err := e.rpcClient.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: fromBlock,
		ToBlock:   toBlock,
		Addresses: []common.Address{common.HexToAddress(e.cfg.ContractAddress)},
		Topics:    [][]common.Hash{{grantedID, revokedID}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch role event logs: %w", err)
	}

	events := make([]RoleEvent, 0, len(logs))
	for _, l := range logs {
		// role, account and sender are all indexed, so everything lives
		// in the topics.
		if len(l.Topics) < 4 {
			continue
		}
		events = append(events, RoleEvent{
			Granted:     l.Topics[0] == grantedID,
			RoleID:      l.Topics[1].Hex(),
			Account:     strings.ToLower(common.BytesToAddress(l.Topics[2].Bytes()).Hex()),
			Sender:      strings.ToLower(common.BytesToAddress(l.Topics[3].Bytes()).Hex()),
			BlockNumber: l.BlockNumber,
			TxHash:      l.TxHash.Hex(),
		})
	}
	return events, nil
}

// -- Helpers --

// call invokes a view method and returns the raw unpacked outputs.
func (e *Contract) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	if e.rpcClient == nil {
		return nil, errors.New("RPC client is not initialized, please check RPC URL and try again")
	}

	var out []interface{}
	if err := e.contract.Call(&bind.CallOpts{Context: ctx}, &out, method, args...); err != nil {
		return nil, fmt.Errorf("contract call failed: %w", err)
	}
	if len(out) == 0 {
		return nil, errors.New("contract returned no data")
	}
	return out, nil
}

func (e *Contract) addressCall(ctx context.Context, method string) (string, error) {
	out, err := e.call(ctx, method)
	if err != nil {
		return "", err
	}

	addr, ok := out[0].(common.Address)
	if !ok {
		return "", fmt.Errorf("unexpected output type: %T", out[0])
	}
	return strings.ToLower(addr.Hex()), nil
}

// getTransactOpts creates transaction authorization options for signing.
//
// This is an internal method that sets up the transaction signer function
// using EIP-155 signing with the configured chain ID.
func (e *Contract) getTransactOpts(ctx context.Context, provider signer.SignerProvider, nonce int64) (*bind.TransactOpts, error) {
	fromAddress := common.HexToAddress(provider.GetAddress())
	signerFn := func(addr common.Address, tx *types.Transaction) (*types.Transaction, error) {
		eip155Signer := types.NewEIP155Signer(big.NewInt(e.cfg.ChainID))
		h := eip155Signer.Hash(tx)
		sig, err := provider.Sign(h.Bytes())
		if err != nil {
			return nil, err
		}
		return tx.WithSignature(eip155Signer, sig)
	}

	return &bind.TransactOpts{
		From:     fromAddress,
		Nonce:    big.NewInt(nonce),
		Value:    big.NewInt(0),
		GasLimit: e.cfg.GasLimit,
		GasPrice: e.cfg.GasPrice,
		Context:  ctx,
		Signer:   signerFn,
		NoSend:   true, // We are returning the raw TX, not sending it immediately
	}, nil
}

// hexToBytes32 decodes a hex string into a 32-byte array.
//
// The input can include or omit the "0x" prefix.
// Returns an error if the hex string is invalid or not exactly 32 bytes.
func hexToBytes32(s string) ([32]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	b, err := hex.DecodeString(s)
	if err != nil {
		return [32]byte{}, err
	}
	if len(b) != 32 {
		return [32]byte{}, fmt.Errorf("length must be 32 bytes, got %d", len(b))
	}
	var out [32]byte
	copy(out[:], b)
	return out, nil
}

// parseAddress validates and parses a hex address.
func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address: %s", s)
	}
	return common.HexToAddress(s), nil
}

// serializeTx serializes a transaction to RLP-encoded hex format and computes
// its hash.
func serializeTx(tx *types.Transaction) (*Transaction, error) {
	var buf bytes.Buffer

	if err := rlp.Encode(&buf, tx); err != nil {
		return nil, fmt.Errorf("failed to serialize transaction: %w", err)
	}

	return &Transaction{
		TxHex:  hex.EncodeToString(buf.Bytes()),
		TxHash: tx.Hash().Hex(),
	}, nil
}
