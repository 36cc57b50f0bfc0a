package main

import (
	"context"
	"fmt"
	"log"

	rolemanager "github.com/pilacorp/go-rolemanager-sdk"
	"github.com/pilacorp/go-rolemanager-sdk/accesscontrol"
	"github.com/pilacorp/go-rolemanager-sdk/accesscontrol/config"
	"github.com/pilacorp/go-rolemanager-sdk/accesscontrol/contract"
	"github.com/pilacorp/go-rolemanager-sdk/accesscontrol/session"
	"github.com/pilacorp/go-rolemanager-sdk/accesscontrol/signer"
)

// Grant Role Flow
//
// In this example:
// - A backend service holds the admin wallet of an AccessControl contract
// - The service:
//   + Registers the contract (metadata validation + capability detection)
//   + Reads the current role state
//   + Grants MINTER_ROLE to a target account and waits for inclusion

func main() {
	ctx := context.Background()

	// ========================================
	// STEP 1: Initialize Admin Signer
	// ========================================
	fmt.Println("=== Grant Role Flow ===")
	fmt.Println("Step 1: Initialize Admin Signer...")

	adminPrivateKey := "0xdd6eef5f9579724bf2f66f42ffabfa4246f3313c04beb575dfe00b51cb13ff47"
	adminSigner, err := signer.NewDefaultProvider(adminPrivateKey)
	if err != nil {
		log.Fatalf("Failed to create admin signer: %v", err)
	}

	fmt.Printf("Admin Address: %s\n", adminSigner.GetAddress())
	fmt.Println("✓ Admin Signer initialized")

	// ========================================
	// STEP 2: Initialize Role Manager
	// ========================================
	fmt.Println("Step 2: Initialize Role Manager...")

	store := rolemanager.NewContractStore()
	manager, err := accesscontrol.New(
		config.Config{
			RPCURL:          "https://rpc-testnet.pila.vn",
			ChainID:         6789,
			ContractAddress: "0x75e7b09a24bce5a921babe27b62ec7bfe2230d6a",
		},
		accesscontrol.WithSigner(adminSigner),
		accesscontrol.WithStore(store),
		accesscontrol.WithKnownRoles(accesscontrol.RoleDefinition{
			ID:          contract.ComputeRoleID("MINTER_ROLE"),
			Name:        "MINTER_ROLE",
			Description: "Can mint new tokens.",
		}),
	)
	if err != nil {
		log.Fatalf("Failed to initialize role manager: %v", err)
	}

	fmt.Println("✓ Role Manager initialized")

	// ========================================
	// STEP 3: Register Contract (detects capabilities)
	// ========================================
	fmt.Println("Step 3: Register contract...")

	metadata := []byte(`{
		"name": "Example Token",
		"description": "ERC-20 token with role-based minting",
		"tags": ["token", "example"]
	}`)

	record, err := manager.AddContract(ctx, metadata)
	if err != nil {
		log.Fatalf("Failed to register contract: %v", err)
	}

	fmt.Printf("Detected capabilities: %s\n", record.Capabilities.Summary())
	fmt.Println("✓ Contract registered")

	// ========================================
	// STEP 4: Read Current Role State
	// ========================================
	fmt.Println("Step 4: Read current role state...")

	snapshot, err := manager.RoleSnapshot(ctx, record.Capabilities)
	if err != nil {
		log.Fatalf("Failed to read role snapshot: %v", err)
	}

	for _, role := range snapshot.Roles {
		fmt.Printf("  %s: %d member(s)\n", role.Name, len(role.Members))
	}
	fmt.Println("✓ Role state loaded")

	// ========================================
	// STEP 5: Grant MINTER_ROLE
	// ========================================
	fmt.Println("Step 5: Grant MINTER_ROLE...")

	result, err := manager.GrantRoleMutation().Mutate(ctx, accesscontrol.GrantRoleArgs{
		RoleID:  contract.ComputeRoleID("MINTER_ROLE"),
		Account: "0x36e4418dafb9d1e5fff7408f5a57981e240c8f8e",
	}, func(status session.TxStatus, details string) {
		fmt.Printf("  status: %s %s\n", status, details)
	})
	if err != nil {
		log.Fatalf("Failed to grant role: %v", err)
	}

	op := result.(*accesscontrol.OperationResult)
	fmt.Printf("✓ Role granted! Tx: %s (block %d)\n", op.TxHash, op.BlockNumber)
}
