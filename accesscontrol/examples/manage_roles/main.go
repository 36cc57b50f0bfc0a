package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/pilacorp/go-rolemanager-sdk/accesscontrol"
	"github.com/pilacorp/go-rolemanager-sdk/accesscontrol/config"
	"github.com/pilacorp/go-rolemanager-sdk/accesscontrol/contract"
	"github.com/pilacorp/go-rolemanager-sdk/accesscontrol/session"
	"github.com/pilacorp/go-rolemanager-sdk/accesscontrol/signer"
)

// Manage Roles Dialog Flow
//
// In this example:
// - The full dialog lifecycle is driven programmatically:
//   + A role session tracks the single pending toggle
//   + A flow runs the resulting mutation through its state machine
//   + The flow auto-closes shortly after success
// - This mirrors how a UI embeds the SDK: the session answers what to
//   render, the flow answers where the transaction is.

func main() {
	ctx := context.Background()

	// ========================================
	// STEP 1: Initialize Signer and Role Manager
	// ========================================
	fmt.Println("=== Manage Roles Dialog Flow ===")
	fmt.Println("Step 1: Initialize Role Manager...")

	adminSigner, err := signer.NewDefaultProvider("0xdd6eef5f9579724bf2f66f42ffabfa4246f3313c04beb575dfe00b51cb13ff47")
	if err != nil {
		log.Fatalf("Failed to create signer: %v", err)
	}

	minterRoleID := contract.ComputeRoleID("MINTER_ROLE")
	manager, err := accesscontrol.New(
		config.Config{
			RPCURL:          "https://rpc-testnet.pila.vn",
			ChainID:         6789,
			ContractAddress: "0x75e7b09a24bce5a921babe27b62ec7bfe2230d6a",
		},
		accesscontrol.WithSigner(adminSigner),
		accesscontrol.WithKnownRoles(accesscontrol.RoleDefinition{
			ID:   minterRoleID,
			Name: "MINTER_ROLE",
		}),
	)
	if err != nil {
		log.Fatalf("Failed to initialize role manager: %v", err)
	}

	fmt.Println("✓ Role Manager initialized")

	// ========================================
	// STEP 2: Detect Capabilities and Load Role State
	// ========================================
	fmt.Println("Step 2: Load role state...")

	caps, err := manager.Detect(ctx)
	if err != nil {
		log.Fatalf("Failed to detect capabilities: %v", err)
	}
	fmt.Printf("Capabilities: %s\n", caps.Summary())

	snapshot, err := manager.RoleSnapshot(ctx, caps)
	if err != nil {
		log.Fatalf("Failed to read role snapshot: %v", err)
	}
	fmt.Println("✓ Role state loaded")

	// ========================================
	// STEP 3: Open Dialog Session and Toggle a Role
	// ========================================
	fmt.Println("Step 3: Toggle MINTER_ROLE for target account...")

	targetAccount := "0x36e4418dafb9d1e5fff7408f5a57981e240c8f8e"
	dialog := manager.NewRoleSession(snapshot, targetAccount)

	if err := dialog.ToggleRole(minterRoleID); err != nil {
		log.Fatalf("Failed to toggle role: %v", err)
	}

	change := dialog.PendingChange()
	fmt.Printf("Pending change: %s %s\n", change.Type, change.RoleName)
	fmt.Printf("Submit button: %q (enabled: %v)\n", dialog.SubmitLabel(), dialog.CanSubmit(false))
	if dialog.ShowSelfRevokeWarning() {
		fmt.Println("Warning: you are about to revoke your own role!")
	}
	fmt.Println("✓ Dialog session ready")

	// ========================================
	// STEP 4: Submit the Change Through a Flow
	// ========================================
	fmt.Println("Step 4: Submit the change...")

	done := make(chan struct{})
	flow := session.NewFlow(
		manager.GrantRoleMutation(),
		session.WithOnSuccess(func(result any) {
			op := result.(*accesscontrol.OperationResult)
			fmt.Printf("✓ Transaction mined! Tx: %s (block %d)\n", op.TxHash, op.BlockNumber)
		}),
		session.WithOnClose(func() {
			fmt.Println("✓ Dialog closed automatically")
			close(done)
		}),
	)
	defer flow.Close()

	dialog.ClearPending()
	if err := flow.Submit(ctx, accesscontrol.GrantRoleArgs{
		RoleID:  change.RoleID,
		Account: targetAccount,
	}); err != nil {
		log.Fatalf("Failed to submit: %v", err)
	}

	// ========================================
	// STEP 5: Observe the Flow State Machine
	// ========================================
	fmt.Println("Step 5: Observe flow state...")

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
observe:
	for {
		select {
		case <-done:
			fmt.Println("✓ Flow complete")
			break observe
		case <-ticker.C:
			step := flow.Step()
			fmt.Printf("  step: %s\n", step)
			if step == session.StepError || step == session.StepCancelled {
				fmt.Printf("  message: %s\n", flow.Message())
				fmt.Println("=== Flow did not complete ===")
				return
			}
		}
	}

	// ========================================
	// STEP 6: Show Recent Role Event History
	// ========================================
	fmt.Println("Step 6: Show recent role events...")

	if !caps.SupportsHistory {
		fmt.Println("History not available on this endpoint, skipping")
		fmt.Println("=== Flow complete ===")
		return
	}

	events, err := manager.Contract().RoleEventHistory(ctx, nil, nil)
	if err != nil {
		log.Fatalf("Failed to fetch role events: %v", err)
	}
	for _, ev := range events {
		action := "revoked from"
		if ev.Granted {
			action = "granted to"
		}
		fmt.Printf("  block %d: role %s %s %s by %s\n",
			ev.BlockNumber, ev.RoleID, action, ev.Account, ev.Sender)
	}
	fmt.Println("=== Flow complete ===")
}
