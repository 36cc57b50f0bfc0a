// Package capability detects which access-control interfaces a deployed
// contract exposes, and gates contract registration on the result.
//
// Detection combines ERC-165 supportsInterface probes with direct probe
// calls for the non-ERC-165 Ownable surface. A contract that answers neither
// probe set is "detected but unsupported", which is deliberately distinct
// from detection failing outright (no code at the address, RPC unreachable).
package capability

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
)

// ERC-165 interface identifiers published by OpenZeppelin.
var (
	// InterfaceIDERC165 is the ERC-165 self interface (0x01ffc9a7).
	InterfaceIDERC165 = [4]byte{0x01, 0xff, 0xc9, 0xa7}
	// InterfaceIDAccessControl is IAccessControl (0x7965db0b).
	InterfaceIDAccessControl = [4]byte{0x79, 0x65, 0xdb, 0x0b}
	// InterfaceIDAccessControlEnumerable is IAccessControlEnumerable (0x5a05180f).
	InterfaceIDAccessControlEnumerable = [4]byte{0x5a, 0x05, 0x18, 0x0f}
	// InterfaceIDAccessControlDefaultAdminRules is
	// IAccessControlDefaultAdminRules (0x31498786).
	InterfaceIDAccessControlDefaultAdminRules = [4]byte{0x31, 0x49, 0x87, 0x86}
)

// Capabilities is an immutable snapshot of the access-control features
// detected on a contract. It is fetched once per contract registration and
// used only as read-only gate input afterwards.
type Capabilities struct {
	HasOwnable         bool     `json:"hasOwnable"`
	HasTwoStepOwnable  bool     `json:"hasTwoStepOwnable"`
	HasAccessControl   bool     `json:"hasAccessControl"`
	HasTwoStepAdmin    bool     `json:"hasTwoStepAdmin"`
	HasEnumerableRoles bool     `json:"hasEnumerableRoles"`
	SupportsHistory    bool     `json:"supportsHistory"`
	Notes              []string `json:"notes,omitempty"`
}

// Supported reports whether the contract exposes at least one interface the
// role manager can work with.
func (c Capabilities) Supported() bool {
	return c.HasAccessControl || c.HasOwnable
}

// Summary renders the detected capabilities as a short diagnostic string.
func (c Capabilities) Summary() string {
	var parts []string
	if c.HasAccessControl {
		parts = append(parts, "AccessControl")
	}
	if c.HasEnumerableRoles {
		parts = append(parts, "enumerable roles")
	}
	if c.HasTwoStepAdmin {
		parts = append(parts, "two-step admin")
	}
	if c.HasOwnable {
		parts = append(parts, "Ownable")
	}
	if c.HasTwoStepOwnable {
		parts = append(parts, "two-step ownership")
	}
	if len(parts) == 0 {
		return "no supported interfaces"
	}
	return strings.Join(parts, ", ")
}

// Prober is the read surface capability detection needs from a contract
// client. *contract.Contract implements it.
type Prober interface {
	IsContract(ctx context.Context) (bool, error)
	SupportsInterface(ctx context.Context, interfaceID [4]byte) (bool, error)
	Owner(ctx context.Context) (string, error)
	PendingOwner(ctx context.Context) (string, error)
	HasLogAccess() bool
}

// Detector fetches capability snapshots for a bound contract.
type Detector struct {
	prober Prober
}

// NewDetector creates a Detector over the given contract client.
func NewDetector(p Prober) *Detector {
	return &Detector{prober: p}
}

// Detect probes the bound contract and returns its capability snapshot.
//
// Probes run concurrently. An individual probe failing (reverting, missing
// method) marks the capability absent and is recorded in Notes; Detect
// returns an error only when detection itself is impossible, e.g. no code at
// the address or the RPC endpoint unreachable.
func (d *Detector) Detect(ctx context.Context) (Capabilities, error) {
	deployed, err := d.prober.IsContract(ctx)
	if err != nil {
		return Capabilities{}, fmt.Errorf("capability detection failed: %w", err)
	}
	if !deployed {
		return Capabilities{}, fmt.Errorf("capability detection failed: no contract code at address")
	}

	var caps Capabilities
	notes := make([]string, 6)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		ok, err := d.prober.SupportsInterface(gctx, InterfaceIDAccessControl)
		if err != nil {
			notes[0] = "AccessControl probe: " + err.Error()
			return nil
		}
		caps.HasAccessControl = ok
		return nil
	})
	g.Go(func() error {
		ok, err := d.prober.SupportsInterface(gctx, InterfaceIDAccessControlEnumerable)
		if err != nil {
			notes[1] = "enumerable roles probe: " + err.Error()
			return nil
		}
		caps.HasEnumerableRoles = ok
		return nil
	})
	g.Go(func() error {
		ok, err := d.prober.SupportsInterface(gctx, InterfaceIDAccessControlDefaultAdminRules)
		if err != nil {
			notes[2] = "two-step admin probe: " + err.Error()
			return nil
		}
		caps.HasTwoStepAdmin = ok
		return nil
	})
	g.Go(func() error {
		owner, err := d.prober.Owner(gctx)
		if err != nil {
			notes[3] = "owner probe: " + err.Error()
			return nil
		}
		caps.HasOwnable = owner != ""
		return nil
	})
	g.Go(func() error {
		if _, err := d.prober.PendingOwner(gctx); err != nil {
			notes[4] = "pending owner probe: " + err.Error()
			return nil
		}
		caps.HasTwoStepOwnable = true
		return nil
	})

	if err := g.Wait(); err != nil {
		return Capabilities{}, fmt.Errorf("capability detection failed: %w", err)
	}

	// pendingOwner only means anything on a contract that is Ownable at all.
	if !caps.HasOwnable {
		caps.HasTwoStepOwnable = false
	}
	caps.SupportsHistory = d.prober.HasLogAccess()

	for _, n := range notes {
		if n != "" {
			caps.Notes = append(caps.Notes, n)
		}
	}

	return caps, nil
}
