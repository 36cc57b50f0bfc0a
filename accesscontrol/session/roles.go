package session

import (
	"fmt"
	"strings"
	"sync"
)

// ChangeType distinguishes the two role mutations a toggle can propose.
type ChangeType string

const (
	ChangeGrant  ChangeType = "grant"
	ChangeRevoke ChangeType = "revoke"
)

// PendingChange is the single role toggle a user has proposed but not yet
// submitted. At most one exists per session.
type PendingChange struct {
	Type     ChangeType
	RoleID   string
	RoleName string
}

// RoleInfo is one entry of the authoritative role list a session is built
// from: the role identity plus its current membership.
type RoleInfo struct {
	ID          string
	Name        string
	Description string
	// AdminRoleID is the role that administers this one, as reported by
	// getRoleAdmin.
	AdminRoleID string
	Members     []string
	// SingleHolder marks roles held by exactly one account and transferred
	// through a dedicated two-step flow (owner, default admin). These are
	// excluded from the toggle list.
	SingleHolder bool
}

// RoleItem is the per-role view state derived on demand from the
// authoritative list and the current pending change.
type RoleItem struct {
	RoleID             string
	RoleName           string
	IsChecked          bool
	IsPendingChange    bool
	OriginallyAssigned bool
}

// RoleSession enforces the one-proposed-change-at-a-time invariant for a
// manage-roles dialog scoped to a single target account.
//
// The role list handed to the constructor is treated as an immutable
// snapshot; membership changes only reach a session by constructing a new
// one after a refetch.
type RoleSession struct {
	roles     []RoleInfo
	account   string
	connected string

	mu      sync.Mutex
	pending *PendingChange
}

// NewRoleSession creates a session over the given role snapshot.
//
// account is the address whose memberships the dialog edits; connectedWallet
// is the signing wallet address, empty when no wallet is connected.
// Single-holder roles are dropped from the toggle list.
func NewRoleSession(roles []RoleInfo, account, connectedWallet string) *RoleSession {
	toggleable := make([]RoleInfo, 0, len(roles))
	for _, r := range roles {
		if r.SingleHolder {
			continue
		}
		toggleable = append(toggleable, r)
	}

	return &RoleSession{
		roles:     toggleable,
		account:   strings.ToLower(account),
		connected: strings.ToLower(connectedWallet),
	}
}

// ToggleRole flips the proposed state of one role.
//
// Toggling a role while a different role has a pending change silently
// reverts the earlier change; toggling a role back to its original
// assignment clears the pending change entirely.
func (s *RoleSession) ToggleRole(roleID string) error {
	role, ok := s.findRole(roleID)
	if !ok {
		return fmt.Errorf("unknown role: %s", roleID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	originally := s.originallyAssigned(role)

	// A pending change on a different role is discarded unconditionally.
	if s.pending != nil && s.pending.RoleID != role.ID {
		s.pending = nil
	}

	checked := originally
	if s.pending != nil {
		checked = !originally
	}
	desired := !checked

	if desired == originally {
		s.pending = nil
		return nil
	}

	change := &PendingChange{RoleID: role.ID, RoleName: role.Name, Type: ChangeGrant}
	if !desired {
		change.Type = ChangeRevoke
	}
	s.pending = change
	return nil
}

// PendingChange returns a copy of the current pending change, or nil.
func (s *RoleSession) PendingChange() *PendingChange {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return nil
	}
	c := *s.pending
	return &c
}

// ClearPending drops the pending change without reverting anything else.
// Called when a submit begins.
func (s *RoleSession) ClearPending() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
}

// RoleItems derives the per-role checkbox state for rendering.
func (s *RoleSession) RoleItems() []RoleItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]RoleItem, 0, len(s.roles))
	for _, r := range s.roles {
		originally := s.originallyAssigned(r)
		pendingHere := s.pending != nil && s.pending.RoleID == r.ID
		items = append(items, RoleItem{
			RoleID:             r.ID,
			RoleName:           r.Name,
			IsChecked:          originally != pendingHere,
			IsPendingChange:    pendingHere,
			OriginallyAssigned: originally,
		})
	}
	return items
}

// CanSubmit reports whether the submit control should be enabled.
// mutationPending is the in-flight state of the underlying mutation.
func (s *RoleSession) CanSubmit(mutationPending bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil && s.connected != "" && !mutationPending
}

// SubmitLabel returns the text for the submit control, or "" when there is
// no pending change and the control should be hidden.
func (s *RoleSession) SubmitLabel() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return ""
	}
	if s.pending.Type == ChangeRevoke {
		return "Revoke " + s.pending.RoleName
	}
	return "Grant " + s.pending.RoleName
}

// IsSelfAccount reports whether the dialog's target account is the connected
// wallet itself.
func (s *RoleSession) IsSelfAccount() bool {
	return s.connected != "" && s.account == s.connected
}

// ShowSelfRevokeWarning reports whether the pending change would revoke a
// role the connected wallet currently holds from itself.
func (s *RoleSession) ShowSelfRevokeWarning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil || s.pending.Type != ChangeRevoke {
		return false
	}
	if s.connected == "" || s.account != s.connected {
		return false
	}

	role, ok := s.findRole(s.pending.RoleID)
	if !ok {
		return false
	}
	return s.originallyAssigned(role)
}

// Reset clears the pending change, restoring every role item to its
// original assignment.
func (s *RoleSession) Reset() {
	s.ClearPending()
}

func (s *RoleSession) findRole(roleID string) (RoleInfo, bool) {
	for _, r := range s.roles {
		if strings.EqualFold(r.ID, roleID) {
			return r, true
		}
	}
	return RoleInfo{}, false
}

func (s *RoleSession) originallyAssigned(r RoleInfo) bool {
	for _, m := range r.Members {
		if strings.EqualFold(m, s.account) {
			return true
		}
	}
	return false
}
