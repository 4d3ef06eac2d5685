/**
 * @description
 * This file implements the role registry: a set-valued permission table
 * (role -> set of principals) gating the privileged custody operations.
 * Grants and revocations require the admin role, except that a principal may
 * always revoke a role from itself. The last-admin guard is enforced
 * centrally on every revocation path: the registry refuses to remove the
 * final admin or owner principal so the engine can never be locked out of
 * its own administration.
 *
 * @dependencies
 * - sort, sync: Standard Go libraries.
 * - internal/domain: For the Role type.
 */

package app

import (
	"sort"
	"sync"

	"github.com/transfa/custody-service/internal/domain"
)

// RoleRegistry maps roles to the set of principals holding them.
type RoleRegistry struct {
	mu      sync.RWMutex
	members map[domain.Role]map[string]struct{}
}

// NewRoleRegistry creates a registry with the bootstrap principal holding
// every role. A custody engine must never start without an admin.
func NewRoleRegistry(bootstrapAdmin string) *RoleRegistry {
	members := make(map[domain.Role]map[string]struct{}, len(domain.KnownRoles))
	for _, role := range domain.KnownRoles {
		members[role] = map[string]struct{}{bootstrapAdmin: {}}
	}
	return &RoleRegistry{members: members}
}

func knownRole(role domain.Role) bool {
	for _, known := range domain.KnownRoles {
		if role == known {
			return true
		}
	}
	return false
}

// Has reports whether the principal holds the role.
func (r *RoleRegistry) Has(role domain.Role, principal string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.members[role][principal]
	return ok
}

// Grant adds the principal to the role. The actor must hold the admin role.
func (r *RoleRegistry) Grant(actor string, role domain.Role, principal string) error {
	if !knownRole(role) {
		return ErrUnknownRole
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.members[domain.RoleAdmin][actor]; !ok {
		return ErrUnauthorized
	}
	r.members[role][principal] = struct{}{}
	return nil
}

// Revoke removes the principal from the role. The actor must hold the admin
// role unless it is revoking a role from itself. Revoking the last admin or
// owner principal fails with ErrLastAdminRevocation.
func (r *RoleRegistry) Revoke(actor string, role domain.Role, principal string) error {
	if !knownRole(role) {
		return ErrUnknownRole
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if actor != principal {
		if _, ok := r.members[domain.RoleAdmin][actor]; !ok {
			return ErrUnauthorized
		}
	}

	holders := r.members[role]
	if _, ok := holders[principal]; !ok {
		return nil
	}
	if (role == domain.RoleAdmin || role == domain.RoleOwner) && len(holders) == 1 {
		return ErrLastAdminRevocation
	}

	delete(holders, principal)
	return nil
}

// Members returns the principals holding a role, sorted for determinism.
func (r *RoleRegistry) Members(role domain.Role) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	principals := make([]string, 0, len(r.members[role]))
	for principal := range r.members[role] {
		principals = append(principals, principal)
	}
	sort.Strings(principals)
	return principals
}
