package app

import (
	"errors"
	"testing"

	"github.com/transfa/custody-service/internal/domain"
)

func TestRegistryBootstrapHoldsAllRoles(t *testing.T) {
	registry := NewRoleRegistry("root")

	for _, role := range domain.KnownRoles {
		if !registry.Has(role, "root") {
			t.Fatalf("expected bootstrap principal to hold role %s", role)
		}
	}
	if registry.Has(domain.RoleAdmin, "stranger") {
		t.Fatal("expected stranger to hold no roles")
	}
}

func TestRegistryGrantRequiresAdmin(t *testing.T) {
	registry := NewRoleRegistry("root")

	if err := registry.Grant("stranger", domain.RolePauser, "alice"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for non-admin grant, got %v", err)
	}
	if err := registry.Grant("root", domain.RolePauser, "alice"); err != nil {
		t.Fatalf("expected admin grant to succeed, got %v", err)
	}
	if !registry.Has(domain.RolePauser, "alice") {
		t.Fatal("expected alice to hold pauser after grant")
	}
}

func TestRegistryRejectsUnknownRole(t *testing.T) {
	registry := NewRoleRegistry("root")

	if err := registry.Grant("root", domain.Role("superuser"), "alice"); !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole on grant, got %v", err)
	}
	if err := registry.Revoke("root", domain.Role("superuser"), "alice"); !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole on revoke, got %v", err)
	}
}

func TestRegistryRevoke(t *testing.T) {
	registry := NewRoleRegistry("root")
	if err := registry.Grant("root", domain.RoleExecutor, "alice"); err != nil {
		t.Fatalf("expected grant to succeed, got %v", err)
	}

	if err := registry.Revoke("bob", domain.RoleExecutor, "alice"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for non-admin revoke, got %v", err)
	}

	// Self-revocation requires no admin role.
	if err := registry.Revoke("alice", domain.RoleExecutor, "alice"); err != nil {
		t.Fatalf("expected self-revocation to succeed, got %v", err)
	}
	if registry.Has(domain.RoleExecutor, "alice") {
		t.Fatal("expected alice to no longer hold executor")
	}

	// Revoking a role the principal does not hold is a no-op.
	if err := registry.Revoke("root", domain.RoleExecutor, "alice"); err != nil {
		t.Fatalf("expected revoke of non-member to be a no-op, got %v", err)
	}
}

func TestRegistryLastAdminGuard(t *testing.T) {
	registry := NewRoleRegistry("root")

	if err := registry.Revoke("root", domain.RoleAdmin, "root"); !errors.Is(err, ErrLastAdminRevocation) {
		t.Fatalf("expected ErrLastAdminRevocation for last admin, got %v", err)
	}
	if err := registry.Revoke("root", domain.RoleOwner, "root"); !errors.Is(err, ErrLastAdminRevocation) {
		t.Fatalf("expected ErrLastAdminRevocation for last owner, got %v", err)
	}

	// With a second admin in place the original may step down.
	if err := registry.Grant("root", domain.RoleAdmin, "alice"); err != nil {
		t.Fatalf("expected grant to succeed, got %v", err)
	}
	if err := registry.Revoke("root", domain.RoleAdmin, "root"); err != nil {
		t.Fatalf("expected revoke with remaining admin to succeed, got %v", err)
	}
	if registry.Has(domain.RoleAdmin, "root") {
		t.Fatal("expected root to no longer hold admin")
	}

	// Pauser and executor roles carry no last-member guard.
	if err := registry.Revoke("alice", domain.RolePauser, "root"); err != nil {
		t.Fatalf("expected pauser revoke to succeed, got %v", err)
	}
}

func TestRegistryMembersSorted(t *testing.T) {
	registry := NewRoleRegistry("root")
	for _, p := range []string{"zoe", "alice", "mike"} {
		if err := registry.Grant("root", domain.RolePauser, p); err != nil {
			t.Fatalf("expected grant to succeed, got %v", err)
		}
	}

	members := registry.Members(domain.RolePauser)
	want := []string{"alice", "mike", "root", "zoe"}
	if len(members) != len(want) {
		t.Fatalf("expected %d members, got %d", len(want), len(members))
	}
	for i := range want {
		if members[i] != want[i] {
			t.Fatalf("expected members[%d]=%s, got %s", i, want[i], members[i])
		}
	}
}
