package registry

import (
	"errors"
	"testing"

	"github.com/rifat-sarwar/IntelliTrust/internal/domain"
)

const (
	testAdmin  = "did:test:administrator-0001"
	testSecond = "did:test:administrator-0002"
	testActor  = "did:test:collaborator-0001"
)

func TestAccessControllerBootstrap(t *testing.T) {
	a := NewAccessController(testAdmin)
	if !a.Holds(testAdmin, domain.CapabilityAdminister) {
		t.Fatal("initial admin should hold administer")
	}
	if a.Holds(testAdmin, domain.CapabilityAnchor) {
		t.Fatal("administer must not imply anchor")
	}
	if err := a.Check("", domain.CapabilityAdminister); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("empty identity should be unauthorized, got %v", err)
	}
}

func TestGrantRequiresAdminister(t *testing.T) {
	a := NewAccessController(testAdmin)
	if err := a.Grant(testActor, testActor, domain.CapabilityAnchor); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := a.Grant(testAdmin, testActor, domain.CapabilityAnchor); err != nil {
		t.Fatalf("admin grant failed: %v", err)
	}
	if !a.Holds(testActor, domain.CapabilityAnchor) {
		t.Fatal("grant did not take effect")
	}
	if err := a.Grant(testAdmin, testActor, "launch"); !errors.Is(err, domain.ErrInvalidOwnerIdentity) {
		t.Fatalf("unknown capability should be rejected, got %v", err)
	}
}

func TestRevokeLastAdministrator(t *testing.T) {
	a := NewAccessController(testAdmin)
	if err := a.Revoke(testAdmin, testAdmin, domain.CapabilityAdminister); !errors.Is(err, domain.ErrLastAdmin) {
		t.Fatalf("expected ErrLastAdmin, got %v", err)
	}

	if err := a.Grant(testAdmin, testSecond, domain.CapabilityAdminister); err != nil {
		t.Fatalf("grant failed: %v", err)
	}
	if err := a.Revoke(testAdmin, testAdmin, domain.CapabilityAdminister); err != nil {
		t.Fatalf("revoke with a second admin present failed: %v", err)
	}
	if a.Holds(testAdmin, domain.CapabilityAdminister) {
		t.Fatal("revoked admin still holds administer")
	}
	if err := a.Revoke(testSecond, testSecond, domain.CapabilityAdminister); !errors.Is(err, domain.ErrLastAdmin) {
		t.Fatalf("expected ErrLastAdmin for the remaining admin, got %v", err)
	}
}

func TestRevokeUnheldCapability(t *testing.T) {
	a := NewAccessController(testAdmin)
	if err := a.Revoke(testAdmin, testActor, domain.CapabilityRevoke); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGrantsListingIsStable(t *testing.T) {
	a := NewAccessController(testAdmin)
	if err := a.Grant(testAdmin, "did:test:b-0000000001", domain.CapabilityAnchor); err != nil {
		t.Fatal(err)
	}
	if err := a.Grant(testAdmin, "did:test:a-0000000001", domain.CapabilityAnchor); err != nil {
		t.Fatal(err)
	}

	grants := a.Grants()
	want := []domain.CapabilityGrant{
		{Identity: "did:test:a-0000000001", Capability: domain.CapabilityAnchor},
		{Identity: "did:test:b-0000000001", Capability: domain.CapabilityAnchor},
		{Identity: testAdmin, Capability: domain.CapabilityAdminister},
	}
	if len(grants) != len(want) {
		t.Fatalf("got %d grants, want %d: %v", len(grants), len(want), grants)
	}
	for i := range want {
		if grants[i] != want[i] {
			t.Fatalf("grants[%d] = %v, want %v", i, grants[i], want[i])
		}
	}
}
