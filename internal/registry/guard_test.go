package registry

import (
	"errors"
	"strings"
	"testing"

	"github.com/rifat-sarwar/IntelliTrust/internal/domain"
)

func TestCheckFingerprint(t *testing.T) {
	cases := []struct {
		name        string
		fingerprint string
		wantErr     bool
	}{
		{"valid lowercase", strings.Repeat("ab12", 16), false},
		{"valid uppercase", strings.Repeat("AB12", 16), false},
		{"valid mixed case", strings.Repeat("aB12", 16), false},
		{"too short", strings.Repeat("a", 63), true},
		{"too long", strings.Repeat("a", 65), true},
		{"empty", "", true},
		{"non-hex character", strings.Repeat("a", 63) + "g", true},
		{"whitespace", strings.Repeat("a", 63) + " ", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckFingerprint(tc.fingerprint)
			if tc.wantErr && !errors.Is(err, domain.ErrInvalidFingerprint) {
				t.Fatalf("expected ErrInvalidFingerprint, got %v", err)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestCheckAnchorPrecedence(t *testing.T) {
	g := NewGuard(domain.Limits{MaxMetadataBytes: 10, MaxPerIdentity: 1, MinFee: 5})
	fp := strings.Repeat("a", 64)
	owner := "did:example:owner-0001"

	// A malformed fingerprint wins over every later failure.
	err := g.CheckAnchor("bad", "x", strings.Repeat("m", 100), 0, 99)
	if !errors.Is(err, domain.ErrInvalidFingerprint) {
		t.Fatalf("expected ErrInvalidFingerprint, got %v", err)
	}

	err = g.CheckAnchor(fp, "short", strings.Repeat("m", 100), 0, 99)
	if !errors.Is(err, domain.ErrInvalidOwnerIdentity) {
		t.Fatalf("expected ErrInvalidOwnerIdentity, got %v", err)
	}

	err = g.CheckAnchor(fp, owner, strings.Repeat("m", 100), 0, 99)
	if !errors.Is(err, domain.ErrMetadataTooLarge) {
		t.Fatalf("expected ErrMetadataTooLarge, got %v", err)
	}

	err = g.CheckAnchor(fp, owner, "ok", 0, 99)
	if !errors.Is(err, domain.ErrInsufficientFee) {
		t.Fatalf("expected ErrInsufficientFee, got %v", err)
	}

	err = g.CheckAnchor(fp, owner, "ok", 5, 99)
	if !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}

	if err := g.CheckAnchor(fp, owner, "ok", 5, 0); err != nil {
		t.Fatalf("valid anchor rejected: %v", err)
	}
}

func TestCheckOwnerIdentityBounds(t *testing.T) {
	g := NewGuard(domain.DefaultLimits())
	fp := strings.Repeat("a", 64)

	if err := g.CheckAnchor(fp, strings.Repeat("d", domain.MinOwnerIdentityLength), "", 0, 0); err != nil {
		t.Fatalf("minimum-length identity rejected: %v", err)
	}
	if err := g.CheckAnchor(fp, strings.Repeat("d", domain.MaxOwnerIdentityLength), "", 0, 0); err != nil {
		t.Fatalf("maximum-length identity rejected: %v", err)
	}
	if err := g.CheckAnchor(fp, strings.Repeat("d", domain.MaxOwnerIdentityLength+1), "", 0, 0); !errors.Is(err, domain.ErrInvalidOwnerIdentity) {
		t.Fatalf("expected ErrInvalidOwnerIdentity, got %v", err)
	}
}

func TestCheckReason(t *testing.T) {
	g := NewGuard(domain.DefaultLimits())
	if err := g.CheckReason(""); !errors.Is(err, domain.ErrEmptyReason) {
		t.Fatalf("expected ErrEmptyReason, got %v", err)
	}
	if err := g.CheckReason(strings.Repeat("r", domain.MaxRevocationReason+1)); !errors.Is(err, domain.ErrReasonTooLong) {
		t.Fatalf("expected ErrReasonTooLong, got %v", err)
	}
	if err := g.CheckReason(strings.Repeat("r", domain.MaxRevocationReason)); err != nil {
		t.Fatalf("maximum-length reason rejected: %v", err)
	}
}

func TestSetLimitsIgnoresNonPositiveCeilings(t *testing.T) {
	g := NewGuard(domain.Limits{MaxMetadataBytes: 100, MaxPerIdentity: 10, MinFee: 3})

	g.SetLimits(domain.Limits{MaxMetadataBytes: 0, MaxPerIdentity: -1, MinFee: -5})
	limits := g.Limits()
	if limits.MaxMetadataBytes != 100 || limits.MaxPerIdentity != 10 || limits.MinFee != 3 {
		t.Fatalf("non-positive values should be ignored, got %+v", limits)
	}

	// MinFee zero is a legitimate setting, unlike the ceilings.
	g.SetLimits(domain.Limits{MinFee: 0})
	if got := g.Limits().MinFee; got != 0 {
		t.Fatalf("MinFee = %d, want 0", got)
	}

	g.SetLimits(domain.Limits{MaxMetadataBytes: 200, MaxPerIdentity: 20, MinFee: 7})
	limits = g.Limits()
	if limits.MaxMetadataBytes != 200 || limits.MaxPerIdentity != 20 || limits.MinFee != 7 {
		t.Fatalf("unexpected limits after update: %+v", limits)
	}
}

func TestGuardDefaults(t *testing.T) {
	g := NewGuard(domain.Limits{})
	limits := g.Limits()
	if limits.MaxMetadataBytes != domain.DefaultMaxMetadataBytes {
		t.Fatalf("MaxMetadataBytes = %d, want %d", limits.MaxMetadataBytes, domain.DefaultMaxMetadataBytes)
	}
	if limits.MaxPerIdentity != domain.DefaultMaxPerIdentity {
		t.Fatalf("MaxPerIdentity = %d, want %d", limits.MaxPerIdentity, domain.DefaultMaxPerIdentity)
	}
	if limits.MinFee != 0 {
		t.Fatalf("MinFee = %d, want 0", limits.MinFee)
	}
}
