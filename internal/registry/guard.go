package registry

import (
	"github.com/rifat-sarwar/IntelliTrust/internal/domain"
)

// Guard is the pure validation layer run before any mutation commits. Checks
// are side-effect-free and always run in the same order so error precedence
// is reproducible: format, identity, metadata size, fee, quota.
type Guard struct {
	limits domain.Limits
}

func NewGuard(limits domain.Limits) *Guard {
	if limits.MaxMetadataBytes <= 0 {
		limits.MaxMetadataBytes = domain.DefaultMaxMetadataBytes
	}
	if limits.MaxPerIdentity <= 0 {
		limits.MaxPerIdentity = domain.DefaultMaxPerIdentity
	}
	return &Guard{limits: limits}
}

func (g *Guard) Limits() domain.Limits {
	return g.limits
}

func (g *Guard) SetLimits(limits domain.Limits) {
	if limits.MaxMetadataBytes > 0 {
		g.limits.MaxMetadataBytes = limits.MaxMetadataBytes
	}
	if limits.MaxPerIdentity > 0 {
		g.limits.MaxPerIdentity = limits.MaxPerIdentity
	}
	if limits.MinFee >= 0 {
		g.limits.MinFee = limits.MinFee
	}
}

// CheckAnchor validates an anchor request against everything except the
// registry's own state. ownedCount is the anchorer's current record count.
func (g *Guard) CheckAnchor(fingerprint, ownerIdentity, metadata string, fee int64, ownedCount int) error {
	if err := CheckFingerprint(fingerprint); err != nil {
		return err
	}
	if len(ownerIdentity) < domain.MinOwnerIdentityLength || len(ownerIdentity) > domain.MaxOwnerIdentityLength {
		return domain.ErrInvalidOwnerIdentity
	}
	if len(metadata) > g.limits.MaxMetadataBytes {
		return domain.ErrMetadataTooLarge
	}
	if fee < g.limits.MinFee {
		return domain.ErrInsufficientFee
	}
	if ownedCount >= g.limits.MaxPerIdentity {
		return domain.ErrQuotaExceeded
	}
	return nil
}

func (g *Guard) CheckMetadata(metadata string) error {
	if len(metadata) > g.limits.MaxMetadataBytes {
		return domain.ErrMetadataTooLarge
	}
	return nil
}

func (g *Guard) CheckReason(reason string) error {
	if reason == "" {
		return domain.ErrEmptyReason
	}
	if len(reason) > domain.MaxRevocationReason {
		return domain.ErrReasonTooLong
	}
	return nil
}

// CheckFingerprint enforces the fixed-length hex form. Mixed case is allowed.
func CheckFingerprint(fingerprint string) error {
	if len(fingerprint) != domain.FingerprintLength {
		return domain.ErrInvalidFingerprint
	}
	for i := 0; i < len(fingerprint); i++ {
		c := fingerprint[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return domain.ErrInvalidFingerprint
		}
	}
	return nil
}
