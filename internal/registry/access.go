package registry

import (
	"sort"
	"sync"

	"github.com/rifat-sarwar/IntelliTrust/internal/domain"
)

// AccessController holds the three capability sets gating registry mutations.
// The sets are independent: an identity may hold any combination. Only an
// administering identity may change the sets, and the administer set must
// never become empty.
type AccessController struct {
	mu   sync.RWMutex
	sets map[domain.Capability]map[string]struct{}
}

func NewAccessController(initialAdmin string) *AccessController {
	a := &AccessController{
		sets: map[domain.Capability]map[string]struct{}{
			domain.CapabilityAnchor:     {},
			domain.CapabilityRevoke:     {},
			domain.CapabilityAdminister: {},
		},
	}
	if initialAdmin != "" {
		a.sets[domain.CapabilityAdminister][initialAdmin] = struct{}{}
	}
	return a
}

func (a *AccessController) Holds(identity string, capability domain.Capability) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	set, ok := a.sets[capability]
	if !ok {
		return false
	}
	_, held := set[identity]
	return held
}

// Check returns ErrUnauthorized unless identity holds the capability.
func (a *AccessController) Check(identity string, capability domain.Capability) error {
	if identity == "" || !a.Holds(identity, capability) {
		return domain.ErrUnauthorized
	}
	return nil
}

// Grant adds identity to a capability set. The actor must administer.
func (a *AccessController) Grant(actor, identity string, capability domain.Capability) error {
	if err := a.Check(actor, domain.CapabilityAdminister); err != nil {
		return err
	}
	if identity == "" || !capability.Valid() {
		return domain.ErrInvalidOwnerIdentity
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sets[capability][identity] = struct{}{}
	return nil
}

// Revoke removes identity from a capability set. Removing the last
// administrator is rejected so the controller can always be administered.
func (a *AccessController) Revoke(actor, identity string, capability domain.Capability) error {
	if err := a.Check(actor, domain.CapabilityAdminister); err != nil {
		return err
	}
	if !capability.Valid() {
		return domain.ErrInvalidOwnerIdentity
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	set := a.sets[capability]
	if _, held := set[identity]; !held {
		return domain.ErrNotFound
	}
	if capability == domain.CapabilityAdminister && len(set) == 1 {
		return domain.ErrLastAdmin
	}
	delete(set, identity)
	return nil
}

// Grants lists all current grants, ordered for stable output.
func (a *AccessController) Grants() []domain.CapabilityGrant {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var out []domain.CapabilityGrant
	for _, capability := range []domain.Capability{domain.CapabilityAnchor, domain.CapabilityRevoke, domain.CapabilityAdminister} {
		identities := make([]string, 0, len(a.sets[capability]))
		for identity := range a.sets[capability] {
			identities = append(identities, identity)
		}
		sort.Strings(identities)
		for _, identity := range identities {
			out = append(out, domain.CapabilityGrant{Identity: identity, Capability: capability})
		}
	}
	return out
}
