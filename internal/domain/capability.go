package domain

type Capability string

const (
	CapabilityAnchor     Capability = "anchor"
	CapabilityRevoke     Capability = "revoke"
	CapabilityAdminister Capability = "administer"
)

func (c Capability) Valid() bool {
	switch c {
	case CapabilityAnchor, CapabilityRevoke, CapabilityAdminister:
		return true
	}
	return false
}

type CapabilityGrant struct {
	Identity   string
	Capability Capability
}
