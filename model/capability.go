// Package model provides capability-based model selection for planning runs.
// Instead of hardcoding model names, callers specify capabilities (planning,
// repair) and the registry resolves them to available models with fallback
// chains and per-endpoint health tracking.
package model

// Capability represents a semantic capability for model selection.
type Capability string

const (
	// CapabilityPlanning is for full sprint-plan generation.
	CapabilityPlanning Capability = "planning"

	// CapabilityRepair is for deterministic JSON repair round-trips.
	CapabilityRepair Capability = "repair"

	// CapabilityDependency is for advisory dependency inference in the agent chain.
	CapabilityDependency Capability = "dependency"

	// CapabilityFast is for quick responses, simple tasks.
	CapabilityFast Capability = "fast"
)

// IsValid checks if a capability string is a known capability.
func (c Capability) IsValid() bool {
	switch c {
	case CapabilityPlanning, CapabilityRepair, CapabilityDependency, CapabilityFast:
		return true
	}
	return false
}

// String returns the string representation of the capability.
func (c Capability) String() string {
	return string(c)
}

// ParseCapability converts a string to a Capability, returning empty for invalid values.
func ParseCapability(s string) Capability {
	cap := Capability(s)
	if cap.IsValid() {
		return cap
	}
	return ""
}
