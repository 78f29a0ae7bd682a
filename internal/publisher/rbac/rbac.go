package rbac

import "strings"

// Role is an operator access tier carried in the "role" or "roles" token claims.
type Role string

const (
	RoleAdmin     Role = "admin"
	RolePublisher Role = "publisher"
	RoleViewer    Role = "viewer"
)

// Capability names one console action.
type Capability string

const (
	CapVersionsView    Capability = "versions.view"
	CapVersionsPublish Capability = "versions.publish"
	CapVersionsRevert  Capability = "versions.revert"
)

var allCapabilities = []Capability{CapVersionsView, CapVersionsPublish, CapVersionsRevert}

// grants lists what each role may do. Admins hold every capability.
var grants = map[Role][]Capability{
	RoleViewer:    {CapVersionsView},
	RolePublisher: {CapVersionsView, CapVersionsPublish, CapVersionsRevert},
}

// ParseRole lower-cases and trims a raw claim value.
func ParseRole(raw string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	return role, role != ""
}

// Set is the capabilities resolved for one operator.
type Set map[Capability]bool

// Resolve expands role claims into the capabilities they grant. Unknown roles grant nothing.
func Resolve(rawRoles []string) Set {
	set := make(Set, len(allCapabilities))
	for _, raw := range rawRoles {
		role, ok := ParseRole(raw)
		if !ok {
			continue
		}
		caps := grants[role]
		if role == RoleAdmin {
			caps = allCapabilities
		}
		for _, c := range caps {
			set[c] = true
		}
	}
	return set
}

// Allows reports whether c is in the set. The empty capability is always allowed.
func (s Set) Allows(c Capability) bool {
	return c == "" || s[c]
}

// HasCapability reports whether any of the raw roles grants c.
func HasCapability(rawRoles []string, c Capability) bool {
	return Resolve(rawRoles).Allows(c)
}

// Denial is the operator facing explanation for a missing capability.
func Denial(c Capability) string {
	switch c {
	case CapVersionsPublish:
		return "Publishing requires the publisher role."
	case CapVersionsRevert:
		return "Reverting requires the publisher role."
	default:
		return "Your account does not have access to the publisher console."
	}
}
