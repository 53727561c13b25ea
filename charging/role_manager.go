package charging

import (
	"github.com/haidar-88/Capstone/config"
	"github.com/haidar-88/Capstone/identity"
)

// RoleManager evaluates the local NodeState each tick and selects exactly
// one active role, per spec §4.5. RREHs never change role. A role switch
// invalidates every pending session the node held under its previous role;
// callers observe this through Evaluate's returned changed flag and must
// fail those sessions with ErrRoleSwitched.
type RoleManager struct {
	IsPlatoonHead   bool // set by node.Node each tick from Layer D: this node leads a nonempty platoon
	IsPlatoonMember bool // set by node.Node each tick from Layer D: this node is following a head's beacon
}

// Evaluate runs the role-selection rule against state and reports the
// resulting role plus whether it differs from state.Role. Meeting the
// PLATOON_HEAD threshold assigns PLATOON_HEAD immediately, per spec §4.5's
// literal rule ("becomes PLATOON_HEAD") and the original's
// _initialize_platoon_head, which forms the Platoon the instant apply_role
// transitions into it — there is no separate provider-only role a node
// passes through first.
func (m *RoleManager) Evaluate(state *identity.State, cfg *config.ProtocolConfig, hasChargingNeed bool, hasActiveConsumerSession bool) (identity.Role, bool) {
	if state.Role == identity.RoleRREH {
		return identity.RoleRREH, false
	}

	next := identity.RoleConsumer
	switch {
	case hasChargingNeed:
		next = identity.RoleConsumer
	case m.IsPlatoonHead:
		next = identity.RolePlatoonHead
	case m.IsPlatoonMember:
		next = identity.RolePlatoonMember
	case state.BatteryPercent() >= cfg.PHEnergyThresholdPercent &&
		state.Willingness >= cfg.PHWillingnessThreshold &&
		!hasActiveConsumerSession:
		next = identity.RolePlatoonHead
	default:
		next = identity.RoleConsumer
	}

	changed := next != state.Role
	state.Role = next
	return next, changed
}
