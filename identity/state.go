package identity

import "github.com/haidar-88/Capstone/geo"

// Role is the single active role a node exposes at any tick boundary.
type Role int

// The closed set of roles a NodeState can hold. RREH is permanent; the rest
// are assigned by charging.RoleManager.
const (
	RoleConsumer Role = iota
	RoleMobileProvider
	RolePlatoonHead
	RolePlatoonMember
	RoleRREH
)

func (r Role) String() string {
	switch r {
	case RoleConsumer:
		return "CONSUMER"
	case RoleMobileProvider:
		return "MOBILE_PROVIDER"
	case RolePlatoonHead:
		return "PLATOON_HEAD"
	case RolePlatoonMember:
		return "PLATOON_MEMBER"
	case RoleRREH:
		return "RREH"
	default:
		return "UNKNOWN"
	}
}

// State is the NodeState owned exclusively by ctxt.Context. It is
// mutated by the external mobility/energy collaborator (ApplyMobilityAndEnergy)
// and by the RoleManager; receive handlers must treat it as read-only.
type State struct {
	ID       NodeID
	Position geo.Vec2
	Velocity geo.Vec2

	BatteryCapacityKWh float64
	BatteryEnergyKWh   float64

	Willingness      int // 0-7, OLSR-style
	ProviderCapable  bool
	ShareableEnergyKWh float64
	Direction        geo.Vec2

	// ETX, LaneWeight, and Stability are self-reported per-link QoS inputs
	// carried in every HELLO's METRICS TLV, mirroring the original
	// implementation's node-level etx/lane_weight/link_stability attributes.
	// Zero means "unset" and falls back to the original's own defaults
	// (1.0, 0.5, 1.0) when a HELLO is built; RelativeSpeed and jitter are
	// not here because neighbor.Table computes them per-link instead of
	// self-reporting them.
	ETX        float64
	LaneWeight float64
	Stability  float64

	Role Role
}

// BatteryPercent returns the state of charge as a fraction in [0,1].
func (s *State) BatteryPercent() float64 {
	if s.BatteryCapacityKWh <= 0 {
		return 0
	}
	pct := s.BatteryEnergyKWh / s.BatteryCapacityKWh
	if pct < 0 {
		return 0
	}
	if pct > 1 {
		return 1
	}
	return pct
}

// ShareableEnergy returns the energy this node could offer a consumer: the
// ShareableEnergyKWh field as last set, not derived from the battery state.
func (s *State) ShareableEnergy() float64 {
	return s.ShareableEnergyKWh
}
