package wire

// MsgType is the 16-bit message kind carried in every frame's header. The
// numeric assignment mirrors the original implementation's MessageType enum
// so traces captured from either system line up.
type MsgType uint16

// The closed set of message kinds the protocol defines.
const (
	HELLO              MsgType = 1
	PA                 MsgType = 2
	MsgJoinOffer       MsgType = 3
	MsgJoinAccept      MsgType = 4
	MsgAck             MsgType = 5
	MsgAckAck          MsgType = 6
	MsgPlatoonBeacon   MsgType = 7
	MsgPlatoonStatus   MsgType = 8
	GridStatus         MsgType = 9
	MsgPlatoonAnnounce MsgType = 10
)

func (t MsgType) String() string {
	switch t {
	case HELLO:
		return "HELLO"
	case PA:
		return "PA"
	case MsgJoinOffer:
		return "JOIN_OFFER"
	case MsgJoinAccept:
		return "JOIN_ACCEPT"
	case MsgAck:
		return "ACK"
	case MsgAckAck:
		return "ACKACK"
	case MsgPlatoonBeacon:
		return "PLATOON_BEACON"
	case MsgPlatoonStatus:
		return "PLATOON_STATUS"
	case GridStatus:
		return "GRID_STATUS"
	case MsgPlatoonAnnounce:
		return "PLATOON_ANNOUNCE"
	default:
		return "UNKNOWN"
	}
}

// IsForwardable reports whether a message kind may be relayed across
// multiple hops and therefore requires a PREVIOUS_HOP TLV.
func IsForwardable(t MsgType) bool {
	switch t {
	case PA, MsgPlatoonAnnounce, GridStatus:
		return true
	default:
		return false
	}
}

// TLVType is the one-byte TLV type tag.
type TLVType uint8

// Stable TLV type assignment, taken from the original implementation's
// TLVType enum.
const (
	TLVNodeID         TLVType = 1
	TLVNeighborList    TLVType = 2
	TLVMetrics         TLVType = 3
	TLVProviderFlag    TLVType = 4
	TLVNodeAttributes  TLVType = 5

	TLVProviderID      TLVType = 10
	TLVProviderType    TLVType = 11
	TLVPosition        TLVType = 12
	TLVDestination     TLVType = 13
	TLVPlatoonSize     TLVType = 14
	TLVEnergyAvailable TLVType = 15
	TLVDirection       TLVType = 16
	TLVProviderEntry   TLVType = 17

	TLVConsumerID    TLVType = 20
	TLVEnergyRequired TLVType = 21
	TLVTrajectory    TLVType = 22
	TLVMeetingPoint  TLVType = 23

	TLVBandwidth      TLVType = 30
	TLVDuration       TLVType = 31
	TLVPlatoonMembers TLVType = 32
	TLVTopology       TLVType = 33

	TLVTimestamp     TLVType = 40
	TLVVelocity      TLVType = 41
	TLVAvailableSlots TLVType = 42
	TLVRoute         TLVType = 43

	TLVBatteryLevel  TLVType = 50
	TLVRelativeIndex TLVType = 51
	TLVReceiveRate   TLVType = 52

	TLVHubID             TLVType = 60
	TLVRenewableFraction TLVType = 61
	TLVAvailablePower    TLVType = 62
	TLVMaxSessions       TLVType = 63
	TLVQueueTime         TLVType = 64
	TLVOperationalState  TLVType = 66

	TLVPlatoonID   TLVType = 70
	TLVHeadID      TLVType = 71
	TLVHeadPosition TLVType = 72

	TLVPreviousHop TLVType = 80

	TLVFormationPositions TLVType = 81
	TLVSurplusEnergy      TLVType = 82
	TLVDirectionVector    TLVType = 83
	TLVFormationEfficiency TLVType = 84

	TLVSessionID   TLVType = 90
	TLVAcceptedOffer TLVType = 91
	TLVGridState   TLVType = 92
)

// ProviderKind distinguishes the three provider archetypes carried in PA
// entries and used by charging.RoleManager.
type ProviderKind uint8

const (
	ProviderMobile  ProviderKind = 0
	ProviderPlatoon ProviderKind = 1
	ProviderRREH    ProviderKind = 2
)

func (k ProviderKind) String() string {
	switch k {
	case ProviderMobile:
		return "MP"
	case ProviderPlatoon:
		return "PH"
	case ProviderRREH:
		return "RREH"
	default:
		return "UNKNOWN"
	}
}

// GridState is the RREH operational-health state machine from the
// supplemented-features section of SPEC_FULL.md.
type GridState uint8

const (
	GridNormal GridState = iota
	GridCongested
	GridLimited
	GridOffline
)

func (g GridState) String() string {
	switch g {
	case GridNormal:
		return "normal"
	case GridCongested:
		return "congested"
	case GridLimited:
		return "limited"
	case GridOffline:
		return "offline"
	default:
		return "unknown"
	}
}
