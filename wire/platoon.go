package wire

import (
	"github.com/haidar-88/Capstone/geo"
	"github.com/haidar-88/Capstone/identity"
)

// FormationSlot is one member's target position within PlatoonBeacon's
// FORMATION_POSITIONS TLV: node_id (6B) + x (4B) + y (4B).
type FormationSlot struct {
	NodeID identity.NodeID
	Target geo.Vec2
}

// PlatoonBeacon is the decoded form of a head's periodic PLATOON_BEACON,
// broadcast to members for topology and formation-target dissemination.
type PlatoonBeacon struct {
	SeqNum             uint32
	SenderID           identity.NodeID
	PlatoonID          uint32
	HeadID             identity.NodeID
	Timestamp          float64
	HeadPosition       geo.Vec2
	Velocity           geo.Vec2
	AvailableSlots     uint16
	Topology           []byte
	Route              []geo.Vec2
	FormationPositions []FormationSlot

	// InvitedID/HasInvite carry a direct join invitation: a head naming a
	// specific known consumer skips PLATOON_ANNOUNCE dissemination for that
	// consumer entirely. It reuses NODE_ID, the same TLV type a
	// PLATOON_STATUS's VEHICLE_ID uses, rather than a dedicated TLV.
	InvitedID identity.NodeID
	HasInvite bool
}

// BuildPlatoonBeacon renders a PlatoonBeacon into a one-hop PLATOON_BEACON
// frame; beacons reach members directly and are never multi-hop forwarded.
func BuildPlatoonBeacon(b PlatoonBeacon) Frame {
	f := Frame{Header: Header{MsgType: MsgPlatoonBeacon, TTL: 1, SeqNum: b.SeqNum, SenderID: b.SenderID}}

	f.TLVs = append(f.TLVs, TLV{Type: TLVPlatoonID, Value: putUint32(b.PlatoonID)})
	f.TLVs = append(f.TLVs, TLV{Type: TLVHeadID, Value: putNodeID(b.HeadID)})
	f.TLVs = append(f.TLVs, TLV{Type: TLVTimestamp, Value: putFloat32(b.Timestamp)})
	f.TLVs = append(f.TLVs, TLV{Type: TLVHeadPosition, Value: putVec2(b.HeadPosition)})
	f.TLVs = append(f.TLVs, TLV{Type: TLVVelocity, Value: putVec2(b.Velocity)})
	f.TLVs = append(f.TLVs, TLV{Type: TLVAvailableSlots, Value: putUint16(b.AvailableSlots)})
	if len(b.Topology) > 0 {
		f.TLVs = append(f.TLVs, TLV{Type: TLVTopology, Value: b.Topology})
	}
	if len(b.Route) > 0 {
		buf := make([]byte, 0, 8*len(b.Route))
		for _, p := range b.Route {
			buf = append(buf, putVec2(p)...)
		}
		f.TLVs = append(f.TLVs, TLV{Type: TLVRoute, Value: buf})
	}
	if len(b.FormationPositions) > 0 {
		buf := make([]byte, 0, 14*len(b.FormationPositions))
		for _, s := range b.FormationPositions {
			buf = append(buf, putNodeID(s.NodeID)...)
			buf = append(buf, putVec2(s.Target)...)
		}
		f.TLVs = append(f.TLVs, TLV{Type: TLVFormationPositions, Value: buf})
	}
	if b.HasInvite {
		f.TLVs = append(f.TLVs, TLV{Type: TLVNodeID, Value: putNodeID(b.InvitedID)})
	}

	f.Header.PayloadLen = payloadLen(f.TLVs)
	return f
}

// ParsePlatoonBeacon extracts a PlatoonBeacon from a decoded PLATOON_BEACON
// frame.
func ParsePlatoonBeacon(f Frame) (PlatoonBeacon, error) {
	b := PlatoonBeacon{SeqNum: f.Header.SeqNum, SenderID: f.Header.SenderID}

	v, ok := f.Find(TLVPlatoonID)
	if !ok {
		return PlatoonBeacon{}, ErrCodec
	}
	pid, err := getUint32(v)
	if err != nil {
		return PlatoonBeacon{}, err
	}
	b.PlatoonID = pid

	v, ok = f.Find(TLVHeadID)
	if !ok {
		return PlatoonBeacon{}, ErrCodec
	}
	head, err := getNodeID(v)
	if err != nil {
		return PlatoonBeacon{}, err
	}
	b.HeadID = head

	v, ok = f.Find(TLVTimestamp)
	if !ok {
		return PlatoonBeacon{}, ErrCodec
	}
	ts, err := getFloat32(v)
	if err != nil {
		return PlatoonBeacon{}, err
	}
	b.Timestamp = ts

	v, ok = f.Find(TLVHeadPosition)
	if !ok {
		return PlatoonBeacon{}, ErrCodec
	}
	pos, err := getVec2(v)
	if err != nil {
		return PlatoonBeacon{}, err
	}
	b.HeadPosition = pos

	v, ok = f.Find(TLVVelocity)
	if !ok {
		return PlatoonBeacon{}, ErrCodec
	}
	vel, err := getVec2(v)
	if err != nil {
		return PlatoonBeacon{}, err
	}
	b.Velocity = vel

	v, ok = f.Find(TLVAvailableSlots)
	if !ok {
		return PlatoonBeacon{}, ErrCodec
	}
	slots, err := getUint16(v)
	if err != nil {
		return PlatoonBeacon{}, err
	}
	b.AvailableSlots = slots

	if v, ok = f.Find(TLVTopology); ok {
		b.Topology = v
	}

	if v, ok = f.Find(TLVRoute); ok {
		if len(v)%8 != 0 {
			return PlatoonBeacon{}, ErrCodec
		}
		for off := 0; off < len(v); off += 8 {
			p, err := getVec2(v[off : off+8])
			if err != nil {
				return PlatoonBeacon{}, err
			}
			b.Route = append(b.Route, p)
		}
	}

	if v, ok = f.Find(TLVFormationPositions); ok {
		if len(v)%14 != 0 {
			return PlatoonBeacon{}, ErrCodec
		}
		for off := 0; off < len(v); off += 14 {
			id, err := getNodeID(v[off : off+6])
			if err != nil {
				return PlatoonBeacon{}, err
			}
			target, err := getVec2(v[off+6 : off+14])
			if err != nil {
				return PlatoonBeacon{}, err
			}
			b.FormationPositions = append(b.FormationPositions, FormationSlot{NodeID: id, Target: target})
		}
	}

	if v, ok = f.Find(TLVNodeID); ok {
		invited, err := getNodeID(v)
		if err != nil {
			return PlatoonBeacon{}, err
		}
		b.InvitedID = invited
		b.HasInvite = true
	}

	return b, nil
}

// PlatoonStatus is the decoded form of a member's periodic PLATOON_STATUS
// report back to its head.
type PlatoonStatus struct {
	SeqNum         uint32
	SenderID       identity.NodeID
	PlatoonID      uint32
	VehicleID      identity.NodeID
	BatteryPercent float64
	RelativeIndex  uint16
	ReceiveRate    float64
}

// BuildPlatoonStatus renders a PlatoonStatus into a one-hop PLATOON_STATUS
// frame addressed to the head.
func BuildPlatoonStatus(s PlatoonStatus) Frame {
	f := Frame{Header: Header{MsgType: MsgPlatoonStatus, TTL: 1, SeqNum: s.SeqNum, SenderID: s.SenderID}}

	f.TLVs = append(f.TLVs, TLV{Type: TLVPlatoonID, Value: putUint32(s.PlatoonID)})
	f.TLVs = append(f.TLVs, TLV{Type: TLVNodeID, Value: putNodeID(s.VehicleID)})
	f.TLVs = append(f.TLVs, TLV{Type: TLVBatteryLevel, Value: putFloat32(s.BatteryPercent)})
	f.TLVs = append(f.TLVs, TLV{Type: TLVRelativeIndex, Value: putUint16(s.RelativeIndex)})
	f.TLVs = append(f.TLVs, TLV{Type: TLVReceiveRate, Value: putFloat32(s.ReceiveRate)})

	f.Header.PayloadLen = payloadLen(f.TLVs)
	return f
}

// ParsePlatoonStatus extracts a PlatoonStatus from a decoded PLATOON_STATUS
// frame.
func ParsePlatoonStatus(f Frame) (PlatoonStatus, error) {
	s := PlatoonStatus{SeqNum: f.Header.SeqNum, SenderID: f.Header.SenderID}

	v, ok := f.Find(TLVPlatoonID)
	if !ok {
		return PlatoonStatus{}, ErrCodec
	}
	pid, err := getUint32(v)
	if err != nil {
		return PlatoonStatus{}, err
	}
	s.PlatoonID = pid

	v, ok = f.Find(TLVNodeID)
	if !ok {
		return PlatoonStatus{}, ErrCodec
	}
	vid, err := getNodeID(v)
	if err != nil {
		return PlatoonStatus{}, err
	}
	s.VehicleID = vid

	v, ok = f.Find(TLVBatteryLevel)
	if !ok {
		return PlatoonStatus{}, ErrCodec
	}
	bat, err := getFloat32(v)
	if err != nil {
		return PlatoonStatus{}, err
	}
	s.BatteryPercent = bat

	v, ok = f.Find(TLVRelativeIndex)
	if !ok {
		return PlatoonStatus{}, ErrCodec
	}
	idx, err := getUint16(v)
	if err != nil {
		return PlatoonStatus{}, err
	}
	s.RelativeIndex = idx

	v, ok = f.Find(TLVReceiveRate)
	if !ok {
		return PlatoonStatus{}, ErrCodec
	}
	rate, err := getFloat32(v)
	if err != nil {
		return PlatoonStatus{}, err
	}
	s.ReceiveRate = rate

	return s, nil
}

// PlatoonAnnounce is the decoded form of a head's multi-hop
// PLATOON_ANNOUNCE, used for inter-platoon discovery by consumers outside
// the platoon's direct radio range.
type PlatoonAnnounce struct {
	SeqNum               uint32
	SenderID             identity.NodeID
	PlatoonID            uint32
	HeadID               identity.NodeID
	Position             geo.Vec2
	Destination          geo.Vec2
	HasDestination       bool
	AvailableSlots       uint16
	SurplusEnergyKWh     float64
	DirectionVector      geo.Vec2
	FormationEfficiency  float64
	PreviousHop          identity.NodeID
}

// BuildPlatoonAnnounce renders a PlatoonAnnounce into a frame with the given
// ttl. previousHop is always attached: PLATOON_ANNOUNCE is forwardable.
func BuildPlatoonAnnounce(a PlatoonAnnounce, ttl uint8) Frame {
	f := Frame{Header: Header{MsgType: MsgPlatoonAnnounce, TTL: ttl, SeqNum: a.SeqNum, SenderID: a.SenderID}}

	f.TLVs = append(f.TLVs, TLV{Type: TLVPlatoonID, Value: putUint32(a.PlatoonID)})
	f.TLVs = append(f.TLVs, TLV{Type: TLVHeadID, Value: putNodeID(a.HeadID)})
	f.TLVs = append(f.TLVs, TLV{Type: TLVPosition, Value: putVec2(a.Position)})
	if a.HasDestination {
		f.TLVs = append(f.TLVs, TLV{Type: TLVDestination, Value: putVec2(a.Destination)})
	}
	f.TLVs = append(f.TLVs, TLV{Type: TLVAvailableSlots, Value: putUint16(a.AvailableSlots)})
	f.TLVs = append(f.TLVs, TLV{Type: TLVSurplusEnergy, Value: putFloat32(a.SurplusEnergyKWh)})
	f.TLVs = append(f.TLVs, TLV{Type: TLVDirectionVector, Value: putVec2(a.DirectionVector)})
	f.TLVs = append(f.TLVs, TLV{Type: TLVFormationEfficiency, Value: putFloat32(a.FormationEfficiency)})
	f.TLVs = append(f.TLVs, TLV{Type: TLVPreviousHop, Value: putNodeID(a.PreviousHop)})

	f.Header.PayloadLen = payloadLen(f.TLVs)
	return f
}

// ParsePlatoonAnnounce extracts a PlatoonAnnounce from a decoded
// PLATOON_ANNOUNCE frame.
func ParsePlatoonAnnounce(f Frame) (PlatoonAnnounce, error) {
	a := PlatoonAnnounce{SeqNum: f.Header.SeqNum, SenderID: f.Header.SenderID}

	v, ok := f.Find(TLVPlatoonID)
	if !ok {
		return PlatoonAnnounce{}, ErrCodec
	}
	pid, err := getUint32(v)
	if err != nil {
		return PlatoonAnnounce{}, err
	}
	a.PlatoonID = pid

	v, ok = f.Find(TLVHeadID)
	if !ok {
		return PlatoonAnnounce{}, ErrCodec
	}
	head, err := getNodeID(v)
	if err != nil {
		return PlatoonAnnounce{}, err
	}
	a.HeadID = head

	v, ok = f.Find(TLVPosition)
	if !ok {
		return PlatoonAnnounce{}, ErrCodec
	}
	pos, err := getVec2(v)
	if err != nil {
		return PlatoonAnnounce{}, err
	}
	a.Position = pos

	if v, ok = f.Find(TLVDestination); ok {
		dest, err := getVec2(v)
		if err != nil {
			return PlatoonAnnounce{}, err
		}
		a.Destination = dest
		a.HasDestination = true
	}

	v, ok = f.Find(TLVAvailableSlots)
	if !ok {
		return PlatoonAnnounce{}, ErrCodec
	}
	slots, err := getUint16(v)
	if err != nil {
		return PlatoonAnnounce{}, err
	}
	a.AvailableSlots = slots

	v, ok = f.Find(TLVSurplusEnergy)
	if !ok {
		return PlatoonAnnounce{}, ErrCodec
	}
	surplus, err := getFloat32(v)
	if err != nil {
		return PlatoonAnnounce{}, err
	}
	a.SurplusEnergyKWh = surplus

	v, ok = f.Find(TLVDirectionVector)
	if !ok {
		return PlatoonAnnounce{}, ErrCodec
	}
	dir, err := getVec2(v)
	if err != nil {
		return PlatoonAnnounce{}, err
	}
	a.DirectionVector = dir

	v, ok = f.Find(TLVFormationEfficiency)
	if !ok {
		return PlatoonAnnounce{}, ErrCodec
	}
	eff, err := getFloat32(v)
	if err != nil {
		return PlatoonAnnounce{}, err
	}
	a.FormationEfficiency = eff

	v, ok = f.Find(TLVPreviousHop)
	if !ok {
		return PlatoonAnnounce{}, ErrCodec
	}
	prev, err := getNodeID(v)
	if err != nil {
		return PlatoonAnnounce{}, err
	}
	a.PreviousHop = prev

	return a, nil
}
