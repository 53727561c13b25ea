package wire

import (
	"github.com/haidar-88/Capstone/geo"
	"github.com/haidar-88/Capstone/identity"
)

// JoinOffer is the decoded form of a consumer's JOIN_OFFER: a request to
// enter a charging session with the provider it was sent to.
type JoinOffer struct {
	SeqNum           uint32
	SenderID         identity.NodeID
	ConsumerID       identity.NodeID
	EnergyRequiredKWh float64
	Trajectory       []geo.Vec2
	MeetingPoint     geo.Vec2
	HasMeetingPoint  bool
	Position         geo.Vec2
}

// BuildJoinOffer renders a JoinOffer into a one-hop JOIN_OFFER frame.
// Handshake messages are unicast to an already-discovered neighbor and are
// never forwarded, so ttl is fixed at 1.
func BuildJoinOffer(o JoinOffer) Frame {
	f := Frame{Header: Header{MsgType: MsgJoinOffer, TTL: 1, SeqNum: o.SeqNum, SenderID: o.SenderID}}

	f.TLVs = append(f.TLVs, TLV{Type: TLVConsumerID, Value: putNodeID(o.ConsumerID)})
	f.TLVs = append(f.TLVs, TLV{Type: TLVEnergyRequired, Value: putFloat32(o.EnergyRequiredKWh)})
	if len(o.Trajectory) > 0 {
		buf := make([]byte, 0, 8*len(o.Trajectory))
		for _, p := range o.Trajectory {
			buf = append(buf, putVec2(p)...)
		}
		f.TLVs = append(f.TLVs, TLV{Type: TLVTrajectory, Value: buf})
	}
	if o.HasMeetingPoint {
		f.TLVs = append(f.TLVs, TLV{Type: TLVMeetingPoint, Value: putVec2(o.MeetingPoint)})
	}
	f.TLVs = append(f.TLVs, TLV{Type: TLVPosition, Value: putVec2(o.Position)})

	f.Header.PayloadLen = payloadLen(f.TLVs)
	return f
}

// ParseJoinOffer extracts a JoinOffer from a decoded JOIN_OFFER frame.
func ParseJoinOffer(f Frame) (JoinOffer, error) {
	o := JoinOffer{SeqNum: f.Header.SeqNum, SenderID: f.Header.SenderID}

	v, ok := f.Find(TLVConsumerID)
	if !ok {
		return JoinOffer{}, ErrCodec
	}
	id, err := getNodeID(v)
	if err != nil {
		return JoinOffer{}, err
	}
	o.ConsumerID = id

	v, ok = f.Find(TLVEnergyRequired)
	if !ok {
		return JoinOffer{}, ErrCodec
	}
	energy, err := getFloat32(v)
	if err != nil {
		return JoinOffer{}, err
	}
	o.EnergyRequiredKWh = energy

	if v, ok = f.Find(TLVTrajectory); ok {
		if len(v)%8 != 0 {
			return JoinOffer{}, ErrCodec
		}
		for off := 0; off < len(v); off += 8 {
			p, err := getVec2(v[off : off+8])
			if err != nil {
				return JoinOffer{}, err
			}
			o.Trajectory = append(o.Trajectory, p)
		}
	}

	if v, ok = f.Find(TLVMeetingPoint); ok {
		mp, err := getVec2(v)
		if err != nil {
			return JoinOffer{}, err
		}
		o.MeetingPoint = mp
		o.HasMeetingPoint = true
	}

	v, ok = f.Find(TLVPosition)
	if !ok {
		return JoinOffer{}, ErrCodec
	}
	pos, err := getVec2(v)
	if err != nil {
		return JoinOffer{}, err
	}
	o.Position = pos

	return o, nil
}

// JoinAccept is the decoded form of a provider's JOIN_ACCEPT: the session's
// confirmed terms. SessionID is a supplemented field (not present in the
// original wire format) used to disambiguate concurrent offers from the
// same provider — see SPEC_FULL.md §4.
type JoinAccept struct {
	SeqNum          uint32
	SenderID        identity.NodeID
	ProviderID      identity.NodeID
	MeetingPoint    geo.Vec2
	HasMeetingPoint bool
	BandwidthKW     float64
	DurationSec     float64
	PlatoonMembers  []identity.NodeID
	Topology        []byte
	SessionID       uint32
}

// BuildJoinAccept renders a JoinAccept into a one-hop JOIN_ACCEPT frame.
func BuildJoinAccept(a JoinAccept) Frame {
	f := Frame{Header: Header{MsgType: MsgJoinAccept, TTL: 1, SeqNum: a.SeqNum, SenderID: a.SenderID}}

	f.TLVs = append(f.TLVs, TLV{Type: TLVProviderID, Value: putNodeID(a.ProviderID)})
	if a.HasMeetingPoint {
		f.TLVs = append(f.TLVs, TLV{Type: TLVMeetingPoint, Value: putVec2(a.MeetingPoint)})
	}
	f.TLVs = append(f.TLVs, TLV{Type: TLVBandwidth, Value: putFloat32(a.BandwidthKW)})
	f.TLVs = append(f.TLVs, TLV{Type: TLVDuration, Value: putFloat32(a.DurationSec)})
	if len(a.PlatoonMembers) > 0 {
		buf := make([]byte, 0, 6*len(a.PlatoonMembers))
		for _, m := range a.PlatoonMembers {
			buf = append(buf, putNodeID(m)...)
		}
		f.TLVs = append(f.TLVs, TLV{Type: TLVPlatoonMembers, Value: buf})
	}
	if len(a.Topology) > 0 {
		f.TLVs = append(f.TLVs, TLV{Type: TLVTopology, Value: a.Topology})
	}
	f.TLVs = append(f.TLVs, TLV{Type: TLVSessionID, Value: putUint32(a.SessionID)})

	f.Header.PayloadLen = payloadLen(f.TLVs)
	return f
}

// ParseJoinAccept extracts a JoinAccept from a decoded JOIN_ACCEPT frame.
func ParseJoinAccept(f Frame) (JoinAccept, error) {
	a := JoinAccept{SeqNum: f.Header.SeqNum, SenderID: f.Header.SenderID}

	v, ok := f.Find(TLVProviderID)
	if !ok {
		return JoinAccept{}, ErrCodec
	}
	id, err := getNodeID(v)
	if err != nil {
		return JoinAccept{}, err
	}
	a.ProviderID = id

	if v, ok = f.Find(TLVMeetingPoint); ok {
		mp, err := getVec2(v)
		if err != nil {
			return JoinAccept{}, err
		}
		a.MeetingPoint = mp
		a.HasMeetingPoint = true
	}

	v, ok = f.Find(TLVBandwidth)
	if !ok {
		return JoinAccept{}, ErrCodec
	}
	bw, err := getFloat32(v)
	if err != nil {
		return JoinAccept{}, err
	}
	a.BandwidthKW = bw

	v, ok = f.Find(TLVDuration)
	if !ok {
		return JoinAccept{}, ErrCodec
	}
	dur, err := getFloat32(v)
	if err != nil {
		return JoinAccept{}, err
	}
	a.DurationSec = dur

	if v, ok = f.Find(TLVPlatoonMembers); ok {
		if len(v)%6 != 0 {
			return JoinAccept{}, ErrCodec
		}
		for off := 0; off < len(v); off += 6 {
			id, err := getNodeID(v[off : off+6])
			if err != nil {
				return JoinAccept{}, err
			}
			a.PlatoonMembers = append(a.PlatoonMembers, id)
		}
	}

	if v, ok = f.Find(TLVTopology); ok {
		a.Topology = v
	}

	v, ok = f.Find(TLVSessionID)
	if !ok {
		return JoinAccept{}, ErrCodec
	}
	sid, err := getUint32(v)
	if err != nil {
		return JoinAccept{}, err
	}
	a.SessionID = sid

	return a, nil
}

// Ack is the decoded form of a consumer's ACK, confirming it received and
// accepted the provider's JOIN_ACCEPT terms.
type Ack struct {
	SeqNum     uint32
	SenderID   identity.NodeID
	ConsumerID identity.NodeID
	SessionID  uint32
}

// BuildAck renders an Ack into a one-hop ACK frame.
func BuildAck(a Ack) Frame {
	f := Frame{Header: Header{MsgType: MsgAck, TTL: 1, SeqNum: a.SeqNum, SenderID: a.SenderID}}
	f.TLVs = append(f.TLVs, TLV{Type: TLVConsumerID, Value: putNodeID(a.ConsumerID)})
	f.TLVs = append(f.TLVs, TLV{Type: TLVSessionID, Value: putUint32(a.SessionID)})
	f.Header.PayloadLen = payloadLen(f.TLVs)
	return f
}

// ParseAck extracts an Ack from a decoded ACK frame.
func ParseAck(f Frame) (Ack, error) {
	a := Ack{SeqNum: f.Header.SeqNum, SenderID: f.Header.SenderID}

	v, ok := f.Find(TLVConsumerID)
	if !ok {
		return Ack{}, ErrCodec
	}
	id, err := getNodeID(v)
	if err != nil {
		return Ack{}, err
	}
	a.ConsumerID = id

	if v, ok = f.Find(TLVSessionID); ok {
		sid, err := getUint32(v)
		if err != nil {
			return Ack{}, err
		}
		a.SessionID = sid
	}

	return a, nil
}

// AckAck is the decoded form of a provider's ACKACK, the handshake's final
// leg. AcceptedOffer is a supplemented field confirming the provider still
// honors the terms it sent in JOIN_ACCEPT (it may have since revised them
// under contention from another consumer).
type AckAck struct {
	SeqNum        uint32
	SenderID      identity.NodeID
	ProviderID    identity.NodeID
	SessionID     uint32
	AcceptedOffer bool
}

// BuildAckAck renders an AckAck into a one-hop ACKACK frame.
func BuildAckAck(a AckAck) Frame {
	f := Frame{Header: Header{MsgType: MsgAckAck, TTL: 1, SeqNum: a.SeqNum, SenderID: a.SenderID}}
	f.TLVs = append(f.TLVs, TLV{Type: TLVProviderID, Value: putNodeID(a.ProviderID)})
	f.TLVs = append(f.TLVs, TLV{Type: TLVSessionID, Value: putUint32(a.SessionID)})
	accepted := byte(0)
	if a.AcceptedOffer {
		accepted = 1
	}
	f.TLVs = append(f.TLVs, TLV{Type: TLVAcceptedOffer, Value: []byte{accepted}})
	f.Header.PayloadLen = payloadLen(f.TLVs)
	return f
}

// ParseAckAck extracts an AckAck from a decoded ACKACK frame.
func ParseAckAck(f Frame) (AckAck, error) {
	a := AckAck{SeqNum: f.Header.SeqNum, SenderID: f.Header.SenderID}

	v, ok := f.Find(TLVProviderID)
	if !ok {
		return AckAck{}, ErrCodec
	}
	id, err := getNodeID(v)
	if err != nil {
		return AckAck{}, err
	}
	a.ProviderID = id

	if v, ok = f.Find(TLVSessionID); ok {
		sid, err := getUint32(v)
		if err != nil {
			return AckAck{}, err
		}
		a.SessionID = sid
	}

	if v, ok = f.Find(TLVAcceptedOffer); ok && len(v) == 1 {
		a.AcceptedOffer = v[0] != 0
	}

	return a, nil
}
