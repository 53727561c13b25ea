package wire

import "github.com/haidar-88/Capstone/identity"

// GridStatusReport is the decoded form of an RREH's periodic GRID_STATUS
// broadcast: the hub's available-power budget and operational health. State
// is a supplemented field (see SPEC_FULL.md §4): the original wire format
// carried only a free-form OPERATIONAL_STATE blob, here replaced with the
// closed GridState enum so consumers can react deterministically.
type GridStatusReport struct {
	SeqNum             uint32
	SenderID           identity.NodeID
	HubID              identity.NodeID
	RenewableFraction  float64
	AvailablePowerKW   float64
	MaxSessions        uint16
	QueueTimeSec       float64
	State              GridState
	PreviousHop        identity.NodeID
}

// BuildGridStatus renders a GridStatusReport into a frame with the given
// ttl. GRID_STATUS is forwardable, so previousHop is always attached.
func BuildGridStatus(g GridStatusReport, ttl uint8) Frame {
	f := Frame{Header: Header{MsgType: GridStatus, TTL: ttl, SeqNum: g.SeqNum, SenderID: g.SenderID}}

	f.TLVs = append(f.TLVs, TLV{Type: TLVHubID, Value: putNodeID(g.HubID)})
	f.TLVs = append(f.TLVs, TLV{Type: TLVRenewableFraction, Value: putFloat32(g.RenewableFraction)})
	f.TLVs = append(f.TLVs, TLV{Type: TLVAvailablePower, Value: putFloat32(g.AvailablePowerKW)})
	f.TLVs = append(f.TLVs, TLV{Type: TLVMaxSessions, Value: putUint16(g.MaxSessions)})
	f.TLVs = append(f.TLVs, TLV{Type: TLVQueueTime, Value: putFloat32(g.QueueTimeSec)})
	f.TLVs = append(f.TLVs, TLV{Type: TLVOperationalState, Value: []byte{byte(g.State)}})
	f.TLVs = append(f.TLVs, TLV{Type: TLVGridState, Value: []byte{byte(g.State)}})
	f.TLVs = append(f.TLVs, TLV{Type: TLVPreviousHop, Value: putNodeID(g.PreviousHop)})

	f.Header.PayloadLen = payloadLen(f.TLVs)
	return f
}

// ParseGridStatus extracts a GridStatusReport from a decoded GRID_STATUS
// frame. It accepts either the original OPERATIONAL_STATE byte or the
// supplemented GRID_STATE TLV, preferring the latter when both are present.
func ParseGridStatus(f Frame) (GridStatusReport, error) {
	g := GridStatusReport{SeqNum: f.Header.SeqNum, SenderID: f.Header.SenderID}

	v, ok := f.Find(TLVHubID)
	if !ok {
		return GridStatusReport{}, ErrCodec
	}
	hub, err := getNodeID(v)
	if err != nil {
		return GridStatusReport{}, err
	}
	g.HubID = hub

	v, ok = f.Find(TLVRenewableFraction)
	if !ok {
		return GridStatusReport{}, ErrCodec
	}
	rf, err := getFloat32(v)
	if err != nil {
		return GridStatusReport{}, err
	}
	g.RenewableFraction = rf

	v, ok = f.Find(TLVAvailablePower)
	if !ok {
		return GridStatusReport{}, ErrCodec
	}
	power, err := getFloat32(v)
	if err != nil {
		return GridStatusReport{}, err
	}
	g.AvailablePowerKW = power

	v, ok = f.Find(TLVMaxSessions)
	if !ok {
		return GridStatusReport{}, ErrCodec
	}
	max, err := getUint16(v)
	if err != nil {
		return GridStatusReport{}, err
	}
	g.MaxSessions = max

	v, ok = f.Find(TLVQueueTime)
	if !ok {
		return GridStatusReport{}, ErrCodec
	}
	qt, err := getFloat32(v)
	if err != nil {
		return GridStatusReport{}, err
	}
	g.QueueTimeSec = qt

	if v, ok = f.Find(TLVGridState); ok && len(v) == 1 {
		g.State = GridState(v[0])
	} else if v, ok = f.Find(TLVOperationalState); ok && len(v) == 1 {
		g.State = GridState(v[0])
	} else {
		return GridStatusReport{}, ErrCodec
	}

	v, ok = f.Find(TLVPreviousHop)
	if !ok {
		return GridStatusReport{}, ErrCodec
	}
	prev, err := getNodeID(v)
	if err != nil {
		return GridStatusReport{}, err
	}
	g.PreviousHop = prev

	return g, nil
}
