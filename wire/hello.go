package wire

import (
	"github.com/haidar-88/Capstone/geo"
	"github.com/haidar-88/Capstone/identity"
)

// LinkStatus is a bitset describing what the sender knows about one
// advertised neighbor: whether the link is confirmed symmetric (the
// neighbor also lists the sender), and whether the sender has selected
// that neighbor as one of its own MPRs. The MPR bit is how a node learns
// it is MPR-active (spec §4.4): if any neighbor's HELLO lists this node
// with LinkMPR set, this node is MPR-active.
type LinkStatus uint8

const (
	LinkSymmetric LinkStatus = 1 << 0
	LinkMPR       LinkStatus = 1 << 1
)

// NeighborAdvert is one entry of a HELLO's NEIGHBOR_LIST TLV: an advertised
// one-hop neighbor id plus the sender's link status toward it.
type NeighborAdvert struct {
	ID     identity.NodeID
	Status LinkStatus
}

// Hello is the decoded form of a Layer A HELLO frame: the sender's one-hop
// neighbor list (for 2-hop and MPR-active computation), its QoS metrics
// vector, and — if it is provider-capable — its shareable energy and
// direction of travel.
type Hello struct {
	SeqNum             uint32
	SenderID           identity.NodeID
	Position           geo.Vec2
	Velocity           geo.Vec2
	NeighborList       []NeighborAdvert
	Metrics            QoSMetrics
	ProviderFlag       bool
	ShareableEnergyKWh float64
	Direction          [2]float64
}

// QoSMetrics is the packed per-link quality vector a HELLO's METRICS TLV
// carries: battery percent, willingness, an ETX-style link-quality
// estimate, jitter, relative speed, a lane-congestion weight, and a
// historical stability score — the inputs to the QoS rank used for MPR
// tie-breaking (spec §4.3 step 4).
type QoSMetrics struct {
	BatteryPercent float64
	Willingness    float64
	ETX            float64
	JitterMs       float64
	RelativeSpeed  float64
	LaneWeight     float64
	Stability      float64
}

const metricsSize = 7 * 4

func encodeMetrics(m QoSMetrics) []byte {
	buf := make([]byte, 0, metricsSize)
	buf = append(buf, putFloat32(m.BatteryPercent)...)
	buf = append(buf, putFloat32(m.Willingness)...)
	buf = append(buf, putFloat32(m.ETX)...)
	buf = append(buf, putFloat32(m.JitterMs)...)
	buf = append(buf, putFloat32(m.RelativeSpeed)...)
	buf = append(buf, putFloat32(m.LaneWeight)...)
	buf = append(buf, putFloat32(m.Stability)...)
	return buf
}

func decodeMetrics(b []byte) (QoSMetrics, error) {
	if len(b) != metricsSize {
		return QoSMetrics{}, ErrCodec
	}
	fields := make([]float64, 7)
	for i := range fields {
		v, err := getFloat32(b[i*4 : i*4+4])
		if err != nil {
			return QoSMetrics{}, err
		}
		fields[i] = v
	}
	return QoSMetrics{
		BatteryPercent: fields[0],
		Willingness:    fields[1],
		ETX:            fields[2],
		JitterMs:       fields[3],
		RelativeSpeed:  fields[4],
		LaneWeight:     fields[5],
		Stability:      fields[6],
	}, nil
}

// BuildHello renders a Hello into a one-hop HELLO frame. HELLO is never
// forwarded, so ttl is always 1 and no PREVIOUS_HOP TLV is attached.
func BuildHello(h Hello) Frame {
	f := Frame{Header: Header{MsgType: HELLO, TTL: 1, SeqNum: h.SeqNum, SenderID: h.SenderID}}

	f.TLVs = append(f.TLVs, TLV{Type: TLVPosition, Value: putVec2(h.Position)})
	f.TLVs = append(f.TLVs, TLV{Type: TLVVelocity, Value: putVec2(h.Velocity)})

	if len(h.NeighborList) > 0 {
		buf := make([]byte, 0, 7*len(h.NeighborList))
		for _, n := range h.NeighborList {
			buf = append(buf, putNodeID(n.ID)...)
			buf = append(buf, byte(n.Status))
		}
		f.TLVs = append(f.TLVs, TLV{Type: TLVNeighborList, Value: buf})
	}

	f.TLVs = append(f.TLVs, TLV{Type: TLVMetrics, Value: encodeMetrics(h.Metrics)})

	if h.ProviderFlag {
		f.TLVs = append(f.TLVs, TLV{Type: TLVProviderFlag, Value: []byte{1}})
		f.TLVs = append(f.TLVs, TLV{Type: TLVEnergyAvailable, Value: putFloat32(h.ShareableEnergyKWh)})
		dir := make([]byte, 0, 8)
		dir = append(dir, putFloat32(h.Direction[0])...)
		dir = append(dir, putFloat32(h.Direction[1])...)
		f.TLVs = append(f.TLVs, TLV{Type: TLVDirection, Value: dir})
	}

	f.Header.PayloadLen = payloadLen(f.TLVs)
	return f
}

// ParseHello extracts a Hello from a decoded HELLO frame.
func ParseHello(f Frame) (Hello, error) {
	h := Hello{SeqNum: f.Header.SeqNum, SenderID: f.Header.SenderID}

	if v, ok := f.Find(TLVPosition); ok {
		pos, err := getVec2(v)
		if err != nil {
			return Hello{}, err
		}
		h.Position = pos
	}
	if v, ok := f.Find(TLVVelocity); ok {
		vel, err := getVec2(v)
		if err != nil {
			return Hello{}, err
		}
		h.Velocity = vel
	}

	if v, ok := f.Find(TLVNeighborList); ok {
		if len(v)%7 != 0 {
			return Hello{}, ErrCodec
		}
		for off := 0; off < len(v); off += 7 {
			id, err := getNodeID(v[off : off+6])
			if err != nil {
				return Hello{}, err
			}
			h.NeighborList = append(h.NeighborList, NeighborAdvert{ID: id, Status: LinkStatus(v[off+6])})
		}
	}

	if v, ok := f.Find(TLVMetrics); ok {
		m, err := decodeMetrics(v)
		if err != nil {
			return Hello{}, err
		}
		h.Metrics = m
	}

	if v, ok := f.Find(TLVProviderFlag); ok && len(v) == 1 && v[0] != 0 {
		h.ProviderFlag = true

		if v, ok := f.Find(TLVEnergyAvailable); ok {
			energy, err := getFloat32(v)
			if err != nil {
				return Hello{}, err
			}
			h.ShareableEnergyKWh = energy
		}

		if v, ok := f.Find(TLVDirection); ok {
			if len(v) != 8 {
				return Hello{}, ErrCodec
			}
			x, err := getFloat32(v[0:4])
			if err != nil {
				return Hello{}, err
			}
			y, err := getFloat32(v[4:8])
			if err != nil {
				return Hello{}, err
			}
			h.Direction = [2]float64{x, y}
		}
	}

	return h, nil
}

func payloadLen(tlvs []TLV) uint16 {
	n := 0
	for _, t := range tlvs {
		n += 2 + len(t.Value)
	}
	return uint16(n)
}
