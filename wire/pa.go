package wire

import (
	"github.com/haidar-88/Capstone/geo"
	"github.com/haidar-88/Capstone/identity"
)

// ProviderAnnouncement is one provider's capability advertisement: either
// the aggregator's own entry or one relayed from a HELLO/PA-learned
// neighbor. SeqNum, SenderID, and PreviousHop are the frame-level fields a
// caller supplies when building a single-entry frame with BuildPA, or that
// ParsePA copies down from the frame the entry was decoded out of; they are
// not part of an entry's own wire encoding within an aggregated frame.
type ProviderAnnouncement struct {
	SeqNum             uint32
	SenderID           identity.NodeID
	ProviderID         identity.NodeID
	ProviderType       ProviderKind
	Position           geo.Vec2
	Destination        geo.Vec2
	HasDestination     bool
	PlatoonSize        uint16
	EnergyAvailableKWh float64
	Direction          geo.Vec2
	RenewableFraction  float64
	HasRenewable       bool
	PreviousHop        identity.NodeID
}

// ProviderAnnouncementSet is the decoded form of a Layer B PA frame under
// the willingness-weighted aggregation scheme: a shared header (the
// aggregating sender, its sequence number, and the hop it received the
// information over) plus one PROVIDER_ENTRY TLV per provider it is
// reporting on, in the order the aggregator emitted them.
type ProviderAnnouncementSet struct {
	SeqNum      uint32
	SenderID    identity.NodeID
	PreviousHop identity.NodeID
	Entries     []ProviderAnnouncement
}

// EncodeProviderEntries renders each entry's provider-specific fields into
// the byte value of one PROVIDER_ENTRY TLV, in the order given. The
// frame-level SeqNum/SenderID/PreviousHop are not part of this encoding;
// BuildPASet attaches those separately, once per frame.
func EncodeProviderEntries(entries []ProviderAnnouncement) [][]byte {
	out := make([][]byte, len(entries))
	for i, e := range entries {
		out[i] = encodeProviderEntry(e)
	}
	return out
}

func encodeProviderEntry(e ProviderAnnouncement) []byte {
	var flags byte
	if e.HasDestination {
		flags |= 1
	}
	if e.HasRenewable {
		flags |= 2
	}

	buf := make([]byte, 0, 42)
	buf = append(buf, putNodeID(e.ProviderID)...)
	buf = append(buf, byte(e.ProviderType))
	buf = append(buf, flags)
	buf = append(buf, putVec2(e.Position)...)
	if e.HasDestination {
		buf = append(buf, putVec2(e.Destination)...)
	}
	buf = append(buf, putUint16(e.PlatoonSize)...)
	buf = append(buf, putFloat32(e.EnergyAvailableKWh)...)
	buf = append(buf, putVec2(e.Direction)...)
	if e.HasRenewable {
		buf = append(buf, putFloat32(e.RenewableFraction)...)
	}
	return buf
}

func decodeProviderEntry(b []byte) (ProviderAnnouncement, error) {
	const fixedLen = 6 + 1 + 1 + 8 + 2 + 4 + 8
	if len(b) < fixedLen {
		return ProviderAnnouncement{}, ErrCodec
	}

	id, err := getNodeID(b[0:6])
	if err != nil {
		return ProviderAnnouncement{}, err
	}
	e := ProviderAnnouncement{ProviderID: id, ProviderType: ProviderKind(b[6])}
	flags := b[7]

	pos, err := getVec2(b[8:16])
	if err != nil {
		return ProviderAnnouncement{}, err
	}
	e.Position = pos
	off := 16

	if flags&1 != 0 {
		if len(b) < off+8 {
			return ProviderAnnouncement{}, ErrCodec
		}
		dest, err := getVec2(b[off : off+8])
		if err != nil {
			return ProviderAnnouncement{}, err
		}
		e.Destination = dest
		e.HasDestination = true
		off += 8
	}

	if len(b) < off+2+4+8 {
		return ProviderAnnouncement{}, ErrCodec
	}
	n, err := getUint16(b[off : off+2])
	if err != nil {
		return ProviderAnnouncement{}, err
	}
	e.PlatoonSize = n
	off += 2

	energy, err := getFloat32(b[off : off+4])
	if err != nil {
		return ProviderAnnouncement{}, err
	}
	e.EnergyAvailableKWh = energy
	off += 4

	dir, err := getVec2(b[off : off+8])
	if err != nil {
		return ProviderAnnouncement{}, err
	}
	e.Direction = dir
	off += 8

	if flags&2 != 0 {
		if len(b) < off+4 {
			return ProviderAnnouncement{}, ErrCodec
		}
		rf, err := getFloat32(b[off : off+4])
		if err != nil {
			return ProviderAnnouncement{}, err
		}
		e.RenewableFraction = rf
		e.HasRenewable = true
		off += 4
	}

	if off != len(b) {
		return ProviderAnnouncement{}, ErrCodec
	}
	return e, nil
}

// BuildPASet renders a ProviderAnnouncementSet into an aggregated PA frame:
// one PROVIDER_ENTRY TLV per entry, in the order given, plus the frame's
// shared PREVIOUS_HOP. PA is forwardable and the codec rejects a
// forwardable frame missing PREVIOUS_HOP, so it is always attached.
func BuildPASet(set ProviderAnnouncementSet, ttl uint8) Frame {
	f := Frame{Header: Header{MsgType: PA, TTL: ttl, SeqNum: set.SeqNum, SenderID: set.SenderID}}

	for _, v := range EncodeProviderEntries(set.Entries) {
		f.TLVs = append(f.TLVs, TLV{Type: TLVProviderEntry, Value: v})
	}
	f.TLVs = append(f.TLVs, TLV{Type: TLVPreviousHop, Value: putNodeID(set.PreviousHop)})

	f.Header.PayloadLen = payloadLen(f.TLVs)
	return f
}

// ParsePASet extracts every PROVIDER_ENTRY TLV out of a decoded PA frame,
// plus its shared PREVIOUS_HOP. A PA carrying zero entries is malformed.
func ParsePASet(f Frame) (ProviderAnnouncementSet, error) {
	set := ProviderAnnouncementSet{SeqNum: f.Header.SeqNum, SenderID: f.Header.SenderID}

	raw := f.FindAll(TLVProviderEntry)
	if len(raw) == 0 {
		return ProviderAnnouncementSet{}, ErrCodec
	}
	for _, v := range raw {
		e, err := decodeProviderEntry(v)
		if err != nil {
			return ProviderAnnouncementSet{}, err
		}
		set.Entries = append(set.Entries, e)
	}

	v, ok := f.Find(TLVPreviousHop)
	if !ok {
		return ProviderAnnouncementSet{}, ErrCodec
	}
	prev, err := getNodeID(v)
	if err != nil {
		return ProviderAnnouncementSet{}, err
	}
	set.PreviousHop = prev

	return set, nil
}

// BuildPA renders a single provider announcement as a one-entry PA frame.
// Layer B's own origination path aggregates every known provider into one
// frame per tick with BuildPASet; BuildPA remains as the minimal
// single-entry constructor tests and other callers build a bare PA with.
func BuildPA(pa ProviderAnnouncement, ttl uint8) Frame {
	return BuildPASet(ProviderAnnouncementSet{
		SeqNum:      pa.SeqNum,
		SenderID:    pa.SenderID,
		PreviousHop: pa.PreviousHop,
		Entries:     []ProviderAnnouncement{pa},
	}, ttl)
}

// ParsePA extracts the first entry of a PA frame, with the frame's
// SeqNum/SenderID/PreviousHop copied onto it. A frame carrying more than
// one entry should be parsed with ParsePASet instead, entry by entry.
func ParsePA(f Frame) (ProviderAnnouncement, error) {
	set, err := ParsePASet(f)
	if err != nil {
		return ProviderAnnouncement{}, err
	}
	e := set.Entries[0]
	e.SeqNum = set.SeqNum
	e.SenderID = set.SenderID
	e.PreviousHop = set.PreviousHop
	return e, nil
}
