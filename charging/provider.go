package charging

import (
	"sort"

	"github.com/haidar-88/Capstone/ctxt"
	"github.com/haidar-88/Capstone/identity"
	"github.com/haidar-88/Capstone/sim"
	"github.com/haidar-88/Capstone/wire"
)

// ProviderCapacity bounds what a ProviderMachine can still allocate:
// AvailableSlots caps concurrent sessions, AvailableEnergyKWh caps the
// total energy still promisable across them.
type ProviderCapacity struct {
	AvailableSlots     int
	AvailableEnergyKWh float64
}

type pendingOffer struct {
	ConsumerID        identity.NodeID
	EnergyRequiredKWh float64
}

// ProviderMachine drives the provider/platoon-head side of the handshake:
// ANNOUNCE -> WAIT_OFFERS -> SELECT -> SEND_ACCEPT -> WAIT_ACK ->
// SEND_ACKACK -> CHARGE, per spec §4.5. ANNOUNCE itself is Layer B's PA
// origination; this machine starts from the offer-collection window.
type ProviderMachine struct {
	Capacity ProviderCapacity

	windowOpen     bool
	windowDeadline sim.VTimeInSec
	offers         map[identity.NodeID]pendingOffer

	sessions map[uint32]*Session

	seq uint32
}

// NewProviderMachine returns a ProviderMachine with the given starting
// capacity.
func NewProviderMachine(capacity ProviderCapacity) *ProviderMachine {
	return &ProviderMachine{
		Capacity: capacity,
		offers:   make(map[identity.NodeID]pendingOffer),
		sessions: make(map[uint32]*Session),
	}
}

// ReceiveJoinOffer records a consumer's offer for the next SELECT pass,
// opening the offer window if one isn't already running. A provider with
// no remaining capacity refuses outright: it records the offer nowhere
// and never sends a JOIN_ACCEPT, so the consumer times out normally, per
// ErrCapacityExhausted's propagation policy.
func (m *ProviderMachine) ReceiveJoinOffer(c *ctxt.Context, o wire.JoinOffer, now sim.VTimeInSec) {
	if m.Capacity.AvailableSlots <= 0 || m.Capacity.AvailableEnergyKWh <= 0 {
		c.Metrics().Inc("capacity_exhausted")
		return
	}
	if !m.windowOpen {
		m.windowOpen = true
		m.windowDeadline = now + c.Config().OfferWindow
	}
	m.offers[o.ConsumerID] = pendingOffer{ConsumerID: o.ConsumerID, EnergyRequiredKWh: o.EnergyRequiredKWh}
	c.Metrics().Inc("join_offer_received")
}

// ReceiveAck advances a booked session from WAIT_ACK to SEND_ACKACK.
func (m *ProviderMachine) ReceiveAck(c *ctxt.Context, a wire.Ack, now sim.VTimeInSec) {
	s, ok := m.sessions[a.SessionID]
	if !ok || s.State != WaitAck || s.ConsumerID != a.ConsumerID {
		return
	}
	s.State = SendAckAck
	c.Metrics().Inc("ack_received")
}

// Tick closes an expired offer window with SELECT, advances every booked
// session through SEND_ACCEPT/SEND_ACKACK, and reclaims capacity from any
// session whose WAIT_ACK deadline lapsed. currentMembers is this node's
// platoon roster if it already leads one (nil otherwise), advertised on
// any JOIN_ACCEPT sent this tick. The second return value lists every
// consumer whose ACKACK was just sent, entering CHARGE — the caller's
// signal to admit them into a platoon, bootstrapping one first if this
// node does not yet lead one.
func (m *ProviderMachine) Tick(c *ctxt.Context, now sim.VTimeInSec, currentMembers []identity.NodeID) ([]wire.Frame, []identity.NodeID) {
	var frames []wire.Frame

	if m.windowOpen && now >= m.windowDeadline {
		frames = append(frames, m.selectAndAccept(c, now, currentMembers)...)
	}

	var expired []uint32
	var newlyCharging []identity.NodeID
	ids := make([]uint32, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		s := m.sessions[id]
		switch s.State {
		case WaitAck:
			if now >= s.Deadline {
				m.Capacity.AvailableSlots++
				m.Capacity.AvailableEnergyKWh += s.AllocatedEnergyKWh
				s.State = Failed
				c.Metrics().Inc("ack_timeout")
				expired = append(expired, id)
			}
		case SendAckAck:
			m.seq++
			frames = append(frames, wire.BuildAckAck(wire.AckAck{
				SeqNum:        m.seq,
				SenderID:      c.Self().ID,
				ProviderID:    c.Self().ID,
				SessionID:     s.SessionID,
				AcceptedOffer: true,
			}))
			s.State = Charge
			c.Metrics().Inc("session_charging")
			newlyCharging = append(newlyCharging, s.ConsumerID)
		}
	}
	for _, id := range expired {
		delete(m.sessions, id)
	}

	return frames, newlyCharging
}

// selectAndAccept applies the SELECT policy to the collected offers:
// smallest energy request first (serves the most consumers per unit
// capacity), ties broken by lower ConsumerID, greedily accepted while
// slots and energy remain. currentMembers, if this node already leads a
// platoon, is advertised on the JOIN_ACCEPT so the consumer learns who
// else it would be joining.
func (m *ProviderMachine) selectAndAccept(c *ctxt.Context, now sim.VTimeInSec, currentMembers []identity.NodeID) []wire.Frame {
	pending := make([]pendingOffer, 0, len(m.offers))
	for _, o := range m.offers {
		pending = append(pending, o)
	}
	sort.Slice(pending, func(i, j int) bool {
		if pending[i].EnergyRequiredKWh != pending[j].EnergyRequiredKWh {
			return pending[i].EnergyRequiredKWh < pending[j].EnergyRequiredKWh
		}
		return pending[i].ConsumerID < pending[j].ConsumerID
	})

	var frames []wire.Frame
	for _, o := range pending {
		if m.Capacity.AvailableSlots <= 0 || m.Capacity.AvailableEnergyKWh <= 0 {
			c.Metrics().Inc("capacity_exhausted")
			continue
		}
		allocated := o.EnergyRequiredKWh
		if allocated > m.Capacity.AvailableEnergyKWh {
			allocated = m.Capacity.AvailableEnergyKWh
		}
		m.Capacity.AvailableSlots--
		m.Capacity.AvailableEnergyKWh -= allocated

		m.seq++
		sid := sessionID(o.ConsumerID, c.Self().ID, m.seq)
		rate := c.Config().ChargeRateKW
		duration := 0.0
		if rate > 0 {
			duration = allocated / rate * 3600
		}

		s := &Session{
			SessionID:          sid,
			ConsumerID:         o.ConsumerID,
			ProviderID:         c.Self().ID,
			RequiredEnergyKWh:  o.EnergyRequiredKWh,
			AllocatedEnergyKWh: allocated,
			State:              WaitAck,
			Deadline:           now + c.Config().AckTimeout,
		}
		m.sessions[sid] = s
		c.Metrics().Inc("join_accept_sent")

		frames = append(frames, wire.BuildJoinAccept(wire.JoinAccept{
			SeqNum:          m.seq,
			SenderID:        c.Self().ID,
			ProviderID:      c.Self().ID,
			MeetingPoint:    c.Self().Position,
			HasMeetingPoint: true,
			BandwidthKW:     rate,
			DurationSec:     duration,
			PlatoonMembers:  currentMembers,
			SessionID:       sid,
		}))
	}

	m.offers = make(map[identity.NodeID]pendingOffer)
	m.windowOpen = false
	return frames
}

// CancelForRoleSwitch fails every non-terminal booked session with
// ErrRoleSwitched's semantics and returns its capacity to the pool.
func (m *ProviderMachine) CancelForRoleSwitch() {
	for _, s := range m.sessions {
		if s.State == Done || s.State == Failed {
			continue
		}
		m.Capacity.AvailableSlots++
		m.Capacity.AvailableEnergyKWh += s.AllocatedEnergyKWh
		s.State = Failed
	}
}
