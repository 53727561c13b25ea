package charging

import (
	"github.com/haidar-88/Capstone/ctxt"
	"github.com/haidar-88/Capstone/identity"
	"github.com/haidar-88/Capstone/sim"
	"github.com/haidar-88/Capstone/wire"
)

// RREHMachine is the stationary-hub counterpart of ProviderMachine: the
// same ANNOUNCE -> WAIT_OFFERS -> SELECT -> SEND_ACCEPT -> WAIT_ACK ->
// SEND_ACKACK -> CHARGE shape, but SELECT serves a FIFO queue instead of
// ProviderMachine's ranked policy, and there is no mobility. It also owns
// the supplemented grid-health machine (NORMAL/CONGESTED/LIMITED/OFFLINE)
// that emits an immediate GRID_STATUS on every health transition.
type RREHMachine struct {
	Capacity  ProviderCapacity
	StartCapacity ProviderCapacity

	windowOpen     bool
	windowDeadline sim.VTimeInSec
	queue          []pendingOffer
	queued         map[identity.NodeID]bool

	sessions map[uint32]*Session

	Health GridHealth

	seq uint32
}

// NewRREHMachine returns an RREHMachine with the given starting capacity.
func NewRREHMachine(capacity ProviderCapacity) *RREHMachine {
	return &RREHMachine{
		Capacity:      capacity,
		StartCapacity: capacity,
		queued:        make(map[identity.NodeID]bool),
		sessions:      make(map[uint32]*Session),
	}
}

// ReceiveJoinOffer enqueues a consumer's offer in arrival order. A hub with
// no remaining capacity refuses outright, same as ProviderMachine.
func (m *RREHMachine) ReceiveJoinOffer(c *ctxt.Context, o wire.JoinOffer, now sim.VTimeInSec) {
	if m.Capacity.AvailableSlots <= 0 || m.Capacity.AvailableEnergyKWh <= 0 {
		c.Metrics().Inc("capacity_exhausted")
		return
	}
	if m.queued[o.ConsumerID] {
		return
	}
	if !m.windowOpen {
		m.windowOpen = true
		m.windowDeadline = now + c.Config().OfferWindow
	}
	m.queue = append(m.queue, pendingOffer{ConsumerID: o.ConsumerID, EnergyRequiredKWh: o.EnergyRequiredKWh})
	m.queued[o.ConsumerID] = true
	c.Metrics().Inc("join_offer_received")
}

// ReceiveAck advances a booked session from WAIT_ACK to SEND_ACKACK.
func (m *RREHMachine) ReceiveAck(c *ctxt.Context, a wire.Ack, now sim.VTimeInSec) {
	s, ok := m.sessions[a.SessionID]
	if !ok || s.State != WaitAck || s.ConsumerID != a.ConsumerID {
		return
	}
	s.State = SendAckAck
	c.Metrics().Inc("ack_received")
}

// Tick drains the FIFO queue once its window lapses, advances booked
// sessions, reclaims capacity from WAIT_ACK timeouts, and re-evaluates
// grid health.
func (m *RREHMachine) Tick(c *ctxt.Context, now sim.VTimeInSec) []wire.Frame {
	var frames []wire.Frame

	if m.windowOpen && now >= m.windowDeadline {
		frames = append(frames, m.drainQueue(c, now)...)
	}

	var expired []uint32
	for id, s := range m.sessions {
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
		}
	}
	for _, id := range expired {
		delete(m.sessions, id)
	}

	if frame, ok := m.Health.Evaluate(c, now, m.Capacity, m.StartCapacity, len(m.queue)); ok {
		frames = append(frames, frame)
	}

	return frames
}

// drainQueue accepts offers strictly in arrival order while slots and
// energy remain, then closes the window.
func (m *RREHMachine) drainQueue(c *ctxt.Context, now sim.VTimeInSec) []wire.Frame {
	var frames []wire.Frame
	var remaining []pendingOffer

	for _, o := range m.queue {
		if m.Capacity.AvailableSlots <= 0 || m.Capacity.AvailableEnergyKWh <= 0 {
			remaining = append(remaining, o)
			continue
		}
		delete(m.queued, o.ConsumerID)

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

		m.sessions[sid] = &Session{
			SessionID:          sid,
			ConsumerID:         o.ConsumerID,
			ProviderID:         c.Self().ID,
			RequiredEnergyKWh:  o.EnergyRequiredKWh,
			AllocatedEnergyKWh: allocated,
			State:              WaitAck,
			Deadline:           now + c.Config().AckTimeout,
		}
		c.Metrics().Inc("join_accept_sent")

		frames = append(frames, wire.BuildJoinAccept(wire.JoinAccept{
			SeqNum:          m.seq,
			SenderID:        c.Self().ID,
			ProviderID:      c.Self().ID,
			MeetingPoint:    c.Self().Position,
			HasMeetingPoint: true,
			BandwidthKW:     rate,
			DurationSec:     duration,
			SessionID:       sid,
		}))
	}

	if len(remaining) > 0 {
		c.Metrics().Inc("capacity_exhausted")
	}
	m.queue = remaining
	m.windowOpen = false
	if len(m.queue) > 0 {
		m.windowOpen = true
		m.windowDeadline = now + c.Config().OfferWindow
	}
	return frames
}
