package charging

import (
	"github.com/haidar-88/Capstone/config"
	"github.com/haidar-88/Capstone/ctxt"
	"github.com/haidar-88/Capstone/geo"
	"github.com/haidar-88/Capstone/identity"
	"github.com/haidar-88/Capstone/sim"
	"github.com/haidar-88/Capstone/wire"
)

// ConsumerMachine drives a single active Session through
// DISCOVER -> EVALUATE -> SEND_OFFER -> WAIT_ACCEPT -> ACK -> WAIT_ACKACK ->
// ALLOCATED -> TRAVEL -> CHARGE -> LEAVE, per spec §4.5.
type ConsumerMachine struct {
	Session *Session
	seq     uint32
}

// Tick drives deadline checks and state transitions that don't wait on an
// incoming frame (DISCOVER/EVALUATE/SEND_OFFER). It returns frames to send.
func (m *ConsumerMachine) Tick(c *ctxt.Context, now sim.VTimeInSec, requiredEnergyKWh float64) []wire.Frame {
	if m.Session == nil {
		if requiredEnergyKWh <= 0 {
			return nil
		}
		m.Session = &Session{State: Discover, RequiredEnergyKWh: requiredEnergyKWh}
	}

	s := m.Session
	switch s.State {
	case Discover:
		s.State = Evaluate
		return m.Tick(c, now, requiredEnergyKWh)

	case Evaluate:
		providerID, ok := pickBestProvider(c)
		if !ok {
			return nil
		}
		s.ProviderID = providerID
		s.State = SendOffer
		return m.Tick(c, now, requiredEnergyKWh)

	case SendOffer:
		m.seq++
		s.SessionID = sessionID(c.Self().ID, s.ProviderID, m.seq)
		s.Deadline = now + c.Config().JoinAcceptTimeout
		s.State = WaitAccept
		c.Metrics().Inc("join_offer_sent")
		return []wire.Frame{wire.BuildJoinOffer(wire.JoinOffer{
			SeqNum:            m.seq,
			SenderID:          c.Self().ID,
			ConsumerID:        c.Self().ID,
			EnergyRequiredKWh: s.RequiredEnergyKWh,
			Position:          c.Self().Position,
		})}

	case WaitAccept:
		if now >= s.Deadline {
			c.Metrics().Inc("join_accept_timeout")
			c.Providers().RemoveStale(s.ProviderID)
			s.State = Evaluate
			return m.Tick(c, now, requiredEnergyKWh)
		}
		return nil

	case Ack:
		m.seq++
		s.Deadline = now + c.Config().AckAckTimeout
		s.State = WaitAckAck
		c.Metrics().Inc("ack_sent")
		return []wire.Frame{wire.BuildAck(wire.Ack{
			SeqNum:     m.seq,
			SenderID:   c.Self().ID,
			ConsumerID: c.Self().ID,
			SessionID:  s.SessionID,
		})}

	case WaitAckAck:
		if now >= s.Deadline {
			c.Metrics().Inc("ackack_timeout")
			s.State = Failed
		}
		return nil

	default:
		return nil
	}
}

// ReceiveJoinAccept processes a JOIN_ACCEPT addressed to the active
// session, advancing WAIT_ACCEPT -> ACK.
func (m *ConsumerMachine) ReceiveJoinAccept(c *ctxt.Context, a wire.JoinAccept, now sim.VTimeInSec) {
	s := m.Session
	if s == nil || s.State != WaitAccept || a.ProviderID != s.ProviderID {
		return
	}
	s.SessionID = a.SessionID
	s.MeetingPoint = a.MeetingPoint
	if a.BandwidthKW > 0 && a.DurationSec > 0 {
		s.AllocatedEnergyKWh = a.BandwidthKW * a.DurationSec / 3600
	}
	s.State = Ack
	c.Metrics().Inc("join_accept_received")
}

// ReceiveAckAck processes an ACKACK for the active session, advancing
// WAIT_ACKACK -> ALLOCATED (or PartialAllocated if the provider only
// confirmed a reduced allocation — the supplemented session outcome).
func (m *ConsumerMachine) ReceiveAckAck(c *ctxt.Context, a wire.AckAck, now sim.VTimeInSec) {
	s := m.Session
	if s == nil || s.State != WaitAckAck || a.ProviderID != s.ProviderID {
		return
	}
	if !a.AcceptedOffer {
		s.State = Failed
		c.Metrics().Inc("ackack_rejected")
		return
	}
	if s.AllocatedEnergyKWh > 0 && s.AllocatedEnergyKWh < s.RequiredEnergyKWh {
		s.State = PartialAllocated
	} else {
		s.State = Allocated
	}
	c.Metrics().Inc("session_allocated")
}

// CancelForRoleSwitch fails the active session with ErrRoleSwitched, per
// spec §4.5's atomic role-transition rule.
func (m *ConsumerMachine) CancelForRoleSwitch() {
	if m.Session != nil && m.Session.State != Done && m.Session.State != Failed {
		m.Session.State = Failed
	}
}

// pickBestProvider ranks every known provider by the EVALUATE score and
// returns the winner, breaking ties deterministically on the lower NodeID.
// A provider whose entry raced a concurrent Prune out of ProviderTable is
// skipped rather than scored as zero.
func pickBestProvider(c *ctxt.Context) (identity.NodeID, bool) {
	ids := c.Providers().ProviderIDs()
	if len(ids) == 0 {
		return identity.NodeID(0), false
	}

	w := c.Config().ProviderRank
	self := c.Self()
	best := identity.NodeID(0)
	bestScore := 0.0
	found := false

	for _, id := range ids {
		info, ok := c.Providers().Lookup(id)
		if !ok {
			continue
		}
		score := evaluateScore(w, self, info, c.Config().EnergyConsumptionRateKWhPerKm)
		if !found || score > bestScore || (score == bestScore && id < best) {
			best, bestScore, found = id, score, true
		}
	}
	return best, found
}

// evaluateScore implements the EVALUATE ranking from spec §4.5: a weighted
// combination of green fraction, detour distance, deadline feasibility,
// expected cost, and direction alignment. Detour and cost are penalties, so
// they enter negated.
//
// Deadline feasibility mirrors the original implementation's urgency ratio
// (distance the battery can still cover divided by the distance it needs to
// cover) but scoped to this one provider: it is the fraction of the energy
// needed to reach the provider that self's remaining battery can actually
// supply, capped at 1.0 once the trip is comfortably affordable. A provider
// self cannot physically reach before running out of charge scores 0 on
// this term regardless of how attractive it looks otherwise.
func evaluateScore(w config.ProviderScoreWeights, self *identity.State, info ctxt.ProviderInfo, energyRateKWhPerKm float64) float64 {
	green := 0.0
	if info.HasRenewable {
		green = info.RenewableFraction
	}

	detour := self.Position.Dist(info.Position)
	cost := 0.0
	if info.ShareableEnergyKWh > 0 {
		cost = 1.0 / info.ShareableEnergyKWh
	}

	energyToProvider := detour * energyRateKWhPerKm
	feasibility := 1.0
	if energyToProvider > 0 {
		feasibility = self.BatteryEnergyKWh / energyToProvider
		if feasibility > 1.0 {
			feasibility = 1.0
		}
	}

	alignment := geo.DirectionMatch(self.Direction, info.Direction)

	return w.GreenFraction*green -
		w.Detour*detour +
		w.DeadlineFeasibility*feasibility -
		w.Cost*cost +
		w.Direction*alignment
}
