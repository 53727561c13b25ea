package charging

import (
	"github.com/haidar-88/Capstone/ctxt"
	"github.com/haidar-88/Capstone/identity"
	"github.com/haidar-88/Capstone/sim"
	"github.com/haidar-88/Capstone/wire"
)

// Layer is Layer C's entry point: the RoleManager plus whichever of the
// three handshake machines (consumer, provider/platoon-head, RREH) the
// node's current role activates. The consumer machine and the one
// provider-side machine matching the starting role (RREH or ranked
// provider) are built at construction, so a role switch never needs to
// allocate one mid-run; the other provider-side machine is never built.
// Only the active machine's Tick/Receive paths run.
type Layer struct {
	Roles RoleManager

	consumer *ConsumerMachine
	provider *ProviderMachine
	rreh     *RREHMachine

	requiredEnergyKWh float64
	roster            PlatoonRoster
}

// PlatoonRoster is the read-only seam Layer D's roster exposes to Layer C
// so a JOIN_ACCEPT this node sends as an existing platoon head can list
// PlatoonMembers, without charging importing package platoon.
type PlatoonRoster interface {
	MemberIDs() []identity.NodeID
}

// NewLayer builds Layer C. capacity seeds the provider-side machine that
// matches self's starting role (RREH gets the FIFO machine, everything
// else gets the ranked one, reused across every later switch into
// PLATOON_HEAD).
func NewLayer(c *ctxt.Context, capacity ProviderCapacity) *Layer {
	l := &Layer{consumer: &ConsumerMachine{}}
	if c.Self().Role == identity.RoleRREH {
		l.rreh = NewRREHMachine(capacity)
	} else {
		l.provider = NewProviderMachine(capacity)
	}
	return l
}

// SetChargingNeed records the energy the local vehicle currently needs,
// the signal RoleManager checks to force a CONSUMER role. A need of zero
// means "no active charging need."
func (l *Layer) SetChargingNeed(kwh float64) { l.requiredEnergyKWh = kwh }

// SetPlatoonHead tells the RoleManager whether this node currently leads
// a nonempty platoon, set by Layer D once a roster exists.
func (l *Layer) SetPlatoonHead(v bool) { l.Roles.IsPlatoonHead = v }

// SetPlatoonMember tells the RoleManager whether this node currently
// follows a platoon head's beacon, set by Layer D.
func (l *Layer) SetPlatoonMember(v bool) { l.Roles.IsPlatoonMember = v }

// SetRoster wires Layer D's roster view in, so a JOIN_ACCEPT sent while
// this node already leads a platoon advertises PlatoonMembers.
func (l *Layer) SetRoster(r PlatoonRoster) { l.roster = r }

func (l *Layer) rosterIDs() []identity.NodeID {
	if l.roster == nil {
		return nil
	}
	return l.roster.MemberIDs()
}

func isTerminalSession(s *Session) bool {
	return s == nil || s.State == Done || s.State == Failed
}

// Tick re-evaluates the active role, cancels sessions on a role switch,
// and drives whichever machine is now active. Its second return value
// lists every consumer this node, acting as provider, just finished
// ACKACK with this tick — the caller's cue to admit them into a platoon.
func (l *Layer) Tick(c *ctxt.Context, now sim.VTimeInSec) ([]wire.Frame, []identity.NodeID) {
	hasNeed := l.requiredEnergyKWh > 0
	hasActiveConsumerSession := !isTerminalSession(l.consumer.Session)

	role, changed := l.Roles.Evaluate(c.Self(), c.Config(), hasNeed, hasActiveConsumerSession)
	if changed {
		c.Metrics().Inc("role_switched")
		l.consumer.CancelForRoleSwitch()
		if l.provider != nil {
			l.provider.CancelForRoleSwitch()
		}
	}

	switch role {
	case identity.RoleConsumer:
		return l.consumer.Tick(c, now, l.requiredEnergyKWh), nil
	case identity.RolePlatoonHead:
		if l.provider != nil {
			return l.provider.Tick(c, now, l.rosterIDs())
		}
	case identity.RoleRREH:
		if l.rreh != nil {
			return l.rreh.Tick(c, now), nil
		}
	}
	return nil, nil
}

// Receive dispatches a decoded handshake frame to the side of the
// handshake it belongs to: JOIN_OFFER and ACK go to whichever
// provider-shaped machine is active, JOIN_ACCEPT and ACKACK go to the
// consumer machine.
func (l *Layer) Receive(c *ctxt.Context, f wire.Frame, now sim.VTimeInSec) {
	switch f.Header.MsgType {
	case wire.MsgJoinOffer:
		o, err := wire.ParseJoinOffer(f)
		if err != nil {
			c.Metrics().Inc("join_offer_malformed")
			return
		}
		if l.provider != nil {
			l.provider.ReceiveJoinOffer(c, o, now)
		}
		if l.rreh != nil {
			l.rreh.ReceiveJoinOffer(c, o, now)
		}

	case wire.MsgJoinAccept:
		a, err := wire.ParseJoinAccept(f)
		if err != nil {
			c.Metrics().Inc("join_accept_malformed")
			return
		}
		l.consumer.ReceiveJoinAccept(c, a, now)

	case wire.MsgAck:
		a, err := wire.ParseAck(f)
		if err != nil {
			c.Metrics().Inc("ack_malformed")
			return
		}
		if l.provider != nil {
			l.provider.ReceiveAck(c, a, now)
		}
		if l.rreh != nil {
			l.rreh.ReceiveAck(c, a, now)
		}

	case wire.MsgAckAck:
		a, err := wire.ParseAckAck(f)
		if err != nil {
			c.Metrics().Inc("ackack_malformed")
			return
		}
		l.consumer.ReceiveAckAck(c, a, now)
	}
}
