package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haidar-88/Capstone/geo"
	"github.com/haidar-88/Capstone/identity"
	"github.com/haidar-88/Capstone/sim"
)

type fixedPosition struct{ pos geo.Vec2 }

func (f fixedPosition) Position() geo.Vec2 { return f.pos }

type recordingReceiver struct {
	frames [][]byte
	times  []sim.VTimeInSec
}

func (r *recordingReceiver) Receive(frame []byte, t sim.VTimeInSec) error {
	r.frames = append(r.frames, frame)
	r.times = append(r.times, t)
	return nil
}

func noLossParams() Params {
	return Params{RangeM: 100, LossProbability: 0, PropagationMPerSec: 1000, MinDelaySec: 0.01}
}

func TestMediumDeliversWithinRangeAndSkipsSender(t *testing.T) {
	m := NewMedium(noLossParams(), 1)
	a := &recordingReceiver{}
	b := &recordingReceiver{}

	m.Register(identity.NodeID(1), fixedPosition{geo.Vec2{X: 0}}, a)
	m.Register(identity.NodeID(2), fixedPosition{geo.Vec2{X: 10}}, b)

	m.Sink(identity.NodeID(1)).Send([]byte("hello"))
	m.AdvanceTo(1)

	assert.Empty(t, a.frames, "sender must not receive its own broadcast")
	require.Len(t, b.frames, 1)
	assert.Equal(t, []byte("hello"), b.frames[0])
}

func TestMediumDropsFramesOutOfRange(t *testing.T) {
	params := noLossParams()
	params.RangeM = 5
	m := NewMedium(params, 1)
	a := &recordingReceiver{}
	b := &recordingReceiver{}

	m.Register(identity.NodeID(1), fixedPosition{geo.Vec2{X: 0}}, a)
	m.Register(identity.NodeID(2), fixedPosition{geo.Vec2{X: 10}}, b)

	m.Sink(identity.NodeID(1)).Send([]byte("hello"))
	m.AdvanceTo(1)

	assert.Empty(t, b.frames)
}

func TestMediumDropsEveryDeliveryAtFullLossProbability(t *testing.T) {
	params := noLossParams()
	params.LossProbability = 1.0
	m := NewMedium(params, 1)
	b := &recordingReceiver{}

	m.Register(identity.NodeID(1), fixedPosition{geo.Vec2{X: 0}}, &recordingReceiver{})
	m.Register(identity.NodeID(2), fixedPosition{geo.Vec2{X: 10}}, b)

	m.Sink(identity.NodeID(1)).Send([]byte("hello"))
	m.AdvanceTo(1)

	assert.Empty(t, b.frames)
}

func TestMediumDelaysDeliveryProportionallyToDistance(t *testing.T) {
	m := NewMedium(noLossParams(), 1)
	b := &recordingReceiver{}

	m.Register(identity.NodeID(1), fixedPosition{geo.Vec2{X: 0}}, &recordingReceiver{})
	m.Register(identity.NodeID(2), fixedPosition{geo.Vec2{X: 50}}, b)

	m.Sink(identity.NodeID(1)).Send([]byte("hello"))

	m.AdvanceTo(0.02)
	assert.Empty(t, b.frames, "delivery should still be pending before its scheduled time")

	m.AdvanceTo(1)
	require.Len(t, b.frames, 1)
}

func TestMediumUnregisterStopsFurtherDelivery(t *testing.T) {
	m := NewMedium(noLossParams(), 1)
	b := &recordingReceiver{}

	m.Register(identity.NodeID(1), fixedPosition{geo.Vec2{X: 0}}, &recordingReceiver{})
	m.Register(identity.NodeID(2), fixedPosition{geo.Vec2{X: 10}}, b)
	m.Unregister(identity.NodeID(2))

	m.Sink(identity.NodeID(1)).Send([]byte("hello"))
	m.AdvanceTo(1)

	assert.Empty(t, b.frames)
	assert.Equal(t, []identity.NodeID{1}, m.NodeIDs())
}
