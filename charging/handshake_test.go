package charging_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haidar-88/Capstone/charging"
	"github.com/haidar-88/Capstone/ctxt"
	"github.com/haidar-88/Capstone/identity"
	"github.com/haidar-88/Capstone/wire"
)

// TestConsumerHandshakeHappyPath reproduces spec §8 scenario 4: a consumer
// and provider exchange JOIN_OFFER/JOIN_ACCEPT/ACK/ACKACK and both reach
// their booked-session state at t=10.5.
func TestConsumerHandshakeHappyPath(t *testing.T) {
	const consumerID, providerID = identity.NodeID(1), identity.NodeID(2)

	providers := newFakeProviders()
	providers.add(providerID, ctxt.ProviderInfo{ShareableEnergyKWh: 50})

	consumerCtx := newTestContext(consumerID, providers)
	providerCtx := newTestContext(providerID, nil)
	providerCtx.Config().OfferWindow = 0

	consumer := &charging.ConsumerMachine{}
	provider := charging.NewProviderMachine(charging.ProviderCapacity{AvailableSlots: 1, AvailableEnergyKWh: 50})

	require.NoError(t, consumerCtx.UpdateTime(10.0))
	offerFrames := consumer.Tick(consumerCtx, 10.0, 20)
	require.Len(t, offerFrames, 1)
	require.Equal(t, wire.MsgJoinOffer, offerFrames[0].Header.MsgType)
	assert.Equal(t, charging.WaitAccept, consumer.Session.State)

	offer, err := wire.ParseJoinOffer(offerFrames[0])
	require.NoError(t, err)

	require.NoError(t, providerCtx.UpdateTime(10.0))
	provider.ReceiveJoinOffer(providerCtx, offer, 10.0)

	require.NoError(t, providerCtx.UpdateTime(10.3))
	acceptFrames, newlyCharging := provider.Tick(providerCtx, 10.3, nil)
	require.Len(t, acceptFrames, 1)
	assert.Empty(t, newlyCharging)
	require.Equal(t, wire.MsgJoinAccept, acceptFrames[0].Header.MsgType)

	accept, err := wire.ParseJoinAccept(acceptFrames[0])
	require.NoError(t, err)

	require.NoError(t, consumerCtx.UpdateTime(10.3))
	consumer.ReceiveJoinAccept(consumerCtx, accept, 10.3)
	assert.Equal(t, charging.Ack, consumer.Session.State)

	ackFrames := consumer.Tick(consumerCtx, 10.3, 20)
	require.Len(t, ackFrames, 1)
	require.Equal(t, wire.MsgAck, ackFrames[0].Header.MsgType)
	assert.Equal(t, charging.WaitAckAck, consumer.Session.State)

	ack, err := wire.ParseAck(ackFrames[0])
	require.NoError(t, err)
	provider.ReceiveAck(providerCtx, ack, 10.3)

	require.NoError(t, providerCtx.UpdateTime(10.5))
	ackAckFrames, newlyCharging := provider.Tick(providerCtx, 10.5, nil)
	require.Len(t, ackAckFrames, 1)
	require.Equal(t, wire.MsgAckAck, ackAckFrames[0].Header.MsgType)
	assert.Equal(t, []identity.NodeID{consumerID}, newlyCharging)

	ackAck, err := wire.ParseAckAck(ackAckFrames[0])
	require.NoError(t, err)

	require.NoError(t, consumerCtx.UpdateTime(10.5))
	consumer.ReceiveAckAck(consumerCtx, ackAck, 10.5)
	assert.Equal(t, charging.Allocated, consumer.Session.State)
}

// TestJoinAcceptTimeoutReturnsConsumerToEvaluate reproduces spec §8
// scenario 5: the provider never responds, so the consumer drops it from
// ProviderTable at the JOIN_ACCEPT_TIMEOUT deadline and re-enters EVALUATE.
func TestJoinAcceptTimeoutReturnsConsumerToEvaluate(t *testing.T) {
	const consumerID, providerID = identity.NodeID(1), identity.NodeID(2)

	providers := newFakeProviders()
	providers.add(providerID, ctxt.ProviderInfo{ShareableEnergyKWh: 50})

	consumerCtx := newTestContext(consumerID, providers)

	consumer := &charging.ConsumerMachine{}
	require.NoError(t, consumerCtx.UpdateTime(10.0))
	frames := consumer.Tick(consumerCtx, 10.0, 20)
	require.Len(t, frames, 1)
	deadline := consumerCtx.Config().JoinAcceptTimeout

	require.NoError(t, consumerCtx.UpdateTime(10.0+deadline))
	frames = consumer.Tick(consumerCtx, 10.0+deadline, 20)
	assert.Empty(t, frames)
	assert.Equal(t, charging.Evaluate, consumer.Session.State)
	assert.Empty(t, providers.ProviderIDs())
}
