package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishReachesKeyedSubscriber(t *testing.T) {
	broker := NewChannelBroker()
	defer broker.Close()
	ctx := context.Background()

	sub, err := broker.Subscribe(ctx, "conversation.exchanges", "covey")
	require.NoError(t, err)

	require.NoError(t, broker.Publish(ctx, "conversation.exchanges", "covey", []byte("hello")))

	event := <-sub
	assert.Equal(t, "conversation.exchanges", event.Topic)
	assert.Equal(t, "covey", event.RoutingKey)
	assert.Equal(t, []byte("hello"), event.Payload)
}

func TestPublishFansOutToTopicWideSubscriber(t *testing.T) {
	broker := NewChannelBroker()
	defer broker.Close()
	ctx := context.Background()

	wide, err := broker.Subscribe(ctx, "conversation.exchanges", "")
	require.NoError(t, err)

	require.NoError(t, broker.Publish(ctx, "conversation.exchanges", "covey", []byte("hello")))

	event := <-wide
	assert.Equal(t, "covey", event.RoutingKey)
}

func TestPublishAfterCloseFails(t *testing.T) {
	broker := NewChannelBroker()
	require.NoError(t, broker.Close())

	err := broker.Publish(context.Background(), "t", "k", nil)
	assert.Error(t, err)
}

func TestPublishToFullSubscriberDoesNotBlock(t *testing.T) {
	broker := NewChannelBroker()
	defer broker.Close()
	ctx := context.Background()

	_, err := broker.Subscribe(ctx, "t", "k")
	require.NoError(t, err)

	// Fill the buffer with no consumer draining it.
	for i := 0; i < 200; i++ {
		if err = broker.Publish(ctx, "t", "k", []byte("x")); err != nil {
			break
		}
	}
	assert.Error(t, err, "a full channel must reject instead of blocking")
}

func TestPublishWithoutSubscriberDropsEvent(t *testing.T) {
	broker := NewChannelBroker()
	defer broker.Close()
	ctx := context.Background()

	for i := 0; i < 200; i++ {
		require.NoError(t, broker.Publish(ctx, "t", "k", []byte("x")))
	}

	broker.mu.Lock()
	defer broker.mu.Unlock()
	assert.Empty(t, broker.topics, "publishing must not create channels nobody drains")
}

func TestKeyedPublishesKeepFlowingToTopicWideSubscriber(t *testing.T) {
	broker := NewChannelBroker()
	defer broker.Close()
	ctx := context.Background()

	wide, err := broker.Subscribe(ctx, "conversation.exchanges", "")
	require.NoError(t, err)

	// Sustained traffic for one routing key outlasting the channel buffer
	// must all reach the topic-wide subscriber as long as it drains.
	received := 0
	for i := 0; i < 3; i++ {
		for j := 0; j < 50; j++ {
			require.NoError(t, broker.Publish(ctx, "conversation.exchanges", "covey", []byte("x")))
		}
		for j := 0; j < 50; j++ {
			<-wide
			received++
		}
	}
	assert.Equal(t, 150, received)
}
