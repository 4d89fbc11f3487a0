package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/companionkit/agentic/domain"
)

func TestConversationStoreOrderAndIsolation(t *testing.T) {
	store := NewConversationStore()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Append(ctx, "a", domain.ConversationMessage{Content: fmt.Sprintf("a%d", i), UserID: "u1"}))
	}
	require.NoError(t, store.Append(ctx, "b", domain.ConversationMessage{Content: "b0", UserID: "u1"}))

	msgs, err := store.Messages(ctx, "a")
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	for i, msg := range msgs {
		assert.Equal(t, fmt.Sprintf("a%d", i), msg.Content)
	}
}

func TestConversationStoreDeleteByUser(t *testing.T) {
	store := NewConversationStore()
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "a", domain.ConversationMessage{Content: "mine", UserID: "u1"}))
	require.NoError(t, store.Append(ctx, "a", domain.ConversationMessage{Content: "theirs", UserID: "u2"}))

	require.NoError(t, store.DeleteMessages(ctx, "a", "u1"))

	msgs, _ := store.Messages(ctx, "a")
	require.Len(t, msgs, 1)
	assert.Equal(t, "theirs", msgs[0].Content)
}

func TestConversationStoreConcurrentAppends(t *testing.T) {
	store := NewConversationStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, store.Append(ctx, "a", domain.ConversationMessage{Content: fmt.Sprintf("%d", i)}))
		}(i)
	}
	wg.Wait()

	msgs, _ := store.Messages(ctx, "a")
	assert.Len(t, msgs, 50)
}

func TestPersonaStore(t *testing.T) {
	store := NewPersonaStore()
	ctx := context.Background()

	_, err := store.GetPersona(ctx, "covey")
	require.ErrorIs(t, err, domain.ErrPersonaNotFound)

	require.NoError(t, store.SavePersona(ctx, domain.PersonaProfile{ID: "covey", Name: "Stephen R. Covey"}))

	p, err := store.GetPersona(ctx, "covey")
	require.NoError(t, err)
	assert.Equal(t, "Stephen R. Covey", p.Name)
}
