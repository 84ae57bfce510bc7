package bot

import (
	"testing"

	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/require"
)

func TestPendingMessagesLifecycle(t *testing.T) {
	pending := newPendingMessages()
	message := &telego.Message{MessageID: 10, Text: "note"}

	_, ok := pending.Get(100, 10)
	require.False(t, ok)

	pending.Put(100, 10, message)
	got, ok := pending.Get(100, 10)
	require.True(t, ok)
	require.Same(t, message, got)

	// Same message id in another chat is a different entry.
	_, ok = pending.Get(200, 10)
	require.False(t, ok)

	pending.Delete(100, 10)
	_, ok = pending.Get(100, 10)
	require.False(t, ok)
}

func TestPendingMessagesDropChat(t *testing.T) {
	pending := newPendingMessages()
	pending.Put(100, 10, &telego.Message{MessageID: 10})
	pending.Put(100, 11, &telego.Message{MessageID: 11})
	pending.Put(200, 10, &telego.Message{MessageID: 10})

	pending.DropChat(100)

	_, ok := pending.Get(100, 10)
	require.False(t, ok)
	_, ok = pending.Get(100, 11)
	require.False(t, ok)
	_, ok = pending.Get(200, 10)
	require.True(t, ok)
}
