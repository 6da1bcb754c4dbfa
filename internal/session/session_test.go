package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()

	assert.Equal(t, Session{State: StateIdle}, store.Get(1), "unknown user starts idle")

	store.Set(1, Session{State: StateAwaitingSource})
	assert.Equal(t, StateAwaitingSource, store.Get(1).State)
	assert.Equal(t, StateIdle, store.Get(2).State, "sessions are partitioned per user")

	store.Set(1, Session{State: StateAwaitingTarget, PendingSource: "https://t.me/src"})
	got := store.Get(1)
	assert.Equal(t, StateAwaitingTarget, got.State)
	assert.Equal(t, "https://t.me/src", got.PendingSource)

	store.Clear(1)
	assert.Equal(t, Session{State: StateIdle}, store.Get(1))
}
