package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"survivalist/internal/errors"
)

func TestStoreLifecycle(t *testing.T) {
	store := NewStore(succeedWith(truckDriver), time.Minute, errors.Discard())

	sess := store.Create()
	require.NotEmpty(t, sess.ID)
	assert.Equal(t, StatusIdle, sess.Orchestrator.State().Status)
	assert.Equal(t, 1, store.Len())

	got, ok := store.Get(sess.ID)
	require.True(t, ok)
	assert.Same(t, sess, got)

	_, ok = store.Get("not-a-uuid")
	assert.False(t, ok)
	_, ok = store.Get("0b9d6a3c-6f2a-4c53-9b1e-0d5b4b3c2a10")
	assert.False(t, ok)

	assert.True(t, store.Delete(sess.ID))
	assert.False(t, store.Delete(sess.ID))
	assert.Equal(t, 0, store.Len())
}

func TestStoreGetOrCreate(t *testing.T) {
	store := NewStore(succeedWith(truckDriver), 0, errors.Discard())

	first, created := store.GetOrCreate("")
	assert.True(t, created)

	again, created := store.GetOrCreate(first.ID)
	assert.False(t, created)
	assert.Same(t, first, again)
}

func TestStoreSessionsAreIsolated(t *testing.T) {
	store := NewStore(succeedWith(truckDriver), 0, errors.Discard())

	a := store.Create()
	b := store.Create()
	a.Orchestrator.Submit(context.Background(), truckRequest)

	assert.Equal(t, StatusSuccess, a.Orchestrator.State().Status)
	assert.Equal(t, StatusIdle, b.Orchestrator.State().Status)
	assert.Equal(t, map[Status]int{StatusSuccess: 1, StatusIdle: 1}, store.StatusCounts())
}

func TestStoreEvictsIdleSessions(t *testing.T) {
	store := NewStore(succeedWith(truckDriver), 10*time.Minute, errors.Discard())

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	stale := store.Create()
	now = now.Add(8 * time.Minute)
	fresh := store.Create()

	now = now.Add(5 * time.Minute)
	assert.Equal(t, 1, store.Evict())

	_, ok := store.Get(stale.ID)
	assert.False(t, ok)
	_, ok = store.Get(fresh.ID)
	assert.True(t, ok)
}

func TestStoreWithoutTTLNeverEvicts(t *testing.T) {
	store := NewStore(succeedWith(truckDriver), 0, errors.Discard())
	store.Create()

	store.now = func() time.Time { return time.Now().Add(24 * time.Hour) }
	assert.Equal(t, 0, store.Evict())
	assert.Equal(t, 1, store.Len())
}

func TestRunJanitorStopsWithContext(t *testing.T) {
	store := NewStore(succeedWith(truckDriver), time.Millisecond, errors.Discard())
	store.Create()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		store.RunJanitor(ctx, 5*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}
