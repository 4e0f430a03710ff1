package memory

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"live-quiz-service/internal/app"
)

func TestSessionStoreLifecycle(t *testing.T) {
	store := NewSessionStore()

	state, created := store.GetOrCreate("482913")
	require.True(t, created)
	require.NotNil(t, state)

	again, created := store.GetOrCreate("482913")
	require.False(t, created)
	require.Same(t, state, again)

	got, ok := store.Get("482913")
	require.True(t, ok)
	require.Same(t, state, got)

	require.True(t, store.Remove("482913", state))
	_, ok = store.Get("482913")
	require.False(t, ok)
	require.False(t, store.Remove("482913", state))
}

func TestSessionStoreRemoveIgnoresStaleState(t *testing.T) {
	store := NewSessionStore()

	old, _ := store.GetOrCreate("482913")
	require.True(t, store.Remove("482913", old))
	fresh, created := store.GetOrCreate("482913")
	require.True(t, created)
	require.NotSame(t, old, fresh)

	require.False(t, store.Remove("482913", old))
	got, ok := store.Get("482913")
	require.True(t, ok)
	require.Same(t, fresh, got)
}

func TestSessionStoreConcurrentGetOrCreateInstallsOnce(t *testing.T) {
	store := NewSessionStore()

	const workers = 32
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		seen    = make(map[*app.GameState]struct{})
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			state, ok := store.GetOrCreate("482913")
			mu.Lock()
			defer mu.Unlock()
			if ok {
				created++
			}
			seen[state] = struct{}{}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, created)
	require.Len(t, seen, 1)
	require.Len(t, store.All(), 1)
	require.Equal(t, 1, store.Len())
}
