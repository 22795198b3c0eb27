package core

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNonceSequencer_FrozenClock(t *testing.T) {
	frozen := time.UnixMicro(1_700_000_000_000_000)
	seq := NewNonceSequencer(func() time.Time { return frozen })

	prev := seq.Next()
	assert.Equal(t, Nonce(1_700_000_000_000_001), prev)
	for i := 0; i < 1000; i++ {
		n := seq.Next()
		require.Greater(t, n, prev)
		prev = n
	}
}

func TestNonceSequencer_FollowsClock(t *testing.T) {
	now := time.UnixMicro(1_000)
	seq := NewNonceSequencer(func() time.Time { return now })

	now = time.UnixMicro(5_000)
	assert.Equal(t, Nonce(5_000), seq.Next())

	now = time.UnixMicro(4_000) // clock stepped backwards
	assert.Equal(t, Nonce(5_001), seq.Next())

	now = time.UnixMicro(9_000)
	assert.Equal(t, Nonce(9_000), seq.Next())
}

func TestNonceSequencer_ConcurrentUnique(t *testing.T) {
	seq := NewNonceSequencer(nil)

	const workers, perWorker = 8, 500
	var mu sync.Mutex
	seen := make(map[Nonce]struct{}, workers*perWorker)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var prev Nonce
			for i := 0; i < perWorker; i++ {
				n := seq.Next()
				assert.Greater(t, n, prev)
				prev = n
				mu.Lock()
				seen[n] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker)
}
