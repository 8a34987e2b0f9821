package memo

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afbjorklund/bazel/label"
	"github.com/afbjorklund/bazel/skyframe"
)

func keyFor(patterns ...string) *skyframe.TargetPatternPhaseKey {
	return skyframe.NewTargetPatternPhaseKey(skyframe.TargetPatternPhaseKeyOptions{
		TargetPatterns: patterns,
	})
}

func valueFor(labels ...string) *skyframe.TargetPatternPhaseValue {
	parsed := make([]label.Label, 0, len(labels))
	for _, l := range labels {
		parsed = append(parsed, label.MustParse(l))
	}
	return skyframe.NewTargetPatternPhaseValue(skyframe.TargetPatternPhaseValueOptions{
		TargetLabels: label.NewSet(parsed...),
	})
}

func TestStoreGetPut(t *testing.T) {
	store, err := New(16)
	require.NoError(t, err)

	key := keyFor("//foo/...")
	_, ok := store.Get(key)
	assert.False(t, ok)

	value := valueFor("//foo:a")
	store.Put(key, value)

	// An equal key built independently hits the same entry.
	got, ok := store.Get(keyFor("//foo/..."))
	require.True(t, ok)
	assert.Same(t, skyframe.Value(value), got)
	assert.Equal(t, 1, store.Len())

	// A different key misses.
	_, ok = store.Get(keyFor("//bar/..."))
	assert.False(t, ok)
}

func TestStorePutReplaces(t *testing.T) {
	store, err := New(16)
	require.NoError(t, err)

	key := keyFor("//foo/...")
	store.Put(key, valueFor("//foo:a"))
	replacement := valueFor("//foo:b")
	store.Put(keyFor("//foo/..."), replacement)

	got, ok := store.Get(key)
	require.True(t, ok)
	assert.Same(t, skyframe.Value(replacement), got)
	assert.Equal(t, 1, store.Len())
}

func TestStoreEvictsLeastRecentlyUsed(t *testing.T) {
	store, err := New(2)
	require.NoError(t, err)

	store.Put(keyFor("//a"), valueFor("//a:a"))
	store.Put(keyFor("//b"), valueFor("//b:b"))
	// Touch //a so //b is the eviction candidate.
	_, ok := store.Get(keyFor("//a"))
	require.True(t, ok)
	store.Put(keyFor("//c"), valueFor("//c:c"))

	_, ok = store.Get(keyFor("//a"))
	assert.True(t, ok)
	_, ok = store.Get(keyFor("//b"))
	assert.False(t, ok)
	_, ok = store.Get(keyFor("//c"))
	assert.True(t, ok)
}

func TestGetOrComputeCachesSuccess(t *testing.T) {
	store, err := New(16)
	require.NoError(t, err)
	ctx := context.Background()

	var calls atomic.Int64
	compute := func(context.Context, skyframe.Key) (skyframe.Value, error) {
		calls.Add(1)
		return valueFor("//foo:a"), nil
	}

	first, err := store.GetOrCompute(ctx, keyFor("//foo"), compute)
	require.NoError(t, err)
	second, err := store.GetOrCompute(ctx, keyFor("//foo"), compute)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int64(1), calls.Load())
}

func TestGetOrComputeDoesNotCacheFailure(t *testing.T) {
	store, err := New(16)
	require.NoError(t, err)
	ctx := context.Background()

	var calls atomic.Int64
	fail := func(context.Context, skyframe.Key) (skyframe.Value, error) {
		calls.Add(1)
		return nil, fmt.Errorf("pattern resolution failed")
	}

	_, err = store.GetOrCompute(ctx, keyFor("//foo"), fail)
	require.Error(t, err)
	_, err = store.GetOrCompute(ctx, keyFor("//foo"), fail)
	require.Error(t, err)

	assert.Equal(t, int64(2), calls.Load())
	assert.Equal(t, 0, store.Len())
}

func TestGetOrComputeSharesConcurrentComputation(t *testing.T) {
	store, err := New(16)
	require.NoError(t, err)
	ctx := context.Background()

	var calls atomic.Int64
	started := make(chan struct{})
	release := make(chan struct{})
	compute := func(context.Context, skyframe.Key) (skyframe.Value, error) {
		calls.Add(1)
		close(started)
		<-release
		return valueFor("//foo:a"), nil
	}

	var wg sync.WaitGroup
	results := make([]skyframe.Value, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], _ = store.GetOrCompute(ctx, keyFor("//foo"), compute)
	}()
	<-started

	wg.Add(1)
	go func() {
		defer wg.Done()
		// Equal key while the first computation is in flight: must wait
		// for it instead of computing again.
		results[1], _ = store.GetOrCompute(ctx, keyFor("//foo"), compute)
	}()

	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), calls.Load())
	assert.Same(t, results[0], results[1])
}

func TestGetOrComputeWaiterHonorsCancellation(t *testing.T) {
	store, err := New(16)
	require.NoError(t, err)

	started := make(chan struct{})
	release := make(chan struct{})
	defer close(release)
	slow := func(context.Context, skyframe.Key) (skyframe.Value, error) {
		close(started)
		<-release
		return valueFor("//foo:a"), nil
	}

	go func() {
		_, _ = store.GetOrCompute(context.Background(), keyFor("//foo"), slow)
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = store.GetOrCompute(ctx, keyFor("//foo"), slow)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStorePurge(t *testing.T) {
	store, err := New(16)
	require.NoError(t, err)

	store.Put(keyFor("//a"), valueFor("//a:a"))
	store.Put(keyFor("//b"), valueFor("//b:b"))
	require.Equal(t, 2, store.Len())

	store.Purge()
	assert.Equal(t, 0, store.Len())
	_, ok := store.Get(keyFor("//a"))
	assert.False(t, ok)
}
