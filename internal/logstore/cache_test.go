package logstore

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/liftlog/internal/record"
	"github.com/roach88/liftlog/internal/testutil"
	"github.com/roach88/liftlog/internal/vault"
)

func rows(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("2024-03-01,Squat,5,100,500,,Legs,%d,,standard", 1709280000000+int64(i))
	}
	return out
}

func TestCache_SecondReadWithinTTLDoesNoIO(t *testing.T) {
	f := newFixture(t, rows(3)...)

	first, err := f.store.GetLogData(f.ctx, nil)
	require.NoError(t, err)
	second, err := f.store.GetLogData(f.ctx, nil)
	require.NoError(t, err)

	require.Len(t, first, 3)
	assert.Same(t, &first[0], &second[0], "hit must return the cached slice")
	assert.Equal(t, int64(1), f.vault.Calls().Reads)
	assert.Equal(t, CacheStats{Hits: 1, Misses: 1, Loads: 1}, f.store.CacheStats())
}

func TestCache_ExpiresAfterTTL(t *testing.T) {
	f := newFixture(t, rows(1)...)

	_, err := f.store.GetLogData(f.ctx, nil)
	require.NoError(t, err)

	f.clock.Advance(DefaultCacheTTL - time.Millisecond)
	assert.True(t, f.store.CacheValid())
	_, err = f.store.GetLogData(f.ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), f.vault.Calls().Reads)

	f.clock.Advance(time.Millisecond)
	assert.False(t, f.store.CacheValid())
	_, err = f.store.GetLogData(f.ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), f.vault.Calls().Reads)
}

func TestCache_SizeCeiling(t *testing.T) {
	t.Run("over ceiling re-parses every read", func(t *testing.T) {
		f := newFixtureWith(t, Options{CacheMaxSize: 3}, rows(4)...)

		for i := 0; i < 2; i++ {
			recs, err := f.store.GetLogData(f.ctx, nil)
			require.NoError(t, err)
			assert.Len(t, recs, 4)
		}
		assert.Equal(t, int64(2), f.vault.Calls().Reads)
		assert.False(t, f.store.CacheValid())
	})

	t.Run("at ceiling is cached", func(t *testing.T) {
		f := newFixtureWith(t, Options{CacheMaxSize: 3}, rows(3)...)

		for i := 0; i < 2; i++ {
			_, err := f.store.GetLogData(f.ctx, nil)
			require.NoError(t, err)
		}
		assert.Equal(t, int64(1), f.vault.Calls().Reads)
	})
}

func TestCache_ClearForcesReparse(t *testing.T) {
	f := newFixture(t, rows(2)...)

	_, err := f.store.GetLogData(f.ctx, nil)
	require.NoError(t, err)
	f.store.ClearCache()
	assert.False(t, f.store.CacheValid())

	_, err = f.store.GetLogData(f.ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), f.vault.Calls().Reads)
}

func TestCache_MissingFileReadsEmptyAndIsNotCached(t *testing.T) {
	f := newFixture(t)

	recs, err := f.store.GetLogData(f.ctx, nil)
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)
	assert.False(t, f.store.CacheValid())
}

func TestCache_SkipsMalformedRows(t *testing.T) {
	f := newFixture(t,
		"2024-03-01,Squat,5,100,500,,Legs,1,,standard",
		"only,three,cells",
		`2024-03-01,"unterminated,5,100,500,,Legs,2,,standard`,
	)

	recs, err := f.store.GetLogData(f.ctx, nil)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Squat", recs[0].Exercise)
}

func TestCache_SeesMutations(t *testing.T) {
	f := newFixture(t, rows(1)...)

	before, err := f.store.GetLogData(f.ctx, nil)
	require.NoError(t, err)
	require.Len(t, before, 1)

	_, err = f.store.AddEntry(f.ctx, record.LogRecord{Date: "2024-03-02", Exercise: "Deadlift"})
	require.NoError(t, err)
	assert.False(t, f.store.CacheValid(), "mutation must invalidate")

	after, err := f.store.GetLogData(f.ctx, nil)
	require.NoError(t, err)
	assert.Len(t, after, 2)
}

// gatedVault blocks the first Read until release is closed.
type gatedVault struct {
	vault.Vault
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func (g *gatedVault) Read(ctx context.Context, p string) (string, error) {
	g.once.Do(func() {
		close(g.started)
		<-g.release
	})
	return g.Vault.Read(ctx, p)
}

func newGatedCache(t *testing.T, lines ...string) (*Cache, *gatedVault, *testutil.CountingVault) {
	t.Helper()
	mem := vault.NewMemory()
	mem.Put(testPath, csvText(lines...))
	counting := testutil.NewCountingVault(mem)
	g := &gatedVault{Vault: counting, started: make(chan struct{}), release: make(chan struct{})}
	c := NewCache(g, testPath, testutil.NewFakeClock(), DefaultCacheTTL, DefaultCacheMaxSize, discardLogger())
	return c, g, counting
}

func TestCache_ConcurrentMissesShareOneLoad(t *testing.T) {
	c, g, counting := newGatedCache(t, rows(2)...)
	ctx := context.Background()

	const readers = 8
	var wg sync.WaitGroup
	results := make([][]record.LogRecord, readers)
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			recs, err := c.Records(ctx)
			assert.NoError(t, err)
			results[i] = recs
		}(i)
	}

	<-g.started
	require.Eventually(t, func() bool {
		return c.Stats().Misses == readers
	}, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(g.release)
	wg.Wait()

	assert.Equal(t, int64(1), counting.Calls().Reads)
	for _, recs := range results {
		assert.Len(t, recs, 2)
	}
}

func TestCache_ClearDuringLoadDiscardsResult(t *testing.T) {
	c, g, _ := newGatedCache(t, rows(1)...)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		recs, err := c.Records(ctx)
		assert.NoError(t, err)
		assert.Len(t, recs, 1)
	}()

	<-g.started
	c.Clear()
	close(g.release)
	<-done

	assert.False(t, c.Valid(), "a load started before Clear must not be cached")
}
