package dataset

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"climate-dashboard/internal/parser"
	"climate-dashboard/pkg/logging"
	"climate-dashboard/pkg/metrics"
)

const testCSV = "date,prcp,tavg\n2001-06-01,1.0,20.0\n2001-06-02,2.0,21.0\n"

// mockSource counts fetches and can fail or block on demand
type mockSource struct {
	fetches atomic.Int64
	failN   atomic.Int64   // fail this many fetches before succeeding
	release chan struct{}  // when set, Fetch blocks until closed
}

func (m *mockSource) Name() string { return "mock" }

func (m *mockSource) Fetch(ctx context.Context) (io.ReadCloser, error) {
	m.fetches.Add(1)
	if m.release != nil {
		select {
		case <-m.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.failN.Add(-1) >= 0 {
		return nil, &SourceUnavailableError{Source: "mock", Err: errors.New("boom")}
	}
	return io.NopCloser(strings.NewReader(testCSV)), nil
}

func newTestStore(source Source, clock clockwork.Clock) *Store {
	logger := logging.NewStructuredLogger("test", "0.0.0", logging.ErrorLevel)
	logger.SetOutput(io.Discard)
	collector := metrics.NewCollectorWithRegistry("test", prometheus.NewRegistry())
	anchor := time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)
	p := parser.NewParser(anchor, logger, collector)
	return NewStore(source, p, clock, logger, collector)
}

func TestStoreLoadsOnce(t *testing.T) {
	source := &mockSource{}
	store := newTestStore(source, clockwork.NewRealClock())

	ctx := context.Background()
	require.Equal(t, StateEmpty, store.State())

	first, err := store.Records(ctx)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, StateReady, store.State())

	second, err := store.Records(ctx)
	require.NoError(t, err)

	// Memoized: no re-fetch, same backing view
	assert.Equal(t, int64(1), source.fetches.Load())
	assert.Same(t, &first[0], &second[0])
}

func TestStoreSingleFlight(t *testing.T) {
	source := &mockSource{release: make(chan struct{})}
	store := newTestStore(source, clockwork.NewRealClock())

	ctx := context.Background()
	const callers = 8

	var wg sync.WaitGroup
	errs := make([]error, callers)
	counts := make([]int, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			records, err := store.Records(ctx)
			errs[i] = err
			counts[i] = len(records)
		}(i)
	}

	// Let the in-flight load finish; everyone shares its result
	close(source.release)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, 2, counts[i])
	}
	assert.Equal(t, int64(1), source.fetches.Load(), "concurrent first requests must share one parse")
}

func TestStoreFailureAllowsRetry(t *testing.T) {
	source := &mockSource{}
	source.failN.Store(1)
	store := newTestStore(source, clockwork.NewRealClock())

	ctx := context.Background()

	_, err := store.Records(ctx)
	require.Error(t, err)

	var unavailable *SourceUnavailableError
	assert.True(t, errors.As(err, &unavailable))
	assert.True(t, unavailable.IsTransient())

	// Failed load returns to Empty, not a persistent failure state
	assert.Equal(t, StateEmpty, store.State())

	records, err := store.Records(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, StateReady, store.State())
	assert.Equal(t, int64(2), source.fetches.Load())
}

func TestStoreWaiterCancellation(t *testing.T) {
	source := &mockSource{release: make(chan struct{})}
	store := newTestStore(source, clockwork.NewRealClock())

	loaderCtx := context.Background()
	loaderDone := make(chan error, 1)
	go func() {
		_, err := store.Records(loaderCtx)
		loaderDone <- err
	}()

	// Wait until the load is in flight
	for store.State() != StateLoading {
		time.Sleep(time.Millisecond)
	}

	waiterCtx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := store.Records(waiterCtx)
	assert.ErrorIs(t, err, context.Canceled)

	close(source.release)
	require.NoError(t, <-loaderDone)
}

func TestStoreLoadedAt(t *testing.T) {
	clock := clockwork.NewFakeClock()
	source := &mockSource{}
	store := newTestStore(source, clock)

	assert.True(t, store.LoadedAt().IsZero())

	_, err := store.Records(context.Background())
	require.NoError(t, err)

	assert.Equal(t, clock.Now(), store.LoadedAt())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "empty", StateEmpty.String())
	assert.Equal(t, "loading", StateLoading.String())
	assert.Equal(t, "ready", StateReady.String())
}
