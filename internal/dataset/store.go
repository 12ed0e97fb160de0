package dataset

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"climate-dashboard/internal/models"
	"climate-dashboard/internal/parser"
	"climate-dashboard/pkg/logging"
	"climate-dashboard/pkg/metrics"
)

// State tracks the cache lifecycle: Empty -> Loading -> Ready on success,
// Loading -> Empty on failure so the next request can retry.
type State int

const (
	StateEmpty State = iota
	StateLoading
	StateReady
)

// String returns string representation of the state
func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Store memoizes the parsed record set for the lifetime of the process.
// The record set is fetched and parsed at most once; concurrent first
// requests share a single in-flight load rather than parsing twice. There is
// no expiry or invalidation; a fresh process is the only reset.
//
// The Store exclusively owns the canonical record set. Callers receive a
// shared read-only view and must not mutate it.
type Store struct {
	source  Source
	parser  *parser.Parser
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
	clock   clockwork.Clock

	mu       sync.Mutex
	state    State
	records  []models.DailyRecord
	loadedAt time.Time
	inflight chan struct{} // closed when the current load finishes
}

// NewStore creates a dataset store. The store is constructed explicitly and
// injected by the composition root; there is no package-level singleton.
func NewStore(source Source, p *parser.Parser, clock clockwork.Clock, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *Store {
	return &Store{
		source:  source,
		parser:  p,
		logger:  logger,
		metrics: metricsCollector,
		clock:   clock,
		state:   StateEmpty,
	}
}

// Records returns the cached record set, loading it on first use. Callers
// arriving while a load is in flight wait for its result instead of starting
// their own. A failed load leaves the store empty so a later request retries.
func (s *Store) Records(ctx context.Context) ([]models.DailyRecord, error) {
	for {
		s.mu.Lock()
		switch s.state {
		case StateReady:
			records := s.records
			s.mu.Unlock()
			return records, nil

		case StateLoading:
			wait := s.inflight
			s.mu.Unlock()
			select {
			case <-wait:
				// Re-check: the load either succeeded (Ready) or failed
				// (Empty, in which case this caller starts a retry).
			case <-ctx.Done():
				return nil, ctx.Err()
			}

		case StateEmpty:
			s.state = StateLoading
			s.inflight = make(chan struct{})
			s.metrics.DatasetState.Set(float64(StateLoading))
			done := s.inflight
			s.mu.Unlock()

			records, err := s.load(ctx)

			s.mu.Lock()
			if err != nil {
				s.state = StateEmpty
				s.records = nil
			} else {
				s.state = StateReady
				s.records = records
				s.loadedAt = s.clock.Now()
			}
			s.metrics.DatasetState.Set(float64(s.state))
			s.inflight = nil
			close(done)
			s.mu.Unlock()

			if err != nil {
				return nil, err
			}
			return records, nil
		}
	}
}

// State returns the current cache state
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LoadedAt returns when the record set became ready; zero until then
func (s *Store) LoadedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadedAt
}

func (s *Store) load(ctx context.Context) ([]models.DailyRecord, error) {
	start := s.clock.Now()

	s.logger.Info(ctx, "[DATASET_LOAD_START] Loading city dataset", logging.Fields{
		"source": s.source.Name(),
	})

	body, err := s.source.Fetch(ctx)
	if err != nil {
		s.metrics.RecordLoadError("fetch_error")
		s.logger.Error(ctx, "[DATASET_LOAD_ERROR] Failed to fetch dataset", logging.Fields{
			"source": s.source.Name(),
		}, err)
		return nil, err
	}
	defer body.Close()

	records, err := s.parser.Parse(ctx, body)
	if err != nil {
		s.metrics.RecordLoadError("parse_error")
		s.logger.Error(ctx, "[DATASET_LOAD_ERROR] Failed to parse dataset", logging.Fields{
			"source": s.source.Name(),
		}, err)
		return nil, err
	}

	duration := s.clock.Since(start)
	s.metrics.DatasetLoadDuration.Observe(duration.Seconds())

	s.logger.Info(ctx, "[DATASET_LOAD_COMPLETE] Dataset ready", logging.Fields{
		"source":           s.source.Name(),
		"records":          len(records),
		"duration_seconds": duration.Seconds(),
	})

	return records, nil
}
