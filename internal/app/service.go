// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	readingqueue "github.com/pulsehq/pulse/internal/adapters/mq/queue"
	"github.com/pulsehq/pulse/internal/adapters/mq/source"
	workerpool "github.com/pulsehq/pulse/internal/adapters/mq/worker"
	"github.com/pulsehq/pulse/internal/adapters/repository"
	"github.com/pulsehq/pulse/internal/domain/barday"
	"github.com/pulsehq/pulse/internal/domain/dedupe"
	"github.com/pulsehq/pulse/internal/domain/dwell"
	"github.com/pulsehq/pulse/internal/domain/history"
	"github.com/pulsehq/pulse/internal/domain/learning"
	"github.com/pulsehq/pulse/internal/domain/model"
	"github.com/pulsehq/pulse/internal/domain/retention"
	"github.com/pulsehq/pulse/internal/domain/scoring"
	"github.com/pulsehq/pulse/pkg/logger"
	"github.com/pulsehq/pulse/pkg/metrics"
)

const (
	defaultStorePath         = "pulse.db"
	defaultQueueSize         = 10_000
	defaultDedupeSize        = 100_000
	defaultLearnerWindowDays = 30
	defaultLearnerRefresh    = 24 * time.Hour
	defaultRetentionDays     = 90
	defaultVenueCapacity     = 400

	// Query window upper bounds are exclusive, so reach slightly past now.
	queryHorizon = time.Minute
)

// profileMap is the immutable snapshot swapped in by the learner loop.
type profileMap map[string]model.VenueLearningProfile

// Service implements the API dependencies for the venue analytics system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store        repository.Store
	deduper      dedupe.Deduper
	readingQueue *readingqueue.InMemoryQueue
	workerPool   *workerpool.Pool
	mqttSource   *source.Source
	engine       *scoring.Engine

	// Learned profile snapshot, swapped wholesale by the learner loop.
	profiles atomic.Pointer[profileMap]

	// Configuration
	storePath         string
	queueSize         int
	workerCount       int
	dedupeSize        int
	mqttBroker        string
	mqttClientID      string
	mqttTopic         string
	mqttUsername      string
	mqttPassword      string
	learnerWindowDays int
	learnerRefresh    time.Duration
	retentionDays     int
	venueCapacity     int

	// State
	started bool
	stopCh  chan struct{}
	loopWG  sync.WaitGroup

	// Logging
	logger logger.Logger

	now func() time.Time
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore injects a pre-built store, bypassing the sqlite file.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithStorePath sets the sqlite database path.
func WithStorePath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.storePath = path
		}
	}
}

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the reading queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithMQTT enables the MQTT ingestion source against the given broker.
func WithMQTT(broker, clientID, topic string) Option {
	return func(s *Service) {
		s.mqttBroker = broker
		s.mqttClientID = clientID
		s.mqttTopic = topic
	}
}

// WithMQTTCredentials sets broker credentials.
func WithMQTTCredentials(username, password string) Option {
	return func(s *Service) {
		s.mqttUsername = username
		s.mqttPassword = password
	}
}

// WithLearnerWindow sets how many days of readings feed each learning pass.
func WithLearnerWindow(days int) Option {
	return func(s *Service) {
		if days > 0 {
			s.learnerWindowDays = days
		}
	}
}

// WithLearnerRefreshInterval sets how often profiles are relearned.
func WithLearnerRefreshInterval(interval time.Duration) Option {
	return func(s *Service) {
		if interval > 0 {
			s.learnerRefresh = interval
		}
	}
}

// WithRetentionDays sets how long readings are kept before pruning.
func WithRetentionDays(days int) Option {
	return func(s *Service) {
		if days > 0 {
			s.retentionDays = days
		}
	}
}

// WithVenueCapacity sets the fallback capacity used for occupancy
// utilization when a device reports none.
func WithVenueCapacity(capacity int) Option {
	return func(s *Service) {
		if capacity > 0 {
			s.venueCapacity = capacity
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(lg logger.Logger) Option {
	return func(s *Service) {
		if lg != nil {
			s.logger = lg
		}
	}
}

// WithClock overrides the wall clock, used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		storePath:         defaultStorePath,
		queueSize:         defaultQueueSize,
		workerCount:       runtime.NumCPU() * 2,
		dedupeSize:        defaultDedupeSize,
		learnerWindowDays: defaultLearnerWindowDays,
		learnerRefresh:    defaultLearnerRefresh,
		retentionDays:     defaultRetentionDays,
		venueCapacity:     defaultVenueCapacity,
		stopCh:            make(chan struct{}),
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting pulse service...")

	if s.store == nil {
		store, err := repository.NewSQLiteStore(s.storePath)
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
		s.store = store
		s.logger.Info(ctx, "using sqlite store", logger.String("path", s.storePath))
	}

	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
	)
	s.readingQueue = readingqueue.NewInMemoryQueue(
		readingqueue.WithCapacity(s.queueSize),
	)
	s.engine = scoring.NewEngine()

	s.workerPool = workerpool.NewPool(s.workerCount, s.readingQueue, s.store, nil)
	s.workerPool.Start(ctx)

	if s.mqttBroker != "" {
		src, err := source.New(s.mqttBroker, s.readingQueue,
			source.WithClientID(s.mqttClientID),
			source.WithTopic(s.mqttTopic),
			source.WithCredentials(s.mqttUsername, s.mqttPassword),
			source.WithDeduper(s.deduper),
		)
		if err != nil {
			return fmt.Errorf("building mqtt source: %w", err)
		}
		if err := src.Start(ctx); err != nil {
			return fmt.Errorf("starting mqtt source: %w", err)
		}
		s.mqttSource = src
	}

	if err := s.loadProfiles(ctx); err != nil {
		s.logger.Warn(ctx, "loading stored profiles failed", logger.Error(err))
	}

	s.loopWG.Add(1)
	go s.learnerLoop()

	s.started = true
	s.logger.Info(ctx, "pulse service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Bool("mqtt", s.mqttSource != nil),
	)
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(ctx, "stopping pulse service...")

	if s.mqttSource != nil {
		s.mqttSource.Close()
	}

	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
	s.loopWG.Wait()

	// Closes the queue, then drains workers.
	if s.workerPool != nil {
		_ = s.workerPool.Shutdown(ctx)
	}

	if s.store != nil {
		_ = s.store.Close()
	}

	s.started = false
	s.logger.Info(ctx, "pulse service stopped")
}

// loadProfiles seeds the in-memory snapshot from previously learned profiles.
func (s *Service) loadProfiles(ctx context.Context) error {
	venues, err := s.store.ListVenues(ctx)
	if err != nil {
		return err
	}
	snapshot := make(profileMap, len(venues))
	for _, venueID := range venues {
		p, err := s.store.LatestProfile(ctx, venueID)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		snapshot[venueID] = p
	}
	s.profiles.Store(&snapshot)
	return nil
}

// learnerLoop periodically relearns profiles and prunes old readings.
func (s *Service) learnerLoop() {
	defer s.loopWG.Done()

	ticker := time.NewTicker(s.learnerRefresh)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			s.refreshProfiles(ctx)
			s.pruneReadings(ctx)
			cancel()
		}
	}
}

// RefreshProfiles runs one learning pass over every known venue.
func (s *Service) RefreshProfiles(ctx context.Context) {
	s.refreshProfiles(ctx)
}

func (s *Service) refreshProfiles(ctx context.Context) {
	venues, err := s.store.ListVenues(ctx)
	if err != nil {
		s.logger.Error(ctx, "listing venues for learning failed", logger.Error(err))
		return
	}

	now := s.now()
	from := now.AddDate(0, 0, -s.learnerWindowDays)
	snapshot := make(profileMap, len(venues))

	for _, venueID := range venues {
		readings, err := s.store.ListReadings(ctx, venueID, from, now.Add(queryHorizon))
		if err != nil {
			s.logger.Error(ctx, "listing readings for learning failed",
				logger.String("venueID", venueID),
				logger.Error(err),
			)
			continue
		}
		hours := learning.BuildHourly(readings)
		profile := learning.Learn(venueID, hours)
		if err := s.store.SaveProfile(ctx, profile); err != nil {
			s.logger.Error(ctx, "saving profile failed",
				logger.String("venueID", venueID),
				logger.Error(err),
			)
		}
		snapshot[venueID] = profile
		s.logger.Debug(ctx, "profile relearned",
			logger.String("venueID", venueID),
			logger.Float64("confidence", profile.LearningConfidence),
			logger.Int("dataPoints", profile.DataPointsAnalyzed),
		)
	}

	s.profiles.Store(&snapshot)
}

func (s *Service) pruneReadings(ctx context.Context) {
	cutoff := s.now().AddDate(0, 0, -s.retentionDays)
	pruned, err := s.store.PruneBefore(ctx, cutoff)
	if err != nil {
		s.logger.Error(ctx, "pruning readings failed", logger.Error(err))
		return
	}
	if pruned > 0 {
		s.logger.Info(ctx, "pruned old readings", logger.Int("count", int(pruned)))
	}
}

// profileFor returns the learned profile for a venue, or nil before the
// first learning pass completes.
func (s *Service) profileFor(venueID string) *model.VenueLearningProfile {
	snapshot := s.profiles.Load()
	if snapshot == nil {
		return nil
	}
	p, ok := (*snapshot)[venueID]
	if !ok {
		return nil
	}
	return &p
}

// SeenAndRecord atomically checks if a reading id was seen and records it if not.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	return s.deduper.SeenAndRecord(ctx, id)
}

// Unrecord removes a reading ID from the seen list, allowing it to be retried.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.deduper.Unrecord(ctx, id)
}

// Size returns the current number of entries in the deduper.
func (s *Service) Size() int64 {
	if s.deduper == nil {
		return 0
	}
	return s.deduper.Size()
}

// Enqueue submits a reading for asynchronous processing.
func (s *Service) Enqueue(ctx context.Context, r model.SensorReading) bool {
	return s.readingQueue.Enqueue(ctx, r)
}

// PulseScore computes the current atmosphere score for a venue from its
// most recent reading.
func (s *Service) PulseScore(ctx context.Context, venueID string) (model.PulseScoreResult, error) {
	reading, err := s.store.LatestReading(ctx, venueID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.PulseScoreResult{}, fmt.Errorf("venue %s: %w", venueID, repository.ErrNotFound)
		}
		return model.PulseScoreResult{}, err
	}
	result, _ := s.engine.Score(reading, s.profileFor(venueID))
	return result, nil
}

// DwellEstimate estimates today's average visit length for a venue. It
// prefers occupancy integration and falls back to Little's Law.
func (s *Service) DwellEstimate(ctx context.Context, venueID string) (model.DwellEstimate, error) {
	now := s.now()
	readings, err := s.todayReadings(ctx, venueID, now)
	if err != nil {
		return model.DwellEstimate{}, err
	}

	snapshots, entries, _ := occupancySeries(readings)
	if minutes := dwell.FromSnapshots(snapshots, entries, now); minutes != nil {
		return model.DwellEstimate{Minutes: minutes, Method: model.DwellMethodIntegration}, nil
	}

	if len(snapshots) > 0 {
		var sum float64
		for _, snap := range snapshots {
			sum += float64(snap.Occupancy)
		}
		avgOccupancy := sum / float64(len(snapshots))
		hoursOpen := barday.HoursSinceStart(now)
		if minutes := dwell.FromLittlesLaw(avgOccupancy, entries, hoursOpen); minutes != nil {
			return model.DwellEstimate{Minutes: minutes, Method: model.DwellMethodLittlesLaw}, nil
		}
	}

	return model.DwellEstimate{Method: model.DwellMethodUnavailable}, nil
}

// Retention computes today's crowd retention for a venue.
func (s *Service) Retention(ctx context.Context, venueID string) (model.RetentionMetrics, error) {
	now := s.now()
	readings, err := s.todayReadings(ctx, venueID, now)
	if err != nil {
		return model.RetentionMetrics{}, err
	}

	snapshots, entries, exits := occupancySeries(readings)
	if len(snapshots) == 0 {
		return model.RetentionMetrics{}, fmt.Errorf("occupancy data for venue %s: %w", venueID, repository.ErrNotFound)
	}

	current := snapshots[len(snapshots)-1].Occupancy
	hoursOpen := barday.HoursSinceStart(now)
	result, ok := retention.Compute(current, entries, exits, hoursOpen)
	if !ok {
		return model.RetentionMetrics{}, fmt.Errorf("occupancy data for venue %s: %w", venueID, repository.ErrNotFound)
	}
	return result, nil
}

// History aggregates the venue's readings over the trailing window.
func (s *Service) History(ctx context.Context, venueID string, days int) (model.HistorySummary, error) {
	now := s.now()
	from := now.AddDate(0, 0, -days)
	readings, err := s.store.ListReadings(ctx, venueID, from, now.Add(queryHorizon))
	if err != nil {
		return model.HistorySummary{}, err
	}
	if len(readings) == 0 {
		if _, err := s.store.LatestReading(ctx, venueID); errors.Is(err, repository.ErrNotFound) {
			return model.HistorySummary{}, fmt.Errorf("venue %s: %w", venueID, repository.ErrNotFound)
		}
	}

	profile := s.profileFor(venueID)
	aggregator := history.New(history.WithScoreFunc(func(r model.SensorReading) *int {
		result, ok := s.engine.Score(r, profile)
		if !ok {
			return nil
		}
		return result.Score
	}))
	return aggregator.Aggregate(readings), nil
}

// Profile returns the venue's learned profile. Venues with readings but
// no completed learning pass get an empty profile at zero confidence.
func (s *Service) Profile(ctx context.Context, venueID string) (model.VenueLearningProfile, error) {
	if p := s.profileFor(venueID); p != nil {
		return *p, nil
	}
	p, err := s.store.LatestProfile(ctx, venueID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return model.VenueLearningProfile{}, err
	}
	if _, err := s.store.LatestReading(ctx, venueID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.VenueLearningProfile{}, fmt.Errorf("venue %s: %w", venueID, repository.ErrNotFound)
		}
		return model.VenueLearningProfile{}, err
	}
	return model.VenueLearningProfile{
		VenueID:   venueID,
		Weights:   model.EqualWeights(),
		UpdatedAt: s.now().UTC(),
	}, nil
}

// Venues lists every venue with at least one stored reading.
func (s *Service) Venues(ctx context.Context) ([]string, error) {
	return s.store.ListVenues(ctx)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
	}

	if s.started {
		queueLen := s.readingQueue.Len(ctx)
		stats["queueLength"] = queueLen
		stats["dedupeEntries"] = s.deduper.Size()
		stats["mqttConnected"] = s.mqttSource != nil

		if venues, err := s.store.ListVenues(ctx); err == nil {
			stats["venueCount"] = len(venues)
			if util := s.occupancyUtilization(ctx, venues); len(util) > 0 {
				stats["occupancyUtilization"] = util
			}
		}
		metrics.UpdateQueueSize(queueLen)
	}

	return stats
}

// occupancyUtilization reports each venue's latest crowd relative to its
// capacity, falling back to the configured capacity when the device
// reports none.
func (s *Service) occupancyUtilization(ctx context.Context, venues []string) map[string]float64 {
	util := make(map[string]float64, len(venues))
	for _, venueID := range venues {
		latest, err := s.store.LatestReading(ctx, venueID)
		if err != nil || latest.Occupancy == nil {
			continue
		}
		capacity := latest.Occupancy.Capacity
		if capacity <= 0 {
			capacity = s.venueCapacity
		}
		if capacity <= 0 {
			continue
		}
		util[venueID] = float64(latest.Occupancy.Current) / float64(capacity)
	}
	return util
}

// todayReadings returns the venue's readings since the bar day cutover.
// A venue with no readings at all maps to a not-found error.
func (s *Service) todayReadings(ctx context.Context, venueID string, now time.Time) ([]model.SensorReading, error) {
	readings, err := s.store.ListReadings(ctx, venueID, barday.Start(now), now.Add(queryHorizon))
	if err != nil {
		return nil, err
	}
	if len(readings) == 0 {
		if _, err := s.store.LatestReading(ctx, venueID); errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("venue %s: %w", venueID, repository.ErrNotFound)
		}
	}
	return readings, nil
}

// occupancySeries extracts the occupancy snapshots and today's entry and
// exit totals. Counter drops re-baseline at the reset value, treating a
// device reboot as a fresh count.
func occupancySeries(readings []model.SensorReading) (snapshots []dwell.Snapshot, entries, exits int) {
	var prev *model.Occupancy
	for i := range readings {
		occ := readings[i].Occupancy
		if occ == nil {
			continue
		}
		snapshots = append(snapshots, dwell.Snapshot{
			At:        readings[i].Timestamp,
			Occupancy: occ.Current,
		})
		if prev != nil {
			if occ.Entries >= prev.Entries {
				entries += occ.Entries - prev.Entries
			} else {
				entries += occ.Entries
			}
			if occ.Exits >= prev.Exits {
				exits += occ.Exits - prev.Exits
			} else {
				exits += occ.Exits
			}
		}
		prev = occ
	}
	return snapshots, entries, exits
}
