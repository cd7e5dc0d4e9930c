package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/crop-recommendation/internal/recommend"
	"github.com/i474232898/crop-recommendation/internal/store"
)

// Coordinate is a location whose upstream data is kept warm.
type Coordinate struct {
	Lat float64 `koanf:"lat"`
	Lon float64 `koanf:"lon"`
}

// Predictor runs a full prediction, filling every cache on the way.
type Predictor interface {
	Predict(ctx context.Context, lat, lon float64) (recommend.Response, error)
}

// Config controls the background jobs.
type Config struct {
	// ReapInterval is how often expired cache entries are swept.
	ReapInterval time.Duration
	// WarmInterval is how often WarmLocations are refreshed; 0 disables warming.
	WarmInterval time.Duration
	// WarmTimeout bounds one warm-up prediction.
	WarmTimeout   time.Duration
	WarmLocations []Coordinate
}

// Scheduler runs the cache reaper and the optional warm-up job.
type Scheduler struct {
	scheduler *gocron.Scheduler
	cache     *store.ResultCache
	predictor Predictor
	cfg       Config
}

// New creates a new Scheduler. predictor may be nil when warming is disabled.
func New(cfg Config, cache *store.ResultCache, predictor Predictor) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	if cfg.ReapInterval <= 0 {
		cfg.ReapInterval = 5 * time.Minute
	}
	if cfg.WarmTimeout <= 0 {
		cfg.WarmTimeout = 30 * time.Second
	}
	return &Scheduler{
		scheduler: s,
		cache:     cache,
		predictor: predictor,
		cfg:       cfg,
	}
}

// Start schedules the jobs and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if _, err := s.scheduler.Every(s.cfg.ReapInterval).Do(s.Reap); err != nil {
		return err
	}

	if s.cfg.WarmInterval > 0 && len(s.cfg.WarmLocations) > 0 && s.predictor != nil {
		if _, err := s.scheduler.Every(s.cfg.WarmInterval).Do(s.Warm); err != nil {
			return err
		}
	} else {
		slog.Info("scheduler: cache warming disabled")
	}

	s.scheduler.StartAsync()
	return nil
}

// Reap sweeps expired cache entries.
func (s *Scheduler) Reap() {
	removed := s.cache.Sweep()
	slog.Debug("scheduler: cache swept", "removed", removed, "remaining", s.cache.Len())
}

// Warm runs a prediction for every configured location concurrently.
func (s *Scheduler) Warm() {
	slog.Info("scheduler: warming caches", "locations", len(s.cfg.WarmLocations))

	var wg sync.WaitGroup
	for _, loc := range s.cfg.WarmLocations {
		wg.Add(1)
		go func() {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), s.cfg.WarmTimeout)
			defer cancel()

			if _, err := s.predictor.Predict(ctx, loc.Lat, loc.Lon); err != nil {
				slog.Warn("scheduler: warm-up failed", "lat", loc.Lat, "lon", loc.Lon, "error", err)
			}
		}()
	}
	wg.Wait()
	slog.Info("scheduler: warm-up complete")
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
