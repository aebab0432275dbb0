package scheduler

import (
	"context"
	"time"

	"github.com/ikkim/traceability-backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

// LinkCounter reports codes whose product reference points at a deleted product.
type LinkCounter interface {
	CountDanglingLinks(ctx context.Context) (int64, error)
}

// GaugeSink receives the latest scan result; *metrics.Metrics satisfies it.
type GaugeSink interface {
	SetDanglingLinks(n int64)
}

// IntegrityScheduler periodically counts dangling product links.
type IntegrityScheduler struct {
	cron    *cron.Cron
	spec    string
	counter LinkCounter
	sink    GaugeSink
	timeout time.Duration
}

func NewIntegrityScheduler(spec string, counter LinkCounter, sink GaugeSink) *IntegrityScheduler {
	return &IntegrityScheduler{
		cron:    cron.New(),
		spec:    spec,
		counter: counter,
		sink:    sink,
		timeout: time.Minute,
	}
}

// Start registers the scan; an empty spec leaves the scheduler idle.
func (s *IntegrityScheduler) Start() error {
	if s.spec == "" {
		logger.Info("Integrity scan disabled", nil)
		return nil
	}

	_, err := s.cron.AddFunc(s.spec, func() {
		if _, err := s.RunOnce(context.Background()); err != nil {
			logger.Error("Scheduled integrity scan failed", err)
		}
	})
	if err != nil {
		logger.Error("Failed to add cron job for integrity scan", err, map[string]interface{}{
			"spec": s.spec,
		})
		return err
	}

	s.cron.Start()
	logger.Info("Integrity scheduler started", map[string]interface{}{
		"spec": s.spec,
	})
	return nil
}

// RunOnce performs one scan and publishes the count.
func (s *IntegrityScheduler) RunOnce(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	n, err := s.counter.CountDanglingLinks(ctx)
	if err != nil {
		return 0, err
	}

	if s.sink != nil {
		s.sink.SetDanglingLinks(n)
	}

	if n > 0 {
		logger.Warn("Codes reference deleted products", map[string]interface{}{
			"dangling_links": n,
		})
	} else {
		logger.Info("Integrity scan clean", nil)
	}
	return n, nil
}

func (s *IntegrityScheduler) Stop() {
	logger.Info("Stopping integrity scheduler...", nil)
	<-s.cron.Stop().Done()
	logger.Info("Integrity scheduler stopped", nil)
}
