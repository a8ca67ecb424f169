package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultPruneInterval = 1 * time.Hour

// RulePruner periodically re-runs rule regeneration so never-successful
// rules age out on schedule even when no mapping traffic arrives.
type RulePruner struct {
	learning *LearningService
	logger   *zap.Logger

	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewRulePruner(learning *LearningService, logger *zap.Logger) *RulePruner {
	return &RulePruner{
		learning: learning,
		logger:   logger,
		interval: defaultPruneInterval,
		stopCh:   make(chan struct{}),
	}
}

func (s *RulePruner) SetInterval(d time.Duration) {
	s.interval = d
}

// Start runs the pruner on a periodic schedule in a background goroutine.
func (s *RulePruner) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("rule pruner started", zap.Duration("interval", s.interval))

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				if err := s.learning.RegenerateRules(ctx); err != nil {
					s.logger.Error("scheduled rule regeneration failed", zap.Error(err))
				}
				cancel()
			case <-s.stopCh:
				s.logger.Info("rule pruner stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the pruner.
func (s *RulePruner) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}
