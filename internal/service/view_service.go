package service

import (
	"context"
	"sync"
	"time"

	"medcircle/internal/logging"
	"medcircle/internal/metrics"
	"medcircle/internal/model"
	"medcircle/internal/repository"
)

// ViewService counts item views and unique viewers.
type ViewService interface {
	RecordView(ctx context.Context, ref model.ItemRef, userID string) error
	// RecordViewAsync records on a background goroutine with its own timeout.
	// Errors are logged and counted, never returned.
	RecordViewAsync(ref model.ItemRef, userID string)
	// Wait blocks until in-flight background recordings finish.
	Wait()
}

type viewService struct {
	items   repository.ItemRepository
	cache   Cache
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewViewService builds a ViewService.
func NewViewService(items repository.ItemRepository, cache Cache, timeout time.Duration) ViewService {
	return &viewService{items: items, cache: cache, timeout: timeout}
}

// RecordView applies one atomic update; anonymous views leave unique_viewers alone.
// The cached item is dropped so the next read shows the new counts.
func (s *viewService) RecordView(ctx context.Context, ref model.ItemRef, userID string) error {
	if err := s.items.RecordView(ctx, ref, userID, time.Now().UTC()); err != nil {
		return err
	}
	_ = s.cache.Delete(ctx, itemCacheKey(ref))
	metrics.ViewsTotal.WithLabelValues(string(ref.Kind)).Inc()
	return nil
}

func (s *viewService) RecordViewAsync(ref model.ItemRef, userID string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		if err := s.RecordView(ctx, ref, userID); err != nil {
			metrics.ViewFailures.Inc()
			logging.Logger.Warn().
				Err(err).
				Str("kind", string(ref.Kind)).
				Str("item_id", ref.ID).
				Msg("record view failed")
		}
	}()
}

func (s *viewService) Wait() {
	s.wg.Wait()
}
