package negotiation

import (
	"context"
	"log"
	"time"

	"github.com/mhollis/dealflow/internal/domain"
	"github.com/mhollis/dealflow/internal/repository"
)

// SweepExpired force-expires every active offer whose current revision's
// expiry has passed. Each offer transitions in its own unit of work
// through the same guards as user-initiated operations; an offer accepted
// mid-sweep simply loses the compare-and-swap and is skipped, and so is
// one whose deadline moved out after the candidate scan. Re-running with
// the same now expires nothing further.
func (s *Service) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	candidates, err := s.store.Offers().ListExpiredCandidates(ctx, now)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, offerID := range candidates {
		stillExpired := false
		err := s.store.WithinTx(ctx, func(uow repository.UnitOfWork) error {
			offer, err := uow.Offers().GetForUpdate(ctx, offerID)
			if err != nil {
				return err
			}
			if err := offer.EnsureActive(domain.OpExpire); err != nil {
				return err
			}

			// The scan ran outside this lock; only the current
			// revision read under it decides the deadline.
			current, err := uow.Revisions().Current(ctx, offerID)
			if err != nil {
				return err
			}
			if current.ExpiryAt == nil || !current.ExpiryAt.Before(now) {
				return nil
			}

			if _, err := uow.Offers().TransitionStatus(ctx, offerID, domain.OfferStatusExpired, nil, nil); err != nil {
				return err
			}
			stillExpired = true
			return nil
		})
		if err != nil {
			// A single losing offer must not abort the batch.
			if IsConflict(err) {
				continue
			}
			log.Printf("[SWEEP] failed to expire offer %s: %v", offerID, err)
			continue
		}
		if stillExpired {
			expired++
		}
	}

	return expired, nil
}

// Sweeper periodically expires stale offers in the background.
type Sweeper struct {
	service  *Service
	interval time.Duration
}

// NewSweeper creates a sweeper running at the given interval.
func NewSweeper(service *Service, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{service: service, interval: interval}
}

// Run sweeps until the context is cancelled. It is meant to run in its
// own goroutine next to the HTTP server.
func (w *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	log.Printf("[SWEEP] expiry sweeper running every %s", w.interval)
	for {
		select {
		case <-ctx.Done():
			log.Println("[SWEEP] expiry sweeper stopped")
			return
		case now := <-ticker.C:
			count, err := w.service.SweepExpired(ctx, now)
			if err != nil {
				log.Printf("[SWEEP] sweep failed: %v", err)
				continue
			}
			if count > 0 {
				log.Printf("[SWEEP] expired %d offers", count)
			}
		}
	}
}
