package partyloader

import (
	"context"
	"fmt"
	"time"

	"github.com/mhollis/dealflow/internal/domain"
	"github.com/mhollis/dealflow/internal/repository"

	"github.com/google/uuid"
	"github.com/graph-gophers/dataloader"
)

// PartyLoader batches party directory lookups, so thread and comparison
// views resolve buyer and seller names in one round trip per request.
type PartyLoader struct {
	Loader *dataloader.Loader
}

func NewPartyLoader(repo repository.PartyRepository) *PartyLoader {
	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		// Convert keys to []uuid.UUID
		ids := make([]uuid.UUID, len(keys))
		for i, k := range keys {
			id, err := uuid.Parse(k.String())
			if err != nil {
				return []*dataloader.Result{{Error: fmt.Errorf("invalid UUID: %w", err)}}
			}
			ids[i] = id
		}

		// Fetch parties in batch
		parties, err := repo.GetByIDs(ctx, ids)
		if err != nil {
			results := make([]*dataloader.Result, len(keys))
			for i := range results {
				results[i] = &dataloader.Result{Error: err}
			}
			return results
		}

		// Map UUID -> party for ordering
		partyMap := make(map[uuid.UUID]domain.Party)
		for _, p := range parties {
			partyMap[p.ID] = p
		}

		// Build results in the same order as keys
		results := make([]*dataloader.Result, len(keys))
		for i, id := range ids {
			if p, ok := partyMap[id]; ok {
				results[i] = &dataloader.Result{Data: p}
			} else {
				results[i] = &dataloader.Result{Data: nil}
			}
		}

		return results
	}

	loader := dataloader.NewBatchedLoader(batchFn, dataloader.WithWait(5*time.Millisecond))

	return &PartyLoader{Loader: loader}
}

// Get resolves one party through the batch. A nil party means the id is
// unknown to the directory.
func (l *PartyLoader) Get(ctx context.Context, id uuid.UUID) (*domain.Party, error) {
	thunk := l.Loader.Load(ctx, dataloader.StringKey(id.String()))
	value, err := thunk()
	if err != nil {
		return nil, err
	}
	party, ok := value.(domain.Party)
	if !ok {
		return nil, nil
	}
	return &party, nil
}
