package partyloader

import (
	"context"
	"sync"
	"testing"

	"github.com/mhollis/dealflow/internal/domain"
	"github.com/mhollis/dealflow/internal/repository/memory"

	"github.com/google/uuid"
)

func TestPartyLoader_BatchesLookups(t *testing.T) {
	store := memory.NewStore()
	buyer := domain.Party{ID: uuid.New(), FullName: "Dana Whitfield", Role: domain.PartyRoleBuyer}
	seller := domain.Party{ID: uuid.New(), FullName: "Ira Kaplan", Role: domain.PartyRoleSeller}
	store.SeedParty(buyer)
	store.SeedParty(seller)

	loader := NewPartyLoader(store.Parties())
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]*domain.Party, 2)
	for i, id := range []uuid.UUID{buyer.ID, seller.ID} {
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			party, err := loader.Get(ctx, id)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			results[i] = party
		}(i, id)
	}
	wg.Wait()

	if results[0] == nil || results[0].FullName != "Dana Whitfield" {
		t.Errorf("buyer lookup = %+v", results[0])
	}
	if results[1] == nil || results[1].FullName != "Ira Kaplan" {
		t.Errorf("seller lookup = %+v", results[1])
	}
}

func TestPartyLoader_UnknownID(t *testing.T) {
	store := memory.NewStore()
	loader := NewPartyLoader(store.Parties())

	party, err := loader.Get(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if party != nil {
		t.Errorf("unknown id resolved to %+v", party)
	}
}
