package domain

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func ptr[T any](v T) *T { return &v }

func testOffer() Offer {
	return Offer{
		ID:            uuid.New(),
		TransactionID: uuid.New(),
		Status:        OfferStatusReceived,
		BuyerPartyID:  ptr(uuid.New()),
		SellerPartyID: ptr(uuid.New()),
	}
}

func TestNextRevision_FirstDefaultsToBuyerToSeller(t *testing.T) {
	offer := testOffer()
	rev, err := NextRevision(offer, nil, Terms{Price: decimal.NewFromInt(425000)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rev.RevisionNumber != 1 {
		t.Errorf("revision number = %d, want 1", rev.RevisionNumber)
	}
	if rev.Direction != DirectionBuyerToSeller {
		t.Errorf("direction = %s, want %s", rev.Direction, DirectionBuyerToSeller)
	}
	if rev.FromPartyID == nil || *rev.FromPartyID != *offer.BuyerPartyID {
		t.Error("from party should be the buyer")
	}
	if rev.ToPartyID == nil || *rev.ToPartyID != *offer.SellerPartyID {
		t.Error("to party should be the seller")
	}
}

func TestNextRevision_ImplicitDirectionInverts(t *testing.T) {
	offer := testOffer()
	first, err := NextRevision(offer, nil, Terms{
		Price:     decimal.NewFromInt(425000),
		Direction: DirectionBuyerToSeller,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second, err := NextRevision(offer, &first, Terms{Price: decimal.NewFromInt(430000)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if second.RevisionNumber != 2 {
		t.Errorf("revision number = %d, want 2", second.RevisionNumber)
	}
	if second.Direction != DirectionSellerToBuyer {
		t.Errorf("direction = %s, want %s", second.Direction, DirectionSellerToBuyer)
	}
	if *second.FromPartyID != *first.ToPartyID || *second.ToPartyID != *first.FromPartyID {
		t.Error("parties should swap when direction is inferred")
	}
}

func TestNextRevision_ExplicitDirectionWins(t *testing.T) {
	offer := testOffer()
	first, err := NextRevision(offer, nil, Terms{
		Price:     decimal.NewFromInt(425000),
		Direction: DirectionBuyerToSeller,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Buyer improves their own offer before the seller responds.
	second, err := NextRevision(offer, &first, Terms{
		Price:     decimal.NewFromInt(440000),
		Direction: DirectionBuyerToSeller,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if second.Direction != DirectionBuyerToSeller {
		t.Errorf("direction = %s, want explicit %s", second.Direction, DirectionBuyerToSeller)
	}
	if *second.FromPartyID != *offer.BuyerPartyID {
		t.Error("from party should follow the explicit direction")
	}
}

func TestNextRevision_AlternatingLadder(t *testing.T) {
	offer := testOffer()
	var prior *OfferRevision
	for i := 1; i <= 6; i++ {
		rev, err := NextRevision(offer, prior, Terms{Price: decimal.NewFromInt(int64(400000 + i))})
		if err != nil {
			t.Fatalf("revision %d: %v", i, err)
		}
		if rev.RevisionNumber != i {
			t.Fatalf("revision %d numbered %d", i, rev.RevisionNumber)
		}
		if prior != nil {
			if rev.Direction != prior.Direction.Opposite() {
				t.Fatalf("revision %d direction %s did not invert", i, rev.Direction)
			}
			if *rev.FromPartyID != *prior.ToPartyID {
				t.Fatalf("revision %d sender is not the prior recipient", i)
			}
		}
		prior = &rev
	}
}

func TestTermsValidate(t *testing.T) {
	if err := (Terms{Price: decimal.Zero}).Validate(); err == nil {
		t.Fatal("expected error for zero price")
	}
	err := (Terms{Price: decimal.NewFromInt(-5)}).Validate()
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}

	if err := (Terms{Price: decimal.NewFromInt(100), Direction: "sideways"}).Validate(); err == nil {
		t.Fatal("expected error for unknown direction")
	}
	if err := (Terms{Price: decimal.NewFromInt(100), InspectionDelay: ptr(-1)}).Validate(); err == nil {
		t.Fatal("expected error for negative inspection delay")
	}
	if err := (Terms{Price: decimal.NewFromInt(100)}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCurrentRevision(t *testing.T) {
	if _, err := CurrentRevision(nil); err == nil {
		t.Fatal("expected error for empty ledger")
	}

	ledger := []OfferRevision{
		{RevisionNumber: 1},
		{RevisionNumber: 2},
		{RevisionNumber: 3},
	}
	current, err := CurrentRevision(ledger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if current.RevisionNumber != 3 {
		t.Fatalf("current revision = %d, want 3", current.RevisionNumber)
	}
}
