package negotiation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mhollis/dealflow/internal/domain"
	"github.com/mhollis/dealflow/internal/repository/memory"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type deal struct {
	store         *memory.Store
	service       *Service
	transactionID uuid.UUID
	buyerID       uuid.UUID
	sellerID      uuid.UUID
}

// seedDeal installs an active transaction sitting on its negotiation
// step, with a conditions step pending behind it, plus both parties.
func seedDeal(t *testing.T) deal {
	t.Helper()

	store := memory.NewStore()
	transactionID := uuid.New()
	store.SeedTransaction(domain.Transaction{
		ID:               transactionID,
		Status:           domain.TransactionStatusActive,
		CurrentStepOrder: 1,
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	})
	store.SeedSteps(transactionID, []domain.TransactionStep{
		{ID: uuid.New(), TransactionID: transactionID, StepOrder: 1, Name: "Offer Negotiation", Status: domain.StepStatusActive},
		{ID: uuid.New(), TransactionID: transactionID, StepOrder: 2, Name: "Conditions", Status: domain.StepStatusPending},
	})

	buyer := domain.Party{ID: uuid.New(), FullName: "Dana Whitfield", Role: domain.PartyRoleBuyer}
	seller := domain.Party{ID: uuid.New(), FullName: "Ira Kaplan", Role: domain.PartyRoleSeller}
	store.SeedParty(buyer)
	store.SeedParty(seller)

	return deal{
		store:         store,
		service:       NewService(store),
		transactionID: transactionID,
		buyerID:       buyer.ID,
		sellerID:      seller.ID,
	}
}

func (d deal) createOffer(t *testing.T, price int64, terms domain.Terms) domain.Offer {
	t.Helper()
	terms.Price = decimal.NewFromInt(price)
	offer, _, err := d.service.CreateOffer(context.Background(), CreateOfferRequest{
		TransactionID: d.transactionID,
		BuyerPartyID:  &d.buyerID,
		SellerPartyID: &d.sellerID,
		Terms:         terms,
	})
	if err != nil {
		t.Fatalf("failed to create offer: %v", err)
	}
	return offer
}

func TestCreateOffer_InitialRevision(t *testing.T) {
	d := seedDeal(t)

	offer, revision, err := d.service.CreateOffer(context.Background(), CreateOfferRequest{
		TransactionID: d.transactionID,
		BuyerPartyID:  &d.buyerID,
		SellerPartyID: &d.sellerID,
		Terms: domain.Terms{
			Price:     decimal.NewFromInt(425000),
			Direction: domain.DirectionBuyerToSeller,
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if offer.Status != domain.OfferStatusReceived {
		t.Errorf("status = %s, want received", offer.Status)
	}
	if revision.RevisionNumber != 1 {
		t.Errorf("revision number = %d, want 1", revision.RevisionNumber)
	}
	if !revision.Price.Equal(decimal.NewFromInt(425000)) {
		t.Errorf("price = %s, want 425000", revision.Price)
	}
	if revision.FromPartyID == nil || *revision.FromPartyID != d.buyerID {
		t.Error("first revision should be sent by the buyer")
	}
}

func TestCreateOffer_Validation(t *testing.T) {
	d := seedDeal(t)
	ctx := context.Background()

	_, _, err := d.service.CreateOffer(ctx, CreateOfferRequest{
		TransactionID: d.transactionID,
		Terms:         domain.Terms{Price: decimal.Zero},
	})
	var validationErr *domain.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError for zero price, got %v", err)
	}

	_, _, err = d.service.CreateOffer(ctx, CreateOfferRequest{
		TransactionID: uuid.New(),
		Terms:         domain.Terms{Price: decimal.NewFromInt(100)},
	})
	var notFoundErr *domain.NotFoundError
	if !errors.As(err, &notFoundErr) {
		t.Fatalf("expected NotFoundError for unknown transaction, got %v", err)
	}

	closedID := uuid.New()
	d.store.SeedTransaction(domain.Transaction{
		ID:     closedID,
		Status: domain.TransactionStatusClosed,
	})
	_, _, err = d.service.CreateOffer(ctx, CreateOfferRequest{
		TransactionID: closedID,
		Terms:         domain.Terms{Price: decimal.NewFromInt(100)},
	})
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError for closed transaction, got %v", err)
	}
}

func TestAddRevision_ImplicitCounter(t *testing.T) {
	d := seedDeal(t)
	ctx := context.Background()
	offer := d.createOffer(t, 425000, domain.Terms{Direction: domain.DirectionBuyerToSeller})

	revision, err := d.service.AddRevision(ctx, offer.ID, domain.Terms{Price: decimal.NewFromInt(430000)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if revision.RevisionNumber != 2 {
		t.Errorf("revision number = %d, want 2", revision.RevisionNumber)
	}
	if revision.Direction != domain.DirectionSellerToBuyer {
		t.Errorf("direction = %s, want seller_to_buyer", revision.Direction)
	}
	if revision.FromPartyID == nil || *revision.FromPartyID != d.sellerID {
		t.Error("counter should be sent by the seller")
	}

	updated, err := d.service.GetOffer(ctx, offer.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != domain.OfferStatusCountered {
		t.Errorf("status = %s, want countered", updated.Status)
	}
}

func TestAcceptOffer_Cascade(t *testing.T) {
	d := seedDeal(t)
	ctx := context.Background()

	offerA := d.createOffer(t, 425000, domain.Terms{Direction: domain.DirectionBuyerToSeller})
	if _, err := d.service.AddRevision(ctx, offerA.ID, domain.Terms{Price: decimal.NewFromInt(430000)}); err != nil {
		t.Fatalf("failed to counter offer A: %v", err)
	}
	offerB := d.createOffer(t, 400000, domain.Terms{})

	result, err := d.service.AcceptOffer(ctx, offerA.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Offer.Status != domain.OfferStatusAccepted {
		t.Errorf("accepted offer status = %s", result.Offer.Status)
	}
	if result.Offer.AcceptedAt == nil {
		t.Error("acceptedAt should be set")
	}
	if len(result.SupersededOfferIDs) != 1 || result.SupersededOfferIDs[0] != offerB.ID {
		t.Errorf("superseded ids = %v, want [%s]", result.SupersededOfferIDs, offerB.ID)
	}

	// Sale price follows the accepted offer's current revision.
	if result.Transaction.SalePrice == nil || !result.Transaction.SalePrice.Equal(decimal.NewFromInt(430000)) {
		t.Errorf("sale price = %v, want 430000", result.Transaction.SalePrice)
	}
	if result.Transaction.CurrentStepOrder != 2 {
		t.Errorf("current step = %d, want 2", result.Transaction.CurrentStepOrder)
	}

	// The sibling carries the cascade's reason tag.
	superseded, err := d.service.GetOffer(ctx, offerB.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if superseded.Status != domain.OfferStatusRejected {
		t.Errorf("sibling status = %s, want rejected", superseded.Status)
	}
	if superseded.RejectionReason == nil || *superseded.RejectionReason != domain.RejectionReasonSuperseded {
		t.Errorf("sibling reason = %v, want %s", superseded.RejectionReason, domain.RejectionReasonSuperseded)
	}
}

func TestAcceptOffer_TwiceFails(t *testing.T) {
	d := seedDeal(t)
	ctx := context.Background()
	offer := d.createOffer(t, 425000, domain.Terms{})

	if _, err := d.service.AcceptOffer(ctx, offer.ID); err != nil {
		t.Fatalf("first accept failed: %v", err)
	}

	_, err := d.service.AcceptOffer(ctx, offer.ID)
	if !IsConflict(err) {
		t.Fatalf("expected InvalidTransition on second accept, got %v", err)
	}
}

func TestAcceptOffer_RollsBackWhenWorkflowFails(t *testing.T) {
	store := memory.NewStore()
	transactionID := uuid.New()
	// No workflow steps seeded: completing the negotiation step fails
	// and the whole cascade must roll back.
	store.SeedTransaction(domain.Transaction{
		ID:               transactionID,
		Status:           domain.TransactionStatusActive,
		CurrentStepOrder: 1,
	})
	service := NewService(store)
	ctx := context.Background()

	offerA, _, err := service.CreateOffer(ctx, CreateOfferRequest{
		TransactionID: transactionID,
		Terms:         domain.Terms{Price: decimal.NewFromInt(500000)},
	})
	if err != nil {
		t.Fatalf("failed to create offer A: %v", err)
	}
	offerB, _, err := service.CreateOffer(ctx, CreateOfferRequest{
		TransactionID: transactionID,
		Terms:         domain.Terms{Price: decimal.NewFromInt(480000)},
	})
	if err != nil {
		t.Fatalf("failed to create offer B: %v", err)
	}

	_, err = service.AcceptOffer(ctx, offerA.ID)
	var cascadeErr *domain.CascadeError
	if !errors.As(err, &cascadeErr) {
		t.Fatalf("expected CascadeError, got %v", err)
	}

	// Nothing may have moved: no accepted offer, no rejected sibling,
	// no sale price.
	a, err := service.GetOffer(ctx, offerA.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Status != domain.OfferStatusReceived {
		t.Errorf("offer A status = %s, want received after rollback", a.Status)
	}
	b, err := service.GetOffer(ctx, offerB.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Status != domain.OfferStatusReceived {
		t.Errorf("offer B status = %s, want received after rollback", b.Status)
	}
	snapshot, err := service.GetTransaction(ctx, transactionID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snapshot.SalePrice != nil {
		t.Errorf("sale price = %s, want unset after rollback", snapshot.SalePrice)
	}
}

func TestAcceptOffer_CompetingSiblingLoses(t *testing.T) {
	d := seedDeal(t)
	ctx := context.Background()

	offerA := d.createOffer(t, 425000, domain.Terms{})
	offerB := d.createOffer(t, 440000, domain.Terms{})

	if _, err := d.service.AcceptOffer(ctx, offerA.ID); err != nil {
		t.Fatalf("accept of offer A failed: %v", err)
	}

	// B was superseded by A's cascade, so accepting it now conflicts.
	_, err := d.service.AcceptOffer(ctx, offerB.ID)
	if !IsConflict(err) {
		t.Fatalf("expected InvalidTransition for superseded sibling, got %v", err)
	}
}

func TestWithdrawThenAddRevisionFails(t *testing.T) {
	d := seedDeal(t)
	ctx := context.Background()
	offer := d.createOffer(t, 410000, domain.Terms{})

	withdrawn, err := d.service.WithdrawOffer(ctx, offer.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if withdrawn.Status != domain.OfferStatusWithdrawn {
		t.Errorf("status = %s, want withdrawn", withdrawn.Status)
	}

	_, err = d.service.AddRevision(ctx, offer.ID, domain.Terms{Price: decimal.NewFromInt(415000)})
	if !IsConflict(err) {
		t.Fatalf("expected InvalidTransition, got %v", err)
	}
}

func TestRejectOffer_ManualHasNoReasonTag(t *testing.T) {
	d := seedDeal(t)
	ctx := context.Background()
	offer := d.createOffer(t, 410000, domain.Terms{})

	rejected, err := d.service.RejectOffer(ctx, offer.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rejected.Status != domain.OfferStatusRejected {
		t.Errorf("status = %s, want rejected", rejected.Status)
	}
	if rejected.RejectionReason != nil {
		t.Errorf("manual rejection should carry no reason tag, got %s", *rejected.RejectionReason)
	}
}

func TestDeleteOffer(t *testing.T) {
	d := seedDeal(t)
	ctx := context.Background()

	accepted := d.createOffer(t, 425000, domain.Terms{})
	if _, err := d.service.AcceptOffer(ctx, accepted.ID); err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	if err := d.service.DeleteOffer(ctx, accepted.ID); !IsConflict(err) {
		t.Fatalf("expected InvalidTransition deleting accepted offer, got %v", err)
	}

	// Non-accepted terminal offers delete together with their ledger.
	superseded, err := d.service.ListOffers(ctx, d.transactionID, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(superseded) != 1 {
		t.Fatalf("expected one offer, got %d", len(superseded))
	}

	victim := d.createOfferOnClosedStep(t)
	if err := d.service.DeleteOffer(ctx, victim); err != nil {
		t.Fatalf("unexpected error deleting rejected offer: %v", err)
	}
	if _, err := d.service.GetOffer(ctx, victim); err == nil {
		t.Fatal("deleted offer still readable")
	}
	if _, err := d.service.GetThread(ctx, victim); err == nil {
		t.Fatal("deleted offer's thread still readable")
	}
}

// createOfferOnClosedStep adds another offer and rejects it manually, so
// deletion tests have a terminal non-accepted offer to work with.
func (d deal) createOfferOnClosedStep(t *testing.T) uuid.UUID {
	t.Helper()
	offer := d.createOffer(t, 390000, domain.Terms{})
	if _, err := d.service.RejectOffer(context.Background(), offer.ID); err != nil {
		t.Fatalf("failed to reject offer: %v", err)
	}
	return offer.ID
}

func TestGetThread_FullHistory(t *testing.T) {
	d := seedDeal(t)
	ctx := context.Background()
	offer := d.createOffer(t, 425000, domain.Terms{Direction: domain.DirectionBuyerToSeller})

	prices := []int64{430000, 427500, 429000}
	for _, price := range prices {
		if _, err := d.service.AddRevision(ctx, offer.ID, domain.Terms{Price: decimal.NewFromInt(price)}); err != nil {
			t.Fatalf("failed to counter at %d: %v", price, err)
		}
	}

	thread, err := d.service.GetThread(ctx, offer.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(thread.Revisions) != 4 {
		t.Fatalf("revisions = %d, want 4", len(thread.Revisions))
	}
	for i, revision := range thread.Revisions {
		if revision.RevisionNumber != i+1 {
			t.Errorf("revision %d numbered %d", i, revision.RevisionNumber)
		}
		if i > 0 && revision.Direction == thread.Revisions[i-1].Direction {
			t.Errorf("revision %d direction did not alternate", i+1)
		}
	}
}
