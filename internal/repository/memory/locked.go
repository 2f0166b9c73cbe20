package memory

import (
	"context"
	"time"

	"github.com/mhollis/dealflow/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Locked wrappers guard single ambient calls made outside WithinTx.

type lockedOffers struct {
	store *Store
}

func (l lockedOffers) Create(ctx context.Context, offer domain.Offer) (domain.Offer, error) {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	return offers{data: l.store.data}.Create(ctx, offer)
}

func (l lockedOffers) GetByID(ctx context.Context, id uuid.UUID) (domain.Offer, error) {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	return offers{data: l.store.data}.GetByID(ctx, id)
}

func (l lockedOffers) GetForUpdate(ctx context.Context, id uuid.UUID) (domain.Offer, error) {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	return offers{data: l.store.data}.GetForUpdate(ctx, id)
}

func (l lockedOffers) ListByTransaction(ctx context.Context, transactionID uuid.UUID) ([]domain.Offer, error) {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	return offers{data: l.store.data}.ListByTransaction(ctx, transactionID)
}

func (l lockedOffers) ListActiveByTransaction(ctx context.Context, transactionID uuid.UUID) ([]domain.Offer, error) {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	return offers{data: l.store.data}.ListActiveByTransaction(ctx, transactionID)
}

func (l lockedOffers) ListExpiredCandidates(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	return offers{data: l.store.data}.ListExpiredCandidates(ctx, now)
}

func (l lockedOffers) TransitionStatus(ctx context.Context, id uuid.UUID, to domain.OfferStatus, acceptedAt *time.Time, reason *string) (domain.Offer, error) {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	return offers{data: l.store.data}.TransitionStatus(ctx, id, to, acceptedAt, reason)
}

func (l lockedOffers) Delete(ctx context.Context, id uuid.UUID) error {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	return offers{data: l.store.data}.Delete(ctx, id)
}

type lockedRevisions struct {
	store *Store
}

func (l lockedRevisions) Append(ctx context.Context, revision domain.OfferRevision) (domain.OfferRevision, error) {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	return revisions{data: l.store.data}.Append(ctx, revision)
}

func (l lockedRevisions) Current(ctx context.Context, offerID uuid.UUID) (domain.OfferRevision, error) {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	return revisions{data: l.store.data}.Current(ctx, offerID)
}

func (l lockedRevisions) ListByOffer(ctx context.Context, offerID uuid.UUID) ([]domain.OfferRevision, error) {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	return revisions{data: l.store.data}.ListByOffer(ctx, offerID)
}

type lockedTransactions struct {
	store *Store
}

func (l lockedTransactions) GetByID(ctx context.Context, id uuid.UUID) (domain.Transaction, error) {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	return transactions{data: l.store.data}.GetByID(ctx, id)
}

func (l lockedTransactions) GetForUpdate(ctx context.Context, id uuid.UUID) (domain.Transaction, error) {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	return transactions{data: l.store.data}.GetForUpdate(ctx, id)
}

func (l lockedTransactions) SetSalePrice(ctx context.Context, id uuid.UUID, price decimal.Decimal) (domain.Transaction, error) {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	return transactions{data: l.store.data}.SetSalePrice(ctx, id, price)
}

type lockedSteps struct {
	store *Store
}

func (l lockedSteps) CompleteStep(ctx context.Context, transactionID uuid.UUID, stepOrder int) error {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	return steps{data: l.store.data}.CompleteStep(ctx, transactionID, stepOrder)
}

func (l lockedSteps) ActivateNextStep(ctx context.Context, transactionID uuid.UUID, conditionPackIDs []uuid.UUID) (int, error) {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	return steps{data: l.store.data}.ActivateNextStep(ctx, transactionID, conditionPackIDs)
}

type lockedParties struct {
	store *Store
}

func (l lockedParties) GetByID(ctx context.Context, id uuid.UUID) (domain.Party, error) {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	return parties{data: l.store.data}.GetByID(ctx, id)
}

func (l lockedParties) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Party, error) {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	return parties{data: l.store.data}.GetByIDs(ctx, ids)
}
