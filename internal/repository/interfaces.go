package repository

import (
	"context"
	"time"

	"github.com/mhollis/dealflow/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OfferRepository defines the interface for offer lifecycle operations
type OfferRepository interface {
	Create(ctx context.Context, offer domain.Offer) (domain.Offer, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Offer, error)
	// GetForUpdate locks the offer row for the remainder of the
	// enclosing transaction.
	GetForUpdate(ctx context.Context, id uuid.UUID) (domain.Offer, error)
	ListByTransaction(ctx context.Context, transactionID uuid.UUID) ([]domain.Offer, error)
	ListActiveByTransaction(ctx context.Context, transactionID uuid.UUID) ([]domain.Offer, error)
	// ListExpiredCandidates returns ids of active offers whose current
	// revision expired before now.
	ListExpiredCandidates(ctx context.Context, now time.Time) ([]uuid.UUID, error)
	// TransitionStatus is a compare-and-swap: it moves the offer to the
	// target status only while the offer is still active, and reports
	// InvalidTransition when a concurrent transition won.
	TransitionStatus(ctx context.Context, id uuid.UUID, to domain.OfferStatus, acceptedAt *time.Time, reason *string) (domain.Offer, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// RevisionRepository is the append-only ledger of negotiated terms
type RevisionRepository interface {
	Append(ctx context.Context, revision domain.OfferRevision) (domain.OfferRevision, error)
	Current(ctx context.Context, offerID uuid.UUID) (domain.OfferRevision, error)
	ListByOffer(ctx context.Context, offerID uuid.UUID) ([]domain.OfferRevision, error)
}

// TransactionRepository exposes the aggregate fields the cascade touches
type TransactionRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.Transaction, error)
	// GetForUpdate locks the transaction row; competing accepts on
	// sibling offers serialize on this lock.
	GetForUpdate(ctx context.Context, id uuid.UUID) (domain.Transaction, error)
	SetSalePrice(ctx context.Context, id uuid.UUID, price decimal.Decimal) (domain.Transaction, error)
}

// WorkflowStepRepository is the gateway onto the external workflow and
// condition module. The cascade only completes the current step and
// activates the following one; step content stays external.
type WorkflowStepRepository interface {
	CompleteStep(ctx context.Context, transactionID uuid.UUID, stepOrder int) error
	// ActivateNextStep attaches condition packs to the next step,
	// activates it, and returns its step order.
	ActivateNextStep(ctx context.Context, transactionID uuid.UUID, conditionPackIDs []uuid.UUID) (int, error)
}

// PartyRepository resolves parties for display. Read only.
type PartyRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.Party, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Party, error)
}

// UnitOfWork groups the repositories sharing one storage scope.
type UnitOfWork interface {
	Offers() OfferRepository
	Revisions() RevisionRepository
	Transactions() TransactionRepository
	Steps() WorkflowStepRepository
}

// Store is the storage boundary of the negotiation core. WithinTx runs fn
// against a transaction-scoped unit of work; either everything fn did
// commits or none of it does.
type Store interface {
	UnitOfWork
	WithinTx(ctx context.Context, fn func(UnitOfWork) error) error
}
