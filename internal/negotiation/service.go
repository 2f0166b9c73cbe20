// Package negotiation implements the offer negotiation engine: the offer
// state machine, the append-only revision ledger, the acceptance cascade
// and the expiry sweeper. Every entry point, request-driven or periodic,
// funnels through the same status guards.
package negotiation

import (
	"context"
	"fmt"
	"time"

	"github.com/mhollis/dealflow/internal/domain"
	"github.com/mhollis/dealflow/internal/repository"

	"github.com/google/uuid"
)

// Service exposes the negotiation operations over a Store.
type Service struct {
	store repository.Store
	now   func() time.Time
}

// NewService creates a negotiation service.
func NewService(store repository.Store) *Service {
	return &Service{
		store: store,
		now:   time.Now,
	}
}

// CreateOfferRequest carries the inputs of CreateOffer.
type CreateOfferRequest struct {
	TransactionID uuid.UUID
	BuyerPartyID  *uuid.UUID
	SellerPartyID *uuid.UUID
	Terms         domain.Terms
}

// CreateOffer opens a negotiating thread on a transaction. The offer
// starts in the received state with revision #1 holding the initial
// terms; both rows land in one unit of work.
func (s *Service) CreateOffer(ctx context.Context, req CreateOfferRequest) (domain.Offer, domain.OfferRevision, error) {
	if err := req.Terms.Validate(); err != nil {
		return domain.Offer{}, domain.OfferRevision{}, err
	}

	var (
		offer    domain.Offer
		revision domain.OfferRevision
	)
	err := s.store.WithinTx(ctx, func(uow repository.UnitOfWork) error {
		txn, err := uow.Transactions().GetByID(ctx, req.TransactionID)
		if err != nil {
			return err
		}
		if txn.Status != domain.TransactionStatusActive {
			return &domain.ValidationError{Field: "transaction_id", Reason: fmt.Sprintf("transaction is %s", txn.Status)}
		}

		offer = domain.NewOffer(req.TransactionID, req.BuyerPartyID, req.SellerPartyID)
		revision, err = domain.NextRevision(offer, nil, req.Terms)
		if err != nil {
			return err
		}

		if offer, err = uow.Offers().Create(ctx, offer); err != nil {
			return err
		}
		revision, err = uow.Revisions().Append(ctx, revision)
		return err
	})
	if err != nil {
		return domain.Offer{}, domain.OfferRevision{}, err
	}

	return offer, revision, nil
}

// AddRevision appends a counter to an offer's ledger. Direction and
// parties come from the terms when supplied, otherwise they invert from
// the prior revision. The offer moves to countered.
func (s *Service) AddRevision(ctx context.Context, offerID uuid.UUID, terms domain.Terms) (domain.OfferRevision, error) {
	if err := terms.Validate(); err != nil {
		return domain.OfferRevision{}, err
	}

	var revision domain.OfferRevision
	err := s.store.WithinTx(ctx, func(uow repository.UnitOfWork) error {
		offer, err := uow.Offers().GetForUpdate(ctx, offerID)
		if err != nil {
			return err
		}
		if err := offer.EnsureActive(domain.OpAddRevision); err != nil {
			return err
		}

		prior, err := uow.Revisions().Current(ctx, offerID)
		if err != nil {
			return err
		}

		revision, err = domain.NextRevision(offer, &prior, terms)
		if err != nil {
			return err
		}
		if revision, err = uow.Revisions().Append(ctx, revision); err != nil {
			return err
		}

		_, err = uow.Offers().TransitionStatus(ctx, offerID, domain.OfferStatusCountered, nil, nil)
		return err
	})
	if err != nil {
		return domain.OfferRevision{}, err
	}

	return revision, nil
}

// RejectOffer declines an active offer manually, without a reason tag.
func (s *Service) RejectOffer(ctx context.Context, offerID uuid.UUID) (domain.Offer, error) {
	return s.terminate(ctx, offerID, domain.OfferStatusRejected, domain.OpReject)
}

// WithdrawOffer retracts an active offer on behalf of its sender.
func (s *Service) WithdrawOffer(ctx context.Context, offerID uuid.UUID) (domain.Offer, error) {
	return s.terminate(ctx, offerID, domain.OfferStatusWithdrawn, domain.OpWithdraw)
}

// terminate is the shared reject/withdraw path: lock, guard, transition.
func (s *Service) terminate(ctx context.Context, offerID uuid.UUID, to domain.OfferStatus, operation string) (domain.Offer, error) {
	var updated domain.Offer
	err := s.store.WithinTx(ctx, func(uow repository.UnitOfWork) error {
		offer, err := uow.Offers().GetForUpdate(ctx, offerID)
		if err != nil {
			return err
		}
		if err := offer.EnsureActive(operation); err != nil {
			return err
		}

		updated, err = uow.Offers().TransitionStatus(ctx, offerID, to, nil, nil)
		return err
	})
	if err != nil {
		return domain.Offer{}, err
	}
	return updated, nil
}

// DeleteOffer removes an offer and its ledger. Accepted offers cannot be
// deleted; any other status can, terminal or not.
func (s *Service) DeleteOffer(ctx context.Context, offerID uuid.UUID) error {
	return s.store.WithinTx(ctx, func(uow repository.UnitOfWork) error {
		offer, err := uow.Offers().GetForUpdate(ctx, offerID)
		if err != nil {
			return err
		}
		if err := offer.EnsureDeletable(); err != nil {
			return err
		}
		return uow.Offers().Delete(ctx, offerID)
	})
}

// GetOffer retrieves one offer.
func (s *Service) GetOffer(ctx context.Context, offerID uuid.UUID) (domain.Offer, error) {
	return s.store.Offers().GetByID(ctx, offerID)
}

// ListOffers retrieves a transaction's offers, optionally only the active
// ones.
func (s *Service) ListOffers(ctx context.Context, transactionID uuid.UUID, activeOnly bool) ([]domain.Offer, error) {
	if _, err := s.store.Transactions().GetByID(ctx, transactionID); err != nil {
		return nil, err
	}
	if activeOnly {
		return s.store.Offers().ListActiveByTransaction(ctx, transactionID)
	}
	return s.store.Offers().ListByTransaction(ctx, transactionID)
}

// GetTransaction exposes the aggregate snapshot consumed by callers of
// the cascade.
func (s *Service) GetTransaction(ctx context.Context, transactionID uuid.UUID) (domain.TransactionSnapshot, error) {
	txn, err := s.store.Transactions().GetByID(ctx, transactionID)
	if err != nil {
		return domain.TransactionSnapshot{}, err
	}
	return txn.Snapshot(), nil
}

// Thread is the ordered negotiation history of one offer.
type Thread struct {
	Offer     domain.Offer           `json:"offer"`
	Revisions []domain.OfferRevision `json:"revisions"`
}

// GetThread reconstructs the negotiation thread for comparison views.
// The ledger is append-only, so the history is always complete.
func (s *Service) GetThread(ctx context.Context, offerID uuid.UUID) (Thread, error) {
	offer, err := s.store.Offers().GetByID(ctx, offerID)
	if err != nil {
		return Thread{}, err
	}
	revisions, err := s.store.Revisions().ListByOffer(ctx, offerID)
	if err != nil {
		return Thread{}, err
	}
	return Thread{Offer: offer, Revisions: revisions}, nil
}

// CurrentTerms returns the offer's current revision.
func (s *Service) CurrentTerms(ctx context.Context, offerID uuid.UUID) (domain.OfferRevision, error) {
	if _, err := s.store.Offers().GetByID(ctx, offerID); err != nil {
		return domain.OfferRevision{}, err
	}
	return s.store.Revisions().Current(ctx, offerID)
}
