package negotiation

import (
	"context"
	"errors"

	"github.com/mhollis/dealflow/internal/domain"
	"github.com/mhollis/dealflow/internal/repository"

	"github.com/google/uuid"
)

// AcceptResult is what the cascade hands back for notifications: the
// accepted offer, the siblings it displaced, and the updated aggregate.
type AcceptResult struct {
	Offer              domain.Offer               `json:"offer"`
	SupersededOfferIDs []uuid.UUID                `json:"superseded_offer_ids"`
	Transaction        domain.TransactionSnapshot `json:"transaction"`
}

// AcceptOffer runs the acceptance cascade as one atomic unit: accept the
// offer, reject its active siblings, record the sale price, and advance
// the transaction's workflow step. Competing accepts on the same
// transaction serialize on the transaction row lock; the loser re-reads
// an already-terminal status and fails with InvalidTransition.
//
// Any failure past the precondition surfaces as a single CascadeError and
// rolls the whole unit back, so at most one offer per transaction is ever
// accepted and the sale price never diverges from the workflow state.
func (s *Service) AcceptOffer(ctx context.Context, offerID uuid.UUID) (AcceptResult, error) {
	var result AcceptResult
	err := s.store.WithinTx(ctx, func(uow repository.UnitOfWork) error {
		offer, err := uow.Offers().GetByID(ctx, offerID)
		if err != nil {
			return err
		}

		// Serialize against sibling accepts before re-checking status.
		txn, err := uow.Transactions().GetForUpdate(ctx, offer.TransactionID)
		if err != nil {
			return err
		}
		if offer, err = uow.Offers().GetByID(ctx, offerID); err != nil {
			return err
		}
		if err := offer.EnsureActive(domain.OpAccept); err != nil {
			return err
		}

		now := s.now()
		accepted, err := uow.Offers().TransitionStatus(ctx, offerID, domain.OfferStatusAccepted, &now, nil)
		if err != nil {
			return err
		}

		siblings, err := uow.Offers().ListActiveByTransaction(ctx, txn.ID)
		if err != nil {
			return &domain.CascadeError{Step: "load siblings", Err: err}
		}

		supersededIDs := []uuid.UUID{}
		reason := domain.RejectionReasonSuperseded
		for _, sibling := range siblings {
			if sibling.ID == offerID {
				continue
			}
			if _, err := uow.Offers().TransitionStatus(ctx, sibling.ID, domain.OfferStatusRejected, nil, &reason); err != nil {
				return &domain.CascadeError{Step: "supersede siblings", Err: err}
			}
			supersededIDs = append(supersededIDs, sibling.ID)
		}

		current, err := uow.Revisions().Current(ctx, offerID)
		if err != nil {
			return &domain.CascadeError{Step: "read accepted terms", Err: err}
		}
		updatedTxn, err := uow.Transactions().SetSalePrice(ctx, txn.ID, current.Price)
		if err != nil {
			return &domain.CascadeError{Step: "record sale price", Err: err}
		}

		if err := uow.Steps().CompleteStep(ctx, txn.ID, txn.CurrentStepOrder); err != nil {
			return &domain.CascadeError{Step: "complete negotiation step", Err: err}
		}
		nextStep, err := uow.Steps().ActivateNextStep(ctx, txn.ID, current.ConditionIDs)
		if err != nil {
			return &domain.CascadeError{Step: "activate next step", Err: err}
		}
		updatedTxn.CurrentStepOrder = nextStep

		result = AcceptResult{
			Offer:              accepted,
			SupersededOfferIDs: supersededIDs,
			Transaction:        updatedTxn.Snapshot(),
		}
		return nil
	})
	if err != nil {
		return AcceptResult{}, err
	}

	return result, nil
}

// IsConflict reports whether an error is the cascade losing a race or an
// operation hitting a terminal offer, as opposed to a hard failure.
func IsConflict(err error) bool {
	var transitionErr *domain.InvalidTransitionError
	return errors.As(err, &transitionErr)
}
