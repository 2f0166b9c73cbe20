package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/mhollis/dealflow/internal/domain"
	"github.com/mhollis/dealflow/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// unitOfWork operates directly on live state. The store mutex is already
// held for the duration of WithinTx.
type unitOfWork struct {
	data *state
}

func (u unitOfWork) Offers() repository.OfferRepository {
	return offers{data: u.data}
}

func (u unitOfWork) Revisions() repository.RevisionRepository {
	return revisions{data: u.data}
}

func (u unitOfWork) Transactions() repository.TransactionRepository {
	return transactions{data: u.data}
}

func (u unitOfWork) Steps() repository.WorkflowStepRepository {
	return steps{data: u.data}
}

type offers struct {
	data *state
}

func (r offers) Create(ctx context.Context, offer domain.Offer) (domain.Offer, error) {
	if _, ok := r.data.transactions[offer.TransactionID]; !ok {
		return domain.Offer{}, &domain.NotFoundError{Resource: "transaction", ID: offer.TransactionID}
	}
	r.data.offers[offer.ID] = offer
	return offer, nil
}

func (r offers) GetByID(ctx context.Context, id uuid.UUID) (domain.Offer, error) {
	offer, ok := r.data.offers[id]
	if !ok {
		return domain.Offer{}, &domain.NotFoundError{Resource: "offer", ID: id}
	}
	return offer, nil
}

func (r offers) GetForUpdate(ctx context.Context, id uuid.UUID) (domain.Offer, error) {
	// The store mutex already serializes units of work.
	return r.GetByID(ctx, id)
}

func (r offers) ListByTransaction(ctx context.Context, transactionID uuid.UUID) ([]domain.Offer, error) {
	return r.list(transactionID, false), nil
}

func (r offers) ListActiveByTransaction(ctx context.Context, transactionID uuid.UUID) ([]domain.Offer, error) {
	return r.list(transactionID, true), nil
}

func (r offers) list(transactionID uuid.UUID, activeOnly bool) []domain.Offer {
	result := []domain.Offer{}
	for _, offer := range r.data.offers {
		if offer.TransactionID != transactionID {
			continue
		}
		if activeOnly && !offer.Status.Active() {
			continue
		}
		result = append(result, offer)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID.String() < result[j].ID.String()
	})
	return result
}

func (r offers) ListExpiredCandidates(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	candidates := []domain.Offer{}
	for _, offer := range r.data.offers {
		if !offer.Status.Active() {
			continue
		}
		current, err := domain.CurrentRevision(r.data.revisions[offer.ID])
		if err != nil {
			continue
		}
		if current.ExpiryAt != nil && current.ExpiryAt.Before(now) {
			candidates = append(candidates, offer)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if !candidates[i].CreatedAt.Equal(candidates[j].CreatedAt) {
			return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
		}
		return candidates[i].ID.String() < candidates[j].ID.String()
	})

	ids := make([]uuid.UUID, len(candidates))
	for i, offer := range candidates {
		ids[i] = offer.ID
	}
	return ids, nil
}

func (r offers) TransitionStatus(ctx context.Context, id uuid.UUID, to domain.OfferStatus, acceptedAt *time.Time, reason *string) (domain.Offer, error) {
	offer, ok := r.data.offers[id]
	if !ok {
		return domain.Offer{}, &domain.NotFoundError{Resource: "offer", ID: id}
	}
	if !offer.Status.Active() {
		return domain.Offer{}, &domain.InvalidTransitionError{
			OfferID:   id,
			Status:    offer.Status,
			Operation: domain.TransitionOperation(to),
		}
	}

	offer.Status = to
	if acceptedAt != nil {
		offer.AcceptedAt = acceptedAt
	}
	if reason != nil {
		offer.RejectionReason = reason
	}
	r.data.offers[id] = offer

	return offer, nil
}

func (r offers) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := r.data.offers[id]; !ok {
		return &domain.NotFoundError{Resource: "offer", ID: id}
	}
	delete(r.data.offers, id)
	delete(r.data.revisions, id)
	return nil
}

type revisions struct {
	data *state
}

func (r revisions) Append(ctx context.Context, revision domain.OfferRevision) (domain.OfferRevision, error) {
	ledger := r.data.revisions[revision.OfferID]
	if revision.RevisionNumber != len(ledger)+1 {
		return domain.OfferRevision{}, fmt.Errorf("revision number %d conflicts with ledger length %d", revision.RevisionNumber, len(ledger))
	}
	r.data.revisions[revision.OfferID] = append(ledger, revision)
	return revision, nil
}

func (r revisions) Current(ctx context.Context, offerID uuid.UUID) (domain.OfferRevision, error) {
	current, err := domain.CurrentRevision(r.data.revisions[offerID])
	if err != nil {
		return domain.OfferRevision{}, &domain.NotFoundError{Resource: "revision for offer", ID: offerID}
	}
	return current, nil
}

func (r revisions) ListByOffer(ctx context.Context, offerID uuid.UUID) ([]domain.OfferRevision, error) {
	return append([]domain.OfferRevision(nil), r.data.revisions[offerID]...), nil
}

type transactions struct {
	data *state
}

func (r transactions) GetByID(ctx context.Context, id uuid.UUID) (domain.Transaction, error) {
	txn, ok := r.data.transactions[id]
	if !ok {
		return domain.Transaction{}, &domain.NotFoundError{Resource: "transaction", ID: id}
	}
	return txn, nil
}

func (r transactions) GetForUpdate(ctx context.Context, id uuid.UUID) (domain.Transaction, error) {
	return r.GetByID(ctx, id)
}

func (r transactions) SetSalePrice(ctx context.Context, id uuid.UUID, price decimal.Decimal) (domain.Transaction, error) {
	txn, ok := r.data.transactions[id]
	if !ok {
		return domain.Transaction{}, &domain.NotFoundError{Resource: "transaction", ID: id}
	}
	txn.SalePrice = &price
	txn.UpdatedAt = time.Now()
	r.data.transactions[id] = txn
	return txn, nil
}

type steps struct {
	data *state
}

func (r steps) CompleteStep(ctx context.Context, transactionID uuid.UUID, stepOrder int) error {
	list := r.data.steps[transactionID]
	for i, step := range list {
		if step.StepOrder == stepOrder && step.Status == domain.StepStatusActive {
			now := time.Now()
			list[i].Status = domain.StepStatusCompleted
			list[i].CompletedAt = &now
			return nil
		}
	}
	return fmt.Errorf("no active step %d on transaction %s", stepOrder, transactionID)
}

func (r steps) ActivateNextStep(ctx context.Context, transactionID uuid.UUID, conditionPackIDs []uuid.UUID) (int, error) {
	list := r.data.steps[transactionID]
	sort.Slice(list, func(i, j int) bool { return list[i].StepOrder < list[j].StepOrder })
	for i, step := range list {
		if step.Status == domain.StepStatusPending {
			list[i].Status = domain.StepStatusActive
			list[i].ConditionPackID = append([]uuid.UUID(nil), conditionPackIDs...)

			txn, ok := r.data.transactions[transactionID]
			if !ok {
				return 0, &domain.NotFoundError{Resource: "transaction", ID: transactionID}
			}
			txn.CurrentStepOrder = step.StepOrder
			txn.UpdatedAt = time.Now()
			r.data.transactions[transactionID] = txn

			return step.StepOrder, nil
		}
	}
	return 0, fmt.Errorf("no pending step to activate on transaction %s", transactionID)
}

type parties struct {
	data *state
}

func (r parties) GetByID(ctx context.Context, id uuid.UUID) (domain.Party, error) {
	party, ok := r.data.parties[id]
	if !ok {
		return domain.Party{}, &domain.NotFoundError{Resource: "party", ID: id}
	}
	return party, nil
}

func (r parties) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Party, error) {
	result := []domain.Party{}
	for _, id := range ids {
		if party, ok := r.data.parties[id]; ok {
			result = append(result, party)
		}
	}
	return result, nil
}
