package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/mhollis/dealflow/internal/db"
	"github.com/mhollis/dealflow/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const revisionColumns = `id, offer_id, revision_number, price, deposit, financing_amount,
	closing_date, expiry_at, direction, from_party_id, to_party_id, notes,
	inspection_required, inspection_delay, condition_ids, created_at`

// revisionRepository implements RevisionRepository over pgx. Rows are
// insert-only; there is no update or single-row delete path.
type revisionRepository struct {
	q db.Querier
}

// NewRevisionRepository wires a revision ledger against a pool or an open
// transaction.
func NewRevisionRepository(q db.Querier) RevisionRepository {
	return &revisionRepository{q: q}
}

// Append persists a revision. The unique (offer_id, revision_number)
// constraint backs the no-gaps numbering invariant under concurrency.
func (r *revisionRepository) Append(ctx context.Context, revision domain.OfferRevision) (domain.OfferRevision, error) {
	row := r.q.QueryRow(
		ctx,
		`INSERT INTO offer_revisions (
		     id, offer_id, revision_number, price, deposit, financing_amount,
		     closing_date, expiry_at, direction, from_party_id, to_party_id, notes,
		     inspection_required, inspection_delay, condition_ids, created_at
		 )
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		 RETURNING `+revisionColumns,
		revision.ID,
		revision.OfferID,
		revision.RevisionNumber,
		revision.Price,
		revision.Deposit,
		revision.FinancingAmount,
		revision.ClosingDate,
		revision.ExpiryAt,
		string(revision.Direction),
		revision.FromPartyID,
		revision.ToPartyID,
		revision.Notes,
		revision.InspectionRequired,
		revision.InspectionDelay,
		revision.ConditionIDs,
		revision.CreatedAt,
	)

	appended, err := scanRevision(row)
	if err != nil {
		return domain.OfferRevision{}, fmt.Errorf("failed to append revision: %w", err)
	}
	return appended, nil
}

// Current returns the highest numbered revision of an offer.
func (r *revisionRepository) Current(ctx context.Context, offerID uuid.UUID) (domain.OfferRevision, error) {
	row := r.q.QueryRow(
		ctx,
		`SELECT `+revisionColumns+`
		 FROM offer_revisions
		 WHERE offer_id = $1
		 ORDER BY revision_number DESC
		 LIMIT 1`,
		offerID,
	)

	revision, err := scanRevision(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.OfferRevision{}, &domain.NotFoundError{Resource: "revision for offer", ID: offerID}
		}
		return domain.OfferRevision{}, fmt.Errorf("failed to get current revision: %w", err)
	}
	return revision, nil
}

// ListByOffer returns the full ledger in revision order.
func (r *revisionRepository) ListByOffer(ctx context.Context, offerID uuid.UUID) ([]domain.OfferRevision, error) {
	rows, err := r.q.Query(
		ctx,
		`SELECT `+revisionColumns+`
		 FROM offer_revisions
		 WHERE offer_id = $1
		 ORDER BY revision_number`,
		offerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list revisions: %w", err)
	}
	defer rows.Close()

	revisions := []domain.OfferRevision{}
	for rows.Next() {
		revision, scanErr := scanRevision(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan revision: %w", scanErr)
		}
		revisions = append(revisions, revision)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate revisions: %w", rowsErr)
	}

	return revisions, nil
}

func scanRevision(row pgx.Row) (domain.OfferRevision, error) {
	var (
		revision  domain.OfferRevision
		direction string
	)
	if err := row.Scan(
		&revision.ID,
		&revision.OfferID,
		&revision.RevisionNumber,
		&revision.Price,
		&revision.Deposit,
		&revision.FinancingAmount,
		&revision.ClosingDate,
		&revision.ExpiryAt,
		&direction,
		&revision.FromPartyID,
		&revision.ToPartyID,
		&revision.Notes,
		&revision.InspectionRequired,
		&revision.InspectionDelay,
		&revision.ConditionIDs,
		&revision.CreatedAt,
	); err != nil {
		return domain.OfferRevision{}, err
	}

	parsed, err := domain.ParseDirection(direction)
	if err != nil {
		return domain.OfferRevision{}, err
	}
	revision.Direction = parsed

	return revision, nil
}
