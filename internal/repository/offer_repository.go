package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mhollis/dealflow/internal/db"
	"github.com/mhollis/dealflow/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const offerColumns = "id, transaction_id, status, buyer_party_id, seller_party_id, rejection_reason, created_at, accepted_at"

// offerRepository implements OfferRepository over pgx
type offerRepository struct {
	q db.Querier
}

// NewOfferRepository wires an offer repository against a pool or an open
// transaction.
func NewOfferRepository(q db.Querier) OfferRepository {
	return &offerRepository{q: q}
}

// Create persists a new offer in the received state
func (r *offerRepository) Create(ctx context.Context, offer domain.Offer) (domain.Offer, error) {
	row := r.q.QueryRow(
		ctx,
		`INSERT INTO offers (id, transaction_id, status, buyer_party_id, seller_party_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+offerColumns,
		offer.ID,
		offer.TransactionID,
		string(offer.Status),
		offer.BuyerPartyID,
		offer.SellerPartyID,
		offer.CreatedAt,
	)

	created, err := scanOffer(row)
	if err != nil {
		return domain.Offer{}, fmt.Errorf("failed to create offer: %w", err)
	}
	return created, nil
}

// GetByID retrieves an offer by ID
func (r *offerRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Offer, error) {
	return r.get(ctx, id, "")
}

// GetForUpdate retrieves an offer and locks its row until the enclosing
// transaction ends.
func (r *offerRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (domain.Offer, error) {
	return r.get(ctx, id, " FOR UPDATE")
}

func (r *offerRepository) get(ctx context.Context, id uuid.UUID, suffix string) (domain.Offer, error) {
	row := r.q.QueryRow(
		ctx,
		`SELECT `+offerColumns+` FROM offers WHERE id = $1`+suffix,
		id,
	)

	offer, err := scanOffer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Offer{}, &domain.NotFoundError{Resource: "offer", ID: id}
		}
		return domain.Offer{}, fmt.Errorf("failed to get offer: %w", err)
	}
	return offer, nil
}

// ListByTransaction retrieves all offers of a transaction, oldest first
func (r *offerRepository) ListByTransaction(ctx context.Context, transactionID uuid.UUID) ([]domain.Offer, error) {
	return r.list(ctx, transactionID, false)
}

// ListActiveByTransaction retrieves offers still under negotiation
func (r *offerRepository) ListActiveByTransaction(ctx context.Context, transactionID uuid.UUID) ([]domain.Offer, error) {
	return r.list(ctx, transactionID, true)
}

func (r *offerRepository) list(ctx context.Context, transactionID uuid.UUID, activeOnly bool) ([]domain.Offer, error) {
	query := `SELECT ` + offerColumns + ` FROM offers WHERE transaction_id = $1`
	if activeOnly {
		query += ` AND status IN ('received', 'countered')`
	}
	query += ` ORDER BY created_at, id`

	rows, err := r.q.Query(ctx, query, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list offers: %w", err)
	}
	defer rows.Close()

	offers := []domain.Offer{}
	for rows.Next() {
		offer, scanErr := scanOffer(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan offer: %w", scanErr)
		}
		offers = append(offers, offer)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate offers: %w", rowsErr)
	}

	return offers, nil
}

// ListExpiredCandidates returns active offers whose current revision
// carries an expiry in the past.
func (r *offerRepository) ListExpiredCandidates(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	rows, err := r.q.Query(
		ctx,
		`SELECT o.id
		 FROM offers o
		 JOIN LATERAL (
		     SELECT expiry_at
		     FROM offer_revisions r
		     WHERE r.offer_id = o.id
		     ORDER BY r.revision_number DESC
		     LIMIT 1
		 ) cur ON TRUE
		 WHERE o.status IN ('received', 'countered')
		   AND cur.expiry_at IS NOT NULL
		   AND cur.expiry_at < $1
		 ORDER BY o.created_at`,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired candidates: %w", err)
	}
	defer rows.Close()

	ids := []uuid.UUID{}
	for rows.Next() {
		var id uuid.UUID
		if scanErr := rows.Scan(&id); scanErr != nil {
			return nil, fmt.Errorf("failed to scan expired candidate: %w", scanErr)
		}
		ids = append(ids, id)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate expired candidates: %w", rowsErr)
	}

	return ids, nil
}

// TransitionStatus moves an active offer to the target status. The status
// precondition sits in the UPDATE itself, so a transition racing with a
// concurrent accept or sweep loses cleanly instead of overwriting it.
func (r *offerRepository) TransitionStatus(ctx context.Context, id uuid.UUID, to domain.OfferStatus, acceptedAt *time.Time, reason *string) (domain.Offer, error) {
	row := r.q.QueryRow(
		ctx,
		`UPDATE offers
		 SET status = $2,
		     accepted_at = COALESCE($3, accepted_at),
		     rejection_reason = COALESCE($4, rejection_reason)
		 WHERE id = $1 AND status IN ('received', 'countered')
		 RETURNING `+offerColumns,
		id,
		string(to),
		acceptedAt,
		reason,
	)

	offer, err := scanOffer(row)
	if err == nil {
		return offer, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Offer{}, fmt.Errorf("failed to transition offer: %w", err)
	}

	// No row matched: either the offer is gone or it is no longer
	// active. Re-read to tell the two apart.
	current, getErr := r.GetByID(ctx, id)
	if getErr != nil {
		return domain.Offer{}, getErr
	}
	return domain.Offer{}, &domain.InvalidTransitionError{
		OfferID:   id,
		Status:    current.Status,
		Operation: domain.TransitionOperation(to),
	}
}

// Delete removes an offer; its revisions cascade at the schema level.
// The accepted-offer guard lives in the service.
func (r *offerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM offers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete offer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &domain.NotFoundError{Resource: "offer", ID: id}
	}
	return nil
}

func scanOffer(row pgx.Row) (domain.Offer, error) {
	var (
		offer  domain.Offer
		status string
	)
	if err := row.Scan(
		&offer.ID,
		&offer.TransactionID,
		&status,
		&offer.BuyerPartyID,
		&offer.SellerPartyID,
		&offer.RejectionReason,
		&offer.CreatedAt,
		&offer.AcceptedAt,
	); err != nil {
		return domain.Offer{}, err
	}

	parsed, err := domain.ParseOfferStatus(status)
	if err != nil {
		return domain.Offer{}, err
	}
	offer.Status = parsed

	return offer, nil
}
