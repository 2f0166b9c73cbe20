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

// partyRepository reads the party directory. Nothing in the negotiation
// core writes parties.
type partyRepository struct {
	q db.Querier
}

// NewPartyRepository wires a read-only party directory.
func NewPartyRepository(q db.Querier) PartyRepository {
	return &partyRepository{q: q}
}

func (r *partyRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Party, error) {
	row := r.q.QueryRow(
		ctx,
		`SELECT id, full_name, email, role FROM parties WHERE id = $1`,
		id,
	)

	var (
		party domain.Party
		role  string
	)
	if err := row.Scan(&party.ID, &party.FullName, &party.Email, &role); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Party{}, &domain.NotFoundError{Resource: "party", ID: id}
		}
		return domain.Party{}, fmt.Errorf("failed to get party: %w", err)
	}
	party.Role = domain.PartyRole(role)

	return party, nil
}

// GetByIDs fetches parties in batch for the party loader. Missing ids are
// simply absent from the result.
func (r *partyRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Party, error) {
	if len(ids) == 0 {
		return []domain.Party{}, nil
	}

	rows, err := r.q.Query(
		ctx,
		`SELECT id, full_name, email, role FROM parties WHERE id = ANY($1)`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get parties by IDs: %w", err)
	}
	defer rows.Close()

	parties := []domain.Party{}
	for rows.Next() {
		var (
			party domain.Party
			role  string
		)
		if scanErr := rows.Scan(&party.ID, &party.FullName, &party.Email, &role); scanErr != nil {
			return nil, fmt.Errorf("failed to scan party: %w", scanErr)
		}
		party.Role = domain.PartyRole(role)
		parties = append(parties, party)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate parties: %w", rowsErr)
	}

	return parties, nil
}
