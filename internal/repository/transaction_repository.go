package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/mhollis/dealflow/internal/db"
	"github.com/mhollis/dealflow/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const transactionColumns = "id, status, sale_price, current_step_order, client_role, created_at, updated_at"

// transactionRepository implements TransactionRepository over pgx
type transactionRepository struct {
	q db.Querier
}

// NewTransactionRepository wires a transaction repository against a pool
// or an open transaction.
func NewTransactionRepository(q db.Querier) TransactionRepository {
	return &transactionRepository{q: q}
}

// GetByID retrieves a transaction by ID
func (r *transactionRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Transaction, error) {
	return r.get(ctx, id, "")
}

// GetForUpdate retrieves a transaction and locks its row. Competing
// accepts on offers of the same transaction serialize here.
func (r *transactionRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (domain.Transaction, error) {
	return r.get(ctx, id, " FOR UPDATE")
}

func (r *transactionRepository) get(ctx context.Context, id uuid.UUID, suffix string) (domain.Transaction, error) {
	row := r.q.QueryRow(
		ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1`+suffix,
		id,
	)

	txn, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Transaction{}, &domain.NotFoundError{Resource: "transaction", ID: id}
		}
		return domain.Transaction{}, fmt.Errorf("failed to get transaction: %w", err)
	}
	return txn, nil
}

// SetSalePrice records the accepted price on the aggregate.
func (r *transactionRepository) SetSalePrice(ctx context.Context, id uuid.UUID, price decimal.Decimal) (domain.Transaction, error) {
	row := r.q.QueryRow(
		ctx,
		`UPDATE transactions
		 SET sale_price = $2, updated_at = now()
		 WHERE id = $1
		 RETURNING `+transactionColumns,
		id,
		price,
	)

	txn, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Transaction{}, &domain.NotFoundError{Resource: "transaction", ID: id}
		}
		return domain.Transaction{}, fmt.Errorf("failed to set sale price: %w", err)
	}
	return txn, nil
}

func scanTransaction(row pgx.Row) (domain.Transaction, error) {
	var (
		txn        domain.Transaction
		status     string
		clientRole *string
	)
	if err := row.Scan(
		&txn.ID,
		&status,
		&txn.SalePrice,
		&txn.CurrentStepOrder,
		&clientRole,
		&txn.CreatedAt,
		&txn.UpdatedAt,
	); err != nil {
		return domain.Transaction{}, err
	}

	txn.Status = domain.TransactionStatus(status)
	if clientRole != nil {
		role := domain.ClientRole(*clientRole)
		txn.ClientRole = &role
	}

	return txn, nil
}
