package repository

import (
	"context"

	"github.com/mhollis/dealflow/internal/db"

	"github.com/jackc/pgx/v5"
)

// unitOfWork binds the repositories to one Querier, either the ambient
// pool or a single pgx transaction.
type unitOfWork struct {
	offers       OfferRepository
	revisions    RevisionRepository
	transactions TransactionRepository
	steps        WorkflowStepRepository
}

func newUnitOfWork(q db.Querier) unitOfWork {
	return unitOfWork{
		offers:       NewOfferRepository(q),
		revisions:    NewRevisionRepository(q),
		transactions: NewTransactionRepository(q),
		steps:        NewWorkflowStepRepository(q),
	}
}

func (u unitOfWork) Offers() OfferRepository             { return u.offers }
func (u unitOfWork) Revisions() RevisionRepository       { return u.revisions }
func (u unitOfWork) Transactions() TransactionRepository { return u.transactions }
func (u unitOfWork) Steps() WorkflowStepRepository       { return u.steps }

// PgStore is the Postgres-backed Store.
type PgStore struct {
	unitOfWork
	conn *db.Connection
}

// NewPgStore wires the store over a live connection pool.
func NewPgStore(conn *db.Connection) *PgStore {
	return &PgStore{
		unitOfWork: newUnitOfWork(conn.Pool),
		conn:       conn,
	}
}

// WithinTx runs fn against transaction-scoped repositories. The commit or
// rollback decision follows db.Connection.WithTx.
func (s *PgStore) WithinTx(ctx context.Context, fn func(UnitOfWork) error) error {
	return s.conn.WithTx(ctx, func(tx pgx.Tx) error {
		return fn(newUnitOfWork(tx))
	})
}
