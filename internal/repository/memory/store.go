// Package memory provides an in-memory Store with snapshot rollback. It
// backs service tests and local development without a Postgres instance;
// a failed unit of work restores the pre-transaction state, mirroring the
// rollback guarantee of the pgx store.
package memory

import (
	"context"
	"sync"

	"github.com/mhollis/dealflow/internal/domain"
	"github.com/mhollis/dealflow/internal/repository"

	"github.com/google/uuid"
)

type state struct {
	transactions map[uuid.UUID]domain.Transaction
	offers       map[uuid.UUID]domain.Offer
	revisions    map[uuid.UUID][]domain.OfferRevision
	steps        map[uuid.UUID][]domain.TransactionStep
	parties      map[uuid.UUID]domain.Party
}

func newState() *state {
	return &state{
		transactions: map[uuid.UUID]domain.Transaction{},
		offers:       map[uuid.UUID]domain.Offer{},
		revisions:    map[uuid.UUID][]domain.OfferRevision{},
		steps:        map[uuid.UUID][]domain.TransactionStep{},
		parties:      map[uuid.UUID]domain.Party{},
	}
}

func (s *state) clone() *state {
	next := newState()
	for id, txn := range s.transactions {
		next.transactions[id] = txn
	}
	for id, offer := range s.offers {
		next.offers[id] = offer
	}
	for id, ledger := range s.revisions {
		next.revisions[id] = append([]domain.OfferRevision(nil), ledger...)
	}
	for id, steps := range s.steps {
		next.steps[id] = append([]domain.TransactionStep(nil), steps...)
	}
	for id, party := range s.parties {
		next.parties[id] = party
	}
	return next
}

// Store keeps all negotiation state in process. A single mutex serializes
// units of work, which also serializes competing accepts the way the
// transaction row lock does in Postgres.
type Store struct {
	mu   sync.Mutex
	data *state
}

// NewStore returns an empty in-memory store.
func NewStore() *Store {
	return &Store{data: newState()}
}

// WithinTx runs fn against the live state after taking a snapshot; any
// error restores the snapshot so no partial writes survive.
func (s *Store) WithinTx(ctx context.Context, fn func(repository.UnitOfWork) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(unitOfWork{data: s.data}); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

func (s *Store) Offers() repository.OfferRepository {
	return lockedOffers{store: s}
}

func (s *Store) Revisions() repository.RevisionRepository {
	return lockedRevisions{store: s}
}

func (s *Store) Transactions() repository.TransactionRepository {
	return lockedTransactions{store: s}
}

func (s *Store) Steps() repository.WorkflowStepRepository {
	return lockedSteps{store: s}
}

// Parties exposes the read-only party directory.
func (s *Store) Parties() repository.PartyRepository {
	return lockedParties{store: s}
}

// SeedTransaction installs a transaction aggregate, for tests and local
// development.
func (s *Store) SeedTransaction(txn domain.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.transactions[txn.ID] = txn
}

// SeedSteps installs the workflow steps of a transaction.
func (s *Store) SeedSteps(transactionID uuid.UUID, steps []domain.TransactionStep) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.steps[transactionID] = append([]domain.TransactionStep(nil), steps...)
}

// SeedParty installs a party directory entry.
func (s *Store) SeedParty(party domain.Party) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.parties[party.ID] = party
}
