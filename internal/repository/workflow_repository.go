package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/mhollis/dealflow/internal/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// workflowStepRepository implements the workflow gateway over the
// transaction_steps table maintained by the workflow module.
type workflowStepRepository struct {
	q db.Querier
}

// NewWorkflowStepRepository wires the workflow gateway against a pool or
// an open transaction.
func NewWorkflowStepRepository(q db.Querier) WorkflowStepRepository {
	return &workflowStepRepository{q: q}
}

// CompleteStep marks the active step at stepOrder completed. A missing or
// already-completed step is an error so the cascade rolls back rather
// than advancing a workflow that is out of sync.
func (r *workflowStepRepository) CompleteStep(ctx context.Context, transactionID uuid.UUID, stepOrder int) error {
	tag, err := r.q.Exec(
		ctx,
		`UPDATE transaction_steps
		 SET status = 'completed', completed_at = now()
		 WHERE transaction_id = $1 AND step_order = $2 AND status = 'active'`,
		transactionID,
		stepOrder,
	)
	if err != nil {
		return fmt.Errorf("failed to complete step %d: %w", stepOrder, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no active step %d on transaction %s", stepOrder, transactionID)
	}
	return nil
}

// ActivateNextStep activates the lowest pending step, attaches the
// condition packs, moves the transaction's current step pointer, and
// returns the new step order.
func (r *workflowStepRepository) ActivateNextStep(ctx context.Context, transactionID uuid.UUID, conditionPackIDs []uuid.UUID) (int, error) {
	var stepOrder int
	err := r.q.QueryRow(
		ctx,
		`UPDATE transaction_steps
		 SET status = 'active', condition_pack_ids = $2
		 WHERE id = (
		     SELECT id FROM transaction_steps
		     WHERE transaction_id = $1 AND status = 'pending'
		     ORDER BY step_order
		     LIMIT 1
		 )
		 RETURNING step_order`,
		transactionID,
		conditionPackIDs,
	).Scan(&stepOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("no pending step to activate on transaction %s", transactionID)
		}
		return 0, fmt.Errorf("failed to activate next step: %w", err)
	}

	if _, err := r.q.Exec(
		ctx,
		`UPDATE transactions SET current_step_order = $2, updated_at = now() WHERE id = $1`,
		transactionID,
		stepOrder,
	); err != nil {
		return 0, fmt.Errorf("failed to advance current step: %w", err)
	}

	return stepOrder, nil
}
