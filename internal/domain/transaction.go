package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionStatus captures the lifecycle state of a transaction.
type TransactionStatus string

const (
	TransactionStatusActive    TransactionStatus = "active"
	TransactionStatusClosed    TransactionStatus = "closed"
	TransactionStatusCancelled TransactionStatus = "cancelled"
)

// ClientRole is the perspective of the party viewing the transaction.
type ClientRole string

const (
	ClientRoleBuyer  ClientRole = "buyer"
	ClientRoleSeller ClientRole = "seller"
)

// Transaction is the aggregate root owning offers. SalePrice and
// CurrentStepOrder are written by the acceptance cascade; everything else
// is maintained by unrelated CRUD paths.
type Transaction struct {
	ID               uuid.UUID         `json:"id"`
	Status           TransactionStatus `json:"status"`
	SalePrice        *decimal.Decimal  `json:"sale_price,omitempty"`
	CurrentStepOrder int               `json:"current_step_order"`
	ClientRole       *ClientRole       `json:"client_role,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// TransactionSnapshot is the read-only view the acceptance cascade hands
// back to its caller for notifications.
type TransactionSnapshot struct {
	ID               uuid.UUID         `json:"id"`
	Status           TransactionStatus `json:"status"`
	SalePrice        *decimal.Decimal  `json:"sale_price,omitempty"`
	CurrentStepOrder int               `json:"current_step_order"`
}

// Snapshot projects the fields the cascade reports back.
func (t Transaction) Snapshot() TransactionSnapshot {
	return TransactionSnapshot{
		ID:               t.ID,
		Status:           t.Status,
		SalePrice:        t.SalePrice,
		CurrentStepOrder: t.CurrentStepOrder,
	}
}

// TransactionStep mirrors one ordered workflow milestone on a
// transaction. The negotiation core only completes the current step and
// activates the next one; step content is owned by the workflow module.
type TransactionStep struct {
	ID              uuid.UUID   `json:"id"`
	TransactionID   uuid.UUID   `json:"transaction_id"`
	StepOrder       int         `json:"step_order"`
	Name            string      `json:"name"`
	Status          StepStatus  `json:"status"`
	ConditionPackID []uuid.UUID `json:"condition_pack_ids,omitempty"`
	CompletedAt     *time.Time  `json:"completed_at,omitempty"`
}

// StepStatus is the lifecycle of a workflow step.
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusActive    StepStatus = "active"
	StepStatusCompleted StepStatus = "completed"
)
