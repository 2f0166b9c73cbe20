package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OfferStatus captures the lifecycle state of an offer.
type OfferStatus string

const (
	OfferStatusReceived  OfferStatus = "received"
	OfferStatusCountered OfferStatus = "countered"
	OfferStatusAccepted  OfferStatus = "accepted"
	OfferStatusRejected  OfferStatus = "rejected"
	OfferStatusExpired   OfferStatus = "expired"
	OfferStatusWithdrawn OfferStatus = "withdrawn"
)

// RejectionReasonSuperseded tags sibling offers rejected by the
// acceptance cascade, as opposed to a manual rejection.
const RejectionReasonSuperseded = "superseded-by-acceptance"

// ParseOfferStatus validates a persisted status value.
func ParseOfferStatus(raw string) (OfferStatus, error) {
	status := OfferStatus(raw)
	switch status {
	case OfferStatusReceived, OfferStatusCountered, OfferStatusAccepted,
		OfferStatusRejected, OfferStatusExpired, OfferStatusWithdrawn:
		return status, nil
	}
	return "", fmt.Errorf("unknown offer status %q", raw)
}

// Active reports whether negotiation is still in progress.
func (s OfferStatus) Active() bool {
	switch s {
	case OfferStatusReceived, OfferStatusCountered:
		return true
	case OfferStatusAccepted, OfferStatusRejected, OfferStatusExpired, OfferStatusWithdrawn:
		return false
	}
	return false
}

// Terminal reports whether the offer can no longer change state.
func (s OfferStatus) Terminal() bool {
	switch s {
	case OfferStatusAccepted, OfferStatusRejected, OfferStatusExpired, OfferStatusWithdrawn:
		return true
	case OfferStatusReceived, OfferStatusCountered:
		return false
	}
	return false
}

// Operation names for transition guards and error reporting.
const (
	OpAddRevision = "add revision"
	OpAccept      = "accept"
	OpReject      = "reject"
	OpWithdraw    = "withdraw"
	OpExpire      = "expire"
	OpDelete      = "delete"
)

// TransitionOperation names the operation implied by a target status,
// for error reporting on compare-and-swap failures.
func TransitionOperation(to OfferStatus) string {
	switch to {
	case OfferStatusReceived:
		return "create"
	case OfferStatusCountered:
		return OpAddRevision
	case OfferStatusAccepted:
		return OpAccept
	case OfferStatusRejected:
		return OpReject
	case OfferStatusWithdrawn:
		return OpWithdraw
	case OfferStatusExpired:
		return OpExpire
	}
	return string(to)
}

// Offer is one negotiating thread between a buyer side and a seller side
// on a transaction. Status and AcceptedAt are written only through
// transitions; the revision ledger holds the negotiated terms.
type Offer struct {
	ID              uuid.UUID   `json:"id"`
	TransactionID   uuid.UUID   `json:"transaction_id"`
	Status          OfferStatus `json:"status"`
	BuyerPartyID    *uuid.UUID  `json:"buyer_party_id,omitempty"`
	SellerPartyID   *uuid.UUID  `json:"seller_party_id,omitempty"`
	RejectionReason *string     `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	AcceptedAt      *time.Time  `json:"accepted_at,omitempty"`
}

// EnsureActive guards every negotiation transition. All entry points,
// request handlers and the expiry sweeper alike, go through this check so
// the transition rules exist exactly once.
func (o Offer) EnsureActive(operation string) error {
	if o.Status.Active() {
		return nil
	}
	return &InvalidTransitionError{OfferID: o.ID, Status: o.Status, Operation: operation}
}

// EnsureDeletable rejects deletion of an accepted offer. Any other
// status, terminal or not, may be deleted together with its ledger.
func (o Offer) EnsureDeletable() error {
	if o.Status == OfferStatusAccepted {
		return &InvalidTransitionError{OfferID: o.ID, Status: o.Status, Operation: OpDelete}
	}
	return nil
}

// NewOffer creates an offer in the received state. The first revision is
// appended by the caller in the same unit of work.
func NewOffer(transactionID uuid.UUID, buyerPartyID, sellerPartyID *uuid.UUID) Offer {
	return Offer{
		ID:            uuid.New(),
		TransactionID: transactionID,
		Status:        OfferStatusReceived,
		BuyerPartyID:  buyerPartyID,
		SellerPartyID: sellerPartyID,
		CreatedAt:     time.Now(),
	}
}
