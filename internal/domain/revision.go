package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Direction records which side proposed the terms of a revision.
type Direction string

const (
	DirectionBuyerToSeller Direction = "buyer_to_seller"
	DirectionSellerToBuyer Direction = "seller_to_buyer"
)

// ParseDirection validates a persisted direction value.
func ParseDirection(raw string) (Direction, error) {
	direction := Direction(raw)
	switch direction {
	case DirectionBuyerToSeller, DirectionSellerToBuyer:
		return direction, nil
	}
	return "", fmt.Errorf("unknown direction %q", raw)
}

// Opposite returns the direction of a counter to this revision.
func (d Direction) Opposite() Direction {
	switch d {
	case DirectionBuyerToSeller:
		return DirectionSellerToBuyer
	case DirectionSellerToBuyer:
		return DirectionBuyerToSeller
	}
	return d
}

// Terms carries the negotiated fields for one revision. Price is the only
// required field; Direction may be left empty to have it computed from the
// prior revision.
type Terms struct {
	Price              decimal.Decimal  `json:"price"`
	Deposit            *decimal.Decimal `json:"deposit,omitempty"`
	FinancingAmount    *decimal.Decimal `json:"financing_amount,omitempty"`
	ClosingDate        *time.Time       `json:"closing_date,omitempty"`
	ExpiryAt           *time.Time       `json:"expiry_at,omitempty"`
	Direction          Direction        `json:"direction,omitempty"`
	Notes              string           `json:"notes,omitempty"`
	InspectionRequired bool             `json:"inspection_required,omitempty"`
	InspectionDelay    *int             `json:"inspection_delay,omitempty"`
	ConditionIDs       []uuid.UUID      `json:"condition_ids,omitempty"`
}

// Validate checks the caller-supplied fields before a revision is built.
func (t Terms) Validate() error {
	if t.Price.LessThanOrEqual(decimal.Zero) {
		return &ValidationError{Field: "price", Reason: "must be greater than zero"}
	}
	if t.Direction != "" {
		if _, err := ParseDirection(string(t.Direction)); err != nil {
			return &ValidationError{Field: "direction", Reason: err.Error()}
		}
	}
	if t.InspectionDelay != nil && *t.InspectionDelay < 0 {
		return &ValidationError{Field: "inspection_delay", Reason: "must not be negative"}
	}
	return nil
}

// OfferRevision is an immutable snapshot of negotiated terms. Revisions
// are never edited or deleted once appended; the full sequence is the
// negotiation audit trail.
type OfferRevision struct {
	ID                 uuid.UUID        `json:"id"`
	OfferID            uuid.UUID        `json:"offer_id"`
	RevisionNumber     int              `json:"revision_number"`
	Price              decimal.Decimal  `json:"price"`
	Deposit            *decimal.Decimal `json:"deposit,omitempty"`
	FinancingAmount    *decimal.Decimal `json:"financing_amount,omitempty"`
	ClosingDate        *time.Time       `json:"closing_date,omitempty"`
	ExpiryAt           *time.Time       `json:"expiry_at,omitempty"`
	Direction          Direction        `json:"direction"`
	FromPartyID        *uuid.UUID       `json:"from_party_id,omitempty"`
	ToPartyID          *uuid.UUID       `json:"to_party_id,omitempty"`
	Notes              string           `json:"notes,omitempty"`
	InspectionRequired bool             `json:"inspection_required"`
	InspectionDelay    *int             `json:"inspection_delay,omitempty"`
	ConditionIDs       []uuid.UUID      `json:"condition_ids,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
}

// NextRevision builds the revision that terms append to an offer's
// ledger. prior is nil only for the first revision.
//
// When terms carry no explicit direction, the new revision's direction is
// the opposite of the prior revision's and the from/to parties swap:
// whoever did not send the last move is now sending. A first revision
// without an explicit direction defaults to buyer_to_seller, since offers
// originate from the buyer side.
func NextRevision(offer Offer, prior *OfferRevision, terms Terms) (OfferRevision, error) {
	if err := terms.Validate(); err != nil {
		return OfferRevision{}, err
	}

	rev := OfferRevision{
		ID:                 uuid.New(),
		OfferID:            offer.ID,
		RevisionNumber:     1,
		Price:              terms.Price,
		Deposit:            terms.Deposit,
		FinancingAmount:    terms.FinancingAmount,
		ClosingDate:        terms.ClosingDate,
		ExpiryAt:           terms.ExpiryAt,
		Notes:              terms.Notes,
		InspectionRequired: terms.InspectionRequired,
		InspectionDelay:    terms.InspectionDelay,
		ConditionIDs:       terms.ConditionIDs,
		CreatedAt:          time.Now(),
	}

	if prior != nil {
		rev.RevisionNumber = prior.RevisionNumber + 1
	}

	switch {
	case terms.Direction != "":
		rev.Direction = terms.Direction
		rev.FromPartyID, rev.ToPartyID = offer.partiesFor(terms.Direction)
	case prior != nil:
		rev.Direction = prior.Direction.Opposite()
		rev.FromPartyID, rev.ToPartyID = prior.ToPartyID, prior.FromPartyID
	default:
		rev.Direction = DirectionBuyerToSeller
		rev.FromPartyID, rev.ToPartyID = offer.partiesFor(DirectionBuyerToSeller)
	}

	return rev, nil
}

// partiesFor maps a direction onto the offer's buyer and seller parties.
func (o Offer) partiesFor(direction Direction) (from, to *uuid.UUID) {
	switch direction {
	case DirectionBuyerToSeller:
		return o.BuyerPartyID, o.SellerPartyID
	case DirectionSellerToBuyer:
		return o.SellerPartyID, o.BuyerPartyID
	}
	return nil, nil
}

// CurrentRevision returns the highest numbered revision of a ledger that
// is already ordered by revision number.
func CurrentRevision(ledger []OfferRevision) (OfferRevision, error) {
	if len(ledger) == 0 {
		return OfferRevision{}, fmt.Errorf("offer has no revisions")
	}
	return ledger[len(ledger)-1], nil
}
