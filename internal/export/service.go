// Package export renders offer comparison workbooks for sharing the
// state of a negotiation with clients.
package export

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/mhollis/dealflow/internal/domain"
	"github.com/mhollis/dealflow/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Offers"

var comparisonHeaders = []string{
	"Offer ID", "Status", "Revisions", "Direction", "Price", "Deposit",
	"Financing", "Closing Date", "Expires", "Buyer", "Seller", "Inspection",
}

// Service builds comparison workbooks from the negotiation store.
type Service struct {
	store   repository.Store
	parties repository.PartyRepository
}

// NewService creates an export service.
func NewService(store repository.Store, parties repository.PartyRepository) *Service {
	return &Service{store: store, parties: parties}
}

// WriteComparison streams an xlsx comparing every offer on a transaction
// by its current terms, one row per offer.
func (s *Service) WriteComparison(ctx context.Context, transactionID uuid.UUID, w io.Writer) error {
	if _, err := s.store.Transactions().GetByID(ctx, transactionID); err != nil {
		return err
	}

	offers, err := s.store.Offers().ListByTransaction(ctx, transactionID)
	if err != nil {
		return fmt.Errorf("failed to load offers: %w", err)
	}

	names, err := s.partyNames(ctx, offers)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	for col, header := range comparisonHeaders {
		cell, cellErr := excelize.CoordinatesToCellName(col+1, 1)
		if cellErr != nil {
			return fmt.Errorf("failed to address header cell: %w", cellErr)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	for i, offer := range offers {
		current, err := s.store.Revisions().Current(ctx, offer.ID)
		if err != nil {
			return fmt.Errorf("failed to read terms of offer %s: %w", offer.ID, err)
		}
		ledger, err := s.store.Revisions().ListByOffer(ctx, offer.ID)
		if err != nil {
			return fmt.Errorf("failed to read ledger of offer %s: %w", offer.ID, err)
		}

		row := comparisonRow(offer, current, len(ledger), names)
		for col, value := range row {
			cell, cellErr := excelize.CoordinatesToCellName(col+1, i+2)
			if cellErr != nil {
				return fmt.Errorf("failed to address cell: %w", cellErr)
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return fmt.Errorf("failed to write row: %w", err)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func comparisonRow(offer domain.Offer, current domain.OfferRevision, revisionCount int, names map[uuid.UUID]string) []any {
	inspection := "no"
	if current.InspectionRequired {
		inspection = "yes"
		if current.InspectionDelay != nil {
			inspection = fmt.Sprintf("yes (%d days)", *current.InspectionDelay)
		}
	}

	return []any{
		offer.ID.String(),
		string(offer.Status),
		revisionCount,
		string(current.Direction),
		current.Price.StringFixed(2),
		decimalOrEmpty(current.Deposit),
		decimalOrEmpty(current.FinancingAmount),
		timeOrEmpty(current.ClosingDate),
		timeOrEmpty(current.ExpiryAt),
		nameOrEmpty(offer.BuyerPartyID, names),
		nameOrEmpty(offer.SellerPartyID, names),
		inspection,
	}
}

// partyNames batches the buyer/seller lookups across all offers.
func (s *Service) partyNames(ctx context.Context, offers []domain.Offer) (map[uuid.UUID]string, error) {
	seen := map[uuid.UUID]bool{}
	ids := []uuid.UUID{}
	for _, offer := range offers {
		for _, id := range []*uuid.UUID{offer.BuyerPartyID, offer.SellerPartyID} {
			if id != nil && !seen[*id] {
				seen[*id] = true
				ids = append(ids, *id)
			}
		}
	}

	parties, err := s.parties.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve parties: %w", err)
	}

	names := map[uuid.UUID]string{}
	for _, party := range parties {
		names[party.ID] = party.FullName
	}
	return names, nil
}

func decimalOrEmpty(value *decimal.Decimal) string {
	if value == nil {
		return ""
	}
	return value.StringFixed(2)
}

func timeOrEmpty(value *time.Time) string {
	if value == nil {
		return ""
	}
	return value.Format("2006-01-02")
}

func nameOrEmpty(id *uuid.UUID, names map[uuid.UUID]string) string {
	if id == nil {
		return ""
	}
	return names[*id]
}
