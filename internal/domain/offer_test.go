package domain

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestOfferStatus_ActiveTerminalSplit(t *testing.T) {
	cases := []struct {
		status OfferStatus
		active bool
	}{
		{OfferStatusReceived, true},
		{OfferStatusCountered, true},
		{OfferStatusAccepted, false},
		{OfferStatusRejected, false},
		{OfferStatusExpired, false},
		{OfferStatusWithdrawn, false},
	}

	for _, tc := range cases {
		if got := tc.status.Active(); got != tc.active {
			t.Errorf("%s: Active() = %v, want %v", tc.status, got, tc.active)
		}
		if got := tc.status.Terminal(); got == tc.active {
			t.Errorf("%s: Terminal() = %v, want %v", tc.status, got, !tc.active)
		}
	}
}

func TestEnsureActive_TerminalStatusesFail(t *testing.T) {
	for _, status := range []OfferStatus{OfferStatusAccepted, OfferStatusRejected, OfferStatusExpired, OfferStatusWithdrawn} {
		offer := Offer{ID: uuid.New(), Status: status}
		err := offer.EnsureActive(OpAddRevision)
		if err == nil {
			t.Fatalf("%s: expected transition error", status)
		}

		var transitionErr *InvalidTransitionError
		if !errors.As(err, &transitionErr) {
			t.Fatalf("%s: expected InvalidTransitionError, got %T", status, err)
		}
		if transitionErr.Status != status || transitionErr.Operation != OpAddRevision {
			t.Errorf("%s: error carries %s/%s", status, transitionErr.Status, transitionErr.Operation)
		}
	}
}

func TestEnsureDeletable_OnlyAcceptedBlocked(t *testing.T) {
	accepted := Offer{ID: uuid.New(), Status: OfferStatusAccepted}
	if err := accepted.EnsureDeletable(); err == nil {
		t.Fatal("expected accepted offer to refuse deletion")
	}

	for _, status := range []OfferStatus{OfferStatusReceived, OfferStatusCountered, OfferStatusRejected, OfferStatusExpired, OfferStatusWithdrawn} {
		offer := Offer{ID: uuid.New(), Status: status}
		if err := offer.EnsureDeletable(); err != nil {
			t.Errorf("%s: unexpected deletion error: %v", status, err)
		}
	}
}

func TestParseOfferStatus_RejectsUnknown(t *testing.T) {
	if _, err := ParseOfferStatus("pending"); err == nil {
		t.Fatal("expected error for unknown status")
	}
	status, err := ParseOfferStatus("countered")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != OfferStatusCountered {
		t.Fatalf("got %s", status)
	}
}
