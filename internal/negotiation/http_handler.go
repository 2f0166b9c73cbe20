package negotiation

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/mhollis/dealflow/internal/domain"
	"github.com/mhollis/dealflow/internal/middleware"

	"github.com/google/uuid"
)

// Handler exposes the negotiation operations as HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHTTPHandler wraps the service with the /offers endpoints.
func NewHTTPHandler(service *Service) http.Handler {
	return &Handler{service: service}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := splitPath(r.URL.Path)
	if len(parts) == 0 || parts[0] != "offers" {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	switch {
	case r.Method == http.MethodPost && len(parts) == 1:
		h.handleCreate(w, r)
	case len(parts) >= 2:
		offerID, err := uuid.Parse(parts[1])
		if err != nil {
			http.Error(w, "invalid offer id", http.StatusBadRequest)
			return
		}
		h.serveOffer(w, r, offerID, parts[2:])
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (h *Handler) serveOffer(w http.ResponseWriter, r *http.Request, offerID uuid.UUID, rest []string) {
	switch {
	case r.Method == http.MethodGet && len(rest) == 0:
		h.handleGet(w, r, offerID)
	case r.Method == http.MethodDelete && len(rest) == 0:
		h.handleDelete(w, r, offerID)
	case r.Method == http.MethodGet && len(rest) == 1 && rest[0] == "thread":
		h.handleThread(w, r, offerID)
	case r.Method == http.MethodGet && len(rest) == 1 && rest[0] == "current":
		h.handleCurrent(w, r, offerID)
	case r.Method == http.MethodPost && len(rest) == 1 && rest[0] == "revisions":
		h.handleAddRevision(w, r, offerID)
	case r.Method == http.MethodPost && len(rest) == 1 && rest[0] == "accept":
		h.handleAccept(w, r, offerID)
	case r.Method == http.MethodPost && len(rest) == 1 && rest[0] == "reject":
		h.handleReject(w, r, offerID)
	case r.Method == http.MethodPost && len(rest) == 1 && rest[0] == "withdraw":
		h.handleWithdraw(w, r, offerID)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

type createOfferPayload struct {
	TransactionID string       `json:"transactionId"`
	BuyerPartyID  *string      `json:"buyerPartyId,omitempty"`
	SellerPartyID *string      `json:"sellerPartyId,omitempty"`
	Terms         domain.Terms `json:"terms"`
}

type offerWithRevision struct {
	Offer    domain.Offer         `json:"offer"`
	Revision domain.OfferRevision `json:"revision"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var payload createOfferPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid payload: "+err.Error(), http.StatusBadRequest)
		return
	}

	transactionID, err := uuid.Parse(strings.TrimSpace(payload.TransactionID))
	if err != nil {
		http.Error(w, "invalid transaction id", http.StatusBadRequest)
		return
	}
	buyerID, err := parseOptionalID(payload.BuyerPartyID)
	if err != nil {
		http.Error(w, "invalid buyer party id", http.StatusBadRequest)
		return
	}
	sellerID, err := parseOptionalID(payload.SellerPartyID)
	if err != nil {
		http.Error(w, "invalid seller party id", http.StatusBadRequest)
		return
	}

	offer, revision, err := h.service.CreateOffer(r.Context(), CreateOfferRequest{
		TransactionID: transactionID,
		BuyerPartyID:  buyerID,
		SellerPartyID: sellerID,
		Terms:         payload.Terms,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, offerWithRevision{Offer: offer, Revision: revision})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request, offerID uuid.UUID) {
	offer, err := h.service.GetOffer(r.Context(), offerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, offer)
}

func (h *Handler) handleCurrent(w http.ResponseWriter, r *http.Request, offerID uuid.UUID) {
	revision, err := h.service.CurrentTerms(r.Context(), offerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, revision)
}

type partyView struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

type threadResponse struct {
	Offer     domain.Offer           `json:"offer"`
	Revisions []domain.OfferRevision `json:"revisions"`
	Parties   map[string]partyView   `json:"parties,omitempty"`
}

func (h *Handler) handleThread(w http.ResponseWriter, r *http.Request, offerID uuid.UUID) {
	thread, err := h.service.GetThread(r.Context(), offerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	response := threadResponse{Offer: thread.Offer, Revisions: thread.Revisions}
	if loader := middleware.PartyLoaderFromContext(r.Context()); loader != nil {
		response.Parties = map[string]partyView{}
		for _, id := range []*uuid.UUID{thread.Offer.BuyerPartyID, thread.Offer.SellerPartyID} {
			if id == nil {
				continue
			}
			party, loadErr := loader.Get(r.Context(), *id)
			if loadErr != nil || party == nil {
				continue
			}
			response.Parties[id.String()] = partyView{
				FullName: party.FullName,
				Email:    party.Email,
				Role:     string(party.Role),
			}
		}
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *Handler) handleAddRevision(w http.ResponseWriter, r *http.Request, offerID uuid.UUID) {
	var terms domain.Terms
	if err := json.NewDecoder(r.Body).Decode(&terms); err != nil {
		http.Error(w, "invalid payload: "+err.Error(), http.StatusBadRequest)
		return
	}

	revision, err := h.service.AddRevision(r.Context(), offerID, terms)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, revision)
}

func (h *Handler) handleAccept(w http.ResponseWriter, r *http.Request, offerID uuid.UUID) {
	result, err := h.service.AcceptOffer(r.Context(), offerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request, offerID uuid.UUID) {
	offer, err := h.service.RejectOffer(r.Context(), offerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, offer)
}

func (h *Handler) handleWithdraw(w http.ResponseWriter, r *http.Request, offerID uuid.UUID) {
	offer, err := h.service.WithdrawOffer(r.Context(), offerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, offer)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request, offerID uuid.UUID) {
	if err := h.service.DeleteOffer(r.Context(), offerID); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TransactionHandler exposes the aggregate snapshot and offer listings.
type TransactionHandler struct {
	service *Service
}

// NewTransactionHTTPHandler wraps the service with the /transactions
// read endpoints.
func NewTransactionHTTPHandler(service *Service) http.Handler {
	return &TransactionHandler{service: service}
}

func (h *TransactionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := splitPath(r.URL.Path)
	if r.Method != http.MethodGet || len(parts) < 2 || parts[0] != "transactions" {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	transactionID, err := uuid.Parse(parts[1])
	if err != nil {
		http.Error(w, "invalid transaction id", http.StatusBadRequest)
		return
	}

	switch {
	case len(parts) == 2:
		snapshot, err := h.service.GetTransaction(r.Context(), transactionID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snapshot)
	case len(parts) == 3 && parts[2] == "offers":
		activeOnly := r.URL.Query().Get("active") == "true"
		offers, err := h.service.ListOffers(r.Context(), transactionID, activeOnly)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, offers)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

// SweepHandler exposes the expiry sweep as an on-demand admin endpoint.
type SweepHandler struct {
	service *Service
}

// NewSweepHTTPHandler wraps the service with POST /sweep.
func NewSweepHTTPHandler(service *Service) http.Handler {
	return &SweepHandler{service: service}
}

func (h *SweepHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	count, err := h.service.SweepExpired(r.Context(), time.Now())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"expired": count})
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func parseOptionalID(raw *string) (*uuid.UUID, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	id, err := uuid.Parse(strings.TrimSpace(*raw))
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}

// writeDomainError maps the negotiation error taxonomy onto HTTP codes:
// validation 400, not found 404, invalid transition 409, cascade and
// everything else 500.
func writeDomainError(w http.ResponseWriter, err error) {
	var (
		validationErr *domain.ValidationError
		notFoundErr   *domain.NotFoundError
		transitionErr *domain.InvalidTransitionError
	)
	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &validationErr):
		status = http.StatusBadRequest
	case errors.As(err, &notFoundErr):
		status = http.StatusNotFound
	case errors.As(err, &transitionErr):
		status = http.StatusConflict
	}

	writeJSON(w, status, map[string]string{"error": err.Error()})
}
