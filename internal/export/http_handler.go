package export

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/mhollis/dealflow/internal/domain"

	"github.com/google/uuid"
)

// Handler exposes the comparison export as an HTTP endpoint.
type Handler struct {
	service *Service
}

// NewHTTPHandler wraps the service with the export endpoint, mounted at
// GET /transactions/{id}/offers/export.
func NewHTTPHandler(service *Service) http.Handler {
	return &Handler{service: service}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 4 || parts[0] != "transactions" || parts[2] != "offers" || parts[3] != "export" {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	transactionID, err := uuid.Parse(parts[1])
	if err != nil {
		http.Error(w, "invalid transaction id", http.StatusBadRequest)
		return
	}

	// Buffer the workbook so a late failure does not leave a half
	// written response behind.
	var buf bytes.Buffer
	if err := h.service.WriteComparison(r.Context(), transactionID, &buf); err != nil {
		var notFoundErr *domain.NotFoundError
		if errors.As(err, &notFoundErr) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=offers-%s.xlsx", transactionID))
	_, _ = buf.WriteTo(w)
}
