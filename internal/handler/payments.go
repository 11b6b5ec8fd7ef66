package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/lukasalvarezdev/villing-api/internal/ledger"
	"github.com/lukasalvarezdev/villing-api/internal/ws"
)

// PaymentHandler handles org-level payment endpoints. Payments are
// created under their document routes; cancellation addresses the
// payment directly.
type PaymentHandler struct {
	docs   *DocumentHandler
	ledger *ledger.Service
}

// NewPaymentHandler creates a new PaymentHandler. It shares the
// document handler's tenant and error mapping helpers.
func NewPaymentHandler(docs *DocumentHandler, ldg *ledger.Service) *PaymentHandler {
	return &PaymentHandler{docs: docs, ledger: ldg}
}

// RegisterRoutes registers payment endpoints on the given Chi router.
// Expected to be mounted at /orgs/{oid}/payments
func (h *PaymentHandler) RegisterRoutes(r chi.Router) {
	r.Delete("/{id}", h.Cancel)
}

// Cancel handles DELETE /orgs/{oid}/payments/{id}. The payment is
// removed and the document's pending balance restored.
func (h *PaymentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	tenant, ok := h.docs.tenantFromRequest(w, r)
	if !ok {
		return
	}
	paymentID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payment ID"})
		return
	}

	result, err := h.ledger.CancelPayment(r.Context(), tenant, paymentID)
	if err != nil {
		h.docs.fail(w, "payments.cancel", tenant, err)
		return
	}

	h.docs.broadcast(tenant.OrgID, ws.EventPaymentCanceled, map[string]interface{}{
		"payment":  dbPaymentToResponse(result.Payment),
		"document": dbDocumentToResponse(result.Document),
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"payment":  dbPaymentToResponse(result.Payment),
		"document": dbDocumentToResponse(result.Document),
	})
}
