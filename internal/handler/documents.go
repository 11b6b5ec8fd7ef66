package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/lukasalvarezdev/villing-api/internal/authz"
	"github.com/lukasalvarezdev/villing-api/internal/database"
	"github.com/lukasalvarezdev/villing-api/internal/document"
	"github.com/lukasalvarezdev/villing-api/internal/ledger"
	"github.com/lukasalvarezdev/villing-api/internal/middleware"
	"github.com/lukasalvarezdev/villing-api/internal/report"
	"github.com/lukasalvarezdev/villing-api/internal/ws"
	"github.com/shopspring/decimal"
)

const defaultPageSize = 50

// DocumentStore defines the database methods needed by document handlers
// for reads. Mutations go through the document and ledger services.
type DocumentStore interface {
	GetDocument(ctx context.Context, arg database.GetDocumentParams) (database.Document, error)
	ListDocuments(ctx context.Context, arg database.ListDocumentsParams) ([]database.Document, error)
	ListDocumentItems(ctx context.Context, documentID uuid.UUID) ([]database.DocumentItem, error)
	ListPaymentsByDocument(ctx context.Context, documentID uuid.UUID) ([]database.Payment, error)
}

// DocumentHandler handles document lifecycle endpoints.
type DocumentHandler struct {
	store    DocumentStore
	docs     *document.Service
	ledger   *ledger.Service
	reporter *report.Reporter
	hub      *ws.Hub
	validate *validator.Validate
}

// NewDocumentHandler creates a new DocumentHandler.
func NewDocumentHandler(store DocumentStore, docs *document.Service, ldg *ledger.Service, reporter *report.Reporter, hub *ws.Hub) *DocumentHandler {
	return &DocumentHandler{
		store:    store,
		docs:     docs,
		ledger:   ldg,
		reporter: reporter,
		hub:      hub,
		validate: validator.New(),
	}
}

// RegisterRoutes registers document endpoints on the given Chi router.
// Expected to be mounted at /orgs/{oid}/documents
func (h *DocumentHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/cancel", h.Cancel)
	r.Post("/{id}/payments", h.Pay)
	r.Get("/{id}/payments", h.ListPayments)
}

// --- Request / Response types ---

type createDocumentRequest struct {
	Kind             string                      `json:"kind" validate:"required"`
	BranchID         string                      `json:"branch_id" validate:"required,uuid"`
	SupplierID       string                      `json:"supplier_id" validate:"omitempty,uuid"`
	CounterpartyName string                      `json:"counterparty_name" validate:"max=255"`
	TaxAmount        string                      `json:"tax_amount"`
	DiscountAmount   string                      `json:"discount_amount"`
	Items            []createDocumentItemRequest `json:"items" validate:"required,min=1,dive"`
}

type createDocumentItemRequest struct {
	ProductID   string `json:"product_id" validate:"omitempty,uuid"`
	Description string `json:"description" validate:"max=255"`
	Quantity    string `json:"quantity" validate:"required"`
	UnitPrice   string `json:"unit_price" validate:"required"`
}

type addPaymentRequest struct {
	Amount string `json:"amount"`
	Method string `json:"method"`
}

type documentResponse struct {
	ID               uuid.UUID  `json:"id"`
	OrgID            uuid.UUID  `json:"org_id"`
	BranchID         uuid.UUID  `json:"branch_id"`
	Kind             string     `json:"kind"`
	DocumentNumber   string     `json:"document_number"`
	SupplierID       string     `json:"supplier_id,omitempty"`
	CounterpartyName string     `json:"counterparty_name,omitempty"`
	Subtotal         string     `json:"subtotal"`
	TaxAmount        string     `json:"tax_amount"`
	DiscountAmount   string     `json:"discount_amount"`
	Total            string     `json:"total"`
	Pending          string     `json:"pending"`
	CanceledAt       *time.Time `json:"canceled_at,omitempty"`
	CreatedBy        uuid.UUID  `json:"created_by"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

type documentItemResponse struct {
	ID          uuid.UUID `json:"id"`
	ProductID   string    `json:"product_id,omitempty"`
	Description string    `json:"description"`
	Quantity    string    `json:"quantity"`
	UnitPrice   string    `json:"unit_price"`
}

type paymentResponse struct {
	ID         uuid.UUID `json:"id"`
	DocumentID uuid.UUID `json:"document_id"`
	Amount     string    `json:"amount"`
	Method     string    `json:"method"`
	CreatedBy  uuid.UUID `json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
}

// --- Handlers ---

// Create handles POST /orgs/{oid}/documents.
func (h *DocumentHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenant, ok := h.tenantFromRequest(w, r)
	if !ok {
		return
	}

	var req createDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "validation failed: " + err.Error()})
		return
	}

	branchID, err := uuid.Parse(req.BranchID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid branch_id"})
		return
	}
	tenant.BranchID = branchID

	items := make([]document.CreateItemRequest, len(req.Items))
	for i, item := range req.Items {
		items[i] = document.CreateItemRequest{
			ProductID:   item.ProductID,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		}
	}

	result, err := h.docs.Create(r.Context(), tenant, document.CreateRequest{
		Kind:             req.Kind,
		SupplierID:       req.SupplierID,
		CounterpartyName: req.CounterpartyName,
		TaxAmount:        req.TaxAmount,
		DiscountAmount:   req.DiscountAmount,
		Items:            items,
	})
	if err != nil {
		h.fail(w, "documents.create", tenant, err)
		return
	}

	h.broadcast(tenant.OrgID, ws.EventDocumentCreated, result.Document)

	itemResponses := make([]documentItemResponse, len(result.Items))
	for i, item := range result.Items {
		itemResponses[i] = dbDocumentItemToResponse(item)
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"document": dbDocumentToResponse(result.Document),
		"items":    itemResponses,
	})
}

// List handles GET /orgs/{oid}/documents.
// Optional query params: kind, include_canceled, start_date, end_date
// (YYYY-MM-DD), limit, offset.
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	tenant, ok := h.tenantFromRequest(w, r)
	if !ok {
		return
	}

	params := database.ListDocumentsParams{
		OrgID:  tenant.OrgID,
		Limit:  defaultPageSize,
		Offset: 0,
	}

	if kind := r.URL.Query().Get("kind"); kind != "" {
		if _, err := document.PolicyFor(kind); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid kind"})
			return
		}
		params.Kind = pgtype.Text{String: kind, Valid: true}
	}
	params.IncludeCanceled = r.URL.Query().Get("include_canceled") == "true"

	for _, q := range []struct {
		name string
		dst  *pgtype.Timestamptz
	}{
		{"start_date", &params.StartDate},
		{"end_date", &params.EndDate},
	} {
		if v := r.URL.Query().Get(q.name); v != "" {
			t, err := time.Parse("2006-01-02", v)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid " + q.name})
				return
			}
			*q.dst = pgtype.Timestamptz{Time: t, Valid: true}
		}
	}

	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		params.Limit = int32(n)
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid offset"})
			return
		}
		params.Offset = int32(n)
	}

	docs, err := h.store.ListDocuments(r.Context(), params)
	if err != nil {
		h.fail(w, "documents.list", tenant, err)
		return
	}

	resp := make([]documentResponse, len(docs))
	for i, d := range docs {
		resp[i] = dbDocumentToResponse(d)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /orgs/{oid}/documents/{id}.
func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenant, ok := h.tenantFromRequest(w, r)
	if !ok {
		return
	}
	documentID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid document ID"})
		return
	}

	doc, err := h.store.GetDocument(r.Context(), database.GetDocumentParams{
		ID:    documentID,
		OrgID: tenant.OrgID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "document not found"})
			return
		}
		h.fail(w, "documents.get", tenant, err)
		return
	}

	items, err := h.store.ListDocumentItems(r.Context(), doc.ID)
	if err != nil {
		h.fail(w, "documents.get", tenant, err)
		return
	}
	payments, err := h.store.ListPaymentsByDocument(r.Context(), doc.ID)
	if err != nil {
		h.fail(w, "documents.get", tenant, err)
		return
	}

	itemResponses := make([]documentItemResponse, len(items))
	for i, item := range items {
		itemResponses[i] = dbDocumentItemToResponse(item)
	}
	paymentResponses := make([]paymentResponse, len(payments))
	for i, p := range payments {
		paymentResponses[i] = dbPaymentToResponse(p)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"document": dbDocumentToResponse(doc),
		"items":    itemResponses,
		"payments": paymentResponses,
	})
}

// Cancel handles POST /orgs/{oid}/documents/{id}/cancel.
func (h *DocumentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	tenant, ok := h.tenantFromRequest(w, r)
	if !ok {
		return
	}
	documentID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid document ID"})
		return
	}

	doc, err := h.docs.Cancel(r.Context(), tenant, documentID)
	if err != nil {
		h.fail(w, "documents.cancel", tenant, err)
		return
	}

	h.broadcast(tenant.OrgID, ws.EventDocumentCanceled, *doc)

	writeJSON(w, http.StatusOK, dbDocumentToResponse(*doc))
}

// Pay handles POST /orgs/{oid}/documents/{id}/payments.
func (h *DocumentHandler) Pay(w http.ResponseWriter, r *http.Request) {
	tenant, ok := h.tenantFromRequest(w, r)
	if !ok {
		return
	}
	documentID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid document ID"})
		return
	}

	var req addPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Amount == "" || req.Method == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "amount and method are required"})
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid amount"})
		return
	}

	result, err := h.ledger.ApplyPayment(r.Context(), tenant, ledger.ApplyPaymentRequest{
		DocumentID: documentID,
		Amount:     amount,
		Method:     req.Method,
	})
	if err != nil {
		h.fail(w, "payments.create", tenant, err)
		return
	}

	h.broadcast(tenant.OrgID, ws.EventPaymentCreated, map[string]interface{}{
		"payment":  dbPaymentToResponse(result.Payment),
		"document": dbDocumentToResponse(result.Document),
	})

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"payment":  dbPaymentToResponse(result.Payment),
		"document": dbDocumentToResponse(result.Document),
	})
}

// ListPayments handles GET /orgs/{oid}/documents/{id}/payments.
func (h *DocumentHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	tenant, ok := h.tenantFromRequest(w, r)
	if !ok {
		return
	}
	documentID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid document ID"})
		return
	}

	// Verify document exists and belongs to the org
	if _, err := h.store.GetDocument(r.Context(), database.GetDocumentParams{
		ID:    documentID,
		OrgID: tenant.OrgID,
	}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "document not found"})
			return
		}
		h.fail(w, "payments.list", tenant, err)
		return
	}

	payments, err := h.store.ListPaymentsByDocument(r.Context(), documentID)
	if err != nil {
		h.fail(w, "payments.list", tenant, err)
		return
	}

	resp := make([]paymentResponse, len(payments))
	for i, p := range payments {
		resp[i] = dbPaymentToResponse(p)
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- Helpers ---

// tenantFromRequest builds the tenant context from the URL org and the
// authenticated claims. BranchID is filled per-operation where needed.
func (h *DocumentHandler) tenantFromRequest(w http.ResponseWriter, r *http.Request) (authz.TenantContext, bool) {
	orgID, err := uuid.Parse(chi.URLParam(r, "oid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid org ID"})
		return authz.TenantContext{}, false
	}
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return authz.TenantContext{}, false
	}
	return authz.TenantContext{
		OrgID:   orgID,
		ActorID: claims.UserID,
		Role:    claims.Role,
	}, true
}

// fail maps service errors to HTTP responses. Unexpected errors go to
// the report sink and surface only a reference ID.
func (h *DocumentHandler) fail(w http.ResponseWriter, op string, tenant authz.TenantContext, err error) {
	switch {
	case errors.Is(err, authz.ErrForbidden):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
	case errors.Is(err, document.ErrNotFound), errors.Is(err, ledger.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, document.ErrBranchNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "branch not found"})
	case errors.Is(err, document.ErrAlreadyCanceled):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "document is already canceled"})
	case errors.Is(err, ledger.ErrDocumentCanceled):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "cannot add payment to canceled document"})
	case errors.Is(err, ledger.ErrOverpayment):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "payment exceeds pending balance"})
	case errors.Is(err, document.ErrInvalidKind),
		errors.Is(err, document.ErrEmptyItems),
		errors.Is(err, document.ErrInvalidQuantity),
		errors.Is(err, document.ErrInvalidUnitPrice),
		errors.Is(err, document.ErrInvalidProductID),
		errors.Is(err, document.ErrInvalidSupplierID),
		errors.Is(err, document.ErrInvalidTaxAmount),
		errors.Is(err, document.ErrInvalidDiscount),
		errors.Is(err, document.ErrProductNotFound),
		errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrInvalidMethod):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		refID := h.reporter.Error(op, err, map[string]any{
			"org_id":   tenant.OrgID.String(),
			"actor_id": tenant.ActorID.String(),
		})
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":        "internal server error",
			"reference_id": refID,
		})
	}
}

func (h *DocumentHandler) broadcast(orgID uuid.UUID, eventType string, payload interface{}) {
	if h.hub == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	h.hub.BroadcastToOrg(orgID, ws.Event{Type: eventType, Payload: data})
}

func dbDocumentToResponse(d database.Document) documentResponse {
	resp := documentResponse{
		ID:             d.ID,
		OrgID:          d.OrgID,
		BranchID:       d.BranchID,
		Kind:           d.Kind,
		DocumentNumber: d.DocumentNumber,
		Subtotal:       numericToString(d.Subtotal),
		TaxAmount:      numericToString(d.TaxAmount),
		DiscountAmount: numericToString(d.DiscountAmount),
		Total:          numericToString(d.Total),
		Pending:        numericToString(d.Pending),
		CreatedBy:      d.CreatedBy,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
	if d.SupplierID.Valid {
		resp.SupplierID = uuid.UUID(d.SupplierID.Bytes).String()
	}
	if d.CounterpartyName.Valid {
		resp.CounterpartyName = d.CounterpartyName.String
	}
	if d.CanceledAt.Valid {
		t := d.CanceledAt.Time
		resp.CanceledAt = &t
	}
	return resp
}

func dbDocumentItemToResponse(item database.DocumentItem) documentItemResponse {
	resp := documentItemResponse{
		ID:          item.ID,
		Description: item.Description,
		Quantity:    numericToString(item.Quantity),
		UnitPrice:   numericToString(item.UnitPrice),
	}
	if item.ProductID.Valid {
		resp.ProductID = uuid.UUID(item.ProductID.Bytes).String()
	}
	return resp
}

func dbPaymentToResponse(p database.Payment) paymentResponse {
	return paymentResponse{
		ID:         p.ID,
		DocumentID: p.DocumentID,
		Amount:     numericToString(p.Amount),
		Method:     p.Method,
		CreatedBy:  p.CreatedBy,
		CreatedAt:  p.CreatedAt,
	}
}

func numericToString(n pgtype.Numeric) string {
	if !n.Valid {
		return "0.00"
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return "0.00"
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return "0.00"
	}
	return d.StringFixed(2)
}
