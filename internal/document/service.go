// Package document drives the lifecycle of the four commercial
// document families (sale and purchase, invoice and remision). One
// generic service handles creation and cancellation; the per-family
// differences live in the Policy table.
package document

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/lukasalvarezdev/villing-api/internal/authz"
	"github.com/lukasalvarezdev/villing-api/internal/database"
	"github.com/lukasalvarezdev/villing-api/internal/enum"
	"github.com/lukasalvarezdev/villing-api/internal/stock"
	"github.com/shopspring/decimal"
)

const maxDocumentNumberRetries = 3

// cancelTimeout bounds the cancel transaction so a stuck lock cannot
// hold the document row indefinitely.
const cancelTimeout = 10 * time.Second

// Errors returned by the document service.
var (
	ErrEmptyItems        = errors.New("items are required")
	ErrNotFound          = errors.New("document not found")
	ErrAlreadyCanceled   = errors.New("document is already canceled")
	ErrInvalidQuantity   = errors.New("quantity must be > 0")
	ErrInvalidUnitPrice  = errors.New("invalid unit_price")
	ErrInvalidProductID  = errors.New("invalid product_id")
	ErrInvalidSupplierID = errors.New("invalid supplier_id")
	ErrInvalidTaxAmount  = errors.New("invalid tax_amount")
	ErrInvalidDiscount   = errors.New("invalid discount_amount")
	ErrProductNotFound   = errors.New("product not found in organization")
	ErrBranchNotFound    = errors.New("branch not found in organization")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store defines the DB methods needed for the document lifecycle.
// Satisfied by *database.Queries (and its WithTx variant). It embeds
// the stock adjuster's store so stock moves share the transaction.
type Store interface {
	GetBranch(ctx context.Context, arg database.GetBranchParams) (database.Branch, error)
	GetNextDocumentNumber(ctx context.Context, arg database.GetNextDocumentNumberParams) (int32, error)
	GetProduct(ctx context.Context, arg database.GetProductParams) (database.Product, error)
	CreateDocument(ctx context.Context, arg database.CreateDocumentParams) (database.Document, error)
	CreateDocumentItem(ctx context.Context, arg database.CreateDocumentItemParams) (database.DocumentItem, error)
	GetDocument(ctx context.Context, arg database.GetDocumentParams) (database.Document, error)
	CancelDocument(ctx context.Context, arg database.CancelDocumentParams) (database.Document, error)
	ListDocumentItems(ctx context.Context, documentID uuid.UUID) ([]database.DocumentItem, error)
	BulkAdjustStock(ctx context.Context, arg database.BulkAdjustStockParams) (int64, error)
}

// NewStore creates a Store from a DBTX (pool or tx). This allows the
// service to create store instances from transactions.
type NewStore func(db database.DBTX) Store

// Service handles document creation and cancellation.
type Service struct {
	pool     TxBeginner
	newStore NewStore
}

func NewService(pool TxBeginner, newStore NewStore) *Service {
	return &Service{pool: pool, newStore: newStore}
}

// CreateRequest is the validated input for creating a document.
// Decimal fields arrive as strings and are parsed here, so a malformed
// amount never reaches the database.
type CreateRequest struct {
	Kind             string
	SupplierID       string
	CounterpartyName string
	TaxAmount        string
	DiscountAmount   string
	Items            []CreateItemRequest
}

// CreateItemRequest is a single line item. ProductID is optional;
// items without one (freight, fees, services) carry no stock effect.
type CreateItemRequest struct {
	ProductID   string
	Description string
	Quantity    string
	UnitPrice   string
}

// CreateResult is the created document with its items.
type CreateResult struct {
	Document database.Document
	Items    []database.DocumentItem
}

// processedItem holds a prepared line item and its stock effect.
type processedItem struct {
	params     database.CreateDocumentItemParams
	adjustment *stock.Adjustment
}

// Create validates, totals, and persists a document atomically,
// applying the family's stock direction to every stocked line item in
// the same transaction. Retries on sequence number unique constraint
// violations (concurrent transactions can read the same MAX).
func (s *Service) Create(ctx context.Context, tenant authz.TenantContext, req CreateRequest) (*CreateResult, error) {
	if err := authz.Validate(tenant.Role, enum.ActionDocumentCreate); err != nil {
		return nil, err
	}

	policy, err := PolicyFor(req.Kind)
	if err != nil {
		return nil, err
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	var lastErr error
	for attempt := 0; attempt < maxDocumentNumberRetries; attempt++ {
		result, err := s.createTx(ctx, tenant, req, policy)
		if err == nil {
			return result, nil
		}
		if isSequenceConflict(err) {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

// isSequenceConflict checks if the error is a unique constraint
// violation on the per-org document sequence (pgconn error code 23505).
func isSequenceConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "documents_org_id_kind_sequence_number_key"
	}
	return false
}

func (s *Service) createTx(ctx context.Context, tenant authz.TenantContext, req CreateRequest, policy Policy) (*CreateResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// The branch comes from the request body, not the claims, so it
	// must be checked against the tenant's org before any writes.
	if _, err := store.GetBranch(ctx, database.GetBranchParams{
		ID:    tenant.BranchID,
		OrgID: tenant.OrgID,
	}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBranchNotFound
		}
		return nil, fmt.Errorf("get branch: %w", err)
	}

	nextNum, err := store.GetNextDocumentNumber(ctx, database.GetNextDocumentNumberParams{
		OrgID: tenant.OrgID,
		Kind:  policy.Kind,
	})
	if err != nil {
		return nil, fmt.Errorf("get next document number: %w", err)
	}
	documentNumber := fmt.Sprintf("%s-%05d", policy.Prefix, nextNum)

	subtotal := decimal.Zero
	var items []processedItem
	var adjustments []stock.Adjustment

	for i, item := range req.Items {
		qty, err := decimal.NewFromString(item.Quantity)
		if err != nil || !qty.IsPositive() {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}
		unitPrice, err := decimal.NewFromString(item.UnitPrice)
		if err != nil || unitPrice.IsNegative() {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidUnitPrice)
		}

		productID := pgtype.UUID{}
		description := item.Description
		if item.ProductID != "" {
			pid, err := uuid.Parse(item.ProductID)
			if err != nil {
				return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidProductID)
			}
			product, err := store.GetProduct(ctx, database.GetProductParams{
				ID:    pid,
				OrgID: tenant.OrgID,
			})
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return nil, fmt.Errorf("item[%d]: %w", i, ErrProductNotFound)
				}
				return nil, fmt.Errorf("item[%d]: get product: %w", i, err)
			}
			productID = pgtype.UUID{Bytes: pid, Valid: true}
			if description == "" {
				description = product.Name
			}
			adjustments = append(adjustments, stock.Adjustment{ProductID: pid, Quantity: qty})
		}

		subtotal = subtotal.Add(unitPrice.Mul(qty))

		items = append(items, processedItem{
			params: database.CreateDocumentItemParams{
				ProductID:   productID,
				Description: description,
				Quantity:    decimalToNumeric(qty),
				UnitPrice:   decimalToNumeric(unitPrice),
			},
		})
	}

	taxAmount := decimal.Zero
	if req.TaxAmount != "" {
		taxAmount, err = decimal.NewFromString(req.TaxAmount)
		if err != nil || taxAmount.IsNegative() {
			return nil, ErrInvalidTaxAmount
		}
	}
	discountAmount := decimal.Zero
	if req.DiscountAmount != "" {
		discountAmount, err = decimal.NewFromString(req.DiscountAmount)
		if err != nil || discountAmount.IsNegative() {
			return nil, ErrInvalidDiscount
		}
	}

	total := subtotal.Add(taxAmount).Sub(discountAmount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	supplierID := pgtype.UUID{}
	if req.SupplierID != "" {
		sid, err := uuid.Parse(req.SupplierID)
		if err != nil {
			return nil, ErrInvalidSupplierID
		}
		supplierID = pgtype.UUID{Bytes: sid, Valid: true}
	}
	counterpartyName := pgtype.Text{}
	if req.CounterpartyName != "" {
		counterpartyName = pgtype.Text{String: req.CounterpartyName, Valid: true}
	}

	doc, err := store.CreateDocument(ctx, database.CreateDocumentParams{
		OrgID:            tenant.OrgID,
		BranchID:         tenant.BranchID,
		Kind:             policy.Kind,
		SequenceNumber:   nextNum,
		DocumentNumber:   documentNumber,
		SupplierID:       supplierID,
		CounterpartyName: counterpartyName,
		Subtotal:         decimalToNumeric(subtotal),
		TaxAmount:        decimalToNumeric(taxAmount),
		DiscountAmount:   decimalToNumeric(discountAmount),
		Total:            decimalToNumeric(total),
		Pending:          decimalToNumeric(total),
		CreatedBy:        tenant.ActorID,
	})
	if err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}

	var created []database.DocumentItem
	for _, pi := range items {
		pi.params.DocumentID = doc.ID
		item, err := store.CreateDocumentItem(ctx, pi.params)
		if err != nil {
			return nil, fmt.Errorf("create document item: %w", err)
		}
		created = append(created, item)
	}

	if err := stock.Adjust(ctx, store, tenant.BranchID, policy.CreateDirection, adjustments); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &CreateResult{Document: doc, Items: created}, nil
}

// Cancel marks a document canceled and reverses its stock effect in
// one transaction. Canceling twice fails with ErrAlreadyCanceled and
// writes nothing. Payments made against the document are kept; only
// the stock moves are undone.
func (s *Service) Cancel(ctx context.Context, tenant authz.TenantContext, documentID uuid.UUID) (*database.Document, error) {
	if err := authz.Validate(tenant.Role, enum.ActionDocumentCancel); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, cancelTimeout)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	doc, err := store.CancelDocument(ctx, database.CancelDocumentParams{
		ID:    documentID,
		OrgID: tenant.OrgID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Zero rows means missing or already canceled; a follow-up
			// read tells them apart.
			if _, getErr := store.GetDocument(ctx, database.GetDocumentParams{
				ID:    documentID,
				OrgID: tenant.OrgID,
			}); getErr == nil {
				return nil, ErrAlreadyCanceled
			}
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("cancel document: %w", err)
	}

	policy, err := PolicyFor(doc.Kind)
	if err != nil {
		return nil, err
	}

	dbItems, err := store.ListDocumentItems(ctx, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("list document items: %w", err)
	}

	var adjustments []stock.Adjustment
	for _, item := range dbItems {
		if !item.ProductID.Valid {
			continue
		}
		adjustments = append(adjustments, stock.Adjustment{
			ProductID: uuid.UUID(item.ProductID.Bytes),
			Quantity:  numericToDecimal(item.Quantity),
		})
	}
	if err := stock.Adjust(ctx, store, doc.BranchID, policy.CancelDirection, adjustments); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &doc, nil
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}
