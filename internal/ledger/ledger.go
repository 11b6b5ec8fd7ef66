// Package ledger reconciles payments against document pending
// balances. Every mutation runs in one transaction with the document
// row locked, so 0 <= pending <= total holds at every commit point.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/lukasalvarezdev/villing-api/internal/authz"
	"github.com/lukasalvarezdev/villing-api/internal/database"
	"github.com/lukasalvarezdev/villing-api/internal/enum"
	"github.com/shopspring/decimal"
)

// Errors returned by the ledger service.
var (
	ErrNotFound         = errors.New("not found")
	ErrDocumentCanceled = errors.New("document is canceled")
	ErrInvalidAmount    = errors.New("amount must be > 0")
	ErrInvalidMethod    = errors.New("invalid payment method")
	ErrOverpayment      = errors.New("amount exceeds pending balance")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store defines the DB methods needed to apply and cancel payments.
// Satisfied by *database.Queries (and its WithTx variant).
type Store interface {
	GetDocumentForUpdate(ctx context.Context, arg database.GetDocumentForUpdateParams) (database.Document, error)
	SubtractDocumentPending(ctx context.Context, arg database.SubtractDocumentPendingParams) (database.Document, error)
	AddDocumentPending(ctx context.Context, arg database.AddDocumentPendingParams) (database.Document, error)
	CreatePayment(ctx context.Context, arg database.CreatePaymentParams) (database.Payment, error)
	GetPaymentForUpdate(ctx context.Context, arg database.GetPaymentForUpdateParams) (database.Payment, error)
	DeletePayment(ctx context.Context, id uuid.UUID) error
}

// NewStore creates a Store from a DBTX (pool or tx). This allows the
// service to create store instances from transactions.
type NewStore func(db database.DBTX) Store

// Service applies and cancels payments.
type Service struct {
	pool     TxBeginner
	newStore NewStore
}

func NewService(pool TxBeginner, newStore NewStore) *Service {
	return &Service{pool: pool, newStore: newStore}
}

// ApplyPaymentRequest is the validated input for recording a payment.
type ApplyPaymentRequest struct {
	DocumentID uuid.UUID
	Amount     decimal.Decimal
	Method     string
}

// ApplyPaymentResult is the created payment plus the document with its
// updated pending balance.
type ApplyPaymentResult struct {
	Payment  database.Payment
	Document database.Document
}

// ApplyPayment records a payment against a document's pending balance.
// The document row is locked before the pending check so concurrent
// payments serialize and cannot jointly overdraw the balance.
func (s *Service) ApplyPayment(ctx context.Context, tenant authz.TenantContext, req ApplyPaymentRequest) (*ApplyPaymentResult, error) {
	if err := authz.Validate(tenant.Role, enum.ActionPaymentCreate); err != nil {
		return nil, err
	}
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if !isValidMethod(req.Method) {
		return nil, ErrInvalidMethod
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	doc, err := store.GetDocumentForUpdate(ctx, database.GetDocumentForUpdateParams{
		ID:    req.DocumentID,
		OrgID: tenant.OrgID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lock document: %w", err)
	}
	if doc.CanceledAt.Valid {
		return nil, ErrDocumentCanceled
	}

	pending := numericToDecimal(doc.Pending)
	if req.Amount.GreaterThan(pending) {
		return nil, fmt.Errorf("%w: pending %s, amount %s", ErrOverpayment, pending, req.Amount)
	}

	updated, err := store.SubtractDocumentPending(ctx, database.SubtractDocumentPendingParams{
		ID:     doc.ID,
		Amount: decimalToNumeric(req.Amount),
	})
	if err != nil {
		return nil, fmt.Errorf("subtract pending: %w", err)
	}

	payment, err := store.CreatePayment(ctx, database.CreatePaymentParams{
		DocumentID: doc.ID,
		Amount:     decimalToNumeric(req.Amount),
		Method:     req.Method,
		CreatedBy:  tenant.ActorID,
	})
	if err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &ApplyPaymentResult{Payment: payment, Document: updated}, nil
}

// CancelPaymentResult is the deleted payment plus the document with its
// restored pending balance.
type CancelPaymentResult struct {
	Payment  database.Payment
	Document database.Document
}

// CancelPayment deletes a payment and restores the document's pending
// balance by the payment amount. The parent document row is locked
// through the lookup, so the delete and restore serialize against
// concurrent payments. Pending never exceeds total because every live
// payment subtracted its amount first.
func (s *Service) CancelPayment(ctx context.Context, tenant authz.TenantContext, paymentID uuid.UUID) (*CancelPaymentResult, error) {
	if err := authz.Validate(tenant.Role, enum.ActionPaymentCancel); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	payment, err := store.GetPaymentForUpdate(ctx, database.GetPaymentForUpdateParams{
		ID:    paymentID,
		OrgID: tenant.OrgID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lock payment: %w", err)
	}

	if err := store.DeletePayment(ctx, payment.ID); err != nil {
		return nil, fmt.Errorf("delete payment: %w", err)
	}

	doc, err := store.AddDocumentPending(ctx, database.AddDocumentPendingParams{
		ID:     payment.DocumentID,
		Amount: payment.Amount,
	})
	if err != nil {
		return nil, fmt.Errorf("restore pending: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &CancelPaymentResult{Payment: payment, Document: doc}, nil
}

func isValidMethod(s string) bool {
	switch s {
	case enum.PaymentMethodCash, enum.PaymentMethodCreditCard, enum.PaymentMethodTransfer:
		return true
	}
	return false
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
