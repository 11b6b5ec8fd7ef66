package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const documentColumns = `id, org_id, branch_id, kind, sequence_number, document_number,
	supplier_id, counterparty_name, subtotal, tax_amount, discount_amount, total, pending,
	canceled_at, created_by, created_at, updated_at`

func scanDocument(row interface{ Scan(dest ...any) error }) (Document, error) {
	var d Document
	err := row.Scan(
		&d.ID, &d.OrgID, &d.BranchID, &d.Kind, &d.SequenceNumber, &d.DocumentNumber,
		&d.SupplierID, &d.CounterpartyName, &d.Subtotal, &d.TaxAmount, &d.DiscountAmount,
		&d.Total, &d.Pending, &d.CanceledAt, &d.CreatedBy, &d.CreatedAt, &d.UpdatedAt,
	)
	return d, err
}

type GetNextDocumentNumberParams struct {
	OrgID uuid.UUID
	Kind  string
}

// GetNextDocumentNumber returns MAX(sequence_number)+1 for the org and
// family. Concurrent callers can observe the same value; the unique
// constraint on (org_id, kind, sequence_number) catches the race and
// the service retries.
func (q *Queries) GetNextDocumentNumber(ctx context.Context, arg GetNextDocumentNumberParams) (int32, error) {
	row := q.db.QueryRow(ctx,
		`SELECT COALESCE(MAX(sequence_number), 0) + 1 FROM documents WHERE org_id = $1 AND kind = $2`,
		arg.OrgID, arg.Kind,
	)
	var next int32
	err := row.Scan(&next)
	return next, err
}

type CreateDocumentParams struct {
	OrgID            uuid.UUID
	BranchID         uuid.UUID
	Kind             string
	SequenceNumber   int32
	DocumentNumber   string
	SupplierID       pgtype.UUID
	CounterpartyName pgtype.Text
	Subtotal         pgtype.Numeric
	TaxAmount        pgtype.Numeric
	DiscountAmount   pgtype.Numeric
	Total            pgtype.Numeric
	Pending          pgtype.Numeric
	CreatedBy        uuid.UUID
}

func (q *Queries) CreateDocument(ctx context.Context, arg CreateDocumentParams) (Document, error) {
	row := q.db.QueryRow(ctx,
		`INSERT INTO documents (org_id, branch_id, kind, sequence_number, document_number,
			supplier_id, counterparty_name, subtotal, tax_amount, discount_amount, total, pending, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 RETURNING `+documentColumns,
		arg.OrgID, arg.BranchID, arg.Kind, arg.SequenceNumber, arg.DocumentNumber,
		arg.SupplierID, arg.CounterpartyName, arg.Subtotal, arg.TaxAmount,
		arg.DiscountAmount, arg.Total, arg.Pending, arg.CreatedBy,
	)
	return scanDocument(row)
}

type CreateDocumentItemParams struct {
	DocumentID  uuid.UUID
	ProductID   pgtype.UUID
	Description string
	Quantity    pgtype.Numeric
	UnitPrice   pgtype.Numeric
}

func (q *Queries) CreateDocumentItem(ctx context.Context, arg CreateDocumentItemParams) (DocumentItem, error) {
	row := q.db.QueryRow(ctx,
		`INSERT INTO document_items (document_id, product_id, description, quantity, unit_price)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, document_id, product_id, description, quantity, unit_price`,
		arg.DocumentID, arg.ProductID, arg.Description, arg.Quantity, arg.UnitPrice,
	)
	var it DocumentItem
	err := row.Scan(&it.ID, &it.DocumentID, &it.ProductID, &it.Description, &it.Quantity, &it.UnitPrice)
	return it, err
}

type GetDocumentParams struct {
	ID    uuid.UUID
	OrgID uuid.UUID
}

func (q *Queries) GetDocument(ctx context.Context, arg GetDocumentParams) (Document, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1 AND org_id = $2`,
		arg.ID, arg.OrgID,
	)
	return scanDocument(row)
}

type GetDocumentForUpdateParams struct {
	ID    uuid.UUID
	OrgID uuid.UUID
}

// GetDocumentForUpdate locks the document row so concurrent payments
// against the same pending balance serialize.
func (q *Queries) GetDocumentForUpdate(ctx context.Context, arg GetDocumentForUpdateParams) (Document, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1 AND org_id = $2 FOR NO KEY UPDATE`,
		arg.ID, arg.OrgID,
	)
	return scanDocument(row)
}

type ListDocumentsParams struct {
	OrgID           uuid.UUID
	Kind            pgtype.Text
	IncludeCanceled bool
	StartDate       pgtype.Timestamptz
	EndDate         pgtype.Timestamptz
	Limit           int32
	Offset          int32
}

func (q *Queries) ListDocuments(ctx context.Context, arg ListDocumentsParams) ([]Document, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+documentColumns+` FROM documents
		 WHERE org_id = $1
		   AND ($2::text IS NULL OR kind = $2)
		   AND ($3::bool OR canceled_at IS NULL)
		   AND ($4::timestamptz IS NULL OR created_at >= $4)
		   AND ($5::timestamptz IS NULL OR created_at < $5 + interval '1 day')
		 ORDER BY created_at DESC
		 LIMIT $6 OFFSET $7`,
		arg.OrgID, arg.Kind, arg.IncludeCanceled, arg.StartDate, arg.EndDate, arg.Limit, arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (q *Queries) ListDocumentItems(ctx context.Context, documentID uuid.UUID) ([]DocumentItem, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, document_id, product_id, description, quantity, unit_price
		 FROM document_items WHERE document_id = $1 ORDER BY id`,
		documentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []DocumentItem
	for rows.Next() {
		var it DocumentItem
		if err := rows.Scan(&it.ID, &it.DocumentID, &it.ProductID, &it.Description, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

type CancelDocumentParams struct {
	ID    uuid.UUID
	OrgID uuid.UUID
}

// CancelDocument marks the document canceled. The `canceled_at IS NULL`
// predicate makes the transition atomic: zero rows means the document
// is missing or already canceled (callers disambiguate with a read).
func (q *Queries) CancelDocument(ctx context.Context, arg CancelDocumentParams) (Document, error) {
	row := q.db.QueryRow(ctx,
		`UPDATE documents SET canceled_at = now(), updated_at = now()
		 WHERE id = $1 AND org_id = $2 AND canceled_at IS NULL
		 RETURNING `+documentColumns,
		arg.ID, arg.OrgID,
	)
	return scanDocument(row)
}

type AddDocumentPendingParams struct {
	ID     uuid.UUID
	Amount pgtype.Numeric
}

// AddDocumentPending shifts the pending balance by Amount (negative
// deltas are expressed by the caller passing the amount to the
// dedicated subtract query below). Callers validate bounds beforehand
// under a row lock.
func (q *Queries) AddDocumentPending(ctx context.Context, arg AddDocumentPendingParams) (Document, error) {
	row := q.db.QueryRow(ctx,
		`UPDATE documents SET pending = pending + $2, updated_at = now()
		 WHERE id = $1
		 RETURNING `+documentColumns,
		arg.ID, arg.Amount,
	)
	return scanDocument(row)
}

type SubtractDocumentPendingParams struct {
	ID     uuid.UUID
	Amount pgtype.Numeric
}

func (q *Queries) SubtractDocumentPending(ctx context.Context, arg SubtractDocumentPendingParams) (Document, error) {
	row := q.db.QueryRow(ctx,
		`UPDATE documents SET pending = pending - $2, updated_at = now()
		 WHERE id = $1
		 RETURNING `+documentColumns,
		arg.ID, arg.Amount,
	)
	return scanDocument(row)
}
