package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type CreatePaymentParams struct {
	DocumentID uuid.UUID
	Amount     pgtype.Numeric
	Method     string
	CreatedBy  uuid.UUID
}

func (q *Queries) CreatePayment(ctx context.Context, arg CreatePaymentParams) (Payment, error) {
	row := q.db.QueryRow(ctx,
		`INSERT INTO payments (document_id, amount, method, created_by)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, document_id, amount, method, created_by, created_at`,
		arg.DocumentID, arg.Amount, arg.Method, arg.CreatedBy,
	)
	var p Payment
	err := row.Scan(&p.ID, &p.DocumentID, &p.Amount, &p.Method, &p.CreatedBy, &p.CreatedAt)
	return p, err
}

type GetPaymentForUpdateParams struct {
	ID    uuid.UUID
	OrgID uuid.UUID
}

// GetPaymentForUpdate resolves the payment and locks its parent
// document row so the delete + pending restore pair serializes against
// concurrent payments on the same document.
func (q *Queries) GetPaymentForUpdate(ctx context.Context, arg GetPaymentForUpdateParams) (Payment, error) {
	row := q.db.QueryRow(ctx,
		`SELECT p.id, p.document_id, p.amount, p.method, p.created_by, p.created_at
		 FROM payments p
		 JOIN documents d ON d.id = p.document_id
		 WHERE p.id = $1 AND d.org_id = $2
		 FOR NO KEY UPDATE OF d`,
		arg.ID, arg.OrgID,
	)
	var p Payment
	err := row.Scan(&p.ID, &p.DocumentID, &p.Amount, &p.Method, &p.CreatedBy, &p.CreatedAt)
	return p, err
}

func (q *Queries) DeletePayment(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM payments WHERE id = $1`, id)
	return err
}

func (q *Queries) ListPaymentsByDocument(ctx context.Context, documentID uuid.UUID) ([]Payment, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, document_id, amount, method, created_by, created_at
		 FROM payments WHERE document_id = $1 ORDER BY created_at`,
		documentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.DocumentID, &p.Amount, &p.Method, &p.CreatedBy, &p.CreatedAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
