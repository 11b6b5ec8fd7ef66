package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type CreateSupplierParams struct {
	OrgID uuid.UUID
	Name  string
	Email pgtype.Text
}

func (q *Queries) CreateSupplier(ctx context.Context, arg CreateSupplierParams) (Supplier, error) {
	row := q.db.QueryRow(ctx,
		`INSERT INTO suppliers (org_id, name, email)
		 VALUES ($1, $2, $3)
		 RETURNING id, org_id, name, email, created_at`,
		arg.OrgID, arg.Name, arg.Email,
	)
	var s Supplier
	err := row.Scan(&s.ID, &s.OrgID, &s.Name, &s.Email, &s.CreatedAt)
	return s, err
}

type ListSuppliersWithBalanceRow struct {
	ID          uuid.UUID
	Name        string
	Email       pgtype.Text
	OpenBalance pgtype.Numeric
}

// ListSuppliersWithBalance sums the pending balance of each supplier's
// live purchase documents. Canceled documents are excluded.
func (q *Queries) ListSuppliersWithBalance(ctx context.Context, orgID uuid.UUID) ([]ListSuppliersWithBalanceRow, error) {
	rows, err := q.db.Query(ctx,
		`SELECT s.id, s.name, s.email,
			COALESCE((SELECT SUM(d.pending) FROM documents d
				WHERE d.supplier_id = s.id AND d.canceled_at IS NULL), 0) AS open_balance
		 FROM suppliers s
		 WHERE s.org_id = $1
		 ORDER BY s.name`,
		orgID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ListSuppliersWithBalanceRow
	for rows.Next() {
		var r ListSuppliersWithBalanceRow
		if err := rows.Scan(&r.ID, &r.Name, &r.Email, &r.OpenBalance); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
