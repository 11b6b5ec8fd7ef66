package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type BulkAdjustStockParams struct {
	BranchID   uuid.UUID
	ProductIDs []uuid.UUID
	Deltas     []pgtype.Numeric
}

// BulkAdjustStock applies one signed delta per product to the branch's
// stock records in a single statement. ProductIDs and Deltas are
// parallel arrays; product IDs must be unique or ON CONFLICT rejects
// the statement. Products without a stock record get one created at
// the delta. Quantities are not clamped at zero.
func (q *Queries) BulkAdjustStock(ctx context.Context, arg BulkAdjustStockParams) (int64, error) {
	tag, err := q.db.Exec(ctx,
		`INSERT INTO product_stocks (product_id, branch_id, quantity)
		 SELECT d.product_id, $1, d.delta
		 FROM (SELECT unnest($2::uuid[]) AS product_id, unnest($3::numeric[]) AS delta) d
		 ON CONFLICT (product_id, branch_id) DO UPDATE
		 SET quantity = product_stocks.quantity + EXCLUDED.quantity, updated_at = now()`,
		arg.BranchID, arg.ProductIDs, arg.Deltas,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type GetProductStockParams struct {
	ProductID uuid.UUID
	BranchID  uuid.UUID
}

func (q *Queries) GetProductStock(ctx context.Context, arg GetProductStockParams) (ProductStock, error) {
	row := q.db.QueryRow(ctx,
		`SELECT product_id, branch_id, quantity, updated_at
		 FROM product_stocks WHERE product_id = $1 AND branch_id = $2`,
		arg.ProductID, arg.BranchID,
	)
	var s ProductStock
	err := row.Scan(&s.ProductID, &s.BranchID, &s.Quantity, &s.UpdatedAt)
	return s, err
}

type UpsertProductStockParams struct {
	ProductID uuid.UUID
	BranchID  uuid.UUID
	Quantity  pgtype.Numeric
}

func (q *Queries) UpsertProductStock(ctx context.Context, arg UpsertProductStockParams) (ProductStock, error) {
	row := q.db.QueryRow(ctx,
		`INSERT INTO product_stocks (product_id, branch_id, quantity)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (product_id, branch_id) DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = now()
		 RETURNING product_id, branch_id, quantity, updated_at`,
		arg.ProductID, arg.BranchID, arg.Quantity,
	)
	var s ProductStock
	err := row.Scan(&s.ProductID, &s.BranchID, &s.Quantity, &s.UpdatedAt)
	return s, err
}

type ListBranchStocksParams struct {
	BranchID uuid.UUID
	OrgID    uuid.UUID
}

type ListBranchStocksRow struct {
	ProductID   uuid.UUID
	ProductName string
	Quantity    pgtype.Numeric
}

func (q *Queries) ListBranchStocks(ctx context.Context, arg ListBranchStocksParams) ([]ListBranchStocksRow, error) {
	rows, err := q.db.Query(ctx,
		`SELECT ps.product_id, p.name, ps.quantity
		 FROM product_stocks ps
		 JOIN products p ON p.id = ps.product_id
		 WHERE ps.branch_id = $1 AND p.org_id = $2
		 ORDER BY p.name`,
		arg.BranchID, arg.OrgID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ListBranchStocksRow
	for rows.Next() {
		var r ListBranchStocksRow
		if err := rows.Scan(&r.ProductID, &r.ProductName, &r.Quantity); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
