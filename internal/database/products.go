package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type CreateProductParams struct {
	OrgID uuid.UUID
	Name  string
	Price pgtype.Numeric
}

func (q *Queries) CreateProduct(ctx context.Context, arg CreateProductParams) (Product, error) {
	row := q.db.QueryRow(ctx,
		`INSERT INTO products (org_id, name, price)
		 VALUES ($1, $2, $3)
		 RETURNING id, org_id, name, price, created_at`,
		arg.OrgID, arg.Name, arg.Price,
	)
	var p Product
	err := row.Scan(&p.ID, &p.OrgID, &p.Name, &p.Price, &p.CreatedAt)
	return p, err
}

type GetProductParams struct {
	ID    uuid.UUID
	OrgID uuid.UUID
}

func (q *Queries) GetProduct(ctx context.Context, arg GetProductParams) (Product, error) {
	row := q.db.QueryRow(ctx,
		`SELECT id, org_id, name, price, created_at FROM products WHERE id = $1 AND org_id = $2`,
		arg.ID, arg.OrgID,
	)
	var p Product
	err := row.Scan(&p.ID, &p.OrgID, &p.Name, &p.Price, &p.CreatedAt)
	return p, err
}

func (q *Queries) ListProducts(ctx context.Context, orgID uuid.UUID) ([]Product, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, org_id, name, price, created_at FROM products WHERE org_id = $1 ORDER BY name`,
		orgID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.OrgID, &p.Name, &p.Price, &p.CreatedAt); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}
