package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

func (q *Queries) CreateOrganization(ctx context.Context, name string) (Organization, error) {
	row := q.db.QueryRow(ctx,
		`INSERT INTO organizations (name) VALUES ($1) RETURNING id, name, created_at`,
		name,
	)
	var o Organization
	err := row.Scan(&o.ID, &o.Name, &o.CreatedAt)
	return o, err
}

type CreateBranchParams struct {
	OrgID   uuid.UUID
	Name    string
	Address pgtype.Text
}

func (q *Queries) CreateBranch(ctx context.Context, arg CreateBranchParams) (Branch, error) {
	row := q.db.QueryRow(ctx,
		`INSERT INTO branches (org_id, name, address)
		 VALUES ($1, $2, $3)
		 RETURNING id, org_id, name, address, created_at`,
		arg.OrgID, arg.Name, arg.Address,
	)
	var b Branch
	err := row.Scan(&b.ID, &b.OrgID, &b.Name, &b.Address, &b.CreatedAt)
	return b, err
}

type GetBranchParams struct {
	ID    uuid.UUID
	OrgID uuid.UUID
}

func (q *Queries) GetBranch(ctx context.Context, arg GetBranchParams) (Branch, error) {
	row := q.db.QueryRow(ctx,
		`SELECT id, org_id, name, address, created_at FROM branches WHERE id = $1 AND org_id = $2`,
		arg.ID, arg.OrgID,
	)
	var b Branch
	err := row.Scan(&b.ID, &b.OrgID, &b.Name, &b.Address, &b.CreatedAt)
	return b, err
}
