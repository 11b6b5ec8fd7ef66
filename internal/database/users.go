package database

import (
	"context"

	"github.com/google/uuid"
)

const userColumns = `id, org_id, email, hashed_password, full_name, role, is_active, created_at`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`,
		email,
	)
	var u User
	err := row.Scan(&u.ID, &u.OrgID, &u.Email, &u.HashedPassword, &u.FullName, &u.Role, &u.IsActive, &u.CreatedAt)
	return u, err
}

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		id,
	)
	var u User
	err := row.Scan(&u.ID, &u.OrgID, &u.Email, &u.HashedPassword, &u.FullName, &u.Role, &u.IsActive, &u.CreatedAt)
	return u, err
}

type CreateUserParams struct {
	OrgID          uuid.UUID
	Email          string
	HashedPassword string
	FullName       string
	Role           string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRow(ctx,
		`INSERT INTO users (org_id, email, hashed_password, full_name, role)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+userColumns,
		arg.OrgID, arg.Email, arg.HashedPassword, arg.FullName, arg.Role,
	)
	var u User
	err := row.Scan(&u.ID, &u.OrgID, &u.Email, &u.HashedPassword, &u.FullName, &u.Role, &u.IsActive, &u.CreatedAt)
	return u, err
}
