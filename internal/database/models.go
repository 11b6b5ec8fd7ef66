package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Organization struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
}

type Branch struct {
	ID        uuid.UUID
	OrgID     uuid.UUID
	Name      string
	Address   pgtype.Text
	CreatedAt time.Time
}

type User struct {
	ID             uuid.UUID
	OrgID          uuid.UUID
	Email          string
	HashedPassword string
	FullName       string
	Role           string
	IsActive       bool
	CreatedAt      time.Time
}

type Product struct {
	ID        uuid.UUID
	OrgID     uuid.UUID
	Name      string
	Price     pgtype.Numeric
	CreatedAt time.Time
}

type ProductStock struct {
	ProductID uuid.UUID
	BranchID  uuid.UUID
	Quantity  pgtype.Numeric
	UpdatedAt time.Time
}

type Supplier struct {
	ID        uuid.UUID
	OrgID     uuid.UUID
	Name      string
	Email     pgtype.Text
	CreatedAt time.Time
}

type Document struct {
	ID               uuid.UUID
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
	CanceledAt       pgtype.Timestamptz
	CreatedBy        uuid.UUID
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type DocumentItem struct {
	ID          uuid.UUID
	DocumentID  uuid.UUID
	ProductID   pgtype.UUID
	Description string
	Quantity    pgtype.Numeric
	UnitPrice   pgtype.Numeric
}

type Payment struct {
	ID         uuid.UUID
	DocumentID uuid.UUID
	Amount     pgtype.Numeric
	Method     string
	CreatedBy  uuid.UUID
	CreatedAt  time.Time
}
