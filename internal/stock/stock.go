// Package stock applies bulk inventory deltas for document lifecycle
// transitions. It runs inside the caller's transaction so stock moves
// commit or roll back together with the document change.
package stock

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/lukasalvarezdev/villing-api/internal/database"
	"github.com/shopspring/decimal"
)

var ErrInvalidQuantity = errors.New("quantity must be > 0")

// Direction says which way the deltas move.
type Direction int

const (
	// Add increases on-hand quantity (purchases created, sales canceled).
	Add Direction = iota
	// Subtract decreases on-hand quantity (sales created, purchases canceled).
	Subtract
)

// Adjustment is one product's quantity change. Quantity is always
// positive; Direction determines the sign.
type Adjustment struct {
	ProductID uuid.UUID
	Quantity  decimal.Decimal
}

// Store defines the DB methods needed to adjust stock.
// Satisfied by *database.Queries (and its WithTx variant).
type Store interface {
	BulkAdjustStock(ctx context.Context, arg database.BulkAdjustStockParams) (int64, error)
}

// Adjust moves the branch's stock by the given adjustments in a single
// statement. A product listed more than once is coalesced into one
// summed delta, since the bulk statement applies at most one delta per
// stock row. Adjustments with a zero quantity are skipped; an empty
// set is a no-op. Quantities may drive stock below zero, matching the
// oversell behavior of the document flows.
func Adjust(ctx context.Context, store Store, branchID uuid.UUID, dir Direction, adjustments []Adjustment) error {
	totals := make(map[uuid.UUID]decimal.Decimal, len(adjustments))
	productIDs := make([]uuid.UUID, 0, len(adjustments))

	for i, adj := range adjustments {
		if adj.Quantity.IsNegative() {
			return fmt.Errorf("adjustment[%d]: %w", i, ErrInvalidQuantity)
		}
		if adj.Quantity.IsZero() {
			continue
		}
		if _, seen := totals[adj.ProductID]; !seen {
			productIDs = append(productIDs, adj.ProductID)
		}
		totals[adj.ProductID] = totals[adj.ProductID].Add(adj.Quantity)
	}

	if len(productIDs) == 0 {
		return nil
	}

	deltas := make([]pgtype.Numeric, len(productIDs))
	for i, id := range productIDs {
		delta := totals[id]
		if dir == Subtract {
			delta = delta.Neg()
		}
		deltas[i] = decimalToNumeric(delta)
	}

	if _, err := store.BulkAdjustStock(ctx, database.BulkAdjustStockParams{
		BranchID:   branchID,
		ProductIDs: productIDs,
		Deltas:     deltas,
	}); err != nil {
		return fmt.Errorf("bulk adjust stock: %w", err)
	}
	return nil
}

// Invert flips a direction, used when canceling a document to undo
// the adjustment its creation made.
func Invert(dir Direction) Direction {
	if dir == Add {
		return Subtract
	}
	return Add
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}
