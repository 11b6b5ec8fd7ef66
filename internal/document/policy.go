package document

import (
	"errors"

	"github.com/lukasalvarezdev/villing-api/internal/enum"
	"github.com/lukasalvarezdev/villing-api/internal/stock"
)

var ErrInvalidKind = errors.New("invalid document kind")

// Policy captures everything that differs between the four document
// families. Creation and cancellation share one code path and consult
// the policy for the stock direction and the display prefix.
type Policy struct {
	Kind            string
	Prefix          string
	CreateDirection stock.Direction
	CancelDirection stock.Direction
}

var policies = map[string]Policy{
	enum.DocumentKindSaleInvoice: {
		Kind:            enum.DocumentKindSaleInvoice,
		Prefix:          "SI",
		CreateDirection: stock.Subtract,
		CancelDirection: stock.Add,
	},
	enum.DocumentKindSaleRemision: {
		Kind:            enum.DocumentKindSaleRemision,
		Prefix:          "SR",
		CreateDirection: stock.Subtract,
		CancelDirection: stock.Add,
	},
	enum.DocumentKindPurchaseInvoice: {
		Kind:            enum.DocumentKindPurchaseInvoice,
		Prefix:          "PI",
		CreateDirection: stock.Add,
		CancelDirection: stock.Subtract,
	},
	enum.DocumentKindPurchaseRemision: {
		Kind:            enum.DocumentKindPurchaseRemision,
		Prefix:          "PR",
		CreateDirection: stock.Add,
		CancelDirection: stock.Subtract,
	},
}

// PolicyFor resolves the lifecycle policy for a document kind.
func PolicyFor(kind string) (Policy, error) {
	p, ok := policies[kind]
	if !ok {
		return Policy{}, ErrInvalidKind
	}
	return p, nil
}
