package enum

// ── Document families (CHECK constrained in DB) ──

const (
	DocumentKindSaleInvoice      = "SALE_INVOICE"
	DocumentKindSaleRemision     = "SALE_REMISION"
	DocumentKindPurchaseInvoice  = "PURCHASE_INVOICE"
	DocumentKindPurchaseRemision = "PURCHASE_REMISION"
)

// DocumentKinds lists every valid document family.
var DocumentKinds = []string{
	DocumentKindSaleInvoice,
	DocumentKindSaleRemision,
	DocumentKindPurchaseInvoice,
	DocumentKindPurchaseRemision,
}

const (
	PaymentMethodCash       = "CASH"
	PaymentMethodCreditCard = "CREDIT_CARD"
	PaymentMethodTransfer   = "TRANSFER"
)

// ── Roles (CHECK constrained in DB) ──

const (
	UserRoleAdmin      = "ADMIN"
	UserRoleAccountant = "ACCOUNTANT"
	UserRoleSeller     = "SELLER"
)

// ── Action grants checked by the authorization service ──

const (
	ActionDocumentCreate = "document:create"
	ActionDocumentCancel = "document:cancel"
	ActionPaymentCreate  = "payment:create"
	ActionPaymentCancel  = "payment:cancel"
	ActionReportExport   = "report:export"
)
