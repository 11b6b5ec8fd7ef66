package authz

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lukasalvarezdev/villing-api/internal/enum"
)

// TenantContext identifies who is acting and on which organization and
// branch. Services take it explicitly; nothing is read from ambient
// state, and every query filters by OrgID.
type TenantContext struct {
	OrgID    uuid.UUID
	BranchID uuid.UUID
	ActorID  uuid.UUID
	Role     string
}

// ErrForbidden is returned when the actor's role does not carry the
// requested action grant. Checked before any transaction is opened.
var ErrForbidden = errors.New("forbidden")

// grants maps a role to the actions it may perform. ADMIN is handled
// separately and may perform everything.
var grants = map[string]map[string]bool{
	enum.UserRoleAccountant: {
		enum.ActionDocumentCreate: true,
		enum.ActionDocumentCancel: true,
		enum.ActionPaymentCreate:  true,
		enum.ActionPaymentCancel:  true,
		enum.ActionReportExport:   true,
	},
	enum.UserRoleSeller: {
		enum.ActionDocumentCreate: true,
		enum.ActionPaymentCreate:  true,
	},
}

// Validate reports whether the given role carries the action grant.
func Validate(role, action string) error {
	if role == enum.UserRoleAdmin {
		return nil
	}
	if grants[role][action] {
		return nil
	}
	return fmt.Errorf("%w: role %s lacks grant %s", ErrForbidden, role, action)
}
