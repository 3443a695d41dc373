// Package authz centralizes access decisions. Handlers ask a single
// question: may this user perform this action on a resource owned by that
// member? Keeping the rules in one table makes them auditable instead of
// being scattered across handlers.
package authz

import (
	"errors"

	"github.com/mlukasik/shelfkeeper/internal/entities"
)

var ErrPermissionDenied = errors.New("permission denied")

// Action names a protected operation.
type Action string

const (
	ActionManageCatalog     Action = "catalog:manage"     // create, update, delete books
	ActionReturnBook        Action = "borrow:return"      // mark a borrow returned
	ActionViewBorrows       Action = "borrows:view"       // read borrow records
	ActionViewReservations  Action = "reservations:view"  // read reservation records
	ActionCancelReservation Action = "reservations:cancel"
	ActionDeleteReview      Action = "reviews:delete"
	ActionViewStatistics    Action = "statistics:view" // aggregate lending statistics
	ActionViewAuditTrail    Action = "audit:view"      // read the audit trail
)

// ownerBound actions are permitted to the resource owner as well as staff.
// Passing ownerID 0 means the resource belongs to no single member, which
// leaves only staff. Everything else in the table is staff-only.
var ownerBound = map[Action]bool{
	ActionReturnBook:        true,
	ActionViewBorrows:       true,
	ActionViewReservations:  true,
	ActionCancelReservation: true,
	ActionDeleteReview:      true,
}

var staffOnly = map[Action]bool{
	ActionManageCatalog:  true,
	ActionViewStatistics: true,
	ActionViewAuditTrail: true,
}

// Authorize decides whether user may perform action on a resource owned by
// ownerID. Staff may do anything listed; members are limited to their own
// resources for owner-bound actions. ownerID is ignored for staff-only
// actions.
func Authorize(user *entities.User, action Action, ownerID uint) error {
	if user == nil {
		return ErrPermissionDenied
	}
	if user.IsStaff {
		return nil
	}

	if ownerBound[action] {
		if user.ID == ownerID {
			return nil
		}
		return ErrPermissionDenied
	}

	if staffOnly[action] {
		return ErrPermissionDenied
	}

	// Unknown actions are denied rather than silently allowed.
	return ErrPermissionDenied
}
