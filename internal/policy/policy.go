// Package policy decides whether an actor may perform an action on a
// resource. Role capabilities live in one table here instead of ad hoc
// role comparisons at call sites.
package policy

import "github.com/spec-kit/helpdesk/internal/domain"

// Action enumerates the operations gated by the policy.
type Action string

const (
	ActionViewOwn          Action = "view_own"
	ActionViewAny          Action = "view_any"
	ActionAssign           Action = "assign"
	ActionChangeStatus     Action = "change_status"
	ActionDeleteTicket     Action = "delete_ticket"
	ActionManageCategories Action = "manage_categories"
)

// staffActions require a staff-capable role regardless of ownership.
var staffActions = map[Action]struct{}{
	ActionViewAny:          {},
	ActionAssign:           {},
	ActionChangeStatus:     {},
	ActionDeleteTicket:     {},
	ActionManageCategories: {},
}

// CanPerform reports whether the actor may perform the action.
// ActionViewOwn is granted to the resource owner and to staff; all other
// actions require a staff-capable role.
func CanPerform(actorRole domain.Role, action Action, resourceOwnerID, actorID string) bool {
	if action == ActionViewOwn {
		if resourceOwnerID != "" && resourceOwnerID == actorID {
			return true
		}
		return actorRole.IsStaff()
	}
	if _, ok := staffActions[action]; ok {
		return actorRole.IsStaff()
	}
	return false
}
