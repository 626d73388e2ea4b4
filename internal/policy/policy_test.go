package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/helpdesk/internal/domain"
)

func TestCanPerform(t *testing.T) {
	tests := []struct {
		name    string
		role    domain.Role
		action  Action
		ownerID string
		actorID string
		want    bool
	}{
		{"owner views own ticket", domain.RoleUser, ActionViewOwn, "user-1", "user-1", true},
		{"user cannot view another's ticket", domain.RoleUser, ActionViewOwn, "user-1", "user-2", false},
		{"support views any ticket", domain.RoleSupport, ActionViewOwn, "user-1", "staff-1", true},
		{"admin views any ticket", domain.RoleAdmin, ActionViewOwn, "user-1", "staff-1", true},
		{"user cannot list all", domain.RoleUser, ActionViewAny, "", "user-1", false},
		{"support lists all", domain.RoleSupport, ActionViewAny, "", "staff-1", true},
		{"user cannot assign", domain.RoleUser, ActionAssign, "", "user-1", false},
		{"support assigns", domain.RoleSupport, ActionAssign, "", "staff-1", true},
		{"user cannot change status", domain.RoleUser, ActionChangeStatus, "", "user-1", false},
		{"admin changes status", domain.RoleAdmin, ActionChangeStatus, "", "staff-1", true},
		{"owner cannot delete own ticket", domain.RoleUser, ActionDeleteTicket, "user-1", "user-1", false},
		{"admin deletes", domain.RoleAdmin, ActionDeleteTicket, "user-1", "staff-1", true},
		{"user cannot manage categories", domain.RoleUser, ActionManageCategories, "", "user-1", false},
		{"support manages categories", domain.RoleSupport, ActionManageCategories, "", "staff-1", true},
		{"unknown action denied", domain.RoleAdmin, Action("export"), "", "staff-1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CanPerform(tt.role, tt.action, tt.ownerID, tt.actorID)
			assert.Equal(t, tt.want, got)
		})
	}
}
