package roletemplate

import (
	"testing"

	"github.com/farmgate/farmgate/internal/permission"
	"github.com/stretchr/testify/assert"
)

func TestTemplate_Factories(t *testing.T) {
	owner := NewOwnerTemplate("farm-1")
	assert.Equal(t, NameOwner, owner.Name)
	assert.True(t, owner.IsSystemRole)
	assert.Equal(t, []permission.Permission{permission.Wildcard}, owner.Permissions)

	manager := NewManagerTemplate("farm-1")
	assert.Equal(t, NameManager, manager.Name)
	assert.False(t, manager.IsSystemRole)
	assert.Empty(t, permission.Validate(manager.Permissions))

	worker := NewWorkerTemplate("farm-1")
	assert.Equal(t, NameWorker, worker.Name)
	assert.False(t, worker.IsSystemRole)
	assert.Empty(t, permission.Validate(worker.Permissions))

	// Workers can work tasks but never delete them.
	assert.True(t, permission.Has(worker.Permissions, "tasks:edit"))
	assert.False(t, permission.Has(worker.Permissions, "tasks:delete"))

	// Factories must not share backing arrays with the bundle vars.
	manager.Permissions[0] = "crops:view"
	assert.Equal(t, permission.Permission("tasks:*"), ManagerPermissions[0])
}

func TestTemplate_ValidateDraft(t *testing.T) {
	valid := &RoleTemplate{
		FarmID:      "farm-1",
		Name:        "Field Lead",
		Permissions: []permission.Permission{"tasks:*"},
	}
	assert.Empty(t, ValidateDraft(valid))

	// Every violated rule is reported, not just the first.
	empty := &RoleTemplate{}
	violations := ValidateDraft(empty)
	assert.Len(t, violations, 3)

	blankName := &RoleTemplate{
		FarmID:      "farm-1",
		Name:        "   ",
		Permissions: []permission.Permission{"tasks:view"},
	}
	assert.Equal(t, []string{"name is required"}, ValidateDraft(blankName))
}

func TestTemplate_CanEditCanDelete(t *testing.T) {
	system := &RoleTemplate{Name: NameOwner, IsSystemRole: true}
	custom := &RoleTemplate{Name: "Field Lead", IsSystemRole: false}

	assert.False(t, CanEdit(system))
	assert.False(t, CanDelete(system))
	assert.True(t, CanEdit(custom))
	assert.True(t, CanDelete(custom))
}
