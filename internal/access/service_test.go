package access_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmgate/farmgate/internal/access"
	"github.com/farmgate/farmgate/internal/audit"
	"github.com/farmgate/farmgate/internal/farm"
	"github.com/farmgate/farmgate/internal/permission"
	"github.com/farmgate/farmgate/internal/roletemplate"
)

type fakeTemplateRepo struct {
	templates []*roletemplate.RoleTemplate
}

func (f *fakeTemplateRepo) FindByFarm(ctx context.Context, farmID string) ([]*roletemplate.RoleTemplate, error) {
	var out []*roletemplate.RoleTemplate
	for _, t := range f.templates {
		if t.FarmID == farmID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTemplateRepo) FindByID(ctx context.Context, farmID, id string) (*roletemplate.RoleTemplate, error) {
	for _, t := range f.templates {
		if t.FarmID == farmID && t.ID == id {
			return t, nil
		}
	}
	return nil, nil
}

func (f *fakeTemplateRepo) FindByName(ctx context.Context, farmID, name string) (*roletemplate.RoleTemplate, error) {
	for _, t := range f.templates {
		if t.FarmID == farmID && t.Name == name {
			return t, nil
		}
	}
	return nil, nil
}

func (f *fakeTemplateRepo) Create(ctx context.Context, template *roletemplate.RoleTemplate) error {
	f.templates = append(f.templates, template)
	return nil
}

func (f *fakeTemplateRepo) Update(ctx context.Context, template *roletemplate.RoleTemplate) error {
	return nil
}

type fakeMemberRepo struct {
	members []*farm.Member
}

func (f *fakeMemberRepo) GetMembers(ctx context.Context, farmID string) ([]*farm.Member, error) {
	var out []*farm.Member
	for _, m := range f.members {
		if m.FarmID == farmID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMemberRepo) UpsertMember(ctx context.Context, member *farm.Member) error {
	for i, m := range f.members {
		if m.FarmID == member.FarmID && m.UserID == member.UserID {
			f.members[i] = member
			return nil
		}
	}
	f.members = append(f.members, member)
	return nil
}

type nopAudit struct{}

func (nopAudit) Log(ctx context.Context, event audit.Event) {}

func TestAccess_CheckPermission_TemplateByID(t *testing.T) {
	ctx := context.Background()
	templates := &fakeTemplateRepo{templates: []*roletemplate.RoleTemplate{
		{ID: "tpl-1", FarmID: "farm-1", Name: "Field Lead",
			Permissions: []permission.Permission{"tasks:*", "blocks:view"}},
	}}
	members := &fakeMemberRepo{members: []*farm.Member{
		{FarmID: "farm-1", UserID: "user-1", Role: "tpl-1"},
	}}
	svc := access.NewService(templates, members, nopAudit{})

	allowed, err := svc.CheckPermission(ctx, "user-1", "farm-1", "tasks:delete")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = svc.CheckPermission(ctx, "user-1", "farm-1", "blocks:edit")
	require.NoError(t, err)
	assert.False(t, allowed)
}

// TestPurpose: Validates that a non-member is denied without error;
// absence of membership is a valid deny, not a failure.
// Scope: Unit Test
// Security: fail-closed access decisions
// Test Case ID: ACC-01
func TestAccess_CheckPermission_UnknownUserDenied(t *testing.T) {
	ctx := context.Background()
	svc := access.NewService(&fakeTemplateRepo{}, &fakeMemberRepo{}, nopAudit{})

	allowed, err := svc.CheckPermission(ctx, "stranger", "farm-1", "tasks:view")
	require.NoError(t, err)
	assert.False(t, allowed)
}

// TestPurpose: Validates that a member's custom permission list fully
// replaces the template's bundle; the two are never merged.
// Scope: Unit Test
// Expected: a member narrowed to tasks:view is denied tasks:edit even
// though the assigned template grants tasks:*.
// Test Case ID: ACC-02
func TestAccess_CheckPermission_CustomPermissionsOverride(t *testing.T) {
	ctx := context.Background()
	templates := &fakeTemplateRepo{templates: []*roletemplate.RoleTemplate{
		{ID: "tpl-1", FarmID: "farm-1", Name: "Field Lead",
			Permissions: []permission.Permission{"tasks:*"}},
	}}
	members := &fakeMemberRepo{members: []*farm.Member{
		{FarmID: "farm-1", UserID: "user-1", Role: "tpl-1",
			CustomPermissions: []permission.Permission{"tasks:view"}},
	}}
	svc := access.NewService(templates, members, nopAudit{})

	allowed, err := svc.CheckPermission(ctx, "user-1", "farm-1", "tasks:view")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = svc.CheckPermission(ctx, "user-1", "farm-1", "tasks:edit")
	require.NoError(t, err)
	assert.False(t, allowed, "custom permissions replace the template set, they do not merge")
}

func TestAccess_CheckPermission_LegacyFallback(t *testing.T) {
	ctx := context.Background()
	// No templates at all: a pre-migration farm.
	members := &fakeMemberRepo{members: []*farm.Member{
		{FarmID: "farm-1", UserID: "owner-1", Role: farm.RoleOwner},
		{FarmID: "farm-1", UserID: "manager-1", Role: farm.RoleManager},
		{FarmID: "farm-1", UserID: "worker-1", Role: farm.RoleWorker},
	}}
	svc := access.NewService(&fakeTemplateRepo{}, members, nopAudit{})

	tests := []struct {
		userID   string
		required permission.Permission
		expected bool
	}{
		{"owner-1", "farm:delete", true},
		{"owner-1", "members:remove", true},
		{"manager-1", "tasks:delete", true},
		{"manager-1", "farm:delete", false},
		{"manager-1", "members:remove", false},
		{"worker-1", "tasks:create", true},
		{"worker-1", "tasks:delete", false},
		{"worker-1", "members:invite", false},
	}
	for _, tt := range tests {
		allowed, err := svc.CheckPermission(ctx, tt.userID, "farm-1", tt.required)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, allowed, "%s on %s", tt.userID, tt.required)
	}
}

func TestAccess_CheckPermission_TemplateByName(t *testing.T) {
	ctx := context.Background()
	templates := &fakeTemplateRepo{templates: []*roletemplate.RoleTemplate{
		{ID: "tpl-9", FarmID: "farm-1", Name: roletemplate.NameWorker,
			Permissions: append([]permission.Permission(nil), roletemplate.WorkerPermissions...)},
	}}
	// The role field holds a template name rather than an ID.
	members := &fakeMemberRepo{members: []*farm.Member{
		{FarmID: "farm-1", UserID: "user-1", Role: roletemplate.NameWorker},
	}}
	svc := access.NewService(templates, members, nopAudit{})

	allowed, err := svc.CheckPermission(ctx, "user-1", "farm-1", "attachments:create")
	require.NoError(t, err)
	assert.True(t, allowed)
}

// TestPurpose: Validates the deprecated hierarchy path and its
// owner-always-wins parity with the permission path.
// Scope: Unit Test
// Test Case ID: ACC-03
func TestAccess_HasRoleLevel(t *testing.T) {
	ctx := context.Background()
	templates := &fakeTemplateRepo{templates: []*roletemplate.RoleTemplate{
		{ID: "tpl-owner", FarmID: "farm-1", Name: roletemplate.NameOwner, IsSystemRole: true,
			Permissions: []permission.Permission{permission.Wildcard}},
		{ID: "tpl-custom", FarmID: "farm-1", Name: "Field Lead",
			Permissions: []permission.Permission{"tasks:*"}},
	}}
	members := &fakeMemberRepo{members: []*farm.Member{
		{FarmID: "farm-1", UserID: "owner-1", Role: "tpl-owner"},
		{FarmID: "farm-1", UserID: "legacy-manager", Role: farm.RoleManager},
		{FarmID: "farm-1", UserID: "lead-1", Role: "tpl-custom"},
	}}
	svc := access.NewService(templates, members, nopAudit{})

	// Owner via template satisfies every level.
	for _, minimum := range []string{farm.RoleWorker, farm.RoleManager, farm.RoleOwner} {
		ok, err := svc.HasRoleLevel(ctx, "owner-1", "farm-1", minimum)
		require.NoError(t, err)
		assert.True(t, ok, "owner should satisfy %s", minimum)
	}

	// Owner parity with the permission path.
	allowed, err := svc.CheckPermission(ctx, "owner-1", "farm-1", "farm:delete")
	require.NoError(t, err)
	assert.True(t, allowed)

	ok, err := svc.HasRoleLevel(ctx, "legacy-manager", "farm-1", farm.RoleManager)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = svc.HasRoleLevel(ctx, "legacy-manager", "farm-1", farm.RoleOwner)
	require.NoError(t, err)
	assert.False(t, ok)

	// Custom templates rank at worker level on this path.
	ok, err = svc.HasRoleLevel(ctx, "lead-1", "farm-1", farm.RoleWorker)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = svc.HasRoleLevel(ctx, "lead-1", "farm-1", farm.RoleManager)
	require.NoError(t, err)
	assert.False(t, ok)

	// Absent member is a plain deny.
	ok, err = svc.HasRoleLevel(ctx, "stranger", "farm-1", farm.RoleWorker)
	require.NoError(t, err)
	assert.False(t, ok)

	// Unknown minimum role is an error, not a silent allow.
	_, err = svc.HasRoleLevel(ctx, "owner-1", "farm-1", "admin")
	assert.Error(t, err)
}

func TestAccess_AssignRole(t *testing.T) {
	ctx := context.Background()
	templates := &fakeTemplateRepo{templates: []*roletemplate.RoleTemplate{
		{ID: "tpl-1", FarmID: "farm-1", Name: "Field Lead",
			Permissions: []permission.Permission{"tasks:*"}},
	}}
	members := &fakeMemberRepo{members: []*farm.Member{
		{FarmID: "farm-1", UserID: "owner-1", Role: farm.RoleOwner},
	}}
	svc := access.NewService(templates, members, nopAudit{})

	require.NoError(t, svc.AssignRole(ctx, "farm-1", "user-1", "tpl-1", nil, "owner-1"))

	// Upsert: reassigning replaces the record instead of duplicating it.
	require.NoError(t, svc.AssignRole(ctx, "farm-1", "user-1", farm.RoleWorker, nil, "owner-1"))
	got, err := members.GetMembers(ctx, "farm-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, farm.RoleWorker, got[1].Role)

	// A role that resolves to nothing is rejected.
	err = svc.AssignRole(ctx, "farm-1", "user-2", "no-such-role", nil, "owner-1")
	assert.Equal(t, roletemplate.CodeTemplateNotFound, roletemplate.ErrorCode(err))

	// Custom permissions are validated.
	err = svc.AssignRole(ctx, "farm-1", "user-2", "tpl-1",
		[]permission.Permission{"bogus:thing"}, "owner-1")
	assert.Equal(t, roletemplate.CodeInvalidPermissions, roletemplate.ErrorCode(err))
}

// TestPurpose: Validates that assigning roles requires the members:edit
// permission on the target farm, closing the self-service privilege
// escalation path.
// Scope: Unit Test
// Security: privilege escalation prevention
// Expected: a non-member cannot grant themselves the owner role and
// still fails every access check afterwards; a worker-level member is
// equally denied.
// Test Case ID: ACC-04
func TestAccess_AssignRole_RequiresMemberManagement(t *testing.T) {
	ctx := context.Background()
	templates := &fakeTemplateRepo{}
	members := &fakeMemberRepo{members: []*farm.Member{
		{FarmID: "farm-1", UserID: "worker-1", Role: farm.RoleWorker},
	}}
	svc := access.NewService(templates, members, nopAudit{})

	// A complete stranger may not grant themselves anything.
	err := svc.AssignRole(ctx, "farm-1", "attacker", farm.RoleOwner, nil, "attacker")
	assert.Equal(t, roletemplate.CodePermissionDenied, roletemplate.ErrorCode(err))

	allowed, err := svc.CheckPermission(ctx, "attacker", "farm-1", "farm:delete")
	require.NoError(t, err)
	assert.False(t, allowed, "denied assignment must leave no membership behind")

	// Workers hold members:view only, never members:edit.
	err = svc.AssignRole(ctx, "farm-1", "worker-1", farm.RoleOwner, nil, "worker-1")
	assert.Equal(t, roletemplate.CodePermissionDenied, roletemplate.ErrorCode(err))

	// An owner-level actor still can.
	members.members = append(members.members,
		&farm.Member{FarmID: "farm-1", UserID: "owner-1", Role: farm.RoleOwner})
	require.NoError(t, svc.AssignRole(ctx, "farm-1", "user-2", farm.RoleWorker, nil, "owner-1"))
}
