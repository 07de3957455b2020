package roletemplate_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmgate/farmgate/internal/audit"
	"github.com/farmgate/farmgate/internal/farm"
	"github.com/farmgate/farmgate/internal/permission"
	"github.com/farmgate/farmgate/internal/roletemplate"
)

// fakeTemplateRepo implements roletemplate.Repository in memory, with
// per-farm write failure injection.
type fakeTemplateRepo struct {
	templates map[string][]*roletemplate.RoleTemplate
	failFarms map[string]error
}

func newFakeTemplateRepo() *fakeTemplateRepo {
	return &fakeTemplateRepo{
		templates: make(map[string][]*roletemplate.RoleTemplate),
		failFarms: make(map[string]error),
	}
}

func (f *fakeTemplateRepo) FindByFarm(ctx context.Context, farmID string) ([]*roletemplate.RoleTemplate, error) {
	return f.templates[farmID], nil
}

func (f *fakeTemplateRepo) FindByID(ctx context.Context, farmID, id string) (*roletemplate.RoleTemplate, error) {
	for _, t := range f.templates[farmID] {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, nil
}

func (f *fakeTemplateRepo) FindByName(ctx context.Context, farmID, name string) (*roletemplate.RoleTemplate, error) {
	for _, t := range f.templates[farmID] {
		if t.Name == name {
			return t, nil
		}
	}
	return nil, nil
}

func (f *fakeTemplateRepo) Create(ctx context.Context, template *roletemplate.RoleTemplate) error {
	if err := f.failFarms[template.FarmID]; err != nil {
		return err
	}
	f.templates[template.FarmID] = append(f.templates[template.FarmID], template)
	return nil
}

func (f *fakeTemplateRepo) Update(ctx context.Context, template *roletemplate.RoleTemplate) error {
	if err := f.failFarms[template.FarmID]; err != nil {
		return err
	}
	for i, t := range f.templates[template.FarmID] {
		if t.ID == template.ID {
			f.templates[template.FarmID][i] = template
			return nil
		}
	}
	return fmt.Errorf("template %s not found", template.ID)
}

// fakeFarmRepo implements farm.Repository in memory.
type fakeFarmRepo struct {
	farms []*farm.Farm
}

func (f *fakeFarmRepo) GetByID(ctx context.Context, id string) (*farm.Farm, error) {
	for _, fm := range f.farms {
		if fm.ID == id {
			return fm, nil
		}
	}
	return nil, farm.ErrFarmNotFound
}

func (f *fakeFarmRepo) ListByOwner(ctx context.Context, ownerID string) ([]*farm.Farm, error) {
	var out []*farm.Farm
	for _, fm := range f.farms {
		if fm.OwnerID == ownerID {
			out = append(out, fm)
		}
	}
	return out, nil
}

type nopAudit struct{}

func (nopAudit) Log(ctx context.Context, event audit.Event) {}

func newService(repo *fakeTemplateRepo, farms *fakeFarmRepo) *roletemplate.Service {
	return roletemplate.NewService(repo, farms, nopAudit{})
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	repo := newFakeTemplateRepo()
	svc := newService(repo, &fakeFarmRepo{})

	created, err := svc.Create(ctx, "farm-1", "Field Lead", "Leads field work",
		[]permission.Permission{"tasks:*", "blocks:view"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.IsSystemRole)
	assert.False(t, created.CreatedAt.IsZero())

	// Same name in the same farm collides.
	_, err = svc.Create(ctx, "farm-1", "Field Lead", "", []permission.Permission{"tasks:view"})
	assert.Equal(t, roletemplate.CodeDuplicateName, roletemplate.ErrorCode(err))

	// Same name in a different farm is fine.
	_, err = svc.Create(ctx, "farm-2", "Field Lead", "", []permission.Permission{"tasks:view"})
	assert.NoError(t, err)
}

func TestService_Create_Validation(t *testing.T) {
	ctx := context.Background()
	svc := newService(newFakeTemplateRepo(), &fakeFarmRepo{})

	// All draft violations reported at once.
	_, err := svc.Create(ctx, "", "", "", nil)
	require.Error(t, err)
	assert.Equal(t, roletemplate.CodeValidation, roletemplate.ErrorCode(err))
	msg := roletemplate.ErrorMessage(err)
	assert.Contains(t, msg, "name is required")
	assert.Contains(t, msg, "farm id is required")
	assert.Contains(t, msg, "at least one permission is required")

	// Invalid tokens are enumerated.
	_, err = svc.Create(ctx, "farm-1", "Scout", "",
		[]permission.Permission{"tasks:view", "bogus:thing", "tasks:fly"})
	require.Error(t, err)
	assert.Equal(t, roletemplate.CodeInvalidPermissions, roletemplate.ErrorCode(err))
	assert.Contains(t, roletemplate.ErrorMessage(err), "bogus:thing")
	assert.Contains(t, roletemplate.ErrorMessage(err), "tasks:fly")
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	repo := newFakeTemplateRepo()
	svc := newService(repo, &fakeFarmRepo{})

	created, err := svc.Create(ctx, "farm-1", "Field Lead", "original",
		[]permission.Permission{"tasks:*"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, "farm-1", "missing", roletemplate.UpdateFields{})
	assert.Equal(t, roletemplate.CodeTemplateNotFound, roletemplate.ErrorCode(err))

	// Partial update: only the description changes.
	desc := "updated"
	updated, err := svc.Update(ctx, "farm-1", created.ID, roletemplate.UpdateFields{Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "Field Lead", updated.Name)
	assert.Equal(t, "updated", updated.Description)
	assert.Equal(t, []permission.Permission{"tasks:*"}, updated.Permissions)

	// Renaming onto an existing name collides.
	_, err = svc.Create(ctx, "farm-1", "Scout", "", []permission.Permission{"crops:view"})
	require.NoError(t, err)
	name := "Scout"
	_, err = svc.Update(ctx, "farm-1", created.ID, roletemplate.UpdateFields{Name: &name})
	assert.Equal(t, roletemplate.CodeDuplicateName, roletemplate.ErrorCode(err))

	// Invalid permission replacement is rejected.
	_, err = svc.Update(ctx, "farm-1", created.ID, roletemplate.UpdateFields{
		Permissions: []permission.Permission{"nope"},
	})
	assert.Equal(t, roletemplate.CodeInvalidPermissions, roletemplate.ErrorCode(err))
}

// TestPurpose: Validates that system role templates are immutable at the
// service layer regardless of which fields a caller supplies.
// Scope: Unit Test
// Security: prevents privilege tampering with the Owner template
// Expected: Update always fails with CANNOT_EDIT_SYSTEM_ROLE.
// Test Case ID: TPL-01
func TestService_Update_SystemRoleImmutable(t *testing.T) {
	ctx := context.Background()
	repo := newFakeTemplateRepo()
	svc := newService(repo, &fakeFarmRepo{})

	_, err := svc.MigrateFarm(ctx, "farm-1")
	require.NoError(t, err)

	owner, err := repo.FindByName(ctx, "farm-1", roletemplate.NameOwner)
	require.NoError(t, err)
	require.NotNil(t, owner)

	name := "Renamed"
	desc := "changed"
	for _, fields := range []roletemplate.UpdateFields{
		{},
		{Name: &name},
		{Description: &desc},
		{Permissions: []permission.Permission{"tasks:view"}},
	} {
		_, err := svc.Update(ctx, "farm-1", owner.ID, fields)
		assert.Equal(t, roletemplate.CodeCannotEditSystemRole, roletemplate.ErrorCode(err))
	}
}

func TestService_MigrateFarm_Idempotent(t *testing.T) {
	ctx := context.Background()
	repo := newFakeTemplateRepo()
	svc := newService(repo, &fakeFarmRepo{})

	first, err := svc.MigrateFarm(ctx, "farm-1")
	require.NoError(t, err)
	assert.Equal(t, 3, first.Created)
	assert.False(t, first.AlreadyExisted)

	second, err := svc.MigrateFarm(ctx, "farm-1")
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)
	assert.True(t, second.AlreadyExisted)

	templates, _ := repo.FindByFarm(ctx, "farm-1")
	assert.Len(t, templates, 3)
}

func TestService_MigrateAllUserFarms(t *testing.T) {
	ctx := context.Background()
	repo := newFakeTemplateRepo()
	farms := &fakeFarmRepo{farms: []*farm.Farm{
		{ID: "farm-1", Name: "North", OwnerID: "user-1"},
		{ID: "farm-2", Name: "South", OwnerID: "user-1"},
		{ID: "farm-3", Name: "Other", OwnerID: "user-2"},
	}}
	svc := newService(repo, farms)

	// farm-2 was already migrated earlier.
	_, err := svc.MigrateFarm(ctx, "farm-2")
	require.NoError(t, err)

	results, err := svc.MigrateAllUserFarms(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 3, results[0].Created)
	assert.True(t, results[1].AlreadyExisted)
}

// TestPurpose: Validates the cross-farm sync end to end: custom templates
// propagate to every other farm the user owns, system roles do not.
// Scope: Unit Test
// Expected: target farm gains an identical "Field Lead" template; its own
// Owner template is untouched.
// Test Case ID: TPL-02
func TestService_SyncAcrossFarms(t *testing.T) {
	ctx := context.Background()
	repo := newFakeTemplateRepo()
	farms := &fakeFarmRepo{farms: []*farm.Farm{
		{ID: "farm-1", Name: "North", OwnerID: "user-1"},
		{ID: "farm-2", Name: "South", OwnerID: "user-1"},
	}}
	svc := newService(repo, farms)

	for _, id := range []string{"farm-1", "farm-2"} {
		_, err := svc.MigrateFarm(ctx, id)
		require.NoError(t, err)
	}
	_, err := svc.Create(ctx, "farm-1", "Field Lead", "Leads field work",
		[]permission.Permission{"tasks:*", "blocks:view"})
	require.NoError(t, err)

	ownerBefore, _ := repo.FindByName(ctx, "farm-2", roletemplate.NameOwner)
	require.NotNil(t, ownerBefore)

	results, err := svc.SyncAcrossFarms(ctx, "user-1", "farm-1")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "farm-2", results[0].FarmID)
	assert.True(t, results[0].Success)

	synced, _ := repo.FindByName(ctx, "farm-2", "Field Lead")
	require.NotNil(t, synced)
	assert.Equal(t, []permission.Permission{"tasks:*", "blocks:view"}, synced.Permissions)
	assert.False(t, synced.IsSystemRole)
	assert.Equal(t, "farm-2", synced.FarmID)
	assert.NotEqual(t, "", synced.ID)

	// The target's Owner template is not touched by the sync.
	ownerAfter, _ := repo.FindByName(ctx, "farm-2", roletemplate.NameOwner)
	require.NotNil(t, ownerAfter)
	assert.True(t, ownerAfter.IsSystemRole)
	assert.Equal(t, ownerBefore.ID, ownerAfter.ID)
	assert.Equal(t, ownerBefore.UpdatedAt, ownerAfter.UpdatedAt)
}

func TestService_SyncAcrossFarms_OwnershipRequired(t *testing.T) {
	ctx := context.Background()
	repo := newFakeTemplateRepo()
	farms := &fakeFarmRepo{farms: []*farm.Farm{
		{ID: "farm-1", Name: "North", OwnerID: "user-1"},
	}}
	svc := newService(repo, farms)

	_, err := svc.SyncAcrossFarms(ctx, "user-2", "farm-1")
	assert.Equal(t, roletemplate.CodePermissionDenied, roletemplate.ErrorCode(err))

	_, err = svc.SyncAcrossFarms(ctx, "user-1", "missing-farm")
	assert.Equal(t, roletemplate.CodeFarmNotFound, roletemplate.ErrorCode(err))
}

// TestPurpose: Validates that a same-named system role on a target farm
// is skipped silently during sync, never overwritten.
// Scope: Unit Test
// Security: system role immutability across the sync path
// Test Case ID: TPL-03
func TestService_SyncAcrossFarms_SkipsSystemRoleOnTarget(t *testing.T) {
	ctx := context.Background()
	repo := newFakeTemplateRepo()
	farms := &fakeFarmRepo{farms: []*farm.Farm{
		{ID: "farm-1", Name: "North", OwnerID: "user-1"},
		{ID: "farm-2", Name: "South", OwnerID: "user-1"},
	}}
	svc := newService(repo, farms)

	_, err := svc.Create(ctx, "farm-1", "Gatekeeper", "source version",
		[]permission.Permission{"members:*"})
	require.NoError(t, err)

	// The target carries a system template under the colliding name.
	target := roletemplate.NewOwnerTemplate("farm-2")
	target.ID = "sys-1"
	target.Name = "Gatekeeper"
	require.NoError(t, repo.Create(ctx, target))

	results, err := svc.SyncAcrossFarms(ctx, "user-1", "farm-1")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)

	after, _ := repo.FindByName(ctx, "farm-2", "Gatekeeper")
	require.NotNil(t, after)
	assert.True(t, after.IsSystemRole)
	assert.Equal(t, "sys-1", after.ID)
	assert.Equal(t, []permission.Permission{permission.Wildcard}, after.Permissions)
}

// TestPurpose: Validates that one target farm's store failure is isolated:
// other targets still receive updates and every target gets a result entry.
// Scope: Unit Test
// Expected: 3 result entries, exactly one marked failed.
// Test Case ID: TPL-04
func TestService_SyncAcrossFarms_PartialFailureIsolation(t *testing.T) {
	ctx := context.Background()
	repo := newFakeTemplateRepo()
	farms := &fakeFarmRepo{farms: []*farm.Farm{
		{ID: "farm-src", Name: "Source", OwnerID: "user-1"},
		{ID: "farm-a", Name: "A", OwnerID: "user-1"},
		{ID: "farm-b", Name: "B", OwnerID: "user-1"},
		{ID: "farm-c", Name: "C", OwnerID: "user-1"},
	}}
	svc := newService(repo, farms)

	_, err := svc.Create(ctx, "farm-src", "Field Lead", "",
		[]permission.Permission{"tasks:*"})
	require.NoError(t, err)

	repo.failFarms["farm-b"] = errors.New("connection reset")

	results, err := svc.SyncAcrossFarms(ctx, "user-1", "farm-src")
	require.NoError(t, err)
	require.Len(t, results, 3)

	failed := 0
	for _, res := range results {
		if !res.Success {
			failed++
			assert.Equal(t, "farm-b", res.FarmID)
			assert.Contains(t, res.Error, "connection reset")
		}
	}
	assert.Equal(t, 1, failed)

	for _, farmID := range []string{"farm-a", "farm-c"} {
		tpl, _ := repo.FindByName(ctx, farmID, "Field Lead")
		assert.NotNil(t, tpl, "farm %s should have received the template", farmID)
	}
}
