package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/farmgate/farmgate/internal/permission"
	"github.com/farmgate/farmgate/internal/roletemplate"
)

// RoleTemplateRepository implements roletemplate.Repository
type RoleTemplateRepository struct {
	db *DB
}

// NewRoleTemplateRepository creates a new role template repository
func NewRoleTemplateRepository(db *DB) *RoleTemplateRepository {
	return &RoleTemplateRepository{db: db}
}

// FindByFarm retrieves all role templates for a farm
func (r *RoleTemplateRepository) FindByFarm(ctx context.Context, farmID string) ([]*roletemplate.RoleTemplate, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, farm_id, name, description, permissions, is_system_role, created_at, updated_at
		FROM role_templates
		WHERE farm_id = $1
	`, farmID)
	if err != nil {
		return nil, fmt.Errorf("failed to get role templates: %w", err)
	}
	defer rows.Close()

	var templates []*roletemplate.RoleTemplate
	for rows.Next() {
		template, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, template)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read role templates: %w", err)
	}

	return templates, nil
}

// FindByID retrieves a role template by ID, scoped to a farm.
// Returns (nil, nil) when no template matches.
func (r *RoleTemplateRepository) FindByID(ctx context.Context, farmID, id string) (*roletemplate.RoleTemplate, error) {
	row := r.db.pool.QueryRow(ctx, `
		SELECT id, farm_id, name, description, permissions, is_system_role, created_at, updated_at
		FROM role_templates
		WHERE farm_id = $1 AND id = $2
	`, farmID, id)

	template, err := scanTemplate(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return template, nil
}

// FindByName retrieves a role template by name, scoped to a farm.
// Returns (nil, nil) when no template matches.
func (r *RoleTemplateRepository) FindByName(ctx context.Context, farmID, name string) (*roletemplate.RoleTemplate, error) {
	row := r.db.pool.QueryRow(ctx, `
		SELECT id, farm_id, name, description, permissions, is_system_role, created_at, updated_at
		FROM role_templates
		WHERE farm_id = $1 AND name = $2
	`, farmID, name)

	template, err := scanTemplate(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return template, nil
}

// Create inserts a new role template
func (r *RoleTemplateRepository) Create(ctx context.Context, template *roletemplate.RoleTemplate) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO role_templates (id, farm_id, name, description, permissions, is_system_role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, template.ID, template.FarmID, template.Name, template.Description,
		permissionsToStrings(template.Permissions), template.IsSystemRole,
		template.CreatedAt, template.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create role template: %w", err)
	}

	return nil
}

// Update persists changes to an existing role template
func (r *RoleTemplateRepository) Update(ctx context.Context, template *roletemplate.RoleTemplate) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE role_templates
		SET name = $3, description = $4, permissions = $5, updated_at = $6
		WHERE farm_id = $1 AND id = $2
	`, template.FarmID, template.ID, template.Name, template.Description,
		permissionsToStrings(template.Permissions), template.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to update role template: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("role template %s not found", template.ID)
	}

	return nil
}

func scanTemplate(row pgx.Row) (*roletemplate.RoleTemplate, error) {
	var template roletemplate.RoleTemplate
	var perms []string
	if err := row.Scan(&template.ID, &template.FarmID, &template.Name, &template.Description,
		&perms, &template.IsSystemRole, &template.CreatedAt, &template.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan role template: %w", err)
	}
	template.Permissions = stringsToPermissions(perms)
	return &template, nil
}

// pgx scans text[] into []string; the named slice types are converted
// at the repository boundary.
func permissionsToStrings(perms []permission.Permission) []string {
	out := make([]string, len(perms))
	for i, p := range perms {
		out[i] = string(p)
	}
	return out
}

func stringsToPermissions(values []string) []permission.Permission {
	if values == nil {
		return nil
	}
	out := make([]permission.Permission, len(values))
	for i, v := range values {
		out[i] = permission.Permission(v)
	}
	return out
}
