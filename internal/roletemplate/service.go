// Copyright 2026 The Farmgate Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package roletemplate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/farmgate/farmgate/internal/audit"
	"github.com/farmgate/farmgate/internal/farm"
	"github.com/farmgate/farmgate/internal/permission"
)

// Service provides the role template use cases: list, create, update,
// legacy farm migration, and cross-farm synchronization.
type Service struct {
	repo        Repository
	farmRepo    farm.Repository
	auditLogger audit.Logger
}

// NewService creates a new role template service
func NewService(repo Repository, farmRepo farm.Repository, auditLogger audit.Logger) *Service {
	return &Service{
		repo:        repo,
		farmRepo:    farmRepo,
		auditLogger: auditLogger,
	}
}

// List returns all role templates for a farm. No ordering is
// guaranteed; callers must not assume one.
func (s *Service) List(ctx context.Context, farmID string) ([]*RoleTemplate, error) {
	const op = "roletemplate.list"

	templates, err := s.repo.FindByFarm(ctx, farmID)
	if err != nil {
		return nil, E(op, CodeStore, "failed to load role templates", err)
	}
	return templates, nil
}

// Create authors a new custom template. User-authored templates can
// never claim system status.
func (s *Service) Create(ctx context.Context, farmID, name, description string, perms []permission.Permission) (*RoleTemplate, error) {
	const op = "roletemplate.create"

	now := time.Now()
	template := &RoleTemplate{
		ID:           newID(),
		FarmID:       farmID,
		Name:         name,
		Description:  description,
		Permissions:  clonePermissions(perms),
		IsSystemRole: false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if violations := ValidateDraft(template); len(violations) > 0 {
		return nil, E(op, CodeValidation, strings.Join(violations, "; "), nil)
	}
	if invalid := permission.Validate(perms); len(invalid) > 0 {
		return nil, E(op, CodeInvalidPermissions, "invalid permissions: "+strings.Join(invalid, ", "), nil)
	}

	existing, err := s.repo.FindByName(ctx, farmID, name)
	if err != nil {
		return nil, E(op, CodeStore, "failed to check for existing template", err)
	}
	if existing != nil {
		return nil, E(op, CodeDuplicateName, fmt.Sprintf("a role template named %q already exists", name), nil)
	}

	if err := s.repo.Create(ctx, template); err != nil {
		return nil, E(op, CodeStore, "failed to create role template", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeTemplateCreated,
		FarmID:   farmID,
		Resource: template.Name,
		Metadata: map[string]any{"template_id": template.ID},
	})

	return template, nil
}

// UpdateFields carries a partial update; nil fields are left unchanged.
// A non-nil Permissions slice replaces the whole set.
type UpdateFields struct {
	Name        *string
	Description *string
	Permissions []permission.Permission
}

// Update applies a partial update to an existing custom template.
// System role templates are immutable regardless of which fields are
// supplied.
func (s *Service) Update(ctx context.Context, farmID, templateID string, fields UpdateFields) (*RoleTemplate, error) {
	const op = "roletemplate.update"

	existing, err := s.repo.FindByID(ctx, farmID, templateID)
	if err != nil {
		return nil, E(op, CodeStore, "failed to load role template", err)
	}
	if existing == nil {
		return nil, E(op, CodeTemplateNotFound, fmt.Sprintf("role template %s not found", templateID), nil)
	}
	if !CanEdit(existing) {
		return nil, E(op, CodeCannotEditSystemRole, fmt.Sprintf("system role %q cannot be modified", existing.Name), nil)
	}

	if fields.Permissions != nil {
		if invalid := permission.Validate(fields.Permissions); len(invalid) > 0 {
			return nil, E(op, CodeInvalidPermissions, "invalid permissions: "+strings.Join(invalid, ", "), nil)
		}
	}
	if fields.Name != nil && *fields.Name != existing.Name {
		dup, err := s.repo.FindByName(ctx, farmID, *fields.Name)
		if err != nil {
			return nil, E(op, CodeStore, "failed to check for existing template", err)
		}
		if dup != nil {
			return nil, E(op, CodeDuplicateName, fmt.Sprintf("a role template named %q already exists", *fields.Name), nil)
		}
		existing.Name = *fields.Name
	}
	if fields.Permissions != nil {
		existing.Permissions = clonePermissions(fields.Permissions)
	}
	if fields.Description != nil {
		existing.Description = *fields.Description
	}
	existing.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, E(op, CodeStore, "failed to update role template", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeTemplateUpdated,
		FarmID:   farmID,
		Resource: existing.Name,
		Metadata: map[string]any{"template_id": existing.ID},
	})

	return existing, nil
}

// MigrateResult reports the outcome of migrating one farm to role
// templates.
type MigrateResult struct {
	FarmID         string `json:"farm_id"`
	FarmName       string `json:"farm_name,omitempty"`
	Created        int    `json:"created"`
	AlreadyExisted bool   `json:"already_existed"`
	Error          string `json:"error,omitempty"`
}

// MigrateFarm provisions the three default templates on a farm that
// predates role templates. Idempotent: a farm that already has any
// template is reported as migrated with zero created.
func (s *Service) MigrateFarm(ctx context.Context, farmID string) (*MigrateResult, error) {
	const op = "roletemplate.migrate"

	existing, err := s.repo.FindByFarm(ctx, farmID)
	if err != nil {
		return nil, E(op, CodeStore, "failed to load role templates", err)
	}
	if len(existing) > 0 {
		return &MigrateResult{FarmID: farmID, AlreadyExisted: true}, nil
	}

	defaults := []*RoleTemplate{
		NewOwnerTemplate(farmID),
		NewManagerTemplate(farmID),
		NewWorkerTemplate(farmID),
	}

	created := 0
	now := time.Now()
	for _, template := range defaults {
		template.ID = newID()
		template.CreatedAt = now
		template.UpdatedAt = now
		if err := s.repo.Create(ctx, template); err != nil {
			return nil, E(op, CodeStore, fmt.Sprintf("failed to create %s template", template.Name), err)
		}
		created++
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeFarmMigrated,
		FarmID:   farmID,
		Resource: "role_templates",
		Metadata: map[string]any{"created": created},
	})

	return &MigrateResult{FarmID: farmID, Created: created}, nil
}

// MigrateAllUserFarms migrates every farm owned by a user. One farm's
// failure is recorded in its result entry and does not stop the rest.
func (s *Service) MigrateAllUserFarms(ctx context.Context, userID string) ([]MigrateResult, error) {
	const op = "roletemplate.migrate_all"

	farms, err := s.farmRepo.ListByOwner(ctx, userID)
	if err != nil {
		return nil, E(op, CodeStore, "failed to load farms", err)
	}

	results := make([]MigrateResult, 0, len(farms))
	for _, f := range farms {
		res, err := s.MigrateFarm(ctx, f.ID)
		if err != nil {
			results = append(results, MigrateResult{FarmID: f.ID, FarmName: f.Name, Error: err.Error()})
			continue
		}
		res.FarmName = f.Name
		results = append(results, *res)
	}
	return results, nil
}

// SyncResult reports the outcome of syncing templates to one target farm.
type SyncResult struct {
	FarmID   string `json:"farm_id"`
	FarmName string `json:"farm_name"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
}

// SyncAcrossFarms propagates the source farm's custom templates to
// every other farm owned by the same user. System roles are never
// propagated and never overwritten on targets: each farm keeps its own
// immutable Owner template. Targets are processed independently; one
// target's failure is recorded and does not abort the rest.
func (s *Service) SyncAcrossFarms(ctx context.Context, userID, sourceFarmID string) ([]SyncResult, error) {
	const op = "roletemplate.sync"

	source, err := s.farmRepo.GetByID(ctx, sourceFarmID)
	if err != nil {
		if errors.Is(err, farm.ErrFarmNotFound) {
			return nil, E(op, CodeFarmNotFound, "source farm not found", err)
		}
		return nil, E(op, CodeStore, "failed to load source farm", err)
	}
	if source.OwnerID != userID {
		return nil, E(op, CodePermissionDenied, "only the farm owner can sync role templates", nil)
	}

	sourceTemplates, err := s.repo.FindByFarm(ctx, sourceFarmID)
	if err != nil {
		return nil, E(op, CodeStore, "failed to load source templates", err)
	}
	var propagable []*RoleTemplate
	for _, t := range sourceTemplates {
		if !t.IsSystemRole {
			propagable = append(propagable, t)
		}
	}

	farms, err := s.farmRepo.ListByOwner(ctx, userID)
	if err != nil {
		return nil, E(op, CodeStore, "failed to load farms", err)
	}

	results := make([]SyncResult, 0, len(farms))
	synced := 0
	for _, target := range farms {
		if target.ID == sourceFarmID {
			continue
		}
		res := SyncResult{FarmID: target.ID, FarmName: target.Name, Success: true}
		if err := s.syncToFarm(ctx, target.ID, propagable); err != nil {
			res.Success = false
			res.Error = err.Error()
		} else {
			synced++
		}
		results = append(results, res)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeTemplatesSynced,
		FarmID:   sourceFarmID,
		ActorID:  userID,
		Resource: "role_templates",
		Metadata: map[string]any{"targets": len(results), "synced": synced},
	})

	return results, nil
}

// syncToFarm applies the source templates to one target farm: update a
// same-named custom template in place, skip a same-named system role
// silently, create anything missing as non-system.
func (s *Service) syncToFarm(ctx context.Context, targetFarmID string, templates []*RoleTemplate) error {
	for _, src := range templates {
		existing, err := s.repo.FindByName(ctx, targetFarmID, src.Name)
		if err != nil {
			return fmt.Errorf("failed to look up template %q: %w", src.Name, err)
		}

		switch {
		case existing == nil:
			now := time.Now()
			clone := &RoleTemplate{
				ID:           newID(),
				FarmID:       targetFarmID,
				Name:         src.Name,
				Description:  src.Description,
				Permissions:  clonePermissions(src.Permissions),
				IsSystemRole: false,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			if err := s.repo.Create(ctx, clone); err != nil {
				return fmt.Errorf("failed to create template %q: %w", src.Name, err)
			}
		case existing.IsSystemRole:
			// Never overwritten.
		default:
			existing.Description = src.Description
			existing.Permissions = clonePermissions(src.Permissions)
			existing.UpdatedAt = time.Now()
			if err := s.repo.Update(ctx, existing); err != nil {
				return fmt.Errorf("failed to update template %q: %w", src.Name, err)
			}
		}
	}
	return nil
}

// newID returns a UUIDv7 so template IDs sort by creation time.
func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}
