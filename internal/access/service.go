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

// Package access answers "can user U perform permission P on farm T"
// and owns the membership role-assignment use case.
package access

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/farmgate/farmgate/internal/audit"
	"github.com/farmgate/farmgate/internal/farm"
	"github.com/farmgate/farmgate/internal/permission"
	"github.com/farmgate/farmgate/internal/roletemplate"
)

// Service resolves access decisions for farm members.
//
// A member's Role field is overloaded mid-migration: it may hold a role
// template ID, a role template name, or a pre-migration legacy literal
// ("owner", "manager", "worker"). Resolution is attempted in that
// order; the legacy literal falls back to the hardcoded default
// bundles.
type Service struct {
	templateRepo roletemplate.Repository
	memberRepo   farm.MemberRepository
	auditLogger  audit.Logger
}

// NewService creates a new access service
func NewService(templateRepo roletemplate.Repository, memberRepo farm.MemberRepository, auditLogger audit.Logger) *Service {
	return &Service{
		templateRepo: templateRepo,
		memberRepo:   memberRepo,
		auditLogger:  auditLogger,
	}
}

// CheckPermission reports whether userID may perform required on
// farmID. A user with no membership is a plain deny, not an error.
func (s *Service) CheckPermission(ctx context.Context, userID, farmID string, required permission.Permission) (bool, error) {
	member, err := s.findMember(ctx, farmID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to load farm members: %w", err)
	}
	if member == nil {
		return false, nil
	}

	granted, err := s.effectivePermissions(ctx, member)
	if err != nil {
		return false, err
	}
	return permission.Has(granted, required), nil
}

// HasRoleLevel answers by legacy role-hierarchy comparison
// (worker < manager < owner, ordinal >=). Members assigned a custom
// template rank at worker level here; owners always win, matching the
// permission path.
//
// Deprecated: callers should migrate to CheckPermission.
func (s *Service) HasRoleLevel(ctx context.Context, userID, farmID, minimum string) (bool, error) {
	required := farm.RoleLevel(minimum)
	if required == 0 {
		return false, fmt.Errorf("unknown role %q", minimum)
	}

	member, err := s.findMember(ctx, farmID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to load farm members: %w", err)
	}
	if member == nil {
		return false, nil
	}

	level, err := s.memberRoleLevel(ctx, member)
	if err != nil {
		return false, err
	}
	return level >= required, nil
}

// AssignRole assigns a role template (by ID or name) or a legacy role
// literal to a member, upserting the membership record. An optional
// custom permission list fully replaces the template's permissions for
// that member. The actor must hold members:edit on the farm; a
// non-member actor is denied outright.
func (s *Service) AssignRole(ctx context.Context, farmID, userID, role string, customPermissions []permission.Permission, actorID string) error {
	const op = "access.assign_role"

	allowed, err := s.CheckPermission(ctx, actorID, farmID, permission.New(permission.ResourceMembers, "edit"))
	if err != nil {
		return roletemplate.E(op, roletemplate.CodeStore, "failed to authorize actor", err)
	}
	if !allowed {
		s.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypePermissionDenied,
			FarmID:   farmID,
			ActorID:  actorID,
			Resource: "members:edit",
			Metadata: map[string]any{"user_id": userID},
		})
		return roletemplate.E(op, roletemplate.CodePermissionDenied,
			"actor may not manage members on this farm", nil)
	}

	if invalid := permission.Validate(customPermissions); len(invalid) > 0 {
		return roletemplate.E(op, roletemplate.CodeInvalidPermissions,
			"invalid custom permissions: "+strings.Join(invalid, ", "), nil)
	}

	if farm.RoleLevel(role) == 0 {
		template, err := s.resolveTemplate(ctx, farmID, role)
		if err != nil {
			return roletemplate.E(op, roletemplate.CodeStore, "failed to resolve role", err)
		}
		if template == nil {
			return roletemplate.E(op, roletemplate.CodeTemplateNotFound,
				fmt.Sprintf("role %q does not resolve to a template or legacy role", role), nil)
		}
	}

	member := &farm.Member{
		FarmID:            farmID,
		UserID:            userID,
		Role:              role,
		CustomPermissions: customPermissions,
		AddedAt:           time.Now(),
		AddedBy:           actorID,
	}
	if err := s.memberRepo.UpsertMember(ctx, member); err != nil {
		return roletemplate.E(op, roletemplate.CodeStore, "failed to save membership", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeRoleAssigned,
		FarmID:   farmID,
		ActorID:  actorID,
		Resource: role,
		Metadata: map[string]any{"user_id": userID},
	})

	return nil
}

func (s *Service) findMember(ctx context.Context, farmID, userID string) (*farm.Member, error) {
	members, err := s.memberRepo.GetMembers(ctx, farmID)
	if err != nil {
		return nil, err
	}
	for _, m := range members {
		if m.UserID == userID {
			return m, nil
		}
	}
	return nil, nil
}

// effectivePermissions resolves the member's granted set. When a
// template resolves, non-empty custom permissions replace its bundle
// entirely; they are never merged.
func (s *Service) effectivePermissions(ctx context.Context, member *farm.Member) ([]permission.Permission, error) {
	template, err := s.resolveTemplate(ctx, member.FarmID, member.Role)
	if err != nil {
		return nil, err
	}
	if template != nil {
		if len(member.CustomPermissions) > 0 {
			return member.CustomPermissions, nil
		}
		return template.Permissions, nil
	}

	// Pre-migration membership: the role field is a legacy literal.
	switch member.Role {
	case farm.RoleOwner:
		return roletemplate.OwnerPermissions, nil
	case farm.RoleManager:
		return roletemplate.ManagerPermissions, nil
	case farm.RoleWorker:
		return roletemplate.WorkerPermissions, nil
	}
	return nil, nil
}

// resolveTemplate tries the overloaded role value as a template ID,
// then as a template name. (nil, nil) means the value is not a
// template reference.
func (s *Service) resolveTemplate(ctx context.Context, farmID, role string) (*roletemplate.RoleTemplate, error) {
	template, err := s.templateRepo.FindByID(ctx, farmID, role)
	if err != nil {
		return nil, fmt.Errorf("failed to look up role template: %w", err)
	}
	if template != nil {
		return template, nil
	}
	template, err = s.templateRepo.FindByName(ctx, farmID, role)
	if err != nil {
		return nil, fmt.Errorf("failed to look up role template: %w", err)
	}
	return template, nil
}

func (s *Service) memberRoleLevel(ctx context.Context, member *farm.Member) (int, error) {
	if level := farm.RoleLevel(member.Role); level > 0 {
		return level, nil
	}

	template, err := s.resolveTemplate(ctx, member.FarmID, member.Role)
	if err != nil {
		return 0, err
	}
	if template == nil {
		return 0, nil
	}
	switch template.Name {
	case roletemplate.NameOwner:
		return farm.RoleLevel(farm.RoleOwner), nil
	case roletemplate.NameManager:
		return farm.RoleLevel(farm.RoleManager), nil
	case roletemplate.NameWorker:
		return farm.RoleLevel(farm.RoleWorker), nil
	}
	// Custom templates rank at worker level for hierarchy callers.
	return farm.RoleLevel(farm.RoleWorker), nil
}
