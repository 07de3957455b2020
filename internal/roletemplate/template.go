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

// Package roletemplate implements named, reusable permission bundles
// scoped per farm, including the default Owner/Manager/Worker templates
// and the authoring use cases around them.
package roletemplate

import (
	"strings"
	"time"

	"github.com/farmgate/farmgate/internal/permission"
)

// Default template names created during farm provisioning/migration.
const (
	NameOwner   = "Owner"
	NameManager = "Manager"
	NameWorker  = "Worker"
)

// RoleTemplate is a named permission bundle belonging to one farm.
// Template names are unique within a farm. System role templates
// (today, only Owner) may never be mutated or deleted.
type RoleTemplate struct {
	ID           string                  `json:"id"`
	FarmID       string                  `json:"farm_id"`
	Name         string                  `json:"name"`
	Description  string                  `json:"description"`
	Permissions  []permission.Permission `json:"permissions"`
	IsSystemRole bool                    `json:"is_system_role"`
	CreatedAt    time.Time               `json:"created_at"`
	UpdatedAt    time.Time               `json:"updated_at"`
}

// -----------------------------------------------------------------------------
// Default Permission Bundles
// These define the permission sets for the built-in templates. The
// access service also uses them as the fallback table for memberships
// written before role templates existed.
// -----------------------------------------------------------------------------

// OwnerPermissions grants everything.
var OwnerPermissions = []permission.Permission{permission.Wildcard}

// ManagerPermissions defines the default Manager bundle.
var ManagerPermissions = []permission.Permission{
	"tasks:*",
	"blocks:*",
	"members:view",
	"members:invite",
	"members:edit",
	"farm:view",
	"farm:edit",
	"attachments:*",
}

// WorkerPermissions defines the default Worker bundle.
var WorkerPermissions = []permission.Permission{
	"tasks:view",
	"tasks:create",
	"tasks:edit",
	"blocks:view",
	"members:view",
	"farm:view",
	"attachments:view",
	"attachments:create",
}

// NewOwnerTemplate builds the immutable Owner draft for a farm.
func NewOwnerTemplate(farmID string) *RoleTemplate {
	return &RoleTemplate{
		FarmID:       farmID,
		Name:         NameOwner,
		Description:  "Full access to everything on the farm",
		Permissions:  clonePermissions(OwnerPermissions),
		IsSystemRole: true,
	}
}

// NewManagerTemplate builds the default Manager draft for a farm.
func NewManagerTemplate(farmID string) *RoleTemplate {
	return &RoleTemplate{
		FarmID:       farmID,
		Name:         NameManager,
		Description:  "Manage day-to-day work and the team",
		Permissions:  clonePermissions(ManagerPermissions),
		IsSystemRole: false,
	}
}

// NewWorkerTemplate builds the default Worker draft for a farm.
func NewWorkerTemplate(farmID string) *RoleTemplate {
	return &RoleTemplate{
		FarmID:       farmID,
		Name:         NameWorker,
		Description:  "Work on assigned tasks",
		Permissions:  clonePermissions(WorkerPermissions),
		IsSystemRole: false,
	}
}

// ValidateDraft checks a template draft against the authoring rules and
// returns every violation, not just the first.
func ValidateDraft(t *RoleTemplate) []string {
	var violations []string
	if strings.TrimSpace(t.Name) == "" {
		violations = append(violations, "name is required")
	}
	if t.FarmID == "" {
		violations = append(violations, "farm id is required")
	}
	if len(t.Permissions) == 0 {
		violations = append(violations, "at least one permission is required")
	}
	return violations
}

// CanEdit reports whether the template may be mutated.
func CanEdit(t *RoleTemplate) bool {
	return !t.IsSystemRole
}

// CanDelete reports whether the template may be deleted. Identical to
// CanEdit today, kept separate because the two policies could diverge.
// No delete use case exists yet.
func CanDelete(t *RoleTemplate) bool {
	return !t.IsSystemRole
}

func clonePermissions(perms []permission.Permission) []permission.Permission {
	return append([]permission.Permission(nil), perms...)
}
