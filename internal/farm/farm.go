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

// Package farm holds the tenant boundary entities: farms and their
// memberships. Every role template and membership belongs to exactly
// one farm.
package farm

import (
	"time"

	"github.com/farmgate/farmgate/internal/permission"
)

// Legacy role literals. Memberships written before role templates
// existed store one of these in the Role field.
const (
	RoleOwner   = "owner"
	RoleManager = "manager"
	RoleWorker  = "worker"
)

// roleLevels orders the legacy roles for the deprecated hierarchy
// comparison path. Higher wins.
var roleLevels = map[string]int{
	RoleWorker:  1,
	RoleManager: 2,
	RoleOwner:   3,
}

// RoleLevel returns the ordinal rank of a legacy role, or 0 for
// anything that is not a legacy literal.
func RoleLevel(role string) int {
	return roleLevels[role]
}

// Farm represents one tenant.
type Farm struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Member represents one user's relationship to a farm.
//
// Role is overloaded mid-migration: it holds either a role template ID,
// a role template name, or a legacy role literal. The access service
// resolves it in that order. CustomPermissions, when non-empty,
// replaces the resolved template's permission set entirely (it is
// never merged).
type Member struct {
	FarmID            string                  `json:"farm_id"`
	UserID            string                  `json:"user_id"`
	Role              string                  `json:"role"`
	CustomPermissions []permission.Permission `json:"custom_permissions,omitempty"`
	AddedAt           time.Time               `json:"added_at"`
	AddedBy           string                  `json:"added_by,omitempty"`
}
