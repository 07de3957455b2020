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

//go:build integration
// +build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/farmgate/farmgate/internal/permission"
	"github.com/farmgate/farmgate/internal/roletemplate"
)

// TestPurpose: Validates that the repository maintains strict farm scoping, preventing cross-farm template leakage during lookups by name.
// Scope: Database Integration Test
// Security: Multi-farm Data Separation (CWE-284)
// Expected: A template in Farm A cannot be retrieved using Farm B's context, even if both farms define the same template name.
// Test Case ID: ISO-01
// Metadata:
//   - Category: Storage
//   - Priority: High
//   - Tags: multi-farm, security, data-isolation
func TestRoleTemplateRepository_FarmIsolation(t *testing.T) {
	ctx := context.Background()
	cfg := Config{
		Host:         "localhost",
		Port:         "5432",
		User:         "farmgate",
		Password:     "farmgate_dev_password",
		Database:     "farmgate",
		SSLMode:      "disable",
		MaxOpenConns: 5,
		MaxIdleConns: 5,
	}

	db, err := New(ctx, cfg)
	if err != nil {
		t.Skipf("Skipping integration test: failed to connect to database: %v", err)
	}
	defer db.Close()

	repo := NewRoleTemplateRepository(db)

	farmA := uuid.NewString()
	farmB := uuid.NewString()
	name := "Field Lead"

	for _, farmID := range []string{farmA, farmB} {
		_, err := db.pool.Exec(ctx, `
			INSERT INTO farms (id, name, owner_id) VALUES ($1, 'Test Paddock', $2)
		`, farmID, uuid.NewString())
		if err != nil {
			t.Fatalf("failed to create farm: %v", err)
		}
	}
	defer db.pool.Exec(ctx, "DELETE FROM farms WHERE id IN ($1, $2)", farmA, farmB)

	now := time.Now()
	templateA := &roletemplate.RoleTemplate{
		ID:          uuid.NewString(),
		FarmID:      farmA,
		Name:        name,
		Permissions: []permission.Permission{"tasks:*"},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	templateB := &roletemplate.RoleTemplate{
		ID:          uuid.NewString(),
		FarmID:      farmB,
		Name:        name,
		Permissions: []permission.Permission{"tasks:view"},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	// 1. Create the same-named template on both farms
	if err := repo.Create(ctx, templateA); err != nil {
		t.Fatalf("failed to create template A: %v", err)
	}
	if err := repo.Create(ctx, templateB); err != nil {
		t.Fatalf("failed to create template B: %v", err)
	}

	// 2. Lookup by name in farm A must return farm A's template
	foundA, err := repo.FindByName(ctx, farmA, name)
	if err != nil {
		t.Fatalf("failed to find template in farm A: %v", err)
	}
	if foundA == nil || foundA.ID != templateA.ID {
		t.Errorf("cross-farm leakage! expected template A, got %v", foundA)
	}

	// 3. Lookup by A's ID in farm B must miss
	leaked, err := repo.FindByID(ctx, farmB, templateA.ID)
	if err != nil {
		t.Fatalf("failed to look up template: %v", err)
	}
	if leaked != nil {
		t.Errorf("cross-farm leakage! template A visible from farm B")
	}

	// 4. Permissions round-trip through the text[] column
	foundB, err := repo.FindByName(ctx, farmB, name)
	if err != nil {
		t.Fatalf("failed to find template in farm B: %v", err)
	}
	if foundB == nil || len(foundB.Permissions) != 1 || foundB.Permissions[0] != "tasks:view" {
		t.Errorf("expected farm B's own permission set, got %v", foundB)
	}
}
