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

package permission

import "sort"

// Resource name constants.
const (
	ResourceTasks       = "tasks"
	ResourceBlocks      = "blocks"
	ResourceMembers     = "members"
	ResourceFarm        = "farm"
	ResourceCrops       = "crops"
	ResourceAttachments = "attachments"
)

// catalog is the closed set of resources and the actions each supports.
// A concrete (non-wildcard) permission is valid only if it appears here.
var catalog = map[string][]string{
	ResourceTasks:       {"view", "create", "edit", "delete", "assign"},
	ResourceBlocks:      {"view", "create", "edit", "delete"},
	ResourceMembers:     {"view", "invite", "edit", "remove"},
	ResourceFarm:        {"view", "edit", "delete"},
	ResourceCrops:       {"view", "create", "edit", "delete"},
	ResourceAttachments: {"view", "create", "delete"},
}

// Resources returns the cataloged resource names, sorted.
func Resources() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Actions returns the cataloged actions for a resource, or nil for an
// unknown resource.
func Actions(resource string) []string {
	actions, ok := catalog[resource]
	if !ok {
		return nil
	}
	out := make([]string, len(actions))
	copy(out, actions)
	return out
}

// All returns every concrete permission in the catalog, sorted.
func All() []Permission {
	var perms []Permission
	for _, resource := range Resources() {
		for _, action := range catalog[resource] {
			perms = append(perms, New(resource, action))
		}
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i] < perms[j] })
	return perms
}
