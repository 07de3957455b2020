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

// Package permission defines the permission token grammar and the
// grant/deny evaluator used by role templates and access checks.
package permission

import (
	"sort"
	"strings"
)

// Permission is an allowed action on a resource, encoded as
// "resource:action" (e.g. "tasks:view"). Two wildcard forms are
// recognized: "resource:*" covers every cataloged action on that
// resource, and the bare "*" covers everything. Concrete permissions
// are only valid if they appear in the catalog.
type Permission string

// Wildcard is the global grant covering all permissions on all resources.
const Wildcard Permission = "*"

const wildcardAction = "*"

// New builds a permission token from its components.
func New(resource, action string) Permission {
	return Permission(resource + ":" + action)
}

// Resource returns the resource component, or "*" for the global wildcard.
func (p Permission) Resource() string {
	if p == Wildcard {
		return string(Wildcard)
	}
	resource, _, _ := strings.Cut(string(p), ":")
	return resource
}

// Action returns the action component, or "*" for the global wildcard.
func (p Permission) Action() string {
	if p == Wildcard {
		return wildcardAction
	}
	_, action, _ := strings.Cut(string(p), ":")
	return action
}

// IsValid reports whether p is the global wildcard, a resource wildcard
// for a cataloged resource, or an exact member of the catalog.
func (p Permission) IsValid() bool {
	if p == Wildcard {
		return true
	}
	actions, ok := catalog[p.Resource()]
	if !ok {
		return false
	}
	if p.Action() == wildcardAction {
		return true
	}
	for _, a := range actions {
		if a == p.Action() {
			return true
		}
	}
	return false
}

// Has reports whether the granted set allows the required permission.
// A grant matches if it is the global wildcard, an exact match, or the
// resource wildcard for the required permission's resource. There is no
// action-level wildcard ("*:view" never matches).
//
// A required value of "*" is satisfied only by an exact "*" grant; no
// combination of narrower grants implies it.
func Has(granted []Permission, required Permission) bool {
	resourceAll := New(required.Resource(), wildcardAction)
	for _, g := range granted {
		if g == Wildcard || g == required || g == resourceAll {
			return true
		}
	}
	return false
}

// HasAll reports whether every required permission is granted.
// Trivially true for an empty requirement list.
func HasAll(granted []Permission, required ...Permission) bool {
	for _, r := range required {
		if !Has(granted, r) {
			return false
		}
	}
	return true
}

// HasAny reports whether at least one required permission is granted.
func HasAny(granted []Permission, required ...Permission) bool {
	for _, r := range required {
		if Has(granted, r) {
			return true
		}
	}
	return false
}

// Expand replaces wildcard grants with the cataloged permissions they
// cover: "*" becomes the full catalog and "resource:*" becomes every
// cataloged action on that resource. Exact permissions pass through.
// The result is deduplicated and sorted for stable output.
func Expand(perms []Permission) []Permission {
	set := make(map[Permission]struct{}, len(perms))
	for _, p := range perms {
		switch {
		case p == Wildcard:
			for _, q := range All() {
				set[q] = struct{}{}
			}
		case p.Action() == wildcardAction:
			actions, ok := catalog[p.Resource()]
			if !ok {
				set[p] = struct{}{}
				continue
			}
			for _, a := range actions {
				set[New(p.Resource(), a)] = struct{}{}
			}
		default:
			set[p] = struct{}{}
		}
	}

	out := make([]Permission, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Validate returns every token that is neither in the catalog nor one
// of the recognized wildcard forms. An empty result means all valid.
func Validate(perms []Permission) []string {
	var invalid []string
	for _, p := range perms {
		if !p.IsValid() {
			invalid = append(invalid, string(p))
		}
	}
	return invalid
}
