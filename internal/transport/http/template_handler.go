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

package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/farmgate/farmgate/internal/observability/logger"
	"github.com/farmgate/farmgate/internal/permission"
	"github.com/farmgate/farmgate/internal/roletemplate"
)

// statusForCode maps domain error codes to HTTP status codes.
func statusForCode(code string) int {
	switch code {
	case roletemplate.CodeValidation, roletemplate.CodeInvalidPermissions:
		return http.StatusBadRequest
	case roletemplate.CodeDuplicateName:
		return http.StatusConflict
	case roletemplate.CodeTemplateNotFound, roletemplate.CodeFarmNotFound, roletemplate.CodeMemberNotFound:
		return http.StatusNotFound
	case roletemplate.CodeCannotEditSystemRole, roletemplate.CodePermissionDenied:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func respondDomainError(w http.ResponseWriter, err error) {
	code := roletemplate.ErrorCode(err)
	respondJSON(w, statusForCode(code), map[string]string{
		"error": roletemplate.ErrorMessage(err),
		"code":  code,
	})
}

// ListTemplates returns all role templates for a farm
// @Summary List Role Templates
// @Description Retrieve all role templates defined on a farm
// @Tags RoleTemplates
// @Produce json
// @Security BearerAuth
// @Param farmID path string true "Farm ID"
// @Success 200 {array} roletemplate.RoleTemplate
// @Failure 500 {object} map[string]string
// @Router /farms/{farmID}/role-templates [get]
func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	farmID := chi.URLParam(r, "farmID")

	templates, err := h.templateService.List(r.Context(), farmID)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list role templates",
			logger.Error(err),
			logger.FarmID(farmID),
		)
		respondDomainError(w, err)
		return
	}
	if templates == nil {
		templates = []*roletemplate.RoleTemplate{}
	}

	respondJSON(w, http.StatusOK, templates)
}

// CreateTemplateRequest represents role template creation data
type CreateTemplateRequest struct {
	Name        string   `json:"name" binding:"required" example:"Field Lead"`
	Description string   `json:"description" example:"Runs day-to-day field work"`
	Permissions []string `json:"permissions" binding:"required" example:"tasks:*,blocks:view"`
}

// CreateTemplate creates a custom role template on a farm
// @Summary Create Role Template
// @Description Create a new custom role template
// @Tags RoleTemplates
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param farmID path string true "Farm ID"
// @Param request body CreateTemplateRequest true "Template Data"
// @Success 201 {object} roletemplate.RoleTemplate
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /farms/{farmID}/role-templates [post]
func (h *Handler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	farmID := chi.URLParam(r, "farmID")
	if !h.requirePermission(w, r, farmID, permission.New(permission.ResourceFarm, "edit")) {
		return
	}

	var req CreateTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	template, err := h.templateService.Create(r.Context(), farmID, req.Name, req.Description, toPermissions(req.Permissions))
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to create role template",
			logger.Error(err),
			logger.FarmID(farmID),
			logger.TemplateName(req.Name),
		)
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, template)
}

// UpdateTemplateRequest represents a partial role template update.
// Omitted fields are left unchanged.
type UpdateTemplateRequest struct {
	Name        *string  `json:"name,omitempty"`
	Description *string  `json:"description,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// UpdateTemplate updates a custom role template
// @Summary Update Role Template
// @Description Apply a partial update to a custom role template
// @Tags RoleTemplates
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param farmID path string true "Farm ID"
// @Param templateID path string true "Template ID"
// @Param request body UpdateTemplateRequest true "Fields to update"
// @Success 200 {object} roletemplate.RoleTemplate
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /farms/{farmID}/role-templates/{templateID} [put]
func (h *Handler) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	farmID := chi.URLParam(r, "farmID")
	templateID := chi.URLParam(r, "templateID")
	if !h.requirePermission(w, r, farmID, permission.New(permission.ResourceFarm, "edit")) {
		return
	}

	var req UpdateTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	fields := roletemplate.UpdateFields{
		Name:        req.Name,
		Description: req.Description,
	}
	if req.Permissions != nil {
		fields.Permissions = toPermissions(req.Permissions)
	}

	template, err := h.templateService.Update(r.Context(), farmID, templateID, fields)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to update role template",
			logger.Error(err),
			logger.FarmID(farmID),
			logger.TemplateID(templateID),
		)
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, template)
}

// MigrateFarm provisions the default role templates on a farm
// @Summary Migrate Farm
// @Description Create the default role templates on a legacy farm
// @Tags RoleTemplates
// @Produce json
// @Security BearerAuth
// @Param farmID path string true "Farm ID"
// @Success 200 {object} roletemplate.MigrateResult
// @Failure 500 {object} map[string]string
// @Router /farms/{farmID}/role-templates/migrate [post]
func (h *Handler) MigrateFarm(w http.ResponseWriter, r *http.Request) {
	farmID := chi.URLParam(r, "farmID")
	if !h.requirePermission(w, r, farmID, permission.New(permission.ResourceFarm, "edit")) {
		return
	}

	result, err := h.templateService.MigrateFarm(r.Context(), farmID)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to migrate farm",
			logger.Error(err),
			logger.FarmID(farmID),
		)
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// MigrateAllFarms migrates every farm owned by the caller
// @Summary Migrate All Farms
// @Description Provision default role templates on every farm owned by the caller
// @Tags RoleTemplates
// @Produce json
// @Security BearerAuth
// @Success 200 {array} roletemplate.MigrateResult
// @Failure 500 {object} map[string]string
// @Router /role-templates/migrate-all [post]
func (h *Handler) MigrateAllFarms(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())

	results, err := h.templateService.MigrateAllUserFarms(r.Context(), userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to migrate farms",
			logger.Error(err),
			logger.UserID(userID),
		)
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, results)
}

// SyncTemplates propagates custom templates to the caller's other farms
// @Summary Sync Role Templates
// @Description Propagate this farm's custom role templates to every other farm owned by the caller
// @Tags RoleTemplates
// @Produce json
// @Security BearerAuth
// @Param farmID path string true "Source Farm ID"
// @Success 200 {array} roletemplate.SyncResult
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /farms/{farmID}/role-templates/sync [post]
func (h *Handler) SyncTemplates(w http.ResponseWriter, r *http.Request) {
	farmID := chi.URLParam(r, "farmID")
	userID := GetUserID(r.Context())

	results, err := h.templateService.SyncAcrossFarms(r.Context(), userID, farmID)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to sync role templates",
			logger.Error(err),
			logger.FarmID(farmID),
			logger.UserID(userID),
		)
		respondDomainError(w, err)
		return
	}
	if results == nil {
		results = []roletemplate.SyncResult{}
	}

	respondJSON(w, http.StatusOK, results)
}

func toPermissions(values []string) []permission.Permission {
	out := make([]permission.Permission, len(values))
	for i, v := range values {
		out[i] = permission.Permission(v)
	}
	return out
}
