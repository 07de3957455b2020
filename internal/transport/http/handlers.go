// @title Farmgate API
// @version 1.0.0
// @description Farm membership and role template authorization service
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url http://www.swagger.io/support
// @contact.email support@swagger.io

// @license.name Apache 2.0
// @license.url https://www.apache.org/licenses/LICENSE-2.0

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/farmgate/farmgate/internal/access"
	"github.com/farmgate/farmgate/internal/audit"
	"github.com/farmgate/farmgate/internal/observability/logger"
	"github.com/farmgate/farmgate/internal/permission"
	"github.com/farmgate/farmgate/internal/roletemplate"
)

// Handler holds HTTP handlers and dependencies
type Handler struct {
	templateService *roletemplate.Service
	accessService   *access.Service
	auditLogger     audit.Logger
	authConfig      AuthConfig
}

// AuthConfig holds bearer token verification configuration
type AuthConfig struct {
	JWTSecret string
	Issuer    string
}

// NewHandler creates a new HTTP handler
func NewHandler(
	templateService *roletemplate.Service,
	accessService *access.Service,
	auditLogger audit.Logger,
	authConfig AuthConfig,
) *Handler {
	return &Handler{
		templateService: templateService,
		accessService:   accessService,
		auditLogger:     auditLogger,
		authConfig:      authConfig,
	}
}

// NewRouter creates a new HTTP router
func NewRouter(h *Handler, rateLimiter *RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(RateLimitMiddleware(rateLimiter))
	r.Use(func(handler http.Handler) http.Handler {
		return otelhttp.NewHandler(handler, "http_request",
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	})
	r.Use(LoggingMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check
	r.Get("/health", h.HealthCheck)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(h.AuthMiddleware)

		r.Post("/role-templates/migrate-all", h.MigrateAllFarms)

		r.Route("/farms/{farmID}", func(r chi.Router) {
			r.Route("/role-templates", func(r chi.Router) {
				r.Get("/", h.ListTemplates)
				r.Post("/", h.CreateTemplate)
				r.Put("/{templateID}", h.UpdateTemplate)
				r.Post("/migrate", h.MigrateFarm)
				r.Post("/sync", h.SyncTemplates)
			})

			r.Get("/access/check", h.CheckAccess)
			r.Put("/members/{userID}/role", h.AssignMemberRole)
		})
	})

	return r
}

// HealthCheck returns the health status
// @Summary Health Check
// @Description Checks if the service is up and running
// @Tags System
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "farmgate",
	})
}

// requirePermission reports whether the caller holds required on the
// farm, writing the 403 response on deny. Mutating handlers call this
// before touching authorization state; a non-member caller is denied.
func (h *Handler) requirePermission(w http.ResponseWriter, r *http.Request, farmID string, required permission.Permission) bool {
	userID := GetUserID(r.Context())

	allowed, err := h.accessService.CheckPermission(r.Context(), userID, farmID, required)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to authorize request",
			logger.Error(err),
			logger.FarmID(farmID),
			logger.UserID(userID),
			logger.Permission(string(required)),
		)
		respondError(w, http.StatusInternalServerError, "failed to check permission")
		return false
	}
	if !allowed {
		h.auditLogger.Log(r.Context(), audit.Event{
			Type:      audit.TypePermissionDenied,
			FarmID:    farmID,
			ActorID:   userID,
			Resource:  string(required),
			IPAddress: getIPAddress(r),
			UserAgent: r.UserAgent(),
		})
		respondJSON(w, http.StatusForbidden, map[string]string{
			"error": "you do not have permission to perform this action",
			"code":  roletemplate.CodePermissionDenied,
		})
		return false
	}
	return true
}

// Helper functions
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

func getIPAddress(r *http.Request) string {
	// Check X-Forwarded-For header first
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	// Check X-Real-IP header
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
