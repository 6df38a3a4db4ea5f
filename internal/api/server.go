package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"notification-dispatcher/internal/common/errors"
	"notification-dispatcher/internal/common/logger"
	"notification-dispatcher/internal/models"
	"notification-dispatcher/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// AdminStore is the persistence behind the admin endpoints.
type AdminStore interface {
	GetNotification(ctx context.Context, id uuid.UUID) (*models.Notification, error)
	ListNotifications(ctx context.Context, f store.NotificationFilter) ([]*models.Notification, error)
	ListUserNotifications(ctx context.Context, userID uuid.UUID, page store.Page) ([]*models.Notification, error)
	ListDueRetries(ctx context.Context, now time.Time, limit int) ([]*models.Notification, error)

	ListTemplates(ctx context.Context, page store.Page) ([]*models.NotificationTemplate, error)
	TemplatesByEventType(ctx context.Context, eventType string) ([]*models.NotificationTemplate, error)
	GetTemplate(ctx context.Context, id uuid.UUID) (*models.NotificationTemplate, error)
	CreateTemplate(ctx context.Context, t *models.NotificationTemplate) error
	UpdateTemplate(ctx context.Context, t *models.NotificationTemplate) error
	DeleteTemplate(ctx context.Context, id uuid.UUID) error

	GetPreference(ctx context.Context, userID uuid.UUID) (*models.UserNotificationPreference, error)
	CreatePreference(ctx context.Context, p *models.UserNotificationPreference) error
	UpdatePreference(ctx context.Context, p *models.UserNotificationPreference) error
	UpsertPushToken(ctx context.Context, userID uuid.UUID, token string) (*models.UserNotificationPreference, error)
}

type Searcher interface {
	Search(ctx context.Context, q string, page store.Page) (*store.SearchResult, error)
}

type Resender interface {
	Resend(ctx context.Context, id uuid.UUID) (*models.Notification, error)
}

// ReadinessCheck reports whether one dependency is usable.
type ReadinessCheck func(ctx context.Context) error

type Options struct {
	AllowedOrigins []string
	Searcher       Searcher
	Checks         map[string]ReadinessCheck
	// Mount attaches extra root routes such as the WebSocket endpoints.
	Mount func(r chi.Router)
}

type Server struct {
	store    AdminStore
	resender Resender
	opts     Options
	logger   logger.Logger
	now      func() time.Time
}

func NewServer(st AdminStore, resender Resender, opts Options, log logger.Logger) *Server {
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	return &Server{
		store:    st,
		resender: resender,
		opts:     opts,
		logger:   log.With(map[string]interface{}{"component": "api"}),
		now:      time.Now,
	}
}

// Router builds the root handler: admin REST under /api/v1 plus health,
// readiness and metrics.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleRootHealth)
	r.Get("/ready", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", s.handleListNotifications)
			r.Get("/search", s.handleSearchNotifications)
			r.Get("/due-retries", s.handleDueRetries)
			r.Get("/user/{userID}", s.handleUserNotifications)
			r.Get("/{id}", s.handleGetNotification)
			r.Post("/{id}/retry", s.handleRetryNotification)
		})

		r.Route("/templates", func(r chi.Router) {
			r.Get("/", s.handleListTemplates)
			r.Post("/", s.handleCreateTemplate)
			r.Get("/{eventType}", s.handleTemplatesByEventType)
			r.Put("/{id}", s.handleUpdateTemplate)
			r.Delete("/{id}", s.handleDeleteTemplate)
		})

		r.Route("/preferences", func(r chi.Router) {
			r.Post("/", s.handleCreatePreference)
			r.Get("/{userID}", s.handleGetPreference)
			r.Put("/{userID}", s.handleUpdatePreference)
			r.Put("/{userID}/fcm-token", s.handleUpdatePushToken)
		})
	})

	if s.opts.Mount != nil {
		s.opts.Mount(r)
	}
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request", map[string]interface{}{
			"method":    r.Method,
			"path":      r.URL.Path,
			"status":    ww.Status(),
			"duration":  time.Since(start).String(),
			"requestId": middleware.GetReqID(r.Context()),
		})
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "healthy", "service": "notifications"})
}

func (s *Server) handleRootHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{
		"status": "healthy",
		"time":   s.now().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	failing := map[string]string{}
	for name, check := range s.opts.Checks {
		if err := check(ctx); err != nil {
			failing[name] = err.Error()
		}
	}
	if len(failing) > 0 {
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, map[string]interface{}{"status": "not_ready", "failing": failing})
		return
	}
	render.JSON(w, r, map[string]string{
		"status": "ready",
		"time":   s.now().Format(time.RFC3339),
	})
}

// ==========================
// Helpers
// ==========================

type errorResponse struct {
	Detail string `json:"detail"`
}

func statusForCode(code errors.ErrorCode) int {
	switch code {
	case errors.ErrCodeEventValidationFailed, errors.ErrCodeTemplateValidationFailed, errors.ErrCodeInvalidRequest,
		errors.ErrCodeTemplateAlreadyExists, errors.ErrCodePreferenceAlreadyExists:
		return http.StatusBadRequest
	case errors.ErrCodeTemplateNotFound, errors.ErrCodePreferenceNotFound, errors.ErrCodeNotificationNotFound,
		errors.ErrCodeResourceNotFound:
		return http.StatusNotFound
	case errors.ErrCodeNotificationNotRetryable:
		return http.StatusConflict
	case errors.ErrCodeSearchQueryFailed, errors.ErrCodeDatabaseConnectionFailed, errors.ErrCodeQueueUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	stdErr, ok := errors.AsStandardError(err)
	if !ok {
		stdErr = errors.NewInternalError(err)
	}
	status := statusForCode(stdErr.Code)

	detail := stdErr.Message
	if status == http.StatusBadRequest && stdErr.Details != "" {
		detail = stdErr.Message + ": " + stdErr.Details
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", map[string]interface{}{
			"path":      r.URL.Path,
			"errorCode": string(stdErr.Code),
			"details":   stdErr.Details,
		})
	}

	render.Status(r, status)
	render.JSON(w, r, errorResponse{Detail: detail})
}

func parseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errors.NewInvalidRequestError(name + " must be a UUID: " + raw)
	}
	return id, nil
}

func parsePage(r *http.Request, defaultLimit int) (store.Page, error) {
	page := store.Page{Limit: defaultLimit}
	q := r.URL.Query()
	if v := q.Get("skip"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return page, errors.NewInvalidRequestError("skip must be a non-negative integer")
		}
		page.Skip = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return page, errors.NewInvalidRequestError("limit must be a positive integer")
		}
		page.Limit = n
	}
	return page, nil
}
