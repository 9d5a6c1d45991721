// Package api exposes the REST surface consumed by the practice console.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apperrors "vetcare-reminders/internal/common/errors"
	"vetcare-reminders/internal/common/logger"
	"vetcare-reminders/internal/engine/reminders"
	"vetcare-reminders/internal/engine/templates"
	"vetcare-reminders/internal/models"
)

// TemplateStore is the template surface the API serves.
type TemplateStore interface {
	Create(ctx context.Context, req *models.CreateTemplateRequest) (*models.NotificationTemplate, error)
	Get(ctx context.Context, id string) (*models.NotificationTemplate, error)
	List(ctx context.Context, filter templates.ListFilter) ([]*models.NotificationTemplate, error)
	Update(ctx context.Context, id string, req *models.UpdateTemplateRequest) (*models.NotificationTemplate, error)
	Delete(ctx context.Context, id string) error
}

// ReminderService is the reminder surface the API serves.
type ReminderService interface {
	Create(ctx context.Context, req *models.CreateReminderRequest) (*models.Reminder, error)
	Get(ctx context.Context, id string) (*models.Reminder, error)
	List(ctx context.Context, filter reminders.ListFilter) ([]*models.Reminder, error)
	Pending(ctx context.Context) ([]*models.Reminder, error)
	Upcoming(ctx context.Context, window time.Duration) ([]*models.Reminder, error)
	Update(ctx context.Context, id string, req *models.UpdateReminderRequest) (*models.Reminder, error)
	Cancel(ctx context.Context, id string) (*models.Reminder, error)
	Delete(ctx context.Context, id string) error
}

type Server struct {
	router    *mux.Router
	templates TemplateStore
	reminders ReminderService
	window    time.Duration
	respond   *apperrors.Responder
	logger    logger.Logger
}

// NewServer wires the console routes. window is the span of the "upcoming"
// view, conventionally seven days.
func NewServer(ts TemplateStore, rs ReminderService, window time.Duration, log logger.Logger) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		templates: ts,
		reminders: rs,
		window:    window,
		respond:   apperrors.NewResponder(log),
		logger:    log,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router

	r.HandleFunc("/api/notification-templates", s.handleCreateTemplate).Methods(http.MethodPost)
	r.HandleFunc("/api/notification-templates", s.handleListTemplates).Methods(http.MethodGet)
	r.HandleFunc("/api/notification-templates/{id}", s.handleGetTemplate).Methods(http.MethodGet)
	r.HandleFunc("/api/notification-templates/{id}", s.handleUpdateTemplate).Methods(http.MethodPut)
	r.HandleFunc("/api/notification-templates/{id}", s.handleDeleteTemplate).Methods(http.MethodDelete)

	// Static reminder views are registered before the {id} routes so mux
	// never treats "pending" as an id.
	r.HandleFunc("/api/reminders/pending", s.handlePendingReminders).Methods(http.MethodGet)
	r.HandleFunc("/api/reminders/upcoming", s.handleUpcomingReminders).Methods(http.MethodGet)
	r.HandleFunc("/api/reminders", s.handleCreateReminder).Methods(http.MethodPost)
	r.HandleFunc("/api/reminders", s.handleListReminders).Methods(http.MethodGet)
	r.HandleFunc("/api/reminders/{id}", s.handleGetReminder).Methods(http.MethodGet)
	r.HandleFunc("/api/reminders/{id}", s.handleUpdateReminder).Methods(http.MethodPut)
	r.HandleFunc("/api/reminders/{id}", s.handleDeleteReminder).Methods(http.MethodDelete)
	r.HandleFunc("/api/reminders/{id}/cancel", s.handleCancelReminder).Methods(http.MethodPost)

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
