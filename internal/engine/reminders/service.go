package reminders

import (
	"context"
	"time"

	"github.com/google/uuid"

	apperrors "vetcare-reminders/internal/common/errors"
	"vetcare-reminders/internal/engine/render"
	"vetcare-reminders/internal/engine/scheduler"
	"vetcare-reminders/internal/models"
)

// TemplateSource is the template lookup the service needs when a reminder
// references a template.
type TemplateSource interface {
	Get(ctx context.Context, id string) (*models.NotificationTemplate, error)
}

// Service applies the write rules on top of the repository: boundary
// validation, send_at derivation in the practice zone, template wording
// snapshots, and optional immediate rendering.
type Service struct {
	repo      *Repository
	templates TemplateSource
	loc       *time.Location

	now func() time.Time
}

func NewService(repo *Repository, templates TemplateSource, loc *time.Location) *Service {
	return &Service{
		repo:      repo,
		templates: templates,
		loc:       loc,
		now:       time.Now,
	}
}

// Create validates and persists a new pending reminder. Template wording is
// snapshotted at this point so later template edits never change what was
// scheduled. When the request carries a variables map the snapshot is rendered
// immediately; otherwise placeholders stay in the message for the dispatcher
// to render at send time.
func (s *Service) Create(ctx context.Context, req *models.CreateReminderRequest) (*models.Reminder, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	sendAt, err := scheduler.DeriveSendAt(req.ScheduledDate, req.ScheduledTime, req.SendAt, s.loc)
	if err != nil {
		return nil, err
	}

	subject, message, err := s.snapshotWording(ctx, req.TemplateID, req.Subject, req.Message)
	if err != nil {
		return nil, err
	}

	if len(req.Variables) > 0 {
		subject, message, err = renderWording(subject, message, req.Variables)
		if err != nil {
			return nil, err
		}
	}

	now := s.now().UTC()
	rem := &models.Reminder{
		ID:             uuid.NewString(),
		ClientID:       req.ClientID,
		PatientID:      req.PatientID,
		AppointmentID:  req.AppointmentID,
		ReminderType:   req.ReminderType,
		ScheduledDate:  req.ScheduledDate,
		ScheduledTime:  req.ScheduledTime,
		SendAt:         sendAt,
		DeliveryMethod: req.DeliveryMethod,
		Status:         models.StatusPending,
		TemplateID:     req.TemplateID,
		Subject:        subject,
		Message:        message,
		Notes:          req.Notes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.Create(ctx, rem); err != nil {
		return nil, err
	}
	return rem, nil
}

// Update patches a pending reminder. Any edit touching the schedule re-derives
// send_at; supplying a template_id re-snapshots the wording.
func (s *Service) Update(ctx context.Context, id string, req *models.UpdateReminderRequest) (*models.Reminder, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	rem, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rem.Status != models.StatusPending {
		return nil, apperrors.NewConflictError("reminder is not editable",
			"only pending reminders can be updated; current status: "+string(rem.Status.Public()))
	}

	if req.PatientID != nil {
		rem.PatientID = req.PatientID
	}
	if req.AppointmentID != nil {
		rem.AppointmentID = req.AppointmentID
	}
	if req.ReminderType != nil {
		rem.ReminderType = *req.ReminderType
	}
	if req.DeliveryMethod != nil {
		rem.DeliveryMethod = *req.DeliveryMethod
	}
	if req.Notes != nil {
		rem.Notes = *req.Notes
	}
	if req.ScheduledDate != nil {
		rem.ScheduledDate = *req.ScheduledDate
	}
	if req.ScheduledTime != nil {
		rem.ScheduledTime = *req.ScheduledTime
	}

	if req.TemplateID != nil {
		if *req.TemplateID == "" {
			rem.TemplateID = nil
		} else {
			rem.TemplateID = req.TemplateID
			subject, message, err := s.snapshotWording(ctx, req.TemplateID, req.Subject, deref(req.Message))
			if err != nil {
				return nil, err
			}
			rem.Subject = subject
			rem.Message = message
		}
	}
	if req.TemplateID == nil || *req.TemplateID == "" {
		if req.Subject != nil {
			rem.Subject = req.Subject
		}
		if req.Message != nil {
			rem.Message = *req.Message
		}
	}

	if len(req.Variables) > 0 {
		subject, message, err := renderWording(rem.Subject, rem.Message, req.Variables)
		if err != nil {
			return nil, err
		}
		rem.Subject = subject
		rem.Message = message
	}

	// Schedule edits always re-derive; a stale send_at must never survive.
	if req.SendAt != nil || req.ScheduledDate != nil || req.ScheduledTime != nil {
		sendAt, err := scheduler.DeriveSendAt(rem.ScheduledDate, rem.ScheduledTime, req.SendAt, s.loc)
		if err != nil {
			return nil, err
		}
		rem.SendAt = sendAt
	}

	rem.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, rem); err != nil {
		return nil, err
	}
	return rem, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Reminder, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*models.Reminder, error) {
	return s.repo.List(ctx, filter)
}

func (s *Service) Pending(ctx context.Context) ([]*models.Reminder, error) {
	return s.repo.Pending(ctx)
}

func (s *Service) Upcoming(ctx context.Context, window time.Duration) ([]*models.Reminder, error) {
	return s.repo.Upcoming(ctx, s.now().UTC(), window)
}

// Cancel transitions a pending reminder to cancelled. A reminder already
// claimed by the dispatcher loses the race and reports a conflict.
func (s *Service) Cancel(ctx context.Context, id string) (*models.Reminder, error) {
	return s.repo.Cancel(ctx, id)
}

// Delete removes a pending or cancelled reminder. Sent and failed reminders
// are kept as the delivery audit trail.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// snapshotWording freezes the message wording for a reminder. An explicit
// subject or message on the request wins over the referenced template's.
func (s *Service) snapshotWording(ctx context.Context, templateID, subject *string, message string) (*string, string, error) {
	if templateID == nil {
		return subject, message, nil
	}

	tpl, err := s.templates.Get(ctx, *templateID)
	if err != nil {
		if apperrors.IsCode(err, apperrors.ErrCodeNotFound) {
			return nil, "", apperrors.NewValidationError("template_id", "template not found: "+*templateID)
		}
		return nil, "", err
	}
	if !tpl.IsActive {
		return nil, "", apperrors.NewValidationError("template_id", "template is inactive: "+*templateID)
	}

	if subject == nil {
		subject = tpl.Subject
	}
	if message == "" {
		message = tpl.Body
	}
	return subject, message, nil
}

func renderWording(subject *string, message string, vars map[string]string) (*string, string, error) {
	rendered, err := render.Render(message, vars)
	if err != nil {
		return nil, "", err
	}
	if subject != nil && render.NeedsRender(*subject) {
		rs, err := render.Render(*subject, vars)
		if err != nil {
			return nil, "", err
		}
		subject = &rs
	}
	return subject, rendered, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
