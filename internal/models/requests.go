// internal/models/requests.go
package models

import (
	"strings"
	"time"

	apperrors "vetcare-reminders/internal/common/errors"
)

// One typed command struct per console operation, validated once at the
// boundary. No partially-valid intermediate state is ever persisted.

type CreateTemplateRequest struct {
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	TemplateType TemplateType `json:"template_type"`
	Channel      Channel      `json:"channel"`
	Subject      *string      `json:"subject"`
	Body         string       `json:"body"`
	IsActive     *bool        `json:"is_active"`
	IsDefault    bool         `json:"is_default"`
}

func (r *CreateTemplateRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return apperrors.NewValidationError("name", "name is required")
	}
	if !r.TemplateType.Valid() {
		return apperrors.NewValidationError("template_type", "unknown template_type: "+string(r.TemplateType))
	}
	if !r.Channel.Valid() {
		return apperrors.NewValidationError("channel", "unknown channel: "+string(r.Channel))
	}
	if strings.TrimSpace(r.Body) == "" {
		return apperrors.NewValidationError("body", "body is required")
	}
	if r.Channel == ChannelSMS && r.Subject != nil && *r.Subject != "" {
		return apperrors.NewValidationError("subject", "subject applies to email templates only")
	}
	return nil
}

// UpdateTemplateRequest is a patch; nil fields are left unchanged.
type UpdateTemplateRequest struct {
	Name         *string       `json:"name"`
	Description  *string       `json:"description"`
	TemplateType *TemplateType `json:"template_type"`
	Channel      *Channel      `json:"channel"`
	Subject      *string       `json:"subject"`
	Body         *string       `json:"body"`
	IsActive     *bool         `json:"is_active"`
	IsDefault    *bool         `json:"is_default"`
}

func (r *UpdateTemplateRequest) Validate() error {
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return apperrors.NewValidationError("name", "name cannot be empty")
	}
	if r.TemplateType != nil && !r.TemplateType.Valid() {
		return apperrors.NewValidationError("template_type", "unknown template_type: "+string(*r.TemplateType))
	}
	if r.Channel != nil && !r.Channel.Valid() {
		return apperrors.NewValidationError("channel", "unknown channel: "+string(*r.Channel))
	}
	if r.Body != nil && strings.TrimSpace(*r.Body) == "" {
		return apperrors.NewValidationError("body", "body cannot be empty")
	}
	return nil
}

type CreateReminderRequest struct {
	ClientID       string            `json:"client_id"`
	PatientID      *string           `json:"patient_id"`
	AppointmentID  *string           `json:"appointment_id"`
	ReminderType   ReminderType      `json:"reminder_type"`
	ScheduledDate  string            `json:"scheduled_date"`
	ScheduledTime  string            `json:"scheduled_time"`
	SendAt         *time.Time        `json:"send_at"`
	DeliveryMethod Channel           `json:"delivery_method"`
	TemplateID     *string           `json:"template_id"`
	Subject        *string           `json:"subject"`
	Message        string            `json:"message"`
	Notes          string            `json:"notes"`
	Variables      map[string]string `json:"variables"`
}

func (r *CreateReminderRequest) Validate() error {
	if strings.TrimSpace(r.ClientID) == "" {
		return apperrors.NewValidationError("client_id", "client_id is required")
	}
	if !r.ReminderType.Valid() {
		return apperrors.NewValidationError("reminder_type", "unknown reminder_type: "+string(r.ReminderType))
	}
	if !r.DeliveryMethod.Valid() {
		return apperrors.NewValidationError("delivery_method", "unknown delivery_method: "+string(r.DeliveryMethod))
	}
	if r.TemplateID == nil && strings.TrimSpace(r.Message) == "" {
		return apperrors.NewValidationError("message", "message is required when no template_id is given")
	}
	if r.SendAt == nil {
		if err := validateDatePair(r.ScheduledDate, r.ScheduledTime); err != nil {
			return err
		}
	}
	return nil
}

// UpdateReminderRequest is a patch; nil fields are left unchanged. Edits are
// only legal while the reminder is pending.
type UpdateReminderRequest struct {
	PatientID      *string           `json:"patient_id"`
	AppointmentID  *string           `json:"appointment_id"`
	ReminderType   *ReminderType     `json:"reminder_type"`
	ScheduledDate  *string           `json:"scheduled_date"`
	ScheduledTime  *string           `json:"scheduled_time"`
	SendAt         *time.Time        `json:"send_at"`
	DeliveryMethod *Channel          `json:"delivery_method"`
	TemplateID     *string           `json:"template_id"`
	Subject        *string           `json:"subject"`
	Message        *string           `json:"message"`
	Notes          *string           `json:"notes"`
	Variables      map[string]string `json:"variables"`
}

func (r *UpdateReminderRequest) Validate() error {
	if r.ReminderType != nil && !r.ReminderType.Valid() {
		return apperrors.NewValidationError("reminder_type", "unknown reminder_type: "+string(*r.ReminderType))
	}
	if r.DeliveryMethod != nil && !r.DeliveryMethod.Valid() {
		return apperrors.NewValidationError("delivery_method", "unknown delivery_method: "+string(*r.DeliveryMethod))
	}
	if r.Message != nil && strings.TrimSpace(*r.Message) == "" {
		return apperrors.NewValidationError("message", "message cannot be empty")
	}
	if r.ScheduledDate != nil || r.ScheduledTime != nil {
		date, tm := "", ""
		if r.ScheduledDate != nil {
			date = *r.ScheduledDate
		}
		if r.ScheduledTime != nil {
			tm = *r.ScheduledTime
		}
		// Missing halves are merged from the stored reminder before derivation;
		// only supplied values are format-checked here.
		if date != "" {
			if _, err := time.Parse("2006-01-02", date); err != nil {
				return apperrors.NewValidationError("scheduled_date", "expected YYYY-MM-DD")
			}
		}
		if tm != "" {
			if _, err := time.Parse("15:04", tm); err != nil {
				return apperrors.NewValidationError("scheduled_time", "expected HH:MM")
			}
		}
	}
	return nil
}

func validateDatePair(date, tm string) error {
	if date == "" {
		return apperrors.NewValidationError("scheduled_date", "scheduled_date is required when send_at is not given")
	}
	if tm == "" {
		return apperrors.NewValidationError("scheduled_time", "scheduled_time is required when send_at is not given")
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return apperrors.NewValidationError("scheduled_date", "expected YYYY-MM-DD")
	}
	if _, err := time.Parse("15:04", tm); err != nil {
		return apperrors.NewValidationError("scheduled_time", "expected HH:MM")
	}
	return nil
}
