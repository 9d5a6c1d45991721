// internal/models/template.go
package models

import "time"

// TemplateType categorizes reusable message templates.
type TemplateType string

const (
	TemplateAppointmentReminder TemplateType = "appointment_reminder"
	TemplateVaccinationReminder TemplateType = "vaccination_reminder"
	TemplateMedicationReminder  TemplateType = "medication_reminder"
	TemplateFollowupReminder    TemplateType = "followup_reminder"
	TemplateGeneral             TemplateType = "general"
)

// Valid reports whether t is a known template type.
func (t TemplateType) Valid() bool {
	switch t {
	case TemplateAppointmentReminder, TemplateVaccinationReminder,
		TemplateMedicationReminder, TemplateFollowupReminder, TemplateGeneral:
		return true
	}
	return false
}

// Channel is the delivery medium for a message.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelBoth  Channel = "both"
)

// Valid reports whether c is a known channel.
func (c Channel) Valid() bool {
	switch c {
	case ChannelEmail, ChannelSMS, ChannelBoth:
		return true
	}
	return false
}

// NotificationTemplate is a reusable, parameterized message for a category of
// reminder. Body and subject may contain {variable} placeholders.
type NotificationTemplate struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	TemplateType TemplateType `json:"template_type"`
	Channel      Channel      `json:"channel"`
	Subject      *string      `json:"subject"`
	Body         string       `json:"body"`
	Variables    []string     `json:"variables"`
	IsActive     bool         `json:"is_active"`
	IsDefault    bool         `json:"is_default"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}
