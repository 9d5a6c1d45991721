// internal/models/reminder.go
package models

import "time"

// ReminderType categorizes reminders; conventionally aligned with the
// template taxonomy but stored independently.
type ReminderType string

const (
	ReminderAppointment ReminderType = "appointment_reminder"
	ReminderVaccination ReminderType = "vaccination_reminder"
	ReminderMedication  ReminderType = "medication_reminder"
	ReminderFollowup    ReminderType = "followup_reminder"
	ReminderGeneral     ReminderType = "general"
)

// Valid reports whether t is a known reminder type.
func (t ReminderType) Valid() bool {
	switch t {
	case ReminderAppointment, ReminderVaccination, ReminderMedication,
		ReminderFollowup, ReminderGeneral:
		return true
	}
	return false
}

// ReminderStatus is the delivery lifecycle state of a reminder.
type ReminderStatus string

const (
	StatusPending   ReminderStatus = "pending"
	StatusSent      ReminderStatus = "sent"
	StatusFailed    ReminderStatus = "failed"
	StatusCancelled ReminderStatus = "cancelled"

	// StatusInFlight is the internal claim marker held while a sweep worker
	// delivers the reminder. It is never serialized: the API reports such
	// rows as pending.
	StatusInFlight ReminderStatus = "in_flight"
)

// Valid reports whether s is one of the operator-visible statuses. The
// internal in_flight claim marker is not a valid boundary value.
func (s ReminderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusSent, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is permitted from s.
func (s ReminderStatus) Terminal() bool {
	switch s {
	case StatusSent, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Public returns the operator-visible status: the in_flight claim marker is
// reported as pending.
func (s ReminderStatus) Public() ReminderStatus {
	if s == StatusInFlight {
		return StatusPending
	}
	return s
}

// Reminder is a single scheduled outbound message tied to a client and
// optionally a patient and appointment. subject/message hold the frozen
// wording; message may retain {variable} placeholders when the render is
// deferred to send time.
type Reminder struct {
	ID             string         `json:"id"`
	ClientID       string         `json:"client_id"`
	PatientID      *string        `json:"patient_id"`
	AppointmentID  *string        `json:"appointment_id"`
	ReminderType   ReminderType   `json:"reminder_type"`
	ScheduledDate  string         `json:"scheduled_date"` // YYYY-MM-DD
	ScheduledTime  string         `json:"scheduled_time"` // HH:MM
	SendAt         time.Time      `json:"send_at"`
	DeliveryMethod Channel        `json:"delivery_method"`
	Status         ReminderStatus `json:"status"`
	TemplateID     *string        `json:"template_id"`
	Subject        *string        `json:"subject"`
	Message        string         `json:"message"`
	Notes          string         `json:"notes"`
	LastError      *string        `json:"last_error"`
	RetryCount     int            `json:"retry_count"`
	SentAt         *time.Time     `json:"sent_at"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}
