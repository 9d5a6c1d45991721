package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "vetcare-reminders/internal/common/errors"
)

func strptr(s string) *string { return &s }

func validCreateReminder() *CreateReminderRequest {
	return &CreateReminderRequest{
		ClientID:       "client-1",
		ReminderType:   ReminderVaccination,
		ScheduledDate:  "2026-09-01",
		ScheduledTime:  "09:00",
		DeliveryMethod: ChannelEmail,
		Message:        "Rex is due",
	}
}

func TestCreateReminderValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateReminderRequest)
		field  string
	}{
		{"missing client_id", func(r *CreateReminderRequest) { r.ClientID = " " }, "client_id"},
		{"unknown reminder_type", func(r *CreateReminderRequest) { r.ReminderType = "birthday" }, "reminder_type"},
		{"unknown delivery_method", func(r *CreateReminderRequest) { r.DeliveryMethod = "fax" }, "delivery_method"},
		{"no message and no template", func(r *CreateReminderRequest) { r.Message = "" }, "message"},
		{"bad date", func(r *CreateReminderRequest) { r.ScheduledDate = "09/01/2026" }, "scheduled_date"},
		{"bad time", func(r *CreateReminderRequest) { r.ScheduledTime = "9am" }, "scheduled_time"},
		{"missing date", func(r *CreateReminderRequest) { r.ScheduledDate = "" }, "scheduled_date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validCreateReminder()
			tt.mutate(req)
			err := req.Validate()
			require.Error(t, err)
			e := apperrors.AsError(err)
			assert.Equal(t, apperrors.ErrCodeValidation, e.Code)
			assert.Equal(t, tt.field, e.Metadata["field"])
		})
	}
}

func TestCreateReminderValidWithTemplateAndNoMessage(t *testing.T) {
	req := validCreateReminder()
	req.Message = ""
	req.TemplateID = strptr("tpl-1")
	assert.NoError(t, req.Validate())
}

func TestCreateReminderExplicitSendAtSkipsDatePair(t *testing.T) {
	at := time.Date(2026, 9, 1, 13, 0, 0, 0, time.UTC)
	req := validCreateReminder()
	req.ScheduledDate = ""
	req.ScheduledTime = ""
	req.SendAt = &at
	assert.NoError(t, req.Validate())
}

func TestUpdateReminderPatchValidation(t *testing.T) {
	empty := ""
	bad := ReminderType("birthday")

	assert.Error(t, (&UpdateReminderRequest{Message: &empty}).Validate())
	assert.Error(t, (&UpdateReminderRequest{ReminderType: &bad}).Validate())
	assert.NoError(t, (&UpdateReminderRequest{}).Validate())

	date := "2026-12-01"
	assert.NoError(t, (&UpdateReminderRequest{ScheduledDate: &date}).Validate())
}

func TestCreateTemplateValidation(t *testing.T) {
	valid := CreateTemplateRequest{
		Name:         "Vax Due",
		TemplateType: TemplateVaccinationReminder,
		Channel:      ChannelEmail,
		Body:         "Hi {client_name}",
	}
	assert.NoError(t, valid.Validate())

	noName := valid
	noName.Name = ""
	assert.Error(t, noName.Validate())

	smsWithSubject := valid
	smsWithSubject.Channel = ChannelSMS
	smsWithSubject.Subject = strptr("subject")
	assert.Error(t, smsWithSubject.Validate())
}

func TestStatusPublicMasksInFlight(t *testing.T) {
	assert.Equal(t, StatusPending, StatusInFlight.Public())
	assert.Equal(t, StatusSent, StatusSent.Public())
	assert.True(t, StatusSent.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusInFlight.Terminal())
	assert.False(t, StatusPending.Terminal())
}

func TestStatusValidAcceptsPublicValuesOnly(t *testing.T) {
	for _, s := range []ReminderStatus{StatusPending, StatusSent, StatusFailed, StatusCancelled} {
		assert.True(t, s.Valid(), string(s))
	}
	assert.False(t, StatusInFlight.Valid())
	assert.False(t, ReminderStatus("bogus").Valid())
}
