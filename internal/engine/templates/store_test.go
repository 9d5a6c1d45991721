package templates

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "vetcare-reminders/internal/common/errors"
	"vetcare-reminders/internal/models"
)

var templateRows = []string{
	"id", "name", "description", "template_type", "channel", "subject", "body",
	"variables", "is_active", "is_default", "created_at", "updated_at",
}

func strptr(s string) *string { return &s }

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return NewStore(db), mock, func() { db.Close() }
}

func addTemplateRow(rows *sqlmock.Rows, id, name string, isDefault bool) *sqlmock.Rows {
	now := time.Now().UTC()
	return rows.AddRow(
		id, name, "", "vaccination_reminder", "email",
		"Vaccination due for {patient_name}", "Hi {client_name}",
		"{patient_name,client_name}", true, isDefault, now, now,
	)
}

func TestCreateDerivesDeclaredVariables(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO notification_templates`).
		WithArgs(
			sqlmock.AnyArg(), "Vax Due", "", models.TemplateVaccinationReminder, models.ChannelEmail,
			"Vaccination due for {patient_name}",
			"Hi {client_name}, {patient_name} is due on {date}.",
			pq.Array([]string{"patient_name", "client_name", "date"}),
			true, false, sqlmock.AnyArg(), sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tpl, err := store.Create(context.Background(), &models.CreateTemplateRequest{
		Name:         "Vax Due",
		TemplateType: models.TemplateVaccinationReminder,
		Channel:      models.ChannelEmail,
		Subject:      strptr("Vaccination due for {patient_name}"),
		Body:         "Hi {client_name}, {patient_name} is due on {date}.",
	})
	require.NoError(t, err)
	// Subject variables first, then body, first appearance order, deduped.
	assert.Equal(t, []string{"patient_name", "client_name", "date"}, tpl.Variables)
	assert.True(t, tpl.IsActive)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDefaultDemotesPreviousDefault(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE notification_templates\s+SET is_default = FALSE`).
		WithArgs(models.TemplateVaccinationReminder, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO notification_templates`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	_, err := store.Create(context.Background(), &models.CreateTemplateRequest{
		Name:         "Vax Due",
		TemplateType: models.TemplateVaccinationReminder,
		Channel:      models.ChannelEmail,
		Body:         "Hi",
		IsDefault:    true,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDuplicateNameConflicts(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO notification_templates`).
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	_, err := store.Create(context.Background(), &models.CreateTemplateRequest{
		Name:         "Vax Due",
		TemplateType: models.TemplateVaccinationReminder,
		Channel:      models.ChannelEmail,
		Body:         "Hi",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConflict))
}

func TestCreateConcurrentDefaultPromotionConflicts(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	// A racing writer can commit its default between clearDefault and the
	// insert; the partial unique index rejects the second one.
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE notification_templates\s+SET is_default = FALSE`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO notification_templates`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "notification_templates_default_per_type"})
	mock.ExpectRollback()

	_, err := store.Create(context.Background(), &models.CreateTemplateRequest{
		Name:         "Vax Due",
		TemplateType: models.TemplateVaccinationReminder,
		Channel:      models.ChannelEmail,
		Body:         "Hi",
		IsDefault:    true,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConflict))
	assert.Contains(t, apperrors.AsError(err).Message, "default")
}

func TestCreateRejectsSubjectOnSMS(t *testing.T) {
	store, _, done := newMockStore(t)
	defer done()

	_, err := store.Create(context.Background(), &models.CreateTemplateRequest{
		Name:         "SMS",
		TemplateType: models.TemplateGeneral,
		Channel:      models.ChannelSMS,
		Subject:      strptr("nope"),
		Body:         "Hi",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))
}

func TestGetNotFound(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	mock.ExpectQuery(`(?s)SELECT .+ FROM notification_templates WHERE id = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(templateRows))

	_, err := store.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))
}

func TestListFiltersByTypeAndChannel(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	rows := sqlmock.NewRows(templateRows)
	addTemplateRow(rows, "tpl-1", "Vax Due", false)

	mock.ExpectQuery(`(?s)SELECT .+ FROM notification_templates WHERE template_type = \$1 AND channel = \$2`).
		WithArgs("vaccination_reminder", "email").
		WillReturnRows(rows)

	list, err := store.List(context.Background(), ListFilter{
		TemplateType: models.TemplateVaccinationReminder,
		Channel:      models.ChannelEmail,
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Vax Due", list[0].Name)
}

func TestUpdatePromotionToDefaultIsAtomic(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	mock.ExpectBegin()
	rows := sqlmock.NewRows(templateRows)
	addTemplateRow(rows, "tpl-2", "Vax Due v2", false)
	mock.ExpectQuery(`(?s)SELECT .+ FROM notification_templates WHERE id = \$1 FOR UPDATE`).
		WithArgs("tpl-2").
		WillReturnRows(rows)
	mock.ExpectExec(`UPDATE notification_templates\s+SET is_default = FALSE`).
		WithArgs("vaccination_reminder", "tpl-2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`(?s)UPDATE notification_templates\s+SET name =`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	isDefault := true
	tpl, err := store.Update(context.Background(), "tpl-2", &models.UpdateTemplateRequest{
		IsDefault: &isDefault,
	})
	require.NoError(t, err)
	assert.True(t, tpl.IsDefault)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateBodyRederivesVariables(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	mock.ExpectBegin()
	rows := sqlmock.NewRows(templateRows)
	addTemplateRow(rows, "tpl-1", "Vax Due", false)
	mock.ExpectQuery(`(?s)SELECT .+ FOR UPDATE`).
		WillReturnRows(rows)
	mock.ExpectExec(`(?s)UPDATE notification_templates\s+SET name =`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	body := "See you on {date} at {time}."
	subject := "Reminder"
	tpl, err := store.Update(context.Background(), "tpl-1", &models.UpdateTemplateRequest{
		Subject: &subject,
		Body:    &body,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"date", "time"}, tpl.Variables)
}

func TestDeleteConflictsWhileReferenced(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	mock.ExpectQuery(`(?s)SELECT EXISTS`).
		WithArgs("tpl-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	err := store.Delete(context.Background(), "tpl-1")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConflict))
}

func TestDeleteUnreferencedSucceeds(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	mock.ExpectQuery(`(?s)SELECT EXISTS`).
		WithArgs("tpl-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(`DELETE FROM notification_templates`).
		WithArgs("tpl-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Delete(context.Background(), "tpl-1"))
}

func TestDeleteIgnoresTerminalReferences(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	// The reference guard counts only pending and in_flight rows; sent and
	// failed reminders carry frozen wording and never pin their template.
	mock.ExpectQuery(`(?s)SELECT EXISTS.+status IN \('pending', 'in_flight'\)`).
		WithArgs("tpl-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(`DELETE FROM notification_templates`).
		WithArgs("tpl-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Delete(context.Background(), "tpl-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteNotFound(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	mock.ExpectQuery(`(?s)SELECT EXISTS`).
		WithArgs("tpl-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(`DELETE FROM notification_templates`).
		WithArgs("tpl-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Delete(context.Background(), "tpl-1")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))
}
