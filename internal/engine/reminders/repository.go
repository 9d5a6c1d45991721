// Package reminders persists scheduled reminders and owns the conditional
// status updates that make claiming and cancelling race-safe.
package reminders

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	apperrors "vetcare-reminders/internal/common/errors"
	"vetcare-reminders/internal/models"
)

const reminderColumns = `id, client_id, patient_id, appointment_id, reminder_type,
	scheduled_date, scheduled_time, send_at, delivery_method, status,
	template_id, subject, message, notes, last_error, retry_count, sent_at,
	created_at, updated_at`

// Repository is the Postgres-backed reminder store.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a fully-built reminder row.
func (r *Repository) Create(ctx context.Context, rem *models.Reminder) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reminders (`+reminderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`,
		rem.ID, rem.ClientID, rem.PatientID, rem.AppointmentID, rem.ReminderType,
		rem.ScheduledDate, rem.ScheduledTime, rem.SendAt, rem.DeliveryMethod, rem.Status,
		rem.TemplateID, rem.Subject, rem.Message, rem.Notes, rem.LastError,
		rem.RetryCount, rem.SentAt, rem.CreatedAt, rem.UpdatedAt,
	)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	return nil
}

// Get retrieves a reminder by id.
func (r *Repository) Get(ctx context.Context, id string) (*models.Reminder, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+reminderColumns+` FROM reminders WHERE id = $1
	`, id)

	rem, err := scanReminder(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("reminder", id)
	}
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return rem, nil
}

// ListFilter narrows List results; zero values match everything. A pending
// status filter also matches claimed (in_flight) rows, which the API reports
// as pending.
type ListFilter struct {
	Status       models.ReminderStatus
	ReminderType models.ReminderType
	ClientID     string
}

// List returns reminders matching the filter, soonest send first.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]*models.Reminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminders`
	var conds []string
	var args []interface{}

	if filter.Status != "" {
		if filter.Status == models.StatusPending {
			conds = append(conds, "status IN ('pending', 'in_flight')")
		} else {
			args = append(args, filter.Status)
			conds = append(conds, "status = $"+strconv.Itoa(len(args)))
		}
	}
	if filter.ReminderType != "" {
		args = append(args, filter.ReminderType)
		conds = append(conds, "reminder_type = $"+strconv.Itoa(len(args)))
	}
	if filter.ClientID != "" {
		args = append(args, filter.ClientID)
		conds = append(conds, "client_id = $"+strconv.Itoa(len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY send_at ASC"

	return r.queryReminders(ctx, query, args...)
}

// Pending returns all reminders awaiting delivery.
func (r *Repository) Pending(ctx context.Context) ([]*models.Reminder, error) {
	return r.queryReminders(ctx, `
		SELECT `+reminderColumns+` FROM reminders
		WHERE status IN ('pending', 'in_flight')
		ORDER BY send_at ASC
	`)
}

// Upcoming returns pending reminders with send_at inside [now, now+window).
func (r *Repository) Upcoming(ctx context.Context, now time.Time, window time.Duration) ([]*models.Reminder, error) {
	return r.queryReminders(ctx, `
		SELECT `+reminderColumns+` FROM reminders
		WHERE status IN ('pending', 'in_flight') AND send_at >= $1 AND send_at < $2
		ORDER BY send_at ASC
	`, now, now.Add(window))
}

// Update rewrites the mutable fields of a pending reminder. The conditional
// WHERE keeps edits from racing a claim or a terminal write.
func (r *Repository) Update(ctx context.Context, rem *models.Reminder) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE reminders
		SET patient_id = $2, appointment_id = $3, reminder_type = $4,
		    scheduled_date = $5, scheduled_time = $6, send_at = $7,
		    delivery_method = $8, template_id = $9, subject = $10,
		    message = $11, notes = $12, updated_at = $13
		WHERE id = $1 AND status = 'pending'
	`,
		rem.ID, rem.PatientID, rem.AppointmentID, rem.ReminderType,
		rem.ScheduledDate, rem.ScheduledTime, rem.SendAt,
		rem.DeliveryMethod, rem.TemplateID, rem.Subject,
		rem.Message, rem.Notes, rem.UpdatedAt,
	)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if affected == 0 {
		return apperrors.NewConflictError("reminder is not editable", "id: "+rem.ID)
	}
	return nil
}

// DueIDs returns ids ready for delivery: pending rows past their send_at plus
// in_flight rows whose claim lease expired (a worker died mid-dispatch).
func (r *Repository) DueIDs(ctx context.Context, now time.Time, leaseTTL time.Duration, limit int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id FROM reminders
		WHERE (status = 'pending' AND send_at <= $1)
		   OR (status = 'in_flight' AND claimed_at < $2)
		ORDER BY send_at ASC
		LIMIT $3
	`, now, now.Add(-leaseTTL), limit)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return ids, nil
}

// Claim atomically moves a reminder from pending (or an expired in_flight
// lease) to in_flight. Exactly one concurrent caller wins; the rest see false.
func (r *Repository) Claim(ctx context.Context, id string, now time.Time, leaseTTL time.Duration) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE reminders
		SET status = 'in_flight', claimed_at = $2, updated_at = $2
		WHERE id = $1
		  AND (status = 'pending' OR (status = 'in_flight' AND claimed_at < $3))
	`, id, now, now.Add(-leaseTTL))
	if err != nil {
		return false, apperrors.NewInternalError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, apperrors.NewInternalError(err)
	}
	return affected == 1, nil
}

// MarkSent finalizes a claimed reminder as delivered.
func (r *Repository) MarkSent(ctx context.Context, id string, sentAt time.Time, retryCount int) error {
	return r.finalize(ctx, `
		UPDATE reminders
		SET status = 'sent', sent_at = $2, retry_count = $3, last_error = NULL,
		    claimed_at = NULL, updated_at = $4
		WHERE id = $1 AND status = 'in_flight'
	`, id, sentAt, retryCount, time.Now().UTC())
}

// MarkFailed finalizes a claimed reminder as failed, recording the last error.
func (r *Repository) MarkFailed(ctx context.Context, id string, lastError string, retryCount int) error {
	return r.finalize(ctx, `
		UPDATE reminders
		SET status = 'failed', last_error = $2, retry_count = $3,
		    claimed_at = NULL, updated_at = $4
		WHERE id = $1 AND status = 'in_flight'
	`, id, lastError, retryCount, time.Now().UTC())
}

// Release returns a claimed reminder to pending without a delivery attempt
// (used on shutdown mid-batch).
func (r *Repository) Release(ctx context.Context, id string) error {
	return r.finalize(ctx, `
		UPDATE reminders
		SET status = 'pending', claimed_at = NULL, updated_at = $2
		WHERE id = $1 AND status = 'in_flight'
	`, id, time.Now().UTC())
}

func (r *Repository) finalize(ctx context.Context, query string, args ...interface{}) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if affected == 0 {
		return apperrors.NewConflictError("reminder is not claimed", "status changed concurrently")
	}
	return nil
}

// Cancel moves a pending reminder to cancelled. A reminder already claimed by
// the sweep (or already terminal) reports Conflict so the operator knows the
// send may be underway.
func (r *Repository) Cancel(ctx context.Context, id string) (*models.Reminder, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE reminders
		SET status = 'cancelled', updated_at = $2
		WHERE id = $1 AND status = 'pending'
	`, id, time.Now().UTC())
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if affected == 0 {
		// Distinguish a missing id from a lost race.
		if _, err := r.Get(ctx, id); err != nil {
			return nil, err
		}
		return nil, apperrors.NewConflictError("reminder cannot be cancelled", "id: "+id)
	}
	return r.Get(ctx, id)
}

// Delete removes a pending or cancelled reminder. Sent and failed records are
// kept for audit.
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM reminders
		WHERE id = $1 AND status IN ('pending', 'cancelled')
	`, id)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if affected == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return err
		}
		return apperrors.NewConflictError("reminder is part of the audit trail", "id: "+id)
	}
	return nil
}

func (r *Repository) queryReminders(ctx context.Context, query string, args ...interface{}) ([]*models.Reminder, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	defer rows.Close()

	out := []*models.Reminder{}
	for rows.Next() {
		rem, err := scanReminder(rows)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		out = append(out, rem)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReminder(row rowScanner) (*models.Reminder, error) {
	var rem models.Reminder
	err := row.Scan(
		&rem.ID, &rem.ClientID, &rem.PatientID, &rem.AppointmentID, &rem.ReminderType,
		&rem.ScheduledDate, &rem.ScheduledTime, &rem.SendAt, &rem.DeliveryMethod, &rem.Status,
		&rem.TemplateID, &rem.Subject, &rem.Message, &rem.Notes, &rem.LastError,
		&rem.RetryCount, &rem.SentAt, &rem.CreatedAt, &rem.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rem, nil
}
