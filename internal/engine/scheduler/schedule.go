// Package scheduler derives absolute send instants and runs the periodic
// sweep that hands due reminders to the dispatcher.
package scheduler

import (
	"time"

	apperrors "vetcare-reminders/internal/common/errors"
)

// DeriveSendAt computes the absolute send instant for a reminder. An explicit
// override is used verbatim; otherwise scheduled_date and scheduled_time are
// combined in the practice's local zone and normalized to UTC. Callers must
// re-derive whenever either input changes: a stale send_at is a defect.
func DeriveSendAt(scheduledDate, scheduledTime string, override *time.Time, loc *time.Location) (time.Time, error) {
	if override != nil {
		return override.UTC(), nil
	}

	d, err := time.Parse("2006-01-02", scheduledDate)
	if err != nil {
		return time.Time{}, apperrors.NewValidationError("scheduled_date", "expected YYYY-MM-DD")
	}
	t, err := time.Parse("15:04", scheduledTime)
	if err != nil {
		return time.Time{}, apperrors.NewValidationError("scheduled_time", "expected HH:MM")
	}

	local := time.Date(d.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), 0, 0, loc)
	return local.UTC(), nil
}
