// Package dispatcher delivers a claimed reminder across its channel(s) and
// writes the terminal status back.
package dispatcher

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	apperrors "vetcare-reminders/internal/common/errors"
	"vetcare-reminders/internal/common/logger"
	"vetcare-reminders/internal/common/metrics"
	"vetcare-reminders/internal/engine/directory"
	"vetcare-reminders/internal/engine/render"
	"vetcare-reminders/internal/models"
)

const sentMarkerTTL = 24 * time.Hour

// ReminderStore is the slice of the repository the dispatcher needs.
type ReminderStore interface {
	Get(ctx context.Context, id string) (*models.Reminder, error)
	MarkSent(ctx context.Context, id string, sentAt time.Time, retryCount int) error
	MarkFailed(ctx context.Context, id string, lastError string, retryCount int) error
}

// ContextResolver resolves delivery addresses and the render variable context
// for a reminder.
type ContextResolver interface {
	Resolve(ctx context.Context, rem *models.Reminder) (*directory.Contact, map[string]string, error)
}

type Config struct {
	MaxAttempts int
	BaseBackoff time.Duration
	SendTimeout time.Duration
}

type Dispatcher struct {
	store    ReminderStore
	resolver ContextResolver
	email    EmailChannel
	sms      SMSChannel
	redis    *redis.Client
	config   Config
	logger   logger.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func New(store ReminderStore, resolver ContextResolver, email EmailChannel, sms SMSChannel, rdb *redis.Client, config Config, log logger.Logger) *Dispatcher {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	return &Dispatcher{
		store:    store,
		resolver: resolver,
		email:    email,
		sms:      sms,
		redis:    rdb,
		config:   config,
		logger:   log,
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

// Dispatch delivers one claimed reminder to its terminal status. Transient
// channel errors are retried with exponential backoff; render errors and
// permanent channel errors fail immediately. For the both channel every leg
// must succeed. Errors are returned only when no terminal status could be
// written, leaving the row in_flight for lease reclaim.
func (d *Dispatcher) Dispatch(ctx context.Context, id string) error {
	rem, err := d.store.Get(ctx, id)
	if err != nil {
		d.logger.Error("Failed to load claimed reminder", map[string]interface{}{
			"reminderId": id,
			"error":      err.Error(),
		})
		return err
	}

	channel := string(rem.DeliveryMethod)
	timer := prometheus.NewTimer(metrics.DispatchDuration.WithLabelValues(channel))
	defer timer.ObserveDuration()

	// A marker means a previous process sent this reminder but crashed
	// before recording it.
	if d.alreadySent(ctx, rem.ID) {
		d.logger.Warn("Reminder already delivered, recording without resend", map[string]interface{}{
			"reminderId": rem.ID,
		})
		return d.finishSent(ctx, rem, rem.RetryCount)
	}

	subject := ""
	if rem.Subject != nil {
		subject = *rem.Subject
	}
	message := rem.Message

	needEmail := rem.DeliveryMethod == models.ChannelEmail || rem.DeliveryMethod == models.ChannelBoth
	needSMS := rem.DeliveryMethod == models.ChannelSMS || rem.DeliveryMethod == models.ChannelBoth

	var (
		contact   *directory.Contact
		emailDone bool
		smsDone   bool
		lastErr   error
		retries   int
	)

	for attempt := 0; attempt < d.config.MaxAttempts; attempt++ {
		if attempt > 0 {
			retries++
			metrics.SendRetries.WithLabelValues(channel).Inc()
			if err := d.sleep(ctx, d.backoff(attempt)); err != nil {
				d.logger.Warn("Dispatch interrupted during backoff", map[string]interface{}{
					"reminderId": rem.ID,
				})
				return err
			}
		}

		if contact == nil {
			c, vars, err := d.resolver.Resolve(ctx, rem)
			if err != nil {
				lastErr = err
				if apperrors.IsRetryable(err) {
					continue
				}
				break
			}
			contact = c

			if render.NeedsRender(message) || render.NeedsRender(subject) {
				message, err = render.Render(message, vars)
				if err == nil && subject != "" {
					subject, err = render.Render(subject, vars)
				}
				if err != nil {
					lastErr = err
					break
				}
			}
		}

		if needEmail && !emailDone {
			if err := d.sendLeg(ctx, func(c context.Context) error {
				return d.email.Send(c, contact.Email, subject, message)
			}); err != nil {
				lastErr = err
				if apperrors.IsRetryable(err) {
					continue
				}
				break
			}
			emailDone = true
		}

		if needSMS && !smsDone {
			if err := d.sendLeg(ctx, func(c context.Context) error {
				return d.sms.Send(c, contact.Phone, message)
			}); err != nil {
				lastErr = err
				if apperrors.IsRetryable(err) {
					continue
				}
				break
			}
			smsDone = true
		}

		lastErr = nil
		break
	}

	if lastErr != nil {
		return d.finishFailed(ctx, rem, lastErr, retries)
	}
	return d.finishSent(ctx, rem, retries)
}

// sendLeg runs one provider call under the per-attempt timeout.
func (d *Dispatcher) sendLeg(ctx context.Context, send func(context.Context) error) error {
	sendCtx, cancel := context.WithTimeout(ctx, d.config.SendTimeout)
	defer cancel()
	return send(sendCtx)
}

func (d *Dispatcher) backoff(attempt int) time.Duration {
	return d.config.BaseBackoff * (1 << (attempt - 1))
}

func (d *Dispatcher) alreadySent(ctx context.Context, id string) bool {
	n, err := d.redis.Exists(ctx, sentMarkerKey(id)).Result()
	if err != nil {
		// The marker is a secondary guard; the CAS claim already holds.
		d.logger.Warn("Sent-marker lookup failed", map[string]interface{}{
			"reminderId": id,
			"error":      err.Error(),
		})
		return false
	}
	return n > 0
}

func (d *Dispatcher) finishSent(ctx context.Context, rem *models.Reminder, retries int) error {
	// Terminal writes survive shutdown cancellation; losing them would
	// resend an already delivered reminder after lease expiry.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	sentAt := d.now().UTC()
	if err := d.store.MarkSent(writeCtx, rem.ID, sentAt, retries); err != nil {
		d.logger.Error("Failed to record sent reminder", map[string]interface{}{
			"reminderId": rem.ID,
			"error":      err.Error(),
		})
		return err
	}

	if err := d.redis.Set(writeCtx, sentMarkerKey(rem.ID), "1", sentMarkerTTL).Err(); err != nil {
		d.logger.Warn("Failed to set sent marker", map[string]interface{}{
			"reminderId": rem.ID,
			"error":      err.Error(),
		})
	}

	metrics.RemindersDispatched.WithLabelValues(string(rem.DeliveryMethod), "sent").Inc()
	d.logger.Info("Reminder delivered", map[string]interface{}{
		"reminderId": rem.ID,
		"channel":    string(rem.DeliveryMethod),
		"retries":    retries,
	})
	return nil
}

func (d *Dispatcher) finishFailed(ctx context.Context, rem *models.Reminder, cause error, retries int) error {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	e := apperrors.AsError(cause)
	detail := e.Message
	if e.Details != "" {
		detail = fmt.Sprintf("%s: %s", e.Message, e.Details)
	}

	if err := d.store.MarkFailed(writeCtx, rem.ID, detail, retries); err != nil {
		d.logger.Error("Failed to record failed reminder", map[string]interface{}{
			"reminderId": rem.ID,
			"error":      err.Error(),
		})
		return err
	}

	metrics.RemindersDispatched.WithLabelValues(string(rem.DeliveryMethod), "failed").Inc()
	d.logger.Error("Reminder delivery failed", map[string]interface{}{
		"reminderId": rem.ID,
		"channel":    string(rem.DeliveryMethod),
		"retries":    retries,
		"error":      detail,
	})
	return nil
}

func sentMarkerKey(id string) string {
	return "reminder:sent:" + id
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
