// Package notify delivers "new picture" notifications at most once per day.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"apodwall/internal/storage"
)

// LastDateKey holds the date of the last delivered notification.
const LastDateKey = "last_notification_date"

// Outcome labels passed to the Observer.
const (
	StatusSent    = "sent"
	StatusSkipped = "skipped"
	StatusError   = "error"
)

// ErrPermissionDenied is returned when the notifier may not deliver.
var ErrPermissionDenied = errors.New("notification permission not granted")

// Notification is one message to deliver. A zero At means immediately.
type Notification struct {
	Title string
	Body  string
	At    time.Time
}

// Notifier is the host's notification capability.
type Notifier interface {
	Schedule(ctx context.Context, n Notification) error
	RequestPermission(ctx context.Context) (bool, error)
	CancelAll(ctx context.Context) error
}

// Observer is told the outcome of every NotifyOnce call.
type Observer interface {
	Notification(status string)
}

// Guard ensures a notification is delivered at most once per date.
type Guard struct {
	kv       storage.Store
	notifier Notifier
	observer Observer
	log      logrus.FieldLogger
}

// NewGuard creates a guard. observer may be nil.
func NewGuard(kv storage.Store, notifier Notifier, observer Observer, logger logrus.FieldLogger) *Guard {
	return &Guard{
		kv:       kv,
		notifier: notifier,
		observer: observer,
		log:      logger.WithField("component", "notify_guard"),
	}
}

// Notified reports whether a notification was already delivered for date.
// Unreadable storage counts as "not yet".
func (g *Guard) Notified(ctx context.Context, date string) bool {
	last, err := g.kv.Get(ctx, LastDateKey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			g.log.WithError(err).Warn("Failed to read last notification date")
		}
		return false
	}
	return last == date
}

// NotifyOnce schedules n unless a notification was already delivered for date.
// It reports whether n was scheduled.
func (g *Guard) NotifyOnce(ctx context.Context, date string, n Notification) (bool, error) {
	log := g.log.WithField("date", date)

	if g.Notified(ctx, date) {
		g.observe(StatusSkipped)
		log.Debug("Already notified for this date")
		return false, nil
	}

	granted, err := g.notifier.RequestPermission(ctx)
	if err != nil {
		g.observe(StatusError)
		return false, fmt.Errorf("failed to request notification permission: %w", err)
	}
	if !granted {
		g.observe(StatusSkipped)
		return false, ErrPermissionDenied
	}

	if err := g.notifier.Schedule(ctx, n); err != nil {
		g.observe(StatusError)
		log.WithError(err).Error("Failed to schedule notification")
		return false, fmt.Errorf("failed to schedule notification: %w", err)
	}

	if err := g.kv.Set(ctx, LastDateKey, date); err != nil {
		log.WithError(err).Error("Failed to record notification date")
	}
	g.observe(StatusSent)
	log.WithField("title", n.Title).Info("Notification scheduled")
	return true, nil
}

// Reset forgets the last notification date. Errors are logged and swallowed.
func (g *Guard) Reset(ctx context.Context) {
	if err := g.kv.Remove(ctx, LastDateKey); err != nil {
		g.log.WithError(err).Error("Failed to reset notification date")
	}
}

func (g *Guard) observe(status string) {
	if g.observer != nil {
		g.observer.Notification(status)
	}
}

// Nop is a Notifier that never has permission. It is used when no
// notification service is configured.
type Nop struct{}

func (Nop) Schedule(ctx context.Context, n Notification) error   { return ErrPermissionDenied }
func (Nop) RequestPermission(ctx context.Context) (bool, error) { return false, nil }
func (Nop) CancelAll(ctx context.Context) error                  { return nil }
