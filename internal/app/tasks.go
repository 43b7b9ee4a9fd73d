package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"apodwall/internal/domain"
	"apodwall/internal/notify"
	"apodwall/internal/storage"
)

// CheckForNew loads today's record and notifies about it once per date.
// It reports whether a notification was sent. A missing notification
// permission is not an error.
func (a *App) CheckForNew(ctx context.Context) (bool, error) {
	rec, err := a.cache.GetToday(ctx)
	if err != nil {
		return false, err
	}
	sent, err := a.guard.NotifyOnce(ctx, rec.Date, notify.Notification{
		Title: "New Astronomy Picture of the Day",
		Body:  rec.Title,
	})
	if errors.Is(err, notify.ErrPermissionDenied) {
		a.log.WithField("date", rec.Date).Debug("Notifications not permitted, skipping")
		return false, nil
	}
	return sent, err
}

// Watch runs CheckForNew now and on every tick of interval until ctx is done.
// With a Badger store the value-log GC runs alongside.
func (a *App) Watch(ctx context.Context, interval time.Duration) error {
	log := a.log.WithField("interval", interval)

	var wg sync.WaitGroup
	defer wg.Wait()
	if bs, ok := a.store.(*storage.BadgerStore); ok {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bs.RunGC(ctx, gcInterval)
		}()
	}

	check := func() {
		if _, err := a.CheckForNew(ctx); err != nil && ctx.Err() == nil {
			log.WithError(err).Warn("Check for a new picture failed")
		}
	}

	log.Info("Watching for new pictures")
	check()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			check()
		case <-ctx.Done():
			log.Info("Watch stopped")
			return nil
		}
	}
}

// SetWallpaper applies the record for date as the wallpaper. The empty date
// means today. Dates found in history are used without a network call.
func (a *App) SetWallpaper(ctx context.Context, date string) (domain.Record, string, error) {
	rec, err := a.resolve(ctx, date)
	if err != nil {
		return domain.Record{}, "", err
	}
	path, err := a.wallpaper.Apply(ctx, rec)
	a.metrics.Wallpaper(err)
	return rec, path, err
}

func (a *App) resolve(ctx context.Context, date string) (domain.Record, error) {
	if date == "" {
		return a.cache.GetToday(ctx)
	}
	if entry, ok := a.history.Get(ctx, date); ok {
		return entry.Record, nil
	}
	return a.Show(ctx, date)
}

type testSender interface {
	SendTest(ctx context.Context) error
}

// NotifyTest sends a test notification through the configured service.
func (a *App) NotifyTest(ctx context.Context) error {
	ts, ok := a.notifier.(testSender)
	if !ok {
		return ErrNoNotifier
	}
	return ts.SendTest(ctx)
}

// CancelNotifications cancels every scheduled notification.
func (a *App) CancelNotifications(ctx context.Context) error {
	return a.notifier.CancelAll(ctx)
}
