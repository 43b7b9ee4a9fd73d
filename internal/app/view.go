package app

import (
	"context"
	"errors"

	"apodwall/internal/apod"
	"apodwall/internal/domain"
	"apodwall/internal/notify"
	"apodwall/internal/storage"
	"apodwall/internal/wallpaper"
)

// State is the presentation state of a View.
type State int

const (
	StateLoading State = iota
	StateLoaded
	StateError
)

func (s State) String() string {
	switch s {
	case StateLoaded:
		return "loaded"
	case StateError:
		return "error"
	default:
		return "loading"
	}
}

// View is everything a front end needs to render the main screen.
type View struct {
	State   State
	Record  domain.Record
	History []domain.HistoryEntry
	Message string
}

// Load resolves today's record and the history. History is returned in
// both states.
func (a *App) Load(ctx context.Context) View {
	rec, err := a.cache.GetToday(ctx)
	hist := a.history.List(ctx)
	if err != nil {
		a.log.WithError(err).Error("Failed to load today's record")
		return View{State: StateError, History: hist, Message: UserMessage(err)}
	}
	return View{State: StateLoaded, Record: rec, History: hist}
}

// UserMessage turns err into one short line suitable for display.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return "The request timed out. Please try again later."
	case errors.Is(err, context.Canceled):
		return "The request was cancelled."
	case errors.Is(err, apod.ErrFetchFailed):
		// Before ErrMalformed: a bad response body is a fetch failure, not a bad date.
		return "Could not load the Astronomy Picture of the Day. Check your connection and try again."
	case errors.Is(err, domain.ErrMalformed):
		return "Please use a date in the form YYYY-MM-DD."
	case errors.Is(err, wallpaper.ErrNotImage):
		return "This picture is a video and cannot be used as a wallpaper."
	case errors.Is(err, notify.ErrPermissionDenied), errors.Is(err, ErrNoNotifier):
		return "Notifications are not enabled."
	case errors.Is(err, storage.ErrUnavailable):
		return "Local storage is unavailable."
	default:
		return "Something went wrong. Please try again."
	}
}
