// Package apod fetches astronomy picture of the day records from NASA.
package apod

import (
	"context"
	"errors"
	"fmt"

	"apodwall/internal/domain"
)

// ErrFetchFailed matches every error returned by a Fetcher.
var ErrFetchFailed = errors.New("fetch failed")

// Fetcher defines the interface for retrieving a daily record.
type Fetcher interface {
	// Fetch returns the record for date (YYYY-MM-DD). An empty date means
	// "today" as the remote source defines it.
	// Failures are reported as *FetchError.
	Fetch(ctx context.Context, date string) (domain.Record, error)
}

// FetchError describes a failed fetch. errors.Is(err, ErrFetchFailed) is true for it.
type FetchError struct {
	Date string
	Err  error
}

func (e *FetchError) Error() string {
	if e.Date == "" {
		return fmt.Sprintf("failed to fetch APOD: %v", e.Err)
	}
	return fmt.Sprintf("failed to fetch APOD for %s: %v", e.Date, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool { return target == ErrFetchFailed }

func fetchErr(date string, err error) error {
	return &FetchError{Date: date, Err: err}
}

// FetcherFunc adapts a plain function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, date string) (domain.Record, error)

func (f FetcherFunc) Fetch(ctx context.Context, date string) (domain.Record, error) {
	return f(ctx, date)
}
