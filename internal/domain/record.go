package domain

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the calendar date format used for record dates and persisted date keys.
const DateLayout = "2006-01-02"

// DefaultMaxHistory is the history cap used when none is configured.
const DefaultMaxHistory = 50

// ErrMalformed is returned when persisted or remote data fails to decode or validate.
var ErrMalformed = errors.New("malformed data")

// MediaType is the kind of media a record points at.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

// Valid reports whether m is a known media type.
func (m MediaType) Valid() bool {
	return m == MediaImage || m == MediaVideo
}

// Record represents one astronomy picture of the day.
type Record struct {
	// Date identifies the record (YYYY-MM-DD). It never changes once fetched.
	Date string `json:"date"`

	Title       string    `json:"title"`
	Explanation string    `json:"explanation"`
	MediaType   MediaType `json:"media_type"`

	// URL is the primary media locator (image or embeddable video).
	URL string `json:"url"`

	// HDURL is an optional high-resolution image locator.
	HDURL string `json:"hdurl,omitempty"`

	// Copyright is the optional attribution string.
	Copyright string `json:"copyright,omitempty"`
}

// IsImage reports whether the record can be used as a wallpaper.
func (r Record) IsImage() bool {
	return r.MediaType == MediaImage
}

// Validate checks the fields every stored or fetched record must carry.
func (r Record) Validate() error {
	if _, err := ParseDate(r.Date); err != nil {
		return err
	}
	if r.Title == "" {
		return fmt.Errorf("%w: record %s has no title", ErrMalformed, r.Date)
	}
	if r.URL == "" {
		return fmt.Errorf("%w: record %s has no url", ErrMalformed, r.Date)
	}
	if !r.MediaType.Valid() {
		return fmt.Errorf("%w: record %s has unknown media type %q", ErrMalformed, r.Date, r.MediaType)
	}
	return nil
}

// HistoryEntry is a record plus the time it was last inserted into history.
type HistoryEntry struct {
	Record
	AddedAt time.Time `json:"added_at"`
}

// Today returns the UTC calendar date of now. The day boundary is UTC midnight.
func Today(now time.Time) string {
	return now.UTC().Format(DateLayout)
}

// ParseDate validates a YYYY-MM-DD string.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q", ErrMalformed, s)
	}
	return t, nil
}
