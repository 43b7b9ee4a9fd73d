package apod

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/sirupsen/logrus"

	"apodwall/internal/domain"
)

// DefaultPageBaseURL is the root of the human-facing APOD archive.
const DefaultPageBaseURL = "https://apod.nasa.gov/apod/"

// PageFetcher implements Fetcher by rendering the public APOD page with rod.
// It needs no API key, at the cost of launching a headless browser per fetch.
type PageFetcher struct {
	base    *url.URL
	timeout time.Duration
	log     logrus.FieldLogger
}

// NewPageFetcher creates a new page fetcher rooted at baseURL.
func NewPageFetcher(baseURL string, timeout time.Duration, logger logrus.FieldLogger) (*PageFetcher, error) {
	if baseURL == "" {
		baseURL = DefaultPageBaseURL
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page base URL: %w", err)
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &PageFetcher{
		base:    base,
		timeout: timeout,
		log:     logger.WithField("component", "apod_page"),
	}, nil
}

// PageURL returns the archive page for date; the empty date maps to today's page.
func (f *PageFetcher) PageURL(date string) (string, error) {
	if date == "" {
		return f.base.ResolveReference(&url.URL{Path: "astropix.html"}).String(), nil
	}
	t, err := domain.ParseDate(date)
	if err != nil {
		return "", err
	}
	return f.base.ResolveReference(&url.URL{Path: "ap" + t.Format("060102") + ".html"}).String(), nil
}

// Fetch renders the page for date and extracts its record.
func (f *PageFetcher) Fetch(ctx context.Context, date string) (rec domain.Record, err error) {
	pageURL, err := f.PageURL(date)
	if err != nil {
		return domain.Record{}, fetchErr(date, err)
	}
	log := f.log.WithField("url", pageURL)
	log.Info("Attempting to render APOD page")

	// --- Browser Setup ---
	path, exists := launcher.LookPath()
	if !exists {
		log.Error("Cannot find browser executable for rod")
		return domain.Record{}, fetchErr(date, errors.New("rod browser dependency not found"))
	}
	controlURL, err := launcher.New().Bin(path).Launch()
	if err != nil {
		log.WithError(err).Error("Failed to launch browser")
		return domain.Record{}, fetchErr(date, fmt.Errorf("failed to launch browser: %w", err))
	}
	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		log.WithError(err).Error("Failed to connect to rod browser")
		return domain.Record{}, fetchErr(date, fmt.Errorf("failed to connect to browser: %w", err))
	}
	defer func() {
		if closeErr := browser.Close(); closeErr != nil {
			log.WithError(closeErr).Error("Error closing rod browser instance")
		} else {
			log.Debug("Rod browser instance closed")
		}
	}()

	// --- Page Navigation ---
	page, err := browser.Page(proto.TargetCreateTarget{URL: pageURL})
	if err != nil {
		log.WithError(err).Error("Failed to create rod page")
		return domain.Record{}, fetchErr(date, fmt.Errorf("failed to create page: %w", err))
	}
	defer func() {
		if closeErr := page.Close(); closeErr != nil {
			log.WithError(closeErr).Debug("Error closing rod page")
		}
	}()

	pageCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	page = page.Context(pageCtx)

	if err := page.WaitLoad(); err != nil {
		if errors.Is(pageCtx.Err(), context.DeadlineExceeded) {
			log.WithError(pageCtx.Err()).Warn("Rendering timed out")
			return domain.Record{}, fetchErr(date, fmt.Errorf("rendering timed out: %w", pageCtx.Err()))
		}
		log.WithError(err).Error("Failed to wait for page load")
		return domain.Record{}, fetchErr(date, fmt.Errorf("failed waiting for page load: %w", err))
	}

	src, err := page.HTML()
	if err != nil {
		log.WithError(err).Error("Failed to read page HTML")
		return domain.Record{}, fetchErr(date, fmt.Errorf("failed to read page: %w", err))
	}

	rec, err = parsePage(src, f.base, date)
	if err != nil {
		log.WithError(err).Warn("Failed to extract record from page")
		return domain.Record{}, fetchErr(date, err)
	}

	log.WithField("title", rec.Title).Info("APOD page parsed successfully")
	return rec, nil
}
