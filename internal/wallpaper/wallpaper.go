// Package wallpaper downloads APOD images and hands them to a desktop setter.
package wallpaper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"apodwall/internal/domain"
)

const (
	defaultExt      = ".jpg"
	defaultTimeout  = 60 * time.Second
	maxImageBytes   = 64 << 20
	filePermissions = 0o644
)

var (
	// ErrNotImage is returned for records whose media is not a still image.
	ErrNotImage = errors.New("record is not an image")
	// ErrTooLarge is returned when an image exceeds the download limit.
	ErrTooLarge = errors.New("image exceeds download limit")
)

// Setter applies a local image file as the desktop wallpaper.
type Setter interface {
	SetWallpaper(ctx context.Context, localPath string) error
}

// SetterFunc adapts a function to Setter.
type SetterFunc func(ctx context.Context, localPath string) error

func (f SetterFunc) SetWallpaper(ctx context.Context, localPath string) error {
	return f(ctx, localPath)
}

// Chain tries each setter in order and stops at the first success.
type Chain []Setter

func (c Chain) SetWallpaper(ctx context.Context, localPath string) error {
	if len(c) == 0 {
		return errors.New("no wallpaper setter configured")
	}
	var errs []error
	for _, s := range c {
		err := s.SetWallpaper(ctx, localPath)
		if err == nil {
			return nil
		}
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Options configures a Service.
type Options struct {
	Dir        string
	PreferHD   bool
	HTTPClient *http.Client
	// MaxBytes caps the image size. Zero means 64 MiB.
	MaxBytes int64
}

// Service downloads records into Dir and applies them with a Setter.
type Service struct {
	dir        string
	preferHD   bool
	httpClient *http.Client
	maxBytes   int64
	setter     Setter
	log        logrus.FieldLogger
}

// NewService creates a wallpaper service.
func NewService(opts Options, setter Setter, logger logrus.FieldLogger) *Service {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	dir := opts.Dir
	if dir == "" {
		dir = "."
	}
	// Setters build file:// URIs, which need an absolute path.
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = maxImageBytes
	}
	return &Service{
		dir:        dir,
		preferHD:   opts.PreferHD,
		httpClient: client,
		maxBytes:   maxBytes,
		setter:     setter,
		log:        logger.WithField("component", "wallpaper"),
	}
}

// Apply downloads rec's image (if not already present) and sets it as the
// wallpaper. It returns the local file path.
func (s *Service) Apply(ctx context.Context, rec domain.Record) (string, error) {
	if !rec.IsImage() {
		return "", fmt.Errorf("%w: %s is a %s", ErrNotImage, rec.Date, rec.MediaType)
	}
	log := s.log.WithField("date", rec.Date)

	local, err := s.Download(ctx, rec)
	if err != nil {
		return "", err
	}
	if err := s.setter.SetWallpaper(ctx, local); err != nil {
		log.WithError(err).Error("Failed to set wallpaper")
		return local, fmt.Errorf("failed to set wallpaper: %w", err)
	}
	log.WithField("file", local).Info("Wallpaper updated")
	return local, nil
}

// Download stores rec's image at <dir>/apod_<date>[_hd]<ext> and returns the
// absolute path. An existing non-empty file is reused.
func (s *Service) Download(ctx context.Context, rec domain.Record) (string, error) {
	src, hd := s.sourceURL(rec)
	if src == "" {
		return "", fmt.Errorf("%w: %s has no image URL", ErrNotImage, rec.Date)
	}
	name := "apod_" + rec.Date
	if hd {
		name += "_hd"
	}
	dest := filepath.Join(s.dir, name+extension(src))
	log := s.log.WithFields(logrus.Fields{"date": rec.Date, "file": dest})

	if info, err := os.Stat(dest); err == nil && info.Size() > 0 {
		log.Debug("Reusing downloaded image")
		return dest, nil
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create wallpaper directory: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create image request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download image: unexpected status %d", resp.StatusCode)
	}
	if resp.ContentLength > s.maxBytes {
		return "", fmt.Errorf("%w: %d bytes", ErrTooLarge, resp.ContentLength)
	}

	tmp, err := os.CreateTemp(s.dir, "apod-*.part")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op after a successful rename

	n, err := io.Copy(tmp, io.LimitReader(resp.Body, s.maxBytes+1))
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	if n > s.maxBytes {
		return "", fmt.Errorf("%w: more than %d bytes", ErrTooLarge, s.maxBytes)
	}
	if n == 0 {
		return "", errors.New("failed to download image: empty body")
	}
	if err := os.Chmod(tmpPath, filePermissions); err != nil {
		return "", fmt.Errorf("failed to set image permissions: %w", err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return "", fmt.Errorf("failed to move image into place: %w", err)
	}

	log.WithField("bytes", n).Info("Image downloaded")
	return dest, nil
}

// sourceURL picks the download URL and reports whether it is the HD one.
func (s *Service) sourceURL(rec domain.Record) (string, bool) {
	if s.preferHD && rec.HDURL != "" {
		return rec.HDURL, true
	}
	return rec.URL, false
}

// extension returns the lower-case file extension of rawURL's path, or .jpg.
func extension(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return defaultExt
	}
	ext := strings.ToLower(path.Ext(u.Path))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp", ".tif", ".tiff":
		return ext
	}
	return defaultExt
}
