package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"slices"
	"strings"
	"sync"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	router "github.com/nicholas-fedor/shoutrrr/pkg/router"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"
	"github.com/sirupsen/logrus"
)

// ShoutrrrNotifier sends via nicholas-fedor/shoutrrr service URLs.
// Notifications with a future At are held on timers until due.
type ShoutrrrNotifier struct {
	urls   []string
	sender *router.ServiceRouter
	log    logrus.FieldLogger

	mu      sync.Mutex
	pending map[int]*time.Timer
	nextID  int
	now     func() time.Time
}

// NewShoutrrrNotifier validates urls and builds a single sender for all of them.
func NewShoutrrrNotifier(urls []string, timeout time.Duration, logger logrus.FieldLogger) (*ShoutrrrNotifier, error) {
	if len(urls) == 0 {
		return nil, errors.New("at least one notification URL is required")
	}
	sender, err := shoutrrr.CreateSender(urls...)
	if err != nil {
		// The error text may embed the URL; do not echo tokens back.
		return nil, fmt.Errorf("invalid notification URL configuration: %w", redact(err, urls))
	}
	if timeout > 0 {
		sender.Timeout = timeout
	}
	sender.SetLogger(log.New(io.Discard, "", 0))

	return &ShoutrrrNotifier{
		urls:    slices.Clone(urls),
		sender:  sender,
		log:     logger.WithField("component", "notifier"),
		pending: map[int]*time.Timer{},
		now:     time.Now,
	}, nil
}

// RequestPermission always succeeds once the sender is built: configuring a
// URL is the user's consent.
func (s *ShoutrrrNotifier) RequestPermission(ctx context.Context) (bool, error) {
	return s.sender != nil, nil
}

// Schedule sends n now, or arms a timer when n.At is in the future.
func (s *ShoutrrrNotifier) Schedule(ctx context.Context, n Notification) error {
	if n.At.IsZero() || !n.At.After(s.now()) {
		return s.send(n)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.pending[id] = time.AfterFunc(n.At.Sub(s.now()), func() {
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
		if err := s.send(n); err != nil {
			s.log.WithError(err).Error("Scheduled notification failed")
		}
	})
	s.log.WithField("at", n.At).Debug("Notification scheduled for later")
	return nil
}

// CancelAll stops every pending scheduled notification.
func (s *ShoutrrrNotifier) CancelAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.pending {
		t.Stop()
		delete(s.pending, id)
	}
	return nil
}

// Pending returns the number of notifications waiting on timers.
func (s *ShoutrrrNotifier) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// SendTest delivers a fixed message to check the configuration.
func (s *ShoutrrrNotifier) SendTest(ctx context.Context) error {
	return s.Schedule(ctx, Notification{
		Title: "Test Notification",
		Body:  "If you see this message, notifications are working!",
	})
}

func (s *ShoutrrrNotifier) send(n Notification) error {
	params := stypes.Params{}
	if n.Title != "" {
		params.SetTitle(n.Title)
	}
	for _, err := range s.sender.Send(n.Body, &params) {
		if err != nil {
			return redact(err, s.urls)
		}
	}
	return nil
}

// redact replaces the error text when it contains one of the configured URLs.
func redact(err error, urls []string) error {
	msg := err.Error()
	for _, u := range urls {
		if u != "" && strings.Contains(msg, u) {
			return errors.New("notification service error (details redacted)")
		}
	}
	return err
}
