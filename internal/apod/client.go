package apod

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"apodwall/internal/domain"
)

const (
	// DefaultBaseURL is the NASA APOD API endpoint.
	DefaultBaseURL = "https://api.nasa.gov/planetary/apod"

	// DemoAPIKey works without registration but is heavily rate limited.
	DemoAPIKey = "DEMO_KEY"

	defaultTimeout = 15 * time.Second
	maxBodyBytes   = 1 << 20
)

// ClientConfig configures the API client.
type ClientConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	// RatePerMinute caps outgoing requests; zero disables the limiter.
	RatePerMinute int
	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
}

// Client implements Fetcher against the APOD REST API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        logrus.FieldLogger
}

// apiRecord mirrors the JSON document returned by the API.
type apiRecord struct {
	Date           string `json:"date"`
	Title          string `json:"title"`
	Explanation    string `json:"explanation"`
	MediaType      string `json:"media_type"`
	URL            string `json:"url"`
	HDURL          string `json:"hdurl"`
	Copyright      string `json:"copyright"`
	ServiceVersion string `json:"service_version"`
}

// apiError covers both error shapes the API produces.
type apiError struct {
	Code  any    `json:"code"`
	Msg   string `json:"msg"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (e apiError) message() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Error != nil {
		return fmt.Sprintf("%s: %s", e.Error.Code, e.Error.Message)
	}
	return ""
}

// NewClient creates a new APOD API client.
func NewClient(cfg ClientConfig, logger logrus.FieldLogger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.APIKey == "" {
		cfg.APIKey = DemoAPIKey
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	var limiter *rate.Limiter
	if cfg.RatePerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RatePerMinute)), 1)
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		limiter:    limiter,
		log:        logger.WithField("component", "apod_client"),
	}
}

// Fetch retrieves the record for date, or for the API's today when date is empty.
func (c *Client) Fetch(ctx context.Context, date string) (domain.Record, error) {
	log := c.log.WithFields(logrus.Fields{
		"request_id": uuid.NewString(),
		"date":       date,
	})

	if date != "" {
		if _, err := domain.ParseDate(date); err != nil {
			return domain.Record{}, fetchErr(date, err)
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			log.WithError(err).Warn("Rate limiter wait aborted")
			return domain.Record{}, fetchErr(date, fmt.Errorf("rate limiter: %w", err))
		}
	}

	reqURL, err := c.buildURL(date)
	if err != nil {
		return domain.Record{}, fetchErr(date, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return domain.Record{}, fetchErr(date, fmt.Errorf("failed to build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.WithError(err).Error("APOD request failed")
		return domain.Record{}, fetchErr(date, fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		log.WithError(err).Error("Failed to read APOD response body")
		return domain.Record{}, fetchErr(date, fmt.Errorf("failed to read response: %w", err))
	}

	log = log.WithFields(logrus.Fields{
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		msg := http.StatusText(resp.StatusCode)
		if json.Unmarshal(body, &apiErr) == nil && apiErr.message() != "" {
			msg = apiErr.message()
		}
		log.WithField("api_message", msg).Warn("APOD API returned an error")
		return domain.Record{}, fetchErr(date, fmt.Errorf("api returned %d: %s", resp.StatusCode, msg))
	}

	rec, err := decodeAPIRecord(body)
	if err != nil {
		log.WithError(err).Error("Failed to decode APOD response")
		return domain.Record{}, fetchErr(date, err)
	}

	log.WithField("title", rec.Title).Info("APOD record fetched")
	return rec, nil
}

func (c *Client) buildURL(date string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	q := u.Query()
	q.Set("api_key", c.apiKey)
	if date != "" {
		q.Set("date", date)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func decodeAPIRecord(body []byte) (domain.Record, error) {
	var ar apiRecord
	if err := json.Unmarshal(body, &ar); err != nil {
		return domain.Record{}, fmt.Errorf("%w: %v", domain.ErrMalformed, err)
	}
	rec := domain.Record{
		Date:        ar.Date,
		Title:       ar.Title,
		Explanation: ar.Explanation,
		MediaType:   domain.MediaType(ar.MediaType),
		URL:         ar.URL,
		HDURL:       ar.HDURL,
		Copyright:   collapseSpace(ar.Copyright),
	}
	if err := rec.Validate(); err != nil {
		return domain.Record{}, err
	}
	return rec, nil
}
