// Package gcal talks to the Google Calendar REST API. Availability is
// declared with marker events: an event whose summary carries the configured
// marker is a block the resource can be booked in, every other timed event
// is busy time inside those blocks.
package gcal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/luis-bzk/llm-agent/booking"
)

const maxResponseSizeBytes = 1 << 20

type Config struct {
	BaseURL            string        `split_words:"true" default:"https://www.googleapis.com/calendar/v3"`
	Token              string        `split_words:"true" required:"true"`
	AvailabilityMarker string        `split_words:"true" default:"available"`
	Timeout            time.Duration `split_words:"true" default:"10s"`
}

type Client struct {
	baseURL    string
	token      string
	marker     string
	httpClient *http.Client
}

var _ booking.CalendarGateway = (*Client)(nil)

func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, errors.New("calendar base url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("calendar token is required")
	}
	marker := strings.ToLower(strings.TrimSpace(cfg.AvailabilityMarker))
	if marker == "" {
		return nil, errors.New("availability marker is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      strings.TrimSpace(cfg.Token),
		marker:     marker,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

func MustNew(cfg Config) *Client {
	client, err := NewClient(cfg)
	if err != nil {
		panic(err)
	}
	return client
}

type eventTime struct {
	DateTime string `json:"dateTime,omitempty"`
	Date     string `json:"date,omitempty"`
}

type calendarEvent struct {
	ID          string    `json:"id,omitempty"`
	Summary     string    `json:"summary,omitempty"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status,omitempty"`
	Start       eventTime `json:"start"`
	End         eventTime `json:"end"`
}

type eventList struct {
	Items []calendarEvent `json:"items"`
}

// DeclaredAvailability returns the marker events' intervals for the date.
func (c *Client) DeclaredAvailability(ctx context.Context, calendarID string, date time.Time) ([]booking.Interval, error) {
	events, err := c.listEvents(ctx, calendarID, date)
	if err != nil {
		return nil, err
	}
	var out []booking.Interval
	for _, ev := range events {
		if !c.isMarker(ev) {
			continue
		}
		iv, ok := ev.interval()
		if !ok {
			continue
		}
		out = append(out, iv)
	}
	return out, nil
}

// BusyIntervals returns every confirmed timed event that is not a marker.
func (c *Client) BusyIntervals(ctx context.Context, calendarID string, date time.Time) ([]booking.Interval, error) {
	events, err := c.listEvents(ctx, calendarID, date)
	if err != nil {
		return nil, err
	}
	var out []booking.Interval
	for _, ev := range events {
		if c.isMarker(ev) || ev.Status == "cancelled" {
			continue
		}
		iv, ok := ev.interval()
		if !ok {
			continue
		}
		out = append(out, iv)
	}
	return out, nil
}

func (c *Client) CreateEvent(ctx context.Context, calendarID string, ev booking.Event) (string, error) {
	payload := calendarEvent{
		Summary:     ev.Summary,
		Description: ev.Description,
		Start:       eventTime{DateTime: ev.Start.Format(time.RFC3339)},
		End:         eventTime{DateTime: ev.End.Format(time.RFC3339)},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode event: %w", err)
	}

	endpoint := fmt.Sprintf("%s/calendars/%s/events", c.baseURL, url.PathEscape(calendarID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build event request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	raw, err := c.do(req)
	if err != nil {
		return "", err
	}

	var created calendarEvent
	if err := json.Unmarshal(raw, &created); err != nil {
		return "", fmt.Errorf("decode event response: %w", err)
	}
	if created.ID == "" {
		return "", errors.New("calendar returned an event without an id")
	}
	return created.ID, nil
}

func (c *Client) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	endpoint := fmt.Sprintf("%s/calendars/%s/events/%s", c.baseURL, url.PathEscape(calendarID), url.PathEscape(eventID))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build delete request: %w", err)
	}

	_, err = c.do(req)
	// An already-gone event is a successful delete.
	var statusErr *statusError
	if errors.As(err, &statusErr) && (statusErr.code == http.StatusNotFound || statusErr.code == http.StatusGone) {
		return nil
	}
	return err
}

func (c *Client) listEvents(ctx context.Context, calendarID string, date time.Time) ([]calendarEvent, error) {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)

	query := url.Values{}
	query.Set("timeMin", dayStart.Format(time.RFC3339))
	query.Set("timeMax", dayEnd.Format(time.RFC3339))
	query.Set("singleEvents", "true")
	query.Set("orderBy", "startTime")

	endpoint := fmt.Sprintf("%s/calendars/%s/events?%s", c.baseURL, url.PathEscape(calendarID), query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build list request: %w", err)
	}

	raw, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var list eventList
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("decode event list: %w", err)
	}
	return list.Items, nil
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("calendar http status=%d body=%s", e.code, e.body)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute calendar request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, fmt.Errorf("read calendar response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &statusError{code: resp.StatusCode, body: string(raw)}
	}
	return raw, nil
}

func (c *Client) isMarker(ev calendarEvent) bool {
	return strings.Contains(strings.ToLower(ev.Summary), c.marker)
}

// interval parses the event's timed bounds. All-day events carry only a
// date and are skipped; they do not express bookable time.
func (ev calendarEvent) interval() (booking.Interval, bool) {
	if ev.Start.DateTime == "" || ev.End.DateTime == "" {
		return booking.Interval{}, false
	}
	start, err := time.Parse(time.RFC3339, ev.Start.DateTime)
	if err != nil {
		return booking.Interval{}, false
	}
	end, err := time.Parse(time.RFC3339, ev.End.DateTime)
	if err != nil {
		return booking.Interval{}, false
	}
	return booking.Interval{Start: start, End: end}, true
}
