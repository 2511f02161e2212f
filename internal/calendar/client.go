package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	perrors "github.com/p-blackswan/pm-agent/internal/errors"
	"github.com/p-blackswan/pm-agent/internal/models"
	"github.com/p-blackswan/pm-agent/pkg/tokenstore"
)

const defaultAPIBase = "https://www.googleapis.com/calendar/v3"

// HTTPClient abstracts HTTP calls for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client lists calendar events and maps them to meetings.
type Client struct {
	apiBase    string
	calendarID string
	httpClient HTTPClient
	tokens     *tokenSource
	logger     zerolog.Logger
	now        func() time.Time
}

// Option configures the client.
type Option func(*Client)

func WithAPIBase(base string) Option {
	return func(c *Client) { c.apiBase = strings.TrimSuffix(base, "/") }
}

func WithTokenEndpoint(endpoint string) Option {
	return func(c *Client) { c.tokens.tokenEndpoint = endpoint }
}

func WithHTTPClient(hc HTTPClient) Option {
	return func(c *Client) {
		c.httpClient = hc
		c.tokens.httpClient = hc
	}
}

// NewClient creates a calendar client for one calendar. Access tokens minted
// from the service account are cached in the token store until expiry.
func NewClient(account ServiceAccount, calendarID string, store tokenstore.Store, logger zerolog.Logger, opts ...Option) *Client {
	hc := &http.Client{Timeout: 30 * time.Second}
	c := &Client{
		apiBase:    defaultAPIBase,
		calendarID: calendarID,
		httpClient: hc,
		tokens:     newTokenSource(account, store, hc),
		logger:     logger.With().Str("component", "calendar").Logger(),
		now:        time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Ping mints a token, verifying the service account credentials.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.tokens.accessToken(ctx)
	return err
}

type event struct {
	ID          string `json:"id"`
	Summary     string `json:"summary"`
	Description string `json:"description"`
	Start       struct {
		DateTime time.Time `json:"dateTime"`
	} `json:"start"`
	End struct {
		DateTime time.Time `json:"dateTime"`
	} `json:"end"`
	Attendees []struct {
		Email string `json:"email"`
	} `json:"attendees"`
	Attachments []struct {
		Title   string `json:"title"`
		FileURL string `json:"fileUrl"`
	} `json:"attachments"`
}

type eventsResponse struct {
	Items []event `json:"items"`
}

func (c *Client) listEvents(ctx context.Context, daysBack int) ([]event, error) {
	token, err := c.tokens.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	now := c.now().UTC()
	q := url.Values{
		"timeMin":      {now.AddDate(0, 0, -daysBack).Format(time.RFC3339)},
		"timeMax":      {now.Format(time.RFC3339)},
		"singleEvents": {"true"},
		"orderBy":      {"startTime"},
		"maxResults":   {"100"},
	}
	path := fmt.Sprintf("%s/calendars/%s/events?%s", c.apiBase, url.PathEscape(c.calendarID), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, &perrors.APIError{
			Service:    "calendar",
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(respBody)),
		}
	}

	var er eventsResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return er.Items, nil
}

func toMeeting(ev event) models.Meeting {
	m := models.Meeting{
		ID:    ev.ID,
		Title: ev.Summary,
		Date:  ev.Start.DateTime,
		Notes: ev.Description,
	}
	if !ev.End.DateTime.IsZero() && !ev.Start.DateTime.IsZero() {
		m.Duration = ev.End.DateTime.Sub(ev.Start.DateTime)
	}
	for _, a := range ev.Attendees {
		m.Attendees = append(m.Attendees, a.Email)
	}
	// Attached transcript documents come through as attachment links; the
	// notes processor works from the reference.
	for _, att := range ev.Attachments {
		if strings.Contains(strings.ToLower(att.Title), "transcript") {
			m.Transcript = att.FileURL
		}
	}
	return m
}

// RecentMeetings lists the calendar's meetings over the given window.
func (c *Client) RecentMeetings(ctx context.Context, daysBack int) ([]models.Meeting, error) {
	events, err := c.listEvents(ctx, daysBack)
	if err != nil {
		return nil, err
	}
	meetings := make([]models.Meeting, 0, len(events))
	for _, ev := range events {
		meetings = append(meetings, toMeeting(ev))
	}
	c.logger.Debug().Int("days_back", daysBack).Int("meetings", len(meetings)).Msg("meetings listed")
	return meetings, nil
}

// SearchMeetings filters the window's meetings by keyword. Matching is a
// case-insensitive substring test on title and notes, deliberately not
// semantic search.
func (c *Client) SearchMeetings(ctx context.Context, keyword string, daysBack int) ([]models.Meeting, error) {
	all, err := c.RecentMeetings(ctx, daysBack)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(keyword)
	var matched []models.Meeting
	for _, m := range all {
		if strings.Contains(strings.ToLower(m.Title), needle) || strings.Contains(strings.ToLower(m.Notes), needle) {
			matched = append(matched, m)
		}
	}
	c.logger.Debug().Str("keyword", keyword).Int("matched", len(matched)).Msg("meetings searched")
	return matched, nil
}
