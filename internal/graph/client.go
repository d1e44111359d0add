package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"calsync/internal/oauth"
)

// DefaultBaseURL is the production Graph API endpoint.
const DefaultBaseURL = "https://graph.microsoft.com/v1.0"

// maxCalendarEvents caps a single calendarView page.
const maxCalendarEvents = 50

// User is the subset of the Graph user resource this tool reads.
type User struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName"`
	UserPrincipalName string `json:"userPrincipalName"`
	Mail              string `json:"mail"`
}

// Event is the subset of a Graph calendar event this tool reads.
type Event struct {
	Subject  string
	IsAllDay bool
	Start    time.Time
	End      time.Time
}

// Client issues bearer-authenticated requests to the Graph API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Graph client over the authenticated HTTP client.
// baseURL may be empty to use the production endpoint.
func NewClient(auth *oauth.AuthenticatedClient, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: auth.HTTPClient(),
	}
}

// Me fetches the signed-in user. It is deliberately lightweight and doubles
// as the probe that validates the credential server-side.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var user User
	if err := c.get(ctx, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// calendarViewResponse is the wire shape of a calendarView page.
type calendarViewResponse struct {
	Value []struct {
		Subject  string        `json:"subject"`
		IsAllDay bool          `json:"isAllDay"`
		Start    eventDateTime `json:"start"`
		End      eventDateTime `json:"end"`
	} `json:"value"`
}

// eventDateTime is Graph's dateTimeTimeZone resource.
type eventDateTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

// Time parses the Graph date-time in its stated time zone. Graph emits
// fractional seconds without an offset.
func (d eventDateTime) Time() (time.Time, error) {
	loc := time.UTC
	if d.TimeZone != "" && d.TimeZone != "UTC" {
		if parsed, err := time.LoadLocation(d.TimeZone); err == nil {
			loc = parsed
		}
	}
	for _, layout := range []string{"2006-01-02T15:04:05.9999999", "2006-01-02T15:04:05"} {
		if t, err := time.ParseInLocation(layout, d.DateTime, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized graph date-time %q", d.DateTime)
}

// CalendarView fetches the user's calendar events between start and end,
// ordered by start time.
func (c *Client) CalendarView(ctx context.Context, start, end time.Time) ([]Event, error) {
	query := url.Values{}
	query.Set("startDateTime", start.UTC().Format(time.RFC3339))
	query.Set("endDateTime", end.UTC().Format(time.RFC3339))
	query.Set("$orderby", "start/dateTime")
	query.Set("$top", fmt.Sprintf("%d", maxCalendarEvents))

	var page calendarViewResponse
	if err := c.get(ctx, "/me/calendarView", query, &page); err != nil {
		return nil, err
	}

	events := make([]Event, 0, len(page.Value))
	for _, raw := range page.Value {
		eventStart, err := raw.Start.Time()
		if err != nil {
			return nil, err
		}
		eventEnd, err := raw.End.Time()
		if err != nil {
			return nil, err
		}
		events = append(events, Event{
			Subject:  raw.Subject,
			IsAllDay: raw.IsAllDay,
			Start:    eventStart,
			End:      eventEnd,
		})
	}
	return events, nil
}

// Day bundles the results of FetchDay.
type Day struct {
	User   *User
	Events []Event
}

// FetchDay fetches the signed-in user and the day's calendar view
// concurrently. Used by the daemon loop where both are needed per cycle.
func (c *Client) FetchDay(ctx context.Context, start, end time.Time) (*Day, error) {
	var day Day
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		user, err := c.Me(ctx)
		if err != nil {
			return err
		}
		day.User = user
		return nil
	})
	g.Go(func() error {
		events, err := c.CalendarView(ctx, start, end)
		if err != nil {
			return err
		}
		day.Events = events
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &day, nil
}

// odataErrorEnvelope is the Graph error response shape.
type odataErrorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// get issues a GET and decodes the JSON response into out. Non-success
// responses surface as *APIError.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("client-request-id", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{
			StatusCode:     resp.StatusCode,
			Message:        string(body),
			ChallengeError: parseBearerChallenge(resp.Header.Get("WWW-Authenticate")),
		}
		var envelope odataErrorEnvelope
		if jsonErr := json.Unmarshal(body, &envelope); jsonErr == nil && envelope.Error.Code != "" {
			apiErr.Code = envelope.Error.Code
			apiErr.Message = envelope.Error.Message
		}
		return apiErr
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode graph response: %w", err)
	}
	return nil
}
