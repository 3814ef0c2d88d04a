// Package calendar implements event CRUD and free/busy lookup (§6
// "Calendar"): attendee lists, UTC start/end, a meeting-URL field.
package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/domain"
)

// Event is one calendar event.
type Event struct {
	ID         string    `json:"id,omitempty"`
	Title      string    `json:"title"`
	Start      time.Time `json:"start"` // UTC
	End        time.Time `json:"end"`   // UTC
	Attendees  []string  `json:"attendees"`
	MeetingURL string    `json:"meeting_url,omitempty"`
}

// Client is a REST client for the calendar provider.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func New(baseURL, apiKey string) *Client {
	return &Client{baseURL: baseURL, apiKey: apiKey, httpClient: &http.Client{Timeout: 10 * time.Second}}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return domain.NewError(domain.ErrInternal, err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return domain.NewError(domain.ErrInternal, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.NewError(domain.ErrTransientNetwork, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return domain.NewError(domain.ErrRateLimited, fmt.Errorf("calendar: %s %s: status %d", method, path, resp.StatusCode))
	case resp.StatusCode >= 500:
		return domain.NewError(domain.ErrTransientNetwork, fmt.Errorf("calendar: %s %s: status %d", method, path, resp.StatusCode))
	case resp.StatusCode >= 400:
		return domain.NewError(domain.ErrToolDomain, fmt.Errorf("calendar: %s %s: status %d", method, path, resp.StatusCode))
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// CheckAvailability returns busy intervals for attendee within [from, to]
// (§4.D check_availability tool).
func (c *Client) CheckAvailability(ctx context.Context, attendee string, from, to time.Time) ([]Event, error) {
	var busy []Event
	path := fmt.Sprintf("/freebusy?attendee=%s&from=%s&to=%s", attendee, from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339))
	if err := c.do(ctx, http.MethodGet, path, nil, &busy); err != nil {
		return nil, err
	}
	return busy, nil
}

func (c *Client) CreateMeeting(ctx context.Context, ev Event) (*Event, error) {
	var out Event
	if err := c.do(ctx, http.MethodPost, "/events", ev, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateMeeting(ctx context.Context, id string, ev Event) error {
	return c.do(ctx, http.MethodPatch, "/events/"+id, ev, nil)
}

func (c *Client) CancelMeeting(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/events/"+id, nil, nil)
}

// SendInvite re-sends the attendee invitation for an existing event (§4.D
// send_invite tool).
func (c *Client) SendInvite(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/events/"+id+"/invite", nil, nil)
}
