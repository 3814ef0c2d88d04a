// Package crm implements the entity-oriented REST CRM client (§6): leads,
// contacts, companies, tasks, notes, pipelines. Pipeline stages are
// referenced by numeric ids resolved on first use and cached; custom fields
// are sent keyed by name, with no id resolution or caching. Tags are an
// embedded `tags: [{name}]` array on the entity.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/domain"
)

// Tag is one entry of an entity's embedded tags array.
type Tag struct {
	Name string `json:"name"`
}

// LeadPayload is the CRM-side representation of a lead entity.
type LeadPayload struct {
	ID            string         `json:"id,omitempty"`
	Phone         string         `json:"phone"`
	Name          string         `json:"name,omitempty"`
	Email         string         `json:"email,omitempty"`
	PipelineStage int            `json:"pipeline_stage_id,omitempty"`
	CustomFields  map[string]any `json:"custom_fields,omitempty"`
	Tags          []Tag          `json:"tags,omitempty"`
}

// Client is a REST client for the CRM's entity endpoints.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client

	mu           sync.Mutex
	stageIDCache map[string]int // stage name -> numeric pipeline stage id
	fieldIDCache map[string]int // custom field name -> numeric id
}

func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:      baseURL,
		apiKey:       apiKey,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		stageIDCache: map[string]int{},
		fieldIDCache: map[string]int{},
	}
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
		return domain.NewError(domain.ErrRateLimited, fmt.Errorf("crm: %s %s: status %d", method, path, resp.StatusCode))
	case resp.StatusCode >= 500:
		return domain.NewError(domain.ErrTransientNetwork, fmt.Errorf("crm: %s %s: status %d", method, path, resp.StatusCode))
	case resp.StatusCode == http.StatusNotFound:
		return domain.NewError(domain.ErrNotFound, fmt.Errorf("crm: %s %s: not found", method, path))
	case resp.StatusCode >= 400:
		return domain.NewError(domain.ErrToolDomain, fmt.Errorf("crm: %s %s: status %d", method, path, resp.StatusCode))
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// SearchLead finds a lead by phone (§4.D search_lead tool).
func (c *Client) SearchLead(ctx context.Context, phone string) (*LeadPayload, error) {
	var out LeadPayload
	if err := c.do(ctx, http.MethodGet, "/api/v4/leads?query="+phone, nil, &out); err != nil {
		if domain.KindOf(err) == domain.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

// CreateLead creates a new lead entity (§4.D create_lead tool).
func (c *Client) CreateLead(ctx context.Context, lead LeadPayload) (*LeadPayload, error) {
	var out LeadPayload
	if err := c.do(ctx, http.MethodPost, "/api/v4/leads", lead, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateLead patches an existing lead entity (§4.D update_lead tool).
func (c *Client) UpdateLead(ctx context.Context, id string, lead LeadPayload) error {
	return c.do(ctx, http.MethodPatch, "/api/v4/leads/"+id, lead, nil)
}

// MoveStage resolves stageName to its numeric pipeline stage id (cached on
// first use) and moves the lead (§4.D move_stage tool).
func (c *Client) MoveStage(ctx context.Context, leadID string, stage domain.Stage) error {
	id, err := c.resolveStageID(ctx, string(stage))
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPatch, "/api/v4/leads/"+leadID, LeadPayload{PipelineStage: id}, nil)
}

func (c *Client) resolveStageID(ctx context.Context, name string) (int, error) {
	c.mu.Lock()
	if id, ok := c.stageIDCache[name]; ok {
		c.mu.Unlock()
		return id, nil
	}
	c.mu.Unlock()

	var resp struct {
		ID int `json:"id"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v4/leads/pipelines/stages?name="+name, nil, &resp); err != nil {
		return 0, err
	}

	c.mu.Lock()
	c.stageIDCache[name] = resp.ID
	c.mu.Unlock()
	return resp.ID, nil
}

// AddNote attaches a free-text note to a lead (§4.D add_note tool).
func (c *Client) AddNote(ctx context.Context, leadID, text string) error {
	return c.do(ctx, http.MethodPost, "/api/v4/leads/"+leadID+"/notes", map[string]string{"text": text}, nil)
}

// ScheduleActivity creates a CRM task tied to a lead (§4.D schedule_activity
// tool).
func (c *Client) ScheduleActivity(ctx context.Context, leadID, kind string, dueAt time.Time) error {
	return c.do(ctx, http.MethodPost, "/api/v4/leads/"+leadID+"/tasks", map[string]any{
		"type":   kind,
		"due_at": dueAt.UTC(),
	}, nil)
}
