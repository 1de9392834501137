package checklinesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Checkline HTTP API client.
type Client struct {
	BaseURL     string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Field represents one entry in a procedure's checklist.
type Field struct {
	ID         string         `json:"id"`
	Label      string         `json:"label"`
	FieldType  string         `json:"field_type"`
	IsRequired bool           `json:"is_required"`
	OrderIndex int            `json:"order_index"`
	Options    map[string]any `json:"options,omitempty"`
}

// Procedure represents the API procedure model.
type Procedure struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category,omitempty"`
	Tags        []string `json:"tags"`
	IsGlobal    bool     `json:"is_global"`
	Fields      []Field  `json:"fields"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
}

// Template represents a reusable procedure snapshot.
type Template struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category,omitempty"`
	IsPublic bool    `json:"is_public"`
	Fields   []Field `json:"fields"`
}

// Answer is one recorded response inside an execution.
type Answer struct {
	FieldID   string `json:"field_id"`
	Label     string `json:"label"`
	FieldType string `json:"field_type"`
	Value     any    `json:"value"`
}

// Execution represents one run of a procedure.
type Execution struct {
	ID          string            `json:"id"`
	ProcedureID string            `json:"procedure_id"`
	WorkOrderID *string           `json:"work_order_id,omitempty"`
	Status      string            `json:"status"`
	StartedAt   *string           `json:"started_at,omitempty"`
	CompletedAt *string           `json:"completed_at,omitempty"`
	Answers     map[string]Answer `json:"answers"`
	Score       *int              `json:"score,omitempty"`
}

// Event represents a log entry.
type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// CreateProcedure creates a procedure with the given title.
func (c *Client) CreateProcedure(ctx context.Context, title, category string, fields []Field) (Procedure, error) {
	body := map[string]any{
		"title": title,
	}
	if category != "" {
		body["category"] = category
	}
	if len(fields) > 0 {
		body["fields"] = fields
	}
	var resp Procedure
	err := c.do(ctx, http.MethodPost, "v0/procedures", body, &resp)
	return resp, err
}

// GetProcedure fetches a procedure by id.
func (c *Client) GetProcedure(ctx context.Context, id string) (Procedure, error) {
	var resp Procedure
	err := c.do(ctx, http.MethodGet, "v0/procedures/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// DuplicateProcedure deep-copies a procedure.
func (c *Client) DuplicateProcedure(ctx context.Context, id, title string) (Procedure, error) {
	body := map[string]any{}
	if title != "" {
		body["title"] = title
	}
	var resp Procedure
	err := c.do(ctx, http.MethodPost, "v0/procedures/"+url.PathEscape(id)+"/duplicate", body, &resp)
	return resp, err
}

// SaveTemplate snapshots a procedure as a template.
func (c *Client) SaveTemplate(ctx context.Context, procedureID, name string, isPublic bool) (Template, error) {
	body := map[string]any{
		"procedure_id": procedureID,
		"name":         name,
		"is_public":    isPublic,
	}
	var resp Template
	err := c.do(ctx, http.MethodPost, "v0/templates", body, &resp)
	return resp, err
}

// ApplyTemplate instantiates a procedure from a template.
func (c *Client) ApplyTemplate(ctx context.Context, templateID, title string) (Procedure, error) {
	body := map[string]any{}
	if title != "" {
		body["title"] = title
	}
	var resp Procedure
	err := c.do(ctx, http.MethodPost, "v0/templates/"+url.PathEscape(templateID)+"/apply", body, &resp)
	return resp, err
}

// StartExecution begins a run of a procedure.
func (c *Client) StartExecution(ctx context.Context, procedureID string, workOrderID *string) (Execution, error) {
	body := map[string]any{
		"procedure_id": procedureID,
	}
	if workOrderID != nil {
		body["work_order_id"] = *workOrderID
	}
	var resp Execution
	err := c.do(ctx, http.MethodPost, "v0/executions", body, &resp)
	return resp, err
}

// Answer records a response against a field.
func (c *Client) Answer(ctx context.Context, executionID, fieldID string, value any) (Execution, error) {
	body := map[string]any{
		"field_id": fieldID,
		"value":    value,
	}
	var resp Execution
	err := c.do(ctx, http.MethodPost, "v0/executions/"+url.PathEscape(executionID)+"/answers", body, &resp)
	return resp, err
}

// Submit finalizes an execution and returns the scored result.
func (c *Client) Submit(ctx context.Context, executionID string) (Execution, error) {
	var resp Execution
	err := c.do(ctx, http.MethodPost, "v0/executions/"+url.PathEscape(executionID)+"/submit", nil, &resp)
	return resp, err
}

// Skip abandons an execution without scoring it.
func (c *Client) Skip(ctx context.Context, executionID string) (Execution, error) {
	var resp Execution
	err := c.do(ctx, http.MethodPost, "v0/executions/"+url.PathEscape(executionID)+"/skip", nil, &resp)
	return resp, err
}

// Events returns recent events.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	endpoint := "v0/events"
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	var resp []Event
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
