package server

import (
	"checkline/internal/domain"
)

// --- requests ---

type FieldRequest struct {
	ID         string               `json:"id,omitempty"`
	Label      string               `json:"label"`
	FieldType  domain.FieldType     `json:"field_type" enum:"text,number,checkbox,select,multiselect,section,info"`
	IsRequired bool                 `json:"is_required,omitempty"`
	Options    *domain.FieldOptions `json:"options,omitempty"`
}

type CreateProcedureRequest struct {
	ID          *string        `json:"id,omitempty"`
	Title       string         `json:"title"`
	Description *string        `json:"description,omitempty"`
	Category    *string        `json:"category,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	IsGlobal    *bool          `json:"is_global,omitempty"`
	Fields      []FieldRequest `json:"fields,omitempty"`
}

type UpdateProcedureRequest struct {
	Title       *string         `json:"title,omitempty"`
	Description *string         `json:"description,omitempty"`
	Category    *string         `json:"category,omitempty"`
	Tags        *[]string       `json:"tags,omitempty"`
	IsGlobal    *bool           `json:"is_global,omitempty"`
	Fields      *[]FieldRequest `json:"fields,omitempty"`
}

type DuplicateProcedureRequest struct {
	Title *string `json:"title,omitempty"`
}

type SaveTemplateRequest struct {
	ProcedureID string `json:"procedure_id"`
	Name        string `json:"name"`
	IsPublic    bool   `json:"is_public,omitempty"`
}

type ApplyTemplateRequest struct {
	Title *string `json:"title,omitempty"`
}

type StartExecutionRequest struct {
	ProcedureID string  `json:"procedure_id"`
	WorkOrderID *string `json:"work_order_id,omitempty"`
}

type AnswerRequest struct {
	FieldID string `json:"field_id"`
	Value   any    `json:"value"`
}

type CreateAPIKeyRequest struct {
	ActorID string `json:"actor_id"`
	Name    string `json:"name,omitempty"`
}

type DevLoginRequest struct {
	ActorID string `json:"actor_id"`
	Name    string `json:"name,omitempty"`
}

type DevLoginResponse struct {
	Token string `json:"token"`
}

// --- responses ---

type FieldResponse struct {
	ID         string              `json:"id"`
	Label      string              `json:"label"`
	FieldType  domain.FieldType    `json:"field_type"`
	IsRequired bool                `json:"is_required"`
	OrderIndex int                 `json:"order_index"`
	Options    domain.FieldOptions `json:"options"`
	CreatedAt  string              `json:"created_at"`
	UpdatedAt  string              `json:"updated_at"`
}

type ProcedureResponse struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Category    string          `json:"category,omitempty"`
	Tags        []string        `json:"tags"`
	IsGlobal    bool            `json:"is_global"`
	Fields      []FieldResponse `json:"fields"`
	CreatedAt   string          `json:"created_at"`
	UpdatedAt   string          `json:"updated_at"`
}

type ProcedureSummaryResponse struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Category   string   `json:"category,omitempty"`
	Tags       []string `json:"tags"`
	IsGlobal   bool     `json:"is_global"`
	FieldCount int      `json:"field_count"`
	UpdatedAt  string   `json:"updated_at"`
}

type TemplateResponse struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Category    string          `json:"category,omitempty"`
	Tags        []string        `json:"tags"`
	IsPublic    bool            `json:"is_public"`
	Fields      []FieldResponse `json:"fields"`
	CreatedAt   string          `json:"created_at"`
	UpdatedAt   string          `json:"updated_at"`
}

type ExecutionResponse struct {
	ID          string                   `json:"id"`
	ProcedureID string                   `json:"procedure_id"`
	WorkOrderID *string                  `json:"work_order_id,omitempty"`
	Status      string                   `json:"status"`
	StartedAt   *string                  `json:"started_at,omitempty"`
	CompletedAt *string                  `json:"completed_at,omitempty"`
	Answers     map[string]domain.Answer `json:"answers"`
	Score       *int                     `json:"score,omitempty"`
}

type CategoryResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type EventResponse struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

type APIKeyResponse struct {
	ID        string `json:"id"`
	ActorID   string `json:"actor_id"`
	Name      string `json:"name,omitempty"`
	CreatedAt string `json:"created_at"`
	// Key is only populated on creation.
	Key string `json:"key,omitempty"`
}

type WhoAmIResponse struct {
	ActorID string `json:"actor_id"`
	Name    string `json:"name,omitempty"`
	Source  string `json:"source"`
}

// --- mappers ---

func requestFields(in []FieldRequest) []domain.ProcedureField {
	out := make([]domain.ProcedureField, 0, len(in))
	for _, f := range in {
		pf := domain.ProcedureField{
			ID:         f.ID,
			Label:      f.Label,
			FieldType:  f.FieldType,
			IsRequired: f.IsRequired,
		}
		if f.Options != nil {
			pf.Options = *f.Options
		}
		out = append(out, pf)
	}
	return out
}

func fieldResponse(f domain.ProcedureField) FieldResponse {
	return FieldResponse{
		ID:         f.ID,
		Label:      f.Label,
		FieldType:  f.FieldType,
		IsRequired: f.IsRequired,
		OrderIndex: f.OrderIndex,
		Options:    f.Options,
		CreatedAt:  f.CreatedAt,
		UpdatedAt:  f.UpdatedAt,
	}
}

func mapFields(in []domain.ProcedureField) []FieldResponse {
	out := make([]FieldResponse, 0, len(in))
	for _, f := range in {
		out = append(out, fieldResponse(f))
	}
	return out
}

func procedureResponse(p domain.Procedure) ProcedureResponse {
	return ProcedureResponse{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Category:    p.Category,
		Tags:        nonNilSlice(p.Tags),
		IsGlobal:    p.IsGlobal,
		Fields:      mapFields(p.Fields),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func mapProcedureSummaries(items []domain.Procedure) []ProcedureSummaryResponse {
	out := make([]ProcedureSummaryResponse, 0, len(items))
	for _, p := range items {
		out = append(out, ProcedureSummaryResponse{
			ID:         p.ID,
			Title:      p.Title,
			Category:   p.Category,
			Tags:       nonNilSlice(p.Tags),
			IsGlobal:   p.IsGlobal,
			FieldCount: len(p.Fields),
			UpdatedAt:  p.UpdatedAt,
		})
	}
	return out
}

func templateResponse(t domain.Template) TemplateResponse {
	return TemplateResponse{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		Category:    t.Category,
		Tags:        nonNilSlice(t.Tags),
		IsPublic:    t.IsPublic,
		Fields:      mapFields(t.Fields),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func mapTemplates(items []domain.Template) []TemplateResponse {
	out := make([]TemplateResponse, 0, len(items))
	for _, t := range items {
		out = append(out, templateResponse(t))
	}
	return out
}

func executionResponse(e domain.Execution) ExecutionResponse {
	answers := e.Answers
	if answers == nil {
		answers = map[string]domain.Answer{}
	}
	return ExecutionResponse{
		ID:          e.ID,
		ProcedureID: e.ProcedureID,
		WorkOrderID: e.WorkOrderID,
		Status:      e.Status,
		StartedAt:   e.StartedAt,
		CompletedAt: e.CompletedAt,
		Answers:     answers,
		Score:       e.Score,
	}
}

func mapExecutions(items []domain.Execution) []ExecutionResponse {
	out := make([]ExecutionResponse, 0, len(items))
	for _, e := range items {
		out = append(out, executionResponse(e))
	}
	return out
}

func mapCategories(items []domain.Category) []CategoryResponse {
	out := make([]CategoryResponse, 0, len(items))
	for _, c := range items {
		out = append(out, CategoryResponse{ID: c.ID, Name: c.Name})
	}
	return out
}

func mapEvents(items []domain.Event) []EventResponse {
	out := make([]EventResponse, 0, len(items))
	for _, e := range items {
		out = append(out, EventResponse{
			ID:         e.ID,
			TS:         e.TS,
			Type:       e.Type,
			EntityKind: e.EntityKind,
			EntityID:   e.EntityID,
			ActorID:    e.ActorID,
			Payload:    e.Payload,
		})
	}
	return out
}

func mapAPIKeys(items []domain.APIKey) []APIKeyResponse {
	out := make([]APIKeyResponse, 0, len(items))
	for _, k := range items {
		out = append(out, APIKeyResponse{
			ID:        k.ID,
			ActorID:   k.ActorID,
			Name:      k.Name,
			CreatedAt: k.CreatedAt,
		})
	}
	return out
}

func nonNilSlice[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}

func stringOrEmpty(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
