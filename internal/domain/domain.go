package domain

// FieldType is the closed set of procedure field kinds.
type FieldType string

const (
	FieldText        FieldType = "text"
	FieldNumber      FieldType = "number"
	FieldCheckbox    FieldType = "checkbox"
	FieldSelect      FieldType = "select"
	FieldMultiselect FieldType = "multiselect"
	FieldSection     FieldType = "section"
	FieldInfo        FieldType = "info"
)

// FileRef points at an externally stored attachment. Byte content is
// never handled here; uploading and resolving bytes belongs to the
// storage collaborator.
type FileRef struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Type string `json:"type,omitempty"`
	Size int64  `json:"size,omitempty"`
}

// FieldOptions is the per-type option payload. Which keys are
// meaningful depends on the field type; fields.Normalize strips the
// rest so option keys never leak across types. AttachedFile is valid
// on any type.
type FieldOptions struct {
	Choices          []string `json:"choices,omitempty"`
	Description      *string  `json:"description,omitempty"`
	Collapsible      *bool    `json:"collapsible,omitempty"`
	DefaultCollapsed *bool    `json:"defaultCollapsed,omitempty"`
	Style            *string  `json:"style,omitempty"`
	Size             *string  `json:"size,omitempty"`
	AttachedFile     *FileRef `json:"attachedFile,omitempty"`
}

type ProcedureField struct {
	ID         string       `json:"id"`
	Label      string       `json:"label"`
	FieldType  FieldType    `json:"field_type" enum:"text,number,checkbox,select,multiselect,section,info"`
	IsRequired bool         `json:"is_required"`
	OrderIndex int          `json:"order_index"`
	Options    FieldOptions `json:"options"`
	CreatedAt  string       `json:"created_at" format:"date-time"`
	UpdatedAt  string       `json:"updated_at" format:"date-time"`
}

type Procedure struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	Category    string           `json:"category"`
	Tags        []string         `json:"tags,omitempty"`
	IsGlobal    bool             `json:"is_global"`
	Fields      []ProcedureField `json:"fields"`
	CreatedAt   string           `json:"created_at" format:"date-time"`
	UpdatedAt   string           `json:"updated_at" format:"date-time"`
}

// Template is an independently lifecycled snapshot of a procedure's
// fields and metadata. Snapshotted fields carry no ids or timestamps;
// both are regenerated when the template is applied.
type Template struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Category    string           `json:"category"`
	Tags        []string         `json:"tags,omitempty"`
	IsPublic    bool             `json:"is_public"`
	Fields      []ProcedureField `json:"fields"`
	CreatedAt   string           `json:"created_at" format:"date-time"`
	UpdatedAt   string           `json:"updated_at" format:"date-time"`
}

// Execution statuses.
const (
	ExecutionNotStarted = "not_started"
	ExecutionInProgress = "in_progress"
	ExecutionCompleted  = "completed"
	ExecutionSkipped    = "skipped"
)

// Answer records one response. Label and field type are copied from
// the field at answer time so the audit trail survives later edits to
// the procedure.
type Answer struct {
	FieldID   string    `json:"field_id"`
	Label     string    `json:"label"`
	FieldType FieldType `json:"field_type"`
	Value     any       `json:"value"`
}

type Execution struct {
	ID          string            `json:"id"`
	ProcedureID string            `json:"procedure_id"`
	WorkOrderID *string           `json:"work_order_id,omitempty"`
	Status      string            `json:"status" enum:"not_started,in_progress,completed,skipped"`
	StartedAt   *string           `json:"started_at,omitempty" format:"date-time"`
	CompletedAt *string           `json:"completed_at,omitempty" format:"date-time"`
	Answers     map[string]Answer `json:"answers,omitempty"`
	Score       *int              `json:"score,omitempty"`
}

type Category struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

type APIKey struct {
	ID        string `json:"id"`
	ActorID   string `json:"actor_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}
