package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"checkline/internal/builder"
	"checkline/internal/config"
	"checkline/internal/domain"
	"checkline/internal/events"
	"checkline/internal/execution"
	"checkline/internal/fields"
	"checkline/internal/repo"
	"checkline/internal/template"
)

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Config *config.Config
	Now    func() time.Time
	NewID  func() string
}

func New(db *sql.DB, cfg *config.Config) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Config: cfg,
		Now:    time.Now,
		NewID:  uuid.NewString,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) newID() string {
	if e.NewID != nil {
		return e.NewID()
	}
	return uuid.NewString()
}

// Builder returns the pure field-list editor wired with the engine's
// id generator and clock.
func (e Engine) Builder() builder.Builder {
	return builder.Builder{NewID: e.newID, Now: e.now}
}

func (e Engine) categories() []string {
	if e.Config == nil {
		return nil
	}
	return e.Config.Library.Categories
}

// EnsureCategories seeds the configured category set into the
// database. Safe to call on every startup; only missing rows are
// created and a single event records what was added.
func (e Engine) EnsureCategories(ctx context.Context, actorID string) error {
	cats := e.categories()
	if len(cats) == 0 {
		return nil
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	now := e.now().UTC().Format(time.RFC3339)
	var created []string
	for _, name := range cats {
		ok, err := e.Repo.EnsureCategoryTx(ctx, tx, domain.Category{ID: e.newID(), Name: name, CreatedAt: now})
		if err != nil {
			return fmt.Errorf("ensure category %s: %w", name, err)
		}
		if ok {
			created = append(created, name)
		}
	}
	if len(created) > 0 {
		if err := e.Events.Append(ctx, tx, "categories.seeded", "category", "", actorID, events.EventPayload{"created": created}); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (e Engine) validateCategory(category string) error {
	if category == "" {
		return nil
	}
	cats := e.categories()
	if len(cats) == 0 {
		return nil
	}
	for _, c := range cats {
		if c == category {
			return nil
		}
	}
	return fmt.Errorf("unknown category %q", category)
}

// sanitizeFields validates and normalizes an incoming field list:
// option payloads stripped to their type, missing ids and timestamps
// filled in, order indexes rewritten from position.
func (e Engine) sanitizeFields(list []domain.ProcedureField) ([]domain.ProcedureField, error) {
	out := builder.CopyFields(list)
	now := e.now().UTC().Format(time.RFC3339)
	for i := range out {
		f := &out[i]
		if f.FieldType == "" {
			f.FieldType = domain.FieldText
		}
		if err := fields.Validate(*f); err != nil {
			return nil, err
		}
		f.Options = fields.Normalize(f.FieldType, f.Options)
		if f.ID == "" {
			f.ID = e.newID()
			f.CreatedAt = now
		}
		if f.CreatedAt == "" {
			f.CreatedAt = now
		}
		f.UpdatedAt = now
		f.OrderIndex = i
	}
	return out, nil
}

// ProcedureCreateOptions are parameters for creating a procedure.
type ProcedureCreateOptions struct {
	ID          string
	Title       string
	Description string
	Category    string
	Tags        []string
	IsGlobal    *bool
	Fields      []domain.ProcedureField
	ActorID     string
}

func (e Engine) CreateProcedure(ctx context.Context, opts ProcedureCreateOptions) (domain.Procedure, error) {
	if strings.TrimSpace(opts.Title) == "" {
		return domain.Procedure{}, errors.New("title is required")
	}
	if err := e.validateCategory(opts.Category); err != nil {
		return domain.Procedure{}, err
	}
	list, err := e.sanitizeFields(opts.Fields)
	if err != nil {
		return domain.Procedure{}, err
	}
	global := false
	if opts.IsGlobal != nil {
		global = *opts.IsGlobal
	} else if e.Config != nil {
		global = e.Config.Library.DefaultGlobal
	}
	id := opts.ID
	if id == "" {
		id = e.newID()
	}
	now := e.now().UTC().Format(time.RFC3339)
	p := domain.Procedure{
		ID:          id,
		Title:       opts.Title,
		Description: opts.Description,
		Category:    opts.Category,
		IsGlobal:    global,
		Fields:      list,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	doc := builder.NewDocument(p, e.Builder(), e.categories())
	for _, tag := range opts.Tags {
		if err := doc.AddTag(tag); err != nil {
			return domain.Procedure{}, err
		}
	}
	p = doc.Proc

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Procedure{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertProcedureTx(ctx, tx, p); err != nil {
		return domain.Procedure{}, err
	}
	if err := e.Events.Append(ctx, tx, "procedure.created", "procedure", p.ID, opts.ActorID, events.EventPayload{"title": p.Title, "fields": len(p.Fields)}); err != nil {
		return domain.Procedure{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Procedure{}, err
	}
	return p, nil
}

// ProcedureUpdateOptions encapsulates allowed updates. Nil members
// leave the stored value alone; Fields replaces the whole list, which
// is how a finished edit session is committed.
type ProcedureUpdateOptions struct {
	ID          string
	Title       *string
	Description *string
	Category    *string
	Tags        *[]string
	IsGlobal    *bool
	Fields      *[]domain.ProcedureField
	ActorID     string
}

func (e Engine) UpdateProcedure(ctx context.Context, opts ProcedureUpdateOptions) (domain.Procedure, error) {
	p, err := e.Repo.GetProcedure(ctx, opts.ID)
	if err != nil {
		return p, err
	}
	doc := builder.NewDocument(p, e.Builder(), e.categories())
	if opts.Title != nil {
		doc.SetTitle(*opts.Title)
	}
	if opts.Description != nil {
		doc.SetDescription(*opts.Description)
	}
	if opts.Category != nil {
		if err := doc.SetCategory(*opts.Category); err != nil {
			return p, err
		}
	}
	if opts.Tags != nil {
		doc.Proc.Tags = nil
		for _, tag := range *opts.Tags {
			if err := doc.AddTag(tag); err != nil {
				return p, err
			}
		}
	}
	if opts.IsGlobal != nil {
		doc.SetGlobal(*opts.IsGlobal)
	}
	if opts.Fields != nil {
		list, err := e.sanitizeFields(*opts.Fields)
		if err != nil {
			return p, err
		}
		doc.Proc.Fields = list
	}
	if err := doc.ValidateForSave(); err != nil {
		return p, err
	}
	p = doc.Proc
	p.UpdatedAt = e.now().UTC().Format(time.RFC3339)

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return p, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateProcedureTx(ctx, tx, p); err != nil {
		return p, err
	}
	if err := e.Events.Append(ctx, tx, "procedure.updated", "procedure", p.ID, opts.ActorID, events.EventPayload{"title": p.Title, "fields": len(p.Fields)}); err != nil {
		return p, err
	}
	if err := tx.Commit(); err != nil {
		return p, err
	}
	return p, nil
}

func (e Engine) DeleteProcedure(ctx context.Context, id, actorID string) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteProcedureTx(ctx, tx, id); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "procedure.deleted", "procedure", id, actorID, events.EventPayload{}); err != nil {
		return err
	}
	return tx.Commit()
}

// DuplicateProcedure deep-copies a stored procedure under fresh ids.
// An empty newTitle falls back to the source title plus " (Copy)".
func (e Engine) DuplicateProcedure(ctx context.Context, id, newTitle, actorID string) (domain.Procedure, error) {
	src, err := e.Repo.GetProcedure(ctx, id)
	if err != nil {
		return domain.Procedure{}, err
	}
	title := strings.TrimSpace(newTitle)
	if title == "" {
		title = src.Title + " (Copy)"
	}
	now := e.now().UTC().Format(time.RFC3339)
	dup := src
	dup.ID = e.newID()
	dup.Title = title
	dup.Tags = append([]string{}, src.Tags...)
	dup.Fields = builder.CopyFields(src.Fields)
	dup.CreatedAt = now
	dup.UpdatedAt = now
	for i := range dup.Fields {
		dup.Fields[i].ID = e.newID()
		dup.Fields[i].CreatedAt = now
		dup.Fields[i].UpdatedAt = now
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Procedure{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertProcedureTx(ctx, tx, dup); err != nil {
		return domain.Procedure{}, err
	}
	if err := e.Events.Append(ctx, tx, "procedure.duplicated", "procedure", dup.ID, actorID, events.EventPayload{"source": src.ID}); err != nil {
		return domain.Procedure{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Procedure{}, err
	}
	return dup, nil
}

// --- executions ---

func (e Engine) StartExecution(ctx context.Context, procedureID string, workOrderID *string, actorID string) (domain.Execution, error) {
	if _, err := e.Repo.GetProcedure(ctx, procedureID); err != nil {
		return domain.Execution{}, err
	}
	sess := execution.New(e.newID(), procedureID, workOrderID, nil)
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Execution{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertExecutionTx(ctx, tx, sess.Exec); err != nil {
		return domain.Execution{}, err
	}
	payload := events.EventPayload{"procedure_id": procedureID}
	if workOrderID != nil {
		payload["work_order_id"] = *workOrderID
	}
	if err := e.Events.Append(ctx, tx, "execution.started", "execution", sess.Exec.ID, actorID, payload); err != nil {
		return domain.Execution{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Execution{}, err
	}
	return sess.Exec, nil
}

func (e Engine) resumeSession(ctx context.Context, executionID string) (*execution.Session, error) {
	exec, err := e.Repo.GetExecution(ctx, executionID)
	if err != nil {
		return nil, err
	}
	proc, err := e.Repo.GetProcedure(ctx, exec.ProcedureID)
	if err != nil {
		return nil, err
	}
	sess := execution.Resume(exec, proc.Fields)
	sess.Now = e.now
	return sess, nil
}

func (e Engine) RecordAnswer(ctx context.Context, executionID, fieldID string, value any, actorID string) (domain.Execution, error) {
	sess, err := e.resumeSession(ctx, executionID)
	if err != nil {
		return domain.Execution{}, err
	}
	if err := sess.RecordAnswer(fieldID, value); err != nil {
		return sess.Exec, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return sess.Exec, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateExecutionTx(ctx, tx, sess.Exec); err != nil {
		return sess.Exec, err
	}
	if err := e.Events.Append(ctx, tx, "execution.answered", "execution", executionID, actorID, events.EventPayload{"field_id": fieldID}); err != nil {
		return sess.Exec, err
	}
	if err := tx.Commit(); err != nil {
		return sess.Exec, err
	}
	return sess.Exec, nil
}

// SubmitExecution finalizes a run. The row-level status guard inside
// UpdateExecutionTx keeps a concurrent second submit from being
// applied twice even if both callers loaded the session as open.
func (e Engine) SubmitExecution(ctx context.Context, executionID, actorID string) (domain.Execution, error) {
	sess, err := e.resumeSession(ctx, executionID)
	if err != nil {
		return domain.Execution{}, err
	}
	if err := sess.Submit(); err != nil {
		return sess.Exec, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return sess.Exec, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateExecutionTx(ctx, tx, sess.Exec); err != nil {
		return sess.Exec, err
	}
	if err := e.Events.Append(ctx, tx, "execution.submitted", "execution", executionID, actorID, events.EventPayload{"score": sess.Exec.Score}); err != nil {
		return sess.Exec, err
	}
	if err := tx.Commit(); err != nil {
		return sess.Exec, err
	}
	return sess.Exec, nil
}

func (e Engine) SkipExecution(ctx context.Context, executionID, actorID string) (domain.Execution, error) {
	sess, err := e.resumeSession(ctx, executionID)
	if err != nil {
		return domain.Execution{}, err
	}
	if err := sess.Skip(); err != nil {
		return sess.Exec, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return sess.Exec, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateExecutionTx(ctx, tx, sess.Exec); err != nil {
		return sess.Exec, err
	}
	if err := e.Events.Append(ctx, tx, "execution.skipped", "execution", executionID, actorID, events.EventPayload{}); err != nil {
		return sess.Exec, err
	}
	if err := tx.Commit(); err != nil {
		return sess.Exec, err
	}
	return sess.Exec, nil
}

// --- templates ---

func (e Engine) SaveTemplate(ctx context.Context, procedureID, name string, isPublic bool, actorID string) (domain.Template, error) {
	if strings.TrimSpace(name) == "" {
		return domain.Template{}, errors.New("name is required")
	}
	src, err := e.Repo.GetProcedure(ctx, procedureID)
	if err != nil {
		return domain.Template{}, err
	}
	t := template.FromProcedure(src, name, isPublic)
	t.ID = e.newID()
	now := e.now().UTC().Format(time.RFC3339)
	t.CreatedAt = now
	t.UpdatedAt = now

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Template{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertTemplateTx(ctx, tx, t); err != nil {
		return domain.Template{}, err
	}
	if err := e.Events.Append(ctx, tx, "template.saved", "template", t.ID, actorID, events.EventPayload{"name": t.Name, "source": procedureID}); err != nil {
		return domain.Template{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Template{}, err
	}
	return t, nil
}

func (e Engine) DeleteTemplate(ctx context.Context, id, actorID string) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteTemplateTx(ctx, tx, id); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "template.deleted", "template", id, actorID, events.EventPayload{}); err != nil {
		return err
	}
	return tx.Commit()
}

// ApplyTemplate instantiates a stored template as a new procedure. An
// empty title keeps the template name.
func (e Engine) ApplyTemplate(ctx context.Context, templateID, title, actorID string) (domain.Procedure, error) {
	t, err := e.Repo.GetTemplate(ctx, templateID)
	if err != nil {
		return domain.Procedure{}, err
	}
	p := template.Apply(t, e.newID, e.now())
	if strings.TrimSpace(title) != "" {
		p.Title = title
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Procedure{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertProcedureTx(ctx, tx, p); err != nil {
		return domain.Procedure{}, err
	}
	if err := e.Events.Append(ctx, tx, "template.applied", "template", t.ID, actorID, events.EventPayload{"procedure_id": p.ID}); err != nil {
		return domain.Procedure{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Procedure{}, err
	}
	return p, nil
}
