package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"checkline/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

// --- procedures ---

func (r Repo) InsertProcedureTx(ctx context.Context, tx *sql.Tx, p domain.Procedure) error {
	tags, err := marshalTags(p.Tags)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO procedures(id,title,description,category,tags_json,is_global,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?)`,
		p.ID, p.Title, nullable(p.Description), p.Category, tags, boolInt(p.IsGlobal), p.CreatedAt, p.UpdatedAt); err != nil {
		return fmt.Errorf("insert procedure: %w", err)
	}
	return r.replaceFieldsTx(ctx, tx, p.ID, p.Fields)
}

func (r Repo) UpdateProcedureTx(ctx context.Context, tx *sql.Tx, p domain.Procedure) error {
	tags, err := marshalTags(p.Tags)
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `UPDATE procedures SET title=?,description=?,category=?,tags_json=?,is_global=?,updated_at=? WHERE id=?`,
		p.Title, nullable(p.Description), p.Category, tags, boolInt(p.IsGlobal), p.UpdatedAt, p.ID)
	if err != nil {
		return fmt.Errorf("update procedure: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return r.replaceFieldsTx(ctx, tx, p.ID, p.Fields)
}

// replaceFieldsTx rewrites the whole field list for a procedure.
// Documents are saved as a unit, so a full rewrite keeps the stored
// order trivially consistent with the in-memory list.
func (r Repo) replaceFieldsTx(ctx context.Context, tx *sql.Tx, procedureID string, list []domain.ProcedureField) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM procedure_fields WHERE procedure_id=?`, procedureID); err != nil {
		return fmt.Errorf("clear fields: %w", err)
	}
	for _, f := range list {
		opts, err := json.Marshal(f.Options)
		if err != nil {
			return fmt.Errorf("marshal options: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO procedure_fields(id,procedure_id,label,field_type,is_required,order_index,options_json,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?,?)`,
			f.ID, procedureID, f.Label, string(f.FieldType), boolInt(f.IsRequired), f.OrderIndex, string(opts), f.CreatedAt, f.UpdatedAt); err != nil {
			return fmt.Errorf("insert field %s: %w", f.ID, err)
		}
	}
	return nil
}

func (r Repo) GetProcedure(ctx context.Context, id string) (domain.Procedure, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT id,title,COALESCE(description,''),category,COALESCE(tags_json,'[]'),is_global,created_at,updated_at FROM procedures WHERE id=?`, id)
	var p domain.Procedure
	var tagsJSON string
	var global int
	err := row.Scan(&p.ID, &p.Title, &p.Description, &p.Category, &tagsJSON, &global, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	if err != nil {
		return p, err
	}
	p.IsGlobal = global != 0
	if err := json.Unmarshal([]byte(tagsJSON), &p.Tags); err != nil {
		return p, fmt.Errorf("tags for procedure %s: %w", id, err)
	}
	p.Fields, err = r.listFields(ctx, id)
	return p, err
}

func (r Repo) listFields(ctx context.Context, procedureID string) ([]domain.ProcedureField, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,label,field_type,is_required,order_index,COALESCE(options_json,'{}'),created_at,updated_at FROM procedure_fields WHERE procedure_id=? ORDER BY order_index ASC`, procedureID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.ProcedureField
	for rows.Next() {
		var f domain.ProcedureField
		var ft, optsJSON string
		var required int
		if err := rows.Scan(&f.ID, &f.Label, &ft, &required, &f.OrderIndex, &optsJSON, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		f.FieldType = domain.FieldType(ft)
		f.IsRequired = required != 0
		if err := json.Unmarshal([]byte(optsJSON), &f.Options); err != nil {
			return nil, fmt.Errorf("options for field %s: %w", f.ID, err)
		}
		res = append(res, f)
	}
	return res, rows.Err()
}

// ProcedureFilter narrows ListProcedures.
type ProcedureFilter struct {
	Category string
	Global   *bool
	Tag      string
}

func (r Repo) ListProcedures(ctx context.Context, filter ProcedureFilter) ([]domain.Procedure, error) {
	clauses := []string{"1=1"}
	var args []any
	if filter.Category != "" {
		clauses = append(clauses, "category=?")
		args = append(args, filter.Category)
	}
	if filter.Global != nil {
		clauses = append(clauses, "is_global=?")
		args = append(args, boolInt(*filter.Global))
	}
	query := fmt.Sprintf(`SELECT id,title,COALESCE(description,''),category,COALESCE(tags_json,'[]'),is_global,created_at,updated_at FROM procedures WHERE %s ORDER BY created_at DESC`, strings.Join(clauses, " AND "))
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Procedure
	for rows.Next() {
		var p domain.Procedure
		var tagsJSON string
		var global int
		if err := rows.Scan(&p.ID, &p.Title, &p.Description, &p.Category, &tagsJSON, &global, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.IsGlobal = global != 0
		if err := json.Unmarshal([]byte(tagsJSON), &p.Tags); err != nil {
			return nil, fmt.Errorf("tags for procedure %s: %w", p.ID, err)
		}
		if filter.Tag != "" && !containsTag(p.Tags, filter.Tag) {
			continue
		}
		p.Fields, err = r.listFields(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

func (r Repo) DeleteProcedureTx(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM procedures WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	// Field rows go with the procedure even when foreign keys are off.
	_, err = tx.ExecContext(ctx, `DELETE FROM procedure_fields WHERE procedure_id=?`, id)
	return err
}

// --- categories ---

func (r Repo) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name,created_at FROM categories ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

// EnsureCategoryTx inserts a category if the name is not yet present.
// Reports whether a row was created.
func (r Repo) EnsureCategoryTx(ctx context.Context, tx *sql.Tx, c domain.Category) (bool, error) {
	res, err := tx.ExecContext(ctx, `INSERT INTO categories(id,name,created_at) VALUES (?,?,?) ON CONFLICT(name) DO NOTHING`,
		c.ID, c.Name, c.CreatedAt)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// --- events ---

func (r Repo) RecentEvents(ctx context.Context, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT id,ts,type,entity_kind,COALESCE(entity_id,''),actor_id,payload_json FROM events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.EntityKind, &e.EntityID, &e.ActorID, &e.Payload); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// EventsAfter returns events with ids greater than the cursor in
// ascending order.
func (r Repo) EventsAfter(ctx context.Context, limit int, cursor int64) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT id,ts,type,entity_kind,COALESCE(entity_id,''),actor_id,payload_json FROM events WHERE id>? ORDER BY id ASC LIMIT ?`, cursor, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.EntityKind, &e.EntityID, &e.ActorID, &e.Payload); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// LatestEventID returns the most recent event id.
func (r Repo) LatestEventID(ctx context.Context) (int64, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT COALESCE(MAX(id),0) FROM events`)
	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// --- helpers ---

func marshalTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("marshal tags: %w", err)
	}
	return string(b), nil
}

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
