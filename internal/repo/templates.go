package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"checkline/internal/domain"
)

func (r Repo) InsertTemplateTx(ctx context.Context, tx *sql.Tx, t domain.Template) error {
	tags, err := marshalTags(t.Tags)
	if err != nil {
		return err
	}
	snapshot, err := json.Marshal(t.Fields)
	if err != nil {
		return fmt.Errorf("marshal template fields: %w", err)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO templates(id,name,description,category,tags_json,is_public,fields_json,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?,?)`,
		t.ID, t.Name, nullable(t.Description), t.Category, tags, boolInt(t.IsPublic), string(snapshot), t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert template: %w", err)
	}
	return nil
}

func (r Repo) GetTemplate(ctx context.Context, id string) (domain.Template, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT id,name,COALESCE(description,''),category,COALESCE(tags_json,'[]'),is_public,fields_json,created_at,updated_at FROM templates WHERE id=?`, id)
	return scanTemplate(row.Scan)
}

func (r Repo) ListTemplates(ctx context.Context) ([]domain.Template, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name,COALESCE(description,''),category,COALESCE(tags_json,'[]'),is_public,fields_json,created_at,updated_at FROM templates ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Template
	for rows.Next() {
		t, err := scanTemplate(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

func (r Repo) DeleteTemplateTx(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM templates WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanTemplate(scan func(...any) error) (domain.Template, error) {
	var t domain.Template
	var tagsJSON, fieldsJSON string
	var public int
	err := scan(&t.ID, &t.Name, &t.Description, &t.Category, &tagsJSON, &public, &fieldsJSON, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	if err != nil {
		return t, err
	}
	t.IsPublic = public != 0
	if err := json.Unmarshal([]byte(tagsJSON), &t.Tags); err != nil {
		return t, fmt.Errorf("tags for template %s: %w", t.ID, err)
	}
	if err := json.Unmarshal([]byte(fieldsJSON), &t.Fields); err != nil {
		return t, fmt.Errorf("fields for template %s: %w", t.ID, err)
	}
	return t, nil
}
