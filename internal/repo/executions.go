package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"checkline/internal/domain"
)

// ErrFinalized reports a write against an execution row another
// writer already finalized.
var ErrFinalized = errors.New("execution already finalized")

func (r Repo) InsertExecutionTx(ctx context.Context, tx *sql.Tx, e domain.Execution) error {
	answers, err := marshalAnswers(e.Answers)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO executions(id,procedure_id,work_order_id,status,started_at,completed_at,answers_json,score) VALUES (?,?,?,?,?,?,?,?)`,
		e.ID, e.ProcedureID, e.WorkOrderID, e.Status, e.StartedAt, e.CompletedAt, answers, e.Score)
	if err != nil {
		return fmt.Errorf("insert execution: %w", err)
	}
	return nil
}

// UpdateExecutionTx persists run state. The status guard makes the
// write a no-op once another writer finalized the row: the caller must
// treat zero affected rows as a lost race.
func (r Repo) UpdateExecutionTx(ctx context.Context, tx *sql.Tx, e domain.Execution) error {
	answers, err := marshalAnswers(e.Answers)
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `UPDATE executions SET status=?,started_at=?,completed_at=?,answers_json=?,score=? WHERE id=? AND status NOT IN ('completed','skipped')`,
		e.Status, e.StartedAt, e.CompletedAt, answers, e.Score, e.ID)
	if err != nil {
		return fmt.Errorf("update execution: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var status string
		err := tx.QueryRowContext(ctx, `SELECT status FROM executions WHERE id=?`, e.ID).Scan(&status)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return ErrFinalized
	}
	return nil
}

func (r Repo) GetExecution(ctx context.Context, id string) (domain.Execution, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT id,procedure_id,work_order_id,status,started_at,completed_at,COALESCE(answers_json,'{}'),score FROM executions WHERE id=?`, id)
	return scanExecution(row.Scan)
}

func (r Repo) ListExecutions(ctx context.Context, procedureID string) ([]domain.Execution, error) {
	query := `SELECT id,procedure_id,work_order_id,status,started_at,completed_at,COALESCE(answers_json,'{}'),score FROM executions`
	var args []any
	if procedureID != "" {
		query += ` WHERE procedure_id=?`
		args = append(args, procedureID)
	}
	query += ` ORDER BY rowid DESC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Execution
	for rows.Next() {
		e, err := scanExecution(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func scanExecution(scan func(...any) error) (domain.Execution, error) {
	var e domain.Execution
	var workOrder, started, completed sql.NullString
	var answersJSON string
	var score sql.NullInt64
	err := scan(&e.ID, &e.ProcedureID, &workOrder, &e.Status, &started, &completed, &answersJSON, &score)
	if err == sql.ErrNoRows {
		return e, ErrNotFound
	}
	if err != nil {
		return e, err
	}
	if workOrder.Valid {
		e.WorkOrderID = &workOrder.String
	}
	if started.Valid {
		e.StartedAt = &started.String
	}
	if completed.Valid {
		e.CompletedAt = &completed.String
	}
	if score.Valid {
		v := int(score.Int64)
		e.Score = &v
	}
	if err := json.Unmarshal([]byte(answersJSON), &e.Answers); err != nil {
		return e, fmt.Errorf("answers for execution %s: %w", e.ID, err)
	}
	if e.Answers == nil {
		e.Answers = map[string]domain.Answer{}
	}
	return e, nil
}

func marshalAnswers(answers map[string]domain.Answer) (string, error) {
	if answers == nil {
		answers = map[string]domain.Answer{}
	}
	b, err := json.Marshal(answers)
	if err != nil {
		return "", fmt.Errorf("marshal answers: %w", err)
	}
	return string(b), nil
}
