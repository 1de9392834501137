// Package execution implements the run of a procedure: a small state
// machine that collects answers and finalizes into a scored result.
// It reads the procedure's fields but never writes them; persistence
// is the caller's business.
package execution

import (
	"fmt"
	"strings"
	"time"

	"checkline/internal/domain"
	"checkline/internal/fields"
	"checkline/internal/scoring"
)

// ErrFinalized signals an operation on a session that already reached
// a terminal state.
var ErrFinalized = fmt.Errorf("session already finalized")

// MissingRequiredError rejects a submit with unanswered required
// fields, naming them.
type MissingRequiredError struct {
	FieldIDs []string
}

func (e MissingRequiredError) Error() string {
	return fmt.Sprintf("missing required answers: %s", strings.Join(e.FieldIDs, ", "))
}

// UnknownFieldError rejects an answer for a field id the procedure
// does not have, or one that cannot take an answer.
type UnknownFieldError struct {
	FieldID string
}

func (e UnknownFieldError) Error() string {
	return fmt.Sprintf("field %s is not answerable in this procedure", e.FieldID)
}

// Session is one run of a procedure. Fields is a read-only view of the
// procedure's field list at run time; Exec carries the mutable run
// state. The caller must not drive two mutating calls concurrently on
// the same session.
type Session struct {
	Exec   domain.Execution
	Fields []domain.ProcedureField
	Now    func() time.Time
}

// New starts a fresh session against a procedure.
func New(id, procedureID string, workOrderID *string, list []domain.ProcedureField) *Session {
	return &Session{
		Exec: domain.Execution{
			ID:          id,
			ProcedureID: procedureID,
			WorkOrderID: workOrderID,
			Status:      domain.ExecutionNotStarted,
			Answers:     map[string]domain.Answer{},
		},
		Fields: list,
	}
}

// Resume wraps a persisted execution for further operations.
func Resume(exec domain.Execution, list []domain.ProcedureField) *Session {
	if exec.Answers == nil {
		exec.Answers = map[string]domain.Answer{}
	}
	return &Session{Exec: exec, Fields: list}
}

func (s *Session) now() string {
	if s.Now != nil {
		return s.Now().UTC().Format(time.RFC3339)
	}
	return time.Now().UTC().Format(time.RFC3339)
}

func (s *Session) terminal() bool {
	return s.Exec.Status == domain.ExecutionCompleted || s.Exec.Status == domain.ExecutionSkipped
}

// RecordAnswer writes or overwrites the answer for a field. The first
// answer moves the session from not_started to in_progress. Answers
// against a finalized session are rejected, leaving it unchanged.
func (s *Session) RecordAnswer(fieldID string, value any) error {
	if s.terminal() {
		return ErrFinalized
	}
	var field *domain.ProcedureField
	for i := range s.Fields {
		if s.Fields[i].ID == fieldID {
			field = &s.Fields[i]
			break
		}
	}
	if field == nil || !fields.Answerable(field.FieldType) {
		return UnknownFieldError{FieldID: fieldID}
	}
	if s.Exec.Status == domain.ExecutionNotStarted {
		started := s.now()
		s.Exec.Status = domain.ExecutionInProgress
		s.Exec.StartedAt = &started
	}
	s.Exec.Answers[fieldID] = domain.Answer{
		FieldID:   fieldID,
		Label:     field.Label,
		FieldType: field.FieldType,
		Value:     value,
	}
	return nil
}

// Submit finalizes the session. Every required answerable field must
// have an answer; otherwise the missing ids are reported and nothing
// changes. A second submit is rejected rather than recomputed.
func (s *Session) Submit() error {
	if s.terminal() {
		return ErrFinalized
	}
	if missing := scoring.MissingRequired(s.Fields, s.Exec.Answers); len(missing) > 0 {
		return MissingRequiredError{FieldIDs: missing}
	}
	score := scoring.Score(s.Fields, s.Exec.Answers)
	done := s.now()
	s.Exec.Status = domain.ExecutionCompleted
	s.Exec.CompletedAt = &done
	s.Exec.Score = &score
	return nil
}

// Skip abandons the session from any non-terminal state. No score is
// computed.
func (s *Session) Skip() error {
	if s.terminal() {
		return ErrFinalized
	}
	s.Exec.Status = domain.ExecutionSkipped
	return nil
}
