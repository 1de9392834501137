package execution_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"checkline/internal/domain"
	"checkline/internal/execution"
)

func inspectionFields() []domain.ProcedureField {
	return []domain.ProcedureField{
		{ID: "sec", Label: "Checks", FieldType: domain.FieldSection},
		{ID: "pin", Label: "Pin intact", FieldType: domain.FieldCheckbox, IsRequired: true},
		{ID: "gauge", Label: "Gauge in green", FieldType: domain.FieldCheckbox, IsRequired: true},
		{ID: "notes", Label: "Notes", FieldType: domain.FieldText},
	}
}

func testSession(t *testing.T) *execution.Session {
	t.Helper()
	s := execution.New("e-1", "p-1", nil, inspectionFields())
	s.Now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func TestNewSessionNotStarted(t *testing.T) {
	s := testSession(t)
	if s.Exec.Status != domain.ExecutionNotStarted {
		t.Fatalf("status = %q", s.Exec.Status)
	}
	if s.Exec.StartedAt != nil || s.Exec.Score != nil {
		t.Fatalf("fresh session must carry no timestamps or score")
	}
}

func TestFirstAnswerStartsTheRun(t *testing.T) {
	s := testSession(t)
	if err := s.RecordAnswer("pin", true); err != nil {
		t.Fatalf("RecordAnswer: %v", err)
	}
	if s.Exec.Status != domain.ExecutionInProgress {
		t.Fatalf("status = %q, want in_progress", s.Exec.Status)
	}
	if s.Exec.StartedAt == nil || *s.Exec.StartedAt != "2024-06-01T12:00:00Z" {
		t.Fatalf("StartedAt = %v", s.Exec.StartedAt)
	}
	got := s.Exec.Answers["pin"]
	want := domain.Answer{FieldID: "pin", Label: "Pin intact", FieldType: domain.FieldCheckbox, Value: true}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected answer (-want +got):\n%s", diff)
	}
}

func TestRecordAnswerOverwrites(t *testing.T) {
	s := testSession(t)
	if err := s.RecordAnswer("notes", "first pass"); err != nil {
		t.Fatalf("RecordAnswer: %v", err)
	}
	if err := s.RecordAnswer("notes", "second pass"); err != nil {
		t.Fatalf("RecordAnswer: %v", err)
	}
	if got := s.Exec.Answers["notes"].Value; got != "second pass" {
		t.Fatalf("Value = %v", got)
	}
	if len(s.Exec.Answers) != 1 {
		t.Fatalf("overwrite must not grow the answer set")
	}
}

func TestRecordAnswerUnknownField(t *testing.T) {
	s := testSession(t)
	err := s.RecordAnswer("nope", true)
	var ue execution.UnknownFieldError
	if !errors.As(err, &ue) || ue.FieldID != "nope" {
		t.Fatalf("err = %v", err)
	}
	// A section exists but cannot take an answer.
	err = s.RecordAnswer("sec", true)
	if !errors.As(err, &ue) || ue.FieldID != "sec" {
		t.Fatalf("err = %v", err)
	}
	if s.Exec.Status != domain.ExecutionNotStarted {
		t.Fatalf("rejected answer must not start the run")
	}
}

func TestSubmitRejectsMissingRequired(t *testing.T) {
	s := testSession(t)
	if err := s.RecordAnswer("gauge", true); err != nil {
		t.Fatalf("RecordAnswer: %v", err)
	}
	err := s.Submit()
	var me execution.MissingRequiredError
	if !errors.As(err, &me) {
		t.Fatalf("err = %v", err)
	}
	if diff := cmp.Diff([]string{"pin"}, me.FieldIDs); diff != "" {
		t.Fatalf("unexpected missing ids (-want +got):\n%s", diff)
	}
	if s.Exec.Status != domain.ExecutionInProgress || s.Exec.Score != nil {
		t.Fatalf("failed submit must leave the run untouched")
	}
}

func TestSubmitCompletesAndScores(t *testing.T) {
	s := testSession(t)
	for _, id := range []string{"pin", "gauge"} {
		if err := s.RecordAnswer(id, true); err != nil {
			t.Fatalf("RecordAnswer(%s): %v", id, err)
		}
	}
	if err := s.Submit(); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if s.Exec.Status != domain.ExecutionCompleted {
		t.Fatalf("status = %q", s.Exec.Status)
	}
	if s.Exec.Score == nil || *s.Exec.Score != 100 {
		t.Fatalf("Score = %v, want 100", s.Exec.Score)
	}
	if s.Exec.CompletedAt == nil || *s.Exec.CompletedAt != "2024-06-01T12:00:00Z" {
		t.Fatalf("CompletedAt = %v", s.Exec.CompletedAt)
	}
}

func TestSubmitTwiceRejected(t *testing.T) {
	s := testSession(t)
	for _, id := range []string{"pin", "gauge"} {
		if err := s.RecordAnswer(id, true); err != nil {
			t.Fatalf("RecordAnswer(%s): %v", id, err)
		}
	}
	if err := s.Submit(); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := s.Submit(); !errors.Is(err, execution.ErrFinalized) {
		t.Fatalf("second submit: %v", err)
	}
	if err := s.RecordAnswer("notes", "late"); !errors.Is(err, execution.ErrFinalized) {
		t.Fatalf("answer after finalize: %v", err)
	}
	if _, ok := s.Exec.Answers["notes"]; ok {
		t.Fatalf("rejected answer must not be recorded")
	}
}

func TestSkip(t *testing.T) {
	s := testSession(t)
	if err := s.Skip(); err != nil {
		t.Fatalf("Skip: %v", err)
	}
	if s.Exec.Status != domain.ExecutionSkipped {
		t.Fatalf("status = %q", s.Exec.Status)
	}
	if s.Exec.Score != nil {
		t.Fatalf("skip must not compute a score")
	}
	if err := s.Skip(); !errors.Is(err, execution.ErrFinalized) {
		t.Fatalf("second skip: %v", err)
	}
	if err := s.Submit(); !errors.Is(err, execution.ErrFinalized) {
		t.Fatalf("submit after skip: %v", err)
	}
}

func TestSkipMidRun(t *testing.T) {
	s := testSession(t)
	if err := s.RecordAnswer("pin", true); err != nil {
		t.Fatalf("RecordAnswer: %v", err)
	}
	if err := s.Skip(); err != nil {
		t.Fatalf("Skip: %v", err)
	}
	if s.Exec.Status != domain.ExecutionSkipped {
		t.Fatalf("status = %q", s.Exec.Status)
	}
	// Collected answers survive for the audit trail.
	if _, ok := s.Exec.Answers["pin"]; !ok {
		t.Fatalf("answers must be kept on skip")
	}
}

func TestResumeInitializesAnswers(t *testing.T) {
	exec := domain.Execution{ID: "e-2", ProcedureID: "p-1", Status: domain.ExecutionNotStarted}
	s := execution.Resume(exec, inspectionFields())
	if err := s.RecordAnswer("pin", true); err != nil {
		t.Fatalf("RecordAnswer on resumed session: %v", err)
	}
}
