package core

import (
	"context"
	"sync"
	"testing"
	"time"
)

func newTestService() *Service {
	return NewService(ServiceOptions{
		MaxConcurrentRuns: 2,
		MaxWaitTime:       time.Second,
		RunTimeout:        30 * time.Second,
	})
}

func TestService_StartSplitAndResult(t *testing.T) {
	s := newTestService()

	runID, err := s.StartSplit(context.Background(), "orders.xlsx", "Region", regionWorkbook(t))
	if err != nil {
		t.Fatalf("StartSplit failed: %v", err)
	}
	if runID == "" {
		t.Fatal("empty run ID")
	}

	res, err := s.RunResult(runID)
	if err != nil {
		t.Fatalf("RunResult failed: %v", err)
	}
	if len(res.Groups) != 2 {
		t.Errorf("got %d groups, want 2", len(res.Groups))
	}
	if len(res.Archive) == 0 {
		t.Error("archive is empty")
	}

	progress, err := s.GetRunProgress(runID)
	if err != nil {
		t.Fatalf("GetRunProgress failed: %v", err)
	}
	if progress.Phase != PhaseComplete {
		t.Errorf("phase = %q, want complete", progress.Phase)
	}
	if progress.Percent() != 100 {
		t.Errorf("percent = %d, want 100", progress.Percent())
	}
}

func TestService_SubscribeEvents(t *testing.T) {
	s := newTestService()

	runID, err := s.StartSplit(context.Background(), "orders.xlsx", "Region", regionWorkbook(t))
	if err != nil {
		t.Fatalf("StartSplit failed: %v", err)
	}

	ch, err := s.SubscribeEvents(runID)
	if err != nil {
		t.Fatalf("SubscribeEvents failed: %v", err)
	}

	var events []Event
	for ev := range ch {
		events = append(events, ev)
	}

	if len(events) == 0 {
		t.Fatal("no events received")
	}
	if events[0].Phase != PhaseReading {
		t.Errorf("first event phase = %q, want reading", events[0].Phase)
	}
	last := events[len(events)-1]
	if last.Phase != PhaseReconciling {
		t.Errorf("last event phase = %q, want reconciling", last.Phase)
	}
}

func TestService_SubscribeAfterCompletion(t *testing.T) {
	s := newTestService()

	runID, err := s.StartSplit(context.Background(), "orders.xlsx", "Region", regionWorkbook(t))
	if err != nil {
		t.Fatalf("StartSplit failed: %v", err)
	}
	if _, err := s.RunResult(runID); err != nil {
		t.Fatalf("RunResult failed: %v", err)
	}

	// Late subscribers still get the full backlog, then a closed channel
	ch, err := s.SubscribeEvents(runID)
	if err != nil {
		t.Fatalf("SubscribeEvents failed: %v", err)
	}

	count := 0
	for range ch {
		count++
	}
	if count == 0 {
		t.Error("late subscriber received no backlog")
	}
}

func TestService_FailedRun(t *testing.T) {
	s := newTestService()

	runID, err := s.StartSplit(context.Background(), "orders.xlsx", "Warehouse", regionWorkbook(t))
	if err != nil {
		t.Fatalf("StartSplit failed: %v", err)
	}

	if _, err := s.RunResult(runID); err == nil {
		t.Fatal("expected error for missing column")
	}

	progress, err := s.GetRunProgress(runID)
	if err != nil {
		t.Fatalf("GetRunProgress failed: %v", err)
	}
	if progress.Phase != PhaseFailed {
		t.Errorf("phase = %q, want failed", progress.Phase)
	}
	if progress.Error == "" {
		t.Error("failed run has empty Error")
	}
}

func TestService_UnknownRun(t *testing.T) {
	s := newTestService()

	if _, err := s.GetRunProgress("nope"); err == nil {
		t.Error("GetRunProgress should fail for unknown run")
	}
	if _, err := s.SubscribeEvents("nope"); err == nil {
		t.Error("SubscribeEvents should fail for unknown run")
	}
	if _, err := s.RunResult("nope"); err == nil {
		t.Error("RunResult should fail for unknown run")
	}
}

func TestService_RequiresKeyColumn(t *testing.T) {
	s := newTestService()

	if _, err := s.StartSplit(context.Background(), "orders.xlsx", "", regionWorkbook(t)); err == nil {
		t.Error("StartSplit should reject an empty key column")
	}
}

// recorderStub captures records handed to the history store.
type recorderStub struct {
	mu   sync.Mutex
	recs []RunRecord
}

func (r *recorderStub) RecordRun(_ context.Context, rec RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recs = append(r.recs, rec)
	return nil
}

func TestService_RecordsHistory(t *testing.T) {
	rec := &recorderStub{}
	s := NewService(ServiceOptions{
		MaxConcurrentRuns: 1,
		MaxWaitTime:       time.Second,
		Recorder:          rec,
	})

	runID, err := s.StartSplit(context.Background(), "orders.xlsx", "Region", regionWorkbook(t))
	if err != nil {
		t.Fatalf("StartSplit failed: %v", err)
	}
	if _, err := s.RunResult(runID); err != nil {
		t.Fatalf("RunResult failed: %v", err)
	}

	// RecordRun happens before Done closes, so the record is visible here
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.recs) != 1 {
		t.Fatalf("got %d records, want 1", len(rec.recs))
	}
	got := rec.recs[0]
	if got.RunID != runID || got.Status != "complete" || got.GroupCount != 2 {
		t.Errorf("record = %+v", got)
	}
	if got.TotalRows != 10 || got.RowsWritten != 9 || got.Unprocessed != 1 {
		t.Errorf("record counts = %+v", got)
	}
}
