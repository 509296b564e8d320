package core

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultRunTimeout is the maximum duration for a split run.
const DefaultRunTimeout = 10 * time.Minute

// cleanupDelay is how long finished runs stay available for result and
// archive retrieval before being dropped from tracking.
const cleanupDelay = 15 * time.Minute

// RunRecord summarizes a finished run for the optional history store.
type RunRecord struct {
	RunID       string
	FileName    string
	KeyColumn   string
	ArchiveName string
	GroupCount  int
	TotalRows   int
	RowsWritten int
	Unprocessed int
	Status      string // "complete" or "failed"
	Error       string
	Duration    time.Duration
}

// RunRecorder persists finished run records. Implementations must be safe
// for concurrent use. Recording is best-effort: failures are logged and
// never affect the run outcome.
type RunRecorder interface {
	RecordRun(ctx context.Context, rec RunRecord) error
}

// ServiceOptions configures a Service.
type ServiceOptions struct {
	MaxConcurrentRuns int
	MaxWaitTime       time.Duration
	RunTimeout        time.Duration
	Recorder          RunRecorder // nil disables history
}

// Service coordinates asynchronous split runs. Each run gets an exclusive
// pipeline invocation; the service only tracks progress, fans out events,
// and holds the finished archive until the client downloads it.
type Service struct {
	limiter    *RunLimiter
	runTimeout time.Duration
	recorder   RunRecorder

	mu   sync.RWMutex
	runs map[string]*activeRun
}

type activeRun struct {
	ID        string
	FileName  string
	KeyColumn string
	Cancel    context.CancelFunc
	Progress  RunProgress
	Result    *SplitResult
	Err       error
	Done      chan struct{}

	eventMu   sync.Mutex
	events    []Event
	listeners []chan Event
	closed    bool
}

// NewService creates a new Service instance.
func NewService(opts ServiceOptions) *Service {
	timeout := opts.RunTimeout
	if timeout <= 0 {
		timeout = DefaultRunTimeout
	}
	return &Service{
		limiter:    NewRunLimiter(opts.MaxConcurrentRuns, opts.MaxWaitTime),
		runTimeout: timeout,
		recorder:   opts.Recorder,
		runs:       make(map[string]*activeRun),
	}
}

// StartSplit begins an asynchronous split run over the given workbook
// bytes. Returns the run ID immediately; use SubscribeEvents or
// RunProgress for updates and RunResult for the outcome. Returns
// ErrTooManyRuns when no run slot frees up within the configured wait.
func (s *Service) StartSplit(ctx context.Context, fileName, keyColumn string, fileData []byte) (string, error) {
	if keyColumn == "" {
		return "", fmt.Errorf("key column is required")
	}
	if err := s.limiter.Acquire(ctx); err != nil {
		return "", err
	}

	runID := uuid.New().String()
	runCtx, cancel := context.WithTimeout(context.Background(), s.runTimeout)

	run := &activeRun{
		ID:        runID,
		FileName:  fileName,
		KeyColumn: keyColumn,
		Cancel:    cancel,
		Progress: RunProgress{
			RunID:     runID,
			FileName:  fileName,
			KeyColumn: keyColumn,
			Phase:     PhaseStarting,
		},
		Done: make(chan struct{}),
	}

	s.mu.Lock()
	s.runs[runID] = run
	s.mu.Unlock()

	go s.process(runCtx, run, fileData)

	return runID, nil
}

// process executes the pipeline for one run and publishes its outcome.
func (s *Service) process(ctx context.Context, run *activeRun, fileData []byte) {
	start := time.Now()

	defer func() {
		run.closeListeners()
		close(run.Done)
		run.Cancel()
		s.limiter.Release()
		s.cleanup(run.ID, cleanupDelay)
	}()

	result, err := Split(ctx, SplitRequest{
		Source:     bytes.NewReader(fileData),
		SourceName: run.FileName,
		KeyColumn:  run.KeyColumn,
		OnEvent:    run.appendEvent,
	})

	run.eventMu.Lock()
	if err != nil {
		run.Err = err
		run.Progress.Phase = PhaseFailed
		run.Progress.Error = err.Error()
	} else {
		run.Result = result
		run.Progress.Phase = PhaseComplete
		run.Progress.GroupsDone = len(result.Groups)
		run.Progress.GroupCount = len(result.Groups)
	}
	run.eventMu.Unlock()

	if err != nil {
		run.appendEvent(Event{
			Phase:   PhaseFailed,
			Level:   LevelError,
			Message: err.Error(),
		})
		slog.Error("split run failed",
			"run_id", run.ID,
			"file", run.FileName,
			"key_column", run.KeyColumn,
			"error", err,
		)
	} else {
		slog.Info("split run complete",
			"run_id", run.ID,
			"file", run.FileName,
			"key_column", run.KeyColumn,
			"groups", len(result.Groups),
			"rows_written", result.Report.RowsWritten,
			"duration_ms", result.Duration.Milliseconds(),
		)
	}

	s.record(run, err, time.Since(start))
}

// record persists the finished run to the history store, when configured.
func (s *Service) record(run *activeRun, runErr error, elapsed time.Duration) {
	if s.recorder == nil {
		return
	}

	rec := RunRecord{
		RunID:     run.ID,
		FileName:  run.FileName,
		KeyColumn: run.KeyColumn,
		Status:    "complete",
		Duration:  elapsed,
	}
	if runErr != nil {
		rec.Status = "failed"
		rec.Error = runErr.Error()
	} else {
		rec.ArchiveName = run.Result.ArchiveName
		rec.GroupCount = len(run.Result.Groups)
		rec.TotalRows = run.Result.Report.TotalRows
		rec.RowsWritten = run.Result.Report.RowsWritten
		rec.Unprocessed = run.Result.Report.Unprocessed
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.recorder.RecordRun(ctx, rec); err != nil {
		slog.Warn("record run history", "run_id", run.ID, "error", err)
	}
}

// SubscribeEvents returns a channel that replays the run's log so far and
// then receives new events as they are emitted. The channel is closed when
// the run completes.
func (s *Service) SubscribeEvents(runID string) (<-chan Event, error) {
	s.mu.RLock()
	run, ok := s.runs[runID]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("run not found: %s", runID)
	}

	run.eventMu.Lock()
	defer run.eventMu.Unlock()

	ch := make(chan Event, len(run.events)+16)
	for _, ev := range run.events {
		ch <- ev
	}
	if run.closed {
		close(ch)
		return ch, nil
	}
	run.listeners = append(run.listeners, ch)
	return ch, nil
}

// RunResult returns the outcome of a run, blocking until it completes.
func (s *Service) RunResult(runID string) (*SplitResult, error) {
	s.mu.RLock()
	run, ok := s.runs[runID]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("run not found: %s", runID)
	}

	<-run.Done

	if run.Err != nil {
		return nil, run.Err
	}
	return run.Result, nil
}

// GetRunProgress returns the current progress snapshot without blocking.
func (s *Service) GetRunProgress(runID string) (RunProgress, error) {
	s.mu.RLock()
	run, ok := s.runs[runID]
	s.mu.RUnlock()

	if !ok {
		return RunProgress{}, fmt.Errorf("run not found: %s", runID)
	}

	run.eventMu.Lock()
	defer run.eventMu.Unlock()
	return run.Progress, nil
}

// LimiterStatus reports the run limiter's state for monitoring.
func (s *Service) LimiterStatus() RunLimiterStatus {
	return s.limiter.Status()
}

// WaitForRuns blocks until all active runs complete or ctx is cancelled.
// Used during graceful shutdown.
func (s *Service) WaitForRuns(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// appendEvent records one pipeline event, updates the progress snapshot,
// and fans the event out to all listeners. Slow listeners are skipped
// rather than blocking the run.
func (run *activeRun) appendEvent(ev Event) {
	run.eventMu.Lock()
	defer run.eventMu.Unlock()

	run.events = append(run.events, ev)

	switch ev.Phase {
	case PhaseReading, PhaseExtractingKeys, PhasePartitioning, PhaseReconciling:
		run.Progress.Phase = ev.Phase
		if ev.GroupCount > 0 {
			run.Progress.GroupCount = ev.GroupCount
		}
	case PhaseSerializing:
		run.Progress.Phase = ev.Phase
		run.Progress.GroupsDone = ev.GroupIndex
		run.Progress.GroupCount = ev.GroupCount
	}

	for _, ch := range run.listeners {
		select {
		case ch <- ev:
		default:
			// Listener is slow, skip this update
		}
	}
}

// closeListeners closes all listener channels.
func (run *activeRun) closeListeners() {
	run.eventMu.Lock()
	defer run.eventMu.Unlock()

	for _, ch := range run.listeners {
		close(ch)
	}
	run.listeners = nil
	run.closed = true
}

// cleanup removes the run from tracking after a delay.
func (s *Service) cleanup(runID string, delay time.Duration) {
	time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.runs, runID)
		s.mu.Unlock()
	})
}
