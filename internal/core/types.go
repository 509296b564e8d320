package core

// types.go defines the data model shared by the pipeline, the run service,
// and the surrounding frontends.

import (
	"io"
	"time"
)

// Dataset is an ordered tabular row set parsed from a spreadsheet.
// Header holds the column names in source order; every row is aligned to
// the header (padded with empty cells where the source row was short).
type Dataset struct {
	Header []string
	Rows   [][]string
}

// TotalRows returns the number of data rows in the dataset.
func (d *Dataset) TotalRows() int {
	return len(d.Rows)
}

// ColumnIndex returns the position of the named column in the header,
// or -1 if the column is not present. Matching is exact.
func (d *Dataset) ColumnIndex(name string) int {
	for i, col := range d.Header {
		if col == name {
			return i
		}
	}
	return -1
}

// Group is the subset of rows sharing one key value, destined for one
// output file. Rows keep their original order and are re-indexed to the
// dataset's full header.
type Group struct {
	Key  string
	Rows [][]string
}

// RunPhase indicates the current stage of split processing.
type RunPhase string

const (
	PhaseStarting       RunPhase = "starting"
	PhaseReading        RunPhase = "reading"
	PhaseExtractingKeys RunPhase = "extracting_keys"
	PhasePartitioning   RunPhase = "partitioning"
	PhaseSerializing    RunPhase = "serializing"
	PhaseReconciling    RunPhase = "reconciling"
	PhaseComplete       RunPhase = "complete"
	PhaseFailed         RunPhase = "failed"
)

// EventLevel classifies a log event for rendering.
type EventLevel string

const (
	LevelInfo  EventLevel = "info"
	LevelWarn  EventLevel = "warn"
	LevelError EventLevel = "error"
)

// Event is a single structured log entry emitted by the pipeline. The
// caller decides how to accumulate and render events; the pipeline only
// appends, one event at a time.
type Event struct {
	Phase      RunPhase   `json:"phase"`
	Level      EventLevel `json:"level"`
	Message    string     `json:"message"`
	GroupKey   string     `json:"groupKey,omitempty"`
	GroupIndex int        `json:"groupIndex,omitempty"` // 1-based
	GroupCount int        `json:"groupCount,omitempty"`
	Rows       int        `json:"rows,omitempty"`
}

// EventFunc receives pipeline log events. It is invoked synchronously;
// slow consumers must buffer on their side.
type EventFunc func(Event)

// GroupStat describes one serialized archive member.
type GroupStat struct {
	Key      string `json:"key"`
	FileName string `json:"fileName"`
	Rows     int    `json:"rows"`
}

// RunReport is the reconciliation arithmetic for a completed run.
// Unprocessed counts rows whose key cell was empty; they are excluded
// from every group but still accounted for here.
type RunReport struct {
	TotalRows   int `json:"totalRows"`
	RowsWritten int `json:"rowsWritten"`
	Unprocessed int `json:"unprocessed"`
}

// SplitRequest describes one pipeline invocation.
type SplitRequest struct {
	// Source is the spreadsheet byte stream to split.
	Source io.Reader
	// SourceName is the uploaded file name, used to suggest the archive name.
	SourceName string
	// KeyColumn is the column whose distinct values define the groups.
	KeyColumn string
	// OnEvent, when non-nil, receives progress/log events during the run.
	OnEvent EventFunc
}

// SplitResult is the outcome of a successful run. The archive is owned by
// the caller once returned; the pipeline keeps no reference.
type SplitResult struct {
	Archive     []byte        `json:"-"`
	ArchiveName string        `json:"archiveName"`
	KeyColumn   string        `json:"keyColumn"`
	Groups      []GroupStat   `json:"groups"`
	Report      RunReport     `json:"report"`
	Duration    time.Duration `json:"-"`
}

// RunProgress is a snapshot of an in-flight run for polling clients.
type RunProgress struct {
	RunID      string   `json:"runId"`
	FileName   string   `json:"fileName"`
	KeyColumn  string   `json:"keyColumn"`
	Phase      RunPhase `json:"phase"`
	GroupsDone int      `json:"groupsDone"`
	GroupCount int      `json:"groupCount"`
	Error      string   `json:"error,omitempty"` // non-empty when Phase is PhaseFailed
}

// Percent returns the serialization progress as a percentage (0-100).
func (p RunProgress) Percent() int {
	if p.Phase == PhaseComplete {
		return 100
	}
	if p.GroupCount <= 0 {
		return 0
	}
	return (p.GroupsDone * 100) / p.GroupCount
}
