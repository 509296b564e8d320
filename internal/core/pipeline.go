package core

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// pipeline.go wires the reader, partitioner, serializer, archive builder,
// and reconciler into one synchronous run.
//
// A run walks Reading → ExtractingKeys → Partitioning → Serializing →
// Reconciling → Complete, or stops in Failed on the first error. There is
// no retry and no partial archive: the caller either receives the complete
// archive or an error.

// MemberExt is the file extension of every archive member.
const MemberExt = ".xlsx"

// ArchiveSuffix is appended to the source base name to suggest a name for
// the downloaded archive.
const ArchiveSuffix = "_split.zip"

// Split executes one whole pipeline run. The dataset, intermediate buffers,
// and the growing archive are owned exclusively by this invocation;
// concurrent calls must not share a SplitRequest.
func Split(ctx context.Context, req SplitRequest) (*SplitResult, error) {
	start := time.Now()
	emit := req.OnEvent
	if emit == nil {
		emit = func(Event) {}
	}

	ds, err := ReadDataset(req.Source)
	if err != nil {
		return nil, err
	}
	emit(Event{
		Phase:   PhaseReading,
		Level:   LevelInfo,
		Message: fmt.Sprintf("file read: %d data rows, %d columns", ds.TotalRows(), len(ds.Header)),
		Rows:    ds.TotalRows(),
	})

	keys, err := DistinctKeys(ds, req.KeyColumn)
	if err != nil {
		return nil, err
	}
	emit(Event{
		Phase:      PhaseExtractingKeys,
		Level:      LevelInfo,
		Message:    fmt.Sprintf("found %d distinct values in column %q", len(keys), req.KeyColumn),
		GroupCount: len(keys),
	})

	groups, err := Partition(ds, req.KeyColumn, keys)
	if err != nil {
		return nil, err
	}
	emit(Event{
		Phase:      PhasePartitioning,
		Level:      LevelInfo,
		Message:    fmt.Sprintf("partitioned rows into %d groups", len(groups)),
		GroupCount: len(groups),
	})

	archive := NewArchiveBuilder()
	stats := make([]GroupStat, 0, len(groups))
	written := 0

	for i, g := range groups {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		name := SafeFileName(g.Key, i+1) + MemberExt
		data, rows, err := WriteGroup(ds.Header, g)
		if err != nil {
			return nil, err
		}
		if err := archive.Add(name, data); err != nil {
			return nil, &SerializationError{Key: g.Key, Err: err}
		}

		written += rows
		stats = append(stats, GroupStat{Key: g.Key, FileName: name, Rows: rows})
		emit(Event{
			Phase:      PhaseSerializing,
			Level:      LevelInfo,
			Message:    fmt.Sprintf("wrote %s (%d rows)", name, rows),
			GroupKey:   g.Key,
			GroupIndex: i + 1,
			GroupCount: len(groups),
			Rows:       rows,
		})
	}

	report := RunReport{
		TotalRows:   ds.TotalRows(),
		RowsWritten: written,
		Unprocessed: ds.TotalRows() - written,
	}
	emit(reconcileEvent(report))

	data, err := archive.Finalize()
	if err != nil {
		return nil, err
	}

	return &SplitResult{
		Archive:     data,
		ArchiveName: SuggestArchiveName(req.SourceName),
		KeyColumn:   req.KeyColumn,
		Groups:      stats,
		Report:      report,
		Duration:    time.Since(start),
	}, nil
}

// reconcileEvent builds the final reconciliation log entry. A shortfall is
// a warning, never an error: the only known cause is rows whose key cell
// was empty, and those never enter a group.
func reconcileEvent(r RunReport) Event {
	if r.Unprocessed == 0 {
		return Event{
			Phase:   PhaseReconciling,
			Level:   LevelInfo,
			Message: fmt.Sprintf("all %d rows processed", r.TotalRows),
			Rows:    r.RowsWritten,
		}
	}
	return Event{
		Phase: PhaseReconciling,
		Level: LevelWarn,
		Message: fmt.Sprintf("%d processed, %d unprocessed due to empty key",
			r.RowsWritten, r.Unprocessed),
		Rows: r.RowsWritten,
	}
}

// SuggestArchiveName derives the download name for the archive from the
// source file's base name.
func SuggestArchiveName(sourceName string) string {
	base := filepath.Base(sourceName)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "workbook"
	}
	return base + ArchiveSuffix
}
