package core

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

// regionWorkbook builds the canonical split scenario: 10 data rows, key
// column "Region" holding North x6, South x3, and one empty cell.
func regionWorkbook(t *testing.T) []byte {
	t.Helper()
	rows := [][]string{
		{"Region", "Name", "Amount"},
		{"North", "a", "1"},
		{"North", "b", "2"},
		{"South", "c", "3"},
		{"North", "d", "4"},
		{"North", "e", "5"},
		{"South", "f", "6"},
		{"", "g", "7"},
		{"North", "h", "8"},
		{"South", "i", "9"},
		{"North", "j", "10"},
	}
	return buildWorkbook(t, rows)
}

func TestSplit_RegionScenario(t *testing.T) {
	var events []Event
	res, err := Split(context.Background(), SplitRequest{
		Source:     bytes.NewReader(regionWorkbook(t)),
		SourceName: "orders.xlsx",
		KeyColumn:  "Region",
		OnEvent:    func(ev Event) { events = append(events, ev) },
	})
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}

	if res.ArchiveName != "orders_split.zip" {
		t.Errorf("ArchiveName = %q, want %q", res.ArchiveName, "orders_split.zip")
	}

	// Exactly two members, in key-discovery order
	zr := readArchive(t, res.Archive)
	if len(zr.File) != 2 {
		t.Fatalf("archive has %d members, want 2", len(zr.File))
	}
	if zr.File[0].Name != "North.xlsx" || zr.File[1].Name != "South.xlsx" {
		t.Errorf("members = [%q %q], want [North.xlsx South.xlsx]", zr.File[0].Name, zr.File[1].Name)
	}

	wantStats := []GroupStat{
		{Key: "North", FileName: "North.xlsx", Rows: 6},
		{Key: "South", FileName: "South.xlsx", Rows: 3},
	}
	if len(res.Groups) != len(wantStats) {
		t.Fatalf("got %d group stats, want %d", len(res.Groups), len(wantStats))
	}
	for i, want := range wantStats {
		if res.Groups[i] != want {
			t.Errorf("group stat %d = %+v, want %+v", i, res.Groups[i], want)
		}
	}

	if res.Report.TotalRows != 10 || res.Report.RowsWritten != 9 || res.Report.Unprocessed != 1 {
		t.Errorf("report = %+v, want total=10 written=9 unprocessed=1", res.Report)
	}

	// Reconciliation event is a warning naming both counts
	last := events[len(events)-1]
	if last.Phase != PhaseReconciling || last.Level != LevelWarn {
		t.Errorf("final event = %+v, want reconciling warning", last)
	}
	if !strings.Contains(last.Message, "9 processed") || !strings.Contains(last.Message, "1 unprocessed") {
		t.Errorf("reconciliation message = %q", last.Message)
	}

	// Event order: read, keys, partition, one per group, reconcile
	wantPhases := []RunPhase{
		PhaseReading, PhaseExtractingKeys, PhasePartitioning,
		PhaseSerializing, PhaseSerializing, PhaseReconciling,
	}
	if len(events) != len(wantPhases) {
		t.Fatalf("got %d events, want %d", len(events), len(wantPhases))
	}
	for i, want := range wantPhases {
		if events[i].Phase != want {
			t.Errorf("event %d phase = %q, want %q", i, events[i].Phase, want)
		}
	}
}

func TestSplit_ExactReconciliation(t *testing.T) {
	data := buildWorkbook(t, [][]string{
		{"K", "V"},
		{"x", "1"},
		{"y", "2"},
	})

	var events []Event
	res, err := Split(context.Background(), SplitRequest{
		Source:     bytes.NewReader(data),
		SourceName: "in.xlsx",
		KeyColumn:  "K",
		OnEvent:    func(ev Event) { events = append(events, ev) },
	})
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if res.Report.Unprocessed != 0 {
		t.Errorf("Unprocessed = %d, want 0", res.Report.Unprocessed)
	}

	last := events[len(events)-1]
	if last.Level != LevelInfo {
		t.Errorf("exact reconciliation should be info, got %q", last.Level)
	}
}

func TestSplit_ColumnNotFound(t *testing.T) {
	var events []Event
	_, err := Split(context.Background(), SplitRequest{
		Source:     bytes.NewReader(regionWorkbook(t)),
		SourceName: "orders.xlsx",
		KeyColumn:  "Warehouse",
		OnEvent:    func(ev Event) { events = append(events, ev) },
	})

	var notFound *ColumnNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected *ColumnNotFoundError, got %v", err)
	}

	// Only the read confirmation may have been emitted before the failure
	if len(events) != 1 || events[0].Phase != PhaseReading {
		t.Errorf("events before failure = %+v, want single reading event", events)
	}
}

func TestSplit_FormatError(t *testing.T) {
	_, err := Split(context.Background(), SplitRequest{
		Source:    bytes.NewReader([]byte("not a workbook")),
		KeyColumn: "Region",
	})
	if !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("expected ErrInvalidFormat, got %v", err)
	}
}

func TestSplit_SanitizedNameCollision(t *testing.T) {
	data := buildWorkbook(t, [][]string{
		{"Owner", "V"},
		{"Team/", "1"},
		{"Team*", "2"},
	})

	res, err := Split(context.Background(), SplitRequest{
		Source:     bytes.NewReader(data),
		SourceName: "teams.xlsx",
		KeyColumn:  "Owner",
	})
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}

	// Two distinct keys sanitize to the same member name; both members
	// are kept (documented limitation, not a failure).
	zr := readArchive(t, res.Archive)
	if len(zr.File) != 2 {
		t.Fatalf("archive has %d members, want 2", len(zr.File))
	}
	for _, f := range zr.File {
		if f.Name != "Team.xlsx" {
			t.Errorf("member name = %q, want Team.xlsx", f.Name)
		}
	}
}

func TestSplit_GroupRoundTrip(t *testing.T) {
	res, err := Split(context.Background(), SplitRequest{
		Source:     bytes.NewReader(regionWorkbook(t)),
		SourceName: "orders.xlsx",
		KeyColumn:  "Region",
	})
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}

	zr := readArchive(t, res.Archive)
	rc, err := zr.File[1].Open() // South.xlsx
	if err != nil {
		t.Fatalf("open member: %v", err)
	}
	defer rc.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(rc); err != nil {
		t.Fatalf("read member: %v", err)
	}

	ds, err := ReadDataset(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("re-read member: %v", err)
	}
	if len(ds.Header) != 3 || ds.Header[0] != "Region" {
		t.Errorf("member header = %v", ds.Header)
	}
	if ds.TotalRows() != 3 {
		t.Errorf("member rows = %d, want 3", ds.TotalRows())
	}
	for _, row := range ds.Rows {
		if row[0] != "South" {
			t.Errorf("member row has key %q, want South", row[0])
		}
	}
}

func TestSuggestArchiveName(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"orders.xlsx", "orders_split.zip"},
		{"dir/deep/orders.xlsx", "orders_split.zip"},
		{"noext", "noext_split.zip"},
		{"", "workbook_split.zip"},
		{"归档.xlsx", "归档_split.zip"},
	}
	for _, tt := range tests {
		if got := SuggestArchiveName(tt.source); got != tt.want {
			t.Errorf("SuggestArchiveName(%q) = %q, want %q", tt.source, got, tt.want)
		}
	}
}
