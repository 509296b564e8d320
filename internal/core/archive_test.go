package core

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"
)

func readArchive(t *testing.T, data []byte) *zip.Reader {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	return zr
}

func TestArchiveBuilder(t *testing.T) {
	b := NewArchiveBuilder()

	if err := b.Add("first.xlsx", []byte("aaa")); err != nil {
		t.Fatalf("Add first: %v", err)
	}
	if err := b.Add("second.xlsx", []byte("bbb")); err != nil {
		t.Fatalf("Add second: %v", err)
	}

	data, err := b.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	zr := readArchive(t, data)
	if len(zr.File) != 2 {
		t.Fatalf("got %d members, want 2", len(zr.File))
	}

	// Members keep insertion order
	wantNames := []string{"first.xlsx", "second.xlsx"}
	wantBodies := []string{"aaa", "bbb"}
	for i, f := range zr.File {
		if f.Name != wantNames[i] {
			t.Errorf("member %d name = %q, want %q", i, f.Name, wantNames[i])
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open member %q: %v", f.Name, err)
		}
		body, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read member %q: %v", f.Name, err)
		}
		if string(body) != wantBodies[i] {
			t.Errorf("member %d body = %q, want %q", i, body, wantBodies[i])
		}
	}
}

func TestArchiveBuilder_DuplicateNamesAccepted(t *testing.T) {
	b := NewArchiveBuilder()

	if err := b.Add("Team.xlsx", []byte("one")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := b.Add("Team.xlsx", []byte("two")); err != nil {
		t.Fatalf("Add duplicate: %v", err)
	}

	data, err := b.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	zr := readArchive(t, data)
	if len(zr.File) != 2 {
		t.Fatalf("got %d members, want 2 duplicate members", len(zr.File))
	}
	for _, f := range zr.File {
		if f.Name != "Team.xlsx" {
			t.Errorf("member name = %q, want %q", f.Name, "Team.xlsx")
		}
	}
}

func TestArchiveBuilder_FinalizeTwice(t *testing.T) {
	b := NewArchiveBuilder()
	if _, err := b.Finalize(); err != nil {
		t.Fatalf("first Finalize: %v", err)
	}
	if _, err := b.Finalize(); err == nil {
		t.Error("second Finalize should fail")
	}
	if err := b.Add("late.xlsx", nil); err == nil {
		t.Error("Add after Finalize should fail")
	}
}

func TestWriteGroup_RoundTrip(t *testing.T) {
	header := []string{"Region", "Name", "Amount"}
	g := Group{
		Key: "North",
		Rows: [][]string{
			{"North", "alpha", "10"},
			{"North", "charlie", "30"},
		},
	}

	data, rows, err := WriteGroup(header, g)
	if err != nil {
		t.Fatalf("WriteGroup: %v", err)
	}
	if rows != 2 {
		t.Errorf("rows = %d, want 2", rows)
	}

	// Re-reading the member must yield the same rows and column order
	ds, err := ReadDataset(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ReadDataset on serialized group: %v", err)
	}
	if len(ds.Header) != len(header) {
		t.Fatalf("header width = %d, want %d", len(ds.Header), len(header))
	}
	for i, col := range header {
		if ds.Header[i] != col {
			t.Errorf("header[%d] = %q, want %q", i, ds.Header[i], col)
		}
	}
	if len(ds.Rows) != len(g.Rows) {
		t.Fatalf("row count = %d, want %d", len(ds.Rows), len(g.Rows))
	}
	for i := range g.Rows {
		for j := range g.Rows[i] {
			if ds.Rows[i][j] != g.Rows[i][j] {
				t.Errorf("cell [%d][%d] = %q, want %q", i, j, ds.Rows[i][j], g.Rows[i][j])
			}
		}
	}
}

func TestWriteGroup_EmptyGroup(t *testing.T) {
	data, rows, err := WriteGroup([]string{"A", "B"}, Group{Key: "x"})
	if err != nil {
		t.Fatalf("WriteGroup: %v", err)
	}
	if rows != 0 {
		t.Errorf("rows = %d, want 0", rows)
	}

	ds, err := ReadDataset(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ReadDataset: %v", err)
	}
	if ds.TotalRows() != 0 {
		t.Errorf("TotalRows = %d, want 0", ds.TotalRows())
	}
}
