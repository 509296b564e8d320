package core

import (
	"archive/zip"
	"bytes"
	"fmt"
)

// ArchiveBuilder collects named byte streams into one DEFLATE-compressed
// zip archive. Entries are written incrementally as groups finish, in
// partition-processing order. Member names are not deduplicated; a
// colliding name produces a duplicate member, which the zip format allows.
type ArchiveBuilder struct {
	buf       bytes.Buffer
	zw        *zip.Writer
	finalized bool
}

// NewArchiveBuilder returns an empty in-memory archive builder.
func NewArchiveBuilder() *ArchiveBuilder {
	b := &ArchiveBuilder{}
	b.zw = zip.NewWriter(&b.buf)
	return b
}

// Add writes one named member to the archive.
func (b *ArchiveBuilder) Add(name string, data []byte) error {
	if b.finalized {
		return fmt.Errorf("archive already finalized")
	}
	w, err := b.zw.Create(name)
	if err != nil {
		return fmt.Errorf("create archive member %q: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write archive member %q: %w", name, err)
	}
	return nil
}

// Finalize closes the archive and returns the complete byte stream,
// positioned at its start. The builder must not be reused afterwards.
func (b *ArchiveBuilder) Finalize() ([]byte, error) {
	if b.finalized {
		return nil, fmt.Errorf("archive already finalized")
	}
	b.finalized = true
	if err := b.zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize archive: %w", err)
	}
	return b.buf.Bytes(), nil
}
