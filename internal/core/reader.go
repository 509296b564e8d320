package core

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// reader.go parses xlsx byte streams into Datasets.
//
// Only the first sheet of the workbook is read; multi-sheet workbooks are
// out of scope. Cell values arrive as excelize's formatted strings, so the
// dataset carries text regardless of the underlying cell type.

// ReadDataset parses an xlsx stream into a Dataset. The first row of the
// first sheet is the header; every data row is aligned to the header length.
// Returns an error wrapping ErrInvalidFormat when the stream is not a
// well-formed workbook or has no header row.
func ReadDataset(r io.Reader) (*Dataset, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	defer f.Close()

	sheet, err := firstSheet(f)
	if err != nil {
		return nil, err
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: read sheet %q: %v", ErrInvalidFormat, sheet, err)
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, ErrEmptySheet
	}

	header := rows[0]
	data := make([][]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		data = append(data, alignRow(row, len(header)))
	}

	return &Dataset{Header: header, Rows: data}, nil
}

// ProbeHeader reads only the header row of an xlsx stream, without
// materializing any data rows. Used for fast column enumeration before the
// full split runs.
func ProbeHeader(r io.Reader) ([]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	defer f.Close()

	sheet, err := firstSheet(f)
	if err != nil {
		return nil, err
	}

	iter, err := f.Rows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: read sheet %q: %v", ErrInvalidFormat, sheet, err)
	}
	defer iter.Close()

	if !iter.Next() {
		return nil, ErrEmptySheet
	}
	header, err := iter.Columns()
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %v", ErrInvalidFormat, err)
	}
	if len(header) == 0 {
		return nil, ErrEmptySheet
	}
	return header, nil
}

// firstSheet returns the name of the workbook's first sheet.
func firstSheet(f *excelize.File) (string, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", fmt.Errorf("%w: workbook has no sheets", ErrInvalidFormat)
	}
	return sheets[0], nil
}

// alignRow pads or truncates a row to exactly width cells. Excelize drops
// trailing empty cells, so short rows are common even with uniform schemas.
func alignRow(row []string, width int) []string {
	if len(row) == width {
		return row
	}
	aligned := make([]string, width)
	copy(aligned, row)
	return aligned
}
