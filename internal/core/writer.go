package core

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// writer.go renders one group into an xlsx byte stream.

// WriteGroup serializes a group's rows into a single-sheet xlsx workbook.
// The header row equals the original dataset's column order; data rows keep
// their order and no index column is added. Returns the workbook bytes and
// the number of data rows written. Failures come back as
// *SerializationError tagged with the group's key.
func WriteGroup(header []string, g Group) ([]byte, int, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)

	if err := setRow(f, sheet, 1, header); err != nil {
		return nil, 0, &SerializationError{Key: g.Key, Err: err}
	}
	for i, row := range g.Rows {
		if err := setRow(f, sheet, i+2, row); err != nil {
			return nil, 0, &SerializationError{Key: g.Key, Err: err}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, 0, &SerializationError{Key: g.Key, Err: err}
	}
	return buf.Bytes(), len(g.Rows), nil
}

// setRow writes one row of string cells starting at column A of the given
// 1-based row number.
func setRow(f *excelize.File, sheet string, rowNum int, cells []string) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	values := make([]interface{}, len(cells))
	for i, v := range cells {
		values[i] = v
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("row %d: %w", rowNum, err)
	}
	return nil
}
