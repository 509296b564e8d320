package core

import "strings"

// partition.go implements key discovery and row grouping.
//
// A key cell is "present" only when it is non-empty after trimming
// whitespace; the untrimmed cell value is what defines the group, so two
// values differing only in inner case or punctuation stay distinct. Rows
// with an absent key belong to no group; the reconciler accounts for them
// at the end of the run.

// keyOf returns the key value of a row, or "" when the key cell is absent
// or blank. Presence is judged on the trimmed cell; the returned key is
// the raw cell value, compared exactly.
func keyOf(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	if strings.TrimSpace(row[idx]) == "" {
		return ""
	}
	return row[idx]
}

// DistinctKeys returns the distinct non-empty values of the named column,
// in order of first appearance. Returns *ColumnNotFoundError when the
// column is absent from the dataset header; this is checked before any
// partitioning work begins.
func DistinctKeys(ds *Dataset, column string) ([]string, error) {
	idx := ds.ColumnIndex(column)
	if idx < 0 {
		return nil, &ColumnNotFoundError{Column: column, Header: ds.Header}
	}

	seen := make(map[string]bool)
	var keys []string
	for _, row := range ds.Rows {
		key := keyOf(row, idx)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		keys = append(keys, key)
	}
	return keys, nil
}

// Partition splits the dataset into one Group per key value, in the order
// the keys were discovered. Within a group, rows keep their original order
// and are re-indexed to the dataset's full header, so every group
// serializes against the same column set. Comparison is exact value
// equality on the key cell.
func Partition(ds *Dataset, column string, keys []string) ([]Group, error) {
	idx := ds.ColumnIndex(column)
	if idx < 0 {
		return nil, &ColumnNotFoundError{Column: column, Header: ds.Header}
	}

	byKey := make(map[string]int, len(keys))
	groups := make([]Group, len(keys))
	for i, key := range keys {
		byKey[key] = i
		groups[i] = Group{Key: key}
	}

	width := len(ds.Header)
	for _, row := range ds.Rows {
		key := keyOf(row, idx)
		if key == "" {
			continue
		}
		i, ok := byKey[key]
		if !ok {
			continue
		}
		groups[i].Rows = append(groups[i].Rows, alignRow(row, width))
	}

	return groups, nil
}
