// Package importer reads batch inputs: tabular key lists (CSV or Excel)
// with a required KEY column, and raw 0/1 matrix grid files. Header
// matching is case-insensitive and tolerates a UTF-8 BOM.
package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"
)

// keyColumn is the required header name for the key column.
const keyColumn = "KEY"

// ErrMissingKeyColumn is returned when the header row lacks a KEY column.
var ErrMissingKeyColumn = errors.New("missing required KEY column")

// ErrEmptyFile is returned when the input has no header row at all.
var ErrEmptyFile = errors.New("file is empty")

// utf8BOM is the byte-order mark some spreadsheet exports prepend.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Keys reads the KEY column of a comma-delimited file. Extra columns are
// ignored; blank keys and blank rows are skipped.
func Keys(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	keys, err := KeysFromReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return keys, nil
}

// KeysFromReader reads the KEY column from CSV data.
func KeysFromReader(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return keysFromRows(records)
}

// KeysFromExcel reads the KEY column from the first sheet of an Excel file.
func KeysFromExcel(path string) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%s: no sheets: %w", path, ErrEmptyFile)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	keys, err := keysFromRows(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return keys, nil
}

// keysFromRows locates the KEY column in the header row (case-insensitive)
// and collects its values.
func keysFromRows(rows [][]string) ([]string, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyFile
	}

	keyIdx := -1
	for i, cell := range rows[0] {
		if strings.EqualFold(strings.TrimSpace(cell), keyColumn) {
			keyIdx = i
			break
		}
	}
	if keyIdx == -1 {
		return nil, fmt.Errorf("found headers [%s]: %w",
			strings.Join(rows[0], ", "), ErrMissingKeyColumn)
	}

	var keys []string
	for _, row := range rows[1:] {
		if keyIdx >= len(row) {
			continue
		}
		key := strings.TrimSpace(row[keyIdx])
		if key == "" {
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}
