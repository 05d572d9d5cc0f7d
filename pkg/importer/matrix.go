package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/chiselcad/qrelief/pkg/qr"
)

// MatrixCSV reads a pre-encoded relief pattern from a comma-delimited grid
// of 0/1 cells, one matrix row per line, no header. This bypasses the QR
// encoder entirely for callers that bring their own pattern.
func MatrixCSV(path string) (qr.Matrix, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return qr.Matrix{}, fmt.Errorf("read %s: %w", path, err)
	}
	m, err := MatrixFromReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	if err != nil {
		return qr.Matrix{}, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// MatrixFromReader parses a 0/1 grid from CSV data.
func MatrixFromReader(r io.Reader) (qr.Matrix, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return qr.Matrix{}, fmt.Errorf("read csv: %w", err)
	}
	return qr.FromStrings(records)
}
