package telemetry

import (
	"encoding/csv"
	"fmt"
	"io"
)

// ReadCSV reads an uploaded BMS export into a raw string-valued table. The
// first record is the header; every subsequent record is one observation
// row in time order. Short records are padded with empty cells rather than
// rejected so the sanitize stage can fill them.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // tolerate ragged rows

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty CSV input")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	cols := make([][]string, len(header))
	rows := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row %d: %w", rows+2, err)
		}
		for i := range header {
			v := ""
			if i < len(rec) {
				v = rec[i]
			}
			cols[i] = append(cols[i], v)
		}
		rows++
	}

	t := NewTable()
	for i, name := range header {
		if cols[i] == nil {
			cols[i] = []string{}
		}
		if err := t.SetStrings(name, cols[i]); err != nil {
			return nil, err
		}
	}
	return t, nil
}
