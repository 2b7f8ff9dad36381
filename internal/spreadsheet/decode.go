// Package spreadsheet converts uploaded files to header-keyed rows and
// record sequences back to downloadable workbooks. It is the only package
// that touches file formats; the import pipeline just sees rows.
package spreadsheet

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/contactdesk/contactdesk/internal/contact"
	"github.com/xuri/excelize/v2"
)

// ErrEmptyFile is returned when a file has no header row or no data rows.
// The caller rejects the import before any store mutation.
var ErrEmptyFile = errors.New("file contains no data rows")

// File is a decoded spreadsheet: the header row plus every data row keyed
// by those headers. Blank-padded rows are already trimmed.
type File struct {
	Headers []string
	Rows    []contact.Row
}

// Decode parses an uploaded file. xlsx workbooks are detected by their zip
// signature; everything else is treated as CSV.
func Decode(data []byte) (*File, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	if isXLSX(data) {
		return decodeXLSX(data)
	}
	return decodeCSV(data)
}

// isXLSX checks for the zip local-file-header signature.
func isXLSX(data []byte) bool {
	return len(data) >= 4 && bytes.HasPrefix(data, []byte("PK\x03\x04"))
}

func decodeXLSX(data []byte) (*File, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}

	return fromRecords(rows)
}

func decodeCSV(data []byte) (*File, error) {
	data = stripBOM(sanitizeUTF8(data))

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	return fromRecords(records)
}

// fromRecords turns raw row slices into header-keyed rows. The first
// non-blank row is the header; short rows are padded implicitly by the
// missing keys staying absent.
func fromRecords(records [][]string) (*File, error) {
	for len(records) > 0 && isBlankRow(records[0]) {
		records = records[1:]
	}
	if len(records) < 2 {
		return nil, ErrEmptyFile
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = strings.TrimSpace(h)
	}

	file := &File{Headers: headers}
	for _, rec := range records[1:] {
		if isBlankRow(rec) {
			continue
		}
		row := make(contact.Row, len(headers))
		for i, h := range headers {
			if h == "" || i >= len(rec) {
				continue
			}
			row[h] = strings.TrimSpace(rec[i])
		}
		file.Rows = append(file.Rows, row)
	}

	if len(file.Rows) == 0 {
		return nil, ErrEmptyFile
	}
	return file, nil
}

func isBlankRow(rec []string) bool {
	for _, cell := range rec {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func stripBOM(data []byte) []byte {
	return bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
}

// sanitizeUTF8 replaces invalid byte sequences so the csv reader never
// chokes on mixed-encoding exports from older tools.
func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('�')
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}

	return buf.Bytes()
}
