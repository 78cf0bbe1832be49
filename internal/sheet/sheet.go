// Package sheet decodes spreadsheet payloads (xlsx, legacy xls or delimited
// text) into a header plus string rows.
package sheet

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// Format identifies the container detected for a payload.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
	FormatCSV  Format = "csv"
)

const maxXLSRows = 200000

var (
	ErrEmpty       = errors.New("spreadsheet is empty")
	ErrNoWorksheet = errors.New("no worksheet found")
)

var (
	zipMagic = []byte("PK\x03\x04")
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
	utf8BOM  = []byte{0xEF, 0xBB, 0xBF}
)

// Table is a decoded worksheet. Rows may be shorter than Header.
// Display holds the formatted text of each cell, aligned with Rows, for
// containers that carry number formats; it is nil otherwise.
type Table struct {
	Header  []string
	Rows    [][]string
	Display [][]string
}

// Cell returns the value at row/col or "" when the row is short.
func (t Table) Cell(row, col int) string {
	if col < 0 || row < 0 || row >= len(t.Rows) {
		return ""
	}
	r := t.Rows[row]
	if col >= len(r) {
		return ""
	}
	return r[col]
}

// DisplayCell returns the formatted text at row/col, falling back to the
// raw value when the container has no number formats.
func (t Table) DisplayCell(row, col int) string {
	if t.Display == nil {
		return t.Cell(row, col)
	}
	if col < 0 || row < 0 || row >= len(t.Display) {
		return ""
	}
	r := t.Display[row]
	if col >= len(r) {
		return ""
	}
	return r[col]
}

// Len returns the number of data rows.
func (t Table) Len() int { return len(t.Rows) }

// Detect sniffs the payload container from its leading bytes.
func Detect(data []byte) Format {
	switch {
	case bytes.HasPrefix(data, zipMagic):
		return FormatXLSX
	case bytes.HasPrefix(data, oleMagic):
		return FormatXLS
	default:
		return FormatCSV
	}
}

// Decode reads the first worksheet of data. Excel cells are read raw, so
// date and time cells arrive as serial numbers or day fractions; for xlsx
// the formatted text is kept in Display so callers can tell them apart.
func Decode(data []byte) (Table, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Table{}, ErrEmpty
	}

	var (
		rows, display [][]string
		err           error
	)
	switch Detect(data) {
	case FormatXLSX:
		rows, display, err = readXLSX(data)
	case FormatXLS:
		rows, err = readXLS(data)
	default:
		rows, err = readCSV(data)
	}
	if err != nil {
		return Table{}, err
	}
	return split(rows, display)
}

func readXLSX(data []byte) (raw, display [][]string, err error) {
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer func() { _ = file.Close() }()

	name := file.GetSheetName(0)
	if name == "" {
		return nil, nil, ErrNoWorksheet
	}
	raw, err = file.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, nil, fmt.Errorf("read xlsx rows: %w", err)
	}
	display, err = file.GetRows(name)
	if err != nil {
		return nil, nil, fmt.Errorf("read xlsx formatted rows: %w", err)
	}
	return raw, display, nil
}

func readXLS(data []byte) ([][]string, error) {
	workbook, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open xls: %w", err)
	}
	if workbook.NumSheets() == 0 {
		return nil, ErrNoWorksheet
	}
	return workbook.ReadAllCells(maxXLSRows), nil
}

func readCSV(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = sniffDelimiter(data)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return rows, nil
}

// sniffDelimiter picks ';' for exports that use it in the header line.
func sniffDelimiter(data []byte) rune {
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		if bytes.Count(line, []byte{';'}) > bytes.Count(line, []byte{','}) {
			return ';'
		}
		break
	}
	return ','
}

// split treats the first non-blank row as the header and drops blank rows.
// display, when present, is filtered in step with rows.
func split(rows, display [][]string) (Table, error) {
	headerAt := -1
	for i, r := range rows {
		if !blank(r) {
			headerAt = i
			break
		}
	}
	if headerAt < 0 {
		return Table{}, ErrEmpty
	}

	header := make([]string, len(rows[headerAt]))
	for i, h := range rows[headerAt] {
		header[i] = strings.TrimSpace(h)
	}

	out := make([][]string, 0, len(rows)-headerAt-1)
	var shown [][]string
	if display != nil {
		shown = make([][]string, 0, len(rows)-headerAt-1)
	}
	for i := headerAt + 1; i < len(rows); i++ {
		if blank(rows[i]) {
			continue
		}
		out = append(out, rows[i])
		if display != nil {
			var d []string
			if i < len(display) {
				d = display[i]
			}
			shown = append(shown, d)
		}
	}
	return Table{Header: header, Rows: out, Display: shown}, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
