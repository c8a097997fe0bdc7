// Package sheet reads and writes the spreadsheets the back office works
// with: info.xlsx, the booking list and the rate table, in .xlsx or legacy
// .xls form.
package sheet

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

var ErrMissingInput = errors.New("input file not found")

// Table is one worksheet. Headers is the first row, widened with blank
// names to the widest row; Rows hold the data rows padded to that width.
type Table struct {
	Name    string
	Headers []string
	Rows    [][]string
}

type Workbook struct {
	Path   string
	Sheets []*Table
}

// Open reads every worksheet of path. The extension picks the reader.
func Open(path string) (*Workbook, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingInput, path)
		}
		return nil, err
	}
	wb, err := Decode(content, path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	wb.Path = path
	return wb, nil
}

// Decode parses workbook bytes; name is only used for its extension.
func Decode(content []byte, name string) (*Workbook, error) {
	if strings.EqualFold(filepath.Ext(name), ".xls") {
		return decodeXLS(bytes.NewReader(content))
	}
	return decodeXLSX(bytes.NewReader(content))
}

func decodeXLSX(r io.Reader) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	wb := &Workbook{}
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("sheet %s: %w", name, err)
		}
		wb.Sheets = append(wb.Sheets, newTable(name, rows))
	}
	return wb, nil
}

func decodeXLS(r io.ReadSeeker) (*Workbook, error) {
	book, err := xls.OpenReader(r, "utf-8")
	if err != nil {
		return nil, err
	}

	wb := &Workbook{}
	for i := 0; i < book.NumSheets(); i++ {
		ws := book.GetSheet(i)
		if ws == nil {
			continue
		}
		rows := make([][]string, 0, int(ws.MaxRow)+1)
		for r := 0; r <= int(ws.MaxRow); r++ {
			row := ws.Row(r)
			if row == nil {
				rows = append(rows, nil)
				continue
			}
			cells := make([]string, row.LastCol())
			for c := row.FirstCol(); c < row.LastCol(); c++ {
				cells[c] = row.Col(c)
			}
			rows = append(rows, cells)
		}
		wb.Sheets = append(wb.Sheets, newTable(ws.Name, trimTrailingEmpty(rows)))
	}
	return wb, nil
}

func newTable(name string, rows [][]string) *Table {
	t := &Table{Name: name}
	if len(rows) == 0 {
		return t
	}
	width := 0
	for _, row := range rows {
		width = max(width, len(row))
	}
	// Cells right of the last named header get a blank header.
	t.Headers = make([]string, width)
	for i, h := range rows[0] {
		t.Headers[i] = strings.TrimSpace(h)
	}
	for _, row := range rows[1:] {
		cells := make([]string, width)
		copy(cells, row)
		t.Rows = append(t.Rows, cells)
	}
	return t
}

func trimTrailingEmpty(rows [][]string) [][]string {
	for len(rows) > 0 && isBlank(rows[len(rows)-1]) {
		rows = rows[:len(rows)-1]
	}
	return rows
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// First returns the first worksheet that has a header row.
func (w *Workbook) First() *Table {
	for _, t := range w.Sheets {
		if len(t.Headers) > 0 {
			return t
		}
	}
	return nil
}

// Col returns the index of the header equal to name, ignoring case and
// surrounding spaces, or -1.
func (t *Table) Col(name string) int {
	want := strings.TrimSpace(name)
	for i, h := range t.Headers {
		if strings.EqualFold(h, want) {
			return i
		}
	}
	return -1
}

// Require returns the indexes of names or an error naming the missing ones.
func (t *Table) Require(names ...string) ([]int, error) {
	idx := make([]int, len(names))
	var missing []string
	for i, n := range names {
		idx[i] = t.Col(n)
		if idx[i] < 0 {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("sheet %s: missing columns %s", t.Name, strings.Join(missing, ", "))
	}
	return idx, nil
}

func (t *Table) Get(row, col int) string {
	if row < 0 || row >= len(t.Rows) || col < 0 || col >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][col]
}

// Value is Get by header name.
func (t *Table) Value(row int, header string) string {
	return t.Get(row, t.Col(header))
}

func (t *Table) Set(row, col int, v string) {
	if row < 0 || row >= len(t.Rows) || col < 0 {
		return
	}
	for len(t.Rows[row]) <= col {
		t.Rows[row] = append(t.Rows[row], "")
	}
	t.Rows[row][col] = v
}

// EnsureColumn returns the index of header, appending it when absent.
func (t *Table) EnsureColumn(header string) int {
	if i := t.Col(header); i >= 0 {
		return i
	}
	t.Headers = append(t.Headers, header)
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], "")
	}
	return len(t.Headers) - 1
}

func (t *Table) AppendRow(cells []string) {
	row := make([]string, len(t.Headers))
	copy(row, cells)
	t.Rows = append(t.Rows, row)
}

// WriteOptions controls how cells are typed when saved. Cells under a
// NumericColumns header that parse as numbers are stored as numbers.
type WriteOptions struct {
	NumericColumns []string
}

// WriteXLSX saves the tables as worksheets of a new workbook at path.
func WriteXLSX(path string, opts WriteOptions, tables ...*Table) error {
	f := excelize.NewFile()
	defer f.Close()

	numeric := map[string]bool{}
	for _, c := range opts.NumericColumns {
		numeric[strings.ToUpper(strings.TrimSpace(c))] = true
	}

	for i, t := range tables {
		name := t.Name
		if name == "" {
			name = fmt.Sprintf("Sheet%d", i+1)
		}
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return err
		}

		for c, h := range t.Headers {
			cell, _ := excelize.CoordinatesToCellName(c+1, 1)
			_ = f.SetCellValue(name, cell, h)
		}
		for r, row := range t.Rows {
			for c, v := range row {
				if v == "" {
					continue
				}
				cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
				var value any = v
				if c < len(t.Headers) && numeric[strings.ToUpper(t.Headers[c])] {
					if n, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
						value = n
					}
				}
				_ = f.SetCellValue(name, cell, value)
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return f.SaveAs(path)
}
