package sheetdb

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// table is an in-memory snapshot of one sheet: the header row plus all data
// rows, with their 1-based sheet row numbers preserved for updates/deletes.
type table struct {
	headers []string
	rows    [][]string
	rowNums []int
}

func (d *DB) readTable(sheet string) (*table, error) {
	rows, err := d.f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %v: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %v has no header row", sheet)
	}
	t := &table{headers: rows[0]}
	for i := 1; i < len(rows); i++ {
		if len(rows[i]) == 0 {
			continue
		}
		t.rows = append(t.rows, rows[i])
		t.rowNums = append(t.rowNums, i+1)
	}
	return t, nil
}

func (t *table) col(name string) (int, error) {
	for i, h := range t.headers {
		if h == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("no column %q", name)
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func (d *DB) appendRow(sheet string, row []any) error {
	t, err := d.readTable(sheet)
	if err != nil {
		return err
	}
	next := 2
	if n := len(t.rowNums); n != 0 {
		next = t.rowNums[n-1] + 1
	}
	cell, err := excelCoords(1, next)
	if err != nil {
		return err
	}
	if err := d.f.SetSheetRow(sheet, cell, &row); err != nil {
		return fmt.Errorf("append to sheet %v: %w", sheet, err)
	}
	return nil
}

func (d *DB) setRow(sheet string, rowNum int, row []any) error {
	cell, err := excelCoords(1, rowNum)
	if err != nil {
		return err
	}
	if err := d.f.SetSheetRow(sheet, cell, &row); err != nil {
		return fmt.Errorf("update sheet %v row %v: %w", sheet, rowNum, err)
	}
	return nil
}

// removeMatching deletes every row whose column equals value, scanning bottom
// up so earlier removals do not shift rows still to be checked.
func (d *DB) removeMatching(sheet, column, value string) error {
	t, err := d.readTable(sheet)
	if err != nil {
		return err
	}
	idx, err := t.col(column)
	if err != nil {
		return fmt.Errorf("sheet %v: %w", sheet, err)
	}
	for i := len(t.rows) - 1; i >= 0; i-- {
		if cellAt(t.rows[i], idx) != value {
			continue
		}
		if err := d.f.RemoveRow(sheet, t.rowNums[i]); err != nil {
			return fmt.Errorf("remove row from sheet %v: %w", sheet, err)
		}
	}
	return nil
}

func excelCoords(col, row int) (string, error) {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return "", fmt.Errorf("cell name: %w", err)
	}
	return cell, nil
}

// Cell text codec. Everything in a sheet is flat text: booleans are the
// literal strings "true"/"false", numbers decimal strings, arrays JSON text
// in a single cell. The storage layer owns this encoding, callers never see it.

func encodeBool(v bool) string {
	return strconv.FormatBool(v)
}

func decodeBool(s string) bool {
	return strings.EqualFold(s, "true")
}

func encodeFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func decodeFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

func encodeInt(v int) string {
	return strconv.Itoa(v)
}

func decodeInt(s string) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return v
}
