// Package importer converts guest rosters to and from xlsx workbooks.
package importer

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/iliyamo/wedding-planner/internal/model"
)

const sheetName = "Guests"

// MaxRows caps the number of data rows accepted in one upload.
const MaxRows = 2000

// GuestHeader is the column layout of templates, exports and uploads.
var GuestHeader = []string{"Name", "RSVP", "Email", "Phone", "Group", "Dietary", "Notes", "Plus Ones"}

var columnWidths = []float64{28, 10, 30, 18, 22, 22, 40, 10}

// Template returns an empty workbook with only the header row.
func Template() ([]byte, error) {
	return writeWorkbook(nil)
}

// Export writes guests, one per row, in GuestHeader order.
func Export(guests []model.Guest) ([]byte, error) {
	return writeWorkbook(guests)
}

func writeWorkbook(guests []model.Guest) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#F3E8EE"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}

	header := make([]any, len(GuestHeader))
	for i, h := range GuestHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(GuestHeader), 1)
	if err := f.SetCellStyle(sheetName, "A1", last, headerStyle); err != nil {
		return nil, fmt.Errorf("style header: %w", err)
	}
	for i, w := range columnWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheetName, col, col, w); err != nil {
			return nil, fmt.Errorf("column width: %w", err)
		}
	}

	for i, g := range guests {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []any{g.Name, string(g.RSVPStatus), deref(g.Email), deref(g.Phone), deref(g.GroupName), deref(g.Dietary), deref(g.Notes), g.PlusOnes}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// Parse reads the first sheet of an uploaded workbook. Columns are matched
// by header name, case-insensitively and in any order; only Name is
// required. Blank rows are skipped. Field values are validated later by the
// roster, except Plus Ones which must be a whole number here.
func Parse(r io.Reader) ([]model.GuestInput, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &model.ValidationError{Code: model.CodeInvalidField, Field: "file", Message: "file is not a readable xlsx workbook"}
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, &model.ValidationError{Code: model.CodeInvalidField, Field: "file", Message: "workbook has no sheets"}
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) == 0 {
		return []model.GuestInput{}, nil
	}

	cols := map[string]int{}
	for i, h := range rows[0] {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := cols["name"]; !ok {
		return nil, &model.ValidationError{Code: model.CodeRequired, Field: "file", Message: "header row must contain a Name column"}
	}
	if len(rows)-1 > MaxRows {
		return nil, &model.ValidationError{Code: model.CodeInvalidField, Field: "file",
			Message: fmt.Sprintf("at most %d guests can be imported at once", MaxRows)}
	}

	out := make([]model.GuestInput, 0, len(rows)-1)
	for i, row := range rows[1:] {
		rowNum := i + 2
		get := func(name string) string {
			idx, ok := cols[name]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}
		if isBlank(row) {
			continue
		}
		in := model.GuestInput{
			Name:       get("name"),
			RSVPStatus: get("rsvp"),
			Email:      optional(get("email")),
			Phone:      optional(get("phone")),
			GroupName:  optional(get("group")),
			Dietary:    optional(get("dietary")),
			Notes:      optional(get("notes")),
		}
		if raw := get("plus ones"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				return nil, &model.ValidationError{Code: model.CodeInvalidField, Field: fmt.Sprintf("row %d plus_ones", rowNum),
					Message: fmt.Sprintf("Plus Ones %q is not a whole number", raw)}
			}
			in.PlusOnes = n
		}
		out = append(out, in)
	}
	return out, nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
