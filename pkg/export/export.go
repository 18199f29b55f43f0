// Package export writes the roster as CSV for spreadsheets and integrations and as an
// XLSX grid that mirrors the planning screen.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/arnavshah/roster-planner-go/pkg/dates"
	"github.com/arnavshah/roster-planner-go/pkg/models"
	"github.com/arnavshah/roster-planner-go/pkg/roster"
	"github.com/arnavshah/roster-planner-go/pkg/view"
)

// SheetName is the worksheet written by WriteXLSX
const SheetName = "Roster"

var csvHeader = []string{"date", "row_id", "row_name", "clinician_id", "clinician_name", "start", "end"}

// WriteCSV writes one line per stored assignment dated within [from, to]
func WriteCSV(w io.Writer, s roster.State, from, to string) error {
	rows := s.RowIndex()
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return err
	}

	for _, a := range s.Assignments.Flatten() {
		if a.DateISO < from || a.DateISO > to {
			continue
		}
		row := rows[a.RowID]
		name := a.ClinicianID
		if c, ok := s.Clinician(a.ClinicianID); ok && c.Name != "" {
			name = c.Name
		}
		start, end := shiftBounds(row, a.DateISO)
		if err := writer.Write([]string{a.DateISO, a.RowID, row.Name, a.ClinicianID, name, start, end}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// shiftBounds renders the shift window as local date-times; untimed rows give blanks
func shiftBounds(row models.Row, dateISO string) (string, string) {
	if _, ok := dates.BuildShiftInterval(row); !ok {
		return "", ""
	}
	endDate := dates.ShiftDateISO(dateISO, row.EndDayOffset)
	return dateISO + "T" + row.StartTime, endDate + "T" + row.EndTime
}

// WriteXLSX writes the rendered view as a grid: one line per schedule row, one
// column per date, cells listing the clinicians placed there.
func WriteXLSX(w io.Writer, v view.View, s roster.State, days []string) error {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(SheetName)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("delete default sheet: %w", err)
	}

	names := make(map[string]string, len(s.Clinicians))
	for _, c := range s.Clinicians {
		names[c.ID] = c.Name
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	_ = f.SetColWidth(SheetName, "A", "A", 22)
	_ = f.SetColWidth(SheetName, "B", "B", 14)
	if len(days) > 0 {
		_ = f.SetColWidth(SheetName, colName(2), colName(1+len(days)), 24)
	}

	_ = f.SetCellValue(SheetName, cell(0, 1), "Row")
	_ = f.SetCellValue(SheetName, cell(1, 1), "Time")
	for i, day := range days {
		_ = f.SetCellValue(SheetName, cell(2+i, 1), day)
	}
	_ = f.SetCellStyle(SheetName, cell(0, 1), cell(1+len(days), 1), headerStyle)

	line := 2
	for _, row := range s.Rows {
		label := row.Name
		if label == "" {
			label = row.ID
		}
		_ = f.SetCellValue(SheetName, cell(0, line), label)
		if row.StartTime != "" {
			_ = f.SetCellValue(SheetName, cell(1, line), row.StartTime+"-"+row.EndTime)
		}
		for i, day := range days {
			list := v[roster.Key{RowID: row.ID, DateISO: day}]
			if len(list) == 0 {
				continue
			}
			people := make([]string, 0, len(list))
			for _, a := range list {
				n := names[a.ClinicianID]
				if n == "" {
					n = a.ClinicianID
				}
				people = append(people, n)
			}
			sort.Strings(people)
			_ = f.SetCellValue(SheetName, cell(2+i, line), strings.Join(people, ", "))
		}
		line++
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col+1, row)
	return name
}
