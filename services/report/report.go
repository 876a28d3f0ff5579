// Package reportsvc reads and writes the XLSX spreadsheets exchanged with schools:
// student rosters and attendance reports.
package reportsvc

import (
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/school"
)

const (
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	rosterSheet  = "Roster"
	summarySheet = "Summary"
	recordsSheet = "Records"
)

var (
	ErrNoSheet = errors.New("the spreadsheet does not contain any sheet")

	rosterHeader  = []interface{}{"Name", "Email", "Birth date"}
	summaryHeader = []interface{}{"Student", "Present", "Sick", "Excused", "Absent", "Total", "Percentage", "Grade"}
	recordsHeader = []interface{}{"Date", "Student", "Status", "Note"}
)

// ReadRoster reads the students listed on the first sheet: the header row is skipped,
// then column A is the name, B the email and C the birth date (YYYY-MM-DD, optional).
// Blank rows are ignored.
func ReadRoster(r io.Reader) ([]school.RosterRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "opening spreadsheet")
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, ErrNoSheet
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.Wrapf(err, "reading sheet %s", sheet)
	}

	roster := make([]school.RosterRow, 0, len(rows))
	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		var rr school.RosterRow
		if len(row) > 0 {
			rr.Name = core.CleanString(row[0])
		}
		if len(row) > 1 {
			rr.Email = core.CleanString(row[1], true /* lower */)
		}
		if len(row) > 2 {
			rr.BirthDate = core.CleanString(row[2])
		}
		if rr.Name == "" && rr.Email == "" {
			continue
		}
		roster = append(roster, rr)
	}
	return roster, nil
}

// WriteRoster writes the students in the format read by ReadRoster.
func WriteRoster(w io.Writer, students []school.Student) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), rosterSheet); err != nil {
		return errors.Wrap(err, "naming sheet")
	}
	rows := make([][]interface{}, 0, len(students)+1)
	rows = append(rows, rosterHeader)
	for _, s := range students {
		rows = append(rows, []interface{}{s.Name, s.Email, s.BirthDate})
	}
	if err := writeSheet(f, rosterSheet, rows); err != nil {
		return err
	}
	return errors.Wrap(f.Write(w), "writing spreadsheet")
}

// WriteAttendance writes the attendance report of a group: a summary sheet (one row per student)
// and the detailed records.
func WriteAttendance(w io.Writer, sums []attendance.StudentSummary, records []attendance.Attendance) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), summarySheet); err != nil {
		return errors.Wrap(err, "naming sheet")
	}
	if _, err := f.NewSheet(recordsSheet); err != nil {
		return errors.Wrap(err, "creating sheet")
	}

	names := make(map[string]string, len(sums))
	rows := make([][]interface{}, 0, len(sums)+1)
	rows = append(rows, summaryHeader)
	for _, ss := range sums {
		names[ss.StudentID] = ss.StudentName
		sum := ss.Summary
		rows = append(rows, []interface{}{
			ss.StudentName,
			sum.Counts[attendance.StatusPresent],
			sum.Counts[attendance.StatusSick],
			sum.Counts[attendance.StatusExcused],
			sum.Counts[attendance.StatusAbsent],
			sum.Total,
			sum.Percentage,
			sum.Grade,
		})
	}
	if err := writeSheet(f, summarySheet, rows); err != nil {
		return err
	}

	rows = make([][]interface{}, 0, len(records)+1)
	rows = append(rows, recordsHeader)
	for _, rec := range records {
		name, ok := names[rec.StudentID]
		if !ok {
			name = rec.StudentID
		}
		rows = append(rows, []interface{}{rec.Date, name, capitalize(string(rec.Status)), rec.Note})
	}
	if err := writeSheet(f, recordsSheet, rows); err != nil {
		return err
	}
	return errors.Wrap(f.Write(w), "writing spreadsheet")
}

// writeSheet writes rows from A1, with a bold header row.
func writeSheet(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		row := row
		if err = f.SetSheetRow(sheet, cell, &row); err != nil {
			return errors.Wrapf(err, "writing %s!%s", sheet, cell)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.Wrap(err, "creating style")
	}
	if err = f.SetRowStyle(sheet, 1, 1, bold); err != nil {
		return errors.Wrap(err, "styling header")
	}
	return f.SetColWidth(sheet, "A", "B", 24)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
