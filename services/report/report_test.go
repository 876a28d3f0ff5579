package reportsvc

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/school"
)

func TestRosterRoundTrip(t *testing.T) {
	students := []school.Student{
		{Name: "Amani Bahati", Email: "amani@test.cd", BirthDate: "2012-04-01"},
		{Name: "Neema Zawadi", Email: "neema@test.cd"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteRoster(&buf, students))

	roster, err := ReadRoster(&buf)
	require.NoError(t, err)
	assert.Equal(t, []school.RosterRow{
		{Name: "Amani Bahati", Email: "amani@test.cd", BirthDate: "2012-04-01"},
		{Name: "Neema Zawadi", Email: "neema@test.cd"},
	}, roster)
}

func TestReadRoster(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, row := range [][]interface{}{
		{"Nom", "Courriel"}, // header, whatever its text
		{"  Jabali Imara ", " JABALI@Test.cd"},
		{}, // blank
		{"", ""},
		{"Only Name"},
	} {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		row := row
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	roster, err := ReadRoster(&buf)
	require.NoError(t, err)
	assert.Equal(t, []school.RosterRow{
		{Name: "Jabali Imara", Email: "jabali@test.cd"},
		{Name: "Only Name"},
	}, roster)

	_, err = ReadRoster(bytes.NewReader([]byte("not a spreadsheet")))
	assert.Error(t, err)
}

func TestWriteAttendance(t *testing.T) {
	sums := []attendance.StudentSummary{
		{
			StudentID:   "s1",
			StudentName: "Amani",
			Summary: attendance.Summary{
				Total:      2,
				Counts:     map[attendance.Status]int{attendance.StatusPresent: 1, attendance.StatusSick: 1},
				Percentage: 87.5,
				Grade:      "B",
			},
		},
		{StudentID: "s2", StudentName: "Neema", Summary: attendance.Summary{Grade: attendance.GradeNA}},
	}
	records := []attendance.Attendance{
		{StudentID: "s1", Date: "2024-03-11", Status: attendance.StatusPresent},
		{StudentID: "s1", Date: "2024-03-12", Status: attendance.StatusSick, Note: "flu"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteAttendance(&buf, sums, records))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{summarySheet, recordsSheet}, f.GetSheetList())

	rows, err := f.GetRows(summarySheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Amani", "1", "1", "0", "0", "2", "87.5", "B"}, rows[1])
	assert.Equal(t, "N/A", rows[2][7])

	rows, err = f.GetRows(recordsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"2024-03-12", "Amani", "Sick", "flu"}, rows[2])
}
