package attendance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func records(statuses ...Status) []Attendance {
	recs := make([]Attendance, 0, len(statuses))
	for _, s := range statuses {
		recs = append(recs, Attendance{Status: s})
	}
	return recs
}

func TestScore(t *testing.T) {
	tests := []struct {
		name      string
		records   []Attendance
		wantPct   float64
		wantGrade string
		wantErr   error
	}{
		{name: "no data", records: nil, wantGrade: GradeNA, wantErr: ErrNoData},
		{name: "all present", records: records(StatusPresent, StatusPresent), wantPct: 100, wantGrade: "A"},
		{name: "all absent", records: records(StatusAbsent, StatusAbsent, StatusAbsent), wantPct: 0, wantGrade: "F"},
		{name: "one sick", records: records(StatusPresent, StatusPresent, StatusPresent, StatusSick), wantPct: 93.75, wantGrade: "A"},
		{name: "one excused", records: records(StatusPresent, StatusExcused), wantPct: 75, wantGrade: "C"},
		{name: "rounded", records: records(StatusPresent, StatusPresent, StatusAbsent), wantPct: 66.67, wantGrade: "D"},
		{name: "B boundary", records: records(StatusPresent, StatusPresent, StatusPresent, StatusPresent, StatusAbsent), wantPct: 80, wantGrade: "B"},
		{name: "unknown status", records: records(StatusPresent, "late"), wantPct: 50, wantGrade: "F"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sum, err := Score(tt.records)
			assert.Equal(t, tt.wantErr, err)
			assert.Equal(t, tt.wantPct, sum.Percentage)
			assert.Equal(t, tt.wantGrade, sum.Grade)
			assert.Equal(t, len(tt.records), sum.Total)
		})
	}
}

func TestScoreCounts(t *testing.T) {
	sum, err := Score(records(StatusPresent, StatusSick, StatusSick, StatusAbsent))
	assert.NoError(t, err)
	assert.Equal(t, map[Status]int{StatusPresent: 1, StatusSick: 2, StatusAbsent: 1}, sum.Counts)
}

func TestLetterGrade(t *testing.T) {
	tests := []struct {
		pct  float64
		want string
	}{
		{100, "A"}, {90, "A"}, {89.99, "B"}, {80, "B"}, {79.99, "C"},
		{70, "C"}, {60, "D"}, {59.99, "F"}, {0, "F"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LetterGrade(tt.pct), "LetterGrade(%v)", tt.pct)
	}
}

func TestFilterMatch(t *testing.T) {
	rec := Attendance{SchoolID: "s", GroupID: "g", StudentID: "st", Date: "2024-03-10", Status: StatusSick}
	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{name: "empty", filter: Filter{}, want: true},
		{name: "school", filter: Filter{SchoolID: "x"}, want: false},
		{name: "in range", filter: Filter{From: "2024-03-01", To: "2024-03-10"}, want: true},
		{name: "before range", filter: Filter{From: "2024-03-11"}, want: false},
		{name: "after range", filter: Filter{To: "2024-03-09"}, want: false},
		{name: "status", filter: Filter{Statuses: []string{"absent", "sick"}}, want: true},
		{name: "other status", filter: Filter{Statuses: []string{"present"}}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Match(rec))
		})
	}
}
