package attendance

import (
	"math"

	"github.com/pkg/errors"
)

// GradeNA is reported for students without any attendance record.
const GradeNA = "N/A"

var (
	ErrNoData = errors.New("no data recorded")

	statusWeights = map[Status]float64{
		StatusPresent: 1,
		StatusSick:    .75,
		StatusExcused: .5,
		StatusAbsent:  0,
	}

	// descending
	gradeThresholds = []struct {
		min   float64
		grade string
	}{
		{90, "A"},
		{80, "B"},
		{70, "C"},
		{60, "D"},
	}
)

type Summary struct {
	Total      int            `json:"total"`
	Counts     map[Status]int `json:"counts"`
	Percentage float64        `json:"percentage"`
	Grade      string         `json:"grade"`
}

// Weight returns the share of a school day credited for the status.
func Weight(s Status) float64 { return statusWeights[s] }

// LetterGrade maps an attendance percentage to a letter grade.
func LetterGrade(pct float64) string {
	for _, t := range gradeThresholds {
		if pct >= t.min {
			return t.grade
		}
	}
	return "F"
}

// Score sums the weighted statuses of records into a percentage (2 decimals) and its letter grade.
// Records with an unknown status count as absent.
func Score(records []Attendance) (Summary, error) {
	if len(records) == 0 {
		return Summary{Counts: map[Status]int{}, Grade: GradeNA}, ErrNoData
	}

	sum := Summary{
		Total:  len(records),
		Counts: make(map[Status]int, len(AllStatuses)),
	}
	var total float64
	for _, rec := range records {
		sum.Counts[rec.Status]++
		total += statusWeights[rec.Status]
	}
	sum.Percentage = math.Round(total*100/float64(sum.Total)*100) / 100
	sum.Grade = LetterGrade(sum.Percentage)
	return sum, nil
}
