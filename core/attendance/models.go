package attendance

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
)

type Status string

// Statuses
const (
	StatusPresent Status = "present"
	StatusSick    Status = "sick"
	StatusExcused Status = "excused"
	StatusAbsent  Status = "absent"
)

var AllStatuses = []Status{StatusPresent, StatusSick, StatusExcused, StatusAbsent}

func (s Status) IsValid() bool {
	_, ok := statusWeights[s]
	return ok
}

type Attendance struct {
	ID        string    `json:"id"`
	SchoolID  string    `json:"school_id"`
	StudentID string    `json:"student_id"`
	GroupID   string    `json:"group_id"`
	Date      string    `json:"date"` // YYYY-MM-DD
	Status    Status    `json:"status"`
	Note      string    `json:"note,omitempty"`
	MarkedBy  string    `json:"marked_by"` // User ID
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Entry struct {
	StudentID string `json:"student_id" validate:"required,uuid"`
	Status    Status `json:"status" validate:"required,attendance_status"`
	Note      string `json:"note"`
}

// MarkRequest holds a group's roll call for one day.
type MarkRequest struct {
	SchoolID string  `json:"school_id" validate:"required,uuid"`
	GroupID  string  `json:"group_id" validate:"required,uuid"`
	Date     string  `json:"date" validate:"required,date"`
	Entries  []Entry `json:"entries" validate:"required,min=1,dive"`
}

func (mr *MarkRequest) Validate(validate *validator.Validate) error {
	mr.SchoolID = core.CleanString(mr.SchoolID)
	mr.GroupID = core.CleanString(mr.GroupID)
	mr.Date = core.CleanString(mr.Date)
	for i := range mr.Entries {
		mr.Entries[i].Status = Status(core.CleanString(string(mr.Entries[i].Status), true /* lower */))
		mr.Entries[i].Note = core.CleanString(mr.Entries[i].Note)
	}
	return validate.Struct(mr)
}

// Filter applies AND operation on its set fields. From and To are inclusive dates.
type Filter struct {
	SchoolID  string   `query:"-"`
	GroupID   string   `query:"group_id"`
	StudentID string   `query:"student_id"`
	From      string   `query:"from"`
	To        string   `query:"to"`
	Statuses  []string `query:"status"`
}

func (f *Filter) Clean() {
	f.GroupID = core.CleanString(f.GroupID)
	f.StudentID = core.CleanString(f.StudentID)
	f.From = core.CleanString(f.From)
	f.To = core.CleanString(f.To)
}

func (f *Filter) Match(a Attendance) bool {
	if f.SchoolID != "" && a.SchoolID != f.SchoolID {
		return false
	}
	if f.GroupID != "" && a.GroupID != f.GroupID {
		return false
	}
	if f.StudentID != "" && a.StudentID != f.StudentID {
		return false
	}
	// YYYY-MM-DD strings compare chronologically
	if f.From != "" && a.Date < f.From {
		return false
	}
	if f.To != "" && a.Date > f.To {
		return false
	}
	if len(f.Statuses) > 0 {
		for _, s := range f.Statuses {
			if Status(s) == a.Status {
				return true
			}
		}
		return false
	}
	return true
}
