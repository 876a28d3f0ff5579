package school

import (
	"sort"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
)

type School struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// SchoolAdmin is the profile of a User with the `school` role.
type SchoolAdmin struct {
	ID       string `json:"id"`
	UserID   string `json:"user_id"`
	SchoolID string `json:"school_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
}

type Teacher struct {
	ID       string `json:"id"`
	UserID   string `json:"user_id"`
	SchoolID string `json:"school_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Subject  string `json:"subject,omitempty"`
}

type Student struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	SchoolID  string `json:"school_id"`
	GradeID   string `json:"grade_id,omitempty"`
	GroupID   string `json:"group_id,omitempty"`
	ParentID  string `json:"parent_id,omitempty"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	BirthDate string `json:"birth_date,omitempty"` // YYYY-MM-DD
}

type Parent struct {
	ID       string `json:"id"`
	UserID   string `json:"user_id"`
	SchoolID string `json:"school_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
}

// Grade is a class level, e.g. "Grade 7".
type Grade struct {
	ID       string `json:"id"`
	SchoolID string `json:"school_id"`
	Level    int    `json:"level"`
	Name     string `json:"name"`
}

// Group is a section of a Grade, e.g. "7B".
type Group struct {
	ID        string `json:"id"`
	SchoolID  string `json:"school_id"`
	GradeID   string `json:"grade_id"`
	Name      string `json:"name"`
	TeacherID string `json:"teacher_id,omitempty"` // homeroom teacher
}

type Lesson struct {
	ID        string `json:"id"`
	SchoolID  string `json:"school_id"`
	Name      string `json:"name"`
	TeacherID string `json:"teacher_id,omitempty"`
}

// Schedule is a weekly timetable slot.
type Schedule struct {
	ID        string       `json:"id"`
	SchoolID  string       `json:"school_id"`
	GroupID   string       `json:"group_id"`
	LessonID  string       `json:"lesson_id"`
	TeacherID string       `json:"teacher_id,omitempty"`
	Weekday   time.Weekday `json:"weekday"`
	StartTime string       `json:"start_time"` // HH:MM
	EndTime   string       `json:"end_time"`   // HH:MM
	Room      string       `json:"room,omitempty"`
}

// SortSchedules orders slots by weekday then start time.
func SortSchedules(slots []Schedule) {
	sort.SliceStable(slots, func(i, j int) bool {
		if slots[i].Weekday != slots[j].Weekday {
			return slots[i].Weekday < slots[j].Weekday
		}
		return slots[i].StartTime < slots[j].StartTime
	})
}

// Forms

type NewSchool struct {
	Name    string `json:"name" validate:"required"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Email   string `json:"email" validate:"omitempty,email"`
}

func (ns *NewSchool) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Address = core.CleanString(ns.Address)
	ns.Phone = core.CleanString(ns.Phone)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	return validate.Struct(ns)
}

// NewMember holds what's needed to create a school member account along with its profile.
// Fields not relevant to the member's role are ignored.
type NewMember struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Phone           string `json:"phone"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`

	// Teacher
	Subject string `json:"subject"`

	// Student
	GradeID   string `json:"grade_id" validate:"omitempty,uuid"`
	GroupID   string `json:"group_id" validate:"omitempty,uuid"`
	ParentID  string `json:"parent_id" validate:"omitempty,uuid"`
	BirthDate string `json:"birth_date" validate:"omitempty,date"`
}

func (nm *NewMember) Clean() {
	nm.Name = core.CleanString(nm.Name)
	nm.Email = core.CleanString(nm.Email, true /* lower */)
	nm.Phone = core.CleanString(nm.Phone)
	nm.Subject = core.CleanString(nm.Subject)
	nm.GradeID = core.CleanString(nm.GradeID)
	nm.GroupID = core.CleanString(nm.GroupID)
	nm.ParentID = core.CleanString(nm.ParentID)
	nm.BirthDate = core.CleanString(nm.BirthDate)
}

type NewGrade struct {
	Level int    `json:"level" validate:"min=0,max=20"`
	Name  string `json:"name" validate:"required"`
}

func (ng *NewGrade) Validate(validate *validator.Validate) error {
	ng.Name = core.CleanString(ng.Name)
	return validate.Struct(ng)
}

type NewGroup struct {
	GradeID   string `json:"grade_id" validate:"required,uuid"`
	Name      string `json:"name" validate:"required"`
	TeacherID string `json:"teacher_id" validate:"omitempty,uuid"`
}

func (ng *NewGroup) Validate(validate *validator.Validate) error {
	ng.Name = core.CleanString(ng.Name)
	return validate.Struct(ng)
}

type NewLesson struct {
	Name      string `json:"name" validate:"required"`
	TeacherID string `json:"teacher_id" validate:"omitempty,uuid"`
}

func (nl *NewLesson) Validate(validate *validator.Validate) error {
	nl.Name = core.CleanString(nl.Name)
	return validate.Struct(nl)
}

type NewSchedule struct {
	GroupID   string `json:"group_id" validate:"required,uuid"`
	LessonID  string `json:"lesson_id" validate:"required,uuid"`
	TeacherID string `json:"teacher_id" validate:"omitempty,uuid"`
	Weekday   int    `json:"weekday" validate:"min=0,max=6"`
	StartTime string `json:"start_time" validate:"required,clock"`
	EndTime   string `json:"end_time" validate:"required,clock"`
	Room      string `json:"room"`
}

func (ns *NewSchedule) Validate(validate *validator.Validate) error {
	ns.Room = core.CleanString(ns.Room)
	if err := validate.Struct(ns); err != nil {
		return err
	}
	// HH:MM strings compare chronologically
	if ns.EndTime <= ns.StartTime {
		return core.NewValidationError(nil, core.FieldError{Field: "end_time", Error: "end_time must be after start_time"})
	}
	return nil
}

// Filters

// PeopleFilter applies AND operation on its set fields.
// Search does a case-insensitive match on one of Name or Email.
type PeopleFilter struct {
	SchoolID string `query:"-"`
	GradeID  string `query:"grade_id"`
	GroupID  string `query:"group_id"`
	ParentID string `query:"parent_id"`
	Search   string `query:"search"`
}

func (pf *PeopleFilter) Clean() {
	pf.GradeID = core.CleanString(pf.GradeID)
	pf.GroupID = core.CleanString(pf.GroupID)
	pf.ParentID = core.CleanString(pf.ParentID)
	pf.Search = core.CleanString(pf.Search)
}

func (pf *PeopleFilter) matchPerson(schoolID, name, email string) bool {
	if pf.SchoolID != "" && schoolID != pf.SchoolID {
		return false
	}
	if pf.Search != "" && !(core.ContainsFold(name, pf.Search) || core.ContainsFold(email, pf.Search)) {
		return false
	}
	return true
}

func (pf *PeopleFilter) MatchTeacher(t Teacher) bool { return pf.matchPerson(t.SchoolID, t.Name, t.Email) }
func (pf *PeopleFilter) MatchParent(p Parent) bool   { return pf.matchPerson(p.SchoolID, p.Name, p.Email) }

func (pf *PeopleFilter) MatchStudent(s Student) bool {
	if !pf.matchPerson(s.SchoolID, s.Name, s.Email) {
		return false
	}
	if pf.GradeID != "" && s.GradeID != pf.GradeID {
		return false
	}
	if pf.GroupID != "" && s.GroupID != pf.GroupID {
		return false
	}
	if pf.ParentID != "" && s.ParentID != pf.ParentID {
		return false
	}
	return true
}

type ScheduleFilter struct {
	SchoolID  string `query:"-"`
	GroupID   string `query:"group_id"`
	TeacherID string `query:"teacher_id"`
	Weekday   *int   `query:"-"`
}

func (sf *ScheduleFilter) Match(s Schedule) bool {
	if sf.SchoolID != "" && s.SchoolID != sf.SchoolID {
		return false
	}
	if sf.GroupID != "" && s.GroupID != sf.GroupID {
		return false
	}
	if sf.TeacherID != "" && s.TeacherID != sf.TeacherID {
		return false
	}
	if sf.Weekday != nil && int(s.Weekday) != *sf.Weekday {
		return false
	}
	return true
}

// RosterRow is one student line of an imported roster.
type RosterRow struct {
	Name      string
	Email     string
	BirthDate string
}
