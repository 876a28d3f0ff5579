package inmemdb

import (
	"sync"

	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/exam"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/user"
)

type (
	// DB is a set of mutex-guarded tables keyed by ID.
	DB struct {
		user       *userTable
		school     *schoolTables
		exam       *examTables
		attendance *attendanceTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	schoolTables struct {
		sync.RWMutex
		schools   map[string]school.School
		admins    map[string]school.SchoolAdmin
		teachers  map[string]school.Teacher
		students  map[string]school.Student
		parents   map[string]school.Parent
		grades    map[string]school.Grade
		groups    map[string]school.Group
		lessons   map[string]school.Lesson
		schedules map[string]school.Schedule
	}

	examTables struct {
		sync.RWMutex
		exams  map[string]exam.Exam
		scores map[string]exam.Score
	}

	attendanceTable struct {
		sync.RWMutex
		table map[string]attendance.Attendance
	}
)

func Open() *DB {
	db := new(DB)
	db.Reset()
	return db
}

// Reset drops every row.
func (db *DB) Reset() {
	db.user = &userTable{table: make(map[string]*user.User)}
	db.school = &schoolTables{
		schools:   make(map[string]school.School),
		admins:    make(map[string]school.SchoolAdmin),
		teachers:  make(map[string]school.Teacher),
		students:  make(map[string]school.Student),
		parents:   make(map[string]school.Parent),
		grades:    make(map[string]school.Grade),
		groups:    make(map[string]school.Group),
		lessons:   make(map[string]school.Lesson),
		schedules: make(map[string]school.Schedule),
	}
	db.exam = &examTables{
		exams:  make(map[string]exam.Exam),
		scores: make(map[string]exam.Score),
	}
	db.attendance = &attendanceTable{table: make(map[string]attendance.Attendance)}
}
