package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
)

type schoolRepository struct {
	db *DB
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *DB) school.Repository {
	return &schoolRepository{db: db}
}

func (repo *schoolRepository) CreateSchool(_ context.Context, s school.School) (school.School, error) {
	tbl := repo.db.school
	tbl.Lock()
	defer tbl.Unlock()
	tbl.schools[s.ID] = s
	return s, nil
}

func (repo *schoolRepository) GetSchool(_ context.Context, id string) (school.School, error) {
	tbl := repo.db.school
	tbl.RLock()
	defer tbl.RUnlock()
	if s, ok := tbl.schools[id]; ok {
		return s, nil
	}
	return school.School{}, school.ErrSchoolNotFound
}

func (repo *schoolRepository) QuerySchools(_ context.Context, search string) ([]school.School, error) {
	tbl := repo.db.school
	tbl.RLock()
	defer tbl.RUnlock()

	schools := make([]school.School, 0, len(tbl.schools))
	for _, s := range tbl.schools {
		if search == "" || core.ContainsFold(s.Name, search) || core.ContainsFold(s.Email, search) {
			schools = append(schools, s)
		}
	}
	sort.Slice(schools, func(i, j int) bool { return schools[i].Name < schools[j].Name })
	return schools, nil
}

// People

func (repo *schoolRepository) CreateSchoolAdmin(_ context.Context, a school.SchoolAdmin) (school.SchoolAdmin, error) {
	tbl := repo.db.school
	tbl.Lock()
	defer tbl.Unlock()
	tbl.admins[a.ID] = a
	return a, nil
}

func (repo *schoolRepository) GetSchoolAdmin(_ context.Context, id string) (school.SchoolAdmin, error) {
	tbl := repo.db.school
	tbl.RLock()
	defer tbl.RUnlock()
	if a, ok := tbl.admins[id]; ok {
		return a, nil
	}
	return school.SchoolAdmin{}, school.ErrSchoolAdminNotFound
}

func (repo *schoolRepository) CreateTeacher(_ context.Context, t school.Teacher) (school.Teacher, error) {
	tbl := repo.db.school
	tbl.Lock()
	defer tbl.Unlock()
	tbl.teachers[t.ID] = t
	return t, nil
}

func (repo *schoolRepository) GetTeacher(_ context.Context, id string) (school.Teacher, error) {
	tbl := repo.db.school
	tbl.RLock()
	defer tbl.RUnlock()
	if t, ok := tbl.teachers[id]; ok {
		return t, nil
	}
	return school.Teacher{}, school.ErrTeacherNotFound
}

func (repo *schoolRepository) QueryTeachers(_ context.Context, filter school.PeopleFilter) ([]school.Teacher, error) {
	tbl := repo.db.school
	tbl.RLock()
	defer tbl.RUnlock()

	teachers := make([]school.Teacher, 0)
	for _, t := range tbl.teachers {
		if filter.MatchTeacher(t) {
			teachers = append(teachers, t)
		}
	}
	sort.Slice(teachers, func(i, j int) bool { return teachers[i].Name < teachers[j].Name })
	return teachers, nil
}

func (repo *schoolRepository) CreateStudent(_ context.Context, s school.Student) (school.Student, error) {
	tbl := repo.db.school
	tbl.Lock()
	defer tbl.Unlock()
	tbl.students[s.ID] = s
	return s, nil
}

func (repo *schoolRepository) GetStudent(_ context.Context, id string) (school.Student, error) {
	tbl := repo.db.school
	tbl.RLock()
	defer tbl.RUnlock()
	if s, ok := tbl.students[id]; ok {
		return s, nil
	}
	return school.Student{}, school.ErrStudentNotFound
}

func (repo *schoolRepository) QueryStudents(_ context.Context, filter school.PeopleFilter) ([]school.Student, error) {
	tbl := repo.db.school
	tbl.RLock()
	defer tbl.RUnlock()

	students := make([]school.Student, 0)
	for _, s := range tbl.students {
		if filter.MatchStudent(s) {
			students = append(students, s)
		}
	}
	sort.Slice(students, func(i, j int) bool { return students[i].Name < students[j].Name })
	return students, nil
}

func (repo *schoolRepository) CreateParent(_ context.Context, p school.Parent) (school.Parent, error) {
	tbl := repo.db.school
	tbl.Lock()
	defer tbl.Unlock()
	tbl.parents[p.ID] = p
	return p, nil
}

func (repo *schoolRepository) GetParent(_ context.Context, id string) (school.Parent, error) {
	tbl := repo.db.school
	tbl.RLock()
	defer tbl.RUnlock()
	if p, ok := tbl.parents[id]; ok {
		return p, nil
	}
	return school.Parent{}, school.ErrParentNotFound
}

func (repo *schoolRepository) QueryParents(_ context.Context, filter school.PeopleFilter) ([]school.Parent, error) {
	tbl := repo.db.school
	tbl.RLock()
	defer tbl.RUnlock()

	parents := make([]school.Parent, 0)
	for _, p := range tbl.parents {
		if filter.MatchParent(p) {
			parents = append(parents, p)
		}
	}
	sort.Slice(parents, func(i, j int) bool { return parents[i].Name < parents[j].Name })
	return parents, nil
}

// Classes

func (repo *schoolRepository) CreateGrade(_ context.Context, g school.Grade) (school.Grade, error) {
	tbl := repo.db.school
	tbl.Lock()
	defer tbl.Unlock()
	tbl.grades[g.ID] = g
	return g, nil
}

func (repo *schoolRepository) GetGrade(_ context.Context, id string) (school.Grade, error) {
	tbl := repo.db.school
	tbl.RLock()
	defer tbl.RUnlock()
	if g, ok := tbl.grades[id]; ok {
		return g, nil
	}
	return school.Grade{}, school.ErrGradeNotFound
}

func (repo *schoolRepository) QueryGrades(_ context.Context, schoolID string) ([]school.Grade, error) {
	tbl := repo.db.school
	tbl.RLock()
	defer tbl.RUnlock()

	grades := make([]school.Grade, 0)
	for _, g := range tbl.grades {
		if g.SchoolID == schoolID {
			grades = append(grades, g)
		}
	}
	sort.Slice(grades, func(i, j int) bool {
		if grades[i].Level != grades[j].Level {
			return grades[i].Level < grades[j].Level
		}
		return grades[i].Name < grades[j].Name
	})
	return grades, nil
}

func (repo *schoolRepository) CreateGroup(_ context.Context, g school.Group) (school.Group, error) {
	tbl := repo.db.school
	tbl.Lock()
	defer tbl.Unlock()
	tbl.groups[g.ID] = g
	return g, nil
}

func (repo *schoolRepository) GetGroup(_ context.Context, id string) (school.Group, error) {
	tbl := repo.db.school
	tbl.RLock()
	defer tbl.RUnlock()
	if g, ok := tbl.groups[id]; ok {
		return g, nil
	}
	return school.Group{}, school.ErrGroupNotFound
}

func (repo *schoolRepository) QueryGroups(_ context.Context, schoolID, gradeID string) ([]school.Group, error) {
	tbl := repo.db.school
	tbl.RLock()
	defer tbl.RUnlock()

	groups := make([]school.Group, 0)
	for _, g := range tbl.groups {
		if g.SchoolID == schoolID && (gradeID == "" || g.GradeID == gradeID) {
			groups = append(groups, g)
		}
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
	return groups, nil
}

func (repo *schoolRepository) CreateLesson(_ context.Context, l school.Lesson) (school.Lesson, error) {
	tbl := repo.db.school
	tbl.Lock()
	defer tbl.Unlock()
	tbl.lessons[l.ID] = l
	return l, nil
}

func (repo *schoolRepository) GetLesson(_ context.Context, id string) (school.Lesson, error) {
	tbl := repo.db.school
	tbl.RLock()
	defer tbl.RUnlock()
	if l, ok := tbl.lessons[id]; ok {
		return l, nil
	}
	return school.Lesson{}, school.ErrLessonNotFound
}

func (repo *schoolRepository) QueryLessons(_ context.Context, schoolID string) ([]school.Lesson, error) {
	tbl := repo.db.school
	tbl.RLock()
	defer tbl.RUnlock()

	lessons := make([]school.Lesson, 0)
	for _, l := range tbl.lessons {
		if l.SchoolID == schoolID {
			lessons = append(lessons, l)
		}
	}
	sort.Slice(lessons, func(i, j int) bool { return lessons[i].Name < lessons[j].Name })
	return lessons, nil
}

func (repo *schoolRepository) CreateSchedule(_ context.Context, s school.Schedule) (school.Schedule, error) {
	tbl := repo.db.school
	tbl.Lock()
	defer tbl.Unlock()
	tbl.schedules[s.ID] = s
	return s, nil
}

func (repo *schoolRepository) QuerySchedules(_ context.Context, filter school.ScheduleFilter) ([]school.Schedule, error) {
	tbl := repo.db.school
	tbl.RLock()
	defer tbl.RUnlock()

	slots := make([]school.Schedule, 0)
	for _, s := range tbl.schedules {
		if filter.Match(s) {
			slots = append(slots, s)
		}
	}
	school.SortSchedules(slots)
	return slots, nil
}
