package pgrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/school"
)

const (
	schoolColumns      = `id, name, address, phone, email, created_at`
	schoolAdminColumns = `id, user_id, school_id, name, email, phone`
	teacherColumns     = `id, user_id, school_id, name, email, phone, subject`
	parentColumns      = `id, user_id, school_id, name, email, phone`
	studentColumns     = `id, user_id, school_id, grade_id, group_id, parent_id, name, email, CAST(birth_date AS TEXT) AS birth_date`
	gradeColumns       = `id, school_id, level, name`
	groupColumns       = `id, school_id, grade_id, name, teacher_id`
	lessonColumns      = `id, school_id, name, teacher_id`
	scheduleColumns    = `id, school_id, group_id, lesson_id, teacher_id, weekday, start_time, end_time, room`
)

type (
	schoolRow struct {
		ID        string    `db:"id"`
		Name      string    `db:"name"`
		Address   string    `db:"address"`
		Phone     string    `db:"phone"`
		Email     string    `db:"email"`
		CreatedAt time.Time `db:"created_at"`
	}

	// adminRow, teacherRow, parentRow & gradeRow mirror their model fields: they convert as is.
	adminRow struct {
		ID       string `db:"id"`
		UserID   string `db:"user_id"`
		SchoolID string `db:"school_id"`
		Name     string `db:"name"`
		Email    string `db:"email"`
		Phone    string `db:"phone"`
	}

	teacherRow struct {
		ID       string `db:"id"`
		UserID   string `db:"user_id"`
		SchoolID string `db:"school_id"`
		Name     string `db:"name"`
		Email    string `db:"email"`
		Phone    string `db:"phone"`
		Subject  string `db:"subject"`
	}

	parentRow struct {
		ID       string `db:"id"`
		UserID   string `db:"user_id"`
		SchoolID string `db:"school_id"`
		Name     string `db:"name"`
		Email    string `db:"email"`
		Phone    string `db:"phone"`
	}

	gradeRow struct {
		ID       string `db:"id"`
		SchoolID string `db:"school_id"`
		Level    int    `db:"level"`
		Name     string `db:"name"`
	}

	studentRow struct {
		ID        string         `db:"id"`
		UserID    string         `db:"user_id"`
		SchoolID  string         `db:"school_id"`
		GradeID   sql.NullString `db:"grade_id"`
		GroupID   sql.NullString `db:"group_id"`
		ParentID  sql.NullString `db:"parent_id"`
		Name      string         `db:"name"`
		Email     string         `db:"email"`
		BirthDate sql.NullString `db:"birth_date"`
	}

	groupRow struct {
		ID        string         `db:"id"`
		SchoolID  string         `db:"school_id"`
		GradeID   string         `db:"grade_id"`
		Name      string         `db:"name"`
		TeacherID sql.NullString `db:"teacher_id"`
	}

	lessonRow struct {
		ID        string         `db:"id"`
		SchoolID  string         `db:"school_id"`
		Name      string         `db:"name"`
		TeacherID sql.NullString `db:"teacher_id"`
	}

	scheduleRow struct {
		ID        string         `db:"id"`
		SchoolID  string         `db:"school_id"`
		GroupID   string         `db:"group_id"`
		LessonID  string         `db:"lesson_id"`
		TeacherID sql.NullString `db:"teacher_id"`
		Weekday   int            `db:"weekday"`
		StartTime string         `db:"start_time"`
		EndTime   string         `db:"end_time"`
		Room      string         `db:"room"`
	}
)

type schoolRepository struct {
	db *sqlx.DB
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *sqlx.DB) school.Repository {
	return &schoolRepository{db: db}
}

// get fetches the row of the given table by ID into dest.
func (repo *schoolRepository) get(ctx context.Context, dest interface{}, columns, table, id string, notFound error) error {
	if _, err := uuid.Parse(id); err != nil {
		return notFound
	}
	err := repo.db.GetContext(ctx, dest, `SELECT `+columns+` FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return trapNoRowsErr(err, notFound, "getting from "+table)
	}
	return nil
}

func (repo *schoolRepository) insert(ctx context.Context, query string, arg interface{}, what string) error {
	if _, err := repo.db.NamedExecContext(ctx, query, arg); err != nil {
		return errors.Wrap(err, "inserting "+what)
	}
	return nil
}

// Schools

func (repo *schoolRepository) CreateSchool(ctx context.Context, s school.School) (school.School, error) {
	row := schoolRow(s)
	row.CreatedAt = row.CreatedAt.UTC()
	err := repo.insert(ctx, `INSERT INTO schools (`+schoolColumns+`) VALUES (:id, :name, :address, :phone, :email, :created_at)`, row, "school")
	return s, err
}

func (repo *schoolRepository) GetSchool(ctx context.Context, id string) (school.School, error) {
	var row schoolRow
	if err := repo.get(ctx, &row, schoolColumns, "schools", id, school.ErrSchoolNotFound); err != nil {
		return school.School{}, err
	}
	return school.School(row), nil
}

func (repo *schoolRepository) QuerySchools(ctx context.Context, search string) ([]school.School, error) {
	w := newWhere()
	if search != "" {
		w.add("(name ILIKE :search OR email ILIKE :search)", "search", "%"+search+"%")
	}
	var rows []schoolRow
	if err := selectNamed(ctx, repo.db, &rows, `SELECT `+schoolColumns+` FROM schools`+w.String()+` ORDER BY name`, w); err != nil {
		return nil, errors.Wrap(err, "querying schools")
	}
	schools := make([]school.School, 0, len(rows))
	for _, row := range rows {
		schools = append(schools, school.School(row))
	}
	return schools, nil
}

// People

func peopleWhere(filter school.PeopleFilter, students bool) *where {
	w := newWhere()
	if filter.SchoolID != "" {
		w.add("school_id = :school_id", "school_id", filter.SchoolID)
	}
	if filter.Search != "" {
		w.add("(name ILIKE :search OR email ILIKE :search)", "search", "%"+filter.Search+"%")
	}
	if students {
		if filter.GradeID != "" {
			w.add("grade_id = :grade_id", "grade_id", filter.GradeID)
		}
		if filter.GroupID != "" {
			w.add("group_id = :group_id", "group_id", filter.GroupID)
		}
		if filter.ParentID != "" {
			w.add("parent_id = :parent_id", "parent_id", filter.ParentID)
		}
	}
	return w
}

func (repo *schoolRepository) CreateSchoolAdmin(ctx context.Context, a school.SchoolAdmin) (school.SchoolAdmin, error) {
	q := `INSERT INTO school_admins (` + schoolAdminColumns + `) VALUES (:id, :user_id, :school_id, :name, :email, :phone)`
	return a, repo.insert(ctx, q, adminRow(a), "school admin")
}

func (repo *schoolRepository) GetSchoolAdmin(ctx context.Context, id string) (school.SchoolAdmin, error) {
	var row adminRow
	err := repo.get(ctx, &row, schoolAdminColumns, "school_admins", id, school.ErrSchoolAdminNotFound)
	return school.SchoolAdmin(row), err
}

func (repo *schoolRepository) CreateTeacher(ctx context.Context, t school.Teacher) (school.Teacher, error) {
	q := `INSERT INTO teachers (` + teacherColumns + `) VALUES (:id, :user_id, :school_id, :name, :email, :phone, :subject)`
	return t, repo.insert(ctx, q, teacherRow(t), "teacher")
}

func (repo *schoolRepository) GetTeacher(ctx context.Context, id string) (school.Teacher, error) {
	var row teacherRow
	err := repo.get(ctx, &row, teacherColumns, "teachers", id, school.ErrTeacherNotFound)
	return school.Teacher(row), err
}

func (repo *schoolRepository) QueryTeachers(ctx context.Context, filter school.PeopleFilter) ([]school.Teacher, error) {
	w := peopleWhere(filter, false)
	var rows []teacherRow
	if err := selectNamed(ctx, repo.db, &rows, `SELECT `+teacherColumns+` FROM teachers`+w.String()+` ORDER BY name`, w); err != nil {
		return nil, errors.Wrap(err, "querying teachers")
	}
	teachers := make([]school.Teacher, 0, len(rows))
	for _, row := range rows {
		teachers = append(teachers, school.Teacher(row))
	}
	return teachers, nil
}

func (repo *schoolRepository) CreateParent(ctx context.Context, p school.Parent) (school.Parent, error) {
	q := `INSERT INTO parents (` + parentColumns + `) VALUES (:id, :user_id, :school_id, :name, :email, :phone)`
	return p, repo.insert(ctx, q, parentRow(p), "parent")
}

func (repo *schoolRepository) GetParent(ctx context.Context, id string) (school.Parent, error) {
	var row parentRow
	err := repo.get(ctx, &row, parentColumns, "parents", id, school.ErrParentNotFound)
	return school.Parent(row), err
}

func (repo *schoolRepository) QueryParents(ctx context.Context, filter school.PeopleFilter) ([]school.Parent, error) {
	w := peopleWhere(filter, false)
	var rows []parentRow
	if err := selectNamed(ctx, repo.db, &rows, `SELECT `+parentColumns+` FROM parents`+w.String()+` ORDER BY name`, w); err != nil {
		return nil, errors.Wrap(err, "querying parents")
	}
	parents := make([]school.Parent, 0, len(rows))
	for _, row := range rows {
		parents = append(parents, school.Parent(row))
	}
	return parents, nil
}

func boilStudent(s school.Student) studentRow {
	return studentRow{
		ID:        s.ID,
		UserID:    s.UserID,
		SchoolID:  s.SchoolID,
		GradeID:   nullString(s.GradeID),
		GroupID:   nullString(s.GroupID),
		ParentID:  nullString(s.ParentID),
		Name:      s.Name,
		Email:     s.Email,
		BirthDate: nullString(s.BirthDate),
	}
}

func unboilStudent(row studentRow) school.Student {
	return school.Student{
		ID:        row.ID,
		UserID:    row.UserID,
		SchoolID:  row.SchoolID,
		GradeID:   row.GradeID.String,
		GroupID:   row.GroupID.String,
		ParentID:  row.ParentID.String,
		Name:      row.Name,
		Email:     row.Email,
		BirthDate: row.BirthDate.String,
	}
}

func (repo *schoolRepository) CreateStudent(ctx context.Context, s school.Student) (school.Student, error) {
	q := `INSERT INTO students (id, user_id, school_id, grade_id, group_id, parent_id, name, email, birth_date)
		VALUES (:id, :user_id, :school_id, :grade_id, :group_id, :parent_id, :name, :email, :birth_date)`
	return s, repo.insert(ctx, q, boilStudent(s), "student")
}

func (repo *schoolRepository) GetStudent(ctx context.Context, id string) (school.Student, error) {
	var row studentRow
	if err := repo.get(ctx, &row, studentColumns, "students", id, school.ErrStudentNotFound); err != nil {
		return school.Student{}, err
	}
	return unboilStudent(row), nil
}

func (repo *schoolRepository) QueryStudents(ctx context.Context, filter school.PeopleFilter) ([]school.Student, error) {
	w := peopleWhere(filter, true)
	var rows []studentRow
	if err := selectNamed(ctx, repo.db, &rows, `SELECT `+studentColumns+` FROM students`+w.String()+` ORDER BY name`, w); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	students := make([]school.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, unboilStudent(row))
	}
	return students, nil
}

// Classes

func (repo *schoolRepository) CreateGrade(ctx context.Context, g school.Grade) (school.Grade, error) {
	q := `INSERT INTO grades (` + gradeColumns + `) VALUES (:id, :school_id, :level, :name)`
	return g, repo.insert(ctx, q, gradeRow(g), "grade")
}

func (repo *schoolRepository) GetGrade(ctx context.Context, id string) (school.Grade, error) {
	var row gradeRow
	err := repo.get(ctx, &row, gradeColumns, "grades", id, school.ErrGradeNotFound)
	return school.Grade(row), err
}

func (repo *schoolRepository) QueryGrades(ctx context.Context, schoolID string) ([]school.Grade, error) {
	var rows []gradeRow
	err := repo.db.SelectContext(ctx, &rows, `SELECT `+gradeColumns+` FROM grades WHERE school_id = $1 ORDER BY level, name`, schoolID)
	if err != nil {
		return nil, errors.Wrap(err, "querying grades")
	}
	grades := make([]school.Grade, 0, len(rows))
	for _, row := range rows {
		grades = append(grades, school.Grade(row))
	}
	return grades, nil
}

func (repo *schoolRepository) CreateGroup(ctx context.Context, g school.Group) (school.Group, error) {
	row := groupRow{ID: g.ID, SchoolID: g.SchoolID, GradeID: g.GradeID, Name: g.Name, TeacherID: nullString(g.TeacherID)}
	q := `INSERT INTO class_groups (` + groupColumns + `) VALUES (:id, :school_id, :grade_id, :name, :teacher_id)`
	return g, repo.insert(ctx, q, row, "group")
}

func unboilGroup(row groupRow) school.Group {
	return school.Group{ID: row.ID, SchoolID: row.SchoolID, GradeID: row.GradeID, Name: row.Name, TeacherID: row.TeacherID.String}
}

func (repo *schoolRepository) GetGroup(ctx context.Context, id string) (school.Group, error) {
	var row groupRow
	if err := repo.get(ctx, &row, groupColumns, "class_groups", id, school.ErrGroupNotFound); err != nil {
		return school.Group{}, err
	}
	return unboilGroup(row), nil
}

func (repo *schoolRepository) QueryGroups(ctx context.Context, schoolID, gradeID string) ([]school.Group, error) {
	w := newWhere()
	w.add("school_id = :school_id", "school_id", schoolID)
	if gradeID != "" {
		w.add("grade_id = :grade_id", "grade_id", gradeID)
	}
	var rows []groupRow
	if err := selectNamed(ctx, repo.db, &rows, `SELECT `+groupColumns+` FROM class_groups`+w.String()+` ORDER BY name`, w); err != nil {
		return nil, errors.Wrap(err, "querying groups")
	}
	groups := make([]school.Group, 0, len(rows))
	for _, row := range rows {
		groups = append(groups, unboilGroup(row))
	}
	return groups, nil
}

func (repo *schoolRepository) CreateLesson(ctx context.Context, l school.Lesson) (school.Lesson, error) {
	row := lessonRow{ID: l.ID, SchoolID: l.SchoolID, Name: l.Name, TeacherID: nullString(l.TeacherID)}
	q := `INSERT INTO lessons (` + lessonColumns + `) VALUES (:id, :school_id, :name, :teacher_id)`
	return l, repo.insert(ctx, q, row, "lesson")
}

func unboilLesson(row lessonRow) school.Lesson {
	return school.Lesson{ID: row.ID, SchoolID: row.SchoolID, Name: row.Name, TeacherID: row.TeacherID.String}
}

func (repo *schoolRepository) GetLesson(ctx context.Context, id string) (school.Lesson, error) {
	var row lessonRow
	if err := repo.get(ctx, &row, lessonColumns, "lessons", id, school.ErrLessonNotFound); err != nil {
		return school.Lesson{}, err
	}
	return unboilLesson(row), nil
}

func (repo *schoolRepository) QueryLessons(ctx context.Context, schoolID string) ([]school.Lesson, error) {
	var rows []lessonRow
	err := repo.db.SelectContext(ctx, &rows, `SELECT `+lessonColumns+` FROM lessons WHERE school_id = $1 ORDER BY name`, schoolID)
	if err != nil {
		return nil, errors.Wrap(err, "querying lessons")
	}
	lessons := make([]school.Lesson, 0, len(rows))
	for _, row := range rows {
		lessons = append(lessons, unboilLesson(row))
	}
	return lessons, nil
}

func (repo *schoolRepository) CreateSchedule(ctx context.Context, s school.Schedule) (school.Schedule, error) {
	row := scheduleRow{
		ID:        s.ID,
		SchoolID:  s.SchoolID,
		GroupID:   s.GroupID,
		LessonID:  s.LessonID,
		TeacherID: nullString(s.TeacherID),
		Weekday:   int(s.Weekday),
		StartTime: s.StartTime,
		EndTime:   s.EndTime,
		Room:      s.Room,
	}
	q := `INSERT INTO schedules (` + scheduleColumns + `)
		VALUES (:id, :school_id, :group_id, :lesson_id, :teacher_id, :weekday, :start_time, :end_time, :room)`
	return s, repo.insert(ctx, q, row, "schedule")
}

func (repo *schoolRepository) QuerySchedules(ctx context.Context, filter school.ScheduleFilter) ([]school.Schedule, error) {
	w := newWhere()
	if filter.SchoolID != "" {
		w.add("school_id = :school_id", "school_id", filter.SchoolID)
	}
	if filter.GroupID != "" {
		w.add("group_id = :group_id", "group_id", filter.GroupID)
	}
	if filter.TeacherID != "" {
		w.add("teacher_id = :teacher_id", "teacher_id", filter.TeacherID)
	}
	if filter.Weekday != nil {
		w.add("weekday = :weekday", "weekday", *filter.Weekday)
	}

	var rows []scheduleRow
	q := `SELECT ` + scheduleColumns + ` FROM schedules` + w.String() + ` ORDER BY weekday, start_time`
	if err := selectNamed(ctx, repo.db, &rows, q, w); err != nil {
		return nil, errors.Wrap(err, "querying schedules")
	}
	slots := make([]school.Schedule, 0, len(rows))
	for _, row := range rows {
		slots = append(slots, school.Schedule{
			ID:        row.ID,
			SchoolID:  row.SchoolID,
			GroupID:   row.GroupID,
			LessonID:  row.LessonID,
			TeacherID: row.TeacherID.String,
			Weekday:   time.Weekday(row.Weekday),
			StartTime: row.StartTime,
			EndTime:   row.EndTime,
			Room:      row.Room,
		})
	}
	return slots, nil
}
