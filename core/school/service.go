package school

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
)

var (
	// errors
	ErrSchoolNotFound      = core.NewNotFoundError("school not found")
	ErrSchoolAdminNotFound = core.NewNotFoundError("school admin not found")
	ErrTeacherNotFound     = core.NewNotFoundError("teacher not found")
	ErrStudentNotFound     = core.NewNotFoundError("student not found")
	ErrParentNotFound      = core.NewNotFoundError("parent not found")
	ErrGradeNotFound       = core.NewNotFoundError("grade not found")
	ErrGroupNotFound       = core.NewNotFoundError("group not found")
	ErrLessonNotFound      = core.NewNotFoundError("lesson not found")
)

type (
	Repository interface {
		CreateSchool(ctx context.Context, s School) (School, error)
		GetSchool(ctx context.Context, id string) (School, error)
		QuerySchools(ctx context.Context, search string) ([]School, error)

		CreateSchoolAdmin(ctx context.Context, a SchoolAdmin) (SchoolAdmin, error)
		GetSchoolAdmin(ctx context.Context, id string) (SchoolAdmin, error)

		CreateTeacher(ctx context.Context, t Teacher) (Teacher, error)
		GetTeacher(ctx context.Context, id string) (Teacher, error)
		QueryTeachers(ctx context.Context, filter PeopleFilter) ([]Teacher, error)

		CreateStudent(ctx context.Context, s Student) (Student, error)
		GetStudent(ctx context.Context, id string) (Student, error)
		QueryStudents(ctx context.Context, filter PeopleFilter) ([]Student, error)

		CreateParent(ctx context.Context, p Parent) (Parent, error)
		GetParent(ctx context.Context, id string) (Parent, error)
		QueryParents(ctx context.Context, filter PeopleFilter) ([]Parent, error)

		CreateGrade(ctx context.Context, g Grade) (Grade, error)
		GetGrade(ctx context.Context, id string) (Grade, error)
		QueryGrades(ctx context.Context, schoolID string) ([]Grade, error)

		CreateGroup(ctx context.Context, g Group) (Group, error)
		GetGroup(ctx context.Context, id string) (Group, error)
		QueryGroups(ctx context.Context, schoolID, gradeID string) ([]Group, error)

		CreateLesson(ctx context.Context, l Lesson) (Lesson, error)
		GetLesson(ctx context.Context, id string) (Lesson, error)
		QueryLessons(ctx context.Context, schoolID string) ([]Lesson, error)

		CreateSchedule(ctx context.Context, s Schedule) (Schedule, error)
		QuerySchedules(ctx context.Context, filter ScheduleFilter) ([]Schedule, error)
	}

	// Profile is the role-specific data of a User.
	Profile struct {
		School      *School      `json:"school,omitempty"`
		SchoolAdmin *SchoolAdmin `json:"schoolAdmin,omitempty"`
		Teacher     *Teacher     `json:"teacher,omitempty"`
		Student     *Student     `json:"student,omitempty"`
		Parent      *Parent      `json:"parent,omitempty"`
	}

	ImportSkip struct {
		Row    int    `json:"row"`
		Reason string `json:"reason"`
	}

	ImportResult struct {
		Created []Student    `json:"created"`
		Skipped []ImportSkip `json:"skipped"`
	}

	Service interface {
		CreateSchool(ctx context.Context, ns NewSchool) (School, error)
		GetSchool(ctx context.Context, id string) (School, error)
		QuerySchools(ctx context.Context, search string) ([]School, error)

		CreateSchoolAdmin(ctx context.Context, schoolID string, nm NewMember) (SchoolAdmin, error)
		CreateTeacher(ctx context.Context, schoolID string, nm NewMember) (Teacher, error)
		CreateParent(ctx context.Context, schoolID string, nm NewMember) (Parent, error)
		CreateStudent(ctx context.Context, schoolID string, nm NewMember) (Student, error)
		ImportStudents(ctx context.Context, schoolID, groupID string, rows []RosterRow) (ImportResult, error)

		GetSchoolAdmin(ctx context.Context, id string) (SchoolAdmin, error)
		GetTeacher(ctx context.Context, id string) (Teacher, error)
		GetStudent(ctx context.Context, id string) (Student, error)
		GetParent(ctx context.Context, id string) (Parent, error)
		QueryTeachers(ctx context.Context, filter PeopleFilter) ([]Teacher, error)
		QueryStudents(ctx context.Context, filter PeopleFilter) ([]Student, error)
		QueryParents(ctx context.Context, filter PeopleFilter) ([]Parent, error)

		CreateGrade(ctx context.Context, schoolID string, ng NewGrade) (Grade, error)
		QueryGrades(ctx context.Context, schoolID string) ([]Grade, error)
		CreateGroup(ctx context.Context, schoolID string, ng NewGroup) (Group, error)
		GetGroup(ctx context.Context, id string) (Group, error)
		QueryGroups(ctx context.Context, schoolID, gradeID string) ([]Group, error)
		CreateLesson(ctx context.Context, schoolID string, nl NewLesson) (Lesson, error)
		GetLesson(ctx context.Context, id string) (Lesson, error)
		QueryLessons(ctx context.Context, schoolID string) ([]Lesson, error)
		CreateSchedule(ctx context.Context, schoolID string, ns NewSchedule) (Schedule, error)
		QuerySchedules(ctx context.Context, filter ScheduleFilter) ([]Schedule, error)

		Profile(ctx context.Context, usr user.User) (Profile, error)
	}

	service struct {
		repo     Repository
		usrSvc   user.Service
		validate *validator.Validate
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, usrSvc user.Service, validate *validator.Validate) Service {
	return &service{
		repo:     repo,
		usrSvc:   usrSvc,
		validate: validate,
	}
}

func invalidRef(field string) error {
	return core.NewValidationError(nil, core.FieldError{Field: field, Error: "invalid " + strings.TrimSuffix(field, "_id")})
}

// checkRef turns a missing reference, or one of another school, into a validation error.
// Other lookup failures are returned as is.
func checkRef(err error, schoolID, wantSchoolID, field string) error {
	switch {
	case err != nil && !core.IsNotFound(err):
		return errors.Wrapf(err, "getting %s", strings.TrimSuffix(field, "_id"))
	case err != nil || schoolID != wantSchoolID:
		return invalidRef(field)
	}
	return nil
}

// Schools

func (svc *service) CreateSchool(ctx context.Context, ns NewSchool) (School, error) {
	if err := ns.Validate(svc.validate); err != nil {
		return School{}, err
	}
	return svc.repo.CreateSchool(ctx, School{
		ID:        uuid.New().String(),
		Name:      ns.Name,
		Address:   ns.Address,
		Phone:     ns.Phone,
		Email:     ns.Email,
		CreatedAt: time.Now().UTC(),
	})
}

func (svc *service) GetSchool(ctx context.Context, id string) (School, error) {
	if id == "" {
		return School{}, ErrSchoolNotFound
	}
	return svc.repo.GetSchool(ctx, id)
}

func (svc *service) QuerySchools(ctx context.Context, search string) ([]School, error) {
	return svc.repo.QuerySchools(ctx, core.CleanString(search))
}

// Members

// createAccount validates nm and creates the User account of a school member.
func (svc *service) createAccount(ctx context.Context, role, schoolID, profileID string, nm *NewMember) (user.User, error) {
	if _, err := svc.GetSchool(ctx, schoolID); err != nil {
		return user.User{}, err
	}
	nm.Clean()
	if err := svc.validate.Struct(nm); err != nil {
		return user.User{}, err
	}
	nu := user.NewUser{
		Name:            nm.Name,
		Email:           nm.Email,
		Role:            role,
		SchoolID:        schoolID,
		Password:        nm.Password,
		PasswordConfirm: nm.PasswordConfirm,
		ProfileID:       profileID,
	}
	if err := nu.Validate(ctx, svc.validate, svc.usrSvc); err != nil {
		return user.User{}, err
	}
	return svc.usrSvc.Create(ctx, nu)
}

// rollbackAccount deletes the account whose profile could not be created.
func (svc *service) rollbackAccount(ctx context.Context, usr user.User, cause error) error {
	if err := svc.usrSvc.Delete(ctx, usr.ID); err != nil {
		return errors.Wrapf(cause, "rolling back account %s (%v)", usr.ID, err)
	}
	return cause
}

func (svc *service) CreateSchoolAdmin(ctx context.Context, schoolID string, nm NewMember) (SchoolAdmin, error) {
	id := uuid.New().String()
	usr, err := svc.createAccount(ctx, user.RoleSchool, schoolID, id, &nm)
	if err != nil {
		return SchoolAdmin{}, err
	}
	admin, err := svc.repo.CreateSchoolAdmin(ctx, SchoolAdmin{
		ID:       id,
		UserID:   usr.ID,
		SchoolID: schoolID,
		Name:     nm.Name,
		Email:    nm.Email,
		Phone:    nm.Phone,
	})
	if err != nil {
		return SchoolAdmin{}, svc.rollbackAccount(ctx, usr, errors.Wrap(err, "creating school admin"))
	}
	return admin, nil
}

func (svc *service) CreateTeacher(ctx context.Context, schoolID string, nm NewMember) (Teacher, error) {
	id := uuid.New().String()
	usr, err := svc.createAccount(ctx, user.RoleTeacher, schoolID, id, &nm)
	if err != nil {
		return Teacher{}, err
	}
	teacher, err := svc.repo.CreateTeacher(ctx, Teacher{
		ID:       id,
		UserID:   usr.ID,
		SchoolID: schoolID,
		Name:     nm.Name,
		Email:    nm.Email,
		Phone:    nm.Phone,
		Subject:  nm.Subject,
	})
	if err != nil {
		return Teacher{}, svc.rollbackAccount(ctx, usr, errors.Wrap(err, "creating teacher"))
	}
	return teacher, nil
}

func (svc *service) CreateParent(ctx context.Context, schoolID string, nm NewMember) (Parent, error) {
	id := uuid.New().String()
	usr, err := svc.createAccount(ctx, user.RoleParent, schoolID, id, &nm)
	if err != nil {
		return Parent{}, err
	}
	parent, err := svc.repo.CreateParent(ctx, Parent{
		ID:       id,
		UserID:   usr.ID,
		SchoolID: schoolID,
		Name:     nm.Name,
		Email:    nm.Email,
		Phone:    nm.Phone,
	})
	if err != nil {
		return Parent{}, svc.rollbackAccount(ctx, usr, errors.Wrap(err, "creating parent"))
	}
	return parent, nil
}

// checkStudentRefs checks that the grade, group and parent of a new Student belong to the school.
// The Student's grade defaults to its group's.
func (svc *service) checkStudentRefs(ctx context.Context, schoolID string, nm *NewMember) error {
	if nm.GroupID != "" {
		group, err := svc.repo.GetGroup(ctx, nm.GroupID)
		if err := checkRef(err, group.SchoolID, schoolID, "group_id"); err != nil {
			return err
		}
		if nm.GradeID == "" {
			nm.GradeID = group.GradeID
		} else if nm.GradeID != group.GradeID {
			return invalidRef("grade_id")
		}
	}
	if nm.GradeID != "" {
		grade, err := svc.repo.GetGrade(ctx, nm.GradeID)
		if err := checkRef(err, grade.SchoolID, schoolID, "grade_id"); err != nil {
			return err
		}
	}
	if nm.ParentID != "" {
		parent, err := svc.repo.GetParent(ctx, nm.ParentID)
		if err := checkRef(err, parent.SchoolID, schoolID, "parent_id"); err != nil {
			return err
		}
	}
	return nil
}

func (svc *service) CreateStudent(ctx context.Context, schoolID string, nm NewMember) (Student, error) {
	nm.Clean()
	if err := svc.checkStudentRefs(ctx, schoolID, &nm); err != nil {
		return Student{}, err
	}

	id := uuid.New().String()
	usr, err := svc.createAccount(ctx, user.RoleStudent, schoolID, id, &nm)
	if err != nil {
		return Student{}, err
	}
	student, err := svc.repo.CreateStudent(ctx, Student{
		ID:        id,
		UserID:    usr.ID,
		SchoolID:  schoolID,
		GradeID:   nm.GradeID,
		GroupID:   nm.GroupID,
		ParentID:  nm.ParentID,
		Name:      nm.Name,
		Email:     nm.Email,
		BirthDate: nm.BirthDate,
	})
	if err != nil {
		return Student{}, svc.rollbackAccount(ctx, usr, errors.Wrap(err, "creating student"))
	}
	return student, nil
}

// ImportStudents creates a Student for every valid roster row; invalid rows are skipped and reported.
// Imported students get a random password and are expected to reset it.
func (svc *service) ImportStudents(ctx context.Context, schoolID, groupID string, rows []RosterRow) (ImportResult, error) {
	if _, err := svc.GetSchool(ctx, schoolID); err != nil {
		return ImportResult{}, err
	}
	group, err := svc.repo.GetGroup(ctx, groupID)
	if err := checkRef(err, group.SchoolID, schoolID, "group_id"); err != nil {
		return ImportResult{}, err
	}

	res := ImportResult{Created: make([]Student, 0, len(rows)), Skipped: make([]ImportSkip, 0)}
	for i, row := range rows {
		pwd := randomPassword()
		student, err := svc.CreateStudent(ctx, schoolID, NewMember{
			Name:            row.Name,
			Email:           row.Email,
			Password:        pwd,
			PasswordConfirm: pwd,
			GroupID:         group.ID,
			BirthDate:       row.BirthDate,
		})
		if err != nil {
			var reason string
			switch cause := errors.Cause(err).(type) {
			case validator.ValidationErrors:
				reason = fmt.Sprintf("invalid %s", cause[0].Field())
			case *core.ValidationError:
				reason = cause.Error()
			default:
				return res, errors.Wrapf(err, "importing row %d", i+1)
			}
			res.Skipped = append(res.Skipped, ImportSkip{Row: i + 1, Reason: reason})
			continue
		}
		res.Created = append(res.Created, student)
	}
	return res, nil
}

func randomPassword() string {
	return "Sh" + strings.ReplaceAll(uuid.New().String(), "-", "")[:12] + "#7"
}

func (svc *service) GetSchoolAdmin(ctx context.Context, id string) (SchoolAdmin, error) {
	if id == "" {
		return SchoolAdmin{}, ErrSchoolAdminNotFound
	}
	return svc.repo.GetSchoolAdmin(ctx, id)
}

func (svc *service) GetTeacher(ctx context.Context, id string) (Teacher, error) {
	if id == "" {
		return Teacher{}, ErrTeacherNotFound
	}
	return svc.repo.GetTeacher(ctx, id)
}

func (svc *service) GetStudent(ctx context.Context, id string) (Student, error) {
	if id == "" {
		return Student{}, ErrStudentNotFound
	}
	return svc.repo.GetStudent(ctx, id)
}

func (svc *service) GetParent(ctx context.Context, id string) (Parent, error) {
	if id == "" {
		return Parent{}, ErrParentNotFound
	}
	return svc.repo.GetParent(ctx, id)
}

func (svc *service) QueryTeachers(ctx context.Context, filter PeopleFilter) ([]Teacher, error) {
	filter.Clean()
	return svc.repo.QueryTeachers(ctx, filter)
}

func (svc *service) QueryStudents(ctx context.Context, filter PeopleFilter) ([]Student, error) {
	filter.Clean()
	return svc.repo.QueryStudents(ctx, filter)
}

func (svc *service) QueryParents(ctx context.Context, filter PeopleFilter) ([]Parent, error) {
	filter.Clean()
	return svc.repo.QueryParents(ctx, filter)
}

// Classes

func (svc *service) CreateGrade(ctx context.Context, schoolID string, ng NewGrade) (Grade, error) {
	if _, err := svc.GetSchool(ctx, schoolID); err != nil {
		return Grade{}, err
	}
	if err := ng.Validate(svc.validate); err != nil {
		return Grade{}, err
	}
	return svc.repo.CreateGrade(ctx, Grade{
		ID:       uuid.New().String(),
		SchoolID: schoolID,
		Level:    ng.Level,
		Name:     ng.Name,
	})
}

func (svc *service) QueryGrades(ctx context.Context, schoolID string) ([]Grade, error) {
	return svc.repo.QueryGrades(ctx, schoolID)
}

func (svc *service) CreateGroup(ctx context.Context, schoolID string, ng NewGroup) (Group, error) {
	if _, err := svc.GetSchool(ctx, schoolID); err != nil {
		return Group{}, err
	}
	if err := ng.Validate(svc.validate); err != nil {
		return Group{}, err
	}
	grade, err := svc.repo.GetGrade(ctx, ng.GradeID)
	if err := checkRef(err, grade.SchoolID, schoolID, "grade_id"); err != nil {
		return Group{}, err
	}
	if ng.TeacherID != "" {
		teacher, err := svc.repo.GetTeacher(ctx, ng.TeacherID)
		if err := checkRef(err, teacher.SchoolID, schoolID, "teacher_id"); err != nil {
			return Group{}, err
		}
	}
	return svc.repo.CreateGroup(ctx, Group{
		ID:        uuid.New().String(),
		SchoolID:  schoolID,
		GradeID:   ng.GradeID,
		Name:      ng.Name,
		TeacherID: ng.TeacherID,
	})
}

func (svc *service) GetGroup(ctx context.Context, id string) (Group, error) {
	if id == "" {
		return Group{}, ErrGroupNotFound
	}
	return svc.repo.GetGroup(ctx, id)
}

func (svc *service) QueryGroups(ctx context.Context, schoolID, gradeID string) ([]Group, error) {
	return svc.repo.QueryGroups(ctx, schoolID, core.CleanString(gradeID))
}

func (svc *service) CreateLesson(ctx context.Context, schoolID string, nl NewLesson) (Lesson, error) {
	if _, err := svc.GetSchool(ctx, schoolID); err != nil {
		return Lesson{}, err
	}
	if err := nl.Validate(svc.validate); err != nil {
		return Lesson{}, err
	}
	if nl.TeacherID != "" {
		teacher, err := svc.repo.GetTeacher(ctx, nl.TeacherID)
		if err := checkRef(err, teacher.SchoolID, schoolID, "teacher_id"); err != nil {
			return Lesson{}, err
		}
	}
	return svc.repo.CreateLesson(ctx, Lesson{
		ID:        uuid.New().String(),
		SchoolID:  schoolID,
		Name:      nl.Name,
		TeacherID: nl.TeacherID,
	})
}

func (svc *service) GetLesson(ctx context.Context, id string) (Lesson, error) {
	if id == "" {
		return Lesson{}, ErrLessonNotFound
	}
	return svc.repo.GetLesson(ctx, id)
}

func (svc *service) QueryLessons(ctx context.Context, schoolID string) ([]Lesson, error) {
	return svc.repo.QueryLessons(ctx, schoolID)
}

func (svc *service) CreateSchedule(ctx context.Context, schoolID string, ns NewSchedule) (Schedule, error) {
	if _, err := svc.GetSchool(ctx, schoolID); err != nil {
		return Schedule{}, err
	}
	if err := ns.Validate(svc.validate); err != nil {
		return Schedule{}, err
	}
	group, err := svc.repo.GetGroup(ctx, ns.GroupID)
	if err := checkRef(err, group.SchoolID, schoolID, "group_id"); err != nil {
		return Schedule{}, err
	}
	lesson, err := svc.repo.GetLesson(ctx, ns.LessonID)
	if err := checkRef(err, lesson.SchoolID, schoolID, "lesson_id"); err != nil {
		return Schedule{}, err
	}
	if ns.TeacherID == "" {
		ns.TeacherID = lesson.TeacherID
	} else {
		teacher, err := svc.repo.GetTeacher(ctx, ns.TeacherID)
		if err := checkRef(err, teacher.SchoolID, schoolID, "teacher_id"); err != nil {
			return Schedule{}, err
		}
	}
	return svc.repo.CreateSchedule(ctx, Schedule{
		ID:        uuid.New().String(),
		SchoolID:  schoolID,
		GroupID:   ns.GroupID,
		LessonID:  ns.LessonID,
		TeacherID: ns.TeacherID,
		Weekday:   time.Weekday(ns.Weekday),
		StartTime: ns.StartTime,
		EndTime:   ns.EndTime,
		Room:      ns.Room,
	})
}

func (svc *service) QuerySchedules(ctx context.Context, filter ScheduleFilter) ([]Schedule, error) {
	slots, err := svc.repo.QuerySchedules(ctx, filter)
	if err != nil {
		return nil, err
	}
	SortSchedules(slots)
	return slots, nil
}

// Profile returns the role-specific nested profile of usr (e.g. for the login response).
func (svc *service) Profile(ctx context.Context, usr user.User) (Profile, error) {
	var prof Profile
	if usr.SchoolID != "" {
		sch, err := svc.GetSchool(ctx, usr.SchoolID)
		if err != nil {
			return prof, errors.Wrap(err, "getting school")
		}
		prof.School = &sch
	}

	switch usr.Role {
	case user.RoleSchool:
		admin, err := svc.GetSchoolAdmin(ctx, usr.ProfileID)
		if err != nil {
			return prof, errors.Wrap(err, "getting school admin")
		}
		prof.SchoolAdmin = &admin
	case user.RoleTeacher:
		teacher, err := svc.GetTeacher(ctx, usr.ProfileID)
		if err != nil {
			return prof, errors.Wrap(err, "getting teacher")
		}
		prof.Teacher = &teacher
	case user.RoleStudent:
		student, err := svc.GetStudent(ctx, usr.ProfileID)
		if err != nil {
			return prof, errors.Wrap(err, "getting student")
		}
		prof.Student = &student
	case user.RoleParent:
		parent, err := svc.GetParent(ctx, usr.ProfileID)
		if err != nil {
			return prof, errors.Wrap(err, "getting parent")
		}
		prof.Parent = &parent
	}
	return prof, nil
}
