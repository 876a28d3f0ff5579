package testutil

import (
	"context"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/exam"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/user"
	emailsvc "github.com/trezcool/shule/services/email"
	logsvc "github.com/trezcool/shule/services/logger"
	"github.com/trezcool/shule/storage/database/inmem"
)

// Password satisfies the password policy.
const Password = "Pa$$w0rd!Xyz"

// ErrStorage is returned by a BrokenSchoolRepository.
var ErrStorage = errors.New("storage unavailable")

// BrokenSchoolRepository fails every lookup of a school's classes and members.
type BrokenSchoolRepository struct {
	school.Repository
}

func (BrokenSchoolRepository) GetTeacher(context.Context, string) (school.Teacher, error) {
	return school.Teacher{}, ErrStorage
}

func (BrokenSchoolRepository) GetParent(context.Context, string) (school.Parent, error) {
	return school.Parent{}, ErrStorage
}

func (BrokenSchoolRepository) GetGrade(context.Context, string) (school.Grade, error) {
	return school.Grade{}, ErrStorage
}

func (BrokenSchoolRepository) GetGroup(context.Context, string) (school.Group, error) {
	return school.Group{}, ErrStorage
}

func (BrokenSchoolRepository) GetLesson(context.Context, string) (school.Lesson, error) {
	return school.Lesson{}, ErrStorage
}

// Env wires the domain services on top of the in-memory repositories.
type Env struct {
	Conf       *core.Config
	Logger     core.Logger
	Validate   *validator.Validate
	Translator ut.Translator
	Mail       *emailsvc.ConsoleServiceMock
	DB         *inmemdb.DB

	UserRepo       user.Repository
	SchoolRepo     school.Repository
	ExamRepo       exam.Repository
	AttendanceRepo attendance.Repository

	UserSvc       user.Service
	SchoolSvc     school.Service
	ExamSvc       exam.Service
	AttendanceSvc attendance.Service
}

func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	attendance.InitValidators(validate, translator)
	return validate, translator
}

func NewEnv(t *testing.T) *Env {
	t.Helper()

	conf := core.NewTestConfig()
	logger := logsvc.NewRollbarLogger("TEST", conf)
	core.ParseEmailTemplates(logger, true /* strict */)
	validate, translator := NewValidator()
	db := inmemdb.Open()

	env := &Env{
		Conf:           conf,
		Logger:         logger,
		Validate:       validate,
		Translator:     translator,
		Mail:           emailsvc.NewConsoleServiceMock(conf, logger),
		DB:             db,
		UserRepo:       inmemdb.NewUserRepository(db),
		SchoolRepo:     inmemdb.NewSchoolRepository(db),
		ExamRepo:       inmemdb.NewExamRepository(db),
		AttendanceRepo: inmemdb.NewAttendanceRepository(db),
	}
	env.UserSvc = user.NewService(env.UserRepo, env.Mail, conf)
	env.SchoolSvc = school.NewService(env.SchoolRepo, env.UserSvc, validate)
	env.ExamSvc = exam.NewService(env.ExamRepo, env.SchoolSvc, validate)
	env.AttendanceSvc = attendance.NewService(env.AttendanceRepo, env.SchoolSvc, validate)
	return env
}

// CreateUser stores a User straight into repo, skipping the service validations.
func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, email, pwd, role string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		ID:        NewID(),
		Name:      name,
		Email:     email,
		Role:      role,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser(): %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser(): %v", err)
	}
	return usr
}

// School is a small school with one class, its teacher, a parent and two students.
type School struct {
	School   school.School
	Admin    school.SchoolAdmin
	Teacher  school.Teacher
	Parent   school.Parent
	Students []school.Student // ordered by name
	Grade    school.Grade
	Group    school.Group
	Lesson   school.Lesson
}

func member(name, email string) school.NewMember {
	return school.NewMember{Name: name, Email: email, Password: Password, PasswordConfirm: Password}
}

// CreateSchool creates a School through the services; emails are prefixed with prefix to keep them unique.
func (env *Env) CreateSchool(t *testing.T, name, prefix string) School {
	t.Helper()

	ctx := context.Background()
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("CreateSchool(%s): %v", name, err)
		}
	}

	var s School
	var err error
	s.School, err = env.SchoolSvc.CreateSchool(ctx, school.NewSchool{Name: name})
	must(err)
	s.Admin, err = env.SchoolSvc.CreateSchoolAdmin(ctx, s.School.ID, member("Mwalimu Mkuu", prefix+"head@test.cd"))
	must(err)

	nm := member("Amani Kazadi", prefix+"teacher@test.cd")
	nm.Subject = "Mathematics"
	s.Teacher, err = env.SchoolSvc.CreateTeacher(ctx, s.School.ID, nm)
	must(err)
	s.Parent, err = env.SchoolSvc.CreateParent(ctx, s.School.ID, member("Baraka Mutombo", prefix+"parent@test.cd"))
	must(err)

	s.Grade, err = env.SchoolSvc.CreateGrade(ctx, s.School.ID, school.NewGrade{Level: 7, Name: "Grade 7"})
	must(err)
	s.Group, err = env.SchoolSvc.CreateGroup(ctx, s.School.ID, school.NewGroup{GradeID: s.Grade.ID, Name: "7B", TeacherID: s.Teacher.ID})
	must(err)
	s.Lesson, err = env.SchoolSvc.CreateLesson(ctx, s.School.ID, school.NewLesson{Name: "Mathematics", TeacherID: s.Teacher.ID})
	must(err)

	for _, st := range []struct{ name, email, parentID string }{
		{"Neema Ilunga", prefix + "neema@test.cd", s.Parent.ID},
		{"Tumaini Ilunga", prefix + "tumaini@test.cd", ""},
	} {
		nm := member(st.name, st.email)
		nm.GroupID = s.Group.ID
		nm.ParentID = st.parentID
		nm.BirthDate = "2012-03-14"
		student, err := env.SchoolSvc.CreateStudent(ctx, s.School.ID, nm)
		must(err)
		s.Students = append(s.Students, student)
	}
	return s
}

// UserOf returns the account of a school member.
func (env *Env) UserOf(t *testing.T, userID string) user.User {
	t.Helper()
	usr, err := env.UserSvc.GetByID(context.Background(), userID)
	if err != nil {
		t.Fatalf("UserOf(%s): %v", userID, err)
	}
	return usr
}

func NewID() string {
	return uuid.New().String()
}
