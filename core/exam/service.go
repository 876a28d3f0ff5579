package exam

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
)

var (
	// errors
	ErrNotFound      = core.NewNotFoundError("exam not found")
	ErrScoreNotFound = core.NewNotFoundError("score not found")
)

type (
	Repository interface {
		CreateExam(ctx context.Context, ex Exam) (Exam, error)
		GetExam(ctx context.Context, id string) (Exam, error)
		QueryExams(ctx context.Context, filter Filter) ([]Exam, error)
		// DeleteExam deletes the exam along with its scores.
		DeleteExam(ctx context.Context, id string) error

		// SaveScore inserts the score or updates the existing one of the same (ExamID, StudentID).
		SaveScore(ctx context.Context, s Score) (Score, error)
		QueryScores(ctx context.Context, examID string) ([]Score, error)
		QueryStudentScores(ctx context.Context, studentID string) ([]Score, error)
	}

	Service interface {
		Create(ctx context.Context, ne NewExam) (Exam, error)
		Get(ctx context.Context, id string) (Exam, error)
		// Query returns the exams ordered by date, most recent first.
		Query(ctx context.Context, filter Filter) ([]Exam, error)
		Delete(ctx context.Context, id string) error

		RecordScore(ctx context.Context, examID string, ns NewScore) (Score, error)
		QueryScores(ctx context.Context, examID string) ([]Score, error)
		StudentScores(ctx context.Context, studentID string) ([]Score, error)
	}

	service struct {
		repo      Repository
		schoolSvc school.Service
		validate  *validator.Validate
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, schoolSvc school.Service, validate *validator.Validate) Service {
	return &service{
		repo:      repo,
		schoolSvc: schoolSvc,
		validate:  validate,
	}
}

func invalidRef(field, msg string) error {
	return core.NewValidationError(nil, core.FieldError{Field: field, Error: msg})
}

// checkRef turns a missing reference, or one of another school, into a validation error.
// Other lookup failures are returned as is.
func checkRef(err error, schoolID, wantSchoolID, field, msg string) error {
	switch {
	case err != nil && !core.IsNotFound(err):
		return errors.Wrapf(err, "getting %s", strings.TrimSuffix(field, "_id"))
	case err != nil || schoolID != wantSchoolID:
		return invalidRef(field, msg)
	}
	return nil
}

func (svc *service) Create(ctx context.Context, ne NewExam) (Exam, error) {
	if err := ne.Validate(svc.validate); err != nil {
		return Exam{}, err
	}
	group, err := svc.schoolSvc.GetGroup(ctx, ne.GroupID)
	if err := checkRef(err, group.SchoolID, ne.SchoolID, "group_id", "invalid group"); err != nil {
		return Exam{}, err
	}
	lesson, err := svc.schoolSvc.GetLesson(ctx, ne.LessonID)
	if err := checkRef(err, lesson.SchoolID, ne.SchoolID, "lesson_id", "invalid lesson"); err != nil {
		return Exam{}, err
	}
	if ne.TeacherID == "" {
		ne.TeacherID = lesson.TeacherID
	} else {
		teacher, err := svc.schoolSvc.GetTeacher(ctx, ne.TeacherID)
		if err := checkRef(err, teacher.SchoolID, ne.SchoolID, "teacher_id", "invalid teacher"); err != nil {
			return Exam{}, err
		}
	}

	return svc.repo.CreateExam(ctx, Exam{
		ID:        uuid.New().String(),
		SchoolID:  ne.SchoolID,
		GroupID:   ne.GroupID,
		LessonID:  ne.LessonID,
		TeacherID: ne.TeacherID,
		Title:     ne.Title,
		Date:      ne.Date,
		MaxScore:  ne.MaxScore,
		CreatedAt: time.Now().UTC(),
	})
}

func (svc *service) Get(ctx context.Context, id string) (Exam, error) {
	if id == "" {
		return Exam{}, ErrNotFound
	}
	return svc.repo.GetExam(ctx, id)
}

func (svc *service) Query(ctx context.Context, filter Filter) ([]Exam, error) {
	exams, err := svc.repo.QueryExams(ctx, filter)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(exams, func(i, j int) bool {
		if exams[i].Date != exams[j].Date {
			return exams[i].Date > exams[j].Date
		}
		return exams[i].CreatedAt.After(exams[j].CreatedAt)
	})
	return exams, nil
}

func (svc *service) Delete(ctx context.Context, id string) error {
	if _, err := svc.Get(ctx, id); err != nil {
		return err
	}
	return svc.repo.DeleteExam(ctx, id)
}

func (svc *service) RecordScore(ctx context.Context, examID string, ns NewScore) (Score, error) {
	ex, err := svc.Get(ctx, examID)
	if err != nil {
		return Score{}, err
	}
	if err = ns.Validate(svc.validate, ex); err != nil {
		return Score{}, err
	}
	student, err := svc.schoolSvc.GetStudent(ctx, ns.StudentID)
	if err != nil {
		if core.IsNotFound(err) {
			return Score{}, invalidRef("student_id", "invalid student")
		}
		return Score{}, errors.Wrap(err, "getting student")
	}
	if student.SchoolID != ex.SchoolID || student.GroupID != ex.GroupID {
		return Score{}, invalidRef("student_id", "the student did not sit this exam")
	}

	return svc.repo.SaveScore(ctx, Score{
		ID:        uuid.New().String(),
		ExamID:    ex.ID,
		StudentID: student.ID,
		Value:     ns.Value,
		Comment:   ns.Comment,
		CreatedAt: time.Now().UTC(),
	})
}

func (svc *service) QueryScores(ctx context.Context, examID string) ([]Score, error) {
	if _, err := svc.Get(ctx, examID); err != nil {
		return nil, err
	}
	return svc.repo.QueryScores(ctx, examID)
}

func (svc *service) StudentScores(ctx context.Context, studentID string) ([]Score, error) {
	return svc.repo.QueryStudentScores(ctx, studentID)
}
