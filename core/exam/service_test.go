package exam_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/exam"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/tests"
)

func TestService(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	s := env.CreateSchool(t, "Lycée Wima", "wima-")
	other := env.CreateSchool(t, "Institut Maria", "maria-")

	newExam := func(title, date string) exam.NewExam {
		return exam.NewExam{SchoolID: s.School.ID, GroupID: s.Group.ID, LessonID: s.Lesson.ID, Title: title, Date: date, MaxScore: 20}
	}

	t.Run("invalid references", func(t *testing.T) {
		tests := []struct {
			name    string
			ne      exam.NewExam
			wantFld string
		}{
			{name: "lesson", ne: exam.NewExam{SchoolID: s.School.ID, GroupID: s.Group.ID, LessonID: other.Lesson.ID, Title: "T", Date: "2026-03-02", MaxScore: 20}, wantFld: "lesson_id"},
			{name: "teacher", ne: exam.NewExam{SchoolID: s.School.ID, GroupID: s.Group.ID, LessonID: s.Lesson.ID, TeacherID: other.Teacher.ID, Title: "T", Date: "2026-03-02", MaxScore: 20}, wantFld: "teacher_id"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := env.ExamSvc.Create(ctx, tt.ne)
				var vErr *core.ValidationError
				require.True(t, errors.As(err, &vErr), "got %v", err)
				assert.Equal(t, tt.wantFld, vErr.Fields[0].Field)
			})
		}
	})

	algebra, err := env.ExamSvc.Create(ctx, newExam("Algebra", "2026-03-02"))
	require.NoError(t, err)
	assert.Equal(t, s.Teacher.ID, algebra.TeacherID) // the lesson's
	geometry, err := env.ExamSvc.Create(ctx, newExam("Geometry", "2026-03-09"))
	require.NoError(t, err)

	exams, err := env.ExamSvc.Query(ctx, exam.Filter{SchoolID: s.School.ID})
	require.NoError(t, err)
	assert.Equal(t, []exam.Exam{geometry, algebra}, exams) // latest first

	exams, err = env.ExamSvc.Query(ctx, exam.Filter{SchoolID: other.School.ID})
	require.NoError(t, err)
	assert.Empty(t, exams)

	t.Run("scores", func(t *testing.T) {
		neema := s.Students[0]
		score, err := env.ExamSvc.RecordScore(ctx, algebra.ID, exam.NewScore{StudentID: neema.ID, Value: 12})
		require.NoError(t, err)
		assert.Equal(t, 60.0, score.Percentage(algebra))

		// recording again corrects the score
		fixed, err := env.ExamSvc.RecordScore(ctx, algebra.ID, exam.NewScore{StudentID: neema.ID, Value: 14, Comment: " recounted "})
		require.NoError(t, err)
		assert.Equal(t, score.ID, fixed.ID)
		assert.Equal(t, "recounted", fixed.Comment)

		_, err = env.ExamSvc.RecordScore(ctx, geometry.ID, exam.NewScore{StudentID: neema.ID, Value: 20})
		require.NoError(t, err)

		scores, err := env.ExamSvc.QueryScores(ctx, algebra.ID)
		require.NoError(t, err)
		require.Len(t, scores, 1)
		assert.Equal(t, 14.0, scores[0].Value)

		scores, err = env.ExamSvc.StudentScores(ctx, neema.ID)
		require.NoError(t, err)
		assert.Len(t, scores, 2)

		_, err = env.ExamSvc.RecordScore(ctx, algebra.ID, exam.NewScore{StudentID: testutil.NewID(), Value: 1})
		var vErr *core.ValidationError
		require.True(t, errors.As(err, &vErr))
		assert.Equal(t, "student_id", vErr.Fields[0].Field)
	})

	require.NoError(t, env.ExamSvc.Delete(ctx, algebra.ID))
	_, err = env.ExamSvc.Get(ctx, algebra.ID)
	assert.True(t, core.IsNotFound(err))
	assert.True(t, core.IsNotFound(env.ExamSvc.Delete(ctx, algebra.ID)))
	_, err = env.ExamSvc.QueryScores(ctx, algebra.ID)
	assert.True(t, core.IsNotFound(err))
}

func TestService_Create_storageFailure(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	s := env.CreateSchool(t, "Lycée Wima", "wima-")
	schoolSvc := school.NewService(testutil.BrokenSchoolRepository{Repository: env.SchoolRepo}, env.UserSvc, env.Validate)
	svc := exam.NewService(env.ExamRepo, schoolSvc, env.Validate)

	_, err := svc.Create(ctx, exam.NewExam{SchoolID: s.School.ID, GroupID: s.Group.ID, LessonID: s.Lesson.ID, Title: "T", Date: "2026-03-02", MaxScore: 20})
	var vErr *core.ValidationError
	assert.False(t, errors.As(err, &vErr), "got %v", err)
	assert.Equal(t, testutil.ErrStorage, errors.Cause(err))
}
