package attendance_test

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/tests"
)

func TestService_Mark(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	s := env.CreateSchool(t, "Lycée Wima", "wima-")
	other := env.CreateSchool(t, "Institut Maria", "maria-")
	neema, tumaini := s.Students[0], s.Students[1]

	mr := func(schoolID, groupID, date string, entries ...attendance.Entry) attendance.MarkRequest {
		return attendance.MarkRequest{SchoolID: schoolID, GroupID: groupID, Date: date, Entries: entries}
	}
	present := func(studentID string) attendance.Entry {
		return attendance.Entry{StudentID: studentID, Status: attendance.StatusPresent}
	}

	t.Run("validation", func(t *testing.T) {
		tests := []struct {
			name    string
			mr      attendance.MarkRequest
			wantFld string
		}{
			{name: "no entries", mr: mr(s.School.ID, s.Group.ID, "2026-03-02"), wantFld: "entries"},
			{name: "invalid date", mr: mr(s.School.ID, s.Group.ID, "2026-02-30", present(neema.ID)), wantFld: "date"},
			{
				name:    "invalid status",
				mr:      mr(s.School.ID, s.Group.ID, "2026-03-02", attendance.Entry{StudentID: neema.ID, Status: "late"}),
				wantFld: "status",
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := env.AttendanceSvc.Mark(ctx, tt.mr, s.Teacher.UserID)
				var vErrs validator.ValidationErrors
				require.True(t, errors.As(err, &vErrs), "got %v", err)
				assert.Equal(t, tt.wantFld, vErrs[0].Field())
			})
		}
	})

	t.Run("roster checks", func(t *testing.T) {
		tests := []struct {
			name    string
			mr      attendance.MarkRequest
			wantErr string
		}{
			{name: "group of another school", mr: mr(s.School.ID, other.Group.ID, "2026-03-02", present(neema.ID)), wantErr: "group_id: invalid group"},
			{
				name:    "student of another group",
				mr:      mr(s.School.ID, s.Group.ID, "2026-03-02", present(other.Students[0].ID)),
				wantErr: "student_id: student " + other.Students[0].ID + " is not in this group",
			},
			{
				name:    "listed twice",
				mr:      mr(s.School.ID, s.Group.ID, "2026-03-02", present(neema.ID), present(neema.ID)),
				wantErr: "student_id: student " + neema.ID + " is listed twice",
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := env.AttendanceSvc.Mark(ctx, tt.mr, s.Teacher.UserID)
				var vErr *core.ValidationError
				require.True(t, errors.As(err, &vErr), "got %v", err)
				assert.Equal(t, tt.wantErr, vErr.Error())
			})
		}
		recs, err := env.AttendanceSvc.Query(ctx, attendance.Filter{})
		require.NoError(t, err)
		assert.Empty(t, recs)
	})

	first, err := env.AttendanceSvc.Mark(ctx, mr(s.School.ID, s.Group.ID, "2026-03-02",
		present(neema.ID),
		attendance.Entry{StudentID: tumaini.ID, Status: " Sick ", Note: " fever "},
	), s.Teacher.UserID)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, attendance.StatusSick, first[1].Status)
	assert.Equal(t, "fever", first[1].Note)
	assert.Equal(t, s.Group.ID, first[1].GroupID)

	// re-marking updates the day's record
	again, err := env.AttendanceSvc.Mark(ctx, mr(s.School.ID, s.Group.ID, "2026-03-02", present(tumaini.ID)), s.Admin.UserID)
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, first[1].ID, again[0].ID)
	assert.Equal(t, attendance.StatusPresent, again[0].Status)
	assert.Equal(t, s.Admin.UserID, again[0].MarkedBy)

	recs, err := env.AttendanceSvc.Query(ctx, attendance.Filter{GroupID: s.Group.ID})
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestService_summaries(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	s := env.CreateSchool(t, "Lycée Wima", "wima-")
	neema, tumaini := s.Students[0], s.Students[1]

	days := []struct {
		date   string
		status attendance.Status
	}{
		{"2026-03-02", attendance.StatusPresent},
		{"2026-03-03", attendance.StatusAbsent},
		{"2026-03-04", attendance.StatusExcused},
		{"2026-03-05", attendance.StatusPresent},
	}
	for _, d := range days {
		_, err := env.AttendanceSvc.Mark(ctx, attendance.MarkRequest{
			SchoolID: s.School.ID,
			GroupID:  s.Group.ID,
			Date:     d.date,
			Entries:  []attendance.Entry{{StudentID: neema.ID, Status: d.status}},
		}, s.Teacher.UserID)
		require.NoError(t, err)
	}

	sum, err := env.AttendanceSvc.StudentSummary(ctx, neema.ID, "", "")
	require.NoError(t, err)
	assert.Equal(t, 4, sum.Summary.Total)
	assert.Equal(t, 62.5, sum.Summary.Percentage)
	assert.Equal(t, "D", sum.Summary.Grade)
	assert.Equal(t, 2, sum.Summary.Counts[attendance.StatusPresent])

	sum, err = env.AttendanceSvc.StudentSummary(ctx, neema.ID, "2026-03-04", "2026-03-05")
	require.NoError(t, err)
	assert.Equal(t, 75.0, sum.Summary.Percentage)

	_, err = env.AttendanceSvc.StudentSummary(ctx, testutil.NewID(), "", "")
	assert.True(t, core.IsNotFound(err))

	sums, err := env.AttendanceSvc.GroupSummary(ctx, s.Group.ID, "2026-03-02", "2026-03-03")
	require.NoError(t, err)
	require.Len(t, sums, 2)
	assert.Equal(t, "Neema Ilunga", sums[0].StudentName)
	assert.Equal(t, 50.0, sums[0].Summary.Percentage)
	assert.Equal(t, "F", sums[0].Summary.Grade)
	assert.Equal(t, tumaini.ID, sums[1].StudentID)
	assert.Equal(t, 0, sums[1].Summary.Total)
	assert.Equal(t, attendance.GradeNA, sums[1].Summary.Grade)
}

func TestService_Mark_storageFailure(t *testing.T) {
	env := testutil.NewEnv(t)
	s := env.CreateSchool(t, "Lycée Wima", "wima-")
	schoolSvc := school.NewService(testutil.BrokenSchoolRepository{Repository: env.SchoolRepo}, env.UserSvc, env.Validate)
	svc := attendance.NewService(env.AttendanceRepo, schoolSvc, env.Validate)

	_, err := svc.Mark(context.Background(), attendance.MarkRequest{
		SchoolID: s.School.ID,
		GroupID:  s.Group.ID,
		Date:     "2026-03-02",
		Entries:  []attendance.Entry{{StudentID: s.Students[0].ID, Status: attendance.StatusPresent}},
	}, s.Teacher.UserID)
	var vErr *core.ValidationError
	assert.False(t, errors.As(err, &vErr), "got %v", err)
	assert.Equal(t, testutil.ErrStorage, errors.Cause(err))
}
