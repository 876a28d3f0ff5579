package attendance

import (
	"context"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
)

type (
	Repository interface {
		// SaveAttendances inserts the records, or updates the existing ones of the same (StudentID, Date).
		SaveAttendances(ctx context.Context, records ...Attendance) ([]Attendance, error)
		QueryAttendances(ctx context.Context, filter Filter) ([]Attendance, error)
	}

	// StudentSummary is a Student's attendance Summary over a period.
	StudentSummary struct {
		StudentID   string  `json:"student_id"`
		StudentName string  `json:"student_name"`
		Summary     Summary `json:"summary"`
	}

	Service interface {
		Mark(ctx context.Context, mr MarkRequest, markedBy string) ([]Attendance, error)
		// Query returns the records ordered by date then student.
		Query(ctx context.Context, filter Filter) ([]Attendance, error)
		StudentSummary(ctx context.Context, studentID, from, to string) (StudentSummary, error)
		// GroupSummary returns the summary of every student of the group, ordered by name.
		GroupSummary(ctx context.Context, groupID, from, to string) ([]StudentSummary, error)
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

func (svc *service) Mark(ctx context.Context, mr MarkRequest, markedBy string) ([]Attendance, error) {
	if err := mr.Validate(svc.validate); err != nil {
		return nil, err
	}
	group, err := svc.schoolSvc.GetGroup(ctx, mr.GroupID)
	if err != nil && !core.IsNotFound(err) {
		return nil, errors.Wrap(err, "getting group")
	}
	if err != nil || group.SchoolID != mr.SchoolID {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "group_id", Error: "invalid group"})
	}
	roster, err := svc.schoolSvc.QueryStudents(ctx, school.PeopleFilter{SchoolID: group.SchoolID, GroupID: group.ID})
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	inGroup := make(map[string]bool, len(roster))
	for _, s := range roster {
		inGroup[s.ID] = true
	}

	now := time.Now().UTC()
	records := make([]Attendance, 0, len(mr.Entries))
	seen := make(map[string]bool, len(mr.Entries))
	for _, entry := range mr.Entries {
		if !inGroup[entry.StudentID] {
			return nil, core.NewValidationError(nil, core.FieldError{Field: "student_id", Error: "student " + entry.StudentID + " is not in this group"})
		}
		if seen[entry.StudentID] {
			return nil, core.NewValidationError(nil, core.FieldError{Field: "student_id", Error: "student " + entry.StudentID + " is listed twice"})
		}
		seen[entry.StudentID] = true
		records = append(records, Attendance{
			ID:        uuid.New().String(),
			SchoolID:  group.SchoolID,
			StudentID: entry.StudentID,
			GroupID:   group.ID,
			Date:      mr.Date,
			Status:    entry.Status,
			Note:      entry.Note,
			MarkedBy:  markedBy,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	return svc.repo.SaveAttendances(ctx, records...)
}

func (svc *service) Query(ctx context.Context, filter Filter) ([]Attendance, error) {
	filter.Clean()
	records, err := svc.repo.QueryAttendances(ctx, filter)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Date != records[j].Date {
			return records[i].Date < records[j].Date
		}
		return records[i].StudentID < records[j].StudentID
	})
	return records, nil
}

func (svc *service) StudentSummary(ctx context.Context, studentID, from, to string) (StudentSummary, error) {
	student, err := svc.schoolSvc.GetStudent(ctx, studentID)
	if err != nil {
		return StudentSummary{}, err
	}
	records, err := svc.repo.QueryAttendances(ctx, Filter{StudentID: student.ID, From: from, To: to})
	if err != nil {
		return StudentSummary{}, errors.Wrap(err, "querying attendances")
	}
	sum, err := Score(records)
	if err != nil && err != ErrNoData {
		return StudentSummary{}, err
	}
	return StudentSummary{StudentID: student.ID, StudentName: student.Name, Summary: sum}, nil
}

func (svc *service) GroupSummary(ctx context.Context, groupID, from, to string) ([]StudentSummary, error) {
	group, err := svc.schoolSvc.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	roster, err := svc.schoolSvc.QueryStudents(ctx, school.PeopleFilter{SchoolID: group.SchoolID, GroupID: group.ID})
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	records, err := svc.repo.QueryAttendances(ctx, Filter{GroupID: group.ID, From: from, To: to})
	if err != nil {
		return nil, errors.Wrap(err, "querying attendances")
	}

	byStudent := make(map[string][]Attendance, len(roster))
	for _, rec := range records {
		byStudent[rec.StudentID] = append(byStudent[rec.StudentID], rec)
	}

	sort.SliceStable(roster, func(i, j int) bool { return roster[i].Name < roster[j].Name })
	sums := make([]StudentSummary, 0, len(roster))
	for _, student := range roster {
		sum, _ := Score(byStudent[student.ID]) // ErrNoData => N/A
		sums = append(sums, StudentSummary{StudentID: student.ID, StudentName: student.Name, Summary: sum})
	}
	return sums, nil
}
