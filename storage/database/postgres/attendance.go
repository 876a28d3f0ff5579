package pgrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/attendance"
)

const attendanceColumns = `id, school_id, student_id, group_id, CAST(date AS TEXT) AS date, status, note, marked_by, created_at, updated_at`

type attendanceRow struct {
	ID        string    `db:"id"`
	SchoolID  string    `db:"school_id"`
	StudentID string    `db:"student_id"`
	GroupID   string    `db:"group_id"`
	Date      string    `db:"date"`
	Status    string    `db:"status"`
	Note      string    `db:"note"`
	MarkedBy  string    `db:"marked_by"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type attendanceRepository struct {
	db *sqlx.DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *sqlx.DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

func (repo *attendanceRepository) boil(a attendance.Attendance) attendanceRow {
	return attendanceRow{
		ID:        a.ID,
		SchoolID:  a.SchoolID,
		StudentID: a.StudentID,
		GroupID:   a.GroupID,
		Date:      a.Date,
		Status:    string(a.Status),
		Note:      a.Note,
		MarkedBy:  a.MarkedBy,
		CreatedAt: a.CreatedAt.UTC(),
		UpdatedAt: a.UpdatedAt.UTC(),
	}
}

func (repo *attendanceRepository) unboil(row attendanceRow) attendance.Attendance {
	return attendance.Attendance{
		ID:        row.ID,
		SchoolID:  row.SchoolID,
		StudentID: row.StudentID,
		GroupID:   row.GroupID,
		Date:      row.Date,
		Status:    attendance.Status(row.Status),
		Note:      row.Note,
		MarkedBy:  row.MarkedBy,
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
}

// SaveAttendances upserts all records in a single transaction.
func (repo *attendanceRepository) SaveAttendances(ctx context.Context, records ...attendance.Attendance) ([]attendance.Attendance, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	q := `INSERT INTO attendances (id, school_id, student_id, group_id, date, status, note, marked_by, created_at, updated_at)
		VALUES (:id, :school_id, :student_id, :group_id, :date, :status, :note, :marked_by, :created_at, :updated_at)
		ON CONFLICT (student_id, date) DO UPDATE SET status = EXCLUDED.status, note = EXCLUDED.note,
			group_id = EXCLUDED.group_id, marked_by = EXCLUDED.marked_by, updated_at = EXCLUDED.updated_at
		RETURNING ` + attendanceColumns

	saved := make([]attendance.Attendance, 0, len(records))
	for _, rec := range records {
		rows, err := sqlx.NamedQueryContext(ctx, tx, q, repo.boil(rec))
		if err != nil {
			return nil, errors.Wrap(err, "saving attendance")
		}
		var row attendanceRow
		for rows.Next() {
			if err = rows.StructScan(&row); err != nil {
				_ = rows.Close()
				return nil, errors.Wrap(err, "saving attendance")
			}
		}
		_ = rows.Close()
		saved = append(saved, repo.unboil(row))
	}
	if err = tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "committing attendances")
	}
	return saved, nil
}

func (repo *attendanceRepository) QueryAttendances(ctx context.Context, filter attendance.Filter) ([]attendance.Attendance, error) {
	w := newWhere()
	if filter.SchoolID != "" {
		w.add("school_id = :school_id", "school_id", filter.SchoolID)
	}
	if filter.GroupID != "" {
		w.add("group_id = :group_id", "group_id", filter.GroupID)
	}
	if filter.StudentID != "" {
		w.add("student_id = :student_id", "student_id", filter.StudentID)
	}
	if filter.From != "" {
		w.add("date >= :from", "from", filter.From)
	}
	if filter.To != "" {
		w.add("date <= :to", "to", filter.To)
	}
	if len(filter.Statuses) > 0 {
		w.add("status IN (:statuses)", "statuses", filter.Statuses)
	}

	var rows []attendanceRow
	q := `SELECT ` + attendanceColumns + ` FROM attendances` + w.String() + ` ORDER BY date, student_id`
	if err := selectNamed(ctx, repo.db, &rows, q, w); err != nil {
		return nil, errors.Wrap(err, "querying attendances")
	}
	records := make([]attendance.Attendance, 0, len(rows))
	for _, row := range rows {
		records = append(records, repo.unboil(row))
	}
	return records, nil
}
