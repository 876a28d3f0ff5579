package inmemdb

import (
	"context"

	"github.com/trezcool/shule/core/attendance"
)

type attendanceRepository struct {
	db *DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

func (repo *attendanceRepository) SaveAttendances(_ context.Context, records ...attendance.Attendance) ([]attendance.Attendance, error) {
	tbl := repo.db.attendance
	tbl.Lock()
	defer tbl.Unlock()

	// index existing records by (student, date)
	existing := make(map[[2]string]attendance.Attendance, len(tbl.table))
	for _, rec := range tbl.table {
		existing[[2]string{rec.StudentID, rec.Date}] = rec
	}

	saved := make([]attendance.Attendance, 0, len(records))
	for _, rec := range records {
		if old, ok := existing[[2]string{rec.StudentID, rec.Date}]; ok {
			old.GroupID = rec.GroupID
			old.Status = rec.Status
			old.Note = rec.Note
			old.MarkedBy = rec.MarkedBy
			old.UpdatedAt = rec.UpdatedAt
			rec = old
		}
		tbl.table[rec.ID] = rec
		saved = append(saved, rec)
	}
	return saved, nil
}

func (repo *attendanceRepository) QueryAttendances(_ context.Context, filter attendance.Filter) ([]attendance.Attendance, error) {
	tbl := repo.db.attendance
	tbl.RLock()
	defer tbl.RUnlock()

	records := make([]attendance.Attendance, 0)
	for _, rec := range tbl.table {
		if filter.Match(rec) {
			records = append(records, rec)
		}
	}
	return records, nil
}
