package pgrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/exam"
)

const (
	examColumns  = `id, school_id, group_id, lesson_id, teacher_id, title, CAST(date AS TEXT) AS date, max_score, created_at`
	scoreColumns = `id, exam_id, student_id, value, comment, created_at`
)

type (
	examRow struct {
		ID        string         `db:"id"`
		SchoolID  string         `db:"school_id"`
		GroupID   string         `db:"group_id"`
		LessonID  string         `db:"lesson_id"`
		TeacherID sql.NullString `db:"teacher_id"`
		Title     string         `db:"title"`
		Date      string         `db:"date"`
		MaxScore  float64        `db:"max_score"`
		CreatedAt time.Time      `db:"created_at"`
	}

	scoreRow struct {
		ID        string    `db:"id"`
		ExamID    string    `db:"exam_id"`
		StudentID string    `db:"student_id"`
		Value     float64   `db:"value"`
		Comment   string    `db:"comment"`
		CreatedAt time.Time `db:"created_at"`
	}
)

type examRepository struct {
	db *sqlx.DB
}

var _ exam.Repository = (*examRepository)(nil) // interface compliance check

func NewExamRepository(db *sqlx.DB) exam.Repository {
	return &examRepository{db: db}
}

func (repo *examRepository) boil(ex exam.Exam) examRow {
	return examRow{
		ID:        ex.ID,
		SchoolID:  ex.SchoolID,
		GroupID:   ex.GroupID,
		LessonID:  ex.LessonID,
		TeacherID: nullString(ex.TeacherID),
		Title:     ex.Title,
		Date:      ex.Date,
		MaxScore:  ex.MaxScore,
		CreatedAt: ex.CreatedAt.UTC(),
	}
}

func (repo *examRepository) unboil(row examRow) exam.Exam {
	return exam.Exam{
		ID:        row.ID,
		SchoolID:  row.SchoolID,
		GroupID:   row.GroupID,
		LessonID:  row.LessonID,
		TeacherID: row.TeacherID.String,
		Title:     row.Title,
		Date:      row.Date,
		MaxScore:  row.MaxScore,
		CreatedAt: row.CreatedAt.UTC(),
	}
}

func (repo *examRepository) CreateExam(ctx context.Context, ex exam.Exam) (exam.Exam, error) {
	q := `INSERT INTO exams (id, school_id, group_id, lesson_id, teacher_id, title, date, max_score, created_at)
		VALUES (:id, :school_id, :group_id, :lesson_id, :teacher_id, :title, :date, :max_score, :created_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, repo.boil(ex)); err != nil {
		return exam.Exam{}, errors.Wrap(err, "inserting exam")
	}
	return ex, nil
}

func (repo *examRepository) GetExam(ctx context.Context, id string) (exam.Exam, error) {
	if _, err := uuid.Parse(id); err != nil {
		return exam.Exam{}, exam.ErrNotFound
	}
	var row examRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+examColumns+` FROM exams WHERE id = $1`, id); err != nil {
		return exam.Exam{}, trapNoRowsErr(err, exam.ErrNotFound, "getting exam")
	}
	return repo.unboil(row), nil
}

func (repo *examRepository) QueryExams(ctx context.Context, filter exam.Filter) ([]exam.Exam, error) {
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

	var rows []examRow
	q := `SELECT ` + examColumns + ` FROM exams` + w.String() + ` ORDER BY date DESC, created_at DESC`
	if err := selectNamed(ctx, repo.db, &rows, q, w); err != nil {
		return nil, errors.Wrap(err, "querying exams")
	}
	exams := make([]exam.Exam, 0, len(rows))
	for _, row := range rows {
		exams = append(exams, repo.unboil(row))
	}
	return exams, nil
}

// DeleteExam relies on ON DELETE CASCADE for the scores.
func (repo *examRepository) DeleteExam(ctx context.Context, id string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM exams WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting exam")
	}
	return nil
}

func (repo *examRepository) SaveScore(ctx context.Context, s exam.Score) (exam.Score, error) {
	q := `INSERT INTO scores (` + scoreColumns + `) VALUES (:id, :exam_id, :student_id, :value, :comment, :created_at)
		ON CONFLICT (exam_id, student_id) DO UPDATE SET value = EXCLUDED.value, comment = EXCLUDED.comment
		RETURNING ` + scoreColumns
	rows, err := repo.db.NamedQueryContext(ctx, q, scoreRow(s))
	if err != nil {
		return exam.Score{}, errors.Wrap(err, "saving score")
	}
	defer func() { _ = rows.Close() }()

	var row scoreRow
	if rows.Next() {
		if err = rows.StructScan(&row); err != nil {
			return exam.Score{}, errors.Wrap(err, "saving score")
		}
	}
	if err = rows.Err(); err != nil {
		return exam.Score{}, errors.Wrap(err, "saving score")
	}
	row.CreatedAt = row.CreatedAt.UTC()
	return exam.Score(row), nil
}

func (repo *examRepository) queryScores(ctx context.Context, column, id string) ([]exam.Score, error) {
	var rows []scoreRow
	q := `SELECT ` + scoreColumns + ` FROM scores WHERE ` + column + ` = $1 ORDER BY created_at`
	if err := repo.db.SelectContext(ctx, &rows, q, id); err != nil {
		return nil, errors.Wrap(err, "querying scores")
	}
	scores := make([]exam.Score, 0, len(rows))
	for _, row := range rows {
		row.CreatedAt = row.CreatedAt.UTC()
		scores = append(scores, exam.Score(row))
	}
	return scores, nil
}

func (repo *examRepository) QueryScores(ctx context.Context, examID string) ([]exam.Score, error) {
	return repo.queryScores(ctx, "exam_id", examID)
}

func (repo *examRepository) QueryStudentScores(ctx context.Context, studentID string) ([]exam.Score, error) {
	return repo.queryScores(ctx, "student_id", studentID)
}
