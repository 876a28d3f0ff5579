package inmemdb

import (
	"context"

	"github.com/trezcool/shule/core/exam"
)

type examRepository struct {
	db *DB
}

var _ exam.Repository = (*examRepository)(nil) // interface compliance check

func NewExamRepository(db *DB) exam.Repository {
	return &examRepository{db: db}
}

func (repo *examRepository) CreateExam(_ context.Context, ex exam.Exam) (exam.Exam, error) {
	tbl := repo.db.exam
	tbl.Lock()
	defer tbl.Unlock()
	tbl.exams[ex.ID] = ex
	return ex, nil
}

func (repo *examRepository) GetExam(_ context.Context, id string) (exam.Exam, error) {
	tbl := repo.db.exam
	tbl.RLock()
	defer tbl.RUnlock()
	if ex, ok := tbl.exams[id]; ok {
		return ex, nil
	}
	return exam.Exam{}, exam.ErrNotFound
}

// QueryExams leaves the ordering to the service.
func (repo *examRepository) QueryExams(_ context.Context, filter exam.Filter) ([]exam.Exam, error) {
	tbl := repo.db.exam
	tbl.RLock()
	defer tbl.RUnlock()

	exams := make([]exam.Exam, 0)
	for _, ex := range tbl.exams {
		if filter.Match(ex) {
			exams = append(exams, ex)
		}
	}
	return exams, nil
}

func (repo *examRepository) DeleteExam(_ context.Context, id string) error {
	tbl := repo.db.exam
	tbl.Lock()
	defer tbl.Unlock()

	delete(tbl.exams, id)
	for sid, s := range tbl.scores {
		if s.ExamID == id {
			delete(tbl.scores, sid)
		}
	}
	return nil
}

func (repo *examRepository) SaveScore(_ context.Context, s exam.Score) (exam.Score, error) {
	tbl := repo.db.exam
	tbl.Lock()
	defer tbl.Unlock()

	for _, old := range tbl.scores {
		if old.ExamID == s.ExamID && old.StudentID == s.StudentID {
			old.Value = s.Value
			old.Comment = s.Comment
			tbl.scores[old.ID] = old
			return old, nil
		}
	}
	tbl.scores[s.ID] = s
	return s, nil
}

func (repo *examRepository) queryScores(match func(s exam.Score) bool) []exam.Score {
	tbl := repo.db.exam
	tbl.RLock()
	defer tbl.RUnlock()

	scores := make([]exam.Score, 0)
	for _, s := range tbl.scores {
		if match(s) {
			scores = append(scores, s)
		}
	}
	return scores
}

func (repo *examRepository) QueryScores(_ context.Context, examID string) ([]exam.Score, error) {
	return repo.queryScores(func(s exam.Score) bool { return s.ExamID == examID }), nil
}

func (repo *examRepository) QueryStudentScores(_ context.Context, studentID string) ([]exam.Score, error) {
	return repo.queryScores(func(s exam.Score) bool { return s.StudentID == studentID }), nil
}
