package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"gauntlet/internal/common"
	"gauntlet/internal/domain/model"

	"github.com/gosimple/slug"
)

type QuestionRepository interface {
	GetQuestionByID(ctx context.Context, id string) (*model.Question, error)
	ListQuestionsByExamID(ctx context.Context, examID string) ([]model.Question, error)
	GetTestcasesByQuestionID(ctx context.Context, questionID string) ([]model.Testcase, error)
	// CountQuestionsPerExam returns examID -> question count for all exams.
	CountQuestionsPerExam(ctx context.Context) (map[string]int, error)
}

type pgQuestionRepository struct {
	db *sql.DB
}

func NewPgQuestionRepository(db *sql.DB) QuestionRepository {
	return &pgQuestionRepository{db: db}
}

const questionColumns = `id, exam_id, title, slug, statement, time_limit_seconds, memory_limit_mb, max_marks, allowed_languages, created_at`

func scanQuestion(row interface {
	Scan(dest ...interface{}) error
}) (*model.Question, error) {
	q := &model.Question{}
	var qSlug sql.NullString
	var languages string
	err := row.Scan(
		&q.ID, &q.ExamID, &q.Title, &qSlug, &q.Statement,
		&q.TimeLimitSeconds, &q.MemoryLimitMb, &q.MaxMarks, &languages, &q.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	// Legacy rows may lack a slug.
	if qSlug.Valid && qSlug.String != "" {
		q.Slug = qSlug.String
	} else {
		q.Slug = slug.Make(q.Title)
	}
	if languages != "" {
		for _, l := range strings.Split(languages, ",") {
			if l = strings.TrimSpace(l); l != "" {
				q.AllowedLanguages = append(q.AllowedLanguages, l)
			}
		}
	}
	return q, nil
}

func (r *pgQuestionRepository) GetQuestionByID(ctx context.Context, id string) (*model.Question, error) {
	query := `SELECT ` + questionColumns + ` FROM questions WHERE id = $1`

	q, err := scanQuestion(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgQuestionRepository.GetQuestionByID: %w", err)
	}
	return q, nil
}

func (r *pgQuestionRepository) ListQuestionsByExamID(ctx context.Context, examID string) ([]model.Question, error) {
	query := `SELECT ` + questionColumns + ` FROM questions WHERE exam_id = $1 ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, examID)
	if err != nil {
		return nil, fmt.Errorf("pgQuestionRepository.ListQuestionsByExamID: %w", err)
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("pgQuestionRepository.ListQuestionsByExamID scan: %w", err)
		}
		questions = append(questions, *q)
	}
	return questions, rows.Err()
}

func (r *pgQuestionRepository) GetTestcasesByQuestionID(ctx context.Context, questionID string) ([]model.Testcase, error) {
	query := `SELECT id, question_id, input, expected_output, visibility, sort_order, created_at
	          FROM testcases WHERE question_id = $1 ORDER BY sort_order ASC, created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, questionID)
	if err != nil {
		return nil, fmt.Errorf("pgQuestionRepository.GetTestcasesByQuestionID: %w", err)
	}
	defer rows.Close()

	var testcases []model.Testcase
	for rows.Next() {
		var tc model.Testcase
		if err := rows.Scan(&tc.ID, &tc.QuestionID, &tc.Input, &tc.ExpectedOutput, &tc.Visibility, &tc.SortOrder, &tc.CreatedAt); err != nil {
			return nil, fmt.Errorf("pgQuestionRepository.GetTestcasesByQuestionID scan: %w", err)
		}
		testcases = append(testcases, tc)
	}
	return testcases, rows.Err()
}

func (r *pgQuestionRepository) CountQuestionsPerExam(ctx context.Context) (map[string]int, error) {
	query := `SELECT exam_id, COUNT(*) FROM questions GROUP BY exam_id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("pgQuestionRepository.CountQuestionsPerExam: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var examID string
		var count int
		if err := rows.Scan(&examID, &count); err != nil {
			return nil, fmt.Errorf("pgQuestionRepository.CountQuestionsPerExam scan: %w", err)
		}
		counts[examID] = count
	}
	return counts, rows.Err()
}
