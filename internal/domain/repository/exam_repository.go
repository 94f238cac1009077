package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gauntlet/internal/common"
	"gauntlet/internal/domain/model"
)

type ExamRepository interface {
	// ListExamsOrdered returns every exam in total order: sequence first,
	// creation time as the tie-breaker. Progression and shuffling both rely
	// on this order being deterministic.
	ListExamsOrdered(ctx context.Context) ([]model.Exam, error)
	GetExamByID(ctx context.Context, id string) (*model.Exam, error)
	ListJoinedExamIDs(ctx context.Context, participantID string) ([]string, error)
	JoinExam(ctx context.Context, participantID, examID string) error
}

type pgExamRepository struct {
	db *sql.DB
}

func NewPgExamRepository(db *sql.DB) ExamRepository {
	return &pgExamRepository{db: db}
}

const examColumns = `id, title, description, sequence, code_hash, start_time, end_time, created_at`

func scanExam(row interface {
	Scan(dest ...interface{}) error
}) (*model.Exam, error) {
	exam := &model.Exam{}
	err := row.Scan(
		&exam.ID, &exam.Title, &exam.Description, &exam.Sequence,
		&exam.CodeHash, &exam.StartTime, &exam.EndTime, &exam.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return exam, nil
}

func (r *pgExamRepository) ListExamsOrdered(ctx context.Context) ([]model.Exam, error) {
	query := `SELECT ` + examColumns + ` FROM exams ORDER BY sequence ASC, created_at ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("pgExamRepository.ListExamsOrdered: %w", err)
	}
	defer rows.Close()

	var exams []model.Exam
	for rows.Next() {
		exam, err := scanExam(rows)
		if err != nil {
			return nil, fmt.Errorf("pgExamRepository.ListExamsOrdered scan: %w", err)
		}
		exams = append(exams, *exam)
	}
	return exams, rows.Err()
}

func (r *pgExamRepository) GetExamByID(ctx context.Context, id string) (*model.Exam, error) {
	query := `SELECT ` + examColumns + ` FROM exams WHERE id = $1`

	exam, err := scanExam(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgExamRepository.GetExamByID: %w", err)
	}
	return exam, nil
}

func (r *pgExamRepository) ListJoinedExamIDs(ctx context.Context, participantID string) ([]string, error) {
	query := `SELECT exam_id FROM exam_participants WHERE participant_id = $1`

	rows, err := r.db.QueryContext(ctx, query, participantID)
	if err != nil {
		return nil, fmt.Errorf("pgExamRepository.ListJoinedExamIDs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("pgExamRepository.ListJoinedExamIDs scan: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *pgExamRepository) JoinExam(ctx context.Context, participantID, examID string) error {
	// Joining twice is a no-op.
	query := `INSERT INTO exam_participants (participant_id, exam_id, joined_at)
	          VALUES ($1, $2, CURRENT_TIMESTAMP)
	          ON CONFLICT (participant_id, exam_id) DO NOTHING`

	if _, err := r.db.ExecContext(ctx, query, participantID, examID); err != nil {
		return fmt.Errorf("pgExamRepository.JoinExam: %w", err)
	}
	return nil
}
