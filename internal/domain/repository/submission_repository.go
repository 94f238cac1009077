package repository

import (
	"context"
	"database/sql"
	"fmt"

	"gauntlet/internal/domain/model"
)

type SubmissionRepository interface {
	CreateSubmission(ctx context.Context, sub *model.Submission) error
	// CountCompletedQuestionsPerExam returns examID -> number of distinct
	// questions under that exam for which the participant has a Completed
	// submission. Distinct question ids, not submission rows.
	CountCompletedQuestionsPerExam(ctx context.Context, participantID string) (map[string]int, error)
	ListForParticipantQuestion(ctx context.Context, participantID, questionID string, limit, offset int) ([]model.Submission, int, error)
	GetStandings(ctx context.Context, examID string, limit int) ([]model.StandingEntry, error)
}

type pgSubmissionRepository struct {
	db *sql.DB
}

func NewPgSubmissionRepository(db *sql.DB) SubmissionRepository {
	return &pgSubmissionRepository{db: db}
}

func (r *pgSubmissionRepository) CreateSubmission(ctx context.Context, sub *model.Submission) error {
	query := `INSERT INTO submissions
	          (id, participant_id, question_id, language, code, score, total_tests, passed_tests, status, execution_time_ms, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.db.ExecContext(ctx, query,
		sub.ID, sub.ParticipantID, sub.QuestionID, sub.Language, sub.Code,
		sub.Score, sub.TotalTests, sub.PassedTests, sub.Status, sub.ExecutionTimeMs, sub.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.CreateSubmission: %w", err)
	}
	return nil
}

func (r *pgSubmissionRepository) CountCompletedQuestionsPerExam(ctx context.Context, participantID string) (map[string]int, error) {
	query := `SELECT q.exam_id, COUNT(DISTINCT s.question_id)
	          FROM submissions s
	          JOIN questions q ON q.id = s.question_id
	          WHERE s.participant_id = $1 AND s.status = $2
	          GROUP BY q.exam_id`

	rows, err := r.db.QueryContext(ctx, query, participantID, model.StatusCompleted)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.CountCompletedQuestionsPerExam: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var examID string
		var count int
		if err := rows.Scan(&examID, &count); err != nil {
			return nil, fmt.Errorf("pgSubmissionRepository.CountCompletedQuestionsPerExam scan: %w", err)
		}
		counts[examID] = count
	}
	return counts, rows.Err()
}

func (r *pgSubmissionRepository) ListForParticipantQuestion(ctx context.Context, participantID, questionID string, limit, offset int) ([]model.Submission, int, error) {
	countQuery := `SELECT COUNT(*) FROM submissions WHERE participant_id = $1 AND question_id = $2`

	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, participantID, questionID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgSubmissionRepository.ListForParticipantQuestion count: %w", err)
	}

	query := `SELECT id, participant_id, question_id, language, code, score, total_tests, passed_tests, status, execution_time_ms, created_at
	          FROM submissions
	          WHERE participant_id = $1 AND question_id = $2
	          ORDER BY created_at DESC
	          LIMIT $3 OFFSET $4`

	rows, err := r.db.QueryContext(ctx, query, participantID, questionID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("pgSubmissionRepository.ListForParticipantQuestion: %w", err)
	}
	defer rows.Close()

	var subs []model.Submission
	for rows.Next() {
		var s model.Submission
		if err := rows.Scan(&s.ID, &s.ParticipantID, &s.QuestionID, &s.Language, &s.Code,
			&s.Score, &s.TotalTests, &s.PassedTests, &s.Status, &s.ExecutionTimeMs, &s.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("pgSubmissionRepository.ListForParticipantQuestion scan: %w", err)
		}
		subs = append(subs, s)
	}
	return subs, total, rows.Err()
}

func (r *pgSubmissionRepository) GetStandings(ctx context.Context, examID string, limit int) ([]model.StandingEntry, error) {
	// Best score per (participant, question), summed per participant.
	query := `SELECT best.participant_id, p.username, SUM(best.score), COUNT(best.question_id)
	          FROM (
	              SELECT s.participant_id, s.question_id, MAX(s.score) AS score
	              FROM submissions s
	              JOIN questions q ON q.id = s.question_id
	              WHERE q.exam_id = $1 AND s.status = $2
	              GROUP BY s.participant_id, s.question_id
	          ) best
	          JOIN participants p ON p.id = best.participant_id
	          GROUP BY best.participant_id, p.username
	          ORDER BY SUM(best.score) DESC, p.username ASC
	          LIMIT $3`

	rows, err := r.db.QueryContext(ctx, query, examID, model.StatusCompleted, limit)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.GetStandings: %w", err)
	}
	defer rows.Close()

	var entries []model.StandingEntry
	rank := 0
	for rows.Next() {
		var e model.StandingEntry
		if err := rows.Scan(&e.ParticipantID, &e.Username, &e.TotalScore, &e.QuestionsCompleted); err != nil {
			return nil, fmt.Errorf("pgSubmissionRepository.GetStandings scan: %w", err)
		}
		rank++
		e.Rank = rank
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
