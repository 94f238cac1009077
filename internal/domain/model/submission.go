package model

import "time"

type SubmissionStatus string

// Only finished evaluations are persisted; aborted or rejected attempts
// never produce a row.
const StatusCompleted SubmissionStatus = "Completed"

// Submission is immutable once created.
type Submission struct {
	ID              string           `json:"id"`
	ParticipantID   string           `json:"participant_id"`
	QuestionID      string           `json:"question_id"`
	Language        string           `json:"language"`
	Code            string           `json:"code,omitempty"`
	Score           float64          `json:"score"`
	TotalTests      int              `json:"total_tests"`
	PassedTests     int              `json:"passed_tests"`
	Status          SubmissionStatus `json:"status"`
	ExecutionTimeMs float64          `json:"execution_time_ms"` // mean across testcases
	CreatedAt       time.Time        `json:"created_at"`
}
