package model

import "time"

// Exam is one level of the gauntlet. Levels are totally ordered by
// (Sequence, CreatedAt); the progression logic depends on that order being
// stable across calls.
type Exam struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Sequence    int        `json:"sequence"`
	CodeHash    string     `json:"-"` // bcrypt hash of the normalized join secret
	StartTime   *time.Time `json:"start_time,omitempty"`
	EndTime     *time.Time `json:"end_time,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// LevelStatus is the per-participant view of one exam level.
type LevelStatus struct {
	Exam      Exam `json:"exam"`
	Unlocked  bool `json:"unlocked"`
	Joined    bool `json:"joined"`
	Completed bool `json:"completed"`
	IsLive    bool `json:"is_live"`
}

type StandingEntry struct {
	Rank               int     `json:"rank"`
	ParticipantID      string  `json:"participant_id"`
	Username           string  `json:"username"`
	TotalScore         float64 `json:"total_score"`
	QuestionsCompleted int     `json:"questions_completed"`
}
