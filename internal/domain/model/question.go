package model

import "time"

type TestcaseVisibility string

const (
	VisibilityVisible TestcaseVisibility = "VISIBLE"
	VisibilityHidden  TestcaseVisibility = "HIDDEN"
)

type Question struct {
	ID               string     `json:"id"`
	ExamID           string     `json:"exam_id"`
	Title            string     `json:"title"`
	Slug             string     `json:"slug"`
	Statement        string     `json:"statement"`
	TimeLimitSeconds int        `json:"time_limit_seconds"`
	MemoryLimitMb    int        `json:"memory_limit_mb"`
	MaxMarks         float64    `json:"max_marks"`
	AllowedLanguages []string   `json:"allowed_languages"`
	CreatedAt        time.Time  `json:"created_at"`
	Testcases        []Testcase `json:"testcases,omitempty"` // visible only in participant views
}

type Testcase struct {
	ID             string             `json:"id"`
	QuestionID     string             `json:"question_id"`
	Input          string             `json:"input"`
	ExpectedOutput string             `json:"expected_output"`
	Visibility     TestcaseVisibility `json:"visibility"`
	SortOrder      int                `json:"sort_order"`
	CreatedAt      time.Time          `json:"created_at"`
}

// AllowsLanguage reports whether this question accepts submissions in the
// given language. An empty allow-list means every sandbox language goes.
func (q *Question) AllowsLanguage(language string) bool {
	if len(q.AllowedLanguages) == 0 {
		return true
	}
	for _, l := range q.AllowedLanguages {
		if l == language {
			return true
		}
	}
	return false
}
