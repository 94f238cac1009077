package service

import (
	"context"
	"strings"

	"gauntlet/internal/domain/model"
	"gauntlet/internal/executor"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Outcome is the transient result of running one testcase. Never persisted.
type Outcome struct {
	TestcaseID      string `json:"testcase_id"`
	Passed          bool   `json:"passed"`
	ActualOutput    string `json:"actual_output"`
	Error           string `json:"error,omitempty"`
	ExecutionTimeMs int64  `json:"execution_time_ms"`
}

type ScoreSummary struct {
	Score               float64 `json:"score"`
	TotalTests          int     `json:"total_tests"`
	PassedTests         int     `json:"passed_tests"`
	MeanExecutionTimeMs float64 `json:"mean_execution_time_ms"`
}

// JudgeService drives the execution client across a question's testcases
// and reduces the outcomes into a score.
type JudgeService struct {
	exec        executor.Client
	concurrency int
	log         *zap.Logger
}

func NewJudgeService(exec executor.Client, concurrency int, log *zap.Logger) *JudgeService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &JudgeService{exec: exec, concurrency: concurrency, log: log}
}

// RunTestcases produces exactly one Outcome per testcase, in input order.
// Testcases share no state, so they may run concurrently up to the
// configured cap; a failing sandbox call is recorded as a failed outcome
// and never cancels its siblings.
func (s *JudgeService) RunTestcases(ctx context.Context, code, language string, testcases []model.Testcase, timeLimitSeconds int) []Outcome {
	outcomes := make([]Outcome, len(testcases))

	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)
	for i, tc := range testcases {
		i, tc := i, tc
		g.Go(func() error {
			res, err := s.exec.Execute(ctx, code, language, tc.Input, timeLimitSeconds)
			if err != nil {
				s.log.Warn("Execution failed for testcase",
					zap.String("testcase_id", tc.ID),
					zap.Error(err))
				outcomes[i] = Outcome{TestcaseID: tc.ID, Error: err.Error()}
				return nil
			}
			outcomes[i] = Outcome{
				TestcaseID:      tc.ID,
				Passed:          outputsMatch(res.Output, tc.ExpectedOutput),
				ActualOutput:    res.Output,
				Error:           res.Error,
				ExecutionTimeMs: res.TimeMs,
			}
			return nil
		})
	}
	g.Wait()

	return outcomes
}

// outputsMatch is the whole comparison policy: exact equality after
// trimming surrounding whitespace. No diffing, no numeric tolerance.
func outputsMatch(actual, expected string) bool {
	return strings.TrimSpace(actual) == strings.TrimSpace(expected)
}

// Score grades a finished batch linearly: (passed/total) * maxMarks.
// The mean execution time includes failed outcomes; a fast failure pulls
// the mean down, which is a documented simplification of the grading
// model, not an accident. Callers must reject empty testcase sets before
// calling.
func (s *JudgeService) Score(outcomes []Outcome, maxMarks float64) ScoreSummary {
	total := len(outcomes)
	passed := 0
	var timeSum int64
	for _, o := range outcomes {
		if o.Passed {
			passed++
		}
		timeSum += o.ExecutionTimeMs
	}
	return ScoreSummary{
		Score:               float64(passed) / float64(total) * maxMarks,
		TotalTests:          total,
		PassedTests:         passed,
		MeanExecutionTimeMs: float64(timeSum) / float64(total),
	}
}
