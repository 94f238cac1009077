package service

import (
	"context"
	"strings"
	"time"

	"gauntlet/internal/common"
	"gauntlet/internal/domain/model"
	"gauntlet/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// SubmissionService owns the run and submit paths. Both are gated on the
// progression state machine before any sandbox work happens.
type SubmissionService struct {
	questionRepo   repository.QuestionRepository
	submissionRepo repository.SubmissionRepository
	progression    *ProgressionService
	judge          *JudgeService
	rdb            *redis.Client
	lockTTL        time.Duration
	log            *zap.Logger
}

func NewSubmissionService(
	questionRepo repository.QuestionRepository,
	submissionRepo repository.SubmissionRepository,
	progression *ProgressionService,
	judge *JudgeService,
	rdb *redis.Client,
	lockTTL time.Duration,
	log *zap.Logger,
) *SubmissionService {
	return &SubmissionService{
		questionRepo:   questionRepo,
		submissionRepo: submissionRepo,
		progression:    progression,
		judge:          judge,
		rdb:            rdb,
		lockTTL:        lockTTL,
		log:            log,
	}
}

// RunResult is one per-testcase entry on the run path. Graded reports
// whether an expected output was known; an ad-hoc custom input that matches
// no stored testcase runs ungraded. Expected output is echoed only for
// VISIBLE testcases.
type RunResult struct {
	TestcaseID      string `json:"testcase_id,omitempty"`
	Input           string `json:"input,omitempty"`
	ExpectedOutput  string `json:"expected_output,omitempty"`
	ActualOutput    string `json:"actual_output"`
	Passed          bool   `json:"passed"`
	Graded          bool   `json:"graded"`
	Error           string `json:"error,omitempty"`
	ExecutionTimeMs int64  `json:"execution_time_ms"`
}

type SubmitResult struct {
	SubmissionID    string                 `json:"submission_id"`
	Score           float64                `json:"score"`
	TotalTests      int                    `json:"total_tests"`
	PassedTests     int                    `json:"passed_tests"`
	Status          model.SubmissionStatus `json:"status"`
	ExecutionTimeMs float64                `json:"execution_time_ms"`
	VisibleResults  []RunResult            `json:"visible_results"`
}

// runPlan pairs the testcases handed to the judge with how each result may
// be presented back to the participant.
type runPlan struct {
	testcases []model.Testcase
	graded    []bool // expected output known
	echo      []bool // expected output may be echoed back
	inputs    []string
}

// RunVisible executes the participant's code against the question's VISIBLE
// testcases, or against a single ad-hoc input when one is supplied.
//
// If the custom input matches (after trim) any stored testcase's input,
// hidden ones included, the run is graded against that testcase's expected
// output. This stops a participant from "validating" a real input against a
// fabricated expected output. The matching is exact by design; do not relax
// it.
func (s *SubmissionService) RunVisible(ctx context.Context, participantID, questionID, language, code string, customInput *string) ([]RunResult, error) {
	question, err := s.gateQuestion(ctx, participantID, questionID, language)
	if err != nil {
		return nil, err
	}

	all, err := s.questionRepo.GetTestcasesByQuestionID(ctx, questionID)
	if err != nil {
		return nil, common.Errorf("failed to load testcases: %w", err)
	}

	plan, err := buildRunPlan(all, customInput)
	if err != nil {
		return nil, err
	}

	outcomes := s.judge.RunTestcases(ctx, code, language, plan.testcases, question.TimeLimitSeconds)

	results := make([]RunResult, len(outcomes))
	for i, o := range outcomes {
		r := RunResult{
			Input:           plan.inputs[i],
			ActualOutput:    o.ActualOutput,
			Graded:          plan.graded[i],
			Error:           o.Error,
			ExecutionTimeMs: o.ExecutionTimeMs,
		}
		if plan.graded[i] {
			r.Passed = o.Passed
		}
		if plan.echo[i] {
			r.TestcaseID = plan.testcases[i].ID
			r.ExpectedOutput = plan.testcases[i].ExpectedOutput
		}
		results[i] = r
	}
	return results, nil
}

func buildRunPlan(all []model.Testcase, customInput *string) (*runPlan, error) {
	if customInput != nil {
		input := *customInput
		trimmed := strings.TrimSpace(input)
		for _, tc := range all {
			if strings.TrimSpace(tc.Input) == trimmed {
				run := tc
				run.Input = input
				return &runPlan{
					testcases: []model.Testcase{run},
					graded:    []bool{true},
					echo:      []bool{tc.Visibility == model.VisibilityVisible},
					inputs:    []string{input},
				}, nil
			}
		}
		// No stored testcase matches: run it, but assert nothing.
		return &runPlan{
			testcases: []model.Testcase{{Input: input}},
			graded:    []bool{false},
			echo:      []bool{false},
			inputs:    []string{input},
		}, nil
	}

	visible := visibleOnly(all)
	if len(visible) == 0 {
		return nil, common.Errorf("no visible testcases: %w", common.ErrEmptyTestcaseSet)
	}
	plan := &runPlan{
		testcases: visible,
		graded:    make([]bool, len(visible)),
		echo:      make([]bool, len(visible)),
		inputs:    make([]string, len(visible)),
	}
	for i, tc := range visible {
		plan.graded[i] = true
		plan.echo[i] = true
		plan.inputs[i] = tc.Input
	}
	return plan, nil
}

// Submit runs the full testcase batch, hidden included, scores it and
// persists exactly one Completed submission. A per-(participant, question)
// redis lock rejects a second concurrent submit for the same pair. Nothing
// is persisted unless the whole batch finished.
func (s *SubmissionService) Submit(ctx context.Context, participantID, questionID, language, code string) (*SubmitResult, error) {
	question, err := s.gateQuestion(ctx, participantID, questionID, language)
	if err != nil {
		return nil, err
	}

	testcases, err := s.questionRepo.GetTestcasesByQuestionID(ctx, questionID)
	if err != nil {
		return nil, common.Errorf("failed to load testcases: %w", err)
	}
	if len(testcases) == 0 {
		return nil, common.Errorf("question %s: %w", questionID, common.ErrEmptyTestcaseSet)
	}

	release, err := s.acquireSubmitLock(ctx, participantID, questionID)
	if err != nil {
		return nil, err
	}
	defer release()

	outcomes := s.judge.RunTestcases(ctx, code, language, testcases, question.TimeLimitSeconds)
	summary := s.judge.Score(outcomes, question.MaxMarks)

	submission := &model.Submission{
		ID:              uuid.NewString(),
		ParticipantID:   participantID,
		QuestionID:      questionID,
		Language:        language,
		Code:            code,
		Score:           summary.Score,
		TotalTests:      summary.TotalTests,
		PassedTests:     summary.PassedTests,
		Status:          model.StatusCompleted,
		ExecutionTimeMs: summary.MeanExecutionTimeMs,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.submissionRepo.CreateSubmission(ctx, submission); err != nil {
		// Distinct from "your code failed": the evaluation finished but the
		// record could not be written.
		return nil, common.Errorf("failed to persist submission: %w", err)
	}

	s.log.Info("Submission recorded",
		zap.String("submission_id", submission.ID),
		zap.String("participant_id", participantID),
		zap.String("question_id", questionID),
		zap.Float64("score", summary.Score),
		zap.Int("passed", summary.PassedTests),
		zap.Int("total", summary.TotalTests))

	return &SubmitResult{
		SubmissionID:    submission.ID,
		Score:           summary.Score,
		TotalTests:      summary.TotalTests,
		PassedTests:     summary.PassedTests,
		Status:          submission.Status,
		ExecutionTimeMs: summary.MeanExecutionTimeMs,
		VisibleResults:  visibleResults(testcases, outcomes),
	}, nil
}

// visibleResults filters a full batch down to the detail a participant may
// see: VISIBLE testcases in full, hidden ones not at all.
func visibleResults(testcases []model.Testcase, outcomes []Outcome) []RunResult {
	var results []RunResult
	for i, tc := range testcases {
		if tc.Visibility != model.VisibilityVisible {
			continue
		}
		o := outcomes[i]
		results = append(results, RunResult{
			TestcaseID:      tc.ID,
			Input:           tc.Input,
			ExpectedOutput:  tc.ExpectedOutput,
			ActualOutput:    o.ActualOutput,
			Passed:          o.Passed,
			Graded:          true,
			Error:           o.Error,
			ExecutionTimeMs: o.ExecutionTimeMs,
		})
	}
	return results
}

// History lists the participant's own submissions for one question, newest
// first.
func (s *SubmissionService) History(ctx context.Context, participantID, questionID string, limit, offset int) ([]model.Submission, int, error) {
	question, err := s.questionRepo.GetQuestionByID(ctx, questionID)
	if err != nil {
		return nil, 0, common.Errorf("question %s: %w", questionID, err)
	}
	if err := s.progression.Gate(ctx, participantID, question.ExamID); err != nil {
		return nil, 0, err
	}
	return s.submissionRepo.ListForParticipantQuestion(ctx, participantID, questionID, limit, offset)
}

// Standings ranks participants of one exam by the sum of their best scores
// per question.
func (s *SubmissionService) Standings(ctx context.Context, participantID, examID string, limit int) ([]model.StandingEntry, error) {
	if err := s.progression.Gate(ctx, participantID, examID); err != nil {
		return nil, err
	}
	return s.submissionRepo.GetStandings(ctx, examID, limit)
}

// gateQuestion resolves the question and enforces every request-level
// check that must precede execution: level unlocked, level joined,
// language allowed.
func (s *SubmissionService) gateQuestion(ctx context.Context, participantID, questionID, language string) (*model.Question, error) {
	question, err := s.questionRepo.GetQuestionByID(ctx, questionID)
	if err != nil {
		return nil, common.Errorf("question %s: %w", questionID, err)
	}
	if err := s.progression.Gate(ctx, participantID, question.ExamID); err != nil {
		return nil, err
	}
	if !question.AllowsLanguage(language) {
		return nil, common.Errorf("language %q is not allowed for this question: %w", language, common.ErrBadRequest)
	}
	return question, nil
}

const releaseLockScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
    return redis.call("del", KEYS[1])
else
    return 0
end`

// acquireSubmitLock serializes submits per (participant, question): SetNX
// with a TTL, released by a compare-and-delete script so an expired lock
// taken over by another submit is never deleted from here.
func (s *SubmissionService) acquireSubmitLock(ctx context.Context, participantID, questionID string) (func(), error) {
	key := "submit_lock:" + participantID + ":" + questionID
	token := uuid.NewString()

	ok, err := s.rdb.SetNX(ctx, key, token, s.lockTTL).Result()
	if err != nil {
		return nil, common.Errorf("failed to acquire submit lock: %w", err)
	}
	if !ok {
		return nil, common.Errorf("question %s: %w", questionID, common.ErrSubmitLockHeld)
	}

	release := func() {
		// The request context may already be cancelled by the time we
		// release.
		script := redis.NewScript(releaseLockScript)
		if _, err := script.Run(context.Background(), s.rdb, []string{key}, token).Result(); err != nil {
			s.log.Error("Failed to release submit lock", zap.String("key", key), zap.Error(err))
		}
	}
	return release, nil
}
