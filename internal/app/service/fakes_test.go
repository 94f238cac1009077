package service

import (
	"context"
	"sync/atomic"

	"gauntlet/internal/common"
	"gauntlet/internal/domain/model"
	"gauntlet/internal/executor"
)

type fakeExamRepo struct {
	exams  []model.Exam
	joined map[string][]string // participantID -> exam ids
}

func newFakeExamRepo(exams ...model.Exam) *fakeExamRepo {
	return &fakeExamRepo{exams: exams, joined: make(map[string][]string)}
}

func (f *fakeExamRepo) ListExamsOrdered(ctx context.Context) ([]model.Exam, error) {
	return f.exams, nil
}

func (f *fakeExamRepo) GetExamByID(ctx context.Context, id string) (*model.Exam, error) {
	for i := range f.exams {
		if f.exams[i].ID == id {
			exam := f.exams[i]
			return &exam, nil
		}
	}
	return nil, common.ErrNotFound
}

func (f *fakeExamRepo) ListJoinedExamIDs(ctx context.Context, participantID string) ([]string, error) {
	return f.joined[participantID], nil
}

func (f *fakeExamRepo) JoinExam(ctx context.Context, participantID, examID string) error {
	for _, id := range f.joined[participantID] {
		if id == examID {
			return nil
		}
	}
	f.joined[participantID] = append(f.joined[participantID], examID)
	return nil
}

type fakeQuestionRepo struct {
	questions map[string]model.Question   // by question id
	testcases map[string][]model.Testcase // by question id
}

func newFakeQuestionRepo() *fakeQuestionRepo {
	return &fakeQuestionRepo{
		questions: make(map[string]model.Question),
		testcases: make(map[string][]model.Testcase),
	}
}

func (f *fakeQuestionRepo) add(q model.Question, testcases ...model.Testcase) {
	f.questions[q.ID] = q
	f.testcases[q.ID] = testcases
}

func (f *fakeQuestionRepo) GetQuestionByID(ctx context.Context, id string) (*model.Question, error) {
	q, ok := f.questions[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &q, nil
}

func (f *fakeQuestionRepo) ListQuestionsByExamID(ctx context.Context, examID string) ([]model.Question, error) {
	var out []model.Question
	for _, q := range f.questions {
		if q.ExamID == examID {
			out = append(out, q)
		}
	}
	return out, nil
}

func (f *fakeQuestionRepo) GetTestcasesByQuestionID(ctx context.Context, questionID string) ([]model.Testcase, error) {
	return f.testcases[questionID], nil
}

func (f *fakeQuestionRepo) CountQuestionsPerExam(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	for _, q := range f.questions {
		counts[q.ExamID]++
	}
	return counts, nil
}

type fakeSubmissionRepo struct {
	created   []model.Submission
	failWrite error
	// completed[participantID][examID] = distinct completed question count
	completed map[string]map[string]int
}

func newFakeSubmissionRepo() *fakeSubmissionRepo {
	return &fakeSubmissionRepo{completed: make(map[string]map[string]int)}
}

func (f *fakeSubmissionRepo) setCompleted(participantID, examID string, count int) {
	if f.completed[participantID] == nil {
		f.completed[participantID] = make(map[string]int)
	}
	f.completed[participantID][examID] = count
}

func (f *fakeSubmissionRepo) CreateSubmission(ctx context.Context, sub *model.Submission) error {
	if f.failWrite != nil {
		return f.failWrite
	}
	f.created = append(f.created, *sub)
	return nil
}

func (f *fakeSubmissionRepo) CountCompletedQuestionsPerExam(ctx context.Context, participantID string) (map[string]int, error) {
	counts := make(map[string]int)
	for examID, n := range f.completed[participantID] {
		counts[examID] = n
	}
	return counts, nil
}

func (f *fakeSubmissionRepo) ListForParticipantQuestion(ctx context.Context, participantID, questionID string, limit, offset int) ([]model.Submission, int, error) {
	var out []model.Submission
	for _, s := range f.created {
		if s.ParticipantID == participantID && s.QuestionID == questionID {
			out = append(out, s)
		}
	}
	return out, len(out), nil
}

func (f *fakeSubmissionRepo) GetStandings(ctx context.Context, examID string, limit int) ([]model.StandingEntry, error) {
	return nil, nil
}

type fakeParticipantRepo struct {
	participants map[string]model.Participant
}

func newFakeParticipantRepo(ids ...string) *fakeParticipantRepo {
	f := &fakeParticipantRepo{participants: make(map[string]model.Participant)}
	for _, id := range ids {
		f.participants[id] = model.Participant{ID: id, Username: id}
	}
	return f
}

func (f *fakeParticipantRepo) FindParticipantByID(ctx context.Context, id string) (*model.Participant, error) {
	p, ok := f.participants[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &p, nil
}

// stubExecutor satisfies executor.Client with a function and a call
// counter.
type stubExecutor struct {
	calls int32
	fn    func(ctx context.Context, code, language, stdin string, timeLimitSeconds int) (executor.Result, error)
}

func (s *stubExecutor) Execute(ctx context.Context, code, language, stdin string, timeLimitSeconds int) (executor.Result, error) {
	atomic.AddInt32(&s.calls, 1)
	return s.fn(ctx, code, language, stdin, timeLimitSeconds)
}

func (s *stubExecutor) callCount() int {
	return int(atomic.LoadInt32(&s.calls))
}

// echoExecutor answers every testcase with its own stdin, trimmed.
func echoExecutor() *stubExecutor {
	return &stubExecutor{fn: func(ctx context.Context, code, language, stdin string, _ int) (executor.Result, error) {
		return executor.Result{Output: stdin, TimeMs: 10}, nil
	}}
}
