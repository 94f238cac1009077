package service

import (
	"context"
	"fmt"
	"testing"

	"gauntlet/internal/common"
	"gauntlet/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func questionSet(n int) []model.Question {
	questions := make([]model.Question, n)
	for i := range questions {
		questions[i] = model.Question{ID: fmt.Sprintf("q%02d", i), ExamID: "e1"}
	}
	return questions
}

func ids(questions []model.Question) []string {
	out := make([]string, len(questions))
	for i, q := range questions {
		out[i] = q.ID
	}
	return out
}

func TestShuffleDeterministic(t *testing.T) {
	questions := questionSet(8)

	first := shuffleQuestions(questions, "p1", "e1")
	second := shuffleQuestions(questions, "p1", "e1")
	assert.Equal(t, ids(first), ids(second), "same participant and exam must see the same order")
}

func TestShuffleIsPermutation(t *testing.T) {
	questions := questionSet(8)

	shuffled := shuffleQuestions(questions, "p1", "e1")
	require.Len(t, shuffled, len(questions))
	assert.ElementsMatch(t, ids(questions), ids(shuffled))
}

func TestShuffleVariesByParticipant(t *testing.T) {
	questions := questionSet(8)

	orderA := ids(shuffleQuestions(questions, "alice", "e1"))
	orderB := ids(shuffleQuestions(questions, "bob", "e1"))
	assert.NotEqual(t, orderA, orderB, "orderings should look unrelated across participants")
}

func TestShuffleEmptyAndSingle(t *testing.T) {
	assert.Empty(t, shuffleQuestions(nil, "p1", "e1"))

	one := shuffleQuestions(questionSet(1), "p1", "e1")
	require.Len(t, one, 1)
	assert.Equal(t, "q00", one[0].ID)
}

func TestListQuestionsRequiresJoin(t *testing.T) {
	examRepo := newFakeExamRepo(model.Exam{ID: "e1", Sequence: 1})
	questionRepo := newFakeQuestionRepo()
	questionRepo.add(model.Question{ID: "q1", ExamID: "e1"})

	progression := newTestProgression(examRepo, questionRepo, newFakeSubmissionRepo(), "p1")
	svc := NewQuestionService(questionRepo, progression, zap.NewNop())

	_, err := svc.ListQuestions(context.Background(), "p1", "e1")
	assert.ErrorIs(t, err, common.ErrLevelNotJoined)
}

func TestListQuestionsStripsHiddenTestcases(t *testing.T) {
	examRepo := newFakeExamRepo(model.Exam{ID: "e1", Sequence: 1})
	examRepo.joined["p1"] = []string{"e1"}

	questionRepo := newFakeQuestionRepo()
	questionRepo.add(model.Question{ID: "q1", ExamID: "e1"},
		model.Testcase{ID: "tc1", QuestionID: "q1", Input: "1", ExpectedOutput: "1", Visibility: model.VisibilityVisible},
		model.Testcase{ID: "tc2", QuestionID: "q1", Input: "2", ExpectedOutput: "2", Visibility: model.VisibilityHidden},
	)

	progression := newTestProgression(examRepo, questionRepo, newFakeSubmissionRepo(), "p1")
	svc := NewQuestionService(questionRepo, progression, zap.NewNop())

	questions, err := svc.ListQuestions(context.Background(), "p1", "e1")
	require.NoError(t, err)
	require.Len(t, questions, 1)
	require.Len(t, questions[0].Testcases, 1)
	assert.Equal(t, "tc1", questions[0].Testcases[0].ID)
}
