package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"

	"gauntlet/internal/common"
	"gauntlet/internal/domain/model"
	"gauntlet/internal/domain/repository"

	"go.uber.org/zap"
)

// QuestionService serves a participant's view of a level's questions:
// join-gated, hidden testcases stripped, and shuffled into a per-participant
// deterministic order.
type QuestionService struct {
	questionRepo repository.QuestionRepository
	progression  *ProgressionService
	log          *zap.Logger
}

func NewQuestionService(questionRepo repository.QuestionRepository, progression *ProgressionService, log *zap.Logger) *QuestionService {
	return &QuestionService{questionRepo: questionRepo, progression: progression, log: log}
}

// shuffleQuestions orders questions by the hex digest of
// sha256("{participantID}-{examID}" + questionID). The ordering is stable
// for a fixed participant and exam, and looks unrelated across
// participants, so "question 3" means nothing between two of them. Pure
// and cache-free.
func shuffleQuestions(questions []model.Question, participantID, examID string) []model.Question {
	seed := participantID + "-" + examID

	type keyed struct {
		digest string
		q      model.Question
	}
	keys := make([]keyed, len(questions))
	for i, q := range questions {
		sum := sha256.Sum256([]byte(seed + q.ID))
		keys[i] = keyed{digest: hex.EncodeToString(sum[:]), q: q}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].digest != keys[j].digest {
			return keys[i].digest < keys[j].digest
		}
		return keys[i].q.ID < keys[j].q.ID
	})

	ordered := make([]model.Question, len(keys))
	for i, k := range keys {
		ordered[i] = k.q
	}
	return ordered
}

// ListQuestions returns the level's questions in the participant's order,
// with only VISIBLE testcases attached. Both gates must hold; hidden
// testcase content never leaves this layer.
func (s *QuestionService) ListQuestions(ctx context.Context, participantID, examID string) ([]model.Question, error) {
	if err := s.progression.Gate(ctx, participantID, examID); err != nil {
		return nil, err
	}

	questions, err := s.questionRepo.ListQuestionsByExamID(ctx, examID)
	if err != nil {
		return nil, common.Errorf("failed to list questions: %w", err)
	}

	for i := range questions {
		testcases, err := s.questionRepo.GetTestcasesByQuestionID(ctx, questions[i].ID)
		if err != nil {
			return nil, common.Errorf("failed to load testcases: %w", err)
		}
		questions[i].Testcases = visibleOnly(testcases)
	}

	return shuffleQuestions(questions, participantID, examID), nil
}

func visibleOnly(testcases []model.Testcase) []model.Testcase {
	var visible []model.Testcase
	for _, tc := range testcases {
		if tc.Visibility == model.VisibilityVisible {
			visible = append(visible, tc)
		}
	}
	return visible
}
