package service

import (
	"context"
	"strings"
	"time"

	"gauntlet/internal/common"
	"gauntlet/internal/domain/model"
	"gauntlet/internal/domain/repository"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// ProgressionService computes which exam levels a participant may see and
// run code in. Progress is a pure function of immutable history (ordered
// exams, join records, submission records) recomputed on demand; nothing is
// cached or denormalized.
type ProgressionService struct {
	examRepo        repository.ExamRepository
	questionRepo    repository.QuestionRepository
	submissionRepo  repository.SubmissionRepository
	participantRepo repository.ParticipantRepository
	log             *zap.Logger
	now             func() time.Time
}

func NewProgressionService(
	examRepo repository.ExamRepository,
	questionRepo repository.QuestionRepository,
	submissionRepo repository.SubmissionRepository,
	participantRepo repository.ParticipantRepository,
	log *zap.Logger,
) *ProgressionService {
	return &ProgressionService{
		examRepo:        examRepo,
		questionRepo:    questionRepo,
		submissionRepo:  submissionRepo,
		participantRepo: participantRepo,
		log:             log,
		now:             time.Now,
	}
}

// computeProgress classifies every level for one participant.
//
// The first level is always unlocked. Level i (i>0) is unlocked iff level
// i-1 is unlocked and level i-1 is either completed or past its end time.
// Evaluation is strictly left to right: once a level fails to unlock, every
// later level is locked regardless of its own state. A level with zero
// questions is never completed and can only unlock its successor by its
// window expiring.
func computeProgress(
	exams []model.Exam,
	joined map[string]bool,
	questionCounts map[string]int,
	completedCounts map[string]int,
	now time.Time,
) []model.LevelStatus {
	statuses := make([]model.LevelStatus, len(exams))

	prevUnlocked := false
	prevPassable := false // previous level completed or expired
	for i, exam := range exams {
		unlocked := i == 0 || (prevUnlocked && prevPassable)

		total := questionCounts[exam.ID]
		completed := total > 0 && completedCounts[exam.ID] >= total

		expired := exam.EndTime != nil && now.After(*exam.EndTime)

		isLive := (exam.StartTime == nil || !now.Before(*exam.StartTime)) &&
			(exam.EndTime == nil || now.Before(*exam.EndTime))

		statuses[i] = model.LevelStatus{
			Exam:      exam,
			Unlocked:  unlocked,
			Joined:    joined[exam.ID],
			Completed: completed,
			IsLive:    isLive,
		}

		prevUnlocked = unlocked
		prevPassable = completed || expired
	}
	return statuses
}

// ListLevels returns every level with its unlock/join/completion state for
// the participant, in total exam order.
func (s *ProgressionService) ListLevels(ctx context.Context, participantID string) ([]model.LevelStatus, error) {
	exams, err := s.examRepo.ListExamsOrdered(ctx)
	if err != nil {
		return nil, common.Errorf("failed to list exams: %w", err)
	}

	joinedIDs, err := s.examRepo.ListJoinedExamIDs(ctx, participantID)
	if err != nil {
		return nil, common.Errorf("failed to list joined exams: %w", err)
	}
	joined := make(map[string]bool, len(joinedIDs))
	for _, id := range joinedIDs {
		joined[id] = true
	}

	questionCounts, err := s.questionRepo.CountQuestionsPerExam(ctx)
	if err != nil {
		return nil, common.Errorf("failed to count questions: %w", err)
	}

	completedCounts, err := s.submissionRepo.CountCompletedQuestionsPerExam(ctx, participantID)
	if err != nil {
		return nil, common.Errorf("failed to count completed questions: %w", err)
	}

	return computeProgress(exams, joined, questionCounts, completedCounts, s.now()), nil
}

// JoinExam enrolls the participant into an unlocked level after checking
// the join secret. Codes are compared trimmed and case-insensitively
// against the stored bcrypt hash. Joining an already-joined level is a
// no-op.
func (s *ProgressionService) JoinExam(ctx context.Context, participantID, examID, code string) (*model.LevelStatus, error) {
	if _, err := s.participantRepo.FindParticipantByID(ctx, participantID); err != nil {
		return nil, common.Errorf("participant not found: %w", err)
	}

	status, err := s.levelStatus(ctx, participantID, examID)
	if err != nil {
		return nil, err
	}
	if !status.Unlocked {
		return nil, common.Errorf("cannot join exam %s: %w", examID, common.ErrLevelLocked)
	}
	if status.Joined {
		return status, nil
	}

	normalized := strings.ToLower(strings.TrimSpace(code))
	if err := bcrypt.CompareHashAndPassword([]byte(status.Exam.CodeHash), []byte(normalized)); err != nil {
		return nil, common.Errorf("invalid join code for exam %s: %w", examID, common.ErrForbidden)
	}

	if err := s.examRepo.JoinExam(ctx, participantID, examID); err != nil {
		return nil, common.Errorf("failed to join exam: %w", err)
	}
	s.log.Info("Participant joined exam",
		zap.String("participant_id", participantID),
		zap.String("exam_id", examID))

	status.Joined = true
	return status, nil
}

// Gate enforces both access gates before any execution work: the level
// must be unlocked and the participant must have joined it. Execution is
// the expensive resource, so this check precedes every sandbox call.
func (s *ProgressionService) Gate(ctx context.Context, participantID, examID string) error {
	status, err := s.levelStatus(ctx, participantID, examID)
	if err != nil {
		return err
	}
	if !status.Unlocked {
		return common.Errorf("exam %s: %w", examID, common.ErrLevelLocked)
	}
	if !status.Joined {
		return common.Errorf("exam %s: %w", examID, common.ErrLevelNotJoined)
	}
	return nil
}

func (s *ProgressionService) levelStatus(ctx context.Context, participantID, examID string) (*model.LevelStatus, error) {
	levels, err := s.ListLevels(ctx, participantID)
	if err != nil {
		return nil, err
	}
	for i := range levels {
		if levels[i].Exam.ID == examID {
			return &levels[i], nil
		}
	}
	return nil, common.Errorf("exam %s: %w", examID, common.ErrNotFound)
}
