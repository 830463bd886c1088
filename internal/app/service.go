package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"quizforge-service/internal/domain"
)

// SessionRepository abstracts how quiz sessions are stored (in-memory, Redis, etc).
type SessionRepository interface {
	GetOrCreate(sessionID string) *Session
	Get(sessionID string) (*Session, bool)
	Delete(sessionID string)
}

// QuestionRepository supplies a question batch for a topic/difficulty pair
// (generative source, cache in front of it, or a static set).
type QuestionRepository interface {
	GetQuestions(ctx context.Context, topic string, difficulty domain.Difficulty) ([]domain.Question, error)
}

// QuizService contains the quiz use cases: the four client intents plus
// snapshot subscription.
type QuizService struct {
	sessions        SessionRepository
	questions       QuestionRepository
	questionSeconds int
}

func NewQuizService(sessions SessionRepository, questions QuestionRepository) *QuizService {
	return &QuizService{sessions: sessions, questions: questions, questionSeconds: DefaultQuestionSeconds}
}

// NewQuizServiceWithBudget overrides the per-question countdown budget.
func NewQuizServiceWithBudget(sessions SessionRepository, questions QuestionRepository, seconds int) *QuizService {
	if seconds <= 0 {
		seconds = DefaultQuestionSeconds
	}
	return &QuizService{sessions: sessions, questions: questions, questionSeconds: seconds}
}

// Attach returns the current snapshot for a session, creating it empty if needed.
func (s *QuizService) Attach(_ context.Context, sessionID string) domain.Snapshot {
	return s.sessions.GetOrCreate(sessionID).snapshot()
}

// Start validates the request, fetches a question batch and moves the
// session into InProgress, or back to AwaitingTopic with an error message.
// This is the sole point that talks to the question source.
func (s *QuizService) Start(ctx context.Context, sessionID, topic, difficulty string) (domain.Snapshot, error) {
	session := s.sessions.GetOrCreate(sessionID)

	topic = strings.TrimSpace(topic)
	if topic == "" {
		return session.snapshot(), domain.ErrTopicRequired
	}
	level, err := domain.ParseDifficulty(difficulty)
	if err != nil {
		return session.snapshot(), err
	}

	if err := session.begin(topic, level); err != nil {
		return session.snapshot(), err
	}

	questions, err := s.questions.GetQuestions(ctx, topic, level)
	if err == nil {
		err = domain.ValidateQuestions(questions)
	}
	if err != nil {
		err = asSourceError(err)
		session.fail(retryMessage(err))
		return session.snapshot(), err
	}

	session.install(questions, s.questionSeconds)
	return session.snapshot(), nil
}

// Select records an answer for the current question. Repeated selections on
// a locked question succeed without effect.
func (s *QuizService) Select(_ context.Context, sessionID, letter string) (domain.Snapshot, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.Snapshot{}, domain.ErrSessionNotFound
	}
	if err := session.selectAnswer(letter); err != nil {
		return session.snapshot(), err
	}
	return session.snapshot(), nil
}

// Advance moves forward past a locked question (finishing the quiz at the
// last index) or backward into review.
func (s *QuizService) Advance(_ context.Context, sessionID string, forward bool) (domain.Snapshot, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.Snapshot{}, domain.ErrSessionNotFound
	}
	if err := session.advance(forward); err != nil {
		return session.snapshot(), err
	}
	return session.snapshot(), nil
}

// Reset clears the session back to AwaitingTopic. Always permitted.
func (s *QuizService) Reset(_ context.Context, sessionID string) (domain.Snapshot, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.Snapshot{}, domain.ErrSessionNotFound
	}
	session.reset()
	return session.snapshot(), nil
}

// SnapshotOf returns the current view of a session without mutating it.
func (s *QuizService) SnapshotOf(_ context.Context, sessionID string) (domain.Snapshot, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.Snapshot{}, domain.ErrSessionNotFound
	}
	return session.snapshot(), nil
}

// Subscribe returns a channel that receives a snapshot after every state
// transition. The caller must invoke the returned cancel function to avoid leaks.
func (s *QuizService) Subscribe(_ context.Context, sessionID string) (<-chan domain.Snapshot, func(), error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	ch, cancel := session.subscribe()
	return ch, cancel, nil
}

// Leave drops a session entirely; progress is memory-only and not recoverable.
func (s *QuizService) Leave(_ context.Context, sessionID string) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return
	}
	session.shutdown()
	s.sessions.Delete(sessionID)
}

// asSourceError folds raw transport/parse failures into ErrSourceFailure
// while keeping the more specific domain errors intact.
func asSourceError(err error) error {
	switch {
	case errors.Is(err, domain.ErrNoQuestions),
		errors.Is(err, domain.ErrMalformedQuestion),
		errors.Is(err, domain.ErrSourceFailure):
		return err
	default:
		return fmt.Errorf("%w: %v", domain.ErrSourceFailure, err)
	}
}

func retryMessage(err error) string {
	if errors.Is(err, domain.ErrNoQuestions) {
		return "No questions could be generated for that topic. Please try another!"
	}
	return "Failed to fetch questions. Please check your network or try again."
}
