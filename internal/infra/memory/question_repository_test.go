package memory

import (
	"context"
	"testing"
	"time"

	"quizforge-service/internal/domain"
)

func TestQuestionRepositoryCaches(t *testing.T) {
	source := &countingSource{
		QuestionSource: NewStaticQuestionSource(map[string][]domain.Question{
			"go": sampleBatch(),
		}),
	}
	repo := NewQuestionRepository(source, time.Minute)

	if _, err := repo.GetQuestions(context.Background(), "Go", domain.DifficultyEasy); err != nil {
		t.Fatalf("get questions: %v", err)
	}
	if source.calls != 1 {
		t.Fatalf("expected source once, got %d", source.calls)
	}

	if _, err := repo.GetQuestions(context.Background(), "go", domain.DifficultyEasy); err != nil {
		t.Fatalf("get questions 2: %v", err)
	}
	if source.calls != 1 {
		t.Fatalf("expected cache hit, source calls %d", source.calls)
	}

	// A different difficulty is a different cache entry.
	if _, err := repo.GetQuestions(context.Background(), "Go", domain.DifficultyHard); err != nil {
		t.Fatalf("get questions hard: %v", err)
	}
	if source.calls != 2 {
		t.Fatalf("expected second generation, got %d", source.calls)
	}
}

func TestStaticSourceUnknownTopic(t *testing.T) {
	source := NewStaticQuestionSource(map[string][]domain.Question{"go": sampleBatch()})
	if _, err := source.GenerateQuestions(context.Background(), "quantum basket weaving", domain.DifficultyEasy); err != domain.ErrNoQuestions {
		t.Fatalf("expected ErrNoQuestions, got %v", err)
	}
}

type countingSource struct {
	QuestionSource
	calls int
}

func (s *countingSource) GenerateQuestions(ctx context.Context, topic string, difficulty domain.Difficulty) ([]domain.Question, error) {
	s.calls++
	return s.QuestionSource.GenerateQuestions(ctx, topic, difficulty)
}

func sampleBatch() []domain.Question {
	return []domain.Question{
		{
			Prompt:      "Which keyword starts a goroutine?",
			Options:     []string{"spawn", "go", "async", "fork"},
			Answer:      "B",
			Explanation: "the go statement",
		},
	}
}
