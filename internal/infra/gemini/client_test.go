package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"quizforge-service/internal/domain"
)

func envelopeWith(text string) string {
	payload := map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]string{{"text": text}}}},
		},
	}
	data, _ := json.Marshal(payload)
	return string(data)
}

const goodBatch = `[
  {"question": "What is 2 + 2?", "options": ["3", "4", "5", "6"], "correctAnswer": "4", "explanation": "basic arithmetic"},
  {"question": "Capital of France?", "options": ["Lyon", "Nice", "Paris", "Lille"], "correctAnswer": "Paris", "explanation": "Paris is the capital"}
]`

func newTestClient(t *testing.T, reply string, status int) *Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("api key missing from query")
		}
		w.WriteHeader(status)
		w.Write([]byte(reply))
	}))
	t.Cleanup(server.Close)
	return NewClient(server.URL, "test-key", 10)
}

func TestGenerateQuestionsMapsLetters(t *testing.T) {
	client := newTestClient(t, envelopeWith(goodBatch), http.StatusOK)

	questions, err := client.GenerateQuestions(context.Background(), "Trivia", domain.DifficultyEasy)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(questions))
	}
	if questions[0].Answer != "B" {
		t.Fatalf("expected letter B for %q, got %s", "4", questions[0].Answer)
	}
	if questions[1].Answer != "C" {
		t.Fatalf("expected letter C for %q, got %s", "Paris", questions[1].Answer)
	}
	if questions[0].Difficulty != domain.DifficultyEasy {
		t.Fatalf("difficulty not echoed: %s", questions[0].Difficulty)
	}
}

func TestGenerateQuestionsToleratesWrappedReply(t *testing.T) {
	// Models wrap output in prose and fences despite the prompt.
	wrapped := "Sure! Here is your quiz:\n```json\n" + goodBatch + "\n```\nEnjoy!"
	client := newTestClient(t, envelopeWith(wrapped), http.StatusOK)

	questions, err := client.GenerateQuestions(context.Background(), "Trivia", domain.DifficultyMedium)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(questions))
	}
}

func TestGenerateQuestionsRejectsUnmatchedAnswer(t *testing.T) {
	bad := `[{"question": "Q?", "options": ["a", "b", "c", "d"], "correctAnswer": "e", "explanation": "x"}]`
	client := newTestClient(t, envelopeWith(bad), http.StatusOK)

	_, err := client.GenerateQuestions(context.Background(), "Trivia", domain.DifficultyHard)
	if !errors.Is(err, domain.ErrMalformedQuestion) {
		t.Fatalf("expected ErrMalformedQuestion, got %v", err)
	}
}

func TestGenerateQuestionsRejectsWrongOptionCount(t *testing.T) {
	bad := `[{"question": "Q?", "options": ["a", "b", "c"], "correctAnswer": "a", "explanation": "x"}]`
	client := newTestClient(t, envelopeWith(bad), http.StatusOK)

	_, err := client.GenerateQuestions(context.Background(), "Trivia", domain.DifficultyEasy)
	if !errors.Is(err, domain.ErrMalformedQuestion) {
		t.Fatalf("expected ErrMalformedQuestion, got %v", err)
	}
}

func TestGenerateQuestionsNoArrayInReply(t *testing.T) {
	client := newTestClient(t, envelopeWith("I cannot help with that."), http.StatusOK)

	_, err := client.GenerateQuestions(context.Background(), "Trivia", domain.DifficultyEasy)
	if !errors.Is(err, domain.ErrSourceFailure) {
		t.Fatalf("expected ErrSourceFailure, got %v", err)
	}
}

func TestGenerateQuestionsEmptyCandidates(t *testing.T) {
	client := newTestClient(t, `{"candidates": []}`, http.StatusOK)

	_, err := client.GenerateQuestions(context.Background(), "Trivia", domain.DifficultyEasy)
	if !errors.Is(err, domain.ErrSourceFailure) {
		t.Fatalf("expected ErrSourceFailure, got %v", err)
	}
}

func TestGenerateQuestionsUpstreamError(t *testing.T) {
	client := newTestClient(t, `{"error": {"message": "quota exceeded"}}`, http.StatusTooManyRequests)

	_, err := client.GenerateQuestions(context.Background(), "Trivia", domain.DifficultyEasy)
	if !errors.Is(err, domain.ErrSourceFailure) {
		t.Fatalf("expected ErrSourceFailure, got %v", err)
	}
}
