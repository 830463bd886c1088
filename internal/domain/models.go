package domain

import (
	"strings"
	"time"
)

// Difficulty is the requested difficulty level for a generated question set.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ParseDifficulty normalizes user input ("Medium", "HARD", ...) to a Difficulty.
// Empty input defaults to medium.
func ParseDifficulty(raw string) (Difficulty, error) {
	switch Difficulty(strings.ToLower(strings.TrimSpace(raw))) {
	case DifficultyEasy:
		return DifficultyEasy, nil
	case DifficultyMedium, "":
		return DifficultyMedium, nil
	case DifficultyHard:
		return DifficultyHard, nil
	}
	return "", ErrDifficultyUnknown
}

// OptionCount is the fixed number of options per question.
const OptionCount = 4

// OptionLetters labels option slots positionally; Question.Answer is one of these.
var OptionLetters = [OptionCount]string{"A", "B", "C", "D"}

// AnswerTimedOut marks a question that was locked by expiry without a
// selection. It is never equal to an option letter, so it never scores.
const AnswerTimedOut = "timed-out"

// Question is a single multiple-choice question with exactly one correct option.
type Question struct {
	Prompt      string     `json:"prompt"`
	Options     []string   `json:"options"`
	Answer      string     `json:"answer"` // option letter A-D
	Explanation string     `json:"explanation"`
	Difficulty  Difficulty `json:"difficulty"`
}

// ValidateQuestions checks a generated batch against the question shape
// invariants. A single bad entry rejects the whole batch: partial credit on
// a broken question set is undefined.
func ValidateQuestions(questions []Question) error {
	if len(questions) == 0 {
		return ErrNoQuestions
	}
	for _, q := range questions {
		if err := validateQuestion(q); err != nil {
			return err
		}
	}
	return nil
}

func validateQuestion(q Question) error {
	if strings.TrimSpace(q.Prompt) == "" {
		return ErrMalformedQuestion
	}
	if len(q.Options) != OptionCount {
		return ErrMalformedQuestion
	}
	seen := make(map[string]struct{}, OptionCount)
	for _, opt := range q.Options {
		if strings.TrimSpace(opt) == "" {
			return ErrMalformedQuestion
		}
		if _, dup := seen[opt]; dup {
			return ErrMalformedQuestion
		}
		seen[opt] = struct{}{}
	}
	if !ValidOptionLetter(q.Answer) {
		return ErrMalformedQuestion
	}
	return nil
}

// ValidOptionLetter reports whether letter names one of the option slots.
func ValidOptionLetter(letter string) bool {
	for _, l := range OptionLetters {
		if letter == l {
			return true
		}
	}
	return false
}

// Phase is the top-level state of a session.
type Phase string

const (
	PhaseAwaitingTopic Phase = "awaiting_topic"
	PhaseLoading       Phase = "loading"
	PhaseInProgress    Phase = "in_progress"
	PhaseFinished      Phase = "finished"
)

// QuestionView is the client-facing projection of a Question. Answer and
// Explanation are withheld until the question is locked.
type QuestionView struct {
	Prompt      string   `json:"prompt"`
	Options     []string `json:"options"`
	Answer      string   `json:"answer,omitempty"`
	Explanation string   `json:"explanation,omitempty"`
}

// Snapshot is the full client-facing view of a session, pushed to
// subscribers after every state transition.
type Snapshot struct {
	SessionID    string         `json:"sessionId"`
	Phase        Phase          `json:"phase"`
	Topic        string         `json:"topic,omitempty"`
	Difficulty   Difficulty     `json:"difficulty,omitempty"`
	Questions    []QuestionView `json:"questions,omitempty"`
	CurrentIndex int            `json:"currentIndex"`
	Answers      []string       `json:"answers,omitempty"` // "" = unset
	Locked       []bool         `json:"locked,omitempty"`
	Remaining    []int          `json:"remaining,omitempty"` // seconds per question
	Score        int            `json:"score"`
	Error        string         `json:"error,omitempty"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// User is an authenticated account.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"displayName"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}
