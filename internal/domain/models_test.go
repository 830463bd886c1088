package domain

import (
	"errors"
	"testing"
)

func TestParseDifficulty(t *testing.T) {
	cases := []struct {
		in   string
		want Difficulty
		err  error
	}{
		{"easy", DifficultyEasy, nil},
		{"Medium", DifficultyMedium, nil},
		{" HARD ", DifficultyHard, nil},
		{"", DifficultyMedium, nil},
		{"impossible", "", ErrDifficultyUnknown},
	}
	for _, tc := range cases {
		got, err := ParseDifficulty(tc.in)
		if !errors.Is(err, tc.err) {
			t.Errorf("ParseDifficulty(%q) error = %v, want %v", tc.in, err, tc.err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseDifficulty(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func wellFormed() Question {
	return Question{
		Prompt:      "What is 2 + 2?",
		Options:     []string{"3", "4", "5", "6"},
		Answer:      "B",
		Explanation: "basic arithmetic",
	}
}

func TestValidateQuestionsAcceptsWellFormedBatch(t *testing.T) {
	if err := ValidateQuestions([]Question{wellFormed(), wellFormed()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateQuestionsEmptyBatch(t *testing.T) {
	if err := ValidateQuestions(nil); !errors.Is(err, ErrNoQuestions) {
		t.Fatalf("expected ErrNoQuestions, got %v", err)
	}
}

func TestValidateQuestionsRejectsWholeBatch(t *testing.T) {
	mutations := map[string]func(*Question){
		"blank prompt":      func(q *Question) { q.Prompt = "   " },
		"three options":     func(q *Question) { q.Options = q.Options[:3] },
		"five options":      func(q *Question) { q.Options = append(q.Options, "7") },
		"blank option":      func(q *Question) { q.Options[2] = "" },
		"duplicate options": func(q *Question) { q.Options[3] = q.Options[0] },
		"answer not letter": func(q *Question) { q.Answer = "4" },
		"answer out of range": func(q *Question) { q.Answer = "E" },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			bad := wellFormed()
			mutate(&bad)
			// The good question first: one bad entry must still sink the batch.
			err := ValidateQuestions([]Question{wellFormed(), bad})
			if !errors.Is(err, ErrMalformedQuestion) {
				t.Fatalf("expected ErrMalformedQuestion, got %v", err)
			}
		})
	}
}

func TestValidOptionLetter(t *testing.T) {
	for _, l := range OptionLetters {
		if !ValidOptionLetter(l) {
			t.Errorf("expected %q to be valid", l)
		}
	}
	for _, l := range []string{"", "a", "E", "AB", AnswerTimedOut} {
		if ValidOptionLetter(l) {
			t.Errorf("expected %q to be invalid", l)
		}
	}
}
