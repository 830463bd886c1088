// Package gemini implements the question source against a generative-AI
// text endpoint. The endpoint returns free-form text; the JSON array inside
// it is extracted opportunistically and validated before anything reaches a
// session.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"quizforge-service/internal/domain"
)

// DefaultEndpoint targets the public generateContent REST surface.
const DefaultEndpoint = "https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-flash:generateContent"

// DefaultQuestionCount is how many questions one start request asks for.
const DefaultQuestionCount = 10

// Client calls the generative endpoint and turns its reply into a validated
// question batch.
type Client struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	count      int
}

func NewClient(endpoint, apiKey string, questionCount int) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if questionCount <= 0 {
		questionCount = DefaultQuestionCount
	}
	return &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		endpoint:   endpoint,
		apiKey:     apiKey,
		count:      questionCount,
	}
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// generatedQuestion is the shape the prompt instructs the model to emit.
type generatedQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
}

// GenerateQuestions asks the endpoint for a batch and maps each stated
// correct answer to its option letter by exact text match. A single
// unmatched answer rejects the whole batch rather than silently mis-grading.
func (c *Client) GenerateQuestions(ctx context.Context, topic string, difficulty domain.Difficulty) ([]domain.Question, error) {
	payload, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: buildPrompt(topic, difficulty, c.count)}}}},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"?key="+c.apiKey, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSourceFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %s", domain.ErrSourceFailure, resp.Status)
	}

	var envelope generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("%w: decode reply: %v", domain.ErrSourceFailure, err)
	}

	text := replyText(envelope)
	if text == "" {
		return nil, fmt.Errorf("%w: empty reply", domain.ErrSourceFailure)
	}

	return parseQuestions(text, difficulty)
}

func replyText(envelope generateResponse) string {
	if len(envelope.Candidates) == 0 {
		return ""
	}
	parts := envelope.Candidates[0].Content.Parts
	if len(parts) == 0 {
		return ""
	}
	return parts[0].Text
}

// parseQuestions extracts the JSON array from free-form reply text (the
// model may wrap it in prose or code fences despite the prompt) and converts
// it to the domain shape.
func parseQuestions(text string, difficulty domain.Difficulty) ([]domain.Question, error) {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: no JSON array in reply", domain.ErrSourceFailure)
	}

	var generated []generatedQuestion
	if err := json.Unmarshal([]byte(text[start:end+1]), &generated); err != nil {
		return nil, fmt.Errorf("%w: parse reply: %v", domain.ErrSourceFailure, err)
	}
	if len(generated) == 0 {
		return nil, domain.ErrNoQuestions
	}

	questions := make([]domain.Question, len(generated))
	for i, g := range generated {
		letter, ok := answerLetter(g.Options, g.CorrectAnswer)
		if !ok {
			return nil, fmt.Errorf("%w: correct answer %q not among options", domain.ErrMalformedQuestion, g.CorrectAnswer)
		}
		questions[i] = domain.Question{
			Prompt:      g.Question,
			Options:     g.Options,
			Answer:      letter,
			Explanation: g.Explanation,
			Difficulty:  difficulty,
		}
	}

	if err := domain.ValidateQuestions(questions); err != nil {
		return nil, err
	}
	return questions, nil
}

// answerLetter maps the stated correct answer to its option slot by exact
// text match.
func answerLetter(options []string, correct string) (string, bool) {
	for i, opt := range options {
		if opt == correct {
			if i < len(domain.OptionLetters) {
				return domain.OptionLetters[i], true
			}
			return "", false
		}
	}
	return "", false
}

func buildPrompt(topic string, difficulty domain.Difficulty, count int) string {
	return fmt.Sprintf(`You are a quiz generator AI.

Task:
- Generate %d multiple-choice questions about "%s".
- Ensure all questions match the "%s" difficulty level.
- Each question must be unique and non-repetitive.

Formatting Rules:
- Output ONLY valid JSON (no markdown, no comments, no extra text).
- Must be a JSON ARRAY of objects:

[
  {
    "question": "The question text?",
    "options": ["Option text A", "Option text B", "Option text C", "Option text D"],
    "correctAnswer": "Option text EXACTLY matching one from 'options'",
    "explanation": "A brief explanation why the correct answer is correct"
  }
]

Constraints:
- EXACTLY 4 answer options per question.
- "correctAnswer" must match one of the options exactly.
- Do NOT include labels like A/B/C/D.
- Do NOT wrap in code fences.
- Return ONLY the JSON array.
`, count, topic, difficulty)
}
