package domain

import "errors"

var (
	// ErrTopicRequired is returned when start is issued with a blank topic.
	ErrTopicRequired = errors.New("topic required")
	// ErrDifficultyUnknown is returned for a difficulty outside easy/medium/hard.
	ErrDifficultyUnknown = errors.New("unknown difficulty")
	// ErrSourceFailure wraps any question source failure, including
	// unparseable content.
	ErrSourceFailure = errors.New("question source failed")
	// ErrNoQuestions indicates the source returned an empty sequence.
	ErrNoQuestions = errors.New("no questions generated")
	// ErrMalformedQuestion indicates a generated question violates the
	// 4-option / correct-answer-present invariant. The whole batch is rejected.
	ErrMalformedQuestion = errors.New("malformed question")

	// ErrSessionNotFound is returned when a session ID has no live session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionBusy is returned when start is issued while a fetch is in flight.
	ErrSessionBusy = errors.New("session is loading")
	// ErrNotInProgress is returned for answer/navigation intents outside an
	// active quiz.
	ErrNotInProgress = errors.New("quiz not in progress")
	// ErrInvalidOption is returned for an answer outside the A-D slots.
	ErrInvalidOption = errors.New("invalid option letter")
	// ErrQuestionUnlocked blocks forward navigation until the current
	// question is answered or timed out.
	ErrQuestionUnlocked = errors.New("current question not locked")
	// ErrAtFirstQuestion blocks backward navigation from index 0.
	ErrAtFirstQuestion = errors.New("already at first question")

	// ErrEmailTaken is returned when signing up with a registered email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrUserNotFound is returned when no account matches the email.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredentials covers any email/password mismatch on sign-in.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTokenRevoked is returned when a signed-out token is presented.
	ErrTokenRevoked = errors.New("token revoked")
)
