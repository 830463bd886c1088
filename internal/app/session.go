package app

import (
	"sync"
	"time"

	"quizforge-service/internal/domain"
)

// DefaultQuestionSeconds is the per-question countdown budget.
const DefaultQuestionSeconds = 60

// Session owns one quiz run: the question list, per-question answer/lock/time
// state, the running score and the phase machine. All transitions are
// serialized on its mutex; the countdown only reports back through tick and
// expire and never touches session fields directly.
type Session struct {
	id  string
	now func() time.Time

	mu          sync.Mutex
	phase       domain.Phase
	topic       string
	difficulty  domain.Difficulty
	questions   []domain.Question
	current     int
	answers     []string
	locked      []bool
	remaining   []int
	score       int
	lastError   string
	countdown   *Countdown
	subscribers map[chan domain.Snapshot]struct{}
}

// NewSession is exported for infrastructure layers that need to seed sessions.
func NewSession(id string) *Session {
	return newSession(id, time.Now, time.Second)
}

// NewSessionWithClock is test-only for deterministic timestamps and tick rates.
func NewSessionWithClock(id string, now func() time.Time, tickInterval time.Duration) *Session {
	return newSession(id, now, tickInterval)
}

func newSession(id string, now func() time.Time, tickInterval time.Duration) *Session {
	s := &Session{
		id:          id,
		now:         now,
		phase:       domain.PhaseAwaitingTopic,
		subscribers: make(map[chan domain.Snapshot]struct{}),
	}
	s.countdown = NewCountdown(tickInterval, s.tick, s.expire)
	return s
}

// begin moves the session into Loading and clears any previous run.
func (s *Session) begin(topic string, difficulty domain.Difficulty) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == domain.PhaseLoading {
		return domain.ErrSessionBusy
	}

	s.countdown.Stop()
	s.phase = domain.PhaseLoading
	s.topic = topic
	s.difficulty = difficulty
	s.clearRunLocked()
	s.broadcastLocked()
	return nil
}

// install accepts a validated question batch, initializes per-question state
// and starts the first question's countdown.
func (s *Session) install(questions []domain.Question, seconds int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(questions)
	s.questions = questions
	s.answers = make([]string, n)
	s.locked = make([]bool, n)
	s.remaining = make([]int, n)
	for i := range s.remaining {
		s.remaining[i] = seconds
	}
	s.current = 0
	s.score = 0
	s.lastError = ""
	s.phase = domain.PhaseInProgress
	s.countdown.Bind(0, seconds)
	s.broadcastLocked()
}

// fail returns to AwaitingTopic with a user-facing message, discarding any
// partial data.
func (s *Session) fail(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.countdown.Stop()
	s.phase = domain.PhaseAwaitingTopic
	s.clearRunLocked()
	s.lastError = message
	s.broadcastLocked()
}

// selectAnswer records the first answer for the current question and locks
// it. Selecting again, or selecting on a locked question, is a no-op.
func (s *Session) selectAnswer(letter string) error {
	if !domain.ValidOptionLetter(letter) {
		return domain.ErrInvalidOption
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != domain.PhaseInProgress {
		return domain.ErrNotInProgress
	}
	if s.locked[s.current] || s.answers[s.current] != "" {
		return nil
	}

	s.answers[s.current] = letter
	s.locked[s.current] = true
	s.countdown.Stop()
	if letter == s.questions[s.current].Answer {
		s.score++
	}
	s.broadcastLocked()
	return nil
}

// expire is the countdown's timeout callback. A question already locked by a
// manual answer wins the race: expiry is then a no-op.
func (s *Session) expire(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != domain.PhaseInProgress || index != s.current || s.locked[index] {
		return
	}

	s.locked[index] = true
	s.remaining[index] = 0
	if s.answers[index] == "" {
		s.answers[index] = domain.AnswerTimedOut
	}
	s.broadcastLocked()
}

// tick is the countdown's once-per-second callback. Ticks for a question
// that is no longer current or already locked are discarded.
func (s *Session) tick(index, secondsRemaining int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != domain.PhaseInProgress || index != s.current || s.locked[index] {
		return
	}
	if secondsRemaining < 0 {
		secondsRemaining = 0
	}
	s.remaining[index] = secondsRemaining
	s.broadcastLocked()
}

// advance moves forward (gated on the current question being locked) or
// backward (review only: no timer resume, no state change for any index).
func (s *Session) advance(forward bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != domain.PhaseInProgress {
		return domain.ErrNotInProgress
	}

	if forward {
		if !s.locked[s.current] {
			return domain.ErrQuestionUnlocked
		}
		if s.current == len(s.questions)-1 {
			s.countdown.Stop()
			s.phase = domain.PhaseFinished
			s.broadcastLocked()
			return nil
		}
		s.current++
		switch {
		case s.locked[s.current]:
			s.countdown.Stop()
		case s.remaining[s.current] <= 0:
			// The clock hit zero while another question was current, so the
			// expiry callback discarded itself. Lock the question as timed
			// out now instead of rebinding a dead timer.
			s.countdown.Stop()
			s.locked[s.current] = true
			if s.answers[s.current] == "" {
				s.answers[s.current] = domain.AnswerTimedOut
			}
		default:
			s.countdown.Bind(s.current, s.remaining[s.current])
		}
	} else {
		if s.current == 0 {
			return domain.ErrAtFirstQuestion
		}
		// The question navigated away from stops counting immediately; the
		// revisited one stays in review with its timer halted.
		s.countdown.Stop()
		s.current--
	}
	s.broadcastLocked()
	return nil
}

// reset discards the session back to its initial empty state.
func (s *Session) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.countdown.Stop()
	s.phase = domain.PhaseAwaitingTopic
	s.topic = ""
	s.difficulty = ""
	s.clearRunLocked()
	s.broadcastLocked()
}

// shutdown halts the countdown before the session is dropped from its store.
func (s *Session) shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.countdown.Stop()
}

func (s *Session) clearRunLocked() {
	s.questions = nil
	s.answers = nil
	s.locked = nil
	s.remaining = nil
	s.current = 0
	s.score = 0
	s.lastError = ""
}

func (s *Session) snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) subscribe() (<-chan domain.Snapshot, func()) {
	ch := make(chan domain.Snapshot, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	initial := s.snapshotLocked()
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) broadcastLocked() {
	snap := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// A slow client only ever needs the latest snapshot; drop the
			// stale one rather than block the transition.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

func (s *Session) snapshotLocked() domain.Snapshot {
	snap := domain.Snapshot{
		SessionID:    s.id,
		Phase:        s.phase,
		Topic:        s.topic,
		Difficulty:   s.difficulty,
		CurrentIndex: s.current,
		Score:        s.score,
		Error:        s.lastError,
		UpdatedAt:    s.now(),
	}
	if len(s.questions) == 0 {
		return snap
	}

	snap.Questions = make([]domain.QuestionView, len(s.questions))
	for i, q := range s.questions {
		view := domain.QuestionView{Prompt: q.Prompt, Options: q.Options}
		if s.locked[i] {
			// Correct answer and explanation become visible once locked.
			view.Answer = q.Answer
			view.Explanation = q.Explanation
		}
		snap.Questions[i] = view
	}
	snap.Answers = append([]string(nil), s.answers...)
	snap.Locked = append([]bool(nil), s.locked...)
	snap.Remaining = append([]int(nil), s.remaining...)
	return snap
}
