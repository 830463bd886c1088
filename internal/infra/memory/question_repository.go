package memory

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"quizforge-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// QuestionSource generates a question batch for a topic/difficulty pair
// (e.g. a generative-AI endpoint).
type QuestionSource interface {
	GenerateQuestions(ctx context.Context, topic string, difficulty domain.Difficulty) ([]domain.Question, error)
}

// QuestionRepository caches generated batches with TTL so a repeated or
// retried topic does not hit the generative endpoint again.
type QuestionRepository struct {
	source QuestionSource
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedBatch
}

type cachedBatch struct {
	questions []domain.Question
	expiresAt time.Time
}

func NewQuestionRepository(source QuestionSource, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		source: source,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedBatch),
	}
}

func (r *QuestionRepository) GetQuestions(ctx context.Context, topic string, difficulty domain.Difficulty) ([]domain.Question, error) {
	key := cacheKey(topic, difficulty)
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[key]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.questions, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[key]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.questions, nil
		}
		r.mu.RUnlock()

		questions, err := r.source.GenerateQuestions(ctx, topic, difficulty)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.cache[key] = cachedBatch{
			questions: questions,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

func cacheKey(topic string, difficulty domain.Difficulty) string {
	return strings.ToLower(strings.TrimSpace(topic)) + "|" + string(difficulty)
}

// StaticQuestionSource serves canned batches keyed by lowercased topic
// (useful for tests and keyless demo runs).
type StaticQuestionSource struct {
	batches map[string][]domain.Question
}

func NewStaticQuestionSource(batches map[string][]domain.Question) *StaticQuestionSource {
	normalized := make(map[string][]domain.Question, len(batches))
	for topic, questions := range batches {
		normalized[strings.ToLower(strings.TrimSpace(topic))] = questions
	}
	return &StaticQuestionSource{batches: normalized}
}

func (s *StaticQuestionSource) GenerateQuestions(_ context.Context, topic string, difficulty domain.Difficulty) ([]domain.Question, error) {
	batch, ok := s.batches[strings.ToLower(strings.TrimSpace(topic))]
	if !ok {
		return nil, domain.ErrNoQuestions
	}
	out := make([]domain.Question, len(batch))
	for i, q := range batch {
		q.Difficulty = difficulty
		out[i] = q
	}
	return out, nil
}
