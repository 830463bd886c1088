package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"strings"
	"time"

	"quizforge-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// QuestionSource generates a question batch for a topic/difficulty pair
// (e.g. a generative-AI endpoint).
type QuestionSource interface {
	GenerateQuestions(ctx context.Context, topic string, difficulty domain.Difficulty) ([]domain.Question, error)
}

// QuestionRepository caches generated batches in Redis (one JSON value per
// topic/difficulty key) and falls back to the source on cache miss, so
// repeated topics are served without re-billing the generative endpoint.
type QuestionRepository struct {
	client *redis.Client
	source QuestionSource
	ttl    time.Duration
	sf     singleflight.Group
}

func NewQuestionRepository(client *redis.Client, source QuestionSource, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		client: client,
		source: source,
		ttl:    ttl,
	}
}

func (r *QuestionRepository) GetQuestions(ctx context.Context, topic string, difficulty domain.Difficulty) ([]domain.Question, error) {
	key := r.key(topic, difficulty)

	if cached, err := r.client.Get(ctx, key).Result(); err == nil {
		if questions, err := decodeBatch(cached); err == nil {
			return questions, nil
		}
		// An undecodable cache entry is treated as a miss and overwritten.
	}

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if cached, err := r.client.Get(ctx, key).Result(); err == nil {
			if questions, err := decodeBatch(cached); err == nil {
				return questions, nil
			}
		}

		questions, err := r.source.GenerateQuestions(ctx, topic, difficulty)
		if err != nil {
			return nil, err
		}

		if data, err := json.Marshal(questions); err == nil {
			_ = r.client.Set(ctx, key, data, r.ttlWithJitter()).Err()
		}
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (r *QuestionRepository) key(topic string, difficulty domain.Difficulty) string {
	return "questions:" + string(difficulty) + ":" + strings.ToLower(strings.TrimSpace(topic))
}

func decodeBatch(raw string) ([]domain.Question, error) {
	var questions []domain.Question
	if err := json.Unmarshal([]byte(raw), &questions); err != nil {
		return nil, err
	}
	if err := domain.ValidateQuestions(questions); err != nil {
		return nil, err
	}
	return questions, nil
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// Package-level rand is safe for the concurrent fills singleflight
	// allows across distinct keys.
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(rand.Int63n(jitterMax+1))
}
