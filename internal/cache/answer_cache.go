package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"legalrag-backend/internal/app"
)

// AnswerCache stores answered questions in redis for a short TTL so repeated
// questions skip the three LLM round-trips. Entries are keyed by a hash of
// question plus retrieval parameters, since different topK/minScore values
// produce different payloads.
type AnswerCache struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewAnswerCache(client *redisv9.Client, ttl time.Duration) *AnswerCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &AnswerCache{client: client, ttl: ttl}
}

func (c *AnswerCache) Get(ctx context.Context, question string, topK int, minScore float64) (*app.QuestionAnswerResult, bool, error) {
	raw, err := c.client.Get(ctx, c.key(question, topK, minScore)).Result()
	if err == redisv9.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get answer failed: %w", err)
	}

	var result app.QuestionAnswerResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached answer failed: %w", err)
	}
	return &result, true, nil
}

func (c *AnswerCache) Set(ctx context.Context, question string, topK int, minScore float64, result *app.QuestionAnswerResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal answer failed: %w", err)
	}
	if err := c.client.Set(ctx, c.key(question, topK, minScore), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set answer failed: %w", err)
	}
	return nil
}

func (c *AnswerCache) key(question string, topK int, minScore float64) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%.4f", question, topK, minScore)))
	return "legal:answer:" + hex.EncodeToString(sum[:])
}
