package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// SubmissionLock narrows the window of the read-then-create duplicate
// check: concurrent submissions for the same (student, component type)
// pair contend on a short-lived redis key, and the loser is rejected with
// a conflict before touching the database. The unique index on the
// submission table remains the final backstop.
type SubmissionLock struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSubmissionLock constructs the lock helper.
func NewSubmissionLock(client *redis.Client, ttl time.Duration) *SubmissionLock {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &SubmissionLock{client: client, ttl: ttl}
}

// Acquire attempts to take the lock. It returns a release function on
// success; ok is false when another request holds the lock.
func (l *SubmissionLock) Acquire(ctx context.Context, studentID uint, componentType string) (release func(), ok bool, err error) {
	key := fmt.Sprintf("submission:lock:%d:%s", studentID, strings.ToLower(strings.TrimSpace(componentType)))

	ok, err = l.client.SetNX(ctx, key, 1, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire submission lock: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	return func() {
		_ = l.client.Del(context.Background(), key).Err()
	}, true, nil
}
