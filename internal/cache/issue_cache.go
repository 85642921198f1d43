package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/civicworks/issue-service/internal/domain"
)

const issueTTL = 30 * time.Second

// IssueCache is a fail-safe read cache for issue lookups. Redis errors are
// swallowed and behave like a cache miss so the engine never depends on
// cache availability.
type IssueCache struct {
	client *redis.Client
}

// NewIssueCache wraps the shared redis client; a nil client disables caching.
func NewIssueCache(client *redis.Client) *IssueCache {
	return &IssueCache{client: client}
}

// Get returns the cached issue or nil on miss.
func (c *IssueCache) Get(ctx context.Context, issueID string) *domain.Issue {
	if c == nil || c.client == nil {
		return nil
	}
	raw, err := c.client.Get(ctx, key(issueID)).Bytes()
	if err != nil {
		return nil
	}
	var issue domain.Issue
	if err := json.Unmarshal(raw, &issue); err != nil {
		return nil
	}
	return &issue
}

// Set stores the issue, ignoring redis errors.
func (c *IssueCache) Set(ctx context.Context, issue *domain.Issue) {
	if c == nil || c.client == nil || issue == nil {
		return
	}
	raw, err := json.Marshal(issue)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, key(issue.ID), raw, issueTTL).Err()
}

// Invalidate drops the cached copy after any mutation.
func (c *IssueCache) Invalidate(ctx context.Context, issueID string) {
	if c == nil || c.client == nil {
		return
	}
	_ = c.client.Del(ctx, key(issueID)).Err()
}

func key(issueID string) string {
	return "issue:" + issueID
}
