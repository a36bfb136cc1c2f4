package chat

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	memberKeyPrefix = "chat:members:"
	tokenKeyPrefix  = "chat:token:"
)

// ChannelRegistry tracks channel membership and caches provider session
// tokens in Redis.
type ChannelRegistry struct {
	client *redis.Client
}

// NewChannelRegistry builds the registry.
func NewChannelRegistry(client *redis.Client) *ChannelRegistry {
	return &ChannelRegistry{client: client}
}

// AddMember records the composite user id as a channel member.
func (r *ChannelRegistry) AddMember(ctx context.Context, channelID, compositeID string) error {
	return r.client.SAdd(ctx, memberKeyPrefix+channelID, compositeID).Err()
}

// RemoveMember drops the membership record.
func (r *ChannelRegistry) RemoveMember(ctx context.Context, channelID, compositeID string) error {
	return r.client.SRem(ctx, memberKeyPrefix+channelID, compositeID).Err()
}

// IsMember reports membership.
func (r *ChannelRegistry) IsMember(ctx context.Context, channelID, compositeID string) (bool, error) {
	return r.client.SIsMember(ctx, memberKeyPrefix+channelID, compositeID).Result()
}

// CacheToken stores an issued provider token until it expires.
func (r *ChannelRegistry) CacheToken(ctx context.Context, compositeID, token string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, tokenKeyPrefix+compositeID, token, ttl).Err()
}

// CachedToken returns a previously issued token and its expiry, derived from
// the key's remaining TTL, or empty when absent.
func (r *ChannelRegistry) CachedToken(ctx context.Context, compositeID string) (string, time.Time, error) {
	key := tokenKeyPrefix + compositeID
	token, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", time.Time{}, nil
	}
	if err != nil {
		return "", time.Time{}, err
	}
	ttl, err := r.client.TTL(ctx, key).Result()
	if err != nil || ttl <= 0 {
		return token, time.Time{}, nil
	}
	return token, time.Now().Add(ttl), nil
}
