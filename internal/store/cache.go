package store

import (
	"context"
	"encoding/json"
	"time"

	"notification-dispatcher/internal/common/logger"
	"notification-dispatcher/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const DefaultCacheTTL = 5 * time.Minute

// CachedStore puts a Redis cache-aside layer in front of the preference and
// active template lookups of the hot path. Writes that touch cached rows
// invalidate them; Redis failures fall through to PostgreSQL.
type CachedStore struct {
	*Store
	redis  redis.Cmdable
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedStore(s *Store, rdb redis.Cmdable, ttl time.Duration, log logger.Logger) *CachedStore {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedStore{
		Store:  s,
		redis:  rdb,
		ttl:    ttl,
		logger: log.With(map[string]interface{}{"component": "store-cache"}),
	}
}

func preferenceKey(userID uuid.UUID) string { return "pref:" + userID.String() }

func templatesKey(eventType string) string { return "tmpl:" + eventType }

func (c *CachedStore) GetPreference(ctx context.Context, userID uuid.UUID) (*models.UserNotificationPreference, error) {
	key := preferenceKey(userID)
	if val, err := c.redis.Get(ctx, key).Result(); err == nil {
		var p models.UserNotificationPreference
		if err := json.Unmarshal([]byte(val), &p); err == nil {
			return &p, nil
		}
	}

	p, err := c.Store.GetPreference(ctx, userID)
	if err != nil || p == nil {
		return p, err
	}
	c.set(ctx, key, p)
	return p, nil
}

func (c *CachedStore) ActiveTemplates(ctx context.Context, eventType string) ([]*models.NotificationTemplate, error) {
	key := templatesKey(eventType)
	if val, err := c.redis.Get(ctx, key).Result(); err == nil {
		var ts []*models.NotificationTemplate
		if err := json.Unmarshal([]byte(val), &ts); err == nil {
			return ts, nil
		}
	}

	ts, err := c.Store.ActiveTemplates(ctx, eventType)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, ts)
	return ts, nil
}

func (c *CachedStore) CreatePreference(ctx context.Context, p *models.UserNotificationPreference) error {
	if err := c.Store.CreatePreference(ctx, p); err != nil {
		return err
	}
	c.invalidate(ctx, preferenceKey(p.UserID))
	return nil
}

func (c *CachedStore) UpdatePreference(ctx context.Context, p *models.UserNotificationPreference) error {
	if err := c.Store.UpdatePreference(ctx, p); err != nil {
		return err
	}
	c.invalidate(ctx, preferenceKey(p.UserID))
	return nil
}

func (c *CachedStore) UpsertPushToken(ctx context.Context, userID uuid.UUID, token string) (*models.UserNotificationPreference, error) {
	p, err := c.Store.UpsertPushToken(ctx, userID, token)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx, preferenceKey(userID))
	return p, nil
}

func (c *CachedStore) CreateTemplate(ctx context.Context, t *models.NotificationTemplate) error {
	if err := c.Store.CreateTemplate(ctx, t); err != nil {
		return err
	}
	c.invalidate(ctx, templatesKey(t.EventType))
	return nil
}

func (c *CachedStore) UpsertTemplate(ctx context.Context, t *models.NotificationTemplate) error {
	if err := c.Store.UpsertTemplate(ctx, t); err != nil {
		return err
	}
	c.invalidate(ctx, templatesKey(t.EventType))
	return nil
}

func (c *CachedStore) UpdateTemplate(ctx context.Context, t *models.NotificationTemplate) error {
	if err := c.Store.UpdateTemplate(ctx, t); err != nil {
		return err
	}
	c.invalidate(ctx, templatesKey(t.EventType))
	return nil
}

func (c *CachedStore) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	t, err := c.Store.GetTemplate(ctx, id)
	if err != nil {
		return err
	}
	if err := c.Store.DeleteTemplate(ctx, id); err != nil {
		return err
	}
	c.invalidate(ctx, templatesKey(t.EventType))
	return nil
}

func (c *CachedStore) set(ctx context.Context, key string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
}

func (c *CachedStore) invalidate(ctx context.Context, key string) {
	if err := c.redis.Del(ctx, key).Err(); err != nil {
		c.logger.Warn("cache invalidation failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
}
