package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chatlead/convo-pipeline/internal/apperrors"
	"github.com/chatlead/convo-pipeline/internal/model"
	"github.com/chatlead/convo-pipeline/internal/observer"
	"github.com/chatlead/convo-pipeline/internal/storage"
	"github.com/chatlead/convo-pipeline/pkg/logger"
	"github.com/chatlead/convo-pipeline/pkg/utils"
)

type cacheEntry struct {
	ctx       model.BusinessContext
	expiresAt time.Time
}

// BusinessContextCache is a read-through, per-process TTL cache over the
// tenant configuration. A missing tenant is cached as a Missing context
// for the full TTL so repeated unknown-tenant traffic doesn't hammer the
// database. Invalidate drops a single tenant immediately.
type BusinessContextCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	repo    storage.BusinessRepo
	ttl     time.Duration
}

// NewBusinessContextCache creates a cache backed by the given repo.
func NewBusinessContextCache(repo storage.BusinessRepo, ttl time.Duration) *BusinessContextCache {
	return &BusinessContextCache{
		entries: make(map[string]cacheEntry),
		repo:    repo,
		ttl:     ttl,
	}
}

// Get returns the tenant's business context, loading and caching it on
// miss or expiry. Load failures are returned without poisoning the cache,
// except ErrNotFound which is cached as a Missing context.
func (c *BusinessContextCache) Get(ctx context.Context, businessID string) (model.BusinessContext, error) {
	c.mu.RLock()
	entry, ok := c.entries[businessID]
	c.mu.RUnlock()

	now := utils.Now()
	if ok {
		if now.Before(entry.expiresAt) {
			observer.IncContextCacheCheck("hit")
			return entry.ctx, nil
		}
		observer.IncContextCacheCheck("expired")
	} else {
		observer.IncContextCacheCheck("miss")
	}

	loaded, err := c.load(ctx, businessID)
	if err != nil {
		return model.BusinessContext{}, err
	}

	c.mu.Lock()
	c.entries[businessID] = cacheEntry{ctx: loaded, expiresAt: now.Add(c.ttl)}
	c.mu.Unlock()

	return loaded, nil
}

// Invalidate drops the tenant's cached context so the next Get reloads.
func (c *BusinessContextCache) Invalidate(businessID string) {
	c.mu.Lock()
	delete(c.entries, businessID)
	c.mu.Unlock()
	observer.IncContextCacheInvalidation()
}

// InvalidateAll drops every cached context.
func (c *BusinessContextCache) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
	observer.IncContextCacheInvalidation()
}

func (c *BusinessContextCache) load(ctx context.Context, businessID string) (model.BusinessContext, error) {
	business, err := c.repo.FindBusinessByID(ctx, businessID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.FromContext(ctx).Warn("Business not found, caching missing context",
				zap.String("business_id", businessID))
			return model.BusinessContext{BusinessID: businessID, Missing: true}, nil
		}
		return model.BusinessContext{}, err
	}

	services, err := c.repo.FindActiveServices(ctx, businessID)
	if err != nil {
		return model.BusinessContext{}, err
	}

	var promoIntents []string
	if len(business.PromoIntents) > 0 {
		if jsonErr := json.Unmarshal(business.PromoIntents, &promoIntents); jsonErr != nil {
			logger.FromContext(ctx).Warn("Ignoring malformed promo_intents",
				zap.String("business_id", businessID), zap.Error(jsonErr))
			promoIntents = nil
		}
	}

	return model.BusinessContext{
		BusinessID:     business.ID,
		BusinessName:   business.Name,
		Services:       services,
		OfficeHours:    business.OfficeHours,
		Language:       business.LanguagePreference,
		BookingRules:   business.BookingRules,
		AIReplyEnabled: business.AIReplyEnabled,
		PromoIntents:   promoIntents,
		PromoMessage:   business.PromoMessage,
	}, nil
}
