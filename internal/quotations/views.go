package quotations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// View keys for the cached projections of the quotation collection. Every
// mutation must be followed by invalidation of each view it could affect.
const keyPrefix = "quotations"

// KeyListAll names the unfiltered list view.
func KeyListAll() string {
	return keyPrefix + ":list:all"
}

// KeyListStatus names the per-status list view.
func KeyListStatus(s Status) string {
	return fmt.Sprintf("%s:list:%s", keyPrefix, s)
}

// KeyItem names the single-quotation view.
func KeyItem(id int64) string {
	return fmt.Sprintf("%s:item:%d", keyPrefix, id)
}

// ViewStore caches named views of the quotation collection in Redis. A nil
// store (or one without a client) degrades to loader passthrough so code
// paths stay usable without Redis.
type ViewStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewViewStore instantiates the cache helper.
func NewViewStore(client *redis.Client, ttl time.Duration) *ViewStore {
	return &ViewStore{client: client, ttl: ttl}
}

// FetchJSON loads a cached view or populates it using the loader.
func (v *ViewStore) FetchJSON(ctx context.Context, key string, dest interface{}, loader func(context.Context) (interface{}, error)) error {
	if loader == nil {
		return errors.New("viewstore: loader required")
	}
	if v == nil || v.client == nil {
		value, err := loader(ctx)
		if err != nil {
			return err
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return err
		}
		return json.Unmarshal(raw, dest)
	}
	payload, err := v.client.Get(ctx, key).Bytes()
	if err == nil {
		return json.Unmarshal(payload, dest)
	}
	if err != redis.Nil {
		return err
	}
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := v.client.Set(ctx, key, raw, v.ttl).Err(); err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

// Invalidate drops one named view so the next read refetches it.
// Invalidating an already-fresh view is a no-op in effect, which is what
// makes interleaved invalidations from concurrent mutations safe.
func (v *ViewStore) Invalidate(ctx context.Context, key string) error {
	if v == nil || v.client == nil {
		return nil
	}
	return v.client.Del(ctx, key).Err()
}
