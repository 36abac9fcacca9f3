// Package store is the client for the real-time document store backing the
// engine. Documents are written through to Redis hashes and change events are
// published on a channel per collection; an in-process bus delivers the same
// events to local subscribers so the engine behaves identically when Redis is
// not configured (simulated mode).
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/sreenidhis29/niyantrana-sos/internal/config"
)

// Collection names mirror the document groups the dashboard subscribes to.
const (
	CollectionUnits         = "units"
	CollectionSignals       = "sos_signals"
	CollectionAlerts        = "broadcast_alerts"
	CollectionSubscriptions = "push_subscriptions"
	CollectionMissionLog    = "mission_log"
)

// Event is one changed document, delivered to subscribers in arrival order.
type Event struct {
	Collection string          `json:"collection"`
	ID         string          `json:"id"`
	Data       json.RawMessage `json:"data"`
}

// Client is an explicit store handle injected into each component. Created
// once per process, never global.
type Client struct {
	log       zerolog.Logger
	rdb       *redis.Client
	prefix    string
	simulated bool

	mu   sync.RWMutex
	subs map[string][]func(Event)
}

// New connects to the configured Redis instance. Connection failure degrades
// to simulated mode rather than failing startup: the operator-facing engine
// must keep working with in-memory state only.
func New(ctx context.Context, cfg config.StoreConfig, log zerolog.Logger) *Client {
	c := &Client{
		log:       log,
		prefix:    cfg.KeyPrefix,
		simulated: true,
		subs:      make(map[string][]func(Event)),
	}

	if cfg.RedisURL == "" {
		log.Warn().Msg("store not configured, running in simulated mode")
		return c
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Warn().Err(err).Msg("invalid store URL, running in simulated mode")
		return c
	}
	opts.DialTimeout = cfg.DialTimeout

	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Warn().Err(err).Msg("store unreachable, running in simulated mode")
		_ = rdb.Close()
		return c
	}

	c.rdb = rdb
	c.simulated = false
	log.Info().Str("prefix", cfg.KeyPrefix).Msg("store connected")
	return c
}

// Simulated reports whether mutations are being persisted.
func (c *Client) Simulated() bool {
	return c.simulated
}

// Publish writes one document and notifies subscribers. The local bus always
// fires, synchronously and in call order, so downstream reactions (the
// interpolator restarting, the ws feed) are causally ordered after the write.
// The returned flag reports whether the document reached the backing store.
func (c *Client) Publish(ctx context.Context, collection, id string, doc any) bool {
	data, err := json.Marshal(doc)
	if err != nil {
		c.log.Error().Err(err).Str("collection", collection).Str("id", id).Msg("marshal document")
		return false
	}

	persisted := false
	if c.rdb != nil {
		key := c.key(collection)
		if err := c.rdb.HSet(ctx, key, id, data).Err(); err != nil {
			c.log.Warn().Err(err).Str("collection", collection).Msg("store write failed")
		} else if err := c.rdb.Publish(ctx, key, data).Err(); err != nil {
			c.log.Warn().Err(err).Str("collection", collection).Msg("store publish failed")
		} else {
			persisted = true
		}
	}

	ev := Event{Collection: collection, ID: id, Data: data}
	c.mu.RLock()
	subs := c.subs[collection]
	c.mu.RUnlock()
	for _, fn := range subs {
		fn(ev)
	}

	return persisted
}

// Subscribe registers a callback for one collection. Callbacks run on the
// publisher's goroutine; keep them short.
func (c *Client) Subscribe(collection string, fn func(Event)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs[collection] = append(c.subs[collection], fn)
}

// Close releases the Redis connection if one was established.
func (c *Client) Close() {
	if c.rdb != nil {
		if err := c.rdb.Close(); err != nil {
			c.log.Warn().Err(err).Msg("closing store client")
		}
	}
}

func (c *Client) key(collection string) string {
	return fmt.Sprintf("%s:%s", c.prefix, collection)
}
