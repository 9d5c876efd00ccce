package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/zsiec/bwrle/internal/config"
	"github.com/zsiec/bwrle/internal/metrics"
)

// putScript stores a report only if its key is free and indexes it.
var putScript = redis.NewScript(`
	local key = KEYS[1]
	local index_key = KEYS[2]
	local data = ARGV[1]
	local ttl = tonumber(ARGV[2])
	local id = ARGV[3]
	local ok
	if ttl > 0 then
		ok = redis.call('SET', key, data, 'PX', ttl, 'NX')
	else
		ok = redis.call('SET', key, data, 'NX')
	end
	if not ok then
		return 0
	end
	redis.call('SADD', index_key, id)
	return 1
`)

// listScript returns every indexed report and prunes expired IDs.
var listScript = redis.NewScript(`
	local index_key = KEYS[1]
	local prefix = ARGV[1]
	local ids = redis.call('SMEMBERS', index_key)
	local result = {}
	for _, id in ipairs(ids) do
		local data = redis.call('GET', prefix .. id)
		if data then
			table.insert(result, data)
		else
			redis.call('SREM', index_key, id)
		end
	end
	return result
`)

// RedisCatalog stores reports as JSON strings under prefix+"report:"+id with
// a TTL and keeps their IDs in the set prefix+"index". Report keys live in
// their own namespace so no ID can address the index.
type RedisCatalog struct {
	client *redis.Client
	logger *logrus.Logger
	prefix string
	ttl    time.Duration
}

// NewRedisClient builds a client for the first configured address.
func NewRedisClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addresses[0],
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})
}

// NewRedisCatalog takes ownership of client; Close closes it.
func NewRedisCatalog(client *redis.Client, logger *logrus.Logger, cfg config.CatalogConfig) *RedisCatalog {
	return &RedisCatalog{
		client: client,
		logger: logger,
		prefix: cfg.Prefix,
		ttl:    cfg.TTL,
	}
}

func (c *RedisCatalog) reportPrefix() string {
	return c.prefix + "report:"
}

func (c *RedisCatalog) key(id string) string {
	return c.reportPrefix() + id
}

func (c *RedisCatalog) indexKey() string {
	return c.prefix + "index"
}

func (c *RedisCatalog) Put(ctx context.Context, r *Report) (err error) {
	defer func() { metrics.RecordCatalogOperation("redis", "put", err) }()

	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	stored, err := putScript.Run(ctx, c.client,
		[]string{c.key(r.ID), c.indexKey()},
		data, c.ttl.Milliseconds(), r.ID).Int()
	if err != nil {
		return fmt.Errorf("failed to store report: %w", err)
	}
	if stored == 0 {
		return ErrReportExists
	}

	c.logger.WithFields(logrus.Fields{
		"report_id": r.ID,
		"name":      r.Name,
		"frames":    r.Summary.Frames,
	}).Info("Report stored")
	return nil
}

func (c *RedisCatalog) Get(ctx context.Context, id string) (r *Report, err error) {
	defer func() { metrics.RecordCatalogOperation("redis", "get", err) }()

	data, err := c.client.Get(ctx, c.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &report, nil
}

func (c *RedisCatalog) List(ctx context.Context) (reports []*Report, err error) {
	defer func() { metrics.RecordCatalogOperation("redis", "list", err) }()

	res, err := listScript.Run(ctx, c.client, []string{c.indexKey()}, c.reportPrefix()).StringSlice()
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	reports = make([]*Report, 0, len(res))
	for _, data := range res {
		var report Report
		if err := json.Unmarshal([]byte(data), &report); err != nil {
			c.logger.WithError(err).Warn("Skipping unreadable report")
			continue
		}
		reports = append(reports, &report)
	}
	sortNewestFirst(reports)
	return reports, nil
}

func (c *RedisCatalog) Delete(ctx context.Context, id string) (err error) {
	defer func() { metrics.RecordCatalogOperation("redis", "delete", err) }()

	deleted, err := c.client.Del(ctx, c.key(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}

	if err := c.client.SRem(ctx, c.indexKey(), id).Err(); err != nil {
		c.logger.WithError(err).WithField("report_id", id).Warn("Failed to remove report from index")
	}

	if deleted == 0 {
		return ErrReportNotFound
	}

	c.logger.WithField("report_id", id).Info("Report deleted")
	return nil
}

// Client exposes the underlying connection for health checks.
func (c *RedisCatalog) Client() *redis.Client {
	return c.client
}

func (c *RedisCatalog) Close() error {
	return c.client.Close()
}
