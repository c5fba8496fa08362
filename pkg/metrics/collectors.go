package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// StoreStats is a point-in-time view of the message store.
type StoreStats struct {
	Messages      int
	Conversations int
	ActiveChats   int
}

// StoreStatsCollector reads store sizes at scrape time
type StoreStatsCollector struct {
	stats func() StoreStats

	messages      *prometheus.Desc
	conversations *prometheus.Desc
	activeChats   *prometheus.Desc
}

func NewStoreStatsCollector(stats func() StoreStats) *StoreStatsCollector {
	return &StoreStatsCollector{
		stats: stats,
		messages: prometheus.NewDesc(
			"relay_store_messages",
			"Number of messages currently held in memory",
			nil, nil,
		),
		conversations: prometheus.NewDesc(
			"relay_store_conversations",
			"Number of distinct counterparties with at least one message",
			nil, nil,
		),
		activeChats: prometheus.NewDesc(
			"relay_store_active_chats",
			"Number of channel-prefixed addresses seen",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector
func (c *StoreStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.messages
	ch <- c.conversations
	ch <- c.activeChats
}

// Collect implements prometheus.Collector
func (c *StoreStatsCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.stats()
	ch <- prometheus.MustNewConstMetric(c.messages, prometheus.GaugeValue, float64(s.Messages))
	ch <- prometheus.MustNewConstMetric(c.conversations, prometheus.GaugeValue, float64(s.Conversations))
	ch <- prometheus.MustNewConstMetric(c.activeChats, prometheus.GaugeValue, float64(s.ActiveChats))
}

// RedisStatsCollector collects Redis pool statistics
type RedisStatsCollector struct {
	client *redis.Client

	poolHits       *prometheus.Desc
	poolMisses     *prometheus.Desc
	poolTimeouts   *prometheus.Desc
	poolTotalConns *prometheus.Desc
	poolIdleConns  *prometheus.Desc
}

func NewRedisStatsCollector(client *redis.Client) *RedisStatsCollector {
	return &RedisStatsCollector{
		client: client,
		poolHits: prometheus.NewDesc(
			"redis_pool_hits_total",
			"Number of times free connection was found in the pool",
			nil, nil,
		),
		poolMisses: prometheus.NewDesc(
			"redis_pool_misses_total",
			"Number of times free connection was NOT found in the pool",
			nil, nil,
		),
		poolTimeouts: prometheus.NewDesc(
			"redis_pool_timeouts_total",
			"Number of times a wait timeout occurred",
			nil, nil,
		),
		poolTotalConns: prometheus.NewDesc(
			"redis_pool_total_connections",
			"Number of total connections in the pool",
			nil, nil,
		),
		poolIdleConns: prometheus.NewDesc(
			"redis_pool_idle_connections",
			"Number of idle connections in the pool",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector
func (c *RedisStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.poolHits
	ch <- c.poolMisses
	ch <- c.poolTimeouts
	ch <- c.poolTotalConns
	ch <- c.poolIdleConns
}

// Collect implements prometheus.Collector
func (c *RedisStatsCollector) Collect(ch chan<- prometheus.Metric) {
	stats := c.client.PoolStats()

	ch <- prometheus.MustNewConstMetric(c.poolHits, prometheus.CounterValue, float64(stats.Hits))
	ch <- prometheus.MustNewConstMetric(c.poolMisses, prometheus.CounterValue, float64(stats.Misses))
	ch <- prometheus.MustNewConstMetric(c.poolTimeouts, prometheus.CounterValue, float64(stats.Timeouts))
	ch <- prometheus.MustNewConstMetric(c.poolTotalConns, prometheus.GaugeValue, float64(stats.TotalConns))
	ch <- prometheus.MustNewConstMetric(c.poolIdleConns, prometheus.GaugeValue, float64(stats.IdleConns))
}

// ArchiveStatsCollector exposes the archive writer's internal counters
type ArchiveStatsCollector struct {
	getMetrics func() map[string]int64

	queued  *prometheus.Desc
	sent    *prometheus.Desc
	failed  *prometheus.Desc
	dropped *prometheus.Desc
}

func NewArchiveStatsCollector(getMetrics func() map[string]int64) *ArchiveStatsCollector {
	return &ArchiveStatsCollector{
		getMetrics: getMetrics,
		queued: prometheus.NewDesc(
			"relay_archive_messages_queued",
			"Total messages queued for the Kafka archive",
			nil, nil,
		),
		sent: prometheus.NewDesc(
			"relay_archive_messages_sent",
			"Total messages delivered to the Kafka archive",
			nil, nil,
		),
		failed: prometheus.NewDesc(
			"relay_archive_messages_failed",
			"Total messages the Kafka archive failed to deliver",
			nil, nil,
		),
		dropped: prometheus.NewDesc(
			"relay_archive_messages_dropped",
			"Total messages dropped because the archive buffer was full",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector
func (c *ArchiveStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.queued
	ch <- c.sent
	ch <- c.failed
	ch <- c.dropped
}

// Collect implements prometheus.Collector
func (c *ArchiveStatsCollector) Collect(ch chan<- prometheus.Metric) {
	m := c.getMetrics()
	ch <- prometheus.MustNewConstMetric(c.queued, prometheus.CounterValue, float64(m["queued"]))
	ch <- prometheus.MustNewConstMetric(c.sent, prometheus.CounterValue, float64(m["sent"]))
	ch <- prometheus.MustNewConstMetric(c.failed, prometheus.CounterValue, float64(m["failed"]))
	ch <- prometheus.MustNewConstMetric(c.dropped, prometheus.CounterValue, float64(m["dropped"]))
}

// RegisterCollectors registers all custom collectors. Nil sources are skipped.
func RegisterCollectors(storeStats func() StoreStats, redisClient *redis.Client, archiveMetrics func() map[string]int64) error {
	var collectors []prometheus.Collector

	if storeStats != nil {
		collectors = append(collectors, NewStoreStatsCollector(storeStats))
	}
	if redisClient != nil {
		collectors = append(collectors, NewRedisStatsCollector(redisClient))
	}
	if archiveMetrics != nil {
		collectors = append(collectors, NewArchiveStatsCollector(archiveMetrics))
	}

	for _, c := range collectors {
		if err := prometheus.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return err
		}
	}
	return nil
}
