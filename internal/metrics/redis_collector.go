package metrics

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
)

// redisCollector reads run-store gauges straight from redis on scrape, so the
// numbers stay correct across restarts and multiple replicas.
type redisCollector struct {
	rdb    *redis.Client
	logger *slog.Logger

	runsStoredDesc  *prometheus.Desc
	runsExpiredDesc *prometheus.Desc
}

func newRedisCollector(rdb *redis.Client, logger *slog.Logger) *redisCollector {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisCollector{
		rdb:    rdb,
		logger: logger,
		runsStoredDesc: prometheus.NewDesc(
			"quizchain_runs_stored",
			"Current number of chain runs held in the run store.",
			nil,
			nil,
		),
		runsExpiredDesc: prometheus.NewDesc(
			"quizchain_runs_awaiting_purge",
			"Runs past their retention window that the sweep has not removed yet.",
			nil,
			nil,
		),
	}
}

func (c *redisCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.runsStoredDesc
	ch <- c.runsExpiredDesc
}

func (c *redisCollector) Collect(ch chan<- prometheus.Metric) {
	if c.rdb == nil {
		return
	}

	// Keep Redis reads bounded so scrapes do not hang.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	nowUnix := strconv.FormatInt(time.Now().UTC().Unix(), 10)

	pipe := c.rdb.Pipeline()
	stored := pipe.HLen(ctx, "quizchain:runs")
	expired := pipe.ZCount(ctx, "quizchain:runs:ttl", "-inf", nowUnix)
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		c.logger.Warn("prometheus redis collector failed", "err", err)
		return
	}

	emitGauge(ch, c.runsStoredDesc, float64(stored.Val()))
	emitGauge(ch, c.runsExpiredDesc, float64(expired.Val()))
}

func emitGauge(ch chan<- prometheus.Metric, desc *prometheus.Desc, v float64, labelValues ...string) {
	m, err := prometheus.NewConstMetric(desc, prometheus.GaugeValue, v, labelValues...)
	if err != nil {
		return
	}
	ch <- m
}

var registerRedisCollectorOnce sync.Once

func RegisterRedisCollector(rdb *redis.Client, logger *slog.Logger) {
	registerRedisCollectorOnce.Do(func() {
		prometheus.MustRegister(newRedisCollector(rdb, logger))
	})
}
