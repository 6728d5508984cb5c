package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/MacJediWizard/dealbook/internal/db"
)

// StatsStore returns directory totals.
type StatsStore interface {
	Stats(ctx context.Context) (*db.DirectoryStats, error)
}

// DirectoryCollector exports directory record counts as gauges. Results are
// cached so frequent scrapes do not hit the database.
type DirectoryCollector struct {
	store  StatsStore
	logger zerolog.Logger
	desc   *prometheus.Desc

	mu            sync.Mutex
	cached        *db.DirectoryStats
	lastCollected time.Time
	cacheExpiry   time.Duration
	timeout       time.Duration
}

// NewDirectoryCollector creates a DirectoryCollector.
func NewDirectoryCollector(store StatsStore, logger zerolog.Logger) *DirectoryCollector {
	return &DirectoryCollector{
		store:  store,
		logger: logger.With().Str("component", "directory_collector").Logger(),
		desc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "directory_records"),
			"Stored records by kind.",
			[]string{"kind"}, nil,
		),
		cacheExpiry: 30 * time.Second,
		timeout:     5 * time.Second,
	}
}

// Describe implements prometheus.Collector.
func (c *DirectoryCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

// Collect implements prometheus.Collector.
func (c *DirectoryCollector) Collect(ch chan<- prometheus.Metric) {
	stats := c.stats()
	if stats == nil {
		return
	}
	for kind, v := range map[string]int64{
		"investors": stats.TotalInvestors,
		"funds":     stats.TotalFunds,
		"users":     stats.TotalUsers,
		"lists":     stats.TotalLists,
	} {
		ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, float64(v), kind)
	}
}

func (c *DirectoryCollector) stats() *db.DirectoryStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cached != nil && time.Since(c.lastCollected) < c.cacheExpiry {
		return c.cached
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	stats, err := c.store.Stats(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("failed to collect directory stats")
		return c.cached
	}
	c.cached = stats
	c.lastCollected = time.Now()
	return stats
}
