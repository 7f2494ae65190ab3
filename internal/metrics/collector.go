package metrics

import (
	"context"
	"os"
	"runtime"
	"time"
)

// Collector keeps the system gauges current in the background
type Collector struct {
	metrics     *Metrics
	journalPath string
	interval    time.Duration
	startTime   time.Time
	stopCh      chan struct{}
	doneCh      chan struct{}
}

// NewCollector creates a system metrics collector. journalPath may be empty
// when no activity journal is configured.
func NewCollector(m *Metrics, journalPath string, interval time.Duration) *Collector {
	if interval == 0 {
		interval = 10 * time.Second
	}
	return &Collector{
		metrics:     m,
		journalPath: journalPath,
		interval:    interval,
		startTime:   time.Now(),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

// Start begins the collector background loop
func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.doneCh)

		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		c.update()
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.stopCh:
				return
			case <-ticker.C:
				c.update()
			}
		}
	}()
}

// Stop stops the collector
func (c *Collector) Stop() {
	close(c.stopCh)
	<-c.doneCh
}

func (c *Collector) update() {
	c.metrics.UptimeSeconds.Set(time.Since(c.startTime).Seconds())
	c.metrics.Goroutines.Set(float64(runtime.NumGoroutine()))

	if c.journalPath != "" {
		if info, err := os.Stat(c.journalPath); err == nil {
			c.metrics.JournalUsedBytes.Set(float64(info.Size()))
		}
	}
}
