package monitor

import (
	"context"
	"runtime"
	"time"

	"go.uber.org/zap"
)

// Collector 系统指标采集器，按固定间隔采样运行时指标写入存储
type Collector struct {
	store     *Store
	logger    *zap.Logger
	interval  time.Duration
	startedAt time.Time
}

func NewCollector(store *Store, logger *zap.Logger, interval time.Duration) *Collector {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Collector{
		store:     store,
		logger:    logger,
		interval:  interval,
		startedAt: time.Now(),
	}
}

// Snapshot 采集当前运行时指标
func (c *Collector) Snapshot() *MetricsSnapshot {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return &MetricsSnapshot{
		Timestamp:  time.Now(),
		Goroutines: runtime.NumGoroutine(),
		HeapAlloc:  m.HeapAlloc,
		HeapSys:    m.HeapSys,
		NumGC:      m.NumGC,
		UptimeSec:  time.Since(c.startedAt).Seconds(),
	}
}

// Run 启动采集循环，ctx取消后退出
func (c *Collector) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snapshot := c.Snapshot()
			if err := c.store.AppendMetrics(ctx, snapshot); err != nil {
				c.logger.Warn("append metrics failed", zap.Error(err))
			}
		}
	}
}
