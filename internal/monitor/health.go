package monitor

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// ComponentHealth 单个组件健康状态
type ComponentHealth struct {
	Name      string `json:"name"`
	Status    string `json:"status"` // up/down
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// HealthReport 整体健康报告
type HealthReport struct {
	Status     string            `json:"status"` // up/degraded
	CheckedAt  time.Time         `json:"checked_at"`
	Components []ComponentHealth `json:"components"`
}

// HealthChecker 依赖组件健康检查
type HealthChecker struct {
	db  *gorm.DB
	rdb *redis.Client
}

func NewHealthChecker(db *gorm.DB, rdb *redis.Client) *HealthChecker {
	return &HealthChecker{db: db, rdb: rdb}
}

// Check 检查全部依赖组件，任一组件不可用则整体为degraded
func (h *HealthChecker) Check(ctx context.Context) *HealthReport {
	report := &HealthReport{
		Status:    "up",
		CheckedAt: time.Now(),
	}

	report.Components = append(report.Components, h.checkDatabase(ctx))
	report.Components = append(report.Components, h.checkRedis(ctx))

	for _, c := range report.Components {
		if c.Status != "up" {
			report.Status = "degraded"
			break
		}
	}
	return report
}

func (h *HealthChecker) checkDatabase(ctx context.Context) ComponentHealth {
	result := ComponentHealth{Name: "postgres", Status: "up"}
	start := time.Now()

	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	result.LatencyMs = time.Since(start).Milliseconds()
	if err != nil {
		result.Status = "down"
		result.Error = err.Error()
	}
	return result
}

func (h *HealthChecker) checkRedis(ctx context.Context) ComponentHealth {
	result := ComponentHealth{Name: "redis", Status: "up"}
	start := time.Now()

	err := h.rdb.Ping(ctx).Err()
	result.LatencyMs = time.Since(start).Milliseconds()
	if err != nil {
		result.Status = "down"
		result.Error = err.Error()
	}
	return result
}
