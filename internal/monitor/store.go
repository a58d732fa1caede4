package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrorLog 错误日志记录
type ErrorLog struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"` // warn/error
	Component string    `json:"component"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
}

// MetricsSnapshot 系统指标快照
type MetricsSnapshot struct {
	Timestamp  time.Time `json:"timestamp"`
	Goroutines int       `json:"goroutines"`
	HeapAlloc  uint64    `json:"heap_alloc"`
	HeapSys    uint64    `json:"heap_sys"`
	NumGC      uint32    `json:"num_gc"`
	UptimeSec  float64   `json:"uptime_sec"`
}

// Store 监控数据存储，基于Redis定长列表
// 新记录LPUSH到表头，LTRIM截断超出上限的旧记录
type Store struct {
	rdb          *redis.Client
	keyPrefix    string
	maxErrorLogs int
	maxMetrics   int
}

func NewStore(rdb *redis.Client, keyPrefix string, maxErrorLogs, maxMetrics int) *Store {
	if keyPrefix == "" {
		keyPrefix = "p2p:monitor"
	}
	if maxErrorLogs <= 0 {
		maxErrorLogs = 100
	}
	if maxMetrics <= 0 {
		maxMetrics = 60
	}
	return &Store{
		rdb:          rdb,
		keyPrefix:    keyPrefix,
		maxErrorLogs: maxErrorLogs,
		maxMetrics:   maxMetrics,
	}
}

func (s *Store) errorKey() string {
	return s.keyPrefix + ":errors"
}

func (s *Store) metricsKey() string {
	return s.keyPrefix + ":metrics"
}

// AppendError 追加错误日志，超出上限的最旧记录被淘汰
func (s *Store) AppendError(ctx context.Context, entry *ErrorLog) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()[:32]
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal error log: %w", err)
	}

	pipe := s.rdb.TxPipeline()
	pipe.LPush(ctx, s.errorKey(), data)
	pipe.LTrim(ctx, s.errorKey(), 0, int64(s.maxErrorLogs-1))
	_, err = pipe.Exec(ctx)
	return err
}

// ListErrors 获取错误日志，新记录在前
// component/level非空时过滤，limit<=0时返回全部保留记录
func (s *Store) ListErrors(ctx context.Context, component, level string, limit int) ([]ErrorLog, error) {
	raw, err := s.rdb.LRange(ctx, s.errorKey(), 0, int64(s.maxErrorLogs-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read error logs: %w", err)
	}

	logs := make([]ErrorLog, 0, len(raw))
	for _, item := range raw {
		var entry ErrorLog
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			continue // 跳过损坏的记录
		}
		if component != "" && entry.Component != component {
			continue
		}
		if level != "" && entry.Level != level {
			continue
		}
		logs = append(logs, entry)
		if limit > 0 && len(logs) >= limit {
			break
		}
	}
	return logs, nil
}

// ClearErrors 清空错误日志
func (s *Store) ClearErrors(ctx context.Context) error {
	return s.rdb.Del(ctx, s.errorKey()).Err()
}

// AppendMetrics 追加指标快照
func (s *Store) AppendMetrics(ctx context.Context, snapshot *MetricsSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}

	pipe := s.rdb.TxPipeline()
	pipe.LPush(ctx, s.metricsKey(), data)
	pipe.LTrim(ctx, s.metricsKey(), 0, int64(s.maxMetrics-1))
	_, err = pipe.Exec(ctx)
	return err
}

// ListMetrics 获取历史指标快照，新记录在前
func (s *Store) ListMetrics(ctx context.Context, limit int) ([]MetricsSnapshot, error) {
	end := int64(s.maxMetrics - 1)
	if limit > 0 && int64(limit-1) < end {
		end = int64(limit - 1)
	}
	raw, err := s.rdb.LRange(ctx, s.metricsKey(), 0, end).Result()
	if err != nil {
		return nil, fmt.Errorf("read metrics: %w", err)
	}

	snapshots := make([]MetricsSnapshot, 0, len(raw))
	for _, item := range raw {
		var snapshot MetricsSnapshot
		if err := json.Unmarshal([]byte(item), &snapshot); err != nil {
			continue
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, nil
}
