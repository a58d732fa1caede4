package monitor

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// Handler 监控接口处理器
type Handler struct {
	store     *Store
	collector *Collector
	checker   *HealthChecker
}

func NewHandler(store *Store, collector *Collector, checker *HealthChecker) *Handler {
	return &Handler{store: store, collector: collector, checker: checker}
}

// 响应信封与业务接口保持一致
type response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func success(c *gin.Context, data interface{}) {
	c.JSON(200, response{Code: 0, Message: "success", Data: data})
}

func internalError(c *gin.Context, message string) {
	c.JSON(500, response{Code: 50000, Message: message})
}

// Health 依赖组件健康检查
// GET /api/v1/monitor/health
func (h *Handler) Health(c *gin.Context) {
	report := h.checker.Check(c.Request.Context())
	success(c, report)
}

// Metrics 当前指标与历史快照
// GET /api/v1/monitor/metrics?limit=N
func (h *Handler) Metrics(c *gin.Context) {
	limit := 0
	if l := c.Query("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 {
			limit = v
		}
	}

	history, err := h.store.ListMetrics(c.Request.Context(), limit)
	if err != nil {
		internalError(c, "读取指标失败: "+err.Error())
		return
	}

	success(c, gin.H{
		"current": h.collector.Snapshot(),
		"history": history,
	})
}

// ListErrors 错误日志查询，新记录在前
// GET /api/v1/monitor/errors?component=xxx&level=xxx&limit=N
func (h *Handler) ListErrors(c *gin.Context) {
	limit := 0
	if l := c.Query("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 {
			limit = v
		}
	}

	logs, err := h.store.ListErrors(c.Request.Context(), c.Query("component"), c.Query("level"), limit)
	if err != nil {
		internalError(c, "读取错误日志失败: "+err.Error())
		return
	}
	success(c, gin.H{"items": logs, "count": len(logs)})
}

// RecordError 上报错误日志
// POST /api/v1/monitor/errors
func (h *Handler) RecordError(c *gin.Context) {
	var req struct {
		Level     string `json:"level"`
		Component string `json:"component" binding:"required"`
		Message   string `json:"message" binding:"required"`
		Details   string `json:"details"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, response{Code: 40000, Message: "参数错误: " + err.Error()})
		return
	}

	level := req.Level
	if level == "" {
		level = "error"
	}

	entry := &ErrorLog{
		Level:     level,
		Component: req.Component,
		Message:   req.Message,
		Details:   req.Details,
	}
	if err := h.store.AppendError(c.Request.Context(), entry); err != nil {
		internalError(c, "记录错误日志失败: "+err.Error())
		return
	}
	c.JSON(201, response{Code: 0, Message: "success", Data: entry})
}

// ClearErrors 清空错误日志
// DELETE /api/v1/monitor/errors
func (h *Handler) ClearErrors(c *gin.Context) {
	if err := h.store.ClearErrors(c.Request.Context()); err != nil {
		internalError(c, "清空错误日志失败: "+err.Error())
		return
	}
	success(c, gin.H{"cleared": true})
}
