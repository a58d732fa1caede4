package handler

import (
	"errors"

	"github.com/bitfantasy/nimo-p2p/internal/p2p/repository"
	"github.com/bitfantasy/nimo-p2p/internal/p2p/service"
	"github.com/gin-gonic/gin"
)

// OrderHandler 采购订单处理器
type OrderHandler struct {
	svc       *service.P2PService
	exportSvc *service.ExportService
}

func NewOrderHandler(svc *service.P2PService, exportSvc *service.ExportService) *OrderHandler {
	return &OrderHandler{svc: svc, exportSvc: exportSvc}
}

// ListOrders 采购订单列表
// GET /api/v1/p2p/orders?status=xxx&vendor=xxx&requisition_id=xxx&search=xxx
func (h *OrderHandler) ListOrders(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"status":         c.Query("status"),
		"vendor":         c.Query("vendor"),
		"requisition_id": c.Query("requisition_id"),
		"search":         c.Query("search"),
	}

	items, total, err := h.svc.ListOrders(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取采购订单列表失败: "+err.Error())
		return
	}

	Success(c, ListResponse{
		Items:      items,
		Pagination: newPagination(page, pageSize, total),
	})
}

// GetOrder 采购订单详情
// GET /api/v1/p2p/orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	id := c.Param("id")
	order, err := h.svc.GetOrder(c.Request.Context(), id)
	if err != nil {
		NotFound(c, "采购订单不存在")
		return
	}
	Success(c, order)
}

// CreateOrder 创建采购订单
// POST /api/v1/p2p/orders
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	userID := GetUserID(c)
	order, err := h.svc.CreateOrder(c.Request.Context(), userID, &req)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	Created(c, order)
}

// UpdateOrder 更新草稿订单
// PUT /api/v1/p2p/orders/:id
func (h *OrderHandler) UpdateOrder(c *gin.Context) {
	id := c.Param("id")
	var req service.UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	order, err := h.svc.UpdateOrder(c.Request.Context(), id, &req)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "采购订单不存在")
			return
		}
		BadRequest(c, err.Error())
		return
	}

	Success(c, order)
}

// SubmitOrder 提交采购订单
// POST /api/v1/p2p/orders/:id/submit
func (h *OrderHandler) SubmitOrder(c *gin.Context) {
	h.workflow(c, func(id string) (interface{}, error) {
		return h.svc.SubmitOrder(c.Request.Context(), id)
	})
}

// ApproveOrder 审批采购订单
// POST /api/v1/p2p/orders/:id/approve
func (h *OrderHandler) ApproveOrder(c *gin.Context) {
	userID := GetUserID(c)
	h.workflow(c, func(id string) (interface{}, error) {
		return h.svc.ApproveOrder(c.Request.Context(), id, userID)
	})
}

// ReceiveOrder 订单收货
// POST /api/v1/p2p/orders/:id/receive
func (h *OrderHandler) ReceiveOrder(c *gin.Context) {
	id := c.Param("id")
	var req service.ReceiveOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	order, err := h.svc.ReceiveOrder(c.Request.Context(), id, &req)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "采购订单不存在")
			return
		}
		BadRequest(c, err.Error())
		return
	}

	Success(c, order)
}

// CompleteOrder 完成采购订单
// POST /api/v1/p2p/orders/:id/complete
func (h *OrderHandler) CompleteOrder(c *gin.Context) {
	h.workflow(c, func(id string) (interface{}, error) {
		return h.svc.CompleteOrder(c.Request.Context(), id)
	})
}

// CancelOrder 取消采购订单
// POST /api/v1/p2p/orders/:id/cancel
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	// 取消原因可选，空请求体也允许
	_ = c.ShouldBindJSON(&req)

	h.workflow(c, func(id string) (interface{}, error) {
		return h.svc.CancelOrder(c.Request.Context(), id, req.Reason)
	})
}

// DeleteOrder 删除草稿订单
// DELETE /api/v1/p2p/orders/:id
func (h *OrderHandler) DeleteOrder(c *gin.Context) {
	id := c.Param("id")
	if err := h.svc.DeleteOrder(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "采购订单不存在")
			return
		}
		BadRequest(c, err.Error())
		return
	}
	Success(c, gin.H{"deleted": true})
}

// ExportOrder 导出采购订单Excel
// GET /api/v1/p2p/orders/:id/export
func (h *OrderHandler) ExportOrder(c *gin.Context) {
	id := c.Param("id")

	f, filename, err := h.exportSvc.ExportOrder(c.Request.Context(), id)
	if err != nil {
		NotFound(c, err.Error())
		return
	}
	defer f.Close()

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Header("Content-Transfer-Encoding", "binary")

	if err := f.Write(c.Writer); err != nil {
		InternalError(c, "write excel: "+err.Error())
	}
}

// ExportState 导出全量业务状态快照
// POST /api/v1/admin/state-export
func (h *OrderHandler) ExportState(c *gin.Context) {
	path, err := h.exportSvc.ExportState(c.Request.Context())
	if err != nil {
		InternalError(c, "导出状态失败: "+err.Error())
		return
	}
	Success(c, gin.H{"path": path})
}

// workflow 状态流转操作的公共错误处理
func (h *OrderHandler) workflow(c *gin.Context, fn func(id string) (interface{}, error)) {
	id := c.Param("id")
	result, err := fn(id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "采购订单不存在")
			return
		}
		BadRequest(c, err.Error())
		return
	}
	Success(c, result)
}
