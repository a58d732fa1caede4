package handler

import (
	"errors"

	"github.com/bitfantasy/nimo-p2p/internal/p2p/repository"
	"github.com/bitfantasy/nimo-p2p/internal/p2p/service"
	"github.com/gin-gonic/gin"
)

// RequisitionHandler 采购申请处理器
type RequisitionHandler struct {
	svc *service.P2PService
}

func NewRequisitionHandler(svc *service.P2PService) *RequisitionHandler {
	return &RequisitionHandler{svc: svc}
}

// ListRequisitions 采购申请列表
// GET /api/v1/p2p/requisitions?status=xxx&requester=xxx&department=xxx&search=xxx
func (h *RequisitionHandler) ListRequisitions(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"status":     c.Query("status"),
		"requester":  c.Query("requester"),
		"department": c.Query("department"),
		"search":     c.Query("search"),
	}

	items, total, err := h.svc.ListRequisitions(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取采购申请列表失败: "+err.Error())
		return
	}

	Success(c, ListResponse{
		Items:      items,
		Pagination: newPagination(page, pageSize, total),
	})
}

// GetRequisition 采购申请详情
// GET /api/v1/p2p/requisitions/:id
func (h *RequisitionHandler) GetRequisition(c *gin.Context) {
	id := c.Param("id")
	requisition, err := h.svc.GetRequisition(c.Request.Context(), id)
	if err != nil {
		NotFound(c, "采购申请不存在")
		return
	}
	Success(c, requisition)
}

// CreateRequisition 创建采购申请
// POST /api/v1/p2p/requisitions
func (h *RequisitionHandler) CreateRequisition(c *gin.Context) {
	var req service.CreateRequisitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	userID := GetUserID(c)
	requisition, err := h.svc.CreateRequisition(c.Request.Context(), userID, &req)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	Created(c, requisition)
}

// UpdateRequisition 更新采购申请
// PUT /api/v1/p2p/requisitions/:id
func (h *RequisitionHandler) UpdateRequisition(c *gin.Context) {
	id := c.Param("id")
	var req service.UpdateRequisitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	requisition, err := h.svc.UpdateRequisition(c.Request.Context(), id, &req)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "采购申请不存在")
			return
		}
		BadRequest(c, err.Error())
		return
	}

	Success(c, requisition)
}

// SubmitRequisition 提交采购申请
// POST /api/v1/p2p/requisitions/:id/submit
func (h *RequisitionHandler) SubmitRequisition(c *gin.Context) {
	h.workflow(c, func(id string) (interface{}, error) {
		return h.svc.SubmitRequisition(c.Request.Context(), id)
	})
}

// ApproveRequisition 审批采购申请
// POST /api/v1/p2p/requisitions/:id/approve
func (h *RequisitionHandler) ApproveRequisition(c *gin.Context) {
	userID := GetUserID(c)
	h.workflow(c, func(id string) (interface{}, error) {
		return h.svc.ApproveRequisition(c.Request.Context(), id, userID)
	})
}

// RejectRequisition 驳回采购申请
// POST /api/v1/p2p/requisitions/:id/reject
func (h *RequisitionHandler) RejectRequisition(c *gin.Context) {
	var req struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	userID := GetUserID(c)
	h.workflow(c, func(id string) (interface{}, error) {
		return h.svc.RejectRequisition(c.Request.Context(), id, userID, req.Reason)
	})
}

// CancelRequisition 取消采购申请
// POST /api/v1/p2p/requisitions/:id/cancel
func (h *RequisitionHandler) CancelRequisition(c *gin.Context) {
	h.workflow(c, func(id string) (interface{}, error) {
		return h.svc.CancelRequisition(c.Request.Context(), id)
	})
}

// CreateOrder 从申请生成采购订单
// POST /api/v1/p2p/requisitions/:id/create-order
func (h *RequisitionHandler) CreateOrder(c *gin.Context) {
	id := c.Param("id")
	var req service.CreateOrderFromRequisitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	userID := GetUserID(c)
	order, err := h.svc.CreateOrderFromRequisition(c.Request.Context(), id, userID, &req)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "采购申请不存在")
			return
		}
		BadRequest(c, err.Error())
		return
	}

	Created(c, order)
}

// DeleteRequisition 删除草稿申请
// DELETE /api/v1/p2p/requisitions/:id
func (h *RequisitionHandler) DeleteRequisition(c *gin.Context) {
	id := c.Param("id")
	if err := h.svc.DeleteRequisition(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "采购申请不存在")
			return
		}
		BadRequest(c, err.Error())
		return
	}
	Success(c, gin.H{"deleted": true})
}

// workflow 状态流转操作的公共错误处理
func (h *RequisitionHandler) workflow(c *gin.Context, fn func(id string) (interface{}, error)) {
	id := c.Param("id")
	result, err := fn(id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "采购申请不存在")
			return
		}
		BadRequest(c, err.Error())
		return
	}
	Success(c, result)
}
