package handler

import (
	"errors"

	"github.com/bitfantasy/nimo-p2p/internal/p2p/entity"
	"github.com/bitfantasy/nimo-p2p/internal/p2p/repository"
	"github.com/bitfantasy/nimo-p2p/internal/p2p/service"
	"github.com/gin-gonic/gin"
)

// MaterialHandler 物料处理器
type MaterialHandler struct {
	svc *service.MaterialService
}

func NewMaterialHandler(svc *service.MaterialService) *MaterialHandler {
	return &MaterialHandler{svc: svc}
}

// ListMaterials 物料列表
// GET /api/v1/materials?keyword=xxx&status=xxx&type=xxx
func (h *MaterialHandler) ListMaterials(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"keyword": c.Query("keyword"),
		"status":  c.Query("status"),
		"type":    c.Query("type"),
	}

	items, total, err := h.svc.ListMaterials(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取物料列表失败: "+err.Error())
		return
	}

	Success(c, ListResponse{
		Items:      items,
		Pagination: newPagination(page, pageSize, total),
	})
}

// GetMaterial 物料详情
// GET /api/v1/materials/:id
func (h *MaterialHandler) GetMaterial(c *gin.Context) {
	id := c.Param("id")
	material, err := h.svc.GetMaterial(c.Request.Context(), id)
	if err != nil {
		NotFound(c, "物料不存在")
		return
	}
	Success(c, material)
}

// CreateMaterial 创建物料
// POST /api/v1/materials
func (h *MaterialHandler) CreateMaterial(c *gin.Context) {
	var req service.CreateMaterialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	userID := GetUserID(c)
	material, err := h.svc.CreateMaterial(c.Request.Context(), userID, &req)
	if err != nil {
		if errors.Is(err, service.ErrCodeExists) {
			Conflict(c, err.Error())
			return
		}
		BadRequest(c, err.Error())
		return
	}

	Created(c, material)
}

// UpdateMaterial 更新物料
// PUT /api/v1/materials/:id
func (h *MaterialHandler) UpdateMaterial(c *gin.Context) {
	id := c.Param("id")
	var req service.UpdateMaterialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	material, err := h.svc.UpdateMaterial(c.Request.Context(), id, &req)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "物料不存在")
			return
		}
		BadRequest(c, err.Error())
		return
	}

	Success(c, material)
}

// transition 物料状态流转的公共逻辑
func (h *MaterialHandler) transition(c *gin.Context, target string) {
	id := c.Param("id")
	material, err := h.svc.TransitionMaterial(c.Request.Context(), id, target)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "物料不存在")
			return
		}
		BadRequest(c, err.Error())
		return
	}
	Success(c, material)
}

// ActivateMaterial 启用物料
// POST /api/v1/materials/:id/activate
func (h *MaterialHandler) ActivateMaterial(c *gin.Context) {
	h.transition(c, entity.MaterialStatusActive)
}

// DeactivateMaterial 停用物料
// POST /api/v1/materials/:id/deactivate
func (h *MaterialHandler) DeactivateMaterial(c *gin.Context) {
	h.transition(c, entity.MaterialStatusInactive)
}

// DeprecateMaterial 废弃物料
// POST /api/v1/materials/:id/deprecate
func (h *MaterialHandler) DeprecateMaterial(c *gin.Context) {
	h.transition(c, entity.MaterialStatusDeprecated)
}

// DeleteMaterial 删除物料
// DELETE /api/v1/materials/:id
func (h *MaterialHandler) DeleteMaterial(c *gin.Context) {
	id := c.Param("id")
	if err := h.svc.DeleteMaterial(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "物料不存在")
			return
		}
		BadRequest(c, err.Error())
		return
	}
	Success(c, gin.H{"deleted": true})
}
