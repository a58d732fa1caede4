package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bitfantasy/nimo-p2p/internal/p2p/entity"
	"github.com/bitfantasy/nimo-p2p/internal/p2p/repository"
	"github.com/google/uuid"
)

// ErrCodeExists 物料编码已被占用
var ErrCodeExists = errors.New("物料编码已存在")

// MaterialService 物料服务
type MaterialService struct {
	materialRepo *repository.MaterialRepository
}

func NewMaterialService(materialRepo *repository.MaterialRepository) *MaterialService {
	return &MaterialService{materialRepo: materialRepo}
}

// ListMaterials 获取物料列表
func (s *MaterialService) ListMaterials(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Material, int64, error) {
	return s.materialRepo.FindAll(ctx, page, pageSize, filters)
}

// GetMaterial 获取物料详情
func (s *MaterialService) GetMaterial(ctx context.Context, id string) (*entity.Material, error) {
	return s.materialRepo.FindByID(ctx, id)
}

// CreateMaterialRequest 创建物料请求
type CreateMaterialRequest struct {
	Code        string   `json:"code"`
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	Type        string   `json:"type" binding:"required"`
	BaseUnit    string   `json:"base_unit"`
	GrossWeight *float64 `json:"gross_weight"`
	Volume      *float64 `json:"volume"`
}

// CreateMaterial 创建物料
func (s *MaterialService) CreateMaterial(ctx context.Context, userID string, req *CreateMaterialRequest) (*entity.Material, error) {
	valid := false
	for _, t := range entity.ValidMaterialTypes {
		if req.Type == t {
			valid = true
			break
		}
	}
	if !valid {
		return nil, fmt.Errorf("无效的物料类型: %s", req.Type)
	}

	code := req.Code
	if code == "" {
		var err error
		code, err = s.materialRepo.GenerateCode(ctx)
		if err != nil {
			return nil, fmt.Errorf("生成物料编码失败: %w", err)
		}
	} else {
		// 编码唯一性检查
		if existing, _ := s.materialRepo.FindByCode(ctx, code); existing != nil {
			return nil, fmt.Errorf("%w: %s", ErrCodeExists, code)
		}
	}

	unit := req.BaseUnit
	if unit == "" {
		unit = "pcs"
	}

	material := &entity.Material{
		ID:          uuid.New().String()[:32],
		Code:        code,
		Name:        req.Name,
		Description: req.Description,
		Type:        req.Type,
		Status:      entity.MaterialStatusActive,
		BaseUnit:    unit,
		GrossWeight: req.GrossWeight,
		Volume:      req.Volume,
		CreatedBy:   userID,
	}

	if err := s.materialRepo.Create(ctx, material); err != nil {
		return nil, err
	}
	return material, nil
}

// UpdateMaterialRequest 更新物料请求
type UpdateMaterialRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	BaseUnit    *string  `json:"base_unit"`
	GrossWeight *float64 `json:"gross_weight"`
	Volume      *float64 `json:"volume"`
}

// UpdateMaterial 更新物料
func (s *MaterialService) UpdateMaterial(ctx context.Context, id string, req *UpdateMaterialRequest) (*entity.Material, error) {
	material, err := s.materialRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if material.Status == entity.MaterialStatusDeprecated {
		return nil, fmt.Errorf("已废弃的物料不允许修改")
	}

	if req.Name != nil {
		material.Name = *req.Name
	}
	if req.Description != nil {
		material.Description = *req.Description
	}
	if req.BaseUnit != nil {
		material.BaseUnit = *req.BaseUnit
	}
	if req.GrossWeight != nil {
		material.GrossWeight = req.GrossWeight
	}
	if req.Volume != nil {
		material.Volume = req.Volume
	}

	if err := s.materialRepo.Update(ctx, material); err != nil {
		return nil, err
	}
	return material, nil
}

// TransitionMaterial 物料状态流转（activate/deactivate/deprecate）
func (s *MaterialService) TransitionMaterial(ctx context.Context, id, target string) (*entity.Material, error) {
	material, err := s.materialRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if material.Status == target {
		return material, nil
	}
	if !material.CanTransitionTo(target) {
		return nil, fmt.Errorf("不允许从 %s 流转到 %s", material.Status, target)
	}

	material.Status = target
	if err := s.materialRepo.Update(ctx, material); err != nil {
		return nil, err
	}
	return material, nil
}

// DeleteMaterial 软删除物料（先记录废弃状态再打删除标记）
func (s *MaterialService) DeleteMaterial(ctx context.Context, id string) error {
	if _, err := s.materialRepo.FindByID(ctx, id); err != nil {
		return err
	}
	return s.materialRepo.SoftDelete(ctx, id)
}
