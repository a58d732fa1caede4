package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/bitfantasy/nimo-p2p/internal/p2p/entity"
	"github.com/bitfantasy/nimo-p2p/internal/p2p/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// P2PService 采购到付款业务服务，覆盖申请与订单的全生命周期
type P2PService struct {
	db              *gorm.DB
	materialRepo    *repository.MaterialRepository
	requisitionRepo *repository.RequisitionRepository
	orderRepo       *repository.OrderRepository
}

func NewP2PService(db *gorm.DB, repos *repository.Repositories) *P2PService {
	return &P2PService{
		db:              db,
		materialRepo:    repos.Material,
		requisitionRepo: repos.Requisition,
		orderRepo:       repos.Order,
	}
}

// ItemRequest 单据行项请求
type ItemRequest struct {
	MaterialID string   `json:"material_id" binding:"required"`
	Quantity   float64  `json:"quantity" binding:"required"`
	Unit       string   `json:"unit"`
	UnitPrice  *float64 `json:"unit_price"`
}

// validateItems 校验行项引用的物料，返回物料映射用于冗余编码和名称
// 已废弃或不存在的物料直接拒绝，停用物料放行但记录日志
func (s *P2PService) validateItems(ctx context.Context, items []ItemRequest) (map[string]*entity.Material, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("至少需要一个行项")
	}
	materials := make(map[string]*entity.Material, len(items))
	for i, item := range items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("第 %d 行数量必须大于 0", i+1)
		}
		m, ok := materials[item.MaterialID]
		if !ok {
			var err error
			m, err = s.materialRepo.FindByID(ctx, item.MaterialID)
			if err != nil {
				if err == repository.ErrNotFound {
					return nil, fmt.Errorf("第 %d 行物料不存在: %s", i+1, item.MaterialID)
				}
				return nil, err
			}
			materials[item.MaterialID] = m
		}
		if m.Status == entity.MaterialStatusDeprecated {
			return nil, fmt.Errorf("第 %d 行物料已废弃: %s", i+1, m.Code)
		}
		if m.Status == entity.MaterialStatusInactive {
			log.Printf("[P2P] 行项引用了停用物料: %s (%s)", m.Code, m.Name)
		}
	}
	return materials, nil
}

// ==================== 采购申请 ====================

// ListRequisitions 获取采购申请列表
func (s *P2PService) ListRequisitions(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Requisition, int64, error) {
	return s.requisitionRepo.FindAll(ctx, page, pageSize, filters)
}

// GetRequisition 获取采购申请详情
func (s *P2PService) GetRequisition(ctx context.Context, id string) (*entity.Requisition, error) {
	return s.requisitionRepo.FindByID(ctx, id)
}

// CreateRequisitionRequest 创建采购申请请求
type CreateRequisitionRequest struct {
	Requester  string        `json:"requester"`
	Department string        `json:"department"`
	Notes      string        `json:"notes"`
	Items      []ItemRequest `json:"items" binding:"required"`
}

// CreateRequisition 创建采购申请，初始为草稿状态
func (s *P2PService) CreateRequisition(ctx context.Context, userID string, req *CreateRequisitionRequest) (*entity.Requisition, error) {
	materials, err := s.validateItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	code, err := s.requisitionRepo.GenerateCode(ctx)
	if err != nil {
		return nil, fmt.Errorf("生成申请编号失败: %w", err)
	}

	requester := req.Requester
	if requester == "" {
		requester = userID
	}

	requisition := &entity.Requisition{
		ID:         uuid.New().String()[:32],
		ReqCode:    code,
		Requester:  requester,
		Department: req.Department,
		Status:     entity.ReqStatusDraft,
		Notes:      req.Notes,
		CreatedBy:  userID,
	}
	for i, item := range req.Items {
		m := materials[item.MaterialID]
		unit := item.Unit
		if unit == "" {
			unit = m.BaseUnit
		}
		requisition.Items = append(requisition.Items, entity.RequisitionItem{
			ID:            uuid.New().String()[:32],
			RequisitionID: requisition.ID,
			MaterialID:    m.ID,
			MaterialCode:  m.Code,
			MaterialName:  m.Name,
			Quantity:      item.Quantity,
			Unit:          unit,
			UnitPrice:     item.UnitPrice,
			SortOrder:     i + 1,
		})
	}

	if err := s.requisitionRepo.Create(ctx, requisition); err != nil {
		return nil, err
	}
	return requisition, nil
}

// UpdateRequisitionRequest 更新采购申请请求
type UpdateRequisitionRequest struct {
	Department *string       `json:"department"`
	Notes      *string       `json:"notes"`
	Items      []ItemRequest `json:"items"`
}

// UpdateRequisition 更新采购申请，仅草稿可编辑
func (s *P2PService) UpdateRequisition(ctx context.Context, id string, req *UpdateRequisitionRequest) (*entity.Requisition, error) {
	requisition, err := s.requisitionRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if requisition.Status != entity.ReqStatusDraft {
		return nil, fmt.Errorf("只有草稿状态的申请可以修改")
	}

	// 先校验行项再落库，校验失败时表头改动也不能留下
	var items []entity.RequisitionItem
	if req.Items != nil {
		materials, err := s.validateItems(ctx, req.Items)
		if err != nil {
			return nil, err
		}
		items = make([]entity.RequisitionItem, 0, len(req.Items))
		for i, item := range req.Items {
			m := materials[item.MaterialID]
			unit := item.Unit
			if unit == "" {
				unit = m.BaseUnit
			}
			items = append(items, entity.RequisitionItem{
				ID:            uuid.New().String()[:32],
				RequisitionID: requisition.ID,
				MaterialID:    m.ID,
				MaterialCode:  m.Code,
				MaterialName:  m.Name,
				Quantity:      item.Quantity,
				Unit:          unit,
				UnitPrice:     item.UnitPrice,
				SortOrder:     i + 1,
			})
		}
	}

	if req.Department != nil {
		requisition.Department = *req.Department
	}
	if req.Notes != nil {
		requisition.Notes = *req.Notes
	}
	// Save 会连带已加载的行项，置空避免写回替换前的快照
	requisition.Items = nil

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(requisition).Error; err != nil {
			return err
		}
		if req.Items == nil {
			return nil
		}
		if err := tx.Where("requisition_id = ?", requisition.ID).Delete(&entity.RequisitionItem{}).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		return tx.Create(&items).Error
	})
	if err != nil {
		return nil, err
	}

	return s.requisitionRepo.FindByID(ctx, id)
}

// SubmitRequisition 提交采购申请
func (s *P2PService) SubmitRequisition(ctx context.Context, id string) (*entity.Requisition, error) {
	requisition, err := s.requisitionRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if requisition.Status != entity.ReqStatusDraft {
		return nil, fmt.Errorf("只有草稿状态的申请可以提交")
	}
	if len(requisition.Items) == 0 {
		return nil, fmt.Errorf("申请没有行项，不能提交")
	}

	requisition.Status = entity.ReqStatusSubmitted
	now := time.Now()
	requisition.SubmittedAt = &now
	if err := s.requisitionRepo.Update(ctx, requisition); err != nil {
		return nil, err
	}
	return requisition, nil
}

// ApproveRequisition 审批通过采购申请
func (s *P2PService) ApproveRequisition(ctx context.Context, id, userID string) (*entity.Requisition, error) {
	requisition, err := s.requisitionRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if requisition.Status != entity.ReqStatusSubmitted {
		return nil, fmt.Errorf("只有已提交状态的申请可以审批")
	}

	requisition.Status = entity.ReqStatusApproved
	now := time.Now()
	requisition.ApprovedBy = &userID
	requisition.ApprovedAt = &now
	if err := s.requisitionRepo.Update(ctx, requisition); err != nil {
		return nil, err
	}
	return requisition, nil
}

// RejectRequisition 驳回采购申请
func (s *P2PService) RejectRequisition(ctx context.Context, id, userID, reason string) (*entity.Requisition, error) {
	requisition, err := s.requisitionRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if requisition.Status != entity.ReqStatusSubmitted {
		return nil, fmt.Errorf("只有已提交状态的申请可以驳回")
	}
	if reason == "" {
		return nil, fmt.Errorf("驳回必须填写原因")
	}

	requisition.Status = entity.ReqStatusRejected
	requisition.RejectionReason = reason
	requisition.ApprovedBy = &userID
	if err := s.requisitionRepo.Update(ctx, requisition); err != nil {
		return nil, err
	}
	return requisition, nil
}

// CancelRequisition 取消采购申请
func (s *P2PService) CancelRequisition(ctx context.Context, id string) (*entity.Requisition, error) {
	requisition, err := s.requisitionRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !requisition.CanTransitionTo(entity.ReqStatusCancelled) {
		return nil, fmt.Errorf("当前状态 %s 的申请不能取消", requisition.Status)
	}

	requisition.Status = entity.ReqStatusCancelled
	if err := s.requisitionRepo.Update(ctx, requisition); err != nil {
		return nil, err
	}
	return requisition, nil
}

// DeleteRequisition 删除草稿申请
func (s *P2PService) DeleteRequisition(ctx context.Context, id string) error {
	requisition, err := s.requisitionRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if requisition.Status != entity.ReqStatusDraft {
		return fmt.Errorf("只有草稿状态的申请可以删除")
	}
	return s.requisitionRepo.Delete(ctx, id)
}

// ==================== 采购订单 ====================

// ListOrders 获取采购订单列表
func (s *P2PService) ListOrders(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Order, int64, error) {
	return s.orderRepo.FindAll(ctx, page, pageSize, filters)
}

// GetOrder 获取采购订单详情
func (s *P2PService) GetOrder(ctx context.Context, id string) (*entity.Order, error) {
	return s.orderRepo.FindByID(ctx, id)
}

// CreateOrderRequest 创建采购订单请求
type CreateOrderRequest struct {
	Vendor       string        `json:"vendor" binding:"required"`
	Currency     string        `json:"currency"`
	PaymentTerms string        `json:"payment_terms"`
	Notes        string        `json:"notes"`
	Items        []ItemRequest `json:"items" binding:"required"`
}

// CreateOrder 直接创建采购订单（不经申请）
func (s *P2PService) CreateOrder(ctx context.Context, userID string, req *CreateOrderRequest) (*entity.Order, error) {
	materials, err := s.validateItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	code, err := s.orderRepo.GenerateCode(ctx)
	if err != nil {
		return nil, fmt.Errorf("生成订单编号失败: %w", err)
	}

	currency := req.Currency
	if currency == "" {
		currency = "CNY"
	}

	order := &entity.Order{
		ID:           uuid.New().String()[:32],
		OrderCode:    code,
		Vendor:       req.Vendor,
		Status:       entity.OrderStatusDraft,
		Currency:     currency,
		PaymentTerms: req.PaymentTerms,
		Notes:        req.Notes,
		CreatedBy:    userID,
	}
	for i, item := range req.Items {
		m := materials[item.MaterialID]
		unit := item.Unit
		if unit == "" {
			unit = m.BaseUnit
		}
		order.Items = append(order.Items, entity.OrderItem{
			ID:           uuid.New().String()[:32],
			OrderID:      order.ID,
			MaterialID:   m.ID,
			MaterialCode: m.Code,
			MaterialName: m.Name,
			Quantity:     item.Quantity,
			Unit:         unit,
			UnitPrice:    item.UnitPrice,
			Status:       entity.OrderItemStatusOpen,
			SortOrder:    i + 1,
		})
	}
	order.TotalAmount = orderTotal(order.Items)

	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// CreateOrderFromRequisitionRequest 申请转订单请求
type CreateOrderFromRequisitionRequest struct {
	Vendor       string `json:"vendor" binding:"required"`
	Currency     string `json:"currency"`
	PaymentTerms string `json:"payment_terms"`
	Notes        string `json:"notes"`
}

// CreateOrderFromRequisition 从已审批的申请生成采购订单
// 行项整体复制，申请同步流转为已转单，两者在一个事务里完成
func (s *P2PService) CreateOrderFromRequisition(ctx context.Context, reqID, userID string, req *CreateOrderFromRequisitionRequest) (*entity.Order, error) {
	requisition, err := s.requisitionRepo.FindByID(ctx, reqID)
	if err != nil {
		return nil, err
	}
	if requisition.Status != entity.ReqStatusApproved {
		return nil, fmt.Errorf("只有已审批的申请可以转订单")
	}

	// 审批到转单之间物料状态可能变化，转单时再校验一遍
	for i, item := range requisition.Items {
		m, err := s.materialRepo.FindByID(ctx, item.MaterialID)
		if err != nil {
			return nil, fmt.Errorf("第 %d 行物料不存在", i+1)
		}
		if m.Status == entity.MaterialStatusDeprecated {
			return nil, fmt.Errorf("第 %d 行物料已废弃", i+1)
		}
	}

	code, err := s.orderRepo.GenerateCode(ctx)
	if err != nil {
		return nil, fmt.Errorf("生成订单编号失败: %w", err)
	}

	currency := req.Currency
	if currency == "" {
		currency = "CNY"
	}

	order := &entity.Order{
		ID:            uuid.New().String()[:32],
		OrderCode:     code,
		Vendor:        req.Vendor,
		Status:        entity.OrderStatusDraft,
		Currency:      currency,
		RequisitionID: &requisition.ID,
		PaymentTerms:  req.PaymentTerms,
		Notes:         req.Notes,
		CreatedBy:     userID,
	}
	for _, item := range requisition.Items {
		reqItemID := item.ID
		order.Items = append(order.Items, entity.OrderItem{
			ID:                uuid.New().String()[:32],
			OrderID:           order.ID,
			RequisitionItemID: &reqItemID,
			MaterialID:        item.MaterialID,
			MaterialCode:      item.MaterialCode,
			MaterialName:      item.MaterialName,
			Quantity:          item.Quantity,
			Unit:              item.Unit,
			UnitPrice:         item.UnitPrice,
			Status:            entity.OrderItemStatusOpen,
			SortOrder:         item.SortOrder,
		})
	}
	order.TotalAmount = orderTotal(order.Items)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return err
		}
		return tx.Model(&entity.Requisition{}).Where("id = ?", requisition.ID).
			Update("status", entity.ReqStatusOrdered).Error
	})
	if err != nil {
		return nil, err
	}
	return s.orderRepo.FindByID(ctx, order.ID)
}

// UpdateOrderRequest 更新采购订单请求
type UpdateOrderRequest struct {
	Vendor       *string       `json:"vendor"`
	Currency     *string       `json:"currency"`
	PaymentTerms *string       `json:"payment_terms"`
	Notes        *string       `json:"notes"`
	Items        []ItemRequest `json:"items"`
}

// UpdateOrder 更新采购订单，仅草稿可编辑
func (s *P2PService) UpdateOrder(ctx context.Context, id string, req *UpdateOrderRequest) (*entity.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status != entity.OrderStatusDraft {
		return nil, fmt.Errorf("只有草稿状态的订单可以修改")
	}

	// 先校验行项再落库，校验失败时表头改动也不能留下
	var items []entity.OrderItem
	if req.Items != nil {
		materials, err := s.validateItems(ctx, req.Items)
		if err != nil {
			return nil, err
		}
		items = make([]entity.OrderItem, 0, len(req.Items))
		for i, item := range req.Items {
			m := materials[item.MaterialID]
			unit := item.Unit
			if unit == "" {
				unit = m.BaseUnit
			}
			items = append(items, entity.OrderItem{
				ID:           uuid.New().String()[:32],
				OrderID:      order.ID,
				MaterialID:   m.ID,
				MaterialCode: m.Code,
				MaterialName: m.Name,
				Quantity:     item.Quantity,
				Unit:         unit,
				UnitPrice:    item.UnitPrice,
				Status:       entity.OrderItemStatusOpen,
				SortOrder:    i + 1,
			})
		}
		order.TotalAmount = orderTotal(items)
	}

	if req.Vendor != nil {
		order.Vendor = *req.Vendor
	}
	if req.Currency != nil {
		order.Currency = *req.Currency
	}
	if req.PaymentTerms != nil {
		order.PaymentTerms = *req.PaymentTerms
	}
	if req.Notes != nil {
		order.Notes = *req.Notes
	}
	// Save 会连带已加载的行项，置空避免写回替换前的快照
	order.Items = nil

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(order).Error; err != nil {
			return err
		}
		if req.Items == nil {
			return nil
		}
		if err := tx.Where("order_id = ?", order.ID).Delete(&entity.OrderItem{}).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		return tx.Create(&items).Error
	})
	if err != nil {
		return nil, err
	}
	return s.orderRepo.FindByID(ctx, id)
}

// SubmitOrder 提交采购订单
func (s *P2PService) SubmitOrder(ctx context.Context, id string) (*entity.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status != entity.OrderStatusDraft {
		return nil, fmt.Errorf("只有草稿状态的订单可以提交")
	}
	if len(order.Items) == 0 {
		return nil, fmt.Errorf("订单没有行项，不能提交")
	}

	order.Status = entity.OrderStatusSubmitted
	now := time.Now()
	order.SubmittedAt = &now
	if err := s.orderRepo.Update(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// ApproveOrder 审批通过采购订单
func (s *P2PService) ApproveOrder(ctx context.Context, id, userID string) (*entity.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status != entity.OrderStatusSubmitted {
		return nil, fmt.Errorf("只有已提交状态的订单可以审批")
	}

	order.Status = entity.OrderStatusApproved
	now := time.Now()
	order.ApprovedBy = &userID
	order.ApprovedAt = &now
	if err := s.orderRepo.Update(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// ReceiveItemRequest 收货行项请求
type ReceiveItemRequest struct {
	ItemID   string  `json:"item_id" binding:"required"`
	Quantity float64 `json:"quantity" binding:"required"`
}

// ReceiveOrderRequest 订单收货请求
type ReceiveOrderRequest struct {
	Items []ReceiveItemRequest `json:"items" binding:"required"`
}

// ReceiveOrder 订单收货，按行项累计收货数量
// 全部行项收齐则订单转为已收货，否则为部分收货
func (s *P2PService) ReceiveOrder(ctx context.Context, id string, req *ReceiveOrderRequest) (*entity.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status != entity.OrderStatusApproved && order.Status != entity.OrderStatusPartiallyReceived {
		return nil, fmt.Errorf("只有已审批或部分收货状态的订单可以收货")
	}
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("收货行项不能为空")
	}

	itemsByID := make(map[string]*entity.OrderItem, len(order.Items))
	for i := range order.Items {
		itemsByID[order.Items[i].ID] = &order.Items[i]
	}

	for _, recv := range req.Items {
		item, ok := itemsByID[recv.ItemID]
		if !ok {
			return nil, fmt.Errorf("行项不属于该订单: %s", recv.ItemID)
		}
		if recv.Quantity <= 0 {
			return nil, fmt.Errorf("收货数量必须大于 0")
		}
		if item.ReceivedQty+recv.Quantity > item.Quantity {
			return nil, fmt.Errorf("行项 %s 收货数量超出订购数量", item.MaterialCode)
		}
		item.ReceivedQty += recv.Quantity
		if item.ReceivedQty >= item.Quantity {
			item.Status = entity.OrderItemStatusReceived
		} else {
			item.Status = entity.OrderItemStatusPartial
		}
	}

	allReceived := true
	for i := range order.Items {
		if order.Items[i].Status != entity.OrderItemStatusReceived {
			allReceived = false
			break
		}
	}
	if allReceived {
		order.Status = entity.OrderStatusReceived
	} else {
		order.Status = entity.OrderStatusPartiallyReceived
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range order.Items {
			item := &order.Items[i]
			if err := tx.Model(&entity.OrderItem{}).Where("id = ?", item.ID).
				Updates(map[string]interface{}{
					"received_qty": item.ReceivedQty,
					"status":       item.Status,
				}).Error; err != nil {
				return err
			}
		}
		return tx.Model(&entity.Order{}).Where("id = ?", order.ID).
			Update("status", order.Status).Error
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// CompleteOrder 关闭采购订单
func (s *P2PService) CompleteOrder(ctx context.Context, id string) (*entity.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status != entity.OrderStatusReceived && order.Status != entity.OrderStatusPartiallyReceived {
		return nil, fmt.Errorf("只有已收货或部分收货状态的订单可以完成")
	}

	order.Status = entity.OrderStatusCompleted
	if err := s.orderRepo.Update(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// CancelOrder 取消采购订单
func (s *P2PService) CancelOrder(ctx context.Context, id, reason string) (*entity.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status == entity.OrderStatusCompleted || order.Status == entity.OrderStatusCancelled {
		return nil, fmt.Errorf("已完成或已取消的订单不能取消")
	}

	order.Status = entity.OrderStatusCancelled
	order.CancelReason = reason
	if err := s.orderRepo.Update(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// DeleteOrder 删除草稿订单
func (s *P2PService) DeleteOrder(ctx context.Context, id string) error {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if order.Status != entity.OrderStatusDraft {
		return fmt.Errorf("只有草稿状态的订单可以删除")
	}
	return s.orderRepo.Delete(ctx, id)
}

func orderTotal(items []entity.OrderItem) *float64 {
	total := 0.0
	priced := false
	for _, item := range items {
		if item.UnitPrice != nil {
			total += *item.UnitPrice * item.Quantity
			priced = true
		}
	}
	if !priced {
		return nil
	}
	return &total
}
