package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
)

// Repositories P2P仓库集合
type Repositories struct {
	Material    *MaterialRepository
	Requisition *RequisitionRepository
	Order       *OrderRepository
}

// NewRepositories 创建P2P仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Material:    NewMaterialRepository(db),
		Requisition: NewRequisitionRepository(db),
		Order:       NewOrderRepository(db),
	}
}
