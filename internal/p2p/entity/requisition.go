package entity

import "time"

// Requisition 采购申请单
type Requisition struct {
	ID         string `json:"id" gorm:"primaryKey;size:32"`
	ReqCode    string `json:"req_code" gorm:"size:32;uniqueIndex;not null"`
	Requester  string `json:"requester" gorm:"size:64;not null"`
	Department string `json:"department" gorm:"size:64"`
	Status     string `json:"status" gorm:"size:20;default:draft"` // draft/submitted/approved/rejected/ordered/cancelled

	RejectionReason string     `json:"rejection_reason" gorm:"size:500"`
	SubmittedAt     *time.Time `json:"submitted_at"`
	ApprovedBy      *string    `json:"approved_by" gorm:"size:32"`
	ApprovedAt      *time.Time `json:"approved_at"`
	Notes           string     `json:"notes" gorm:"type:text"`
	CreatedBy       string     `json:"created_by" gorm:"size:32"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	// 关联
	Items []RequisitionItem `json:"items,omitempty" gorm:"foreignKey:RequisitionID"`
}

func (Requisition) TableName() string {
	return "p2p_requisitions"
}

// 申请单状态
const (
	ReqStatusDraft     = "draft"
	ReqStatusSubmitted = "submitted"
	ReqStatusApproved  = "approved"
	ReqStatusRejected  = "rejected"
	ReqStatusOrdered   = "ordered"
	ReqStatusCancelled = "cancelled"
)

// ValidRequisitionTransitions 申请单状态流转表。
// draft→submitted→approved→ordered 单向推进，rejected/cancelled 为终态分支。
var ValidRequisitionTransitions = map[string][]string{
	ReqStatusDraft:     {ReqStatusSubmitted, ReqStatusCancelled},
	ReqStatusSubmitted: {ReqStatusApproved, ReqStatusRejected, ReqStatusCancelled},
	ReqStatusApproved:  {ReqStatusOrdered, ReqStatusCancelled},
	ReqStatusRejected:  {},
	ReqStatusOrdered:   {},
	ReqStatusCancelled: {},
}

// CanTransitionTo 判断申请单能否流转到目标状态
func (r *Requisition) CanTransitionTo(target string) bool {
	for _, s := range ValidRequisitionTransitions[r.Status] {
		if s == target {
			return true
		}
	}
	return false
}

// RequisitionItem 申请单行项
type RequisitionItem struct {
	ID            string `json:"id" gorm:"primaryKey;size:32"`
	RequisitionID string `json:"requisition_id" gorm:"size:32;not null;index"`

	// 物料信息（冗余编码/名称，物料主数据变更不影响历史单据）
	MaterialID   string `json:"material_id" gorm:"size:32;not null"`
	MaterialCode string `json:"material_code" gorm:"size:64"`
	MaterialName string `json:"material_name" gorm:"size:128"`

	Quantity  float64  `json:"quantity" gorm:"type:decimal(10,2);not null"`
	Unit      string   `json:"unit" gorm:"size:16;default:pcs"`
	UnitPrice *float64 `json:"unit_price" gorm:"type:decimal(12,4)"`

	SortOrder int       `json:"sort_order" gorm:"default:0"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (RequisitionItem) TableName() string {
	return "p2p_requisition_items"
}
