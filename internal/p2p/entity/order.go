package entity

import "time"

// Order 采购订单
type Order struct {
	ID        string `json:"id" gorm:"primaryKey;size:32"`
	OrderCode string `json:"order_code" gorm:"size:32;uniqueIndex;not null"`
	Vendor    string `json:"vendor" gorm:"size:128;not null"`
	Status    string `json:"status" gorm:"size:20;default:draft"` // draft/submitted/approved/received/partially_received/completed/cancelled
	Currency  string `json:"currency" gorm:"size:10;default:CNY"`

	// 源申请单
	RequisitionID *string `json:"requisition_id" gorm:"size:32;index"`

	PaymentTerms string `json:"payment_terms" gorm:"size:100"`
	CancelReason string `json:"cancel_reason" gorm:"size:500"`

	TotalAmount *float64   `json:"total_amount" gorm:"type:decimal(15,2)"`
	SubmittedAt *time.Time `json:"submitted_at"`
	ApprovedBy  *string    `json:"approved_by" gorm:"size:32"`
	ApprovedAt  *time.Time `json:"approved_at"`
	Notes       string     `json:"notes" gorm:"type:text"`
	CreatedBy   string     `json:"created_by" gorm:"size:32"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// 关联
	Items []OrderItem `json:"items,omitempty" gorm:"foreignKey:OrderID"`
}

func (Order) TableName() string {
	return "p2p_orders"
}

// 订单状态
const (
	OrderStatusDraft             = "draft"
	OrderStatusSubmitted         = "submitted"
	OrderStatusApproved          = "approved"
	OrderStatusReceived          = "received"
	OrderStatusPartiallyReceived = "partially_received"
	OrderStatusCompleted         = "completed"
	OrderStatusCancelled         = "cancelled"
)

// ValidOrderTransitions 订单状态流转表
var ValidOrderTransitions = map[string][]string{
	OrderStatusDraft:             {OrderStatusSubmitted, OrderStatusCancelled},
	OrderStatusSubmitted:         {OrderStatusApproved, OrderStatusCancelled},
	OrderStatusApproved:          {OrderStatusReceived, OrderStatusPartiallyReceived, OrderStatusCancelled},
	OrderStatusPartiallyReceived: {OrderStatusReceived, OrderStatusCompleted, OrderStatusCancelled},
	OrderStatusReceived:          {OrderStatusCompleted, OrderStatusCancelled},
	OrderStatusCompleted:         {},
	OrderStatusCancelled:         {},
}

// CanTransitionTo 判断订单能否流转到目标状态
func (o *Order) CanTransitionTo(target string) bool {
	for _, s := range ValidOrderTransitions[o.Status] {
		if s == target {
			return true
		}
	}
	return false
}

// OrderItem 订单行项
type OrderItem struct {
	ID      string `json:"id" gorm:"primaryKey;size:32"`
	OrderID string `json:"order_id" gorm:"size:32;not null;index"`

	// 源申请单行项
	RequisitionItemID *string `json:"requisition_item_id" gorm:"size:32"`

	MaterialID   string `json:"material_id" gorm:"size:32;not null"`
	MaterialCode string `json:"material_code" gorm:"size:64"`
	MaterialName string `json:"material_name" gorm:"size:128"`

	Quantity  float64  `json:"quantity" gorm:"type:decimal(10,2);not null"`
	Unit      string   `json:"unit" gorm:"size:16;default:pcs"`
	UnitPrice *float64 `json:"unit_price" gorm:"type:decimal(12,4)"`

	// 收货
	ReceivedQty float64 `json:"received_qty" gorm:"type:decimal(10,2);default:0"`
	Status      string  `json:"status" gorm:"size:20;default:open"` // open/partial/received

	SortOrder int       `json:"sort_order" gorm:"default:0"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (OrderItem) TableName() string {
	return "p2p_order_items"
}

// 订单行项状态
const (
	OrderItemStatusOpen     = "open"
	OrderItemStatusPartial  = "partial"
	OrderItemStatusReceived = "received"
)
