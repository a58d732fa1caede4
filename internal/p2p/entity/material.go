package entity

import "time"

// Material 物料主数据
type Material struct {
	ID          string     `json:"id" gorm:"primaryKey;size:32"`
	Code        string     `json:"code" gorm:"size:64;not null;uniqueIndex"`
	Name        string     `json:"name" gorm:"size:128;not null"`
	Description string     `json:"description" gorm:"type:text"`
	Type        string     `json:"type" gorm:"size:16;not null;default:raw"`      // raw/finished/service
	Status      string     `json:"status" gorm:"size:16;not null;default:active"` // active/inactive/deprecated
	BaseUnit    string     `json:"base_unit" gorm:"size:16;not null;default:pcs"`
	GrossWeight *float64   `json:"gross_weight" gorm:"type:decimal(15,4)"` // kg
	Volume      *float64   `json:"volume" gorm:"type:decimal(15,4)"`       // m3
	CreatedBy   string     `json:"created_by" gorm:"size:32"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at" gorm:"index"`
}

func (Material) TableName() string {
	return "p2p_materials"
}

// 物料状态
const (
	MaterialStatusActive     = "active"
	MaterialStatusInactive   = "inactive"
	MaterialStatusDeprecated = "deprecated"
)

// 物料类型
const (
	MaterialTypeRaw      = "raw"
	MaterialTypeFinished = "finished"
	MaterialTypeService  = "service"
)

// ValidMaterialTypes 允许的物料类型
var ValidMaterialTypes = []string{
	MaterialTypeRaw,
	MaterialTypeFinished,
	MaterialTypeService,
}

// ValidMaterialTransitions 物料状态流转表
var ValidMaterialTransitions = map[string][]string{
	MaterialStatusActive:     {MaterialStatusInactive, MaterialStatusDeprecated},
	MaterialStatusInactive:   {MaterialStatusActive, MaterialStatusDeprecated},
	MaterialStatusDeprecated: {},
}

// CanTransitionTo 判断物料能否流转到目标状态
func (m *Material) CanTransitionTo(target string) bool {
	for _, s := range ValidMaterialTransitions[m.Status] {
		if s == target {
			return true
		}
	}
	return false
}
