package model

import "time"

// Block 一个训练周期（通常12周），由管理员创建
// swagger:model Block
type Block struct {
	BaseModel
	OwnerID     uint      `gorm:"not null;uniqueIndex:idx_block_owner_number" json:"ownerId"`
	BlockNumber int       `gorm:"not null;uniqueIndex:idx_block_owner_number" json:"blockNumber"`
	StartDate   time.Time `json:"startDate"`
	EndDate     time.Time `json:"endDate"`
}

func (Block) TableName() string {
	return "blocks"
}
