package model

import "time"

// ProgressTracking 每个用户每个测试项目一行
// swagger:model ProgressTracking
type ProgressTracking struct {
	ID                 uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID             uint      `gorm:"not null;uniqueIndex:idx_progress_user_test" json:"userId"`
	TestType           TestType  `gorm:"size:40;not null;uniqueIndex:idx_progress_user_test" json:"testType"`
	BaselineValue      float64   `json:"baselineValue"`
	CurrentValue       float64   `json:"currentValue"`
	PercentageIncrease *float64  `json:"percentageIncrease"`
	LastUpdated        time.Time `json:"lastUpdated"`
}

func (ProgressTracking) TableName() string {
	return "progress_trackings"
}
