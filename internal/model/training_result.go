package model

import (
	"strings"
	"time"
)

// TrainingResult 每次训练课提交一行，由提交流程写入
// swagger:model TrainingResult
type TrainingResult struct {
	ID                    uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID                uint      `gorm:"not null;index:idx_training_result_user_session" json:"userId"`
	SessionID             uint      `gorm:"not null;index:idx_training_result_user_session" json:"sessionId"`
	WarmupCompleted       *bool     `json:"warmupCompleted"`
	Plyometrics           string    `gorm:"size:50" json:"plyometrics"`
	Power                 string    `gorm:"size:50" json:"power"`
	LowerBodyStrength     string    `gorm:"size:50" json:"lowerBodyStrength"`
	UpperBodyCoreStrength string    `gorm:"size:50" json:"upperBodyCoreStrength"`
	CompletedAt           time.Time `gorm:"not null" json:"completedAt"`
}

func (TrainingResult) TableName() string {
	return "training_results"
}

// IsComplete 五项全部填写才算完成
func (r TrainingResult) IsComplete() bool {
	if r.WarmupCompleted == nil {
		return false
	}
	for _, v := range []string{r.Plyometrics, r.Power, r.LowerBodyStrength, r.UpperBodyCoreStrength} {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}
