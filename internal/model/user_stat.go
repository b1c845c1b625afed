package model

import "time"

// UserStat 每个用户一行的统计快照
// swagger:model UserStat
type UserStat struct {
	UserID            uint      `gorm:"primaryKey;autoIncrement:false" json:"userId"`
	TotalXP           int       `gorm:"column:total_xp;not null;default:0;index" json:"totalXp"`
	StrengthLevel     int       `gorm:"not null;default:1" json:"strengthLevel"`
	SessionsCompleted int       `gorm:"not null;default:0" json:"sessionsCompleted"`
	SessionsAvailable int       `gorm:"not null;default:0" json:"sessionsAvailable"`
	ConsistencyScore  float64   `gorm:"type:decimal(5,2);not null;default:0;index" json:"consistencyScore"`
	LastUpdated       time.Time `json:"lastUpdated"`
}

func (UserStat) TableName() string {
	return "user_stats"
}
