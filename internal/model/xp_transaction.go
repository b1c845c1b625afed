package model

import (
	"time"

	"gorm.io/datatypes"
)

type XPSource string

const (
	XPSessionComplete    XPSource = "session_complete"
	XPTestingComplete    XPSource = "testing_complete"
	XPWeekComplete       XPSource = "week_complete"
	XPTrainingAndTesting XPSource = "training_and_testing"
	XPMonthComplete      XPSource = "month_complete"
)

var xpSourceLabels = map[XPSource]string{
	XPSessionComplete:    "Session Complete",
	XPTestingComplete:    "Testing Complete",
	XPWeekComplete:       "Weekly Bonus",
	XPTrainingAndTesting: "Training + Testing Week Bonus",
	XPMonthComplete:      "Monthly Consistency Bonus",
}

// Label 展示用名称
func (s XPSource) Label() string {
	if l, ok := xpSourceLabels[s]; ok {
		return l
	}
	return string(s)
}

// XpTransaction 积分流水，只追加不修改。
// (user_id, xp_source, window_key) 唯一，保证同一窗口的奖励只发一次。
// swagger:model XpTransaction
type XpTransaction struct {
	ID              uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID          uint           `gorm:"not null;uniqueIndex:idx_xp_user_source_window;index:idx_xp_user_date" json:"userId"`
	XPAmount        int            `gorm:"column:xp_amount;not null" json:"xpAmount"`
	XPSource        XPSource       `gorm:"column:xp_source;size:40;not null;uniqueIndex:idx_xp_user_source_window" json:"xpSource"`
	WindowKey       string         `gorm:"column:window_key;size:64;not null;uniqueIndex:idx_xp_user_source_window" json:"windowKey"`
	BatchID         string         `gorm:"column:batch_id;size:36;index" json:"batchId"`
	SessionID       *uint          `json:"sessionId,omitempty"`
	Detail          datatypes.JSON `json:"detail,omitempty"`
	TransactionDate time.Time      `gorm:"not null;index:idx_xp_user_date" json:"transactionDate"`
}

func (XpTransaction) TableName() string {
	return "xp_transactions"
}
