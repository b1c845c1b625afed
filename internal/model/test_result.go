package model

import "time"

type TestType string

const (
	StandingLongJump   TestType = "standing_long_jump"
	SingleLegJumpLeft  TestType = "single_leg_jump_left"
	SingleLegJumpRight TestType = "single_leg_jump_right"
	WallSit            TestType = "wall_sit"
	HighPlank          TestType = "high_plank"
	BentArmHang        TestType = "bent_arm_hang"
)

// TestTypes 固定顺序，最后一项为附加项
var TestTypes = []TestType{
	StandingLongJump,
	SingleLegJumpLeft,
	SingleLegJumpRight,
	WallSit,
	HighPlank,
	BentArmHang,
}

// TestMetrics 六项体能测试成绩，未测为 nil
type TestMetrics struct {
	StandingLongJump   *float64 `gorm:"column:standing_long_jump" json:"standingLongJump"`
	SingleLegJumpLeft  *float64 `gorm:"column:single_leg_jump_left" json:"singleLegJumpLeft"`
	SingleLegJumpRight *float64 `gorm:"column:single_leg_jump_right" json:"singleLegJumpRight"`
	WallSit            *float64 `gorm:"column:wall_sit" json:"wallSit"`
	HighPlank          *float64 `gorm:"column:high_plank" json:"highPlank"`
	BentArmHang        *float64 `gorm:"column:bent_arm_hang" json:"bentArmHang"`
}

func (m TestMetrics) Value(t TestType) *float64 {
	switch t {
	case StandingLongJump:
		return m.StandingLongJump
	case SingleLegJumpLeft:
		return m.SingleLegJumpLeft
	case SingleLegJumpRight:
		return m.SingleLegJumpRight
	case WallSit:
		return m.WallSit
	case HighPlank:
		return m.HighPlank
	case BentArmHang:
		return m.BentArmHang
	}
	return nil
}

// IsComplete bent_arm_hang 不计入完成判定
func (m TestMetrics) IsComplete() bool {
	for _, t := range TestTypes[:5] {
		if m.Value(t) == nil {
			return false
		}
	}
	return true
}

// TestResult 测试课提交记录
// swagger:model TestResult
type TestResult struct {
	ID          uint        `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      uint        `gorm:"not null;index:idx_test_result_user_session" json:"userId"`
	SessionID   uint        `gorm:"not null;index:idx_test_result_user_session" json:"sessionId"`
	TestMetrics `gorm:"embedded"`
	CompletedAt time.Time `gorm:"not null" json:"completedAt"`
}

func (TestResult) TableName() string {
	return "test_results"
}
