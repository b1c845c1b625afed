package model

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

type SessionType string

const (
	SessionTraining SessionType = "training"
	SessionTesting  SessionType = "testing"
	SessionRest     SessionType = "rest"
)

// SessionKind 课程类型：训练课带序号，测试课与休息课没有序号
type SessionKind struct {
	Type    SessionType
	Ordinal int
}

func TrainingKind(ordinal int) SessionKind {
	return SessionKind{Type: SessionTraining, Ordinal: ordinal}
}

func TestingKind() SessionKind { return SessionKind{Type: SessionTesting} }

func RestKind() SessionKind { return SessionKind{Type: SessionRest} }

func (k SessionKind) IsTraining() bool { return k.Type == SessionTraining }
func (k SessionKind) IsTesting() bool  { return k.Type == SessionTesting }
func (k SessionKind) IsRest() bool     { return k.Type == SessionRest }

func (k SessionKind) String() string {
	if k.IsTraining() {
		return fmt.Sprintf("training #%d", k.Ordinal)
	}
	return string(k.Type)
}

// Session 周期内某一周的一节课
// swagger:model Session
type Session struct {
	BaseModel
	BlockID     uint        `gorm:"not null;index:idx_session_block_week" json:"blockId"`
	WeekNumber  int         `gorm:"not null;index:idx_session_block_week" json:"weekNumber"`
	SessionType SessionType `gorm:"size:20;not null" json:"sessionType"`
	// 仅训练课大于0
	SessionOrdinal int       `gorm:"not null;default:0" json:"sessionOrdinal"`
	ReleaseDate    time.Time `gorm:"not null;index" json:"releaseDate"`

	Block *Block `gorm:"foreignKey:BlockID" json:"block,omitempty"`
}

func (Session) TableName() string {
	return "sessions"
}

func (s Session) Kind() SessionKind {
	switch s.SessionType {
	case SessionTraining:
		return TrainingKind(s.SessionOrdinal)
	case SessionTesting:
		return TestingKind()
	default:
		return RestKind()
	}
}

// SetKind 写入类型与序号两列
func (s *Session) SetKind(k SessionKind) {
	s.SessionType = k.Type
	s.SessionOrdinal = 0
	if k.IsTraining() {
		s.SessionOrdinal = k.Ordinal
	}
}

// BeforeSave 发布日期统一按 UTC 存储
func (s *Session) BeforeSave(tx *gorm.DB) error {
	s.ReleaseDate = s.ReleaseDate.UTC()
	return nil
}
