package model

type UserRole string

const (
	Student UserRole = "student"
	Admin   UserRole = "admin"
)

// User 由上游账号系统维护，积分引擎只读
// swagger:model User
type User struct {
	BaseModel
	Name string   `gorm:"size:100;not null" json:"name"`
	Role UserRole `gorm:"size:20;default:'student';index" json:"role"`
}

func (User) TableName() string {
	return "users"
}
