package model

import "time"

// SysUser 面板登录用户
type SysUser struct {
	ID       int64  `gorm:"primaryKey;autoIncrement"`
	Username string `gorm:"size:100;uniqueIndex;not null"`
	Password string `gorm:"size:255;not null"` // 哈希密码
	Role     string `gorm:"size:20;default:'user'"`
	IsActive bool   `gorm:"default:true"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (SysUser) TableName() string {
	return "sys_users"
}
