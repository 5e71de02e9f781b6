package model

import "time"

// Role 账号角色，封闭集合
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleStudent Role = "student"
)

// Valid 是否为已知角色
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleStudent
}

// Account 账号表，对应 accounts
type Account struct {
	AccountID    int64  `gorm:"primaryKey;autoIncrement"         json:"account_id"`
	Name         string `gorm:"type:varchar(120);not null"       json:"name"`
	Email        string `gorm:"type:varchar(255);not null;unique" json:"email"`
	PasswordHash string `gorm:"type:varchar(255);not null"       json:"-"`
	Role         Role   `gorm:"type:varchar(20);not null"        json:"role"`
	BaseModel
}

// TableName 指定表名
func (Account) TableName() string { return "accounts" }

// Session 会话表，对应 sessions，每个账号至多一条
type Session struct {
	Token     string    `gorm:"type:varchar(64);primaryKey" json:"-"`
	AccountID int64     `gorm:"not null;uniqueIndex"        json:"account_id"`
	CreatedAt time.Time `gorm:"not null"                    json:"created_at"`
}

// TableName 指定表名
func (Session) TableName() string { return "sessions" }

// Expired 会话是否超过有效期
func (s *Session) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(s.CreatedAt) > ttl
}
