package dto

// ── 认证模块 DTO ──

// RegisterRequest 注册请求，公开注册的账号一律为 student
type RegisterRequest struct {
	Name     string `json:"nome"  binding:"required,min=2,max=120"`
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"senha" binding:"required,min=6,max=72"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"senha" binding:"required"`
}
