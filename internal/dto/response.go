package dto

// ── 认证模块响应 ──

// TokenResponse 登录成功响应
type TokenResponse struct {
	Token     string          `json:"token"`
	ExpiresAt string          `json:"expiraEm"`
	User      AccountResponse `json:"usuario"`
}

// AccountResponse 账号信息（脱敏）
type AccountResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"nome"`
	Email     string `json:"email"`
	Role      string `json:"perfil"`
	CreatedAt string `json:"criadoEm"`
}

// ── 分页请求 ──

const defaultPageSize = 10

// PageRequest 通用分页参数，page 从 0 开始，未传时取默认值
type PageRequest struct {
	Page      *int   `form:"page" binding:"omitempty,min=0"`
	Size      *int   `form:"size" binding:"omitempty,min=1,max=100"`
	Direction string `form:"direction"`
}

// GetPage 获取页码（含默认值）
func (p *PageRequest) GetPage() int {
	if p.Page == nil {
		return 0
	}
	return *p.Page
}

// GetSize 获取每页数量（含默认值）
func (p *PageRequest) GetSize() int {
	if p.Size == nil {
		return defaultPageSize
	}
	return *p.Size
}
