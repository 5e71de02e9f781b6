package dto

// ── 证书申请模块 DTO ──

// DecideCertificateRequest 审批请求；status 接受 approved/rejected 及 aprovado/reprovado
type DecideCertificateRequest struct {
	Status string  `json:"status"           binding:"required"`
	Reason *string `json:"motivoReprovacao" binding:"omitempty,max=1000"`
}

// CertificateListRequest 证书申请列表查询参数
type CertificateListRequest struct {
	PageRequest
	Status       string `form:"status"`
	EnrollmentID *int64 `form:"matriculaId"`
}

// CertificateResponse 证书申请信息
type CertificateResponse struct {
	ID           int64   `json:"id"`
	EnrollmentID int64   `json:"matriculaId"`
	Status       string  `json:"status"`
	Reason       *string `json:"motivoReprovacao,omitempty"`
	DecidedBy    *int64  `json:"decididoPor,omitempty"`
	DecidedAt    string  `json:"decididoEm,omitempty"`
	CreatedAt    string  `json:"criadoEm"`
}
