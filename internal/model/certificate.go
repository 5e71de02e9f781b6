package model

import (
	"fmt"
	"strings"
	"time"
)

// CertificateStatus 证书申请状态：pending → approved | rejected，后两者为终态
type CertificateStatus string

const (
	CertificatePending  CertificateStatus = "pending"
	CertificateApproved CertificateStatus = "approved"
	CertificateRejected CertificateStatus = "rejected"
)

// ParseCertificateStatus 解析状态，兼容旧前端的 analise/aprovado/reprovado
func ParseCertificateStatus(s string) (CertificateStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending", "analise":
		return CertificatePending, nil
	case "approved", "aprovado":
		return CertificateApproved, nil
	case "rejected", "reprovado":
		return CertificateRejected, nil
	default:
		return "", fmt.Errorf("未知的证书申请状态 %q", s)
	}
}

// Terminal 是否为终态
func (s CertificateStatus) Terminal() bool {
	return s == CertificateApproved || s == CertificateRejected
}

// CanTransition 唯一合法的迁移是从 pending 到某个终态
func (s CertificateStatus) CanTransition(to CertificateStatus) bool {
	return s == CertificatePending && to.Terminal()
}

// CertificateRequest 证书申请表，对应 certificate_requests
type CertificateRequest struct {
	RequestID       int64             `gorm:"primaryKey;autoIncrement"    json:"request_id"`
	EnrollmentID    int64             `gorm:"not null;index"              json:"enrollment_id"`
	Status          CertificateStatus `gorm:"type:varchar(20);not null"   json:"status"`
	RejectionReason *string           `gorm:"type:text"                   json:"rejection_reason,omitempty"`
	DecidedBy       *int64            `json:"decided_by,omitempty"`
	DecidedAt       *time.Time        `json:"decided_at,omitempty"`
	BaseModel
}

// TableName 指定表名
func (CertificateRequest) TableName() string { return "certificate_requests" }
