package handler

import (
	"github.com/gin-gonic/gin"

	"coursehub/internal/dto"
	"coursehub/internal/service"
	"coursehub/pkg/response"
)

// CertificateHandler 证书申请 HTTP 处理器
type CertificateHandler struct {
	certificateSvc service.CertificateService
}

// NewCertificateHandler 创建 CertificateHandler
func NewCertificateHandler(certificateSvc service.CertificateService) *CertificateHandler {
	return &CertificateHandler{certificateSvc: certificateSvc}
}

// Request 为已完成的选课提交证书申请
// POST /api/v1/enrollments/:id/certificate-requests
func (h *CertificateHandler) Request(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	req, err := h.certificateSvc.Request(c.Request.Context(), caller, id)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Created(c, req)
}

// List 证书申请分页列表；学生只能看到自己的
// GET /api/v1/certificate-requests
func (h *CertificateHandler) List(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	var req dto.CertificateListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}

	page, err := h.certificateSvc.List(c.Request.Context(), caller, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, page)
}

// Get 证书申请详情
// GET /api/v1/certificate-requests/:id
func (h *CertificateHandler) Get(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	req, err := h.certificateSvc.Get(c.Request.Context(), caller, id)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, req)
}

// Decide 审批证书申请
// PATCH /api/v1/certificate-requests/:id
func (h *CertificateHandler) Decide(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var body dto.DecideCertificateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		bindFailed(c, err)
		return
	}

	req, err := h.certificateSvc.Decide(c.Request.Context(), caller, id, &body)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, req)
}
