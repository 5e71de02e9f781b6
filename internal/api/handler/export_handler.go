package handler

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"coursehub/internal/service"
	"coursehub/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportCourseProgress 导出课程学习进度
// GET /api/v1/courses/:id/enrollments/export
func (h *ExportHandler) ExportCourseProgress(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	courseID, ok := paramID(c, "id")
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.ExportCourseProgress(c.Request.Context(), caller, courseID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	// 设置下载响应头
	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
