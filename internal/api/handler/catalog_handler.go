package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"coursehub/internal/dto"
	"coursehub/internal/service"
	"coursehub/pkg/response"
)

// CatalogHandler 目录模块（知识领域、校区、课程、课时）HTTP 处理器
type CatalogHandler struct {
	catalogSvc service.CatalogService
	maxUpload  int64
}

// NewCatalogHandler 创建 CatalogHandler；maxUpload 为缩略图大小上限（字节），<=0 表示不限制
func NewCatalogHandler(catalogSvc service.CatalogService, maxUpload int64) *CatalogHandler {
	return &CatalogHandler{catalogSvc: catalogSvc, maxUpload: maxUpload}
}

// ── 知识领域 ──

// ListKnowledgeAreas 知识领域列表
// GET /api/v1/knowledge-areas
func (h *CatalogHandler) ListKnowledgeAreas(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	list, err := h.catalogSvc.ListKnowledgeAreas(c.Request.Context(), caller)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// CreateKnowledgeArea 创建知识领域
// POST /api/v1/knowledge-areas
func (h *CatalogHandler) CreateKnowledgeArea(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	var req dto.CreateTaxonomyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	area, err := h.catalogSvc.CreateKnowledgeArea(c.Request.Context(), caller, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Created(c, area)
}

// UpdateKnowledgeArea 修改知识领域可见性
// PATCH /api/v1/knowledge-areas/:id
func (h *CatalogHandler) UpdateKnowledgeArea(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.VisibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	area, err := h.catalogSvc.SetKnowledgeAreaVisibility(c.Request.Context(), caller, id, *req.Visible)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, area)
}

// ── 校区 ──

// ListCampuses 校区列表
// GET /api/v1/campuses
func (h *CatalogHandler) ListCampuses(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	list, err := h.catalogSvc.ListCampuses(c.Request.Context(), caller)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// CreateCampus 创建校区
// POST /api/v1/campuses
func (h *CatalogHandler) CreateCampus(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	var req dto.CreateTaxonomyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	campus, err := h.catalogSvc.CreateCampus(c.Request.Context(), caller, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Created(c, campus)
}

// UpdateCampus 修改校区可见性
// PATCH /api/v1/campuses/:id
func (h *CatalogHandler) UpdateCampus(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.VisibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	campus, err := h.catalogSvc.SetCampusVisibility(c.Request.Context(), caller, id, *req.Visible)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, campus)
}

// ── 课程 ──

// ListCourses 课程分页列表
// GET /api/v1/courses
func (h *CatalogHandler) ListCourses(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	var req dto.CourseListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}

	page, err := h.catalogSvc.ListCourses(c.Request.Context(), caller, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, page)
}

// CreateCourse 创建课程
// POST /api/v1/courses
func (h *CatalogHandler) CreateCourse(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	var req dto.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	course, err := h.catalogSvc.CreateCourse(c.Request.Context(), caller, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Created(c, course)
}

// GetCourse 课程详情
// GET /api/v1/courses/:id
func (h *CatalogHandler) GetCourse(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	course, err := h.catalogSvc.GetCourse(c.Request.Context(), caller, id)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, course)
}

// UpdateCourse 修改课程可见性
// PATCH /api/v1/courses/:id
func (h *CatalogHandler) UpdateCourse(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.VisibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	course, err := h.catalogSvc.SetCourseVisibility(c.Request.Context(), caller, id, *req.Visible)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, course)
}

// UploadThumbnail 上传课程缩略图（multipart 字段 file）
// PUT /api/v1/courses/:id/thumbnail
func (h *CatalogHandler) UploadThumbnail(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		if isBodyTooLarge(err) {
			response.Error(c, http.StatusRequestEntityTooLarge, 10005, "文件过大")
			return
		}
		response.BadRequest(c, 10001, "缺少上传文件 file")
		return
	}
	if h.maxUpload > 0 && file.Size > h.maxUpload {
		response.Error(c, http.StatusRequestEntityTooLarge, 10005, "文件过大")
		return
	}
	src, err := file.Open()
	if err != nil {
		response.BadRequest(c, 10001, "无法读取上传文件")
		return
	}
	defer src.Close()

	course, err := h.catalogSvc.UploadCourseThumbnail(c.Request.Context(), caller, id, file.Header.Get("Content-Type"), src)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, course)
}

// ── 课时 ──

// ListLessons 按序号列出课时
// GET /api/v1/courses/:id/lessons
func (h *CatalogHandler) ListLessons(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	lessons, err := h.catalogSvc.ListLessons(c.Request.Context(), caller, id)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, gin.H{"list": lessons})
}

// CreateLesson 追加课时
// POST /api/v1/courses/:id/lessons
func (h *CatalogHandler) CreateLesson(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.CreateLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	lesson, err := h.catalogSvc.CreateLesson(c.Request.Context(), caller, id, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Created(c, lesson)
}

// ReorderLessons 重排课时
// PATCH /api/v1/courses/:id/lessons/reorder
func (h *CatalogHandler) ReorderLessons(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.ReorderLessonsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	lessons, err := h.catalogSvc.ReorderLessons(c.Request.Context(), caller, id, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, gin.H{"list": lessons})
}
