package handler

import (
	"github.com/gin-gonic/gin"

	"coursehub/internal/dto"
	"coursehub/internal/service"
	"coursehub/pkg/response"
)

// EnrollmentHandler 选课与学习进度 HTTP 处理器
type EnrollmentHandler struct {
	enrollmentSvc service.EnrollmentService
}

// NewEnrollmentHandler 创建 EnrollmentHandler
func NewEnrollmentHandler(enrollmentSvc service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollmentSvc: enrollmentSvc}
}

// Enroll 选课；新建返回 201，已存在返回 200 与原记录
// POST /api/v1/enrollments
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	var req dto.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	enrollment, created, err := h.enrollmentSvc.Enroll(c.Request.Context(), caller, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	if created {
		response.Created(c, enrollment)
		return
	}
	response.OK(c, enrollment)
}

// MyCourses 我的课程
// GET /api/v1/enrollments/my-courses
func (h *EnrollmentHandler) MyCourses(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	var req dto.MyCoursesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}

	page, err := h.enrollmentSvc.ListMyCourses(c.Request.Context(), caller, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, page)
}

// GetEnrollment 选课详情（含进度）
// GET /api/v1/enrollments/:id
func (h *EnrollmentHandler) GetEnrollment(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	enrollment, err := h.enrollmentSvc.GetEnrollment(c.Request.Context(), caller, id)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, enrollment)
}

// MarkProgress 标记课时完成/未完成
// POST /api/v1/enrollments/:id/lessons/:lessonId/progress
func (h *EnrollmentHandler) MarkProgress(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	lessonID, ok := paramID(c, "lessonId")
	if !ok {
		return
	}
	var req dto.MarkProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	result, err := h.enrollmentSvc.MarkLessonProgress(c.Request.Context(), caller, id, lessonID, *req.Done)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, result)
}

// ListCourseEnrollments 课程的全部选课
// GET /api/v1/courses/:id/enrollments
func (h *EnrollmentHandler) ListCourseEnrollments(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	list, err := h.enrollmentSvc.ListCourseEnrollments(c.Request.Context(), caller, id)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}
