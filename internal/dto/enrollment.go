package dto

// ── 选课模块 DTO ──

// EnrollRequest 选课请求
type EnrollRequest struct {
	CourseID int64 `json:"cursoId" binding:"required,min=1"`
}

// MarkProgressRequest 标记课时进度
type MarkProgressRequest struct {
	Done *bool `json:"concluido" binding:"required"`
}

// MyCoursesRequest 我的课程查询参数
type MyCoursesRequest struct {
	PageRequest
	Name      string `form:"nome"`
	Completed *bool  `form:"concluido"`
}

// ProgressResponse 单节课进度
type ProgressResponse struct {
	LessonID  int64  `json:"aulaId"`
	Done      bool   `json:"concluido"`
	UpdatedAt string `json:"atualizadoEm"`
}

// EnrollmentResponse 选课信息
type EnrollmentResponse struct {
	ID                  int64              `json:"id"`
	StudentID           int64              `json:"alunoId"`
	CourseID            int64              `json:"cursoId"`
	Completed           bool               `json:"concluido"`
	CompletionChangedAt string             `json:"conclusaoAlteradaEm,omitempty"`
	CreatedAt           string             `json:"criadoEm"`
	Progress            []ProgressResponse `json:"progresso,omitempty"`
}

// MarkProgressResponse 标记进度后的选课与进度行
type MarkProgressResponse struct {
	Enrollment EnrollmentResponse `json:"matricula"`
	Progress   ProgressResponse   `json:"progresso"`
}

// MyCourseResponse 我的课程列表项，完成状态在读取时推导
type MyCourseResponse struct {
	EnrollmentID int64  `json:"matriculaId"`
	CourseID     int64  `json:"cursoId"`
	CourseName   string `json:"nome"`
	Professor    string `json:"professor"`
	ThumbnailURL string `json:"urlThumbnail,omitempty"`
	TotalLessons int    `json:"totalAulas"`
	DoneLessons  int    `json:"aulasConcluidas"`
	Completed    bool   `json:"concluido"`
	EnrolledAt   string `json:"criadoEm"`
}
