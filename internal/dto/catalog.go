package dto

// ── 分类（知识领域 / 校区）DTO ──

// CreateTaxonomyRequest 创建知识领域或校区
type CreateTaxonomyRequest struct {
	Name    string `json:"nome"    binding:"required,min=2,max=120"`
	Visible *bool  `json:"visivel"`
}

// VisibilityRequest 可见性切换
type VisibilityRequest struct {
	Visible *bool `json:"visivel" binding:"required"`
}

// TaxonomyResponse 知识领域或校区
type TaxonomyResponse struct {
	ID      int64  `json:"id"`
	Name    string `json:"nome"`
	Visible bool   `json:"visivel"`
}

// ── 课程 DTO ──

// CreateCourseRequest 创建课程请求
type CreateCourseRequest struct {
	Name            string `json:"nome"               binding:"required,min=2,max=200"`
	Description     string `json:"descricao"          binding:"omitempty,max=5000"`
	Professor       string `json:"professor"          binding:"required,max=120"`
	Workload        int    `json:"cargaHoraria"       binding:"min=0"`
	Visible         *bool  `json:"visivel"`
	KnowledgeAreaID int64  `json:"areaConhecimentoId" binding:"required,min=1"`
	CampusID        int64  `json:"campusId"           binding:"required,min=1"`
}

// CourseListRequest 课程列表查询参数
type CourseListRequest struct {
	PageRequest
	Name            string `form:"nome"`
	Visible         *bool  `form:"visivel"`
	KnowledgeAreaID *int64 `form:"areaConhecimentoId"`
	CampusID        *int64 `form:"campusId"`
}

// CourseResponse 课程信息
type CourseResponse struct {
	ID              int64  `json:"id"`
	Name            string `json:"nome"`
	Description     string `json:"descricao"`
	Professor       string `json:"professor"`
	Workload        int    `json:"cargaHoraria"`
	Visible         bool   `json:"visivel"`
	KnowledgeAreaID int64  `json:"areaConhecimentoId"`
	CampusID        int64  `json:"campusId"`
	ThumbnailURL    string `json:"urlThumbnail,omitempty"`
	LessonCount     int    `json:"totalAulas"`
	CreatedAt       string `json:"criadoEm"`
}

// ── 课时 DTO ──

// CreateLessonRequest 新增课时请求，序号由服务端分配
type CreateLessonRequest struct {
	Title       string `json:"titulo"    binding:"required,max=200"`
	Description string `json:"descricao" binding:"omitempty,max=5000"`
	VideoURL    string `json:"urlVideo"  binding:"required,max=500"`
}

// ReorderLessonsRequest 课时重排请求
type ReorderLessonsRequest struct {
	Lessons []LessonOrder `json:"aulas" binding:"required,dive"`
}

// LessonOrder 单节课的目标序号
type LessonOrder struct {
	LessonID int64 `json:"id"        binding:"required"`
	Ordinal  int   `json:"ordemAula"`
}

// LessonResponse 课时信息
type LessonResponse struct {
	ID          int64  `json:"id"`
	CourseID    int64  `json:"cursoId"`
	Title       string `json:"titulo"`
	Description string `json:"descricao"`
	VideoURL    string `json:"urlVideo"`
	Ordinal     int    `json:"ordemAula"`
}
