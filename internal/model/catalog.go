package model

// KnowledgeArea 知识领域表，对应 knowledge_areas
type KnowledgeArea struct {
	KnowledgeAreaID int64  `gorm:"primaryKey;autoIncrement"   json:"knowledge_area_id"`
	Name            string `gorm:"type:varchar(120);not null" json:"name"`
	Visible         bool   `gorm:"not null;default:true"      json:"visible"`
	BaseModel
}

// TableName 指定表名
func (KnowledgeArea) TableName() string { return "knowledge_areas" }

// Campus 校区表，对应 campuses
type Campus struct {
	CampusID int64  `gorm:"primaryKey;autoIncrement"   json:"campus_id"`
	Name     string `gorm:"type:varchar(120);not null" json:"name"`
	Visible  bool   `gorm:"not null;default:true"      json:"visible"`
	BaseModel
}

// TableName 指定表名
func (Campus) TableName() string { return "campuses" }

// Course 课程表，对应 courses
// Visible=false 的课程不出现在学生侧任何列表中，管理员仍可按 ID 访问
type Course struct {
	CourseID        int64  `gorm:"primaryKey;autoIncrement"           json:"course_id"`
	Name            string `gorm:"type:varchar(200);not null"         json:"name"`
	Description     string `gorm:"type:text;not null;default:''"      json:"description"`
	ProfessorName   string `gorm:"type:varchar(120);not null"         json:"professor_name"`
	Workload        int    `gorm:"not null;default:0"                 json:"workload"` // 学时
	Visible         bool   `gorm:"not null;default:false"             json:"visible"`
	KnowledgeAreaID int64  `gorm:"not null"                           json:"knowledge_area_id"`
	CampusID        int64  `gorm:"not null"                           json:"campus_id"`
	ThumbnailURL    string `gorm:"type:varchar(500);not null;default:''" json:"thumbnail_url"`
	BaseModel
}

// TableName 指定表名
func (Course) TableName() string { return "courses" }

// Lesson 课时表，对应 lessons
// 同一课程内 Ordinal 稠密且唯一：N 节课恰好占用 1..N
type Lesson struct {
	LessonID    int64  `gorm:"primaryKey;autoIncrement"      json:"lesson_id"`
	CourseID    int64  `gorm:"not null;index"                json:"course_id"`
	Title       string `gorm:"type:varchar(200);not null"    json:"title"`
	Description string `gorm:"type:text;not null;default:''" json:"description"`
	VideoURL    string `gorm:"type:varchar(500);not null"    json:"video_url"`
	Ordinal     int    `gorm:"not null"                      json:"ordinal"`
	BaseModel
}

// TableName 指定表名
func (Lesson) TableName() string { return "lessons" }
