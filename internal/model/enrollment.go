package model

import "time"

// Enrollment 选课表，对应 enrollments，(StudentID, CourseID) 唯一
// Completed 是由 LessonProgress 推导出的缓存值，每次进度变更后重算
type Enrollment struct {
	EnrollmentID        int64      `gorm:"primaryKey;autoIncrement"                       json:"enrollment_id"`
	StudentID           int64      `gorm:"not null;uniqueIndex:uq_enrollment_student_course" json:"student_id"`
	CourseID            int64      `gorm:"not null;uniqueIndex:uq_enrollment_student_course" json:"course_id"`
	Completed           bool       `gorm:"not null;default:false"                         json:"completed"`
	CompletionChangedAt *time.Time `json:"completion_changed_at,omitempty"`
	BaseModel
}

// TableName 指定表名
func (Enrollment) TableName() string { return "enrollments" }

// LessonProgress 课时进度表，对应 lesson_progress，(EnrollmentID, LessonID) 唯一
type LessonProgress struct {
	ProgressID   int64     `gorm:"primaryKey;autoIncrement"                          json:"progress_id"`
	EnrollmentID int64     `gorm:"not null;uniqueIndex:uq_progress_enrollment_lesson" json:"enrollment_id"`
	LessonID     int64     `gorm:"not null;uniqueIndex:uq_progress_enrollment_lesson" json:"lesson_id"`
	Done         bool      `gorm:"not null;default:false"                            json:"done"`
	UpdatedAt    time.Time `gorm:"not null"                                          json:"updated_at"`
}

// TableName 指定表名
func (LessonProgress) TableName() string { return "lesson_progress" }

// IsComplete 完成判定：课程至少一节课，且每节课都有 done=true 的进度
// 纯函数，不依赖存储；零课时的课程永远不算完成
func IsComplete(lessons []Lesson, progress []LessonProgress) bool {
	if len(lessons) == 0 {
		return false
	}
	done := make(map[int64]bool, len(progress))
	for _, p := range progress {
		if p.Done {
			done[p.LessonID] = true
		}
	}
	for _, l := range lessons {
		if !done[l.LessonID] {
			return false
		}
	}
	return true
}

// CountDone 统计属于给定课时集合且已完成的进度条数
func CountDone(lessons []Lesson, progress []LessonProgress) int {
	inCourse := make(map[int64]bool, len(lessons))
	for _, l := range lessons {
		inCourse[l.LessonID] = true
	}
	n := 0
	for _, p := range progress {
		if p.Done && inCourse[p.LessonID] {
			n++
		}
	}
	return n
}
