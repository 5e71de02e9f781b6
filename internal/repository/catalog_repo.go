package repository

import (
	"context"

	"gorm.io/gorm"

	"coursehub/internal/model"
)

// ── KnowledgeArea ──

type knowledgeAreaRepo struct {
	db *gorm.DB
}

// NewKnowledgeAreaRepo 创建 KnowledgeAreaRepository 实例
func NewKnowledgeAreaRepo(db *gorm.DB) KnowledgeAreaRepository {
	return &knowledgeAreaRepo{db: db}
}

func (r *knowledgeAreaRepo) Create(ctx context.Context, area *model.KnowledgeArea) error {
	return r.db.WithContext(ctx).Create(area).Error
}

func (r *knowledgeAreaRepo) GetByID(ctx context.Context, id int64) (*model.KnowledgeArea, error) {
	var area model.KnowledgeArea
	if err := r.db.WithContext(ctx).Where("knowledge_area_id = ?", id).First(&area).Error; err != nil {
		return nil, err
	}
	return &area, nil
}

func (r *knowledgeAreaRepo) List(ctx context.Context) ([]model.KnowledgeArea, error) {
	var areas []model.KnowledgeArea
	err := r.db.WithContext(ctx).Order("name").Find(&areas).Error
	return areas, err
}

func (r *knowledgeAreaRepo) Update(ctx context.Context, area *model.KnowledgeArea) error {
	return r.db.WithContext(ctx).Save(area).Error
}

// ── Campus ──

type campusRepo struct {
	db *gorm.DB
}

// NewCampusRepo 创建 CampusRepository 实例
func NewCampusRepo(db *gorm.DB) CampusRepository {
	return &campusRepo{db: db}
}

func (r *campusRepo) Create(ctx context.Context, campus *model.Campus) error {
	return r.db.WithContext(ctx).Create(campus).Error
}

func (r *campusRepo) GetByID(ctx context.Context, id int64) (*model.Campus, error) {
	var campus model.Campus
	if err := r.db.WithContext(ctx).Where("campus_id = ?", id).First(&campus).Error; err != nil {
		return nil, err
	}
	return &campus, nil
}

func (r *campusRepo) List(ctx context.Context) ([]model.Campus, error) {
	var campuses []model.Campus
	err := r.db.WithContext(ctx).Order("name").Find(&campuses).Error
	return campuses, err
}

func (r *campusRepo) Update(ctx context.Context, campus *model.Campus) error {
	return r.db.WithContext(ctx).Save(campus).Error
}

// ── Course ──

type courseRepo struct {
	db *gorm.DB
}

// NewCourseRepo 创建 CourseRepository 实例
func NewCourseRepo(db *gorm.DB) CourseRepository {
	return &courseRepo{db: db}
}

func (r *courseRepo) Create(ctx context.Context, course *model.Course) error {
	return r.db.WithContext(ctx).Create(course).Error
}

func (r *courseRepo) GetByID(ctx context.Context, id int64) (*model.Course, error) {
	var course model.Course
	if err := r.db.WithContext(ctx).Where("course_id = ?", id).First(&course).Error; err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *courseRepo) List(ctx context.Context) ([]model.Course, error) {
	var courses []model.Course
	err := r.db.WithContext(ctx).Order("course_id").Find(&courses).Error
	return courses, err
}

func (r *courseRepo) Update(ctx context.Context, course *model.Course) error {
	return r.db.WithContext(ctx).Save(course).Error
}

// ── Lesson ──

type lessonRepo struct {
	db *gorm.DB
}

// NewLessonRepo 创建 LessonRepository 实例
func NewLessonRepo(db *gorm.DB) LessonRepository {
	return &lessonRepo{db: db}
}

func (r *lessonRepo) Create(ctx context.Context, lesson *model.Lesson) error {
	return r.db.WithContext(ctx).Create(lesson).Error
}

func (r *lessonRepo) GetByID(ctx context.Context, id int64) (*model.Lesson, error) {
	var lesson model.Lesson
	if err := r.db.WithContext(ctx).Where("lesson_id = ?", id).First(&lesson).Error; err != nil {
		return nil, err
	}
	return &lesson, nil
}

func (r *lessonRepo) ListByCourse(ctx context.Context, courseID int64) ([]model.Lesson, error) {
	var lessons []model.Lesson
	err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("ordinal, lesson_id").
		Find(&lessons).Error
	return lessons, err
}

func (r *lessonRepo) CountByCourse(ctx context.Context, courseID int64) (int, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Lesson{}).
		Where("course_id = ?", courseID).
		Count(&n).Error
	return int(n), err
}

func (r *lessonRepo) UpdateOrdinals(ctx context.Context, courseID int64, ordinals map[int64]int) error {
	db := r.db.WithContext(ctx)
	for lessonID, ordinal := range ordinals {
		res := db.Model(&model.Lesson{}).
			Where("lesson_id = ? AND course_id = ?", lessonID, courseID).
			Updates(map[string]interface{}{
				"ordinal":    ordinal,
				"updated_at": gorm.Expr("NOW()"),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
	}
	return nil
}
