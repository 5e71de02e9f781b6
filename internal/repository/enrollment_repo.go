package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"coursehub/internal/model"
)

// ── Enrollment ──

type enrollmentRepo struct {
	db *gorm.DB
}

// NewEnrollmentRepo 创建 EnrollmentRepository 实例
func NewEnrollmentRepo(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepo{db: db}
}

func (r *enrollmentRepo) Create(ctx context.Context, enrollment *model.Enrollment) error {
	return r.db.WithContext(ctx).Create(enrollment).Error
}

func (r *enrollmentRepo) GetByID(ctx context.Context, id int64) (*model.Enrollment, error) {
	var e model.Enrollment
	if err := r.db.WithContext(ctx).Where("enrollment_id = ?", id).First(&e).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *enrollmentRepo) GetByStudentAndCourse(ctx context.Context, studentID, courseID int64) (*model.Enrollment, error) {
	var e model.Enrollment
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *enrollmentRepo) ListByStudent(ctx context.Context, studentID int64) ([]model.Enrollment, error) {
	var list []model.Enrollment
	err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("created_at, enrollment_id").
		Find(&list).Error
	return list, err
}

func (r *enrollmentRepo) ListByCourse(ctx context.Context, courseID int64) ([]model.Enrollment, error) {
	var list []model.Enrollment
	err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("created_at, enrollment_id").
		Find(&list).Error
	return list, err
}

func (r *enrollmentRepo) Update(ctx context.Context, enrollment *model.Enrollment) error {
	return r.db.WithContext(ctx).Save(enrollment).Error
}

// ── LessonProgress ──

type progressRepo struct {
	db *gorm.DB
}

// NewProgressRepo 创建 ProgressRepository 实例
func NewProgressRepo(db *gorm.DB) ProgressRepository {
	return &progressRepo{db: db}
}

func (r *progressRepo) Get(ctx context.Context, enrollmentID, lessonID int64) (*model.LessonProgress, error) {
	var p model.LessonProgress
	err := r.db.WithContext(ctx).
		Where("enrollment_id = ? AND lesson_id = ?", enrollmentID, lessonID).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *progressRepo) Upsert(ctx context.Context, progress *model.LessonProgress) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "enrollment_id"}, {Name: "lesson_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"done", "updated_at"}),
		}).
		Create(progress).Error
}

func (r *progressRepo) ListByEnrollment(ctx context.Context, enrollmentID int64) ([]model.LessonProgress, error) {
	var list []model.LessonProgress
	err := r.db.WithContext(ctx).
		Where("enrollment_id = ?", enrollmentID).
		Order("lesson_id").
		Find(&list).Error
	return list, err
}

// ── CertificateRequest ──

type certificateRepo struct {
	db *gorm.DB
}

// NewCertificateRepo 创建 CertificateRepository 实例
func NewCertificateRepo(db *gorm.DB) CertificateRepository {
	return &certificateRepo{db: db}
}

func (r *certificateRepo) Create(ctx context.Context, req *model.CertificateRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *certificateRepo) GetByID(ctx context.Context, id int64) (*model.CertificateRequest, error) {
	var req model.CertificateRequest
	if err := r.db.WithContext(ctx).Where("request_id = ?", id).First(&req).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *certificateRepo) GetPendingByEnrollment(ctx context.Context, enrollmentID int64) (*model.CertificateRequest, error) {
	var req model.CertificateRequest
	err := r.db.WithContext(ctx).
		Where("enrollment_id = ? AND status = ?", enrollmentID, model.CertificatePending).
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *certificateRepo) ListByEnrollment(ctx context.Context, enrollmentID int64) ([]model.CertificateRequest, error) {
	var list []model.CertificateRequest
	err := r.db.WithContext(ctx).
		Where("enrollment_id = ?", enrollmentID).
		Order("created_at, request_id").
		Find(&list).Error
	return list, err
}

func (r *certificateRepo) List(ctx context.Context) ([]model.CertificateRequest, error) {
	var list []model.CertificateRequest
	err := r.db.WithContext(ctx).Order("created_at, request_id").Find(&list).Error
	return list, err
}

func (r *certificateRepo) Update(ctx context.Context, req *model.CertificateRequest) error {
	return r.db.WithContext(ctx).Save(req).Error
}
