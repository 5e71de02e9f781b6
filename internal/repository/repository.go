package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"coursehub/internal/model"
)

// 两种实现（GORM / 内存）在记录不存在时都返回 gorm.ErrRecordNotFound，
// 违反唯一约束时返回 gorm.ErrDuplicatedKey，Service 层只需识别这两个错误。

// AccountRepository 账号数据访问接口
type AccountRepository interface {
	Create(ctx context.Context, account *model.Account) error
	GetByID(ctx context.Context, id int64) (*model.Account, error)
	GetByEmail(ctx context.Context, email string) (*model.Account, error)
	ListByIDs(ctx context.Context, ids []int64) ([]model.Account, error)
}

// SessionRepository 会话数据访问接口
type SessionRepository interface {
	// Replace 删除账号已有会话后写入新会话（一个账号只保留一个会话）
	Replace(ctx context.Context, session *model.Session) error
	GetByToken(ctx context.Context, token string) (*model.Session, error)
	DeleteByToken(ctx context.Context, token string) error
	DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// KnowledgeAreaRepository 知识领域数据访问接口
type KnowledgeAreaRepository interface {
	Create(ctx context.Context, area *model.KnowledgeArea) error
	GetByID(ctx context.Context, id int64) (*model.KnowledgeArea, error)
	List(ctx context.Context) ([]model.KnowledgeArea, error)
	Update(ctx context.Context, area *model.KnowledgeArea) error
}

// CampusRepository 校区数据访问接口
type CampusRepository interface {
	Create(ctx context.Context, campus *model.Campus) error
	GetByID(ctx context.Context, id int64) (*model.Campus, error)
	List(ctx context.Context) ([]model.Campus, error)
	Update(ctx context.Context, campus *model.Campus) error
}

// CourseRepository 课程数据访问接口
type CourseRepository interface {
	Create(ctx context.Context, course *model.Course) error
	GetByID(ctx context.Context, id int64) (*model.Course, error)
	List(ctx context.Context) ([]model.Course, error)
	Update(ctx context.Context, course *model.Course) error
}

// LessonRepository 课时数据访问接口
type LessonRepository interface {
	Create(ctx context.Context, lesson *model.Lesson) error
	GetByID(ctx context.Context, id int64) (*model.Lesson, error)
	// ListByCourse 按 ordinal 升序返回
	ListByCourse(ctx context.Context, courseID int64) ([]model.Lesson, error)
	CountByCourse(ctx context.Context, courseID int64) (int, error)
	// UpdateOrdinals 一次性写入课程内多节课的新序号
	UpdateOrdinals(ctx context.Context, courseID int64, ordinals map[int64]int) error
}

// EnrollmentRepository 选课数据访问接口
type EnrollmentRepository interface {
	Create(ctx context.Context, enrollment *model.Enrollment) error
	GetByID(ctx context.Context, id int64) (*model.Enrollment, error)
	GetByStudentAndCourse(ctx context.Context, studentID, courseID int64) (*model.Enrollment, error)
	ListByStudent(ctx context.Context, studentID int64) ([]model.Enrollment, error)
	ListByCourse(ctx context.Context, courseID int64) ([]model.Enrollment, error)
	Update(ctx context.Context, enrollment *model.Enrollment) error
}

// ProgressRepository 课时进度数据访问接口
type ProgressRepository interface {
	// Get 按 (EnrollmentID, LessonID) 查询，不存在时返回 gorm.ErrRecordNotFound
	Get(ctx context.Context, enrollmentID, lessonID int64) (*model.LessonProgress, error)
	// Upsert 按 (EnrollmentID, LessonID) 插入或更新
	Upsert(ctx context.Context, progress *model.LessonProgress) error
	ListByEnrollment(ctx context.Context, enrollmentID int64) ([]model.LessonProgress, error)
}

// CertificateRepository 证书申请数据访问接口
type CertificateRepository interface {
	Create(ctx context.Context, req *model.CertificateRequest) error
	GetByID(ctx context.Context, id int64) (*model.CertificateRequest, error)
	// GetPendingByEnrollment 返回该选课唯一的 pending 申请
	GetPendingByEnrollment(ctx context.Context, enrollmentID int64) (*model.CertificateRequest, error)
	ListByEnrollment(ctx context.Context, enrollmentID int64) ([]model.CertificateRequest, error)
	List(ctx context.Context) ([]model.CertificateRequest, error)
	Update(ctx context.Context, req *model.CertificateRequest) error
}

// Transactor 在一个原子单元内执行 fn；fn 返回错误时整体回滚
type Transactor interface {
	Transaction(ctx context.Context, fn func(tx *Repository) error) error
}

// Repository 所有 Repository 的聚合入口
type Repository struct {
	Account       AccountRepository
	Session       SessionRepository
	KnowledgeArea KnowledgeAreaRepository
	Campus        CampusRepository
	Course        CourseRepository
	Lesson        LessonRepository
	Enrollment    EnrollmentRepository
	Progress      ProgressRepository
	Certificate   CertificateRepository

	Tx Transactor
}

// Transaction 在事务中执行 fn；未配置 Transactor 时直接执行
func (r *Repository) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	if r.Tx == nil {
		return fn(r)
	}
	return r.Tx.Transaction(ctx, fn)
}

// NewRepository 创建基于 GORM 的 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	r := newGormRepository(db)
	r.Tx = gormTransactor{db: db}
	return r
}

func newGormRepository(db *gorm.DB) *Repository {
	return &Repository{
		Account:       NewAccountRepo(db),
		Session:       NewSessionRepo(db),
		KnowledgeArea: NewKnowledgeAreaRepo(db),
		Campus:        NewCampusRepo(db),
		Course:        NewCourseRepo(db),
		Lesson:        NewLessonRepo(db),
		Enrollment:    NewEnrollmentRepo(db),
		Progress:      NewProgressRepo(db),
		Certificate:   NewCertificateRepo(db),
	}
}

type gormTransactor struct {
	db *gorm.DB
}

func (t gormTransactor) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 事务内不再嵌套开启事务
		return fn(newGormRepository(tx))
	})
}
