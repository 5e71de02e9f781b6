package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"coursehub/config"
	"coursehub/internal/dto"
	"coursehub/internal/model"
	"coursehub/internal/repository"
	apperrors "coursehub/pkg/errors"
	"coursehub/pkg/query"
)

// ── 选课模块业务错误 ──

var (
	ErrEnrollmentNotFound = apperrors.New(apperrors.KindNotFound, 13001, "选课记录不存在")
)

// EnrollmentService 选课与学习进度业务接口
type EnrollmentService interface {
	// Enroll 幂等：同一 (学生, 课程) 重复调用返回已有记录，created=false
	Enroll(ctx context.Context, caller *Caller, req *dto.EnrollRequest) (resp *dto.EnrollmentResponse, created bool, err error)
	// MarkLessonProgress 写入进度后总是重算完成状态
	MarkLessonProgress(ctx context.Context, caller *Caller, enrollmentID, lessonID int64, done bool) (*dto.MarkProgressResponse, error)
	RecomputeCompletion(ctx context.Context, enrollmentID int64) (*dto.EnrollmentResponse, error)
	GetEnrollment(ctx context.Context, caller *Caller, id int64) (*dto.EnrollmentResponse, error)
	ListMyCourses(ctx context.Context, caller *Caller, req *dto.MyCoursesRequest) (*query.Page[dto.MyCourseResponse], error)
	ListCourseEnrollments(ctx context.Context, caller *Caller, courseID int64) ([]dto.EnrollmentResponse, error)
}

type enrollmentService struct {
	cfg    *config.Config
	repo   *repository.Repository
	locks  *KeyedLocks
	logger *zap.Logger
	now    func() time.Time
}

// NewEnrollmentService 创建 EnrollmentService 实例
func NewEnrollmentService(cfg *config.Config, repo *repository.Repository, locks *KeyedLocks, logger *zap.Logger) EnrollmentService {
	return &enrollmentService{cfg: cfg, repo: repo, locks: locks, logger: logger, now: time.Now}
}

// ────────────────────── Enroll ──────────────────────

func (s *enrollmentService) Enroll(ctx context.Context, caller *Caller, req *dto.EnrollRequest) (*dto.EnrollmentResponse, bool, error) {
	if err := RequireRole(caller, model.RoleStudent); err != nil {
		return nil, false, err
	}

	unlockCourse := s.locks.RLock(courseKey(req.CourseID))
	defer unlockCourse()
	unlockPair := s.locks.Lock(enrollPairKey(caller.AccountID, req.CourseID))
	defer unlockPair()

	var (
		enrollment *model.Enrollment
		created    bool
	)
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		course, err := tx.Course.GetByID(ctx, req.CourseID)
		if err != nil {
			if isNotFound(err) {
				return ErrCourseNotFound
			}
			return err
		}
		if !course.Visible {
			return ErrCourseNotFound
		}

		existing, err := tx.Enrollment.GetByStudentAndCourse(ctx, caller.AccountID, req.CourseID)
		if err == nil {
			enrollment = existing
			return nil
		}
		if !isNotFound(err) {
			return err
		}

		enrollment = &model.Enrollment{StudentID: caller.AccountID, CourseID: req.CourseID}
		if err := tx.Enrollment.Create(ctx, enrollment); err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		if isDuplicate(err) {
			// 数据库唯一约束兜底：并发创建时返回已有记录
			existing, getErr := s.repo.Enrollment.GetByStudentAndCourse(ctx, caller.AccountID, req.CourseID)
			if getErr != nil {
				return nil, false, getErr
			}
			return toEnrollmentResponse(existing, nil), false, nil
		}
		logUnexpected(s.logger, "选课失败", err, zap.Int64("course_id", req.CourseID))
		return nil, false, err
	}

	return toEnrollmentResponse(enrollment, nil), created, nil
}

// ────────────────────── MarkLessonProgress ──────────────────────

func (s *enrollmentService) MarkLessonProgress(ctx context.Context, caller *Caller, enrollmentID, lessonID int64, done bool) (*dto.MarkProgressResponse, error) {
	if caller == nil {
		return nil, ErrMissingCredential
	}

	// 选课所属课程不可变，先查出来以便按 course → enrollment 顺序加锁
	courseID, err := s.courseOf(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	unlockCourse := s.locks.RLock(courseKey(courseID))
	defer unlockCourse()
	unlockEnrollment := s.locks.Lock(enrollmentKey(enrollmentID))
	defer unlockEnrollment()

	var (
		enrollment *model.Enrollment
		progress   *model.LessonProgress
	)
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		enrollment, err = tx.Enrollment.GetByID(ctx, enrollmentID)
		if err != nil {
			if isNotFound(err) {
				return ErrEnrollmentNotFound
			}
			return err
		}
		if !caller.owns(enrollment.StudentID) {
			return apperrors.Forbidden(string(model.RoleAdmin), string(model.RoleStudent))
		}

		lesson, err := tx.Lesson.GetByID(ctx, lessonID)
		if err != nil {
			if isNotFound(err) {
				return ErrLessonNotFound
			}
			return err
		}
		if lesson.CourseID != enrollment.CourseID {
			return ErrLessonNotInCourse.WithDetail("lessonId=%d", lessonID)
		}

		now := s.now()
		existing, err := tx.Progress.Get(ctx, enrollmentID, lessonID)
		switch {
		case err == nil && existing.Done == done:
			// 重复标记相同值：保留原记录与 UpdatedAt
			progress = existing
		case err == nil || isNotFound(err):
			progress = &model.LessonProgress{
				EnrollmentID: enrollmentID,
				LessonID:     lessonID,
				Done:         done,
				UpdatedAt:    now,
			}
			if err := tx.Progress.Upsert(ctx, progress); err != nil {
				return err
			}
		default:
			return err
		}

		lessons, err := tx.Lesson.ListByCourse(ctx, enrollment.CourseID)
		if err != nil {
			return err
		}
		flipped, err := recomputeEnrollment(ctx, tx, enrollment, lessons, now)
		if err != nil {
			return err
		}

		if flipped && enrollment.Completed && s.cfg.Workflow.AutoRequestCertificate {
			return autoRequestCertificate(ctx, tx, enrollment.EnrollmentID)
		}
		return nil
	})
	if err != nil {
		logUnexpected(s.logger, "标记课时进度失败", err,
			zap.Int64("enrollment_id", enrollmentID), zap.Int64("lesson_id", lessonID))
		return nil, err
	}

	return &dto.MarkProgressResponse{
		Enrollment: *toEnrollmentResponse(enrollment, nil),
		Progress:   toProgressResponse(progress),
	}, nil
}

// ────────────────────── RecomputeCompletion ──────────────────────

func (s *enrollmentService) RecomputeCompletion(ctx context.Context, enrollmentID int64) (*dto.EnrollmentResponse, error) {
	courseID, err := s.courseOf(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	unlockCourse := s.locks.RLock(courseKey(courseID))
	defer unlockCourse()
	unlockEnrollment := s.locks.Lock(enrollmentKey(enrollmentID))
	defer unlockEnrollment()

	var enrollment *model.Enrollment
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		enrollment, err = tx.Enrollment.GetByID(ctx, enrollmentID)
		if err != nil {
			if isNotFound(err) {
				return ErrEnrollmentNotFound
			}
			return err
		}
		lessons, err := tx.Lesson.ListByCourse(ctx, enrollment.CourseID)
		if err != nil {
			return err
		}
		_, err = recomputeEnrollment(ctx, tx, enrollment, lessons, s.now())
		return err
	})
	if err != nil {
		logUnexpected(s.logger, "重算完成状态失败", err, zap.Int64("enrollment_id", enrollmentID))
		return nil, err
	}
	return toEnrollmentResponse(enrollment, nil), nil
}

// ────────────────────── 查询 ──────────────────────

func (s *enrollmentService) GetEnrollment(ctx context.Context, caller *Caller, id int64) (*dto.EnrollmentResponse, error) {
	if caller == nil {
		return nil, ErrMissingCredential
	}
	enrollment, err := s.repo.Enrollment.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrEnrollmentNotFound
		}
		s.logger.Error("查询选课失败", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	if !caller.owns(enrollment.StudentID) {
		return nil, apperrors.Forbidden(string(model.RoleAdmin), string(model.RoleStudent))
	}

	progress, err := s.repo.Progress.ListByEnrollment(ctx, id)
	if err != nil {
		s.logger.Error("查询课时进度失败", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	return toEnrollmentResponse(enrollment, progress), nil
}

func (s *enrollmentService) ListMyCourses(ctx context.Context, caller *Caller, req *dto.MyCoursesRequest) (*query.Page[dto.MyCourseResponse], error) {
	if caller == nil {
		return nil, ErrMissingCredential
	}
	dir, err := query.ParseDirection(req.Direction, query.Asc)
	if err != nil {
		return nil, err
	}

	enrollments, err := s.repo.Enrollment.ListByStudent(ctx, caller.AccountID)
	if err != nil {
		s.logger.Error("列出选课失败", zap.Int64("student_id", caller.AccountID), zap.Error(err))
		return nil, err
	}

	type row struct {
		item    dto.MyCourseResponse
		created time.Time
	}
	rows := make([]row, 0, len(enrollments))
	for _, e := range enrollments {
		course, err := s.repo.Course.GetByID(ctx, e.CourseID)
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, err
		}
		if !course.Visible && !caller.IsAdmin() {
			continue
		}
		lessons, err := s.repo.Lesson.ListByCourse(ctx, e.CourseID)
		if err != nil {
			return nil, err
		}
		progress, err := s.repo.Progress.ListByEnrollment(ctx, e.EnrollmentID)
		if err != nil {
			return nil, err
		}

		rows = append(rows, row{
			item: dto.MyCourseResponse{
				EnrollmentID: e.EnrollmentID,
				CourseID:     course.CourseID,
				CourseName:   course.Name,
				Professor:    course.ProfessorName,
				ThumbnailURL: course.ThumbnailURL,
				TotalLessons: len(lessons),
				DoneLessons:  model.CountDone(lessons, progress),
				// 读取时推导，不依赖缓存字段
				Completed:  model.IsComplete(lessons, progress),
				EnrolledAt: formatTime(e.CreatedAt),
			},
			created: e.CreatedAt,
		})
	}

	preds := []query.Predicate[row]{
		func(r row) bool { return query.ContainsFold(r.item.CourseName, req.Name) },
	}
	if req.Completed != nil {
		want := *req.Completed
		preds = append(preds, func(r row) bool { return r.item.Completed == want })
	}

	sorted := query.SortBy(query.Filter(rows, preds...), func(a, b row) bool {
		if !a.created.Equal(b.created) {
			return a.created.Before(b.created)
		}
		return a.item.EnrollmentID < b.item.EnrollmentID
	}, dir)

	page, err := query.Paginate(sorted, req.GetPage(), req.GetSize())
	if err != nil {
		return nil, err
	}

	content := make([]dto.MyCourseResponse, 0, len(page.Content))
	for _, r := range page.Content {
		content = append(content, r.item)
	}
	return &query.Page[dto.MyCourseResponse]{
		Content:    content,
		Page:       page.Page,
		Size:       page.Size,
		TotalItems: page.TotalItems,
		TotalPages: page.TotalPages,
	}, nil
}

func (s *enrollmentService) ListCourseEnrollments(ctx context.Context, caller *Caller, courseID int64) ([]dto.EnrollmentResponse, error) {
	if err := RequireRole(caller, model.RoleAdmin); err != nil {
		return nil, err
	}
	if _, err := s.repo.Course.GetByID(ctx, courseID); err != nil {
		if isNotFound(err) {
			return nil, ErrCourseNotFound
		}
		return nil, err
	}
	enrollments, err := s.repo.Enrollment.ListByCourse(ctx, courseID)
	if err != nil {
		s.logger.Error("列出课程选课失败", zap.Int64("course_id", courseID), zap.Error(err))
		return nil, err
	}
	result := make([]dto.EnrollmentResponse, 0, len(enrollments))
	for i := range enrollments {
		result = append(result, *toEnrollmentResponse(&enrollments[i], nil))
	}
	return result, nil
}

// ── 内部辅助方法 ──

func (s *enrollmentService) courseOf(ctx context.Context, enrollmentID int64) (int64, error) {
	e, err := s.repo.Enrollment.GetByID(ctx, enrollmentID)
	if err != nil {
		if isNotFound(err) {
			return 0, ErrEnrollmentNotFound
		}
		s.logger.Error("查询选课失败", zap.Int64("id", enrollmentID), zap.Error(err))
		return 0, err
	}
	return e.CourseID, nil
}

// recomputeEnrollment 按课程全部课时重算完成状态；只有状态翻转时才写入并更新时间戳
func recomputeEnrollment(ctx context.Context, tx *repository.Repository, e *model.Enrollment, lessons []model.Lesson, now time.Time) (bool, error) {
	progress, err := tx.Progress.ListByEnrollment(ctx, e.EnrollmentID)
	if err != nil {
		return false, err
	}
	complete := model.IsComplete(lessons, progress)
	if complete == e.Completed {
		return false, nil
	}
	e.Completed = complete
	changedAt := now
	e.CompletionChangedAt = &changedAt
	if err := tx.Enrollment.Update(ctx, e); err != nil {
		return false, err
	}
	return true, nil
}

// recomputeCourseEnrollments 课时集合变化后重算课程下所有选课
func recomputeCourseEnrollments(ctx context.Context, tx *repository.Repository, courseID int64, now time.Time) error {
	lessons, err := tx.Lesson.ListByCourse(ctx, courseID)
	if err != nil {
		return err
	}
	enrollments, err := tx.Enrollment.ListByCourse(ctx, courseID)
	if err != nil {
		return err
	}
	for i := range enrollments {
		if _, err := recomputeEnrollment(ctx, tx, &enrollments[i], lessons, now); err != nil {
			return err
		}
	}
	return nil
}

func toProgressResponse(p *model.LessonProgress) dto.ProgressResponse {
	return dto.ProgressResponse{
		LessonID:  p.LessonID,
		Done:      p.Done,
		UpdatedAt: formatTime(p.UpdatedAt),
	}
}

func toEnrollmentResponse(e *model.Enrollment, progress []model.LessonProgress) *dto.EnrollmentResponse {
	resp := &dto.EnrollmentResponse{
		ID:                  e.EnrollmentID,
		StudentID:           e.StudentID,
		CourseID:            e.CourseID,
		Completed:           e.Completed,
		CompletionChangedAt: formatTimePtr(e.CompletionChangedAt),
		CreatedAt:           formatTime(e.CreatedAt),
	}
	for i := range progress {
		resp.Progress = append(resp.Progress, toProgressResponse(&progress[i]))
	}
	return resp
}
