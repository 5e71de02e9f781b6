package service

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"coursehub/internal/dto"
	"coursehub/internal/model"
	"coursehub/internal/repository"
	apperrors "coursehub/pkg/errors"
	"coursehub/pkg/query"
	"coursehub/pkg/storage"
)

// ── 目录模块业务错误 ──

var (
	ErrKnowledgeAreaNotFound = apperrors.New(apperrors.KindNotFound, 12001, "知识领域不存在")
	ErrCampusNotFound        = apperrors.New(apperrors.KindNotFound, 12002, "校区不存在")
	ErrCourseNotFound        = apperrors.New(apperrors.KindNotFound, 12003, "课程不存在")
	ErrLessonNotFound        = apperrors.New(apperrors.KindNotFound, 12004, "课时不存在")
	ErrLessonNotInCourse     = apperrors.New(apperrors.KindValidation, 12005, "课时不属于该课程")
	ErrDuplicateLesson       = apperrors.New(apperrors.KindValidation, 12006, "课时重复出现")
	ErrInvalidThumbnail      = apperrors.New(apperrors.KindValidation, 12007, "缩略图必须是图片")
)

// CatalogService 目录（知识领域、校区、课程、课时）业务接口
type CatalogService interface {
	CreateKnowledgeArea(ctx context.Context, caller *Caller, req *dto.CreateTaxonomyRequest) (*dto.TaxonomyResponse, error)
	ListKnowledgeAreas(ctx context.Context, caller *Caller) ([]dto.TaxonomyResponse, error)
	SetKnowledgeAreaVisibility(ctx context.Context, caller *Caller, id int64, visible bool) (*dto.TaxonomyResponse, error)

	CreateCampus(ctx context.Context, caller *Caller, req *dto.CreateTaxonomyRequest) (*dto.TaxonomyResponse, error)
	ListCampuses(ctx context.Context, caller *Caller) ([]dto.TaxonomyResponse, error)
	SetCampusVisibility(ctx context.Context, caller *Caller, id int64, visible bool) (*dto.TaxonomyResponse, error)

	CreateCourse(ctx context.Context, caller *Caller, req *dto.CreateCourseRequest) (*dto.CourseResponse, error)
	GetCourse(ctx context.Context, caller *Caller, id int64) (*dto.CourseResponse, error)
	ListCourses(ctx context.Context, caller *Caller, req *dto.CourseListRequest) (*query.Page[dto.CourseResponse], error)
	SetCourseVisibility(ctx context.Context, caller *Caller, id int64, visible bool) (*dto.CourseResponse, error)
	UploadCourseThumbnail(ctx context.Context, caller *Caller, id int64, contentType string, r io.Reader) (*dto.CourseResponse, error)

	// CreateLesson 追加课时（序号 = 当前数量 + 1），并重算该课程所有选课的完成状态
	CreateLesson(ctx context.Context, caller *Caller, courseID int64, req *dto.CreateLessonRequest) (*dto.LessonResponse, error)
	ListLessons(ctx context.Context, caller *Caller, courseID int64) ([]dto.LessonResponse, error)
	// ReorderLessons 校验集合后暂存目标序号，再重新归一为 1..N
	ReorderLessons(ctx context.Context, caller *Caller, courseID int64, req *dto.ReorderLessonsRequest) ([]dto.LessonResponse, error)
}

type catalogService struct {
	repo   *repository.Repository
	locks  *KeyedLocks
	blobs  storage.BlobStore
	logger *zap.Logger
	now    func() time.Time
}

// NewCatalogService 创建 CatalogService 实例
func NewCatalogService(repo *repository.Repository, locks *KeyedLocks, blobs storage.BlobStore, logger *zap.Logger) CatalogService {
	return &catalogService{repo: repo, locks: locks, blobs: blobs, logger: logger, now: time.Now}
}

// ────────────────────── 知识领域 ──────────────────────

func (s *catalogService) CreateKnowledgeArea(ctx context.Context, caller *Caller, req *dto.CreateTaxonomyRequest) (*dto.TaxonomyResponse, error) {
	if err := RequireRole(caller, model.RoleAdmin); err != nil {
		return nil, err
	}
	area := &model.KnowledgeArea{Name: strings.TrimSpace(req.Name), Visible: boolOr(req.Visible, true)}
	if err := s.repo.KnowledgeArea.Create(ctx, area); err != nil {
		s.logger.Error("创建知识领域失败", zap.Error(err))
		return nil, err
	}
	return &dto.TaxonomyResponse{ID: area.KnowledgeAreaID, Name: area.Name, Visible: area.Visible}, nil
}

func (s *catalogService) ListKnowledgeAreas(ctx context.Context, caller *Caller) ([]dto.TaxonomyResponse, error) {
	areas, err := s.repo.KnowledgeArea.List(ctx)
	if err != nil {
		s.logger.Error("列出知识领域失败", zap.Error(err))
		return nil, err
	}
	result := make([]dto.TaxonomyResponse, 0, len(areas))
	for _, a := range areas {
		if !a.Visible && !caller.IsAdmin() {
			continue
		}
		result = append(result, dto.TaxonomyResponse{ID: a.KnowledgeAreaID, Name: a.Name, Visible: a.Visible})
	}
	return result, nil
}

func (s *catalogService) SetKnowledgeAreaVisibility(ctx context.Context, caller *Caller, id int64, visible bool) (*dto.TaxonomyResponse, error) {
	if err := RequireRole(caller, model.RoleAdmin); err != nil {
		return nil, err
	}
	area, err := s.repo.KnowledgeArea.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrKnowledgeAreaNotFound
		}
		return nil, err
	}
	area.Visible = visible
	if err := s.repo.KnowledgeArea.Update(ctx, area); err != nil {
		s.logger.Error("更新知识领域失败", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	return &dto.TaxonomyResponse{ID: area.KnowledgeAreaID, Name: area.Name, Visible: area.Visible}, nil
}

// ────────────────────── 校区 ──────────────────────

func (s *catalogService) CreateCampus(ctx context.Context, caller *Caller, req *dto.CreateTaxonomyRequest) (*dto.TaxonomyResponse, error) {
	if err := RequireRole(caller, model.RoleAdmin); err != nil {
		return nil, err
	}
	campus := &model.Campus{Name: strings.TrimSpace(req.Name), Visible: boolOr(req.Visible, true)}
	if err := s.repo.Campus.Create(ctx, campus); err != nil {
		s.logger.Error("创建校区失败", zap.Error(err))
		return nil, err
	}
	return &dto.TaxonomyResponse{ID: campus.CampusID, Name: campus.Name, Visible: campus.Visible}, nil
}

func (s *catalogService) ListCampuses(ctx context.Context, caller *Caller) ([]dto.TaxonomyResponse, error) {
	campuses, err := s.repo.Campus.List(ctx)
	if err != nil {
		s.logger.Error("列出校区失败", zap.Error(err))
		return nil, err
	}
	result := make([]dto.TaxonomyResponse, 0, len(campuses))
	for _, c := range campuses {
		if !c.Visible && !caller.IsAdmin() {
			continue
		}
		result = append(result, dto.TaxonomyResponse{ID: c.CampusID, Name: c.Name, Visible: c.Visible})
	}
	return result, nil
}

func (s *catalogService) SetCampusVisibility(ctx context.Context, caller *Caller, id int64, visible bool) (*dto.TaxonomyResponse, error) {
	if err := RequireRole(caller, model.RoleAdmin); err != nil {
		return nil, err
	}
	campus, err := s.repo.Campus.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrCampusNotFound
		}
		return nil, err
	}
	campus.Visible = visible
	if err := s.repo.Campus.Update(ctx, campus); err != nil {
		s.logger.Error("更新校区失败", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	return &dto.TaxonomyResponse{ID: campus.CampusID, Name: campus.Name, Visible: campus.Visible}, nil
}

// ────────────────────── 课程 ──────────────────────

func (s *catalogService) CreateCourse(ctx context.Context, caller *Caller, req *dto.CreateCourseRequest) (*dto.CourseResponse, error) {
	if err := RequireRole(caller, model.RoleAdmin); err != nil {
		return nil, err
	}
	if _, err := s.repo.KnowledgeArea.GetByID(ctx, req.KnowledgeAreaID); err != nil {
		if isNotFound(err) {
			return nil, ErrKnowledgeAreaNotFound
		}
		return nil, err
	}
	if _, err := s.repo.Campus.GetByID(ctx, req.CampusID); err != nil {
		if isNotFound(err) {
			return nil, ErrCampusNotFound
		}
		return nil, err
	}

	course := &model.Course{
		Name:            strings.TrimSpace(req.Name),
		Description:     req.Description,
		ProfessorName:   strings.TrimSpace(req.Professor),
		Workload:        req.Workload,
		Visible:         boolOr(req.Visible, false),
		KnowledgeAreaID: req.KnowledgeAreaID,
		CampusID:        req.CampusID,
	}
	if err := s.repo.Course.Create(ctx, course); err != nil {
		s.logger.Error("创建课程失败", zap.Error(err))
		return nil, err
	}
	return toCourseResponse(course, 0), nil
}

func (s *catalogService) GetCourse(ctx context.Context, caller *Caller, id int64) (*dto.CourseResponse, error) {
	course, err := s.visibleCourse(ctx, s.repo, caller, id)
	if err != nil {
		return nil, err
	}
	count, err := s.repo.Lesson.CountByCourse(ctx, id)
	if err != nil {
		s.logger.Error("统计课时失败", zap.Int64("course_id", id), zap.Error(err))
		return nil, err
	}
	return toCourseResponse(course, count), nil
}

func (s *catalogService) ListCourses(ctx context.Context, caller *Caller, req *dto.CourseListRequest) (*query.Page[dto.CourseResponse], error) {
	dir, err := query.ParseDirection(req.Direction, query.Asc)
	if err != nil {
		return nil, err
	}

	courses, err := s.repo.Course.List(ctx)
	if err != nil {
		s.logger.Error("列出课程失败", zap.Error(err))
		return nil, err
	}

	preds := []query.Predicate[model.Course]{
		func(c model.Course) bool { return query.ContainsFold(c.Name, req.Name) },
	}
	if !caller.IsAdmin() {
		// 学生侧无论过滤条件如何都看不到隐藏课程
		preds = append(preds, func(c model.Course) bool { return c.Visible })
	}
	if req.Visible != nil {
		want := *req.Visible
		preds = append(preds, func(c model.Course) bool { return c.Visible == want })
	}
	if req.KnowledgeAreaID != nil {
		want := *req.KnowledgeAreaID
		preds = append(preds, func(c model.Course) bool { return c.KnowledgeAreaID == want })
	}
	if req.CampusID != nil {
		want := *req.CampusID
		preds = append(preds, func(c model.Course) bool { return c.CampusID == want })
	}

	filtered := query.Filter(courses, preds...)
	sorted := query.SortBy(filtered, func(a, b model.Course) bool {
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.CourseID < b.CourseID
	}, dir)

	page, err := query.Paginate(sorted, req.GetPage(), req.GetSize())
	if err != nil {
		return nil, err
	}

	content := make([]dto.CourseResponse, 0, len(page.Content))
	for i := range page.Content {
		count, err := s.repo.Lesson.CountByCourse(ctx, page.Content[i].CourseID)
		if err != nil {
			s.logger.Error("统计课时失败", zap.Int64("course_id", page.Content[i].CourseID), zap.Error(err))
			return nil, err
		}
		content = append(content, *toCourseResponse(&page.Content[i], count))
	}

	return &query.Page[dto.CourseResponse]{
		Content:    content,
		Page:       page.Page,
		Size:       page.Size,
		TotalItems: page.TotalItems,
		TotalPages: page.TotalPages,
	}, nil
}

func (s *catalogService) SetCourseVisibility(ctx context.Context, caller *Caller, id int64, visible bool) (*dto.CourseResponse, error) {
	if err := RequireRole(caller, model.RoleAdmin); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(courseKey(id))
	defer unlock()

	var (
		course *model.Course
		count  int
	)
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		course, err = tx.Course.GetByID(ctx, id)
		if err != nil {
			if isNotFound(err) {
				return ErrCourseNotFound
			}
			return err
		}
		course.Visible = visible
		if err := tx.Course.Update(ctx, course); err != nil {
			return err
		}
		count, err = tx.Lesson.CountByCourse(ctx, id)
		return err
	})
	if err != nil {
		logUnexpected(s.logger, "更新课程可见性失败", err, zap.Int64("course_id", id))
		return nil, err
	}
	return toCourseResponse(course, count), nil
}

func (s *catalogService) UploadCourseThumbnail(ctx context.Context, caller *Caller, id int64, contentType string, r io.Reader) (*dto.CourseResponse, error) {
	if err := RequireRole(caller, model.RoleAdmin); err != nil {
		return nil, err
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, ErrInvalidThumbnail.WithDetail("content-type=%q", contentType)
	}

	unlock := s.locks.Lock(courseKey(id))
	defer unlock()

	if _, err := s.repo.Course.GetByID(ctx, id); err != nil {
		if isNotFound(err) {
			return nil, ErrCourseNotFound
		}
		return nil, err
	}

	url, err := s.blobs.Put(ctx, fmt.Sprintf("courses/%d/thumbnail", id), contentType, r)
	if err != nil {
		s.logger.Error("上传缩略图失败", zap.Int64("course_id", id), zap.Error(err))
		return nil, err
	}

	var (
		course *model.Course
		count  int
	)
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		course, err = tx.Course.GetByID(ctx, id)
		if err != nil {
			if isNotFound(err) {
				return ErrCourseNotFound
			}
			return err
		}
		course.ThumbnailURL = url
		if err := tx.Course.Update(ctx, course); err != nil {
			return err
		}
		count, err = tx.Lesson.CountByCourse(ctx, id)
		return err
	})
	if err != nil {
		logUnexpected(s.logger, "更新课程缩略图失败", err, zap.Int64("course_id", id))
		return nil, err
	}
	return toCourseResponse(course, count), nil
}

// ────────────────────── 课时 ──────────────────────

func (s *catalogService) CreateLesson(ctx context.Context, caller *Caller, courseID int64, req *dto.CreateLessonRequest) (*dto.LessonResponse, error) {
	if err := RequireRole(caller, model.RoleAdmin); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(courseKey(courseID))
	defer unlock()

	var lesson *model.Lesson
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if _, err := tx.Course.GetByID(ctx, courseID); err != nil {
			if isNotFound(err) {
				return ErrCourseNotFound
			}
			return err
		}

		count, err := tx.Lesson.CountByCourse(ctx, courseID)
		if err != nil {
			return err
		}
		lesson = &model.Lesson{
			CourseID:    courseID,
			Title:       strings.TrimSpace(req.Title),
			Description: req.Description,
			VideoURL:    strings.TrimSpace(req.VideoURL),
			Ordinal:     count + 1,
		}
		if err := tx.Lesson.Create(ctx, lesson); err != nil {
			return err
		}

		// 新课时会让已完成的选课重新变为未完成
		return recomputeCourseEnrollments(ctx, tx, courseID, s.now())
	})
	if err != nil {
		logUnexpected(s.logger, "创建课时失败", err, zap.Int64("course_id", courseID))
		return nil, err
	}
	return toLessonResponse(lesson), nil
}

func (s *catalogService) ListLessons(ctx context.Context, caller *Caller, courseID int64) ([]dto.LessonResponse, error) {
	if _, err := s.visibleCourse(ctx, s.repo, caller, courseID); err != nil {
		return nil, err
	}
	lessons, err := s.repo.Lesson.ListByCourse(ctx, courseID)
	if err != nil {
		s.logger.Error("列出课时失败", zap.Int64("course_id", courseID), zap.Error(err))
		return nil, err
	}
	return toLessonResponses(lessons), nil
}

// ═══════════════════════════════════════════════════════════
// ReorderLessons 课时重排
// ═══════════════════════════════════════════════════════════
//
//   1. 集合校验（任何修改之前）：数量必须等于课程课时数，
//      每个 ID 必须属于该课程且只出现一次
//   2. 暂存客户端给出的序号（允许空洞与并列）
//   3. 按 (暂存序号, 原序号, 课时 ID) 排序后重新分配 1..N
//
// 只因集合不匹配而失败，不会因序号本身的取值失败。

func (s *catalogService) ReorderLessons(ctx context.Context, caller *Caller, courseID int64, req *dto.ReorderLessonsRequest) ([]dto.LessonResponse, error) {
	if err := RequireRole(caller, model.RoleAdmin); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(courseKey(courseID))
	defer unlock()

	var result []model.Lesson
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if _, err := tx.Course.GetByID(ctx, courseID); err != nil {
			if isNotFound(err) {
				return ErrCourseNotFound
			}
			return err
		}

		lessons, err := tx.Lesson.ListByCourse(ctx, courseID)
		if err != nil {
			return err
		}

		provisional, err := validateReorder(lessons, req.Lessons)
		if err != nil {
			return err
		}

		result = renormalize(lessons, provisional)

		previous := make(map[int64]int, len(lessons))
		for _, l := range lessons {
			previous[l.LessonID] = l.Ordinal
		}
		changed := make(map[int64]int)
		for _, l := range result {
			if previous[l.LessonID] != l.Ordinal {
				changed[l.LessonID] = l.Ordinal
			}
		}
		if len(changed) == 0 {
			return nil
		}
		return tx.Lesson.UpdateOrdinals(ctx, courseID, changed)
	})
	if err != nil {
		logUnexpected(s.logger, "重排课时失败", err, zap.Int64("course_id", courseID))
		return nil, err
	}
	return toLessonResponses(result), nil
}

// validateReorder 校验提交集合恰为课程课时的一个排列，返回 lessonID → 暂存序号
func validateReorder(lessons []model.Lesson, items []dto.LessonOrder) (map[int64]int, error) {
	if len(items) != len(lessons) {
		return nil, apperrors.ErrInvalidRequest.WithDetail("提交 %d 节课，课程共有 %d 节课", len(items), len(lessons))
	}

	inCourse := make(map[int64]bool, len(lessons))
	for _, l := range lessons {
		inCourse[l.LessonID] = true
	}

	provisional := make(map[int64]int, len(items))
	for _, it := range items {
		if !inCourse[it.LessonID] {
			return nil, ErrLessonNotInCourse.WithDetail("lessonId=%d", it.LessonID)
		}
		if _, seen := provisional[it.LessonID]; seen {
			return nil, ErrDuplicateLesson.WithDetail("lessonId=%d", it.LessonID)
		}
		provisional[it.LessonID] = it.Ordinal
	}
	return provisional, nil
}

// renormalize 按暂存序号排序后分配稠密序号 1..N，返回新切片
func renormalize(lessons []model.Lesson, provisional map[int64]int) []model.Lesson {
	out := append([]model.Lesson(nil), lessons...)
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := provisional[out[i].LessonID], provisional[out[j].LessonID]
		if pi != pj {
			return pi < pj
		}
		if out[i].Ordinal != out[j].Ordinal {
			return out[i].Ordinal < out[j].Ordinal
		}
		return out[i].LessonID < out[j].LessonID
	})
	for i := range out {
		out[i].Ordinal = i + 1
	}
	return out
}

// ── 内部辅助方法 ──

// visibleCourse 查询课程；隐藏课程对非管理员表现为不存在
func (s *catalogService) visibleCourse(ctx context.Context, repo *repository.Repository, caller *Caller, id int64) (*model.Course, error) {
	course, err := repo.Course.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrCourseNotFound
		}
		s.logger.Error("查询课程失败", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	if !course.Visible && !caller.IsAdmin() {
		return nil, ErrCourseNotFound
	}
	return course, nil
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func toCourseResponse(c *model.Course, lessonCount int) *dto.CourseResponse {
	return &dto.CourseResponse{
		ID:              c.CourseID,
		Name:            c.Name,
		Description:     c.Description,
		Professor:       c.ProfessorName,
		Workload:        c.Workload,
		Visible:         c.Visible,
		KnowledgeAreaID: c.KnowledgeAreaID,
		CampusID:        c.CampusID,
		ThumbnailURL:    c.ThumbnailURL,
		LessonCount:     lessonCount,
		CreatedAt:       formatTime(c.CreatedAt),
	}
}

func toLessonResponse(l *model.Lesson) *dto.LessonResponse {
	return &dto.LessonResponse{
		ID:          l.LessonID,
		CourseID:    l.CourseID,
		Title:       l.Title,
		Description: l.Description,
		VideoURL:    l.VideoURL,
		Ordinal:     l.Ordinal,
	}
}

func toLessonResponses(lessons []model.Lesson) []dto.LessonResponse {
	result := make([]dto.LessonResponse, 0, len(lessons))
	for i := range lessons {
		result = append(result, *toLessonResponse(&lessons[i]))
	}
	return result
}
