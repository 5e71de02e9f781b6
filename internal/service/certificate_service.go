package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"coursehub/internal/dto"
	"coursehub/internal/model"
	"coursehub/internal/repository"
	apperrors "coursehub/pkg/errors"
	"coursehub/pkg/query"
)

// ── 证书申请模块业务错误 ──

var (
	ErrCertificateRequestNotFound = apperrors.New(apperrors.KindNotFound, 14001, "证书申请不存在")
	ErrEnrollmentNotCompleted     = apperrors.New(apperrors.KindState, 14002, "课程尚未完成，不能申请证书")
	ErrDuplicatePendingRequest    = apperrors.New(apperrors.KindState, 14003, "已有待审核的证书申请")
	ErrInvalidTransition          = apperrors.New(apperrors.KindState, 14004, "证书申请状态不允许该操作")
	ErrInvalidCertificateStatus   = apperrors.New(apperrors.KindValidation, 14005, "证书申请状态无效")
)

// CertificateService 证书申请审批流程
//
// 状态机：pending → approved | rejected，后两者为终态。
// 每个选课同一时间至多一条 pending 申请；被拒绝后可重新申请。
type CertificateService interface {
	Request(ctx context.Context, caller *Caller, enrollmentID int64) (*dto.CertificateResponse, error)
	Approve(ctx context.Context, caller *Caller, requestID int64) (*dto.CertificateResponse, error)
	Reject(ctx context.Context, caller *Caller, requestID int64, reason *string) (*dto.CertificateResponse, error)
	// Decide 按 PATCH 请求体中的 status 分派到 Approve / Reject
	Decide(ctx context.Context, caller *Caller, requestID int64, req *dto.DecideCertificateRequest) (*dto.CertificateResponse, error)
	Get(ctx context.Context, caller *Caller, requestID int64) (*dto.CertificateResponse, error)
	List(ctx context.Context, caller *Caller, req *dto.CertificateListRequest) (*query.Page[dto.CertificateResponse], error)
}

type certificateService struct {
	repo   *repository.Repository
	locks  *KeyedLocks
	logger *zap.Logger
	now    func() time.Time
}

// NewCertificateService 创建 CertificateService 实例
func NewCertificateService(repo *repository.Repository, locks *KeyedLocks, logger *zap.Logger) CertificateService {
	return &certificateService{repo: repo, locks: locks, logger: logger, now: time.Now}
}

// ────────────────────── Request ──────────────────────

func (s *certificateService) Request(ctx context.Context, caller *Caller, enrollmentID int64) (*dto.CertificateResponse, error) {
	if caller == nil {
		return nil, ErrMissingCredential
	}

	e, err := s.repo.Enrollment.GetByID(ctx, enrollmentID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrEnrollmentNotFound
		}
		s.logger.Error("查询选课失败", zap.Int64("enrollment_id", enrollmentID), zap.Error(err))
		return nil, err
	}
	if !caller.owns(e.StudentID) {
		return nil, apperrors.Forbidden(string(model.RoleAdmin), string(model.RoleStudent))
	}

	// 课程读锁保证完成状态不会被并发新增的课时改变
	unlockCourse := s.locks.RLock(courseKey(e.CourseID))
	defer unlockCourse()
	unlockEnrollment := s.locks.Lock(enrollmentKey(enrollmentID))
	defer unlockEnrollment()

	var req *model.CertificateRequest
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		enrollment, err := tx.Enrollment.GetByID(ctx, enrollmentID)
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
		if _, err := recomputeEnrollment(ctx, tx, enrollment, lessons, s.now()); err != nil {
			return err
		}
		if !enrollment.Completed {
			return ErrEnrollmentNotCompleted
		}

		req, err = createPendingRequest(ctx, tx, enrollmentID)
		return err
	})
	if err != nil {
		logUnexpected(s.logger, "创建证书申请失败", err, zap.Int64("enrollment_id", enrollmentID))
		return nil, err
	}
	return toCertificateResponse(req), nil
}

// ────────────────────── Approve / Reject ──────────────────────

func (s *certificateService) Approve(ctx context.Context, caller *Caller, requestID int64) (*dto.CertificateResponse, error) {
	return s.transition(ctx, caller, requestID, model.CertificateApproved, nil)
}

func (s *certificateService) Reject(ctx context.Context, caller *Caller, requestID int64, reason *string) (*dto.CertificateResponse, error) {
	return s.transition(ctx, caller, requestID, model.CertificateRejected, reason)
}

func (s *certificateService) Decide(ctx context.Context, caller *Caller, requestID int64, req *dto.DecideCertificateRequest) (*dto.CertificateResponse, error) {
	if err := RequireRole(caller, model.RoleAdmin); err != nil {
		return nil, err
	}
	status, err := model.ParseCertificateStatus(req.Status)
	if err != nil {
		return nil, ErrInvalidCertificateStatus.WithDetail("status=%q", req.Status)
	}
	switch status {
	case model.CertificateApproved:
		return s.Approve(ctx, caller, requestID)
	case model.CertificateRejected:
		return s.Reject(ctx, caller, requestID, req.Reason)
	default:
		return nil, ErrInvalidTransition.WithDetail("不能迁移到 %s", status)
	}
}

// transition 先检查迁移合法性，再修改记录；终态上的任何迁移都失败且不修改记录
func (s *certificateService) transition(ctx context.Context, caller *Caller, requestID int64, to model.CertificateStatus, reason *string) (*dto.CertificateResponse, error) {
	if err := RequireRole(caller, model.RoleAdmin); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(certificateKey(requestID))
	defer unlock()

	var req *model.CertificateRequest
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		req, err = tx.Certificate.GetByID(ctx, requestID)
		if err != nil {
			if isNotFound(err) {
				return ErrCertificateRequestNotFound
			}
			return err
		}
		if !req.Status.CanTransition(to) {
			return ErrInvalidTransition.WithDetail("%s → %s", req.Status, to)
		}

		now := s.now()
		decidedBy := caller.AccountID
		req.Status = to
		req.DecidedBy = &decidedBy
		req.DecidedAt = &now
		if to == model.CertificateRejected {
			req.RejectionReason = trimReason(reason)
		}
		return tx.Certificate.Update(ctx, req)
	})
	if err != nil {
		logUnexpected(s.logger, "更新证书申请失败", err, zap.Int64("request_id", requestID))
		return nil, err
	}
	return toCertificateResponse(req), nil
}

// ────────────────────── 查询 ──────────────────────

func (s *certificateService) Get(ctx context.Context, caller *Caller, requestID int64) (*dto.CertificateResponse, error) {
	if caller == nil {
		return nil, ErrMissingCredential
	}
	req, err := s.repo.Certificate.GetByID(ctx, requestID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrCertificateRequestNotFound
		}
		s.logger.Error("查询证书申请失败", zap.Int64("request_id", requestID), zap.Error(err))
		return nil, err
	}
	if !caller.IsAdmin() {
		e, err := s.repo.Enrollment.GetByID(ctx, req.EnrollmentID)
		if err != nil && !isNotFound(err) {
			return nil, err
		}
		if e == nil || e.StudentID != caller.AccountID {
			return nil, apperrors.Forbidden(string(model.RoleAdmin), string(model.RoleStudent))
		}
	}
	return toCertificateResponse(req), nil
}

func (s *certificateService) List(ctx context.Context, caller *Caller, req *dto.CertificateListRequest) (*query.Page[dto.CertificateResponse], error) {
	if caller == nil {
		return nil, ErrMissingCredential
	}
	dir, err := query.ParseDirection(req.Direction, query.Asc)
	if err != nil {
		return nil, err
	}

	preds := []query.Predicate[model.CertificateRequest]{}
	if req.Status != "" {
		status, err := model.ParseCertificateStatus(req.Status)
		if err != nil {
			return nil, ErrInvalidCertificateStatus.WithDetail("status=%q", req.Status)
		}
		preds = append(preds, func(r model.CertificateRequest) bool { return r.Status == status })
	}
	if req.EnrollmentID != nil {
		want := *req.EnrollmentID
		preds = append(preds, func(r model.CertificateRequest) bool { return r.EnrollmentID == want })
	}

	var all []model.CertificateRequest
	if caller.IsAdmin() {
		all, err = s.repo.Certificate.List(ctx)
		if err != nil {
			s.logger.Error("列出证书申请失败", zap.Error(err))
			return nil, err
		}
	} else {
		enrollments, err := s.repo.Enrollment.ListByStudent(ctx, caller.AccountID)
		if err != nil {
			s.logger.Error("列出选课失败", zap.Error(err))
			return nil, err
		}
		for _, e := range enrollments {
			reqs, err := s.repo.Certificate.ListByEnrollment(ctx, e.EnrollmentID)
			if err != nil {
				s.logger.Error("列出证书申请失败", zap.Error(err))
				return nil, err
			}
			all = append(all, reqs...)
		}
	}

	sorted := query.SortBy(query.Filter(all, preds...), func(a, b model.CertificateRequest) bool {
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.RequestID < b.RequestID
	}, dir)

	page, err := query.Paginate(sorted, req.GetPage(), req.GetSize())
	if err != nil {
		return nil, err
	}
	content := make([]dto.CertificateResponse, 0, len(page.Content))
	for i := range page.Content {
		content = append(content, *toCertificateResponse(&page.Content[i]))
	}
	return &query.Page[dto.CertificateResponse]{
		Content:    content,
		Page:       page.Page,
		Size:       page.Size,
		TotalItems: page.TotalItems,
		TotalPages: page.TotalPages,
	}, nil
}

// ── 内部辅助方法 ──

// createPendingRequest 在事务内创建 pending 申请；已有 pending 申请时返回 ErrDuplicatePendingRequest
func createPendingRequest(ctx context.Context, tx *repository.Repository, enrollmentID int64) (*model.CertificateRequest, error) {
	if _, err := tx.Certificate.GetPendingByEnrollment(ctx, enrollmentID); err == nil {
		return nil, ErrDuplicatePendingRequest
	} else if !isNotFound(err) {
		return nil, err
	}

	req := &model.CertificateRequest{EnrollmentID: enrollmentID, Status: model.CertificatePending}
	if err := tx.Certificate.Create(ctx, req); err != nil {
		if isDuplicate(err) {
			return nil, ErrDuplicatePendingRequest
		}
		return nil, err
	}
	return req, nil
}

// autoRequestCertificate 选课刚变为完成时自动提交申请，已有 pending 申请时跳过
func autoRequestCertificate(ctx context.Context, tx *repository.Repository, enrollmentID int64) error {
	_, err := createPendingRequest(ctx, tx, enrollmentID)
	if err == ErrDuplicatePendingRequest {
		return nil
	}
	return err
}

func trimReason(reason *string) *string {
	if reason == nil {
		return nil
	}
	r := strings.TrimSpace(*reason)
	if r == "" {
		return nil
	}
	return &r
}

func toCertificateResponse(r *model.CertificateRequest) *dto.CertificateResponse {
	return &dto.CertificateResponse{
		ID:           r.RequestID,
		EnrollmentID: r.EnrollmentID,
		Status:       string(r.Status),
		Reason:       r.RejectionReason,
		DecidedBy:    r.DecidedBy,
		DecidedAt:    formatTimePtr(r.DecidedAt),
		CreatedAt:    formatTime(r.CreatedAt),
	}
}
