package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"coursehub/config"
	"coursehub/internal/dto"
	"coursehub/internal/model"
	"coursehub/internal/repository"
	apperrors "coursehub/pkg/errors"
	"coursehub/pkg/jwt"
)

// ── 身份模块业务错误 ──

var (
	ErrMissingCredential  = apperrors.New(apperrors.KindAuth, 11001, "缺少认证凭证")
	ErrInvalidSession     = apperrors.New(apperrors.KindAuth, 11002, "会话无效或已过期")
	ErrUnknownAccount     = apperrors.New(apperrors.KindAuth, 11003, "账号不存在")
	ErrInvalidCredentials = apperrors.New(apperrors.KindAuth, 11004, "邮箱或密码错误")
	ErrEmailExists        = apperrors.New(apperrors.KindState, 11005, "邮箱已被注册")
)

// Caller 已认证的调用方
type Caller struct {
	AccountID    int64
	Role         model.Role
	SessionToken string
}

// IsAdmin 是否管理员
func (c *Caller) IsAdmin() bool {
	return c != nil && c.Role == model.RoleAdmin
}

// owns 调用方是否为该学生本人或管理员
func (c *Caller) owns(studentID int64) bool {
	return c.IsAdmin() || (c != nil && c.AccountID == studentID)
}

// RequireRole 调用方必须具备其中一个角色，否则返回携带所需角色的 Forbidden
func RequireRole(caller *Caller, roles ...model.Role) error {
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		if caller != nil && caller.Role == r {
			return nil
		}
		names = append(names, string(r))
	}
	if caller == nil {
		return ErrMissingCredential
	}
	return apperrors.Forbidden(names...)
}

// IdentityService 账号与会话业务接口
type IdentityService interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AccountResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	Logout(ctx context.Context, caller *Caller) error
	// Authenticate 将 bearer 凭证解析为调用方；只读，不修改会话
	Authenticate(ctx context.Context, credential string) (*Caller, error)
	Me(ctx context.Context, caller *Caller) (*dto.AccountResponse, error)
	// EnsureAdmin 确保配置的管理员账号存在，已存在时不做修改
	EnsureAdmin(ctx context.Context, seed config.SeedAdmin) error
	// SweepExpiredSessions 删除超过有效期的会话，返回删除数量
	SweepExpiredSessions(ctx context.Context) (int64, error)
}

type identityService struct {
	cfg    *config.Config
	repo   *repository.Repository
	jwtMgr *jwt.Manager
	logger *zap.Logger
	now    func() time.Time
}

// NewIdentityService 创建 IdentityService 实例
func NewIdentityService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	logger *zap.Logger,
) IdentityService {
	return &identityService{
		cfg:    cfg,
		repo:   repo,
		jwtMgr: jwtMgr,
		logger: logger,
		now:    time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ────────────────────── Register ──────────────────────

func (s *identityService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AccountResponse, error) {
	account, err := s.createAccount(ctx, req.Name, req.Email, req.Password, model.RoleStudent)
	if err != nil {
		return nil, err
	}
	return toAccountResponse(account), nil
}

func (s *identityService) createAccount(ctx context.Context, name, email, password string, role model.Role) (*model.Account, error) {
	email = normalizeEmail(email)

	if _, err := s.repo.Account.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailExists
	} else if !isNotFound(err) {
		s.logger.Error("查询账号失败", zap.Error(err))
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return nil, err
	}

	account := &model.Account{
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := s.repo.Account.Create(ctx, account); err != nil {
		if isDuplicate(err) {
			return nil, ErrEmailExists
		}
		s.logger.Error("创建账号失败", zap.Error(err))
		return nil, err
	}
	return account, nil
}

// ────────────────────── Login / Logout ──────────────────────

func (s *identityService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	// 1. 查询账号
	account, err := s.repo.Account.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if isNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("查询账号失败", zap.Error(err))
		return nil, err
	}

	// 2. 验证密码 (bcrypt)
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	// 3. 新会话替换旧会话
	now := s.now()
	session := &model.Session{
		Token:     uuid.NewString(),
		AccountID: account.AccountID,
		CreatedAt: now,
	}
	if err := s.repo.Session.Replace(ctx, session); err != nil {
		s.logger.Error("写入会话失败", zap.Int64("account_id", account.AccountID), zap.Error(err))
		return nil, err
	}

	// 4. 签发凭证
	token, err := s.jwtMgr.Issue(session.Token, account.AccountID, string(account.Role), now)
	if err != nil {
		s.logger.Error("签发凭证失败", zap.Error(err))
		return nil, err
	}

	return &dto.TokenResponse{
		Token:     token,
		ExpiresAt: formatTime(now.Add(s.jwtMgr.TTL())),
		User:      *toAccountResponse(account),
	}, nil
}

func (s *identityService) Logout(ctx context.Context, caller *Caller) error {
	if caller == nil || caller.SessionToken == "" {
		return ErrMissingCredential
	}
	if err := s.repo.Session.DeleteByToken(ctx, caller.SessionToken); err != nil {
		s.logger.Error("删除会话失败", zap.Int64("account_id", caller.AccountID), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── Authenticate ──────────────────────

func (s *identityService) Authenticate(ctx context.Context, credential string) (*Caller, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return nil, ErrMissingCredential
	}

	claims, err := s.jwtMgr.ParseToken(credential)
	if err != nil {
		return nil, ErrInvalidSession
	}

	session, err := s.repo.Session.GetByToken(ctx, claims.ID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrInvalidSession
		}
		s.logger.Error("查询会话失败", zap.Error(err))
		return nil, err
	}
	if session.AccountID != claims.AccountID || session.Expired(s.now(), s.cfg.Auth.SessionTTL) {
		return nil, ErrInvalidSession
	}

	// 角色以账号表为准，不信任凭证中的 role
	account, err := s.repo.Account.GetByID(ctx, session.AccountID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUnknownAccount
		}
		s.logger.Error("查询账号失败", zap.Error(err))
		return nil, err
	}

	return &Caller{
		AccountID:    account.AccountID,
		Role:         account.Role,
		SessionToken: session.Token,
	}, nil
}

// ────────────────────── Me ──────────────────────

func (s *identityService) Me(ctx context.Context, caller *Caller) (*dto.AccountResponse, error) {
	if caller == nil {
		return nil, ErrMissingCredential
	}
	account, err := s.repo.Account.GetByID(ctx, caller.AccountID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUnknownAccount
		}
		s.logger.Error("查询账号失败", zap.Error(err))
		return nil, err
	}
	return toAccountResponse(account), nil
}

// ────────────────────── 维护 ──────────────────────

func (s *identityService) EnsureAdmin(ctx context.Context, seed config.SeedAdmin) error {
	if seed.Email == "" {
		return nil
	}
	existing, err := s.repo.Account.GetByEmail(ctx, normalizeEmail(seed.Email))
	if err == nil {
		if existing.Role != model.RoleAdmin {
			s.logger.Warn("种子管理员邮箱已被非管理员账号占用", zap.String("email", seed.Email))
		}
		return nil
	}
	if !isNotFound(err) {
		return err
	}

	account, err := s.createAccount(ctx, seed.Name, seed.Email, seed.Password, model.RoleAdmin)
	if err != nil {
		return err
	}
	s.logger.Info("已创建种子管理员", zap.Int64("account_id", account.AccountID))
	return nil
}

func (s *identityService) SweepExpiredSessions(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.cfg.Auth.SessionTTL)
	n, err := s.repo.Session.DeleteCreatedBefore(ctx, cutoff)
	if err != nil {
		s.logger.Error("清理过期会话失败", zap.Error(err))
		return 0, err
	}
	return n, nil
}

// ── 内部辅助方法 ──

func toAccountResponse(a *model.Account) *dto.AccountResponse {
	return &dto.AccountResponse{
		ID:        a.AccountID,
		Name:      a.Name,
		Email:     a.Email,
		Role:      string(a.Role),
		CreatedAt: formatTime(a.CreatedAt),
	}
}
