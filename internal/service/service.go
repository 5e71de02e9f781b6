package service

import (
	"go.uber.org/zap"

	"coursehub/config"
	"coursehub/internal/repository"
	"coursehub/pkg/jwt"
	"coursehub/pkg/storage"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Identity    IdentityService
	Catalog     CatalogService
	Enrollment  EnrollmentService
	Certificate CertificateService
	Export      ExportService
}

// NewService 创建 Service 聚合；各模块共享同一个聚合锁注册表
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	blobs storage.BlobStore,
	logger *zap.Logger,
) *Service {
	locks := NewKeyedLocks()
	return &Service{
		Identity:    NewIdentityService(cfg, repo, jwtMgr, logger),
		Catalog:     NewCatalogService(repo, locks, blobs, logger),
		Enrollment:  NewEnrollmentService(cfg, repo, locks, logger),
		Certificate: NewCertificateService(repo, locks, logger),
		Export:      NewExportService(repo, logger),
	}
}
