package handler

import (
	"coursehub/config"
	"coursehub/internal/service"
	"coursehub/pkg/storage"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth        *AuthHandler
	Catalog     *CatalogHandler
	Enrollment  *EnrollmentHandler
	Certificate *CertificateHandler
	Export      *ExportHandler
	Blob        *BlobHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(cfg *config.Config, svc *service.Service, blobs storage.BlobStore) *Handler {
	return &Handler{
		Auth:        NewAuthHandler(svc.Identity),
		Catalog:     NewCatalogHandler(svc.Catalog, cfg.Storage.MaxUpload),
		Enrollment:  NewEnrollmentHandler(svc.Enrollment),
		Certificate: NewCertificateHandler(svc.Certificate),
		Export:      NewExportHandler(svc.Export),
		Blob:        NewBlobHandler(blobs),
	}
}
