package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"coursehub/pkg/response"
	"coursehub/pkg/storage"
)

// BlobHandler 读取对象存储中的缩略图
type BlobHandler struct {
	blobs storage.BlobStore
}

// NewBlobHandler 创建 BlobHandler
func NewBlobHandler(blobs storage.BlobStore) *BlobHandler {
	return &BlobHandler{blobs: blobs}
}

// Get 按 key 返回对象内容
// GET /blobs/*key
func (h *BlobHandler) Get(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	if key == "" {
		response.NotFound(c, 10007, "对象不存在")
		return
	}

	rc, err := h.blobs.Get(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			response.NotFound(c, 10007, "对象不存在")
			return
		}
		_ = c.Error(err)
		response.InternalError(c)
		return
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		_ = c.Error(err)
		response.InternalError(c)
		return
	}
	c.Header("Cache-Control", "public, max-age=300")
	c.Data(http.StatusOK, http.DetectContentType(data), data)
}
