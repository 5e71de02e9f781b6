package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"coursehub/pkg/response"
)

// multipartOverhead 为 multipart 边界与字段头预留的字节数
const multipartOverhead = 64 << 10

// BodyLimit 全局请求体大小限制中间件
// maxBytes: 普通请求体上限（如 1<<20 = 1MB）
// uploadBytes: multipart 上传的文件上限，<=0 时与 maxBytes 相同
func BodyLimit(maxBytes, uploadBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := maxBytes
		if c.ContentType() == "multipart/form-data" && uploadBytes > 0 {
			limit = uploadBytes + multipartOverhead
		}
		if c.Request.Body != nil && limit > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}

		c.Next()

		// handler 只记录了错误而未写响应时补写 413
		if c.IsAborted() || c.Writer.Written() {
			return
		}
		var tooLarge *http.MaxBytesError
		for _, err := range c.Errors {
			if errors.As(err.Err, &tooLarge) {
				response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
				return
			}
		}
	}
}
