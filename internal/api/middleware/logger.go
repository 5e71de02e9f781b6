package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"coursehub/internal/api/handler"
)

// quietPaths 探活请求只在 debug 级别记录
var quietPaths = map[string]struct{}{
	"/health": {},
}

// Logger 结构化请求日志
// route 为路由模板（如 /api/v1/courses/:id），未匹配路由时为空
func Logger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("route", c.FullPath()),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
			zap.Int("bytes", c.Writer.Size()),
			zap.String("request_id", c.GetString(requestIDKey)),
		}
		if q := c.Request.URL.RawQuery; q != "" {
			fields = append(fields, zap.String("query", q))
		}
		if caller := handler.GetCaller(c); caller != nil {
			fields = append(fields, zap.Int64("account_id", caller.AccountID))
		}
		if errs := c.Errors.ByType(gin.ErrorTypePrivate); len(errs) > 0 {
			fields = append(fields, zap.String("errors", errs.String()))
		}

		level := zapcore.InfoLevel
		msg := "请求完成"
		switch {
		case status >= 500:
			level, msg = zapcore.ErrorLevel, "请求处理失败"
		case status >= 400:
			level, msg = zapcore.WarnLevel, "客户端错误"
		default:
			if _, quiet := quietPaths[path]; quiet {
				level = zapcore.DebugLevel
			}
		}

		if ce := logger.Check(level, msg); ce != nil {
			ce.Write(fields...)
		}
	}
}
