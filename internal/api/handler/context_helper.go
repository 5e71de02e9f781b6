package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"coursehub/internal/service"
	"coursehub/pkg/response"
)

// CallerKey 认证中间件写入调用方时使用的上下文键
const CallerKey = "caller"

// SetCaller 将已认证的调用方注入上下文
func SetCaller(c *gin.Context, caller *service.Caller) {
	c.Set(CallerKey, caller)
}

// GetCaller 读取调用方，未认证时返回 nil
func GetCaller(c *gin.Context) *service.Caller {
	v, exists := c.Get(CallerKey)
	if !exists {
		return nil
	}
	caller, _ := v.(*service.Caller)
	return caller
}

// MustGetCaller 从 Gin 上下文中安全提取调用方。
// 如果认证中间件未正确注入，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetCaller(c *gin.Context) (*service.Caller, bool) {
	caller := GetCaller(c)
	if caller == nil {
		response.Unauthorized(c, 10002, "未认证")
		return nil, false
	}
	return caller, true
}

// paramID 解析路径中的正整数 ID，非法时写入 400
func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, 10001, name+" 必须为正整数")
		return 0, false
	}
	return id, true
}

// bindFailed 写入参数绑定失败响应；请求体超出 BodyLimit 时返回 413
func bindFailed(c *gin.Context, err error) {
	if isBodyTooLarge(err) {
		response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
		return
	}
	response.BadRequest(c, 10001, "参数校验失败")
}

func isBodyTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	return errors.As(err, &tooLarge)
}
