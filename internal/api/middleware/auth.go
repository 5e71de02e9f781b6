package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"coursehub/internal/api/handler"
	"coursehub/internal/model"
	"coursehub/internal/service"
	"coursehub/pkg/response"
)

// Auth bearer 认证中间件
// 从 Authorization: Bearer <token> 中提取凭证，交由身份服务解析为调用方
func Auth(identity service.IdentityService) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, err := identity.Authenticate(c.Request.Context(), bearerToken(c))
		if err != nil {
			response.FromError(c, err)
			c.Abort()
			return
		}

		handler.SetCaller(c, caller)
		c.Next()
	}
}

// RoleAuth 角色权限中间件
// 检查当前调用方是否具有指定角色之一
func RoleAuth(allowedRoles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := service.RequireRole(handler.GetCaller(c), allowedRoles...); err != nil {
			response.FromError(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}

// bearerToken 提取凭证；格式不符时返回空串，由身份服务报告缺少凭证
func bearerToken(c *gin.Context) string {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
