package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Kind 错误类别，决定对外的 HTTP 状态码
type Kind int

const (
	KindInternal   Kind = iota
	KindAuth            // 缺少/无效凭证、账号不存在
	KindForbidden       // 角色不满足
	KindNotFound        // 聚合 ID 不存在
	KindValidation      // 载荷非法、集合不匹配
	KindState           // 状态机迁移非法、前置条件不满足
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindState:
		return "state"
	default:
		return "internal"
	}
}

// Error 业务错误：稳定的类别 + 错误码 + 可读信息
type Error struct {
	Kind    Kind
	Code    int
	Message string
	Detail  string
	Roles   []string // 仅 Forbidden 使用：所需角色
}

// New 创建业务错误，通常用于声明包级哨兵错误
func New(kind Kind, code int, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Detail)
	}
	return e.Message
}

// Is 以错误码判等，带 Detail 的副本仍能匹配哨兵
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// WithDetail 返回附带细节说明的副本
func (e *Error) WithDetail(format string, args ...interface{}) *Error {
	cp := *e
	cp.Detail = fmt.Sprintf(format, args...)
	return &cp
}

// ── 通用错误 ──

var (
	ErrInvalidRequest = New(KindValidation, 10001, "参数校验失败")
	ErrUnauthorized   = New(KindAuth, 10002, "未认证")
	ErrForbidden      = New(KindForbidden, 10003, "无权限访问")
)

// Forbidden 构造带所需角色的 Forbidden 错误
func Forbidden(roles ...string) *Error {
	cp := *ErrForbidden
	cp.Roles = append([]string(nil), roles...)
	if len(roles) > 0 {
		cp.Detail = "需要角色 " + strings.Join(roles, "/")
	}
	return &cp
}

// KindOf 提取错误类别，非业务错误一律视为 internal
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// As 提取业务错误
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
