package service

import (
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "coursehub/pkg/errors"
)

const timeLayout = time.RFC3339

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// logUnexpected 只记录非业务错误，业务错误由调用方返回给客户端
func logUnexpected(logger *zap.Logger, msg string, err error, fields ...zap.Field) {
	if _, ok := apperrors.As(err); ok {
		return
	}
	logger.Error(msg, append(fields, zap.Error(err))...)
}
