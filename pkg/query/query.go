// Package query 提供列表接口共用的过滤、排序与分页原语。
// 所有函数都是纯函数：不修改入参切片，过滤与排序在分页之前组合。
package query

import (
	"sort"
	"strings"

	apperrors "coursehub/pkg/errors"
)

// Page 分页信封
type Page[T any] struct {
	Content    []T `json:"content"`
	Page       int `json:"page"`
	Size       int `json:"size"`
	TotalItems int `json:"totalItems"`
	TotalPages int `json:"totalPages"`
}

// ErrInvalidPage 页码或每页数量非法
var ErrInvalidPage = apperrors.New(apperrors.KindValidation, 10006, "分页参数无效")

// Paginate 截取第 page 页（从 0 开始），超出末尾时返回空切片而不是错误
func Paginate[T any](items []T, page, size int) (Page[T], error) {
	if page < 0 || size <= 0 {
		return Page[T]{}, ErrInvalidPage.WithDetail("page=%d size=%d", page, size)
	}

	total := len(items)
	totalPages := total / size
	if total%size != 0 {
		totalPages++
	}

	content := []T{}
	// page < totalPages 保证 page*size < total，乘法不会溢出
	if page < totalPages {
		start := page * size
		end := total
		if size < total-start {
			end = start + size
		}
		content = append(content, items[start:end]...)
	}
	if totalPages < 1 {
		totalPages = 1
	}

	return Page[T]{
		Content:    content,
		Page:       page,
		Size:       size,
		TotalItems: total,
		TotalPages: totalPages,
	}, nil
}

// Predicate 过滤条件
type Predicate[T any] func(T) bool

// Filter 保留满足全部条件的元素；nil 条件被忽略
func Filter[T any](items []T, preds ...Predicate[T]) []T {
	out := make([]T, 0, len(items))
next:
	for _, it := range items {
		for _, p := range preds {
			if p != nil && !p(it) {
				continue next
			}
		}
		out = append(out, it)
	}
	return out
}

// Direction 排序方向
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection 解析排序方向，空串取默认值，大小写不敏感
func ParseDirection(s string, def Direction) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return def, nil
	case "asc":
		return Asc, nil
	case "desc":
		return Desc, nil
	default:
		return "", apperrors.ErrInvalidRequest.WithDetail("direction 仅支持 asc/desc")
	}
}

// SortBy 按 less 稳定排序后返回新切片，Desc 时反转比较
func SortBy[T any](items []T, less func(a, b T) bool, dir Direction) []T {
	out := append([]T(nil), items...)
	sort.SliceStable(out, func(i, j int) bool {
		if dir == Desc {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})
	return out
}

// ContainsFold 大小写不敏感的子串匹配，needle 为空视为匹配
func ContainsFold(haystack, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
