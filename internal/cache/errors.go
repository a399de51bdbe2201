package cache

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound 表示缓存不存在。
	ErrNotFound = errors.New("cache entry not found")
	// ErrSecurityViolation 匹配所有因路径穿越被拒绝的写入。
	ErrSecurityViolation = errors.New("cache path security violation")
	// ErrFilesystem 匹配所有底层 I/O 失败。
	ErrFilesystem = errors.New("cache filesystem failure")
)

// SecurityViolationError 在 Save 收到包含 ".." 段的路径时返回，调用方不应重试。
type SecurityViolationError struct {
	Path string
}

func (e *SecurityViolationError) Error() string {
	return fmt.Sprintf("requested path %s is invalid", e.Path)
}

func (e *SecurityViolationError) Is(target error) bool {
	return target == ErrSecurityViolation
}

// FilesystemError 包装写入或递归删除时无法恢复的 I/O 错误。
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("cache %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error {
	return e.Err
}

func (e *FilesystemError) Is(target error) bool {
	return target == ErrFilesystem
}
