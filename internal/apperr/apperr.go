// Package apperr 定义了核心流程的错误分类（校验、未找到、持久化）。
// 网关降级不属于错误：分类与向量化失败在网关内部被吸收为默认值，
// 永远不会以 error 的形式传播到这里。
package apperr

import (
	"errors"
	"fmt"
)

// ErrNotFound 表示按 ID 查找或删除的记录不存在，对应 404。
var ErrNotFound = errors.New("record not found")

// ValidationError 表示请求在持久化之前就被拒绝（文件类型不合法、
// 文件过大、提取文本过短等），对应 400，不应重试。
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// Validationf 构造一个带格式化消息的 ValidationError。
func Validationf(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// IsValidation 判断错误链上是否存在 ValidationError。
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// PersistenceError 表示存储读写失败，对应 5xx，由顶层统一记录日志；
// 核心流程不做自动重试。
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Persistence 将底层存储错误包装为 PersistenceError。
func Persistence(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}

// IsPersistence 判断错误链上是否存在 PersistenceError。
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
