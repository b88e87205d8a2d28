// Package errs 定义对外暴露的错误分类，每类错误带有稳定的错误码，
// 通过 GraphQL 响应中的 extensions.code 返回给调用方。
package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

// Code 稳定的错误码
type Code string

const (
	CodeUnauthenticated Code = "UNAUTHENTICATED" // 需要身份但没有有效身份
	CodeForbidden       Code = "FORBIDDEN"       // 身份有效但无权限
	CodeNotFound        Code = "NOT_FOUND"
	CodeInvalidToken    Code = "INVALID_TOKEN" // 签名或过期校验失败
	CodeBadInput        Code = "BAD_USER_INPUT"
	CodeConflict        Code = "CONFLICT"
	CodeInternal        Code = "INTERNAL"
)

// Error 带错误码的业务错误
type Error struct {
	Code    Code
	Message string
	Err     error // 底层错误，不会返回给调用方
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Extensions 实现 gqlerrors.ExtendedError
func (e *Error) Extensions() map[string]interface{} {
	return map[string]interface{}{"code": string(e.Code)}
}

func newf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Authentication 没有有效的调用者身份
func Authentication(format string, args ...interface{}) *Error {
	return newf(CodeUnauthenticated, format, args...)
}

// Authorization 调用者不是资源所有者
func Authorization(format string, args ...interface{}) *Error {
	return newf(CodeForbidden, format, args...)
}

func NotFound(format string, args ...interface{}) *Error {
	return newf(CodeNotFound, format, args...)
}

func Validation(format string, args ...interface{}) *Error {
	return newf(CodeBadInput, format, args...)
}

func Conflict(format string, args ...interface{}) *Error {
	return newf(CodeConflict, format, args...)
}

// Verification token 校验失败，保留 jwt 库的原始错误
func Verification(err error) *Error {
	return &Error{Code: CodeInvalidToken, Message: "invalid token: " + err.Error(), Err: err}
}

// Internal 存储等内部错误，对外只返回通用信息
func Internal(err error) *Error {
	return &Error{Code: CodeInternal, Message: "internal server error", Err: err}
}

// CodeOf 返回错误码，非本包错误视为 INTERNAL
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// Is 判断 err 是否属于 code 类错误
func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}
