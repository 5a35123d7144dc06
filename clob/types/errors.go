package types

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoSigner 未配置签名者（L0 客户端）
	ErrNoSigner = errors.New("clob: no signer configured")
	// ErrNoCreds 未安装 API 凭证
	ErrNoCreds = errors.New("clob: api credentials not installed")
)

// ValidationError 本地参数校验失败，不会发起网络请求
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// SigningError 签名失败
type SigningError struct {
	Op  string
	Err error
}

func (e *SigningError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("signing failed: %s", e.Op)
	}
	return fmt.Sprintf("signing failed: %s: %v", e.Op, e.Err)
}

func (e *SigningError) Unwrap() error { return e.Err }

// AuthError 服务端拒绝认证请求，Body 原样保留
type AuthError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s rejected: HTTP %d: %s", e.Op, e.StatusCode, e.Body)
}

// StaleAuthError 时间戳超出允许的偏差
type StaleAuthError struct {
	Timestamp int64
	Now       int64
	Tolerance time.Duration
}

func (e *StaleAuthError) Error() string {
	return fmt.Sprintf("stale auth timestamp %d (now %d, tolerance %s)", e.Timestamp, e.Now, e.Tolerance)
}

// IsValidation 是否为参数校验错误
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsStale 是否为时间戳过期错误
func IsStale(err error) bool {
	var s *StaleAuthError
	return errors.As(err, &s)
}
