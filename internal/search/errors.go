package search

import (
	"errors"
	"fmt"
	"strings"
)

// 预定义的检索基础错误
var (
	// ErrAllSectionsFailed 所有片段查询均失败
	ErrAllSectionsFailed = errors.New("所有片段检索均失败")
	// ErrInvalidQuery 查询参数非法
	ErrInvalidQuery = errors.New("查询参数非法")
	// ErrSearchInProgress 相同查询正在由另一请求计算中
	ErrSearchInProgress = errors.New("相同查询正在计算中")
)

// RetrievalError 检索错误，携带失败片段明细
type RetrievalError struct {
	Op             string   // 操作名称
	FailedSections []string // 失败的片段
	BaseErr        error    // 基础错误
	Detail         string   // 详细信息
}

// Error 实现error接口
func (e *RetrievalError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] ", e.Op))
	if len(e.FailedSections) > 0 {
		sb.WriteString(fmt.Sprintf("失败片段 [%s] ", strings.Join(e.FailedSections, ",")))
	}
	if e.BaseErr != nil {
		sb.WriteString(e.BaseErr.Error())
	}
	if e.Detail != "" {
		sb.WriteString(": " + e.Detail)
	}
	return sb.String()
}

// Unwrap 支持errors.Is/As链
func (e *RetrievalError) Unwrap() error {
	return e.BaseErr
}

// Is 支持与基础错误的比较
func (e *RetrievalError) Is(target error) bool {
	return errors.Is(e.BaseErr, target)
}

// NewRetrievalError 创建检索错误
func NewRetrievalError(failedSections []string, baseErr error, detail string) *RetrievalError {
	return &RetrievalError{
		Op:             "retrieve",
		FailedSections: failedSections,
		BaseErr:        baseErr,
		Detail:         detail,
	}
}

// NewValidationError 创建查询校验错误
func NewValidationError(detail string) *RetrievalError {
	return &RetrievalError{
		Op:      "validate",
		BaseErr: ErrInvalidQuery,
		Detail:  detail,
	}
}
