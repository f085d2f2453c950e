package processor

import (
	"errors"
	"fmt"
)

// 摄入链路的基础错误类型
var (
	ErrExtractionFailed   = errors.New("提取简历文本失败")
	ErrProfileParseFailed = errors.New("解析候选人画像失败")
	ErrIndexWriteFailed   = errors.New("写入向量索引失败")
	ErrMissingEmail       = errors.New("候选人邮箱缺失")
	ErrStoreFileFailed    = errors.New("存储原始简历失败")
	ErrPersistFailed      = errors.New("持久化候选人画像失败")
)

// IngestError 包含详细上下文的摄入错误
type IngestError struct {
	UploadUUID string
	Op         string
	BaseErr    error
	Detail     string
}

func (e *IngestError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (操作:%s, UUID:%s): %s", e.BaseErr, e.Op, e.UploadUUID, e.Detail)
	}
	return fmt.Sprintf("%s (操作:%s, UUID:%s)", e.BaseErr, e.Op, e.UploadUUID)
}

func (e *IngestError) Unwrap() error {
	return e.BaseErr
}

// Is 实现 errors.Is 接口以支持错误比较
func (e *IngestError) Is(target error) bool {
	return errors.Is(e.BaseErr, target)
}

// 错误构造函数
func NewExtractionError(uuid, detail string) error {
	return &IngestError{
		UploadUUID: uuid,
		Op:         "extract",
		BaseErr:    ErrExtractionFailed,
		Detail:     detail,
	}
}

func NewProfileParseError(uuid, detail string) error {
	return &IngestError{
		UploadUUID: uuid,
		Op:         "parse_profile",
		BaseErr:    ErrProfileParseFailed,
		Detail:     detail,
	}
}

func NewIndexWriteError(uuid, detail string) error {
	return &IngestError{
		UploadUUID: uuid,
		Op:         "index",
		BaseErr:    ErrIndexWriteFailed,
		Detail:     detail,
	}
}

func NewMissingEmailError(uuid, detail string) error {
	return &IngestError{
		UploadUUID: uuid,
		Op:         "index",
		BaseErr:    ErrMissingEmail,
		Detail:     detail,
	}
}

func NewStoreFileError(uuid, detail string) error {
	return &IngestError{
		UploadUUID: uuid,
		Op:         "store_file",
		BaseErr:    ErrStoreFileFailed,
		Detail:     detail,
	}
}

func NewPersistError(uuid, detail string) error {
	return &IngestError{
		UploadUUID: uuid,
		Op:         "persist",
		BaseErr:    ErrPersistFailed,
		Detail:     detail,
	}
}
