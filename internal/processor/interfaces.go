package processor

import (
	"context"
	"io"
	"time"

	"resume-search-go/internal/storage"
	"resume-search-go/internal/types"
)

//
// PDF解析相关接口
//

// PDFTextExtractor PDF文本提取器接口
type PDFTextExtractor interface {
	// ExtractTextFromReader 从io.Reader提取文本和元数据
	ExtractTextFromReader(ctx context.Context, reader io.Reader, uri string, extraMeta map[string]interface{}) (string, map[string]interface{}, error)

	// ExtractTextFromBytes 从字节数组提取文本和元数据
	ExtractTextFromBytes(ctx context.Context, data []byte, uri string, extraMeta map[string]interface{}) (string, map[string]interface{}, error)
}

//
// 画像抽取相关接口
//

// ProfileAnalyzer 候选人画像抽取接口
type ProfileAnalyzer interface {
	// ExtractProfile 从简历全文抽取结构化画像与词法指标
	ExtractProfile(ctx context.Context, resumeText string) (*types.ResumeAnalysis, error)
}

//
// 存储相关接口
//

// VectorIndexer 向量索引写入接口
type VectorIndexer interface {
	// UpsertSectionRecords 批量覆盖写入片段记录，返回点ID
	UpsertSectionRecords(ctx context.Context, records []types.SectionRecord) ([]string, error)
}

// ProfileStore 候选人画像持久化接口
type ProfileStore interface {
	// SaveCandidateProfile 持久化画像及索引结果
	SaveCandidateProfile(ctx context.Context, profile *types.CandidateProfile, metrics types.BasicMetrics, namespace string, indexedSections []string) error
}

// OriginalFileStore 原始简历文件存储接口
type OriginalFileStore interface {
	// UploadOriginalFileStreaming 流式上传并计算MD5，返回对象键和MD5
	UploadOriginalFileStreaming(ctx context.Context, uploadUUID, fileExt string, reader io.Reader, fileSize int64) (string, string, error)
}

// FileDeduper 文件去重接口
type FileDeduper interface {
	// CheckAndSetFileMD5 检查MD5是否已记录，不存在时原子写入
	CheckAndSetFileMD5(ctx context.Context, md5Hex string, uploadUUID string) (bool, string, error)

	// RemoveFileMD5 回滚去重记录
	RemoveFileMD5(ctx context.Context, md5Hex string) error
}

// EventPublisher 索引完成事件发布接口
type EventPublisher interface {
	PublishCandidateIndexed(ctx context.Context, event *storage.CandidateIndexedEvent) error
}

// UploadResult 一次上传处理的结果
type UploadResult struct {
	UploadUUID         string                `json:"upload_uuid"`
	Duplicate          bool                  `json:"duplicate"`
	ExistingUploadUUID string                `json:"existing_upload_uuid,omitempty"`
	ObjectKey          string                `json:"object_key,omitempty"`
	Analysis           *types.ResumeAnalysis `json:"analysis,omitempty"`
	Upsert             *types.UpsertResult   `json:"upsert,omitempty"`
	ProcessedAt        time.Time             `json:"processed_at"`
}
