package storage

import "time"

// CandidateIndexedEvent 候选人片段写入向量索引后发布的事件
type CandidateIndexedEvent struct {
	CandidateEmail  string    `json:"candidate_email"`            // 候选人邮箱
	Namespace       string    `json:"namespace"`                  // 片段所在命名空间
	IndexedSections []string  `json:"indexed_sections"`           // 实际写入的片段名
	SkippedSections []string  `json:"skipped_sections,omitempty"` // 因内容为空被跳过的片段名
	PointIDs        []string  `json:"point_ids,omitempty"`        // 写入的向量点ID
	UploadUUID      string    `json:"upload_uuid,omitempty"`      // 来源上传UUID，直接索引时为空
	IndexedAt       time.Time `json:"indexed_at"`                 // 索引完成时间
}
