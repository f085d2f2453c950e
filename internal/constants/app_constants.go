package constants

import "time"

// 候选人画像的四个可检索片段
const (
	SectionSkills     = "skills"
	SectionEducation  = "education"
	SectionProjects   = "projects"
	SectionExperience = "experience"
)

// Sections 按固定顺序列出全部片段，合成与检索共用
var Sections = []string{SectionSkills, SectionEducation, SectionProjects, SectionExperience}

// 各片段的默认检索权重（百分比）
const (
	DefaultWeightSkills     = 40
	DefaultWeightEducation  = 20
	DefaultWeightProjects   = 20
	DefaultWeightExperience = 20
)

const (
	// DefaultNamespace 未指定行业时使用的向量命名空间
	DefaultNamespace = "resume"

	// DefaultSectionTopK 每个片段检索返回的最大命中数
	DefaultSectionTopK = 10
	// DefaultResultLimit 聚合后默认返回的候选人数量
	DefaultResultLimit = 10
	// MaxResultLimit 聚合结果数量上限
	MaxResultLimit = 50

	// SectionQueryTimeout 单片段检索超时
	SectionQueryTimeout = 5 * time.Second

	// SearchCacheTTL 搜索结果缓存有效期
	SearchCacheTTL = 10 * time.Minute
	// SearchLockTTL 搜索防击穿锁有效期
	SearchLockTTL = 30 * time.Second

	// MaxUploadSize 上传简历文件大小上限
	MaxUploadSize = 10 << 20
)
