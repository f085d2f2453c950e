package types

// SkillSet 按类别划分的技能清单
type SkillSet struct {
	Technical []string `json:"technical,omitempty"`
	Soft      []string `json:"soft,omitempty"`
	Languages []string `json:"languages,omitempty"`
	Tools     []string `json:"tools,omitempty"`
	Other     []string `json:"other,omitempty"`
}

// Education 一段教育经历
type Education struct {
	Degree      string `json:"degree,omitempty"`
	Institution string `json:"institution,omitempty"`
	Year        string `json:"year,omitempty"`
	GPA         string `json:"gpa,omitempty"`
}

// Experience 一段工作经历
type Experience struct {
	JobTitle     string   `json:"job_title,omitempty"`
	Company      string   `json:"company,omitempty"`
	Duration     string   `json:"duration,omitempty"`
	Description  []string `json:"description,omitempty"`
	Achievements []string `json:"achievements,omitempty"`
}

// Project 一个项目经历
type Project struct {
	Title        string   `json:"title,omitempty"`
	Description  string   `json:"description,omitempty"`
	Technologies []string `json:"technologies,omitempty"`
	URL          string   `json:"url,omitempty"`
}

// Certification 一项证书
type Certification struct {
	Title    string `json:"title,omitempty"`
	Provider string `json:"provider,omitempty"`
	Date     string `json:"date,omitempty"`
	Link     string `json:"link,omitempty"`
}

// Award 一项获奖记录
type Award struct {
	Title        string `json:"title,omitempty"`
	Organization string `json:"organization,omitempty"`
	Year         string `json:"year,omitempty"`
	Description  string `json:"description,omitempty"`
}

// CandidateProfile LLM 从简历全文抽取出的结构化画像
type CandidateProfile struct {
	Name           string          `json:"name,omitempty"`
	Email          string          `json:"email,omitempty"`
	Phone          string          `json:"phone,omitempty"`
	LinkedIn       string          `json:"linkedin,omitempty"`
	GitHub         string          `json:"github,omitempty"`
	Location       string          `json:"location,omitempty"`
	Industry       string          `json:"industry,omitempty"`
	Skills         SkillSet        `json:"skills,omitempty"`
	Education      []Education     `json:"education,omitempty"`
	Experience     []Experience    `json:"experience,omitempty"`
	Certifications []Certification `json:"certifications,omitempty"`
	Projects       []Project       `json:"projects,omitempty"`
	Languages      []string        `json:"languages,omitempty"`
	Awards         []Award         `json:"awards,omitempty"`
	Volunteer      []string        `json:"volunteer,omitempty"`
	Interests      []string        `json:"interests,omitempty"`
	Keywords       []string        `json:"keywords,omitempty"`
}

// BasicMetrics 不依赖LLM的词法统计信号
type BasicMetrics struct {
	WordCount      int  `json:"word_count"`
	CharacterCount int  `json:"character_count"`
	HasEmail       bool `json:"has_email"`
	HasPhone       bool `json:"has_phone"`
}

// ResumeAnalysis 画像抽取的完整结果
type ResumeAnalysis struct {
	Profile CandidateProfile `json:"profile"`
	Metrics BasicMetrics     `json:"metrics"`
}

// SectionRecord 一条待写入向量库的片段记录
// RecordID 形如 "{email}_{section}"，同一候选人同一片段覆盖写入
type SectionRecord struct {
	RecordID       string
	CandidateEmail string
	Section        string
	Text           string
	Namespace      string
}

// UpsertResult 一次索引写入的结果摘要
type UpsertResult struct {
	CandidateEmail  string   `json:"candidate_email"`
	Namespace       string   `json:"namespace"`
	IndexedSections []string `json:"indexed_sections"`
	SkippedSections []string `json:"skipped_sections"`
}

// SectionWeights 各片段的检索权重（百分比）
type SectionWeights struct {
	Skills     float64 `json:"skills"`
	Education  float64 `json:"education"`
	Projects   float64 `json:"projects"`
	Experience float64 `json:"experience"`
}

// SearchQuery 一次加权检索请求
type SearchQuery struct {
	QueryText   string         `json:"query_text"`
	Namespace   string         `json:"namespace,omitempty"`
	Weights     SectionWeights `json:"weights"`
	TopK        int            `json:"top_k,omitempty"`
	ResultLimit int            `json:"result_limit,omitempty"`
}

// SectionHit 单个片段检索的一条命中
type SectionHit struct {
	CandidateEmail string  `json:"candidate_email"`
	Section        string  `json:"section"`
	Score          float64 `json:"score"`
	Text           string  `json:"text"`
}

// SectionEvidence 候选人在某片段上的最佳命中证据
type SectionEvidence struct {
	Score        float64 `json:"score"`
	Contribution float64 `json:"contribution"`
	Text         string  `json:"text,omitempty"`
}

// RankedCandidate 聚合后的候选人排名条目
type RankedCandidate struct {
	CandidateEmail string                     `json:"candidate_email"`
	TotalScore     float64                    `json:"total_score"`
	Sections       map[string]SectionEvidence `json:"sections"`
}

// SearchResult 加权检索的完整响应
type SearchResult struct {
	Candidates          []RankedCandidate `json:"candidates"`
	UnavailableSections []string          `json:"unavailable_sections,omitempty"`
}
