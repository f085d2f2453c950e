package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"resume-search-go/internal/logger"
	"resume-search-go/internal/types"

	"github.com/cloudwego/eino/components/model"
	einoschema "github.com/cloudwego/eino/schema"
)

// LLMProfileExtractor 使用LLM从简历全文中抽取结构化候选人画像
type LLMProfileExtractor struct {
	llmModel model.ToolCallingChatModel

	// 抽取超时
	extractionTimeout time.Duration
	// 瞬时网络错误的最大重试次数，默认0即单次调用
	maxRetries int
	// 首次重试等待时间，之后指数退避
	retryWait time.Duration
}

// ProfileExtractorOption 配置 LLMProfileExtractor
type ProfileExtractorOption func(*LLMProfileExtractor)

// WithExtractionTimeout 设置单次抽取的超时
func WithExtractionTimeout(timeout time.Duration) ProfileExtractorOption {
	return func(e *LLMProfileExtractor) {
		e.extractionTimeout = timeout
	}
}

// WithMaxRetries 设置瞬时错误的最大重试次数。
// 默认不重试，失败直接返回给调用方
func WithMaxRetries(maxRetries int) ProfileExtractorOption {
	return func(e *LLMProfileExtractor) {
		e.maxRetries = maxRetries
	}
}

// WithRetryWait 设置首次重试的等待时间
func WithRetryWait(wait time.Duration) ProfileExtractorOption {
	return func(e *LLMProfileExtractor) {
		e.retryWait = wait
	}
}

// NewLLMProfileExtractor 创建新的画像抽取器
func NewLLMProfileExtractor(llmModel model.ToolCallingChatModel, options ...ProfileExtractorOption) *LLMProfileExtractor {
	extractor := &LLMProfileExtractor{
		llmModel:          llmModel,
		extractionTimeout: 60 * time.Second,
		maxRetries:        0,
		retryWait:         2 * time.Second,
	}

	for _, opt := range options {
		opt(extractor)
	}

	return extractor
}

// ParseError 表示LLM输出无法解析为合法画像JSON。
// Raw 保留模型的完整原始输出，便于排查
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("画像JSON解析失败: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// 词法统计所用的正则，与画像抽取相互独立
var (
	emailRegex = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	phoneRegex = regexp.MustCompile(`(\+?\d{1,4}[-.\s]?)?\(?\d{1,3}\)?[-.\s]?\d{1,4}[-.\s]?\d{1,9}`)
)

// industryValues 画像中 industry 字段允许的枚举值
var industryValues = []string{
	"STEM & Technical",
	"Business, Finance & Administration",
	"Creative, Media & Communication",
	"Education, Social & Legal Services",
	"Skilled Trades, Labor & Services",
	"Others",
}

// ExtractProfile 对简历全文执行画像抽取。
// 词法统计不依赖LLM，总是先行计算；LLM未给出邮箱/电话时用正则捕获值回填
func (e *LLMProfileExtractor) ExtractProfile(ctx context.Context, resumeText string) (*types.ResumeAnalysis, error) {
	metrics := ComputeBasicMetrics(resumeText)

	systemPrompt := buildProfilePrompt()

	response, err := e.callLLM(ctx, systemPrompt, resumeText)
	if err != nil {
		return nil, fmt.Errorf("LLM调用失败: %w", err)
	}

	profile, err := parseProfileResponse(response)
	if err != nil {
		return nil, err
	}

	// 回填词法捕获的联系方式
	if profile.Email == "" {
		profile.Email = emailRegex.FindString(resumeText)
	}
	if profile.Phone == "" && metrics.HasPhone {
		profile.Phone = strings.TrimSpace(phoneRegex.FindString(resumeText))
	}

	return &types.ResumeAnalysis{
		Profile: *profile,
		Metrics: metrics,
	}, nil
}

// ComputeBasicMetrics 计算简历文本的词法统计信号
func ComputeBasicMetrics(text string) types.BasicMetrics {
	return types.BasicMetrics{
		WordCount:      len(strings.Fields(text)),
		CharacterCount: len([]rune(text)),
		HasEmail:       emailRegex.MatchString(text),
		HasPhone:       phoneRegex.MatchString(text),
	}
}

// buildProfilePrompt 生成画像抽取的系统提示词
func buildProfilePrompt() string {
	return fmt.Sprintf(`你是一个专业的简历解析专家，负责从简历原始文本中提取结构化信息。

核心任务：
1. 提取候选人的基本信息：姓名、邮箱、电话、LinkedIn、GitHub、所在地。
2. 判断候选人所属行业(industry)，必须从以下枚举值中选择一个：
   %s
3. 提取技能(skills)并按类别归类：technical、soft、languages、tools、other。
4. 提取教育经历(education)、工作经历(experience)、项目经历(projects)、证书(certifications)、获奖(awards)等列表。
5. 根据行业和简历内容生成关键词(keywords)。

重要指令：
- 信息缺失时，对应字段使用空字符串 "" 或空数组 []，请勿编造信息。
- 严格保持字段类型：interests 必须是字符串数组；certifications 必须是对象数组。
- 只输出JSON对象本身，不要包含任何解释性文字或Markdown代码块标记。

JSON输出格式规范：
{
  "name": "string",
  "email": "string",
  "phone": "string",
  "linkedin": "string",
  "github": "string",
  "location": "string",
  "industry": "enum",
  "skills": {
    "technical": ["string"],
    "soft": ["string"],
    "languages": ["string"],
    "tools": ["string"],
    "other": ["string"]
  },
  "education": [
    { "degree": "string", "institution": "string", "year": "string", "gpa": "string" }
  ],
  "experience": [
    { "job_title": "string", "company": "string", "duration": "string", "description": ["string"], "achievements": ["string"] }
  ],
  "certifications": [
    { "title": "string", "provider": "string", "date": "string", "link": "string" }
  ],
  "projects": [
    { "title": "string", "description": "string", "technologies": ["string"], "url": "string" }
  ],
  "languages": ["string"],
  "awards": [
    { "title": "string", "organization": "string", "year": "string", "description": "string" }
  ],
  "volunteer": ["string"],
  "interests": ["string"],
  "keywords": ["string"]
}

请严格按照上述JSON格式规范输出，确保JSON的完整性和可解析性。
接下来，你将收到一份简历文本，请对其进行分析。`, strings.Join(industryValues, "、"))
}

// callLLM 调用LLM处理提示词。
// 默认只调用一次；通过 WithMaxRetries 开启后对瞬时网络错误做指数退避重试
func (e *LLMProfileExtractor) callLLM(ctx context.Context, systemContent string, userContent string) (string, error) {
	messages := []*einoschema.Message{
		{Role: einoschema.System, Content: systemContent},
		{Role: einoschema.User, Content: userContent},
	}

	retryDelay := e.retryWait

	var response *einoschema.Message
	var err error

	for retry := 0; retry <= e.maxRetries; retry++ {
		if retry > 0 {
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("上下文已取消: %w", ctx.Err())
			case <-time.After(retryDelay):
				retryDelay *= 2
				logger.Ctx(ctx).Warn().Int("retry", retry).Msg("重试LLM画像抽取调用")
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, e.extractionTimeout)
		response, err = e.llmModel.Generate(callCtx, messages)
		cancel()

		if err == nil {
			break
		}

		if !isRetryableError(err) || retry >= e.maxRetries {
			return "", fmt.Errorf("LLM Generate failed: %w", err)
		}
	}

	return response.Content, nil
}

// isRetryableError 判断错误是否应该重试
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	errStr := err.Error()
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "EOF") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host")
}

// 去除LLM输出首尾的Markdown代码块围栏
var (
	leadingJSONFence = regexp.MustCompile("(?i)^```json\\s*")
	leadingFence     = regexp.MustCompile("(?i)^```\\s*")
	trailingFence    = regexp.MustCompile("```$")
)

// StripCodeFences 去除首部的 json 代码块围栏和尾部围栏并修剪首尾空白。
// 文本中间的围栏不受影响
func StripCodeFences(s string) string {
	cleaned := leadingJSONFence.ReplaceAllString(s, "")
	cleaned = leadingFence.ReplaceAllString(cleaned, "")
	cleaned = trailingFence.ReplaceAllString(cleaned, "")
	return strings.TrimSpace(cleaned)
}

// parseProfileResponse 解析LLM响应为候选人画像。
// 解析失败时返回 *ParseError，其中保留原始响应文本
func parseProfileResponse(response string) (*types.CandidateProfile, error) {
	cleaned := StripCodeFences(response)

	var profile types.CandidateProfile
	if err := json.Unmarshal([]byte(cleaned), &profile); err != nil {
		return nil, &ParseError{Raw: response, Err: err}
	}

	return &profile, nil
}
