package parser

import (
	"context"
	"errors"
	"testing"
	"time"

	"resume-search-go/internal/agent"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleProfileJSON = `{
  "name": "张三",
  "email": "zhangsan@example.com",
  "phone": "+86 138-0000-0000",
  "industry": "STEM & Technical",
  "skills": {
    "technical": ["Go", "MySQL"],
    "tools": ["Docker"]
  },
  "education": [
    {"degree": "本科", "institution": "某大学", "gpa": "3.6"}
  ],
  "experience": [
    {"job_title": "后端工程师", "company": "某公司", "duration": "2021-2024"}
  ],
  "keywords": ["golang", "backend"]
}`

func TestExtractProfile_Success(t *testing.T) {
	mockClient := agent.NewMockChatClient(sampleProfileJSON, nil)
	extractor := NewLLMProfileExtractor(mockClient)

	resumeText := "张三 后端工程师 zhangsan@example.com +86 138-0000-0000 熟悉Go与MySQL"
	analysis, err := extractor.ExtractProfile(context.Background(), resumeText)
	require.NoError(t, err)
	require.NotNil(t, analysis)

	assert.Equal(t, "张三", analysis.Profile.Name)
	assert.Equal(t, "zhangsan@example.com", analysis.Profile.Email)
	assert.Equal(t, "STEM & Technical", analysis.Profile.Industry)
	assert.Equal(t, []string{"Go", "MySQL"}, analysis.Profile.Skills.Technical)

	// 词法统计独立于LLM输出
	assert.True(t, analysis.Metrics.HasEmail)
	assert.True(t, analysis.Metrics.HasPhone)
	assert.Greater(t, analysis.Metrics.WordCount, 0)
}

func TestExtractProfile_StripsFences(t *testing.T) {
	fenced := "```json\n" + sampleProfileJSON + "\n```"
	mockClient := agent.NewMockChatClient(fenced, nil)
	extractor := NewLLMProfileExtractor(mockClient)

	analysis, err := extractor.ExtractProfile(context.Background(), "简历全文")
	require.NoError(t, err)
	assert.Equal(t, "张三", analysis.Profile.Name)
}

func TestExtractProfile_BackfillsEmailFromText(t *testing.T) {
	// LLM没有抽到邮箱，但文本里有
	mockClient := agent.NewMockChatClient(`{"name": "李四"}`, nil)
	extractor := NewLLMProfileExtractor(mockClient)

	analysis, err := extractor.ExtractProfile(context.Background(), "联系方式 lisi@example.org")
	require.NoError(t, err)
	assert.Equal(t, "lisi@example.org", analysis.Profile.Email)
}

func TestExtractProfile_ParseErrorKeepsRaw(t *testing.T) {
	raw := "抱歉，我无法解析这份简历。"
	mockClient := agent.NewMockChatClient(raw, nil)
	extractor := NewLLMProfileExtractor(mockClient)

	_, err := extractor.ExtractProfile(context.Background(), "简历全文")
	require.Error(t, err)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, raw, parseErr.Raw)
}

func TestExtractProfile_DefaultSingleAttempt(t *testing.T) {
	mockClient := agent.NewMockChatClientSequential([]agent.MockResponse{
		{Error: errors.New("connection reset, timeout")},
		{Content: sampleProfileJSON},
	})
	extractor := NewLLMProfileExtractor(mockClient)

	// 默认不重试，瞬时错误也必须直接返回给调用方
	_, err := extractor.ExtractProfile(context.Background(), "简历全文")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")

	// 只发起了一次Generate调用（system + user 两条消息）
	assert.Len(t, mockClient.GetReceivedMessages(), 2)
}

func TestExtractProfile_RetriesTransientErrorWhenEnabled(t *testing.T) {
	mockClient := agent.NewMockChatClientSequential([]agent.MockResponse{
		{Error: errors.New("connection reset by peer")},
		{Content: sampleProfileJSON},
	})
	extractor := NewLLMProfileExtractor(mockClient,
		WithMaxRetries(2),
		WithRetryWait(time.Millisecond),
	)

	analysis, err := extractor.ExtractProfile(context.Background(), "简历全文")
	require.NoError(t, err)
	assert.Equal(t, "张三", analysis.Profile.Name)
}

func TestExtractProfile_NonRetryableErrorFailsFast(t *testing.T) {
	mockClient := agent.NewMockChatClientSequential([]agent.MockResponse{
		{Error: errors.New("invalid api key")},
		{Content: sampleProfileJSON},
	})
	extractor := NewLLMProfileExtractor(mockClient,
		WithMaxRetries(2),
		WithRetryWait(time.Millisecond),
	)

	_, err := extractor.ExtractProfile(context.Background(), "简历全文")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid api key")
}

func TestComputeBasicMetrics(t *testing.T) {
	metrics := ComputeBasicMetrics("hello world test@example.com")
	assert.Equal(t, 3, metrics.WordCount)
	assert.True(t, metrics.HasEmail)

	empty := ComputeBasicMetrics("")
	assert.Equal(t, 0, empty.WordCount)
	assert.Equal(t, 0, empty.CharacterCount)
	assert.False(t, empty.HasEmail)
	assert.False(t, empty.HasPhone)
}

func TestStripCodeFences(t *testing.T) {
	cases := []struct {
		name     string
		input    string
		expected string
	}{
		{"json围栏", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"普通围栏", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"无围栏", `{"a":1}`, `{"a":1}`},
		{"大写JSON", "```JSON\n{\"a\":1}\n```", `{"a":1}`},
		{"仅首尾空白", "  {\"a\":1}  ", `{"a":1}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, StripCodeFences(tc.input))
		})
	}
}
