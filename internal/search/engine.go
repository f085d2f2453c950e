package search

import (
	"context"
	"sync"
	"time"

	"resume-search-go/internal/constants"
	"resume-search-go/internal/logger"
	"resume-search-go/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var searchTracer = otel.Tracer("resume-search-go/search")

// SectionQuerier 片段检索依赖，由向量索引客户端实现
type SectionQuerier interface {
	QuerySection(ctx context.Context, queryText string, section string, namespace string, topK int) ([]types.SectionHit, error)
}

// Engine 并发片段检索引擎
type Engine struct {
	querier        SectionQuerier
	topK           int
	sectionTimeout time.Duration
}

// EngineOption 定义Engine构造函数选项
type EngineOption func(*Engine)

// WithSectionTopK 设置每个片段的返回数量
func WithSectionTopK(topK int) EngineOption {
	return func(e *Engine) {
		if topK > 0 {
			e.topK = topK
		}
	}
}

// WithSectionTimeout 设置单个片段查询的超时
func WithSectionTimeout(timeout time.Duration) EngineOption {
	return func(e *Engine) {
		if timeout > 0 {
			e.sectionTimeout = timeout
		}
	}
}

// NewEngine 创建检索引擎
func NewEngine(querier SectionQuerier, opts ...EngineOption) *Engine {
	e := &Engine{
		querier:        querier,
		topK:           constants.DefaultSectionTopK,
		sectionTimeout: constants.SectionQueryTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// sectionResult 单个片段查询的结果槽
type sectionResult struct {
	section string
	hits    []types.SectionHit
	err     error
}

// Retrieve 并发查询全部片段。
// 单个片段失败或超时只记入unavailable，全部失败才返回错误。
// 调用方取消会传播到所有分支。
func (e *Engine) Retrieve(ctx context.Context, query types.SearchQuery) (map[string][]types.SectionHit, []string, error) {
	ctx, span := searchTracer.Start(ctx, "Engine.Retrieve")
	defer span.End()

	topK := query.TopK
	if topK <= 0 {
		topK = e.topK
	}
	namespace := query.Namespace
	if namespace == "" {
		namespace = constants.DefaultNamespace
	}

	span.SetAttributes(
		attribute.String("search.namespace", namespace),
		attribute.Int("search.top_k", topK),
		attribute.Int("search.sections", len(constants.Sections)),
	)

	// 固定槽位接收结果，goroutine间无共享可变状态
	results := make([]sectionResult, len(constants.Sections))
	var wg sync.WaitGroup

	for i, section := range constants.Sections {
		wg.Add(1)
		go func(slot int, section string) {
			defer wg.Done()

			sectionCtx, cancel := context.WithTimeout(ctx, e.sectionTimeout)
			defer cancel()

			hits, err := e.querier.QuerySection(sectionCtx, query.QueryText, section, namespace, topK)
			results[slot] = sectionResult{section: section, hits: hits, err: err}
		}(i, section)
	}
	wg.Wait()

	hitsBySection := make(map[string][]types.SectionHit, len(constants.Sections))
	var unavailable []string
	var lastErr error

	for _, res := range results {
		if res.err != nil {
			logger.Ctx(ctx).Warn().
				Err(res.err).
				Str("section", res.section).
				Msg("片段检索失败")
			unavailable = append(unavailable, res.section)
			lastErr = res.err
			continue
		}
		hitsBySection[res.section] = res.hits
	}

	if len(unavailable) == len(constants.Sections) {
		err := NewRetrievalError(unavailable, ErrAllSectionsFailed, lastErr.Error())
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, unavailable, err
	}

	span.SetAttributes(attribute.Int("search.unavailable_sections", len(unavailable)))
	span.SetStatus(codes.Ok, "")
	return hitsBySection, unavailable, nil
}
