package search

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"resume-search-go/internal/constants"
	"resume-search-go/internal/logger"
	"resume-search-go/internal/types"
)

// ResultCache 搜索结果缓存与防击穿锁依赖，由Redis适配器实现
type ResultCache interface {
	GetCachedSearchResult(ctx context.Context, queryHash string) (*types.SearchResult, error)
	CacheSearchResult(ctx context.Context, queryHash string, result *types.SearchResult, ttl time.Duration) error
	AcquireSearchLock(ctx context.Context, queryHash string, expiration time.Duration) (string, error)
	ReleaseSearchLock(ctx context.Context, queryHash string, lockValue string) (bool, error)
}

// Searcher 搜索服务，编排缓存、检索与聚合
type Searcher struct {
	engine   *Engine
	cache    ResultCache // 可为nil，此时不做缓存
	cacheTTL time.Duration
	lockTTL  time.Duration
}

// SearcherOption 定义Searcher构造函数选项
type SearcherOption func(*Searcher)

// WithResultCache 启用搜索结果缓存
func WithResultCache(cache ResultCache, cacheTTL, lockTTL time.Duration) SearcherOption {
	return func(s *Searcher) {
		s.cache = cache
		if cacheTTL > 0 {
			s.cacheTTL = cacheTTL
		}
		if lockTTL > 0 {
			s.lockTTL = lockTTL
		}
	}
}

// NewSearcher 创建搜索服务
func NewSearcher(engine *Engine, opts ...SearcherOption) *Searcher {
	s := &Searcher{
		engine:   engine,
		cacheTTL: constants.SearchCacheTTL,
		lockTTL:  constants.SearchLockTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NormalizeQuery 校验并补全查询参数
func NormalizeQuery(query types.SearchQuery) (types.SearchQuery, error) {
	query.QueryText = strings.TrimSpace(query.QueryText)
	if query.QueryText == "" {
		return query, NewValidationError("查询文本不能为空")
	}

	if query.Namespace == "" {
		query.Namespace = constants.DefaultNamespace
	}

	w := query.Weights
	if w.Skills < 0 || w.Education < 0 || w.Projects < 0 || w.Experience < 0 {
		return query, NewValidationError("片段权重不能为负数")
	}
	if w.Skills == 0 && w.Education == 0 && w.Projects == 0 && w.Experience == 0 {
		query.Weights = DefaultWeights()
	}

	if query.TopK <= 0 {
		query.TopK = constants.DefaultSectionTopK
	}
	if query.ResultLimit <= 0 {
		query.ResultLimit = constants.DefaultResultLimit
	}
	if query.ResultLimit > constants.MaxResultLimit {
		query.ResultLimit = constants.MaxResultLimit
	}

	return query, nil
}

// QueryHash 计算规范化查询的哈希，作为缓存与锁的key
func QueryHash(query types.SearchQuery) string {
	canonical := fmt.Sprintf("%s|%s|%.6f|%.6f|%.6f|%.6f|%d|%d",
		query.QueryText, query.Namespace,
		query.Weights.Skills, query.Weights.Education,
		query.Weights.Projects, query.Weights.Experience,
		query.TopK, query.ResultLimit)
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

// Search 执行加权多片段搜索。
// 缓存命中直接返回；未命中时持锁计算并回填缓存，
// 锁被其他请求持有时返回ErrSearchInProgress。
func (s *Searcher) Search(ctx context.Context, query types.SearchQuery) (*types.SearchResult, error) {
	query, err := NormalizeQuery(query)
	if err != nil {
		return nil, err
	}

	var queryHash string
	var lockValue string

	if s.cache != nil {
		queryHash = QueryHash(query)

		if cached, cacheErr := s.cache.GetCachedSearchResult(ctx, queryHash); cacheErr == nil && cached != nil {
			logger.Ctx(ctx).Debug().Str("query_hash", queryHash).Msg("搜索结果缓存命中")
			return cached, nil
		}

		lockValue, err = s.cache.AcquireSearchLock(ctx, queryHash, s.lockTTL)
		if err != nil {
			// 锁服务异常时退化为直接计算
			logger.Ctx(ctx).Warn().Err(err).Msg("获取搜索锁失败，跳过防击穿保护")
		} else if lockValue == "" {
			return nil, ErrSearchInProgress
		}

		if lockValue != "" {
			defer func() {
				if _, relErr := s.cache.ReleaseSearchLock(context.WithoutCancel(ctx), queryHash, lockValue); relErr != nil {
					logger.Ctx(ctx).Warn().Err(relErr).Msg("释放搜索锁失败")
				}
			}()
		}
	}

	hitsBySection, unavailable, err := s.engine.Retrieve(ctx, query)
	if err != nil {
		return nil, err
	}

	result := &types.SearchResult{
		Candidates:          Aggregate(hitsBySection, query.Weights, query.ResultLimit),
		UnavailableSections: unavailable,
	}

	// 部分片段不可用的降级结果不进缓存，后端恢复后立即重新计算
	if s.cache != nil && queryHash != "" && len(unavailable) == 0 {
		if cacheErr := s.cache.CacheSearchResult(ctx, queryHash, result, s.cacheTTL); cacheErr != nil {
			logger.Ctx(ctx).Warn().Err(cacheErr).Msg("写入搜索结果缓存失败")
		}
	}

	return result, nil
}
