package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"resume-search-go/internal/constants"
	"resume-search-go/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCache 内存实现的ResultCache测试替身
type fakeCache struct {
	cached      map[string]*types.SearchResult
	lockHolder  string // 非空表示锁已被别人持有
	acquireErr  error
	getCalls    int
	setCalls    int
	releaseKeys []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{cached: make(map[string]*types.SearchResult)}
}

func (f *fakeCache) GetCachedSearchResult(ctx context.Context, queryHash string) (*types.SearchResult, error) {
	f.getCalls++
	if result, ok := f.cached[queryHash]; ok {
		return result, nil
	}
	return nil, errors.New("cache miss")
}

func (f *fakeCache) CacheSearchResult(ctx context.Context, queryHash string, result *types.SearchResult, ttl time.Duration) error {
	f.setCalls++
	f.cached[queryHash] = result
	return nil
}

func (f *fakeCache) AcquireSearchLock(ctx context.Context, queryHash string, expiration time.Duration) (string, error) {
	if f.acquireErr != nil {
		return "", f.acquireErr
	}
	if f.lockHolder != "" {
		return "", nil
	}
	return "lock-token", nil
}

func (f *fakeCache) ReleaseSearchLock(ctx context.Context, queryHash string, lockValue string) (bool, error) {
	f.releaseKeys = append(f.releaseKeys, queryHash)
	return true, nil
}

func newTestSearcher(querier SectionQuerier, cache ResultCache) *Searcher {
	engine := NewEngine(querier)
	if cache == nil {
		return NewSearcher(engine)
	}
	return NewSearcher(engine, WithResultCache(cache, time.Minute, time.Second*30))
}

func TestNormalizeQuery_Defaults(t *testing.T) {
	query, err := NormalizeQuery(types.SearchQuery{QueryText: "  golang 工程师  "})
	require.NoError(t, err)

	assert.Equal(t, "golang 工程师", query.QueryText)
	assert.Equal(t, constants.DefaultNamespace, query.Namespace)
	assert.Equal(t, DefaultWeights(), query.Weights)
	assert.Equal(t, constants.DefaultSectionTopK, query.TopK)
	assert.Equal(t, constants.DefaultResultLimit, query.ResultLimit)
}

func TestNormalizeQuery_EmptyText(t *testing.T) {
	_, err := NormalizeQuery(types.SearchQuery{QueryText: "   "})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestNormalizeQuery_NegativeWeight(t *testing.T) {
	_, err := NormalizeQuery(types.SearchQuery{
		QueryText: "golang",
		Weights:   types.SectionWeights{Skills: -10},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestNormalizeQuery_ClampsResultLimit(t *testing.T) {
	query, err := NormalizeQuery(types.SearchQuery{
		QueryText:   "golang",
		ResultLimit: constants.MaxResultLimit + 100,
	})
	require.NoError(t, err)
	assert.Equal(t, constants.MaxResultLimit, query.ResultLimit)
}

func TestNormalizeQuery_KeepsExplicitWeights(t *testing.T) {
	weights := types.SectionWeights{Skills: 70, Experience: 30}
	query, err := NormalizeQuery(types.SearchQuery{QueryText: "golang", Weights: weights})
	require.NoError(t, err)
	assert.Equal(t, weights, query.Weights)
}

func TestQueryHash_Deterministic(t *testing.T) {
	query, err := NormalizeQuery(types.SearchQuery{QueryText: "golang"})
	require.NoError(t, err)

	hash1 := QueryHash(query)
	hash2 := QueryHash(query)
	assert.Equal(t, hash1, hash2)
	assert.Len(t, hash1, 64)

	other, err := NormalizeQuery(types.SearchQuery{QueryText: "java"})
	require.NoError(t, err)
	assert.NotEqual(t, hash1, QueryHash(other))
}

func TestSearch_WithoutCache(t *testing.T) {
	querier := &fakeQuerier{
		hits: map[string][]types.SectionHit{
			constants.SectionSkills: {{CandidateEmail: "a@example.com", Score: 0.9}},
		},
	}
	searcher := newTestSearcher(querier, nil)

	result, err := searcher.Search(context.Background(), types.SearchQuery{QueryText: "golang"})
	require.NoError(t, err)
	require.Len(t, result.Candidates, 1)
	assert.Equal(t, "a@example.com", result.Candidates[0].CandidateEmail)
}

func TestSearch_CacheHitSkipsRetrieval(t *testing.T) {
	cache := newFakeCache()
	cachedResult := &types.SearchResult{
		Candidates: []types.RankedCandidate{{CandidateEmail: "cached@example.com"}},
	}

	query, err := NormalizeQuery(types.SearchQuery{QueryText: "golang"})
	require.NoError(t, err)
	cache.cached[QueryHash(query)] = cachedResult

	querier := &fakeQuerier{}
	searcher := newTestSearcher(querier, cache)

	result, err := searcher.Search(context.Background(), types.SearchQuery{QueryText: "golang"})
	require.NoError(t, err)
	assert.Equal(t, "cached@example.com", result.Candidates[0].CandidateEmail)
	// 缓存命中时不触发任何片段查询
	assert.Empty(t, querier.queried)
}

func TestSearch_LockContention(t *testing.T) {
	cache := newFakeCache()
	cache.lockHolder = "other-request"

	querier := &fakeQuerier{}
	searcher := newTestSearcher(querier, cache)

	_, err := searcher.Search(context.Background(), types.SearchQuery{QueryText: "golang"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSearchInProgress)
	assert.Empty(t, querier.queried)
}

func TestSearch_LockErrorDegradesToDirectCompute(t *testing.T) {
	cache := newFakeCache()
	cache.acquireErr = errors.New("redis down")

	querier := &fakeQuerier{
		hits: map[string][]types.SectionHit{
			constants.SectionSkills: {{CandidateEmail: "a@example.com", Score: 0.9}},
		},
	}
	searcher := newTestSearcher(querier, cache)

	// 锁服务异常不阻断搜索
	result, err := searcher.Search(context.Background(), types.SearchQuery{QueryText: "golang"})
	require.NoError(t, err)
	require.Len(t, result.Candidates, 1)
}

func TestSearch_StoresResultAndReleasesLock(t *testing.T) {
	cache := newFakeCache()
	querier := &fakeQuerier{
		hits: map[string][]types.SectionHit{
			constants.SectionSkills: {{CandidateEmail: "a@example.com", Score: 0.9}},
		},
	}
	searcher := newTestSearcher(querier, cache)

	_, err := searcher.Search(context.Background(), types.SearchQuery{QueryText: "golang"})
	require.NoError(t, err)

	assert.Equal(t, 1, cache.setCalls)
	assert.Len(t, cache.releaseKeys, 1)
}

func TestSearch_PartialResultNotCached(t *testing.T) {
	cache := newFakeCache()
	querier := &fakeQuerier{
		hits: map[string][]types.SectionHit{
			constants.SectionSkills: {{CandidateEmail: "a@example.com", Score: 0.9}},
		},
		errs: map[string]error{
			constants.SectionEducation: errors.New("qdrant unavailable"),
		},
	}
	searcher := newTestSearcher(querier, cache)

	result, err := searcher.Search(context.Background(), types.SearchQuery{QueryText: "golang"})
	require.NoError(t, err)
	require.NotEmpty(t, result.UnavailableSections)

	// 降级结果不写缓存，锁照常释放
	assert.Equal(t, 0, cache.setCalls)
	assert.Len(t, cache.releaseKeys, 1)
}

func TestSearch_PartialFailureSurfacesUnavailable(t *testing.T) {
	querier := &fakeQuerier{
		hits: map[string][]types.SectionHit{
			constants.SectionSkills: {{CandidateEmail: "a@example.com", Score: 0.9}},
		},
		errs: map[string]error{
			constants.SectionProjects: errors.New("timeout"),
		},
	}
	searcher := newTestSearcher(querier, nil)

	result, err := searcher.Search(context.Background(), types.SearchQuery{QueryText: "golang"})
	require.NoError(t, err)
	assert.Equal(t, []string{constants.SectionProjects}, result.UnavailableSections)
}
