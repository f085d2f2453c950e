package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"resume-search-go/internal/types"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbedder 返回固定维度向量的embedding.Embedder测试替身
type fakeEmbedder struct {
	dimension int
	calls     [][]string
	err       error
}

func (f *fakeEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	f.calls = append(f.calls, texts)
	if f.err != nil {
		return nil, f.err
	}
	vectors := make([][]float64, len(texts))
	for i := range texts {
		vec := make([]float64, f.dimension)
		vec[0] = float64(i + 1)
		vectors[i] = vec
	}
	return vectors, nil
}

// newQdrantTestServer 模拟Qdrant REST API的最小实现
func newQdrantTestServer(t *testing.T, requests *[]capturedRequest) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&body)
		}
		*requests = append(*requests, capturedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Body:   body,
		})

		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/collections/candidates":
			fmt.Fprint(w, `{"result":{"config":{"params":{"vectors":{"size":4,"distance":"Cosine"}}}},"status":"ok"}`)
		case r.Method == http.MethodPut && r.URL.Path == "/collections/candidates/points":
			fmt.Fprint(w, `{"result":{"status":"completed"},"status":"ok","time":0.01}`)
		case r.Method == http.MethodPost && r.URL.Path == "/collections/candidates/points/search":
			fmt.Fprint(w, `{
				"result": [
					{"id": "p1", "score": 0.92, "payload": {"candidate_email": "a@example.com", "section": "skills", "text": "Go Redis"}},
					{"id": "p2", "score": 0.81, "payload": {"candidate_email": "b@example.com", "section": "skills", "text": "Java"}}
				],
				"status": "ok",
				"time": 0.02
			}`)
		case r.Method == http.MethodPost && r.URL.Path == "/collections/candidates/points/delete":
			fmt.Fprint(w, `{"status":"ok","time":0.01}`)
		case r.Method == http.MethodPost && r.URL.Path == "/collections/candidates/points/count":
			fmt.Fprint(w, `{"result":{"count":8},"status":"ok","time":0.01}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

type capturedRequest struct {
	Method string
	Path   string
	Query  string
	Body   map[string]interface{}
}

func newTestQdrant(t *testing.T, endpoint string, embedder embedding.Embedder) *Qdrant {
	t.Helper()
	q, err := NewQdrant(&QdrantConfig{
		Endpoint:   endpoint,
		Collection: "candidates",
		Dimension:  4,
	}, embedder)
	require.NoError(t, err)
	return q
}

func TestPointIDForRecord_Deterministic(t *testing.T) {
	id1 := PointIDForRecord("a@example.com_skills")
	id2 := PointIDForRecord("a@example.com_skills")
	other := PointIDForRecord("a@example.com_education")

	assert.Equal(t, id1, id2)
	assert.NotEqual(t, id1, other)
	assert.Len(t, id1, 36)
}

func TestQdrantUpsertSectionRecords(t *testing.T) {
	var requests []capturedRequest
	server := newQdrantTestServer(t, &requests)
	defer server.Close()

	embedder := &fakeEmbedder{dimension: 4}
	q := newTestQdrant(t, server.URL, embedder)

	records := []types.SectionRecord{
		{RecordID: "a@example.com_skills", CandidateEmail: "a@example.com", Section: "skills", Text: "Go Redis", Namespace: "resume"},
		{RecordID: "a@example.com_experience", CandidateEmail: "a@example.com", Section: "experience", Text: "后端工程师", Namespace: "resume"},
	}

	ids, err := q.UpsertSectionRecords(context.Background(), records)
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.Equal(t, PointIDForRecord("a@example.com_skills"), ids[0])

	// 两条文本一次批量向量化
	require.Len(t, embedder.calls, 1)
	assert.Equal(t, []string{"Go Redis", "后端工程师"}, embedder.calls[0])

	// 最后一个请求是带wait=true的点写入，payload包含检索所需字段
	last := requests[len(requests)-1]
	assert.Equal(t, http.MethodPut, last.Method)
	assert.Equal(t, "/collections/candidates/points", last.Path)
	assert.Equal(t, "wait=true", last.Query)

	points := last.Body["points"].([]interface{})
	require.Len(t, points, 2)
	payload := points[0].(map[string]interface{})["payload"].(map[string]interface{})
	assert.Equal(t, "a@example.com_skills", payload["record_id"])
	assert.Equal(t, "a@example.com", payload["candidate_email"])
	assert.Equal(t, "resume", payload["namespace"])
}

func TestQdrantUpsert_EmptyRecords(t *testing.T) {
	var requests []capturedRequest
	server := newQdrantTestServer(t, &requests)
	defer server.Close()

	embedder := &fakeEmbedder{dimension: 4}
	q := newTestQdrant(t, server.URL, embedder)

	ids, err := q.UpsertSectionRecords(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, ids)
	// 不触发向量化
	assert.Empty(t, embedder.calls)
}

func TestQdrantUpsert_DimensionMismatch(t *testing.T) {
	var requests []capturedRequest
	server := newQdrantTestServer(t, &requests)
	defer server.Close()

	q := newTestQdrant(t, server.URL, &fakeEmbedder{dimension: 4})
	// 构造一个返回错误维度的embedder
	q.embedder = &fakeEmbedder{dimension: 8}

	_, err := q.UpsertSectionRecords(context.Background(), []types.SectionRecord{
		{RecordID: "a@example.com_skills", Text: "Go"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "维度")
}

func TestQdrantQuerySection(t *testing.T) {
	var requests []capturedRequest
	server := newQdrantTestServer(t, &requests)
	defer server.Close()

	q := newTestQdrant(t, server.URL, &fakeEmbedder{dimension: 4})

	hits, err := q.QuerySection(context.Background(), "golang 工程师", "skills", "resume", 5)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	assert.Equal(t, "a@example.com", hits[0].CandidateEmail)
	assert.Equal(t, 0.92, hits[0].Score)
	assert.Equal(t, "skills", hits[0].Section)
	assert.Equal(t, "Go Redis", hits[0].Text)

	// 检索请求携带section和namespace的must过滤条件
	last := requests[len(requests)-1]
	assert.Equal(t, "/collections/candidates/points/search", last.Path)
	filter := last.Body["filter"].(map[string]interface{})
	must := filter["must"].([]interface{})
	require.Len(t, must, 2)

	keys := make([]string, 0, 2)
	for _, cond := range must {
		keys = append(keys, cond.(map[string]interface{})["key"].(string))
	}
	assert.ElementsMatch(t, []string{"section", "namespace"}, keys)
	assert.Equal(t, float64(5), last.Body["limit"])
}

func TestQdrantQuerySection_EmbedderFailure(t *testing.T) {
	var requests []capturedRequest
	server := newQdrantTestServer(t, &requests)
	defer server.Close()

	q := newTestQdrant(t, server.URL, &fakeEmbedder{dimension: 4})
	q.embedder = &fakeEmbedder{err: fmt.Errorf("dashscope请求限流")}

	_, err := q.QuerySection(context.Background(), "golang", "skills", "resume", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "查询向量化失败")
}

func TestQdrantDeleteCandidate(t *testing.T) {
	var requests []capturedRequest
	server := newQdrantTestServer(t, &requests)
	defer server.Close()

	q := newTestQdrant(t, server.URL, &fakeEmbedder{dimension: 4})

	err := q.DeleteCandidate(context.Background(), "a@example.com", "resume")
	require.NoError(t, err)

	last := requests[len(requests)-1]
	assert.Equal(t, "/collections/candidates/points/delete", last.Path)
	assert.Equal(t, "wait=true", last.Query)
}

func TestQdrantCountPoints(t *testing.T) {
	var requests []capturedRequest
	server := newQdrantTestServer(t, &requests)
	defer server.Close()

	q := newTestQdrant(t, server.URL, &fakeEmbedder{dimension: 4})

	count, err := q.CountPoints(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(8), count)
}

func TestNewQdrant_CreatesMissingCollection(t *testing.T) {
	var createCalled bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/collections/candidates":
			w.WriteHeader(http.StatusNotFound)
		case r.Method == http.MethodPut && r.URL.Path == "/collections/candidates":
			createCalled = true
			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			vectors := body["vectors"].(map[string]interface{})
			assert.Equal(t, float64(4), vectors["size"])
			assert.Equal(t, "Cosine", vectors["distance"])
			fmt.Fprint(w, `{"result":true,"status":"ok"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	_, err := NewQdrant(&QdrantConfig{
		Endpoint:   server.URL,
		Collection: "candidates",
		Dimension:  4,
	}, &fakeEmbedder{dimension: 4})
	require.NoError(t, err)
	assert.True(t, createCalled)
}
