package processor

import (
	"context"
	"errors"
	"io"
	"testing"

	"resume-search-go/internal/constants"
	"resume-search-go/internal/storage"
	"resume-search-go/internal/storage/models"
	"resume-search-go/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//
// 测试替身
//

type stubExtractor struct {
	text string
	err  error
}

func (s *stubExtractor) ExtractTextFromReader(ctx context.Context, reader io.Reader, uri string, extraMeta map[string]interface{}) (string, map[string]interface{}, error) {
	return s.text, nil, s.err
}

func (s *stubExtractor) ExtractTextFromBytes(ctx context.Context, data []byte, uri string, extraMeta map[string]interface{}) (string, map[string]interface{}, error) {
	return s.text, nil, s.err
}

type stubAnalyzer struct {
	analysis *types.ResumeAnalysis
	err      error
}

func (s *stubAnalyzer) ExtractProfile(ctx context.Context, resumeText string) (*types.ResumeAnalysis, error) {
	return s.analysis, s.err
}

type stubIndexer struct {
	records  []types.SectionRecord
	pointIDs []string
	err      error
}

func (s *stubIndexer) UpsertSectionRecords(ctx context.Context, records []types.SectionRecord) ([]string, error) {
	s.records = records
	return s.pointIDs, s.err
}

type stubProfileStore struct {
	saved     bool
	namespace string
	sections  []string
	err       error
}

func (s *stubProfileStore) SaveCandidateProfile(ctx context.Context, profile *types.CandidateProfile, metrics types.BasicMetrics, namespace string, indexedSections []string) error {
	if s.err != nil {
		return s.err
	}
	s.saved = true
	s.namespace = namespace
	s.sections = indexedSections
	return nil
}

type stubDeduper struct {
	exists       bool
	existingUUID string
	checkErr     error
	removed      []string
}

func (s *stubDeduper) CheckAndSetFileMD5(ctx context.Context, md5Hex string, uploadUUID string) (bool, string, error) {
	return s.exists, s.existingUUID, s.checkErr
}

func (s *stubDeduper) RemoveFileMD5(ctx context.Context, md5Hex string) error {
	s.removed = append(s.removed, md5Hex)
	return nil
}

type stubFileStore struct {
	objectKey string
	err       error
	uploads   int
}

func (s *stubFileStore) UploadOriginalFileStreaming(ctx context.Context, uploadUUID, fileExt string, reader io.Reader, fileSize int64) (string, string, error) {
	s.uploads++
	return s.objectKey, "md5", s.err
}

type stubRecorder struct {
	created  []*models.UploadRecord
	statuses map[string]string
	bound    map[string]string
}

func newStubRecorder() *stubRecorder {
	return &stubRecorder{statuses: make(map[string]string), bound: make(map[string]string)}
}

func (s *stubRecorder) CreateUploadRecord(ctx context.Context, record *models.UploadRecord) error {
	s.created = append(s.created, record)
	return nil
}

func (s *stubRecorder) UpdateUploadStatus(ctx context.Context, uploadUUID string, status string) error {
	s.statuses[uploadUUID] = status
	return nil
}

func (s *stubRecorder) BindUploadToCandidate(ctx context.Context, uploadUUID string, candidateEmail string) error {
	s.bound[uploadUUID] = candidateEmail
	return nil
}

type stubPublisher struct {
	events []*storage.CandidateIndexedEvent
	err    error
}

func (s *stubPublisher) PublishCandidateIndexed(ctx context.Context, event *storage.CandidateIndexedEvent) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

func testProfile() *types.CandidateProfile {
	return &types.CandidateProfile{
		Name:     "张三",
		Email:    "zhangsan@example.com",
		Industry: "STEM & Technical",
		Skills:   types.SkillSet{Technical: []string{"Go", "Redis"}},
		Experience: []types.Experience{
			{JobTitle: "后端工程师", Company: "某公司"},
		},
	}
}

func testAnalysis() *types.ResumeAnalysis {
	return &types.ResumeAnalysis{
		Profile: *testProfile(),
		Metrics: types.BasicMetrics{WordCount: 100, HasEmail: true},
	}
}

//
// 测试用例
//

func TestNamespaceForIndustry(t *testing.T) {
	assert.Equal(t, "STEM & Technical", NamespaceForIndustry("STEM & Technical"))
	assert.Equal(t, constants.DefaultNamespace, NamespaceForIndustry(""))
	assert.Equal(t, constants.DefaultNamespace, NamespaceForIndustry("   "))
}

func TestSectionRecordsFor_IdempotentIDs(t *testing.T) {
	profile := testProfile()
	records, skipped := SectionRecordsFor(profile, "resume")

	// 只有skills和experience有内容
	require.Len(t, records, 2)
	assert.ElementsMatch(t, []string{constants.SectionEducation, constants.SectionProjects}, skipped)

	for _, record := range records {
		assert.Equal(t, "zhangsan@example.com_"+record.Section, record.RecordID)
		assert.Equal(t, "resume", record.Namespace)
		assert.NotEmpty(t, record.Text)
	}

	// 重复调用产生完全相同的记录ID
	again, _ := SectionRecordsFor(profile, "resume")
	require.Len(t, again, 2)
	assert.Equal(t, records[0].RecordID, again[0].RecordID)
	assert.Equal(t, records[1].RecordID, again[1].RecordID)
}

func TestIndexCandidate_MissingEmail(t *testing.T) {
	service, err := NewService(&stubExtractor{}, &stubAnalyzer{}, &stubIndexer{})
	require.NoError(t, err)

	_, err = service.IndexCandidate(context.Background(), &types.CandidateProfile{Name: "无邮箱"}, types.BasicMetrics{}, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingEmail)
}

func TestIndexCandidate_Success(t *testing.T) {
	indexer := &stubIndexer{pointIDs: []string{"p1", "p2"}}
	profiles := &stubProfileStore{}
	publisher := &stubPublisher{}

	service, err := NewService(&stubExtractor{}, &stubAnalyzer{}, indexer,
		WithProfileStore(profiles),
		WithEventPublisher(publisher),
	)
	require.NoError(t, err)

	result, err := service.IndexCandidate(context.Background(), testProfile(), types.BasicMetrics{WordCount: 100}, "upload-1")
	require.NoError(t, err)

	assert.Equal(t, "zhangsan@example.com", result.CandidateEmail)
	// 行业非空时命名空间取画像行业
	assert.Equal(t, "STEM & Technical", result.Namespace)
	assert.ElementsMatch(t, []string{constants.SectionSkills, constants.SectionExperience}, result.IndexedSections)
	assert.ElementsMatch(t, []string{constants.SectionEducation, constants.SectionProjects}, result.SkippedSections)

	assert.True(t, profiles.saved)
	assert.Equal(t, "STEM & Technical", profiles.namespace)

	require.Len(t, publisher.events, 1)
	assert.Equal(t, []string{"p1", "p2"}, publisher.events[0].PointIDs)
	assert.Equal(t, "upload-1", publisher.events[0].UploadUUID)
}

func TestIndexCandidate_IndexWriteFailure(t *testing.T) {
	indexer := &stubIndexer{err: errors.New("qdrant写入超时")}
	service, err := NewService(&stubExtractor{}, &stubAnalyzer{}, indexer)
	require.NoError(t, err)

	_, err = service.IndexCandidate(context.Background(), testProfile(), types.BasicMetrics{}, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIndexWriteFailed)
}

func TestIndexCandidate_PersistFailureIsFatal(t *testing.T) {
	profiles := &stubProfileStore{err: errors.New("mysql down")}
	service, err := NewService(&stubExtractor{}, &stubAnalyzer{}, &stubIndexer{},
		WithProfileStore(profiles),
	)
	require.NoError(t, err)

	_, err = service.IndexCandidate(context.Background(), testProfile(), types.BasicMetrics{}, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPersistFailed)
}

func TestIndexCandidate_EventFailureIsNonFatal(t *testing.T) {
	publisher := &stubPublisher{err: errors.New("rabbitmq down")}
	service, err := NewService(&stubExtractor{}, &stubAnalyzer{}, &stubIndexer{},
		WithEventPublisher(publisher),
	)
	require.NoError(t, err)

	result, err := service.IndexCandidate(context.Background(), testProfile(), types.BasicMetrics{}, "")
	require.NoError(t, err)
	assert.NotNil(t, result)
}

func TestAnalyze_EmptyTextFails(t *testing.T) {
	service, err := NewService(&stubExtractor{text: "   "}, &stubAnalyzer{}, &stubIndexer{})
	require.NoError(t, err)

	_, err = service.Analyze(context.Background(), []byte("pdf"), "resume.pdf")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExtractionFailed)
}

func TestAnalyze_ProfileParseFailure(t *testing.T) {
	analyzer := &stubAnalyzer{err: errors.New("LLM输出不是JSON")}
	service, err := NewService(&stubExtractor{text: "简历全文"}, analyzer, &stubIndexer{})
	require.NoError(t, err)

	_, err = service.Analyze(context.Background(), []byte("pdf"), "resume.pdf")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProfileParseFailed)
}

func TestUpload_FullPipeline(t *testing.T) {
	analyzer := &stubAnalyzer{analysis: testAnalysis()}
	files := &stubFileStore{objectKey: "resume/uuid/original.pdf"}
	recorder := newStubRecorder()

	service, err := NewService(&stubExtractor{text: "简历全文"}, analyzer, &stubIndexer{},
		WithOriginalFileStore(files),
		WithUploadRecorder(recorder),
	)
	require.NoError(t, err)

	result, err := service.Upload(context.Background(), "resume.pdf", []byte("%PDF-1.4"))
	require.NoError(t, err)

	assert.False(t, result.Duplicate)
	assert.NotEmpty(t, result.UploadUUID)
	assert.Equal(t, "resume/uuid/original.pdf", result.ObjectKey)
	require.NotNil(t, result.Upsert)
	assert.Equal(t, "zhangsan@example.com", result.Upsert.CandidateEmail)

	// 上传记录创建后最终被推进到INDEXED并关联候选人
	require.Len(t, recorder.created, 1)
	assert.Equal(t, models.UploadStatusPending, recorder.created[0].Status)
	assert.Equal(t, models.UploadStatusIndexed, recorder.statuses[result.UploadUUID])
	assert.Equal(t, "zhangsan@example.com", recorder.bound[result.UploadUUID])
}

func TestUpload_DuplicateShortCircuits(t *testing.T) {
	analyzer := &stubAnalyzer{analysis: testAnalysis()}
	dedupe := &stubDeduper{exists: true, existingUUID: "earlier-uuid"}
	files := &stubFileStore{}

	service, err := NewService(&stubExtractor{text: "简历全文"}, analyzer, &stubIndexer{},
		WithFileDeduper(dedupe),
		WithOriginalFileStore(files),
	)
	require.NoError(t, err)

	result, err := service.Upload(context.Background(), "resume.pdf", []byte("%PDF-1.4"))
	require.NoError(t, err)

	assert.True(t, result.Duplicate)
	assert.Equal(t, "earlier-uuid", result.ExistingUploadUUID)
	// 重复文件不触发原件上传
	assert.Equal(t, 0, files.uploads)
}

func TestUpload_DedupeErrorDegrades(t *testing.T) {
	analyzer := &stubAnalyzer{analysis: testAnalysis()}
	dedupe := &stubDeduper{checkErr: errors.New("redis down")}

	service, err := NewService(&stubExtractor{text: "简历全文"}, analyzer, &stubIndexer{},
		WithFileDeduper(dedupe),
	)
	require.NoError(t, err)

	// 去重检查失败时继续正常摄取
	result, err := service.Upload(context.Background(), "resume.pdf", []byte("%PDF-1.4"))
	require.NoError(t, err)
	assert.False(t, result.Duplicate)
}

func TestUpload_FailureRollsBackDedupe(t *testing.T) {
	analyzer := &stubAnalyzer{err: errors.New("LLM超时")}
	dedupe := &stubDeduper{}
	recorder := newStubRecorder()

	service, err := NewService(&stubExtractor{text: "简历全文"}, analyzer, &stubIndexer{},
		WithFileDeduper(dedupe),
		WithUploadRecorder(recorder),
	)
	require.NoError(t, err)

	_, err = service.Upload(context.Background(), "resume.pdf", []byte("%PDF-1.4"))
	require.Error(t, err)

	// 去重记录被回滚，同一文件允许重试
	assert.Len(t, dedupe.removed, 1)
	// 上传记录被标记为FAILED
	require.Len(t, recorder.created, 1)
	assert.Equal(t, models.UploadStatusFailed, recorder.statuses[recorder.created[0].UploadUUID])
}

func TestUpload_StoreFileFailure(t *testing.T) {
	analyzer := &stubAnalyzer{analysis: testAnalysis()}
	files := &stubFileStore{err: errors.New("minio down")}

	service, err := NewService(&stubExtractor{text: "简历全文"}, analyzer, &stubIndexer{},
		WithOriginalFileStore(files),
	)
	require.NoError(t, err)

	_, err = service.Upload(context.Background(), "resume.pdf", []byte("%PDF-1.4"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStoreFileFailed)
}

func TestNewService_RequiresCoreDeps(t *testing.T) {
	_, err := NewService(nil, &stubAnalyzer{}, &stubIndexer{})
	assert.Error(t, err)

	_, err = NewService(&stubExtractor{}, nil, &stubIndexer{})
	assert.Error(t, err)

	_, err = NewService(&stubExtractor{}, &stubAnalyzer{}, nil)
	assert.Error(t, err)
}
