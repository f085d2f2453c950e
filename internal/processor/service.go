package processor

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"resume-search-go/internal/constants"
	"resume-search-go/internal/logger"
	"resume-search-go/internal/storage"
	"resume-search-go/internal/storage/models"
	"resume-search-go/internal/types"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// 定义tracer
var tracer = otel.Tracer("resume-search-go/processor")

// UploadRecorder 上传记录持久化接口
type UploadRecorder interface {
	CreateUploadRecord(ctx context.Context, record *models.UploadRecord) error
	UpdateUploadStatus(ctx context.Context, uploadUUID string, status string) error
	BindUploadToCandidate(ctx context.Context, uploadUUID string, candidateEmail string) error
}

// Service 简历摄取服务。
// 采用Facade模式聚合提取、画像抽取、索引写入与各可选存储依赖
type Service struct {
	extractor PDFTextExtractor
	analyzer  ProfileAnalyzer
	index     VectorIndexer

	// 可选依赖，未配置时对应功能降级
	profiles ProfileStore
	uploads  UploadRecorder
	files    OriginalFileStore
	dedupe   FileDeduper
	events   EventPublisher
}

// ServiceOption 定义Service构造函数选项
type ServiceOption func(*Service)

// WithProfileStore 启用画像持久化
func WithProfileStore(store ProfileStore) ServiceOption {
	return func(s *Service) {
		s.profiles = store
	}
}

// WithUploadRecorder 启用上传记录持久化
func WithUploadRecorder(recorder UploadRecorder) ServiceOption {
	return func(s *Service) {
		s.uploads = recorder
	}
}

// WithOriginalFileStore 启用原始文件存储
func WithOriginalFileStore(store OriginalFileStore) ServiceOption {
	return func(s *Service) {
		s.files = store
	}
}

// WithFileDeduper 启用文件MD5去重
func WithFileDeduper(deduper FileDeduper) ServiceOption {
	return func(s *Service) {
		s.dedupe = deduper
	}
}

// WithEventPublisher 启用索引完成事件发布
func WithEventPublisher(publisher EventPublisher) ServiceOption {
	return func(s *Service) {
		s.events = publisher
	}
}

// NewService 创建简历摄取服务
func NewService(extractor PDFTextExtractor, analyzer ProfileAnalyzer, index VectorIndexer, opts ...ServiceOption) (*Service, error) {
	if extractor == nil {
		return nil, fmt.Errorf("extractor不能为空")
	}
	if analyzer == nil {
		return nil, fmt.Errorf("analyzer不能为空")
	}
	if index == nil {
		return nil, fmt.Errorf("index不能为空")
	}

	s := &Service{
		extractor: extractor,
		analyzer:  analyzer,
		index:     index,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NamespaceForIndustry 由画像行业决定向量命名空间，未识别时用默认值
func NamespaceForIndustry(industry string) string {
	industry = strings.TrimSpace(industry)
	if industry == "" {
		return constants.DefaultNamespace
	}
	return industry
}

// Analyze 提取简历文本并抽取候选人画像，不写入索引
func (s *Service) Analyze(ctx context.Context, data []byte, uri string) (*types.ResumeAnalysis, error) {
	ctx, span := tracer.Start(ctx, "Service.Analyze")
	defer span.End()

	span.SetAttributes(attribute.Int("file.size", len(data)))

	text, _, err := s.extractor.ExtractTextFromBytes(ctx, data, uri, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, NewExtractionError("", err.Error())
	}
	if strings.TrimSpace(text) == "" {
		err := fmt.Errorf("提取到的文本为空")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, NewExtractionError("", err.Error())
	}

	analysis, err := s.analyzer.ExtractProfile(ctx, text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, NewProfileParseError("", err.Error())
	}

	span.SetAttributes(
		attribute.Int("resume.word_count", analysis.Metrics.WordCount),
		attribute.Bool("resume.has_email", analysis.Metrics.HasEmail),
	)
	span.SetStatus(codes.Ok, "")
	return analysis, nil
}

// SectionRecordsFor 将画像合成为片段记录，内容为空的片段被跳过。
// 记录ID形如 "{email}_{section}"，重复索引同一候选人时原地覆盖
func SectionRecordsFor(profile *types.CandidateProfile, namespace string) (records []types.SectionRecord, skipped []string) {
	sections := SynthesizeSections(profile)
	for _, section := range constants.Sections {
		text := sections[section]
		if strings.TrimSpace(text) == "" {
			skipped = append(skipped, section)
			continue
		}
		records = append(records, types.SectionRecord{
			RecordID:       fmt.Sprintf("%s_%s", profile.Email, section),
			CandidateEmail: profile.Email,
			Section:        section,
			Text:           text,
			Namespace:      namespace,
		})
	}
	return records, skipped
}

// IndexCandidate 合成画像片段并写入向量索引，随后持久化画像、发布事件
func (s *Service) IndexCandidate(ctx context.Context, profile *types.CandidateProfile, metrics types.BasicMetrics, uploadUUID string) (*types.UpsertResult, error) {
	ctx, span := tracer.Start(ctx, "Service.IndexCandidate")
	defer span.End()

	if profile == nil || strings.TrimSpace(profile.Email) == "" {
		err := NewMissingEmailError(uploadUUID, "画像缺少候选人邮箱，无法生成索引记录")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	namespace := NamespaceForIndustry(profile.Industry)
	records, skipped := SectionRecordsFor(profile, namespace)

	span.SetAttributes(
		attribute.String("candidate.namespace", namespace),
		attribute.Int("index.records", len(records)),
		attribute.Int("index.skipped", len(skipped)),
	)

	pointIDs, err := s.index.UpsertSectionRecords(ctx, records)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, NewIndexWriteError(uploadUUID, err.Error())
	}

	result := &types.UpsertResult{
		CandidateEmail:  profile.Email,
		Namespace:       namespace,
		IndexedSections: make([]string, 0, len(records)),
		SkippedSections: skipped,
	}
	for _, record := range records {
		result.IndexedSections = append(result.IndexedSections, record.Section)
	}

	if s.profiles != nil {
		if err := s.profiles.SaveCandidateProfile(ctx, profile, metrics, namespace, result.IndexedSections); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, NewPersistError(uploadUUID, err.Error())
		}
	}

	if s.events != nil {
		event := &storage.CandidateIndexedEvent{
			CandidateEmail:  profile.Email,
			Namespace:       namespace,
			IndexedSections: result.IndexedSections,
			SkippedSections: skipped,
			PointIDs:        pointIDs,
			UploadUUID:      uploadUUID,
			IndexedAt:       time.Now(),
		}
		// 事件发布失败不影响摄取结果
		if err := s.events.PublishCandidateIndexed(ctx, event); err != nil {
			logger.Ctx(ctx).Warn().
				Err(err).
				Str("candidate_email", profile.Email).
				Msg("发布候选人索引事件失败")
		}
	}

	span.SetStatus(codes.Ok, "")
	return result, nil
}

// Upload 处理一次简历上传: 去重、存原件、抽画像、写索引、落库。
// 重复文件直接短路返回，不重新执行提取
func (s *Service) Upload(ctx context.Context, filename string, data []byte) (*UploadResult, error) {
	ctx, span := tracer.Start(ctx, "Service.Upload")
	defer span.End()

	uploadUUID := uuid.NewString()
	span.SetAttributes(
		attribute.String("upload.uuid", uploadUUID),
		attribute.Int("upload.size", len(data)),
	)

	fileExt := strings.ToLower(filepath.Ext(filename))
	if fileExt == "" {
		fileExt = ".pdf"
	}

	sum := md5.Sum(data)
	md5Hex := hex.EncodeToString(sum[:])

	dedupeRecorded := false
	if s.dedupe != nil {
		exists, existingUUID, err := s.dedupe.CheckAndSetFileMD5(ctx, md5Hex, uploadUUID)
		if err != nil {
			logger.Ctx(ctx).Warn().Err(err).Msg("文件去重检查失败，继续处理")
		} else if exists {
			span.SetAttributes(attribute.Bool("upload.duplicate", true))
			span.SetStatus(codes.Ok, "duplicate upload")
			return &UploadResult{
				UploadUUID:         uploadUUID,
				Duplicate:          true,
				ExistingUploadUUID: existingUUID,
				ProcessedAt:        time.Now(),
			}, nil
		} else {
			dedupeRecorded = true
		}
	}

	// 后续步骤失败时回滚去重记录，同一文件可以重试
	rollbackDedupe := func() {
		if dedupeRecorded {
			if err := s.dedupe.RemoveFileMD5(context.WithoutCancel(ctx), md5Hex); err != nil {
				logger.Ctx(ctx).Warn().Err(err).Str("md5", md5Hex).Msg("回滚文件去重记录失败")
			}
		}
	}

	var objectKey string
	if s.files != nil {
		var err error
		objectKey, _, err = s.files.UploadOriginalFileStreaming(ctx, uploadUUID, fileExt, bytes.NewReader(data), int64(len(data)))
		if err != nil {
			rollbackDedupe()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, NewStoreFileError(uploadUUID, err.Error())
		}
	}

	if s.uploads != nil {
		record := &models.UploadRecord{
			UploadUUID:       uploadUUID,
			OriginalFilename: filename,
			OriginalFileOSS:  objectKey,
			FileMD5:          md5Hex,
			Status:           models.UploadStatusPending,
		}
		if err := s.uploads.CreateUploadRecord(ctx, record); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Msg("创建上传记录失败")
		}
	}

	markFailed := func() {
		if s.uploads != nil {
			if err := s.uploads.UpdateUploadStatus(context.WithoutCancel(ctx), uploadUUID, models.UploadStatusFailed); err != nil {
				logger.Ctx(ctx).Warn().Err(err).Msg("更新上传记录状态失败")
			}
		}
	}

	analysis, err := s.Analyze(ctx, data, filename)
	if err != nil {
		rollbackDedupe()
		markFailed()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	upsert, err := s.IndexCandidate(ctx, &analysis.Profile, analysis.Metrics, uploadUUID)
	if err != nil {
		rollbackDedupe()
		markFailed()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if s.uploads != nil {
		if err := s.uploads.BindUploadToCandidate(ctx, uploadUUID, analysis.Profile.Email); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Msg("关联上传记录到候选人失败")
		}
		if err := s.uploads.UpdateUploadStatus(ctx, uploadUUID, models.UploadStatusIndexed); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Msg("更新上传记录状态失败")
		}
	}

	span.SetStatus(codes.Ok, "")
	return &UploadResult{
		UploadUUID:  uploadUUID,
		ObjectKey:   objectKey,
		Analysis:    analysis,
		Upsert:      upsert,
		ProcessedAt: time.Now(),
	}, nil
}
