package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"resume-search-go/internal/config"
	"resume-search-go/internal/constants"
	"resume-search-go/internal/logger"
	"resume-search-go/internal/processor"
	"resume-search-go/internal/search"
	"resume-search-go/internal/storage"
	"resume-search-go/internal/storage/models"
	"resume-search-go/internal/types"

	"gorm.io/gorm"
)

// 处理层的哨兵错误，路由层据此映射HTTP状态码
var (
	ErrEmailMismatch        = errors.New("路径邮箱与画像邮箱不一致")
	ErrCandidateNotFound    = errors.New("候选人不存在")
	ErrProfileStoreDisabled = errors.New("画像存储未启用")
	ErrFileTooLarge         = errors.New("上传文件超过大小上限")
)

// validateUploadedFile 校验上传文件非空且未超过大小上限
func validateUploadedFile(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: 上传文件为空", search.ErrInvalidQuery)
	}
	if len(data) > constants.MaxUploadSize {
		return fmt.Errorf("%w: %d 字节，上限 %d 字节", ErrFileTooLarge, len(data), constants.MaxUploadSize)
	}
	return nil
}

// CandidateHandler 候选人处理器，负责协调摄入与检索流程
type CandidateHandler struct {
	cfg      *config.Config
	storage  *storage.Storage
	service  *processor.Service
	searcher *search.Searcher
}

// NewCandidateHandler 创建一个新的候选人处理器
func NewCandidateHandler(
	cfg *config.Config,
	storage *storage.Storage,
	service *processor.Service,
	searcher *search.Searcher,
) *CandidateHandler {
	return &CandidateHandler{
		cfg:      cfg,
		storage:  storage,
		service:  service,
		searcher: searcher,
	}
}

// AnalyzeResponse 简历解析响应（不写入索引）
type AnalyzeResponse struct {
	Filename string                `json:"filename"`
	Analysis *types.ResumeAnalysis `json:"analysis"`
}

// HandleAnalyze 解析简历并抽取画像，不做任何持久化
func (h *CandidateHandler) HandleAnalyze(ctx context.Context, filename string, data []byte) (*AnalyzeResponse, error) {
	if err := validateUploadedFile(data); err != nil {
		return nil, err
	}

	analysis, err := h.service.Analyze(ctx, data, filename)
	if err != nil {
		logger.Error().
			Err(err).
			Str("filename", filename).
			Msg("简历解析失败")
		return nil, err
	}

	return &AnalyzeResponse{
		Filename: filename,
		Analysis: analysis,
	}, nil
}

// UploadResponse 简历上传摄入响应
type UploadResponse struct {
	UploadUUID         string              `json:"upload_uuid"`
	Status             string              `json:"status"`
	ExistingUploadUUID string              `json:"existing_upload_uuid,omitempty"`
	ObjectKey          string              `json:"object_key,omitempty"`
	CandidateEmail     string              `json:"candidate_email,omitempty"`
	Namespace          string              `json:"namespace,omitempty"`
	Upsert             *types.UpsertResult `json:"upsert,omitempty"`
	ProcessedAt        time.Time           `json:"processed_at"`
}

// HandleUpload 处理简历上传，执行完整摄入链路
func (h *CandidateHandler) HandleUpload(ctx context.Context, filename string, data []byte) (*UploadResponse, error) {
	if err := validateUploadedFile(data); err != nil {
		return nil, err
	}

	result, err := h.service.Upload(ctx, filename, data)
	if err != nil {
		logger.Error().
			Err(err).
			Str("filename", filename).
			Msg("简历摄入失败")
		return nil, err
	}

	resp := &UploadResponse{
		UploadUUID:  result.UploadUUID,
		ObjectKey:   result.ObjectKey,
		ProcessedAt: result.ProcessedAt,
	}

	if result.Duplicate {
		resp.Status = models.UploadStatusDuplicate
		resp.ExistingUploadUUID = result.ExistingUploadUUID
		logger.Info().
			Str("filename", filename).
			Str("existing_upload_uuid", result.ExistingUploadUUID).
			Msg("检测到重复文件，跳过摄入")
		return resp, nil
	}

	resp.Status = models.UploadStatusIndexed
	if result.Upsert != nil {
		resp.CandidateEmail = result.Upsert.CandidateEmail
		resp.Namespace = result.Upsert.Namespace
		resp.Upsert = result.Upsert
	}
	return resp, nil
}

// IndexRequest 直接索引一份已有画像的请求体
type IndexRequest struct {
	Profile types.CandidateProfile `json:"profile"`
	Metrics types.BasicMetrics     `json:"metrics"`
}

// IndexResponse 画像索引响应
type IndexResponse struct {
	CandidateEmail string              `json:"candidate_email"`
	Upsert         *types.UpsertResult `json:"upsert"`
}

// HandleIndex 索引一份外部提供的候选人画像。
// 路径邮箱为权威值：画像未填邮箱时回填，已填时必须一致。
func (h *CandidateHandler) HandleIndex(ctx context.Context, email string, req *IndexRequest) (*IndexResponse, error) {
	if email == "" {
		return nil, fmt.Errorf("%w: 路径邮箱为空", search.ErrInvalidQuery)
	}

	if req.Profile.Email == "" {
		req.Profile.Email = email
	} else if req.Profile.Email != email {
		return nil, fmt.Errorf("%w: 路径=%s 画像=%s", ErrEmailMismatch, email, req.Profile.Email)
	}

	upsert, err := h.service.IndexCandidate(ctx, &req.Profile, req.Metrics, "")
	if err != nil {
		logger.Error().
			Err(err).
			Str("candidate_email", email).
			Msg("画像索引失败")
		return nil, err
	}

	return &IndexResponse{
		CandidateEmail: upsert.CandidateEmail,
		Upsert:         upsert,
	}, nil
}

// HandleSearch 处理加权检索请求
func (h *CandidateHandler) HandleSearch(ctx context.Context, query types.SearchQuery) (*types.SearchResult, error) {
	result, err := h.searcher.Search(ctx, query)
	if err != nil {
		if !errors.Is(err, search.ErrSearchInProgress) && !errors.Is(err, search.ErrInvalidQuery) {
			logger.Error().
				Err(err).
				Str("query_text", query.QueryText).
				Msg("候选人检索失败")
		}
		return nil, err
	}
	return result, nil
}

// CandidateDetailResponse 持久化画像的读取响应
type CandidateDetailResponse struct {
	CandidateEmail  string                  `json:"candidate_email"`
	Name            string                  `json:"name,omitempty"`
	Phone           string                  `json:"phone,omitempty"`
	Industry        string                  `json:"industry,omitempty"`
	Namespace       string                  `json:"namespace"`
	Profile         *types.CandidateProfile `json:"profile,omitempty"`
	Metrics         types.BasicMetrics      `json:"metrics"`
	IndexedSections []string                `json:"indexed_sections,omitempty"`
	LastIndexedAt   *time.Time              `json:"last_indexed_at,omitempty"`
	UpdatedAt       time.Time               `json:"updated_at"`
}

// HandleGetCandidate 按邮箱读取持久化的候选人画像
func (h *CandidateHandler) HandleGetCandidate(ctx context.Context, email string) (*CandidateDetailResponse, error) {
	if email == "" {
		return nil, fmt.Errorf("%w: 路径邮箱为空", search.ErrInvalidQuery)
	}
	if h.storage == nil || h.storage.MySQL == nil {
		return nil, ErrProfileStoreDisabled
	}

	record, err := h.storage.MySQL.GetCandidateByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrCandidateNotFound, email)
		}
		return nil, fmt.Errorf("查询候选人画像失败: %w", err)
	}

	resp := &CandidateDetailResponse{
		CandidateEmail: record.CandidateEmail,
		Name:           record.Name,
		Phone:          record.Phone,
		Industry:       record.Industry,
		Namespace:      record.Namespace,
		Metrics: types.BasicMetrics{
			WordCount:      record.WordCount,
			CharacterCount: record.CharacterCount,
			HasEmail:       record.HasEmail,
			HasPhone:       record.HasPhone,
		},
		LastIndexedAt: record.LastIndexedAt,
		UpdatedAt:     record.UpdatedAt,
	}

	if len(record.ProfileJSON) > 0 {
		var profile types.CandidateProfile
		if err := json.Unmarshal(record.ProfileJSON, &profile); err != nil {
			logger.Warn().
				Err(err).
				Str("candidate_email", email).
				Msg("画像JSON反序列化失败，返回基础字段")
		} else {
			resp.Profile = &profile
		}
	}

	if len(record.IndexedSectionsJSON) > 0 {
		var sections []string
		if err := json.Unmarshal(record.IndexedSectionsJSON, &sections); err == nil {
			resp.IndexedSections = sections
		}
	}

	return resp, nil
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status     string          `json:"status"`
	Components map[string]bool `json:"components"`
}

// HandleHealth 返回服务与各存储组件的可用状态
func (h *CandidateHandler) HandleHealth(ctx context.Context) *HealthResponse {
	components := map[string]bool{
		"qdrant":   h.storage != nil && h.storage.Qdrant != nil,
		"mysql":    h.storage != nil && h.storage.MySQL != nil,
		"redis":    h.storage != nil && h.storage.Redis != nil,
		"minio":    h.storage != nil && h.storage.MinIO != nil,
		"rabbitmq": h.storage != nil && h.storage.RabbitMQ != nil,
	}
	return &HealthResponse{
		Status:     "ok",
		Components: components,
	}
}
