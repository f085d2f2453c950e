package router

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"resume-search-go/internal/api/handler"
	"resume-search-go/internal/processor"
	"resume-search-go/internal/search"
	"resume-search-go/internal/types"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

// RegisterRoutes 注册 API 路由
func RegisterRoutes(h *server.Hertz, candidateHandler *handler.CandidateHandler) {
	api := h.Group("/api/v1")

	// 解析简历并抽取画像，不写入任何存储
	api.POST("/resume/analyze", func(c context.Context, ctx *app.RequestContext) {
		filename, data, ok := readUploadedFile(ctx)
		if !ok {
			return
		}

		resp, err := candidateHandler.HandleAnalyze(c, filename, data)
		if err != nil {
			writeError(ctx, err)
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	// 完整摄入：存原件、抽取画像、写入向量索引与画像库
	api.POST("/resume/upload", func(c context.Context, ctx *app.RequestContext) {
		filename, data, ok := readUploadedFile(ctx)
		if !ok {
			return
		}

		resp, err := candidateHandler.HandleUpload(c, filename, data)
		if err != nil {
			writeError(ctx, err)
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	// 索引一份外部提供的画像（跳过PDF解析与LLM抽取）
	api.POST("/candidates/:email/index", func(c context.Context, ctx *app.RequestContext) {
		email := ctx.Param("email")

		var req handler.IndexRequest
		if err := json.Unmarshal(ctx.Request.Body(), &req); err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "请求体JSON解析失败: " + err.Error()})
			return
		}

		resp, err := candidateHandler.HandleIndex(c, email, &req)
		if err != nil {
			writeError(ctx, err)
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	// 加权多片段语义检索
	api.POST("/candidates/search", func(c context.Context, ctx *app.RequestContext) {
		var query types.SearchQuery
		if err := json.Unmarshal(ctx.Request.Body(), &query); err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "请求体JSON解析失败: " + err.Error()})
			return
		}

		resp, err := candidateHandler.HandleSearch(c, query)
		if err != nil {
			writeError(ctx, err)
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	// 读取持久化的候选人画像
	api.GET("/candidates/:email", func(c context.Context, ctx *app.RequestContext) {
		email := ctx.Param("email")

		resp, err := candidateHandler.HandleGetCandidate(c, email)
		if err != nil {
			writeError(ctx, err)
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	// 健康检查
	api.GET("/health", func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(consts.StatusOK, candidateHandler.HandleHealth(c))
	})
}

// readUploadedFile 读取multipart表单中的file字段
func readUploadedFile(ctx *app.RequestContext) (string, []byte, bool) {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "文件未找到"})
		return "", nil, false
	}

	file, err := fileHeader.Open()
	if err != nil {
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "打开文件失败"})
		return "", nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "读取文件失败"})
		return "", nil, false
	}

	return fileHeader.Filename, data, true
}

// writeError 按错误类型映射HTTP状态码
func writeError(ctx *app.RequestContext, err error) {
	switch {
	case errors.Is(err, search.ErrSearchInProgress):
		// 同一查询正在计算中，让客户端稍后重试
		ctx.JSON(consts.StatusAccepted, utils.H{
			"status":      "in_progress",
			"retry_after": 1,
		})
	case errors.Is(err, search.ErrInvalidQuery),
		errors.Is(err, handler.ErrEmailMismatch),
		errors.Is(err, processor.ErrMissingEmail):
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": err.Error()})
	case errors.Is(err, handler.ErrFileTooLarge):
		ctx.JSON(consts.StatusRequestEntityTooLarge, utils.H{"error": err.Error()})
	case errors.Is(err, handler.ErrCandidateNotFound):
		ctx.JSON(consts.StatusNotFound, utils.H{"error": err.Error()})
	case errors.Is(err, handler.ErrProfileStoreDisabled),
		errors.Is(err, search.ErrAllSectionsFailed):
		ctx.JSON(consts.StatusServiceUnavailable, utils.H{"error": err.Error()})
	default:
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
	}
}
