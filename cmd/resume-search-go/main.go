package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"resume-search-go/internal/agent"
	"resume-search-go/internal/api/handler"
	"resume-search-go/internal/api/router"
	"resume-search-go/internal/config"
	appCoreLogger "resume-search-go/internal/logger"
	"resume-search-go/internal/parser"
	"resume-search-go/internal/processor"
	"resume-search-go/internal/search"
	"resume-search-go/internal/storage"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	glog "github.com/cloudwego/hertz/pkg/common/hlog"
	hertzadapter "github.com/hertz-contrib/logger/zerolog"
	"github.com/spf13/pflag"
)

// @title Resume Search API
// @version 1.0
// @description 简历摄入与加权语义检索服务
// @BasePath /api/v1
func main() {
	var configPath string
	pflag.StringVarP(&configPath, "config", "c", "", "配置文件路径")
	pflag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		glog.Fatalf("加载配置失败: %v", err)
	}

	initLogger(cfg)
	glog.Info("配置加载成功")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Embedder先于存储初始化：Qdrant依赖它做向量化
	embedder, err := parser.NewAliyunEmbedder(cfg.Aliyun.APIKey, cfg.Aliyun.Embedding)
	if err != nil {
		glog.Fatalf("初始化阿里云Embedder失败: %v", err)
	}
	glog.Info("阿里云Embedder初始化成功")

	storageManager, err := storage.NewStorage(ctx, cfg, embedder)
	if err != nil {
		glog.Fatalf("初始化存储失败: %v", err)
	}
	defer storageManager.Close()
	glog.Info("存储服务初始化成功")

	service, err := buildIngestService(ctx, cfg, storageManager)
	if err != nil {
		glog.Fatalf("初始化摄入服务失败: %v", err)
	}
	glog.Info("摄入服务初始化成功")

	searcher := buildSearcher(cfg, storageManager)
	glog.Info("检索服务初始化成功")

	candidateHandler := handler.NewCandidateHandler(cfg, storageManager, service, searcher)

	h := server.New(
		server.WithHostPorts(cfg.Server.Address),
		server.WithHandleMethodNotAllowed(true),
	)
	h.Use(func(c context.Context, ctx *app.RequestContext) {
		glog.CtxInfof(c, "Request: %s %s", string(ctx.Method()), string(ctx.Path()))
		ctx.Next(c)
		glog.CtxInfof(c, "Response: status %d", ctx.Response.StatusCode())
	})

	router.RegisterRoutes(h, candidateHandler)
	glog.Info("HTTP路由注册成功")

	glog.Infof("HTTP 服务器启动中，监听地址: %s", cfg.Server.Address)
	go func() {
		if err := h.Run(); err != nil {
			glog.Fatalf("启动HTTP服务器失败: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	glog.Info("接收到终止信号，正在优雅退出...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := h.Shutdown(shutdownCtx); err != nil {
		glog.Fatalf("服务器关闭失败: %v", err)
	}
	glog.Info("优雅退出完成")
}

// initLogger 初始化zerolog并桥接到Hertz的hlog
func initLogger(cfg *config.Config) {
	appCoreLogger.Init(appCoreLogger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
	})

	appCoreLogger.Logger = appCoreLogger.Logger.With().
		Str("app", "resume-search-go").
		Logger()

	hertzCompatibleLogger := hertzadapter.From(appCoreLogger.Logger)
	glog.SetLogger(hertzCompatibleLogger)

	switch cfg.Logger.Level {
	case "debug":
		glog.SetLevel(glog.LevelDebug)
	case "warn":
		glog.SetLevel(glog.LevelWarn)
	case "error":
		glog.SetLevel(glog.LevelError)
	default:
		glog.SetLevel(glog.LevelInfo)
	}
}

// buildIngestService 组装摄入链路：PDF解析、LLM画像抽取、向量索引及可选的持久化组件
func buildIngestService(ctx context.Context, cfg *config.Config, storageManager *storage.Storage) (*processor.Service, error) {
	pdfExtractor, err := parser.NewEinoPDFTextExtractor(ctx)
	if err != nil {
		return nil, err
	}
	glog.Info("Eino PDF提取器初始化成功")

	modelName := cfg.Extractor.ModelName
	if modelName == "" {
		modelName = cfg.Aliyun.Model
	}
	chatModel, err := agent.NewAliyunQwenChatModel(
		cfg.Aliyun.APIKey,
		modelName,
		cfg.Aliyun.APIURL,
		agent.WithTemperature(cfg.Extractor.Temperature),
		agent.WithMaxTokens(cfg.Extractor.MaxTokens),
	)
	if err != nil {
		return nil, err
	}
	glog.Info("通义千问模型初始化成功")

	profileExtractor := parser.NewLLMProfileExtractor(chatModel,
		parser.WithExtractionTimeout(config.GetDuration(cfg.Extractor.ExtractionTimeout, 60*time.Second)),
		parser.WithMaxRetries(cfg.Extractor.MaxRetries),
		parser.WithRetryWait(time.Duration(cfg.Extractor.RetryWaitSeconds)*time.Second),
	)

	// 可选组件按实际可用情况注入，缺失时对应能力降级
	var opts []processor.ServiceOption
	if storageManager.MySQL != nil {
		opts = append(opts,
			processor.WithProfileStore(storageManager.MySQL),
			processor.WithUploadRecorder(storageManager.MySQL),
		)
	}
	if storageManager.MinIO != nil {
		opts = append(opts, processor.WithOriginalFileStore(storageManager.MinIO))
	}
	if storageManager.Redis != nil {
		opts = append(opts, processor.WithFileDeduper(storageManager.Redis))
	}
	if storageManager.RabbitMQ != nil {
		opts = append(opts, processor.WithEventPublisher(storageManager.RabbitMQ))
	}

	return processor.NewService(pdfExtractor, profileExtractor, storageManager.Qdrant, opts...)
}

// buildSearcher 组装加权检索链路
func buildSearcher(cfg *config.Config, storageManager *storage.Storage) *search.Searcher {
	engine := search.NewEngine(storageManager.Qdrant,
		search.WithSectionTopK(cfg.Search.SectionTopK),
		search.WithSectionTimeout(config.GetDuration(cfg.Search.SectionQueryTimeout, 5*time.Second)),
	)

	var opts []search.SearcherOption
	if storageManager.Redis != nil {
		opts = append(opts, search.WithResultCache(
			storageManager.Redis,
			config.GetDuration(cfg.Search.CacheTTL, 10*time.Minute),
			config.GetDuration(cfg.Search.LockTTL, 30*time.Second),
		))
	}

	return search.NewSearcher(engine, opts...)
}
