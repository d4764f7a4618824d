package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sitebot-ai-server/src/configs"
	"sitebot-ai-server/src/configs/database"
	"sitebot-ai-server/src/core/botstore"
	"sitebot-ai-server/src/core/middleware"
	"sitebot-ai-server/src/core/relay"
	"sitebot-ai-server/src/core/session"
	"sitebot-ai-server/src/core/transcript"
	"sitebot-ai-server/src/core/utils"
	chathttp "sitebot-ai-server/src/httpsvr/chat"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("c", "config.yaml", "配置文件路径")
	flag.Parse()

	cfg, err := configs.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	logger, err := utils.NewLogger(cfg.Log.LogLevel, cfg.Log.LogDir, cfg.Log.LogFile)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}

	if err := database.InitDB(cfg.DB); err != nil {
		logger.Error("初始化数据库失败: %v", err)
		os.Exit(1)
	}
	db := database.GetDB()

	botService := botstore.NewService(db, logger)
	if err := botService.EnsureSeedBots(context.Background(), cfg.Bots); err != nil {
		logger.Error("预置Bot失败: %v", err)
		os.Exit(1)
	}

	// 历史缓存可选，Redis不可用时直接退化为纯数据库读取
	var cache *transcript.HistoryCache
	if cfg.RedisCache.Addr != "" {
		cache, err = transcript.NewHistoryCache(cfg.RedisCache, logger)
		if err != nil {
			logger.Warn("Redis不可用，历史缓存停用: %v", err)
			cache = nil
		}
	}

	store := transcript.NewStore(db, cache, logger)
	resolver := session.NewResolver(store, logger)
	engine := relay.NewEngine(store, resolver, cfg, logger)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.CORS())

	apiGroup := router.Group("/api")
	chathttp.NewRelayService(logger, botService, engine).Start(apiGroup)

	addr := fmt.Sprintf("%s:%d", cfg.Server.IP, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	g, gctx := errgroup.WithContext(context.Background())
	g.Go(func() error {
		logger.Info("HTTP服务启动: %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-quit:
		case <-gctx.Done():
			return gctx.Err()
		}
		logger.Info("收到退出信号，正在关闭...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error("服务退出: %v", err)
		os.Exit(1)
	}
	logger.Info("服务已退出")
}
