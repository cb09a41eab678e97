// Mathildanesth 麻醉科排班引擎服务
// 主程序入口

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/vperreard/mathildanesth/internal/config"
	"github.com/vperreard/mathildanesth/internal/database"
	"github.com/vperreard/mathildanesth/internal/handler"
	"github.com/vperreard/mathildanesth/internal/metrics"
	"github.com/vperreard/mathildanesth/internal/middleware"
	"github.com/vperreard/mathildanesth/internal/repository"
	"github.com/vperreard/mathildanesth/internal/security"
	"github.com/vperreard/mathildanesth/pkg/logger"
	"github.com/vperreard/mathildanesth/pkg/model"
)

// 构建信息（通过 ldflags 注入）
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "配置加载失败: %v\n", err)
		os.Exit(1)
	}

	logFormat := "console"
	if cfg.IsProduction() {
		logFormat = "json"
	}
	logger.Init(logger.Config{
		Level:  cfg.App.LogLevel,
		Format: logFormat,
	})

	fmt.Printf("Mathildanesth 排班引擎 v%s\n", Version)
	fmt.Printf("Build: %s (%s)\n", BuildTime, GitCommit)
	fmt.Println()

	// 数据库可选：连接失败时以无状态模式运行，人员与排班通过请求体传入
	var rulesCfg *model.RulesConfiguration
	var fatigueCfg *model.FatigueConfig
	db, err := database.New(&cfg.Database)
	if err != nil {
		logger.Warn().Err(err).Msg("数据库不可用，以无状态模式运行")
		db = nil
	} else {
		defer db.Close()
		settings := repository.NewSettingsRepository(db)
		loadCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if rulesCfg, err = settings.LoadRulesConfiguration(loadCtx); err != nil {
			logger.Warn().Err(err).Msg("加载规则配置失败，使用默认值")
		}
		if fatigueCfg, err = settings.LoadFatigueConfig(loadCtx); err != nil {
			logger.Warn().Err(err).Msg("加载疲劳配置失败，使用默认值")
		}
		cancel()
		go reportDBStats(db)
	}

	planningHandler := handler.NewPlanningHandler(rulesCfg, fatigueCfg)
	statsHandler := handler.NewStatsHandler(rulesCfg)
	if db != nil {
		planningHandler.
			WithStore(repository.NewAttributionRepository(db)).
			WithPersonnelSource(repository.NewPersonnelRepository(db)).
			WithRuleSource(repository.NewRuleSetRepository(db))
	}

	mux := http.NewServeMux()

	// 系统端点
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "ok", "service": cfg.App.Name}
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.Health(ctx); err != nil {
				status["database"] = "down"
			} else {
				status["database"] = "up"
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(status)
	})

	mux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"version":"%s","build_time":"%s","git_commit":"%s"}`, Version, BuildTime, GitCommit)
	})

	// API 根路由
	mux.HandleFunc("/api/v1/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{
			"message": "Mathildanesth 排班引擎 API v1",
			"endpoints": {
				"planning": {
					"generate": "POST /api/v1/planning/generate",
					"validate": "POST /api/v1/planning/validate"
				},
				"rules": {
					"library": "GET /api/v1/rules/library"
				},
				"stats": {
					"fairness": "POST /api/v1/stats/fairness",
					"coverage": "POST /api/v1/stats/coverage"
				}
			}
		}`))
	})

	// 排班引擎 API
	mux.HandleFunc("/api/v1/planning/generate", planningHandler.Generate)
	mux.HandleFunc("/api/v1/planning/validate", planningHandler.Validate)

	// 规则库 API
	mux.HandleFunc("/api/v1/rules/library", handler.RulesLibrary)

	// 统计分析 API
	mux.HandleFunc("/api/v1/stats/fairness", statsHandler.Fairness)
	mux.HandleFunc("/api/v1/stats/coverage", statsHandler.Coverage)

	// Prometheus 指标端点
	mux.Handle("/metrics", metrics.Handler())

	// API密钥认证：配置了 APP_API_KEYS 时启用，系统端点不受保护
	var protected http.Handler = mux
	if len(cfg.App.APIKeys) > 0 {
		keyManager := security.NewAPIKeyManager()
		keyManager.AddStatic(cfg.App.APIKeys...)
		protected = middleware.AuthMiddleware(&middleware.AuthConfig{
			Manager:   keyManager,
			SkipPaths: []string{"/health", "/version", "/metrics"},
		})(mux)
		logger.Info().Int("keys", len(cfg.App.APIKeys)).Msg("API密钥认证已启用")
	}

	// 中间件执行顺序：requestID -> recovery -> rateLimit -> cors -> 安全头 -> logging -> auth -> handler
	root := requestIDMiddleware(
		middleware.RecoveryMiddleware(
			rateLimitMiddleware(
				corsMiddleware(
					middleware.SecurityHeadersMiddleware(
						loggingMiddleware(protected))))))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      root,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.Planner.DefaultTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info().
			Int("port", cfg.App.Port).
			Str("version", Version).
			Str("env", cfg.App.Env).
			Msg("服务器启动")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("服务器启动失败")
			os.Exit(1)
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("服务器关闭失败")
		os.Exit(1)
	}

	logger.Info().Msg("服务器已关闭")
}

// reportDBStats 定期上报数据库连接池指标
func reportDBStats(db *database.DB) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		stats := db.Stats()
		metrics.SetDBConnections("open", stats.OpenConnections)
		metrics.SetDBConnections("idle", stats.Idle)
		metrics.SetDBConnections("in_use", stats.InUse)
	}
}

// requestIDMiddleware 请求ID追踪中间件
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		w.Header().Set("X-Request-ID", requestID)

		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type requestIDKey struct{}

// loggingMiddleware 日志中间件
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID, _ := r.Context().Value(requestIDKey{}).(string)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		duration := time.Since(start)

		logger.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rw.statusCode).
			Dur("duration", duration).
			Msg("请求处理")

		metrics.RecordRequestMetrics(r.Method, r.URL.Path, rw.statusCode, duration)
	})
}

// responseWriter 包装ResponseWriter以捕获状态码
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// RateLimiter 简单的令牌桶限流器
type RateLimiter struct {
	tokens     float64
	maxTokens  float64
	refillRate float64 // 每秒添加的令牌数
	lastRefill time.Time
	mu         sync.Mutex
}

// NewRateLimiter 创建限流器
func NewRateLimiter(requestsPerSecond float64) *RateLimiter {
	return &RateLimiter{
		tokens:     requestsPerSecond,
		maxTokens:  requestsPerSecond * 2, // 允许突发流量
		refillRate: requestsPerSecond,
		lastRefill: time.Now(),
	}
}

// Allow 检查是否允许请求
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(rl.lastRefill).Seconds()
	rl.tokens += elapsed * rl.refillRate
	if rl.tokens > rl.maxTokens {
		rl.tokens = rl.maxTokens
	}
	rl.lastRefill = now

	if rl.tokens >= 1 {
		rl.tokens--
		return true
	}
	return false
}

var globalRateLimiter = NewRateLimiter(100) // 默认 100 QPS

// rateLimitMiddleware 限流中间件
func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !globalRateLimiter.Allow() {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error":   true,
				"code":    "RATE_LIMITED",
				"message": "请求过于频繁，请稍后重试",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware CORS中间件
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
