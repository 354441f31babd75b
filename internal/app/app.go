package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/taskdeck/internal/auth"
	"github.com/hitoshi/taskdeck/internal/config"
	"github.com/hitoshi/taskdeck/internal/database"
	"github.com/hitoshi/taskdeck/internal/handler"
	"github.com/hitoshi/taskdeck/internal/job/cleanup"
	"github.com/hitoshi/taskdeck/internal/job/notify"
	"github.com/hitoshi/taskdeck/internal/logger"
	"github.com/hitoshi/taskdeck/internal/metrics"
	"github.com/hitoshi/taskdeck/internal/notification"
	"github.com/hitoshi/taskdeck/internal/project"
	"github.com/hitoshi/taskdeck/internal/repository"
	"github.com/hitoshi/taskdeck/internal/security"
	"github.com/hitoshi/taskdeck/internal/session"
	"github.com/hitoshi/taskdeck/internal/task"
	"github.com/hitoshi/taskdeck/internal/workforce"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// sessionConfig はアプリケーション設定からセッション設定を組み立てる。
func sessionConfig(cfg *config.Config) session.Config {
	sc := session.DefaultConfig()
	sc.CookieName = cfg.SessionCookieName
	sc.CookieDomain = cfg.CookieDomain
	sc.CookieMaxAge = cfg.SessionCookieMaxAge
	sc.CookieSecure = cfg.CookieSecure
	sc.IdleTimeout = cfg.SessionIdleTimeout
	sc.RotateInterval = cfg.SessionRotateEvery
	return sc
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	projectRepo := repository.NewPostgresProjectRepo(db)
	taskRepo := repository.NewPostgresTaskRepo(db)
	workerRepo := repository.NewPostgresWorkerRepo(db)
	notifRepo := repository.NewPostgresNotificationRepo(db)
	sessionBackend := repository.NewPostgresSessionBackend(db)

	// 3. セキュリティサービスの初期化
	ssrfGuard := security.NewSSRFGuard()
	sanitizer := security.NewContentSanitizer()

	// 4. ドメインサービスの初期化
	authService := auth.NewService(userRepo)
	projectService := project.NewService(projectRepo, sanitizer)
	taskService := task.NewService(taskRepo, projectRepo, workerRepo, notifRepo, sanitizer)
	workerService := workforce.NewService(workerRepo, ssrfGuard)

	// 5. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 6. ルーターの構築
	router := handler.NewRouter(&handler.RouterDeps{
		SessionBackend:    sessionBackend,
		SessionConfig:     sessionConfig(cfg),
		SessionMonitor:    session.NewMonitor(cfg.SessionIdleTimeout, cfg.SessionRotateEvery),
		Logger:            slog.Default(),
		Collector:         collector,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		AuthService:       authService,
		ProjectService:    projectService,
		TaskService:       taskService,
		WorkerService:     workerService,
	})

	// 7. メトリクスサーバーの起動（スクレイプ用に別ポートで公開する）
	metricsServer := &http.Server{
		Addr:    ":" + cfg.MetricsPort,
		Handler: metrics.SetupMetricsRoute(registry),
	}
	go func() {
		slog.Info("metrics server starting", slog.String("addr", metricsServer.Addr))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server listen error", slog.String("error", err.Error()))
		}
	}()

	// 8. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := metricsServer.Shutdown(ctx); err != nil {
		slog.Error("metrics server shutdown failed", slog.String("error", err.Error()))
	}

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はバックグラウンドジョブモードで起動する。
// 期限切れセッションのクリーンアップと未配送通知の配送を定期実行する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 2. クリーンアップジョブの初期化
	notifRepo := repository.NewPostgresNotificationRepo(db)
	cleanupJob := cleanup.NewCleanupJob(db, notifRepo, slog.Default(), cfg.SessionIdleTimeout)
	cleanupJob.RetentionDays = cfg.NotificationRetentionDays

	// 3. 通知ディスパッチャの初期化
	// Postmark未設定の環境ではクリーンアップのみ実行する
	var dispatcher *notify.Dispatcher
	mailer, err := notification.NewPostmarkMailer(
		cfg.PostmarkServerToken, cfg.PostmarkAccountToken, cfg.NotifySenderEmail,
	)
	if err != nil {
		slog.Warn("notification dispatcher disabled",
			slog.String("reason", err.Error()),
		)
	} else {
		webhookSender := notification.NewWebhookSender(security.NewSSRFGuard(), cfg.WebhookTimeout)
		dispatcher = notify.NewDispatcher(
			notifRepo, mailer, webhookSender,
			cfg.NotifyRatePerSec, cfg.NotifyMaxPerCycle, slog.Default(), collector,
		)
	}

	// 4. メトリクスサーバーの起動
	metricsServer := &http.Server{
		Addr:    ":" + cfg.MetricsPort,
		Handler: metrics.SetupMetricsRoute(registry),
	}
	go func() {
		slog.Info("metrics server starting", slog.String("addr", metricsServer.Addr))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server listen error", slog.String("error", err.Error()))
		}
	}()
	defer metricsServer.Close()

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("cleanup_interval", cfg.CleanupInterval),
		slog.Duration("notify_interval", cfg.NotifyInterval),
		slog.Bool("dispatcher_enabled", dispatcher != nil),
	)

	// クリーンアップジョブをバックグラウンドで定期実行
	go func() {
		// 起動直後に1回実行
		if err := cleanupJob.Run(ctx); err != nil {
			slog.Error("cleanup job failed", slog.String("error", err.Error()))
		}

		ticker := time.NewTicker(cfg.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := cleanupJob.Run(ctx); err != nil {
					slog.Error("cleanup job failed", slog.String("error", err.Error()))
				}
			}
		}
	}()

	// 通知ディスパッチャをメインgoroutineで定期実行（ブロッキング）
	if dispatcher != nil {
		ticker := time.NewTicker(cfg.NotifyInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				slog.Info("worker stopped gracefully")
				return nil
			case <-ticker.C:
				if err := dispatcher.Run(ctx); err != nil {
					slog.Error("notify dispatch failed", slog.String("error", err.Error()))
				}
			}
		}
	}

	<-ctx.Done()
	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
