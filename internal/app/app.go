// Package app はアプリケーションの起動とワイヤリングを行う。
package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/listingwatch/internal/config"
	"github.com/hitoshi/listingwatch/internal/database"
	"github.com/hitoshi/listingwatch/internal/diff"
	"github.com/hitoshi/listingwatch/internal/handler"
	"github.com/hitoshi/listingwatch/internal/logger"
	"github.com/hitoshi/listingwatch/internal/mail"
	"github.com/hitoshi/listingwatch/internal/metrics"
	"github.com/hitoshi/listingwatch/internal/notify"
	"github.com/hitoshi/listingwatch/internal/repository"
	"github.com/hitoshi/listingwatch/internal/rule"
	"github.com/hitoshi/listingwatch/internal/scrape"
	"github.com/hitoshi/listingwatch/internal/security"
	"github.com/hitoshi/listingwatch/internal/worker/cleanup"
	"github.com/hitoshi/listingwatch/internal/worker/sweep"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 設定読み込み前にログを使えるようにする
	logger.SetupDefault(w)

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
	)

	switch cmd {
	case CommandSweep:
		return runSweep(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// pipeline はスイープパイプラインの依存関係一式。
type pipeline struct {
	siteRepo   *repository.PostgresSiteRepo
	ruleRepo   *repository.PostgresRuleRepo
	notifRepo  *repository.PostgresNotificationRepo
	dispatcher *scrape.Dispatcher
	mailer     *mail.SMTPMailer
	bulk       *notify.BulkService
	sweeper    *sweep.Sweeper
	registry   *prometheus.Registry
}

// buildPipeline はDB接続からスイープパイプライン全体をワイヤリングする。
func buildPipeline(cfg *config.Config, db *sql.DB) (*pipeline, error) {
	siteRepo := repository.NewPostgresSiteRepo(db)
	listingRepo := repository.NewPostgresListingRepo(db)
	ruleRepo := repository.NewPostgresRuleRepo(db)
	notifRepo := repository.NewPostgresNotificationRepo(db)

	guard := security.NewSSRFGuard()
	sanitizer := security.NewTextSanitizer()

	client := scrape.NewClient(
		guard.NewSafeClient(cfg.FetchTimeout),
		cfg.PageDelay,
		cfg.FetchMaxSize,
	)
	dispatcher := scrape.NewDispatcher(client, sanitizer, guard, slog.Default())

	differ := diff.NewService(listingRepo, slog.Default())
	matcher := rule.NewMatcher(cfg.NewListingWindow)

	mailer, err := mail.NewSMTPMailer(mail.Settings{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build SMTP mailer: %w", err)
	}

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	notifier := notify.NewService(notifRepo, mailer, collector, slog.Default())
	bulk := notify.NewBulkService(listingRepo, ruleRepo, notifRepo, mailer, slog.Default())

	sweeper := sweep.NewSweeper(
		siteRepo, ruleRepo, dispatcher, differ, matcher, notifier, bulk, collector,
		slog.Default(),
	)

	return &pipeline{
		siteRepo:   siteRepo,
		ruleRepo:   ruleRepo,
		notifRepo:  notifRepo,
		dispatcher: dispatcher,
		mailer:     mailer,
		bulk:       bulk,
		sweeper:    sweeper,
		registry:   registry,
	}, nil
}

// runServe はスケジューラ＋管理APIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、定期スイープとHTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	p, err := buildPipeline(cfg, db)
	if err != nil {
		return err
	}

	// 定期スイープの開始（起動直後に1回実行される）
	scheduler := sweep.NewScheduler(p.sweeper, slog.Default())
	scheduler.Start(cfg.SweepInterval)

	// 通知ログクリーンアップジョブを日次でバックグラウンド実行
	cleanupCtx, cancelCleanup := context.WithCancel(context.Background())
	defer cancelCleanup()
	go runCleanupLoop(cleanupCtx, p.notifRepo, cfg.LogRetentionDays)

	adminHandler := handler.NewAdminHandler(
		scheduler, p.sweeper, p.notifRepo, p.bulk, p.siteRepo, p.dispatcher,
		p.mailer, cfg.SweepInterval, slog.Default(),
	)

	router := handler.NewRouter(&handler.RouterDeps{
		HealthChecker: db,
		Admin:         adminHandler,
		Metrics:       metrics.Handler(p.registry),
		Logger:        slog.Default(),
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("admin API server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down...")

	// 実行中のスイープの完了を待ってからサーバーを落とす
	scheduler.Stop()
	cancelCleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("stopped gracefully")
	return nil
}

// runCleanupLoop は通知ログクリーンアップジョブを起動直後と以降24時間ごとに実行する。
func runCleanupLoop(ctx context.Context, purger cleanup.LogPurger, retentionDays int) {
	job := cleanup.NewCleanupJob(purger, slog.Default())
	if retentionDays > 0 {
		job.RetentionDays = retentionDays
	}

	if err := job.Run(ctx); err != nil {
		slog.Error("cleanup job failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := job.Run(ctx); err != nil {
				slog.Error("cleanup job failed", slog.String("error", err.Error()))
			}
		}
	}
}

// runSweep は1回のスイープだけを実行して終了する。cronからの実行を想定している。
func runSweep(cfg *config.Config) error {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	p, err := buildPipeline(cfg, db)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := p.sweeper.RunOnce(ctx); err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}
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
