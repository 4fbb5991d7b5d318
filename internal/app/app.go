// Package app はアプリケーションの起動と依存関係のワイヤリングを提供する。
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/readerdigest/internal/apiclient"
	"github.com/hitoshi/readerdigest/internal/article"
	"github.com/hitoshi/readerdigest/internal/auth"
	"github.com/hitoshi/readerdigest/internal/config"
	"github.com/hitoshi/readerdigest/internal/database"
	"github.com/hitoshi/readerdigest/internal/digest"
	"github.com/hitoshi/readerdigest/internal/handler"
	"github.com/hitoshi/readerdigest/internal/logger"
	"github.com/hitoshi/readerdigest/internal/markdown"
	"github.com/hitoshi/readerdigest/internal/metrics"
	"github.com/hitoshi/readerdigest/internal/middleware"
	"github.com/hitoshi/readerdigest/internal/preview"
	"github.com/hitoshi/readerdigest/internal/repository"
	"github.com/hitoshi/readerdigest/internal/security"
	"github.com/hitoshi/readerdigest/internal/session"
	"github.com/hitoshi/readerdigest/internal/user"
	"github.com/hitoshi/readerdigest/internal/validation"
	"github.com/hitoshi/readerdigest/internal/view"
	"github.com/hitoshi/readerdigest/internal/worker/cleanup"
)

const (
	// defaultHealthcheckPort はSERVER_PORT未設定時のヘルスチェック先ポート。
	defaultHealthcheckPort = "3000"
	// shutdownTimeout はグレースフルシャットダウンの待ち時間。
	shutdownTimeout = 30 * time.Second
	// dbPingTimeout は起動時のDB接続確認のタイムアウト。
	dbPingTimeout = 5 * time.Second
	// articlesFeedPath はバックエンドが配信する公開記事RSSのパス。
	articlesFeedPath = "/rss/articles.xml"
)

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップし、環境変数からConfigを読み込む。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, os.Getenv("LOG_LEVEL"))

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
			port = defaultHealthcheckPort
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
		slog.String("api_base_url", cfg.APIBaseURL),
		slog.Bool("logto_configured", cfg.LogtoConfigured()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case CommandWorker:
		return runWorker(ctx, cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(ctx, cfg)
	}
}

// sessionStore はIdPセッションの保存先とその後始末。
type sessionStore struct {
	repo   repository.ProviderSessionRepository
	health handler.HealthChecker
	close  func() error
}

// openSessionStore はDATABASE_URLが設定されていればPostgreSQL、なければメモリにIdPセッションを保持する。
func openSessionStore(ctx context.Context, cfg *config.Config) (*sessionStore, error) {
	if cfg.DatabaseURL == "" {
		slog.Warn("DATABASE_URL is not set; provider sessions are kept in memory")
		return &sessionStore{
			repo:  repository.NewMemoryProviderSessionRepo(),
			close: func() error { return nil },
		}, nil
	}

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := database.Ping(ctx, db, dbPingTimeout); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)
	return &sessionStore{
		repo:   repository.NewPostgresProviderSessionRepo(db),
		health: db,
		close:  db.Close,
	}, nil
}

// NewHandler は設定から全依存関係をワイヤリングし、HTTPハンドラーを構築する。
// 戻り値のRateLimiterは呼び出し側で停止する。
func NewHandler(
	cfg *config.Config,
	sessions repository.ProviderSessionRepository,
	checker handler.HealthChecker,
	reg *prometheus.Registry,
) (http.Handler, *middleware.RateLimiter, error) {
	log := slog.Default()

	// 1. メトリクス
	m := metrics.NewCollector(reg)

	// 2. バックエンドAPIクライアント
	client := apiclient.NewClient(
		&http.Client{Timeout: cfg.APITimeout},
		cfg.APIBaseURL,
		session.TokenFromContext,
		m, log,
	)

	// 3. セキュリティサービスの初期化
	ssrfGuard := security.NewSSRFGuard()
	sanitizer := security.NewContentSanitizer()

	// 4. ドメインサービスの初期化
	v := validation.New()
	articleService := article.NewService(client, v)
	digestService := digest.NewService(client, v)
	userService := user.NewService(client, v, log)
	previewService := preview.NewFallbackPreviewer(preview.NewService(ssrfGuard, preview.Config{
		Timeout: cfg.PreviewTimeout,
		MaxSize: cfg.PreviewMaxSize,
	}, m, log), client, log)

	logtoProvider := auth.NewLogtoProvider(auth.LogtoConfig{
		Endpoint:   cfg.LogtoEndpoint,
		AppID:      cfg.LogtoAppID,
		AppSecret:  cfg.LogtoAppSecret,
		Scopes:     cfg.LogtoScopes,
		HTTPClient: &http.Client{Timeout: cfg.APITimeout},
	})
	authService := auth.NewService(logtoProvider, sessions, client, auth.ServiceConfig{
		Configured:     cfg.LogtoConfigured(),
		BaseURL:        cfg.BaseURL,
		CallbackPath:   cfg.LogtoCallbackPath,
		ExchangeSecret: cfg.LogtoExchangeSecret,
		SessionMaxAge:  time.Duration(cfg.LogtoSessionMaxAge) * time.Second,
	}, m, log)

	// 5. 描画
	renderer, err := view.New(markdown.NewArticleRenderer(sanitizer))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load templates: %w", err)
	}
	profiles := handler.NewCachedProfiles(
		session.NewProfileCache(cfg.ProfileCacheSize, cfg.ProfileCacheTTL),
		client, log,
	)

	// 6. ルーターの構築（レート制限はreq/minで設定する）
	rateLimiter := middleware.NewRateLimiter(
		middleware.RateLimiterConfigPerMinute(cfg.RateLimitGeneral, cfg.RateLimitSignIn),
	)

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:   log,
		Renderer: renderer,
		Profiles: profiles,

		Cookie: session.CookieOptions{
			Secure: cfg.CookieSecure,
			Domain: cfg.CookieDomain,
			MaxAge: cfg.AccessTokenMaxAge,
		},
		FeedURL:           strings.TrimRight(cfg.APIBaseURL, "/") + articlesFeedPath,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		Metrics:           m,
		MetricsHandler:    metrics.Handler(reg),
		HealthChecker:     checker,

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			CookieName:    cfg.LogtoCookieName(),
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.LogtoSessionMaxAge,
		},
		AccountService: userService,
		AccountConfig: handler.AccountHandlerConfig{
			LogtoEnabled:    cfg.LogtoConfigured(),
			LogtoCookieName: cfg.LogtoCookieName(),
		},

		ArticleService: articleService,
		DigestService:  digestService,
		ProfileService: userService,
		Previewer:      previewService,
		Authors:        userService,
	})

	return router, rateLimiter, nil
}

// runServe はWebサーバーモードで起動する。
// HTTPサーバーと期限切れIdPセッションの削除ジョブを並行して動かし、
// ctxがキャンセルされるとグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	store, err := openSessionStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.close()

	reg := prometheus.NewRegistry()
	router, rateLimiter, err := NewHandler(cfg, store.repo, store.health, reg)
	if err != nil {
		return err
	}
	defer rateLimiter.Stop()

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	cleanupJob := cleanup.NewCleanupJob(store.repo, slog.Default())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("web server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		cleanupJob.Start(gctx, cfg.SessionCleanupInterval)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down web server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("web server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// 複数のWebサーバーがPostgreSQLのIdPセッションを共有する構成で、削除ジョブを単独で動かす。
func runWorker(ctx context.Context, cfg *config.Config) error {
	if cfg.DatabaseURL == "" {
		return errors.New("worker requires DATABASE_URL")
	}

	store, err := openSessionStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.close()

	slog.Info("worker starting",
		slog.Duration("cleanup_interval", cfg.SessionCleanupInterval),
	)

	cleanup.NewCleanupJob(store.repo, slog.Default()).Start(ctx, cfg.SessionCleanupInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	if cfg.DatabaseURL == "" {
		return errors.New("migrate requires DATABASE_URL")
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	status, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed",
		slog.Uint64("version", uint64(status.Version)),
		slog.Bool("changed", status.Changed),
	)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	target := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(target)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードを伏せる。
// 解析できない場合は全体を伏せる。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
