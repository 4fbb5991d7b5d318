package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/readerdigest/internal/metrics"
	"github.com/hitoshi/readerdigest/internal/middleware"
	"github.com/hitoshi/readerdigest/internal/preview"
	"github.com/hitoshi/readerdigest/internal/session"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger *slog.Logger

	// 描画
	Renderer PageRenderer
	Profiles ProfileSource

	// ミドルウェア依存
	Cookie            session.CookieOptions
	FeedURL           string
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Metrics           metrics.MetricsCollector
	MetricsHandler    http.Handler
	HealthChecker     HealthChecker

	// 認証
	AuthService    AuthServiceInterface
	AuthConfig     AuthHandlerConfig
	AccountService AccountServiceInterface
	AccountConfig  AccountHandlerConfig

	// 記事・ダイジェスト・プロフィール
	ArticleService ArticleServiceInterface
	DigestService  DigestServiceInterface
	ProfileService ProfileServiceInterface
	Previewer      preview.Previewer
	Authors        AuthorDirectory
}

// NewRouter は全ページとAPIのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → RealIP → Recovery → SecurityHeaders → Metrics → Session → Logging → RateLimit(General)
//
// ページとJSON APIにはCSRFミドルウェアを追加する。
// LogtoのルートはIdPからのリダイレクトを受けるため、CSRFミドルウェアの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := deps.Metrics
	if m == nil {
		m = metrics.Noop{}
	}

	web := NewWeb(deps.Renderer, deps.Profiles, deps.Cookie, logger).WithFeedURL(deps.FeedURL)
	authHandler := NewAuthHandler(web, deps.AuthService, deps.AuthConfig)
	accountHandler := NewAccountHandler(web, deps.AccountService, deps.AccountConfig)
	articleHandler := NewArticleHandler(web, deps.ArticleService, deps.Previewer)
	if deps.Authors != nil {
		articleHandler.WithAuthors(deps.Authors)
	}
	digestHandler := NewDigestHandler(web, deps.DigestService)
	profileHandler := NewProfileHandler(web, deps.ProfileService)
	homeHandler := NewHomeHandler(web, deps.ArticleService, deps.DigestService)
	previewHandler := NewPreviewHandler(web, deps.Previewer)

	csrfConfig := middleware.CSRFConfig{
		CookieSecure: deps.Cookie.Secure,
		CookieDomain: deps.Cookie.Domain,
	}

	r := chi.NewRouter()
	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(chimw.RealIP)
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware(deps.Cookie.Secure))
	r.Use(middleware.NewMetricsMiddleware(m))

	// --- 運用エンドポイント（セッション・レート制限の外） ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(middleware.SessionConfig{Cookie: deps.Cookie}))
		r.Use(middleware.NewLoggingMiddleware(logger))
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.GeneralMiddleware())
		}

		// Logto（IdPからのリダイレクトを受ける）
		r.Route("/api/auth/logto", func(r chi.Router) {
			if deps.RateLimiter != nil {
				r.Use(deps.RateLimiter.SignInMiddleware())
			}
			r.Get("/{action}", authHandler.Action)
			r.Post("/{action}", authHandler.Action)
		})
		r.Get("/api/auth/callback", authHandler.LegacyCallback)

		// JSON API
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
			r.Use(middleware.NewCSRFMiddleware(csrfConfig))

			r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(csrfConfig))
			r.Post("/api/auth/check-availability", accountHandler.CheckAvailability)
			r.Post("/api/auth/validate-password", accountHandler.ValidatePassword)
			r.With(middleware.RequireSessionJSON()).Post("/api/articles/preview-url", previewHandler.Preview)
		})

		// ページ
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewCSRFMiddleware(csrfConfig))

			// 公開ページ
			r.Get("/", homeHandler.Home)
			r.Get("/public/articles", articleHandler.PublicList)
			r.Get("/articles/{id}", articleHandler.Detail)
			r.Get("/public/digests", digestHandler.PublicList)
			r.Get("/digests/{id}", digestHandler.PublicDetail)

			// ログイン・登録（サインイン専用のレート制限を追加）
			r.Get("/login", accountHandler.LoginPage)
			r.Get("/register", accountHandler.RegisterPage)
			r.Group(func(r chi.Router) {
				if deps.RateLimiter != nil {
					r.Use(deps.RateLimiter.SignInMiddleware())
				}
				r.Post("/login", accountHandler.Login)
				r.Post("/register", accountHandler.Register)
			})
			r.Post("/logout", accountHandler.Logout)

			// --- ログインが必要なページ ---
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireSession(loginPath))

				r.Get("/admin", homeHandler.Dashboard)

				r.Route("/admin/articles", func(r chi.Router) {
					r.Get("/new", articleHandler.NewPage)
					r.Post("/", articleHandler.Create)
					r.Route("/{id}", func(r chi.Router) {
						r.Post("/", articleHandler.Update)
						r.Get("/edit", articleHandler.EditPage)
						r.Post("/delete", articleHandler.Delete)
					})
				})

				r.Route("/admin/digests", func(r chi.Router) {
					r.Get("/", digestHandler.AdminList)
					r.Get("/new", digestHandler.NewPage)
					r.Post("/generate", digestHandler.Generate)
					r.Post("/", digestHandler.Create)
					r.Route("/{id}", func(r chi.Router) {
						r.Get("/", digestHandler.AdminDetail)
						r.Post("/", digestHandler.Update)
						r.Get("/edit", digestHandler.EditPage)
						r.Post("/delete", digestHandler.Delete)
					})
				})

				r.Route("/profile", func(r chi.Router) {
					r.Get("/", profileHandler.Show)
					r.Post("/", profileHandler.Update)
					r.Post("/password", profileHandler.ChangePassword)
					r.Post("/deactivate", profileHandler.Deactivate)
				})
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		web.renderMessage(w, r, http.StatusNotFound, "Page not found", "The page you are looking for does not exist.", "/")
	})

	return r
}
