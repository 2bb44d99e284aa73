package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"babyprep/backend/internal/auth"
	"babyprep/backend/internal/catalog"
	"babyprep/backend/internal/config"
	"babyprep/backend/internal/logger"
	"babyprep/backend/internal/pregnancy"
)

type dbQuerier interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

type googleVerifier interface {
	Verify(ctx context.Context, credential string, isCode bool) (auth.SocialIdentity, error)
}

type kakaoVerifier interface {
	Verify(ctx context.Context, code string) (auth.SocialIdentity, error)
}

type App struct {
	cfg     config.Config
	db      *pgxpool.Pool
	log     *logrus.Logger
	tokens  auth.TokenIssuer
	google  googleVerifier
	kakao   kakaoVerifier
	ai      AIClient
	catalog *catalog.Catalog
	now     func() time.Time
}

type Option func(*App)

func WithLogger(log *logrus.Logger) Option {
	return func(a *App) { a.log = log }
}

// WithAIClient overrides the weight-analysis model. A nil client forces rule-based answers.
func WithAIClient(client AIClient) Option {
	return func(a *App) { a.ai = client }
}

func WithGoogleVerifier(v googleVerifier) Option {
	return func(a *App) { a.google = v }
}

func WithKakaoVerifier(v kakaoVerifier) Option {
	return func(a *App) { a.kakao = v }
}

// WithCatalog replaces the embedded presets.
func WithCatalog(cat *catalog.Catalog) Option {
	return func(a *App) { a.catalog = cat }
}

// WithClock fixes the date used for "today" and due-notification cutoffs.
func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

type AuthUser struct {
	ID         string
	Email      string
	Provider   string
	Nickname   string
	IsPregnant bool
}

func New(cfg config.Config, db *pgxpool.Pool, opts ...Option) *App {
	a := &App{
		cfg: cfg,
		db:  db,
		tokens: auth.TokenIssuer{
			Secret:    cfg.JWTSecret,
			Algorithm: cfg.JWTAlgorithm,
			Issuer:    cfg.JWTIssuer,
			Audience:  cfg.JWTAudience,
			TTL:       cfg.TokenTTL(),
		},
		google:  auth.NewGoogleVerifier(cfg.GoogleClientID, cfg.GoogleSecret, cfg.GoogleRedirectURI),
		kakao:   auth.NewKakaoClient(cfg.KakaoClientID, cfg.KakaoSecret, cfg.KakaoRedirectURI),
		catalog: catalog.MustDefault(),
		now:     time.Now,
	}
	if strings.TrimSpace(cfg.OpenAIAPIKey) != "" {
		a.ai = NewOpenAIChatClient(cfg)
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.log == nil {
		a.log = logger.New(cfg.LogLevel, cfg.LogFormat)
	}
	return a
}

func (a *App) Router() *gin.Engine {
	router := gin.New()
	router.Use(logger.GinMiddleware(a.log), gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     a.cfg.CORSAllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", a.health)

	public := router.Group(a.cfg.APIPrefix)
	public.POST("/auth/signup", a.signup)
	public.POST("/auth/login", a.login)
	public.POST("/auth/google", a.googleLogin)
	public.POST("/auth/kakao", a.kakaoLogin)
	public.GET("/supplements/catalog", a.supplementCatalog)
	public.GET("/supplements/nutrients", a.nutrientsByPeriod)
	public.POST("/chatbot/query", a.chatbotQuery)

	api := router.Group(a.cfg.APIPrefix)
	api.Use(a.authMiddleware())

	api.DELETE("/auth/me", a.deleteMe)
	api.GET("/users/me", a.getMe)
	api.PATCH("/users/me", a.patchMe)
	api.PUT("/users/profile", a.updateProfile)
	api.PUT("/users/dates", a.updateDates)
	api.PUT("/users/period", a.updatePeriod)
	api.GET("/users/stage", a.getStage)
	api.POST("/users/weight/analysis", a.analyzeWeight)
	api.GET("/calendar/monthly", a.getMonthly)
	api.POST("/calendar/todos", a.createTodo)
	api.PATCH("/calendar/todos/:id", a.updateTodo)
	api.DELETE("/calendar/todos/:id", a.deleteTodo)
	api.GET("/supplements/active", a.activeSupplements)
	api.POST("/supplements/recommend", a.addRecommendedSupplement)
	api.POST("/supplements/custom", a.addCustomSupplement)
	api.PATCH("/supplements/custom/:id", a.toggleCustomSupplement)
	api.GET("/settings/notifications", a.getNotificationSettings)
	api.POST("/settings/notifications/times", a.addNotificationTime)
	api.DELETE("/settings/notifications/times/:time", a.deleteNotificationTime)
	api.PUT("/settings/notifications/toggle", a.toggleNotifications)
	api.GET("/notifications/due", a.dueNotifications)
	api.POST("/notifications/:id/mark-sent", a.markNotificationSent)
	api.GET("/notes", a.listNotes)
	api.POST("/notes", a.createNote)
	api.DELETE("/notes/:id", a.deleteNote)
	api.GET("/tips", a.randomTips)
	api.GET("/export/calendar", a.exportCalendar)

	return router
}

func (a *App) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "babyprep-api",
	})
}

func (a *App) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
			writeError(c, http.StatusUnauthorized, "Bearer token required")
			return
		}
		tokenString := strings.TrimSpace(authHeader[len("Bearer "):])
		if tokenString == "" {
			writeError(c, http.StatusUnauthorized, "Bearer token required")
			return
		}

		claims, err := a.tokens.Verify(tokenString)
		if err != nil {
			writeError(c, http.StatusUnauthorized, "Invalid bearer token")
			return
		}

		user, err := a.loadUser(c.Request.Context(), claims.Subject)
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(c, http.StatusUnauthorized, "User not found")
			return
		}
		if err != nil {
			a.log.WithError(err).WithField("user_id", claims.Subject).Error("load auth user")
			writeError(c, http.StatusInternalServerError, "Failed to load user")
			return
		}

		c.Set("authUser", user)
		c.Next()
	}
}

func (a *App) loadUser(ctx context.Context, userID string) (AuthUser, error) {
	user := AuthUser{}
	err := a.db.QueryRow(
		ctx,
		`SELECT id, email, provider, nickname, "isPregnant" FROM "User" WHERE id = $1`,
		userID,
	).Scan(&user.ID, &user.Email, &user.Provider, &user.Nickname, &user.IsPregnant)
	if err != nil {
		return AuthUser{}, err
	}
	return user, nil
}

func authUserFromContext(c *gin.Context) (AuthUser, bool) {
	raw, ok := c.Get("authUser")
	if !ok {
		return AuthUser{}, false
	}
	user, ok := raw.(AuthUser)
	return user, ok
}

func writeError(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}

// internalError logs err and answers 500 with a generic detail.
func (a *App) internalError(c *gin.Context, err error, detail string) {
	entry := a.log.WithError(err).WithField("path", c.FullPath())
	if user, ok := authUserFromContext(c); ok {
		entry = entry.WithField("user_id", user.ID)
	}
	entry.Error(detail)
	writeError(c, http.StatusInternalServerError, detail)
}

func mustJSON(c *gin.Context, payload any) bool {
	if err := c.ShouldBindJSON(payload); err != nil {
		writeError(c, http.StatusBadRequest, "Invalid request payload")
		return false
	}
	return true
}

// today is the current calendar date in the configured zone.
func (a *App) today() time.Time {
	return pregnancy.CalendarDate(a.now().In(a.cfg.Location()))
}

// issueToken stamps tokens with the wall clock; verification checks expiry against it too.
func (a *App) issueToken(user AuthUser) (string, error) {
	token, err := a.tokens.Issue(user.ID, user.Provider, time.Now())
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return token, nil
}

func withTx(ctx context.Context, pool *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
