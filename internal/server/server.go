package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"solis/internal/ai"
	"solis/internal/auth"
	"solis/internal/config"
	"solis/internal/database"
	"solis/internal/firebaseapp"
	"solis/internal/handler"
	"solis/internal/livesync"
	"solis/internal/logger"
	"solis/internal/middleware"
	"solis/internal/model"
	"solis/internal/notify"
	"solis/internal/permission"
	"solis/internal/projection"
	"solis/internal/repository"
	"solis/internal/service"
	"solis/internal/session"
	"solis/internal/storage"

	firebase "firebase.google.com/go/v4"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

type Server struct {
	Engine *gin.Engine
	DB     *gorm.DB
	Config *config.Config

	log     *logger.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	tasks   *service.TaskService
	reports *service.ReportService
	limiter *middleware.RateLimiter
}

// identity is the configured identity backend: who registers accounts, who
// verifies bearer tokens and, for local accounts only, who issues them.
type identity struct {
	backend  service.IdentityBackend
	verifier auth.Verifier
	issuer   handler.TokenIssuer
}

func Init(cfg *config.Config, log *logger.Logger) (*Server, error) {
	db, err := database.Open(cfg.DSN())
	if err != nil {
		return nil, err
	}
	log.Info().Str("host", cfg.DBHost).Str("db", cfg.DBName).Msg("connected to database")

	if err := database.Migrate(cfg.MigrateURL()); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s, err := build(ctx, cfg, db, log)
	if err != nil {
		cancel()
		return nil, err
	}
	s.ctx, s.cancel = ctx, cancel
	return s, nil
}

func build(ctx context.Context, cfg *config.Config, db *gorm.DB, log *logger.Logger) (*Server, error) {
	// Repositories
	userRepo := repository.NewUserRepository(db)
	listRepo := repository.NewListRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	reportRepo := repository.NewReportRepository(db)
	formRepo := repository.NewFormRepository(db)

	// Hosted backends
	var app *firebase.App
	if cfg.IdentityProvider == "firebase" || cfg.FirebaseStorageBucket != "" {
		var err error
		app, err = firebaseapp.New(ctx, firebaseapp.Config{
			ProjectID:       cfg.FirebaseProjectID,
			CredentialsPath: cfg.FirebaseCredentialsPath,
			StorageBucket:   cfg.FirebaseStorageBucket,
		})
		if err != nil {
			return nil, err
		}
	}

	id, err := newIdentity(ctx, cfg, app, userRepo, log)
	if err != nil {
		return nil, err
	}

	var objects storage.Store = storage.Unconfigured{}
	if cfg.FirebaseStorageBucket != "" {
		fs, err := storage.NewFirebase(ctx, app, cfg.FirebaseStorageBucket)
		if err != nil {
			return nil, err
		}
		objects = fs
	} else {
		log.Warn().Msg("no storage bucket configured, uploads are disabled")
	}

	notifier := newNotifier(cfg, log)
	analyst := ai.NewGemini(cfg.GeminiAPIKey, cfg.GeminiModel)

	sessions := session.NewProvider(userRepo, cfg.ProfileCacheTTL, log)
	sessions.Init(ctx)

	// Live collections
	feeds := handler.Feeds{
		Tasks: livesync.NewFeed("tasks",
			func(t model.Task) string { return t.ID.String() }, projection.BoardOrder, log),
		Documents: livesync.NewFeed("documents",
			func(d model.Document) string { return d.ID.String() }, service.NewestFirst, log),
		Users: livesync.NewFeed("users",
			func(u model.User) string { return u.ID.String() },
			func(a, b model.User) bool { return a.Name < b.Name }, log),
		Reports: livesync.NewFeed("reports",
			func(r model.Report) string { return r.ID.String() },
			func(a, b model.Report) bool { return a.CreatedAt.After(b.CreatedAt) }, log),
		Submissions: livesync.NewFeed("form_submissions",
			func(s model.FormSubmission) string { return s.ID.String() },
			func(a, b model.FormSubmission) bool { return a.SubmittedAt.After(b.SubmittedAt) }, log),
	}
	router := livesync.NewRouter(log)
	router.Register(feeds.Tasks.Name(), feeds.Tasks)
	router.Register(feeds.Documents.Name(), feeds.Documents)
	router.Register(feeds.Users.Name(), feeds.Users)
	router.Register(feeds.Reports.Name(), feeds.Reports)
	router.Register(feeds.Submissions.Name(), feeds.Submissions)
	go database.NewListener(cfg.DSN(), log).Run(ctx, router)

	// Services
	validate, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil, errors.New("unexpected validator engine")
	}
	handler.RegisterValidators(validate)

	userService := service.NewUserService(id.backend, userRepo, sessions, log)
	taskService := service.NewTaskService(taskRepo, userRepo, feeds.Tasks, objects, notifier, cfg.ConsoleURL, log)
	documentService := service.NewDocumentService(documentRepo, objects, log)
	reportService := service.NewReportService(reportRepo, analyst, cfg.AIChatHistory, log)
	formService := service.NewFormService(formRepo, userRepo, notifier, validate, cfg.ConsoleURL, log)

	// Handlers
	authHandler := handler.NewAuthHandler(userService, id.issuer, sessions, log)
	userHandler := handler.NewUserHandler(userService, log)
	listHandler := handler.NewListHandler(listRepo, log)
	taskHandler := handler.NewTaskHandler(taskService, log)
	documentHandler := handler.NewDocumentHandler(documentService, log)
	reportHandler := handler.NewReportHandler(reportService, log)
	formHandler := handler.NewFormHandler(formService, log)
	liveHandler := handler.NewLiveHandler(feeds, handler.Sources{
		Tasks:       taskService,
		Documents:   documentService,
		Users:       userService,
		Reports:     reportService,
		Submissions: formService,
	}, log)

	if cfg.AppEnv != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.RequestLogger(log), gin.Recovery())

	limiter := middleware.NewRateLimiter(cfg.PublicFormRate, cfg.PublicFormBurst)
	optional := middleware.OptionalAuth(id.verifier, sessions)

	// Public routes
	r.POST("/register", authHandler.Register)
	r.POST("/login", authHandler.Login)
	r.GET("/session", optional, authHandler.Session)
	r.GET("/public/forms/:id", formHandler.Public)
	r.POST("/public/forms/:id/submissions", limiter.Middleware(), optional, formHandler.Submit)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Protected routes - require authentication
	authorized := r.Group("/")
	authorized.Use(middleware.JWTAuthMiddleware(id.verifier, sessions))
	{
		authorized.POST("/logout", authHandler.Logout)
		authorized.POST("/token/refresh", authHandler.Refresh)

		// User routes
		authorized.GET("/users/me", userHandler.Me)
		authorized.PATCH("/users/me", userHandler.UpdateProfile)
		authorized.GET("/users", userHandler.List)
		authorized.GET("/users/:id", userHandler.GetByID)
		authorized.GET("/org-chart", userHandler.OrgChart)

		admin := authorized.Group("/users", middleware.RequirePermission(permission.ManageUsers))
		admin.PUT("/:id/role", userHandler.ChangeRole)
		admin.PUT("/:id/permissions", userHandler.SetPermissions)
		admin.PUT("/:id/active", userHandler.SetActive)
		admin.DELETE("/:id", userHandler.Delete)

		// List routes
		authorized.POST("/lists", listHandler.Create)
		authorized.GET("/lists", listHandler.GetAll)
		authorized.GET("/lists/:id", listHandler.GetByID)
		authorized.PUT("/lists/:id", listHandler.Update)

		// Task routes
		authorized.POST("/tasks", taskHandler.Create)
		authorized.GET("/tasks", taskHandler.List)
		authorized.GET("/tasks/view", taskHandler.View)
		authorized.GET("/tasks/:id", taskHandler.GetByID)
		authorized.PATCH("/tasks/:id", taskHandler.Update)
		authorized.DELETE("/tasks/:id", taskHandler.Delete)
		authorized.POST("/tasks/:id/move", taskHandler.Move)
		authorized.POST("/tasks/:id/comments", taskHandler.AddComment)
		authorized.POST("/tasks/:id/subtasks", taskHandler.AddSubtask)
		authorized.POST("/tasks/:id/subtasks/:subtaskId/toggle", taskHandler.ToggleSubtask)
		authorized.POST("/tasks/:id/attachments", taskHandler.AddAttachment)

		// Document routes
		authorized.POST("/documents", documentHandler.Upload)
		authorized.GET("/documents", documentHandler.List)
		authorized.DELETE("/documents/:id", documentHandler.Delete)

		// Report routes
		authorized.POST("/reports", reportHandler.Create)
		authorized.GET("/reports", reportHandler.List)
		authorized.GET("/reports/:id", reportHandler.GetByID)
		authorized.POST("/reports/:id/analyze", reportHandler.Analyze)
		authorized.POST("/reports/:id/chat", reportHandler.Chat)
		authorized.DELETE("/reports/:id", reportHandler.Delete)

		// Form routes
		forms := authorized.Group("/forms", middleware.RequirePermission(permission.ManageAutomations))
		forms.POST("", formHandler.Create)
		forms.GET("", formHandler.List)
		forms.GET("/:id", formHandler.GetByID)
		forms.PUT("/:id", formHandler.Update)
		forms.GET("/:id/submissions", formHandler.Submissions)

		// Live views
		authorized.GET("/live/tasks", liveHandler.Tasks)
		authorized.GET("/live/documents", liveHandler.Documents)
		authorized.GET("/live/users", liveHandler.Users)
		authorized.GET("/live/reports", liveHandler.Reports)
		authorized.GET("/live/forms/:id/submissions",
			middleware.RequirePermission(permission.ManageAutomations), liveHandler.Submissions)
	}

	return &Server{
		Engine:  r,
		DB:      db,
		Config:  cfg,
		log:     log.Named("server"),
		tasks:   taskService,
		reports: reportService,
		limiter: limiter,
	}, nil
}

func newIdentity(ctx context.Context, cfg *config.Config, app *firebase.App, users *repository.UserRepository, log *logger.Logger) (identity, error) {
	switch cfg.IdentityProvider {
	case "local":
		tokens := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL())
		return identity{backend: auth.NewLocal(users), verifier: tokens, issuer: tokens}, nil
	case "firebase":
		client, err := app.Auth(ctx)
		if err != nil {
			return identity{}, fmt.Errorf("firebase auth client: %w", err)
		}
		fb := auth.NewFirebase(client, users, log)
		return identity{backend: fb, verifier: fb}, nil
	default:
		return identity{}, fmt.Errorf("unknown identity provider %q", cfg.IdentityProvider)
	}
}

func newNotifier(cfg *config.Config, log *logger.Logger) notify.Notifier {
	switch cfg.Notifier {
	case "emailjs":
		return notify.NewEmailJS(notify.EmailJSConfig{
			Endpoint:   cfg.EmailJSEndpoint,
			ServiceID:  cfg.EmailJSServiceID,
			PublicKey:  cfg.EmailJSPublicKey,
			PrivateKey: cfg.EmailJSPrivateKey,
		})
	case "smtp":
		return notify.NewSMTP(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
	default:
		if cfg.Notifier != "none" {
			log.Warn().Str("notifier", cfg.Notifier).Msg("unknown notifier, emails are disabled")
		}
		return notify.Noop{}
	}
}

func (s *Server) Run() {
	srv := &http.Server{
		Addr:        ":" + s.Config.ServerPort,
		Handler:     s.Engine,
		BaseContext: func(net.Listener) context.Context { return s.ctx },
	}

	go func() {
		s.log.Info().Str("port", s.Config.ServerPort).Msg("server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Fatal().Err(err).Msg("failed to listen")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	s.log.Info().Msg("shutting down server")

	// Request contexts derive from s.ctx; cancelling it ends open live views.
	s.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		s.log.Error().Err(err).Msg("server forced to shutdown")
	}
	s.tasks.Wait()
	s.reports.Wait()
	s.limiter.Stop()

	if sqlDB, err := s.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	s.log.Info().Msg("server exited properly")
}
