package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/humaniq-ai/humaniq-core/config"
	"github.com/humaniq-ai/humaniq-core/database"
	_ "github.com/humaniq-ai/humaniq-core/docs" // Swagger docs
	"github.com/humaniq-ai/humaniq-core/internal/archive"
	adminctrl "github.com/humaniq-ai/humaniq-core/internal/controller/admin"
	archivectrl "github.com/humaniq-ai/humaniq-core/internal/controller/archive"
	invitationctrl "github.com/humaniq-ai/humaniq-core/internal/controller/invitation"
	userctrl "github.com/humaniq-ai/humaniq-core/internal/controller/user"
	"github.com/humaniq-ai/humaniq-core/internal/logger"
	"github.com/humaniq-ai/humaniq-core/internal/middleware"
	"github.com/humaniq-ai/humaniq-core/internal/model"
	"github.com/humaniq-ai/humaniq-core/internal/repository"
	"github.com/humaniq-ai/humaniq-core/internal/service"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// @title HumaniQ Assessment API
// @version 1.0
// @description Test sessions, scoring, result archival and AI analysis for workplace assessments.
// @description Callers identify themselves with the X-User-ID and X-User-Role headers.
// @contact.name API Support
// @contact.email support@humaniq.ai
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
func main() {
	logger.Init()

	app := fx.New(
		fx.Provide(
			config.NewConfig,
			database.NewDatabase,
			NewGinEngine,
			NewBlobStore,
		),

		// Repositories Layer
		fx.Provide(
			repository.NewCompanyRepository,
			repository.NewUserRepository,
			repository.NewTestRepository,
			repository.NewQuestionRepository,
			repository.NewTestSessionRepository,
			repository.NewAnswerRepository,
			repository.NewTestResultRepository,
			repository.NewAIAnalysisRepository,
			repository.NewArchiveIndexRepository,
			repository.NewInvitationRepository,
		),

		// Services Layer
		fx.Provide(
			service.NewAdminService,
			service.NewUserTestService,
			service.NewSessionService,
			service.NewScoreConverterService,
			service.NewArchiveService,
			service.NewTestSubmissionService,
			service.NewAnswerService,
			service.NewRetrievalService,
			service.NewInvitationService,
		),

		// API Controllers Layer
		fx.Provide(
			adminctrl.NewAdminController,
			userctrl.NewUserTestController,
			archivectrl.NewArchiveController,
			invitationctrl.NewInvitationController,
		),

		fx.Invoke(AutoMigrateDB),
		fx.Invoke(RegisterRoutesAndStartServer),
	)

	if err := app.Start(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}

	<-app.Done()
	log.Info().Msg("Application shutting down gracefully...")
	stopCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := app.Stop(stopCtx); err != nil {
		log.Error().Err(err).Msg("Failed to stop application cleanly")
	}
}

func NewGinEngine(cfg *config.Config) *gin.Engine {
	if cfg.Server.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	r.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		log.Info().
			Str("client_ip", param.ClientIP).
			Str("method", param.Method).
			Str("path", param.Path).
			Int("status_code", param.StatusCode).
			Dur("latency", param.Latency).
			Str("user_agent", param.Request.UserAgent()).
			Str("error_message", param.ErrorMessage).
			Msg("gin_request")
		return ""
	}))
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderUserID, middleware.HeaderUserRole},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.Identity())

	// URL: http://localhost:PORT/swagger/index.html
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP"})
	})

	return r
}

// NewBlobStore opens the archive backend selected by ARCHIVE_BACKEND.
func NewBlobStore(lc fx.Lifecycle, cfg *config.Config) (archive.BlobStore, error) {
	switch cfg.Archive.Backend {
	case "local", "":
		store, err := archive.NewLocalStore(cfg.Archive.BaseDir)
		if err != nil {
			return nil, err
		}
		log.Info().Str("baseDir", cfg.Archive.BaseDir).Msg("Archive store: local filesystem")
		return store, nil
	case "gcs":
		store, closer, err := archive.NewGCSStore(context.Background(), cfg.Archive.GCSBucket, cfg.Archive.GCSPrefix)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return closer.Close()
			},
		})
		log.Info().Str("bucket", cfg.Archive.GCSBucket).Str("prefix", cfg.Archive.GCSPrefix).Msg("Archive store: Cloud Storage")
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported archive backend %q", cfg.Archive.Backend)
	}
}

func RegisterRoutesAndStartServer(
	lc fx.Lifecycle,
	router *gin.Engine,
	cfg *config.Config,
	adminCtrl *adminctrl.AdminController,
	userTestCtrl *userctrl.UserTestController,
	archiveCtrl *archivectrl.ArchiveController,
	invitationCtrl *invitationctrl.InvitationController,
) {
	api := router.Group("/api/v1")

	adminAPIGroup := api.Group("/admin", middleware.RequireRole(model.RoleAdmin))
	{
		adminAPIGroup.POST("/companies", adminCtrl.CreateCompany)
		adminAPIGroup.POST("/users", adminCtrl.CreateUser)
		adminAPIGroup.POST("/tests", adminCtrl.CreateTest)
		adminAPIGroup.PATCH("/tests/:test_id/active", adminCtrl.SetTestActive)
	}

	userAPIGroup := api.Group("", middleware.RequireRole())
	{
		userAPIGroup.GET("/tests", userTestCtrl.GetAllTests)
		userAPIGroup.GET("/tests/:test_id", userTestCtrl.GetTestDetails)
		userAPIGroup.POST("/tests/:test_id/sessions", userTestCtrl.StartSession)

		userAPIGroup.GET("/sessions/:session_id", userTestCtrl.GetSession)
		userAPIGroup.PUT("/sessions/:session_id/answers/:question_id", userTestCtrl.SubmitAnswer)
		userAPIGroup.POST("/sessions/:session_id/finalize", userTestCtrl.FinalizeSession)
		userAPIGroup.POST("/sessions/:session_id/abandon", userTestCtrl.AbandonSession)

		userAPIGroup.GET("/results/:result_id", userTestCtrl.GetResult)
		userAPIGroup.GET("/results/:result_id/analyses", userTestCtrl.GetResultAnalyses)

		userAPIGroup.POST("/invitations/:token/accept", invitationCtrl.AcceptInvitation)
	}

	// Token holders look up their invitation before they have an identity.
	api.GET("/invitations/:token", invitationCtrl.GetInvitation)

	managerAPIGroup := api.Group("", middleware.RequireRole(model.RoleAdmin, model.RoleManager))
	{
		managerAPIGroup.POST("/invitations", invitationCtrl.CreateInvitation)
		managerAPIGroup.POST("/invitations/:token/sent", invitationCtrl.MarkSent)

		archives := managerAPIGroup.Group("/archives")
		archives.POST("/archive", archiveCtrl.ArchiveResult)
		archives.PUT("/archive", archiveCtrl.ArchiveResults)
		archives.GET("/search", archiveCtrl.SearchArchives)
		archives.GET("/export", archiveCtrl.ExportArchives)
		archives.GET("/stats", archiveCtrl.ArchiveStats)
		archives.GET("/results-stats", archiveCtrl.ResultStats)
		archives.POST("/rebuild-indexes", archiveCtrl.RebuildIndexes)
	}

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().Msgf("HumaniQ API server starting on port %s", cfg.Server.Port)
			log.Info().Msgf("Swagger UI available at http://localhost:%s/swagger/index.html", cfg.Server.Port)
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal().Err(err).Msg("Server ListenAndServe failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Server shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	})
}

func AutoMigrateDB(db *gorm.DB) error {
	log.Info().Msg("Running database migrations...")
	if err := db.AutoMigrate(model.All()...); err != nil {
		log.Error().Err(err).Msg("Database migration failed")
		return err
	}
	log.Info().Msg("Database migration completed successfully.")
	return nil
}
