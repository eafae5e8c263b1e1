package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/coursehub/coursehub-api/api/swagger"
	"github.com/coursehub/coursehub-api/internal/handler"
	internalmiddleware "github.com/coursehub/coursehub-api/internal/middleware"
	"github.com/coursehub/coursehub-api/internal/models"
	"github.com/coursehub/coursehub-api/internal/repository"
	"github.com/coursehub/coursehub-api/internal/service"
	"github.com/coursehub/coursehub-api/pkg/cache"
	"github.com/coursehub/coursehub-api/pkg/config"
	"github.com/coursehub/coursehub-api/pkg/database"
	"github.com/coursehub/coursehub-api/pkg/export"
	"github.com/coursehub/coursehub-api/pkg/jobs"
	"github.com/coursehub/coursehub-api/pkg/logger"
	corsmiddleware "github.com/coursehub/coursehub-api/pkg/middleware/cors"
	reqidmiddleware "github.com/coursehub/coursehub-api/pkg/middleware/requestid"
	"github.com/coursehub/coursehub-api/pkg/storage"
)

// @title CourseHub API
// @version 1.0.0
// @description Online course platform REST backend
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	if err := database.EnsureSchema(ctx, db); err != nil {
		logr.Sugar().Fatalw("failed to apply database schema", "error", err)
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
	}

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	lessonRepo := repository.NewLessonRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	videoProgressRepo := repository.NewVideoProgressRepository(db)
	exportJobRepo := repository.NewExportJobRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsService := service.NewMetricsService()
	cacheService := service.NewCacheService(cacheRepo, metricsService, cfg.Dashboard.CacheTTL, logr, cfg.Dashboard.CacheEnabled && redisClient != nil)

	authService := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	userService := service.NewUserService(userRepo, nil, logr)
	courseService := service.NewCourseService(courseRepo, lessonRepo, userRepo, userRepo, nil, logr)
	lessonService := service.NewLessonService(lessonRepo, courseRepo, userRepo, nil, logr)
	enrollmentService := service.NewEnrollmentService(enrollmentRepo, courseRepo, userRepo, export.NewCertificateRenderer(), nil, logr)
	progressService := service.NewProgressService(videoProgressRepo, enrollmentRepo, lessonRepo, nil, logr)
	dashboardService := service.NewDashboardService(userRepo, courseRepo, lessonRepo, enrollmentRepo, cacheService, cfg.Dashboard.CacheTTL, logr)

	var reportService *service.ReportService
	var exportQueue *jobs.Queue
	if cfg.Exports.Enabled {
		exportStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init export storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		exportService := service.NewExportService(enrollmentRepo, videoProgressRepo, exportStore, signer, service.ExportConfig{
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Exports.SignedURLTTL,
		}, logr, export.NewCSVExporter(), export.NewPDFExporter())

		worker := service.NewReportWorker(exportJobRepo, exportService, cfg.Exports.WorkerRetries, logr)
		exportQueue = jobs.NewQueue("exports", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Exports.WorkerConcurrency,
			BufferSize: 64,
			MaxRetries: cfg.Exports.WorkerRetries,
			RetryDelay: 5 * time.Second,
			Logger:     logr,
		})
		exportQueue.Start(ctx)
		defer exportQueue.Stop()

		reportService = service.NewReportService(exportJobRepo, exportQueue, exportService, userRepo, nil, logr, service.ReportServiceConfig{
			ResultTTL:       cfg.Exports.SignedURLTTL,
			CleanupInterval: cfg.Exports.CleanupInterval,
			MaxRetries:      cfg.Exports.WorkerRetries,
		})
		reportService.RequeuePending(ctx)
		reportService.StartCleanup(ctx)
	}

	if err := userService.EnsureDefaultAdmin(ctx, cfg.Seed.AdminUsername, cfg.Seed.AdminEmail, cfg.Seed.AdminPassword); err != nil {
		logr.Sugar().Warnw("failed to ensure default admin", "error", err)
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsService))
	r.Use(internalmiddleware.WithResponseMeta())

	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)
	courseHandler := handler.NewCourseHandler(courseService)
	lessonHandler := handler.NewLessonHandler(lessonService)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentService)
	progressHandler := handler.NewProgressHandler(progressService, enrollmentService)
	dashboardHandler := handler.NewDashboardHandler(dashboardService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.GET("/me", internalmiddleware.JWT(authService), authHandler.Me)

	courses := api.Group("/courses")
	courses.GET("", courseHandler.List)
	courses.GET("/:id", courseHandler.Get)
	courses.POST("", internalmiddleware.JWT(authService), internalmiddleware.RequireRoles(models.RoleInstructor, models.RoleAdmin), courseHandler.Create)
	courses.PATCH("/:id", internalmiddleware.JWT(authService), internalmiddleware.RequireRoles(models.RoleInstructor, models.RoleAdmin), courseHandler.Update)
	courses.DELETE("/:id", internalmiddleware.JWT(authService), internalmiddleware.RequireRoles(models.RoleInstructor, models.RoleAdmin), courseHandler.Delete)

	lessons := api.Group("/lessons")
	lessons.GET("", lessonHandler.List)
	lessons.GET("/:id", lessonHandler.Get)
	lessons.POST("", internalmiddleware.JWT(authService), internalmiddleware.RequireRoles(models.RoleInstructor, models.RoleAdmin), lessonHandler.Create)
	lessons.PATCH("/:id", internalmiddleware.JWT(authService), internalmiddleware.RequireRoles(models.RoleInstructor, models.RoleAdmin), lessonHandler.Update)
	lessons.DELETE("/:id", internalmiddleware.JWT(authService), internalmiddleware.RequireRoles(models.RoleInstructor, models.RoleAdmin), lessonHandler.Delete)

	enrollments := api.Group("/enrollments", internalmiddleware.JWT(authService))
	enrollments.POST("", enrollmentHandler.Enroll)
	enrollments.GET("/my-courses", enrollmentHandler.MyCourses)
	enrollments.PUT("/progress", enrollmentHandler.SetProgress)
	enrollments.GET("/status/:courseId", enrollmentHandler.Status)
	enrollments.GET("/certificate/:courseId", enrollmentHandler.Certificate)
	enrollments.DELETE("/:courseId", enrollmentHandler.Unenroll)

	progress := api.Group("/progress", internalmiddleware.JWT(authService))
	progress.GET("", progressHandler.List)
	progress.PUT("/video", progressHandler.RecordVideo)
	progress.GET("/course/:courseId", progressHandler.Course)
	progress.PUT("/course/:courseId", progressHandler.SetCourse)
	progress.GET("/video/lesson/:lessonId", progressHandler.LessonVideo)
	progress.GET("/video/course/:courseId", progressHandler.CourseVideos)

	admin := api.Group("/admin", internalmiddleware.JWT(authService), internalmiddleware.RequireRoles(models.RoleAdmin))
	admin.Use(func(c *gin.Context) {
		c.Next()
		if c.Request.Method != http.MethodGet && c.Writer.Status() < 400 {
			dashboardService.Invalidate(c.Request.Context())
		}
	})
	admin.GET("/dashboard", dashboardHandler.Stats)
	admin.GET("/users", userHandler.List)
	admin.POST("/users", userHandler.Create)
	admin.GET("/users/:id", userHandler.Get)
	admin.PATCH("/users/:id", userHandler.Update)
	admin.DELETE("/users/:id", userHandler.Delete)
	admin.GET("/courses", courseHandler.List)
	admin.POST("/courses", courseHandler.Create)
	admin.GET("/courses/:id", courseHandler.Get)
	admin.PATCH("/courses/:id", courseHandler.Update)
	admin.DELETE("/courses/:id", courseHandler.Delete)
	admin.GET("/lessons", lessonHandler.List)
	admin.POST("/lessons", lessonHandler.Create)
	admin.GET("/lessons/:id", lessonHandler.Get)
	admin.PATCH("/lessons/:id", lessonHandler.Update)
	admin.DELETE("/lessons/:id", lessonHandler.Delete)

	if reportService != nil {
		reportHandler := handler.NewReportHandler(reportService)
		admin.POST("/reports", reportHandler.Create)
		admin.GET("/reports/:id", reportHandler.Status)
		api.GET("/reports/download", reportHandler.Download)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
