package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/ArchaicDeity/badge-to-cert/internal/background"
	"github.com/ArchaicDeity/badge-to-cert/internal/config"
	"github.com/ArchaicDeity/badge-to-cert/internal/handlers"
	"github.com/ArchaicDeity/badge-to-cert/internal/middleware"
	"github.com/ArchaicDeity/badge-to-cert/internal/models"
	"github.com/ArchaicDeity/badge-to-cert/internal/repository"
	"github.com/ArchaicDeity/badge-to-cert/internal/seed"
	"github.com/ArchaicDeity/badge-to-cert/internal/service"
	"github.com/ArchaicDeity/badge-to-cert/pkg/cache"
	"github.com/ArchaicDeity/badge-to-cert/pkg/logger"
)

type Application struct {
	cfg *config.Config

	db    *gorm.DB
	cache *cache.Cache

	repositories repositoryContainer
	services     serviceContainer
	handlers     handlerContainer

	rateLimits *middleware.RateLimitManager
	scheduler  *background.Scheduler

	router *gin.Engine
	server *http.Server
}

type repositoryContainer struct {
	User        repository.UserRepository
	Course      repository.CourseRepository
	Block       repository.CourseBlockRepository
	Content     repository.ContentUnitRepository
	Assessment  repository.AssessmentRepository
	Question    repository.QuestionRepository
	Review      repository.ReviewRepository
	Learner     repository.LearnerRepository
	Enrollment  repository.EnrollmentRepository
	Progress    repository.ProgressRepository
	Attempt     repository.AttemptRepository
	Certificate repository.CertificateRepository
}

type serviceContainer struct {
	Auth        *service.AuthService
	Course      *service.CourseService
	Block       *service.BlockService
	Content     *service.ContentService
	Assessment  *service.AssessmentService
	Question    *service.QuestionService
	Review      *service.ReviewService
	Certificate *service.CertificateService
	Progress    *service.ProgressService
	Attempt     *service.AttemptService
	Upload      *service.UploadService
}

type handlerContainer struct {
	Auth        *handlers.AuthHandler
	Course      *handlers.CourseHandler
	Block       *handlers.BlockHandler
	Content     *handlers.ContentHandler
	Assessment  *handlers.AssessmentHandler
	Kiosk       *handlers.KioskHandler
	Review      *handlers.ReviewHandler
	Certificate *handlers.CertificateHandler
}

func New(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	app := &Application{cfg: cfg}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.runMigrations(); err != nil {
		return nil, err
	}

	if err := app.createIndexes(); err != nil {
		return nil, err
	}

	if err := app.initCache(); err != nil {
		return nil, err
	}

	app.initRepositories()
	app.initServices()

	seed.EnsureAdminUser(app.services.Auth, app.repositories.User, cfg.AdminUsername, cfg.AdminEmail, cfg.AdminPassword)

	app.initHandlers()
	app.initRouter()

	app.server = &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        app.router,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	return app, nil
}

func (a *Application) Run() error {
	logger.Info("Server starting", map[string]interface{}{
		"port":        a.cfg.Port,
		"environment": a.cfg.Environment,
	})

	return a.server.ListenAndServe()
}

// StartBackground launches the rate limit manager and the maintenance
// scheduler. Must be called before Run; ctx cancellation begins shutdown.
func (a *Application) StartBackground(ctx context.Context) {
	a.rateLimits = middleware.NewRateLimitManager(ctx)

	a.scheduler = background.NewScheduler(background.SchedulerConfig{})
	a.scheduler.Start(ctx)

	if err := a.scheduler.ScheduleEvery(background.Job{
		Name:    "finalize-overdue-attempts",
		Timeout: 30 * time.Second,
		Run: func(ctx context.Context) error {
			finalized, err := a.services.Attempt.FinalizeOverdue(100)
			if err != nil {
				return err
			}
			if finalized > 0 {
				logger.Info("Finalized overdue attempts", map[string]interface{}{"count": finalized})
			}
			return nil
		},
	}, time.Minute); err != nil {
		logger.Error(err, "Failed to schedule overdue attempt sweep", nil)
	}

	if err := a.scheduler.ScheduleEvery(background.Job{
		Name:    "sweep-orphaned-uploads",
		Timeout: 5 * time.Minute,
		RetryPolicy: background.RetryPolicy{
			MaxRetries: 1,
			Backoff:    time.Minute,
		},
		Run: func(ctx context.Context) error {
			paths, err := a.repositories.Content.ListSourcePaths()
			if err != nil {
				return err
			}
			referenced := make(map[string]bool, len(paths))
			for _, path := range paths {
				referenced[path] = true
			}
			removed, err := a.services.Upload.SweepOlderThan(24*time.Hour, referenced)
			if err != nil {
				return err
			}
			if removed > 0 {
				logger.Info("Removed orphaned uploads", map[string]interface{}{"count": removed})
			}
			return nil
		},
	}, time.Hour); err != nil {
		logger.Error(err, "Failed to schedule upload sweep", nil)
	}
}

func (a *Application) Shutdown(ctx context.Context) error {
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			return err
		}
	}

	if a.scheduler != nil {
		if err := a.scheduler.Shutdown(ctx); err != nil {
			logger.Error(err, "Scheduler shutdown incomplete", nil)
		}
	}

	if a.rateLimits != nil {
		a.rateLimits.Shutdown()
	}

	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			logger.Error(err, "Failed to close cache connection", nil)
		}
	}

	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			sqlDB.Close()
		}
	}

	return nil
}

func (a *Application) Router() *gin.Engine {
	return a.router
}

func (a *Application) initDatabase() error {
	logger.Info("Connecting to database", nil)

	db, err := gorm.Open(postgres.Open(a.cfg.DatabaseURL), &gorm.Config{
		Logger:         logger.NewGormLogger(),
		TranslateError: true,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	a.db = db
	return nil
}

func (a *Application) runMigrations() error {
	if a.db == nil {
		return fmt.Errorf("database connection is not initialized")
	}

	logger.Info("Running database migrations", nil)

	if err := a.db.AutoMigrate(
		&models.User{},
		&models.Course{},
		&models.CourseBlock{},
		&models.ContentUnit{},
		&models.Assessment{},
		&models.Question{},
		&models.ReviewRequest{},
		&models.Learner{},
		&models.Enrollment{},
		&models.EnrollmentProgress{},
		&models.AssessmentAttempt{},
		&models.Certificate{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	logger.Info("Database migration completed", nil)
	return nil
}

func (a *Application) createIndexes() error {
	if a.db == nil {
		return fmt.Errorf("database connection is not initialized")
	}

	logger.Info("Creating database indexes", nil)

	statements := []string{
		// Live blocks hold a dense position sequence per course; parked
		// (soft-deleted) blocks sit at position 0 outside the constraint.
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_course_blocks_live_position ON course_blocks(course_id, position) WHERE deleted = false AND position > 0",
		"CREATE INDEX IF NOT EXISTS idx_courses_status ON courses(status)",
		"CREATE INDEX IF NOT EXISTS idx_attempts_overdue ON assessment_attempts(deadline) WHERE state = 'IN_PROGRESS'",
		"CREATE INDEX IF NOT EXISTS idx_certificates_learner ON certificates(learner_id)",
		"CREATE INDEX IF NOT EXISTS idx_review_requests_course ON review_requests(course_id, created_at DESC)",
	}

	for _, stmt := range statements {
		if err := a.db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

func (a *Application) initCache() error {
	addr := ""
	enabled := a.cfg.EnableCache && a.cfg.EnableRedis
	if enabled {
		addr = a.cfg.RedisURL
	}

	c, err := cache.NewCache(addr, enabled)
	if err != nil {
		return fmt.Errorf("failed to connect to cache: %w", err)
	}

	a.cache = c
	return nil
}

func (a *Application) initRepositories() {
	a.repositories = repositoryContainer{
		User:        repository.NewUserRepository(a.db),
		Course:      repository.NewCourseRepository(a.db),
		Block:       repository.NewCourseBlockRepository(a.db),
		Content:     repository.NewContentUnitRepository(a.db),
		Assessment:  repository.NewAssessmentRepository(a.db),
		Question:    repository.NewQuestionRepository(a.db),
		Review:      repository.NewReviewRepository(a.db),
		Learner:     repository.NewLearnerRepository(a.db),
		Enrollment:  repository.NewEnrollmentRepository(a.db),
		Progress:    repository.NewProgressRepository(a.db),
		Attempt:     repository.NewAttemptRepository(a.db),
		Certificate: repository.NewCertificateRepository(a.db),
	}
}

func (a *Application) initServices() {
	courses := service.NewCourseService(
		a.repositories.Course,
		a.repositories.Block,
		a.repositories.Content,
		a.repositories.Assessment,
		a.cache,
	)

	validator := service.NewCourseValidator(
		a.repositories.Block,
		a.repositories.Content,
		a.repositories.Assessment,
		a.repositories.Question,
	)

	certificates := service.NewCertificateService(
		a.repositories.Certificate,
		a.repositories.Course,
		a.repositories.Learner,
		a.cfg.CertificateValidityMonths,
	)

	progress := service.NewProgressService(
		a.repositories.Progress,
		a.repositories.Enrollment,
		a.repositories.Learner,
		a.repositories.Block,
		a.repositories.Course,
		certificates,
	)

	a.services = serviceContainer{
		Auth:   service.NewAuthService(a.repositories.User, a.cfg.JWTSecret),
		Course: courses,
		Block: service.NewBlockService(
			a.repositories.Block,
			a.repositories.Course,
			a.repositories.Content,
			a.repositories.Assessment,
			a.repositories.Question,
			courses,
		),
		Content: service.NewContentService(
			a.repositories.Content,
			a.repositories.Block,
			courses,
		),
		Assessment: service.NewAssessmentService(
			a.repositories.Assessment,
			a.repositories.Block,
			a.repositories.Attempt,
			courses,
		),
		Question: service.NewQuestionService(
			a.repositories.Question,
			a.repositories.Assessment,
		),
		Review: service.NewReviewService(
			a.repositories.Review,
			a.repositories.Course,
			validator,
			courses,
		),
		Certificate: certificates,
		Progress:    progress,
		Attempt: service.NewAttemptService(
			a.repositories.Attempt,
			a.repositories.Assessment,
			a.repositories.Question,
			a.repositories.Block,
			a.repositories.Enrollment,
			a.repositories.Progress,
			progress,
		),
		Upload: service.NewUploadService(a.cfg.UploadDir, a.cfg.MaxUploadSize),
	}
}

func (a *Application) initHandlers() {
	a.handlers = handlerContainer{
		Auth:        handlers.NewAuthHandler(a.services.Auth),
		Course:      handlers.NewCourseHandler(a.services.Course),
		Block:       handlers.NewBlockHandler(a.services.Block),
		Content:     handlers.NewContentHandler(a.services.Content, a.services.Upload),
		Assessment:  handlers.NewAssessmentHandler(a.services.Assessment, a.services.Question),
		Kiosk:       handlers.NewKioskHandler(a.services.Course, a.services.Progress, a.services.Attempt),
		Review:      handlers.NewReviewHandler(a.services.Review),
		Certificate: handlers.NewCertificateHandler(a.services.Certificate),
	}
}

func (a *Application) initRouter() {
	if a.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(logger.GinLogger())

	if a.cfg.EnableMetrics {
		router.Use(middleware.MetricsMiddleware())
	}

	router.Use(func(c *gin.Context) {
		if a.rateLimits != nil {
			c.Set("rateLimitManager", a.rateLimits)
		}
		c.Next()
	})
	router.Use(middleware.RateLimitMiddleware(a.cfg))

	router.Use(cors.New(cors.Config{
		AllowOrigins:     a.cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Kiosk-Token"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	if a.cfg.EnableMetrics {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	router.Static("/uploads", a.cfg.UploadDir)

	v1 := router.Group("/api/v1")
	{
		public := v1.Group("")
		{
			public.POST("/auth/login", a.handlers.Auth.Login)
			public.POST("/auth/logout", a.handlers.Auth.Logout)

			// Anyone holding a certificate code may check it.
			public.GET("/verify/:code", a.handlers.Certificate.Verify)
		}

		kiosk := v1.Group("/kiosk")
		kiosk.Use(middleware.KioskMiddleware(a.cfg.KioskToken))
		{
			kiosk.GET("/courses/:id", a.handlers.Kiosk.GetCourse)
			kiosk.POST("/enrollments",
				middleware.OperationRateLimitMiddleware("enroll", 20, 60),
				a.handlers.Kiosk.Enroll)
			kiosk.GET("/enrollments/:enrollmentId/progress", a.handlers.Kiosk.GetProgress)
			kiosk.POST("/enrollments/:enrollmentId/blocks/:blockId/complete", a.handlers.Kiosk.CompleteContent)

			kiosk.POST("/attempts", a.handlers.Kiosk.StartAttempt)
			kiosk.GET("/attempts/:token", a.handlers.Kiosk.GetAttempt)
			kiosk.POST("/attempts/:token/answers", a.handlers.Kiosk.AnswerQuestion)
			kiosk.POST("/attempts/:token/submit", a.handlers.Kiosk.SubmitAttempt)
		}

		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(a.cfg.JWTSecret))
		{
			protected.GET("/auth/me", a.handlers.Auth.Me)

			protected.GET("/courses", a.handlers.Course.List)
			protected.GET("/courses/:id", a.handlers.Course.Get)
			protected.GET("/courses/:id/blocks", a.handlers.Block.List)
			protected.GET("/blocks/:blockId/content", a.handlers.Content.Get)
			protected.GET("/blocks/:blockId/assessment", a.handlers.Assessment.Get)
			protected.GET("/assessments/:assessmentId/questions", a.handlers.Assessment.ListQuestions)

			// Reviews are worked by assessors and admins alike.
			protected.GET("/courses/:id/review", a.handlers.Review.Latest)
			protected.GET("/courses/:id/validation", a.handlers.Review.Preflight)
			protected.POST("/reviews/:reviewId/approve", a.handlers.Review.Approve)
			protected.POST("/reviews/:reviewId/reject", a.handlers.Review.Reject)

			protected.GET("/learners/:learnerId/certificates", a.handlers.Certificate.ListByLearner)
		}

		admin := v1.Group("/admin")
		admin.Use(middleware.AuthMiddleware(a.cfg.JWTSecret))
		admin.Use(middleware.AdminMiddleware())
		{
			admin.POST("/courses", a.handlers.Course.Create)
			admin.PUT("/courses/:id", a.handlers.Course.Update)
			admin.DELETE("/courses/:id", a.handlers.Course.Delete)

			admin.POST("/courses/:id/blocks", a.handlers.Block.Add)
			admin.PUT("/courses/:id/blocks/reorder", a.handlers.Block.Reorder)
			admin.PUT("/blocks/:blockId", a.handlers.Block.Update)
			admin.DELETE("/blocks/:blockId", a.handlers.Block.Delete)
			admin.POST("/blocks/:blockId/duplicate", a.handlers.Block.Duplicate)
			admin.PUT("/blocks/:blockId/mandatory", a.handlers.Block.SetMandatory)
			admin.PUT("/blocks/:blockId/disabled", a.handlers.Block.SetDisabled)

			admin.PUT("/blocks/:blockId/content", a.handlers.Content.Save)
			admin.POST("/uploads",
				middleware.OperationRateLimitMiddleware("upload", 10, 60),
				a.handlers.Content.Upload)

			admin.PUT("/blocks/:blockId/assessment", a.handlers.Assessment.Save)
			admin.POST("/assessments/:assessmentId/questions", a.handlers.Assessment.CreateQuestion)
			admin.POST("/assessments/:assessmentId/questions/import", a.handlers.Assessment.BulkImportQuestions)
			admin.PUT("/questions/:questionId", a.handlers.Assessment.UpdateQuestion)
			admin.DELETE("/questions/:questionId", a.handlers.Assessment.DeleteQuestion)

			admin.POST("/courses/:id/review", a.handlers.Review.Submit)
			admin.POST("/courses/:id/publish", a.handlers.Review.Publish)

			admin.POST("/users", a.handlers.Auth.CreateUser)

			admin.POST("/certificates/:code/void", a.handlers.Certificate.Void)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "route not found",
			"path":  c.Request.URL.Path,
		})
	})

	a.router = router
}
