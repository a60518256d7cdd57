package http

import (
	"context"
	"fmt"
	"log"
	stdhttp "net/http"
	"os/signal"
	"syscall"
	"time"

	"studenthub/internal/cache"
	"studenthub/internal/config"
	"studenthub/internal/database"
	"studenthub/internal/handler"
	"studenthub/internal/queue"
	"studenthub/internal/realtime"
	appredis "studenthub/internal/redis"
	"studenthub/internal/repository"
	"studenthub/internal/service"
	"studenthub/internal/worker"
)

// shutdownTimeout is how long in-flight requests get to finish on SIGTERM.
const shutdownTimeout = 10 * time.Second

func Run() error {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Connect to Database
	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// 3. Connect to Redis (thread view cache, activity stream, live feed)
	redisClient, err := appredis.NewClient(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to create redis client: %w", err)
	}
	defer redisClient.Close()
	if err := redisClient.Ping(ctx); err != nil {
		return fmt.Errorf("failed to reach redis: %w", err)
	}

	// 4. Repositories
	userRepo := repository.NewUserRepository(db)
	refreshTokenRepo := repository.NewRefreshTokenRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	fileRepo := repository.NewCourseFileRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	// 5. Infrastructure
	viewCache := cache.NewThreadViewCache(redisClient.Client)
	publisher := queue.NewPublisher(redisClient.Client)
	consumer := queue.NewConsumer(redisClient.Client)
	hub := realtime.NewHub(redisClient.Client)

	mediaService, err := service.NewMediaService(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create media service: %w", err)
	}

	// 6. Services
	userService := service.NewUserService(userRepo)
	authService := service.NewAuthService(refreshTokenRepo, cfg)
	courseService := service.NewCourseService(courseRepo, enrollmentRepo, userRepo, db)
	commentService := service.NewCommentService(commentRepo, courseRepo, enrollmentRepo, userRepo, db, publisher, viewCache)
	fileService := service.NewCourseFileService(fileRepo, courseRepo, enrollmentRepo, db, publisher, mediaService)
	notificationService := service.NewNotificationService(notificationRepo)
	emailService := service.NewEmailService(cfg, userRepo, commentRepo)
	adminService := service.NewAdminService(userRepo, refreshTokenRepo)

	// 7. Activity workers: stream events fan out to notifications, email and
	// the live feed
	workerHandler := worker.NewHandler(enrollmentRepo, notificationService, hub)
	if emailService.Enabled() {
		workerHandler.SetEmailNotifier(emailService)
	} else {
		log.Println("[Server] SendGrid not configured, reply emails disabled")
	}

	manager := worker.NewManager(consumer, workerHandler, worker.ManagerConfig{
		WorkerCount: cfg.WorkerCount,
	})
	if err := manager.Start(ctx); err != nil {
		return fmt.Errorf("failed to start workers: %w", err)
	}
	defer manager.Stop()

	// 8. HTTP layer
	router := NewRouter(RouterConfig{
		AuthHandler:         handler.NewAuthHandler(userService, authService, mediaService, cfg),
		UserHandler:         handler.NewUserHandler(userService),
		CourseHandler:       handler.NewCourseHandler(courseService),
		CommentHandler:      handler.NewCommentHandler(commentService, hub),
		CourseFileHandler:   handler.NewCourseFileHandler(fileService, mediaService),
		NotificationHandler: handler.NewNotificationHandler(notificationService),
		AdminHandler:        handler.NewAdminHandler(adminService),
		JWTSecret:           cfg.JWTSecret,
	})

	server := &stdhttp.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		// No WriteTimeout: the live comment feed holds connections open.
		IdleTimeout: 90 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on :%s", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
