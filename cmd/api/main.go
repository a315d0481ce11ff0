package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/mediconnect/clinic-queue/internal/api/http"
	"github.com/mediconnect/clinic-queue/internal/api/http/handlers"
	"github.com/mediconnect/clinic-queue/internal/auth"
	"github.com/mediconnect/clinic-queue/internal/broadcast"
	"github.com/mediconnect/clinic-queue/internal/config"
	"github.com/mediconnect/clinic-queue/internal/events"
	"github.com/mediconnect/clinic-queue/internal/observability"
	"github.com/mediconnect/clinic-queue/internal/persistence"
	"github.com/mediconnect/clinic-queue/internal/queue"
	"github.com/mediconnect/clinic-queue/internal/repository"
	"github.com/mediconnect/clinic-queue/internal/service"
	"github.com/mediconnect/clinic-queue/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	patientRepo := repository.NewPatientRepository(pool)
	doctorRepo := repository.NewDoctorRepository(pool)
	dispensaryRepo := repository.NewDispensaryRepository(pool)
	queueRepo := repository.NewQueueRepository(pool)
	recordRepo := repository.NewMedicalRecordRepository(pool)
	resetRepo := repository.NewPasswordResetRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()

	var allocator queue.NumberAllocator
	if err := redis.Ping(ctx); err == nil {
		allocator = persistence.NewRedisAllocator(redis, "")
	} else {
		logger.Warn("redis unreachable, queue numbers use in-process allocator", zap.Error(err))
		allocator = queue.NewMemoryAllocator()
	}

	coordinator := queue.NewCoordinator(queue.Config{
		AcquireTimeout:             cfg.Queue.AcquireTimeout(),
		DefaultCapacity:            cfg.Queue.DefaultCapacity,
		NotificationThreshold:      cfg.Queue.NotificationThreshold,
		DefaultConsultationMinutes: cfg.Queue.DefaultConsultationMinutes,
	}, queue.Dependencies{
		Storage:    repository.NewQueueStorage(dispensaryRepo, doctorRepo, patientRepo, queueRepo),
		Numbers:    allocator,
		Dispatcher: dispatcher,
		Logger:     logger,
	})

	hub := broadcast.NewHub(logger)
	defer hub.Close()

	gateways := []broadcast.Gateway{hub}
	if cfg.Notification.PublishRedis {
		gateways = append(gateways, broadcast.NewRedisPublisher(redis.Client, cfg.Notification.RedisChannelPrefix, logger))
	}
	gateway := broadcast.NewComposite(gateways...)

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:          userRepo,
		PatientRepo:       patientRepo,
		DoctorRepo:        doctorRepo,
		PasswordResetRepo: resetRepo,
	})
	dispensaryService := service.NewDispensaryService(service.DispensaryDependencies{
		DispensaryRepo: dispensaryRepo,
		DoctorRepo:     doctorRepo,
		QueueRepo:      queueRepo,
	})
	doctorService := service.NewDoctorService(doctorRepo)
	patientService := service.NewPatientService(patientRepo, userRepo)
	recordService := service.NewMedicalRecordService(recordRepo, queueRepo)
	notificationService := service.NewNotificationService(dispatcher, gateway, logger, cfg.Notification)

	worker.StartNotificationWorker(notificationService, hub)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo, patientRepo, doctorRepo)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Users:          handlers.NewUsersHandler(authService),
		Queue:          handlers.NewQueueHandler(coordinator),
		QueueWS:        handlers.NewQueueWSHandler(hub),
		Dispensaries:   handlers.NewDispensariesHandler(dispensaryService),
		Doctors:        handlers.NewDoctorsHandler(doctorService),
		Patients:       handlers.NewPatientsHandler(patientService),
		MedicalRecords: handlers.NewMedicalRecordsHandler(recordService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = app.ShutdownWithContext(shutdownCtx)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
