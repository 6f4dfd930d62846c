package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"counseling-api/internal/auth"
	"counseling-api/internal/cache"
	"counseling-api/internal/config"
	"counseling-api/internal/handler"
	"counseling-api/internal/janitor"
	"counseling-api/internal/logging"
	"counseling-api/internal/middleware"
	"counseling-api/internal/migrations"
	"counseling-api/internal/probe"
	"counseling-api/internal/service"
	"counseling-api/internal/storage"
	"counseling-api/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.New(cfg.Logger)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// database
	if err := migrations.Up(cfg.Database.URL); err != nil {
		return err
	}
	logger.Info("migrations applied")

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()
	st := store.New(pool)
	if err := st.Ping(ctx); err != nil {
		return err
	}
	logger.Info("connected to postgres")

	var c cache.Cache = cache.Nop{}
	if cfg.Redis.URL != "" {
		r, err := cache.NewRedis(ctx, cfg.Redis.URL)
		if err != nil {
			return err
		}
		defer r.Close()
		c = r
		logger.Info("consultant cache enabled")
	}

	var objects storage.ObjectStore
	if cfg.MinIO.Endpoint != "" {
		m, err := storage.NewMinIO(ctx, cfg.MinIO)
		if err != nil {
			return err
		}
		objects = m
	} else {
		logger.Warn("MINIO_ENDPOINT not set, keeping uploads in memory")
		objects = storage.NewMemory()
	}

	// services
	issuer := auth.NewIssuer(cfg.JWT.Secret, cfg.JWT.AccessTTL)
	static := service.NewStaticService(st, objects, logger)
	h := handler.New(handler.Services{
		Auth:         service.NewAuthService(st, issuer, cfg.JWT.RefreshTTL, cfg.Admin, logger),
		Users:        service.NewUserService(st, logger),
		Consultants:  service.NewConsultantService(st, c, static, logger),
		Appointments: service.NewAppointmentService(st, logger),
		Reviews:      service.NewReviewService(st, c, logger),
		Admin:        service.NewAdminService(st, c, logger),
		Static:       static,
		Wishes:       service.NewWishService(st, logger),
	}, issuer, logger)

	rl := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	defer rl.Stop()

	if !cfg.Logger.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	httpSrv := &http.Server{
		Addr: ":" + cfg.Server.Port,
		Handler: handler.NewRouter(h, handler.RouterConfig{
			CORSOrigins: cfg.Server.CORSOrigins,
			Limiter:     rl,
			DB:          st,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 2)
	go func() {
		logger.Info("http listening", zap.String("addr", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	// health probe
	if cfg.Server.GRPCPort != "" {
		lis, err := net.Listen("tcp", ":"+cfg.Server.GRPCPort)
		if err != nil {
			return err
		}
		ps := probe.New(st, logger)
		go ps.Watch(ctx, 15*time.Second)
		go func() {
			logger.Info("grpc health listening", zap.String("addr", lis.Addr().String()))
			if err := ps.Serve(lis); err != nil {
				errc <- err
			}
		}()
		defer ps.Stop()
	}

	if cfg.Static.GCSchedule != "" {
		j, err := janitor.New(cfg.Static.GCSchedule, logger,
			janitor.Job{
				Name: "static-resources",
				Run: func(ctx context.Context) (int, error) {
					return static.PurgeStale(ctx, cfg.Static.GCAge)
				},
			},
			janitor.Job{
				Name: "refresh-tokens",
				Run: func(ctx context.Context) (int, error) {
					n, err := st.PurgeRefreshTokens(ctx, time.Now())
					return int(n), err
				},
			},
		)
		if err != nil {
			return err
		}
		j.Start()
		defer j.Stop()
		logger.Info("janitor scheduled", zap.String("schedule", cfg.Static.GCSchedule))
	}

	select {
	case <-ctx.Done():
	case err := <-errc:
		return err
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}
