package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/rl1809/ventures/internal/adapter/handler"
	"github.com/rl1809/ventures/internal/adapter/storage"
	"github.com/rl1809/ventures/internal/config"
	"github.com/rl1809/ventures/internal/core/service"
	"github.com/rl1809/ventures/internal/platform/auth"
	"github.com/rl1809/ventures/internal/platform/logger"
	"github.com/rl1809/ventures/internal/platform/metrics"
	"github.com/rl1809/ventures/internal/platform/tracing"
	"github.com/rl1809/ventures/internal/port"
)

// ServeCmd runs the HTTP API and, when enabled, the gRPC API.
func ServeCmd(configPath *string) *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the ventures API servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply the schema before serving")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, migrate bool) error {
	log, err := logger.New(cfg.Log.Mode, cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var serviceName string
	if cfg.Tracing.Enabled {
		serviceName = "ventures"
		shutdownTracing, err := tracing.Init(ctx, log, tracing.Config{
			ServiceName: serviceName,
			Environment: cfg.Log.Mode,
			Endpoint:    cfg.Tracing.Endpoint,
			Insecure:    cfg.Tracing.Insecure,
			SampleRatio: cfg.Tracing.SampleRatio,
		})
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracing(flushCtx); err != nil {
				log.Warn("tracing shutdown failed", "error", err)
			}
		}()
	}

	store, closeStore, err := openStore(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer closeStore()
	log.Info("connected to database", "driver", cfg.DB.Driver, "dsn", cfg.DB.DSN)

	if migrate {
		if err := store.Migrate(ctx, func(file string) {
			log.Info("applied schema", "file", file)
		}); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	var cache port.CacheRepository
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			PoolSize: cfg.Redis.PoolSize,
		})
		defer rdb.Close()

		redisAdapter := storage.NewRedisAdapter(rdb, cfg.Redis.IdempotencyTTL)
		if err := redisAdapter.Ping(ctx); err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		cache = redisAdapter
		log.Info("connected to redis", "addr", cfg.Redis.Addr)
	}

	var m *metrics.Manager
	if cfg.Metrics.Enabled {
		m = metrics.NewManager()
	}

	ventureService := service.NewVentureService(store, store,
		service.WithTransactor(store),
		service.WithLogger(log),
		service.WithMetrics(m),
		service.WithSubmolt(cfg.Ventures.Submolt),
	)
	tokens := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.Issuer)

	g, gctx := errgroup.WithContext(ctx)

	var grpcServer *grpc.Server
	if cfg.GRPC.Enabled {
		opts := []grpc.ServerOption{grpc.UnaryInterceptor(handler.UnaryAuthInterceptor(log, tokens))}
		if cfg.Tracing.Enabled {
			opts = append(opts, grpc.StatsHandler(otelgrpc.NewServerHandler()))
		}
		grpcServer = grpc.NewServer(opts...)
		handler.RegisterVentureServiceServer(grpcServer,
			handler.NewGRPCHandler(ventureService, cfg.Ventures.TrustedVerifierID))

		lis, err := net.Listen("tcp", cfg.GRPC.Addr)
		if err != nil {
			return fmt.Errorf("listen grpc: %w", err)
		}
		g.Go(func() error {
			log.Info("gRPC server listening", "addr", cfg.GRPC.Addr)
			return grpcServer.Serve(lis)
		})
	}

	if cfg.Log.Mode == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handler.NewRouter(handler.RouterConfig{
		Handler:        handler.NewHTTPHandler(ventureService, cfg.Ventures.TrustedVerifierID, store),
		AuthMiddleware: handler.NewAuthMiddleware(log, tokens),
		Cache:          cache,
		Metrics:        m,
		MetricsPath:    cfg.Metrics.Path,
		CORSOrigins:    cfg.HTTP.CORSOrigins,
		ServiceName:    serviceName,
		Log:            log,
	})

	httpServer := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: router,
	}
	g.Go(func() error {
		log.Info("HTTP server listening", "addr", cfg.HTTP.Addr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	// Either a signal or a failed server ends the run.
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("HTTP shutdown incomplete", "error", err)
		}
		log.Info("HTTP server stopped")

		if grpcServer != nil {
			grpcServer.GracefulStop()
			log.Info("gRPC server stopped")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		return err
	}
	return nil
}
