package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	pb "github.com/godilite/helpdesk-kpi/api/v1"
	"github.com/godilite/helpdesk-kpi/internal/config"
	handler "github.com/godilite/helpdesk-kpi/internal/grpc"
	"github.com/godilite/helpdesk-kpi/internal/metrics"
	"github.com/godilite/helpdesk-kpi/pkg/cache"
	grpcsrv "github.com/godilite/helpdesk-kpi/pkg/grpc/server"

	"go.uber.org/zap"
	"google.golang.org/grpc"
)

const shutdownTimeout = 10 * time.Second

// App bundles the gRPC dashboard, its view cache and the metrics endpoint.
type App struct {
	logger        *zap.Logger
	cache         handler.Cacher
	grpcServer    *grpcsrv.Server
	metricsServer *http.Server
	metricsLis    net.Listener
}

func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	var viewCache handler.Cacher
	if cfg.RedisAddr != "" {
		redisCache, err := cache.NewRedis(ctx, cache.WithAddress(cfg.RedisAddr))
		if err != nil {
			return nil, fmt.Errorf("cache init failed: %w", err)
		}
		viewCache = redisCache
		logger.Info("view cache on redis", zap.String("addr", cfg.RedisAddr))
	} else {
		viewCache = cache.NewMemory()
		logger.Info("REDIS_ADDR not set; using in-process view cache")
	}

	a := &App{logger: logger, cache: viewCache}
	if err := a.build(cfg); err != nil {
		_ = viewCache.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(cfg *config.Config) error {
	dashboard, err := NewDashboard(cfg, a.logger)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	a.grpcServer, err = grpcsrv.New(
		grpcsrv.WithPort(cfg.GRPCPort),
		grpcsrv.WithLogger(a.logger),
		grpcsrv.WithReflection(cfg.GRPCReflectionEnabled),
		grpcsrv.WithRequestID(true),
		grpcsrv.WithLogging(true),
		grpcsrv.WithMetrics(metrics.RPCDurationSeconds),
	)
	if err != nil {
		return fmt.Errorf("failed to create gRPC server: %w", err)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("invalid configuration: KPI_TIMEZONE: %w", err)
	}
	grpcHandlers := handler.NewGRPCHandlers(dashboard, a.cache, a.logger, cfg.ViewCacheTTL, handler.WithLocation(loc))
	a.grpcServer.Register(pb.ServiceName, func(s *grpc.Server) {
		pb.RegisterDashboardServer(s, grpcHandlers)
	})
	// Without the ticket export every view is empty.
	if !cfg.Operational.Configured() {
		a.grpcServer.SetServing(pb.ServiceName, false)
	}

	if cfg.MetricsAddr != "" {
		a.metricsLis, err = net.Listen("tcp", cfg.MetricsAddr)
		if err != nil {
			_ = a.grpcServer.Shutdown(context.Background())
			return fmt.Errorf("metrics listener: %w", err)
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		a.metricsServer = &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
	}
	return nil
}

// Run serves until ctx is done or a listener fails, then shuts everything
// down. A listener failure is returned; a cancelled ctx is not an error.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("application starting")
	a.grpcServer.Start()

	metricsErr := make(chan error, 1)
	if a.metricsServer != nil {
		go func() {
			a.logger.Info("metrics server starting", zap.String("addr", a.metricsLis.Addr().String()))
			if err := a.metricsServer.Serve(a.metricsLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
				metricsErr <- err
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown requested")
	case err := <-a.grpcServer.Errors():
		runErr = fmt.Errorf("grpc server: %w", err)
	case err := <-metricsErr:
		runErr = fmt.Errorf("metrics server: %w", err)
	}

	a.shutdown()
	return runErr
}

func (a *App) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.grpcServer.Shutdown(ctx); err != nil {
		a.logger.Warn("gRPC shutdown error", zap.Error(err))
	}
	if a.metricsServer != nil {
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			a.logger.Warn("metrics shutdown error", zap.Error(err))
		}
		_ = a.metricsLis.Close()
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Error("cache shutdown error", zap.Error(err))
	}
	a.logger.Info("shutdown complete")
	_ = a.logger.Sync()
}
