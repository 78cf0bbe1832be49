package server

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	health "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const (
	defaultPort = 50051

	// Filter requests are small; responses are not bounded by this.
	defaultMaxRecvBytes = 1 << 20
)

type Option func(*settings)

type settings struct {
	host              string
	port              int
	logger            *zap.Logger
	reflection        bool
	unaryInterceptors []grpc.UnaryServerInterceptor
	logging           bool
	requestID         bool
	latency           *prometheus.HistogramVec
	maxRecvBytes      int
}

func WithPort(port int) Option {
	return func(s *settings) { s.port = port }
}

// WithHost binds to one interface instead of all of them.
func WithHost(host string) Option {
	return func(s *settings) { s.host = host }
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) { s.logger = logger }
}

func WithReflection(enabled bool) Option {
	return func(s *settings) { s.reflection = enabled }
}

// WithUnaryInterceptors appends interceptors after the built-in ones.
func WithUnaryInterceptors(interceptors ...grpc.UnaryServerInterceptor) Option {
	return func(s *settings) { s.unaryInterceptors = append(s.unaryInterceptors, interceptors...) }
}

func WithLogging(enabled bool) Option {
	return func(s *settings) { s.logging = enabled }
}

// WithRequestID tags every request with an x-request-id.
func WithRequestID(enabled bool) Option {
	return func(s *settings) { s.requestID = enabled }
}

// WithMetrics records handler latency into hist, labelled by method and code.
func WithMetrics(hist *prometheus.HistogramVec) Option {
	return func(s *settings) { s.latency = hist }
}

func WithMaxRecvMsgSize(bytes int) Option {
	return func(s *settings) {
		if bytes > 0 {
			s.maxRecvBytes = bytes
		}
	}
}

func (s *settings) chain() []grpc.UnaryServerInterceptor {
	var out []grpc.UnaryServerInterceptor
	if s.requestID {
		out = append(out, RequestIDInterceptor())
	}
	if s.latency != nil {
		out = append(out, MetricsInterceptor(s.latency))
	}
	if s.logging {
		out = append(out, LoggingInterceptor(s.logger))
	}
	return append(out, s.unaryInterceptors...)
}

// Server owns the listener, the grpc.Server and the health service.
type Server struct {
	grpcServer   *grpc.Server
	lis          net.Listener
	logger       *zap.Logger
	healthServer *health.Server
	errs         chan error
}

// New listens immediately, so Addr is valid before Start. Port 0 asks the
// kernel for a free port.
func New(opts ...Option) (*Server, error) {
	s := &settings{
		port:         defaultPort,
		logger:       zap.NewNop(),
		maxRecvBytes: defaultMaxRecvBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}

	if s.port < 0 || s.port > 65535 {
		return nil, fmt.Errorf("invalid port %d: must be between 0 and 65535", s.port)
	}

	addr := net.JoinHostPort(s.host, strconv.Itoa(s.port))
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	serverOpts := []grpc.ServerOption{grpc.MaxRecvMsgSize(s.maxRecvBytes)}
	if chain := s.chain(); len(chain) > 0 {
		serverOpts = append(serverOpts, grpc.ChainUnaryInterceptor(chain...))
	}
	grpcServer := grpc.NewServer(serverOpts...)

	if s.reflection {
		reflection.Register(grpcServer)
	}

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	return &Server{
		grpcServer:   grpcServer,
		lis:          lis,
		logger:       s.logger.Named("grpc-server"),
		healthServer: healthServer,
		errs:         make(chan error, 1),
	}, nil
}

// Register adds a service. A non-empty name is also reported as SERVING by
// the health service until SetServing says otherwise.
func (s *Server) Register(name string, register func(*grpc.Server)) {
	register(s.grpcServer)
	if name != "" {
		s.healthServer.SetServingStatus(name, healthpb.HealthCheckResponse_SERVING)
		s.logger.Info("registered service", zap.String("service", name))
	}
}

// SetServing flips the health status of name; "" is the whole server.
func (s *Server) SetServing(name string, serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.healthServer.SetServingStatus(name, st)
	s.logger.Info("service health changed", zap.String("service", name), zap.String("status", st.String()))
}

// Start serves in the background. A serve failure is delivered on Errors.
func (s *Server) Start() {
	s.healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.logger.Info("gRPC server started", zap.String("addr", s.lis.Addr().String()))

	go func() {
		if err := s.grpcServer.Serve(s.lis); err != nil {
			s.logger.Error("gRPC server failed", zap.Error(err))
			s.errs <- err
		}
	}()
}

// Errors yields at most one error, when Serve returns abnormally.
func (s *Server) Errors() <-chan error {
	return s.errs
}

// Shutdown marks every service NOT_SERVING and drains in-flight calls
// until ctx expires, then stops hard.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("gRPC server shutting down")
	s.healthServer.Shutdown()

	done := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("gRPC server stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("forced shutdown due to timeout")
		s.grpcServer.Stop()
		return ctx.Err()
	}
}

func (s *Server) Addr() net.Addr {
	return s.lis.Addr()
}
