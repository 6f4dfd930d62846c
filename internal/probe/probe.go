package probe

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server serves grpc.health.v1.Health, reflecting the database state.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
	db     Pinger
	log    *zap.Logger
}

func New(db Pinger, log *zap.Logger) *Server {
	hs := health.NewServer()
	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	return &Server{grpc: gs, health: hs, db: db, log: log}
}

func (s *Server) Serve(lis net.Listener) error {
	return s.grpc.Serve(lis)
}

// Watch re-checks the database every interval until ctx is done.
func (s *Server) Watch(ctx context.Context, interval time.Duration) {
	s.Check(ctx)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Check(ctx)
		}
	}
}

func (s *Server) Check(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := s.db.Ping(ctx); err != nil {
		s.log.Warn("database ping failed", zap.Error(err))
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", status)
}

func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
