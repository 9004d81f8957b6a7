package health

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/oshokin/alarm-dispatch/internal/logger"
)

// ServiceName is the health service tracking dispatch credentials.
const ServiceName = "alarm-dispatch"

// Server serves grpc.health.v1.Health.
type Server struct {
	grpcServer *grpc.Server
	health     *grpchealth.Server
}

// NewServer creates a server reporting NOT_SERVING until Serve runs.
func NewServer() *Server {
	hs := grpchealth.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	grpcServer := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)

	return &Server{
		grpcServer: grpcServer,
		health:     hs,
	}
}

// SetDispatchReady reports whether dispatch credentials are held.
func (s *Server) SetDispatchReady(ready bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if ready {
		status = healthpb.HealthCheckResponse_SERVING
	}

	s.health.SetServingStatus(ServiceName, status)
}

// Watch polls probe every interval and mirrors it into the dispatch status
// until ctx is done.
func (s *Server) Watch(ctx context.Context, probe func() bool, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		s.SetDispatchReady(probe())

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Serve blocks serving lis until ctx is canceled, then stops gracefully.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	// Closed after GracefulStop finishes so Serve returns only once fully stopped.
	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		logger.Info(ctx, "Shutting down gRPC health server")
		s.health.Shutdown()
		s.grpcServer.GracefulStop()
		close(done)
	}()

	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	logger.InfoKV(ctx, "Health server listening", "listen_address", lis.Addr().String())

	if err := s.grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC health: %w", err)
	}

	<-done

	return nil
}
