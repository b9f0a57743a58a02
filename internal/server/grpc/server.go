// Package grpc exposes the account server over gRPC: the standard health
// and reflection services, with service errors mapped to statuses.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/accounts/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// listen is swapped in tests.
var listen = func(address string) (net.Listener, error) {
	return net.Listen("tcp", address)
}

type GRPCServer struct {
	address         string
	logger          logging.Logger
	health          *health.Server
	shutdownTimeout time.Duration
}

// NewGRPCServer builds a server bound to a. A non-positive shutdownTimeout
// waits for in-flight calls indefinitely.
func NewGRPCServer(a string, l logging.Logger, shutdownTimeout time.Duration) *GRPCServer {
	return &GRPCServer{
		address:         a,
		logger:          l.With("module", "grpc_server"),
		health:          health.NewServer(),
		shutdownTimeout: shutdownTimeout,
	}
}

// Run serves until ctx is cancelled, then stops gracefully.
func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	lis, err := listen(s.address)
	if err != nil {
		return err
	}

	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(s.statusInterceptor),
		grpc.ChainStreamInterceptor(s.streamStatusInterceptor),
	)

	healthpb.RegisterHealthServer(srv, s.health)
	reflection.Register(srv)
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		s.stop(ctx, srv)
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", s.address)

	if err := srv.Serve(lis); err != nil {
		return err
	}

	return nil
}

func (s *GRPCServer) stop(ctx context.Context, srv *grpc.Server) {
	stopped := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(stopped)
	}()

	if s.shutdownTimeout <= 0 {
		<-stopped
		return
	}

	select {
	case <-stopped:
	case <-time.After(s.shutdownTimeout):
		s.logger.Warn(ctx, "graceful stop timed out, forcing", "timeout", s.shutdownTimeout.String())
		srv.Stop()
	}
}
