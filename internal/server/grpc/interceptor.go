package grpc

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// statusInterceptor maps handler errors to gRPC statuses and logs each call.
func (s *GRPCServer) statusInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	started := time.Now()
	resp, err := handler(ctx, req)
	err = StatusFromError(err)
	s.logCall(ctx, info.FullMethod, started, err)
	return resp, err
}

func (s *GRPCServer) streamStatusInterceptor(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	started := time.Now()
	err := StatusFromError(handler(srv, ss))
	s.logCall(ss.Context(), info.FullMethod, started, err)
	return err
}

func (s *GRPCServer) logCall(ctx context.Context, method string, started time.Time, err error) {
	code := status.Code(err)
	args := []any{"method", method, "code", code.String(), "duration", time.Since(started).String()}
	if code == codes.Internal {
		s.logger.Error(ctx, "grpc call failed", args...)
		return
	}
	s.logger.Debug(ctx, "grpc call", args...)
}
