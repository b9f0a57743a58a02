// Package logging is the structured logger of the account server. Services,
// recorders and the gRPC layer take a Logger; New picks the slog or zerolog
// backend from configuration.
package logging

import "context"

// Logger is a context-aware, structured logger. Args are key-value pairs:
//
//	log.Info(ctx, "organization renamed", "org_id", org.ID, "old_name", old)
//
// Services log mutations at Info and collaborator failures (activity
// recording, experiment lookups) at Warn. Debug carries per-call detail such
// as gRPC method and duration:
//
//	log.Debug(ctx, "grpc call", "method", method, "code", code)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With binds fields to every later entry, e.g. a component tag:
	//
	//	l = l.With("module", "activity")
	With(args ...any) Logger
}
