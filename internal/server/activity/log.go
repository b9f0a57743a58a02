package activity

import (
	"context"

	"github.com/dmitrijs2005/accounts/internal/logging"
)

// LogRecorder writes events through the structured logger.
type LogRecorder struct {
	logger logging.Logger
}

func NewLogRecorder(l logging.Logger) *LogRecorder {
	return &LogRecorder{logger: l.With("module", "activity")}
}

func (r *LogRecorder) Record(ctx context.Context, e Event) error {
	args := []any{
		"event_type", e.Type,
		"phase", e.Phase,
		"timestamp", e.Timestamp,
	}
	for _, kv := range [][2]string{
		{"actor_id", e.ActorID},
		{"user_id", e.UserID},
		{"org_id", e.OrgID},
		{"workspace_id", e.WorkspaceID},
	} {
		if kv[1] != "" {
			args = append(args, kv[0], kv[1])
		}
	}
	if len(e.Payload) > 0 {
		args = append(args, "payload", e.Payload)
	}
	r.logger.Info(ctx, "activity", args...)
	return nil
}
