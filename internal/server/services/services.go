// Package services contains the business logic of the account graph:
// users, organizations, workspaces, their memberships and schedule listings.
package services

import (
	"context"
	"strings"
	"time"

	"github.com/dmitrijs2005/accounts/internal/common"
	"github.com/dmitrijs2005/accounts/internal/logging"
	"github.com/dmitrijs2005/accounts/internal/server/activity"
	"github.com/google/uuid"
)

// now is swapped in tests.
var now = time.Now

// events records activity after a commit. Recorder failures are logged and
// never returned to the caller.
type events struct {
	recorder activity.Recorder
	logger   logging.Logger
}

func newEvents(r activity.Recorder, l logging.Logger) events {
	if r == nil {
		r = activity.Nop{}
	}
	return events{recorder: r, logger: l}
}

func (e events) emit(ctx context.Context, evs ...activity.Event) {
	for _, ev := range evs {
		if ev.Timestamp.IsZero() {
			ev.Timestamp = now().UTC()
		}
		if err := e.recorder.Record(ctx, ev); err != nil {
			e.logger.Warn(ctx, "activity recording failed",
				"event_type", ev.Type, "phase", ev.Phase, "error", err)
		}
	}
}

// checkID rejects ids that are not UUIDs.
func checkID(field, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return common.Validation(field, "malformed id")
	}
	return nil
}

func checkName(field, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", common.Validation(field, "must not be empty")
	}
	return name, nil
}
