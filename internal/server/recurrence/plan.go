// Package recurrence computes the bounded list of future run times of a
// cron schedule inside a reporting window.
package recurrence

import (
	"time"

	"github.com/dmitrijs2005/accounts/internal/common"
	"github.com/robfig/cron/v3"
)

// parser accepts the standard five fields plus descriptors such as @daily.
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Spec is the part of a schedule the planner reads.
type Spec struct {
	Cron        *string
	ActiveFrom  time.Time
	ActiveUntil *time.Time
	// Repeat counts runs beyond the first; nil means unbounded.
	Repeat *int
}

// Plan returns, in order, the occurrences of s.Cron that fall in w.
//
// Scanning starts at the later of s.ActiveFrom and the window start, an
// occurrence exactly at that instant included. Taking the first match
// strictly after the start, as croniter does, would drop the midnight run of
// a daily schedule activated at midnight: repeat 2 from March 1 would plan
// the 2nd to the 4th. Listings must show the 1st to the 3rd.
//
// The scan stops at the first occurrence whose date is outside w, at the
// first one not before s.ActiveUntil, or once Repeat+1 occurrences were
// collected. A nil or empty cron yields an empty plan. A negative Repeat is
// a validation error on "repeat", an unparsable cron one on "cron".
func Plan(s Spec, w Window) ([]time.Time, error) {
	if s.Repeat != nil && *s.Repeat < 0 {
		return nil, common.Validation("repeat", "must not be negative")
	}

	out := []time.Time{}
	if s.Cron == nil || *s.Cron == "" || w.Len() == 0 {
		return out, nil
	}

	sched, err := parser.Parse(*s.Cron)
	if err != nil {
		return nil, common.Validation("cron", err.Error())
	}

	start := w.Start()
	if s.ActiveFrom.After(start) {
		start = s.ActiveFrom
	}
	start = start.In(w.loc)

	// Next returns the first activation strictly after its argument, so
	// stepping back by a nanosecond keeps a match at start itself.
	for t := sched.Next(start.Add(-time.Nanosecond)); !t.IsZero(); t = sched.Next(t) {
		if s.Repeat != nil && len(out) > *s.Repeat {
			break
		}
		if !w.Contains(t) {
			break
		}
		if s.ActiveUntil != nil && !t.Before(*s.ActiveUntil) {
			break
		}
		out = append(out, t)
	}
	return out, nil
}
