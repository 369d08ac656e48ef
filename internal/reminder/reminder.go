// Package reminder runs the scheduled background passes: urgency cache
// refresh and upcoming-event digests.
package reminder

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ellsworth/pantry/internal/events"
	"github.com/ellsworth/pantry/internal/models"
	"github.com/ellsworth/pantry/internal/notice"
	"github.com/ellsworth/pantry/internal/notify"
	"github.com/ellsworth/pantry/internal/urgency"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// NextCronDuration parses a 5-field cron expression and returns the duration
// until the next fire time. Returns 0 on parse error.
func NextCronDuration(expr string, now time.Time) time.Duration {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return 0
	}
	d := sched.Next(now).Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// Opts holds configuration for the reminder loop.
type Opts struct {
	DB          *gorm.DB
	Notifier    *notify.Fanout
	DigestCron  string
	UrgencyCron string
	Lookahead   time.Duration
	Out         io.Writer
}

// Run executes scheduled passes until ctx is cancelled. Each schedule fires
// independently; a failing pass is reported to Out and the loop keeps going.
func Run(ctx context.Context, opts Opts) error {
	if opts.DB == nil {
		return fmt.Errorf("reminder: db is required")
	}
	if opts.DigestCron == "" || opts.UrgencyCron == "" {
		return fmt.Errorf("reminder: digest and urgency cron expressions are required")
	}
	if _, err := cronParser.Parse(opts.DigestCron); err != nil {
		return fmt.Errorf("reminder: digest cron %q: %w", opts.DigestCron, err)
	}
	if _, err := cronParser.Parse(opts.UrgencyCron); err != nil {
		return fmt.Errorf("reminder: urgency cron %q: %w", opts.UrgencyCron, err)
	}
	if opts.Lookahead <= 0 {
		opts.Lookahead = 3 * 24 * time.Hour
	}

	digestTimer := time.NewTimer(NextCronDuration(opts.DigestCron, time.Now()))
	urgencyTimer := time.NewTimer(NextCronDuration(opts.UrgencyCron, time.Now()))
	defer digestTimer.Stop()
	defer urgencyTimer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-digestTimer.C:
			if err := SendDigest(opts.DB, opts.Notifier, time.Now(), opts.Lookahead); err != nil {
				report(opts.Out, "digest: %v", err)
			}
			digestTimer.Reset(NextCronDuration(opts.DigestCron, time.Now()))
		case <-urgencyTimer.C:
			if _, err := urgency.Recompute(opts.DB, time.Now()); err != nil {
				report(opts.Out, "urgency refresh: %v", err)
			}
			urgencyTimer.Reset(NextCronDuration(opts.UrgencyCron, time.Now()))
		}
	}
}

// SendDigest notifies confirmed helpers about events starting within the
// lookahead window, and announces the digest to the chat channels.
func SendDigest(db *gorm.DB, notifier *notify.Fanout, now time.Time, lookahead time.Duration) error {
	upcoming, err := events.Upcoming(db, now, lookahead)
	if err != nil {
		return err
	}
	if len(upcoming) == 0 {
		return nil
	}

	var summary strings.Builder
	for _, event := range upcoming {
		line := fmt.Sprintf("%s %s at %s", event.EventType, event.ID,
			event.EventStart.Format("Mon Jan 2 15:04"))
		fmt.Fprintln(&summary, line)

		var signups []models.Signup
		if err := db.Where("event_id = ? AND status = ?", event.ID, models.SignupConfirmed).
			Find(&signups).Error; err != nil {
			return fmt.Errorf("reminder: load signups for %s: %w", event.ID, err)
		}
		for _, s := range signups {
			if _, err := notice.Send(db, s.HelperID, models.NoticeDigest,
				"Upcoming event reminder", line); err != nil {
				return err
			}
		}
	}

	if notifier != nil {
		msg := notify.Message{
			Title:    fmt.Sprintf("%d upcoming events", len(upcoming)),
			Body:     summary.String(),
			Severity: notify.SeverityInfo,
		}
		if err := notifier.Send(context.Background(), msg); err != nil {
			return err
		}
	}
	return nil
}

func report(out io.Writer, format string, args ...interface{}) {
	if out != nil {
		fmt.Fprintf(out, "reminder: "+format+"\n", args...)
	}
}
