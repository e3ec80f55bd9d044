// Package round runs the background timeline of a match: the hide phase, the
// per-hidder hunt windows, winner declaration and the between-rounds reset.
package round

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"hideseek/internal/session"
)

// Config carries the round timings. Production values are 30s/45s/250ms/5s;
// tests shrink them to milliseconds.
type Config struct {
	HideDelay   time.Duration
	CatchWindow time.Duration
	PollEvery   time.Duration
	EndGrace    time.Duration
}

// Scheduler enforces phase deadlines against the shared session. It never
// touches sockets: it mutates state through the session's synchronized
// operations and pings the notify hook so the owner can broadcast.
type Scheduler struct {
	cfg  Config
	sess *session.Session
	log  *zap.SugaredLogger

	notify     func() // called after scheduler-driven state changes; may be nil
	onRoundEnd func() // replaces the in-memory reset when set (process restart)

	startOnce sync.Once
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithNotify installs a hook invoked after every scheduler-driven state
// change, typically a broadcast of the fresh snapshot.
func WithNotify(fn func()) Option {
	return func(s *Scheduler) { s.notify = fn }
}

// WithRoundEnd replaces the default in-memory reset with a custom action run
// after the end-of-round grace delay, such as terminating the process.
func WithRoundEnd(fn func()) Option {
	return func(s *Scheduler) { s.onRoundEnd = fn }
}

func New(cfg Config, sess *session.Session, log *zap.SugaredLogger, opts ...Option) *Scheduler {
	s := &Scheduler{cfg: cfg, sess: sess, log: log}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the scheduler goroutine. The first call schedules the hide
// phase; later calls are no-ops, so the accept loop can call it on the final
// connection without guarding.
func (s *Scheduler) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		start := time.Now().Add(s.cfg.HideDelay).UnixMilli()
		s.sess.SetRoundStart(start)
		s.log.Infow("party complete, hide phase begins",
			"round_start_ms", start, "hide_delay", s.cfg.HideDelay)
		s.ping()
		go s.run(ctx)
	})
}

func (s *Scheduler) run(ctx context.Context) {
	for {
		if !s.runRound(ctx) {
			return
		}
		if !s.sleep(ctx, s.cfg.EndGrace) {
			return
		}
		if s.onRoundEnd != nil {
			s.onRoundEnd()
			return
		}
		start := time.Now().Add(s.cfg.HideDelay).UnixMilli()
		s.sess.ResetForNewRound(start)
		s.log.Infow("session reset, new round scheduled", "round_start_ms", start)
		s.ping()
	}
}

// runRound drives one round to completion. Returns false when the context
// was cancelled and the scheduler should stop for good.
func (s *Scheduler) runRound(ctx context.Context) (alive bool) {
	defer func() {
		// The scheduler must never die silently mid-match. A panic is logged
		// and stops the timeline; the round may stick, but the failure is
		// observable.
		if r := recover(); r != nil {
			s.log.Errorw("round scheduler panicked", "panic", r)
			alive = false
		}
	}()

	startMs, ok := s.sess.RoundStart()
	if !ok {
		s.log.Errorw("scheduler started without a round start")
		return false
	}

	// Hide phase: nothing to enforce, just wait out the clock.
	for time.Now().UnixMilli() < startMs {
		if !s.sleep(ctx, s.cfg.PollEvery) {
			return false
		}
	}
	s.log.Infow("hide phase over, hunt begins")

	for hid := 1; hid < s.sess.NumPlayers(); hid++ {
		if _, won := s.sess.Winner(); won {
			break
		}
		if s.sess.Frozen(hid) {
			s.log.Infow("hidder already frozen, skipping window", "hidder", hid)
			continue
		}

		s.log.Infow("catch window open", "hidder", hid, "window", s.cfg.CatchWindow)
		deadline := time.Now().Add(s.cfg.CatchWindow)
		timedOut := true
		for time.Now().Before(deadline) {
			if s.sess.Frozen(hid) {
				s.log.Infow("hidder caught within window", "hidder", hid)
				timedOut = false
				break
			}
			if _, won := s.sess.Winner(); won {
				timedOut = false
				break
			}
			if !s.sleep(ctx, s.cfg.PollEvery) {
				return false
			}
		}

		if timedOut {
			if s.sess.SetWinner(hid) {
				s.log.Infow("hidder outlasted the seeker", "winner", hid)
				s.ping()
			}
			break
		}
	}

	if _, won := s.sess.Winner(); !won {
		// Normal completion sets winner 0 inside TryCatch when the last
		// hidder freezes, so reaching this point means the phase accounting
		// disagrees with the frozen flags. Keep the legacy seeker-win
		// fallback but make the anomaly visible.
		s.log.Warnw("hunt loop ended with no winner, declaring seeker by fallback")
		s.sess.SetWinner(0)
		s.ping()
	}

	if w, won := s.sess.Winner(); won {
		s.log.Infow("round over", "winner", w, "role", session.RoleOf(w))
	}
	return ctx.Err() == nil
}

func (s *Scheduler) ping() {
	if s.notify != nil {
		s.notify()
	}
}

// sleep waits for d or until the context is cancelled, reporting whether the
// scheduler should keep running.
func (s *Scheduler) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
