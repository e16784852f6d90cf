package scheduler

import (
	"context"
	"time"
)

// SessionCleaner removes expired auth sessions
type SessionCleaner interface {
	CleanupExpiredSessions(ctx context.Context) (int64, error)
}

// IdleSweeper closes quiz sessions idle for longer than a ttl
type IdleSweeper interface {
	SweepIdle(ttl time.Duration) int
}

// Sweeper drops stale entries, such as expired rate limit windows
type Sweeper interface {
	Sweep() int
}

// SessionCleanupJob deletes expired sessions every interval
func SessionCleanupJob(cleaner SessionCleaner, interval time.Duration) Job {
	return Job{
		Name:     "session-cleanup",
		Interval: interval,
		Run:      cleaner.CleanupExpiredSessions,
	}
}

// IdleQuizSweepJob closes quiz controllers idle for longer than ttl
func IdleQuizSweepJob(sweeper IdleSweeper, ttl, interval time.Duration) Job {
	return Job{
		Name:     "idle-quiz-sweep",
		Interval: interval,
		Run: func(context.Context) (int64, error) {
			return int64(sweeper.SweepIdle(ttl)), nil
		},
	}
}

// RateLimitSweepJob prunes rate limiter windows
func RateLimitSweepJob(sweeper Sweeper, interval time.Duration) Job {
	return Job{
		Name:     "rate-limit-sweep",
		Interval: interval,
		Run: func(context.Context) (int64, error) {
			return int64(sweeper.Sweep()), nil
		},
	}
}
