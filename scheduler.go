package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gorhill/cronexpr"
)

// pollInterval is how often the scheduler checks whether the daily slot has
// come due.
const pollInterval = 10 * time.Second

// Scheduler fires a job once per day at a configured hour and minute. The
// last-run date guard keeps a slot from firing twice even when polling
// overlaps it repeatedly.
type Scheduler struct {
	expr        *cronexpr.Expression
	log         *StatusLog
	lastRunDate string
}

// NewScheduler builds a daily scheduler for the given local time.
func NewScheduler(hour, minute int, log *StatusLog) (*Scheduler, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return nil, fmt.Errorf("invalid schedule %02d:%02d", hour, minute)
	}
	expr, err := cronexpr.Parse(fmt.Sprintf("%d %d * * *", minute, hour))
	if err != nil {
		return nil, fmt.Errorf("parsing schedule: %w", err)
	}
	return &Scheduler{expr: expr, log: log}, nil
}

// Next returns the next firing time after now.
func (s *Scheduler) Next(now time.Time) time.Time {
	return s.expr.Next(now)
}

func (s *Scheduler) due(now time.Time) bool {
	today := now.Format("2006-01-02")
	if s.lastRunDate == today {
		return false
	}
	// Due when the slot landed inside the last polling window.
	next := s.expr.Next(now.Add(-pollInterval))
	return !next.After(now)
}

// Run polls until the context is cancelled, invoking job once per due slot.
// Job errors are logged, not fatal; the scheduler keeps going.
func (s *Scheduler) Run(ctx context.Context, job func(context.Context) error) error {
	s.log.Logger().Infof("scheduler armed, next run %s", s.Next(time.Now()).Format(time.RFC3339))

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if !s.due(now) {
				continue
			}
			s.lastRunDate = now.Format("2006-01-02")
			s.log.Successf("scheduler", "scheduler", "daily run starting")
			if err := job(ctx); err != nil {
				s.log.Errorf("scheduler", "scheduler", "daily run failed: %v", err)
			} else {
				s.log.Successf("scheduler", "scheduler", "daily run complete, next %s",
					s.Next(time.Now()).Format(time.RFC3339))
			}
		}
	}
}
