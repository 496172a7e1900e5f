// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package schedule triggers the pipeline once a day at a wall-clock time,
// or at a fixed interval.
package schedule

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// ParseDaily converts "HH:MM" into a five-field cron spec that fires once a
// day at that time.
func ParseDaily(hhmm string) (string, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(hhmm), ":")
	if !ok {
		return "", fmt.Errorf("invalid daily time %q: want HH:MM", hhmm)
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid hour in %q", hhmm)
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 || len(m) != 2 {
		return "", fmt.Errorf("invalid minute in %q", hhmm)
	}
	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}

// Every returns a spec that fires at a fixed interval.
func Every(d time.Duration) (string, error) {
	if d < time.Minute {
		return "", fmt.Errorf("interval %s is shorter than one minute", d)
	}
	return "@every " + d.String(), nil
}

// Next reports when spec next fires after t.
func Next(spec string, t time.Time) (time.Time, error) {
	s, err := cron.ParseStandard(spec)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing schedule %q: %w", spec, err)
	}
	return s.Next(t), nil
}

// Runner wraps a cron scheduler running a single job. A trigger that
// fires while the previous run is still going is skipped.
type Runner struct {
	loc    *time.Location
	logger zerolog.Logger
}

// NewRunner returns a Runner evaluating specs in loc (time.Local when nil).
func NewRunner(loc *time.Location, logger zerolog.Logger) *Runner {
	if loc == nil {
		loc = time.Local
	}
	return &Runner{loc: loc, logger: logger}
}

// RunForever runs job on spec until ctx is cancelled. With runNow the job
// also runs once immediately. It waits for an in-flight job to finish
// before returning.
func (r *Runner) RunForever(ctx context.Context, spec string, runNow bool, job func(context.Context)) error {
	clog := cronLogger{r.logger}
	c := cron.New(
		cron.WithLocation(r.loc),
		cron.WithLogger(clog),
		cron.WithChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)),
	)
	wrapped := cron.FuncJob(func() { job(ctx) })
	id, err := c.AddJob(spec, wrapped)
	if err != nil {
		return fmt.Errorf("parsing schedule %q: %w", spec, err)
	}

	if runNow {
		r.logger.Info().Msg("running immediately")
		c.Entry(id).WrappedJob.Run()
	}

	c.Start()
	r.logger.Info().Str("spec", spec).Time("next", c.Entry(id).Next).Msg("scheduler started")

	<-ctx.Done()
	r.logger.Info().Msg("scheduler stopping")
	<-c.Stop().Done()
	return nil
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
