package sweep

import (
	"context"
	"time"
)

// Schedule fires the sweeper once a day at a fixed local hour.
type Schedule struct {
	sweeper *Sweeper
	hour    int
	loc     *time.Location
}

func NewSchedule(sweeper *Sweeper, hour int, timezone string) (*Schedule, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, err
	}

	return &Schedule{sweeper: sweeper, hour: hour, loc: loc}, nil
}

// next returns the first instant at the configured hour strictly after now.
func (s *Schedule) next(now time.Time) time.Time {
	local := now.In(s.loc)
	fire := time.Date(local.Year(), local.Month(), local.Day(), s.hour, 0, 0, 0, s.loc)

	if !fire.After(now) {
		fire = fire.AddDate(0, 0, 1)
	}

	return fire
}

// Run blocks, sweeping daily until the context is cancelled. Individual
// sweep failures are logged by the sweeper and never stop the schedule.
func (s *Schedule) Run(ctx context.Context) {
	for {
		now := time.Now()
		timer := time.NewTimer(s.next(now).Sub(now))

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case fired := <-timer.C:
			if _, err := s.sweeper.Sweep(ctx, fired); err != nil {
				s.sweeper.log.Error(ctx, "sweep pass failed", "error", err)
			}
		}
	}
}
