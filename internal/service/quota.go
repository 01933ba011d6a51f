package service

import (
	"context"
	"fmt"
	"time"
)

type PushCounter interface {
	CountMonthlyPushes(ctx context.Context, from, to time.Time) (int64, error)
}

type Usage struct {
	Used    int64
	Limit   int64
	Percent int
}

// Quota tracks successful outbound pushes against the monthly cap. Usage is
// derived from committed delivery-log rows in the current UTC calendar month,
// so nothing is double-counted across restarts.
type Quota struct {
	counter     PushCounter
	limit       int64
	warnPercent int
	now         func() time.Time
}

func NewQuota(counter PushCounter, limit int64, warnPercent int) *Quota {
	return &Quota{
		counter:     counter,
		limit:       limit,
		warnPercent: warnPercent,
		now:         time.Now,
	}
}

func (q *Quota) CanSendPush(ctx context.Context) (bool, error) {
	u, err := q.Usage(ctx)
	if err != nil {
		return false, err
	}
	return u.Used < u.Limit, nil
}

func (q *Quota) Usage(ctx context.Context) (Usage, error) {
	from, to := monthWindow(q.now().UTC())
	used, err := q.counter.CountMonthlyPushes(ctx, from, to)
	if err != nil {
		return Usage{}, fmt.Errorf("count monthly pushes: %w", err)
	}
	u := Usage{Used: used, Limit: q.limit}
	if q.limit > 0 {
		u.Percent = int(used * 100 / q.limit)
	}
	return u, nil
}

// InWarning reports whether usage crossed the alerting threshold. It never
// blocks sends by itself.
func (q *Quota) InWarning(u Usage) bool {
	return u.Percent >= q.warnPercent
}

func monthWindow(now time.Time) (time.Time, time.Time) {
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0)
}
