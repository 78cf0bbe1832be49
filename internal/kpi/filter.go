package kpi

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/godilite/helpdesk-kpi/internal/repository/models"
)

// DayLayout is the key format of per-day scopes.
const DayLayout = "2006-01-02"

// TimeBase selects which ticket timestamp drives date filtering and
// per-day grouping.
type TimeBase string

const (
	TimeBaseCreated   TimeBase = "created"
	TimeBaseCompleted TimeBase = "completed"
)

// Stat selects the central tendency used for duration KPIs.
type Stat string

const (
	StatMean   Stat = "mean"
	StatMedian Stat = "median"
)

var (
	ErrInvalidRange    = errors.New("end date is before start date")
	ErrInvalidTimeBase = errors.New("unknown time base")
	ErrInvalidStat     = errors.New("unknown aggregate")
)

func ParseTimeBase(s string) (TimeBase, error) {
	switch TimeBase(strings.ToLower(strings.TrimSpace(s))) {
	case TimeBaseCreated:
		return TimeBaseCreated, nil
	case TimeBaseCompleted:
		return TimeBaseCompleted, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidTimeBase, s)
	}
}

func ParseStat(s string) (Stat, error) {
	switch Stat(strings.ToLower(strings.TrimSpace(s))) {
	case StatMean, "average":
		return StatMean, nil
	case StatMedian:
		return StatMedian, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStat, s)
	}
}

// Filter is the request-scoped selection applied before aggregation.
// Start and End are inclusive calendar days; a zero value leaves that side
// open. An empty Analysts set selects everyone.
type Filter struct {
	Start     time.Time
	End       time.Time
	Analysts  []string
	TimeBase  TimeBase
	Aggregate Stat
}

// Validate rejects inverted ranges and unknown modes.
func (f Filter) Validate() error {
	if !f.Start.IsZero() && !f.End.IsZero() && dayKey(f.End) < dayKey(f.Start) {
		return ErrInvalidRange
	}
	if _, err := ParseTimeBase(string(f.TimeBase)); err != nil {
		return err
	}
	if _, err := ParseStat(string(f.Aggregate)); err != nil {
		return err
	}
	return nil
}

// Timestamp returns the ticket time selected by the time base.
func (f Filter) Timestamp(t models.Ticket) time.Time {
	if f.TimeBase == TimeBaseCompleted {
		return t.CompletedAt
	}
	return t.CreatedAt
}

// Match reports whether a ticket falls inside the filter. Tickets without a
// timestamp only match when no date range is set.
func (f Filter) Match(t models.Ticket) bool {
	if len(f.Analysts) > 0 && !contains(f.Analysts, AnalystKey(t.Analyst)) {
		return false
	}
	if f.Start.IsZero() && f.End.IsZero() {
		return true
	}
	ts := f.Timestamp(t)
	if ts.IsZero() {
		return false
	}
	day := dayKey(ts)
	if !f.Start.IsZero() && day < dayKey(f.Start) {
		return false
	}
	if !f.End.IsZero() && day > dayKey(f.End) {
		return false
	}
	return true
}

// Apply returns the rows matching the filter, in input order.
func (f Filter) Apply(rows []models.JoinedTicket) []models.JoinedTicket {
	out := make([]models.JoinedTicket, 0, len(rows))
	for _, r := range rows {
		if f.Match(r.Ticket) {
			out = append(out, r)
		}
	}
	return out
}

func dayKey(t time.Time) string {
	return t.Format(DayLayout)
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
