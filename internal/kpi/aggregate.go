// Package kpi computes ratio and duration indicators over joined tickets,
// for the whole team and per analyst, day and category.
package kpi

import (
	"math"
	"sort"
	"time"

	"github.com/godilite/helpdesk-kpi/internal/repository/models"
)

// Unassigned is the scope key of tickets without an analyst.
const Unassigned = "(unassigned)"

// satisfiedFrom is the lowest score counted as satisfied.
const satisfiedFrom = 4

// Metrics is the KPI set of one scope, with the raw counts behind each ratio.
type Metrics struct {
	Tickets          int     `json:"tickets"`
	SLAFirstMet      int     `json:"sla_first_met"`
	SLAFirstPct      float64 `json:"sla_first_pct"`
	SLAResolutionMet int     `json:"sla_resolution_met"`
	SLAResolutionPct float64 `json:"sla_resolution_pct"`

	// Duration KPIs in minutes, over tickets carrying the value.
	TME float64 `json:"tme_minutes"`
	TMA float64 `json:"tma_minutes"`
	TMR float64 `json:"tmr_minutes"`

	Scored    int     `json:"scored"`
	Satisfied int     `json:"satisfied"`
	CSATPct   float64 `json:"csat_pct"`

	SurveysSent int     `json:"surveys_sent"`
	ResponsePct float64 `json:"response_pct"`
}

// Report holds the metrics of every scope.
type Report struct {
	Team       Metrics            `json:"team"`
	ByAnalyst  map[string]Metrics `json:"by_analyst"`
	ByDay      map[string]Metrics `json:"by_day"`
	ByCategory map[string]Metrics `json:"by_category"`
}

type accumulator struct {
	m             Metrics
	tme, tma, tmr []float64
}

func (a *accumulator) add(r models.JoinedTicket) {
	a.m.Tickets++
	if r.SLAFirstExpired == models.FlagNo {
		a.m.SLAFirstMet++
	}
	if r.SLAResolutionExpired == models.FlagNo {
		a.m.SLAResolutionMet++
	}
	if r.FirstResponse != nil {
		a.tme = append(a.tme, *r.FirstResponse)
	}
	if r.SecondResponse != nil {
		a.tma = append(a.tma, *r.SecondResponse)
	}
	if r.Resolution != nil {
		a.tmr = append(a.tmr, *r.Resolution)
	}
	if r.Score != nil {
		a.m.Scored++
		if *r.Score >= satisfiedFrom {
			a.m.Satisfied++
		}
	}
	if r.SurveySent == models.FlagYes {
		a.m.SurveysSent++
	}
}

func (a *accumulator) finish(stat Stat) Metrics {
	m := a.m
	m.SLAFirstPct = Percent(m.SLAFirstMet, m.Tickets)
	m.SLAResolutionPct = Percent(m.SLAResolutionMet, m.Tickets)
	m.CSATPct = Percent(m.Satisfied, m.Scored)
	m.ResponsePct = Percent(m.Scored, m.SurveysSent)
	m.TME = Reduce(a.tme, stat)
	m.TMA = Reduce(a.tma, stat)
	m.TMR = Reduce(a.tmr, stat)
	return m
}

// Summarize computes the metrics of rows as a single scope.
func Summarize(rows []models.JoinedTicket, stat Stat) Metrics {
	var a accumulator
	for _, r := range rows {
		a.add(r)
	}
	return a.finish(stat)
}

// Compute filters rows and aggregates them per team, analyst, day and
// category. Rows without a timestamp in the time base are left out of ByDay.
func Compute(rows []models.JoinedTicket, f Filter) Report {
	stat := f.Aggregate
	if stat == "" {
		stat = StatMean
	}

	var team accumulator
	byAnalyst := map[string]*accumulator{}
	byDay := map[string]*accumulator{}
	byCategory := map[string]*accumulator{}

	for _, r := range rows {
		if !f.Match(r.Ticket) {
			continue
		}
		team.add(r)
		bucket(byAnalyst, AnalystKey(r.Analyst)).add(r)
		if cat := r.Category; cat != "" {
			bucket(byCategory, cat).add(r)
		}
		if ts := f.Timestamp(r.Ticket); !ts.IsZero() {
			bucket(byDay, dayKey(ts)).add(r)
		}
	}

	return Report{
		Team:       team.finish(stat),
		ByAnalyst:  finishAll(byAnalyst, stat),
		ByDay:      finishAll(byDay, stat),
		ByCategory: finishAll(byCategory, stat),
	}
}

// AnalystKey is the scope key used for an analyst name.
func AnalystKey(name string) string {
	if name == "" {
		return Unassigned
	}
	return name
}

// LatestDay returns the most recent calendar day present in the time base.
func LatestDay(rows []models.JoinedTicket, base TimeBase) (time.Time, bool) {
	f := Filter{TimeBase: base}
	var latest time.Time
	for _, r := range rows {
		if ts := f.Timestamp(r.Ticket); ts.After(latest) {
			latest = ts
		}
	}
	if latest.IsZero() {
		return time.Time{}, false
	}
	y, m, d := latest.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, latest.Location()), true
}

// ScoreDistribution counts answers per score 1..5.
func ScoreDistribution(rows []models.JoinedTicket) map[int]int {
	out := make(map[int]int, 5)
	for s := 1; s <= 5; s++ {
		out[s] = 0
	}
	for _, r := range rows {
		if r.Score != nil {
			out[*r.Score]++
		}
	}
	return out
}

// SortedKeys returns the keys of a scope map in ascending order.
func SortedKeys(m map[string]Metrics) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Percent is num/den*100, or 0 when den is 0.
func Percent(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den) * 100
}

// Reduce applies stat to values; no data yields 0 rather than NaN.
func Reduce(values []float64, stat Stat) float64 {
	var v float64
	if stat == StatMedian {
		v = median(values)
	} else {
		v = mean(values)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	s := append([]float64(nil), values...)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}

func bucket(m map[string]*accumulator, key string) *accumulator {
	a, ok := m[key]
	if !ok {
		a = &accumulator{}
		m[key] = a
	}
	return a
}

func finishAll(m map[string]*accumulator, stat Stat) map[string]Metrics {
	out := make(map[string]Metrics, len(m))
	for k, a := range m {
		out[k] = a.finish(stat)
	}
	return out
}
