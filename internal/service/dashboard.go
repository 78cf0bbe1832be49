package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/godilite/helpdesk-kpi/internal/csat"
	"github.com/godilite/helpdesk-kpi/internal/kpi"
	"github.com/godilite/helpdesk-kpi/internal/metrics"
	"github.com/godilite/helpdesk-kpi/internal/repository/models"
	"go.uber.org/zap"
)

const (
	loadTimeout = 40 * time.Second
	timeLayout  = "2006-01-02 15:04:05"
)

var (
	ErrNoData        = errors.New("no data for the selected filter")
	ErrInvalidFilter = errors.New("invalid filter")
	ErrSourceFailure = errors.New("source failure")
)

// DashboardService builds the dashboard views from the two sources.
type DashboardService struct {
	repo   SourceRepository
	logger *zap.Logger

	ranker      csat.Ranker
	scorer      csat.ScoreParser
	defaultBase kpi.TimeBase
	defaultStat kpi.Stat
}

type Option func(*DashboardService)

// WithRanker sets the labels used to pick the canonical survey answer.
func WithRanker(r csat.Ranker) Option {
	return func(s *DashboardService) { s.ranker = r }
}

func WithScoreParser(p csat.ScoreParser) Option {
	return func(s *DashboardService) { s.scorer = p }
}

// WithDefaults sets the time base and aggregate used when a filter leaves
// them empty.
func WithDefaults(base kpi.TimeBase, stat kpi.Stat) Option {
	return func(s *DashboardService) {
		if base != "" {
			s.defaultBase = base
		}
		if stat != "" {
			s.defaultStat = stat
		}
	}
}

// NewDashboardService creates a new DashboardService instance.
func NewDashboardService(repo SourceRepository, logger *zap.Logger, opts ...Option) *DashboardService {
	if repo == nil {
		panic("repository must not be nil")
	}
	if logger == nil {
		l, _ := zap.NewProduction()
		logger = l
	}
	s := &DashboardService{
		repo:        repo,
		logger:      logger,
		ranker:      csat.NewRanker("Ótimo", "Bom"),
		scorer:      csat.NewScoreParser(csat.StrategyFirstDigit),
		defaultBase: kpi.TimeBaseCreated,
		defaultStat: kpi.StatMean,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Joined returns every ticket with its canonical survey answer attached.
func (s *DashboardService) Joined(ctx context.Context) ([]models.JoinedTicket, error) {
	loadCtx, cancel := context.WithTimeout(ctx, loadTimeout)
	defer cancel()

	tickets, err := s.repo.GetTickets(loadCtx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceFailure, err)
	}
	surveys, err := s.repo.GetSurveys(loadCtx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceFailure, err)
	}

	canonical, dropped := csat.Deduplicate(surveys, s.ranker)
	metrics.SurveyDuplicatesDropped.Set(float64(dropped))
	if dropped > 0 {
		s.logger.Debug("survey duplicates collapsed", zap.Int("dropped", dropped), zap.Int("kept", len(canonical)))
	}

	return csat.Join(tickets, canonical, s.scorer), nil
}

// prepare fills filter defaults, validates it and returns the matching rows.
func (s *DashboardService) prepare(ctx context.Context, f kpi.Filter) (kpi.Filter, []models.JoinedTicket, error) {
	if f.TimeBase == "" {
		f.TimeBase = s.defaultBase
	}
	if f.Aggregate == "" {
		f.Aggregate = s.defaultStat
	}
	if err := f.Validate(); err != nil {
		return f, nil, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}

	joined, err := s.Joined(ctx)
	if err != nil {
		return f, nil, err
	}
	rows := f.Apply(joined)
	if len(rows) == 0 {
		return f, nil, ErrNoData
	}
	return f, rows, nil
}

// GetOverview returns the team KPIs with the per-category split.
func (s *DashboardService) GetOverview(ctx context.Context, f kpi.Filter) (Overview, error) {
	f, rows, err := s.prepare(ctx, f)
	if err != nil {
		return Overview{}, err
	}
	r := kpi.Compute(rows, f)

	s.logger.Info("computed overview",
		zap.Int("tickets", r.Team.Tickets),
		zap.String("time_base", string(f.TimeBase)),
		zap.String("aggregate", string(f.Aggregate)))

	return Overview{
		Scope:      scopeOf(f),
		Team:       r.Team,
		Analysts:   kpi.SortedKeys(r.ByAnalyst),
		Categories: named(r.ByCategory),
	}, nil
}

// GetAnalystSummary returns one KPI set per analyst, sorted by name.
func (s *DashboardService) GetAnalystSummary(ctx context.Context, f kpi.Filter) (AnalystSummary, error) {
	f, rows, err := s.prepare(ctx, f)
	if err != nil {
		return AnalystSummary{}, err
	}
	r := kpi.Compute(rows, f)
	return AnalystSummary{Scope: scopeOf(f), Analysts: named(r.ByAnalyst)}, nil
}

// GetTimeSeries returns one KPI set per day of the time base, oldest first.
func (s *DashboardService) GetTimeSeries(ctx context.Context, f kpi.Filter) (TimeSeries, error) {
	f, rows, err := s.prepare(ctx, f)
	if err != nil {
		return TimeSeries{}, err
	}
	r := kpi.Compute(rows, f)

	points := make([]DayPoint, 0, len(r.ByDay))
	for _, day := range kpi.SortedKeys(r.ByDay) {
		points = append(points, DayPoint{Day: day, Metrics: r.ByDay[day]})
	}
	return TimeSeries{Scope: scopeOf(f), Points: points}, nil
}

// GetCSATBreakdown returns the score distribution and CSAT per analyst and
// category.
func (s *DashboardService) GetCSATBreakdown(ctx context.Context, f kpi.Filter) (CSATBreakdown, error) {
	f, rows, err := s.prepare(ctx, f)
	if err != nil {
		return CSATBreakdown{}, err
	}
	r := kpi.Compute(rows, f)

	return CSATBreakdown{
		Scope:        scopeOf(f),
		Distribution: kpi.ScoreDistribution(rows),
		Scored:       r.Team.Scored,
		Satisfied:    r.Team.Satisfied,
		CSATPct:      r.Team.CSATPct,
		SurveysSent:  r.Team.SurveysSent,
		ResponsePct:  r.Team.ResponsePct,
		ByAnalyst:    named(r.ByAnalyst),
		ByCategory:   named(r.ByCategory),
	}, nil
}

// GetRawTable returns the filtered joined rows in source order. A limit of
// zero or less returns every row.
func (s *DashboardService) GetRawTable(ctx context.Context, f kpi.Filter, limit int) (RawTable, error) {
	f, rows, err := s.prepare(ctx, f)
	if err != nil {
		return RawTable{}, err
	}

	total := len(rows)
	if limit > 0 && limit < total {
		rows = rows[:limit]
	}
	out := make([]RawRow, len(rows))
	for i, r := range rows {
		out[i] = rawRow(r)
	}
	return RawTable{Scope: scopeOf(f), Total: total, Rows: out}, nil
}

// GetDailyIndividual restricts the filter to the most recent day with data
// and returns the KPIs of every analyst active on it.
func (s *DashboardService) GetDailyIndividual(ctx context.Context, f kpi.Filter) (DailySummary, error) {
	f, rows, err := s.prepare(ctx, f)
	if err != nil {
		return DailySummary{}, err
	}

	day, ok := kpi.LatestDay(rows, f.TimeBase)
	if !ok {
		return DailySummary{}, ErrNoData
	}
	f.Start, f.End = day, day
	r := kpi.Compute(rows, f)

	return DailySummary{
		Scope:    scopeOf(f),
		Day:      day.Format(kpi.DayLayout),
		Team:     r.Team,
		Analysts: named(r.ByAnalyst),
	}, nil
}

func scopeOf(f kpi.Filter) Scope {
	sc := Scope{
		Analysts:  f.Analysts,
		TimeBase:  string(f.TimeBase),
		Aggregate: string(f.Aggregate),
	}
	if !f.Start.IsZero() {
		sc.Start = f.Start.Format(kpi.DayLayout)
	}
	if !f.End.IsZero() {
		sc.End = f.End.Format(kpi.DayLayout)
	}
	return sc
}

func named(m map[string]kpi.Metrics) []NamedMetrics {
	out := make([]NamedMetrics, 0, len(m))
	for _, k := range kpi.SortedKeys(m) {
		out = append(out, NamedMetrics{Name: k, Metrics: m[k]})
	}
	return out
}

func rawRow(r models.JoinedTicket) RawRow {
	row := RawRow{
		TicketID:             r.ID,
		Analyst:              kpi.AnalystKey(r.Analyst),
		FirstResponse:        r.FirstResponse,
		SecondResponse:       r.SecondResponse,
		Resolution:           r.Resolution,
		SLAFirstExpired:      r.SLAFirstExpired.String(),
		SLAResolutionExpired: r.SLAResolutionExpired.String(),
		Category:             r.Category,
		SurveySent:           r.SurveySent.String(),
		Score:                r.Score,
	}
	if !r.CreatedAt.IsZero() {
		row.CreatedAt = r.CreatedAt.Format(timeLayout)
	}
	if !r.CompletedAt.IsZero() {
		row.CompletedAt = r.CompletedAt.Format(timeLayout)
	}
	if r.Survey != nil {
		row.Rating = r.Survey.Rating
	}
	return row
}
