package app

import (
	"fmt"
	"time"

	"github.com/godilite/helpdesk-kpi/internal/config"
	"github.com/godilite/helpdesk-kpi/internal/csat"
	"github.com/godilite/helpdesk-kpi/internal/fetch"
	"github.com/godilite/helpdesk-kpi/internal/ingest"
	"github.com/godilite/helpdesk-kpi/internal/kpi"
	"github.com/godilite/helpdesk-kpi/internal/repository"
	"github.com/godilite/helpdesk-kpi/internal/service"
	"go.uber.org/zap"
)

// NewDashboard wires fetcher, loader, repository and service from config.
// Only malformed configuration is an error; unreachable sources are not.
func NewDashboard(cfg *config.Config, logger *zap.Logger) (*service.DashboardService, error) {
	strategy, err := csat.ParseStrategy(cfg.ScoreStrategy)
	if err != nil {
		return nil, fmt.Errorf("SCORE_STRATEGY: %w", err)
	}
	base, err := kpi.ParseTimeBase(cfg.DefaultTimeBase)
	if err != nil {
		return nil, fmt.Errorf("KPI_TIME_BASE: %w", err)
	}
	stat, err := kpi.ParseStat(cfg.DefaultAggregate)
	if err != nil {
		return nil, fmt.Errorf("KPI_AGGREGATE: %w", err)
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("KPI_TIMEZONE: %w", err)
	}

	fetcher := fetch.New(
		fetch.WithTimeout(cfg.HTTPTimeout),
		fetch.WithLogger(logger),
	)
	loader := ingest.NewLoader(logger,
		ingest.WithLocation(loc),
		ingest.WithRatingHeader(cfg.SurveyRatingHeader, cfg.SurveyRatingFallback),
	)
	repo := repository.NewSourceRepository(fetcher, loader, logger,
		repository.WithOperational(repository.Source{URL: cfg.Operational.URL, Token: cfg.Operational.Token}),
		repository.WithSurvey(repository.Source{URL: cfg.Survey.URL, Token: cfg.Survey.Token}),
		repository.WithTokenHeader(cfg.SourceTokenHeader),
		repository.WithTTL(cfg.SnapshotTTL),
	)

	if !cfg.Operational.Configured() {
		logger.Warn("OPERATIONAL_URL not set; ticket views will be empty")
	}
	if !cfg.Survey.Configured() {
		logger.Warn("SURVEY_URL not set; CSAT metrics will be empty")
	}

	return service.NewDashboardService(repo, logger.Named("dashboard"),
		service.WithRanker(csat.NewRanker(cfg.SurveyTopLabel, cfg.SurveySecondLabel)),
		service.WithScoreParser(csat.NewScoreParser(strategy)),
		service.WithDefaults(base, stat),
	), nil
}
