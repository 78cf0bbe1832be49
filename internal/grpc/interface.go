package grpc

import (
	"context"
	"time"

	"github.com/godilite/helpdesk-kpi/internal/kpi"
	"github.com/godilite/helpdesk-kpi/internal/service"
)

// Cacher defines the interface for cache operations.
type Cacher interface {
	Close() error
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
}

type DashboardService interface {
	GetOverview(ctx context.Context, f kpi.Filter) (service.Overview, error)
	GetAnalystSummary(ctx context.Context, f kpi.Filter) (service.AnalystSummary, error)
	GetTimeSeries(ctx context.Context, f kpi.Filter) (service.TimeSeries, error)
	GetCSATBreakdown(ctx context.Context, f kpi.Filter) (service.CSATBreakdown, error)
	GetRawTable(ctx context.Context, f kpi.Filter, limit int) (service.RawTable, error)
	GetDailyIndividual(ctx context.Context, f kpi.Filter) (service.DailySummary, error)
}
