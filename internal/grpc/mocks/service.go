package mocks

import (
	"context"
	"errors"

	"github.com/godilite/helpdesk-kpi/internal/kpi"
	"github.com/godilite/helpdesk-kpi/internal/service"
)

// MockDashboardService is a mock implementation of the DashboardService interface
// for testing the handler layer. It uses function-based mocking for flexibility.
type MockDashboardService struct {
	GetOverviewFunc        func(ctx context.Context, f kpi.Filter) (service.Overview, error)
	GetAnalystSummaryFunc  func(ctx context.Context, f kpi.Filter) (service.AnalystSummary, error)
	GetTimeSeriesFunc      func(ctx context.Context, f kpi.Filter) (service.TimeSeries, error)
	GetCSATBreakdownFunc   func(ctx context.Context, f kpi.Filter) (service.CSATBreakdown, error)
	GetRawTableFunc        func(ctx context.Context, f kpi.Filter, limit int) (service.RawTable, error)
	GetDailyIndividualFunc func(ctx context.Context, f kpi.Filter) (service.DailySummary, error)
}

// GetOverview implements the DashboardService interface
func (m *MockDashboardService) GetOverview(ctx context.Context, f kpi.Filter) (service.Overview, error) {
	if m.GetOverviewFunc != nil {
		return m.GetOverviewFunc(ctx, f)
	}
	return service.Overview{}, errors.New("GetOverviewFunc not implemented")
}

// GetAnalystSummary implements the DashboardService interface
func (m *MockDashboardService) GetAnalystSummary(ctx context.Context, f kpi.Filter) (service.AnalystSummary, error) {
	if m.GetAnalystSummaryFunc != nil {
		return m.GetAnalystSummaryFunc(ctx, f)
	}
	return service.AnalystSummary{}, errors.New("GetAnalystSummaryFunc not implemented")
}

// GetTimeSeries implements the DashboardService interface
func (m *MockDashboardService) GetTimeSeries(ctx context.Context, f kpi.Filter) (service.TimeSeries, error) {
	if m.GetTimeSeriesFunc != nil {
		return m.GetTimeSeriesFunc(ctx, f)
	}
	return service.TimeSeries{}, errors.New("GetTimeSeriesFunc not implemented")
}

// GetCSATBreakdown implements the DashboardService interface
func (m *MockDashboardService) GetCSATBreakdown(ctx context.Context, f kpi.Filter) (service.CSATBreakdown, error) {
	if m.GetCSATBreakdownFunc != nil {
		return m.GetCSATBreakdownFunc(ctx, f)
	}
	return service.CSATBreakdown{}, errors.New("GetCSATBreakdownFunc not implemented")
}

// GetRawTable implements the DashboardService interface
func (m *MockDashboardService) GetRawTable(ctx context.Context, f kpi.Filter, limit int) (service.RawTable, error) {
	if m.GetRawTableFunc != nil {
		return m.GetRawTableFunc(ctx, f, limit)
	}
	return service.RawTable{}, errors.New("GetRawTableFunc not implemented")
}

// GetDailyIndividual implements the DashboardService interface
func (m *MockDashboardService) GetDailyIndividual(ctx context.Context, f kpi.Filter) (service.DailySummary, error) {
	if m.GetDailyIndividualFunc != nil {
		return m.GetDailyIndividualFunc(ctx, f)
	}
	return service.DailySummary{}, errors.New("GetDailyIndividualFunc not implemented")
}
