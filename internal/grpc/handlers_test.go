package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/godilite/helpdesk-kpi/internal/grpc/mocks"
	"github.com/godilite/helpdesk-kpi/internal/kpi"
	"github.com/godilite/helpdesk-kpi/internal/service"
	"github.com/godilite/helpdesk-kpi/pkg/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

func request(t *testing.T, fields map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(fields)
	require.NoError(t, err)
	return s
}

// TestNewGRPCHandlers tests the constructor
func TestNewGRPCHandlers(t *testing.T) {
	t.Run("valid parameters", func(t *testing.T) {
		mockDashboard := &mocks.MockDashboardService{}
		mockCache := &mocks.MockCacher{}
		ttl := 5 * time.Minute

		handlers := NewGRPCHandlers(mockDashboard, mockCache, zap.NewNop(), ttl)

		assert.NotNil(t, handlers)
		assert.Equal(t, mockDashboard, handlers.dashboard)
		assert.Equal(t, mockCache, handlers.cache)
		assert.Equal(t, ttl, handlers.cacheTTL)
		assert.NotNil(t, handlers.logger)
	})

	t.Run("nil dashboard service panics", func(t *testing.T) {
		assert.Panics(t, func() {
			NewGRPCHandlers(nil, &mocks.MockCacher{}, zap.NewNop(), time.Minute)
		})
	})

	t.Run("non-positive TTL uses default", func(t *testing.T) {
		for _, ttl := range []time.Duration{0, -time.Minute} {
			handlers := NewGRPCHandlers(&mocks.MockDashboardService{}, &mocks.MockCacher{}, zap.NewNop(), ttl)
			assert.Equal(t, defaultCacheDuration, handlers.cacheTTL)
		}
	})
}

func TestParseFilterLocation(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)
	handlers := NewGRPCHandlers(&mocks.MockDashboardService{}, &mocks.MockCacher{}, zap.NewNop(), time.Minute, WithLocation(loc))

	f, _, err := handlers.parseFilter(request(t, map[string]any{
		"start_date": "2025-03-01T01:00:00Z",
		"end_date":   "2025-03-01",
	}))

	require.NoError(t, err)
	assert.Equal(t, loc, f.Start.Location())
	assert.True(t, time.Date(2025, 2, 28, 22, 0, 0, 0, loc).Equal(f.Start))
	assert.Equal(t, 28, f.Start.Day(), "instant falls on the previous local day")
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, loc), f.End, "calendar day starts at local midnight")
	assert.Equal(t, time.Date(2025, 3, 1, 3, 0, 0, 0, time.UTC), f.End.UTC())

	utc := NewGRPCHandlers(&mocks.MockDashboardService{}, &mocks.MockCacher{}, zap.NewNop(), time.Minute, WithLocation(nil))
	f, _, err = utc.parseFilter(request(t, map[string]any{"end_date": "2025-03-01"}))
	require.NoError(t, err)
	assert.Equal(t, time.UTC, f.End.Location(), "nil location keeps UTC")
}

func TestParseFilter(t *testing.T) {
	handlers := NewGRPCHandlers(&mocks.MockDashboardService{}, &mocks.MockCacher{}, zap.NewNop(), time.Minute)

	t.Run("full request", func(t *testing.T) {
		req := request(t, map[string]any{
			"start_date": "2025-03-01",
			"end_date":   "2025-03-31",
			"analysts":   []any{"Ana", " ", "Bruno"},
			"time_base":  "completed",
			"aggregate":  "median",
			"limit":      25,
		})

		f, limit, err := handlers.parseFilter(req)

		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), f.Start)
		assert.Equal(t, time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC), f.End)
		assert.Equal(t, []string{"Ana", "Bruno"}, f.Analysts)
		assert.Equal(t, kpi.TimeBaseCompleted, f.TimeBase)
		assert.Equal(t, kpi.StatMedian, f.Aggregate)
		assert.Equal(t, 25, limit)
	})

	t.Run("empty request leaves defaults to the service", func(t *testing.T) {
		f, limit, err := handlers.parseFilter(&structpb.Struct{})

		require.NoError(t, err)
		assert.Equal(t, kpi.Filter{}, f)
		assert.Zero(t, limit)
	})

	t.Run("nil request", func(t *testing.T) {
		_, _, err := handlers.parseFilter(nil)
		assert.NoError(t, err)
	})

	t.Run("rfc3339 dates and single analyst", func(t *testing.T) {
		f, _, err := handlers.parseFilter(request(t, map[string]any{
			"start_date": "2025-03-01T10:00:00Z",
			"analysts":   "Ana",
			"limit":      "7",
		}))

		require.NoError(t, err)
		assert.Equal(t, 2025, f.Start.Year())
		assert.Equal(t, []string{"Ana"}, f.Analysts)
	})

	invalid := []struct {
		name   string
		fields map[string]any
		msg    string
	}{
		{"bad date", map[string]any{"start_date": "01/03/2025"}, "start_date must be YYYY-MM-DD"},
		{"end before start", map[string]any{"start_date": "2025-03-31", "end_date": "2025-03-01"}, "end date must not be before start date"},
		{"date not a string", map[string]any{"end_date": 20250301}, "end_date must be a string"},
		{"unknown time base", map[string]any{"time_base": "resolved"}, "unknown time base"},
		{"unknown aggregate", map[string]any{"aggregate": "mode"}, "unknown aggregate"},
		{"analysts not strings", map[string]any{"analysts": []any{1.0}}, "analysts must be a list of strings"},
		{"negative limit", map[string]any{"limit": -1}, "limit must be a non-negative integer"},
		{"fractional limit", map[string]any{"limit": 1.5}, "limit must be a non-negative integer"},
		{"limit not numeric", map[string]any{"limit": "ten"}, "limit must be an integer"},
	}
	for _, tc := range invalid {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := handlers.parseFilter(request(t, tc.fields))

			require.Error(t, err)
			assert.Equal(t, codes.InvalidArgument, status.Code(err))
			assert.Contains(t, err.Error(), tc.msg)
		})
	}
}

func TestViewKey(t *testing.T) {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	base := kpi.Filter{Start: start, Analysts: []string{"Ana", "Bruno"}, TimeBase: kpi.TimeBaseCreated}

	t.Run("prefix is kept readable", func(t *testing.T) {
		assert.Regexp(t, `^grpc:overview:[0-9a-f]{16}$`, viewKey(cacheKeyOverview, base, 0))
	})

	t.Run("analyst order does not matter", func(t *testing.T) {
		swapped := base
		swapped.Analysts = []string{"Bruno", "Ana"}
		assert.Equal(t, viewKey(cacheKeyOverview, base, 0), viewKey(cacheKeyOverview, swapped, 0))
	})

	t.Run("filter, limit and prefix all change the key", func(t *testing.T) {
		other := base
		other.Aggregate = kpi.StatMedian
		keys := map[string]bool{
			viewKey(cacheKeyOverview, base, 0):   true,
			viewKey(cacheKeyOverview, other, 0):  true,
			viewKey(cacheKeyRawTable, base, 0):   true,
			viewKey(cacheKeyRawTable, base, 10):  true,
			viewKey(cacheKeyTimeSeries, base, 0): true,
		}
		assert.Len(t, keys, 5)
	})
}

func TestHandleError(t *testing.T) {
	handlers := NewGRPCHandlers(&mocks.MockDashboardService{}, &mocks.MockCacher{}, zap.NewNop(), time.Minute)

	t.Run("context canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := handlers.handleError(ctx, "op", errors.New("whatever"))
		assert.Equal(t, codes.Canceled, status.Code(err))
	})

	t.Run("context deadline exceeded", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
		defer cancel()
		<-ctx.Done()

		err := handlers.handleError(ctx, "op", errors.New("whatever"))
		assert.Equal(t, codes.DeadlineExceeded, status.Code(err))
	})

	cases := []struct {
		name string
		err  error
		code codes.Code
	}{
		{"no data", service.ErrNoData, codes.NotFound},
		{"wrapped no data", fmt.Errorf("overview: %w", service.ErrNoData), codes.NotFound},
		{"invalid filter", fmt.Errorf("%w: %v", service.ErrInvalidFilter, kpi.ErrInvalidRange), codes.InvalidArgument},
		{"source failure", fmt.Errorf("%w: boom", service.ErrSourceFailure), codes.Unavailable},
		{"unknown", errors.New("boom"), codes.Internal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := handlers.handleError(context.Background(), "op", tc.err)
			assert.Equal(t, tc.code, status.Code(err))
		})
	}
}

func TestSuccessfulCalls(t *testing.T) {
	ctx := context.Background()
	team := kpi.Metrics{Tickets: 4, Scored: 2, Satisfied: 1, CSATPct: 50}

	t.Run("GetOverview success", func(t *testing.T) {
		mockDashboard := &mocks.MockDashboardService{
			GetOverviewFunc: func(ctx context.Context, f kpi.Filter) (service.Overview, error) {
				assert.Equal(t, []string{"Ana"}, f.Analysts)
				return service.Overview{Team: team, Analysts: []string{"Ana"}}, nil
			},
		}
		mockCache := &mocks.MockCacher{}
		handlers := NewGRPCHandlers(mockDashboard, mockCache, zap.NewNop(), time.Minute)

		resp, err := handlers.GetOverview(ctx, request(t, map[string]any{"analysts": []any{"Ana"}}))

		require.NoError(t, err)
		teamOut := resp.GetFields()["team"].GetStructValue().GetFields()
		assert.Equal(t, 4.0, teamOut["tickets"].GetNumberValue())
		assert.Equal(t, 50.0, teamOut["csat_pct"].GetNumberValue())
		assert.Equal(t, "Ana", resp.GetFields()["analysts"].GetListValue().GetValues()[0].GetStringValue())

		require.Eventually(t, func() bool { return len(mockCache.SetKeys()) == 1 }, time.Second, 5*time.Millisecond)
		assert.True(t, strings.HasPrefix(mockCache.SetKeys()[0], string(cacheKeyOverview)+":"))
	})

	t.Run("GetAnalystSummary success", func(t *testing.T) {
		mockDashboard := &mocks.MockDashboardService{
			GetAnalystSummaryFunc: func(ctx context.Context, f kpi.Filter) (service.AnalystSummary, error) {
				return service.AnalystSummary{Analysts: []service.NamedMetrics{{Name: "Ana", Metrics: team}}}, nil
			},
		}
		handlers := NewGRPCHandlers(mockDashboard, &mocks.MockCacher{}, zap.NewNop(), time.Minute)

		resp, err := handlers.GetAnalystSummary(ctx, &structpb.Struct{})

		require.NoError(t, err)
		first := resp.GetFields()["analysts"].GetListValue().GetValues()[0].GetStructValue().GetFields()
		assert.Equal(t, "Ana", first["name"].GetStringValue())
		assert.Equal(t, 4.0, first["tickets"].GetNumberValue(), "metrics are flattened next to the name")
	})

	t.Run("GetTimeSeries success", func(t *testing.T) {
		mockDashboard := &mocks.MockDashboardService{
			GetTimeSeriesFunc: func(ctx context.Context, f kpi.Filter) (service.TimeSeries, error) {
				assert.Equal(t, kpi.TimeBaseCompleted, f.TimeBase)
				return service.TimeSeries{Points: []service.DayPoint{{Day: "2025-03-01", Metrics: team}}}, nil
			},
		}
		handlers := NewGRPCHandlers(mockDashboard, &mocks.MockCacher{}, zap.NewNop(), time.Minute)

		resp, err := handlers.GetTimeSeries(ctx, request(t, map[string]any{"time_base": "completed"}))

		require.NoError(t, err)
		point := resp.GetFields()["points"].GetListValue().GetValues()[0].GetStructValue().GetFields()
		assert.Equal(t, "2025-03-01", point["day"].GetStringValue())
	})

	t.Run("GetCSATBreakdown success", func(t *testing.T) {
		mockDashboard := &mocks.MockDashboardService{
			GetCSATBreakdownFunc: func(ctx context.Context, f kpi.Filter) (service.CSATBreakdown, error) {
				return service.CSATBreakdown{Distribution: map[int]int{1: 0, 5: 3}, Scored: 3}, nil
			},
		}
		handlers := NewGRPCHandlers(mockDashboard, &mocks.MockCacher{}, zap.NewNop(), time.Minute)

		resp, err := handlers.GetCSATBreakdown(ctx, &structpb.Struct{})

		require.NoError(t, err)
		dist := resp.GetFields()["distribution"].GetStructValue().GetFields()
		assert.Equal(t, 3.0, dist["5"].GetNumberValue())
	})

	t.Run("GetRawTable passes the limit", func(t *testing.T) {
		mockDashboard := &mocks.MockDashboardService{
			GetRawTableFunc: func(ctx context.Context, f kpi.Filter, limit int) (service.RawTable, error) {
				assert.Equal(t, 2, limit)
				return service.RawTable{Total: 10, Rows: []service.RawRow{{TicketID: "1"}, {TicketID: "2"}}}, nil
			},
		}
		handlers := NewGRPCHandlers(mockDashboard, &mocks.MockCacher{}, zap.NewNop(), time.Minute)

		resp, err := handlers.GetRawTable(ctx, request(t, map[string]any{"limit": 2}))

		require.NoError(t, err)
		assert.Equal(t, 10.0, resp.GetFields()["total"].GetNumberValue())
		rows := resp.GetFields()["rows"].GetListValue().GetValues()
		require.Len(t, rows, 2)
		assert.Equal(t, structpb.NullValue_NULL_VALUE, rows[0].GetStructValue().GetFields()["score"].GetNullValue())
	})

	t.Run("GetDailyIndividual success", func(t *testing.T) {
		mockDashboard := &mocks.MockDashboardService{
			GetDailyIndividualFunc: func(ctx context.Context, f kpi.Filter) (service.DailySummary, error) {
				return service.DailySummary{Day: "2025-03-04", Team: team}, nil
			},
		}
		handlers := NewGRPCHandlers(mockDashboard, &mocks.MockCacher{}, zap.NewNop(), time.Minute)

		resp, err := handlers.GetDailyIndividual(ctx, &structpb.Struct{})

		require.NoError(t, err)
		assert.Equal(t, "2025-03-04", resp.GetFields()["day"].GetStringValue())
	})
}

func TestErrorHandling_ServiceErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("service returns ErrNoData", func(t *testing.T) {
		mockDashboard := &mocks.MockDashboardService{
			GetOverviewFunc: func(ctx context.Context, f kpi.Filter) (service.Overview, error) {
				return service.Overview{}, service.ErrNoData
			},
		}
		handlers := NewGRPCHandlers(mockDashboard, &mocks.MockCacher{}, zap.NewNop(), time.Minute)

		resp, err := handlers.GetOverview(ctx, &structpb.Struct{})

		assert.Nil(t, resp)
		assert.Equal(t, codes.NotFound, status.Code(err))
	})

	t.Run("invalid request never reaches the service", func(t *testing.T) {
		handlers := NewGRPCHandlers(&mocks.MockDashboardService{}, &mocks.MockCacher{}, zap.NewNop(), time.Minute)

		_, err := handlers.GetTimeSeries(ctx, request(t, map[string]any{"aggregate": "mode"}))

		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	})

	t.Run("errors are not cached", func(t *testing.T) {
		mockCache := &mocks.MockCacher{}
		mockDashboard := &mocks.MockDashboardService{
			GetOverviewFunc: func(ctx context.Context, f kpi.Filter) (service.Overview, error) {
				return service.Overview{}, fmt.Errorf("%w: timeout", service.ErrSourceFailure)
			},
		}
		handlers := NewGRPCHandlers(mockDashboard, mockCache, zap.NewNop(), time.Minute)

		_, err := handlers.GetOverview(ctx, &structpb.Struct{})

		assert.Equal(t, codes.Unavailable, status.Code(err))
		time.Sleep(20 * time.Millisecond)
		assert.Empty(t, mockCache.SetKeys())
	})
}

func TestFindAndCache(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()

	t.Run("fresh hit skips fetch", func(t *testing.T) {
		mockCache := &mocks.MockCacher{
			GetFunc: func(ctx context.Context, key string, dest any) error {
				data, _ := json.Marshal(cachedView[string]{Value: "cached", StoredAt: time.Now()})
				return json.Unmarshal(data, dest)
			},
		}
		var sf singleflight.Group

		v, err := FindAndCache(ctx, mockCache, &sf, "k", time.Minute, logger, func(ctx context.Context) (string, error) {
			t.Error("fetch must not run on a fresh hit")
			return "", nil
		})

		require.NoError(t, err)
		assert.Equal(t, "cached", v)
	})

	t.Run("stale hit is served and refreshed", func(t *testing.T) {
		refreshed := make(chan string, 1)
		mockCache := &mocks.MockCacher{
			GetFunc: func(ctx context.Context, key string, dest any) error {
				data, _ := json.Marshal(cachedView[string]{Value: "old", StoredAt: time.Now().Add(-time.Hour)})
				return json.Unmarshal(data, dest)
			},
			SetFunc: func(ctx context.Context, key string, value any, expiration time.Duration) error {
				refreshed <- value.(cachedView[string]).Value
				return nil
			},
		}
		var sf singleflight.Group

		v, err := FindAndCache(ctx, mockCache, &sf, "k", time.Minute, logger, func(ctx context.Context) (string, error) {
			return "new", nil
		})

		require.NoError(t, err)
		assert.Equal(t, "old", v)
		select {
		case got := <-refreshed:
			assert.Equal(t, "new", got)
		case <-time.After(2 * time.Second):
			t.Fatal("background refresh did not store a value")
		}
	})

	t.Run("miss populates the cache", func(t *testing.T) {
		mem := cache.NewMemory()
		var sf singleflight.Group
		var calls atomic.Int32
		fetch := func(ctx context.Context) (int, error) {
			calls.Add(1)
			return 42, nil
		}

		v, err := FindAndCache(ctx, mem, &sf, "k", time.Minute, logger, fetch)
		require.NoError(t, err)
		assert.Equal(t, 42, v)

		require.Eventually(t, func() bool {
			var cv cachedView[int]
			return mem.Get(ctx, "k", &cv) == nil && cv.Value == 42
		}, time.Second, 5*time.Millisecond)

		v, err = FindAndCache(ctx, mem, &sf, "k", time.Minute, logger, fetch)
		require.NoError(t, err)
		assert.Equal(t, 42, v)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("cache errors fall back to fetch", func(t *testing.T) {
		mockCache := &mocks.MockCacher{
			GetFunc: func(ctx context.Context, key string, dest any) error {
				return errors.New("connection refused")
			},
		}
		var sf singleflight.Group

		v, err := FindAndCache(ctx, mockCache, &sf, "k", time.Minute, logger, func(ctx context.Context) (string, error) {
			return "fresh", nil
		})

		require.NoError(t, err)
		assert.Equal(t, "fresh", v)
	})

	t.Run("concurrent misses share one fetch", func(t *testing.T) {
		var sf singleflight.Group
		var calls atomic.Int32
		release := make(chan struct{})

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				v, err := FindAndCache(ctx, &mocks.MockCacher{}, &sf, "k", time.Minute, logger, func(ctx context.Context) (string, error) {
					calls.Add(1)
					<-release
					return "v", nil
				})
				assert.NoError(t, err)
				assert.Equal(t, "v", v)
			}()
		}
		time.Sleep(50 * time.Millisecond)
		close(release)
		wg.Wait()

		assert.Equal(t, int32(1), calls.Load())
	})
}

func TestAddTTLJitter(t *testing.T) {
	assert.Equal(t, time.Duration(0), addTTLJitter(0))
	for i := 0; i < 100; i++ {
		got := addTTLJitter(time.Minute)
		assert.GreaterOrEqual(t, got, 54*time.Second)
		assert.Less(t, got, 66*time.Second)
	}
}
