package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	pb "github.com/godilite/helpdesk-kpi/api/v1"
	"github.com/godilite/helpdesk-kpi/internal/kpi"
	"github.com/godilite/helpdesk-kpi/internal/service"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	defaultCacheDuration = time.Minute
	defaultGRPCTimeout   = 60 * time.Second
)

type CacheKeyType string

const (
	cacheKeyOverview        CacheKeyType = "grpc:overview"
	cacheKeyAnalystSummary  CacheKeyType = "grpc:analyst_summary"
	cacheKeyTimeSeries      CacheKeyType = "grpc:time_series"
	cacheKeyCSATBreakdown   CacheKeyType = "grpc:csat_breakdown"
	cacheKeyRawTable        CacheKeyType = "grpc:raw_table"
	cacheKeyDailyIndividual CacheKeyType = "grpc:daily_individual"
)

// Request fields understood by every view.
const (
	fieldStartDate = "start_date"
	fieldEndDate   = "end_date"
	fieldAnalysts  = "analysts"
	fieldTimeBase  = "time_base"
	fieldAggregate = "aggregate"
	fieldLimit     = "limit"
)

type GRPCHandlers struct {
	pb.UnimplementedDashboardServer
	dashboard DashboardService
	cache     Cacher
	logger    *zap.Logger
	sfGroup   singleflight.Group
	cacheTTL  time.Duration
	loc       *time.Location
}

type HandlerOption func(*GRPCHandlers)

// WithLocation sets the zone request dates are read in.
func WithLocation(loc *time.Location) HandlerOption {
	return func(h *GRPCHandlers) {
		if loc != nil {
			h.loc = loc
		}
	}
}

// NewGRPCHandlers initializes the gRPC handlers. Request dates are read in
// UTC unless WithLocation says otherwise.
func NewGRPCHandlers(dashboard DashboardService, cache Cacher, logger *zap.Logger, ttl time.Duration, opts ...HandlerOption) *GRPCHandlers {
	if dashboard == nil {
		panic("nil DashboardService provided to NewGRPCHandlers")
	}
	if ttl <= 0 {
		ttl = defaultCacheDuration
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &GRPCHandlers{
		dashboard: dashboard,
		cache:     cache,
		logger:    logger.Named("grpc-handler"),
		cacheTTL:  ttl,
		loc:       time.UTC,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// parseFilter reads the filter fields of a request. Unknown fields are
// ignored; missing ones leave the service defaults in place.
func (s *GRPCHandlers) parseFilter(req *structpb.Struct) (kpi.Filter, int, error) {
	var f kpi.Filter
	fields := req.GetFields()

	var err error
	if f.Start, err = s.dateField(fields, fieldStartDate); err != nil {
		return f, 0, err
	}
	if f.End, err = s.dateField(fields, fieldEndDate); err != nil {
		return f, 0, err
	}
	if !f.Start.IsZero() && !f.End.IsZero() && f.End.Before(f.Start) {
		return f, 0, status.Error(codes.InvalidArgument, "end date must not be before start date")
	}

	if f.Analysts, err = listField(fields, fieldAnalysts); err != nil {
		return f, 0, err
	}

	if raw, err := stringField(fields, fieldTimeBase); err != nil {
		return f, 0, err
	} else if raw != "" {
		if f.TimeBase, err = kpi.ParseTimeBase(raw); err != nil {
			return f, 0, status.Error(codes.InvalidArgument, err.Error())
		}
	}

	if raw, err := stringField(fields, fieldAggregate); err != nil {
		return f, 0, err
	} else if raw != "" {
		if f.Aggregate, err = kpi.ParseStat(raw); err != nil {
			return f, 0, status.Error(codes.InvalidArgument, err.Error())
		}
	}

	limit, err := intField(fields, fieldLimit)
	if err != nil {
		return f, 0, err
	}
	return f, limit, nil
}

func (s *GRPCHandlers) dateField(fields map[string]*structpb.Value, name string) (time.Time, error) {
	raw, err := stringField(fields, name)
	if err != nil || raw == "" {
		return time.Time{}, err
	}
	if t, err := time.ParseInLocation(kpi.DayLayout, raw, s.loc); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.In(s.loc), nil
	}
	return time.Time{}, status.Errorf(codes.InvalidArgument, "%s must be YYYY-MM-DD, got %q", name, raw)
}

func stringField(fields map[string]*structpb.Value, name string) (string, error) {
	v, ok := fields[name]
	if !ok {
		return "", nil
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_NullValue:
		return "", nil
	case *structpb.Value_StringValue:
		return strings.TrimSpace(k.StringValue), nil
	default:
		return "", status.Errorf(codes.InvalidArgument, "%s must be a string", name)
	}
}

func listField(fields map[string]*structpb.Value, name string) ([]string, error) {
	v, ok := fields[name]
	if !ok {
		return nil, nil
	}
	var values []*structpb.Value
	switch k := v.GetKind().(type) {
	case *structpb.Value_NullValue:
		return nil, nil
	case *structpb.Value_StringValue:
		values = []*structpb.Value{v}
	case *structpb.Value_ListValue:
		values = k.ListValue.GetValues()
	default:
		return nil, status.Errorf(codes.InvalidArgument, "%s must be a list of strings", name)
	}

	var out []string
	for _, item := range values {
		sv, ok := item.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, status.Errorf(codes.InvalidArgument, "%s must be a list of strings", name)
		}
		if s := strings.TrimSpace(sv.StringValue); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

func intField(fields map[string]*structpb.Value, name string) (int, error) {
	v, ok := fields[name]
	if !ok {
		return 0, nil
	}
	var n float64
	switch k := v.GetKind().(type) {
	case *structpb.Value_NullValue:
		return 0, nil
	case *structpb.Value_NumberValue:
		n = k.NumberValue
	case *structpb.Value_StringValue:
		parsed, err := strconv.Atoi(strings.TrimSpace(k.StringValue))
		if err != nil {
			return 0, status.Errorf(codes.InvalidArgument, "%s must be an integer", name)
		}
		n = float64(parsed)
	default:
		return 0, status.Errorf(codes.InvalidArgument, "%s must be an integer", name)
	}
	if n < 0 || n != math.Trunc(n) || n > math.MaxInt32 {
		return 0, status.Errorf(codes.InvalidArgument, "%s must be a non-negative integer", name)
	}
	return int(n), nil
}

// toStruct converts a view into its wire form through its JSON encoding.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode view: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode view: %w", err)
	}
	return structpb.NewStruct(m)
}

func (s *GRPCHandlers) handleError(ctx context.Context, op string, err error) error {
	switch ctx.Err() {
	case context.Canceled:
		s.logger.Warn("request canceled", zap.String("op", op))
		return status.Error(codes.Canceled, "request canceled")
	case context.DeadlineExceeded:
		s.logger.Warn("request timeout", zap.String("op", op))
		return status.Error(codes.DeadlineExceeded, "request timed out")
	}

	switch {
	case errors.Is(err, service.ErrNoData):
		s.logger.Info("no data", zap.String("op", op))
		return status.Error(codes.NotFound, "no data for the given filter")
	case errors.Is(err, service.ErrInvalidFilter):
		s.logger.Info("invalid filter", zap.String("op", op), zap.Error(err))
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, service.ErrSourceFailure):
		s.logger.Error("source failure", zap.String("op", op), zap.Error(err))
		return status.Error(codes.Unavailable, "data sources unavailable")
	default:
		s.logger.Error("unexpected error", zap.String("op", op), zap.Error(err))
		return status.Errorf(codes.Internal, "%s failed: %v", op, err)
	}
}

// serveView runs the parse, cache, compute and encode steps shared by all views.
func serveView[T any](
	ctx context.Context,
	s *GRPCHandlers,
	op string,
	prefix CacheKeyType,
	req *structpb.Struct,
	compute func(ctx context.Context, f kpi.Filter, limit int) (T, error),
) (*structpb.Struct, error) {
	f, limit, err := s.parseFilter(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	cacheKey := viewKey(prefix, f, limit)

	view, err := FindAndCache(ctx, s.cache, &s.sfGroup, cacheKey, s.cacheTTL, s.logger, func(fetchCtx context.Context) (T, error) {
		return compute(fetchCtx, f, limit)
	})
	if err != nil {
		return nil, s.handleError(ctx, op, err)
	}

	out, err := toStruct(view)
	if err != nil {
		return nil, s.handleError(ctx, op, err)
	}
	return out, nil
}

func (s *GRPCHandlers) GetOverview(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return serveView(ctx, s, "GetOverview", cacheKeyOverview, req, func(ctx context.Context, f kpi.Filter, _ int) (service.Overview, error) {
		return s.dashboard.GetOverview(ctx, f)
	})
}

func (s *GRPCHandlers) GetAnalystSummary(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return serveView(ctx, s, "GetAnalystSummary", cacheKeyAnalystSummary, req, func(ctx context.Context, f kpi.Filter, _ int) (service.AnalystSummary, error) {
		return s.dashboard.GetAnalystSummary(ctx, f)
	})
}

func (s *GRPCHandlers) GetTimeSeries(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return serveView(ctx, s, "GetTimeSeries", cacheKeyTimeSeries, req, func(ctx context.Context, f kpi.Filter, _ int) (service.TimeSeries, error) {
		return s.dashboard.GetTimeSeries(ctx, f)
	})
}

func (s *GRPCHandlers) GetCSATBreakdown(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return serveView(ctx, s, "GetCSATBreakdown", cacheKeyCSATBreakdown, req, func(ctx context.Context, f kpi.Filter, _ int) (service.CSATBreakdown, error) {
		return s.dashboard.GetCSATBreakdown(ctx, f)
	})
}

func (s *GRPCHandlers) GetRawTable(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return serveView(ctx, s, "GetRawTable", cacheKeyRawTable, req, func(ctx context.Context, f kpi.Filter, limit int) (service.RawTable, error) {
		return s.dashboard.GetRawTable(ctx, f, limit)
	})
}

func (s *GRPCHandlers) GetDailyIndividual(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return serveView(ctx, s, "GetDailyIndividual", cacheKeyDailyIndividual, req, func(ctx context.Context, f kpi.Filter, _ int) (service.DailySummary, error) {
		return s.dashboard.GetDailyIndividual(ctx, f)
	})
}
