// Package v1 holds the gRPC contract of the helpdesk.v1.Dashboard service.
// Messages are google.protobuf.Struct, so only the service descriptor is
// declared here.
package v1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "helpdesk.v1.Dashboard"

const (
	Dashboard_GetOverview_FullMethodName        = "/helpdesk.v1.Dashboard/GetOverview"
	Dashboard_GetAnalystSummary_FullMethodName  = "/helpdesk.v1.Dashboard/GetAnalystSummary"
	Dashboard_GetTimeSeries_FullMethodName      = "/helpdesk.v1.Dashboard/GetTimeSeries"
	Dashboard_GetCSATBreakdown_FullMethodName   = "/helpdesk.v1.Dashboard/GetCSATBreakdown"
	Dashboard_GetRawTable_FullMethodName        = "/helpdesk.v1.Dashboard/GetRawTable"
	Dashboard_GetDailyIndividual_FullMethodName = "/helpdesk.v1.Dashboard/GetDailyIndividual"
)

// DashboardClient is the client API for the Dashboard service.
type DashboardClient interface {
	GetOverview(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetAnalystSummary(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetTimeSeries(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetCSATBreakdown(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetRawTable(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetDailyIndividual(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type dashboardClient struct {
	cc grpc.ClientConnInterface
}

func NewDashboardClient(cc grpc.ClientConnInterface) DashboardClient {
	return &dashboardClient{cc}
}

func (c *dashboardClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts []grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *dashboardClient) GetOverview(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, Dashboard_GetOverview_FullMethodName, in, opts)
}

func (c *dashboardClient) GetAnalystSummary(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, Dashboard_GetAnalystSummary_FullMethodName, in, opts)
}

func (c *dashboardClient) GetTimeSeries(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, Dashboard_GetTimeSeries_FullMethodName, in, opts)
}

func (c *dashboardClient) GetCSATBreakdown(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, Dashboard_GetCSATBreakdown_FullMethodName, in, opts)
}

func (c *dashboardClient) GetRawTable(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, Dashboard_GetRawTable_FullMethodName, in, opts)
}

func (c *dashboardClient) GetDailyIndividual(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, Dashboard_GetDailyIndividual_FullMethodName, in, opts)
}

// DashboardServer is the server API for the Dashboard service. Embed
// UnimplementedDashboardServer for forward compatibility.
type DashboardServer interface {
	GetOverview(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetAnalystSummary(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetTimeSeries(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetCSATBreakdown(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetRawTable(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetDailyIndividual(context.Context, *structpb.Struct) (*structpb.Struct, error)
	mustEmbedUnimplementedDashboardServer()
}

type UnimplementedDashboardServer struct{}

func (UnimplementedDashboardServer) GetOverview(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetOverview not implemented")
}
func (UnimplementedDashboardServer) GetAnalystSummary(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetAnalystSummary not implemented")
}
func (UnimplementedDashboardServer) GetTimeSeries(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetTimeSeries not implemented")
}
func (UnimplementedDashboardServer) GetCSATBreakdown(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetCSATBreakdown not implemented")
}
func (UnimplementedDashboardServer) GetRawTable(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetRawTable not implemented")
}
func (UnimplementedDashboardServer) GetDailyIndividual(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetDailyIndividual not implemented")
}
func (UnimplementedDashboardServer) mustEmbedUnimplementedDashboardServer() {}

func RegisterDashboardServer(s grpc.ServiceRegistrar, srv DashboardServer) {
	s.RegisterService(&Dashboard_ServiceDesc, srv)
}

type unaryMethod func(DashboardServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func handler(fullMethod string, call unaryMethod) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(DashboardServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		h := func(ctx context.Context, req any) (any, error) {
			return call(srv.(DashboardServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, h)
	}
}

// Dashboard_ServiceDesc is the grpc.ServiceDesc for the Dashboard service.
var Dashboard_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DashboardServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetOverview", Handler: handler(Dashboard_GetOverview_FullMethodName, DashboardServer.GetOverview)},
		{MethodName: "GetAnalystSummary", Handler: handler(Dashboard_GetAnalystSummary_FullMethodName, DashboardServer.GetAnalystSummary)},
		{MethodName: "GetTimeSeries", Handler: handler(Dashboard_GetTimeSeries_FullMethodName, DashboardServer.GetTimeSeries)},
		{MethodName: "GetCSATBreakdown", Handler: handler(Dashboard_GetCSATBreakdown_FullMethodName, DashboardServer.GetCSATBreakdown)},
		{MethodName: "GetRawTable", Handler: handler(Dashboard_GetRawTable_FullMethodName, DashboardServer.GetRawTable)},
		{MethodName: "GetDailyIndividual", Handler: handler(Dashboard_GetDailyIndividual_FullMethodName, DashboardServer.GetDailyIndividual)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "api/v1/dashboard.proto",
}
