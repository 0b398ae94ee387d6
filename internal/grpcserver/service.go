package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	SearchMethod        = "/beastfood.SearchService/Search"
	GetRestaurantMethod = "/beastfood.RestaurantService/GetRestaurant"
)

type searchService interface {
	SearchRestaurants(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type restaurantService interface {
	GetRestaurant(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var searchServiceDesc = grpc.ServiceDesc{
	ServiceName: "beastfood.SearchService",
	HandlerType: (*searchService)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Search",
			Handler: unary(SearchMethod, func(srv any, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return srv.(searchService).SearchRestaurants(ctx, in)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "beastfood.proto",
}

var restaurantServiceDesc = grpc.ServiceDesc{
	ServiceName: "beastfood.RestaurantService",
	HandlerType: (*restaurantService)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetRestaurant",
			Handler: unary(GetRestaurantMethod, func(srv any, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return srv.(restaurantService).GetRestaurant(ctx, in)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "beastfood.proto",
}

type structCall func(srv any, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)

func unary(fullMethod string, call structCall) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv, ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}
