package grpcserver

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"beastfood/pkg/logger"
)

func UnaryLogger(log *logger.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		if log == nil {
			return resp, err
		}

		code := status.Code(err)
		fields := []interface{}{
			"method", info.FullMethod,
			"code", code.String(),
			"duration_ms", time.Since(start).Milliseconds(),
		}
		switch code {
		case codes.OK:
			log.Info("gRPC request", fields...)
		case codes.Internal, codes.Unknown, codes.Unavailable:
			log.Error("gRPC request", append(fields, "error", err)...)
		default:
			log.Warn("gRPC request", append(fields, "error", err)...)
		}
		return resp, err
	}
}
