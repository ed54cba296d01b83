package interceptors

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"capturehub/backend/internal/auth"
)

// LoggingUnary logs each RPC with its status code and latency. skipMethods is the set of full
// method names not to log (e.g. the health check).
func LoggingUnary(logger *zap.Logger, skipMethods map[string]bool) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		if skipMethods[info.FullMethod] {
			return resp, err
		}
		code := status.Code(err)
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("code", code.String()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", ClientIP(ctx)),
		}
		if ac, ok := auth.FromContext(ctx); ok {
			fields = append(fields, zap.String("org_id", ac.OrgID), zap.String("user_id", ac.UserID))
		}
		switch code {
		case codes.OK:
			logger.Info("grpc_request", fields...)
		case codes.Internal, codes.Unknown, codes.Unavailable, codes.DataLoss:
			logger.Error("grpc_request", fields...)
		default:
			logger.Warn("grpc_request", fields...)
		}
		return resp, err
	}
}
