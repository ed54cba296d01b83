package auth

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"capturehub/backend/internal/auth/domain"
)

// UnaryServerInterceptor authenticates every unary RPC with a and puts the AuthContext on the
// handler's context. publicMethods is the set of full method names that may be called without
// credentials (e.g. the health check); credentials sent to them are still resolved so handlers
// can see who called.
func UnaryServerInterceptor(a Authenticator, cookieName string, publicMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		public := publicMethods[info.FullMethod]
		creds := FromGRPCMetadata(ctx, cookieName)
		if public && creds.SessionID == "" && !creds.HasToken() {
			return handler(ctx, req)
		}

		ac, err := a.Authenticate(ctx, creds)
		if err != nil {
			if public {
				return handler(ctx, req)
			}
			if u, ok := domain.AsUnauthorized(err); ok {
				return nil, status.Error(codes.Unauthenticated, u.Reason.Message())
			}
			return nil, status.Error(codes.Internal, "authentication is temporarily unavailable")
		}
		return handler(WithAuth(ctx, ac), req)
	}
}
