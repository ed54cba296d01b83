// Package server builds the gRPC and HTTP servers around the auth core.
package server

import (
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"capturehub/backend/internal/auth"
	healthhandler "capturehub/backend/internal/health/handler"
	"capturehub/backend/internal/server/interceptors"
)

// HealthCheckMethod is the full method name of the standard health check.
const HealthCheckMethod = "/grpc.health.v1.Health/Check"

// PublicMethods are the RPCs that may be called without credentials.
var PublicMethods = map[string]bool{
	HealthCheckMethod:              true,
	"/grpc.health.v1.Health/Watch": true,
	"/grpc.health.v1.Health/List":  true,
}

// GRPCDeps holds what the gRPC server needs.
type GRPCDeps struct {
	// Authenticator resolves credentials from metadata. Required.
	Authenticator auth.Authenticator
	// CookieName is the session cookie name read from the "cookie" metadata key.
	CookieName string
	// Health answers grpc.health.v1. If nil, a health server without a database ping is used.
	Health *healthhandler.Server
	Logger *zap.Logger
}

// NewGRPCServer returns a gRPC server with tracing, client IP capture, authentication and request
// logging installed, and the health service registered.
func NewGRPCServer(deps GRPCDeps, opts ...grpc.ServerOption) *grpc.Server {
	health := deps.Health
	if health == nil {
		health = healthhandler.NewServer(nil)
	}
	base := []grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			interceptors.ClientIPUnary(),
			auth.UnaryServerInterceptor(deps.Authenticator, deps.CookieName, PublicMethods),
			interceptors.LoggingUnary(deps.Logger, map[string]bool{HealthCheckMethod: true}),
		),
	}
	s := grpc.NewServer(append(base, opts...)...)
	RegisterServices(s, health)
	return s
}

// RegisterServices registers the services served by this process.
func RegisterServices(s grpc.ServiceRegistrar, health healthpb.HealthServer) {
	healthpb.RegisterHealthServer(s, health)
}
