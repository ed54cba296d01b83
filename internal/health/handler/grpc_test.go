package handler

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// mockPinger implements Pinger for tests.
type mockPinger struct {
	pingErr error
}

func (m *mockPinger) PingContext(context.Context) error {
	return m.pingErr
}

func TestCheck(t *testing.T) {
	testCases := []struct {
		name   string
		pinger Pinger
		want   healthpb.HealthCheckResponse_ServingStatus
	}{
		{"nil pinger", nil, healthpb.HealthCheckResponse_SERVING},
		{"db up", &mockPinger{}, healthpb.HealthCheckResponse_SERVING},
		{"db down", &mockPinger{pingErr: errors.New("connection refused")}, healthpb.HealthCheckResponse_NOT_SERVING},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := NewServer(tc.pinger).Check(context.Background(), &healthpb.HealthCheckRequest{})
			if err != nil {
				t.Fatalf("Check: %v", err)
			}
			if resp.GetStatus() != tc.want {
				t.Errorf("status = %v, want %v", resp.GetStatus(), tc.want)
			}
		})
	}
}

func TestCheck_UnknownService(t *testing.T) {
	_, err := NewServer(nil).Check(context.Background(), &healthpb.HealthCheckRequest{Service: "other"})
	if status.Code(err) != codes.NotFound {
		t.Errorf("code = %v, want %v", status.Code(err), codes.NotFound)
	}
}

func TestReady(t *testing.T) {
	want := errors.New("down")
	if err := NewServer(&mockPinger{pingErr: want}).Ready(context.Background()); !errors.Is(err, want) {
		t.Errorf("Ready = %v, want %v", err, want)
	}
}
