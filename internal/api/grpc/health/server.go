package health

import (
	"context"
	"errors"
	"fmt"
	"net"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/oshokin/zensor/internal/domain/sample"
	"github.com/oshokin/zensor/internal/logger"
)

// ServiceName is the health service name reported for the sensor loop.
const ServiceName = "zensor.Node"

// Reporter maps loop iterations to health statuses.
type Reporter struct {
	// health is the grpc-go health implementation.
	health *grpchealth.Server
}

// NewReporter returns a reporter in the NOT_SERVING state until the first
// successful read.
func NewReporter() *Reporter {
	h := grpchealth.NewServer()
	h.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	return &Reporter{
		health: h,
	}
}

// Publish implements telemetry.Sink.
func (r *Reporter) Publish(_ context.Context, it *sample.Iteration) error {
	status := healthpb.HealthCheckResponse_SERVING
	if it.Sample == nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}

	r.health.SetServingStatus(ServiceName, status)

	return nil
}

// Close implements telemetry.Sink. Watchers are told the node is going away.
func (r *Reporter) Close() error {
	r.health.Shutdown()

	return nil
}

// Serve runs a gRPC server exposing the health service until ctx is cancelled.
func (r *Reporter) Serve(ctx context.Context, lis net.Listener) error {
	grpcServer := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcServer, r.health)

	logger.InfoKV(ctx, "gRPC health server listening", "listen_address", lis.Addr().String())

	// Done channel is closed after GracefulStop finishes to ensure we block
	// until the server fully stops before returning.
	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		logger.Info(ctx, "Shutting down gRPC health server")
		grpcServer.GracefulStop()
		close(done)
	}()

	if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC: %w", err)
	}

	<-done

	return nil
}
