// Package rpc serves the TicTacToe service over gRPC. Messages use a JSON
// codec so no generated protobuf code is needed; the service descriptor is
// written out by hand in the shape protoc-gen-go-grpc produces.
package rpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/DoyleJ11/tictactoe-server/internal/service"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

const defaultStopTimeout = 5 * time.Second

// Server hosts the TicTacToe gRPC API and its health service.
type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
	log        *zap.Logger

	// StopTimeout bounds the graceful drain on shutdown. Open JoinGame
	// streams are cut once it elapses.
	StopTimeout time.Duration
}

func NewServer(svc *service.Service, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("grpc")

	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(UnaryServerInterceptor(log)),
		grpc.ChainStreamInterceptor(StreamServerInterceptor(log)),
	)
	RegisterTicTacToeServer(grpcServer, &handler{svc: svc})

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	return &Server{grpcServer: grpcServer, health: healthServer, log: log, StopTimeout: defaultStopTimeout}
}

// Serve accepts connections on lis until ctx is cancelled, then drains
// in-flight calls for at most StopTimeout.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	s.log.Info("grpc server listening", zap.String("addr", lis.Addr().String()))
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.grpcServer.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		s.health.Shutdown()
		s.gracefulStop()
		return serveResult(<-serveErr)
	case err := <-serveErr:
		return serveResult(err)
	}
}

// Stop closes every connection immediately.
func (s *Server) Stop() {
	if s == nil {
		return
	}
	s.health.Shutdown()
	s.grpcServer.Stop()
}

func (s *Server) gracefulStop() {
	stopped := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(stopped)
	}()
	timer := time.NewTimer(s.StopTimeout)
	defer timer.Stop()
	select {
	case <-stopped:
	case <-timer.C:
		s.log.Warn("graceful stop timed out, closing open streams")
		s.grpcServer.Stop()
		<-stopped
	}
}

func serveResult(err error) error {
	if err == nil || errors.Is(err, grpc.ErrServerStopped) {
		return nil
	}
	return fmt.Errorf("serve gRPC: %w", err)
}
