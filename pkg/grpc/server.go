/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package grpc wraps the orchestrator's gRPC endpoint, which serves the standard
// health protocol, and the client used to probe it.
package grpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"

	"github.com/carverauto/fieldradar/pkg/logger"
)

// ServerOption is a function type that modifies Server configuration.
type ServerOption func(*Server)

const (
	shutdownTimer = 5 * time.Second
)

// Server wraps a gRPC server with health checking, keepalives and logging.
type Server struct {
	srv         *grpc.Server
	healthCheck *health.Server
	addr        string
	log         logger.Logger
	mu          sync.RWMutex
	services    map[string]struct{}
	serverOpts  []grpc.ServerOption
}

// NewServer creates a gRPC server with the health service registered.
func NewServer(addr string, log logger.Logger, opts ...ServerOption) *Server {
	s := &Server{
		addr:     addr,
		log:      log.WithField("component", "grpc"),
		services: make(map[string]struct{}),
	}

	s.serverOpts = []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			LoggingInterceptor(s.log),
			RecoveryInterceptor(s.log),
		),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			MaxConnectionIdle:     10 * time.Minute,
			MaxConnectionAge:      24 * time.Hour,
			MaxConnectionAgeGrace: 5 * time.Minute,
			Time:                  120 * time.Second,
			Timeout:               20 * time.Second,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             120 * time.Second,
			PermitWithoutStream: true,
		}),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.srv = grpc.NewServer(s.serverOpts...)
	s.healthCheck = health.NewServer()

	healthpb.RegisterHealthServer(s.srv, s.healthCheck)
	reflection.Register(s.srv)

	return s
}

// WithServerOptions adds gRPC server options.
func WithServerOptions(opt ...grpc.ServerOption) ServerOption {
	return func(s *Server) {
		s.serverOpts = append(s.serverOpts, opt...)
	}
}

// WithMaxRecvSize sets the maximum receive message size.
func WithMaxRecvSize(size int) ServerOption {
	return func(s *Server) {
		s.serverOpts = append(s.serverOpts, grpc.MaxRecvMsgSize(size))
	}
}

// WithMaxSendSize sets the maximum send message size.
func WithMaxSendSize(size int) ServerOption {
	return func(s *Server) {
		s.serverOpts = append(s.serverOpts, grpc.MaxSendMsgSize(size))
	}
}

// WithSecurity applies the provider's server credentials. Errors are logged and
// the server falls back to the default transport.
func WithSecurity(ctx context.Context, provider SecurityProvider) ServerOption {
	return func(s *Server) {
		creds, err := provider.GetServerCredentials(ctx)
		if err != nil {
			s.log.Errorf("Failed to get server credentials: %v", err)
			return
		}

		s.serverOpts = append(s.serverOpts, creds)
	}
}

// GetGRPCServer returns the underlying gRPC server.
func (s *Server) GetGRPCServer() *grpc.Server {
	return s.srv
}

// SetServing marks service as serving or not. The empty name is the overall server status.
func (s *Server) SetServing(service string, serving bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.services[service] = struct{}{}

	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}

	s.healthCheck.SetServingStatus(service, status)
}

// RegisterService registers a service with the gRPC server and marks it serving.
func (s *Server) RegisterService(desc *grpc.ServiceDesc, impl interface{}) {
	s.srv.RegisterService(desc, impl)
	s.SetServing(desc.ServiceName, true)
}

// Start listens on the configured address and serves until Stop.
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	return s.Serve(lis)
}

// Serve serves on lis until Stop.
func (s *Server) Serve(lis net.Listener) error {
	s.log.Infof("gRPC server listening on %s", lis.Addr())

	if err := s.srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("failed to serve: %w", err)
	}

	return nil
}

// Stop marks every service not serving and stops gracefully, forcing after a short grace period.
func (s *Server) Stop(ctx context.Context) {
	s.mu.Lock()
	for service := range s.services {
		s.healthCheck.SetServingStatus(service, healthpb.HealthCheckResponse_NOT_SERVING)
	}
	s.mu.Unlock()

	stopped := make(chan struct{})

	go func() {
		s.srv.GracefulStop()
		close(stopped)
	}()

	timer := time.NewTimer(shutdownTimer)
	defer timer.Stop()

	select {
	case <-stopped:
		s.log.Infof("gRPC server stopped gracefully")
	case <-ctx.Done():
		s.log.Warnf("gRPC server shutdown cancelled, forcing stop")
		s.srv.Stop()
	case <-timer.C:
		s.log.Warnf("gRPC server shutdown timed out, forcing stop")
		s.srv.Stop()
	}
}

// LoggingInterceptor logs RPC calls.
func LoggingInterceptor(log logger.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		log.Debugf("gRPC call: %s Duration: %v Error: %v", info.FullMethod, time.Since(start), err)

		return resp, err
	}
}

// RecoveryInterceptor handles panics in RPC handlers.
func RecoveryInterceptor(log logger.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler,
	) (resp interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Errorf("Recovered from panic in %s: %v", info.FullMethod, r)

				err = errInternalError
			}
		}()

		return handler(ctx, req)
	}
}
