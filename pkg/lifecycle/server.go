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

// Package lifecycle runs a long-lived service next to its gRPC health endpoint and
// shuts both down on SIGINT, SIGTERM or context cancellation.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carverauto/fieldradar/pkg/grpc"
	"github.com/carverauto/fieldradar/pkg/logger"
	"github.com/carverauto/fieldradar/pkg/models"
)

const (
	MaxRecvSize     = 4 * 1024 * 1024 // 4MB
	MaxSendSize     = 4 * 1024 * 1024 // 4MB
	ShutdownTimeout = 10 * time.Second
)

// Service is started once and stopped once. Start must not block.
type Service interface {
	Start(context.Context) error
	Stop(context.Context) error
}

// ServerOptions holds configuration for creating a server.
type ServerOptions struct {
	GRPCAddr    string
	ServiceName string
	Service     Service
	Security    *models.SecurityConfig
	Logger      logger.Logger
}

// RunServer starts the service and its health endpoint, then blocks until a signal,
// a serve error or ctx ends, and shuts everything down.
func RunServer(ctx context.Context, opts *ServerOptions) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}

	log.Infof("*** Starting service %s", opts.ServiceName)

	grpcServer, err := setupGRPCServer(ctx, opts, log)
	if err != nil {
		return fmt.Errorf("failed to setup gRPC server: %w", err)
	}

	if err := opts.Service.Start(ctx); err != nil {
		return fmt.Errorf("failed to start %s: %w", opts.ServiceName, err)
	}

	grpcServer.SetServing("", true)
	grpcServer.SetServing(opts.ServiceName, true)

	errChan := make(chan error, 1)

	go func() {
		if err := grpcServer.Start(); err != nil {
			errChan <- err
		}
	}()

	return handleShutdown(ctx, log, grpcServer, opts.Service, errChan)
}

func setupGRPCServer(ctx context.Context, opts *ServerOptions, log logger.Logger) (*grpc.Server, error) {
	provider, err := grpc.NewSecurityProvider(opts.Security)
	if err != nil {
		return nil, fmt.Errorf("failed to create security provider: %w", err)
	}

	return grpc.NewServer(opts.GRPCAddr, log,
		grpc.WithMaxRecvSize(MaxRecvSize),
		grpc.WithMaxSendSize(MaxSendSize),
		grpc.WithSecurity(ctx, provider),
	), nil
}

func handleShutdown(
	ctx context.Context, log logger.Logger, grpcServer *grpc.Server, svc Service, errChan <-chan error,
) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	defer signal.Stop(sigChan)

	var runErr error

	select {
	case sig := <-sigChan:
		log.Infof("Received signal %v, initiating shutdown", sig)
	case err := <-errChan:
		log.Errorf("Received error: %v, initiating shutdown", err)

		runErr = fmt.Errorf("service error: %w", err)
	case <-ctx.Done():
		log.Infof("Context canceled, initiating shutdown")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer shutdownCancel()

	grpcServer.Stop(shutdownCtx)

	if err := svc.Stop(shutdownCtx); err != nil {
		log.Errorf("Error during service shutdown: %v", err)

		return errors.Join(runErr, fmt.Errorf("shutdown error: %w", err))
	}

	return runErr
}
