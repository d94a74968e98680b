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

package grpc

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"

	"github.com/carverauto/fieldradar/pkg/logger"
	"github.com/carverauto/fieldradar/pkg/models"
)

const (
	defaultMaxRetries    = 3
	retryBackoff         = 100 * time.Millisecond
	grpcKeepAliveTime    = 10 * time.Second
	grpcKeepAliveTimeout = 5 * time.Second
)

type ConnectionConfig struct {
	Address  string                 `json:"address"`
	Security *models.SecurityConfig `json:"security,omitempty"`
}

// ClientOption allows customization of the client.
type ClientOption func(*ClientConn)

// ClientConn wraps a gRPC client connection with health checks and retries.
type ClientConn struct {
	conn             *grpc.ClientConn
	healthClient     grpc_health_v1.HealthClient
	addr             string
	maxRetries       int
	log              logger.Logger
	securityProvider SecurityProvider
}

// NewClient creates a client for cfg.Address. The connection is established lazily.
func NewClient(ctx context.Context, cfg *ConnectionConfig, log logger.Logger, opts ...ClientOption) (*ClientConn, error) {
	if cfg == nil {
		return nil, errConnectionConfigRequired
	}

	c := &ClientConn{
		addr:       cfg.Address,
		maxRetries: defaultMaxRetries,
		log:        log.WithField("component", "grpc_client"),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.securityProvider == nil {
		provider, err := NewSecurityProvider(cfg.Security)
		if err != nil {
			return nil, fmt.Errorf("failed to create security provider: %w", err)
		}

		c.securityProvider = provider
	}

	creds, err := c.securityProvider.GetClientCredentials(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get client credentials: %w", err)
	}

	conn, err := grpc.NewClient(cfg.Address,
		creds,
		grpc.WithChainUnaryInterceptor(c.retryInterceptor),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                grpcKeepAliveTime,
			Timeout:             grpcKeepAliveTimeout,
			PermitWithoutStream: true,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", cfg.Address, err)
	}

	c.conn = conn
	c.healthClient = grpc_health_v1.NewHealthClient(conn)

	return c, nil
}

// retryInterceptor retries failed calls with linear backoff.
func (c *ClientConn) retryInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	var lastErr error

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		lastErr = invoker(ctx, method, req, reply, cc, opts...)
		if lastErr == nil {
			return nil
		}

		c.log.Debugf("gRPC call %s attempt %d failed: %v", method, attempt+1, lastErr)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * retryBackoff):
		}
	}

	return fmt.Errorf("%w: %w", errAllRetriesFailed, lastErr)
}

// WithMaxRetries sets the maximum number of attempts per call.
func WithMaxRetries(retries int) ClientOption {
	return func(c *ClientConn) {
		if retries > 0 {
			c.maxRetries = retries
		}
	}
}

// WithSecurityProvider sets the security provider for the client.
func WithSecurityProvider(provider SecurityProvider) ClientOption {
	return func(c *ClientConn) {
		c.securityProvider = provider
	}
}

// Close closes the client connection.
func (c *ClientConn) Close() error {
	if err := c.securityProvider.Close(); err != nil {
		c.log.Warnf("Failed to close security provider: %v", err)
	}

	return c.conn.Close()
}

// CheckHealth reports whether service is serving. The empty name checks the whole server.
func (c *ClientConn) CheckHealth(ctx context.Context, service string) (bool, error) {
	resp, err := c.healthClient.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: service})
	if err != nil {
		return false, fmt.Errorf("health check failed: %w", err)
	}

	return resp.Status == grpc_health_v1.HealthCheckResponse_SERVING, nil
}
