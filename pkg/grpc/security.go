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
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"path/filepath"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/carverauto/fieldradar/pkg/models"
)

const (
	SecurityModeNone models.SecurityMode = "none"
	SecurityModeMTLS models.SecurityMode = "mtls"
)

// NewSecurityProvider returns the provider for cfg.Mode. A nil config or empty mode means none.
func NewSecurityProvider(cfg *models.SecurityConfig) (SecurityProvider, error) {
	if cfg == nil || cfg.Mode == "" || cfg.Mode == SecurityModeNone {
		return &NoSecurityProvider{}, nil
	}

	if cfg.Mode == SecurityModeMTLS {
		return NewMTLSProvider(cfg)
	}

	return nil, fmt.Errorf("%w: %s", errUnknownSecurityMode, cfg.Mode)
}

// NoSecurityProvider implements SecurityProvider with no security (development only).
type NoSecurityProvider struct{}

func (*NoSecurityProvider) GetClientCredentials(context.Context) (grpc.DialOption, error) {
	return grpc.WithTransportCredentials(insecure.NewCredentials()), nil
}

func (*NoSecurityProvider) GetServerCredentials(context.Context) (grpc.ServerOption, error) {
	return grpc.Creds(insecure.NewCredentials()), nil
}

func (*NoSecurityProvider) Close() error {
	return nil
}

// MTLSProvider loads certificates from CertDir: root.pem plus server.pem/server-key.pem
// or client.pem/client-key.pem depending on Role.
type MTLSProvider struct {
	clientCreds credentials.TransportCredentials
	serverCreds credentials.TransportCredentials
}

func NewMTLSProvider(cfg *models.SecurityConfig) (*MTLSProvider, error) {
	if cfg == nil {
		return nil, errSecurityConfigRequired
	}

	p := &MTLSProvider{}

	var err error

	if cfg.Role == models.RoleClient {
		if p.clientCreds, err = loadClientCredentials(cfg); err != nil {
			return nil, fmt.Errorf("%w: %w", errFailedToLoadClientCreds, err)
		}

		return p, nil
	}

	if p.serverCreds, err = loadServerCredentials(cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", errFailedToLoadServerCreds, err)
	}

	return p, nil
}

func (*MTLSProvider) Close() error {
	return nil
}

func (p *MTLSProvider) GetClientCredentials(context.Context) (grpc.DialOption, error) {
	if p.clientCreds == nil {
		return nil, errServiceNotClient
	}

	return grpc.WithTransportCredentials(p.clientCreds), nil
}

func (p *MTLSProvider) GetServerCredentials(context.Context) (grpc.ServerOption, error) {
	if p.serverCreds == nil {
		return nil, errServiceNotServer
	}

	return grpc.Creds(p.serverCreds), nil
}

func loadCAPool(certDir string) (*x509.CertPool, error) {
	caCert, err := os.ReadFile(filepath.Join(certDir, "root.pem"))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errFailedToReadCACert, err)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caCert) {
		return nil, errFailedToAppendCACert
	}

	return pool, nil
}

func loadClientCredentials(cfg *models.SecurityConfig) (credentials.TransportCredentials, error) {
	certificate, err := tls.LoadX509KeyPair(
		filepath.Join(cfg.CertDir, "client.pem"), filepath.Join(cfg.CertDir, "client-key.pem"))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errFailedToLoadClientCert, err)
	}

	pool, err := loadCAPool(cfg.CertDir)
	if err != nil {
		return nil, err
	}

	return credentials.NewTLS(&tls.Config{
		Certificates: []tls.Certificate{certificate},
		RootCAs:      pool,
		ServerName:   cfg.ServerName,
		MinVersion:   tls.VersionTLS13,
	}), nil
}

func loadServerCredentials(cfg *models.SecurityConfig) (credentials.TransportCredentials, error) {
	certificate, err := tls.LoadX509KeyPair(
		filepath.Join(cfg.CertDir, "server.pem"), filepath.Join(cfg.CertDir, "server-key.pem"))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errFailedToLoadServerCert, err)
	}

	pool, err := loadCAPool(cfg.CertDir)
	if err != nil {
		return nil, err
	}

	return credentials.NewTLS(&tls.Config{
		Certificates: []tls.Certificate{certificate},
		ClientCAs:    pool,
		ClientAuth:   tls.RequireAndVerifyClientCert,
		MinVersion:   tls.VersionTLS13,
	}), nil
}
