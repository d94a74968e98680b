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

// cmd/fieldradar/main.go
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/carverauto/fieldradar/pkg/config"
	"github.com/carverauto/fieldradar/pkg/core"
	"github.com/carverauto/fieldradar/pkg/grpc"
	"github.com/carverauto/fieldradar/pkg/lifecycle"
	"github.com/carverauto/fieldradar/pkg/logger"
	"github.com/carverauto/fieldradar/pkg/models"
)

const serviceName = "fieldradar"

func main() {
	configPath := flag.String("config", "/etc/fieldradar/fieldradar.json", "Path to config file")
	healthcheck := flag.String("healthcheck", "", "Probe the gRPC health endpoint at this address and exit")
	certDir := flag.String("cert-dir", "", "Client certificate directory for an mTLS health probe")
	flag.Parse()

	if *healthcheck != "" {
		os.Exit(probe(*healthcheck, *certDir))
	}

	var cfg core.Config
	if err := config.LoadAndValidate(*configPath, &cfg); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	lg := logger.New(cfg.LogLevel)
	ctx := context.Background()

	server, err := core.NewServer(ctx, &cfg, lg)
	if err != nil {
		lg.Fatalf("Failed to create server: %v", err)
	}

	opts := &lifecycle.ServerOptions{
		GRPCAddr:    cfg.GrpcAddr,
		ServiceName: serviceName,
		Service:     server,
		Security:    cfg.Security,
		Logger:      lg,
	}

	if err := lifecycle.RunServer(ctx, opts); err != nil {
		lg.Fatalf("Server error: %v", err)
	}
}

func probe(addr, certDir string) int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	lg := logger.New("warn")

	security := &models.SecurityConfig{Mode: grpc.SecurityModeNone, Role: models.RoleClient}
	if certDir != "" {
		security.Mode = grpc.SecurityModeMTLS
		security.CertDir = certDir
	}

	client, err := grpc.NewClient(ctx, &grpc.ConnectionConfig{Address: addr, Security: security}, lg)
	if err != nil {
		lg.Errorf("Health check failed: %v", err)
		return 1
	}

	defer func() { _ = client.Close() }()

	ok, err := client.CheckHealth(ctx, serviceName)
	if err != nil || !ok {
		lg.Errorf("Service %s not serving: %v", serviceName, err)
		return 1
	}

	return 0
}
