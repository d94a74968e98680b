package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"

	"github.com/carverauto/fieldradar/pkg/logger"
	"github.com/carverauto/fieldradar/pkg/models"
)

func TestHealthRoundTrip(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := NewServer(lis.Addr().String(), logger.Discard())
	srv.SetServing("", true)
	srv.SetServing("fieldradar", false)

	go func() { _ = srv.Serve(lis) }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := NewClient(ctx, &ConnectionConfig{Address: lis.Addr().String()}, logger.Discard(), WithMaxRetries(1))
	require.NoError(t, err)

	defer func() { _ = client.Close() }()

	ok, err := client.CheckHealth(ctx, "")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.CheckHealth(ctx, "fieldradar")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = client.CheckHealth(ctx, "unregistered")
	require.Error(t, err)

	srv.Stop(ctx)

	_, err = client.CheckHealth(ctx, "")
	assert.Error(t, err)
}

func TestRecoveryInterceptor(t *testing.T) {
	interceptor := RecoveryInterceptor(logger.Discard())

	_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/test/Panic"},
		func(context.Context, interface{}) (interface{}, error) {
			panic("boom")
		})

	assert.ErrorIs(t, err, errInternalError)
}

func TestNewSecurityProvider(t *testing.T) {
	p, err := NewSecurityProvider(nil)
	require.NoError(t, err)
	assert.IsType(t, &NoSecurityProvider{}, p)

	_, err = NewSecurityProvider(&models.SecurityConfig{Mode: "spiffe"})
	assert.ErrorIs(t, err, errUnknownSecurityMode)

	_, err = NewSecurityProvider(&models.SecurityConfig{Mode: SecurityModeMTLS, CertDir: t.TempDir()})
	assert.ErrorIs(t, err, errFailedToLoadServerCreds)
}
