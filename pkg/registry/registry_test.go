package registry

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/carverauto/fieldradar/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistryForTest(t *testing.T) Registry {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))

	reg, err := New(NewSQLiteConnector(dsn), logger.Discard())
	require.NoError(t, err)

	return reg
}

func TestRegisterAndLookup(t *testing.T) {
	ctx := context.Background()
	reg := newRegistryForTest(t)

	known, err := reg.IsKnown(ctx, "dev-1")
	require.NoError(t, err)
	assert.False(t, known)

	_, err = reg.OwnerOf(ctx, "dev-1")
	require.ErrorIs(t, err, ErrUnknownDevice)

	require.NoError(t, reg.Register(ctx, "dev-1", "alice"))

	known, err = reg.IsKnown(ctx, "dev-1")
	require.NoError(t, err)
	assert.True(t, known)

	owner, err := reg.OwnerOf(ctx, "dev-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", owner)

	require.NoError(t, reg.Register(ctx, "dev-1", "bob"))

	owner, err = reg.OwnerOf(ctx, "dev-1")
	require.NoError(t, err)
	assert.Equal(t, "bob", owner)
}

func TestConnector(t *testing.T) {
	_, err := Connector("mysql", "", logger.Discard())
	require.ErrorIs(t, err, ErrUnsupportedDriver)

	connect, err := Connector("sqlite", "file:connector?mode=memory&cache=shared", logger.Discard())
	require.NoError(t, err)

	_, err = New(connect, logger.Discard())
	assert.NoError(t, err)
}
