package bootstrap

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/idflow/config"
	domainauth "github.com/target/idflow/internal/domain/auth"
	"github.com/target/idflow/internal/testutil"
)

func testConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	cfg, err := LoadConfig("/nonexistent/idflow.env")
	require.NoError(t, err)
	cfg.Flow = config.FlowConfig{LogHistory: 50}
	cfg.Redis.Enabled = false
	cfg.Observability.Metrics.Enabled = false
	return &cfg
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBuildRuntime_RequiresConfig(t *testing.T) {
	_, err := BuildRuntime(context.Background(), RuntimeDeps{})
	require.Error(t, err)
}

func TestBuildRuntime_ConsoleOnly(t *testing.T) {
	var out bytes.Buffer
	rt, err := BuildRuntime(context.Background(), RuntimeDeps{
		Config: testConfig(t),
		Logger: discardLogger(),
		Out:    &out,
	})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, rt.Close()) })

	assert.NotNil(t, rt.Presenter)
	assert.Nil(t, rt.Mirror)
	assert.False(t, rt.Metrics.Enabled())

	require.NoError(t, rt.Session.SignUp(context.Background(), "a@example.com", "pw"))

	assert.Equal(t, domainauth.StepCredentialsExchanged, rt.Session.Snapshot().Step)
	assert.Contains(t, out.String(), "User registered successfully")
	assert.Contains(t, out.String(), "AWS service access granted")
}

func TestBuildRuntime_FederatedAndRefresh(t *testing.T) {
	rt, err := BuildRuntime(context.Background(), RuntimeDeps{
		Config: testConfig(t),
		Logger: discardLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, rt.Close()) })

	ctx := context.Background()
	require.NoError(t, rt.Session.FederatedSignIn(ctx, "Google"))
	require.NoError(t, rt.Session.RefreshTokens(ctx))

	st := rt.Session.Status(ctx)
	assert.True(t, st.AccessValid)
	assert.Equal(t, "Federated (Google)", st.IdentityType)
}

func TestBuildRuntime_RedisMirror(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	cfg := testConfig(t)
	cfg.Redis.KeyPrefix = "bootstrap-test:"

	rt, err := BuildRuntime(context.Background(), RuntimeDeps{
		Config: cfg,
		Logger: discardLogger(),
		Redis:  client,
	})
	require.NoError(t, err)
	require.NotNil(t, rt.Mirror)

	ctx := context.Background()
	require.NoError(t, rt.Session.SignUp(ctx, "mirror@example.com", "pw"))

	step, err := rt.Mirror.LatestStep(ctx)
	require.NoError(t, err)
	assert.Equal(t, "credentials_exchanged", step)

	// A caller-supplied client stays open after Close.
	require.NoError(t, rt.Close())
	require.NoError(t, client.Ping(ctx).Err())
}

func TestBuildRuntime_RedisEnabledButDown(t *testing.T) {
	mr := testutil.StartMiniRedis(t)
	addr := mr.Addr()
	mr.Close()

	cfg := testConfig(t)
	cfg.Redis.Enabled = true
	cfg.Redis.URI = addr

	_, err := BuildRuntime(context.Background(), RuntimeDeps{Config: cfg, Logger: discardLogger()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect redis mirror")
}
