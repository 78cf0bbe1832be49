package app

import (
	"context"
	"net/http"
	"testing"
	"time"

	pb "github.com/godilite/helpdesk-kpi/api/v1"
	"github.com/godilite/helpdesk-kpi/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:            "test",
		GRPCPort:          0,
		ScoreStrategy:     "first_digit",
		DefaultTimeBase:   "created",
		DefaultAggregate:  "mean",
		Timezone:          "UTC",
		SurveyTopLabel:    "Ótimo",
		SurveySecondLabel: "Bom",
	}
}

func TestNewDashboard(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		svc, err := NewDashboard(testConfig(), zap.NewNop())

		require.NoError(t, err)
		assert.NotNil(t, svc)
	})

	invalid := map[string]func(*config.Config){
		"SCORE_STRATEGY": func(c *config.Config) { c.ScoreStrategy = "last_digit" },
		"KPI_TIME_BASE":  func(c *config.Config) { c.DefaultTimeBase = "resolved" },
		"KPI_AGGREGATE":  func(c *config.Config) { c.DefaultAggregate = "mode" },
		"KPI_TIMEZONE":   func(c *config.Config) { c.Timezone = "Mars/Olympus" },
	}
	for name, mutate := range invalid {
		t.Run(name, func(t *testing.T) {
			cfg := testConfig()
			mutate(cfg)

			_, err := NewDashboard(cfg, zap.NewNop())

			require.Error(t, err)
			assert.Contains(t, err.Error(), name)
		})
	}
}

func TestNewApp(t *testing.T) {
	t.Run("in-memory cache without redis", func(t *testing.T) {
		cfg := testConfig()
		cfg.MetricsAddr = "127.0.0.1:0"

		a, err := NewApp(context.Background(), cfg, zap.NewNop())
		require.NoError(t, err)
		t.Cleanup(a.shutdown)

		assert.NotNil(t, a.metricsServer)
		assert.NotNil(t, a.metricsLis)
		assert.NotNil(t, a.grpcServer.Addr())
	})

	t.Run("invalid config is rejected", func(t *testing.T) {
		cfg := testConfig()
		cfg.DefaultAggregate = "mode"

		_, err := NewApp(context.Background(), cfg, zap.NewNop())

		assert.ErrorContains(t, err, "invalid configuration")
	})

	t.Run("unreachable redis", func(t *testing.T) {
		cfg := testConfig()
		cfg.RedisAddr = "127.0.0.1:1"

		_, err := NewApp(context.Background(), cfg, zap.NewNop())

		assert.ErrorContains(t, err, "cache init failed")
	})
}

func TestAppRun(t *testing.T) {
	cfg := testConfig()
	cfg.MetricsAddr = "127.0.0.1:0"

	a, err := NewApp(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	metricsURL := "http://" + a.metricsLis.Addr().String() + "/metrics"
	require.Eventually(t, func() bool {
		resp, err := http.Get(metricsURL)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	conn, err := grpc.NewClient(a.grpcServer.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	checkCtx, checkCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer checkCancel()
	resp, err := healthpb.NewHealthClient(conn).Check(checkCtx, &healthpb.HealthCheckRequest{Service: pb.ServiceName})
	require.NoError(t, err)
	// no OPERATIONAL_URL in the test config
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.Status)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
