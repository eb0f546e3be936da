package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestGet_Defaults(t *testing.T) {
	cfg, err := Get("")
	require.NoError(t, err)

	require.Equal(t, "BTC", cfg.Pair.Base)
	require.Equal(t, "KRW", cfg.Pair.Quote)
	require.Equal(t, 4*time.Hour, cfg.PollInterval)
	require.Equal(t, "trades.db", cfg.DBPath)
	require.Equal(t, ":8080", cfg.Dashboard.Addr)
	require.True(t, cfg.Analysis.FeeRate.Equal(decimal.NewFromFloat(0.0005)))
}

func TestGet_YamlOverrides(t *testing.T) {
	path := writeConfig(t, `
pair: ETH_KRW
poll_interval: 1h
db_path: /var/lib/jwcoin/trades.db
analysis:
  fee_rate: "0.001"
  materiality_threshold: "5000"
llm:
  model: gpt-4o-mini
dashboard:
  addr: ":9090"
`)

	cfg, err := Get(path)
	require.NoError(t, err)

	require.Equal(t, "ETH", cfg.Pair.Base)
	require.Equal(t, time.Hour, cfg.PollInterval)
	require.Equal(t, "/var/lib/jwcoin/trades.db", cfg.DBPath)
	require.True(t, cfg.Analysis.FeeRate.Equal(decimal.NewFromFloat(0.001)))
	require.True(t, cfg.Analysis.MaterialityThreshold.Equal(decimal.NewFromInt(5000)))
	require.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	require.Equal(t, ":9090", cfg.Dashboard.Addr)
}

func TestGet_CredentialsFromEnv(t *testing.T) {
	t.Setenv(EnvUpbitAccessKey, "access")
	t.Setenv(EnvUpbitSecretKey, "secret")
	t.Setenv(EnvLLMAPIKey, "llm-key")

	cfg, err := Get("")
	require.NoError(t, err)

	require.Equal(t, "access", cfg.UpbitAccessKey)
	require.Equal(t, "secret", cfg.UpbitSecretKey)
	require.Equal(t, "llm-key", cfg.LLM.APIKey)
}

func TestGet_InvalidPair(t *testing.T) {
	path := writeConfig(t, "pair: BTCKRW\n")
	_, err := Get(path)
	require.Error(t, err)
}

func TestGet_InvalidFeeRate(t *testing.T) {
	path := writeConfig(t, "analysis:\n  fee_rate: not-a-number\n")
	_, err := Get(path)
	require.Error(t, err)
}
