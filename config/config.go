// Package config loads the bot configuration from a yaml file with
// environment overrides for credentials.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/jeongwoo-hong/jwcoin/internal/analysis"
	"github.com/jeongwoo-hong/jwcoin/internal/domain"
)

// Credentials come from the environment so they never live in the yaml
// file next to tunable parameters.
const (
	EnvUpbitAccessKey = "UPBIT_ACCESS_KEY"
	EnvUpbitSecretKey = "UPBIT_SECRET_KEY"
	EnvLLMAPIKey      = "LLM_API_KEY"
)

// Config is the fully resolved runtime configuration.
type Config struct {
	Pair         domain.Pair
	PollInterval time.Duration
	DBPath       string
	DecisionDir  string
	AuditSpec    string

	UpbitAccessKey string
	UpbitSecretKey string

	Analysis analysis.Config

	LLM       LLMConfig
	Dashboard DashboardConfig
}

// LLMConfig points at an OpenAI-compatible chat completion endpoint.
type LLMConfig struct {
	APIURL string
	Model  string
	APIKey string
}

// DashboardConfig configures the web dashboard.
type DashboardConfig struct {
	Addr      string
	Domains   []string
	CertCache string
}

type configYaml struct {
	Pair         string        `yaml:"pair"`
	PollInterval time.Duration `yaml:"poll_interval"`
	DBPath       string        `yaml:"db_path"`
	DecisionDir  string        `yaml:"decision_dir"`
	AuditSpec    string        `yaml:"audit_schedule"`

	Analysis struct {
		FeeRate              string `yaml:"fee_rate"`
		Epsilon              string `yaml:"epsilon"`
		MaterialityThreshold string `yaml:"materiality_threshold"`
	} `yaml:"analysis"`

	LLM struct {
		APIURL string `yaml:"api_url"`
		Model  string `yaml:"model"`
	} `yaml:"llm"`

	Dashboard struct {
		Addr      string   `yaml:"addr"`
		Domains   []string `yaml:"domains"`
		CertCache string   `yaml:"cert_cache"`
	} `yaml:"dashboard"`
}

// Get loads the yaml file at path, applies defaults and pulls credentials
// from the environment. An empty path yields a pure default configuration.
func Get(path string) (Config, error) {
	var raw configYaml
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg := Config{
		PollInterval:   raw.PollInterval,
		DBPath:         raw.DBPath,
		DecisionDir:    raw.DecisionDir,
		AuditSpec:      raw.AuditSpec,
		UpbitAccessKey: os.Getenv(EnvUpbitAccessKey),
		UpbitSecretKey: os.Getenv(EnvUpbitSecretKey),
	}

	pairStr := raw.Pair
	if pairStr == "" {
		pairStr = "BTC_KRW"
	}
	pair, err := parsePair(pairStr)
	if err != nil {
		return Config{}, err
	}
	cfg.Pair = pair

	if cfg.PollInterval == 0 {
		cfg.PollInterval = 4 * time.Hour
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "trades.db"
	}
	if cfg.DecisionDir == "" {
		cfg.DecisionDir = "./wal/decisions"
	}
	if cfg.AuditSpec == "" {
		cfg.AuditSpec = "0 9 * * *"
	}

	cfg.Analysis, err = analysisConfig(raw)
	if err != nil {
		return Config{}, err
	}

	cfg.LLM = LLMConfig{
		APIURL: raw.LLM.APIURL,
		Model:  raw.LLM.Model,
		APIKey: os.Getenv(EnvLLMAPIKey),
	}
	if cfg.LLM.APIURL == "" {
		cfg.LLM.APIURL = "https://api.openai.com/v1/chat/completions"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gpt-4o"
	}

	cfg.Dashboard = DashboardConfig{
		Addr:      raw.Dashboard.Addr,
		Domains:   raw.Dashboard.Domains,
		CertCache: raw.Dashboard.CertCache,
	}
	if cfg.Dashboard.Addr == "" {
		cfg.Dashboard.Addr = ":8080"
	}

	return cfg, nil
}

func analysisConfig(raw configYaml) (analysis.Config, error) {
	cfg := analysis.DefaultConfig()

	if raw.Analysis.FeeRate != "" {
		feeRate, err := decimal.NewFromString(raw.Analysis.FeeRate)
		if err != nil {
			return analysis.Config{}, fmt.Errorf("incorrect 'fee_rate' param in yaml config: %w", err)
		}
		cfg.FeeRate = feeRate
	}
	if raw.Analysis.Epsilon != "" {
		epsilon, err := decimal.NewFromString(raw.Analysis.Epsilon)
		if err != nil {
			return analysis.Config{}, fmt.Errorf("incorrect 'epsilon' param in yaml config: %w", err)
		}
		cfg.Epsilon = epsilon
	}
	if raw.Analysis.MaterialityThreshold != "" {
		threshold, err := decimal.NewFromString(raw.Analysis.MaterialityThreshold)
		if err != nil {
			return analysis.Config{}, fmt.Errorf("incorrect 'materiality_threshold' param in yaml config: %w", err)
		}
		cfg.MaterialityThreshold = threshold
	}

	return cfg, nil
}

func parsePair(pairStr string) (domain.Pair, error) {
	parts := strings.Split(pairStr, "_")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return domain.Pair{}, fmt.Errorf("incorrect 'pair' param: %q (expected BASE_QUOTE, e.g. BTC_KRW)", pairStr)
	}
	return domain.Pair{
		Base:  strings.ToUpper(parts[0]),
		Quote: strings.ToUpper(parts[1]),
	}, nil
}
