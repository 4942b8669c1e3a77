package shared

import (
	"encoding/json"
	"github.com/tailscale/hujson"
	"log"
	"os"
)

const (
	configVarName  = "CONFIG"                // If set, will load config from this path and not from devConfigPath
	secretsVarName = "SECRETS"               // If set, will load secrets from this path and not from devSecretsPath
	devConfigPath  = "dev/config.dev.jsonc"  // Path to config in development environment
	devSecretsPath = "dev/secrets.dev.jsonc" // Path to secrets in development environment
)

type Config struct {
	Secrets            Secrets     `json:"-"`
	LogFile            string      `json:"log_file"`
	LogLevel           string      `json:"log_level"`
	ServicePort        uint        `json:"service_port"`
	DbFile             string      `json:"db_file"`
	ReclaimIntervalSec int         `json:"reclaim_interval_sec"`
	Publisher          Publisher   `json:"publisher"`
	Diagnostics        Diagnostics `json:"diagnostics"`
}

// Diagnostics snapshots are off when Dir is empty.
type Diagnostics struct {
	Dir         string `json:"dir"`
	IntervalSec int    `json:"interval_sec"`
	KeepDays    int    `json:"keep_days"`
}

type Publisher struct {
	RelayUrl   string `json:"relay_url"`
	TimeoutSec int    `json:"timeout_sec"`
	DryRun     bool   `json:"dry_run"`
	UserAgent  string `json:"user_agent"`
}

type Secrets struct {
	ApiKeys     []string `json:"api_keys"`
	MetricsAuth string   `json:"metrics_auth"`
}

func LoadConfig() *Config {

	// Where are our config and secrets files?
	cfgPath := os.Getenv(configVarName)
	if len(cfgPath) == 0 {
		cfgPath = devConfigPath
	}
	secretsPath := os.Getenv(secretsVarName)
	if len(secretsPath) == 0 {
		secretsPath = devSecretsPath
	}

	// Read config file
	var config Config
	mustDeserializeFile(cfgPath, &config)
	// Read secrets member from secrets file
	mustDeserializeFile(secretsPath, &config.Secrets)
	return &config
}

func mustDeserializeFile[T any](fileName string, obj *T) {
	var err error
	var cfgJson []byte
	cfgJson, err = os.ReadFile(fileName)
	if err != nil {
		log.Fatal(err)
	}
	if err = parseJsonc(cfgJson, obj); err != nil {
		log.Fatal(err)
	}
}

func parseJsonc[T any](b []byte, obj *T) error {
	// JSONC => JSON
	b, err := standardizeJSON(b)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, obj)
}

func standardizeJSON(b []byte) ([]byte, error) {
	ast, err := hujson.Parse(b)
	if err != nil {
		return b, err
	}
	ast.Standardize()
	return ast.Pack(), nil
}
