package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds everything resolved from the environment at process
// start. Values are read once and never mutated afterwards; in
// particular the LLM credential decides the classification source for
// the whole process lifetime.
type Config struct {
	ServiceName string
	Version     string

	Port      string
	AdminPort string

	DatabaseURL string
	NATSURL     string

	GatewaySecret string

	OpenAIKey  string
	LLMTimeout time.Duration

	QueryTimeout time.Duration
	MaxPageSize  int

	BrokerConfigPath string
}

func Load() Config {
	return Config{
		ServiceName:      "aimas-recommendation",
		Version:          getenv("SERVICE_VERSION", "0.1.0"),
		Port:             getenv("PORT", "8080"),
		AdminPort:        getenv("ADMIN_PORT", "8081"),
		DatabaseURL:      getenv("DATABASE_URL", ""),
		NATSURL:          getenv("NATS_URL", "nats://localhost:4222"),
		GatewaySecret:    getenv("GATEWAY_SECRET", ""),
		OpenAIKey:        getenv("OPENAI_API_KEY", ""),
		LLMTimeout:       time.Duration(getenvInt("LLM_TIMEOUT_SECONDS", 30)) * time.Second,
		QueryTimeout:     time.Duration(getenvInt("QUERY_TIMEOUT_SECONDS", 5)) * time.Second,
		MaxPageSize:      getenvInt("MAX_PAGE_SIZE", 200),
		BrokerConfigPath: getenv("BROKER_CONFIG_PATH", ""),
	}
}

// BrokerOverrides is the optional YAML file tuning stream names and
// binding keys without a rebuild. Zero values leave the defaults alone.
type BrokerOverrides struct {
	MetricsStream  string   `yaml:"metrics_stream"`
	Bindings       []string `yaml:"bindings"`
	RecoStream     string   `yaml:"reco_stream"`
	RecoPrefix     string   `yaml:"reco_prefix"`
	Durable        string   `yaml:"durable"`
	AckWaitSeconds int      `yaml:"ack_wait_seconds"`
}

func LoadBrokerOverrides(path string) (BrokerOverrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return BrokerOverrides{}, err
	}
	var overrides BrokerOverrides
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return BrokerOverrides{}, err
	}
	return overrides, nil
}

func getenv(key, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func getenvInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	if parsed, err := strconv.Atoi(val); err == nil {
		return parsed
	}
	return fallback
}
