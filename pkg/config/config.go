package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Logging     struct {
		Level      string `yaml:"level"`
		Format     string `yaml:"format"`
		Output     string `yaml:"output"`
		TimeFormat string `yaml:"time_format"`
	} `yaml:"logging"`
	Server struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	Store struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Bucket   string `yaml:"bucket"`
	} `yaml:"store"`
	Exchange struct {
		APIKey         string        `yaml:"api_key"`
		WebSocketURL   string        `yaml:"websocket_url"`
		Symbols        []string      `yaml:"symbols"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
	} `yaml:"exchange"`
	Forecast struct {
		ServiceURL     string            `yaml:"service_url"`
		ModelName      string            `yaml:"model_name"`
		EndpointName   string            `yaml:"endpoint_name"`
		Timeout        time.Duration     `yaml:"timeout"`
		RetryAttempts  int               `yaml:"retry_attempts"`
		PollInterval   time.Duration     `yaml:"poll_interval"`
		NumSamples     int               `yaml:"num_samples"`
		Quantiles      []float64         `yaml:"quantiles"`
		IncludeSamples bool              `yaml:"include_samples"`
		Hyperparams    map[string]string `yaml:"hyperparameters"`
	} `yaml:"forecast"`
	Pipeline struct {
		Symbol        string        `yaml:"symbol"`
		TargetColumn  string        `yaml:"target_column"`
		Frequency     time.Duration `yaml:"frequency"`
		ExcludedHours []int         `yaml:"excluded_hours"`
		Start         string        `yaml:"start"`
		EndTraining   string        `yaml:"end_training"`
		Horizon       time.Duration `yaml:"horizon"`
		WindowCount   int           `yaml:"window_count"`
		DatasetPrefix string        `yaml:"dataset_prefix"`
		ReportPath    string        `yaml:"report_path"`
		Overwrite     bool          `yaml:"overwrite"`
	} `yaml:"pipeline"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("EXCHANGE_API_KEY"); v != "" {
		c.Exchange.APIKey = v
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Exchange.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("FORECAST_SERVICE_URL"); v != "" {
		c.Forecast.ServiceURL = v
	}
	if v := os.Getenv("STORE_HOST"); v != "" {
		c.Store.Host = v
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Forecast.ServiceURL == "" {
		return fmt.Errorf("forecast.service_url is required")
	}
	if c.Pipeline.Symbol == "" {
		return fmt.Errorf("pipeline.symbol is required")
	}
	if c.Pipeline.WindowCount <= 0 {
		return fmt.Errorf("pipeline.window_count must be positive")
	}
	if c.Pipeline.Horizon <= 0 {
		return fmt.Errorf("pipeline.horizon must be positive")
	}
	for _, q := range c.Forecast.Quantiles {
		if q <= 0 || q >= 1 {
			return fmt.Errorf("forecast quantile %v out of range (0,1)", q)
		}
	}
	for _, h := range c.Pipeline.ExcludedHours {
		if h < 0 || h > 23 {
			return fmt.Errorf("pipeline excluded hour %d out of range [0,23]", h)
		}
	}
	return nil
}
