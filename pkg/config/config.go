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
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Backend struct {
		Type         string        `yaml:"type"`
		BatchSize    int           `yaml:"batch_size"`
		BatchTimeout time.Duration `yaml:"batch_timeout"`
	} `yaml:"backend"`
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
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
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
		IncidentTable    string        `yaml:"incident_table"`
		RawSignalTable   string        `yaml:"raw_signal_table"`
		AnnotatedTable   string        `yaml:"annotated_table"`
	} `yaml:"clickhouse"`
	Collection struct {
		Interval      time.Duration `yaml:"interval"`
		SourceTimeout time.Duration `yaml:"source_timeout"`
	} `yaml:"collection"`
	GNews struct {
		Enabled bool     `yaml:"enabled"`
		BaseURL string   `yaml:"base_url"`
		APIKey  string   `yaml:"api_key"`
		Queries []string `yaml:"queries"`
		Lang    string   `yaml:"lang"`
		Max     int      `yaml:"max"`
	} `yaml:"gnews"`
	RSS struct {
		Enabled  bool          `yaml:"enabled"`
		Feeds    []string      `yaml:"feeds"`
		MaxItems int           `yaml:"max_items"`
		Timeout  time.Duration `yaml:"timeout"`
	} `yaml:"rss"`
	Sample struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"sample"`
	SensorGrid struct {
		Enabled        bool          `yaml:"enabled"`
		APIKey         string        `yaml:"api_key"`
		WebSocketURL   string        `yaml:"websocket_url"`
		Regions        []string      `yaml:"regions"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
		MaxRPS         int           `yaml:"max_rps"`
		BufferSize     int           `yaml:"buffer_size"`
	} `yaml:"sensor_grid"`
	Geocoding struct {
		Enabled   bool   `yaml:"enabled"`
		BaseURL   string `yaml:"base_url"`
		UserAgent string `yaml:"user_agent"`
		Redis     struct {
			Enabled  bool   `yaml:"enabled"`
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"geocoding"`
	Alerts struct {
		Telegram struct {
			Enabled  bool   `yaml:"enabled"`
			BotToken string `yaml:"bot_token"`
			ChatID   string `yaml:"chat_id"`
		} `yaml:"telegram"`
	} `yaml:"alerts"`
	Jobs struct {
		Enabled    bool          `yaml:"enabled"`
		Workers    int           `yaml:"workers"`
		QueueSize  int           `yaml:"queue_size"`
		RetryLimit int           `yaml:"retry_limit"`
		RetryDelay time.Duration `yaml:"retry_delay"`
		Redis      struct {
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"jobs"`
	Risk struct {
		Profiles map[string]struct {
			BaseRisk       float64 `yaml:"base_risk"`
			EscalationRate float64 `yaml:"escalation_rate"`
		} `yaml:"profiles"`
		DefaultBaseRisk       float64 `yaml:"default_base_risk"`
		DefaultEscalationRate float64 `yaml:"default_escalation_rate"`
	} `yaml:"risk"`
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

	// Validate required fields
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

	// Override with environment variables
	if v := os.Getenv("GNEWS_API_KEY"); v != "" {
		c.GNews.APIKey = v
	}
	if v := os.Getenv("SENSOR_GRID_API_KEY"); v != "" {
		c.SensorGrid.APIKey = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Alerts.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Alerts.Telegram.ChatID = v
	}
	if v := os.Getenv("BACKEND"); v != "" {
		c.Backend.Type = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("RSS_FEEDS"); v != "" {
		c.RSS.Feeds = strings.Split(v, ",")
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Backend.Type == "" {
		return fmt.Errorf("backend.type is required")
	}
	if c.Backend.Type != "kafka" && c.Backend.Type != "clickhouse" {
		return fmt.Errorf("backend.type must be 'kafka' or 'clickhouse', got '%s'", c.Backend.Type)
	}
	if !c.GNews.Enabled && !c.RSS.Enabled && !c.Sample.Enabled && !c.SensorGrid.Enabled {
		return fmt.Errorf("at least one signal source must be enabled")
	}
	if c.GNews.Enabled && c.GNews.APIKey == "" {
		return fmt.Errorf("gnews.api_key is required when gnews is enabled")
	}
	if c.RSS.Enabled && len(c.RSS.Feeds) == 0 {
		return fmt.Errorf("rss.feeds cannot be empty when rss is enabled")
	}
	if c.SensorGrid.Enabled && c.SensorGrid.WebSocketURL == "" {
		return fmt.Errorf("sensor_grid.websocket_url is required when sensor_grid is enabled")
	}
	if c.Alerts.Telegram.Enabled && (c.Alerts.Telegram.BotToken == "" || c.Alerts.Telegram.ChatID == "") {
		return fmt.Errorf("alerts.telegram requires bot_token and chat_id when enabled")
	}
	return nil
}
