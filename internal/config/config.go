package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the service
type Config struct {
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"logLevel"`
	Server      struct {
		Port int `mapstructure:"port"`
	} `mapstructure:"server"`
	Metrics struct {
		Enabled bool `mapstructure:"enabled"`
		Port    int  `mapstructure:"port"`
	} `mapstructure:"metrics"`
	Database struct {
		PostgresDSN         string `mapstructure:"postgresDSN"`
		PostgresAutoMigrate bool   `mapstructure:"postgresAutoMigrate"`
	} `mapstructure:"database"`
	NATS struct {
		Enabled        bool          `mapstructure:"enabled"`
		URL            string        `mapstructure:"url"`
		EventStream    string        `mapstructure:"eventStream"`    // Stream holding published domain events
		SubjectPrefix  string        `mapstructure:"subjectPrefix"`  // e.g. v1.convo
		PublishTimeout time.Duration `mapstructure:"publishTimeout"` // Max wait for a publish ack
	} `mapstructure:"nats"`
	Channels struct {
		WhatsApp  ChannelConfig `mapstructure:"whatsapp"`
		Instagram ChannelConfig `mapstructure:"instagram"`
	} `mapstructure:"channels"`
	AI struct {
		APIKey           string        `mapstructure:"apiKey"`
		BaseURL          string        `mapstructure:"baseURL"`
		Model            string        `mapstructure:"model"`
		MaxTokens        int           `mapstructure:"maxTokens"`
		Temperature      float64       `mapstructure:"temperature"`
		RequestTimeout   time.Duration `mapstructure:"requestTimeout"`
		KnowledgeBaseURL string        `mapstructure:"knowledgeBaseURL"`
		KnowledgeTimeout time.Duration `mapstructure:"knowledgeTimeout"`
		HistoryWindow    int           `mapstructure:"historyWindow"`  // Prior messages included in the prompt
		ServiceSummary   int           `mapstructure:"serviceSummary"` // Services summarized in the system prompt
	} `mapstructure:"ai"`
	Cache struct {
		ContextTTL time.Duration `mapstructure:"contextTTL"`
	} `mapstructure:"cache"`
	Usage struct {
		WindowHours int `mapstructure:"windowHours"`
	} `mapstructure:"usage"`
	Promo struct {
		CooldownHours int `mapstructure:"cooldownHours"`
	} `mapstructure:"promo"`
	WorkerPools struct {
		CrmSync CrmSyncWorkerPoolConfig `mapstructure:"crmSync"`
	} `mapstructure:"workerPools"`
}

// ChannelConfig holds credentials and endpoints for one messaging channel
type ChannelConfig struct {
	AccessToken string        `mapstructure:"accessToken"`
	VerifyToken string        `mapstructure:"verifyToken"`
	APIBaseURL  string        `mapstructure:"apiBaseURL"`
	SendTimeout time.Duration `mapstructure:"sendTimeout"`
}

// CrmSyncWorkerPoolConfig holds configuration for the CRM sync worker pool
type CrmSyncWorkerPoolConfig struct {
	PoolSize   int           `mapstructure:"poolSize"`   // Number of workers
	QueueSize  int           `mapstructure:"queueSize"`  // Task queue buffer size
	MaxBlock   time.Duration `mapstructure:"maxBlock"`   // Max time to block when submitting if queue full
	ExpiryTime time.Duration `mapstructure:"expiryTime"` // Idle worker expiry time
}

// LoadConfig reads configuration from file or environment variables
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("environment", "development")
	v.SetDefault("logLevel", "info")
	v.SetDefault("server.port", 8080)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 2112)
	v.SetDefault("database.postgresAutoMigrate", true)

	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.eventStream", "convo_events")
	v.SetDefault("nats.subjectPrefix", "v1.convo")
	v.SetDefault("nats.publishTimeout", 5*time.Second)

	v.SetDefault("channels.whatsapp.apiBaseURL", "https://graph.facebook.com/v19.0")
	v.SetDefault("channels.whatsapp.sendTimeout", 10*time.Second)
	v.SetDefault("channels.instagram.apiBaseURL", "https://graph.facebook.com/v19.0")
	v.SetDefault("channels.instagram.sendTimeout", 10*time.Second)

	v.SetDefault("ai.baseURL", "https://api.openai.com/v1")
	v.SetDefault("ai.model", "gpt-4o-mini")
	v.SetDefault("ai.maxTokens", 300)
	v.SetDefault("ai.temperature", 0.4)
	v.SetDefault("ai.requestTimeout", 20*time.Second)
	v.SetDefault("ai.knowledgeTimeout", 5*time.Second)
	v.SetDefault("ai.historyWindow", 4)
	v.SetDefault("ai.serviceSummary", 5)

	v.SetDefault("cache.contextTTL", 5*time.Minute)
	v.SetDefault("usage.windowHours", 24)
	v.SetDefault("promo.cooldownHours", 24)

	v.SetDefault("workerPools.crmSync.poolSize", 8)
	v.SetDefault("workerPools.crmSync.queueSize", 4096)
	v.SetDefault("workerPools.crmSync.maxBlock", time.Second)
	v.SetDefault("workerPools.crmSync.expiryTime", time.Minute)

	// Config file settings
	v.SetConfigName("default")
	v.SetConfigType("yaml")

	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath("/etc/convo-pipeline")

	if err := v.ReadInConfig(); err != nil {
		// It's ok if config file is not found, we'll use env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Override with environment variables
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v, Config{})

	// Read directly from ENV for critical values
	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		v.Set("database.postgresDSN", dsn)
	}
	if lgLevel := os.Getenv("LOG_LEVEL"); lgLevel != "" {
		v.Set("logLevel", lgLevel)
	}
	if url := os.Getenv("NATS_URL"); url != "" {
		v.Set("nats.url", url)
		v.Set("nats.enabled", true)
	}
	if token := os.Getenv("WHATSAPP_ACCESS_TOKEN"); token != "" {
		v.Set("channels.whatsapp.accessToken", token)
	}
	if token := os.Getenv("WHATSAPP_VERIFY_TOKEN"); token != "" {
		v.Set("channels.whatsapp.verifyToken", token)
	}
	if token := os.Getenv("INSTAGRAM_ACCESS_TOKEN"); token != "" {
		v.Set("channels.instagram.accessToken", token)
	}
	if key := os.Getenv("AI_API_KEY"); key != "" {
		v.Set("ai.apiKey", key)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	return &config, nil
}

// bindEnvs recursively binds environment variables to config struct fields
func bindEnvs(v *viper.Viper, cfg interface{}, parts ...string) {
	ifv := reflect.ValueOf(cfg)
	ift := reflect.TypeOf(cfg)
	for i := 0; i < ift.NumField(); i++ {
		fieldVal := ifv.Field(i)
		fieldType := ift.Field(i)

		tag := fieldType.Tag.Get("mapstructure")
		if tag == "" || tag == "-" {
			continue
		}

		path := append(parts, tag)
		key := strings.Join(path, ".")

		if fieldType.Type.Kind() == reflect.Struct {
			bindEnvs(v, fieldVal.Interface(), path...)
			continue
		}

		_ = v.BindEnv(key)
	}
}
