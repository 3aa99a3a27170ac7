package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var ErrMissingBotToken = errors.New("bot token is required")

// Config is the process configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Bot     BotConfig     `mapstructure:"bot"`
	Guide   GuideConfig   `mapstructure:"guide"`
	Storage StorageConfig `mapstructure:"storage"`
	Log     LogConfig     `mapstructure:"log"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Kafka   KafkaConfig   `mapstructure:"kafka"`
	Export  ExportConfig  `mapstructure:"export"`
	Jobs    JobsConfig    `mapstructure:"jobs"`
}

type ServerConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Port       int    `mapstructure:"port"`
	AdminToken string `mapstructure:"admin_token"`
}

type BotConfig struct {
	Token        string        `mapstructure:"token"`
	AdminIDs     []int64       `mapstructure:"-"`
	AlertChatIDs []int64       `mapstructure:"-"`
	PollTimeout  time.Duration `mapstructure:"poll_timeout"`
	AssetsDir    string        `mapstructure:"assets_dir"`
}

type GuideConfig struct {
	PriceUAH     int64   `mapstructure:"price_uah"`
	OldPriceUAH  int64   `mapstructure:"old_price_uah"`
	UAHPerStar   float64 `mapstructure:"uah_per_star"`
	TONPerStar   float64 `mapstructure:"ton_per_star"`
	TONWallet    string  `mapstructure:"ton_wallet"`
	Payload      string  `mapstructure:"payload"`
	Mode         string  `mapstructure:"mode"`
	URL          string  `mapstructure:"url"`
	SalesEnabled bool    `mapstructure:"sales_enabled"`
	Title        string  `mapstructure:"title"`
	Description  string  `mapstructure:"description"`
}

type StorageConfig struct {
	DataDir string `mapstructure:"data_dir"`
	LogsDir string `mapstructure:"logs_dir"`
}

// LogFile is the application log the admin console tails.
func (c StorageConfig) LogFile() string {
	return filepath.Join(c.LogsDir, "app.log")
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Enabled bool             `mapstructure:"enabled"`
	Brokers []string         `mapstructure:"brokers"`
	Topic   KafkaTopicConfig `mapstructure:"topic"`
}

type KafkaTopicConfig struct {
	PaymentEvents string `mapstructure:"payment_events"`
}

// ExportConfig controls the SQL reporting mirror.
type ExportConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Driver   string        `mapstructure:"driver"`
	DSN      string        `mapstructure:"dsn"`
	Interval time.Duration `mapstructure:"interval"`
	MySQL    MySQLConfig   `mapstructure:"mysql"`
}

type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type JobsConfig struct {
	OutboxInterval  time.Duration `mapstructure:"outbox_interval"`
	OutboxBatchSize int           `mapstructure:"outbox_batch_size"`
	MaxRetryCount   int           `mapstructure:"max_retry_count"`
	BroadcastRate   float64       `mapstructure:"broadcast_rate"`
}

// legacyEnv maps config keys to the environment names used by the previous
// deployment. STARSHOP_<KEY> also works for every key.
var legacyEnv = map[string]string{
	"bot.token":           "BOT_TOKEN",
	"bot.admin_ids":       "ADMIN_IDS",
	"bot.alert_chat_ids":  "ALERT_CHAT_IDS",
	"guide.price_uah":     "PRICE_UAH",
	"guide.old_price_uah": "OLD_PRICE_UAH",
	"guide.uah_per_star":  "UAH_PER_STAR",
	"guide.ton_per_star":  "TON_PER_STAR",
	"guide.ton_wallet":    "TON_WALLET",
	"guide.payload":       "PAYLOAD",
	"guide.mode":          "GUIDE_MODE",
	"guide.url":           "GUIDE_URL",
	"guide.sales_enabled": "SALES_ENABLED",
	"storage.data_dir":    "DATA_DIR",
	"storage.logs_dir":    "LOGS_DIR",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.enabled", true)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.admin_token", "")

	v.SetDefault("bot.token", "")
	v.SetDefault("bot.admin_ids", "")
	v.SetDefault("bot.alert_chat_ids", "")
	v.SetDefault("bot.poll_timeout", 10*time.Second)
	v.SetDefault("bot.assets_dir", "assets")

	v.SetDefault("guide.price_uah", 299)
	v.SetDefault("guide.old_price_uah", 699)
	v.SetDefault("guide.uah_per_star", 0.55)
	v.SetDefault("guide.ton_per_star", 0.0015)
	v.SetDefault("guide.ton_wallet", "")
	v.SetDefault("guide.payload", "guide_500")
	v.SetDefault("guide.mode", "url")
	v.SetDefault("guide.url", "")
	v.SetDefault("guide.sales_enabled", true)
	v.SetDefault("guide.title", "XTR Guide")
	v.SetDefault("guide.description", "Гайд доступний після оплати")

	v.SetDefault("storage.data_dir", "data")
	v.SetDefault("storage.logs_dir", "logs")

	v.SetDefault("log.level", "info")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic.payment_events", "payment_events")

	v.SetDefault("export.enabled", false)
	v.SetDefault("export.driver", "sqlite")
	v.SetDefault("export.dsn", "data/reporting.db")
	v.SetDefault("export.interval", time.Minute)
	v.SetDefault("export.mysql.host", "localhost")
	v.SetDefault("export.mysql.port", 3306)
	v.SetDefault("export.mysql.user", "root")
	v.SetDefault("export.mysql.password", "")
	v.SetDefault("export.mysql.database", "starshop")
	v.SetDefault("export.mysql.max_open_conns", 10)
	v.SetDefault("export.mysql.max_idle_conns", 5)

	v.SetDefault("jobs.outbox_interval", time.Second)
	v.SetDefault("jobs.outbox_batch_size", 100)
	v.SetDefault("jobs.max_retry_count", 5)
	v.SetDefault("jobs.broadcast_rate", 10)
}

// LoadConfig reads configPath (optional) and the environment. A .env file in
// the working directory is loaded first without overriding real variables.
func LoadConfig(configPath string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("STARSHOP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		if err := v.BindEnv(key, "STARSHOP_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	var err error
	if cfg.Bot.AdminIDs, err = parseIDs(v.Get("bot.admin_ids")); err != nil {
		return nil, fmt.Errorf("bot.admin_ids: %w", err)
	}
	if cfg.Bot.AlertChatIDs, err = parseIDs(v.Get("bot.alert_chat_ids")); err != nil {
		return nil, fmt.Errorf("bot.alert_chat_ids: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that have no usable default.
func (c *Config) Validate() error {
	if c.Bot.Token == "" {
		return ErrMissingBotToken
	}
	if c.Guide.UAHPerStar <= 0 {
		return fmt.Errorf("guide.uah_per_star must be positive, got %v", c.Guide.UAHPerStar)
	}
	if c.Guide.PriceUAH <= 0 {
		return fmt.Errorf("guide.price_uah must be positive, got %d", c.Guide.PriceUAH)
	}
	switch c.Export.Driver {
	case "sqlite", "mysql":
	default:
		return fmt.Errorf("export.driver must be sqlite or mysql, got %q", c.Export.Driver)
	}
	return nil
}

// parseIDs accepts a YAML list or a comma separated string such as "1, 2,3".
func parseIDs(raw any) ([]int64, error) {
	var parts []string
	switch val := raw.(type) {
	case nil:
		return nil, nil
	case string:
		parts = strings.Split(val, ",")
	case []any:
		for _, item := range val {
			parts = append(parts, fmt.Sprint(item))
		}
	case []string:
		parts = val
	case []int:
		for _, item := range val {
			parts = append(parts, strconv.Itoa(item))
		}
	default:
		parts = []string{fmt.Sprint(val)}
	}

	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
