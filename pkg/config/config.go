package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	Log         struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"console" validate:"oneof=console json"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Server struct {
		Enabled         bool          `yaml:"enabled" default:"true"`
		Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		SlowRequest     time.Duration `yaml:"slow_request" default:"500ms"`
		ViewCacheTTL    time.Duration `yaml:"view_cache_ttl" default:"2s"`
	} `yaml:"server"`
	Deriv struct {
		Endpoint         string        `yaml:"endpoint" default:"wss://ws.derivws.com/websockets/v3" validate:"required,url"`
		AppID            string        `yaml:"app_id" validate:"required"`
		APIToken         string        `yaml:"api_token" validate:"required"`
		HandshakeTimeout time.Duration `yaml:"handshake_timeout" default:"10s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
		PingInterval     time.Duration `yaml:"ping_interval" default:"30s"`
		ReconnectDelay   time.Duration `yaml:"reconnect_delay" default:"5s"`
		RequestTimeout   time.Duration `yaml:"request_timeout" default:"30s"`
	} `yaml:"deriv"`
	Trading struct {
		Symbol            string        `yaml:"symbol" default:"R_100" validate:"required"`
		Stake             float64       `yaml:"stake" default:"100" validate:"gt=0"`
		Currency          string        `yaml:"currency" default:"USD" validate:"len=3"`
		Duration          int           `yaml:"duration" default:"1" validate:"gte=1"`
		DurationUnit      string        `yaml:"duration_unit" default:"m" validate:"oneof=t s m h d"`
		Granularity       int           `yaml:"granularity" default:"60" validate:"gte=60"`
		BarCount          int           `yaml:"bar_count" default:"30" validate:"gte=3,lte=5000"`
		MinAccuracy       float64       `yaml:"min_accuracy" default:"70" validate:"gte=0,lte=100"`
		MinSampleSize     int           `yaml:"min_sample_size" default:"5" validate:"gte=1"`
		TickInterval      time.Duration `yaml:"tick_interval" default:"5s"`
		PollInterval      time.Duration `yaml:"poll_interval" default:"2s"`
		SettlementTimeout time.Duration `yaml:"settlement_timeout" default:"300s"`
	} `yaml:"trading"`
	Storage struct {
		Backend          string        `yaml:"backend" default:"file" validate:"oneof=file redis memory"`
		LearningFile     string        `yaml:"learning_file" default:"learning.json"`
		TradeHistoryFile string        `yaml:"trade_history_file" default:"trade_history.json"`
		BarsFile         string        `yaml:"bars_file" default:"candles.json"`
		LockTTL          time.Duration `yaml:"lock_ttl" default:"10s"`
	} `yaml:"storage"`
	Redis struct {
		Host     string `yaml:"host" default:"localhost"`
		Port     int    `yaml:"port" default:"6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix" default:"derivbot"`

		// PingTimeout bounds the connectivity check at startup.
		PingTimeout time.Duration `yaml:"ping_timeout" default:"5s"`
	} `yaml:"redis"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic" default:"derivbot.trades"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"100ms"`
			BatchSize    int           `yaml:"batch_size" default:"1"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"derivbot"`
		Table            string        `yaml:"table" default:"trades"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	} `yaml:"clickhouse"`
	Notify struct {
		Timeout    time.Duration `yaml:"timeout" default:"15s"`
		RateBurst  float64       `yaml:"rate_burst" default:"5"`
		RatePerMin float64       `yaml:"rate_per_min" default:"6"`
		Email      struct {
			Sender   string `yaml:"sender"`
			Password string `yaml:"password"`
			Receiver string `yaml:"receiver"`
			SMTPHost string `yaml:"smtp_host" default:"smtp.gmail.com"`
			SMTPPort int    `yaml:"smtp_port" default:"587"`
		} `yaml:"email"`
		Telegram struct {
			BotToken string `yaml:"bot_token"`
			ChatID   string `yaml:"chat_id"`
			APIURL   string `yaml:"api_url" default:"https://api.telegram.org"`
		} `yaml:"telegram"`
		ErrorDigest struct {
			Enabled   bool          `yaml:"enabled"`
			Interval  time.Duration `yaml:"interval" default:"10m"`
			Threshold int           `yaml:"threshold" default:"20"`
		} `yaml:"error_digest"`
	} `yaml:"notify"`
}

var validate = validator.New()

// Load applies defaults and overlays the YAML file at path. A missing file is not an error.
func Load(path string) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}

	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(b, &c); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML, then .env and the process environment, then validates.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	if err := c.applyEnv(os.LookupEnv); err != nil {
		return nil, fmt.Errorf("config env: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	e := envReader{lookup: lookup}

	e.str("DERIV_API_TOKEN", &c.Deriv.APIToken)
	e.str("DERIV_APP_ID", &c.Deriv.AppID)
	e.str("DERIV_ENDPOINT", &c.Deriv.Endpoint)
	e.str("DERIV_SYMBOL", &c.Trading.Symbol)
	e.float("DERIV_STAKE", &c.Trading.Stake)
	e.int("DERIV_DURATION_MIN", &c.Trading.Duration)
	e.int("DERIV_TIMEFRAME_SEC", &c.Trading.Granularity)
	e.float("MIN_ACCURACY", &c.Trading.MinAccuracy)
	e.int("MIN_SAMPLE_SIZE", &c.Trading.MinSampleSize)

	e.str("STORAGE_BACKEND", &c.Storage.Backend)
	e.str("LEARNING_FILE", &c.Storage.LearningFile)
	e.str("TRADE_HISTORY_FILE", &c.Storage.TradeHistoryFile)
	e.str("CANDLES_FILE", &c.Storage.BarsFile)

	e.str("EMAIL_SENDER", &c.Notify.Email.Sender)
	e.str("EMAIL_APP_PASSWORD", &c.Notify.Email.Password)
	e.str("EMAIL_RECEIVER", &c.Notify.Email.Receiver)
	e.str("TELEGRAM_BOT_TOKEN", &c.Notify.Telegram.BotToken)
	e.str("TELEGRAM_CHAT_ID", &c.Notify.Telegram.ChatID)

	e.str("REDIS_HOST", &c.Redis.Host)
	e.int("REDIS_PORT", &c.Redis.Port)
	e.str("REDIS_PASSWORD", &c.Redis.Password)

	if v, ok := lookup("KAFKA_BROKERS"); ok && v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	e.str("KAFKA_TOPIC", &c.Kafka.Topic)

	if v, ok := lookup("CLICKHOUSE_HOST"); ok && v != "" {
		c.ClickHouse.Host = v
		c.ClickHouse.Enabled = true
	}
	e.str("CLICKHOUSE_USER", &c.ClickHouse.User)
	e.str("CLICKHOUSE_PASSWORD", &c.ClickHouse.Password)

	e.str("LOG_LEVEL", &c.Log.Level)
	e.int("HTTP_PORT", &c.Server.Port)

	return errors.Join(e.errs...)
}

type envReader struct {
	lookup lookupFunc
	errs   []error
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.lookup(key); ok && v != "" {
		*dst = v
	}
}

func (e *envReader) int(key string, dst *int) {
	v, ok := e.lookup(key)
	if !ok || v == "" {
		return
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %q is not an integer", key, v))
		return
	}
	*dst = n
}

func (e *envReader) float(key string, dst *float64) {
	v, ok := e.lookup(key)
	if !ok || v == "" {
		return
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %q is not a number", key, v))
		return
	}
	*dst = f
}

// Validate checks struct tags and the cross-field rules tags cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Trading.PollInterval <= 0 || c.Trading.TickInterval <= 0 {
		return fmt.Errorf("trading intervals must be positive")
	}
	if c.Trading.SettlementTimeout < c.Trading.PollInterval {
		return fmt.Errorf("trading.settlement_timeout must be at least trading.poll_interval")
	}
	return nil
}

