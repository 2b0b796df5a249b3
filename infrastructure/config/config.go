package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Cors      CorsConfig
	Logger    LoggerConfig
	Jaeger    JaegerConfig
	Sentry    SentryConfig
	JWT       JWTConfig
	Websocket WebsocketConfig
	Backplane BackplaneConfig
	Internal  InternalConfig
}

type ServerConfig struct {
	InternalPort string
	ExternalPort string
	RunMode      string
	Domain       string
}

type LoggerConfig struct {
	FilePath   string
	Encoding   string
	Level      string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

type PostgresConfig struct {
	Driver          string
	Host            string
	Port            string
	User            string
	Password        string
	DbName          string
	SSLMode         string
	SQLitePath      string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Host         string
	Port         string
	Password     string
	Db           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
	PoolTimeout  time.Duration
}

type CorsConfig struct {
	AllowOrigins []string
}

type JaegerConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

type SentryConfig struct {
	Dsn            string
	Debug          bool
	SendDefaultPII bool
}

// JWTConfig holds the secret shared with the HTTP-side token issuer.
type JWTConfig struct {
	Secret string
	Issuer string
}

type WebsocketConfig struct {
	ReadBufferSize  int
	WriteBufferSize int
	SendBufferSize  int
	MaxMessageBytes int64
	PingInterval    time.Duration
	PongWait        time.Duration
	WriteWait       time.Duration
	AuthTimeout     time.Duration
}

type BackplaneConfig struct {
	Enabled bool
	Channel string
}

type InternalConfig struct {
	ApiKey string
}

func GetConfig() *Config {
	cfgPath := getConfigPath(os.Getenv("APP_ENV"))
	v, err := LoadConfig(cfgPath, "yml")
	if err != nil {
		log.Fatalf("Error in load config %v", err)
	}

	cfg, err := ParseConfig(v)
	if err != nil {
		log.Fatalf("Error in parse config %v", err)
	}

	if envPort := os.Getenv("PORT"); envPort != "" {
		cfg.Server.ExternalPort = envPort
		log.Printf("Set external port from environment -> %s", cfg.Server.ExternalPort)
	} else {
		log.Printf("Using external port from config -> %s", cfg.Server.ExternalPort)
	}

	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.JWT.Secret = secret
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	return cfg
}

func ParseConfig(v *viper.Viper) (*Config, error) {
	var cfg Config
	err := v.Unmarshal(&cfg)
	if err != nil {
		log.Printf("Unable to parse config: %v", err)
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func LoadConfig(filename string, fileType string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigType(fileType)
	v.SetConfigName(filename)

	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./infrastructure/config")
	v.AddConfigPath("../config")
	v.AddConfigPath("../infrastructure/config") // from cmd
	v.AddConfigPath("../../infrastructure/config")

	if wd, err := os.Getwd(); err == nil {
		v.AddConfigPath(filepath.Join(wd, "config"))
		v.AddConfigPath(filepath.Join(wd, "infrastructure", "config"))
	}

	v.AutomaticEnv()

	err := v.ReadInConfig()
	if err != nil {
		log.Printf("Unable to read config: %v", err)
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return nil, errors.New("config file not found")
		}
		return nil, err
	}

	log.Printf("Using config file: %s", v.ConfigFileUsed())
	return v, nil
}

func getConfigPath(env string) string {
	switch env {
	case "docker":
		return "config-docker"
	case "production":
		return "config-production"
	default:
		return "config-development"
	}
}

func (c *Config) applyDefaults() {
	if c.Postgres.Driver == "" {
		c.Postgres.Driver = "postgres"
	}
	if c.Websocket.ReadBufferSize == 0 {
		c.Websocket.ReadBufferSize = 1024
	}
	if c.Websocket.WriteBufferSize == 0 {
		c.Websocket.WriteBufferSize = 1024
	}
	if c.Websocket.SendBufferSize == 0 {
		c.Websocket.SendBufferSize = 64
	}
	if c.Websocket.MaxMessageBytes == 0 {
		c.Websocket.MaxMessageBytes = 32 * 1024
	}
	if c.Websocket.PongWait == 0 {
		c.Websocket.PongWait = 60 * time.Second
	}
	if c.Websocket.PingInterval == 0 {
		c.Websocket.PingInterval = (c.Websocket.PongWait * 9) / 10
	}
	if c.Websocket.WriteWait == 0 {
		c.Websocket.WriteWait = 10 * time.Second
	}
	if c.Websocket.AuthTimeout == 0 {
		c.Websocket.AuthTimeout = 5 * time.Second
	}
	if c.Backplane.Channel == "" {
		c.Backplane.Channel = "kindred:realtime"
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.InternalPort == "" {
		return errors.New("server.internalPort is required")
	}
	if c.Server.ExternalPort == "" {
		return errors.New("server.externalPort is required")
	}

	switch c.Postgres.Driver {
	case "postgres":
		if c.Postgres.Host == "" {
			return errors.New("postgres.host is required")
		}
		if c.Postgres.Port == "" {
			return errors.New("postgres.port is required")
		}
		if c.Postgres.DbName == "" {
			return errors.New("postgres.dbName is required")
		}
	case "sqlite":
		if c.Postgres.SQLitePath == "" {
			return errors.New("postgres.sqlitePath is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("postgres.driver %q is not supported", c.Postgres.Driver)
	}

	if c.JWT.Secret == "" {
		return errors.New("jwt.secret is required")
	}
	if c.IsProduction() && len(c.JWT.Secret) < 32 {
		return errors.New("jwt.secret must be at least 32 bytes in production")
	}

	if c.Backplane.Enabled {
		if c.Redis.Host == "" {
			return errors.New("redis.host is required when the backplane is enabled")
		}
		if c.Redis.Port == "" {
			return errors.New("redis.port is required when the backplane is enabled")
		}
	}

	if c.IsProduction() {
		for _, origin := range c.Cors.AllowOrigins {
			if origin == "*" {
				return errors.New("cors.allowOrigins must not contain * in production")
			}
		}
	}

	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Server.RunMode == "debug" || c.Server.RunMode == "development"
}

func (c *Config) IsProduction() bool {
	return c.Server.RunMode == "release" || c.Server.RunMode == "production"
}

func (c *Config) GetPostgresConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Postgres.Host,
		c.Postgres.Port,
		c.Postgres.User,
		c.Postgres.Password,
		c.Postgres.DbName,
		c.Postgres.SSLMode,
	)
}

func (c *Config) GetRedisAddress() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

func (c *Config) GetServerAddress() string {
	return fmt.Sprintf(":%s", c.Server.ExternalPort)
}
