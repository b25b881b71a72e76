package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"

	defaultServerAddress  = "localhost:8080"
	defaultLogLevel       = "info"
	defaultConfigDir      = ".fieldsync"
	defaultDataFile       = "fieldsync.db"
	defaultSyncInterval   = 300
	defaultProbeInterval  = 15
	defaultRequestTimeout = 30
	defaultMaxRetry       = 5
	defaultUpcomingDays   = 7
)

type Config struct {
	Env            string `mapstructure:"app_env"`
	ServerAddress  string `mapstructure:"server_address"`
	EnableTLS      bool   `mapstructure:"enable_tls"`
	AuthToken      string `mapstructure:"auth_token"`
	LogLevel       string `mapstructure:"log_level"`
	LogFile        string `mapstructure:"log_file"`
	ConfigDir      string `mapstructure:"config_dir"`
	DataPath       string `mapstructure:"data_path"`
	InMemory       bool   `mapstructure:"in_memory"`
	SyncInterval   int    `mapstructure:"sync_interval_seconds"`
	ProbeInterval  int    `mapstructure:"probe_interval_seconds"`
	RequestTimeout int    `mapstructure:"request_timeout_seconds"`
	MaxRetry       int    `mapstructure:"max_retry"`
	UpcomingDays   int    `mapstructure:"upcoming_days"`
	FamiliesFile   string `mapstructure:"families_file"`
}

// MustLoad загружает конфигурацию клиента из окружения, .env и глобального viper
func MustLoad() *Config {
	// Определяем путь к .env файлу (относительно места запуска)
	envPath := ".env"
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		envPath = "../.env"
	}
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			fmt.Printf("Ошибка загрузки .env файла: %v\n", err)
		}
	}

	cfg, err := Load(viper.GetViper())
	if err != nil {
		panic(fmt.Sprintf("Ошибка конфигурации: %v", err))
	}
	return cfg
}

// Load читает конфигурацию из переданного экземпляра viper
func Load(v *viper.Viper) (*Config, error) {
	v.AutomaticEnv()
	SetDefaults(v)

	// Получаем домашнюю директорию пользователя
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	configDir := v.GetString("CONFIG_DIR")
	if configDir == defaultConfigDir {
		configDir = filepath.Join(homeDir, configDir)
	}
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return nil, fmt.Errorf("создание директории конфигурации: %w", err)
	}

	dataPath := v.GetString("DATA_PATH")
	if dataPath == "" {
		dataPath = filepath.Join(configDir, defaultDataFile)
	}

	cfg := &Config{
		Env:            v.GetString("APP_ENV"),
		ServerAddress:  v.GetString("SERVER_ADDRESS"),
		EnableTLS:      v.GetBool("ENABLE_TLS"),
		AuthToken:      v.GetString("AUTH_TOKEN"),
		LogLevel:       v.GetString("LOG_LEVEL"),
		LogFile:        v.GetString("LOG_FILE"),
		ConfigDir:      configDir,
		DataPath:       dataPath,
		InMemory:       v.GetBool("IN_MEMORY"),
		SyncInterval:   v.GetInt("SYNC_INTERVAL_SECONDS"),
		ProbeInterval:  v.GetInt("PROBE_INTERVAL_SECONDS"),
		RequestTimeout: v.GetInt("REQUEST_TIMEOUT_SECONDS"),
		MaxRetry:       v.GetInt("MAX_RETRY"),
		UpcomingDays:   v.GetInt("UPCOMING_DAYS"),
		FamiliesFile:   v.GetString("FAMILIES_FILE"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetDefaults значения по умолчанию
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", EnvLocal)
	v.SetDefault("SERVER_ADDRESS", defaultServerAddress)
	v.SetDefault("LOG_LEVEL", defaultLogLevel)
	v.SetDefault("CONFIG_DIR", defaultConfigDir)
	v.SetDefault("SYNC_INTERVAL_SECONDS", defaultSyncInterval)
	v.SetDefault("PROBE_INTERVAL_SECONDS", defaultProbeInterval)
	v.SetDefault("REQUEST_TIMEOUT_SECONDS", defaultRequestTimeout)
	v.SetDefault("MAX_RETRY", defaultMaxRetry)
	v.SetDefault("UPCOMING_DAYS", defaultUpcomingDays)
	v.SetDefault("ENABLE_TLS", false)
	v.SetDefault("IN_MEMORY", false)
}

func (c *Config) validate() error {
	if c.ServerAddress == "" {
		return fmt.Errorf("server_address не может быть пустым")
	}
	if c.SyncInterval <= 0 {
		return fmt.Errorf("sync_interval_seconds должен быть больше нуля")
	}
	if c.ProbeInterval <= 0 {
		return fmt.Errorf("probe_interval_seconds должен быть больше нуля")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout_seconds должен быть больше нуля")
	}
	if c.MaxRetry <= 0 {
		return fmt.Errorf("max_retry должен быть больше нуля")
	}
	return nil
}

// BaseURL адрес сервера с протоколом
func (c *Config) BaseURL() string {
	if c.EnableTLS {
		return "https://" + c.ServerAddress
	}
	return "http://" + c.ServerAddress
}

func (c *Config) SyncIntervalDuration() time.Duration {
	return time.Duration(c.SyncInterval) * time.Second
}

func (c *Config) ProbeIntervalDuration() time.Duration {
	return time.Duration(c.ProbeInterval) * time.Second
}

func (c *Config) RequestTimeoutDuration() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// IsProd проверяет, prod ли окружение
func (c *Config) IsProd() bool {
	return c.Env == EnvProd
}

// IsDev проверяет, dev ли окружение
func (c *Config) IsDev() bool {
	return c.Env == EnvDev
}

// IsLocal проверяет, local ли окружение
func (c *Config) IsLocal() bool {
	return c.Env == EnvLocal || c.Env == ""
}
