package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	envPath  = ".env"
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"

	defaultRunAddress = "localhost:8080"
)

type Config struct {
	Env    string
	DB     db
	Server server
	Logger logger
}

type db struct {
	// DatabaseURI пустой адрес включает хранение в памяти
	DatabaseURI string `env:"DATABASE_URI"`
	// DataPath файл SQLite, если DATABASE_URI не задан
	DataPath string `env:"DATA_PATH"`
}

type server struct {
	RunAddress string `env:"RUN_ADDRESS"`
	AuthToken  string `env:"AUTH_TOKEN"`
}

type logger struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// MustLoad читает конфигурацию песочницы из окружения и необязательного .env
func MustLoad() *Config {
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			fmt.Fprintf(os.Stderr, "failed to load %s: %v\n", envPath, err)
		}
	}
	return Load(viper.New())
}

// Load собирает конфигурацию из переданного экземпляра viper
func Load(v *viper.Viper) *Config {
	v.AutomaticEnv()
	v.SetDefault("run_address", defaultRunAddress)
	v.SetDefault("app_env", EnvLocal)
	v.SetDefault("log_level", "info")

	return &Config{
		Env: v.GetString("app_env"),
		DB: db{
			DatabaseURI: v.GetString("database_uri"),
			DataPath:    v.GetString("data_path"),
		},
		Server: server{
			RunAddress: v.GetString("run_address"),
			AuthToken:  v.GetString("auth_token"),
		},
		Logger: logger{LogLevel: v.GetString("log_level")},
	}
}

// StorageKind вид хранилища по конфигурации
func (c *Config) StorageKind() string {
	switch {
	case c.DB.DatabaseURI != "":
		return "postgres"
	case c.DB.DataPath != "":
		return "sqlite"
	default:
		return "memory"
	}
}
