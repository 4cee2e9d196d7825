package config

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env        string           `yaml:"env" env-default:"development"` // environment
	HTTPServer HTTPServerConfig `yaml:"http_server"`
	Database   DatabaseConfig   `yaml:"database"`
	JWT        JWTConfig        `yaml:"jwt"`
	Redis      RedisConfig      `yaml:"redis"`
	Admin      AdminConfig      `yaml:"admin"`
	Migrations MigrationsConfig `yaml:"migrations"`
}

// HTTPServerConfig describes the listening http server
type HTTPServerConfig struct {
	Address     string        `yaml:"address" env-default:"localhost:8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// DatabaseConfig describes the postgres connection
type DatabaseConfig struct {
	Host         string        `yaml:"host" env-default:"localhost"`
	Port         int           `yaml:"port" env-default:"5432"`
	User         string        `yaml:"user" env-required:"true"`
	Password     string        `yaml:"-" env:"DB_PASSWORD" env-required:"true"`
	Name         string        `yaml:"name" env-required:"true"`
	QueryTimeout time.Duration `yaml:"query_timeout" env-default:"3s"`
}

// JWTConfig token settings; the secret only comes from env and is checked
// when the token manager is built, so the migrator runs without it
type JWTConfig struct {
	Secret   string        `yaml:"-" env:"JWT_SECRET"`
	TokenTTL time.Duration `yaml:"token_ttl" env-default:"24h"`
}

// RedisConfig price cache; an empty address turns the cache off
type RedisConfig struct {
	Address  string        `yaml:"address" env:"REDIS_ADDRESS"`
	Password string        `yaml:"-" env:"REDIS_PASSWORD"`
	DB       int           `yaml:"db" env-default:"0"`
	PriceTTL time.Duration `yaml:"price_ttl" env-default:"30s"`
}

// AdminConfig bootstrap admin account, created at startup when missing
type AdminConfig struct {
	Email    string `yaml:"email"`
	Name     string `yaml:"name" env-default:"Administrator"`
	Password string `yaml:"-" env:"ADMIN_PASSWORD"`
}

type MigrationsConfig struct {
	Path string `yaml:"path" env-default:"./migrations"`
}

// MustLoad - panics when the config cannot be loaded
func MustLoad() *Config {
	configPath := fetchConfigPath()
	if configPath == "" {
		log.Fatal("CONFIG_PATH not exists")
	}
	return MustLoadByPath(configPath)
}

func fetchConfigPath() string {
	var path string

	flag.StringVar(&path, "config", "", "path to config file")
	flag.Parse()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	return path
}

func MustLoadByPath(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file not found: " + configPath)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("can't read config file %s: %v", configPath, err)
	}

	return &cfg
}

// DSN builds the lib/pq connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}
