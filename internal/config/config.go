package config

import (
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env              string `yaml:"env" env:"ENV" env-default:"local"`
	Tokens           `yaml:"tokens"`
	Postgres         `yaml:"postgres"`
	Redis            `yaml:"redis"`
	RabbitMQ         `yaml:"rabbitmq"`
	Email            `yaml:"email"`
	S3               `yaml:"s3"`
	External         `yaml:"external"`
	UserServer       HTTPServer `yaml:"user_server"`
	ChallengeServer  HTTPServer `yaml:"challenge_server"`
	Scheduler        `yaml:"scheduler"`
}

type HTTPServer struct {
	Address     string        `yaml:"address" env-default:"localhost:8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

type Postgres struct {
	Host     string `yaml:"host" env-default:"postgres"`
	Port     int    `yaml:"port" env-default:"5432"`
	User     string `yaml:"user" env-required:"true"`
	Password string `yaml:"password" env:"POSTGRES_PASSWORD" env-required:"true"`
	DBName   string `yaml:"dbname" env-required:"true"`
	SSLMode  string `yaml:"sslmode" env-default:"disable"`
}

type Redis struct {
	Address  string `yaml:"address" env-default:"redis:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env-default:"0"`
}

type Tokens struct {
	Secret          string        `yaml:"secret" env:"TOKEN_SECRET" env-required:"true"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl" env-required:"true"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl" env-required:"true"`
	EmailAuthTTL    time.Duration `yaml:"email_auth_ttl" env-required:"true"`
}

type RabbitMQ struct {
	URL       string `yaml:"url" env:"RABBITMQ_URL" env-required:"true"`
	QueueName string `yaml:"queue_name" env-required:"true"`
}

type Email struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port" env-default:"587"`
	Username string `yaml:"username"`
	Password string `yaml:"password" env:"EMAIL_PASSWORD"`
}

type S3 struct {
	Region    string `yaml:"region" env-default:"ap-northeast-2"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key" env:"S3_ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" env:"S3_SECRET_KEY"`
}

type External struct {
	GithubAPIURL   string `yaml:"github_api_url" env-default:"https://api.github.com"`
	SolvedacAPIURL string `yaml:"solvedac_api_url" env-default:"https://solved.ac/api/v3"`
	ClientTimeout  time.Duration `yaml:"client_timeout" env-default:"10s"`
}

type Scheduler struct {
	DailyAt string `yaml:"daily_at" env-default:"00:00"`
}

func MustLoad(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("Config file does not exist" + configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("Failed to read config" + err.Error())
	}

	return &cfg
}
